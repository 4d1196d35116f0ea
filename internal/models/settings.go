// internal/models/settings.go
package models

// Settings is a lobby's deck configuration plus display options. Which
// special kinds are enabled determines the deck composition; Cards is the
// starting hand size and Players the capacity requested at creation.
type Settings struct {
	Draw2   bool `json:"draw2"`
	Reverse bool `json:"reverse"`
	Skip    bool `json:"skip"`
	Wild    bool `json:"wild"`
	Wild4   bool `json:"wild4"`
	Cards   int  `json:"cards"`
	Players int  `json:"players"`
}

// DefaultSettings enables every special kind with a 5-card starting hand,
// the values a freshly created lobby starts from.
func DefaultSettings() Settings {
	return Settings{
		Draw2:   true,
		Reverse: true,
		Skip:    true,
		Wild:    true,
		Wild4:   true,
		Cards:   5,
		Players: 5,
	}
}

// StartingCards is the configured hand size, falling back to 5.
func (s Settings) StartingCards() int {
	if s.Cards <= 0 {
		return 5
	}
	return s.Cards
}

// SettingsPatch carries a partial settings update; nil fields are left
// unchanged. Capacity is deliberately absent: it is only set at lobby
// creation.
type SettingsPatch struct {
	Draw2   *bool `json:"draw2,omitempty"`
	Reverse *bool `json:"reverse,omitempty"`
	Skip    *bool `json:"skip,omitempty"`
	Wild    *bool `json:"wild,omitempty"`
	Wild4   *bool `json:"wild4,omitempty"`
	Cards   *int  `json:"cards,omitempty"`
}

// Apply merges the patch into s and reports whether anything changed.
func (p SettingsPatch) Apply(s *Settings) bool {
	changed := false
	setBool := func(dst *bool, src *bool) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setBool(&s.Draw2, p.Draw2)
	setBool(&s.Reverse, p.Reverse)
	setBool(&s.Skip, p.Skip)
	setBool(&s.Wild, p.Wild)
	setBool(&s.Wild4, p.Wild4)
	if p.Cards != nil && *p.Cards > 0 && s.Cards != *p.Cards {
		s.Cards = *p.Cards
		changed = true
	}
	return changed
}
