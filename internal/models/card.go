// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Card colors. Wild cards carry ColorWild until a color is chosen on play.
const (
	ColorRed    = "red"
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorWild   = "wild"
)

// BaseColors are the four colors a wild card may be resolved to.
var BaseColors = []string{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// Special card kinds.
const (
	KindSkip    = "skip"
	KindReverse = "reverse"
	KindDraw2   = "draw2"
	KindWild    = "wild"
	KindWild4   = "wild4"
)

// Value is a card's face value: either a pip 0-9 or a named special kind.
// On the wire it is a JSON number for pips and a JSON string for specials,
// matching the client protocol.
type Value struct {
	Pip  int
	Kind string // empty for pip cards
}

// PipValue builds a numeric value.
func PipValue(n int) Value { return Value{Pip: n} }

// KindValue builds a special value.
func KindValue(kind string) Value { return Value{Kind: kind} }

// IsSpecial reports whether the value is a named special kind.
func (v Value) IsSpecial() bool { return v.Kind != "" }

func (v Value) String() string {
	if v.IsSpecial() {
		return v.Kind
	}
	return strconv.Itoa(v.Pip)
}

// MarshalJSON emits a number for pip values and a string for special kinds.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsSpecial() {
		return json.Marshal(v.Kind)
	}
	return json.Marshal(v.Pip)
}

// UnmarshalJSON accepts either form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 || n > 9 {
			return fmt.Errorf("card value %d out of range", n)
		}
		*v = Value{Pip: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("card value must be a number or kind string")
	}
	switch s {
	case KindSkip, KindReverse, KindDraw2, KindWild, KindWild4:
		*v = Value{Kind: s}
		return nil
	}
	return fmt.Errorf("unknown card kind %q", s)
}

// Card is a value object; duplicates exist by design, so equality is by
// color and value only. ChosenColor is set once a wild card is played.
type Card struct {
	Color       string `json:"color"`
	Value       Value  `json:"value"`
	ChosenColor string `json:"chosenColor,omitempty"`
}

// IsWild reports whether the card is a colorless wild card.
func (c Card) IsWild() bool { return c.Color == ColorWild }

// EffectiveColor is the color the card counts as on top of the discard:
// the chosen color for a played wild, the printed color otherwise.
func (c Card) EffectiveColor() string {
	if c.IsWild() && c.ChosenColor != "" {
		return c.ChosenColor
	}
	return c.Color
}

// Matches reports whether c equals other by color and value, ignoring any
// chosen color. Used to locate a card in a hand.
func (c Card) Matches(other Card) bool {
	return c.Color == other.Color && c.Value == other.Value
}

func (c Card) String() string {
	return c.Color + " " + c.Value.String()
}

// ValidChosenColor reports whether color is one of the four base colors.
func ValidChosenColor(color string) bool {
	for _, b := range BaseColors {
		if color == b {
			return true
		}
	}
	return false
}
