// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// HandLimit is the maximum number of cards a hand may hold. Draws that
// would exceed it are rejected.
const HandLimit = 40

// buildDeck assembles an unshuffled deck from the enabled card kinds: per
// color one 0, two each of 1-9 and two of each enabled colored special;
// four of each enabled wild kind.
func buildDeck(settings models.Settings) []models.Card {
	var deck []models.Card
	for _, color := range models.BaseColors {
		deck = append(deck, models.Card{Color: color, Value: models.PipValue(0)})
		for n := 1; n <= 9; n++ {
			deck = append(deck,
				models.Card{Color: color, Value: models.PipValue(n)},
				models.Card{Color: color, Value: models.PipValue(n)},
			)
		}
		colored := []struct {
			enabled bool
			kind    string
		}{
			{settings.Draw2, models.KindDraw2},
			{settings.Reverse, models.KindReverse},
			{settings.Skip, models.KindSkip},
		}
		for _, c := range colored {
			if !c.enabled {
				continue
			}
			deck = append(deck,
				models.Card{Color: color, Value: models.KindValue(c.kind)},
				models.Card{Color: color, Value: models.KindValue(c.kind)},
			)
		}
	}
	wilds := []struct {
		enabled bool
		kind    string
	}{
		{settings.Wild, models.KindWild},
		{settings.Wild4, models.KindWild4},
	}
	for _, w := range wilds {
		if !w.enabled {
			continue
		}
		for i := 0; i < 4; i++ {
			deck = append(deck, models.Card{Color: models.ColorWild, Value: models.KindValue(w.kind)})
		}
	}
	return deck
}

// shuffle permutes cards uniformly in place and returns the slice.
func shuffle(cards []models.Card) []models.Card {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}

// newShuffledDeck builds and shuffles a deck for the given settings.
func newShuffledDeck(settings models.Settings) []models.Card {
	return shuffle(buildDeck(settings))
}

// reshuffleFromDiscard turns a spent discard pile into a fresh draw stack.
// The top (active) card is kept aside and becomes the sole remaining
// discard; everything beneath it is shuffled into the new deck. An empty
// discard yields an empty deck and discard.
func reshuffleFromDiscard(discard []models.Card) (deck, newDiscard []models.Card) {
	if len(discard) == 0 {
		return nil, nil
	}
	top := discard[len(discard)-1]
	deck = shuffle(append([]models.Card(nil), discard[:len(discard)-1]...))
	return deck, []models.Card{top}
}
