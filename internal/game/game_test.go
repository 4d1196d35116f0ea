// internal/game/game_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []Event
	playerEvents map[string][]Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[string][]Event)}
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID string, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[string][]Event)
}

func (mb *mockBroadcaster) eventsOfType(t EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastOfType(t EventType) *Event {
	evs := mb.eventsOfType(t)
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

func (mb *mockBroadcaster) playerEventsOfType(playerID string, t EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.playerEvents[playerID] {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func pip(color string, n int) models.Card {
	return models.Card{Color: color, Value: models.PipValue(n)}
}

func special(color, kind string) models.Card {
	return models.Card{Color: color, Value: models.KindValue(kind)}
}

// newTestGame builds an idle game with mock broadcasters and no turn clock.
func newTestGame(players ...string) (*Game, *mockBroadcaster) {
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p] = "player " + p
	}
	g := New(models.DefaultSettings(), players, names)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	g.TurnDuration = 0
	return g, mb
}

// prime puts the game into a known mid-round state without dealing.
func prime(g *Game, hands map[string][]models.Card, top models.Card, current int) {
	g.deck = newShuffledDeck(g.settings)
	for id, hand := range hands {
		g.hands[id] = append([]models.Card(nil), hand...)
	}
	g.discard = []models.Card{top}
	g.current = current
}

func totalCards(g *Game) int {
	total := len(g.deck) + len(g.discard)
	for _, hand := range g.hands {
		total += len(hand)
	}
	return total
}

func TestStartDealsAndAnnounces(t *testing.T) {
	g, mb := newTestGame("a", "b", "c")
	require.NoError(t, g.Start())

	for _, id := range []string{"a", "b", "c"} {
		assert.Len(t, g.HandOf(id), 5, "starting hand for %s", id)
		deals := mb.playerEventsOfType(id, EventDealCards)
		require.Len(t, deals, 1)
		assert.Len(t, deals[0].Hand, 5)
	}

	require.NotNil(t, mb.lastOfType(EventGameStarted))

	opening := mb.lastOfType(EventCardPlayed)
	require.NotNil(t, opening)
	assert.Nil(t, opening.Player, "the opening flip has no player")
	require.NotNil(t, opening.Card)
	assert.Equal(t, *g.TopCard(), *opening.Card)

	turn := mb.lastOfType(EventPlayerTurn)
	require.NotNil(t, turn)
	require.NotNil(t, turn.Player)
	assert.Equal(t, g.CurrentPlayerID(), *turn.Player)
	assert.NotZero(t, turn.StartedAt)

	// Deck is topped up so every hand could reach the limit.
	assert.GreaterOrEqual(t, totalCards(g), HandLimit*3+1)
}

func TestStartWithoutPlayersFails(t *testing.T) {
	g, _ := newTestGame()
	assert.Error(t, g.Start())
}

func TestPlayCardLegality(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorBlue, 7), pip(models.ColorRed, 9), pip(models.ColorGreen, 5)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	// No color or value match.
	g.HandlePlayCard("a", pip(models.ColorBlue, 7))
	assert.Len(t, g.HandOf("a"), 3, "illegal play must not change the hand")
	assert.Nil(t, mb.lastOfType(EventCardPlayed))
	assert.Equal(t, "a", g.CurrentPlayerID())

	// Card the player does not hold.
	g.HandlePlayCard("a", pip(models.ColorRed, 2))
	assert.Len(t, g.HandOf("a"), 3)

	// Not this player's turn.
	g.HandlePlayCard("b", pip(models.ColorYellow, 1))
	assert.Len(t, g.HandOf("b"), 2)

	// Color match.
	g.HandlePlayCard("a", pip(models.ColorRed, 9))
	require.Len(t, g.HandOf("a"), 2)
	played := mb.lastOfType(EventCardPlayed)
	require.NotNil(t, played)
	assert.Equal(t, pip(models.ColorRed, 9), *played.Card)
	assert.Equal(t, "b", g.CurrentPlayerID())

	// Value match against the new top.
	mb.clear()
	g.hands["b"] = []models.Card{pip(models.ColorYellow, 9), pip(models.ColorYellow, 2), pip(models.ColorYellow, 3)}
	g.HandlePlayCard("b", pip(models.ColorYellow, 9))
	assert.Len(t, g.HandOf("b"), 2)
}

func TestWildRequiresChosenColor(t *testing.T) {
	g, mb := newTestGame("a", "b")
	wild := special(models.ColorWild, models.KindWild)
	prime(g, map[string][]models.Card{
		"a": {wild, pip(models.ColorRed, 1), pip(models.ColorRed, 2)},
		"b": {pip(models.ColorBlue, 3), pip(models.ColorGreen, 3), pip(models.ColorGreen, 4)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", wild)
	assert.Len(t, g.HandOf("a"), 3, "wild without a chosen color is rejected")

	choice := wild
	choice.ChosenColor = models.ColorBlue
	g.HandlePlayCard("a", choice)
	require.Len(t, g.HandOf("a"), 2)
	top := g.TopCard()
	require.NotNil(t, top)
	assert.Equal(t, models.ColorBlue, top.EffectiveColor())

	// The next player must match the chosen color, not the printed one.
	g.HandlePlayCard("b", pip(models.ColorGreen, 3))
	assert.Len(t, g.HandOf("b"), 3, "green does not match the chosen blue")
	g.HandlePlayCard("b", pip(models.ColorBlue, 3))
	assert.Len(t, g.HandOf("b"), 2)
}

func TestReverseHeadToHeadActsAsSkip(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {special(models.ColorRed, models.KindReverse), pip(models.ColorBlue, 1)},
		"b": {pip(models.ColorYellow, 1)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", special(models.ColorRed, models.KindReverse))

	assert.Equal(t, "a", g.CurrentPlayerID(), "reverse head to head keeps the turn")
	require.NotNil(t, mb.lastOfType(EventOrderReversed))
	skipped := mb.lastOfType(EventPlayerSkipped)
	require.NotNil(t, skipped)
	assert.Equal(t, "b", *skipped.Player)
}

func TestReverseFlipsDirection(t *testing.T) {
	g, mb := newTestGame("a", "b", "c")
	prime(g, map[string][]models.Card{
		"a": {special(models.ColorRed, models.KindReverse), pip(models.ColorBlue, 1)},
		"b": {pip(models.ColorYellow, 1)},
		"c": {pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", special(models.ColorRed, models.KindReverse))

	reversed := mb.lastOfType(EventOrderReversed)
	require.NotNil(t, reversed)
	assert.Equal(t, []string{"c", "b", "a"}, reversed.Order)
	assert.Equal(t, "c", g.CurrentPlayerID(), "play passes to the previous neighbor")
}

func TestSkipJumpsOnePlayer(t *testing.T) {
	g, mb := newTestGame("a", "b", "c")
	prime(g, map[string][]models.Card{
		"a": {special(models.ColorRed, models.KindSkip), pip(models.ColorBlue, 1)},
		"b": {pip(models.ColorYellow, 1)},
		"c": {pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", special(models.ColorRed, models.KindSkip))

	assert.Equal(t, "c", g.CurrentPlayerID())
	skipped := mb.lastOfType(EventPlayerSkipped)
	require.NotNil(t, skipped)
	assert.Equal(t, "b", *skipped.Player)
}

func TestDrawStackAccumulatesAndResolves(t *testing.T) {
	g, mb := newTestGame("a", "b", "c")
	prime(g, map[string][]models.Card{
		"a": {special(models.ColorRed, models.KindDraw2), pip(models.ColorBlue, 1)},
		"b": {special(models.ColorYellow, models.KindDraw2), pip(models.ColorBlue, 2)},
		"c": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", special(models.ColorRed, models.KindDraw2))
	assert.Equal(t, 2, g.DrawStack())
	assert.Equal(t, "b", g.CurrentPlayerID())

	// A pending stack blocks everything except countering with another draw2.
	g.HandlePlayCard("b", pip(models.ColorBlue, 2))
	assert.Len(t, g.HandOf("b"), 2)

	g.HandlePlayCard("b", special(models.ColorYellow, models.KindDraw2))
	assert.Equal(t, 4, g.DrawStack())
	assert.Equal(t, "c", g.CurrentPlayerID())

	g.HandleDrawCard("c")
	assert.Zero(t, g.DrawStack())
	assert.Len(t, g.HandOf("c"), 6)
	drawn := mb.lastOfType(EventCardsDrawn)
	require.NotNil(t, drawn)
	assert.Equal(t, "c", *drawn.Player)
	assert.Equal(t, 4, drawn.Count)
	skipped := mb.lastOfType(EventPlayerSkipped)
	require.NotNil(t, skipped)
	assert.Equal(t, "c", *skipped.Player)
	assert.Equal(t, "a", g.CurrentPlayerID())
}

func TestWild4ForcesDrawAndSkip(t *testing.T) {
	g, mb := newTestGame("a", "b", "c")
	wild4 := special(models.ColorWild, models.KindWild4)
	prime(g, map[string][]models.Card{
		"a": {wild4, pip(models.ColorBlue, 1), pip(models.ColorBlue, 2)},
		"b": {pip(models.ColorYellow, 1)},
		"c": {pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	choice := wild4
	choice.ChosenColor = models.ColorGreen
	g.HandlePlayCard("a", choice)

	assert.Len(t, g.HandOf("b"), 5, "next player draws four")
	drawn := mb.lastOfType(EventCardsDrawn)
	require.NotNil(t, drawn)
	assert.Equal(t, "b", *drawn.Player)
	assert.Equal(t, 4, drawn.Count)
	skipped := mb.lastOfType(EventPlayerSkipped)
	require.NotNil(t, skipped)
	assert.Equal(t, "b", *skipped.Player)
	assert.Equal(t, "c", g.CurrentPlayerID())
}

func TestWinEndsGame(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 9)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	var winner string
	g.OnGameEnd = func(winnerID string) { winner = winnerID }
	mb.clear()

	g.HandlePlayCard("a", pip(models.ColorRed, 9))

	assert.True(t, g.Over())
	assert.Equal(t, "a", winner)
	end := mb.lastOfType(EventGameEnd)
	require.NotNil(t, end)
	assert.Equal(t, "a", *end.Player)

	// Intents after the end are ignored.
	g.HandleDrawCard("b")
	assert.Len(t, g.HandOf("b"), 2)
}

func TestUyesTruthfulDeclaration(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 9), pip(models.ColorBlue, 7)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandleUyes("a")
	g.HandlePlayCard("a", pip(models.ColorRed, 9))

	require.Len(t, g.HandOf("a"), 1, "no penalty for a truthful declaration")
	uyes := mb.lastOfType(EventPlayerUyes)
	require.NotNil(t, uyes)
	assert.Equal(t, "a", *uyes.Player)
	assert.True(t, *uyes.Active)
}

func TestUyesFalseDeclarationPenalized(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 9), pip(models.ColorBlue, 7), pip(models.ColorGreen, 3)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandleUyes("a")
	g.HandlePlayCard("a", pip(models.ColorRed, 9))

	assert.Len(t, g.HandOf("a"), 3, "two left after the play plus one penalty")
	uyes := mb.lastOfType(EventPlayerUyes)
	require.NotNil(t, uyes)
	assert.False(t, *uyes.Active)
}

func TestUyesMissedDeclarationPenalized(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 9), pip(models.ColorBlue, 7)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", pip(models.ColorRed, 9))

	assert.Len(t, g.HandOf("a"), 2, "one left after the play plus one penalty")
	uyes := mb.lastOfType(EventPlayerUyes)
	require.NotNil(t, uyes)
	assert.False(t, *uyes.Active)
}

func TestUyesNotInvolvedStaysSilent(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 9), pip(models.ColorBlue, 7), pip(models.ColorGreen, 3)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandlePlayCard("a", pip(models.ColorRed, 9))

	assert.Len(t, g.HandOf("a"), 2)
	assert.Nil(t, mb.lastOfType(EventPlayerUyes), "no declaration and no single card means no event")
}

func TestUyesOnlyOnOwnTurn(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 9), pip(models.ColorBlue, 7)},
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorRed, 5), 0)
	mb.clear()

	g.HandleUyes("b")
	assert.Nil(t, mb.lastOfType(EventPlayerUyes))
}

func TestHandLimitRejectsDraw(t *testing.T) {
	g, mb := newTestGame("a", "b")
	full := make([]models.Card, 0, HandLimit)
	for i := 0; i < HandLimit; i++ {
		full = append(full, pip(models.ColorRed, 1))
	}
	prime(g, map[string][]models.Card{
		"a": full,
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorBlue, 5), 0)
	mb.clear()

	g.HandleDrawCard("a")

	assert.Len(t, g.HandOf("a"), HandLimit, "draw past the limit is rejected")
	limitEvents := mb.playerEventsOfType("a", EventHandLimitReached)
	assert.Len(t, limitEvents, 1)
	assert.Equal(t, "b", g.CurrentPlayerID(), "the turn still passes on")
}

func TestHandLimitForfeitsDrawStack(t *testing.T) {
	g, mb := newTestGame("a", "b")
	nearFull := make([]models.Card, 0, HandLimit-1)
	for i := 0; i < HandLimit-1; i++ {
		nearFull = append(nearFull, pip(models.ColorRed, 1))
	}
	prime(g, map[string][]models.Card{
		"a": nearFull,
		"b": {pip(models.ColorYellow, 1), pip(models.ColorYellow, 2)},
	}, pip(models.ColorBlue, 5), 0)
	g.drawStack = 2
	mb.clear()

	g.HandleDrawCard("a")

	assert.Len(t, g.HandOf("a"), HandLimit-1)
	assert.Zero(t, g.DrawStack(), "the forfeited stack does not carry over")
	skipped := mb.lastOfType(EventPlayerSkipped)
	require.NotNil(t, skipped)
	assert.Equal(t, "a", *skipped.Player)
}

func TestDrawFromExhaustedPilesFailsClosed(t *testing.T) {
	g, mb := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 1)},
		"b": {pip(models.ColorYellow, 1)},
	}, pip(models.ColorBlue, 5), 0)
	g.deck = nil
	mb.clear()

	g.HandleDrawCard("a")

	assert.Len(t, g.HandOf("a"), 1, "nothing to draw from")
	drawn := mb.lastOfType(EventCardsDrawn)
	require.NotNil(t, drawn)
	assert.Zero(t, drawn.Count)
	assert.Equal(t, "b", g.CurrentPlayerID(), "the turn still advances")
}

func TestDrawReshufflesSpentDiscard(t *testing.T) {
	g, _ := newTestGame("a", "b")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 1)},
		"b": {pip(models.ColorYellow, 1)},
	}, pip(models.ColorBlue, 5), 0)
	g.deck = nil
	g.discard = []models.Card{pip(models.ColorGreen, 2), pip(models.ColorGreen, 3), pip(models.ColorBlue, 5)}

	g.HandleDrawCard("a")

	assert.Len(t, g.HandOf("a"), 2)
	require.Len(t, g.discard, 1)
	assert.Equal(t, pip(models.ColorBlue, 5), g.discard[0], "the active card survives the reshuffle")
}

func TestRemovePlayerRenormalizesTurn(t *testing.T) {
	g, _ := newTestGame("a", "b", "c")
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 1)},
		"b": {pip(models.ColorYellow, 1)},
		"c": {pip(models.ColorGreen, 1)},
	}, pip(models.ColorBlue, 5), 1)

	// Departure before the pointer shifts it back.
	require.True(t, g.RemovePlayer("a"))
	assert.Equal(t, "b", g.CurrentPlayerID())

	// Departure of the current player at the end of the order wraps to 0.
	g.current = 1
	require.True(t, g.RemovePlayer("c"))
	assert.Equal(t, "b", g.CurrentPlayerID())

	assert.False(t, g.RemovePlayer("a"), "already gone")

	require.True(t, g.RemovePlayer("b"))
	assert.True(t, g.Over(), "an empty round stops")
}

func TestTurnTimeoutForcesDraw(t *testing.T) {
	g, _ := newTestGame("a", "b")
	timedOut := make(chan int, 1)
	g.OnTurnTimeout = func(turnID int) { timedOut <- turnID }
	g.TurnDuration = 20 * time.Millisecond
	g.TimeoutGrace = 10 * time.Millisecond
	prime(g, map[string][]models.Card{
		"a": {pip(models.ColorRed, 1), pip(models.ColorRed, 2)},
		"b": {pip(models.ColorYellow, 1)},
	}, pip(models.ColorBlue, 5), 0)

	g.AnnounceTurn()

	var firedID int
	select {
	case firedID = <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("turn timer never fired")
	}
	require.Equal(t, g.TurnID(), firedID)

	g.ForceTimeoutDraw(firedID)
	assert.Len(t, g.HandOf("a"), 3, "the idle player is dealt a card")
	assert.Equal(t, "b", g.CurrentPlayerID())

	// A stale timer from the finished turn must not touch the new one.
	g.ForceTimeoutDraw(firedID)
	assert.Equal(t, "b", g.CurrentPlayerID())
	g.Stop()
}

func TestFourPlayerScriptedRound(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Cards = 7
	names := map[string]string{"a": "Ann", "b": "Ben", "c": "Cam", "d": "Dee"}
	g := New(settings, []string{"a", "b", "c", "d"}, names)
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	g.TurnDuration = 0

	require.NoError(t, g.Start())
	for _, id := range []string{"a", "b", "c", "d"} {
		assert.Len(t, g.HandOf(id), 7)
	}
	require.NotNil(t, g.TopCard())

	// Scripted midgame: a matches by color, b skips c, d has nothing and draws.
	g.hands["a"] = []models.Card{pip(models.ColorRed, 3), pip(models.ColorGreen, 8)}
	g.hands["b"] = []models.Card{special(models.ColorRed, models.KindSkip), pip(models.ColorYellow, 4)}
	g.hands["c"] = []models.Card{pip(models.ColorBlue, 6)}
	g.hands["d"] = []models.Card{pip(models.ColorGreen, 7), pip(models.ColorYellow, 1)}
	g.discard = []models.Card{pip(models.ColorRed, 5)}
	g.current = 0
	mb.clear()

	g.HandlePlayCard("a", pip(models.ColorRed, 3))
	assert.Equal(t, "b", g.CurrentPlayerID())

	g.HandlePlayCard("b", special(models.ColorRed, models.KindSkip))
	skipped := mb.lastOfType(EventPlayerSkipped)
	require.NotNil(t, skipped)
	assert.Equal(t, "c", *skipped.Player)
	assert.Equal(t, "d", g.CurrentPlayerID())

	g.HandleDrawCard("d")
	drawn := mb.lastOfType(EventCardsDrawn)
	require.NotNil(t, drawn)
	assert.Equal(t, "d", *drawn.Player)
	assert.Equal(t, 1, drawn.Count)
	assert.Equal(t, "a", g.CurrentPlayerID())
	g.Stop()
}

func TestCardConservation(t *testing.T) {
	g, _ := newTestGame("a", "b", "c")
	require.NoError(t, g.Start())
	total := totalCards(g)

	for i := 0; i < 30 && !g.Over(); i++ {
		g.HandleDrawCard(g.CurrentPlayerID())
		assert.Equal(t, total, totalCards(g), "cards may move, never appear or vanish")
	}
	g.Stop()
}
