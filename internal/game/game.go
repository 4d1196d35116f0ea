// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// Turn deadline defaults. The deadline broadcast to clients is soft; the
// server arms a confirming timer at deadline+grace that forces the draw if
// the idle client never requested it.
const (
	DefaultTurnDuration = 30 * time.Second
	DefaultTimeoutGrace = 5 * time.Second
)

// Game is the authoritative state for one round. It carries no lock of its
// own: every method must be called under the owning lobby's mutex, which
// gives each intent run-to-completion semantics. Broadcast callbacks must
// therefore never block.
type Game struct {
	settings models.Settings

	deck    []models.Card // draw end = last element
	discard []models.Card // last element = active card
	hands   map[string][]models.Card

	turnOrder []string
	current   int
	drawStack int

	uyesPressed map[string]bool
	names       map[string]string

	turnID        int
	turnStartedAt time.Time
	turnTimer     *time.Timer
	over          bool

	// TurnDuration is the soft per-turn deadline announced to clients;
	// TimeoutGrace is the extra slack before the server forces the draw.
	TurnDuration time.Duration
	TimeoutGrace time.Duration

	Logger *logrus.Logger

	// BroadcastFn sends an event to every member of the lobby.
	BroadcastFn func(ev Event)
	// BroadcastToPlayerFn sends an event to a single player.
	BroadcastToPlayerFn func(playerID string, ev Event)
	// OnGameEnd is invoked once when a player wins.
	OnGameEnd func(winnerID string)
	// OnTurnTimeout is invoked on a timer goroutine, without the lobby
	// lock, when a turn deadline elapses unanswered. The callback must
	// re-acquire the lobby lock and call ForceTimeoutDraw.
	OnTurnTimeout func(turnID int)
}

// New builds an idle game for the given members. Turn order is the
// membership order at start; names are captured for hand-count summaries.
func New(settings models.Settings, order []string, names map[string]string) *Game {
	g := &Game{
		settings:     settings,
		hands:        make(map[string][]models.Card),
		turnOrder:    append([]string(nil), order...),
		uyesPressed:  make(map[string]bool),
		names:        make(map[string]string, len(names)),
		TurnDuration: DefaultTurnDuration,
		TimeoutGrace: DefaultTimeoutGrace,
		Logger:       logrus.StandardLogger(),
	}
	for _, id := range g.turnOrder {
		g.names[id] = names[id]
	}
	return g
}

// Start builds and tops up the deck, deals every player their starting
// hand, flips the opening discard and announces the first (random) turn.
func (g *Game) Start() error {
	if len(g.turnOrder) == 0 {
		return fmt.Errorf("cannot start a game with no players")
	}

	g.deck = newShuffledDeck(g.settings)

	// Every hand could grow to the limit, plus one opening discard, so
	// dealing and later play can never starve the draw stack.
	minDeck := HandLimit*len(g.turnOrder) + 1
	for len(g.deck) < minDeck {
		g.deck = append(g.deck, newShuffledDeck(g.settings)...)
	}

	g.broadcast(Event{Type: EventGameStarted})

	count := g.settings.StartingCards()
	for _, id := range g.turnOrder {
		hand := make([]models.Card, 0, count)
		for i := 0; i < count; i++ {
			hand = append(hand, g.popDeck())
		}
		g.hands[id] = hand
	}
	g.discard = append(g.discard, g.popDeck())
	g.current = rand.Intn(len(g.turnOrder))

	top := g.discard[len(g.discard)-1]
	g.broadcast(Event{Type: EventCardPlayed, Card: &top})
	for _, id := range g.turnOrder {
		g.notify(id, Event{Type: EventDealCards, Hand: g.hands[id]})
	}
	g.broadcastHandCounts()
	g.announceTurn()
	return nil
}

// Over reports whether the round has finished.
func (g *Game) Over() bool { return g.over }

// CurrentPlayerID is the player whose turn it is, or empty once the order
// is exhausted.
func (g *Game) CurrentPlayerID() string {
	if len(g.turnOrder) == 0 {
		return ""
	}
	return g.turnOrder[g.current]
}

// TurnID increments each turn; stale turn timers compare against it.
func (g *Game) TurnID() int { return g.turnID }

// TurnStartedAt is when the current turn began.
func (g *Game) TurnStartedAt() time.Time { return g.turnStartedAt }

// DrawStack is the pending forced-draw count from stacked draw2 plays.
func (g *Game) DrawStack() int { return g.drawStack }

// HandOf returns a player's hand. Callers must not mutate it.
func (g *Game) HandOf(playerID string) []models.Card { return g.hands[playerID] }

// TopCard is the active discard card, nil before the opening flip.
func (g *Game) TopCard() *models.Card {
	if len(g.discard) == 0 {
		return nil
	}
	top := g.discard[len(g.discard)-1]
	return &top
}

// PlayerCount is the number of players still in the round.
func (g *Game) PlayerCount() int { return len(g.turnOrder) }

// HandCounts summarizes hand sizes in turn order for public broadcast.
func (g *Game) HandCounts() []HandCount {
	counts := make([]HandCount, 0, len(g.turnOrder))
	for _, id := range g.turnOrder {
		counts = append(counts, HandCount{ID: id, Name: g.names[id], Count: len(g.hands[id])})
	}
	return counts
}

// Stop cancels the pending turn timer and marks the round finished.
func (g *Game) Stop() {
	g.over = true
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
}

// HandlePlayCard validates and applies a play-card intent. Illegal plays
// (not the player's turn, card not in hand, color/value mismatch, pending
// draw stack) leave all state unchanged.
func (g *Game) HandlePlayCard(playerID string, played models.Card) {
	if g.over || g.CurrentPlayerID() != playerID {
		return
	}
	hand := g.hands[playerID]
	idx := -1
	for i, c := range hand {
		if c.Matches(played) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	if !g.isLegal(hand[idx], played.ChosenColor) {
		return
	}

	card := hand[idx]
	g.hands[playerID] = append(hand[:idx], hand[idx+1:]...)
	if card.IsWild() {
		card.ChosenColor = played.ChosenColor
	}
	g.discard = append(g.discard, card)

	g.notify(playerID, Event{Type: EventDealCards, Hand: g.hands[playerID]})
	g.broadcast(Event{Type: EventCardPlayed, Player: playerRef(playerID), Card: &card})
	g.broadcastHandCounts()

	g.resolveEffects(playerID, card)

	if len(g.hands[playerID]) == 0 {
		g.endGame(playerID)
		return
	}

	g.resolveUyes(playerID)
	g.announceTurn()
}

// resolveEffects applies the played card's special effect and advances the
// turn pointer accordingly.
func (g *Game) resolveEffects(playerID string, card models.Card) {
	if card.Value.Kind == models.KindReverse {
		for i, j := 0, len(g.turnOrder)-1; i < j; i, j = i+1, j-1 {
			g.turnOrder[i], g.turnOrder[j] = g.turnOrder[j], g.turnOrder[i]
		}
		for i, id := range g.turnOrder {
			if id == playerID {
				g.current = i
				break
			}
		}
		g.broadcast(Event{Type: EventOrderReversed, Order: append([]string(nil), g.turnOrder...)})
		if len(g.turnOrder) == 2 {
			// Head to head a reverse acts as a skip: the turn stays put.
			skipped := g.turnOrder[(g.current+1)%len(g.turnOrder)]
			g.broadcast(Event{Type: EventPlayerSkipped, Player: playerRef(skipped)})
			return
		}
		g.advance()
		return
	}

	g.advance()

	switch card.Value.Kind {
	case models.KindSkip:
		skipped := g.CurrentPlayerID()
		g.advance()
		g.broadcast(Event{Type: EventPlayerSkipped, Player: playerRef(skipped)})
	case models.KindDraw2:
		// The penalty is deferred to whoever cannot counter-stack.
		g.drawStack += 2
	case models.KindWild4:
		affected := g.CurrentPlayerID()
		drawn := g.forceDraw(affected, 4)
		g.notify(affected, Event{Type: EventDealCards, Hand: g.hands[affected]})
		g.broadcast(Event{Type: EventCardsDrawn, Player: playerRef(affected), Count: drawn})
		g.broadcastHandCounts()
		g.broadcast(Event{Type: EventPlayerSkipped, Player: playerRef(affected)})
		g.advance()
	}
}

// isLegal checks play legality against the active card and draw stack.
func (g *Game) isLegal(card models.Card, chosenColor string) bool {
	if g.drawStack > 0 && card.Value.Kind != models.KindDraw2 {
		return false
	}
	if card.IsWild() {
		return models.ValidChosenColor(chosenColor)
	}
	top := g.discard[len(g.discard)-1]
	if top.IsWild() {
		return card.Color == top.EffectiveColor()
	}
	return card.Color == top.Color || card.Value == top.Value
}

// HandleDrawCard validates and applies a draw-card intent, resolving any
// pending draw stack. A draw that would push the hand past the limit is
// rejected, forfeits the stack and skips the player.
func (g *Game) HandleDrawCard(playerID string) {
	if g.over || g.CurrentPlayerID() != playerID {
		return
	}

	count := 1
	if g.drawStack > 0 {
		count = g.drawStack
	}

	if len(g.hands[playerID])+count > HandLimit {
		g.notify(playerID, Event{Type: EventHandLimitReached})
		if g.drawStack > 0 {
			g.broadcast(Event{Type: EventPlayerSkipped, Player: playerRef(playerID)})
			g.drawStack = 0
		}
		g.advance()
		g.resolveUyes(playerID)
		g.announceTurn()
		return
	}

	drawn := g.drawCards(playerID, count)
	g.notify(playerID, Event{Type: EventDealCards, Hand: g.hands[playerID]})
	g.broadcast(Event{Type: EventCardsDrawn, Player: playerRef(playerID), Count: drawn})
	if g.drawStack > 0 {
		g.broadcast(Event{Type: EventPlayerSkipped, Player: playerRef(playerID)})
		g.drawStack = 0
	}
	g.broadcastHandCounts()

	g.advance()
	g.resolveUyes(playerID)
	g.announceTurn()
}

// HandleUyes records a one-card bluff defense declared during the player's
// own turn. The declaration is checked once, when the turn ends.
func (g *Game) HandleUyes(playerID string) {
	if g.over || g.CurrentPlayerID() != playerID {
		return
	}
	g.uyesPressed[playerID] = true
	g.broadcast(Event{Type: EventPlayerUyes, Player: playerRef(playerID), Active: boolRef(true)})
}

// resolveUyes runs the one-card defense check at turn end: a truthful
// declaration stands, a false or missing one costs a penalty card. The
// declaration flag is always cleared.
func (g *Game) resolveUyes(playerID string) {
	pressed := g.uyesPressed[playerID]
	delete(g.uyesPressed, playerID)

	hasOne := len(g.hands[playerID]) == 1
	if pressed && hasOne {
		g.broadcast(Event{Type: EventPlayerUyes, Player: playerRef(playerID), Active: boolRef(true)})
		return
	}
	if !pressed && !hasOne {
		return
	}

	g.broadcast(Event{Type: EventPlayerUyes, Player: playerRef(playerID), Active: boolRef(false)})
	drawn := g.forceDraw(playerID, 1)
	g.notify(playerID, Event{Type: EventDealCards, Hand: g.hands[playerID]})
	g.broadcast(Event{Type: EventCardsDrawn, Player: playerRef(playerID), Count: drawn})
	g.broadcastHandCounts()
}

// RemovePlayer drops a departing player from the round: their hand leaves
// play and the turn pointer is renormalized. Reports whether the player
// was part of the round. The caller re-announces the turn.
func (g *Game) RemovePlayer(playerID string) bool {
	idx := -1
	for i, id := range g.turnOrder {
		if id == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	g.turnOrder = append(g.turnOrder[:idx], g.turnOrder[idx+1:]...)
	delete(g.hands, playerID)
	delete(g.uyesPressed, playerID)
	delete(g.names, playerID)

	if idx < g.current {
		g.current--
	} else if idx == g.current && g.current >= len(g.turnOrder) {
		g.current = 0
	}
	if len(g.turnOrder) == 0 {
		g.Stop()
	}
	return true
}

// AnnounceTurn rebroadcasts the current turn, restarting its deadline.
// Used after a mid-game departure so clients resynchronize.
func (g *Game) AnnounceTurn() { g.announceTurn() }

// ForceTimeoutDraw performs the idle-turn auto draw if the given turn is
// still the current one. Called from the lobby's timeout callback.
func (g *Game) ForceTimeoutDraw(turnID int) {
	if g.over || turnID != g.turnID {
		return
	}
	player := g.CurrentPlayerID()
	if player == "" {
		return
	}
	g.Logger.Warnf("turn deadline elapsed for %s, forcing draw", g.names[player])
	g.HandleDrawCard(player)
}

// advance moves the turn pointer one step.
func (g *Game) advance() {
	if len(g.turnOrder) == 0 {
		return
	}
	g.current = (g.current + 1) % len(g.turnOrder)
}

// announceTurn starts the turn clock and broadcasts whose turn it is.
func (g *Game) announceTurn() {
	if g.over || len(g.turnOrder) == 0 {
		return
	}
	g.turnID++
	g.turnStartedAt = time.Now()
	g.scheduleTurnTimer()
	g.broadcast(Event{
		Type:      EventPlayerTurn,
		Player:    playerRef(g.CurrentPlayerID()),
		StartedAt: g.turnStartedAt.UnixMilli(),
		DrawStack: intRef(g.drawStack),
	})
}

// scheduleTurnTimer arms the server-side confirming timer for the current
// turn. The captured turnID lets a late-firing timer detect it is stale.
func (g *Game) scheduleTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if g.OnTurnTimeout == nil || g.TurnDuration <= 0 {
		return
	}
	id := g.turnID
	timeout := g.OnTurnTimeout
	g.turnTimer = time.AfterFunc(g.TurnDuration+g.TimeoutGrace, func() {
		timeout(id)
	})
}

// endGame tears the round down after a win.
func (g *Game) endGame(winnerID string) {
	g.broadcast(Event{Type: EventGameEnd, Player: playerRef(winnerID)})
	g.Logger.Infof("game finished: %s won", g.names[winnerID])
	g.Stop()
	if g.OnGameEnd != nil {
		g.OnGameEnd(winnerID)
	}
}

// popDeck removes and returns the top card of the draw stack. The caller
// must have ensured the deck is non-empty.
func (g *Game) popDeck() models.Card {
	card := g.deck[len(g.deck)-1]
	g.deck = g.deck[:len(g.deck)-1]
	return card
}

// drawCards moves up to count cards from the deck into the player's hand,
// reshuffling the discard (minus its active card) whenever the deck runs
// out. If both piles are exhausted the draw fails closed: the shortfall is
// logged and the number of cards actually drawn is returned.
func (g *Game) drawCards(playerID string, count int) int {
	drawn := 0
	for i := 0; i < count; i++ {
		if len(g.deck) == 0 {
			g.deck, g.discard = reshuffleFromDiscard(g.discard)
			if len(g.deck) == 0 {
				g.Logger.Warnf("deck and discard exhausted: %s drew %d of %d", g.names[playerID], drawn, count)
				break
			}
		}
		g.hands[playerID] = append(g.hands[playerID], g.popDeck())
		drawn++
	}
	return drawn
}

// forceDraw is drawCards capped so a forced draw (wild4, bluff penalty,
// timeout) never pushes a hand past the limit.
func (g *Game) forceDraw(playerID string, count int) int {
	if room := HandLimit - len(g.hands[playerID]); count > room {
		count = room
	}
	if count <= 0 {
		return 0
	}
	return g.drawCards(playerID, count)
}

func (g *Game) broadcastHandCounts() {
	g.broadcast(Event{Type: EventUpdateHandCounts, Counts: g.HandCounts()})
}

func (g *Game) broadcast(ev Event) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

func (g *Game) notify(playerID string, ev Event) {
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}
