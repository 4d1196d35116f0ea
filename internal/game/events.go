// internal/game/events.go
package game

import "github.com/SimonLuis1502/UYES-CardGame/internal/models"

// EventType names a state-delta event pushed to clients.
type EventType string

const (
	EventGameStarted      EventType = "game-started"
	EventDealCards        EventType = "deal-cards" // private: a player's full hand
	EventCardPlayed       EventType = "card-played"
	EventPlayerTurn       EventType = "player-turn"
	EventCardsDrawn       EventType = "cards-drawn"
	EventUpdateHandCounts EventType = "update-hand-counts"
	EventPlayerUyes       EventType = "player-uyes"
	EventOrderReversed    EventType = "order-reversed"
	EventPlayerSkipped    EventType = "player-skipped"
	EventGameEnd          EventType = "game-end"
	EventHandLimitReached EventType = "hand-limit-reached" // private
	EventStartGameError   EventType = "start-game-error"   // private
)

// HandCount is one entry of the public hand-count summary.
type HandCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Event is the broadcast envelope. Fields are populated per event type and
// omitted otherwise; Player is a pointer so the opening discard flip can
// omit the player entirely.
type Event struct {
	Type      EventType     `json:"type"`
	Player    *string       `json:"player,omitempty"`
	Card      *models.Card  `json:"card,omitempty"`
	Hand      []models.Card `json:"hand,omitempty"`
	Count     int           `json:"count,omitempty"`
	Counts    []HandCount   `json:"counts,omitempty"`
	Order     []string      `json:"order,omitempty"`
	Active    *bool         `json:"active,omitempty"`
	StartedAt int64         `json:"startedAt,omitempty"`
	DrawStack *int          `json:"drawStack,omitempty"`
	Message   string        `json:"message,omitempty"`
}

func playerRef(id string) *string { return &id }

func boolRef(b bool) *bool { return &b }

func intRef(n int) *int { return &n }
