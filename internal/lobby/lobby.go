// internal/lobby/lobby.go
package lobby

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/SimonLuis1502/UYES-CardGame/internal/game"
	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// Connection is a single player's live presence in a lobby. Outgoing
// events are queued on OutChan and drained by the connection's write pump.
type Connection struct {
	PlayerID string
	Name     string
	Cancel   func()
	OutChan  chan interface{}

	logger *logrus.Logger
}

// NewConnection builds a connection with a buffered outgoing queue.
func NewConnection(playerID, name string, logger *logrus.Logger, cancel func()) *Connection {
	return &Connection{
		PlayerID: playerID,
		Name:     name,
		Cancel:   cancel,
		OutChan:  make(chan interface{}, 16),
		logger:   logger,
	}
}

// Write queues a message without blocking. A full or closed queue drops
// the message with a logged warning; the client resynchronizes on rejoin.
func (c *Connection) Write(msg interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		c.logger.Warnf("outgoing queue for player %s full or closed, dropping message", c.PlayerID)
	}
}

// Notify queues a bare {type} event, used for targeted rejections like
// lobby-full or game-in-progress.
func (c *Connection) Notify(eventType string) {
	c.Write(map[string]interface{}{"type": eventType})
}

// MemberInfo is the public (id, name) pair listed in membership snapshots.
type MemberInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lobby is a named group of players identified by a short numeric code.
// It owns membership independent of whether a round is running and bridges
// intents to the game engine. One mutex guards lobby and game state, so
// every intent runs to completion before the next is handled.
type Lobby struct {
	Code       string
	HostID     string
	Players    []string // join order, no duplicates
	Names      map[string]string
	Avatars    map[string]string
	MaxPlayers int
	Settings   models.Settings
	Game       *game.Game

	Connections map[string]*Connection
	Mu          sync.Mutex

	Logger *logrus.Logger

	// OnEmpty is called after the lobby dissolves so the registry can
	// drop the code. Assigned by the store at creation.
	OnEmpty func(code string)
}

// New builds an empty lobby. The creator becomes a member on their first
// join-lobby intent, not here.
func New(code, hostID string, capacity int, settings models.Settings, logger *logrus.Logger) *Lobby {
	if capacity <= 0 {
		capacity = 5
	}
	return &Lobby{
		Code:        code,
		HostID:      hostID,
		Names:       make(map[string]string),
		Avatars:     make(map[string]string),
		MaxPlayers:  capacity,
		Settings:    settings,
		Connections: make(map[string]*Connection),
		Logger:      logger,
	}
}

// Join registers or refreshes a member and attaches their connection.
// Non-members are rejected while a round is active or the lobby is full.
// The whole lobby receives the updated membership snapshot; a member
// joining into a running game additionally receives a resync snapshot.
func (l *Lobby) Join(conn *Connection, name string, pickAvatar func() string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()

	already := l.isMember(conn.PlayerID)
	if l.Game != nil && !already {
		conn.Notify("game-in-progress")
		return
	}
	if len(l.Players) >= l.MaxPlayers && !already {
		conn.Notify("lobby-full")
		return
	}

	if old, ok := l.Connections[conn.PlayerID]; ok && old != conn {
		// Stale connection from a previous session; stop its pump.
		if old.Cancel != nil {
			old.Cancel()
		}
	}
	l.Connections[conn.PlayerID] = conn
	if name != "" {
		l.Names[conn.PlayerID] = name
	} else if l.Names[conn.PlayerID] == "" {
		l.Names[conn.PlayerID] = conn.Name
	}

	if !already {
		l.Players = append(l.Players, conn.PlayerID)
		if l.Avatars[conn.PlayerID] == "" && pickAvatar != nil {
			l.Avatars[conn.PlayerID] = pickAvatar()
		}
		l.Logger.Infof("player %s joined lobby %s (%d/%d)", l.Names[conn.PlayerID], l.Code, len(l.Players), l.MaxPlayers)
	}

	l.broadcastLobbyUpdate()

	if l.Game != nil {
		l.sendGameSnapshot(conn)
	}
}

// sendGameSnapshot resyncs a reconnecting member with the running round:
// their private hand, the active card, the count summary and whose turn it
// is. Assumes the lock is held.
func (l *Lobby) sendGameSnapshot(conn *Connection) {
	g := l.Game
	conn.Write(game.Event{Type: game.EventGameStarted})
	conn.Write(game.Event{Type: game.EventDealCards, Hand: g.HandOf(conn.PlayerID)})
	if top := g.TopCard(); top != nil {
		conn.Write(game.Event{Type: game.EventCardPlayed, Card: top})
	}
	conn.Write(game.Event{Type: game.EventUpdateHandCounts, Counts: g.HandCounts()})
	current := g.CurrentPlayerID()
	drawStack := g.DrawStack()
	conn.Write(game.Event{
		Type:      game.EventPlayerTurn,
		Player:    &current,
		StartedAt: g.TurnStartedAt().UnixMilli(),
		DrawStack: &drawStack,
	})
}

// Leave removes a player on their own request.
func (l *Lobby) Leave(playerID string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.removePlayer(playerID, false)
}

// Kick removes a player at the host's request.
func (l *Lobby) Kick(requesterID, targetID string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.HostID != "" && requesterID != l.HostID {
		return
	}
	l.removePlayer(targetID, true)
}

// Close is the host-only teardown: every other member is evicted and the
// lobby dissolved.
func (l *Lobby) Close(requesterID string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.HostID != "" && requesterID != l.HostID {
		return
	}
	for id, conn := range l.Connections {
		if id == requesterID {
			continue
		}
		conn.Notify("kicked")
	}
	l.dissolve()
	l.Logger.Infof("lobby %s closed by host", l.Code)
}

// removePlayer is the unified departure path for leave, kick and mid-game
// ejection. It renormalizes the running game, transfers the host role and
// dissolves the lobby when membership drops below viability. Assumes the
// lock is held.
func (l *Lobby) removePlayer(playerID string, kicked bool) {
	if !l.isMember(playerID) {
		return
	}

	for i, id := range l.Players {
		if id == playerID {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			break
		}
	}
	name := l.Names[playerID]
	delete(l.Names, playerID)
	delete(l.Avatars, playerID)

	if l.HostID == playerID {
		l.HostID = ""
		if len(l.Players) > 0 {
			l.HostID = l.Players[0]
			if conn, ok := l.Connections[l.HostID]; ok {
				conn.Notify("host-assigned")
			}
		}
	}

	if l.Game != nil {
		// No open slot is shown mid-round.
		l.MaxPlayers = len(l.Players)
	}

	if conn, ok := l.Connections[playerID]; ok {
		if kicked {
			conn.Notify("kicked")
		}
		delete(l.Connections, playerID)
	}

	l.broadcastLobbyUpdate()

	if l.Game != nil && l.Game.RemovePlayer(playerID) {
		l.broadcast(map[string]interface{}{
			"type":    "player-left",
			"players": l.memberList(),
			"counts":  l.Game.HandCounts(),
			"player":  playerID,
		})
		l.Game.AnnounceTurn()
	}

	l.Logger.Infof("player %s left lobby %s", name, l.Code)

	if len(l.Players) == 0 {
		l.dissolve()
		l.Logger.Infof("lobby %s dissolved (no players)", l.Code)
		return
	}
	if len(l.Players) == 1 && l.Game != nil {
		// A round cannot continue head-to-empty; eject the last member.
		last := l.Players[0]
		if conn, ok := l.Connections[last]; ok {
			conn.Notify("kicked")
		}
		l.Players = nil
		l.dissolve()
		l.Logger.Infof("lobby %s dissolved (too few players)", l.Code)
	}
}

// dissolve tears the lobby down. Assumes the lock is held.
func (l *Lobby) dissolve() {
	if l.Game != nil {
		l.Game.Stop()
		l.Game = nil
	}
	l.Players = nil
	l.Connections = make(map[string]*Connection)
	if l.OnEmpty != nil {
		l.OnEmpty(l.Code)
	}
}

// DetachConnection drops a closed connection without touching membership;
// the player may reconnect and resync via join-lobby.
func (l *Lobby) DetachConnection(conn *Connection) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if cur, ok := l.Connections[conn.PlayerID]; ok && cur == conn {
		delete(l.Connections, conn.PlayerID)
	}
}

// StartGame builds and starts a round. Non-host requests and requests
// while a round is already running are silent no-ops.
func (l *Lobby) StartGame(requesterID string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.HostID != "" && requesterID != l.HostID {
		return
	}
	if l.Game != nil {
		return
	}

	g := game.New(l.Settings, l.Players, l.Names)
	g.Logger = l.Logger
	g.BroadcastFn = func(ev game.Event) { l.broadcast(ev) }
	g.BroadcastToPlayerFn = func(playerID string, ev game.Event) {
		if conn, ok := l.Connections[playerID]; ok {
			conn.Write(ev)
		}
	}
	g.OnGameEnd = func(winnerID string) {
		// Runs under the lobby lock, inside the play-card intent.
		l.Game = nil
	}
	g.OnTurnTimeout = func(turnID int) {
		l.Mu.Lock()
		defer l.Mu.Unlock()
		if l.Game == g {
			g.ForceTimeoutDraw(turnID)
		}
	}

	l.Game = g
	if err := g.Start(); err != nil {
		l.Game = nil
		if conn, ok := l.Connections[requesterID]; ok {
			conn.Write(game.Event{Type: game.EventStartGameError, Message: err.Error()})
		}
		return
	}
	l.Logger.Infof("game started in lobby %s with %d players", l.Code, g.PlayerCount())
}

// PlayCard forwards a play-card intent to the running round.
func (l *Lobby) PlayCard(playerID string, card models.Card) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.Game == nil {
		return
	}
	l.Game.HandlePlayCard(playerID, card)
}

// DrawCard forwards a draw-card intent to the running round.
func (l *Lobby) DrawCard(playerID string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.Game == nil {
		return
	}
	l.Game.HandleDrawCard(playerID)
}

// DeclareUyes forwards a one-card defense declaration to the round.
func (l *Lobby) DeclareUyes(playerID string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if l.Game == nil {
		return
	}
	l.Game.HandleUyes(playerID)
}

// ChangeAvatar re-rolls a member's avatar and announces the new file.
func (l *Lobby) ChangeAvatar(playerID string, pickAvatar func() string) {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if !l.isMember(playerID) || pickAvatar == nil {
		return
	}
	file := pickAvatar()
	l.Avatars[playerID] = file
	l.broadcast(map[string]interface{}{
		"type":   "avatar-changed",
		"player": playerID,
		"file":   file,
	})
}

// UpdateSettings merges a partial settings patch; capacity is untouched.
func (l *Lobby) UpdateSettings(patch models.SettingsPatch) models.Settings {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	if patch.Apply(&l.Settings) {
		l.Logger.Debugf("lobby %s settings updated", l.Code)
	}
	return l.Settings
}

// AnnounceCode broadcasts the lobby's (new) code to all members. The
// registry performs the actual rename.
func (l *Lobby) AnnounceCode() {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	l.broadcast(map[string]interface{}{
		"type":    "update-code",
		"newCode": l.Code,
	})
}

// Snapshot is the membership view returned by the HTTP lobby-state query.
type Snapshot struct {
	Code       string            `json:"code"`
	Players    []MemberInfo      `json:"playerList"`
	Capacity   int               `json:"players"`
	Avatars    map[string]string `json:"avatars"`
	Host       string            `json:"host"`
	HostID     string            `json:"hostId"`
	NameMap    map[string]string `json:"nameMap"`
	Settings   models.Settings   `json:"settings"`
	InGame     bool              `json:"inGame"`
}

// GetSnapshot returns a consistent copy of the lobby's public state.
func (l *Lobby) GetSnapshot() Snapshot {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	names := make(map[string]string, len(l.Names))
	for id, n := range l.Names {
		names[id] = n
	}
	avatars := make(map[string]string, len(l.Avatars))
	for id, f := range l.Avatars {
		avatars[id] = f
	}
	return Snapshot{
		Code:     l.Code,
		Players:  l.memberList(),
		Capacity: l.MaxPlayers,
		Avatars:  avatars,
		Host:     l.Names[l.HostID],
		HostID:   l.HostID,
		NameMap:  names,
		Settings: l.Settings,
		InGame:   l.Game != nil,
	}
}

// IsHost reports whether the given player currently holds the host role.
func (l *Lobby) IsHost(playerID string) bool {
	l.Mu.Lock()
	defer l.Mu.Unlock()
	return l.HostID == playerID
}

func (l *Lobby) isMember(playerID string) bool {
	for _, id := range l.Players {
		if id == playerID {
			return true
		}
	}
	return false
}

func (l *Lobby) memberList() []MemberInfo {
	members := make([]MemberInfo, 0, len(l.Players))
	for _, id := range l.Players {
		members = append(members, MemberInfo{ID: id, Name: l.Names[id]})
	}
	return members
}

// broadcastLobbyUpdate pushes the membership snapshot to every member.
// Assumes the lock is held.
func (l *Lobby) broadcastLobbyUpdate() {
	l.broadcast(map[string]interface{}{
		"type":     "update-lobby",
		"players":  l.memberList(),
		"capacity": l.MaxPlayers,
		"avatars":  l.Avatars,
		"hostName": l.Names[l.HostID],
		"hostId":   l.HostID,
	})
}

// broadcast queues msg on every member connection. Writes never block, so
// holding the lock here is safe.
func (l *Lobby) broadcast(msg interface{}) {
	for _, conn := range l.Connections {
		conn.Write(msg)
	}
}
