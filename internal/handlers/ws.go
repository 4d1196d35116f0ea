// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/SimonLuis1502/UYES-CardGame/internal/auth"
	"github.com/SimonLuis1502/UYES-CardGame/internal/lobby"
	"github.com/SimonLuis1502/UYES-CardGame/internal/middleware"
	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// intentMessage is the envelope every client intent arrives in. Fields
// beyond Type and Code are set per intent.
type intentMessage struct {
	Type     string       `json:"type"`
	Code     string       `json:"code"`
	NewCode  string       `json:"newCode"`
	Name     string       `json:"name"`
	Capacity int          `json:"capacity"`
	PlayerID string       `json:"playerId"`
	Card     *models.Card `json:"card"`
}

// WSHandler upgrades the connection and runs the intent loop. The caller
// must present a valid session cookie; the session provides the player's
// identity, the intent payload names the lobby.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := auth.FromRequest(r)
		if err != nil {
			http.Error(w, "missing session", http.StatusUnauthorized)
			return
		}
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := lobby.NewConnection(sess.PlayerID, sess.PlayerName, s.Logger, cancel)
		middleware.LogWebSocketConnect(s.Logger, remoteAddr, sess.PlayerID)

		go s.writePump(ctx, c, conn)

		readErr := s.readPump(ctx, c, conn, sess)

		// Drop the live connection; membership survives so the player can
		// rejoin and resync.
		if joined := s.Lobbies.Get(sess.GameID); joined != nil {
			joined.DetachConnection(conn)
		}
		middleware.LogWebSocketDisconnect(s.Logger, remoteAddr, sess.PlayerID, readErr)
	}
}

// readPump reads intents until the connection closes and dispatches each
// one against the named lobby.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection, sess auth.Session) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			s.Logger.Warnf("ignoring non-text message from player %s", conn.PlayerID)
			continue
		}

		var msg intentMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Logger.Warnf("invalid intent json from player %s: %v", conn.PlayerID, err)
			continue
		}
		s.dispatch(conn, sess, msg)
	}
}

// dispatch routes one intent. Unknown codes are answered with a targeted
// lobby-not-found only on join, otherwise silently dropped; a client that
// is out of date learns the state when it rejoins.
func (s *Server) dispatch(conn *lobby.Connection, sess auth.Session, msg intentMessage) {
	l := s.Lobbies.Get(msg.Code)
	if l == nil {
		// A first joiner supplying a capacity founds the lobby and
		// becomes its host.
		if msg.Type == "join-lobby" && msg.Capacity > 0 && gameCodeRe.MatchString(msg.Code) {
			created, err := s.Lobbies.Create(msg.Code, sess.PlayerID, msg.Capacity, sess.Settings)
			if err != nil {
				conn.Notify("lobby-not-found")
				return
			}
			l = created
		} else if msg.Type == "join-lobby" {
			conn.Notify("lobby-not-found")
			return
		} else {
			s.Logger.Debugf("intent %s for unknown lobby %s from player %s", msg.Type, msg.Code, conn.PlayerID)
			return
		}
	}

	switch msg.Type {
	case "join-lobby":
		name := msg.Name
		if name == "" {
			name = sess.PlayerName
		}
		l.Join(conn, name, s.Avatars.Random)
	case "leave-lobby", "leave-game":
		if msg.PlayerID != "" && msg.PlayerID != sess.PlayerID {
			l.Kick(sess.PlayerID, msg.PlayerID)
		} else {
			l.Leave(sess.PlayerID)
		}
	case "kick-player":
		l.Kick(sess.PlayerID, msg.PlayerID)
	case "close-lobby":
		l.Close(sess.PlayerID)
	case "change-avatar":
		l.ChangeAvatar(sess.PlayerID, s.Avatars.Random)
	case "change-code":
		if !l.IsHost(sess.PlayerID) || !gameCodeRe.MatchString(msg.NewCode) {
			return
		}
		if _, err := s.Lobbies.Rename(msg.Code, msg.NewCode); err != nil {
			s.Logger.Warnf("rename of lobby %s to %s failed: %v", msg.Code, msg.NewCode, err)
		}
	case "start-game":
		l.StartGame(sess.PlayerID)
	case "play-card":
		if msg.Card == nil {
			s.Logger.Warnf("play-card without card from player %s", conn.PlayerID)
			return
		}
		l.PlayCard(sess.PlayerID, *msg.Card)
	case "draw-card":
		l.DrawCard(sess.PlayerID)
	case "uyes":
		l.DeclareUyes(sess.PlayerID)
	default:
		s.Logger.Warnf("unknown intent %q from player %s", msg.Type, conn.PlayerID)
	}
}

// writePump drains the connection's outgoing queue onto the socket and
// keeps the link alive with periodic pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, conn *lobby.Connection) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.Logger.Warnf("failed to marshal outgoing msg for player %s: %v", conn.PlayerID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.Logger.Warnf("failed to write to websocket for player %s: %v", conn.PlayerID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.Logger.Warnf("ping to player %s failed, assuming disconnect: %v", conn.PlayerID, err)
				return
			}
		}
	}
}
