// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/SimonLuis1502/UYES-CardGame/internal/auth"
	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// gameCodeRe matches valid lobby codes: exactly nine digits.
var gameCodeRe = regexp.MustCompile(`^[0-9]{9}$`)

// funnyNames covers players who join without picking a name.
var funnyNames = []string{
	"Card Shark",
	"Draw Four Dealer",
	"Wildcard Wendy",
	"Skipper",
	"Captain Reverse",
	"Stack Attack",
	"Lucky Lasse",
	"Bluff Master",
	"Last Card Larry",
	"Pile Driver",
	"Color Changer",
	"Sir Draws-a-Lot",
}

func pickName(name string) string {
	if name != "" {
		return name
	}
	return funnyNames[rand.Intn(len(funnyNames))]
}

// generateGameCode returns a random nine digit code not currently in use.
func (s *Server) generateGameCode() string {
	for {
		code := fmt.Sprintf("%09d", rand.Intn(1_000_000_000))
		if !s.Lobbies.Exists(code) {
			return code
		}
	}
}

type createGameRequest struct {
	Name     string                `json:"name"`
	Settings *models.SettingsPatch `json:"settings"`
}

type joinGameRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CreateGameHandler allocates a fresh lobby with the caller as host and
// issues a session cookie scoped to it.
func (s *Server) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}

	settings := models.DefaultSettings()
	if req.Settings != nil {
		req.Settings.Apply(&settings)
	}

	code := s.generateGameCode()
	playerID := uuid.NewString()
	playerName := pickName(req.Name)

	if _, err := s.Lobbies.Create(code, playerID, settings.Players, settings); err != nil {
		http.Error(w, "could not create lobby", http.StatusInternalServerError)
		return
	}

	sess := auth.Session{
		PlayerID:   playerID,
		PlayerName: playerName,
		GameID:     code,
		Role:       "host",
		Settings:   settings,
	}
	if err := auth.SetCookie(w, sess); err != nil {
		s.Logger.Errorf("failed to issue session for lobby %s: %v", code, err)
		s.Lobbies.Delete(code)
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":       code,
		"playerId":   playerID,
		"playerName": playerName,
		"settings":   settings,
	})
}

// JoinGameHandler validates a code against the registry and issues a
// guest session for it. Actual membership happens on the join-lobby
// intent over the websocket.
func (s *Server) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	if !gameCodeRe.MatchString(req.Code) {
		http.Error(w, "invalid game code", http.StatusBadRequest)
		return
	}
	l := s.Lobbies.Get(req.Code)
	if l == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}

	playerID := uuid.NewString()
	playerName := pickName(req.Name)

	sess := auth.Session{
		PlayerID:   playerID,
		PlayerName: playerName,
		GameID:     req.Code,
		Role:       "guest",
		Settings:   l.GetSnapshot().Settings,
	}
	if err := auth.SetCookie(w, sess); err != nil {
		s.Logger.Errorf("failed to issue session for lobby %s: %v", req.Code, err)
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":       req.Code,
		"playerId":   playerID,
		"playerName": playerName,
	})
}

// LobbyDataHandler returns the public state of the caller's lobby.
func (s *Server) LobbyDataHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.FromRequest(r)
	if err != nil {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		code = sess.GameID
	}
	l := s.Lobbies.Get(code)
	if l == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, l.GetSnapshot())
}

// UpdateSettingsHandler merges a partial rules patch into the lobby
// settings. Host only; lobby capacity is managed separately and a
// "players" field in the patch is ignored here.
func (s *Server) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := auth.FromRequest(r)
	if err != nil {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	l := s.Lobbies.Get(sess.GameID)
	if l == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	if !l.IsHost(sess.PlayerID) {
		http.Error(w, "only the host can change settings", http.StatusForbidden)
		return
	}

	var patch models.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "bad settings payload", http.StatusBadRequest)
		return
	}

	updated := l.UpdateSettings(patch)

	// Keep the session's settings claim in step with the lobby.
	sess.Settings = updated
	if err := auth.SetCookie(w, sess); err != nil {
		s.Logger.Errorf("failed to refresh session for lobby %s: %v", sess.GameID, err)
	}

	writeJSON(w, http.StatusOK, updated)
}

type gameCodeRequest struct {
	NewCode string `json:"newCode"`
}

// GameCodeHandler renames the caller's lobby to a chosen code. Host only.
// The rename is atomic in the registry and members learn the new code via
// an update-code event.
func (s *Server) GameCodeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := auth.FromRequest(r)
	if err != nil {
		http.Error(w, "missing session", http.StatusUnauthorized)
		return
	}
	var req gameCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}
	if !gameCodeRe.MatchString(req.NewCode) {
		http.Error(w, "invalid game code", http.StatusBadRequest)
		return
	}

	l := s.Lobbies.Get(sess.GameID)
	if l == nil {
		http.Error(w, "lobby not found", http.StatusNotFound)
		return
	}
	if !l.IsHost(sess.PlayerID) {
		http.Error(w, "only the host can change the game code", http.StatusForbidden)
		return
	}

	if _, err := s.Lobbies.Rename(sess.GameID, req.NewCode); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	// Re-issue the session scoped to the new code.
	sess.GameID = req.NewCode
	if err := auth.SetCookie(w, sess); err != nil {
		s.Logger.Errorf("failed to refresh session for lobby %s: %v", req.NewCode, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"code": req.NewCode})
}
