// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/SimonLuis1502/UYES-CardGame/internal/avatar"
	"github.com/SimonLuis1502/UYES-CardGame/internal/lobby"
)

// Server bundles the shared state the HTTP and websocket handlers need.
type Server struct {
	Lobbies *lobby.Store
	Avatars *avatar.Picker
	Logger  *logrus.Logger
}

// NewServer wires a handler server around a lobby registry and avatar pool.
func NewServer(lobbies *lobby.Store, avatars *avatar.Picker, logger *logrus.Logger) *Server {
	return &Server{
		Lobbies: lobbies,
		Avatars: avatars,
		Logger:  logger,
	}
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
