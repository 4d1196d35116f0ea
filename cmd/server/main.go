// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/SimonLuis1502/UYES-CardGame/internal/auth"
	"github.com/SimonLuis1502/UYES-CardGame/internal/avatar"
	"github.com/SimonLuis1502/UYES-CardGame/internal/handlers"
	"github.com/SimonLuis1502/UYES-CardGame/internal/lobby"
	"github.com/SimonLuis1502/UYES-CardGame/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	avatarDir := os.Getenv("AVATAR_DIR")
	if avatarDir == "" {
		avatarDir = "public/images/avatars"
	}
	avatars := avatar.Load(avatarDir, logger)

	lobbies := lobby.NewStore(logger)
	srv := handlers.NewServer(lobbies, avatars, logger)

	mux := http.NewServeMux()

	// lobby lifecycle endpoints
	mux.Handle("/api/createGame", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.CreateGameHandler)))
	mux.Handle("/api/joinGame", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.JoinGameHandler)))
	mux.Handle("/api/lobbyData", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.LobbyDataHandler)))
	mux.Handle("/api/updateSettings", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.UpdateSettingsHandler)))
	mux.Handle("/api/gameCode", middleware.LogMiddleware(logger)(http.HandlerFunc(srv.GameCodeHandler)))

	// game websocket
	mux.Handle("/ws", srv.WSHandler())

	// static client
	publicDir := os.Getenv("PUBLIC_DIR")
	if publicDir == "" {
		publicDir = "public"
	}
	mux.Handle("/", http.FileServer(http.Dir(publicDir)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
