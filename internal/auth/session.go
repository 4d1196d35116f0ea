// internal/auth/session.go
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SimonLuis1502/UYES-CardGame/internal/models"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "session"

// secret is the HMAC key used for signing session tokens.
var secret []byte

// TOKEN_EXPIRE_TIME_SEC indicates how many seconds until token expiration (0 => never).
var TOKEN_EXPIRE_TIME_SEC int

// Session identifies a player within a single lobby. Tokens are scoped to
// one game code; joining another lobby issues a fresh token.
type Session struct {
	PlayerID   string          `json:"playerId"`
	PlayerName string          `json:"playerName"`
	GameID     string          `json:"gameId"`
	Role       string          `json:"role"` // "host" or "guest"
	Settings   models.Settings `json:"settings"`
}

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var and sets TOKEN_EXPIRE_TIME_SEC accordingly.
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TOKEN_EXPIRE_TIME_SEC = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse token expire time: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init loads the signing key from JWT_SECRET, generating a random one for
// the process lifetime if unset, and sets the token expiration.
func Init() {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		secret = []byte(s)
	} else {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			fmt.Printf("failed to generate session secret: %v\n", err)
			os.Exit(1)
		}
		secret = []byte(hex.EncodeToString(buf))
	}
	parseTokenExpireTime()
}

// CreateToken signs a session as an HS256 JWT.
func CreateToken(s Session) (string, error) {
	claims := jwt.MapClaims{
		"playerId":   s.PlayerID,
		"playerName": s.PlayerName,
		"gameId":     s.GameID,
		"role":       s.Role,
		"settings":   s.Settings,
	}
	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken verifies a token string and returns the embedded session.
func ParseToken(tokenString string) (Session, error) {
	var s Session
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return s, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return s, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return s, fmt.Errorf("invalid jwt claims")
	}

	s.PlayerID, _ = claims["playerId"].(string)
	s.PlayerName, _ = claims["playerName"].(string)
	s.GameID, _ = claims["gameId"].(string)
	s.Role, _ = claims["role"].(string)
	if s.PlayerID == "" || s.GameID == "" {
		return s, fmt.Errorf("missing player identity in jwt")
	}
	if raw, ok := claims["settings"].(map[string]interface{}); ok {
		s.Settings = settingsFromClaims(raw)
	}
	return s, nil
}

func settingsFromClaims(raw map[string]interface{}) models.Settings {
	s := models.DefaultSettings()
	boolClaim := func(key string, dst *bool) {
		if v, ok := raw[key].(bool); ok {
			*dst = v
		}
	}
	boolClaim("draw2", &s.Draw2)
	boolClaim("reverse", &s.Reverse)
	boolClaim("skip", &s.Skip)
	boolClaim("wild", &s.Wild)
	boolClaim("wild4", &s.Wild4)
	if v, ok := raw["cards"].(float64); ok {
		s.Cards = int(v)
	}
	if v, ok := raw["players"].(float64); ok {
		s.Players = int(v)
	}
	return s
}

// SetCookie attaches a signed session cookie to the response.
func SetCookie(w http.ResponseWriter, s Session) error {
	token, err := CreateToken(s)
	if err != nil {
		return err
	}
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if TOKEN_EXPIRE_TIME_SEC > 0 {
		cookie.MaxAge = TOKEN_EXPIRE_TIME_SEC
	}
	http.SetCookie(w, cookie)
	return nil
}

// FromRequest extracts and verifies the session cookie on a request.
func FromRequest(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, fmt.Errorf("no session cookie: %w", err)
	}
	return ParseToken(cookie.Value)
}
