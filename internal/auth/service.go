package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crispchris33/security-advisor-chatbot/internal/config"
	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
	"github.com/crispchris33/security-advisor-chatbot/internal/session"
	"github.com/crispchris33/security-advisor-chatbot/internal/signal"
	"github.com/crispchris33/security-advisor-chatbot/internal/store"
)

type Service struct {
	gw        store.Gateway
	refresh   *signal.Broadcaster
	providers map[string]*Provider
	jwtSecret []byte
	adminHash string
}

func NewService(gw store.Gateway, refresh *signal.Broadcaster, cfg config.Config) *Service {
	providers := map[string]*Provider{}
	if cfg.Google.ClientID != "" {
		providers[constants.ProviderGoogle] = NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.BaseURL)
	}
	if cfg.GitHub.ClientID != "" {
		providers[constants.ProviderGitHub] = NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.BaseURL)
	}

	return &Service{
		gw:        gw,
		refresh:   refresh,
		providers: providers,
		jwtSecret: []byte(cfg.JWTSecret),
		adminHash: cfg.AdminPasswordHash,
	}
}

func (s *Service) Provider(name string) (*Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// GenerateSessionJWT signs the cookie token carrying the identity.
// The approval status is deliberately not a claim: it is re-resolved
// live on every page load and pushed over the event stream, so a
// stale token can never grant access an admin has revoked.
func (s *Service) GenerateSessionJWT(ident session.Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": ident.Email,
		"name":  ident.DisplayName,
		"jti":   uuid.NewString(),
		"exp":   time.Now().Add(time.Hour * 24 * constants.JWTExpirationDays).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *Service) VerifySessionJWT(tokenString string) (session.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return session.Identity{}, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return session.Identity{}, fmt.Errorf("invalid session claims")
	}

	ident := session.Identity{}
	if email, ok := claims["email"].(string); ok {
		ident.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		ident.DisplayName = name
	}
	return ident, nil
}

func (s *Service) generateAdminJWT() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(constants.AdminCookieDuration).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *Service) verifyAdminJWT(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	role, _ := claims["role"].(string)
	return role == "admin"
}
