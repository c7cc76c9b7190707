package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
	"github.com/crispchris33/security-advisor-chatbot/internal/models"
)

// Provider is one sign-in option. Name is the route parameter
// ("google" or "github").
type Provider struct {
	Name string
	*oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, baseURL string) *Provider {
	return &Provider{
		Name: constants.ProviderGoogle,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + constants.AuthRouteGroup + "/callback/" + constants.ProviderGoogle,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
				"openid",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

func NewGitHubProvider(clientID, clientSecret, baseURL string) *Provider {
	return &Provider{
		Name: constants.ProviderGitHub,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  baseURL + constants.AuthRouteGroup + "/callback/" + constants.ProviderGitHub,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com/user",
	}
}

func GenerateState() (string, error) {
	b := make([]byte, constants.OAuthStateLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GetUserInfo exchanges the authorization code and fetches the user's
// identity. GitHub accounts with a hidden email come back with Email
// empty; the caller handles that as the no-key session.
func (p *Provider) GetUserInfo(ctx context.Context, code string) (*models.OAuthUserInfo, error) {
	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	client := p.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth API error: status %d", resp.StatusCode)
	}

	if p.Name == constants.ProviderGitHub {
		return decodeGitHubUser(resp.Body)
	}
	var userInfo models.OAuthUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &userInfo, nil
}

// GitHub's /user payload uses a numeric id and may carry a null email.
func decodeGitHubUser(body io.Reader) (*models.OAuthUserInfo, error) {
	var raw struct {
		ID    int64   `json:"id"`
		Login string  `json:"login"`
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	info := &models.OAuthUserInfo{
		ID:          strconv.FormatInt(raw.ID, 10),
		DisplayName: raw.Login,
	}
	if raw.Name != nil {
		info.Name = *raw.Name
	}
	if raw.Email != nil {
		info.Email = *raw.Email
	}
	return info, nil
}
