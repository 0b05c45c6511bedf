package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// refreshMargin is how long before expiry a token is treated as expired.
	refreshMargin = time.Minute
)

var spotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
	"user-library-modify",
	"user-top-read",
}

// TokenManager owns the Spotify access/refresh token pair.
//
// Access is the single "valid token" accessor the sync engines consult before
// every remote call. The mutex is held across the refresh exchange so only
// one refresh is ever in flight; concurrent callers either observe the old
// valid token or wait and reuse the freshly refreshed one. Interactive
// authorization never happens here; the HTTP callback stores the initial
// pair via StoreToken.
type TokenManager struct {
	config *oauth2.Config
	repo   *repositories.TokenRepository
	logger *log.Logger

	mu     sync.Mutex
	cached *models.TokenPair
}

// NewTokenManager creates a TokenManager from Spotify credentials and the
// token persistence repository.
func NewTokenManager(conf shared.SpotifyConfig, repo *repositories.TokenRepository, logger *log.Logger) (*TokenManager, error) {
	if conf.ClientID == "" || conf.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrValidation)
	}

	redirectURI := conf.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &TokenManager{config: config, repo: repo, logger: logger}, nil
}

// AuthURL returns the OAuth2 authorization URL for the external user-interactive flow.
func (m *TokenManager) AuthURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair and persists it.
func (m *TokenManager) Exchange(ctx context.Context, code string) error {
	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: code exchange failed: %v", shared.ErrAuthRequired, err)
	}
	return m.StoreToken(token)
}

// StoreToken persists a token pair obtained from an external authorization flow.
func (m *TokenManager) StoreToken(token *oauth2.Token) error {
	if token.AccessToken == "" || token.RefreshToken == "" {
		return fmt.Errorf("%w: authorization produced an incomplete token pair", shared.ErrValidation)
	}

	pair := &models.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.repo.Save(pair); err != nil {
		return err
	}
	m.cached = pair

	return nil
}

// Access returns a valid access token, refreshing it first when expired or
// expiring within the safety margin. Absent or unrefreshable credentials
// fail with [shared.ErrAuthRequired]; the caller must send the end user
// through the authorization flow.
func (m *TokenManager) Access(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached == nil {
		pair, err := m.repo.Load()
		if err != nil {
			return "", err
		}
		m.cached = pair
	}

	if !m.cached.Expired(refreshMargin) {
		return m.cached.AccessToken, nil
	}

	return m.refreshLocked(ctx)
}

// refreshLocked performs the refresh exchange. Callers hold m.mu.
func (m *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	seed := &oauth2.Token{RefreshToken: m.cached.RefreshToken}

	token, err := m.config.TokenSource(ctx, seed).Token()
	if err != nil {
		m.logger.Warn("token refresh failed", "error", err)
		return "", fmt.Errorf("%w: %v", shared.ErrAuthRequired, err)
	}

	pair := &models.TokenPair{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	// Spotify omits the refresh token from refresh responses; keep the old one.
	if pair.RefreshToken == "" {
		pair.RefreshToken = m.cached.RefreshToken
	}

	if err := m.repo.Save(pair); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	m.cached = pair

	m.logger.Info("refreshed spotify token", "expires_at", pair.ExpiresAt)
	return pair.AccessToken, nil
}

// SetTokenURL overrides the refresh/token endpoint. Used by tests.
func (m *TokenManager) SetTokenURL(u string) {
	m.config.Endpoint.TokenURL = u
}

var _ TokenSource = (*TokenManager)(nil)
