package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// AuthResult reports the completion of the Spotify authorization flow.
type AuthResult struct {
	User *models.User
	err  error
}

func (a *AuthResult) Error() error {
	return a.err
}

// SpotifyAuthHandler drives the authorization code flow: it redirects the
// browser to Spotify's consent page, validates the callback state, stores
// the exchanged token, and links the Spotify account to a local user.
//
// Linking is search-or-create by Spotify username. The flow completes at
// most once per handler; the CLI waits on [SpotifyAuthHandler.Result].
type SpotifyAuthHandler struct {
	tokens *services.TokenManager
	remote services.Service
	users  *repositories.UserRepository
	logger *log.Logger

	state       string
	resultChan  chan AuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewSpotifyAuthHandler creates the handler. The state token should be
// cryptographically random for CSRF protection.
func NewSpotifyAuthHandler(tokens *services.TokenManager, remote services.Service, users *repositories.UserRepository, state string, logger *log.Logger) *SpotifyAuthHandler {
	return &SpotifyAuthHandler{
		tokens:     tokens,
		remote:     remote,
		users:      users,
		state:      state,
		resultChan: make(chan AuthResult, 1),
		logger:     logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *SpotifyAuthHandler) Routes() []string {
	return []string{
		"GET /spotify/login",
		"GET /callback",
	}
}

func (h *SpotifyAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /spotify/login":
		http.Redirect(w, r, h.tokens.AuthURL(h.state), http.StatusFound)
	case "GET /callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SpotifyAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	// Only handle the callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	if state := r.URL.Query().Get("state"); state != h.state {
		err := fmt.Errorf("invalid state parameter")
		h.send(AuthResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.send(AuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	if err := h.tokens.Exchange(r.Context(), code); err != nil {
		h.send(AuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	user, err := h.link(r)
	if err != nil {
		h.send(AuthResult{err: err})
		http.Error(w, "Account linking failed", http.StatusInternalServerError)
		return
	}

	h.send(AuthResult{User: user})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>Connected as %s. You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`, user.Username)
}

// link fetches the Spotify account behind the fresh token and finds or
// creates the matching local user.
func (h *SpotifyAuthHandler) link(r *http.Request) (*models.User, error) {
	remoteUser, err := h.remote.CurrentUser(r.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spotify profile: %w", err)
	}

	user, err := h.users.GetByUsername(remoteUser.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, shared.ErrUserNotFound) {
		return nil, err
	}

	// Accounts created through OAuth get an unguessable placeholder
	// password; they log in through Spotify, not credentials.
	hash, err := bcrypt.GenerateFromPassword([]byte(shared.GenerateID()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user = &models.User{Username: remoteUser.ID, PasswordHash: string(hash)}
	if err := h.users.Create(user); err != nil {
		return nil, err
	}
	h.logger.Info("created local account for spotify user", "username", user.Username)
	return user, nil
}

// send delivers the flow result exactly once.
func (h *SpotifyAuthHandler) send(result AuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives the flow's single outcome.
func (h *SpotifyAuthHandler) Result() <-chan AuthResult {
	return h.resultChan
}
