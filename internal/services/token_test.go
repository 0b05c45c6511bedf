package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

func setupTokenManager(t *testing.T) (*TokenManager, *repositories.TokenRepository, *sql.DB) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repo := repositories.NewTokenRepository(db)
	manager, err := NewTokenManager(shared.SpotifyConfig{
		ClientID:     "client",
		ClientSecret: "secret",
	}, repo, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return manager, repo, db
}

func TestNewTokenManager(t *testing.T) {
	t.Run("RequiresCredentials", func(t *testing.T) {
		_, err := NewTokenManager(shared.SpotifyConfig{}, nil, shared.NewLogger(io.Discard))
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("AuthURLCarriesState", func(t *testing.T) {
		manager, _, _ := setupTokenManager(t)
		url := manager.AuthURL("csrf-state")
		if url == "" {
			t.Fatal("auth url should not be empty")
		}
		for _, want := range []string{"state=csrf-state", "client_id=client", "access_type=offline"} {
			if !containsParam(url, want) {
				t.Errorf("auth url missing %q: %s", want, url)
			}
		}
	})
}

func containsParam(url, param string) bool {
	for i := 0; i+len(param) <= len(url); i++ {
		if url[i:i+len(param)] == param {
			return true
		}
	}
	return false
}

func TestTokenManagerAccess(t *testing.T) {
	t.Run("NoStoredTokenFailsAuthRequired", func(t *testing.T) {
		manager, _, _ := setupTokenManager(t)

		if _, err := manager.Access(context.Background()); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})

	t.Run("ValidTokenReturnedWithoutRefresh", func(t *testing.T) {
		manager, repo, _ := setupTokenManager(t)
		if err := repo.Save(&models.TokenPair{
			AccessToken:  "valid",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		}); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}

		token, err := manager.Access(context.Background())
		if err != nil {
			t.Fatalf("access failed: %v", err)
		}
		if token != "valid" {
			t.Errorf("expected stored token, got %q", token)
		}
	})

	t.Run("ExpiredTokenRefreshes", func(t *testing.T) {
		var refreshes atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			refreshes.Add(1)
			w.Header().Set("Content-Type", "application/json")
			// Spotify style refresh response: no refresh_token field.
			fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		}))
		defer ts.Close()

		manager, repo, _ := setupTokenManager(t)
		manager.SetTokenURL(ts.URL)
		if err := repo.Save(&models.TokenPair{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}

		token, err := manager.Access(context.Background())
		if err != nil {
			t.Fatalf("access failed: %v", err)
		}
		if token != "fresh" {
			t.Errorf("expected refreshed token, got %q", token)
		}

		// Refresh response omitted the refresh token; the old one survives.
		pair, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load persisted token: %v", err)
		}
		if pair.RefreshToken != "refresh" {
			t.Errorf("expected original refresh token kept, got %q", pair.RefreshToken)
		}
		if pair.AccessToken != "fresh" {
			t.Errorf("expected refreshed access token persisted, got %q", pair.AccessToken)
		}
	})

	t.Run("ConcurrentAccessRefreshesOnce", func(t *testing.T) {
		var refreshes atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			refreshes.Add(1)
			time.Sleep(20 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		}))
		defer ts.Close()

		manager, repo, _ := setupTokenManager(t)
		manager.SetTokenURL(ts.URL)
		if err := repo.Save(&models.TokenPair{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if token, err := manager.Access(context.Background()); err != nil || token != "fresh" {
					t.Errorf("access returned %q, %v", token, err)
				}
			}()
		}
		wg.Wait()

		if refreshes.Load() != 1 {
			t.Errorf("expected a single refresh exchange, got %d", refreshes.Load())
		}
	})

	t.Run("RefreshFailureIsAuthRequired", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
		}))
		defer ts.Close()

		manager, repo, _ := setupTokenManager(t)
		manager.SetTokenURL(ts.URL)
		if err := repo.Save(&models.TokenPair{
			AccessToken:  "stale",
			RefreshToken: "revoked",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}

		if _, err := manager.Access(context.Background()); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})
}

func TestTokenManagerStoreToken(t *testing.T) {
	manager, repo, _ := setupTokenManager(t)

	t.Run("RejectsIncompletePair", func(t *testing.T) {
		err := manager.StoreToken(&oauth2.Token{AccessToken: "only-access"})
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("PersistsPair", func(t *testing.T) {
		err := manager.StoreToken(&oauth2.Token{
			AccessToken:  "a",
			RefreshToken: "r",
			Expiry:       time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("store failed: %v", err)
		}

		pair, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if pair.AccessToken != "a" || pair.RefreshToken != "r" {
			t.Errorf("unexpected stored pair %+v", pair)
		}
	})
}
