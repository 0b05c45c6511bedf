package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login runs the Spotify authorization code flow: starts a temporary callback
// server on the configured redirect address, opens the consent page in the
// browser, and waits for the exchange to complete.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	redirect, err := url.Parse(r.config.Spotify.RedirectURI)
	if err != nil {
		return fmt.Errorf("%w: bad redirect uri %q: %v", shared.ErrValidation, r.config.Spotify.RedirectURI, err)
	}

	state := shared.GenerateID()
	handler := server.NewSpotifyAuthHandler(r.tokens, r.spotify, r.users, state, r.logger)

	router := server.NewBasicRouter()
	router.Handler(handler)

	callbackServer := server.NewServer(shared.ServerConfig{Host: redirect.Hostname(), Port: portOf(redirect)}, router, r.logger)
	go func() {
		if err := callbackServer.Start(); err != nil {
			r.logger.Error("callback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		callbackServer.Shutdown(shutdownCtx)
	}()

	authURL := r.tokens.AuthURL(state)
	r.writePlain("Opening Spotify authorization page...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("could not open browser", "error", err)
		r.writePlain("Visit this URL to authorize:\n%s\n", authURL)
	}

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return err
		}
		r.writePlain("✓ Connected to Spotify as %s\n", result.User.Username)
		return nil
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("authorization timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	closer, err := r.connect(cmd.String("config"))
	if err != nil {
		return err
	}
	defer closer()

	if err := r.requireRemote(); err != nil {
		return err
	}

	sessions, err := server.NewSessions(r.config.Auth)
	if err != nil {
		return err
	}

	router := server.NewAPIRouter(server.Deps{
		Users:     r.users,
		Playlists: r.playlistEngine,
		Tracks:    r.trackEngine,
		Tokens:    r.tokens,
		Remote:    r.spotify,
		Sessions:  sessions,
		Logger:    r.logger,
	}, shared.GenerateID())

	srv := server.NewServer(r.config.Server, router, r.logger)

	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()

	select {
	case err := <-errs:
		return err
	case <-notifyCtx.Done():
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func portOf(u *url.URL) int {
	if p := u.Port(); p != "" {
		var port int
		fmt.Sscanf(p, "%d", &port)
		return port
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}
