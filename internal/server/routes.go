package server

import (
	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// Deps are the collaborators the API router needs.
type Deps struct {
	Users     *repositories.UserRepository
	Playlists *tasks.PlaylistEngine
	Tracks    *tasks.TrackEngine
	Tokens    *services.TokenManager
	Remote    services.Service
	Sessions  *Sessions
	Logger    *log.Logger
}

// NewAPIRouter assembles the full route tree. Registration, login and the
// Spotify flow are public; everything under /api besides those requires a
// session token.
func NewAPIRouter(deps Deps, oauthState string) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recover(deps.Logger), Logging(deps.Logger))

	router.Handler(NewAuthHandler(deps.Users, deps.Sessions, deps.Logger))
	router.Handler(NewSpotifyAuthHandler(deps.Tokens, deps.Remote, deps.Users, oauthState, deps.Logger))

	router.Handler(&protect{inner: NewPlaylistHandler(deps.Playlists, deps.Logger), sessions: deps.Sessions})
	router.Handler(&protect{inner: NewTrackHandler(deps.Tracks, deps.Logger), sessions: deps.Sessions})

	return router
}
