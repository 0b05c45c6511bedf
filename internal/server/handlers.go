package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// JSON views of the domain models. The store types stay free of transport
// concerns; shaping happens here.

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type sessionView struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type playlistView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SpotifyID   string `json:"spotify_id,omitempty"`
	Linked      bool   `json:"linked"`
}

type trackView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Artist         string `json:"artist"`
	Album          string `json:"album,omitempty"`
	SpotifyTrackID string `json:"spotify_track_id,omitempty"`
	URI            string `json:"uri,omitempty"`
}

type favoriteView struct {
	SpotifyID string    `json:"spotify_id"`
	ItemType  string    `json:"item_type"`
	CreatedAt time.Time `json:"created_at"`
}

type ratingView struct {
	SpotifyTrackID string `json:"spotify_track_id"`
	Rating         int    `json:"rating"`
}

type commentView struct {
	ID        string    `json:"id"`
	TrackID   string    `json:"track_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type removalView struct {
	Playlist      string   `json:"playlist"`
	Track         string   `json:"track"`
	RemovedRemote bool     `json:"removed_remote"`
	SkippedRemote []string `json:"skipped_remote,omitempty"`
}

func viewPlaylist(p *models.Playlist) playlistView {
	return playlistView{
		ID: p.ID, Name: p.Name, Description: p.Description,
		SpotifyID: p.SpotifyID, Linked: p.Linked(),
	}
}

func viewTrack(t *models.Track) trackView {
	return trackView{
		ID: t.ID, Name: t.Name, Artist: t.Artist, Album: t.Album,
		SpotifyTrackID: t.SpotifyTrackID, URI: t.URI(),
	}
}

func viewComment(c *models.Comment) commentView {
	return commentView{ID: c.ID, TrackID: c.TrackID, Body: c.Body, CreatedAt: c.CreatedAt}
}

// protect wraps a Handler so every route it serves requires a session token.
type protect struct {
	inner    Handler
	sessions *Sessions
}

func (p *protect) Routes() []string { return p.inner.Routes() }

func (p *protect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.sessions.RequireAuth(p.inner).ServeHTTP(w, r)
}

// AuthHandler serves account registration and login. Passwords are stored
// only as bcrypt hashes.
type AuthHandler struct {
	users    *repositories.UserRepository
	sessions *Sessions
	logger   *log.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(users *repositories.UserRepository, sessions *Sessions, logger *log.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

func (h *AuthHandler) Routes() []string {
	return []string{
		"POST /api/register",
		"POST /api/login",
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var creds credentialsRequest
	if err := decode(r, &creds); err != nil {
		fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}
	if creds.Username == "" || creds.Password == "" {
		fail(w, h.logger, fmt.Errorf("%w: username and password are required", shared.ErrValidation))
		return
	}

	switch r.Pattern {
	case "POST /api/register":
		h.register(w, creds)
	case "POST /api/login":
		h.login(w, creds)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, creds credentialsRequest) {
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(w, h.logger, err)
		return
	}

	user := &models.User{Username: creds.Username, PasswordHash: string(hash)}
	if err := h.users.Create(user); err != nil {
		fail(w, h.logger, err)
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		fail(w, h.logger, err)
		return
	}

	respond(w, http.StatusCreated, sessionView{
		Token: token,
		User:  userView{ID: user.ID, Username: user.Username},
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, creds credentialsRequest) {
	user, err := h.users.GetByUsername(creds.Username)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			// Same response as a bad password; do not leak which usernames exist.
			fail(w, h.logger, fmt.Errorf("%w: invalid credentials", shared.ErrAuthRequired))
			return
		}
		fail(w, h.logger, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		fail(w, h.logger, fmt.Errorf("%w: invalid credentials", shared.ErrAuthRequired))
		return
	}

	token, err := h.sessions.Issue(user.ID)
	if err != nil {
		fail(w, h.logger, err)
		return
	}

	respond(w, http.StatusOK, sessionView{
		Token: token,
		User:  userView{ID: user.ID, Username: user.Username},
	})
}

// PlaylistHandler serves playlist CRUD and the generator operations.
type PlaylistHandler struct {
	engine *tasks.PlaylistEngine
	logger *log.Logger
}

// NewPlaylistHandler creates a PlaylistHandler.
func NewPlaylistHandler(engine *tasks.PlaylistEngine, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{engine: engine, logger: logger}
}

func (h *PlaylistHandler) Routes() []string {
	return []string{
		"GET /api/playlists",
		"POST /api/playlists",
		"PATCH /api/playlists/{id}",
		"POST /api/playlists/merge",
		"POST /api/playlists/time-machine",
		"POST /api/playlists/time-capsule",
		"POST /api/playlists/generate",
		"GET /api/playlists/{name}/share",
	}
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type mergeRequest struct {
	PlaylistAID string `json:"playlist_a_id"`
	PlaylistBID string `json:"playlist_b_id"`
}

type timeMachineRequest struct {
	Year int `json:"year"`
}

type generateRequest struct {
	Description string `json:"description"`
}

func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)
	ctx := r.Context()

	switch r.Pattern {
	case "GET /api/playlists":
		playlists, err := h.engine.List(userID)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		views := make([]playlistView, 0, len(playlists))
		for _, p := range playlists {
			views = append(views, viewPlaylist(p))
		}
		respond(w, http.StatusOK, views)

	case "POST /api/playlists":
		var req createPlaylistRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		playlist, err := h.engine.Create(ctx, tasks.CreatePlaylistParams{
			OwnerID:     userID,
			Name:        req.Name,
			Description: req.Description,
			Public:      req.Public,
		})
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewPlaylist(playlist))

	case "PATCH /api/playlists/{id}":
		var req updatePlaylistRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		playlist, err := h.engine.Update(ctx, r.PathValue("id"), userID, tasks.UpdatePlaylistParams{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusOK, viewPlaylist(playlist))

	case "POST /api/playlists/merge":
		var req mergeRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		playlist, err := h.engine.Merge(ctx, req.PlaylistAID, req.PlaylistBID, userID)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewPlaylist(playlist))

	case "POST /api/playlists/time-machine":
		var req timeMachineRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		playlist, err := h.engine.TimeMachine(ctx, userID, req.Year)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewPlaylist(playlist))

	case "POST /api/playlists/time-capsule":
		playlist, err := h.engine.TimeCapsule(ctx, userID)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewPlaylist(playlist))

	case "POST /api/playlists/generate":
		var req generateRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		playlist, err := h.engine.FromText(ctx, userID, req.Description)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewPlaylist(playlist))

	case "GET /api/playlists/{name}/share":
		url, err := h.engine.ShareLink(userID, r.PathValue("name"))
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"url": url})

	default:
		http.NotFound(w, r)
	}
}

// TrackHandler serves track membership and the engagement endpoints.
type TrackHandler struct {
	engine *tasks.TrackEngine
	logger *log.Logger
}

// NewTrackHandler creates a TrackHandler.
func NewTrackHandler(engine *tasks.TrackEngine, logger *log.Logger) *TrackHandler {
	return &TrackHandler{engine: engine, logger: logger}
}

func (h *TrackHandler) Routes() []string {
	return []string{
		"GET /api/playlists/{name}/tracks",
		"POST /api/playlists/{name}/tracks",
		"DELETE /api/playlists/{name}/tracks/{track}",
		"POST /api/playlists/{name}/tracks/{track}/rating",
		"GET /api/playlists/{name}/tracks/{track}/comments",
		"POST /api/playlists/{name}/tracks/{track}/comments",
		"GET /api/favorites",
		"POST /api/favorites",
		"DELETE /api/favorites/{spotify_id}",
		"GET /api/comments",
	}
}

type addTrackRequest struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
}

type rateRequest struct {
	Rating int `json:"rating"`
}

type commentRequest struct {
	Body string `json:"body"`
}

// favoriteRequest carries either a playlist/track name pair (tracks) or a
// direct spotify_id (albums), depending on item_type.
type favoriteRequest struct {
	ItemType  string `json:"item_type"`
	Playlist  string `json:"playlist,omitempty"`
	Track     string `json:"track,omitempty"`
	SpotifyID string `json:"spotify_id,omitempty"`
}

func (h *TrackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r)
	ctx := r.Context()
	playlistName := r.PathValue("name")
	trackName := r.PathValue("track")

	switch r.Pattern {
	case "GET /api/playlists/{name}/tracks":
		tracks, err := h.engine.Tracks(userID, playlistName)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		views := make([]trackView, 0, len(tracks))
		for _, t := range tracks {
			views = append(views, viewTrack(t))
		}
		respond(w, http.StatusOK, views)

	case "POST /api/playlists/{name}/tracks":
		var req addTrackRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		track, err := h.engine.AddTrack(ctx, tasks.AddTrackParams{
			OwnerID:  userID,
			Playlist: playlistName,
			Name:     req.Name,
			Artist:   req.Artist,
			Album:    req.Album,
		})
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewTrack(track))

	case "DELETE /api/playlists/{name}/tracks/{track}":
		result, err := h.engine.RemoveTrack(ctx, userID, playlistName, trackName)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusOK, removalView{
			Playlist:      result.Playlist.Name,
			Track:         result.Track.Name,
			RemovedRemote: len(result.SkippedRemote) == 0,
			SkippedRemote: result.SkippedRemote,
		})

	case "POST /api/playlists/{name}/tracks/{track}/rating":
		var req rateRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		rating, err := h.engine.Rate(userID, playlistName, trackName, req.Rating)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusOK, ratingView{
			SpotifyTrackID: rating.SpotifyTrackID,
			Rating:         rating.Rating,
		})

	case "GET /api/playlists/{name}/tracks/{track}/comments":
		comments, err := h.engine.TrackComments(userID, playlistName, trackName)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		views := make([]commentView, 0, len(comments))
		for _, c := range comments {
			views = append(views, viewComment(c))
		}
		respond(w, http.StatusOK, views)

	case "POST /api/playlists/{name}/tracks/{track}/comments":
		var req commentRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		comment, err := h.engine.CommentTrack(userID, playlistName, trackName, req.Body)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, viewComment(comment))

	case "GET /api/favorites":
		favorites, err := h.engine.Favorites(userID)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		views := make([]favoriteView, 0, len(favorites))
		for _, f := range favorites {
			views = append(views, favoriteView{
				SpotifyID: f.SpotifyID,
				ItemType:  string(f.ItemType),
				CreatedAt: f.CreatedAt,
			})
		}
		respond(w, http.StatusOK, views)

	case "POST /api/favorites":
		var req favoriteRequest
		if err := decode(r, &req); err != nil {
			fail(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		var favorite *models.Favorite
		var err error
		switch models.FavoriteType(req.ItemType) {
		case models.FavoriteTrack:
			favorite, err = h.engine.FavoriteTrack(userID, req.Playlist, req.Track)
		case models.FavoriteAlbum:
			favorite, err = h.engine.Favorite(userID, req.SpotifyID, models.FavoriteAlbum)
		default:
			err = fmt.Errorf("%w: item_type must be track or album", shared.ErrValidation)
		}
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusCreated, favoriteView{
			SpotifyID: favorite.SpotifyID,
			ItemType:  string(favorite.ItemType),
			CreatedAt: favorite.CreatedAt,
		})

	case "DELETE /api/favorites/{spotify_id}":
		if err := h.engine.Unfavorite(userID, r.PathValue("spotify_id")); err != nil {
			fail(w, h.logger, err)
			return
		}
		respond(w, http.StatusNoContent, nil)

	case "GET /api/comments":
		comments, err := h.engine.UserComments(userID)
		if err != nil {
			fail(w, h.logger, err)
			return
		}
		views := make([]commentView, 0, len(comments))
		for _, c := range comments {
			views = append(views, viewComment(c))
		}
		respond(w, http.StatusOK, views)

	default:
		http.NotFound(w, r)
	}
}
