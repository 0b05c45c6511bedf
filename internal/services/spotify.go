// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	defaultRateLimit  = 5.0 // requests per second

	// trendingPlaylistID is Spotify's Global Top 50 chart playlist.
	trendingPlaylistID = "2PvZKuj3e0FPqDHNUCZCSv"
	trendingLimit      = 10
)

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

type spotifyImage struct {
	URL string `json:"url"`
}

type albumTrack struct {
	Name        string `json:"name"`
	TrackNumber int    `json:"track_number"`
}

type spotifyFullAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ReleaseDate string          `json:"release_date"`
	Artists     []spotifyArtist `json:"artists"`
	Images      []spotifyImage  `json:"images"`
	Tracks      struct {
		Items []albumTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	URI     string          `json:"uri"`
	Artists []spotifyArtist `json:"artists"`
	Album   spotifyAlbum    `json:"album"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type spotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ExternalURLs externalURLs `json:"external_urls"`
}

type pagedTracks struct {
	Items []spotifyTrack `json:"items"`
	Next  *string        `json:"next"`
}

type searchResponse struct {
	Tracks pagedTracks `json:"tracks"`
}

type playlistItem struct {
	Track spotifyTrack `json:"track"`
}

type pagedPlaylistItems struct {
	Items []playlistItem `json:"items"`
	Next  *string        `json:"next"`
}

type pagedPlaylists struct {
	Items []spotifyPlaylist `json:"items"`
	Next  *string           `json:"next"`
}

type featuredResponse struct {
	Playlists pagedPlaylists `json:"playlists"`
}

type genresResponse struct {
	Genres []string `json:"genres"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyClient implements [Service] against the Spotify Web API.
//
// Every request consults the [TokenSource] first, is rate limited client-side,
// and is retried with exponential backoff on 429 and 5xx responses, honoring
// Retry-After when the server supplies one.
type SpotifyClient struct {
	httpClient  *http.Client
	baseURL     string
	tokens      TokenSource
	limiter     *rate.Limiter
	logger      *log.Logger
	maxRetries  int
	baseBackoff time.Duration
}

// NewSpotifyClient creates a SpotifyClient backed by the given token source.
func NewSpotifyClient(tokens TokenSource, logger *log.Logger) *SpotifyClient {
	return &SpotifyClient{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     spotifyBaseURL,
		tokens:      tokens,
		limiter:     rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		logger:      logger,
		maxRetries:  defaultMaxRetries,
		baseBackoff: defaultBackoff,
	}
}

// SetBaseURL overrides the API base URL. Used by tests pointing the client
// at a local server.
func (s *SpotifyClient) SetBaseURL(u string) {
	s.baseURL = u
}

// SetHTTPClient overrides the underlying HTTP client.
func (s *SpotifyClient) SetHTTPClient(c *http.Client) {
	s.httpClient = c
}

func (s *SpotifyClient) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated JSON request against the Spotify API.
// The endpoint may be a path relative to the base URL or an absolute URL
// (pagination cursors are absolute).
func (s *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	token, err := s.tokens.Access(ctx)
	if err != nil {
		return err
	}

	apiURL := endpoint
	if len(endpoint) == 0 || endpoint[0] == '/' {
		apiURL = s.baseURL + endpoint
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("request canceled: %w", err)
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			if err != nil {
				return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
			}
			return s.consume(resp, result)
		}

		if resp != nil {
			resp.Body.Close()
		}

		if attempt == s.maxRetries-1 {
			if err != nil {
				return fmt.Errorf("%w: request failed after %d attempts: %v", shared.ErrUpstream, s.maxRetries, err)
			}
			return fmt.Errorf("%w: request failed after %d attempts: status %d", shared.ErrUpstream, s.maxRetries, resp.StatusCode)
		}

		backoff := s.baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}

		if err != nil {
			s.logger.Warn("retrying spotify request", "attempt", attempt+1, "error", err)
		} else {
			s.logger.Warn("retrying spotify request", "attempt", attempt+1, "status", resp.StatusCode)
		}

		if err := sleepContext(ctx, backoff); err != nil {
			return err
		}
	}
}

// consume decodes a terminal response, translating non-2xx statuses into
// [shared.ErrUpstream] with the API's status and message attached.
func (s *SpotifyClient) consume(resp *http.Response, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: status %d: %s", shared.ErrUpstream, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%w: status %d", shared.ErrUpstream, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// shouldRetry reports whether the response warrants another attempt and any
// server-requested delay.
func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// CurrentUser retrieves the authenticated remote account.
func (s *SpotifyClient) CurrentUser(ctx context.Context) (*RemoteUser, error) {
	var user spotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &RemoteUser{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
}

// Search issues a track search with the given query string.
func (s *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]models.RemoteTrackRef, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return trackRefs(response.Tracks.Items), nil
}

// CreatePlaylist creates a playlist on the remote account.
func (s *SpotifyClient) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.RemotePlaylistRef, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(ownerID))
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var created spotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	return &models.RemotePlaylistRef{
		ID:   created.ID,
		Name: created.Name,
		URL:  created.ExternalURLs.Spotify,
	}, nil
}

// ChangeDetails updates a remote playlist's name and description.
func (s *SpotifyClient) ChangeDetails(ctx context.Context, playlistID, name, description string) error {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	body := map[string]any{
		"name":        name,
		"description": description,
	}
	return s.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// AddItems appends up to [MaxItemsPerCall] track URIs to a remote playlist.
func (s *SpotifyClient) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxItemsPerCall {
		return fmt.Errorf("%w: at most %d items per call, got %d", shared.ErrValidation, MaxItemsPerCall, len(uris))
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"uris": uris}
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// RemoveItems removes all occurrences of the given track URIs from a remote playlist.
func (s *SpotifyClient) RemoveItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > MaxItemsPerCall {
		return fmt.Errorf("%w: at most %d items per call, got %d", shared.ErrValidation, MaxItemsPerCall, len(uris))
	}

	tracks := make([]map[string]string, len(uris))
	for i, uri := range uris {
		tracks[i] = map[string]string{"uri": uri}
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"tracks": tracks}
	return s.doRequest(ctx, http.MethodDelete, endpoint, body, nil)
}

// ReplaceItems replaces the remote playlist's contents with the given URIs.
func (s *SpotifyClient) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	if uris == nil {
		uris = []string{}
	}
	if len(uris) > MaxItemsPerCall {
		return fmt.Errorf("%w: at most %d items per call, got %d", shared.ErrValidation, MaxItemsPerCall, len(uris))
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string]any{"uris": uris}
	return s.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// PlaylistItems returns every track URI in a remote playlist.
// Pages are fetched sequentially; page N+1 only after page N is consumed.
func (s *SpotifyClient) PlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))

	var uris []string
	for {
		var page pagedPlaylistItems
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.URI != "" {
				uris = append(uris, item.Track.URI)
			}
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint = *page.Next
	}

	return uris, nil
}

// TopTracks retrieves the user's top tracks for a listening time range.
func (s *SpotifyClient) TopTracks(ctx context.Context, timeRange string, limit int) ([]models.RemoteTrackRef, error) {
	switch timeRange {
	case RangeShortTerm, RangeMediumTerm, RangeLongTerm:
	default:
		return nil, fmt.Errorf("%w: unknown time range %q", shared.ErrValidation, timeRange)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", timeRange, limit)

	var page pagedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	return trackRefs(page.Items), nil
}

// FeaturedPlaylists retrieves the platform's featured playlists for a country.
func (s *SpotifyClient) FeaturedPlaylists(ctx context.Context, limit, offset int, country string) ([]models.RemotePlaylistRef, error) {
	if limit <= 0 {
		limit = 10
	}
	if country == "" {
		country = "US"
	}

	endpoint := fmt.Sprintf("/browse/featured-playlists?limit=%d&offset=%d&country=%s", limit, offset, url.QueryEscape(country))

	var response featuredResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	refs := make([]models.RemotePlaylistRef, 0, len(response.Playlists.Items))
	for _, item := range response.Playlists.Items {
		refs = append(refs, models.RemotePlaylistRef{
			ID:   item.ID,
			Name: item.Name,
			URL:  item.ExternalURLs.Spotify,
		})
	}

	return refs, nil
}

// TrendingTracks returns the top entries of Spotify's global chart playlist.
func (s *SpotifyClient) TrendingTracks(ctx context.Context, limit int) ([]models.RemoteTrackRef, error) {
	if limit <= 0 || limit > 50 {
		limit = trendingLimit
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", trendingPlaylistID, limit)

	var page pagedPlaylistItems
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	items := make([]spotifyTrack, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, item.Track)
	}
	return trackRefs(items), nil
}

// Genres returns the genre seeds the recommendation engine accepts.
func (s *SpotifyClient) Genres(ctx context.Context) ([]string, error) {
	var response genresResponse
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations/available-genre-seeds", nil, &response); err != nil {
		return nil, err
	}
	return response.Genres, nil
}

// TrackInfo looks up catalog metadata for a single track.
func (s *SpotifyClient) TrackInfo(ctx context.Context, trackID string) (*models.RemoteTrackInfo, error) {
	endpoint := fmt.Sprintf("/tracks/%s", url.PathEscape(trackID))

	var track spotifyTrack
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &track); err != nil {
		return nil, err
	}

	info := &models.RemoteTrackInfo{
		ID:          track.ID,
		Name:        track.Name,
		Album:       track.Album.Name,
		ReleaseDate: track.Album.ReleaseDate,
	}
	if len(track.Artists) > 0 {
		info.Artist = track.Artists[0].Name
	}
	return info, nil
}

// AlbumInfo looks up catalog metadata for an album, including its track listing.
func (s *SpotifyClient) AlbumInfo(ctx context.Context, albumID string) (*models.RemoteAlbumInfo, error) {
	endpoint := fmt.Sprintf("/albums/%s", url.PathEscape(albumID))

	var album spotifyFullAlbum
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &album); err != nil {
		return nil, err
	}

	info := &models.RemoteAlbumInfo{
		ID:          album.ID,
		Name:        album.Name,
		ReleaseDate: album.ReleaseDate,
	}
	if len(album.Artists) > 0 {
		info.Artist = album.Artists[0].Name
	}
	if len(album.Images) > 0 {
		info.CoverArt = album.Images[0].URL
	}
	for _, track := range album.Tracks.Items {
		info.Tracks = append(info.Tracks, models.RemoteAlbumTrack{
			Name:   track.Name,
			Number: track.TrackNumber,
		})
	}
	return info, nil
}

// trackRefs maps wire tracks to remote references, taking the first artist.
func trackRefs(items []spotifyTrack) []models.RemoteTrackRef {
	refs := make([]models.RemoteTrackRef, 0, len(items))
	for _, item := range items {
		ref := models.RemoteTrackRef{
			ID:    item.ID,
			URI:   item.URI,
			Name:  item.Name,
			Album: item.Album.Name,
		}
		if len(item.Artists) > 0 {
			ref.Artist = item.Artists[0].Name
		}
		refs = append(refs, ref)
	}
	return refs
}
