// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// MockService is a configurable test double for [services.Service]. Leave a
// function field nil to get a benign default; Calls records every method
// invocation in order.
type MockService struct {
	mu    sync.Mutex
	Calls []string

	CurrentUserFn       func(ctx context.Context) (*services.RemoteUser, error)
	SearchFn            func(ctx context.Context, query string, limit int) ([]models.RemoteTrackRef, error)
	CreatePlaylistFn    func(ctx context.Context, ownerID, name, description string, public bool) (*models.RemotePlaylistRef, error)
	ChangeDetailsFn     func(ctx context.Context, playlistID, name, description string) error
	AddItemsFn          func(ctx context.Context, playlistID string, uris []string) error
	RemoveItemsFn       func(ctx context.Context, playlistID string, uris []string) error
	ReplaceItemsFn      func(ctx context.Context, playlistID string, uris []string) error
	PlaylistItemsFn     func(ctx context.Context, playlistID string) ([]string, error)
	TopTracksFn         func(ctx context.Context, timeRange string, limit int) ([]models.RemoteTrackRef, error)
	FeaturedPlaylistsFn func(ctx context.Context, limit, offset int, country string) ([]models.RemotePlaylistRef, error)
	TrendingTracksFn    func(ctx context.Context, limit int) ([]models.RemoteTrackRef, error)
	GenresFn            func(ctx context.Context) ([]string, error)
	TrackInfoFn         func(ctx context.Context, trackID string) (*models.RemoteTrackInfo, error)
	AlbumInfoFn         func(ctx context.Context, albumID string) (*models.RemoteAlbumInfo, error)
}

func (m *MockService) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many recorded calls start with the given method name.
func (m *MockService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method || len(c) > len(method) && c[:len(method)] == method && c[len(method)] == ' ' {
			n++
		}
	}
	return n
}

func (m *MockService) CurrentUser(ctx context.Context) (*services.RemoteUser, error) {
	m.record("CurrentUser")
	if m.CurrentUserFn != nil {
		return m.CurrentUserFn(ctx)
	}
	return &services.RemoteUser{ID: "mockuser", DisplayName: "Mock User"}, nil
}

func (m *MockService) Search(ctx context.Context, query string, limit int) ([]models.RemoteTrackRef, error) {
	m.record("Search " + query)
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.RemotePlaylistRef, error) {
	m.record("CreatePlaylist " + name)
	if m.CreatePlaylistFn != nil {
		return m.CreatePlaylistFn(ctx, ownerID, name, description, public)
	}
	return &models.RemotePlaylistRef{ID: SpotifyID("pl"), Name: name}, nil
}

func (m *MockService) ChangeDetails(ctx context.Context, playlistID, name, description string) error {
	m.record("ChangeDetails " + playlistID)
	if m.ChangeDetailsFn != nil {
		return m.ChangeDetailsFn(ctx, playlistID, name, description)
	}
	return nil
}

func (m *MockService) AddItems(ctx context.Context, playlistID string, uris []string) error {
	m.record(fmt.Sprintf("AddItems %s n=%d", playlistID, len(uris)))
	if m.AddItemsFn != nil {
		return m.AddItemsFn(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockService) RemoveItems(ctx context.Context, playlistID string, uris []string) error {
	m.record(fmt.Sprintf("RemoveItems %s n=%d", playlistID, len(uris)))
	if m.RemoveItemsFn != nil {
		return m.RemoveItemsFn(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockService) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	m.record(fmt.Sprintf("ReplaceItems %s n=%d", playlistID, len(uris)))
	if m.ReplaceItemsFn != nil {
		return m.ReplaceItemsFn(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockService) PlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	m.record("PlaylistItems " + playlistID)
	if m.PlaylistItemsFn != nil {
		return m.PlaylistItemsFn(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockService) TopTracks(ctx context.Context, timeRange string, limit int) ([]models.RemoteTrackRef, error) {
	m.record("TopTracks " + timeRange)
	if m.TopTracksFn != nil {
		return m.TopTracksFn(ctx, timeRange, limit)
	}
	return nil, nil
}

func (m *MockService) FeaturedPlaylists(ctx context.Context, limit, offset int, country string) ([]models.RemotePlaylistRef, error) {
	m.record("FeaturedPlaylists " + country)
	if m.FeaturedPlaylistsFn != nil {
		return m.FeaturedPlaylistsFn(ctx, limit, offset, country)
	}
	return nil, nil
}

func (m *MockService) TrendingTracks(ctx context.Context, limit int) ([]models.RemoteTrackRef, error) {
	m.record(fmt.Sprintf("TrendingTracks n=%d", limit))
	if m.TrendingTracksFn != nil {
		return m.TrendingTracksFn(ctx, limit)
	}
	return nil, nil
}

func (m *MockService) Genres(ctx context.Context) ([]string, error) {
	m.record("Genres")
	if m.GenresFn != nil {
		return m.GenresFn(ctx)
	}
	return nil, nil
}

func (m *MockService) TrackInfo(ctx context.Context, trackID string) (*models.RemoteTrackInfo, error) {
	m.record("TrackInfo " + trackID)
	if m.TrackInfoFn != nil {
		return m.TrackInfoFn(ctx, trackID)
	}
	return &models.RemoteTrackInfo{ID: trackID}, nil
}

func (m *MockService) AlbumInfo(ctx context.Context, albumID string) (*models.RemoteAlbumInfo, error) {
	m.record("AlbumInfo " + albumID)
	if m.AlbumInfoFn != nil {
		return m.AlbumInfoFn(ctx, albumID)
	}
	return &models.RemoteAlbumInfo{ID: albumID}, nil
}

func (m *MockService) Name() string { return "mock" }

// StaticTokens is a [services.TokenSource] returning a fixed token.
type StaticTokens struct {
	Token string
	Err   error
}

func (s *StaticTokens) Access(context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.Token == "" {
		return "test-token", nil
	}
	return s.Token, nil
}

// OpenTestDB opens an in-memory database with all migrations applied and
// closes it when the test finishes.
func OpenTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// SpotifyID pads a prefix out to a well-formed 22 character identifier.
func SpotifyID(prefix string) string {
	id := prefix
	for len(id) < models.SpotifyIDLength {
		id += "x"
	}
	return id[:models.SpotifyIDLength]
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// ErrWriter always returns an error on Write
type ErrWriter struct{}

func (f *ErrWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
