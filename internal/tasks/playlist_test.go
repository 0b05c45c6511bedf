package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	testkit "github.com/desertthunder/mixtape/internal/testing"
)

func setupPlaylistEngine(t *testing.T, mock *testkit.MockService) (*PlaylistEngine, *repositories.PlaylistRepository, *models.User) {
	t.Helper()

	db := testkit.OpenTestDB(t)
	users := repositories.NewUserRepository(db)
	playlists := repositories.NewPlaylistRepository(db)

	user := &models.User{Username: "alice", PasswordHash: "hash"}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	engine := NewPlaylistEngine(mock, playlists, shared.NewLogger(io.Discard))
	return engine, playlists, user
}

func TestPlaylistEngineCreate(t *testing.T) {
	t.Run("MirrorsRemotePlaylist", func(t *testing.T) {
		mock := &testkit.MockService{}
		engine, playlists, user := setupPlaylistEngine(t, mock)

		playlist, err := engine.Create(context.Background(), CreatePlaylistParams{
			OwnerID: user.ID,
			Name:    "Road Trip",
		})
		if err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		if !playlist.Linked() {
			t.Error("created playlist should carry the remote id")
		}

		stored, err := playlists.GetByName(user.ID, "Road Trip")
		if err != nil {
			t.Fatalf("playlist not mirrored locally: %v", err)
		}
		if stored.SpotifyID != playlist.SpotifyID {
			t.Errorf("stored spotify id %q does not match %q", stored.SpotifyID, playlist.SpotifyID)
		}
	})

	t.Run("DuplicateNameFailsBeforeRemoteCall", func(t *testing.T) {
		mock := &testkit.MockService{}
		engine, _, user := setupPlaylistEngine(t, mock)

		if _, err := engine.Create(context.Background(), CreatePlaylistParams{OwnerID: user.ID, Name: "Road Trip"}); err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		calls := mock.CallCount("CreatePlaylist")

		_, err := engine.Create(context.Background(), CreatePlaylistParams{OwnerID: user.ID, Name: "Road Trip"})
		if !errors.Is(err, shared.ErrDuplicateName) {
			t.Fatalf("expected ErrDuplicateName, got %v", err)
		}
		if mock.CallCount("CreatePlaylist") != calls {
			t.Error("duplicate create should not reach the remote service")
		}
	})

	t.Run("RemoteFailureWritesNothing", func(t *testing.T) {
		mock := &testkit.MockService{
			CreatePlaylistFn: func(context.Context, string, string, string, bool) (*models.RemotePlaylistRef, error) {
				return nil, fmt.Errorf("%w: status 500", shared.ErrUpstream)
			},
		}
		engine, playlists, user := setupPlaylistEngine(t, mock)

		_, err := engine.Create(context.Background(), CreatePlaylistParams{OwnerID: user.ID, Name: "Road Trip"})
		if !errors.Is(err, shared.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if _, err := playlists.GetByName(user.ID, "Road Trip"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Error("no local row should exist after remote failure")
		}
	})
}

func TestPlaylistEngineMerge(t *testing.T) {
	t.Run("UnionWithoutDuplicates", func(t *testing.T) {
		shared1 := "spotify:track:" + testkit.SpotifyID("both")
		var added []string
		mock := &testkit.MockService{
			PlaylistItemsFn: func(_ context.Context, playlistID string) ([]string, error) {
				if strings.HasPrefix(playlistID, "aa") {
					return []string{"spotify:track:" + testkit.SpotifyID("a1"), shared1}, nil
				}
				return []string{shared1, "spotify:track:" + testkit.SpotifyID("b1")}, nil
			},
			AddItemsFn: func(_ context.Context, _ string, uris []string) error {
				added = append(added, uris...)
				return nil
			},
		}
		engine, playlists, user := setupPlaylistEngine(t, mock)

		a := &models.Playlist{UserID: user.ID, Name: "A", SpotifyID: testkit.SpotifyID("aa")}
		b := &models.Playlist{UserID: user.ID, Name: "B", SpotifyID: testkit.SpotifyID("bb")}
		for _, p := range []*models.Playlist{a, b} {
			if err := playlists.Create(p); err != nil {
				t.Fatalf("failed to seed playlist: %v", err)
			}
		}

		merged, err := engine.Merge(context.Background(), a.ID, b.ID, user.ID)
		if err != nil {
			t.Fatalf("merge failed: %v", err)
		}
		if merged.Name != "Merge: A + B" {
			t.Errorf("unexpected merged name: %q", merged.Name)
		}
		if len(added) != 3 {
			t.Errorf("expected 3 unique URIs pushed, got %d: %v", len(added), added)
		}
	})

	t.Run("UnlinkedSourceRejected", func(t *testing.T) {
		mock := &testkit.MockService{}
		engine, playlists, user := setupPlaylistEngine(t, mock)

		a := &models.Playlist{UserID: user.ID, Name: "A", SpotifyID: testkit.SpotifyID("aa")}
		b := &models.Playlist{UserID: user.ID, Name: "B"}
		for _, p := range []*models.Playlist{a, b} {
			if err := playlists.Create(p); err != nil {
				t.Fatalf("failed to seed playlist: %v", err)
			}
		}

		if _, err := engine.Merge(context.Background(), a.ID, b.ID, user.ID); !errors.Is(err, shared.ErrNotLinked) {
			t.Errorf("expected ErrNotLinked, got %v", err)
		}
	})
}

func TestPlaylistEngineTimeMachine(t *testing.T) {
	searchRefs := []models.RemoteTrackRef{
		{ID: testkit.SpotifyID("t1"), URI: "spotify:track:" + testkit.SpotifyID("t1"), Name: "One"},
		{ID: testkit.SpotifyID("t2"), URI: "spotify:track:" + testkit.SpotifyID("t2"), Name: "Two"},
	}

	t.Run("YearOutOfRange", func(t *testing.T) {
		mock := &testkit.MockService{}
		engine, _, user := setupPlaylistEngine(t, mock)

		for _, year := range []int{1899, time.Now().Year() + 1} {
			if _, err := engine.TimeMachine(context.Background(), user.ID, year); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("year %d: expected ErrValidation, got %v", year, err)
			}
		}
	})

	t.Run("IdempotentByYear", func(t *testing.T) {
		mock := &testkit.MockService{
			SearchFn: func(_ context.Context, query string, _ int) ([]models.RemoteTrackRef, error) {
				if query != "year:1999" {
					t.Errorf("unexpected search query %q", query)
				}
				return searchRefs, nil
			},
		}
		engine, playlists, user := setupPlaylistEngine(t, mock)

		first, err := engine.TimeMachine(context.Background(), user.ID, 1999)
		if err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		if first.Name != "1999 Time Machine" {
			t.Errorf("unexpected playlist name %q", first.Name)
		}

		second, err := engine.TimeMachine(context.Background(), user.ID, 1999)
		if err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		if second.ID != first.ID {
			t.Error("second run should reuse the existing playlist")
		}
		if mock.CallCount("CreatePlaylist") != 1 {
			t.Error("second run should not create another remote playlist")
		}
		if mock.CallCount("ReplaceItems") != 1 {
			t.Error("second run should clear the existing playlist before refilling")
		}

		all, err := playlists.ListByUser(user.ID)
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(all) != 1 {
			t.Errorf("expected a single local playlist, got %d", len(all))
		}
	})

	t.Run("NoResults", func(t *testing.T) {
		mock := &testkit.MockService{}
		engine, _, user := setupPlaylistEngine(t, mock)

		if _, err := engine.TimeMachine(context.Background(), user.ID, 1901); !errors.Is(err, shared.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch, got %v", err)
		}
	})
}

func TestPlaylistEngineTimeCapsule(t *testing.T) {
	mock := &testkit.MockService{
		TopTracksFn: func(_ context.Context, timeRange string, _ int) ([]models.RemoteTrackRef, error) {
			// Same track shows up in every range; it must be added once.
			return []models.RemoteTrackRef{
				{ID: testkit.SpotifyID("hit"), URI: "spotify:track:" + testkit.SpotifyID("hit")},
				{ID: testkit.SpotifyID(timeRange), URI: "spotify:track:" + testkit.SpotifyID(timeRange)},
			}, nil
		},
	}

	var added []string
	mock.AddItemsFn = func(_ context.Context, _ string, uris []string) error {
		added = append(added, uris...)
		return nil
	}

	engine, _, user := setupPlaylistEngine(t, mock)

	playlist, err := engine.TimeCapsule(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("time capsule failed: %v", err)
	}

	want := fmt.Sprintf("Time Capsule %d", time.Now().Year())
	if playlist.Name != want {
		t.Errorf("expected name %q, got %q", want, playlist.Name)
	}
	if mock.CallCount("TopTracks") != 3 {
		t.Errorf("expected all three time ranges queried, got %d", mock.CallCount("TopTracks"))
	}
	if len(added) != 4 {
		t.Errorf("expected 4 deduplicated URIs, got %d: %v", len(added), added)
	}
}

func TestPlaylistEngineFromText(t *testing.T) {
	t.Run("TruncatesLongDescription", func(t *testing.T) {
		description := strings.Repeat("synthwave ", 10)
		mock := &testkit.MockService{
			SearchFn: func(_ context.Context, query string, _ int) ([]models.RemoteTrackRef, error) {
				if query != description {
					t.Errorf("search should use the raw description, got %q", query)
				}
				return []models.RemoteTrackRef{{ID: testkit.SpotifyID("t1"), URI: "spotify:track:" + testkit.SpotifyID("t1")}}, nil
			},
		}
		engine, _, user := setupPlaylistEngine(t, mock)

		playlist, err := engine.FromText(context.Background(), user.ID, description)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		want := "Generated: " + description[:50]
		if playlist.Name != want {
			t.Errorf("expected name %q, got %q", want, playlist.Name)
		}
	})

	t.Run("NoResults", func(t *testing.T) {
		mock := &testkit.MockService{}
		engine, _, user := setupPlaylistEngine(t, mock)

		if _, err := engine.FromText(context.Background(), user.ID, "nothing matches this"); !errors.Is(err, shared.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch, got %v", err)
		}
	})
}

func TestPlaylistEngineShareLink(t *testing.T) {
	mock := &testkit.MockService{}
	engine, playlists, user := setupPlaylistEngine(t, mock)

	linked := &models.Playlist{UserID: user.ID, Name: "Linked", SpotifyID: testkit.SpotifyID("pl")}
	local := &models.Playlist{UserID: user.ID, Name: "Local"}
	for _, p := range []*models.Playlist{linked, local} {
		if err := playlists.Create(p); err != nil {
			t.Fatalf("failed to seed playlist: %v", err)
		}
	}

	url, err := engine.ShareLink(user.ID, "Linked")
	if err != nil {
		t.Fatalf("share link failed: %v", err)
	}
	if url != "https://open.spotify.com/playlist/"+linked.SpotifyID {
		t.Errorf("unexpected share URL %q", url)
	}

	if _, err := engine.ShareLink(user.ID, "Local"); !errors.Is(err, shared.ErrNotLinked) {
		t.Errorf("expected ErrNotLinked for unsynced playlist, got %v", err)
	}
}

func TestBatchURIs(t *testing.T) {
	uris := make([]string, 250)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:%022d", i)
	}

	batches := batchURIs(uris)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 100 || len(batches[1]) != 100 || len(batches[2]) != 50 {
		t.Errorf("unexpected batch sizes: %d, %d, %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}
