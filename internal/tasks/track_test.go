package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	testkit "github.com/desertthunder/mixtape/internal/testing"
)

type trackFixture struct {
	engine    *TrackEngine
	tracks    *repositories.TrackRepository
	playlists *repositories.PlaylistRepository
	ratings   *repositories.RatingRepository
	user      *models.User
}

func setupTrackEngine(t *testing.T, mock *testkit.MockService) *trackFixture {
	t.Helper()

	db := testkit.OpenTestDB(t)
	users := repositories.NewUserRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	tracks := repositories.NewTrackRepository(db)
	favorites := repositories.NewFavoriteRepository(db)
	ratings := repositories.NewRatingRepository(db)
	comments := repositories.NewCommentRepository(db)

	user := &models.User{Username: "alice", PasswordHash: "hash"}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	resolver := NewResolver(playlists, tracks, mock)
	engine := NewTrackEngine(mock, resolver, tracks, favorites, ratings, comments, shared.NewLogger(io.Discard))

	return &trackFixture{engine: engine, tracks: tracks, playlists: playlists, ratings: ratings, user: user}
}

func (f *trackFixture) seedPlaylist(t *testing.T, name, spotifyID string) *models.Playlist {
	t.Helper()
	playlist := &models.Playlist{UserID: f.user.ID, Name: name, SpotifyID: spotifyID}
	if err := f.playlists.Create(playlist); err != nil {
		t.Fatalf("failed to seed playlist: %v", err)
	}
	return playlist
}

func TestTrackEngineAddTrack(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		trackID := testkit.SpotifyID("bohemian")
		var addedURIs []string
		var removedURIs []string
		mock := &testkit.MockService{
			SearchFn: func(_ context.Context, query string, limit int) ([]models.RemoteTrackRef, error) {
				if query != `track:Bohemian Rhapsody artist:Queen` {
					t.Errorf("unexpected search query %q", query)
				}
				if limit != 1 {
					t.Errorf("expected limit 1, got %d", limit)
				}
				return []models.RemoteTrackRef{{
					ID:     trackID,
					URI:    "spotify:track:" + trackID,
					Name:   "Bohemian Rhapsody",
					Artist: "Queen",
					Album:  "A Night at the Opera",
				}}, nil
			},
			AddItemsFn: func(_ context.Context, _ string, uris []string) error {
				addedURIs = append(addedURIs, uris...)
				return nil
			},
			RemoveItemsFn: func(_ context.Context, _ string, uris []string) error {
				removedURIs = append(removedURIs, uris...)
				return nil
			},
		}
		fix := setupTrackEngine(t, mock)
		fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		track, err := fix.engine.AddTrack(context.Background(), AddTrackParams{
			OwnerID:  fix.user.ID,
			Playlist: "Classics",
			Name:     "Bohemian Rhapsody",
			Artist:   "Queen",
		})
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if track.SpotifyTrackID != trackID {
			t.Errorf("expected resolved id %s, got %s", trackID, track.SpotifyTrackID)
		}
		if track.Album != "A Night at the Opera" {
			t.Errorf("expected album filled from resolution, got %q", track.Album)
		}
		if len(addedURIs) != 1 || addedURIs[0] != "spotify:track:"+trackID {
			t.Errorf("unexpected remote add payload: %v", addedURIs)
		}

		result, err := fix.engine.RemoveTrack(context.Background(), fix.user.ID, "Classics", "Bohemian Rhapsody")
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if len(result.SkippedRemote) != 0 {
			t.Errorf("fully linked removal should not skip the remote step: %v", result.SkippedRemote)
		}
		if len(removedURIs) != 1 || removedURIs[0] != "spotify:track:"+trackID {
			t.Errorf("unexpected remote remove payload: %v", removedURIs)
		}
		if _, err := fix.tracks.Get(result.Track.ID); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Error("local row should be gone after removal")
		}
	})

	t.Run("DuplicateFailsBeforeResolution", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist", SpotifyTrackID: testkit.SpotifyID("s")}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		_, err := fix.engine.AddTrack(context.Background(), AddTrackParams{
			OwnerID:  fix.user.ID,
			Playlist: "Classics",
			Name:     "Song",
			Artist:   "Artist",
		})
		if !errors.Is(err, shared.ErrDuplicateTrack) {
			t.Fatalf("expected ErrDuplicateTrack, got %v", err)
		}
		if mock.CallCount("Search") != 0 {
			t.Error("duplicate add should fail before any remote call")
		}
	})

	t.Run("UnlinkedPlaylistRejected", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		fix.seedPlaylist(t, "Local Only", "")

		_, err := fix.engine.AddTrack(context.Background(), AddTrackParams{
			OwnerID:  fix.user.ID,
			Playlist: "Local Only",
			Name:     "Song",
			Artist:   "Artist",
		})
		if !errors.Is(err, shared.ErrNotLinked) {
			t.Errorf("expected ErrNotLinked, got %v", err)
		}
	})

	t.Run("NoMatchLeavesNoRow", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		_, err := fix.engine.AddTrack(context.Background(), AddTrackParams{
			OwnerID:  fix.user.ID,
			Playlist: "Classics",
			Name:     "Obscure B-Side",
			Artist:   "Nobody",
		})
		if !errors.Is(err, shared.ErrNoMatch) {
			t.Fatalf("expected ErrNoMatch, got %v", err)
		}

		tracks, err := fix.tracks.ListByPlaylist(playlist.ID)
		if err != nil {
			t.Fatalf("failed to list tracks: %v", err)
		}
		if len(tracks) != 0 {
			t.Error("failed resolution must not create a local row")
		}
	})
}

func TestTrackEngineRemoveTrack(t *testing.T) {
	t.Run("UnlinkedTrackRemovedLocallyWithReasons", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist"}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		result, err := fix.engine.RemoveTrack(context.Background(), fix.user.ID, "Classics", "Song")
		if err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if len(result.SkippedRemote) == 0 {
			t.Error("unlinked track removal should report why the remote step was skipped")
		}
		if mock.CallCount("RemoveItems") != 0 {
			t.Error("remote removal should not be attempted without a track reference")
		}
		if _, err := fix.tracks.Get(seed.ID); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Error("local row should still be deleted")
		}
	})

	t.Run("MalformedTrackReferenceAborts", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist", SpotifyTrackID: "tooshort"}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		_, err := fix.engine.RemoveTrack(context.Background(), fix.user.ID, "Classics", "Song")
		if !errors.Is(err, shared.ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference, got %v", err)
		}
		if mock.CallCount("RemoveItems") != 0 {
			t.Error("a corrupt stored reference must not reach the remote")
		}
		if _, err := fix.tracks.Get(seed.ID); err != nil {
			t.Error("local row must survive when the stored reference is corrupt")
		}
	})

	t.Run("MalformedPlaylistReferenceAborts", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", "not-a-spotify-id")

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist", SpotifyTrackID: testkit.SpotifyID("s")}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		_, err := fix.engine.RemoveTrack(context.Background(), fix.user.ID, "Classics", "Song")
		if !errors.Is(err, shared.ErrInvalidReference) {
			t.Fatalf("expected ErrInvalidReference, got %v", err)
		}
		if _, err := fix.tracks.Get(seed.ID); err != nil {
			t.Error("local row must survive when the stored reference is corrupt")
		}
	})

	t.Run("RemoteFailureAbortsLocalDelete", func(t *testing.T) {
		mock := &testkit.MockService{
			RemoveItemsFn: func(context.Context, string, []string) error {
				return fmt.Errorf("%w: status 502", shared.ErrUpstream)
			},
		}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist", SpotifyTrackID: testkit.SpotifyID("s")}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		if _, err := fix.engine.RemoveTrack(context.Background(), fix.user.ID, "Classics", "Song"); !errors.Is(err, shared.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if _, err := fix.tracks.Get(seed.ID); err != nil {
			t.Error("local row must survive when the remote removal fails")
		}
	})
}

func TestTrackEngineRate(t *testing.T) {
	t.Run("UnlinkedTrackWritesNoRow", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist"}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		_, err := fix.engine.Rate(fix.user.ID, "Classics", "Song", 4)
		if !errors.Is(err, shared.ErrMissingRemoteRef) {
			t.Fatalf("expected ErrMissingRemoteRef, got %v", err)
		}

		count, err := fix.ratings.CountByUser(fix.user.ID)
		if err != nil {
			t.Fatalf("failed to count ratings: %v", err)
		}
		if count != 0 {
			t.Error("rejected rating must not write a row")
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		trackID := testkit.SpotifyID("s")
		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist", SpotifyTrackID: trackID}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		if _, err := fix.engine.Rate(fix.user.ID, "Classics", "Song", 3); err != nil {
			t.Fatalf("first rating failed: %v", err)
		}
		rating, err := fix.engine.Rate(fix.user.ID, "Classics", "Song", 5)
		if err != nil {
			t.Fatalf("second rating failed: %v", err)
		}
		if rating.Rating != 5 {
			t.Errorf("expected rating 5, got %d", rating.Rating)
		}

		count, err := fix.ratings.CountByUser(fix.user.ID)
		if err != nil {
			t.Fatalf("failed to count ratings: %v", err)
		}
		if count != 1 {
			t.Errorf("expected one rating row, got %d", count)
		}
	})
}

func TestTrackEngineFavorites(t *testing.T) {
	t.Run("MalformedIDRejected", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)

		if _, err := fix.engine.Favorite(fix.user.ID, "short", models.FavoriteAlbum); !errors.Is(err, shared.ErrInvalidReference) {
			t.Errorf("expected ErrInvalidReference, got %v", err)
		}
	})

	t.Run("TrackFavoritedByName", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		trackID := testkit.SpotifyID("fav")
		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist", SpotifyTrackID: trackID}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		favorite, err := fix.engine.FavoriteTrack(fix.user.ID, "Classics", "Song")
		if err != nil {
			t.Fatalf("favorite failed: %v", err)
		}
		if favorite.SpotifyID != trackID {
			t.Errorf("expected reference from the stored row, got %q", favorite.SpotifyID)
		}
		if favorite.ItemType != models.FavoriteTrack {
			t.Errorf("expected a track favorite, got %q", favorite.ItemType)
		}
	})

	t.Run("UnlinkedTrackCannotBeFavorited", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		playlist := fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

		seed := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist"}
		if err := fix.tracks.Create(seed); err != nil {
			t.Fatalf("failed to seed track: %v", err)
		}

		if _, err := fix.engine.FavoriteTrack(fix.user.ID, "Classics", "Song"); !errors.Is(err, shared.ErrMissingRemoteRef) {
			t.Fatalf("expected ErrMissingRemoteRef, got %v", err)
		}
		favorites, err := fix.engine.Favorites(fix.user.ID)
		if err != nil {
			t.Fatalf("failed to list favorites: %v", err)
		}
		if len(favorites) != 0 {
			t.Error("rejected favorite must not write a row")
		}
	})

	t.Run("FavoriteUnfavoriteCycle", func(t *testing.T) {
		mock := &testkit.MockService{}
		fix := setupTrackEngine(t, mock)
		id := testkit.SpotifyID("fav")

		if _, err := fix.engine.Favorite(fix.user.ID, id, models.FavoriteAlbum); err != nil {
			t.Fatalf("favorite failed: %v", err)
		}
		if _, err := fix.engine.Favorite(fix.user.ID, id, models.FavoriteAlbum); !errors.Is(err, shared.ErrAlreadyFavorited) {
			t.Errorf("expected ErrAlreadyFavorited, got %v", err)
		}
		if err := fix.engine.Unfavorite(fix.user.ID, id); err != nil {
			t.Fatalf("unfavorite failed: %v", err)
		}
		if err := fix.engine.Unfavorite(fix.user.ID, id); !errors.Is(err, shared.ErrFavoriteNotFound) {
			t.Errorf("expected ErrFavoriteNotFound, got %v", err)
		}
	})
}

func TestTrackEngineComments(t *testing.T) {
	mock := &testkit.MockService{}
	fix := setupTrackEngine(t, mock)
	fix.seedPlaylist(t, "Classics", testkit.SpotifyID("pl"))

	seed := &models.Track{PlaylistID: mustPlaylistID(t, fix), Name: "Song", Artist: "Artist"}
	if err := fix.tracks.Create(seed); err != nil {
		t.Fatalf("failed to seed track: %v", err)
	}

	for _, body := range []string{"first", "second"} {
		if _, err := fix.engine.CommentTrack(fix.user.ID, "Classics", "Song", body); err != nil {
			t.Fatalf("comment failed: %v", err)
		}
	}

	comments, err := fix.engine.TrackComments(fix.user.ID, "Classics", "Song")
	if err != nil {
		t.Fatalf("failed to list comments: %v", err)
	}
	if len(comments) != 2 || comments[0].Body != "first" {
		t.Errorf("expected chronological comments, got %+v", comments)
	}
}

func mustPlaylistID(t *testing.T, fix *trackFixture) string {
	t.Helper()
	playlist, err := fix.playlists.GetByName(fix.user.ID, "Classics")
	if err != nil {
		t.Fatalf("failed to fetch playlist: %v", err)
	}
	return playlist.ID
}
