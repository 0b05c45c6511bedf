package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	testkit "github.com/desertthunder/mixtape/internal/testing"
)

func TestResolverRemoteTrack(t *testing.T) {
	t.Run("FirstMatchWins", func(t *testing.T) {
		mock := &testkit.MockService{
			SearchFn: func(_ context.Context, query string, limit int) ([]models.RemoteTrackRef, error) {
				if query != "track:Creep artist:Radiohead" {
					t.Errorf("unexpected query %q", query)
				}
				return []models.RemoteTrackRef{{ID: testkit.SpotifyID("creep"), URI: "spotify:track:" + testkit.SpotifyID("creep")}}, nil
			},
		}
		resolver := NewResolver(nil, nil, mock)

		ref, err := resolver.RemoteTrack(context.Background(), "Creep", "Radiohead")
		if err != nil {
			t.Fatalf("resolution failed: %v", err)
		}
		if ref.ID != testkit.SpotifyID("creep") {
			t.Errorf("unexpected ref %+v", ref)
		}
	})

	t.Run("NoMatch", func(t *testing.T) {
		resolver := NewResolver(nil, nil, &testkit.MockService{})

		_, err := resolver.RemoteTrack(context.Background(), "Nothing", "Nobody")
		if !errors.Is(err, shared.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch, got %v", err)
		}
	})
}

func TestResolverLocalLookups(t *testing.T) {
	db := testkit.OpenTestDB(t)
	users := repositories.NewUserRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	tracks := repositories.NewTrackRepository(db)

	user := &models.User{Username: "alice", PasswordHash: "hash"}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	playlist := &models.Playlist{UserID: user.ID, Name: "Mix"}
	if err := playlists.Create(playlist); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	track := &models.Track{PlaylistID: playlist.ID, Name: "Song", Artist: "Artist"}
	if err := tracks.Create(track); err != nil {
		t.Fatalf("failed to create track: %v", err)
	}

	resolver := NewResolver(playlists, tracks, &testkit.MockService{})

	t.Run("Playlist", func(t *testing.T) {
		found, err := resolver.Playlist(user.ID, "Mix")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if found.ID != playlist.ID {
			t.Errorf("expected %s, got %s", playlist.ID, found.ID)
		}

		if _, err := resolver.Playlist(user.ID, "Missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("TrackCaseInsensitive", func(t *testing.T) {
		found, err := resolver.Track(playlist.ID, "song")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if found.ID != track.ID {
			t.Errorf("expected %s, got %s", track.ID, found.ID)
		}
	})
}

func TestCheckRemoteID(t *testing.T) {
	if err := CheckRemoteID("4uLU6hMCjMI75M1A2tKUQC"); err != nil {
		t.Errorf("well-formed id rejected: %v", err)
	}
	for _, id := range []string{"", "short", "4uLU6hMCjMI75M1A2tKUQC7"} {
		if err := CheckRemoteID(id); !errors.Is(err, shared.ErrInvalidReference) {
			t.Errorf("id %q: expected ErrInvalidReference, got %v", id, err)
		}
	}
}
