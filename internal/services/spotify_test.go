package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/time/rate"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) Access(context.Context) (string, error) {
	return s.token, s.err
}

// newTestClient points a client at ts with retries sped up for tests.
func newTestClient(ts *httptest.Server) *SpotifyClient {
	client := NewSpotifyClient(&staticTokens{token: "test-token"}, shared.NewLogger(io.Discard))
	client.SetBaseURL(ts.URL)
	client.limiter = rate.NewLimiter(rate.Inf, 1)
	client.baseBackoff = time.Millisecond
	return client
}

func TestSpotifyClientSearch(t *testing.T) {
	t.Run("ParsesTrackRefs", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("missing bearer token, got %q", got)
			}
			if got := r.URL.Query().Get("limit"); got != "1" {
				t.Errorf("expected limit 1, got %q", got)
			}
			fmt.Fprint(w, `{"tracks":{"items":[{
				"id":"4uLU6hMCjMI75M1A2tKUQC",
				"uri":"spotify:track:4uLU6hMCjMI75M1A2tKUQC",
				"name":"Never Gonna Give You Up",
				"artists":[{"id":"a1","name":"Rick Astley"},{"id":"a2","name":"Someone Else"}],
				"album":{"id":"al1","name":"Whenever You Need Somebody"}
			}]}}`)
		}))
		defer ts.Close()

		refs, err := newTestClient(ts).Search(context.Background(), "track:Never Gonna Give You Up artist:Rick Astley", 1)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(refs) != 1 {
			t.Fatalf("expected one ref, got %d", len(refs))
		}
		ref := refs[0]
		if ref.ID != "4uLU6hMCjMI75M1A2tKUQC" || ref.Artist != "Rick Astley" || ref.Album != "Whenever You Need Somebody" {
			t.Errorf("unexpected ref %+v", ref)
		}
	})

	t.Run("TokenFailurePropagates", func(t *testing.T) {
		client := NewSpotifyClient(&staticTokens{err: shared.ErrAuthRequired}, shared.NewLogger(io.Discard))

		if _, err := client.Search(context.Background(), "query", 1); !errors.Is(err, shared.ErrAuthRequired) {
			t.Errorf("expected ErrAuthRequired, got %v", err)
		}
	})
}

func TestSpotifyClientRetry(t *testing.T) {
	t.Run("RecoversAfterServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"id":"spotifyuser","display_name":"Spotify User"}`)
		}))
		defer ts.Close()

		user, err := newTestClient(ts).CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("expected the request to recover after retries: %v", err)
		}
		if user.ID != "spotifyuser" {
			t.Errorf("unexpected user %+v", user)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("GivesUpAfterMaxRetries", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer ts.Close()

		_, err := newTestClient(ts).CurrentUser(context.Background())
		if !errors.Is(err, shared.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if calls.Load() != defaultMaxRetries {
			t.Errorf("expected %d attempts, got %d", defaultMaxRetries, calls.Load())
		}
	})

	t.Run("ClientErrorNotRetried", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"status":404,"message":"Not found."}}`)
		}))
		defer ts.Close()

		err := newTestClient(ts).ChangeDetails(context.Background(), "missing", "n", "d")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Fatalf("expected ErrUpstream, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("4xx must not be retried, got %d attempts", calls.Load())
		}
	})
}

func TestSpotifyClientBatchLimit(t *testing.T) {
	uris := make([]string, MaxItemsPerCall+1)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:%022d", i)
	}

	client := NewSpotifyClient(&staticTokens{token: "test-token"}, shared.NewLogger(io.Discard))

	if err := client.AddItems(context.Background(), "pl", uris); !errors.Is(err, shared.ErrValidation) {
		t.Errorf("AddItems: expected ErrValidation over the batch limit, got %v", err)
	}
	if err := client.RemoveItems(context.Background(), "pl", uris); !errors.Is(err, shared.ErrValidation) {
		t.Errorf("RemoveItems: expected ErrValidation over the batch limit, got %v", err)
	}
	if err := client.ReplaceItems(context.Background(), "pl", uris); !errors.Is(err, shared.ErrValidation) {
		t.Errorf("ReplaceItems: expected ErrValidation over the batch limit, got %v", err)
	}

	// Empty adds and removes are no-ops with no network traffic.
	if err := client.AddItems(context.Background(), "pl", nil); err != nil {
		t.Errorf("empty AddItems should be a no-op, got %v", err)
	}
}

func TestSpotifyClientRemoveItemsBody(t *testing.T) {
	var body struct {
		Tracks []struct {
			URI string `json:"uri"`
		} `json:"tracks"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	uri := "spotify:track:4uLU6hMCjMI75M1A2tKUQC"
	if err := newTestClient(ts).RemoveItems(context.Background(), "pl", []string{uri}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(body.Tracks) != 1 || body.Tracks[0].URI != uri {
		t.Errorf("unexpected removal payload: %+v", body)
	}
}

func TestSpotifyClientPlaylistItems(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/playlists/pl/tracks":
			next := ts.URL + "/page2"
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"track": map[string]any{"uri": "spotify:track:aaaaaaaaaaaaaaaaaaaaaa"}},
				},
				"next": next,
			})
		case "/page2":
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"track": map[string]any{"uri": "spotify:track:bbbbbbbbbbbbbbbbbbbbbb"}},
				},
				"next": nil,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	uris, err := newTestClient(ts).PlaylistItems(context.Background(), "pl")
	if err != nil {
		t.Fatalf("playlist items failed: %v", err)
	}
	if len(uris) != 2 {
		t.Fatalf("expected 2 URIs across pages, got %d", len(uris))
	}
	if uris[0] != "spotify:track:aaaaaaaaaaaaaaaaaaaaaa" || uris[1] != "spotify:track:bbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("unexpected URIs: %v", uris)
	}
}

func TestSpotifyClientCatalog(t *testing.T) {
	t.Run("TrendingQueriesChartPlaylist", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := "/playlists/" + trendingPlaylistID + "/tracks"
			if r.URL.Path != want {
				t.Errorf("expected path %s, got %s", want, r.URL.Path)
			}
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit 10, got %q", got)
			}
			fmt.Fprint(w, `{"items":[
				{"track":{"id":"t1","uri":"spotify:track:t1","name":"One","artists":[{"name":"A"}]}},
				{"track":{"id":"t2","uri":"spotify:track:t2","name":"Two","artists":[{"name":"B"}]}}
			]}`)
		}))
		defer ts.Close()

		refs, err := newTestClient(ts).TrendingTracks(context.Background(), 0)
		if err != nil {
			t.Fatalf("trending failed: %v", err)
		}
		if len(refs) != 2 || refs[0].Name != "One" || refs[1].Artist != "B" {
			t.Errorf("unexpected refs %+v", refs)
		}
	})

	t.Run("GenresParsed", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/recommendations/available-genre-seeds" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			fmt.Fprint(w, `{"genres":["acoustic","ambient","blues"]}`)
		}))
		defer ts.Close()

		genres, err := newTestClient(ts).Genres(context.Background())
		if err != nil {
			t.Fatalf("genres failed: %v", err)
		}
		if len(genres) != 3 || genres[0] != "acoustic" {
			t.Errorf("unexpected genres %v", genres)
		}
	})

	t.Run("TrackInfoIncludesReleaseDate", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"id":"4uLU6hMCjMI75M1A2tKUQC",
				"name":"Never Gonna Give You Up",
				"artists":[{"name":"Rick Astley"}],
				"album":{"name":"Whenever You Need Somebody","release_date":"1987-11-16"}
			}`)
		}))
		defer ts.Close()

		info, err := newTestClient(ts).TrackInfo(context.Background(), "4uLU6hMCjMI75M1A2tKUQC")
		if err != nil {
			t.Fatalf("track info failed: %v", err)
		}
		if info.Artist != "Rick Astley" || info.ReleaseDate != "1987-11-16" {
			t.Errorf("unexpected info %+v", info)
		}
	})

	t.Run("AlbumInfoIncludesListing", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"id":"al1",
				"name":"Whenever You Need Somebody",
				"release_date":"1987-11-16",
				"artists":[{"name":"Rick Astley"}],
				"images":[{"url":"https://img.example/cover.jpg"}],
				"tracks":{"items":[
					{"name":"Never Gonna Give You Up","track_number":1},
					{"name":"Whenever You Need Somebody","track_number":2}
				]}
			}`)
		}))
		defer ts.Close()

		info, err := newTestClient(ts).AlbumInfo(context.Background(), "al1")
		if err != nil {
			t.Fatalf("album info failed: %v", err)
		}
		if info.CoverArt != "https://img.example/cover.jpg" {
			t.Errorf("unexpected cover art %q", info.CoverArt)
		}
		if len(info.Tracks) != 2 || info.Tracks[1].Number != 2 {
			t.Errorf("unexpected listing %+v", info.Tracks)
		}
	})
}

func TestSpotifyClientTopTracks(t *testing.T) {
	t.Run("RejectsUnknownRange", func(t *testing.T) {
		client := NewSpotifyClient(&staticTokens{token: "test-token"}, shared.NewLogger(io.Discard))
		if _, err := client.TopTracks(context.Background(), "all_time", 20); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("QueriesRange", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("time_range"); got != RangeLongTerm {
				t.Errorf("expected time_range %q, got %q", RangeLongTerm, got)
			}
			fmt.Fprint(w, `{"items":[{"id":"t1","uri":"spotify:track:t1","name":"One","artists":[{"name":"A"}]}]}`)
		}))
		defer ts.Close()

		refs, err := newTestClient(ts).TopTracks(context.Background(), RangeLongTerm, 20)
		if err != nil {
			t.Fatalf("top tracks failed: %v", err)
		}
		if len(refs) != 1 || refs[0].Artist != "A" {
			t.Errorf("unexpected refs %+v", refs)
		}
	})
}
