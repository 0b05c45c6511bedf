// package formatter renders playlists and tracks for the terminal and
// exports them to CSV and Markdown.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/mixtape/internal/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	descStyle   = lipgloss.NewStyle().Faint(true)
	linkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	localStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	indexStyle  = lipgloss.NewStyle().Faint(true).Width(4).Align(lipgloss.Right)
	artistStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// PlaylistList renders the user's playlists as a styled terminal listing.
func PlaylistList(playlists []*models.Playlist) string {
	if len(playlists) == 0 {
		return descStyle.Render("No playlists yet.")
	}

	var b strings.Builder
	for i, p := range playlists {
		b.WriteString(indexStyle.Render(strconv.Itoa(i + 1) + "."))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(p.Name))
		b.WriteString(" ")
		b.WriteString(syncBadge(p.Linked()))
		if p.Description != "" {
			b.WriteString("\n     ")
			b.WriteString(descStyle.Render(p.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// TrackList renders a playlist's tracks in insertion order.
func TrackList(playlist *models.Playlist, tracks []*models.Track) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(playlist.Name))
	b.WriteString(" ")
	b.WriteString(syncBadge(playlist.Linked()))
	b.WriteString("\n")
	if playlist.Description != "" {
		b.WriteString(descStyle.Render(playlist.Description))
		b.WriteString("\n")
	}
	b.WriteString(descStyle.Render(fmt.Sprintf("%d tracks", len(tracks))))
	b.WriteString("\n\n")

	for i, t := range tracks {
		b.WriteString(indexStyle.Render(strconv.Itoa(i + 1) + "."))
		b.WriteString(" ")
		b.WriteString(artistStyle.Render(t.Artist))
		b.WriteString(" - ")
		b.WriteString(t.Name)
		if t.Album != "" {
			b.WriteString(descStyle.Render(" (" + t.Album + ")"))
		}
		b.WriteString(" ")
		b.WriteString(syncBadge(t.Linked()))
		b.WriteString("\n")
	}
	return b.String()
}

// RemotePlaylistList renders Spotify playlist references, URL included.
func RemotePlaylistList(refs []models.RemotePlaylistRef) string {
	if len(refs) == 0 {
		return descStyle.Render("Nothing featured right now.")
	}

	var b strings.Builder
	for i, ref := range refs {
		b.WriteString(indexStyle.Render(strconv.Itoa(i + 1) + "."))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(ref.Name))
		if ref.URL != "" {
			b.WriteString("\n     ")
			b.WriteString(descStyle.Render(ref.URL))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RemoteTrackList renders remote track references under a heading.
func RemoteTrackList(heading string, refs []models.RemoteTrackRef) string {
	if len(refs) == 0 {
		return descStyle.Render("Nothing to show.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")
	for i, ref := range refs {
		b.WriteString(indexStyle.Render(strconv.Itoa(i + 1) + "."))
		b.WriteString(" ")
		b.WriteString(artistStyle.Render(ref.Artist))
		b.WriteString(" - ")
		b.WriteString(ref.Name)
		if ref.Album != "" {
			b.WriteString(descStyle.Render(" (" + ref.Album + ")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// TrackInfo renders a single track's catalog metadata.
func TrackInfo(info *models.RemoteTrackInfo) string {
	var b strings.Builder
	b.WriteString(artistStyle.Render(info.Artist))
	b.WriteString(" - ")
	b.WriteString(titleStyle.Render(info.Name))
	b.WriteString("\n")
	if info.Album != "" {
		b.WriteString(descStyle.Render("Album: " + info.Album))
		b.WriteString("\n")
	}
	if info.ReleaseDate != "" {
		b.WriteString(descStyle.Render("Released: " + info.ReleaseDate))
		b.WriteString("\n")
	}
	return b.String()
}

// AlbumInfo renders an album's catalog metadata and track listing.
func AlbumInfo(info *models.RemoteAlbumInfo) string {
	var b strings.Builder
	b.WriteString(artistStyle.Render(info.Artist))
	b.WriteString(" - ")
	b.WriteString(titleStyle.Render(info.Name))
	b.WriteString("\n")
	if info.ReleaseDate != "" {
		b.WriteString(descStyle.Render("Released: " + info.ReleaseDate))
		b.WriteString("\n")
	}
	if info.CoverArt != "" {
		b.WriteString(descStyle.Render(info.CoverArt))
		b.WriteString("\n")
	}
	if len(info.Tracks) > 0 {
		b.WriteString("\n")
		for _, track := range info.Tracks {
			b.WriteString(indexStyle.Render(strconv.Itoa(track.Number) + "."))
			b.WriteString(" ")
			b.WriteString(track.Name)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func syncBadge(linked bool) string {
	if linked {
		return linkedStyle.Render("[synced]")
	}
	return localStyle.Render("[local]")
}

// ExportToCSV converts a playlist's tracks to CSV with columns: ID, Name, Artist, Album, SpotifyTrackID
func ExportToCSV(tracks []*models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "SpotifyTrackID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			track.SpotifyTrackID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist and its tracks to Markdown.
func ExportToMarkdown(playlist *models.Playlist, tracks []*models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", playlist.Description))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(tracks)))
	if playlist.Linked() {
		buf.WriteString(fmt.Sprintf("**Spotify**: https://open.spotify.com/playlist/%s\n", playlist.SpotifyID))
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, track.Artist, track.Name, albumPart))
	}

	return buf.Bytes()
}
