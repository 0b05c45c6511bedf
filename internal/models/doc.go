// Package models defines domain entities and persistence interfaces for the mixtape playlist service.
//
// The package contains two categories of types:
//
// 1. Remote references: lightweight values describing Spotify-side data
//   - [RemoteTrackRef] : a resolved Spotify track (ID + URI)
//   - [RemotePlaylistRef] : a created Spotify playlist (ID + URL)
//
// 2. Persistent entities: database-backed rows with validation
//   - [User] : accounts owning playlists
//   - [Playlist] : locally curated playlists mirrored on Spotify via SpotifyID
//   - [Track] : playlist members carrying an optional SpotifyTrackID
//   - [Favorite] : per-user favorited tracks/albums keyed by Spotify ID
//   - [Rating] : one rating per (user, spotify track), upserted
//   - [Comment] : append-only track comments ordered by creation time
//
// Natural keys (username, playlist name, track name) are the identifiers
// callers supply; the uuid primary keys are internal.
package models
