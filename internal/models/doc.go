// Package models defines domain entities and persistence interfaces for the liked songs dashboard.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight structs mapped from the Spotify Web API
//   - [Track] : playable track with artists, album art and derived genres
//   - [SavedTrack] : a liked track paired with the time it was saved
//   - [Playlist] : playlist metadata with owner and collaborative flag
//   - [User] : the authenticated user's profile
//
// 2. Persistent Entities: database-backed models
//   - [Activity] : journal entry for a bulk add or remove
//
// Persistent entities implement the [Model] interface and are stored through a [Repository].
package models
