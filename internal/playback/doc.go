// Package playback drives Spotify Connect playback for the dashboard.
//
// A [Controller] tracks which track is loaded and whether it is playing, and turns user
// commands into device API calls. Its view of the world comes from a [Bus]: the player
// publishes ready, not_ready, state_changed and error events, and state_changed is always
// treated as the source of truth for play/pause.
//
// [ConnectPlayer] is the player used outside the browser. It picks a Connect device, then
// polls the player state endpoint and publishes the changes it sees.
package playback
