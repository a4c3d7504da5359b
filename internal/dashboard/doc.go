// Package dashboard holds the view-model behind the liked songs dashboard.
//
// A [Session] lives from a dashboard load until it is discarded. It owns the master list of
// liked songs, the selection (a set of master indices), the active [Filter], the editable
// playlists and a transient [StatusLine]. Rendering code reads from the session and event
// handlers mutate it; nothing here talks to the network.
//
// Selection is keyed by position in the master list rather than in the filtered view, so
// changing the filter never changes what is selected. Any structural change to the master
// list ([Session.Load], [Session.ApplyRemoval]) clears the selection.
package dashboard
