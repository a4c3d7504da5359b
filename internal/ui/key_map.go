package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up           key.Binding
	down         key.Binding
	enter        key.Binding
	back         key.Binding
	yes          key.Binding
	no           key.Binding
	toggle       key.Binding
	selectAll    key.Binding
	clear        key.Binding
	titleFilter  key.Binding
	artistFilter key.Binding
	clearFilter  key.Binding
	playlist     key.Binding
	add          key.Binding
	remove       key.Binding
	genres       key.Binding
	pause        key.Binding
	next         key.Binding
	previous     key.Binding
	quit         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:           key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		selectAll:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "select visible")),
		clear:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear selection")),
		titleFilter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter title")),
		artistFilter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter artist")),
		clearFilter:  key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "clear filters")),
		playlist:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "choose playlist")),
		add:          key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to playlist")),
		remove:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove from liked")),
		genres:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "load genres")),
		pause:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play/pause")),
		next:         key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "next")),
		previous:     key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "previous")),
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.enter, k.add, k.remove, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle, k.selectAll, k.clear},
		{k.titleFilter, k.artistFilter, k.clearFilter, k.genres},
		{k.playlist, k.add, k.remove},
		{k.enter, k.pause, k.next, k.previous, k.quit},
	}
}
