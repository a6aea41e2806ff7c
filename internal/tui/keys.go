package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	sync       key.Binding
	clearCache key.Binding
	info       key.Binding
	esc        key.Binding
	quit       key.Binding
}

var keys = keyMap{
	sync:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
	clearCache: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear cache")),
	info:       key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "build info")),
	esc:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.sync, k.clearCache, k.info, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
