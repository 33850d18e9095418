package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Toggle       key.Binding
	Rename       key.Binding
	AddOperation key.Binding
	AddFiles     key.Binding
	Destination  key.Binding
	Subfolder    key.Binding
	Preview      key.Binding
	Remove       key.Binding
	Apply        key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AddOperation, k.AddFiles, k.Destination, k.Rename, k.Apply, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.AddOperation, k.AddFiles, k.Destination, k.Subfolder},
		{k.Rename, k.Preview, k.Remove},
		{k.Apply, k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:       key.NewBinding(key.WithKeys(" ", "tab"), key.WithHelp("space", "expand/collapse")),
		Rename:       key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "rename file")),
		AddOperation: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new operation")),
		AddFiles:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "add files")),
		Destination:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "destination")),
		Subfolder:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "subfolder")),
		Preview:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Remove:       key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		Apply:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "apply all")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
