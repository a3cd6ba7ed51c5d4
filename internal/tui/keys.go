package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Beginner     key.Binding
	Intermediate key.Binding
	Advanced     key.Binding
	Record       key.Binding
	Recognize    key.Binding
	Next         key.Binding
	Play         key.Binding
	Discard      key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Beginner:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "beginner")),
		Intermediate: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "intermediate")),
		Advanced:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "advanced")),
		Record:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
		Recognize:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "recognize")),
		Next:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Play:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		Discard:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "discard")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Recognize, k.Record, k.Next, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Beginner, k.Intermediate, k.Advanced},
		{k.Recognize, k.Record, k.Play, k.Discard},
		{k.Next, k.Help, k.Quit},
	}
}
