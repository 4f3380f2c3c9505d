package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tangotune/internal/model"
)

type keyMap struct {
	Answer key.Binding
	Play   key.Binding
	Next   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func newKeyMap(mode model.Mode) keyMap {
	k := keyMap{
		Answer: key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "answer")),
		Play:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play")),
		Next:   key.NewBinding(key.WithKeys("n", "enter"), key.WithHelp("n/enter", "next")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	if mode == model.ModeLearn {
		k.Answer.SetEnabled(false)
		k.Next.SetHelp("n/enter", "next song")
	}
	return k
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Answer, k.Next, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Answer, k.Play, k.Next}, {k.Help, k.Quit}}
}

func keyMatches(msg tea.KeyMsg, b key.Binding) bool {
	return key.Matches(msg, b)
}
