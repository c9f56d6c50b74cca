package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Speak       key.Binding
	PauseResume key.Binding
	Stop        key.Binding
	Export      key.Binding
	Import      key.Binding
	Voices      key.Binding
	CopyPath    key.Binding
	SwitchFocus key.Binding

	// Prosody controls
	Up        key.Binding
	Down      key.Binding
	Decrease  key.Binding
	Increase  key.Binding
	Randomize key.Binding
	Reset     key.Binding

	Help key.Binding
	Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Speak:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "speak")),
		PauseResume: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "pause/resume")),
		Stop:        key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "stop")),
		Export:      key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export")),
		Import:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "import")),
		Voices:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "voices")),
		CopyPath:    key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy export path")),
		SwitchFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "text/controls")),

		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		Decrease:  key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/h", "decrease")),
		Increase:  key.NewBinding(key.WithKeys("right", "l", "+", "="), key.WithHelp("→/l", "increase")),
		Randomize: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "randomize")),
		Reset:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset")),

		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// setControlsFocused enables the bare-letter bindings only while the
// editor does not need them.
func (k *keyMap) setControlsFocused(on bool) {
	for _, b := range []*key.Binding{&k.Up, &k.Down, &k.Decrease, &k.Increase, &k.Randomize, &k.Reset, &k.Help} {
		b.SetEnabled(on)
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Speak, k.PauseResume, k.Stop, k.Export, k.SwitchFocus, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Speak, k.PauseResume, k.Stop, k.Export},
		{k.Import, k.Voices, k.CopyPath, k.SwitchFocus},
		{k.Up, k.Down, k.Decrease, k.Increase},
		{k.Randomize, k.Reset, k.Help, k.Quit},
	}
}
