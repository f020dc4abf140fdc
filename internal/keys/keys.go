package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down       key.Binding
	Up         key.Binding
	SwitchPane key.Binding

	// Board actions
	Grab     key.Binding
	Toggle   key.Binding
	Edit     key.Binding
	New      key.Binding
	Delete   key.Binding
	Unplace  key.Binding
	Export   key.Binding
	Theme    key.Binding
	Settings key.Binding

	// Priority filters
	FilterHigh   key.Binding
	FilterMedium key.Binding
	FilterLow    key.Binding
	FilterAll    key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		SwitchPane: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "pool/schedule"),
		),
		Grab: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "grab/drop"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "toggle done"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Unplace: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "back to pool"),
		),
		Export: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export day"),
		),
		Theme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "next theme"),
		),
		Settings: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "settings"),
		),
		FilterHigh: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "high only"),
		),
		FilterMedium: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "medium only"),
		),
		FilterLow: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "low only"),
		),
		FilterAll: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "all priorities"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back/cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.SwitchPane, k.Grab, k.Toggle, k.New,
		k.Edit, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchPane, k.Back, k.Quit},
		{k.Grab, k.Unplace, k.Toggle, k.Edit, k.New, k.Delete},
		{k.FilterHigh, k.FilterMedium, k.FilterLow, k.FilterAll},
		{k.Export, k.Theme, k.Settings, k.Command, k.Help},
	}
}
