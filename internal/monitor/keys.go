package monitor

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	CheckNow     key.Binding
	Ping         key.Binding
	Poll         key.Binding
	GetSettings  key.Binding
	SaveSettings key.Binding
	GetVersion   key.Binding
	Pause        key.Binding
	Resume       key.Binding
	Channel      key.Binding
	TempSwitch   key.Binding
	Disconnect   key.Binding
	Refresh      key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CheckNow, k.Poll, k.Channel, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.CheckNow, k.Ping, k.Poll, k.GetVersion},
		{k.GetSettings, k.SaveSettings, k.Pause, k.Resume},
		{k.Channel, k.TempSwitch, k.Disconnect},
		{k.Refresh, k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		CheckNow: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "check now"),
		),
		Ping: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "ping"),
		),
		Poll: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "poll"),
		),
		GetSettings: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "get settings"),
		),
		SaveSettings: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "save settings"),
		),
		GetVersion: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "version"),
		),
		Pause: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "pause"),
		),
		Resume: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "resume"),
		),
		Channel: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "toggle valve"),
		),
		TempSwitch: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle temp switch"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "disconnect"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
