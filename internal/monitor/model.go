package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/watering/internal/client"
	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/server"
	"github.com/muurk/watering/internal/store"
	"github.com/muurk/watering/internal/ui"
)

// Bridge is the part of the bridge API the monitor drives.
type Bridge interface {
	Info(ctx context.Context, since int) (*server.InfoResponse, error)
	Command(ctx context.Context, name string) error
	SetChannel(ctx context.Context, channel uint8, on bool) error
	SetTempSwitch(ctx context.Context, on bool) error
}

// DefaultRefreshInterval is how often the monitor polls getInfo.
const DefaultRefreshInterval = time.Second

const requestTimeout = 5 * time.Second

// Messages for async operations
type (
	tickMsg time.Time

	infoMsg struct {
		info  *server.InfoResponse
		err   error
		since int
		tick  bool // part of the periodic refresh chain
	}

	commandDoneMsg struct {
		name string
		err  error
	}
)

// Model is the Bubble Tea model of the monitor screen.
type Model struct {
	bridge  Bridge
	url     string
	refresh time.Duration

	info    *server.InfoResponse
	entries []store.Entry
	seen    int // log entries received so far
	lastErr error
	action  string // outcome of the last command
	pending bool   // waiting for the first getInfo

	width  int
	height int

	log     viewport.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// New creates a monitor for the bridge at url.
func New(bridge Bridge, url string, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = s.Style.Foreground(ui.PrimaryColor)

	width, height := ui.GetTerminalSize()
	m := Model{
		bridge:  bridge,
		url:     url,
		refresh: refresh,
		pending: true,
		width:   width,
		height:  height,
		log:     viewport.New(width-4, 8),
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.resize()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchInfo(true))
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ui.ClampWidth(msg.Width)
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, m.fetchInfo(true)

	case infoMsg:
		m.pending = false
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
			m.mergeInfo(msg.info, msg.since)
		}
		if !msg.tick {
			return m, nil
		}
		return m, tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })

	case commandDoneMsg:
		if msg.err != nil {
			m.action = fmt.Sprintf("%s failed: %v", msg.name, msg.err)
		} else {
			m.action = msg.name + " sent"
		}
		return m, m.fetchInfo(false)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchInfo(false)
	case key.Matches(msg, m.keys.CheckNow):
		return m, m.command(client.CmdCheckNow)
	case key.Matches(msg, m.keys.Ping):
		return m, m.command(client.CmdPing)
	case key.Matches(msg, m.keys.Poll):
		return m, m.command(client.CmdPoll)
	case key.Matches(msg, m.keys.GetSettings):
		return m, m.command(client.CmdGetSettings)
	case key.Matches(msg, m.keys.SaveSettings):
		return m, m.command(client.CmdSaveSettings)
	case key.Matches(msg, m.keys.GetVersion):
		return m, m.command(client.CmdGetVersion)
	case key.Matches(msg, m.keys.Pause):
		return m, m.command(client.CmdPause)
	case key.Matches(msg, m.keys.Resume):
		return m, m.command(client.CmdResume)
	case key.Matches(msg, m.keys.Disconnect):
		return m, m.command(client.CmdDisconnect)
	case key.Matches(msg, m.keys.Channel):
		ch := uint8(msg.String()[0] - '1')
		return m, m.toggleChannel(ch)
	case key.Matches(msg, m.keys.TempSwitch):
		return m, m.toggleTempSwitch()
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

// mergeInfo stores a getInfo response requested with since and appends its
// new log entries. An offset behind since means the bridge log is shorter
// than before, i.e. the bridge restarted, so the local log starts over.
// Responses to overlapping requests may repeat entries already seen; those
// are skipped.
func (m *Model) mergeInfo(info *server.InfoResponse, since int) {
	m.info = info
	if info.LogOffset < since {
		m.entries = nil
		m.seen = 0
		m.log.SetContent("")
	}

	if info.LogOffset > m.seen {
		// stale response from before a reset; the next refresh fills the gap
		return
	}
	entries := info.Log
	if skip := m.seen - info.LogOffset; skip > 0 {
		if skip >= len(entries) {
			return
		}
		entries = entries[skip:]
	}
	if len(entries) == 0 {
		return
	}

	atBottom := m.log.AtBottom()
	m.entries = append(m.entries, entries...)
	m.seen += len(entries)
	m.log.SetContent(renderLog(m.entries))
	if atBottom {
		m.log.GotoBottom()
	}
}

func (m *Model) resize() {
	// header, status panel, settings line, status line and help
	reserved := 14
	if m.help.ShowAll {
		reserved += 4
	}
	m.log.Width = m.width - 4
	m.log.Height = max(m.height-reserved, 3)
	m.help.Width = m.width
}

func (m Model) fetchInfo(tick bool) tea.Cmd {
	bridge, since := m.bridge, m.seen
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		info, err := bridge.Info(ctx, since)
		return infoMsg{info: info, err: err, since: since, tick: tick}
	}
}

func (m Model) command(name string) tea.Cmd {
	bridge := m.bridge
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return commandDoneMsg{name: name, err: bridge.Command(ctx, name)}
	}
}

func (m Model) toggleChannel(ch uint8) tea.Cmd {
	if int(ch) >= protocol.Channels {
		return nil
	}
	on := true
	if m.info != nil {
		on = !m.info.Status.Channels[ch].On
	}
	bridge := m.bridge
	name := fmt.Sprintf("valve %d %s", ch+1, onOff(on))
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return commandDoneMsg{name: name, err: bridge.SetChannel(ctx, ch, on)}
	}
}

func (m Model) toggleTempSwitch() tea.Cmd {
	on := true
	if m.info != nil {
		on = !m.info.Status.TempSwitchOn
	}
	bridge := m.bridge
	name := "temp switch " + onOff(on)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return commandDoneMsg{name: name, err: bridge.SetTempSwitch(ctx, on)}
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
