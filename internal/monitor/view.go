package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/session"
	"github.com/muurk/watering/internal/store"
	"github.com/muurk/watering/internal/ui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor).
			Background(ui.PrimaryColor).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor)

	onStyle      = lipgloss.NewStyle().Foreground(ui.SuccessColor).Bold(true)
	offStyle     = lipgloss.NewStyle().Foreground(ui.MutedColor)
	warnStyle    = lipgloss.NewStyle().Foreground(ui.WarningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(ui.ErrorColor)
	logTimeStyle = lipgloss.NewStyle().Foreground(ui.MutedColor)
)

// View implements tea.Model
func (m Model) View() string {
	sections := []string{m.renderHeader()}

	if m.pending {
		sections = append(sections, "  "+m.spinner.View()+" Contacting bridge at "+m.url)
	} else if m.info != nil {
		sections = append(sections, m.renderStatus(), m.renderSettings())
	}

	sections = append(sections,
		ui.PanelStyle(m.width).Render(m.log.View()),
		m.renderStatusLine(),
		m.help.View(m.keys),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("Watering bridge")
	state := offStyle.Render("unknown")
	version := ""
	if m.info != nil {
		state = renderState(m.info.State)
		if m.info.SoftwareVersion != "" {
			version = labelStyle.Render(" controller ") + m.info.SoftwareVersion
		}
		if m.info.SoftwareVersionControl != "" {
			version += labelStyle.Render(" bridge ") + m.info.SoftwareVersionControl
		}
	}
	return title + " " + labelStyle.Render(m.url) + "  " + state + version
}

func renderState(s session.State) string {
	switch s {
	case session.Connected:
		return onStyle.Render(s.String())
	case session.Connecting:
		return warnStyle.Render(s.String())
	default:
		return offStyle.Render(s.String())
	}
}

func (m Model) renderStatus() string {
	info := m.info
	st := info.Status

	var b strings.Builder
	if info.Port != "" {
		fmt.Fprintf(&b, "%s %s  %s %s -> %s\n",
			labelStyle.Render("Port"), info.Port,
			labelStyle.Render("Link"), info.AddressThis, info.AddressClient)
	}

	for i, ch := range st.Channels {
		marker := offStyle.Render(ui.OffMarker + " closed")
		if ch.On {
			marker = onStyle.Render(ui.OnMarker + " open  ")
		}
		fmt.Fprintf(&b, "%s %d %s %s\n",
			labelStyle.Render("Valve"), i+1, marker,
			labelStyle.Render(fmt.Sprintf("moisture %.2fV (%d)", ch.AdcVolt, ch.AdcRaw)))
	}

	fmt.Fprintf(&b, "%s %d%% %.2fV", labelStyle.Render("Battery"), st.Battery.Percent, st.Battery.Volt)
	if st.Temperature != nil {
		fmt.Fprintf(&b, "  %s %.1f°C", labelStyle.Render("Temperature"), *st.Temperature)
	}
	if st.Humidity != nil {
		fmt.Fprintf(&b, "  %s %.1f%%", labelStyle.Render("Humidity"), *st.Humidity)
	}
	if st.TempSwitchOn {
		fmt.Fprintf(&b, "  %s %s", labelStyle.Render("Temp switch"), onStyle.Render("on"))
	} else {
		fmt.Fprintf(&b, "  %s %s", labelStyle.Render("Temp switch"), offStyle.Render("off"))
	}

	return ui.PanelStyle(m.width).Render(b.String())
}

func (m Model) renderSettings() string {
	s := m.info.Settings
	if s == nil {
		return labelStyle.Render("  Settings not received yet (g to request)")
	}
	return "  " + labelStyle.Render("Settings ") + summarizeSettings(*s)
}

// summarizeSettings renders settings on one line.
func summarizeSettings(s protocol.Settings) string {
	var enabled []string
	for i, ch := range s.Channels {
		if ch.Enabled {
			enabled = append(enabled, fmt.Sprintf("%d:%ds@%d", i+1, ch.WateringTime, ch.AdcTriggerValue))
		}
	}
	if len(enabled) == 0 {
		enabled = []string{"none"}
	}

	parts := []string{
		"valves " + strings.Join(enabled, ","),
		fmt.Sprintf("check %ds", s.CheckInterval),
		fmt.Sprintf("temp %ds", s.TempSensorInterval),
	}
	if s.Push != nil && s.Push.Enabled {
		parts = append(parts, "push")
	}
	if s.TempSwitch != nil {
		parts = append(parts, fmt.Sprintf("switch %d°C ±%.1f", s.TempSwitch.TriggerValue, s.TempSwitch.Hysteresis()))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderStatusLine() string {
	switch {
	case m.lastErr != nil:
		return errorStyle.Render("  " + ui.FailureMarker + " " + m.lastErr.Error())
	case m.action != "":
		return labelStyle.Render("  " + m.action)
	default:
		return ""
	}
}

func renderLog(entries []store.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = logTimeStyle.Render(e.Time.Local().Format("15:04:05")) + " " + e.Text
	}
	return strings.Join(lines, "\n")
}
