package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/ui"
)

var tabs = []View{ViewConversations, ViewSpeakers, ViewUpload, ViewVector, ViewHistory}

// View renders the whole screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	header := m.renderHeader()
	status := m.renderStatusBar()
	footer := m.renderFooter()
	toast := m.renderToast()

	chrome := lipgloss.Height(header) + lipgloss.Height(status) + lipgloss.Height(footer) + lipgloss.Height(toast) + 2
	height := max(3, m.height-chrome)

	var body string
	switch m.view {
	case ViewConversations:
		body = m.renderConversations(m.width, height)
	case ViewDetail:
		body = m.renderDetail(m.width, height)
	case ViewSpeakers:
		body = m.renderRoster(m.width, height)
	case ViewUpload:
		body = m.renderUpload(m.width)
	case ViewVector:
		body = m.renderVector(m.width, height)
	case ViewHistory:
		body = m.renderHistory(m.width, height)
	}
	body = lipgloss.NewStyle().Height(height).MaxHeight(height).Render(body)

	sections := []string{
		header,
		status,
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
		body,
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
		toast,
		footer,
	}
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	parts := []string{ui.TitleStyle.Render("SPEAKERID")}
	for i, v := range tabs {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.view || (v == ViewConversations && m.view == ViewDetail) {
			parts = append(parts, ui.TabActiveStyle.Render(label))
		} else {
			parts = append(parts, ui.TabStyle.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderStatusBar() string {
	var dot string
	switch {
	case m.connected:
		dot = ui.ConnectedDotStyle.Render("●") + ui.StatusStyle.Render(" "+m.baseURL)
	case m.reconnecting:
		dot = ui.DisconnectedDotStyle.Render("○") + ui.StatusStyle.Render(fmt.Sprintf(" %s unreachable, retrying (%s)", m.baseURL, m.connError))
	default:
		dot = ui.DisconnectedDotStyle.Render("○") + ui.StatusStyle.Render(" connecting to "+m.baseURL)
	}

	var activity string
	if m.busy > 0 || m.upload.running {
		activity = "  " + m.spinner.View()
	}
	if n := m.detail.sessions.Len(); n > 0 && m.view == ViewDetail {
		activity += ui.PendingStyle.Render(fmt.Sprintf("  %d open edits", n))
	}
	return truncate.StringWithTail(dot+activity, uint(m.width), "…")
}

func (m Model) renderToast() string {
	if m.toast == "" {
		return ""
	}
	var text string
	switch m.toastKind {
	case toastError:
		text = ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.toast)
	case toastSuccess:
		text = ui.SuccessTextStyle.Render(m.toast)
	default:
		text = ui.InfoTextStyle.Render(m.toast)
	}
	return truncate.StringWithTail(text, uint(m.width), "…")
}

func (m Model) renderFooter() string {
	return m.help.View(m.helpBindings())
}

// helpBindings lists the keys that are live in the current state.
func (m Model) helpBindings() bindings {
	k := m.keys
	switch {
	case m.view == ViewDetail && m.detail.focused:
		if m.detail.focus.Kind == edit.KindSpeaker {
			return bindings{k.Submit, k.ApplyAll, k.Park, k.Cancel}
		}
		return bindings{k.SaveText, k.Submit, k.Park, k.Cancel}
	case m.conversations.confirmDelete != "" || m.detail.confirmDelete:
		return bindings{k.Confirm, k.Deny}
	}

	global := []key.Binding{k.Help, k.Quit}
	switch m.view {
	case ViewConversations:
		return append(bindings{k.Up, k.Down, k.Open, k.Delete, k.Refresh}, global...)
	case ViewDetail:
		return append(bindings{k.Up, k.Down, k.EditSpeaker, k.EditText, k.EditTitle, k.Play, k.Delete, k.Refresh, k.Back}, global...)
	case ViewSpeakers:
		if m.roster.capturing() {
			return bindings{k.Submit, k.Cancel}
		}
		open := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "move utterances"))
		return append(bindings{k.Up, k.Down, k.Add, k.Rename, open, k.Delete, k.Refresh}, global...)
	case ViewUpload:
		return bindings{k.NextField, k.PrevField, k.Left, k.Right, k.Submit, k.Cancel}
	case ViewVector:
		if m.vector.capturing() {
			return bindings{k.Submit, k.Cancel}
		}
		return append(bindings{k.Up, k.Down, k.Add, k.AddSample, k.Delete, k.Refresh}, global...)
	case ViewHistory:
		return append(bindings{k.Up, k.Down, k.Delete, k.Refresh}, global...)
	}
	return global
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// formatMS renders a transcript offset as mm:ss.s.
func formatMS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	tenths := ms / 100
	return fmt.Sprintf("%02d:%02d.%d", tenths/600, (tenths/10)%60, tenths%10)
}

// formatSeconds renders a duration in seconds as m:ss or h:mm:ss.
func formatSeconds(s float64) string {
	return formatDuration(time.Duration(s * float64(time.Second)))
}

func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	h, mnt, sec := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, sec)
	}
	return fmt.Sprintf("%d:%02d", mnt, sec)
}

func formatDate(ts api.Timestamp) string {
	if ts.IsZero() {
		return "unknown date"
	}
	return ts.Local().Format("Jan 02 2006 15:04")
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
