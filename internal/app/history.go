package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/journal"
	"github.com/jwulff/speakerid/internal/ui"
)

// historyState is the journal view. Rows are the orphaned speakers first,
// then the mutation log newest first.
type historyState struct {
	entries []journal.Entry
	orphans []journal.Orphan
	cursor  int
}

func (h historyState) rows() int {
	return len(h.orphans) + len(h.entries)
}

// OrphanClearedMsg ends the cleanup of an orphaned speaker.
type OrphanClearedMsg struct {
	Name string
	Err  error
}

// clearOrphanCmd deletes an orphaned speaker and drops it from the journal.
func clearOrphanCmd(ctx context.Context, ctrl *edit.Controller, h History, o journal.Orphan) tea.Cmd {
	return func() tea.Msg {
		if _, err := ctrl.DeleteSpeaker(ctx, api.ID(o.SpeakerID)); err != nil {
			return OrphanClearedMsg{Name: o.Name, Err: err}
		}
		return OrphanClearedMsg{Name: o.Name, Err: h.ForgetOrphan(ctx, o.SpeakerID)}
	}
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.journal.cursor > 0 {
			m.journal.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.journal.cursor < m.journal.rows()-1 {
			m.journal.cursor++
		}
	case key.Matches(msg, m.keys.Back):
		return m.switchView(ViewConversations)
	case key.Matches(msg, m.keys.Refresh):
		if m.history == nil {
			return m, nil
		}
		m.busy++
		return m, loadHistoryCmd(m.ctx, m.history)
	case key.Matches(msg, m.keys.Delete):
		if m.history == nil || m.journal.cursor >= len(m.journal.orphans) {
			return m, nil
		}
		return m, clearOrphanCmd(m.ctx, m.ctrl, m.history, m.journal.orphans[m.journal.cursor])
	}
	return m, nil
}

func (m Model) orphanCleared(msg OrphanClearedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.showToast(toastError, fmt.Sprintf("Could not remove %s: %s", msg.Name, edit.Message(msg.Err)))
	}
	m.busy++
	return m, tea.Batch(
		m.showToast(toastSuccess, fmt.Sprintf("Removed unused speaker %s", msg.Name)),
		loadHistoryCmd(m.ctx, m.history),
	)
}

func (m Model) renderHistory(width, height int) string {
	if m.history == nil {
		return ui.DimStyle.Render("  The edit journal is disabled.")
	}
	h := m.journal

	var lines []string
	cursorLine := 0
	row := 0
	mark := func() string {
		if row == h.cursor {
			cursorLine = len(lines)
			return ui.SelectedStyle.Render("▸ ")
		}
		return "  "
	}

	if len(h.orphans) > 0 {
		lines = append(lines, ui.ErrorStyle.Render(fmt.Sprintf("  Unassigned speakers (%d), d deletes", len(h.orphans))))
		for _, o := range h.orphans {
			line := mark() + ui.PendingStyle.Render(padRight(o.Name, 24)) +
				ui.DimStyle.Render(fmt.Sprintf(" %s  %s", o.CreatedAt.Local().Format("Jan 02 15:04"), o.Reason))
			lines = append(lines, truncateToWidth(line, width))
			row++
		}
		lines = append(lines, "")
	}

	lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("  Recent edits (%d)", len(h.entries))))
	if len(h.entries) == 0 {
		lines = append(lines, ui.DimStyle.Render("  Nothing yet."))
	}
	for _, e := range h.entries {
		status := ui.SuccessTextStyle.Render("✓")
		if !e.OK() {
			status = ui.ErrorTextStyle.Render("✗")
		}
		line := mark() + status + " " + ui.TimestampStyle.Render(e.CreatedAt.Local().Format("Jan 02 15:04:05")) +
			" " + padRight(e.Kind, 20) + " " + e.Detail
		if !e.OK() {
			line += " " + ui.ErrorTextStyle.Render(e.Error)
		}
		lines = append(lines, truncateToWidth(line, width))
		row++
	}

	visible := max(1, height)
	start := 0
	if cursorLine >= visible {
		start = cursorLine - visible + 1
	}
	end := min(len(lines), start+visible)
	return strings.Join(lines[start:end], "\n")
}
