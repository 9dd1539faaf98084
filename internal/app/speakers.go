package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/ui"
)

type rosterMode int

const (
	rosterBrowse rosterMode = iota
	rosterAdd
	rosterRename
	rosterMove
	rosterConfirmDelete
)

// rosterState is the speaker management view.
type rosterState struct {
	cursor int
	mode   rosterMode
	input  textinput.Model
	// target is the speaker being renamed, moved or deleted.
	target     api.Speaker
	moveCursor int
}

func newRosterState() rosterState {
	ti := textinput.New()
	ti.Placeholder = "Speaker name"
	ti.CharLimit = 100
	ti.Width = 40
	return rosterState{input: ti}
}

func (r *rosterState) clamp(n int) {
	r.cursor = min(r.cursor, max(0, n-1))
}

func (r rosterState) capturing() bool {
	return r.mode != rosterBrowse
}

func (r *rosterState) reset() {
	r.mode = rosterBrowse
	r.target = api.Speaker{}
	r.moveCursor = 0
	r.input.Reset()
	r.input.Blur()
}

// moveTargets lists every speaker except the one being moved.
func (m Model) moveTargets() []api.Speaker {
	var out []api.Speaker
	for _, sp := range m.ctrl.Directory().Speakers() {
		if sp.ID != m.roster.target.ID {
			out = append(out, sp)
		}
	}
	return out
}

func (m Model) selectedSpeaker() (api.Speaker, bool) {
	speakers := m.ctrl.Directory().Speakers()
	if m.roster.cursor >= len(speakers) {
		return api.Speaker{}, false
	}
	return speakers[m.roster.cursor], true
}

func (m Model) handleRosterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.roster.cursor > 0 {
			m.roster.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.roster.cursor < m.ctrl.Directory().Len()-1 {
			m.roster.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		return m, loadSpeakersCmd(m.ctx, m.ctrl)
	case key.Matches(msg, m.keys.Back):
		return m.switchView(ViewConversations)

	case key.Matches(msg, m.keys.Add):
		m.roster.mode = rosterAdd
		m.roster.input.Reset()
		return m, m.roster.input.Focus()

	case key.Matches(msg, m.keys.Rename):
		sp, ok := m.selectedSpeaker()
		if !ok {
			return m, nil
		}
		m.roster.mode = rosterRename
		m.roster.target = sp
		m.roster.input.SetValue(sp.Name)
		m.roster.input.CursorEnd()
		return m, m.roster.input.Focus()

	case key.Matches(msg, m.keys.Open):
		sp, ok := m.selectedSpeaker()
		if !ok || sp.UtteranceCount == 0 {
			return m, nil
		}
		m.roster.target = sp
		m.roster.mode = rosterMove
		m.roster.moveCursor = 0
		if len(m.moveTargets()) == 0 {
			m.roster.reset()
			return m, m.showToast(toastError, "No other speaker to move utterances to")
		}

	case key.Matches(msg, m.keys.Delete):
		sp, ok := m.selectedSpeaker()
		if !ok {
			return m, nil
		}
		m.roster.target = sp
		if sp.UtteranceCount > 0 {
			// The backend refuses the delete; offer the move instead.
			m.roster.mode = rosterMove
			m.roster.moveCursor = 0
			if len(m.moveTargets()) == 0 {
				m.roster.reset()
			}
			return m, m.showToast(toastError, fmt.Sprintf("%s still has %d utterances. Move them before deleting.", sp.Name, sp.UtteranceCount))
		}
		m.roster.mode = rosterConfirmDelete
	}
	return m, nil
}

func (m Model) handleRosterInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.roster.mode {
	case rosterAdd, rosterRename:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.roster.reset()
			return m, nil
		case key.Matches(msg, m.keys.Submit):
			name := strings.TrimSpace(m.roster.input.Value())
			if name == "" {
				return m, m.showToast(toastError, edit.Message(edit.ErrEmptySpeakerName))
			}
			mode, target := m.roster.mode, m.roster.target
			m.roster.reset()
			if mode == rosterAdd {
				return m, createSpeakerCmd(m.ctx, m.ctrl, name)
			}
			if name == target.Name {
				return m, nil
			}
			return m, renameSpeakerCmd(m.ctx, m.ctrl, target.ID, name)
		}
		var cmd tea.Cmd
		m.roster.input, cmd = m.roster.input.Update(msg)
		return m, cmd

	case rosterMove:
		targets := m.moveTargets()
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.roster.reset()
		case key.Matches(msg, m.keys.Up):
			if m.roster.moveCursor > 0 {
				m.roster.moveCursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.roster.moveCursor < len(targets)-1 {
				m.roster.moveCursor++
			}
		case key.Matches(msg, m.keys.Submit):
			if m.roster.moveCursor >= len(targets) {
				m.roster.reset()
				return m, nil
			}
			from, to := m.roster.target.ID, targets[m.roster.moveCursor].ID
			m.roster.reset()
			return m, moveUtterancesCmd(m.ctx, m.ctrl, from, to)
		}
		return m, nil

	case rosterConfirmDelete:
		id := m.roster.target.ID
		m.roster.reset()
		if key.Matches(msg, m.keys.Confirm) {
			return m, deleteSpeakerCmd(m.ctx, m.ctrl, id)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) rosterDone(msg RosterDoneMsg) (tea.Model, tea.Cmd) {
	m.roster.clamp(m.ctrl.Directory().Len())
	if msg.Err != nil {
		return m, m.showToast(toastError, edit.Message(msg.Err))
	}
	return m, m.showToast(toastSuccess, msg.Message)
}

func (m Model) renderRoster(width, height int) string {
	dir := m.ctrl.Directory()
	if !dir.Loaded() {
		return ui.DimStyle.Render("  Loading speakers...")
	}
	speakers := dir.Speakers()

	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("  Speakers (%d)", len(speakers))))

	switch m.roster.mode {
	case rosterAdd:
		lines = append(lines, "  New speaker: "+m.roster.input.View())
	case rosterRename:
		lines = append(lines, fmt.Sprintf("  Rename %s: %s", m.roster.target.Name, m.roster.input.View()))
	case rosterConfirmDelete:
		lines = append(lines, ui.ConfirmStyle.Render(fmt.Sprintf("  Delete %s? y/n", m.roster.target.Name)))
	}

	if len(speakers) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No speakers. Press a to add one."))
		return strings.Join(lines, "\n")
	}

	maxCount := 0
	for _, sp := range speakers {
		maxCount = max(maxCount, sp.UtteranceCount)
	}

	const barWidth = 16
	visible := max(1, height-len(lines)-1)
	start := 0
	if m.roster.cursor >= visible {
		start = m.roster.cursor - visible + 1
	}
	end := min(len(speakers), start+visible)

	for i := start; i < end; i++ {
		sp := speakers[i]
		marker := "  "
		if i == m.roster.cursor {
			marker = ui.SelectedStyle.Render("▸ ")
		}
		name := ui.SpeakerStyle(sp.ID.String()).Render(padRight(sp.Name, 24))
		stats := fmt.Sprintf("%5d utt  %8s  %3d conv", sp.UtteranceCount,
			formatDuration(time.Duration(sp.TotalDuration)*time.Millisecond), sp.ConversationCount)
		line := marker + name + " " + activityBar(sp.UtteranceCount, maxCount, barWidth) + " " + ui.DimStyle.Render(stats)
		if sp.PineconeSpeakerName != "" {
			line += ui.InfoTextStyle.Render("  ◆ " + sp.PineconeSpeakerName)
		}
		lines = append(lines, truncateToWidth(line, width))

		if m.roster.mode == rosterMove && sp.ID == m.roster.target.ID {
			lines = append(lines, m.renderMovePicker()...)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMovePicker() []string {
	lines := []string{ui.ConfirmStyle.Render(fmt.Sprintf("    Move all %d utterances of %s to:", m.roster.target.UtteranceCount, m.roster.target.Name))}
	for i, sp := range m.moveTargets() {
		if i == m.roster.moveCursor {
			lines = append(lines, "    "+ui.SelectedStyle.Render("› "+sp.Name))
		} else {
			lines = append(lines, "      "+sp.Name)
		}
	}
	lines = append(lines, ui.DimStyle.Render("    enter move · esc cancel"))
	return lines
}

// activityBar draws n relative to peak as a fixed-width bar.
func activityBar(n, peak, width int) string {
	filled := 0
	if peak > 0 {
		filled = n * width / peak
	}
	if n > 0 && filled == 0 {
		filled = 1
	}
	return ui.BarFilledStyle.Render(strings.Repeat("█", filled)) +
		ui.BarEmptyStyle.Render(strings.Repeat("░", width-filled))
}
