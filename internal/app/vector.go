package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/ui"
)

type vectorMode int

const (
	vectorBrowse vectorMode = iota
	vectorAddName
	vectorAddPath
	vectorAddSample
	vectorConfirm
)

// vectorRow is one line of the index view: a speaker, or one of its
// samples when sampleID is set.
type vectorRow struct {
	speaker  string
	sampleID string
	samples  int
}

// vectorState is the voice index management view.
type vectorState struct {
	speakers []api.VectorSpeaker
	loaded   bool
	cursor   int

	mode    vectorMode
	input   textinput.Model
	name    string
	pending vectorRow
}

func newVectorState() vectorState {
	ti := textinput.New()
	ti.CharLimit = 1024
	ti.Width = 60
	return vectorState{input: ti}
}

func (v vectorState) capturing() bool {
	return v.mode != vectorBrowse
}

func (v *vectorState) reset() {
	v.mode = vectorBrowse
	v.name = ""
	v.pending = vectorRow{}
	v.input.Reset()
	v.input.Blur()
}

func (v vectorState) rows() []vectorRow {
	var rows []vectorRow
	for _, sp := range v.speakers {
		rows = append(rows, vectorRow{speaker: sp.Name, samples: len(sp.Embeddings)})
		for _, e := range sp.Embeddings {
			rows = append(rows, vectorRow{speaker: sp.Name, sampleID: e.ID})
		}
	}
	return rows
}

func (v vectorState) selected() (vectorRow, bool) {
	rows := v.rows()
	if v.cursor >= len(rows) {
		return vectorRow{}, false
	}
	return rows[v.cursor], true
}

func (m *Model) promptVector(mode vectorMode, placeholder string) tea.Cmd {
	m.vector.mode = mode
	m.vector.input.Reset()
	m.vector.input.Placeholder = placeholder
	return m.vector.input.Focus()
}

func (m Model) handleVectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.vector.cursor > 0 {
			m.vector.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.vector.cursor < len(m.vector.rows())-1 {
			m.vector.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		return m, loadVectorCmd(m.ctx, m.backend)
	case key.Matches(msg, m.keys.Back):
		return m.switchView(ViewConversations)
	case key.Matches(msg, m.keys.Add):
		return m, m.promptVector(vectorAddName, "Speaker name")
	case key.Matches(msg, m.keys.AddSample):
		row, ok := m.vector.selected()
		if !ok {
			return m, nil
		}
		m.vector.name = row.speaker
		return m, m.promptVector(vectorAddSample, "/path/to/sample.wav")
	case key.Matches(msg, m.keys.Delete):
		row, ok := m.vector.selected()
		if !ok {
			return m, nil
		}
		m.vector.pending = row
		m.vector.mode = vectorConfirm
	}
	return m, nil
}

func (m Model) handleVectorInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.vector.mode == vectorConfirm {
		row := m.vector.pending
		m.vector.reset()
		if !key.Matches(msg, m.keys.Confirm) {
			return m, nil
		}
		if row.sampleID != "" {
			return m, deleteVectorSampleCmd(m.ctx, m.backend, row.sampleID)
		}
		return m, deleteVectorSpeakerCmd(m.ctx, m.backend, row.speaker)
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.vector.reset()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		value := strings.TrimSpace(m.vector.input.Value())
		if value == "" {
			return m, nil
		}
		switch m.vector.mode {
		case vectorAddName:
			name := value
			cmd := m.promptVector(vectorAddPath, "/path/to/sample.wav")
			m.vector.name = name
			return m, cmd
		case vectorAddPath, vectorAddSample:
			path := expandHome(value)
			if _, err := os.Stat(path); err != nil {
				return m, m.showToast(toastError, fmt.Sprintf("Cannot read %s: %v", path, err))
			}
			mode, name := m.vector.mode, m.vector.name
			m.vector.reset()
			if mode == vectorAddPath {
				return m, addVectorSpeakerCmd(m.ctx, m.backend, name, path)
			}
			return m, addVectorSampleCmd(m.ctx, m.backend, name, path)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.vector.input, cmd = m.vector.input.Update(msg)
	return m, cmd
}

func (m Model) vectorLoaded(msg VectorLoadedMsg) (tea.Model, tea.Cmd) {
	m.busy = max(0, m.busy-1)
	if msg.Err != nil {
		return m, m.failRequest(msg.Err)
	}
	m.vector.speakers = msg.Speakers
	m.vector.loaded = true
	m.vector.cursor = min(m.vector.cursor, max(0, len(m.vector.rows())-1))
	return m, nil
}

func (m Model) vectorDone(msg VectorDoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.showToast(toastError, edit.Message(msg.Err))
	}
	m.busy++
	return m, tea.Batch(m.showToast(toastSuccess, msg.Message), loadVectorCmd(m.ctx, m.backend))
}

func (m Model) renderVector(width, height int) string {
	v := m.vector
	if !v.loaded {
		return ui.DimStyle.Render("  Loading voice index...")
	}

	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("  Voice index (%d speakers)", len(v.speakers))))
	switch v.mode {
	case vectorAddName:
		lines = append(lines, "  New index speaker: "+v.input.View())
	case vectorAddPath:
		lines = append(lines, fmt.Sprintf("  First sample for %s: %s", v.name, v.input.View()))
	case vectorAddSample:
		lines = append(lines, fmt.Sprintf("  New sample for %s: %s", v.name, v.input.View()))
	case vectorConfirm:
		what := fmt.Sprintf("%s and all its samples", v.pending.speaker)
		if v.pending.sampleID != "" {
			what = "sample " + v.pending.sampleID
		}
		lines = append(lines, ui.ConfirmStyle.Render(fmt.Sprintf("  Delete %s? y/n", what)))
	}

	rows := v.rows()
	if len(rows) == 0 {
		lines = append(lines, ui.DimStyle.Render("  The index is empty. Press a to add a speaker."))
		return strings.Join(lines, "\n")
	}

	visible := max(1, height-len(lines)-1)
	start := 0
	if v.cursor >= visible {
		start = v.cursor - visible + 1
	}
	end := min(len(rows), start+visible)
	for i := start; i < end; i++ {
		r := rows[i]
		marker := "  "
		if i == v.cursor {
			marker = ui.SelectedStyle.Render("▸ ")
		}
		var line string
		if r.sampleID == "" {
			line = marker + ui.PanelTitleStyle.Render(r.speaker) + ui.DimStyle.Render(fmt.Sprintf("  %d samples", r.samples))
		} else {
			line = marker + "   " + ui.DimStyle.Render("└ "+r.sampleID)
		}
		lines = append(lines, truncateToWidth(line, width))
	}
	return strings.Join(lines, "\n")
}
