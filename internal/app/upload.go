package app

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/ui"
)

const (
	uploadFieldPath = iota
	uploadFieldName
	uploadFieldMatch
	uploadFieldAuto
	uploadFieldCount
)

const thresholdStep = 0.05

// uploadState is the audio upload form and the upload in flight.
type uploadState struct {
	path  textinput.Model
	name  textinput.Model
	match float64
	auto  float64
	focus int

	running  bool
	ch       chan tea.Msg
	progress api.Progress
	lastID   api.ID
	err      string
}

func newUploadState(match, auto float64) uploadState {
	path := textinput.New()
	path.Placeholder = "/path/to/recording.wav"
	path.CharLimit = 1024
	path.Width = 60

	name := textinput.New()
	name.Placeholder = "Display name (optional)"
	name.CharLimit = 200
	name.Width = 60

	return uploadState{path: path, name: name, match: match, auto: auto}
}

// capturing reports whether a text input has the keyboard.
func (u uploadState) capturing() bool {
	return !u.running && (u.focus == uploadFieldPath || u.focus == uploadFieldName)
}

func (u *uploadState) focusCurrent() tea.Cmd {
	u.path.Blur()
	u.name.Blur()
	switch u.focus {
	case uploadFieldPath:
		return u.path.Focus()
	case uploadFieldName:
		return u.name.Focus()
	}
	return nil
}

func stepThreshold(v, delta float64) float64 {
	v = math.Round((v+delta)*100) / 100
	return min(1, max(0, v))
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	u := &m.upload
	if u.running {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		u.path.Blur()
		u.name.Blur()
		return m.switchView(ViewConversations)

	case key.Matches(msg, m.keys.NextField):
		u.focus = (u.focus + 1) % uploadFieldCount
		return m, u.focusCurrent()

	case key.Matches(msg, m.keys.PrevField):
		u.focus = (u.focus + uploadFieldCount - 1) % uploadFieldCount
		return m, u.focusCurrent()

	case key.Matches(msg, m.keys.SaveText), key.Matches(msg, m.keys.Submit):
		return m.startUpload()

	case u.focus == uploadFieldMatch && key.Matches(msg, m.keys.Left):
		u.match = stepThreshold(u.match, -thresholdStep)
		return m, nil
	case u.focus == uploadFieldMatch && key.Matches(msg, m.keys.Right):
		u.match = stepThreshold(u.match, thresholdStep)
		return m, nil
	case u.focus == uploadFieldAuto && key.Matches(msg, m.keys.Left):
		u.auto = stepThreshold(u.auto, -thresholdStep)
		return m, nil
	case u.focus == uploadFieldAuto && key.Matches(msg, m.keys.Right):
		u.auto = stepThreshold(u.auto, thresholdStep)
		return m, nil
	}

	var cmd tea.Cmd
	switch u.focus {
	case uploadFieldPath:
		u.path, cmd = u.path.Update(msg)
	case uploadFieldName:
		u.name, cmd = u.name.Update(msg)
	}
	return m, cmd
}

func (m Model) startUpload() (tea.Model, tea.Cmd) {
	u := &m.upload
	path := expandHome(strings.TrimSpace(u.path.Value()))
	if path == "" {
		return m, m.showToast(toastError, "Enter the path of an audio file")
	}
	info, err := os.Stat(path)
	if err != nil {
		return m, m.showToast(toastError, fmt.Sprintf("Cannot read %s: %v", path, err))
	}
	if info.IsDir() {
		return m, m.showToast(toastError, path+" is a directory")
	}

	req := api.UploadRequest{
		Path:                path,
		DisplayName:         strings.TrimSpace(u.name.Value()),
		MatchThreshold:      u.match,
		AutoUpdateThreshold: u.auto,
	}
	u.running = true
	u.err = ""
	u.progress = api.Progress{Total: info.Size()}
	u.path.Blur()
	u.name.Blur()
	u.ch = make(chan tea.Msg, 16)
	m.log.Info("upload started", "path", path, "size", info.Size())
	return m, tea.Batch(
		uploadCmd(m.ctx, m.backend, m.ctrl, req, u.ch),
		readUploadCmd(u.ch),
	)
}

func (m Model) uploadProgress(msg UploadProgressMsg) (tea.Model, tea.Cmd) {
	m.upload.progress = msg.Progress
	if m.upload.ch == nil {
		return m, nil
	}
	return m, readUploadCmd(m.upload.ch)
}

func (m Model) uploadDone(msg UploadDoneMsg) (tea.Model, tea.Cmd) {
	u := &m.upload
	u.running = false
	u.ch = nil
	if msg.Err != nil {
		u.err = edit.Message(msg.Err)
		return m, tea.Batch(m.showToast(toastError, "Upload failed: "+u.err), u.focusCurrent())
	}
	if !msg.Result.Success {
		u.err = msg.Result.Message
		return m, tea.Batch(m.showToast(toastError, "Processing failed: "+msg.Result.Message), u.focusCurrent())
	}

	u.lastID = msg.Result.ConversationID
	u.path.Reset()
	u.name.Reset()
	u.focus = uploadFieldPath
	toast := m.showToast(toastSuccess, "Conversation processed")

	m.busy += 2
	cmds := []tea.Cmd{toast, loadConversationsCmd(m.ctx, m.ctrl), loadSpeakersCmd(m.ctx, m.ctrl)}
	if m.view == ViewUpload && u.lastID != "" {
		next, cmd := m.openConversation(u.lastID)
		return next, tea.Batch(append(cmds, cmd)...)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) renderUpload(width int) string {
	u := m.upload
	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render("  Upload a recording"))
	lines = append(lines, "")

	label := func(field int, text string) string {
		if !u.running && u.focus == field {
			return ui.SelectedStyle.Render("▸ " + padRight(text, 22))
		}
		return "  " + padRight(text, 22)
	}
	lines = append(lines, label(uploadFieldPath, "Audio file")+u.path.View())
	lines = append(lines, label(uploadFieldName, "Display name")+u.name.View())
	lines = append(lines, label(uploadFieldMatch, "Match threshold")+thresholdSlider(u.match))
	lines = append(lines, label(uploadFieldAuto, "Auto-update threshold")+thresholdSlider(u.auto))
	lines = append(lines, "")

	switch {
	case u.running:
		lines = append(lines, "  "+uploadSteps(u.progress))
		lines = append(lines, "  "+progressBar(u.progress.Fraction(), min(50, max(10, width-20)))+
			ui.DimStyle.Render(fmt.Sprintf(" %s / %s", formatBytes(u.progress.Sent), formatBytes(u.progress.Total))))
		if u.progress.Total > 0 && u.progress.Sent >= u.progress.Total {
			lines = append(lines, "  "+m.spinner.View()+ui.DimStyle.Render(" transcribing and identifying speakers, this can take a while"))
		}
	case u.err != "":
		lines = append(lines, "  "+ui.ErrorTextStyle.Render(u.err))
	default:
		lines = append(lines, ui.DimStyle.Render("  tab next field · ←/→ adjust threshold · enter upload · esc back"))
	}
	return strings.Join(lines, "\n")
}

// uploadSteps marks the upload and processing phases.
func uploadSteps(p api.Progress) string {
	sent := p.Total > 0 && p.Sent >= p.Total
	upload := ui.PendingStyle.Render("● Uploading")
	process := ui.DimStyle.Render("○ Processing")
	if sent {
		upload = ui.SuccessTextStyle.Render("✓ Uploaded")
		process = ui.PendingStyle.Render("● Processing")
	}
	return upload + ui.DimStyle.Render("  →  ") + process + ui.DimStyle.Render("  →  ○ Done")
}

func thresholdSlider(v float64) string {
	const width = 20
	pos := int(math.Round(v * width))
	return ui.BarFilledStyle.Render(strings.Repeat("━", pos)) + "●" +
		ui.BarEmptyStyle.Render(strings.Repeat("─", width-pos)) + fmt.Sprintf(" %.2f", v)
}

func progressBar(frac float64, width int) string {
	filled := int(frac * float64(width))
	return ui.BarFilledStyle.Render(strings.Repeat("█", filled)) +
		ui.BarEmptyStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", frac*100)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
