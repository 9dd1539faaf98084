package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/snapshot"
	"github.com/jwulff/speakerid/internal/ui"
)

// detailState is the open conversation's transcript and its edit sessions.
type detailState struct {
	id      api.ID
	loadErr string
	cursor  int

	sessions *edit.Sessions
	// focused means keys go to the session at focus. A session that is
	// open but not focused keeps its draft until focused again.
	focused bool
	focus   edit.Field

	nameInput  textinput.Model
	textArea   textarea.Model
	titleInput textinput.Model

	playing       bool
	confirmDelete bool
}

func newDetailState() detailState {
	name := textinput.New()
	name.Placeholder = "New speaker name"
	name.CharLimit = 100

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(4)

	title := textinput.New()
	title.Placeholder = "Conversation title"
	title.CharLimit = 200

	return detailState{
		sessions:   edit.NewSessions(),
		nameInput:  name,
		textArea:   ta,
		titleInput: title,
	}
}

func (d *detailState) resize(width int) {
	w := max(20, width-12)
	d.nameInput.Width = w
	d.textArea.SetWidth(w)
	d.titleInput.Width = w
}

func (d *detailState) blur() {
	d.focused = false
	d.nameInput.Blur()
	d.textArea.Blur()
	d.titleInput.Blur()
}

// snapshot returns the open conversation if it is the one this view shows.
func (m Model) snapshot() *snapshot.Snapshot {
	snap := m.ctrl.Snapshots().Current()
	if snap == nil || snap.Conversation.ID != m.detail.id {
		return nil
	}
	return snap
}

// openConversation switches to the transcript of id.
func (m Model) openConversation(id api.ID) (tea.Model, tea.Cmd) {
	m.closeDetail()
	m.detail.id = id
	m.ctrl.Snapshots().Target(id)
	m.view = ViewDetail
	m.busy++
	return m, openConversationCmd(m.ctx, m.ctrl, id)
}

func (m *Model) closeDetail() {
	m.detail.sessions.Reset()
	m.detail.blur()
	m.detail.id = ""
	m.detail.loadErr = ""
	m.detail.cursor = 0
	m.detail.confirmDelete = false
	m.ctrl.Snapshots().Close()
}

// refreshConversationCmd reloads the open conversation without discarding
// its edit sessions.
func refreshConversationCmd(ctx context.Context, m Model) tea.Cmd {
	ctrl, id := m.ctrl, m.detail.id
	return func() tea.Msg {
		snap, err := ctrl.Reconciler().Conversation(ctx, id)
		return ConversationOpenedMsg{ID: id, Snapshot: snap, Err: err}
	}
}

func (m Model) conversationOpened(msg ConversationOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.ID != m.detail.id {
		return m, nil
	}
	if msg.Err != nil {
		if errors.Is(msg.Err, snapshot.ErrStale) {
			return m, nil
		}
		m.detail.loadErr = edit.Message(msg.Err)
		return m, m.failRequest(msg.Err)
	}
	m.detail.loadErr = ""
	m.clampCursor()
	return m, nil
}

func (m *Model) clampCursor() {
	snap := m.snapshot()
	if snap == nil {
		m.detail.cursor = 0
		return
	}
	m.detail.cursor = min(m.detail.cursor, max(0, len(snap.Conversation.Utterances)-1))
}

// selectedUtterance returns the utterance under the cursor.
func (m Model) selectedUtterance() (api.Utterance, bool) {
	snap := m.snapshot()
	if snap == nil || m.detail.cursor >= len(snap.Conversation.Utterances) {
		return api.Utterance{}, false
	}
	return snap.Conversation.Utterances[m.detail.cursor], true
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.switchView(ViewConversations)

	case key.Matches(msg, m.keys.Up):
		if m.detail.cursor > 0 {
			m.detail.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if snap := m.snapshot(); snap != nil && m.detail.cursor < len(snap.Conversation.Utterances)-1 {
			m.detail.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		return m, refreshConversationCmd(m.ctx, m)

	case key.Matches(msg, m.keys.EditSpeaker):
		u, ok := m.selectedUtterance()
		if !ok {
			return m, nil
		}
		f := edit.SpeakerField(u.ID)
		if !m.detail.sessions.Has(f) {
			s, err := edit.OpenSpeaker(m.ctrl.Directory(), m.snapshot(), u.ID)
			if err != nil {
				return m, m.showToast(toastError, edit.Message(err))
			}
			m.detail.sessions.Put(s)
		}
		return m, m.focusSession(f)

	case key.Matches(msg, m.keys.EditText):
		u, ok := m.selectedUtterance()
		if !ok {
			return m, nil
		}
		f := edit.TextField(u.ID)
		if !m.detail.sessions.Has(f) {
			s, err := edit.OpenText(m.snapshot(), u.ID)
			if err != nil {
				return m, m.showToast(toastError, edit.Message(err))
			}
			m.detail.sessions.Put(s)
		}
		return m, m.focusSession(f)

	case key.Matches(msg, m.keys.EditTitle):
		if !m.detail.sessions.Has(edit.TitleField) {
			s, err := edit.OpenTitle(m.snapshot())
			if err != nil {
				return m, m.showToast(toastError, edit.Message(err))
			}
			m.detail.sessions.Put(s)
		}
		return m, m.focusSession(edit.TitleField)

	case key.Matches(msg, m.keys.Play):
		u, ok := m.selectedUtterance()
		if !ok || m.detail.playing {
			return m, nil
		}
		if m.player == nil {
			return m, m.showToast(toastError, "No audio player configured")
		}
		m.detail.playing = true
		return m, playCmd(m.ctx, m.player, m.detail.id, u.ID)

	case key.Matches(msg, m.keys.Delete):
		if m.snapshot() != nil {
			m.detail.confirmDelete = true
		}
		return m, nil
	}
	return m, nil
}

// focusSession gives the keyboard to the session at f and loads its draft
// into the matching input.
func (m *Model) focusSession(f edit.Field) tea.Cmd {
	sess, ok := m.detail.sessions.Get(f)
	if !ok {
		return nil
	}
	m.detail.blur()
	m.detail.focused = true
	m.detail.focus = f

	switch s := sess.(type) {
	case edit.SpeakerSession:
		m.detail.nameInput.SetValue(s.NewName)
		m.detail.nameInput.CursorEnd()
		return m.detail.nameInput.Focus()
	case edit.TextSession:
		m.detail.textArea.SetValue(s.Draft)
		m.detail.textArea.CursorEnd()
		return m.detail.textArea.Focus()
	case edit.TitleSession:
		m.detail.titleInput.SetValue(s.Draft)
		m.detail.titleInput.CursorEnd()
		return m.detail.titleInput.Focus()
	}
	return nil
}

// handleEditKey feeds a key to the focused session. A saving session
// ignores everything.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.detail.focus
	sess, ok := m.detail.sessions.Get(f)
	if !ok {
		m.detail.blur()
		return m, nil
	}
	if sess.Phase() == edit.Saving {
		return m, nil
	}
	if key.Matches(msg, m.keys.Park) {
		m.detail.blur()
		return m, nil
	}

	switch s := sess.(type) {
	case edit.SpeakerSession:
		return m.handleSpeakerEditKey(s, msg)
	case edit.TextSession:
		return m.handleTextEditKey(s, msg)
	case edit.TitleSession:
		return m.handleTitleEditKey(s, msg)
	}
	return m, nil
}

func (m Model) handleSpeakerEditKey(s edit.SpeakerSession, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.detail.sessions.Close(s.Field())
		m.detail.blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		next, plan, err := s.Submit()
		m.detail.sessions.Put(next)
		if err != nil {
			return m, m.showToast(toastError, edit.Message(err))
		}
		m.detail.nameInput.Blur()
		return m, saveSpeakerCmd(m.ctx, m.ctrl, s.Field(), plan)

	case key.Matches(msg, m.keys.ApplyAll):
		m.detail.sessions.Put(s.ToggleApplyAll())
		return m, nil

	case msg.Type == tea.KeyUp:
		m.detail.sessions.Put(s.Move(-1))
		return m, nil

	case msg.Type == tea.KeyDown:
		m.detail.sessions.Put(s.Move(1))
		return m, nil
	}

	if !s.CreatingNew() {
		return m, nil
	}
	var cmd tea.Cmd
	m.detail.nameInput, cmd = m.detail.nameInput.Update(msg)
	m.detail.sessions.Put(s.SetNewName(m.detail.nameInput.Value()))
	return m, cmd
}

func (m Model) handleTextEditKey(s edit.TextSession, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.detail.sessions.Close(s.Field())
		m.detail.blur()
		return m, nil

	case key.Matches(msg, m.keys.SaveText):
		next, plan, err := s.Submit()
		m.detail.sessions.Put(next)
		if err != nil {
			return m, nil
		}
		m.detail.textArea.Blur()
		return m, saveTextCmd(m.ctx, m.ctrl, s.Field(), plan)
	}

	var cmd tea.Cmd
	m.detail.textArea, cmd = m.detail.textArea.Update(msg)
	m.detail.sessions.Put(s.SetDraft(m.detail.textArea.Value()))
	return m, cmd
}

func (m Model) handleTitleEditKey(s edit.TitleSession, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.detail.sessions.Close(edit.TitleField)
		m.detail.blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		next, plan, save, err := s.Activate()
		if err != nil {
			return m, nil
		}
		if !save {
			m.detail.sessions.Close(edit.TitleField)
			m.detail.blur()
			return m, nil
		}
		m.detail.sessions.Put(next)
		m.detail.titleInput.Blur()
		return m, saveTitleCmd(m.ctx, m.ctrl, plan)
	}

	var cmd tea.Cmd
	m.detail.titleInput, cmd = m.detail.titleInput.Update(msg)
	m.detail.sessions.Put(s.SetDraft(m.detail.titleInput.Value()))
	return m, cmd
}

// endSession closes a finished session and releases focus if it had it.
func (m *Model) endSession(f edit.Field) {
	m.detail.sessions.Close(f)
	if m.detail.focused && m.detail.focus == f {
		m.detail.blur()
	}
}

// refocusAfterFailure returns focus to a session whose save failed, if the
// user has not moved on to another one.
func (m *Model) refocusAfterFailure(f edit.Field) tea.Cmd {
	if m.detail.focused && m.detail.focus == f {
		return m.focusSession(f)
	}
	return nil
}

func (m Model) speakerSaved(msg SpeakerSavedMsg) (tea.Model, tea.Cmd) {
	res := msg.Result
	s, open := m.detail.sessions.Speaker(msg.Field.UtteranceID)

	if res.Err != nil {
		var cmds []tea.Cmd
		if open {
			m.detail.sessions.Put(s.Fail(res.Err))
			cmds = append(cmds, m.refocusAfterFailure(msg.Field))
		}
		text := "Failed to update speaker: " + edit.Message(res.Err)
		var stepErr *edit.StepError
		if errors.As(res.Err, &stepErr) && stepErr.Created != nil {
			text += fmt.Sprintf(" (speaker %q was created and is unassigned)", stepErr.Created.Name)
		}
		cmds = append(cmds, m.showToast(toastError, text))
		return m, tea.Batch(cmds...)
	}

	if open {
		m.endSession(msg.Field)
	}
	m.clampCursor()
	text := "Speaker updated"
	if res.Outcome.Scope == edit.ScopeAll {
		text = fmt.Sprintf("Speaker updated on %d utterances", res.Outcome.Updated)
	}
	if res.RefreshErr != nil && !errors.Is(res.RefreshErr, snapshot.ErrStale) {
		return m, m.showToast(toastError, text+", but reloading failed: "+edit.Message(res.RefreshErr))
	}
	return m, m.showToast(toastSuccess, text)
}

func (m Model) textSaved(msg TextSavedMsg) (tea.Model, tea.Cmd) {
	s, open := m.detail.sessions.Text(msg.Field.UtteranceID)
	if msg.Err != nil {
		var cmds []tea.Cmd
		if open {
			m.detail.sessions.Put(s.Fail(msg.Err))
			cmds = append(cmds, m.refocusAfterFailure(msg.Field))
		}
		cmds = append(cmds, m.showToast(toastError, "Failed to update text: "+edit.Message(msg.Err)))
		return m, tea.Batch(cmds...)
	}
	if open {
		m.endSession(msg.Field)
	}
	return m, m.showToast(toastSuccess, "Text updated")
}

func (m Model) titleSaved(msg TitleSavedMsg) (tea.Model, tea.Cmd) {
	s, open := m.detail.sessions.Title()
	if msg.Err != nil {
		var cmds []tea.Cmd
		if open {
			m.detail.sessions.Put(s.Fail(msg.Err))
			cmds = append(cmds, m.refocusAfterFailure(edit.TitleField))
		}
		cmds = append(cmds, m.showToast(toastError, "Failed to update title: "+edit.Message(msg.Err)))
		return m, tea.Batch(cmds...)
	}
	if open {
		m.endSession(edit.TitleField)
	}
	m.busy++
	return m, tea.Batch(
		m.showToast(toastSuccess, "Title updated"),
		loadConversationsCmd(m.ctx, m.ctrl),
	)
}

func (m Model) conversationDeleted(msg ConversationDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.showToast(toastError, "Failed to delete conversation: "+edit.Message(msg.Err))
	}
	if m.view == ViewDetail && m.detail.id == msg.ID {
		m.closeDetail()
		m.view = ViewConversations
	}
	m.conversations.clamp(m.ctrl.Snapshots().List())
	return m, m.showToast(toastSuccess, "Conversation deleted")
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.conversations.confirmDelete
	if m.view == ViewDetail {
		id = m.detail.id
	}
	m.conversations.confirmDelete = ""
	m.detail.confirmDelete = false
	if key.Matches(msg, m.keys.Confirm) && id != "" {
		return m, deleteConversationCmd(m.ctx, m.ctrl, id)
	}
	return m, nil
}

// renderDetail draws the title, summary and transcript with any open edit
// sessions inline.
func (m Model) renderDetail(width, height int) string {
	snap := m.snapshot()
	if snap == nil {
		if m.detail.loadErr != "" {
			return ui.ErrorTextStyle.Render("  " + m.detail.loadErr)
		}
		return ui.DimStyle.Render("  Loading conversation...")
	}
	conv := snap.Conversation
	dir := m.ctrl.Directory()

	var head []string
	head = append(head, m.renderTitle(conv))
	head = append(head, ui.DimStyle.Render(fmt.Sprintf("  %s · %d speakers · %d utterances · created %s",
		formatSeconds(conv.Duration), len(snap.SpeakerIDs()), len(conv.Utterances), formatDate(conv.CreatedAt))))
	if m.detail.confirmDelete {
		head = append(head, ui.ConfirmStyle.Render("  Delete this conversation? y/n"))
	}
	head = append(head, ui.DividerStyle.Render(strings.Repeat("─", width)))

	if len(conv.Utterances) == 0 {
		head = append(head, ui.DimStyle.Render("  No utterances."))
		return strings.Join(head, "\n")
	}

	const prefixWidth = 4
	textWidth := max(20, width-prefixWidth-2)
	var lines []string
	cursorLine := 0
	for i, u := range conv.Utterances {
		if i == m.detail.cursor {
			cursorLine = len(lines)
		}
		marker := "  "
		if i == m.detail.cursor {
			marker = ui.SelectedStyle.Render("▸ ")
		}
		label := ui.SpeakerStyle(u.SpeakerID.String()).Render(dir.DisplayName(u))
		if m.detail.sessions.Has(edit.SpeakerField(u.ID)) {
			label += ui.PendingStyle.Render(" ✎")
		}
		ts := ui.TimestampStyle.Render(fmt.Sprintf("[%s–%s]", formatMS(u.StartMS), formatMS(u.EndMS)))
		lines = append(lines, marker+ts+" "+label)

		if sess, ok := m.detail.sessions.Speaker(u.ID); ok {
			lines = append(lines, indent(m.renderSpeakerSession(sess), prefixWidth)...)
		}
		if sess, ok := m.detail.sessions.Text(u.ID); ok {
			lines = append(lines, indent(m.renderTextSession(sess), prefixWidth)...)
		} else {
			for _, wl := range strings.Split(wordwrap.String(u.Text, textWidth), "\n") {
				lines = append(lines, strings.Repeat(" ", prefixWidth)+wl)
			}
		}
	}

	visible := max(3, height-len(head))
	start := 0
	if cursorLine > visible/2 {
		start = min(cursorLine-visible/2, max(0, len(lines)-visible))
	}
	end := min(len(lines), start+visible)
	return strings.Join(append(head, lines[start:end]...), "\n")
}

func (m Model) renderTitle(conv api.Conversation) string {
	s, ok := m.detail.sessions.Title()
	if !ok {
		return ui.PanelTitleStyle.Render("  " + conv.Title())
	}
	var line string
	switch {
	case s.Phase() == edit.Saving:
		line = "  " + m.spinner.View() + " " + ui.PendingStyle.Render(strings.TrimSpace(s.Draft)) + ui.DimStyle.Render(" saving...")
	case m.detail.focused && m.detail.focus == edit.TitleField:
		line = "  " + m.detail.titleInput.View() + ui.DimStyle.Render("  enter save · esc cancel")
	default:
		line = "  " + ui.PendingStyle.Render(s.Draft) + ui.DimStyle.Render("  (editing, t to resume)")
	}
	if s.Err != "" {
		line += "\n  " + ui.ErrorTextStyle.Render(s.Err)
	}
	return line
}

func (m Model) renderSpeakerSession(s edit.SpeakerSession) string {
	focused := m.detail.focused && m.detail.focus == s.Field()
	var rows []string

	// Keep the picker short; show a window around the selection.
	const window = 7
	start := max(0, min(s.Selected-window/2, len(s.Options)-window))
	end := min(len(s.Options), start+window)
	if start > 0 {
		rows = append(rows, ui.DimStyle.Render("  ↑ more"))
	}
	for i := start; i < end; i++ {
		c := s.Options[i]
		label := c.Label
		if c.Kind == edit.ChoiceSpeaker {
			label = ui.SpeakerStyle(c.SpeakerID.String()).Render(label)
		}
		if i == s.Selected {
			rows = append(rows, ui.SelectedStyle.Render("› ")+label)
		} else {
			rows = append(rows, "  "+label)
		}
	}
	if end < len(s.Options) {
		rows = append(rows, ui.DimStyle.Render("  ↓ more"))
	}

	if s.CreatingNew() {
		if focused {
			rows = append(rows, m.detail.nameInput.View())
		} else {
			rows = append(rows, "> "+s.NewName)
		}
	}

	box := "[ ]"
	if s.ApplyAll {
		box = "[x]"
	}
	rows = append(rows, box+" "+s.ApplyAllLabel(m.ctrl.Directory()))

	if s.Err != "" {
		rows = append(rows, ui.ErrorTextStyle.Render(s.Err))
	}
	rows = append(rows, m.sessionFooter(s.Phase(), focused, "enter save · ctrl+a apply to all · esc cancel"))

	if s.Phase() == edit.Saving {
		return ui.SavingBoxStyle.Render(strings.Join(rows, "\n"))
	}
	return ui.EditBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderTextSession(s edit.TextSession) string {
	focused := m.detail.focused && m.detail.focus == s.Field()
	var rows []string
	if focused {
		rows = append(rows, m.detail.textArea.View())
	} else {
		rows = append(rows, ui.PendingStyle.Render(s.Draft))
	}
	if s.Err != "" {
		rows = append(rows, ui.ErrorTextStyle.Render(s.Err))
	}
	rows = append(rows, m.sessionFooter(s.Phase(), focused, "ctrl+s save · esc cancel"))

	if s.Phase() == edit.Saving {
		return ui.SavingBoxStyle.Render(strings.Join(rows, "\n"))
	}
	return ui.EditBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) sessionFooter(phase edit.Phase, focused bool, hint string) string {
	switch {
	case phase == edit.Saving:
		return m.spinner.View() + ui.DimStyle.Render(" saving...")
	case focused:
		return ui.DimStyle.Render(hint + " · ctrl+g leave open")
	}
	return ui.DimStyle.Render("open, select the line and press the edit key to resume")
}

func indent(block string, n int) []string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return lines
}
