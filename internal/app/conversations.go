package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/snapshot"
	"github.com/jwulff/speakerid/internal/ui"
)

type conversationsState struct {
	cursor int
	// confirmDelete is the conversation awaiting a y/n answer.
	confirmDelete api.ID
}

func (c *conversationsState) clamp(list *snapshot.List) {
	if list == nil {
		c.cursor = 0
		return
	}
	c.cursor = min(c.cursor, max(0, len(list.Conversations)-1))
}

func (m Model) selectedConversation() (api.ConversationSummary, bool) {
	list := m.ctrl.Snapshots().List()
	if list == nil || m.conversations.cursor >= len(list.Conversations) {
		return api.ConversationSummary{}, false
	}
	return list.Conversations[m.conversations.cursor], true
}

func (m Model) handleConversationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.conversations.cursor > 0 {
			m.conversations.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if list := m.ctrl.Snapshots().List(); list != nil && m.conversations.cursor < len(list.Conversations)-1 {
			m.conversations.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if c, ok := m.selectedConversation(); ok {
			return m.openConversation(c.ID)
		}
	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		return m, loadConversationsCmd(m.ctx, m.ctrl)
	case key.Matches(msg, m.keys.Delete):
		if c, ok := m.selectedConversation(); ok {
			m.conversations.confirmDelete = c.ID
		}
	}
	return m, nil
}

func (m Model) renderConversations(width, height int) string {
	list := m.ctrl.Snapshots().List()
	if list == nil {
		return ui.DimStyle.Render("  Loading conversations...")
	}
	if len(list.Conversations) == 0 {
		return ui.DimStyle.Render("  No conversations yet. Press 3 to upload one.")
	}

	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("  Conversations (%d)", len(list.Conversations))))

	visible := max(1, height-2)
	start := 0
	if m.conversations.cursor >= visible {
		start = m.conversations.cursor - visible + 1
	}
	end := min(len(list.Conversations), start+visible)

	for i := start; i < end; i++ {
		c := list.Conversations[i]
		marker := "  "
		title := c.Title()
		if i == m.conversations.cursor {
			marker = ui.SelectedStyle.Render("▸ ")
			title = ui.SelectedStyle.Render(title)
		}
		meta := fmt.Sprintf("%s  %s  %d speakers  %d utterances",
			formatDate(c.CreatedAt), formatSeconds(c.Duration), c.SpeakerCount, c.UtteranceCount)
		line := marker + padRight(title, 40) + " " + ui.DimStyle.Render(meta)
		if len(c.Speakers) > 0 {
			line += ui.DimStyle.Render("  " + strings.Join(c.Speakers, ", "))
		}
		lines = append(lines, truncateToWidth(line, width))
		if c.ID == m.conversations.confirmDelete {
			lines = append(lines, ui.ConfirmStyle.Render(fmt.Sprintf("    Delete %q? y/n", c.Title())))
		}
	}
	return strings.Join(lines, "\n")
}
