package edit

import (
	"strings"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/snapshot"
)

// TitleSession edits the open conversation's display name. There is one per
// conversation. Activating it again while editing saves.
type TitleSession struct {
	conversationID api.ID
	phase          Phase

	// Original is the title as displayed when the session opened.
	Original string
	Draft    string
	Err      string
}

// TitlePlan renames a conversation.
type TitlePlan struct {
	ConversationID api.ID
	Title          string
}

// OpenTitle starts a title edit. The original is the title as displayed,
// including the fallback for conversations with no display name.
func OpenTitle(snap *snapshot.Snapshot) (TitleSession, error) {
	if snap == nil {
		return TitleSession{}, ErrNoConversation
	}
	title := snap.Conversation.Title()
	return TitleSession{
		conversationID: snap.Conversation.ID,
		phase:          Editing,
		Original:       title,
		Draft:          title,
	}, nil
}

func (s TitleSession) Field() Field { return TitleField }
func (s TitleSession) Phase() Phase { return s.phase }
func (TitleSession) isSession() {}

// ConversationID returns the conversation being renamed.
func (s TitleSession) ConversationID() api.ID { return s.conversationID }

// SetDraft replaces the draft.
func (s TitleSession) SetDraft(title string) TitleSession {
	if s.phase != Editing {
		return s
	}
	s.Draft = title
	return s
}

// Activate is the second press of the title toggle. When the trimmed draft
// equals the original it reports save=false and the caller closes the
// session without a request. Otherwise the session moves to Saving.
func (s TitleSession) Activate() (next TitleSession, plan TitlePlan, save bool, err error) {
	if s.phase != Editing {
		return s, TitlePlan{}, false, ErrBusy
	}
	title := strings.TrimSpace(s.Draft)
	if title == s.Original {
		return s, TitlePlan{}, false, nil
	}
	s.phase = Saving
	s.Err = ""
	return s, TitlePlan{ConversationID: s.conversationID, Title: title}, true, nil
}

// Fail returns to Editing so the user can retry or revert by hand.
func (s TitleSession) Fail(err error) TitleSession {
	s.phase = Editing
	s.Err = Message(err)
	return s
}
