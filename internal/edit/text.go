package edit

import (
	"fmt"
	"strings"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/snapshot"
)

// TextSession edits one utterance's text in place.
type TextSession struct {
	utteranceID api.ID
	phase       Phase

	// Draft is what the user has typed. It survives a failed save.
	Draft string
	Err   string
}

// TextPlan is the single update a text save issues.
type TextPlan struct {
	UtteranceID api.ID
	Text        string
}

// OpenText starts a text edit with the draft set to the current text.
func OpenText(snap *snapshot.Snapshot, utteranceID api.ID) (TextSession, error) {
	if snap == nil {
		return TextSession{}, ErrNoConversation
	}
	u, _, ok := snap.Utterance(utteranceID)
	if !ok {
		return TextSession{}, fmt.Errorf("open text edit %s: %w", utteranceID, ErrUnknownUtterance)
	}
	return TextSession{
		utteranceID: utteranceID,
		phase:       Editing,
		Draft:       u.Text,
	}, nil
}

func (s TextSession) Field() Field { return TextField(s.utteranceID) }
func (s TextSession) Phase() Phase { return s.phase }
func (TextSession) isSession() {}

// UtteranceID returns the edited utterance.
func (s TextSession) UtteranceID() api.ID { return s.utteranceID }

// SetDraft replaces the draft.
func (s TextSession) SetDraft(text string) TextSession {
	if s.phase != Editing {
		return s
	}
	s.Draft = text
	return s
}

// Submit moves the session to Saving. Surrounding whitespace is trimmed from
// the text sent; the draft itself is kept as typed.
func (s TextSession) Submit() (TextSession, TextPlan, error) {
	if s.phase != Editing {
		return s, TextPlan{}, ErrBusy
	}
	s.phase = Saving
	s.Err = ""
	return s, TextPlan{UtteranceID: s.utteranceID, Text: strings.TrimSpace(s.Draft)}, nil
}

// Fail returns to Editing with the unsaved draft intact.
func (s TextSession) Fail(err error) TextSession {
	s.phase = Editing
	s.Err = Message(err)
	return s
}
