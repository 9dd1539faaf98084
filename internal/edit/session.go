// Package edit implements inline editing of a conversation transcript:
// speaker reassignment, utterance text, and the conversation title.
//
// Each editable field has at most one Session. Sessions are values; every
// transition returns a new value and the caller stores it back in Sessions.
// Nothing in this package renders anything.
package edit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jwulff/speakerid/internal/api"
)

// Phase is the state of one field's edit.
type Phase int

const (
	// Viewing means no edit is open. Sessions never hold this phase; a
	// field in Viewing has no entry in Sessions.
	Viewing Phase = iota
	// Editing accepts input and may be submitted or cancelled.
	Editing
	// Saving has a request in flight. All input is ignored.
	Saving
)

func (p Phase) String() string {
	switch p {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Kind identifies what a session edits.
type Kind int

const (
	KindSpeaker Kind = iota
	KindText
	KindTitle
)

func (k Kind) String() string {
	switch k {
	case KindSpeaker:
		return "speaker"
	case KindText:
		return "text"
	case KindTitle:
		return "title"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is the key of an editable field. Title fields have no utterance.
type Field struct {
	Kind        Kind
	UtteranceID api.ID
}

// SpeakerField returns the speaker field of an utterance.
func SpeakerField(id api.ID) Field { return Field{Kind: KindSpeaker, UtteranceID: id} }

// TextField returns the text field of an utterance.
func TextField(id api.ID) Field { return Field{Kind: KindText, UtteranceID: id} }

// TitleField is the conversation title.
var TitleField = Field{Kind: KindTitle}

// Session is one open edit. The set of implementations is closed:
// SpeakerSession, TextSession, TitleSession.
type Session interface {
	Field() Field
	Phase() Phase
	isSession()
}

var (
	// ErrDirectoryEmpty is returned when a speaker edit is opened before the
	// speaker directory has loaded.
	ErrDirectoryEmpty = errors.New("speaker list not available")
	// ErrNoSpeakerChosen is a local validation failure.
	ErrNoSpeakerChosen = errors.New("no speaker selected")
	// ErrEmptySpeakerName is a local validation failure.
	ErrEmptySpeakerName = errors.New("new speaker name is empty")
	// ErrBusy is returned when input reaches a session that is saving.
	ErrBusy = errors.New("edit is saving")
	// ErrUnknownUtterance is returned when the open conversation has no
	// utterance with the requested id.
	ErrUnknownUtterance = errors.New("utterance not in open conversation")
	// ErrNoConversation is returned when an edit needs an open conversation.
	ErrNoConversation = errors.New("no conversation open")
)

// Message returns the text shown to the user for err: the server's detail
// when there is one, a fixed sentence for validation failures, and the error
// text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if detail, ok := api.Detail(err); ok {
		return detail
	}
	switch {
	case errors.Is(err, ErrNoSpeakerChosen):
		return `Please select a speaker or choose "Create New Speaker".`
	case errors.Is(err, ErrEmptySpeakerName):
		return "Please enter a name for the new speaker."
	case errors.Is(err, ErrDirectoryEmpty):
		return "Speaker list not available."
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return Message(stepErr.Err)
	}
	return err.Error()
}

// Sessions holds the open sessions of one conversation, keyed by field.
// It is owned by the UI goroutine.
type Sessions struct {
	open map[Field]Session
}

// NewSessions returns an empty set.
func NewSessions() *Sessions {
	return &Sessions{open: make(map[Field]Session)}
}

// Get returns the session for f.
func (s *Sessions) Get(f Field) (Session, bool) {
	sess, ok := s.open[f]
	return sess, ok
}

// Has reports whether f has an open session. Opening a field that already
// has one is a no-op, so callers check this before building a new session.
func (s *Sessions) Has(f Field) bool {
	_, ok := s.open[f]
	return ok
}

// Put stores sess under its field, replacing the previous value.
func (s *Sessions) Put(sess Session) {
	s.open[sess.Field()] = sess
}

// Close discards the session for f.
func (s *Sessions) Close(f Field) {
	delete(s.open, f)
}

// Reset discards every session.
func (s *Sessions) Reset() {
	clear(s.open)
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	return len(s.open)
}

// Fields returns the open fields in a stable order.
func (s *Sessions) Fields() []Field {
	fields := make([]Field, 0, len(s.open))
	for f := range s.open {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].UtteranceID != fields[j].UtteranceID {
			return fields[i].UtteranceID < fields[j].UtteranceID
		}
		return fields[i].Kind < fields[j].Kind
	})
	return fields
}

// Speaker returns the speaker session for an utterance.
func (s *Sessions) Speaker(id api.ID) (SpeakerSession, bool) {
	sess, ok := s.open[SpeakerField(id)].(SpeakerSession)
	return sess, ok
}

// Text returns the text session for an utterance.
func (s *Sessions) Text(id api.ID) (TextSession, bool) {
	sess, ok := s.open[TextField(id)].(TextSession)
	return sess, ok
}

// Title returns the title session.
func (s *Sessions) Title() (TitleSession, bool) {
	sess, ok := s.open[TitleField].(TitleSession)
	return sess, ok
}
