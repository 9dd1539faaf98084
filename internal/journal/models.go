// Package journal keeps a local SQLite record of the edits this client made
// and of speakers left behind by half-finished reassignments.
package journal

import "time"

// Entry kinds.
const (
	KindReassign      = "reassign"
	KindReassignAll   = "reassign-all"
	KindCreateSpeaker = "create-speaker"
	KindRenameSpeaker = "rename-speaker"
	KindDeleteSpeaker = "delete-speaker"
	KindMoveSpeaker   = "move-speaker"
	KindText          = "text"
	KindTitle         = "title"
	KindUpload        = "upload"
	KindDeleteConv    = "delete-conversation"
)

// Entry is one mutation attempt against the backend.
type Entry struct {
	ID             string
	Kind           string
	ConversationID string
	UtteranceID    string
	SpeakerID      string
	Detail         string
	Error          string
	CreatedAt      time.Time
}

// OK reports whether the mutation succeeded.
func (e Entry) OK() bool { return e.Error == "" }

// Orphan is a speaker created by a reassignment whose second step failed.
// It exists on the backend with no utterances.
type Orphan struct {
	ID             string
	SpeakerID      string
	Name           string
	ConversationID string
	UtteranceID    string
	Reason         string
	CreatedAt      time.Time
}
