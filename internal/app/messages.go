package app

import (
	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/journal"
	"github.com/jwulff/speakerid/internal/snapshot"
)

// BackendConnectedMsg is sent when the health probe succeeds.
type BackendConnectedMsg struct {
	Health api.Health
}

// BackendConnectErrorMsg is sent when the health probe fails.
type BackendConnectErrorMsg struct {
	Err error
}

// ReconnectTickMsg triggers another health probe.
type ReconnectTickMsg struct{}

// ConversationsLoadedMsg carries a refreshed conversation list.
type ConversationsLoadedMsg struct {
	List *snapshot.List
	Err  error
}

// SpeakersLoadedMsg reports a directory refresh. The roster itself lives in
// the directory cache.
type SpeakersLoadedMsg struct {
	Err error
}

// ConversationOpenedMsg carries the snapshot of a conversation the user
// navigated to.
type ConversationOpenedMsg struct {
	ID       api.ID
	Snapshot *snapshot.Snapshot
	Err      error
}

// SpeakerSavedMsg ends a speaker session's save.
type SpeakerSavedMsg struct {
	Field  edit.Field
	Result edit.SpeakerResult
}

// TextSavedMsg ends a text session's save.
type TextSavedMsg struct {
	Field    edit.Field
	Snapshot *snapshot.Snapshot
	Err      error
}

// TitleSavedMsg ends a title save.
type TitleSavedMsg struct {
	Snapshot *snapshot.Snapshot
	Err      error
}

// RosterDoneMsg ends a speaker roster operation.
type RosterDoneMsg struct {
	Message string
	Err     error
}

// ConversationDeletedMsg ends a conversation delete.
type ConversationDeletedMsg struct {
	ID  api.ID
	Err error
}

// PlaybackDoneMsg is sent when the player exits.
type PlaybackDoneMsg struct {
	Err error
}

// UploadProgressMsg reports bytes sent by an upload in flight.
type UploadProgressMsg struct {
	Progress api.Progress
}

// UploadDoneMsg ends an upload.
type UploadDoneMsg struct {
	Result api.UploadResult
	Err    error
}

// VectorLoadedMsg carries the vector index contents.
type VectorLoadedMsg struct {
	Speakers []api.VectorSpeaker
	Err      error
}

// VectorDoneMsg ends a vector index mutation.
type VectorDoneMsg struct {
	Message string
	Err     error
}

// HistoryLoadedMsg carries the edit journal.
type HistoryLoadedMsg struct {
	Entries []journal.Entry
	Orphans []journal.Orphan
	Err     error
}

// ClearToastMsg clears the toast it was scheduled for. Newer toasts have a
// higher seq and survive.
type ClearToastMsg struct {
	Seq int
}
