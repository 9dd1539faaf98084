package edit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/directory"
	"github.com/jwulff/speakerid/internal/snapshot"
)

type fixture struct {
	backend *fakeBackend
	dir     *directory.Cache
	snaps   *snapshot.Store
	rec     *memRecorder
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: newFakeBackend(),
		dir:     directory.New(),
		snaps:   snapshot.New(),
		rec:     &memRecorder{},
	}
	f.ctrl = NewController(f.backend, f.dir, f.snaps, f.rec, nil)
	f.snaps.Target("c1")
	_, err := f.ctrl.Reconciler().Open(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, f.dir.Loaded(), "opening a conversation loads the directory")
	f.backend.calls = nil
	return f
}

func speakerIndex(t *testing.T, s SpeakerSession, id api.ID) int {
	t.Helper()
	for i, c := range s.Options {
		if c.Kind == ChoiceSpeaker && c.SpeakerID == id {
			return i
		}
	}
	t.Fatalf("speaker %s not in picker", id)
	return -1
}

func TestOpenSpeakerRequiresDirectory(t *testing.T) {
	snaps := snapshot.New()
	snap := snaps.Load(api.Conversation{ID: "c1", Utterances: []api.Utterance{{ID: "u1", SpeakerID: "A"}}})

	_, err := OpenSpeaker(directory.New(), snap, "u1")
	assert.ErrorIs(t, err, ErrDirectoryEmpty)

	_, err = OpenSpeaker(directory.New(), nil, "u1")
	assert.ErrorIs(t, err, ErrNoConversation)
}

func TestOpenSpeakerPreselectsCurrent(t *testing.T) {
	f := newFixture(t)

	s, err := OpenSpeaker(f.dir, f.snaps.Current(), "u3")
	require.NoError(t, err)
	assert.Equal(t, Editing, s.Phase())
	assert.Equal(t, SpeakerField("u3"), s.Field())
	assert.Equal(t, ChoiceNone, s.Options[0].Kind)
	assert.Equal(t, ChoiceNew, s.Options[1].Kind)
	assert.Equal(t, api.ID("B"), s.Choice().SpeakerID)
	assert.Equal(t, api.ID("B"), s.FromSpeakerID)

	_, err = OpenSpeaker(f.dir, f.snaps.Current(), "missing")
	assert.ErrorIs(t, err, ErrUnknownUtterance)
}

func TestCancelLeavesSnapshotWithoutRequests(t *testing.T) {
	f := newFixture(t)
	snap := f.snaps.Current()
	sessions := NewSessions()

	sp, err := OpenSpeaker(f.dir, snap, "u1")
	require.NoError(t, err)
	sessions.Put(sp.Move(1).Select(1).SetNewName("Zed").ToggleApplyAll())

	tx, err := OpenText(snap, "u2")
	require.NoError(t, err)
	sessions.Put(tx.SetDraft("something else"))

	ti, err := OpenTitle(snap)
	require.NoError(t, err)
	sessions.Put(ti.SetDraft("Other"))

	for _, fld := range sessions.Fields() {
		sessions.Close(fld)
	}
	assert.Zero(t, sessions.Len())

	// Closed sessions render from the untouched snapshot.
	assert.Same(t, snap, f.snaps.Current())
	u1, _, _ := snap.Utterance("u1")
	u2, _, _ := snap.Utterance("u2")
	assert.Equal(t, "Alice", f.dir.DisplayName(u1))
	assert.Equal(t, "again", u2.Text)
	assert.Equal(t, "Standup", snap.Conversation.Title())
	assert.Empty(t, f.backend.calls)
}

func TestSubmitValidationIssuesNoRequest(t *testing.T) {
	f := newFixture(t)

	s, err := OpenSpeaker(f.dir, f.snaps.Current(), "u1")
	require.NoError(t, err)

	s = s.Select(0)
	s, _, err = s.Submit()
	assert.ErrorIs(t, err, ErrNoSpeakerChosen)
	assert.Equal(t, Editing, s.Phase())
	assert.Equal(t, `Please select a speaker or choose "Create New Speaker".`, s.Err)

	s = s.Select(1).SetNewName("   ")
	assert.True(t, s.CreatingNew())
	s, _, err = s.Submit()
	assert.ErrorIs(t, err, ErrEmptySpeakerName)
	assert.Equal(t, Editing, s.Phase())
	assert.Equal(t, "Please enter a name for the new speaker.", s.Err)

	assert.Empty(t, f.backend.calls)
}

func TestSavingIgnoresInput(t *testing.T) {
	f := newFixture(t)

	s, err := OpenSpeaker(f.dir, f.snaps.Current(), "u1")
	require.NoError(t, err)
	s = s.Select(speakerIndex(t, s, "C"))
	s, plan, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, Saving, s.Phase())
	assert.Equal(t, api.ID("C"), plan.TargetSpeakerID)

	frozen := s
	s = s.Move(-1).Select(1).SetNewName("x").ToggleApplyAll()
	assert.Equal(t, frozen.Selected, s.Selected)
	assert.Equal(t, frozen.NewName, s.NewName)
	assert.Equal(t, frozen.ApplyAll, s.ApplyAll)

	_, _, err = s.Submit()
	assert.ErrorIs(t, err, ErrBusy)

	tx, err := OpenText(f.snaps.Current(), "u1")
	require.NoError(t, err)
	tx, _, err = tx.Submit()
	require.NoError(t, err)
	assert.Equal(t, "hello", tx.SetDraft("changed").Draft)
	_, _, err = tx.Submit()
	assert.ErrorIs(t, err, ErrBusy)
}

func TestApplyAllScopeNeedsOriginalSpeaker(t *testing.T) {
	snaps := snapshot.New()
	snap := snaps.Load(api.Conversation{ID: "c9", Utterances: []api.Utterance{{ID: "u1"}}})
	dir := directory.New()
	dir.Replace([]api.Speaker{{ID: "A", Name: "Alice"}})

	s, err := OpenSpeaker(dir, snap, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Selected, "no current speaker leaves the placeholder selected")

	s = s.Select(2).ToggleApplyAll()
	_, plan, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, ScopeSingle, plan.Scope)
}

func TestSpeakerFailReturnsToEditing(t *testing.T) {
	f := newFixture(t)

	s, err := OpenSpeaker(f.dir, f.snaps.Current(), "u1")
	require.NoError(t, err)
	s = s.Select(1).SetNewName("Dana").ToggleApplyAll()
	s, _, err = s.Submit()
	require.NoError(t, err)

	s = s.Fail(&StepError{Step: StepCreateSpeaker, Err: &api.APIError{Status: 400, Detail: "Speaker already exists"}})
	assert.Equal(t, Editing, s.Phase())
	assert.Equal(t, "Speaker already exists", s.Err)
	assert.Equal(t, "Dana", s.NewName)
	assert.True(t, s.ApplyAll)
}

func TestTitleNoopWhenTrimmedUnchanged(t *testing.T) {
	f := newFixture(t)

	ti, err := OpenTitle(f.snaps.Current())
	require.NoError(t, err)
	ti = ti.SetDraft("  Standup \n")
	_, _, save, err := ti.Activate()
	require.NoError(t, err)
	assert.False(t, save)
	assert.Empty(t, f.backend.calls)
}

func TestTitleFallbackIsOriginal(t *testing.T) {
	snaps := snapshot.New()
	snap := snaps.Load(api.Conversation{ID: "0123456789abcdef"})

	ti, err := OpenTitle(snap)
	require.NoError(t, err)
	assert.Equal(t, api.ConversationTitle("0123456789abcdef", ""), ti.Original)
	_, _, save, err := ti.Activate()
	require.NoError(t, err)
	assert.False(t, save)
}

func TestSessionsOnePerField(t *testing.T) {
	f := newFixture(t)
	sessions := NewSessions()

	s, err := OpenSpeaker(f.dir, f.snaps.Current(), "u1")
	require.NoError(t, err)
	sessions.Put(s.Select(1))
	tx, err := OpenText(f.snaps.Current(), "u1")
	require.NoError(t, err)
	sessions.Put(tx)

	assert.Equal(t, 2, sessions.Len())
	assert.True(t, sessions.Has(SpeakerField("u1")))
	assert.False(t, sessions.Has(SpeakerField("u2")))

	got, ok := sessions.Speaker("u1")
	require.True(t, ok)
	assert.Equal(t, 1, got.Selected, "stored session is the one put last")

	assert.Equal(t, []Field{SpeakerField("u1"), TextField("u1")}, sessions.Fields())

	sessions.Close(SpeakerField("u1"))
	assert.False(t, sessions.Has(SpeakerField("u1")))
	sessions.Reset()
	assert.Zero(t, sessions.Len())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "nope", Message(&api.APIError{Status: 400, Detail: "nope"}))
	assert.Equal(t, "nope", Message(&StepError{Step: StepReassign, Err: &api.APIError{Status: 400, Detail: "nope"}}))
	assert.Equal(t, "Please enter a name for the new speaker.", Message(ErrEmptySpeakerName))
	assert.Equal(t, "Speaker list not available.", Message(ErrDirectoryEmpty))
}
