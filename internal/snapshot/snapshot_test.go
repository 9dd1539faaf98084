package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/speakerid/internal/api"
)

func conversation(id api.ID) api.Conversation {
	return api.Conversation{
		ID: id,
		Utterances: []api.Utterance{
			{ID: "u1", SpeakerID: "A", Text: "one"},
			{ID: "u2", SpeakerID: "A", Text: "two"},
			{ID: "u3", SpeakerID: "B", Text: "three"},
		},
	}
}

func TestLoadCopiesInput(t *testing.T) {
	s := New()
	conv := conversation("c1")
	snap := s.Load(conv)

	conv.Utterances[0].Text = "mutated"
	assert.Equal(t, "one", snap.Conversation.Utterances[0].Text)
	assert.Same(t, snap, s.Current())
}

func TestInstallOnlyForTarget(t *testing.T) {
	s := New()
	_, err := s.Install(conversation("c1"))
	assert.ErrorIs(t, err, ErrStale, "nothing targeted")

	s.Target("c1")
	s.Target("c2")
	_, err = s.Install(conversation("c1"))
	assert.ErrorIs(t, err, ErrStale, "user moved on to c2")
	assert.Nil(t, s.Current())

	snap, err := s.Install(conversation("c2"))
	require.NoError(t, err)
	assert.Same(t, snap, s.Current())

	s.Close()
	_, err = s.Install(conversation("c2"))
	assert.ErrorIs(t, err, ErrStale, "closed")
}

func TestRefreshRequiresSameConversation(t *testing.T) {
	s := New()
	_, err := s.Refresh(conversation("c1"))
	assert.ErrorIs(t, err, ErrStale, "nothing open")

	s.Load(conversation("c2"))
	_, err = s.Refresh(conversation("c1"))
	assert.ErrorIs(t, err, ErrStale, "different conversation open")
	assert.Equal(t, api.ID("c2"), s.Current().Conversation.ID)

	before := s.Current()
	fresh := conversation("c2")
	fresh.Utterances[2].SpeakerID = "C"
	snap, err := s.Refresh(fresh)
	require.NoError(t, err)
	assert.Greater(t, snap.Version, before.Version)
	assert.Equal(t, api.ID("B"), before.Conversation.Utterances[2].SpeakerID, "old snapshot is immutable")
	assert.Equal(t, api.ID("C"), s.Current().Conversation.Utterances[2].SpeakerID)
}

func TestPatchTextIsCopyOnWrite(t *testing.T) {
	s := New()
	before := s.Load(conversation("c1"))

	after, err := s.PatchText("u2", "edited")
	require.NoError(t, err)
	assert.Equal(t, "two", before.Conversation.Utterances[1].Text)
	assert.Equal(t, "edited", after.Conversation.Utterances[1].Text)
	assert.Equal(t, "one", after.Conversation.Utterances[0].Text)

	_, err = s.PatchText("nope", "x")
	assert.ErrorIs(t, err, ErrUnknownUtterance)
}

func TestPatchTitle(t *testing.T) {
	s := New()
	_, err := s.PatchTitle("c1", "x")
	assert.ErrorIs(t, err, ErrNoConversation)

	s.Load(conversation("c1"))
	snap, err := s.PatchTitle("c1", "Standup")
	require.NoError(t, err)
	assert.Equal(t, "Standup", snap.Conversation.DisplayName)

	_, err = s.PatchTitle("other", "x")
	assert.ErrorIs(t, err, ErrStale)
}

func TestSpeakerIDsInOrder(t *testing.T) {
	s := New()
	snap := s.Load(conversation("c1"))
	assert.Equal(t, []api.ID{"A", "B"}, snap.SpeakerIDs())

	u, idx, ok := snap.Utterance("u3")
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "three", u.Text)
}

func TestReplaceListSortsNewestFirst(t *testing.T) {
	s := New()
	now := time.Now()
	l := s.ReplaceList([]api.ConversationSummary{
		{ID: "old", CreatedAt: api.Timestamp{Time: now.Add(-time.Hour)}},
		{ID: "new", CreatedAt: api.Timestamp{Time: now}},
	})
	require.Len(t, l.Conversations, 2)
	assert.Equal(t, api.ID("new"), l.Conversations[0].ID)
	assert.Same(t, l, s.List())
}

func TestClose(t *testing.T) {
	s := New()
	s.Load(conversation("c1"))
	s.Close()
	assert.Nil(t, s.Current())
}
