package edit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/journal"
)

// fakeBackend is an in-memory backend with the same batch semantics as the
// real one. fail maps a method name to the error it should return.
type fakeBackend struct {
	mu            sync.Mutex
	speakers      map[api.ID]api.Speaker
	conversations map[api.ID]api.Conversation
	nextID        int
	calls         []string
	fail          map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		speakers: map[api.ID]api.Speaker{
			"A": {ID: "A", Name: "Alice"},
			"B": {ID: "B", Name: "Bob"},
			"C": {ID: "C", Name: "Carol"},
		},
		conversations: map[api.ID]api.Conversation{
			"c1": {
				ID:          "c1",
				DisplayName: "Standup",
				Utterances: []api.Utterance{
					{ID: "u1", SpeakerID: "A", Text: "hello"},
					{ID: "u2", SpeakerID: "A", Text: "again"},
					{ID: "u3", SpeakerID: "B", Text: "hi"},
				},
			},
		},
		nextID: 100,
		fail:   map[string]error{},
	}
}

func (f *fakeBackend) enter(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.fail[name]
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeBackend) mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		switch c {
		case "ListSpeakers", "GetConversation", "ListConversations":
		default:
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) speakerOf(convID, uttID api.ID) api.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.conversations[convID].Utterances {
		if u.ID == uttID {
			return u.SpeakerID
		}
	}
	return ""
}

func (f *fakeBackend) ListSpeakers(ctx context.Context) ([]api.Speaker, error) {
	if err := f.enter("ListSpeakers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Speaker, 0, len(f.speakers))
	for _, sp := range f.speakers {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) CreateSpeaker(ctx context.Context, name string) (api.Speaker, error) {
	if err := f.enter("CreateSpeaker"); err != nil {
		return api.Speaker{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sp := api.Speaker{ID: api.ID(strconv.Itoa(f.nextID)), Name: name}
	f.speakers[sp.ID] = sp
	return sp, nil
}

func (f *fakeBackend) RenameSpeaker(ctx context.Context, id api.ID, name string) (api.Speaker, error) {
	if err := f.enter("RenameSpeaker"); err != nil {
		return api.Speaker{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.speakers[id]
	if !ok {
		return api.Speaker{}, &api.APIError{Status: 404, Detail: "Speaker not found"}
	}
	sp.Name = name
	f.speakers[id] = sp
	return sp, nil
}

func (f *fakeBackend) DeleteSpeaker(ctx context.Context, id api.ID) (api.DeleteResult, error) {
	if err := f.enter("DeleteSpeaker"); err != nil {
		return api.DeleteResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conv := range f.conversations {
		for _, u := range conv.Utterances {
			if u.SpeakerID == id {
				return api.DeleteResult{}, &api.APIError{Status: 400, Detail: "Speaker still has utterances"}
			}
		}
	}
	sp := f.speakers[id]
	delete(f.speakers, id)
	return api.DeleteResult{ID: id, Name: sp.Name}, nil
}

func (f *fakeBackend) ReassignAllUtterances(ctx context.Context, from, to api.ID) (api.BatchResult, error) {
	if err := f.enter("ReassignAllUtterances"); err != nil {
		return api.BatchResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, conv := range f.conversations {
		for i := range conv.Utterances {
			if conv.Utterances[i].SpeakerID == from {
				conv.Utterances[i].SpeakerID = to
				n++
			}
		}
		f.conversations[id] = conv
	}
	return api.BatchResult{FromSpeakerID: from, ToSpeakerID: to, UpdatedCount: n}, nil
}

func (f *fakeBackend) UpdateUtteranceSpeaker(ctx context.Context, id, speakerID api.ID) (api.UtteranceResult, error) {
	if err := f.enter("UpdateUtteranceSpeaker"); err != nil {
		return api.UtteranceResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for cid, conv := range f.conversations {
		for i := range conv.Utterances {
			if conv.Utterances[i].ID == id {
				conv.Utterances[i].SpeakerID = speakerID
				f.conversations[cid] = conv
				return api.UtteranceResult{ID: id}, nil
			}
		}
	}
	return api.UtteranceResult{}, &api.APIError{Status: 404, Detail: "Utterance not found"}
}

func (f *fakeBackend) UpdateUtteranceText(ctx context.Context, id api.ID, text string) (api.UtteranceResult, error) {
	if err := f.enter("UpdateUtteranceText"); err != nil {
		return api.UtteranceResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for cid, conv := range f.conversations {
		for i := range conv.Utterances {
			if conv.Utterances[i].ID == id {
				conv.Utterances[i].Text = text
				f.conversations[cid] = conv
				return api.UtteranceResult{ID: id}, nil
			}
		}
	}
	return api.UtteranceResult{}, &api.APIError{Status: 404, Detail: "Utterance not found"}
}

func (f *fakeBackend) ReassignConversationSpeaker(ctx context.Context, conversationID, from, to api.ID) (api.BatchResult, error) {
	if err := f.enter("ReassignConversationSpeaker"); err != nil {
		return api.BatchResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok {
		return api.BatchResult{}, &api.APIError{Status: 404, Detail: "Conversation not found"}
	}
	n := 0
	for i := range conv.Utterances {
		if conv.Utterances[i].SpeakerID == from {
			conv.Utterances[i].SpeakerID = to
			n++
		}
	}
	f.conversations[conversationID] = conv
	return api.BatchResult{FromSpeakerID: from, ToSpeakerID: to, UpdatedCount: n}, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, id api.ID) (api.Conversation, error) {
	if err := f.enter("GetConversation"); err != nil {
		return api.Conversation{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[id]
	if !ok {
		return api.Conversation{}, &api.APIError{Status: 404, Detail: "Conversation not found"}
	}
	out := conv
	out.Utterances = append([]api.Utterance(nil), conv.Utterances...)
	return out, nil
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]api.ConversationSummary, error) {
	if err := f.enter("ListConversations"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []api.ConversationSummary
	for _, conv := range f.conversations {
		out = append(out, api.ConversationSummary{ID: conv.ID, DisplayName: conv.DisplayName})
	}
	return out, nil
}

func (f *fakeBackend) RenameConversation(ctx context.Context, id api.ID, displayName string) (api.ConversationResult, error) {
	if err := f.enter("RenameConversation"); err != nil {
		return api.ConversationResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	conv := f.conversations[id]
	conv.DisplayName = displayName
	f.conversations[id] = conv
	return api.ConversationResult{ID: id, DisplayName: displayName}, nil
}

func (f *fakeBackend) DeleteConversation(ctx context.Context, id api.ID) error {
	if err := f.enter("DeleteConversation"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.conversations[id]; !ok {
		return &api.APIError{Status: 404, Detail: fmt.Sprintf("Conversation %s not found", id)}
	}
	delete(f.conversations, id)
	return nil
}

type memRecorder struct {
	entries []journal.Entry
	orphans []journal.Orphan
}

func (m *memRecorder) Record(ctx context.Context, e journal.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRecorder) RecordOrphan(ctx context.Context, o journal.Orphan) error {
	m.orphans = append(m.orphans, o)
	return nil
}
