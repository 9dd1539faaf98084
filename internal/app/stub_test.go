package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
)

// stubBackend is an in-memory Backend. fail maps a method name to the error
// it returns.
type stubBackend struct {
	mu            sync.Mutex
	speakers      map[api.ID]api.Speaker
	conversations map[api.ID]api.Conversation
	vector        []api.VectorSpeaker
	nextID        int
	calls         []string
	fail          map[string]error
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		speakers: map[api.ID]api.Speaker{
			"A": {ID: "A", Name: "Alice", UtteranceCount: 2},
			"B": {ID: "B", Name: "Bob", UtteranceCount: 1},
			"C": {ID: "C", Name: "Carol"},
		},
		conversations: map[api.ID]api.Conversation{
			"c1": {
				ID:          "c1",
				DisplayName: "Standup",
				Duration:    12.5,
				Utterances: []api.Utterance{
					{ID: "u1", SpeakerID: "A", Text: "hello", StartMS: 0, EndMS: 1200},
					{ID: "u2", SpeakerID: "A", Text: "again", StartMS: 1300, EndMS: 2500},
					{ID: "u3", SpeakerID: "B", Text: "hi", StartMS: 2600, EndMS: 3100},
				},
			},
		},
		vector: []api.VectorSpeaker{
			{Name: "Alice", Embeddings: []api.VectorEmbedding{{ID: "e1"}, {ID: "e2"}}},
		},
		nextID: 100,
		fail:   map[string]error{},
	}
}

func (s *stubBackend) enter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.fail[name]
}

func (s *stubBackend) called(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (s *stubBackend) Health(ctx context.Context) (api.Health, error) {
	if err := s.enter("Health"); err != nil {
		return api.Health{}, err
	}
	return api.Health{Status: "healthy"}, nil
}

func (s *stubBackend) ListSpeakers(ctx context.Context) ([]api.Speaker, error) {
	if err := s.enter("ListSpeakers"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Speaker, 0, len(s.speakers))
	for _, sp := range s.speakers {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubBackend) CreateSpeaker(ctx context.Context, name string) (api.Speaker, error) {
	if err := s.enter("CreateSpeaker"); err != nil {
		return api.Speaker{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sp := api.Speaker{ID: api.ID(strconv.Itoa(s.nextID)), Name: name}
	s.speakers[sp.ID] = sp
	return sp, nil
}

func (s *stubBackend) RenameSpeaker(ctx context.Context, id api.ID, name string) (api.Speaker, error) {
	if err := s.enter("RenameSpeaker"); err != nil {
		return api.Speaker{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.speakers[id]
	if !ok {
		return api.Speaker{}, &api.APIError{Status: 404, Detail: "Speaker not found"}
	}
	sp.Name = name
	s.speakers[id] = sp
	return sp, nil
}

func (s *stubBackend) DeleteSpeaker(ctx context.Context, id api.ID) (api.DeleteResult, error) {
	if err := s.enter("DeleteSpeaker"); err != nil {
		return api.DeleteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.speakers[id]
	if !ok {
		return api.DeleteResult{}, &api.APIError{Status: 404, Detail: "Speaker not found"}
	}
	delete(s.speakers, id)
	return api.DeleteResult{ID: id, Name: sp.Name}, nil
}

func (s *stubBackend) ReassignAllUtterances(ctx context.Context, from, to api.ID) (api.BatchResult, error) {
	if err := s.enter("ReassignAllUtterances"); err != nil {
		return api.BatchResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for cid, c := range s.conversations {
		for i, u := range c.Utterances {
			if u.SpeakerID == from {
				c.Utterances[i].SpeakerID = to
				n++
			}
		}
		s.conversations[cid] = c
	}
	return api.BatchResult{FromSpeakerID: from, ToSpeakerID: to, UpdatedCount: n}, nil
}

func (s *stubBackend) UpdateUtteranceSpeaker(ctx context.Context, id, speakerID api.ID) (api.UtteranceResult, error) {
	if err := s.enter("UpdateUtteranceSpeaker"); err != nil {
		return api.UtteranceResult{}, err
	}
	return s.updateUtterance(id, func(u *api.Utterance) { u.SpeakerID = speakerID })
}

func (s *stubBackend) UpdateUtteranceText(ctx context.Context, id api.ID, text string) (api.UtteranceResult, error) {
	if err := s.enter("UpdateUtteranceText"); err != nil {
		return api.UtteranceResult{}, err
	}
	return s.updateUtterance(id, func(u *api.Utterance) { u.Text = text })
}

func (s *stubBackend) updateUtterance(id api.ID, apply func(*api.Utterance)) (api.UtteranceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cid, c := range s.conversations {
		for i := range c.Utterances {
			if c.Utterances[i].ID == id {
				apply(&c.Utterances[i])
				u := c.Utterances[i]
				return api.UtteranceResult{ID: u.ID, SpeakerID: u.SpeakerID, Text: u.Text, ConversationID: cid}, nil
			}
		}
	}
	return api.UtteranceResult{}, &api.APIError{Status: 404, Detail: "Utterance not found"}
}

func (s *stubBackend) ReassignConversationSpeaker(ctx context.Context, conversationID, from, to api.ID) (api.BatchResult, error) {
	if err := s.enter("ReassignConversationSpeaker"); err != nil {
		return api.BatchResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conversations[conversationID]
	n := 0
	for i, u := range c.Utterances {
		if u.SpeakerID == from {
			c.Utterances[i].SpeakerID = to
			n++
		}
	}
	return api.BatchResult{UpdatedCount: n}, nil
}

func (s *stubBackend) GetConversation(ctx context.Context, id api.ID) (api.Conversation, error) {
	if err := s.enter("GetConversation"); err != nil {
		return api.Conversation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return api.Conversation{}, &api.APIError{Status: 404, Detail: "Conversation not found"}
	}
	out := c
	out.Utterances = append([]api.Utterance(nil), c.Utterances...)
	return out, nil
}

func (s *stubBackend) ListConversations(ctx context.Context) ([]api.ConversationSummary, error) {
	if err := s.enter("ListConversations"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []api.ConversationSummary
	for _, c := range s.conversations {
		out = append(out, api.ConversationSummary{
			ID:             c.ID,
			DisplayName:    c.DisplayName,
			Duration:       c.Duration,
			UtteranceCount: len(c.Utterances),
		})
	}
	return out, nil
}

func (s *stubBackend) RenameConversation(ctx context.Context, id api.ID, displayName string) (api.ConversationResult, error) {
	if err := s.enter("RenameConversation"); err != nil {
		return api.ConversationResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.conversations[id]
	c.DisplayName = displayName
	s.conversations[id] = c
	return api.ConversationResult{ID: id, DisplayName: displayName}, nil
}

func (s *stubBackend) DeleteConversation(ctx context.Context, id api.ID) error {
	if err := s.enter("DeleteConversation"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func (s *stubBackend) UploadConversation(ctx context.Context, req api.UploadRequest, progress api.ProgressFunc) (api.UploadResult, error) {
	if err := s.enter("UploadConversation"); err != nil {
		return api.UploadResult{}, err
	}
	progress(api.Progress{Sent: 5, Total: 10})
	progress(api.Progress{Sent: 10, Total: 10})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations["c2"] = api.Conversation{ID: "c2", DisplayName: req.DisplayName}
	return api.UploadResult{Success: true, ConversationID: "c2", Message: "ok"}, nil
}

func (s *stubBackend) ListVectorSpeakers(ctx context.Context) ([]api.VectorSpeaker, error) {
	if err := s.enter("ListVectorSpeakers"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.VectorSpeaker(nil), s.vector...), nil
}

func (s *stubBackend) AddVectorSpeaker(ctx context.Context, name, audioPath string) (api.EmbeddingResult, error) {
	if err := s.enter("AddVectorSpeaker"); err != nil {
		return api.EmbeddingResult{}, err
	}
	return api.EmbeddingResult{Success: true, SpeakerName: name, EmbeddingID: "new"}, nil
}

func (s *stubBackend) AddVectorEmbedding(ctx context.Context, name, audioPath string) (api.EmbeddingResult, error) {
	if err := s.enter("AddVectorEmbedding"); err != nil {
		return api.EmbeddingResult{}, err
	}
	return api.EmbeddingResult{Success: true, SpeakerName: name, EmbeddingID: "new"}, nil
}

func (s *stubBackend) DeleteVectorSpeaker(ctx context.Context, name string) (api.VectorDeleteResult, error) {
	if err := s.enter("DeleteVectorSpeaker"); err != nil {
		return api.VectorDeleteResult{}, err
	}
	return api.VectorDeleteResult{Success: true, SpeakerName: name, EmbeddingsDeleted: 2}, nil
}

func (s *stubBackend) DeleteVectorEmbedding(ctx context.Context, id string) (api.VectorDeleteResult, error) {
	if err := s.enter("DeleteVectorEmbedding"); err != nil {
		return api.VectorDeleteResult{}, err
	}
	return api.VectorDeleteResult{Success: true, EmbeddingID: id}, nil
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// newTestModel returns a connected model with the roster and the
// conversation list loaded.
func newTestModel(opts Options) (Model, *stubBackend) {
	b := newStubBackend()
	opts.Backend = b
	if opts.BaseURL == "" {
		opts.BaseURL = "http://backend.test"
	}
	m := New(opts)
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = update(m, BackendConnectedMsg{Health: api.Health{Status: "healthy"}})
	m, _ = update(m, loadSpeakersCmd(m.ctx, m.ctrl)())
	m, _ = update(m, loadConversationsCmd(m.ctx, m.ctrl)())
	return m, b
}

// openC1 navigates to the transcript of c1 and delivers the load.
func openC1(m Model) Model {
	next, cmd := m.openConversation("c1")
	m = next.(Model)
	m, _ = update(m, cmd())
	return m
}

func mustMsg[T tea.Msg](msg tea.Msg) T {
	v, ok := msg.(T)
	if !ok {
		panic(fmt.Sprintf("got %T, want %T", msg, v))
	}
	return v
}
