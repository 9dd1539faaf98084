// Package snapshot holds the client's copies of backend conversation state:
// the open conversation and the conversation list.
//
// Both are immutable values behind atomic pointers. Writers build a new value
// and swap it in; readers take the pointer and never see it change.
package snapshot

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jwulff/speakerid/internal/api"
)

// ErrStale is returned when a refresh result belongs to a conversation that
// is no longer open.
var ErrStale = errors.New("snapshot: conversation is no longer open")

// ErrNoConversation is returned by patches when nothing is open.
var ErrNoConversation = errors.New("snapshot: no conversation open")

// ErrUnknownUtterance is returned when a patch names an utterance the
// snapshot does not contain.
var ErrUnknownUtterance = errors.New("snapshot: unknown utterance")

// Snapshot is one immutable version of the open conversation.
type Snapshot struct {
	Version      uint64
	Conversation api.Conversation
}

// Utterance returns the utterance with id.
func (s *Snapshot) Utterance(id api.ID) (api.Utterance, int, bool) {
	for i, u := range s.Conversation.Utterances {
		if u.ID == id {
			return u, i, true
		}
	}
	return api.Utterance{}, -1, false
}

// SpeakerIDs returns the distinct speaker ids in transcript order.
func (s *Snapshot) SpeakerIDs() []api.ID {
	seen := make(map[api.ID]bool)
	var ids []api.ID
	for _, u := range s.Conversation.Utterances {
		if !seen[u.SpeakerID] {
			seen[u.SpeakerID] = true
			ids = append(ids, u.SpeakerID)
		}
	}
	return ids
}

// List is one immutable version of the conversation list, newest first.
type List struct {
	Version       uint64
	Conversations []api.ConversationSummary
}

// Store owns the snapshots.
type Store struct {
	open atomic.Pointer[Snapshot]
	list atomic.Pointer[List]
	seq  atomic.Uint64

	// mu serializes navigation: target changes and the installs that
	// depend on it.
	mu     sync.Mutex
	target api.ID
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Current returns the open conversation, or nil.
func (s *Store) Current() *Snapshot {
	return s.open.Load()
}

// Target records the conversation the user navigated to. Only a load for
// the target can be installed. A different open conversation is dropped.
func (s *Store) Target(id api.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = id
	if cur := s.open.Load(); cur != nil && cur.Conversation.ID != id {
		s.open.Store(nil)
	}
}

// Load targets conv and installs it regardless of what was open.
func (s *Store) Load(conv api.Conversation) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = conv.ID
	return s.install(conv)
}

// Install sets conv as the open conversation if it is still the target.
// A load that finishes after the user moved on returns ErrStale.
func (s *Store) Install(conv api.Conversation) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target == "" || s.target != conv.ID {
		return nil, ErrStale
	}
	return s.install(conv), nil
}

func (s *Store) install(conv api.Conversation) *Snapshot {
	snap := &Snapshot{Version: s.seq.Add(1), Conversation: cloneConversation(conv)}
	s.open.Store(snap)
	return snap
}

// Refresh replaces the open conversation with an authoritative copy, but only
// if the same conversation is still open.
func (s *Store) Refresh(conv api.Conversation) (*Snapshot, error) {
	for {
		cur := s.open.Load()
		if cur == nil || cur.Conversation.ID != conv.ID {
			return nil, ErrStale
		}
		next := &Snapshot{Version: s.seq.Add(1), Conversation: cloneConversation(conv)}
		if s.open.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

// PatchText sets one utterance's text. This is the one incremental update
// of transcript content: a text edit touches exactly one field of one
// utterance, so a full reload would add nothing.
func (s *Store) PatchText(utteranceID api.ID, text string) (*Snapshot, error) {
	return s.patch(func(c *api.Conversation) error {
		for i := range c.Utterances {
			if c.Utterances[i].ID == utteranceID {
				c.Utterances[i].Text = text
				return nil
			}
		}
		return ErrUnknownUtterance
	})
}

// PatchTitle sets the open conversation's display name.
func (s *Store) PatchTitle(conversationID api.ID, title string) (*Snapshot, error) {
	return s.patch(func(c *api.Conversation) error {
		if c.ID != conversationID {
			return ErrStale
		}
		c.DisplayName = title
		return nil
	})
}

func (s *Store) patch(apply func(*api.Conversation) error) (*Snapshot, error) {
	for {
		cur := s.open.Load()
		if cur == nil {
			return nil, ErrNoConversation
		}
		conv := cloneConversation(cur.Conversation)
		if err := apply(&conv); err != nil {
			return nil, err
		}
		next := &Snapshot{Version: s.seq.Add(1), Conversation: conv}
		if s.open.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

// Close forgets the open conversation and the target.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = ""
	s.open.Store(nil)
}

// List returns the cached conversation list, or nil if never loaded.
func (s *Store) List() *List {
	return s.list.Load()
}

// ReplaceList installs a new conversation list sorted newest first.
func (s *Store) ReplaceList(convs []api.ConversationSummary) *List {
	sorted := make([]api.ConversationSummary, len(convs))
	copy(sorted, convs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt.Time)
	})
	l := &List{Version: s.seq.Add(1), Conversations: sorted}
	s.list.Store(l)
	return l
}

func cloneConversation(c api.Conversation) api.Conversation {
	out := c
	out.Utterances = make([]api.Utterance, len(c.Utterances))
	copy(out.Utterances, c.Utterances)
	return out
}
