package edit

import (
	"fmt"
	"strings"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/directory"
	"github.com/jwulff/speakerid/internal/snapshot"
)

// ChoiceKind distinguishes the entries of the speaker picker.
type ChoiceKind int

const (
	// ChoiceNone is the "Assign speaker..." placeholder.
	ChoiceNone ChoiceKind = iota
	// ChoiceNew reveals the new-speaker name field.
	ChoiceNew
	// ChoiceSpeaker is an existing speaker.
	ChoiceSpeaker
)

// Choice is one picker entry.
type Choice struct {
	Kind      ChoiceKind
	SpeakerID api.ID
	Label     string
}

// Scope selects between the single-utterance update and the batch update.
type Scope int

const (
	ScopeSingle Scope = iota
	ScopeAll
)

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "single"
}

// SpeakerSession reassigns one utterance's speaker, optionally every
// utterance in the conversation with the same original speaker.
type SpeakerSession struct {
	utteranceID    api.ID
	conversationID api.ID
	phase          Phase

	// FromSpeakerID is the utterance's speaker when the session opened.
	FromSpeakerID api.ID
	// Options is the picker, frozen at open time.
	Options  []Choice
	Selected int
	NewName  string
	ApplyAll bool
	// Err is the inline error from the last failed submit.
	Err string
}

// OpenSpeaker starts a speaker edit for utteranceID. The directory must have
// loaded at least once; an empty picker is never offered.
func OpenSpeaker(dir *directory.Cache, snap *snapshot.Snapshot, utteranceID api.ID) (SpeakerSession, error) {
	if snap == nil {
		return SpeakerSession{}, ErrNoConversation
	}
	if dir.Len() == 0 {
		return SpeakerSession{}, ErrDirectoryEmpty
	}
	u, _, ok := snap.Utterance(utteranceID)
	if !ok {
		return SpeakerSession{}, fmt.Errorf("open speaker edit %s: %w", utteranceID, ErrUnknownUtterance)
	}

	s := SpeakerSession{
		utteranceID:    utteranceID,
		conversationID: snap.Conversation.ID,
		phase:          Editing,
		FromSpeakerID:  u.SpeakerID,
		Options: []Choice{
			{Kind: ChoiceNone, Label: "Assign speaker..."},
			{Kind: ChoiceNew, Label: "+ Create new speaker"},
		},
	}
	for _, sp := range dir.Speakers() {
		s.Options = append(s.Options, Choice{Kind: ChoiceSpeaker, SpeakerID: sp.ID, Label: sp.Name})
		if sp.ID == u.SpeakerID {
			s.Selected = len(s.Options) - 1
		}
	}
	return s, nil
}

func (s SpeakerSession) Field() Field { return SpeakerField(s.utteranceID) }
func (s SpeakerSession) Phase() Phase { return s.phase }
func (SpeakerSession) isSession() {}

// UtteranceID returns the edited utterance.
func (s SpeakerSession) UtteranceID() api.ID { return s.utteranceID }

// Choice returns the selected picker entry.
func (s SpeakerSession) Choice() Choice {
	if s.Selected < 0 || s.Selected >= len(s.Options) {
		return Choice{Kind: ChoiceNone}
	}
	return s.Options[s.Selected]
}

// CreatingNew reports whether the name field is shown.
func (s SpeakerSession) CreatingNew() bool {
	return s.Choice().Kind == ChoiceNew
}

// ApplyAllLabel names the original speaker for the scope checkbox.
func (s SpeakerSession) ApplyAllLabel(dir *directory.Cache) string {
	return fmt.Sprintf("Apply to all %s utterances in this conversation", dir.Lookup(s.FromSpeakerID))
}

// Move shifts the picker selection by delta, clamped to the options.
func (s SpeakerSession) Move(delta int) SpeakerSession {
	if s.phase != Editing {
		return s
	}
	s.Selected = min(max(s.Selected+delta, 0), len(s.Options)-1)
	return s
}

// Select picks the option at index i.
func (s SpeakerSession) Select(i int) SpeakerSession {
	if s.phase != Editing || i < 0 || i >= len(s.Options) {
		return s
	}
	s.Selected = i
	return s
}

// SetNewName updates the new-speaker name field.
func (s SpeakerSession) SetNewName(name string) SpeakerSession {
	if s.phase != Editing {
		return s
	}
	s.NewName = name
	return s
}

// ToggleApplyAll flips the scope checkbox.
func (s SpeakerSession) ToggleApplyAll() SpeakerSession {
	if s.phase != Editing {
		return s
	}
	s.ApplyAll = !s.ApplyAll
	return s
}

// ReassignPlan is everything RunReassign needs. CreateName is set when a
// speaker must be created first; TargetSpeakerID is set otherwise.
type ReassignPlan struct {
	ConversationID  api.ID
	UtteranceID     api.ID
	FromSpeakerID   api.ID
	TargetSpeakerID api.ID
	CreateName      string
	Scope           Scope
}

// Submit validates the session and moves it to Saving. Validation failures
// leave the session in Editing with Err set and return no plan.
func (s SpeakerSession) Submit() (SpeakerSession, ReassignPlan, error) {
	if s.phase != Editing {
		return s, ReassignPlan{}, ErrBusy
	}
	plan := ReassignPlan{
		ConversationID: s.conversationID,
		UtteranceID:    s.utteranceID,
		FromSpeakerID:  s.FromSpeakerID,
		Scope:          ScopeSingle,
	}
	switch c := s.Choice(); c.Kind {
	case ChoiceNone:
		s.Err = Message(ErrNoSpeakerChosen)
		return s, ReassignPlan{}, ErrNoSpeakerChosen
	case ChoiceNew:
		name := strings.TrimSpace(s.NewName)
		if name == "" {
			s.Err = Message(ErrEmptySpeakerName)
			return s, ReassignPlan{}, ErrEmptySpeakerName
		}
		plan.CreateName = name
	default:
		plan.TargetSpeakerID = c.SpeakerID
	}
	// The batch endpoint is keyed by conversation and original speaker, so
	// an utterance with no speaker can only be reassigned on its own.
	if s.ApplyAll && s.FromSpeakerID != "" && s.conversationID != "" {
		plan.Scope = ScopeAll
	}
	s.phase = Saving
	s.Err = ""
	return s, plan, nil
}

// Fail returns a saving session to Editing with the error shown inline.
// Selection, name and scope are kept so the user can retry.
func (s SpeakerSession) Fail(err error) SpeakerSession {
	s.phase = Editing
	s.Err = Message(err)
	return s
}
