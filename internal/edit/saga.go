package edit

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/directory"
)

// Backend is the part of the API client the edit flows use.
type Backend interface {
	directory.Lister
	CreateSpeaker(ctx context.Context, name string) (api.Speaker, error)
	RenameSpeaker(ctx context.Context, id api.ID, name string) (api.Speaker, error)
	DeleteSpeaker(ctx context.Context, id api.ID) (api.DeleteResult, error)
	ReassignAllUtterances(ctx context.Context, from, to api.ID) (api.BatchResult, error)
	UpdateUtteranceSpeaker(ctx context.Context, id, speakerID api.ID) (api.UtteranceResult, error)
	UpdateUtteranceText(ctx context.Context, id api.ID, text string) (api.UtteranceResult, error)
	ReassignConversationSpeaker(ctx context.Context, conversationID, from, to api.ID) (api.BatchResult, error)
	GetConversation(ctx context.Context, id api.ID) (api.Conversation, error)
	ListConversations(ctx context.Context) ([]api.ConversationSummary, error)
	RenameConversation(ctx context.Context, id api.ID, displayName string) (api.ConversationResult, error)
	DeleteConversation(ctx context.Context, id api.ID) error
}

// Step names one request of the reassignment sequence.
type Step string

const (
	StepCreateSpeaker Step = "create-speaker"
	StepReassign      Step = "reassign"
)

// StepError is a failed step. Created is the speaker made by an earlier
// step, if any; it is not rolled back and stays on the backend unused.
type StepError struct {
	Step    Step
	Created *api.Speaker
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Outcome describes a completed reassignment.
type Outcome struct {
	TargetSpeakerID api.ID
	Created         *api.Speaker
	Scope           Scope
	// Updated is the number of utterances the backend changed.
	Updated int
}

var errNoSpeakerID = errors.New("backend returned a speaker without an id")

// RunReassign issues the requests of plan strictly in order: create the
// speaker if asked, then the single or batch update. A step runs only if the
// previous one succeeded.
func RunReassign(ctx context.Context, b Backend, plan ReassignPlan) (Outcome, error) {
	out := Outcome{TargetSpeakerID: plan.TargetSpeakerID, Scope: plan.Scope}

	if plan.CreateName != "" {
		sp, err := b.CreateSpeaker(ctx, plan.CreateName)
		if err == nil && sp.ID == "" {
			err = errNoSpeakerID
		}
		if err != nil {
			return Outcome{}, &StepError{Step: StepCreateSpeaker, Err: err}
		}
		out.Created = &sp
		out.TargetSpeakerID = sp.ID
	}

	switch plan.Scope {
	case ScopeAll:
		res, err := b.ReassignConversationSpeaker(ctx, plan.ConversationID, plan.FromSpeakerID, out.TargetSpeakerID)
		if err != nil {
			return out, &StepError{Step: StepReassign, Created: out.Created, Err: err}
		}
		out.Updated = res.UpdatedCount
	default:
		if _, err := b.UpdateUtteranceSpeaker(ctx, plan.UtteranceID, out.TargetSpeakerID); err != nil {
			return out, &StepError{Step: StepReassign, Created: out.Created, Err: err}
		}
		out.Updated = 1
	}
	return out, nil
}
