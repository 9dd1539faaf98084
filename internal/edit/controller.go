package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/directory"
	"github.com/jwulff/speakerid/internal/journal"
	"github.com/jwulff/speakerid/internal/snapshot"
)

// Recorder persists what the controller did. A nil Recorder records nothing.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
	RecordOrphan(ctx context.Context, o journal.Orphan) error
}

// Controller runs the network side of every edit: the requests a submitted
// session asks for, then the reconciliation that follows. Its methods block
// and are meant to run off the UI goroutine.
type Controller struct {
	backend Backend
	dir     *directory.Cache
	snap    *snapshot.Store
	recon   *Reconciler
	journal Recorder
	log     *slog.Logger
}

// NewController wires a controller. rec may be nil.
func NewController(b Backend, dir *directory.Cache, snap *snapshot.Store, rec Recorder, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		backend: b,
		dir:     dir,
		snap:    snap,
		recon:   NewReconciler(b, dir, snap, log),
		journal: rec,
		log:     log,
	}
}

// Directory returns the speaker directory.
func (c *Controller) Directory() *directory.Cache { return c.dir }

// Snapshots returns the snapshot store.
func (c *Controller) Snapshots() *snapshot.Store { return c.snap }

// Reconciler returns the reconciler.
func (c *Controller) Reconciler() *Reconciler { return c.recon }

// SpeakerResult is the end of a speaker save. Err is the failed step; when
// Err is nil the mutation landed and RefreshErr reports a failed reload.
type SpeakerResult struct {
	Outcome    Outcome
	Snapshot   *snapshot.Snapshot
	Err        error
	RefreshErr error
}

// SaveSpeaker runs the reassignment and, on success, reloads the directory
// and the whole conversation.
func (c *Controller) SaveSpeaker(ctx context.Context, plan ReassignPlan) SpeakerResult {
	out, err := RunReassign(ctx, c.backend, plan)

	if out.Created != nil {
		c.record(ctx, journal.Entry{
			Kind:           journal.KindCreateSpeaker,
			ConversationID: plan.ConversationID.String(),
			UtteranceID:    plan.UtteranceID.String(),
			SpeakerID:      out.Created.ID.String(),
			Detail:         out.Created.Name,
		})
	}
	kind := journal.KindReassign
	if plan.Scope == ScopeAll {
		kind = journal.KindReassignAll
	}
	var stepErr *StepError
	if err == nil || (errors.As(err, &stepErr) && stepErr.Step == StepReassign) {
		c.record(ctx, journal.Entry{
			Kind:           kind,
			ConversationID: plan.ConversationID.String(),
			UtteranceID:    plan.UtteranceID.String(),
			SpeakerID:      out.TargetSpeakerID.String(),
			Detail:         fmt.Sprintf("%s -> %s", plan.FromSpeakerID, out.TargetSpeakerID),
			Error:          errText(err),
		})
	} else {
		c.record(ctx, journal.Entry{
			Kind:           journal.KindCreateSpeaker,
			ConversationID: plan.ConversationID.String(),
			UtteranceID:    plan.UtteranceID.String(),
			Detail:         plan.CreateName,
			Error:          errText(err),
		})
	}

	if err != nil {
		if stepErr != nil && stepErr.Created != nil {
			c.log.Warn("created speaker left unassigned",
				"speaker", stepErr.Created.ID, "name", stepErr.Created.Name, "error", stepErr.Err)
			if c.journal != nil {
				if jerr := c.journal.RecordOrphan(ctx, journal.Orphan{
					SpeakerID:      stepErr.Created.ID.String(),
					Name:           stepErr.Created.Name,
					ConversationID: plan.ConversationID.String(),
					UtteranceID:    plan.UtteranceID.String(),
					Reason:         Message(stepErr.Err),
				}); jerr != nil {
					c.log.Warn("journal orphan failed", "error", jerr)
				}
			}
			// The roster did change even though the edit failed.
			if rerr := c.recon.Speakers(ctx); rerr != nil {
				c.log.Warn("speaker directory refresh failed", "error", rerr)
			}
		}
		return SpeakerResult{Err: err}
	}

	c.log.Info("speaker reassigned", "conversation", plan.ConversationID, "utterance", plan.UtteranceID,
		"scope", plan.Scope, "to", out.TargetSpeakerID, "updated", out.Updated)
	snap, rerr := c.recon.Conversation(ctx, plan.ConversationID)
	return SpeakerResult{Outcome: out, Snapshot: snap, RefreshErr: rerr}
}

// SaveText issues the text update and patches the open snapshot. The patch
// is skipped if the conversation was closed meanwhile.
func (c *Controller) SaveText(ctx context.Context, plan TextPlan) (*snapshot.Snapshot, error) {
	_, err := c.backend.UpdateUtteranceText(ctx, plan.UtteranceID, plan.Text)
	c.record(ctx, journal.Entry{
		Kind:        journal.KindText,
		UtteranceID: plan.UtteranceID.String(),
		Error:       errText(err),
	})
	if err != nil {
		return nil, err
	}
	snap, perr := c.snap.PatchText(plan.UtteranceID, plan.Text)
	if perr != nil {
		c.log.Debug("text saved for closed conversation", "utterance", plan.UtteranceID, "error", perr)
		return nil, nil
	}
	return snap, nil
}

// SaveTitle renames the conversation and patches the open snapshot. The
// caller refreshes the conversation list separately.
func (c *Controller) SaveTitle(ctx context.Context, plan TitlePlan) (*snapshot.Snapshot, error) {
	_, err := c.backend.RenameConversation(ctx, plan.ConversationID, plan.Title)
	c.record(ctx, journal.Entry{
		Kind:           journal.KindTitle,
		ConversationID: plan.ConversationID.String(),
		Detail:         plan.Title,
		Error:          errText(err),
	})
	if err != nil {
		return nil, err
	}
	snap, perr := c.snap.PatchTitle(plan.ConversationID, plan.Title)
	if perr != nil {
		c.log.Debug("title saved for closed conversation", "conversation", plan.ConversationID, "error", perr)
		return nil, nil
	}
	return snap, nil
}

// CreateSpeaker adds a speaker to the roster.
func (c *Controller) CreateSpeaker(ctx context.Context, name string) (api.Speaker, error) {
	sp, err := c.backend.CreateSpeaker(ctx, name)
	c.record(ctx, journal.Entry{Kind: journal.KindCreateSpeaker, SpeakerID: sp.ID.String(), Detail: name, Error: errText(err)})
	if err != nil {
		return api.Speaker{}, err
	}
	c.afterRosterChange(ctx)
	return sp, nil
}

// RenameSpeaker renames a speaker. Labels in the open conversation follow.
func (c *Controller) RenameSpeaker(ctx context.Context, id api.ID, name string) (api.Speaker, error) {
	sp, err := c.backend.RenameSpeaker(ctx, id, name)
	c.record(ctx, journal.Entry{Kind: journal.KindRenameSpeaker, SpeakerID: id.String(), Detail: name, Error: errText(err)})
	if err != nil {
		return api.Speaker{}, err
	}
	c.afterRosterChange(ctx)
	return sp, nil
}

// DeleteSpeaker deletes a speaker. The backend refuses while utterances
// still reference it.
func (c *Controller) DeleteSpeaker(ctx context.Context, id api.ID) (api.DeleteResult, error) {
	res, err := c.backend.DeleteSpeaker(ctx, id)
	c.record(ctx, journal.Entry{Kind: journal.KindDeleteSpeaker, SpeakerID: id.String(), Detail: res.Name, Error: errText(err)})
	if err != nil {
		return api.DeleteResult{}, err
	}
	c.afterRosterChange(ctx)
	return res, nil
}

// MoveUtterances reassigns every utterance of one speaker, across all
// conversations, to another.
func (c *Controller) MoveUtterances(ctx context.Context, from, to api.ID) (api.BatchResult, error) {
	res, err := c.backend.ReassignAllUtterances(ctx, from, to)
	c.record(ctx, journal.Entry{
		Kind:      journal.KindMoveSpeaker,
		SpeakerID: to.String(),
		Detail:    fmt.Sprintf("%s -> %s (%d)", from, to, res.UpdatedCount),
		Error:     errText(err),
	})
	if err != nil {
		return api.BatchResult{}, err
	}
	c.afterRosterChange(ctx)
	return res, nil
}

// DeleteConversation deletes a conversation and closes it if open.
func (c *Controller) DeleteConversation(ctx context.Context, id api.ID) error {
	err := c.backend.DeleteConversation(ctx, id)
	c.record(ctx, journal.Entry{Kind: journal.KindDeleteConv, ConversationID: id.String(), Error: errText(err)})
	if err != nil {
		return err
	}
	if cur := c.snap.Current(); cur != nil && cur.Conversation.ID == id {
		c.snap.Close()
	}
	if _, err := c.recon.Conversations(ctx); err != nil {
		c.log.Warn("conversation list refresh failed", "error", err)
	}
	return nil
}

// RecordUpload journals an upload started outside the controller.
func (c *Controller) RecordUpload(ctx context.Context, res api.UploadResult, name string, err error) {
	c.record(ctx, journal.Entry{
		Kind:           journal.KindUpload,
		ConversationID: res.ConversationID.String(),
		Detail:         name,
		Error:          errText(err),
	})
}

func (c *Controller) afterRosterChange(ctx context.Context) {
	if err := c.recon.Speakers(ctx); err != nil {
		c.log.Warn("speaker directory refresh failed", "error", err)
	}
	if _, err := c.recon.OpenConversation(ctx); err != nil && !errors.Is(err, snapshot.ErrStale) {
		c.log.Warn("conversation reload failed", "error", err)
	}
}

func (c *Controller) record(ctx context.Context, e journal.Entry) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(ctx, e); err != nil {
		c.log.Warn("journal write failed", "kind", e.Kind, "error", err)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return Message(err)
}
