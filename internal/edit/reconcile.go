package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/directory"
	"github.com/jwulff/speakerid/internal/snapshot"
)

// Reconciler re-fetches authoritative state after a mutation and replaces
// the local copies wholesale.
type Reconciler struct {
	backend Backend
	dir     *directory.Cache
	snap    *snapshot.Store
	log     *slog.Logger
}

// NewReconciler returns a reconciler over the given caches.
func NewReconciler(b Backend, dir *directory.Cache, snap *snapshot.Store, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{backend: b, dir: dir, snap: snap, log: log}
}

// Open loads a conversation the user navigated to, which must already be the
// store's target. The directory is fetched first if it has never loaded so
// labels resolve on first render. If the user moved on before the fetch
// finished, the result is dropped and snapshot.ErrStale returned.
func (r *Reconciler) Open(ctx context.Context, id api.ID) (*snapshot.Snapshot, error) {
	if !r.dir.Loaded() {
		if err := r.dir.Refresh(ctx, r.backend); err != nil {
			r.log.Warn("speaker directory unavailable", "error", err)
		}
	}
	conv, err := r.backend.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	snap, err := r.snap.Install(conv)
	if errors.Is(err, snapshot.ErrStale) {
		r.log.Debug("dropping load of closed conversation", "conversation", id)
	}
	return snap, err
}

// Conversation refreshes the directory and then reloads conversation id.
// A directory failure is logged and the reload goes ahead with the old
// roster. If the user has navigated elsewhere meanwhile, the result is
// dropped and snapshot.ErrStale returned.
func (r *Reconciler) Conversation(ctx context.Context, id api.ID) (*snapshot.Snapshot, error) {
	if err := r.Speakers(ctx); err != nil {
		r.log.Warn("speaker directory refresh failed", "error", err)
	}
	conv, err := r.backend.GetConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload conversation: %w", err)
	}
	snap, err := r.snap.Refresh(conv)
	if errors.Is(err, snapshot.ErrStale) {
		r.log.Debug("dropping reload of closed conversation", "conversation", id)
	}
	return snap, err
}

// Speakers refreshes the directory.
func (r *Reconciler) Speakers(ctx context.Context) error {
	return r.dir.Refresh(ctx, r.backend)
}

// Conversations refreshes the conversation list.
func (r *Reconciler) Conversations(ctx context.Context) (*snapshot.List, error) {
	convs, err := r.backend.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh conversation list: %w", err)
	}
	return r.snap.ReplaceList(convs), nil
}

// OpenConversation reloads the open conversation, if any. Used after roster
// changes that can relabel utterances.
func (r *Reconciler) OpenConversation(ctx context.Context) (*snapshot.Snapshot, error) {
	cur := r.snap.Current()
	if cur == nil {
		return nil, nil
	}
	conv, err := r.backend.GetConversation(ctx, cur.Conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("reload conversation: %w", err)
	}
	return r.snap.Refresh(conv)
}
