package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/player"
)

const (
	toastDuration = 4 * time.Second
	historyLimit  = 100
)

// connectCmd probes the backend's health endpoint.
func connectCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		h, err := b.Health(ctx)
		if err != nil {
			return BackendConnectErrorMsg{Err: err}
		}
		return BackendConnectedMsg{Health: h}
	}
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// loadConversationsCmd refreshes the conversation list.
func loadConversationsCmd(ctx context.Context, ctrl *edit.Controller) tea.Cmd {
	return func() tea.Msg {
		list, err := ctrl.Reconciler().Conversations(ctx)
		return ConversationsLoadedMsg{List: list, Err: err}
	}
}

// loadSpeakersCmd refreshes the speaker directory.
func loadSpeakersCmd(ctx context.Context, ctrl *edit.Controller) tea.Cmd {
	return func() tea.Msg {
		return SpeakersLoadedMsg{Err: ctrl.Reconciler().Speakers(ctx)}
	}
}

// openConversationCmd loads a conversation the user selected.
func openConversationCmd(ctx context.Context, ctrl *edit.Controller, id api.ID) tea.Cmd {
	return func() tea.Msg {
		snap, err := ctrl.Reconciler().Open(ctx, id)
		return ConversationOpenedMsg{ID: id, Snapshot: snap, Err: err}
	}
}

// saveSpeakerCmd runs a speaker reassignment and its reconciliation.
func saveSpeakerCmd(ctx context.Context, ctrl *edit.Controller, field edit.Field, plan edit.ReassignPlan) tea.Cmd {
	return func() tea.Msg {
		return SpeakerSavedMsg{Field: field, Result: ctrl.SaveSpeaker(ctx, plan)}
	}
}

// saveTextCmd saves an utterance's text.
func saveTextCmd(ctx context.Context, ctrl *edit.Controller, field edit.Field, plan edit.TextPlan) tea.Cmd {
	return func() tea.Msg {
		snap, err := ctrl.SaveText(ctx, plan)
		return TextSavedMsg{Field: field, Snapshot: snap, Err: err}
	}
}

// saveTitleCmd renames the open conversation.
func saveTitleCmd(ctx context.Context, ctrl *edit.Controller, plan edit.TitlePlan) tea.Cmd {
	return func() tea.Msg {
		snap, err := ctrl.SaveTitle(ctx, plan)
		return TitleSavedMsg{Snapshot: snap, Err: err}
	}
}

// createSpeakerCmd adds a speaker from the roster view.
func createSpeakerCmd(ctx context.Context, ctrl *edit.Controller, name string) tea.Cmd {
	return func() tea.Msg {
		sp, err := ctrl.CreateSpeaker(ctx, name)
		return RosterDoneMsg{Message: fmt.Sprintf("Speaker %q created", sp.Name), Err: err}
	}
}

// renameSpeakerCmd renames a speaker from the roster view.
func renameSpeakerCmd(ctx context.Context, ctrl *edit.Controller, id api.ID, name string) tea.Cmd {
	return func() tea.Msg {
		sp, err := ctrl.RenameSpeaker(ctx, id, name)
		return RosterDoneMsg{Message: fmt.Sprintf("Speaker renamed to %q", sp.Name), Err: err}
	}
}

// deleteSpeakerCmd deletes a speaker with no utterances.
func deleteSpeakerCmd(ctx context.Context, ctrl *edit.Controller, id api.ID) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.DeleteSpeaker(ctx, id)
		return RosterDoneMsg{Message: fmt.Sprintf("Speaker %q deleted", res.Name), Err: err}
	}
}

// moveUtterancesCmd reassigns all of a speaker's utterances to another.
func moveUtterancesCmd(ctx context.Context, ctrl *edit.Controller, from, to api.ID) tea.Cmd {
	return func() tea.Msg {
		res, err := ctrl.MoveUtterances(ctx, from, to)
		return RosterDoneMsg{Message: fmt.Sprintf("Moved %d utterances", res.UpdatedCount), Err: err}
	}
}

// deleteConversationCmd deletes a conversation.
func deleteConversationCmd(ctx context.Context, ctrl *edit.Controller, id api.ID) tea.Cmd {
	return func() tea.Msg {
		return ConversationDeletedMsg{ID: id, Err: ctrl.DeleteConversation(ctx, id)}
	}
}

// playCmd plays one utterance and reports when the player exits.
func playCmd(ctx context.Context, p *player.Player, conversationID, utteranceID api.ID) tea.Cmd {
	return func() tea.Msg {
		return PlaybackDoneMsg{Err: p.Play(ctx, conversationID, utteranceID)}
	}
}

// uploadCmd runs an upload, posting progress and the final result to ch.
// The returned command yields nothing; readUploadCmd delivers the messages.
func uploadCmd(ctx context.Context, b Backend, ctrl *edit.Controller, req api.UploadRequest, ch chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		res, err := b.UploadConversation(ctx, req, func(p api.Progress) {
			select {
			case ch <- UploadProgressMsg{Progress: p}:
			default:
				// The reader only needs the latest figure.
			}
		})
		ctrl.RecordUpload(ctx, res, req.DisplayName, err)
		ch <- UploadDoneMsg{Result: res, Err: err}
		close(ch)
		return nil
	}
}

// readUploadCmd reads the next message of an upload in flight.
func readUploadCmd(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// loadVectorCmd lists the vector index.
func loadVectorCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		speakers, err := b.ListVectorSpeakers(ctx)
		return VectorLoadedMsg{Speakers: speakers, Err: err}
	}
}

// addVectorSpeakerCmd creates an index speaker from one sample.
func addVectorSpeakerCmd(ctx context.Context, b Backend, name, path string) tea.Cmd {
	return func() tea.Msg {
		res, err := b.AddVectorSpeaker(ctx, name, path)
		return VectorDoneMsg{Message: fmt.Sprintf("Added %q to the index", res.SpeakerName), Err: err}
	}
}

// addVectorSampleCmd stores another sample for an index speaker.
func addVectorSampleCmd(ctx context.Context, b Backend, name, path string) tea.Cmd {
	return func() tea.Msg {
		_, err := b.AddVectorEmbedding(ctx, name, path)
		return VectorDoneMsg{Message: fmt.Sprintf("Added a sample for %q", name), Err: err}
	}
}

// deleteVectorSpeakerCmd removes an index speaker with all samples.
func deleteVectorSpeakerCmd(ctx context.Context, b Backend, name string) tea.Cmd {
	return func() tea.Msg {
		res, err := b.DeleteVectorSpeaker(ctx, name)
		return VectorDoneMsg{Message: fmt.Sprintf("Deleted %q and %d samples", name, res.EmbeddingsDeleted), Err: err}
	}
}

// deleteVectorSampleCmd removes one index sample.
func deleteVectorSampleCmd(ctx context.Context, b Backend, id string) tea.Cmd {
	return func() tea.Msg {
		_, err := b.DeleteVectorEmbedding(ctx, id)
		return VectorDoneMsg{Message: "Sample deleted", Err: err}
	}
}

// loadHistoryCmd reads the edit journal.
func loadHistoryCmd(ctx context.Context, j History) tea.Cmd {
	return func() tea.Msg {
		entries, err := j.Recent(ctx, historyLimit)
		if err != nil {
			return HistoryLoadedMsg{Err: err}
		}
		orphans, err := j.Orphans(ctx)
		return HistoryLoadedMsg{Entries: entries, Orphans: orphans, Err: err}
	}
}

// clearToastCmd fires after a delay to clear the toast with seq.
func clearToastCmd(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return ClearToastMsg{Seq: seq}
	})
}
