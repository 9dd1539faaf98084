package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/directory"
	"github.com/jwulff/speakerid/internal/edit"
	"github.com/jwulff/speakerid/internal/journal"
	"github.com/jwulff/speakerid/internal/player"
	"github.com/jwulff/speakerid/internal/snapshot"
	"github.com/jwulff/speakerid/internal/ui"
)

// Backend is everything the UI asks of the server. *api.Client satisfies it.
type Backend interface {
	edit.Backend
	Health(ctx context.Context) (api.Health, error)
	UploadConversation(ctx context.Context, req api.UploadRequest, progress api.ProgressFunc) (api.UploadResult, error)
	ListVectorSpeakers(ctx context.Context) ([]api.VectorSpeaker, error)
	AddVectorSpeaker(ctx context.Context, name, audioPath string) (api.EmbeddingResult, error)
	AddVectorEmbedding(ctx context.Context, name, audioPath string) (api.EmbeddingResult, error)
	DeleteVectorSpeaker(ctx context.Context, name string) (api.VectorDeleteResult, error)
	DeleteVectorEmbedding(ctx context.Context, id string) (api.VectorDeleteResult, error)
}

// History reads the edit journal.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Orphans(ctx context.Context) ([]journal.Orphan, error)
	ForgetOrphan(ctx context.Context, speakerID string) error
}

// View is the screen being shown.
type View int

const (
	ViewConversations View = iota
	ViewDetail
	ViewSpeakers
	ViewUpload
	ViewVector
	ViewHistory
)

func (v View) String() string {
	switch v {
	case ViewConversations, ViewDetail:
		return "Conversations"
	case ViewSpeakers:
		return "Speakers"
	case ViewUpload:
		return "Upload"
	case ViewVector:
		return "Index"
	case ViewHistory:
		return "History"
	}
	return fmt.Sprintf("view(%d)", int(v))
}

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

// Options wires the model to its collaborators.
type Options struct {
	Backend Backend
	// Journal may be nil; the history view then stays empty.
	Journal *journal.Store
	// Player may be nil; playback is then unavailable.
	Player *player.Player
	Logger *slog.Logger
	// BaseURL is shown in the header.
	BaseURL string

	MatchThreshold      float64
	AutoUpdateThreshold float64
}

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	backend Backend
	ctrl    *edit.Controller
	history History
	player  *player.Player
	log     *slog.Logger
	baseURL string

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	// Connection state
	connected        bool
	connError        string
	reconnecting     bool
	reconnectAttempt int

	// UI state
	view   View
	width  int
	height int
	busy   int // outstanding loads, drives the spinner

	// Toast
	toast     string
	toastKind toastKind
	toastSeq  int

	conversations conversationsState
	detail        detailState
	roster        rosterState
	upload        uploadState
	vector        vectorState
	journal       historyState
}

// New creates a model with empty caches.
func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var rec edit.Recorder
	var hist History
	if opts.Journal != nil {
		rec = opts.Journal
		hist = opts.Journal
	}
	ctrl := edit.NewController(opts.Backend, directory.New(), snapshot.New(), rec, log)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.SpinnerStyle))

	return Model{
		ctx:     context.Background(),
		backend: opts.Backend,
		ctrl:    ctrl,
		history: hist,
		player:  opts.Player,
		log:     log,
		baseURL: opts.BaseURL,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		view:    ViewConversations,
		detail:  newDetailState(),
		roster:  newRosterState(),
		upload:  newUploadState(opts.MatchThreshold, opts.AutoUpdateThreshold),
		vector:  newVectorState(),
	}
}

// Init probes the backend; data loads once it answers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(connectCmd(m.ctx, m.backend), m.spinner.Tick)
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.detail.resize(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case BackendConnectedMsg:
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.log.Info("backend connected", "url", m.baseURL, "status", msg.Health.Status)
		m.busy += 2
		return m, tea.Batch(
			loadConversationsCmd(m.ctx, m.ctrl),
			loadSpeakersCmd(m.ctx, m.ctrl),
		)

	case BackendConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.log.Warn("backend unreachable", "attempt", m.reconnectAttempt, "error", msg.Err)
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.ctx, m.backend)

	case ConversationsLoadedMsg:
		m.busy = max(0, m.busy-1)
		if msg.Err != nil {
			return m, m.failRequest(msg.Err)
		}
		m.conversations.clamp(m.ctrl.Snapshots().List())
		return m, nil

	case SpeakersLoadedMsg:
		m.busy = max(0, m.busy-1)
		if msg.Err != nil {
			return m, m.failRequest(msg.Err)
		}
		m.roster.clamp(m.ctrl.Directory().Len())
		return m, nil

	case ConversationOpenedMsg:
		m.busy = max(0, m.busy-1)
		return m.conversationOpened(msg)

	case SpeakerSavedMsg:
		return m.speakerSaved(msg)

	case TextSavedMsg:
		return m.textSaved(msg)

	case TitleSavedMsg:
		return m.titleSaved(msg)

	case ConversationDeletedMsg:
		return m.conversationDeleted(msg)

	case PlaybackDoneMsg:
		m.detail.playing = false
		if msg.Err != nil {
			return m, m.showToast(toastError, "Playback failed: "+edit.Message(msg.Err))
		}
		return m, nil

	case RosterDoneMsg:
		return m.rosterDone(msg)

	case UploadProgressMsg:
		return m.uploadProgress(msg)

	case UploadDoneMsg:
		return m.uploadDone(msg)

	case VectorLoadedMsg:
		return m.vectorLoaded(msg)

	case VectorDoneMsg:
		return m.vectorDone(msg)

	case HistoryLoadedMsg:
		m.busy = max(0, m.busy-1)
		if msg.Err != nil {
			return m, m.showToast(toastError, "Journal: "+msg.Err.Error())
		}
		m.journal.entries = msg.Entries
		m.journal.orphans = msg.Orphans
		m.journal.cursor = min(m.journal.cursor, max(0, len(msg.Entries)-1))
		return m, nil

	case OrphanClearedMsg:
		return m.orphanCleared(msg)

	case ClearToastMsg:
		if msg.Seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	}

	return m, nil
}

// handleKey routes a key press. Focused inputs see keys first; global keys
// apply only when nothing is capturing text.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch {
	case m.view == ViewDetail && m.detail.focused:
		return m.handleEditKey(msg)
	case m.view == ViewSpeakers && m.roster.capturing():
		return m.handleRosterInputKey(msg)
	case m.view == ViewUpload && m.upload.capturing():
		return m.handleUploadKey(msg)
	case m.view == ViewVector && m.vector.capturing():
		return m.handleVectorInputKey(msg)
	case m.view == ViewConversations && m.conversations.confirmDelete != "":
		return m.handleConfirmDeleteKey(msg)
	case m.view == ViewDetail && m.detail.confirmDelete:
		return m.handleConfirmDeleteKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Conversations):
		return m.switchView(ViewConversations)
	case key.Matches(msg, m.keys.Speakers):
		return m.switchView(ViewSpeakers)
	case key.Matches(msg, m.keys.Upload):
		return m.switchView(ViewUpload)
	case key.Matches(msg, m.keys.Vector):
		return m.switchView(ViewVector)
	case key.Matches(msg, m.keys.History):
		return m.switchView(ViewHistory)
	}

	switch m.view {
	case ViewConversations:
		return m.handleConversationsKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	case ViewSpeakers:
		return m.handleRosterKey(msg)
	case ViewUpload:
		return m.handleUploadKey(msg)
	case ViewVector:
		return m.handleVectorKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	}
	return m, nil
}

// switchView changes screens and loads what the new one shows. Leaving the
// transcript discards its edit sessions.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if m.view == ViewDetail && v != ViewDetail {
		m.closeDetail()
	}
	m.view = v
	switch v {
	case ViewConversations:
		m.busy++
		return m, loadConversationsCmd(m.ctx, m.ctrl)
	case ViewSpeakers:
		m.busy++
		return m, loadSpeakersCmd(m.ctx, m.ctrl)
	case ViewUpload:
		return m, m.upload.focusCurrent()
	case ViewVector:
		m.busy++
		return m, loadVectorCmd(m.ctx, m.backend)
	case ViewHistory:
		if m.history == nil {
			return m, nil
		}
		m.busy++
		return m, loadHistoryCmd(m.ctx, m.history)
	}
	return m, nil
}

// showToast replaces the toast and schedules its removal.
func (m *Model) showToast(kind toastKind, text string) tea.Cmd {
	m.toastSeq++
	m.toast = text
	m.toastKind = kind
	return clearToastCmd(m.toastSeq)
}

// failRequest reports a failed load. A transport error also drops the
// connection so the probe loop takes over.
func (m *Model) failRequest(err error) tea.Cmd {
	m.log.Warn("request failed", "error", err)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) && !errors.Is(err, snapshot.ErrStale) && m.connected {
		m.connected = false
		m.reconnecting = true
		m.connError = err.Error()
		return tea.Batch(m.showToast(toastError, edit.Message(err)), reconnectCmd(m.reconnectAttempt))
	}
	return m.showToast(toastError, edit.Message(err))
}
