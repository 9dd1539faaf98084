package app

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
)

// TestLiveTUIFlow drives the model against a running backend without
// changing anything on it. Skipped unless SPEAKERID_LIVE_URL is set.
func TestLiveTUIFlow(t *testing.T) {
	baseURL := os.Getenv("SPEAKERID_LIVE_URL")
	if baseURL == "" {
		t.Skip("SPEAKERID_LIVE_URL not set")
	}

	client, err := api.New(baseURL)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m := New(Options{Backend: client, BaseURL: baseURL})
	m.ctx = ctx

	// Simulate terminal size
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	view := m.View()
	if view == "Initializing..." {
		t.Error("view should render after WindowSizeMsg")
	}

	m, _ = update(m, connectCmd(ctx, client)())
	if !m.connected {
		t.Fatalf("expected connected, got %q", m.connError)
	}

	m, _ = update(m, loadSpeakersCmd(ctx, m.ctrl)())
	m, _ = update(m, loadConversationsCmd(ctx, m.ctrl)())
	fmt.Printf("Speakers: %d\n", m.ctrl.Directory().Len())

	list := m.ctrl.Snapshots().List()
	if list == nil {
		t.Fatal("conversation list did not load")
	}
	fmt.Printf("Conversations: %d\n", len(list.Conversations))
	fmt.Println("=== Conversation List ===")
	fmt.Println(m.View())

	if len(list.Conversations) == 0 {
		return
	}

	m, cmd := update(m, keyType(tea.KeyEnter))
	m, _ = update(m, cmd())
	snap := m.snapshot()
	if snap == nil {
		t.Fatalf("conversation did not open: %s", m.detail.loadErr)
	}
	fmt.Printf("Opened %q: %d utterances\n", snap.Conversation.Title(), len(snap.Conversation.Utterances))

	if len(snap.Conversation.Utterances) > 0 && m.ctrl.Directory().Len() > 0 {
		// Open and cancel a speaker session; nothing is sent.
		m, _ = update(m, keyRunes("s"))
		fmt.Println("\n=== Speaker Picker ===")
		fmt.Println(m.View())
		m, _ = update(m, keyType(tea.KeyEsc))
		if m.detail.sessions.Len() != 0 {
			t.Error("cancel should close the session")
		}
	}

	// Reconcile against the backend.
	m, _ = update(m, refreshConversationCmd(ctx, m)())
	if m.snapshot() == nil {
		t.Error("refresh lost the open conversation")
	}
}
