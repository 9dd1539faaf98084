package player

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwulff/speakerid/internal/api"
)

type fakeSource struct {
	data        string
	contentType string
	err         error
}

func (f fakeSource) Audio(ctx context.Context, conversationID, utteranceID api.ID) (io.ReadCloser, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(strings.NewReader(f.data)), f.contentType, nil
}

func TestPlayRunsCommandOnClip(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	dest := filepath.Join(dir, "copied")

	// sh -c receives the clip path as $0.
	p := New(fakeSource{data: "RIFFdata", contentType: "audio/mpeg"}, []string{"sh", "-c", `cp "$0" ` + dest}, nil)
	p.tempDir = dir
	if err := p.Play(context.Background(), "c1", "u1"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(got) != "RIFFdata" {
		t.Errorf("clip = %q, want %q", got, "RIFFdata")
	}

	// The temporary clip is removed after playback.
	matches, _ := filepath.Glob(filepath.Join(dir, "speakerid-*.mp3"))
	if len(matches) != 0 {
		t.Errorf("temp clips left behind: %v", matches)
	}
}

func TestPlayNoCommand(t *testing.T) {
	p := New(fakeSource{}, nil, nil)
	if err := p.Play(context.Background(), "c1", "u1"); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("err = %v, want ErrNoPlayer", err)
	}
}

func TestPlayFetchError(t *testing.T) {
	boom := &api.APIError{Status: 404, Detail: "Audio not found"}
	p := New(fakeSource{err: boom}, []string{"true"}, nil)
	err := p.Play(context.Background(), "c1", "u1")
	if detail, ok := api.Detail(err); !ok || detail != "Audio not found" {
		t.Errorf("err = %v, want wrapped API error", err)
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"audio/wav":                ".wav",
		"audio/mpeg":               ".mp3",
		"audio/ogg; codecs=opus":   ".ogg",
		"":                         ".wav",
		"application/octet-stream": ".wav",
	}
	for in, want := range tests {
		if got := extension(in); got != want {
			t.Errorf("extension(%q) = %q, want %q", in, got, want)
		}
	}
}
