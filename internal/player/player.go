// Package player plays utterance clips with an external command.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"os/exec"

	"github.com/jwulff/speakerid/internal/api"
)

// ErrNoPlayer is returned when no player command is configured.
var ErrNoPlayer = errors.New("no audio player configured")

// Source streams one utterance's audio.
type Source interface {
	Audio(ctx context.Context, conversationID, utteranceID api.ID) (io.ReadCloser, string, error)
}

// Player downloads a clip to a temporary file and runs the command on it.
type Player struct {
	src     Source
	command []string
	log     *slog.Logger
	tempDir string
}

// New returns a player. command is the program and its arguments; the clip
// path is appended.
func New(src Source, command []string, log *slog.Logger) *Player {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Player{src: src, command: command, log: log}
}

// Play fetches the clip and blocks until the player exits or ctx is done.
func (p *Player) Play(ctx context.Context, conversationID, utteranceID api.ID) error {
	if len(p.command) == 0 {
		return ErrNoPlayer
	}
	path, err := p.fetch(ctx, conversationID, utteranceID)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	args := append(append([]string(nil), p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	p.log.Debug("playing clip", "utterance", utteranceID, "cmd", p.command[0])
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("run %s: %w: %s", p.command[0], err, out)
	}
	return nil
}

func (p *Player) fetch(ctx context.Context, conversationID, utteranceID api.ID) (string, error) {
	body, contentType, err := p.src.Audio(ctx, conversationID, utteranceID)
	if err != nil {
		return "", fmt.Errorf("fetch clip: %w", err)
	}
	defer body.Close()

	f, err := os.CreateTemp(p.tempDir, "speakerid-*"+extension(contentType))
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write clip file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close clip file: %w", err)
	}
	return f.Name(), nil
}

func extension(contentType string) string {
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".wav"
	}
	switch media {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	}
	return ".wav"
}
