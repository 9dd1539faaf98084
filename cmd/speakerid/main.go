// Command speakerid is a terminal client for reviewing and correcting
// speaker attribution in transcribed conversations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwulff/speakerid/internal/api"
	"github.com/jwulff/speakerid/internal/app"
	"github.com/jwulff/speakerid/internal/config"
	"github.com/jwulff/speakerid/internal/journal"
	"github.com/jwulff/speakerid/internal/logging"
	"github.com/jwulff/speakerid/internal/player"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "speakerid: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log, closer := logging.New(cfg.LogPath, cfg.LogLevel)
	defer closer.Close()
	log.Info("starting", "url", cfg.BaseURL, "journal", cfg.JournalPath)

	client, err := api.New(cfg.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		api.WithLogger(log),
	)
	if err != nil {
		return err
	}

	opts := app.Options{
		Backend:             client,
		Logger:              log,
		BaseURL:             client.BaseURL(),
		MatchThreshold:      cfg.MatchThreshold,
		AutoUpdateThreshold: cfg.AutoUpdateThreshold,
	}

	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Warn("journal unavailable, edits will not be recorded", "path", cfg.JournalPath, "error", err)
	} else {
		defer store.Close()
		opts.Journal = store
	}

	if len(cfg.Player) > 0 {
		opts.Player = player.New(client, cfg.Player, log)
	}

	p := tea.NewProgram(app.New(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error("ui exited", "error", err)
		return err
	}
	log.Info("exiting")
	return nil
}
