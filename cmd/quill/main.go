// Command quill is a terminal client for the blog API.
//
// Usage:
//
//	quill                   Open the last visited page
//	quill /all-blogs?q=go   Open a location directly
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/config"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/nav"
	"github.com/abelbrown/quill/internal/otel"
	"github.com/abelbrown/quill/internal/store"
	"github.com/abelbrown/quill/internal/ui"
)

const version = "0.3.0"

func main() {
	if err := logging.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load config: %v", err)
	}

	dataDir := config.Dir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		fatal("Failed to create data directory: %v", err)
	}

	events, closeEvents := openEvents(filepath.Join(dataDir, "quill.events.jsonl"))
	defer closeEvents()
	ring := otel.NewRingBuffer(500)
	events.SetRingBuffer(ring)
	sys := events.For("main")

	st, err := store.Open(filepath.Join(dataDir, "quill.db"))
	if err != nil {
		fatal("Failed to open database: %v", err)
	}
	defer st.Close()

	tokens := &api.MemoryToken{}
	client, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
		api.WithTokenSource(tokens),
		api.WithEvents(events),
	)
	if err != nil {
		fatal("Invalid API base URL: %v", err)
	}

	sess := restoreSession(cfg, st, client, tokens)

	router := nav.NewRouter(startLocation(cfg, st), events)
	router.OnChange(func(loc string) {
		if err := st.SetLastLocation(loc); err != nil {
			logging.Warn("Failed to save location", "error", err)
		}
	})

	app := ui.NewApp(ui.Deps{
		Backend:   client,
		Tokens:    tokens,
		Sessions:  st,
		Router:    router,
		Events:    events,
		Ring:      ring,
		Debounce:  cfg.Debounce(),
		Theme:     cfg.UI.Theme,
		ShareBase: cfg.UI.ShareBase,
		Session:   sess,
	})

	sys.Emit(otel.Event{Kind: otel.KindStartup, Level: otel.LevelInfo, Msg: version, Path: router.Current().Raw})

	p := tea.NewProgram(app, tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(ui.App); ok {
		m.Close()
	}
	sys.Emit(otel.Event{Kind: otel.KindShutdown, Level: otel.LevelInfo})
	if err != nil {
		logging.Error("Application error", "error", err)
		fatal("Error: %v", err)
	}
}

// openEvents appends to the JSONL event log. A log that cannot be opened
// still feeds the debug overlay.
func openEvents(path string) (*otel.Logger, func()) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logging.Warn("Event log unavailable", "path", path, "error", err)
		l := otel.NewNullLogger()
		return l, l.Close
	}
	l := otel.NewLogger(f)
	return l, func() {
		l.Close()
		f.Close()
	}
}

// restoreSession prefers QUILL_TOKEN over the stored sign-in. An env token
// is checked against /auth/me so the header can show who is signed in.
func restoreSession(cfg *config.Config, st *store.Store, client *api.Client, tokens *api.MemoryToken) *store.Session {
	if cfg.Token != "" {
		tokens.Set(cfg.Token)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
		defer cancel()
		u, err := client.Me(ctx)
		if err != nil {
			logging.Warn("QUILL_TOKEN rejected", "error", err)
			tokens.Set("")
			return nil
		}
		return &store.Session{Token: cfg.Token, User: u, Created: time.Now()}
	}

	sess, err := st.LoadSession()
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			logging.Warn("Failed to load session", "error", err)
		}
		return nil
	}
	return &sess
}

// startLocation picks the first page: the command line, then the last
// visited location, then the configured default.
func startLocation(cfg *config.Config, st *store.Store) string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if loc, err := st.LastLocation(); err == nil && loc != "" {
		return loc
	}
	return cfg.UI.StartLocation
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
