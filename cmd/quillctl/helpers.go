package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelbrown/quill/internal/config"
	"github.com/abelbrown/quill/internal/logging"
)

// eventLogPath returns the path to quill.events.jsonl.
func eventLogPath() string {
	return filepath.Join(config.Dir(), "quill.events.jsonl")
}

// loadConfig reads the shared config and sends diagnostics to stderr.
func loadConfig() *config.Config {
	logging.SetOutput(os.Stderr)
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	return cfg
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
