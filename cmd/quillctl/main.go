// Command quillctl is the debugging CLI for quill.
//
// Usage:
//
//	quillctl                  Show help
//	quillctl events           JSONL event log viewer
//	quillctl search <text>    One-shot post search against the API
//	quillctl stub             Serve an in-memory blog API for local use
package main

import (
	"fmt"
	"os"
)

const usage = `quillctl - quill debug CLI

Usage:
  quillctl <command> [flags]

Commands:
  events      JSONL event log viewer
  search      One-shot post search against the configured API
  stub        Serve an in-memory blog API with seed data

Environment:
  QUILL_API_BASE   API base URL (default: http://localhost:5000/api)
  QUILL_TOKEN      Bearer token sent with search requests

Run 'quillctl <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "events":
		runEvents()
	case "search":
		runSearch()
	case "stub":
		runStub()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "quillctl: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
