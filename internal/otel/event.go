// Package otel provides structured observability for quill.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer provides live in-memory inspection for the debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Listing controller events
	KindListingFetch          EventKind = "listing.fetch"
	KindListingLoaded         EventKind = "listing.loaded"
	KindListingStale          EventKind = "listing.stale"
	KindListingError          EventKind = "listing.error"
	KindListingDebounce       EventKind = "listing.debounce"
	KindListingDebounceCancel EventKind = "listing.debounce_cancel"

	// Navigation events
	KindNavReplace EventKind = "nav.replace"
	KindNavPush    EventKind = "nav.push"
	KindNavBack    EventKind = "nav.back"

	// API client events
	KindAPIRequest EventKind = "api.request"
	KindAPIError   EventKind = "api.error"

	// Session events
	KindLogin  EventKind = "auth.login"
	KindLogout EventKind = "auth.logout"

	// Store events
	KindStoreError EventKind = "store.error"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	// Trace events (QUILL_TRACE)
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "listing", "api", "nav", "ui", "main"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for entire app run
	QueryID   string         `json:"qid,omitempty"`        // correlates a listing fetch with its API request
	Seq       uint64         `json:"seq,omitempty"`        // listing fetch sequence number
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Page      int            `json:"page,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status code
	Path      string         `json:"path,omitempty"`   // request path or location
	Query     string         `json:"query,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
