package otel

import (
	"os"
	"sync/atomic"
)

// traceEnabled is read on every UI message, so it is an atomic set once at init.
var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("QUILL_TRACE") != "")
}

// TraceEnabled reports whether QUILL_TRACE is set.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// setTraceEnabled overrides the flag for tests.
func setTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
