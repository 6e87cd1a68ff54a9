package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/quill/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(nil, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	now := time.Now()
	ring.Push(otel.Event{Kind: otel.KindListingFetch, Time: now})
	ring.Push(otel.Event{Kind: otel.KindListingFetch, Time: now})
	ring.Push(otel.Event{Kind: otel.KindListingLoaded, Time: now})
	ring.Push(otel.Event{Kind: otel.KindListingStale, Time: now})
	ring.Push(otel.Event{Kind: otel.KindAPIRequest, Time: now})
	ring.Push(otel.Event{Kind: otel.KindAPIError, Time: now})

	result := debugOverlay(ring, 100, 40)

	if !strings.Contains(result, "Session Stats") {
		t.Error("overlay should contain 'Session Stats' header")
	}
	if !strings.Contains(result, "2 fetched, 1 loaded, 1 stale, 0 errors") {
		t.Errorf("overlay should show listing stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 requests, 1 errors") {
		t.Errorf("overlay should show API stats, got:\n%s", result)
	}
	if !strings.Contains(result, "6 / 64 events") {
		t.Errorf("overlay should show buffer stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindNavReplace, Time: time.Now(), Path: "/all-blogs?q=go"})
	ring.Push(otel.Event{Kind: otel.KindAPIError, Time: time.Now(), Status: 500, Err: "timeout"})
	ring.Push(otel.Event{Kind: otel.KindListingFetch, Time: time.Now(), QueryID: "abcdef1234567890"})

	result := debugOverlay(ring, 100, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "/all-blogs?q=go") {
		t.Errorf("overlay should show event path, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") || !strings.Contains(result, "500") {
		t.Errorf("overlay should show error and status, got:\n%s", result)
	}
	if !strings.Contains(result, "qid:abcdef12") {
		t.Errorf("overlay should show truncated query ID, got:\n%s", result)
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindAPIRequest, Time: time.Now()})
	}

	// Very small height should still render without panic
	result := debugOverlay(ring, 80, 10)
	if result == "" {
		t.Error("overlay should still render with small height")
	}
	lines := strings.Count(result, "\n")
	if lines > 20 { // generous bound accounting for lipgloss borders
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateRunes("héllo wörld", 6); got != "héllo…" {
		t.Errorf("got %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "2m"}, // 1.5 minutes rounds to 2 with %.0f
		{5 * time.Minute, "5m"},
	}
	for _, tt := range tests {
		got := formatAge(tt.dur)
		if got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}

func TestFormatAgeNegative(t *testing.T) {
	got := formatAge(-5 * time.Second)
	if got != "0ms" {
		t.Errorf("formatAge(-5s) = %q, want \"0ms\"", got)
	}
}
