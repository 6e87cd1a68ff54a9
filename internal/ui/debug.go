package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/quill/internal/otel"
	"github.com/abelbrown/quill/internal/ui/styles"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

// debugOverlay renders the debug panel showing listing and API stats and
// recent events. Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, styles.DebugHeader.Render("Session Stats"))
	lines = append(lines, fmt.Sprintf("  Listing:    %d fetched, %d loaded, %d stale, %d errors",
		stats[otel.KindListingFetch], stats[otel.KindListingLoaded], stats[otel.KindListingStale], stats[otel.KindListingError]))
	lines = append(lines, fmt.Sprintf("  Debounce:   %d scheduled, %d cancelled",
		stats[otel.KindListingDebounce], stats[otel.KindListingDebounceCancel]))
	lines = append(lines, fmt.Sprintf("  API:        %d requests, %d errors",
		stats[otel.KindAPIRequest], stats[otel.KindAPIError]))
	lines = append(lines, fmt.Sprintf("  Navigation: %d push, %d replace, %d back",
		stats[otel.KindNavPush], stats[otel.KindNavReplace], stats[otel.KindNavBack]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, styles.DebugHeader.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-22s", formatAge(time.Since(e.Time)), string(e.Kind))
		switch {
		case e.Path != "":
			line += "  " + truncateRunes(e.Path, 40)
		case e.Msg != "":
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Status != 0 {
			line += fmt.Sprintf("  %d", e.Status)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.QueryID != "" {
			qid := e.QueryID
			if len(qid) > 8 {
				qid = qid[:8]
			}
			line += "  qid:" + qid
		}
		lines = append(lines, line)
	}

	// Truncate to fit terminal height (subtract chrome added by DebugPanel border/padding)
	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := min(96, width-4)
	if panelWidth < 20 {
		panelWidth = 20
	}
	return styles.DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Handles negative durations from clock skew by clamping to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := styles.StatusBarKey.Render("D") + styles.StatusBarText.Render(":close")
	return styles.StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
