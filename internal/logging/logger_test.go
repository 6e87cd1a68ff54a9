package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestHelpersNoopBeforeInit(t *testing.T) {
	Logger = nil
	Info("ignored")
	Debug("ignored")
	Warn("ignored")
	Error("ignored")
	WithPrefix("x").Info("ignored")
}

func TestInitAtWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	if err := InitAt(dir, "test"); err != nil {
		t.Fatalf("InitAt: %v", err)
	}
	Warn("fetch failed", "seq", 3)
	Close()

	name := "quill-" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"quill started", "fetch failed", "seq=3", "quill shutting down"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() { Logger = nil }()

	WithPrefix("listing").Error("boom")
	if !strings.Contains(buf.String(), "listing") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
