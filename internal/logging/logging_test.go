package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazz-dev/reachprobe/internal/config"
	"github.com/hazz-dev/reachprobe/internal/logging"
)

func TestNew_TextToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := logging.New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "control", "gcloud")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "control=gcloud") {
		t.Errorf("expected text attrs in output:\n%s", out)
	}
}

func TestNew_JSONToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reachprobe.log")
	logger, closer, err := logging.New(config.LogConfig{
		Level:      "info",
		Format:     "json",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("run finished", "passed", true)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", data, err)
	}
	if rec["msg"] != "run finished" {
		t.Errorf("unexpected msg: %v", rec["msg"])
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := logging.New(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
