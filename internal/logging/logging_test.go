package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNewLoggerMulti(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewLogger(&a, &b)
	logger.Info().Str("clip", "c1").Msg("staged")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("not json: %q", buf.String())
		}
		if entry["clip"] != "c1" || entry["message"] != "staged" {
			t.Errorf("unexpected entry %v", entry)
		}
	}
}

func TestInitWithFile(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	path := filepath.Join(t.TempDir(), "splicer.log")
	closeLog, err := Init(Options{Verbose: true, JSON: true, File: path})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	logger := WithComponent("export")
	logger.Debug().Msg("hello")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"export"`) || !strings.Contains(string(data), `"level":"debug"`) {
		t.Errorf("log file missing entry: %s", data)
	}
}
