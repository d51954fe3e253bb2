package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
)

// The global logger is shared state; these tests do not run in parallel.

func TestInitWriterJSONInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(func() { Init() })

	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not a single json line: %q", buf.String())
	}
	if entry["message"] != "shown" || entry["k"] != "v" {
		t.Fatalf("entry = %v", entry)
	}
	if _, ok := entry["caller"]; !ok {
		t.Fatalf("entry has no caller: %v", entry)
	}
}

func TestInitWriterDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Config{Debug: true})
	t.Cleanup(func() { Init() })

	log.Debug().Msg("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}

func TestInitWriterPretty(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Config{PrettyFormat: true})
	t.Cleanup(func() { Init() })

	log.Info().Msg("pretty")
	if bytes.HasPrefix(buf.Bytes(), []byte("{")) {
		t.Fatalf("pretty output looks like json: %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("pretty")) {
		t.Fatalf("message missing: %q", buf.String())
	}
}
