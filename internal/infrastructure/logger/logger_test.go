package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "carina", "info", "production")
	log.Info("exhorto enviado", "folio_seguimiento", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["app"] != "carina" {
		t.Errorf("expected app attribute, got %v", entry["app"])
	}
	if entry["folio_seguimiento"] != "abc" {
		t.Errorf("expected folio attribute, got %v", entry["folio_seguimiento"])
	}
}

func TestNewWithWriter_TextInLocal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "carina", "debug", "local")
	log.Debug("detalle")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") {
		t.Errorf("expected text output with debug level, got %q", out)
	}
	if strings.Contains(out, colorCyan) {
		t.Error("expected no colors when output is not a terminal")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in).Level(); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
