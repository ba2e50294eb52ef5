package security

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestSanitizeHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Api-Key", "secreto-de-coahuila")
	headers.Set("Authorization", "Bearer abc")
	headers.Set("Content-Type", "application/json")
	headers.Add("Accept", "application/json")
	headers.Add("Accept", "text/plain")

	got := SanitizeHeaders(headers)

	if got["X-Api-Key"] != redactedValue {
		t.Errorf("expected X-Api-Key redacted, got %q", got["X-Api-Key"])
	}
	if got["Authorization"] != redactedValue {
		t.Errorf("expected Authorization redacted, got %q", got["Authorization"])
	}
	if got["Content-Type"] != "application/json" {
		t.Errorf("expected Content-Type kept, got %q", got["Content-Type"])
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Errorf("expected joined Accept, got %q", got["Accept"])
	}
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		maxSize     int
		check       func(t *testing.T, out map[string]any)
	}{
		{
			name:        "json with api key",
			body:        []byte(`{"exhortoOrigenId":"abc","api_key":"x","partes":[{"nombre":"ANA","token":"y"}]}`),
			contentType: "application/json",
			check: func(t *testing.T, out map[string]any) {
				if out["api_key"] != redactedValue {
					t.Errorf("expected api_key redacted, got %v", out["api_key"])
				}
				if out["exhortoOrigenId"] != "abc" {
					t.Errorf("expected exhortoOrigenId kept, got %v", out["exhortoOrigenId"])
				}
				parte := out["partes"].([]any)[0].(map[string]any)
				if parte["token"] != redactedValue || parte["nombre"] != "ANA" {
					t.Errorf("unexpected nested sanitization: %v", parte)
				}
			},
		},
		{
			name:        "multipart upload",
			body:        []byte("--boundary\r\nContent-Disposition: form-data; name=\"archivo\"\r\n\r\n%PDF-1.4"),
			contentType: "multipart/form-data; boundary=boundary",
			check: func(t *testing.T, out map[string]any) {
				if out["_binary"] != true {
					t.Errorf("expected binary summary, got %v", out)
				}
			},
		},
		{
			name:        "plain text",
			body:        []byte("Bad Gateway"),
			contentType: "text/plain",
			check: func(t *testing.T, out map[string]any) {
				if out["_raw"] != "Bad Gateway" {
					t.Errorf("expected wrapped text, got %v", out)
				}
			},
		},
		{
			name:        "truncated",
			body:        []byte(`{"observaciones":"` + strings.Repeat("a", 100) + `"}`),
			contentType: "application/json",
			maxSize:     10,
			check: func(t *testing.T, out map[string]any) {
				if out["_truncated"] != true {
					t.Errorf("expected truncation, got %v", out)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := SanitizeBody(tt.body, tt.contentType, tt.maxSize)
			var out map[string]any
			if err := json.Unmarshal(raw, &out); err != nil {
				t.Fatalf("sanitized body is not JSON: %v", err)
			}
			tt.check(t, out)
		})
	}

	if SanitizeBody(nil, "application/json", 0) != nil {
		t.Error("expected nil for empty body")
	}
}

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.example.com/exh_exhortos/recibir", "https://api.example.com/exh_exhortos/recibir"},
		{"https://api.example.com/archivo?exhortoOrigenId=abc", "https://api.example.com/archivo?exhortoOrigenId=abc"},
		{"https://api.example.com/materias?api_key=123", "https://api.example.com/materias?api_key=%5BREDACTED%5D"},
	}
	for _, tt := range tests {
		if got := SanitizeURL(tt.in); got != tt.want {
			t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
