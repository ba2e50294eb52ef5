package security

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const redactedValue = "[REDACTED]"

// Encabezados que nunca se guardan en claro. X-Api-Key es la credencial de
// cada jurisdicción destino.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
}

// Fragmentos de nombres de campo o parámetro que se ocultan.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"api-key",
	"authorization",
	"credential",
}

// SanitizeHeaders copies the headers into a flat map, redacting credentials.
func SanitizeHeaders(headers http.Header) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for key, values := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			sanitized[key] = redactedValue
			continue
		}
		sanitized[key] = strings.Join(values, ", ")
	}
	return sanitized
}

// SanitizeBody returns a JSON document safe to log or persist. Multipart and
// binary bodies are summarized by size; JSON is redacted field by field;
// other text is wrapped. Bodies over maxSize are truncated.
func SanitizeBody(body []byte, contentType string, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}

	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "multipart/") || strings.HasPrefix(ct, "application/pdf") || !utf8.Valid(body) {
		return marshal(map[string]any{"_binary": true, "_content_type": contentType, "_size": len(body)})
	}

	if maxSize > 0 && len(body) > maxSize {
		return marshal(map[string]any{"_truncated": true, "_size": len(body), "_preview": string(body[:maxSize])})
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return marshal(map[string]any{"_raw": string(body), "_format": "text"})
	}
	return marshal(sanitizeValue(data))
}

func marshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if isSensitive(k) {
				out[k] = redactedValue
				continue
			}
			out[k] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = sanitizeValue(inner)
		}
		return out
	default:
		return val
	}
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, f := range sensitiveFields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// SanitizeURL redacts sensitive query parameters. Unparseable input is
// returned untouched.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for key := range q {
		if isSensitive(key) {
			q.Set(key, redactedValue)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
