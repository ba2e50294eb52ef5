package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"pjecz/carina/internal/testutil"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		message      string
		errors       []string
		expectedBody ErrorResponse
	}{
		{
			name:         "validation error",
			statusCode:   http.StatusBadRequest,
			message:      "Error de Validación",
			errors:       []string{"numero_expediente_origen es requerido"},
			expectedBody: ErrorResponse{Message: "Error de Validación", Errors: []string{"numero_expediente_origen es requerido"}},
		},
		{
			name:         "nil errors become empty list",
			statusCode:   http.StatusNotFound,
			message:      "No encontrado",
			errors:       nil,
			expectedBody: ErrorResponse{Message: "No encontrado", Errors: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.statusCode, tt.message, tt.errors, testutil.NewNullLogger())

			if w.Code != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}

			var got ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expectedBody) {
				t.Errorf("expected %+v, got %+v", tt.expectedBody, got)
			}
		})
	}
}

func TestWriteJSON_UnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]any{"canal": make(chan int)}, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}
