package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pjecz/carina/internal/infrastructure/config"
	"pjecz/carina/internal/testutil"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

func TestNew_RequiredOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"sin logger", Options{HealthHandler: okHandler("")}, "logger is required"},
		{"sin health", Options{Logger: testutil.NewTestLogger()}, "health handler is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_ValidOptions(t *testing.T) {
	server, err := New(Options{
		Config: config.AppConfig{HTTP: config.HTTPSettings{
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}},
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler("healthy"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.httpServer.Addr != ":8080" {
		t.Errorf("expected address ':8080', got %q", server.httpServer.Addr)
	}
	if server.httpServer.ReadTimeout != 10*time.Second {
		t.Errorf("expected read timeout from config, got %v", server.httpServer.ReadTimeout)
	}
	server.Close()
}

func TestServer_Routes(t *testing.T) {
	cfg := config.AppConfig{
		HTTP:    config.HTTPSettings{Port: 8080},
		Metrics: config.MetricsSettings{Enabled: true, Path: "/metrics"},
	}
	server, err := New(Options{
		Config:         cfg,
		Logger:         testutil.NewTestLogger(),
		HealthHandler:  okHandler("healthy"),
		MetricsHandler: okHandler("carina_exhortos_envios_total 0"),
		ExhortoHandler: okHandler("exhortos"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"health", http.MethodGet, "/health", http.StatusOK, "healthy"},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, "carina_exhortos_envios_total 0"},
		{"exhortos", http.MethodGet, "/api/v1/exh_exhortos", http.StatusOK, "exhortos"},
		{"tareas sin handler", http.MethodPost, "/api/v1/tareas/exh_exhortos.enviar", http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	server, err := New(Options{
		Config:         config.AppConfig{Metrics: config.MetricsSettings{Enabled: false}},
		Logger:         testutil.NewTestLogger(),
		HealthHandler:  okHandler("healthy"),
		MetricsHandler: okHandler("metrics"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestServer_Run_ContextCancel(t *testing.T) {
	server, err := New(Options{
		Config:        config.AppConfig{HTTP: config.HTTPSettings{Port: 0, ShutdownTimeout: time.Second}},
		Logger:        testutil.NewTestLogger(),
		HealthHandler: okHandler(""),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
