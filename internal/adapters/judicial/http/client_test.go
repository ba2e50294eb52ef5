package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/core/judicial"
	"pjecz/carina/internal/testutil"
)

func destinoPara(url string) externo.Externo {
	return externo.Externo{
		Clave:  "NL",
		APIKey: "llave-nl",
		URLs: map[externo.Endpoint]string{
			externo.EndpointRecibirExhorto:        url + "/recibir_exhorto",
			externo.EndpointRecibirExhortoArchivo: url + "/recibir_exhorto_archivo",
			externo.EndpointConsultarExhorto:      url + "/consultar_exhorto",
			externo.EndpointConsultarMaterias:     url + "/materias",
		},
	}
}

func newTestClient() *Client {
	return NewClient(&http.Client{Timeout: 5 * time.Second}, testutil.NewNullLogger())
}

func TestRecibirExhorto(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    error
		wantFecha  bool
		wantErrors []string
	}{
		{
			name:      "aceptado con fecha",
			status:    http.StatusOK,
			body:      `{"success":true,"message":"Recibido","data":{"exhortoOrigenId":"ORIG-1","fechaHoraRecepcion":"2024-05-10T10:30:00"}}`,
			wantFecha: true,
		},
		{
			name:   "aceptado sin data",
			status: http.StatusOK,
			body:   `{"success":true}`,
		},
		{
			name:       "rechazado",
			status:     http.StatusOK,
			body:       `{"success":false,"message":"No procede","errors":["expediente inválido"]}`,
			wantErr:    judicial.ErrRejected,
			wantErrors: []string{"expediente inválido"},
		},
		{
			name:       "rechazado con error como texto",
			status:     http.StatusOK,
			body:       `{"success":false,"errors":"materia desconocida"}`,
			wantErr:    judicial.ErrRejected,
			wantErrors: []string{"materia desconocida"},
		},
		{name: "status 500", status: http.StatusInternalServerError, body: `{"success":false}`, wantErr: judicial.ErrCommunication},
		{name: "sin success", status: http.StatusOK, body: `{"message":"hola"}`, wantErr: judicial.ErrCommunication},
		{name: "no es json", status: http.StatusOK, body: `<html></html>`, wantErr: judicial.ErrCommunication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/recibir_exhorto" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("X-Api-Key"); got != "llave-nl" {
					t.Errorf("expected X-Api-Key llave-nl, got %q", got)
				}
				var p judicial.ExhortoPayload
				if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
					t.Errorf("decode payload: %v", err)
				}
				if p.ExhortoOrigenID != "ORIG-1" {
					t.Errorf("expected exhortoOrigenId ORIG-1, got %q", p.ExhortoOrigenID)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			a, err := newTestClient().RecibirExhorto(context.Background(), destinoPara(server.URL), judicial.ExhortoPayload{ExhortoOrigenID: "ORIG-1"})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if tt.wantErrors != nil {
					var rej *judicial.RejectionError
					if !errors.As(err, &rej) {
						t.Fatalf("expected RejectionError, got %T", err)
					}
					if len(rej.Errors) != len(tt.wantErrors) || rej.Errors[0] != tt.wantErrors[0] {
						t.Errorf("expected errors %v, got %v", tt.wantErrors, rej.Errors)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.ExhortoOrigenID != "ORIG-1" {
				t.Errorf("expected acuse for ORIG-1, got %q", a.ExhortoOrigenID)
			}
			if tt.wantFecha {
				if a.FechaHoraRecepcion == nil {
					t.Fatal("expected fechaHoraRecepcion")
				}
				want := time.Date(2024, 5, 10, 10, 30, 0, 0, time.UTC)
				if !a.FechaHoraRecepcion.Time().Equal(want) {
					t.Errorf("expected %v, got %v", want, a.FechaHoraRecepcion.Time())
				}
			}
		})
	}
}

func TestRecibirExhorto_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient().RecibirExhorto(context.Background(), destinoPara(url), judicial.ExhortoPayload{})
	if !errors.Is(err, judicial.ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
}

func TestRecibirExhortoArchivo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("exhortoOrigenId"); got != "ORIG-1" {
			t.Errorf("expected exhortoOrigenId ORIG-1, got %q", got)
		}
		if got := r.Header.Get("X-Api-Key"); got != "llave-nl" {
			t.Errorf("expected X-Api-Key llave-nl, got %q", got)
		}
		file, header, err := r.FormFile("archivo")
		if err != nil {
			t.Errorf("expected multipart field archivo: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "oficio.pdf" {
			t.Errorf("expected filename oficio.pdf, got %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("expected application/pdf, got %q", ct)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.4" {
			t.Errorf("unexpected content %q", data)
		}
		io.WriteString(w, `{"success":true,"message":"Archivo recibido"}`)
	}))
	defer server.Close()

	a, err := newTestClient().RecibirExhortoArchivo(context.Background(), destinoPara(server.URL), "ORIG-1", "oficio.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Message != "Archivo recibido" {
		t.Errorf("expected message, got %q", a.Message)
	}
}

func TestConsultarExhorto(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/consultar_exhorto/FOLIO-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `{"success":true,"data":{
			"folioSeguimiento":"FOLIO-1","numeroExhorto":"123/2024",
			"municipioTurnadoId":39,"areaTurnadoNombre":"Juzgado Segundo",
			"respuestaOrigenId":"RESP-9",
			"archivos":[{"nombreArchivo":"respuesta.pdf","tipoDocumento":2}]}}`)
	}))
	defer server.Close()

	c, err := newTestClient().ConsultarExhorto(context.Background(), destinoPara(server.URL), "FOLIO-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.NumeroExhorto != "123/2024" || c.MunicipioTurnadoID != 39 || c.RespuestaOrigenID != "RESP-9" {
		t.Errorf("unexpected consulta %+v", c)
	}
	if len(c.Archivos) != 1 || c.Archivos[0].NombreArchivo != "respuesta.pdf" {
		t.Errorf("unexpected archivos %+v", c.Archivos)
	}
}

func TestConsultarExhorto_SinData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true}`)
	}))
	defer server.Close()

	_, err := newTestClient().ConsultarExhorto(context.Background(), destinoPara(server.URL), "FOLIO-1")
	if !errors.Is(err, judicial.ErrCommunication) {
		t.Fatalf("expected ErrCommunication, got %v", err)
	}
}

func TestConsultarMaterias(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"unauthorized", http.StatusUnauthorized, true},
		{"server error", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := newTestClient().ConsultarMaterias(context.Background(), destinoPara(server.URL))
			if tt.wantErr {
				var ce *judicial.CommunicationError
				if !errors.As(err, &ce) || ce.Status != tt.status {
					t.Fatalf("expected CommunicationError with status %d, got %v", tt.status, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
