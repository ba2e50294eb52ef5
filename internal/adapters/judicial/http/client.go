package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/core/judicial"
)

// HTTPClient is satisfied by *http.Client and by the traced client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the exhorto API of destination jurisdictions. Every
// endpoint answers with the same envelope.
type Client struct {
	http HTTPClient
	log  *slog.Logger
}

func NewClient(httpClient HTTPClient, log *slog.Logger) *Client {
	return &Client{http: httpClient, log: log.With("component", "judicial_client")}
}

var _ judicial.Client = (*Client)(nil)

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// errores accepts a list or a single string.
func (e envelope) errores() []string {
	if len(e.Errors) == 0 || string(e.Errors) == "null" {
		return nil
	}
	var lista []string
	if err := json.Unmarshal(e.Errors, &lista); err == nil {
		return lista
	}
	var uno string
	if err := json.Unmarshal(e.Errors, &uno); err == nil && uno != "" {
		return []string{uno}
	}
	return []string{string(e.Errors)}
}

func (c *Client) RecibirExhorto(ctx context.Context, destino externo.Externo, payload judicial.ExhortoPayload) (*judicial.Acuse, error) {
	const op = "recibir_exhorto"
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destino.URL(externo.EndpointRecibirExhorto), bytes.NewReader(body))
	if err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	env, err := c.call(op, destino, req)
	if err != nil {
		return nil, err
	}
	return acuse(op, env, payload.ExhortoOrigenID)
}

func (c *Client) RecibirExhortoArchivo(ctx context.Context, destino externo.Externo, exhortoOrigenID, nombreArchivo string, contenido []byte) (*judicial.Acuse, error) {
	const op = "recibir_exhorto_archivo"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="archivo"; filename="%s"`, escapeQuotes(nombreArchivo)))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(contenido); err != nil {
		return nil, fmt.Errorf("write multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	endpoint, err := url.Parse(destino.URL(externo.EndpointRecibirExhortoArchivo))
	if err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: err}
	}
	q := endpoint.Query()
	q.Set("exhortoOrigenId", exhortoOrigenID)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &buf)
	if err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	env, err := c.call(op, destino, req)
	if err != nil {
		return nil, err
	}
	return acuse(op, env, exhortoOrigenID)
}

func (c *Client) ConsultarExhorto(ctx context.Context, destino externo.Externo, folioSeguimiento string) (*judicial.ConsultaExhorto, error) {
	const op = "consultar_exhorto"
	endpoint := strings.TrimRight(destino.URL(externo.EndpointConsultarExhorto), "/") + "/" + url.PathEscape(folioSeguimiento)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: err}
	}

	env, err := c.call(op, destino, req)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &judicial.CommunicationError{Operacion: op, Err: errors.New("respuesta sin data")}
	}

	var consulta judicial.ConsultaExhorto
	if err := json.Unmarshal(env.Data, &consulta); err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return &consulta, nil
}

// ConsultarMaterias only checks reachability; any 2xx is success and the
// body is ignored.
func (c *Client) ConsultarMaterias(ctx context.Context, destino externo.Externo) error {
	const op = "consultar_materias"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, destino.URL(externo.EndpointConsultarMaterias), nil)
	if err != nil {
		return &judicial.CommunicationError{Operacion: op, Err: err}
	}
	req.Header.Set("X-Api-Key", destino.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &judicial.CommunicationError{Operacion: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &judicial.CommunicationError{Operacion: op, Status: resp.StatusCode}
	}
	return nil
}

// call sends the request and decodes the envelope. Transport failures,
// non-2xx and bodies without success are communication errors;
// success=false is a rejection.
func (c *Client) call(op string, destino externo.Externo, req *http.Request) (*envelope, error) {
	req.Header.Set("X-Api-Key", destino.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &judicial.CommunicationError{Operacion: op, Status: resp.StatusCode}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if env.Success == nil {
		return nil, &judicial.CommunicationError{Operacion: op, Err: errors.New("respuesta sin success")}
	}
	if !*env.Success {
		c.log.Warn("destino rechazó la petición",
			"destino", destino.Clave,
			"operation", op,
			"message", env.Message,
		)
		return nil, &judicial.RejectionError{Operacion: op, Message: env.Message, Errors: env.errores()}
	}
	return &env, nil
}

func acuse(op string, env *envelope, exhortoOrigenID string) (*judicial.Acuse, error) {
	a := judicial.Acuse{ExhortoOrigenID: exhortoOrigenID}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, &judicial.CommunicationError{Operacion: op, Err: fmt.Errorf("decode acuse: %w", err)}
		}
		if a.ExhortoOrigenID == "" {
			a.ExhortoOrigenID = exhortoOrigenID
		}
	}
	a.Message = env.Message
	return &a, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
