package judicial

import (
	"encoding/json"
	"strings"
	"time"

	"pjecz/carina/internal/core/exhorto"
)

// FormatoFecha es el formato de fechas del intercambio, sin zona horaria.
const FormatoFecha = "2006-01-02T15:04:05"

// Fecha serializa un time.Time con FormatoFecha.
type Fecha time.Time

func (f Fecha) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(f).Format(FormatoFecha))
}

func (f *Fecha) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = Fecha(time.Time{})
		return nil
	}
	t, err := time.Parse(FormatoFecha, s)
	if err != nil {
		// Algunas jurisdicciones agregan fracción de segundo o zona.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
	}
	*f = Fecha(t)
	return nil
}

func (f Fecha) Time() time.Time { return time.Time(f) }

// ExhortoPayload es el cuerpo de endpoint_recibir_exhorto.
type ExhortoPayload struct {
	ExhortoOrigenID          string           `json:"exhortoOrigenId"`
	MunicipioDestinoID       int              `json:"municipioDestinoId"`
	MateriaClave             string           `json:"materiaClave"`
	EstadoOrigenID           int              `json:"estadoOrigenId"`
	MunicipioOrigenID        int              `json:"municipioOrigenId"`
	JuzgadoOrigenID          string           `json:"juzgadoOrigenId"`
	JuzgadoOrigenNombre      string           `json:"juzgadoOrigenNombre"`
	NumeroExpedienteOrigen   string           `json:"numeroExpedienteOrigen"`
	NumeroOficioOrigen       string           `json:"numeroOficioOrigen"`
	TipoJuicioAsuntoDelitos  string           `json:"tipoJuicioAsuntoDelitos"`
	JuezExhortante           string           `json:"juezExhortante"`
	Partes                   []PartePayload   `json:"partes"`
	Fojas                    int              `json:"fojas"`
	DiasResponder            int              `json:"diasResponder"`
	TipoDiligenciacionNombre string           `json:"tipoDiligenciacionNombre"`
	FechaOrigen              Fecha            `json:"fechaOrigen"`
	Observaciones            string           `json:"observaciones"`
	Archivos                 []ArchivoPayload `json:"archivos"`
}

type PartePayload struct {
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellidoPaterno"`
	ApellidoMaterno string `json:"apellidoMaterno"`
	Genero          string `json:"genero"`
	EsPersonaMoral  bool   `json:"esPersonaMoral"`
	TipoParte       int    `json:"tipoParte"`
	TipoParteNombre string `json:"tipoParteNombre"`
}

type ArchivoPayload struct {
	NombreArchivo string `json:"nombreArchivo"`
	HashSha1      string `json:"hashSha1"`
	HashSha256    string `json:"hashSha256"`
	TipoDocumento int    `json:"tipoDocumento"`
}

// NuevoPayload arma el cuerpo con las partes activas y el manifiesto de
// archivos por enviar. No incluye bytes.
func NuevoPayload(ex exhorto.Exhorto) ExhortoPayload {
	p := ExhortoPayload{
		ExhortoOrigenID:          ex.ExhortoOrigenID,
		MunicipioDestinoID:       ex.MunicipioDestinoID,
		MateriaClave:             ex.MateriaClave,
		EstadoOrigenID:           ex.EstadoOrigenClave,
		MunicipioOrigenID:        ex.MunicipioOrigenClave,
		JuzgadoOrigenID:          ex.JuzgadoOrigenID,
		JuzgadoOrigenNombre:      ex.JuzgadoOrigenNombre,
		NumeroExpedienteOrigen:   ex.NumeroExpedienteOrigen,
		NumeroOficioOrigen:       ex.NumeroOficioOrigen,
		TipoJuicioAsuntoDelitos:  ex.TipoJuicioAsuntoDelitos,
		JuezExhortante:           ex.JuezExhortante,
		Fojas:                    ex.Fojas,
		DiasResponder:            ex.DiasResponder,
		TipoDiligenciacionNombre: ex.TipoDiligenciacionNombre,
		FechaOrigen:              Fecha(ex.FechaOrigen),
		Observaciones:            ex.Observaciones,
		Partes:                   []PartePayload{},
		Archivos:                 []ArchivoPayload{},
	}
	for _, parte := range ex.PartesActivas() {
		p.Partes = append(p.Partes, PartePayload{
			Nombre:          parte.Nombre,
			ApellidoPaterno: parte.ApellidoPaterno,
			ApellidoMaterno: parte.ApellidoMaterno,
			Genero:          parte.Genero,
			EsPersonaMoral:  parte.EsPersonaMoral,
			TipoParte:       int(parte.TipoParte),
			TipoParteNombre: parte.TipoParteNombre,
		})
	}
	for _, a := range ex.ArchivosParaEnviar() {
		p.Archivos = append(p.Archivos, ArchivoPayload{
			NombreArchivo: a.NombreArchivo,
			HashSha1:      a.HashSha1,
			HashSha256:    a.HashSha256,
			TipoDocumento: int(a.TipoDocumento),
		})
	}
	return p
}
