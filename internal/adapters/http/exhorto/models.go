package exhorto

import (
	"time"

	coreexhorto "pjecz/carina/internal/core/exhorto"
)

// ExhortoRequest is the body of POST and PUT /api/v1/exh_exhortos.
type ExhortoRequest struct {
	ExhortoOrigenID          string           `json:"exhorto_origen_id"`
	AutoridadID              int64            `json:"autoridad_id"`
	ExhAreaID                int64            `json:"exh_area_id"`
	MateriaID                int64            `json:"materia_id"`
	MunicipioOrigenID        int64            `json:"municipio_origen_id"`
	EstadoDestinoID          int64            `json:"estado_destino_id"`
	MunicipioDestinoID       int              `json:"municipio_destino_id"`
	JuzgadoOrigenID          string           `json:"juzgado_origen_id"`
	JuzgadoOrigenNombre      string           `json:"juzgado_origen_nombre"`
	NumeroExpedienteOrigen   string           `json:"numero_expediente_origen"`
	NumeroOficioOrigen       string           `json:"numero_oficio_origen"`
	TipoJuicioAsuntoDelitos  string           `json:"tipo_juicio_asunto_delitos"`
	JuezExhortante           string           `json:"juez_exhortante"`
	Fojas                    int              `json:"fojas"`
	DiasResponder            int              `json:"dias_responder"`
	TipoDiligenciacionNombre string           `json:"tipo_diligenciacion_nombre"`
	FechaOrigen              *time.Time       `json:"fecha_origen"`
	Observaciones            string           `json:"observaciones"`
	Partes                   []ParteRequest   `json:"partes"`
	Archivos                 []ArchivoRequest `json:"archivos"`
}

type ParteRequest struct {
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
	Genero          string `json:"genero"`
	EsPersonaMoral  bool   `json:"es_persona_moral"`
	TipoParte       int    `json:"tipo_parte"`
	TipoParteNombre string `json:"tipo_parte_nombre"`
}

type ArchivoRequest struct {
	NombreArchivo string `json:"nombre_archivo"`
	HashSha1      string `json:"hash_sha1"`
	HashSha256    string `json:"hash_sha256"`
	TipoDocumento int    `json:"tipo_documento"`
	URL           string `json:"url"`
	Tamano        int64  `json:"tamano"`
}

type ExhortoResponse struct {
	ID                       int64             `json:"id"`
	FolioSeguimiento         string            `json:"folio_seguimiento"`
	ExhortoOrigenID          string            `json:"exhorto_origen_id"`
	Estado                   string            `json:"estado"`
	EstadoDescripcion        string            `json:"estado_descripcion"`
	Remitente                string            `json:"remitente"`
	AutoridadID              int64             `json:"autoridad_id"`
	ExhAreaID                int64             `json:"exh_area_id"`
	MateriaID                int64             `json:"materia_id"`
	MunicipioOrigenID        int64             `json:"municipio_origen_id"`
	EstadoDestinoID          int64             `json:"estado_destino_id"`
	MunicipioDestinoID       int               `json:"municipio_destino_id"`
	JuzgadoOrigenID          string            `json:"juzgado_origen_id"`
	JuzgadoOrigenNombre      string            `json:"juzgado_origen_nombre"`
	NumeroExpedienteOrigen   string            `json:"numero_expediente_origen"`
	NumeroOficioOrigen       string            `json:"numero_oficio_origen"`
	TipoJuicioAsuntoDelitos  string            `json:"tipo_juicio_asunto_delitos"`
	JuezExhortante           string            `json:"juez_exhortante"`
	Fojas                    int               `json:"fojas"`
	DiasResponder            int               `json:"dias_responder"`
	TipoDiligenciacionNombre string            `json:"tipo_diligenciacion_nombre"`
	FechaOrigen              time.Time         `json:"fecha_origen"`
	Observaciones            string            `json:"observaciones"`
	PorEnviarIntentos        int               `json:"por_enviar_intentos"`
	PorEnviarTiempoAnterior  *time.Time        `json:"por_enviar_tiempo_anterior"`
	NumeroExhorto            string            `json:"numero_exhorto,omitempty"`
	FechaHoraRecepcion       *time.Time        `json:"fecha_hora_recepcion"`
	MunicipioTurnadoID       int               `json:"municipio_turnado_id,omitempty"`
	MunicipioTurnadoNombre   string            `json:"municipio_turnado_nombre,omitempty"`
	AreaTurnadoID            string            `json:"area_turnado_id,omitempty"`
	AreaTurnadoNombre        string            `json:"area_turnado_nombre,omitempty"`
	URLInfo                  string            `json:"url_info,omitempty"`
	RespuestaOrigenID        string            `json:"respuesta_origen_id,omitempty"`
	Estatus                  string            `json:"estatus"`
	Creado                   time.Time         `json:"creado"`
	Modificado               time.Time         `json:"modificado"`
	Partes                   []ParteResponse   `json:"partes"`
	Archivos                 []ArchivoResponse `json:"archivos"`
}

type ParteResponse struct {
	ID             int64  `json:"id"`
	NombreCompleto string `json:"nombre_completo"`
	ParteRequest
	Estatus string `json:"estatus"`
}

type ArchivoResponse struct {
	ID int64 `json:"id"`
	ArchivoRequest
	Estado      string `json:"estado"`
	EsRespuesta bool   `json:"es_respuesta"`
	Estatus     string `json:"estatus"`
}

func (r ExhortoRequest) toDomain() coreexhorto.Exhorto {
	ex := coreexhorto.Exhorto{
		ExhortoOrigenID:          r.ExhortoOrigenID,
		AutoridadID:              r.AutoridadID,
		ExhAreaID:                r.ExhAreaID,
		MateriaID:                r.MateriaID,
		MunicipioOrigenID:        r.MunicipioOrigenID,
		EstadoDestinoID:          r.EstadoDestinoID,
		MunicipioDestinoID:       r.MunicipioDestinoID,
		JuzgadoOrigenID:          r.JuzgadoOrigenID,
		JuzgadoOrigenNombre:      r.JuzgadoOrigenNombre,
		NumeroExpedienteOrigen:   r.NumeroExpedienteOrigen,
		NumeroOficioOrigen:       r.NumeroOficioOrigen,
		TipoJuicioAsuntoDelitos:  r.TipoJuicioAsuntoDelitos,
		JuezExhortante:           r.JuezExhortante,
		Fojas:                    r.Fojas,
		DiasResponder:            r.DiasResponder,
		TipoDiligenciacionNombre: r.TipoDiligenciacionNombre,
		Observaciones:            r.Observaciones,
	}
	if r.FechaOrigen != nil {
		ex.FechaOrigen = *r.FechaOrigen
	}
	for _, p := range r.Partes {
		ex.Partes = append(ex.Partes, p.toDomain())
	}
	for _, a := range r.Archivos {
		ex.Archivos = append(ex.Archivos, a.toDomain())
	}
	return ex
}

func (p ParteRequest) toDomain() coreexhorto.Parte {
	return coreexhorto.Parte{
		Nombre:          p.Nombre,
		ApellidoPaterno: p.ApellidoPaterno,
		ApellidoMaterno: p.ApellidoMaterno,
		Genero:          p.Genero,
		EsPersonaMoral:  p.EsPersonaMoral,
		TipoParte:       coreexhorto.TipoParte(p.TipoParte),
		TipoParteNombre: p.TipoParteNombre,
	}
}

func (a ArchivoRequest) toDomain() coreexhorto.Archivo {
	return coreexhorto.Archivo{
		NombreArchivo: a.NombreArchivo,
		HashSha1:      a.HashSha1,
		HashSha256:    a.HashSha256,
		TipoDocumento: coreexhorto.TipoDocumento(a.TipoDocumento),
		URL:           a.URL,
		Tamano:        a.Tamano,
	}
}

func toResponse(ex *coreexhorto.Exhorto) ExhortoResponse {
	resp := ExhortoResponse{
		ID:                       ex.ID,
		FolioSeguimiento:         ex.FolioSeguimiento,
		ExhortoOrigenID:          ex.ExhortoOrigenID,
		Estado:                   string(ex.Estado),
		EstadoDescripcion:        ex.Estado.Descripcion(),
		Remitente:                string(ex.Remitente),
		AutoridadID:              ex.AutoridadID,
		ExhAreaID:                ex.ExhAreaID,
		MateriaID:                ex.MateriaID,
		MunicipioOrigenID:        ex.MunicipioOrigenID,
		EstadoDestinoID:          ex.EstadoDestinoID,
		MunicipioDestinoID:       ex.MunicipioDestinoID,
		JuzgadoOrigenID:          ex.JuzgadoOrigenID,
		JuzgadoOrigenNombre:      ex.JuzgadoOrigenNombre,
		NumeroExpedienteOrigen:   ex.NumeroExpedienteOrigen,
		NumeroOficioOrigen:       ex.NumeroOficioOrigen,
		TipoJuicioAsuntoDelitos:  ex.TipoJuicioAsuntoDelitos,
		JuezExhortante:           ex.JuezExhortante,
		Fojas:                    ex.Fojas,
		DiasResponder:            ex.DiasResponder,
		TipoDiligenciacionNombre: ex.TipoDiligenciacionNombre,
		FechaOrigen:              ex.FechaOrigen,
		Observaciones:            ex.Observaciones,
		PorEnviarIntentos:        ex.Reintentos.Intentos,
		PorEnviarTiempoAnterior:  ex.Reintentos.TiempoAnterior,
		NumeroExhorto:            ex.NumeroExhorto,
		FechaHoraRecepcion:       ex.FechaHoraRecepcion,
		MunicipioTurnadoID:       ex.MunicipioTurnadoID,
		MunicipioTurnadoNombre:   ex.MunicipioTurnadoNombre,
		AreaTurnadoID:            ex.AreaTurnadoID,
		AreaTurnadoNombre:        ex.AreaTurnadoNombre,
		URLInfo:                  ex.URLInfo,
		RespuestaOrigenID:        ex.RespuestaOrigenID,
		Estatus:                  string(ex.Estatus),
		Creado:                   ex.CreadoEn,
		Modificado:               ex.ModificadoEn,
		Partes:                   make([]ParteResponse, 0, len(ex.Partes)),
		Archivos:                 make([]ArchivoResponse, 0, len(ex.Archivos)),
	}
	for _, p := range ex.Partes {
		resp.Partes = append(resp.Partes, toParteResponse(p))
	}
	for _, a := range ex.Archivos {
		resp.Archivos = append(resp.Archivos, toArchivoResponse(a))
	}
	return resp
}

func toParteResponse(p coreexhorto.Parte) ParteResponse {
	return ParteResponse{
		ID:             p.ID,
		NombreCompleto: p.NombreCompleto(),
		ParteRequest: ParteRequest{
			Nombre:          p.Nombre,
			ApellidoPaterno: p.ApellidoPaterno,
			ApellidoMaterno: p.ApellidoMaterno,
			Genero:          p.Genero,
			EsPersonaMoral:  p.EsPersonaMoral,
			TipoParte:       int(p.TipoParte),
			TipoParteNombre: p.TipoParteNombre,
		},
		Estatus: string(p.Estatus),
	}
}

func toArchivoResponse(a coreexhorto.Archivo) ArchivoResponse {
	return ArchivoResponse{
		ID: a.ID,
		ArchivoRequest: ArchivoRequest{
			NombreArchivo: a.NombreArchivo,
			HashSha1:      a.HashSha1,
			HashSha256:    a.HashSha256,
			TipoDocumento: int(a.TipoDocumento),
			URL:           a.URL,
			Tamano:        a.Tamano,
		},
		Estado:      string(a.Estado),
		EsRespuesta: a.EsRespuesta,
		Estatus:     string(a.Estatus),
	}
}
