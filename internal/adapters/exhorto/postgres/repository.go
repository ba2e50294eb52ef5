package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pjecz/carina/internal/core/exhorto"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements exhorto.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL exhorto repository.
func NewRepository(pool *pgxpool.Pool) exhorto.Repository {
	return &Repository{pool: pool}
}

const selectExhorto = `
	SELECT e.id, e.folio_seguimiento, e.exhorto_origen_id,
	       COALESCE(e.autoridad_id, 0), COALESCE(e.exh_area_id, 0), e.materia_id,
	       e.municipio_origen_id, e.estado_destino_id, e.municipio_destino_id,
	       m.clave, eo.clave, mo.clave,
	       e.juzgado_origen_id, e.juzgado_origen_nombre, e.numero_expediente_origen,
	       e.numero_oficio_origen, e.tipo_juicio_asunto_delitos, e.juez_exhortante,
	       e.fojas, e.dias_responder, e.tipo_diligenciacion_nombre, e.fecha_origen,
	       e.observaciones,
	       e.estado, e.remitente, e.por_enviar_intentos, e.por_enviar_tiempo_anterior,
	       e.numero_exhorto,
	       e.fecha_hora_recepcion, e.municipio_turnado_id, e.municipio_turnado_nombre,
	       e.area_turnado_id, e.area_turnado_nombre, e.url_info, e.respuesta_origen_id,
	       e.estatus, e.creado, e.modificado
	FROM exh_exhortos e
	JOIN materias m ON m.id = e.materia_id
	JOIN municipios mo ON mo.id = e.municipio_origen_id
	JOIN estados eo ON eo.id = mo.estado_id
`

func scanExhorto(row pgx.Row) (*exhorto.Exhorto, error) {
	var ex exhorto.Exhorto
	var estado, remitente, estatus string
	err := row.Scan(
		&ex.ID, &ex.FolioSeguimiento, &ex.ExhortoOrigenID,
		&ex.AutoridadID, &ex.ExhAreaID, &ex.MateriaID,
		&ex.MunicipioOrigenID, &ex.EstadoDestinoID, &ex.MunicipioDestinoID,
		&ex.MateriaClave, &ex.EstadoOrigenClave, &ex.MunicipioOrigenClave,
		&ex.JuzgadoOrigenID, &ex.JuzgadoOrigenNombre, &ex.NumeroExpedienteOrigen,
		&ex.NumeroOficioOrigen, &ex.TipoJuicioAsuntoDelitos, &ex.JuezExhortante,
		&ex.Fojas, &ex.DiasResponder, &ex.TipoDiligenciacionNombre, &ex.FechaOrigen,
		&ex.Observaciones,
		&estado, &remitente, &ex.Reintentos.Intentos, &ex.Reintentos.TiempoAnterior,
		&ex.NumeroExhorto,
		&ex.FechaHoraRecepcion, &ex.MunicipioTurnadoID, &ex.MunicipioTurnadoNombre,
		&ex.AreaTurnadoID, &ex.AreaTurnadoNombre, &ex.URLInfo, &ex.RespuestaOrigenID,
		&estatus, &ex.CreadoEn, &ex.ModificadoEn,
	)
	if err != nil {
		return nil, err
	}
	ex.Estado = exhorto.Estado(estado)
	ex.Remitente = exhorto.Remitente(remitente)
	ex.Estatus = exhorto.Estatus(strings.TrimSpace(estatus))
	return &ex, nil
}

// load reads one exhorto with its partes and archivos. forUpdate locks the
// exhorto row until the transaction ends.
func (r *Repository) load(ctx context.Context, q querier, where string, forUpdate bool, args ...any) (*exhorto.Exhorto, error) {
	query := selectExhorto + " WHERE " + where
	if forUpdate {
		query += " FOR UPDATE OF e"
	}
	ex, err := scanExhorto(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, exhorto.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query exhorto: %w", err)
	}

	if ex.Partes, err = loadPartes(ctx, q, ex.ID); err != nil {
		return nil, err
	}
	if ex.Archivos, err = loadArchivos(ctx, q, ex.ID); err != nil {
		return nil, err
	}
	return ex, nil
}

func loadPartes(ctx context.Context, q querier, exhortoID int64) ([]exhorto.Parte, error) {
	rows, err := q.Query(ctx, `
		SELECT id, exh_exhorto_id, nombre, apellido_paterno, apellido_materno, genero,
		       es_persona_moral, tipo_parte, tipo_parte_nombre, estatus
		FROM exh_exhortos_partes
		WHERE exh_exhorto_id = $1
		ORDER BY id
	`, exhortoID)
	if err != nil {
		return nil, fmt.Errorf("query partes: %w", err)
	}
	defer rows.Close()

	var partes []exhorto.Parte
	for rows.Next() {
		var p exhorto.Parte
		var genero, estatus string
		var tipo int
		if err := rows.Scan(&p.ID, &p.ExhortoID, &p.Nombre, &p.ApellidoPaterno, &p.ApellidoMaterno,
			&genero, &p.EsPersonaMoral, &tipo, &p.TipoParteNombre, &estatus); err != nil {
			return nil, fmt.Errorf("scan parte: %w", err)
		}
		p.Genero = strings.TrimSpace(genero)
		p.TipoParte = exhorto.TipoParte(tipo)
		p.Estatus = exhorto.Estatus(strings.TrimSpace(estatus))
		partes = append(partes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partes: %w", err)
	}
	return partes, nil
}

func loadArchivos(ctx context.Context, q querier, exhortoID int64) ([]exhorto.Archivo, error) {
	rows, err := q.Query(ctx, `
		SELECT id, exh_exhorto_id, nombre_archivo, hash_sha1, hash_sha256, tipo_documento,
		       url, estado, tamano, fecha_hora_recepcion, es_respuesta, estatus
		FROM exh_exhortos_archivos
		WHERE exh_exhorto_id = $1
		ORDER BY id
	`, exhortoID)
	if err != nil {
		return nil, fmt.Errorf("query archivos: %w", err)
	}
	defer rows.Close()

	var archivos []exhorto.Archivo
	for rows.Next() {
		var a exhorto.Archivo
		var tipo int
		var estado, estatus string
		if err := rows.Scan(&a.ID, &a.ExhortoID, &a.NombreArchivo, &a.HashSha1, &a.HashSha256, &tipo,
			&a.URL, &estado, &a.Tamano, &a.FechaHoraRecepcion, &a.EsRespuesta, &estatus); err != nil {
			return nil, fmt.Errorf("scan archivo: %w", err)
		}
		a.TipoDocumento = exhorto.TipoDocumento(tipo)
		a.Estado = exhorto.EstadoArchivo(estado)
		a.Estatus = exhorto.Estatus(strings.TrimSpace(estatus))
		archivos = append(archivos, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archivos: %w", err)
	}
	return archivos, nil
}

// Create persists a new exhorto together with its partes and archivos.
func (r *Repository) Create(ctx context.Context, ex exhorto.Exhorto) (*exhorto.Exhorto, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO exh_exhortos (
			folio_seguimiento, exhorto_origen_id, autoridad_id, exh_area_id, materia_id,
			municipio_origen_id, estado_destino_id, municipio_destino_id,
			juzgado_origen_id, juzgado_origen_nombre, numero_expediente_origen,
			numero_oficio_origen, tipo_juicio_asunto_delitos, juez_exhortante,
			fojas, dias_responder, tipo_diligenciacion_nombre, fecha_origen, observaciones,
			estado, remitente, por_enviar_intentos, estatus
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, 0, 'A'
		) RETURNING id
	`,
		ex.FolioSeguimiento, ex.ExhortoOrigenID, nullID(ex.AutoridadID), nullID(ex.ExhAreaID), ex.MateriaID,
		ex.MunicipioOrigenID, ex.EstadoDestinoID, ex.MunicipioDestinoID,
		ex.JuzgadoOrigenID, ex.JuzgadoOrigenNombre, ex.NumeroExpedienteOrigen,
		ex.NumeroOficioOrigen, ex.TipoJuicioAsuntoDelitos, ex.JuezExhortante,
		ex.Fojas, ex.DiasResponder, ex.TipoDiligenciacionNombre, ex.FechaOrigen, ex.Observaciones,
		string(ex.Estado), string(ex.Remitente),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &exhorto.ValidationError{Errores: []string{"folio_seguimiento ya existe"}}
		}
		return nil, fmt.Errorf("insert exhorto: %w", err)
	}

	for _, p := range ex.Partes {
		if _, err := insertParte(ctx, tx, id, p); err != nil {
			return nil, err
		}
	}
	for _, a := range ex.Archivos {
		if _, err := insertArchivo(ctx, tx, id, a); err != nil {
			return nil, err
		}
	}

	created, err := r.load(ctx, tx, "e.id = $1", false, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

func (r *Repository) ExisteFolio(ctx context.Context, folio string) (bool, error) {
	var existe bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM exh_exhortos WHERE folio_seguimiento = $1)`, folio).Scan(&existe)
	if err != nil {
		return false, fmt.Errorf("query folio: %w", err)
	}
	return existe, nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*exhorto.Exhorto, error) {
	return r.load(ctx, r.pool, "e.id = $1 AND e.estatus = 'A'", false, id)
}

func (r *Repository) FindByFolio(ctx context.Context, folio string) (*exhorto.Exhorto, error) {
	return r.load(ctx, r.pool, "e.folio_seguimiento = $1 AND e.estatus = 'A'", false, folio)
}

// FindByOrigenID returns the most recent match; exhorto_origen_id is only
// unique per sender.
func (r *Repository) FindByOrigenID(ctx context.Context, origenID string, remitente exhorto.Remitente) (*exhorto.Exhorto, error) {
	return r.load(ctx, r.pool,
		"e.id = (SELECT MAX(id) FROM exh_exhortos WHERE exhorto_origen_id = $1 AND remitente = $2 AND estatus = 'A')",
		false, origenID, string(remitente))
}

func (r *Repository) ListByEstado(ctx context.Context, estado exhorto.Estado) ([]exhorto.Exhorto, error) {
	query := selectExhorto + " WHERE e.estatus = 'A'"
	args := []any{}
	if estado != "" {
		query += " AND e.estado = $1"
		args = append(args, string(estado))
	}
	query += " ORDER BY e.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exhortos: %w", err)
	}
	var exhortos []exhorto.Exhorto
	for rows.Next() {
		ex, err := scanExhorto(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan exhorto: %w", err)
		}
		exhortos = append(exhortos, *ex)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exhortos: %w", err)
	}

	// Las partes y archivos se leen después de cerrar el cursor principal.
	for i := range exhortos {
		if exhortos[i].Partes, err = loadPartes(ctx, r.pool, exhortos[i].ID); err != nil {
			return nil, err
		}
		if exhortos[i].Archivos, err = loadArchivos(ctx, r.pool, exhortos[i].ID); err != nil {
			return nil, err
		}
	}
	return exhortos, nil
}

// editar locks the exhorto row and runs fn in the same transaction only
// while the exhorto is active and still editable. A transition committed in
// between is seen here because the lock waits for it.
func (r *Repository) editar(ctx context.Context, id int64, fn func(q querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var estado string
	err = tx.QueryRow(ctx, `
		SELECT estado FROM exh_exhortos WHERE id = $1 AND estatus = 'A' FOR UPDATE
	`, id).Scan(&estado)
	if errors.Is(err, pgx.ErrNoRows) {
		return exhorto.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock exhorto: %w", err)
	}
	if !exhorto.Estado(estado).Editable() {
		return fmt.Errorf("%w: estado %s", exhorto.ErrNotEditable, estado)
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repository) UpdateDatos(ctx context.Context, ex exhorto.Exhorto) error {
	return r.editar(ctx, ex.ID, func(q querier) error {
		return updateDatos(ctx, q, ex)
	})
}

func updateDatos(ctx context.Context, q querier, ex exhorto.Exhorto) error {
	tag, err := q.Exec(ctx, `
		UPDATE exh_exhortos SET
			autoridad_id = $1,
			exh_area_id = $2,
			materia_id = $3,
			municipio_origen_id = $4,
			estado_destino_id = $5,
			municipio_destino_id = $6,
			juzgado_origen_id = $7,
			juzgado_origen_nombre = $8,
			numero_expediente_origen = $9,
			numero_oficio_origen = $10,
			tipo_juicio_asunto_delitos = $11,
			juez_exhortante = $12,
			fojas = $13,
			dias_responder = $14,
			tipo_diligenciacion_nombre = $15,
			fecha_origen = $16,
			observaciones = $17,
			modificado = NOW()
		WHERE id = $18 AND estatus = 'A'
	`,
		nullID(ex.AutoridadID), nullID(ex.ExhAreaID), ex.MateriaID, ex.MunicipioOrigenID,
		ex.EstadoDestinoID, ex.MunicipioDestinoID, ex.JuzgadoOrigenID, ex.JuzgadoOrigenNombre,
		ex.NumeroExpedienteOrigen, ex.NumeroOficioOrigen, ex.TipoJuicioAsuntoDelitos,
		ex.JuezExhortante, ex.Fojas, ex.DiasResponder, ex.TipoDiligenciacionNombre,
		ex.FechaOrigen, ex.Observaciones, ex.ID,
	)
	if err != nil {
		return fmt.Errorf("update exhorto: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return exhorto.ErrNotFound
	}
	return nil
}

// Mutate locks the row with SELECT ... FOR UPDATE so two workers never
// apply transitions over the same stale estado.
func (r *Repository) Mutate(ctx context.Context, id int64, fn exhorto.MutateFunc) (*exhorto.Exhorto, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ex, err := r.load(ctx, tx, "e.id = $1 AND e.estatus = 'A'", true, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ex); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE exh_exhortos SET
			estado = $1,
			por_enviar_intentos = $2,
			por_enviar_tiempo_anterior = $3,
			numero_exhorto = $4,
			fecha_hora_recepcion = $5,
			municipio_turnado_id = $6,
			municipio_turnado_nombre = $7,
			area_turnado_id = $8,
			area_turnado_nombre = $9,
			url_info = $10,
			respuesta_origen_id = $11,
			modificado = NOW()
		WHERE id = $12
	`,
		string(ex.Estado), ex.Reintentos.Intentos, ex.Reintentos.TiempoAnterior, ex.NumeroExhorto,
		ex.FechaHoraRecepcion, ex.MunicipioTurnadoID, ex.MunicipioTurnadoNombre,
		ex.AreaTurnadoID, ex.AreaTurnadoNombre, ex.URLInfo, ex.RespuestaOrigenID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update exhorto estado: %w", err)
	}

	for i := range ex.Archivos {
		if ex.Archivos[i].ID != 0 {
			continue
		}
		nuevo, err := insertArchivo(ctx, tx, id, ex.Archivos[i])
		if err != nil {
			return nil, err
		}
		ex.Archivos[i] = *nuevo
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return ex, nil
}

func (r *Repository) SetEstatus(ctx context.Context, id int64, estatus exhorto.Estatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE exh_exhortos SET estatus = $1, modificado = NOW() WHERE id = $2`, string(estatus), id)
	if err != nil {
		return fmt.Errorf("update estatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return exhorto.ErrNotFound
	}
	return nil
}

func (r *Repository) AddParte(ctx context.Context, exhortoID int64, p exhorto.Parte) (*exhorto.Parte, error) {
	var nueva *exhorto.Parte
	err := r.editar(ctx, exhortoID, func(q querier) error {
		var err error
		nueva, err = insertParte(ctx, q, exhortoID, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nueva, nil
}

func (r *Repository) SetParteEstatus(ctx context.Context, exhortoID, parteID int64, estatus exhorto.Estatus) error {
	return r.editar(ctx, exhortoID, func(q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE exh_exhortos_partes SET estatus = $1, modificado = NOW()
			WHERE id = $2 AND exh_exhorto_id = $3
		`, string(estatus), parteID, exhortoID)
		if err != nil {
			return fmt.Errorf("update parte estatus: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return exhorto.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) AddArchivo(ctx context.Context, exhortoID int64, a exhorto.Archivo) (*exhorto.Archivo, error) {
	var nuevo *exhorto.Archivo
	err := r.editar(ctx, exhortoID, func(q querier) error {
		var err error
		nuevo, err = insertArchivo(ctx, q, exhortoID, a)
		return err
	})
	if err != nil {
		return nil, err
	}
	return nuevo, nil
}

func (r *Repository) SetArchivoEstatus(ctx context.Context, exhortoID, archivoID int64, estatus exhorto.Estatus) error {
	return r.editar(ctx, exhortoID, func(q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE exh_exhortos_archivos SET estatus = $1, modificado = NOW()
			WHERE id = $2 AND exh_exhorto_id = $3
		`, string(estatus), archivoID, exhortoID)
		if err != nil {
			return fmt.Errorf("update archivo estatus: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return exhorto.ErrNotFound
		}
		return nil
	})
}

// AcquireLease is a conditional UPDATE; the row is taken only when free,
// expired or already ours.
func (r *Repository) AcquireLease(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE exh_exhortos
		SET lease_owner = $2, lease_expira = NOW() + make_interval(secs => $3::double precision)
		WHERE id = $1
		  AND (lease_owner IS NULL OR lease_expira IS NULL OR lease_expira < NOW() OR lease_owner = $2)
	`, id, owner, ttl.Seconds())
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var existe bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM exh_exhortos WHERE id = $1)`, id).Scan(&existe); err != nil {
		return false, fmt.Errorf("query exhorto: %w", err)
	}
	if !existe {
		return false, exhorto.ErrNotFound
	}
	return false, nil
}

func (r *Repository) ReleaseLease(ctx context.Context, id int64, owner string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE exh_exhortos SET lease_owner = NULL, lease_expira = NULL
		WHERE id = $1 AND lease_owner = $2
	`, id, owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

func insertParte(ctx context.Context, q querier, exhortoID int64, p exhorto.Parte) (*exhorto.Parte, error) {
	p.ExhortoID = exhortoID
	if p.Estatus == "" {
		p.Estatus = exhorto.EstatusActivo
	}
	err := q.QueryRow(ctx, `
		INSERT INTO exh_exhortos_partes (
			exh_exhorto_id, nombre, apellido_paterno, apellido_materno, genero,
			es_persona_moral, tipo_parte, tipo_parte_nombre, estatus
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, exhortoID, p.Nombre, p.ApellidoPaterno, p.ApellidoMaterno, p.Genero,
		p.EsPersonaMoral, int(p.TipoParte), p.TipoParteNombre, string(p.Estatus),
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert parte: %w", err)
	}
	return &p, nil
}

func insertArchivo(ctx context.Context, q querier, exhortoID int64, a exhorto.Archivo) (*exhorto.Archivo, error) {
	a.ExhortoID = exhortoID
	if a.Estatus == "" {
		a.Estatus = exhorto.EstatusActivo
	}
	if a.Estado == "" {
		a.Estado = exhorto.EstadoArchivoPendiente
	}
	if a.FechaHoraRecepcion.IsZero() {
		a.FechaHoraRecepcion = time.Now()
	}
	err := q.QueryRow(ctx, `
		INSERT INTO exh_exhortos_archivos (
			exh_exhorto_id, nombre_archivo, hash_sha1, hash_sha256, tipo_documento,
			url, estado, tamano, fecha_hora_recepcion, es_respuesta, estatus
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, exhortoID, a.NombreArchivo, a.HashSha1, a.HashSha256, int(a.TipoDocumento),
		a.URL, string(a.Estado), a.Tamano, a.FechaHoraRecepcion, a.EsRespuesta, string(a.Estatus),
	).Scan(&a.ID)
	if err != nil {
		return nil, fmt.Errorf("insert archivo: %w", err)
	}
	return &a, nil
}

// nullID maps the zero value of an optional reference to NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
