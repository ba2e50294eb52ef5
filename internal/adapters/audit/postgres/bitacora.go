package postgres

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"

	"pjecz/carina/internal/core/audit"
	ctxutil "pjecz/carina/internal/infrastructure/context"
)

// usuarioSistema firma los cambios hechos por tareas programadas.
const usuarioSistema = "sistema"

// BitacoraRecorder writes entries to the bitacoras table. The usuario comes
// from the request context.
type BitacoraRecorder struct {
	pool *pgxpool.Pool
}

func NewBitacoraRecorder(pool *pgxpool.Pool) audit.Recorder {
	return &BitacoraRecorder{pool: pool}
}

func (r *BitacoraRecorder) Record(ctx context.Context, b audit.Bitacora) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bitacoras (modulo, descripcion, url, usuario)
		VALUES ($1, $2, $3, $4)
	`, b.Modulo, truncar(b.Descripcion, 256), truncar(b.URL, 512), truncar(usuario(ctx, b), 256))
	if err != nil {
		return fmt.Errorf("insert bitacora: %w", err)
	}
	return nil
}

// truncar corta a n runas; las descripciones incluyen mensajes remotos de
// longitud arbitraria.
func truncar(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func usuario(ctx context.Context, b audit.Bitacora) string {
	if b.Usuario != "" {
		return b.Usuario
	}
	if u := ctxutil.GetUsuario(ctx); u != "" {
		return u
	}
	return usuarioSistema
}
