package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pjecz/carina/internal/application/delivery"
	"pjecz/carina/internal/application/polling"
	"pjecz/carina/internal/application/probe"
	"pjecz/carina/internal/core/exhorto"
	"pjecz/carina/internal/core/externo"
)

type fakeEnviador struct {
	opts    delivery.Opciones
	resumen delivery.Resumen
	err     error
}

func (f *fakeEnviador) Enviar(ctx context.Context, opts delivery.Opciones) (delivery.Resumen, error) {
	f.opts = opts
	return f.resumen, f.err
}

type fakeConsultor struct {
	opts    polling.Opciones
	resumen polling.Resumen
	err     error
}

func (f *fakeConsultor) Consultar(ctx context.Context, opts polling.Opciones) (polling.Resumen, error) {
	f.opts = opts
	return f.resumen, f.err
}

type fakeProbador struct {
	clave   string
	mensaje string
	pruebas []probe.Prueba
	err     error
}

func (f *fakeProbador) Probar(ctx context.Context, clave string) (string, []probe.Prueba, error) {
	f.clave = clave
	return f.mensaje, f.pruebas, f.err
}

type fakeAlimentador struct {
	externos []externo.Externo
}

func (f *fakeAlimentador) Alimentar(ctx context.Context, externos []externo.Externo) (int, error) {
	f.externos = externos
	return len(externos), nil
}

func ejecutar(t *testing.T, s *Servicios, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(func(ctx context.Context) (*Servicios, error) { return s, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEnviar(t *testing.T) {
	env := &fakeEnviador{resumen: delivery.Resumen{Candidatos: 2, Recibidos: 2}}
	out, err := ejecutar(t, &Servicios{Enviador: env}, "exh_exhortos", "enviar", "--exhorto_origen_id", " O-1 ", "--probar")

	require.NoError(t, err)
	assert.Equal(t, "O-1", env.opts.ExhortoOrigenID)
	assert.True(t, env.opts.Probar)
	assert.NotNil(t, env.opts.Salida)
	assert.Contains(t, out, "Se enviaron 2 con éxito.")
}

func TestEnviar_SinCandidatos(t *testing.T) {
	out, err := ejecutar(t, &Servicios{Enviador: &fakeEnviador{}}, "exh_exhortos", "enviar")

	require.NoError(t, err)
	assert.Contains(t, out, "No hay exhortos por enviar.")
}

func TestConsultar(t *testing.T) {
	con := &fakeConsultor{resumen: polling.Resumen{Candidatos: 1, Respondidos: 1}}
	out, err := ejecutar(t, &Servicios{Consultor: con}, "exh_exhortos", "consultar", "--folio_seguimiento", "F-1")

	require.NoError(t, err)
	assert.Equal(t, "F-1", con.opts.FolioSeguimiento)
	assert.False(t, con.opts.Probar)
	assert.Contains(t, out, "Se consultaron 1 con éxito.")
}

func TestErroresDeUso(t *testing.T) {
	tests := []struct {
		name string
		s    *Servicios
		args []string
		uso  bool
	}{
		{
			name: "folio inexistente",
			s:    &Servicios{Consultor: &fakeConsultor{err: exhorto.ErrNotFound}},
			args: []string{"exh_exhortos", "consultar", "--folio_seguimiento", "F-9"},
			uso:  true,
		},
		{
			name: "exhorto no enviable",
			s:    &Servicios{Enviador: &fakeEnviador{err: &exhorto.ValidationError{Errores: []string{"no está POR ENVIAR"}}}},
			args: []string{"exh_exhortos", "enviar", "--exhorto_origen_id", "O-1"},
			uso:  true,
		},
		{
			name: "registro vacío",
			s:    &Servicios{Probador: &fakeProbador{err: externo.ErrEmpty}},
			args: []string{"exh_externos", "probar_endpoints"},
			uso:  true,
		},
		{
			name: "base de datos caída",
			s:    &Servicios{Enviador: &fakeEnviador{err: errors.New("connection refused")}},
			args: []string{"exh_exhortos", "enviar"},
			uso:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ejecutar(t, tt.s, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.uso, errors.Is(err, ErrUso))
		})
	}
}

func TestProbarEndpoints(t *testing.T) {
	pro := &fakeProbador{
		mensaje: "1 respuestas exitosas de 2",
		pruebas: []probe.Prueba{
			{Clave: "SLP", Exito: true},
			{Clave: "ZAC", Detalle: "status 500"},
		},
	}
	out, err := ejecutar(t, &Servicios{Probador: pro}, "exh_externos", "probar_endpoints")

	require.NoError(t, err)
	assert.Equal(t, "", pro.clave)
	assert.Contains(t, out, "Éxito en SLP")
	assert.Contains(t, out, "1 respuestas exitosas de 2")
}

func TestAlimentar(t *testing.T) {
	contenido := `externos:
  - clave: slp
    descripcion: San Luis Potosí
    estado_id: 24
    api_key: secreta
    endpoint_recibir_exhorto: https://slp.example/recibir
    endpoint_consultar_materias: " https://slp.example/materias "
`
	ruta := filepath.Join(t.TempDir(), "externos.yaml")
	require.NoError(t, os.WriteFile(ruta, []byte(contenido), 0o600))

	ali := &fakeAlimentador{}
	out, err := ejecutar(t, &Servicios{Alimentador: ali}, "exh_externos", "alimentar", "--archivo", ruta)

	require.NoError(t, err)
	assert.Contains(t, out, "Se alimentaron 1 externos.")
	require.Len(t, ali.externos, 1)
	e := ali.externos[0]
	assert.Equal(t, "SLP", e.Clave)
	assert.Equal(t, int64(24), e.EstadoID)
	assert.Equal(t, "https://slp.example/materias", e.URL(externo.EndpointConsultarMaterias))
	assert.NoError(t, e.Requiere(externo.EndpointRecibirExhorto))
}

func TestLeerExternos_Invalidos(t *testing.T) {
	tests := []struct {
		name      string
		contenido string
		contiene  string
	}{
		{"sin clave", "externos:\n  - estado_id: 1\n", "sin clave"},
		{"sin estado", "externos:\n  - clave: ZAC\n", "sin estado_id"},
		{"campo desconocido", "externos:\n  - clave: ZAC\n    estado_id: 32\n    endpoint_inventado: x\n", "endpoint_inventado"},
		{"yaml roto", "externos: [\n", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LeerExternos(strings.NewReader(tt.contenido))
			require.ErrorIs(t, err, ErrUso)
			assert.Contains(t, err.Error(), tt.contiene)
		})
	}
}

func TestAlimentar_SinArchivo(t *testing.T) {
	_, err := ejecutar(t, &Servicios{Alimentador: &fakeAlimentador{}}, "exh_externos", "alimentar", "--archivo", "/no/existe.yaml")
	require.ErrorIs(t, err, ErrUso)
}
