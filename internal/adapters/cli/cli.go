// Package cli exposes the operator commands of carina-cli.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pjecz/carina/internal/application/delivery"
	"pjecz/carina/internal/application/polling"
	"pjecz/carina/internal/application/probe"
	"pjecz/carina/internal/core/exhorto"
	"pjecz/carina/internal/core/externo"
)

type Enviador interface {
	Enviar(ctx context.Context, opts delivery.Opciones) (delivery.Resumen, error)
}

type Consultor interface {
	Consultar(ctx context.Context, opts polling.Opciones) (polling.Resumen, error)
}

type Probador interface {
	Probar(ctx context.Context, clave string) (string, []probe.Prueba, error)
}

type Alimentador interface {
	Alimentar(ctx context.Context, externos []externo.Externo) (int, error)
}

// Servicios are the use cases behind the commands.
type Servicios struct {
	Enviador    Enviador
	Consultor   Consultor
	Probador    Probador
	Alimentador Alimentador
}

// Cargador builds the services on first use, so --help never dials the
// database.
type Cargador func(ctx context.Context) (*Servicios, error)

// ErrUso marks validation and lookup failures; main exits 1 on any error.
var ErrUso = errors.New("uso inválido")

func NewRootCommand(cargar Cargador) *cobra.Command {
	root := &cobra.Command{
		Use:           "carina-cli",
		Short:         "Operación de exhortos electrónicos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(exhortosCommand(cargar), externosCommand(cargar))
	return root
}

func exhortosCommand(cargar Cargador) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exh_exhortos",
		Short: "Enviar y consultar exhortos",
	}

	var folio string
	var probarConsulta bool
	consultar := &cobra.Command{
		Use:   "consultar",
		Short: "Consultar los exhortos enviados en su destino",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := cargar(cmd.Context())
			if err != nil {
				return err
			}
			resumen, err := s.Consultor.Consultar(cmd.Context(), polling.Opciones{
				FolioSeguimiento: strings.TrimSpace(folio),
				Probar:           probarConsulta,
				Salida:           cmd.OutOrStdout(),
			})
			if err != nil {
				return usoSi(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resumen.Mensaje())
			return nil
		},
	}
	consultar.Flags().StringVar(&folio, "folio_seguimiento", "", "consultar solo este folio")
	consultar.Flags().BoolVar(&probarConsulta, "probar", false, "mostrar la respuesta sin guardar cambios")

	var origen string
	var probarEnvio bool
	enviar := &cobra.Command{
		Use:   "enviar",
		Short: "Enviar los exhortos POR ENVIAR",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := cargar(cmd.Context())
			if err != nil {
				return err
			}
			resumen, err := s.Enviador.Enviar(cmd.Context(), delivery.Opciones{
				ExhortoOrigenID: strings.TrimSpace(origen),
				Probar:          probarEnvio,
				Salida:          cmd.OutOrStdout(),
			})
			if err != nil {
				return usoSi(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resumen.Mensaje())
			return nil
		},
	}
	enviar.Flags().StringVar(&origen, "exhorto_origen_id", "", "enviar solo este exhorto")
	enviar.Flags().BoolVar(&probarEnvio, "probar", false, "mostrar los datos a enviar sin enviarlos")

	cmd.AddCommand(consultar, enviar)
	return cmd
}

func externosCommand(cargar Cargador) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exh_externos",
		Short: "Registro de jurisdicciones destino",
	}

	var clave string
	probar := &cobra.Command{
		Use:   "probar_endpoints",
		Short: "Probar endpoint_consultar_materias de cada externo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := cargar(cmd.Context())
			if err != nil {
				return err
			}
			mensaje, pruebas, err := s.Probador.Probar(cmd.Context(), clave)
			if err != nil {
				return usoSi(err)
			}
			if len(pruebas) > 1 {
				for _, p := range pruebas {
					fmt.Fprintln(cmd.OutOrStdout(), p.Mensaje())
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), mensaje)
			return nil
		},
	}
	probar.Flags().StringVar(&clave, "clave", "", "probar solo este externo")

	var archivo string
	alimentar := &cobra.Command{
		Use:   "alimentar",
		Short: "Cargar o actualizar externos desde un archivo YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(archivo)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUso, err)
			}
			defer f.Close()
			externos, err := LeerExternos(f)
			if err != nil {
				return err
			}
			s, err := cargar(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.Alimentador.Alimentar(cmd.Context(), externos)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Se alimentaron %d externos.\n", n)
			return nil
		},
	}
	alimentar.Flags().StringVar(&archivo, "archivo", "", "archivo YAML con los externos")
	_ = alimentar.MarkFlagRequired("archivo")

	cmd.AddCommand(probar, alimentar)
	return cmd
}

func usoSi(err error) error {
	if errors.Is(err, exhorto.ErrNotFound) || errors.Is(err, exhorto.ErrValidation) ||
		errors.Is(err, externo.ErrNotFound) || errors.Is(err, externo.ErrEmpty) {
		return fmt.Errorf("%w: %w", ErrUso, err)
	}
	return err
}

type archivoExternos struct {
	Externos []externoYAML `yaml:"externos"`
}

type externoYAML struct {
	Clave       string            `yaml:"clave"`
	Descripcion string            `yaml:"descripcion"`
	EstadoID    int64             `yaml:"estado_id"`
	APIKey      string            `yaml:"api_key"`
	Endpoints   map[string]string `yaml:",inline"`
}

// LeerExternos parses the registry file:
//
//	externos:
//	  - clave: SLP
//	    estado_id: 24
//	    api_key: ...
//	    endpoint_recibir_exhorto: https://...
func LeerExternos(r io.Reader) ([]externo.Externo, error) {
	var doc archivoExternos
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrUso, err)
	}

	validos := make(map[string]bool, len(externo.Endpoints))
	for _, ep := range externo.Endpoints {
		validos[string(ep)] = true
	}

	out := make([]externo.Externo, 0, len(doc.Externos))
	for i, e := range doc.Externos {
		clave := strings.ToUpper(strings.TrimSpace(e.Clave))
		if clave == "" {
			return nil, fmt.Errorf("%w: externo %d sin clave", ErrUso, i+1)
		}
		if e.EstadoID <= 0 {
			return nil, fmt.Errorf("%w: externo %s sin estado_id", ErrUso, clave)
		}
		urls := make(map[externo.Endpoint]string, len(e.Endpoints))
		for k, v := range e.Endpoints {
			if !validos[k] {
				return nil, fmt.Errorf("%w: externo %s: campo desconocido %q", ErrUso, clave, k)
			}
			urls[externo.Endpoint(k)] = strings.TrimSpace(v)
		}
		out = append(out, externo.Externo{
			Clave:       clave,
			Descripcion: e.Descripcion,
			EstadoID:    e.EstadoID,
			APIKey:      e.APIKey,
			URLs:        urls,
			Estatus:     "A",
		})
	}
	return out, nil
}
