package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pjecz/carina/internal/core/exhorto"
)

type lease struct {
	owner  string
	expira time.Time
}

// ExhortoRepository is an in-memory exhorto.Repository. The Func fields
// override single operations to inject failures.
type ExhortoRepository struct {
	mu        sync.Mutex
	exhortos  map[int64]exhorto.Exhorto
	leases    map[int64]lease
	nextID    int64
	nextHijo  int64
	Now       func() time.Time
	Mutations int

	MutateFunc       func(ctx context.Context, id int64, fn exhorto.MutateFunc) (*exhorto.Exhorto, error)
	AcquireLeaseFunc func(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error)

	// BeforeEdit runs at the start of every edit operation, before the row
	// is checked, so tests can change the exhorto in between.
	BeforeEdit func(id int64)
}

func NewExhortoRepository() *ExhortoRepository {
	return &ExhortoRepository{
		exhortos: make(map[int64]exhorto.Exhorto),
		leases:   make(map[int64]lease),
		Now:      time.Now,
	}
}

// Seed stores ex as given, assigning IDs where they are zero.
func (r *ExhortoRepository) Seed(ex exhorto.Exhorto) *exhorto.Exhorto {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ex.ID == 0 {
		r.nextID++
		ex.ID = r.nextID
	} else if ex.ID > r.nextID {
		r.nextID = ex.ID
	}
	if ex.Estatus == "" {
		ex.Estatus = exhorto.EstatusActivo
	}
	r.asignarHijos(&ex)
	r.exhortos[ex.ID] = copiar(ex)
	out := copiar(ex)
	return &out
}

// Get returns the stored record even when soft-deleted.
func (r *ExhortoRepository) Get(id int64) (exhorto.Exhorto, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exhortos[id]
	return copiar(ex), ok
}

// LeaseOwner returns who holds the lease on id, or "".
func (r *ExhortoRepository) LeaseOwner(id int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leases[id].owner
}

func (r *ExhortoRepository) Create(ctx context.Context, ex exhorto.Exhorto) (*exhorto.Exhorto, error) {
	ahora := r.Now()
	ex.CreadoEn = ahora
	ex.ModificadoEn = ahora
	ex.ID = 0
	return r.Seed(ex), nil
}

func (r *ExhortoRepository) ExisteFolio(ctx context.Context, folio string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.exhortos {
		if ex.FolioSeguimiento == folio {
			return true, nil
		}
	}
	return false, nil
}

func (r *ExhortoRepository) FindByID(ctx context.Context, id int64) (*exhorto.Exhorto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exhortos[id]
	if !ok || ex.Estatus != exhorto.EstatusActivo {
		return nil, exhorto.ErrNotFound
	}
	out := copiar(ex)
	return &out, nil
}

func (r *ExhortoRepository) FindByFolio(ctx context.Context, folio string) (*exhorto.Exhorto, error) {
	return r.buscar(func(ex exhorto.Exhorto) bool { return ex.FolioSeguimiento == folio })
}

func (r *ExhortoRepository) FindByOrigenID(ctx context.Context, origenID string, remitente exhorto.Remitente) (*exhorto.Exhorto, error) {
	return r.buscar(func(ex exhorto.Exhorto) bool {
		return ex.ExhortoOrigenID == origenID && ex.Remitente == remitente
	})
}

func (r *ExhortoRepository) buscar(match func(exhorto.Exhorto) bool) (*exhorto.Exhorto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.idsOrdenados() {
		ex := r.exhortos[id]
		if ex.Estatus == exhorto.EstatusActivo && match(ex) {
			out := copiar(ex)
			return &out, nil
		}
	}
	return nil, exhorto.ErrNotFound
}

func (r *ExhortoRepository) ListByEstado(ctx context.Context, estado exhorto.Estado) ([]exhorto.Exhorto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []exhorto.Exhorto
	for _, id := range r.idsOrdenados() {
		ex := r.exhortos[id]
		if ex.Estatus == exhorto.EstatusActivo && (estado == "" || ex.Estado == estado) {
			out = append(out, copiar(ex))
		}
	}
	return out, nil
}

// editable runs the BeforeEdit hook, locks and returns the stored exhorto
// when it still accepts edits. The caller must unlock r.mu on success.
func (r *ExhortoRepository) editable(id int64) (exhorto.Exhorto, error) {
	if r.BeforeEdit != nil {
		r.BeforeEdit(id)
	}
	r.mu.Lock()
	ex, ok := r.exhortos[id]
	if !ok || ex.Estatus != exhorto.EstatusActivo {
		r.mu.Unlock()
		return exhorto.Exhorto{}, exhorto.ErrNotFound
	}
	if !ex.Estado.Editable() {
		r.mu.Unlock()
		return exhorto.Exhorto{}, fmt.Errorf("%w: estado %s", exhorto.ErrNotEditable, ex.Estado)
	}
	return ex, nil
}

func (r *ExhortoRepository) UpdateDatos(ctx context.Context, ex exhorto.Exhorto) error {
	actual, err := r.editable(ex.ID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()
	// Solo los campos descriptivos; estado, reintentos y folio se conservan.
	ex.FolioSeguimiento = actual.FolioSeguimiento
	ex.Estado = actual.Estado
	ex.Remitente = actual.Remitente
	ex.Reintentos = actual.Reintentos
	ex.Estatus = actual.Estatus
	ex.CreadoEn = actual.CreadoEn
	ex.FechaHoraRecepcion = actual.FechaHoraRecepcion
	ex.Partes = actual.Partes
	ex.Archivos = actual.Archivos
	ex.ModificadoEn = r.Now()
	r.exhortos[ex.ID] = copiar(ex)
	return nil
}

func (r *ExhortoRepository) Mutate(ctx context.Context, id int64, fn exhorto.MutateFunc) (*exhorto.Exhorto, error) {
	if r.MutateFunc != nil {
		return r.MutateFunc(ctx, id, fn)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	actual, ok := r.exhortos[id]
	if !ok || actual.Estatus != exhorto.EstatusActivo {
		return nil, exhorto.ErrNotFound
	}
	trabajo := copiar(actual)
	if err := fn(&trabajo); err != nil {
		return nil, err
	}
	r.asignarHijos(&trabajo)
	trabajo.ModificadoEn = r.Now()
	r.exhortos[id] = copiar(trabajo)
	r.Mutations++
	return &trabajo, nil
}

func (r *ExhortoRepository) SetEstatus(ctx context.Context, id int64, estatus exhorto.Estatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ex, ok := r.exhortos[id]
	if !ok {
		return exhorto.ErrNotFound
	}
	ex.Estatus = estatus
	r.exhortos[id] = ex
	return nil
}

func (r *ExhortoRepository) AddParte(ctx context.Context, exhortoID int64, p exhorto.Parte) (*exhorto.Parte, error) {
	ex, err := r.editable(exhortoID)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	r.nextHijo++
	p.ID = r.nextHijo
	p.ExhortoID = exhortoID
	if p.Estatus == "" {
		p.Estatus = exhorto.EstatusActivo
	}
	ex.Partes = append(append([]exhorto.Parte(nil), ex.Partes...), p)
	r.exhortos[exhortoID] = ex
	return &p, nil
}

func (r *ExhortoRepository) SetParteEstatus(ctx context.Context, exhortoID, parteID int64, estatus exhorto.Estatus) error {
	ex, err := r.editable(exhortoID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()
	ex = copiar(ex)
	for i := range ex.Partes {
		if ex.Partes[i].ID == parteID {
			ex.Partes[i].Estatus = estatus
			r.exhortos[exhortoID] = ex
			return nil
		}
	}
	return exhorto.ErrNotFound
}

func (r *ExhortoRepository) AddArchivo(ctx context.Context, exhortoID int64, a exhorto.Archivo) (*exhorto.Archivo, error) {
	ex, err := r.editable(exhortoID)
	if err != nil {
		return nil, err
	}
	defer r.mu.Unlock()
	r.nextHijo++
	a.ID = r.nextHijo
	a.ExhortoID = exhortoID
	if a.Estatus == "" {
		a.Estatus = exhorto.EstatusActivo
	}
	ex.Archivos = append(append([]exhorto.Archivo(nil), ex.Archivos...), a)
	r.exhortos[exhortoID] = ex
	return &a, nil
}

func (r *ExhortoRepository) SetArchivoEstatus(ctx context.Context, exhortoID, archivoID int64, estatus exhorto.Estatus) error {
	ex, err := r.editable(exhortoID)
	if err != nil {
		return err
	}
	defer r.mu.Unlock()
	ex = copiar(ex)
	for i := range ex.Archivos {
		if ex.Archivos[i].ID == archivoID {
			ex.Archivos[i].Estatus = estatus
			r.exhortos[exhortoID] = ex
			return nil
		}
	}
	return exhorto.ErrNotFound
}

func (r *ExhortoRepository) AcquireLease(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error) {
	if r.AcquireLeaseFunc != nil {
		return r.AcquireLeaseFunc(ctx, id, owner, ttl)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exhortos[id]; !ok {
		return false, exhorto.ErrNotFound
	}
	ahora := r.Now()
	if l, ok := r.leases[id]; ok && l.owner != owner && ahora.Before(l.expira) {
		return false, nil
	}
	r.leases[id] = lease{owner: owner, expira: ahora.Add(ttl)}
	return true, nil
}

func (r *ExhortoRepository) ReleaseLease(ctx context.Context, id int64, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.leases[id]; ok && l.owner == owner {
		delete(r.leases, id)
	}
	return nil
}

// HoldLease simulates another worker holding the lease.
func (r *ExhortoRepository) HoldLease(id int64, owner string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[id] = lease{owner: owner, expira: r.Now().Add(ttl)}
}

func (r *ExhortoRepository) asignarHijos(ex *exhorto.Exhorto) {
	for i := range ex.Partes {
		if ex.Partes[i].ID == 0 {
			r.nextHijo++
			ex.Partes[i].ID = r.nextHijo
		}
		ex.Partes[i].ExhortoID = ex.ID
		if ex.Partes[i].Estatus == "" {
			ex.Partes[i].Estatus = exhorto.EstatusActivo
		}
	}
	for i := range ex.Archivos {
		if ex.Archivos[i].ID == 0 {
			r.nextHijo++
			ex.Archivos[i].ID = r.nextHijo
		}
		ex.Archivos[i].ExhortoID = ex.ID
		if ex.Archivos[i].Estatus == "" {
			ex.Archivos[i].Estatus = exhorto.EstatusActivo
		}
	}
}

func (r *ExhortoRepository) idsOrdenados() []int64 {
	ids := make([]int64, 0, len(r.exhortos))
	for id := range r.exhortos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copiar(ex exhorto.Exhorto) exhorto.Exhorto {
	out := ex
	out.Partes = append([]exhorto.Parte(nil), ex.Partes...)
	out.Archivos = append([]exhorto.Archivo(nil), ex.Archivos...)
	if ex.FechaHoraRecepcion != nil {
		t := *ex.FechaHoraRecepcion
		out.FechaHoraRecepcion = &t
	}
	if ex.Reintentos.TiempoAnterior != nil {
		t := *ex.Reintentos.TiempoAnterior
		out.Reintentos.TiempoAnterior = &t
	}
	return out
}

var _ exhorto.Repository = (*ExhortoRepository)(nil)
