package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/ports/kv"
)

var (
	ErrIDRequired    = errors.New("id required")
	ErrAlreadyExists = errors.New("already exists")
)

// patientRepo mantiene el orden de inserción en un slice.
// Con store != nil restaura el snapshot en el primer uso y lo reescribe
// completo después de cada mutación.
type patientRepo struct {
	mu     sync.RWMutex
	items  []patients.Patient
	loaded bool

	seed  func() []patients.Patient
	store kv.Store
	log   logger.Logger
}

// NewPatientRepo: store puede ser nil (sin persistencia). seed se usa cuando
// no hay snapshot o no se pudo leer.
func NewPatientRepo(store kv.Store, log logger.Logger, seed func() []patients.Patient) patients.Repository {
	if log == nil {
		log = logger.Nop()
	}
	if seed == nil {
		seed = func() []patients.Patient { return nil }
	}
	return &patientRepo{seed: seed, store: store, log: log}
}

func (r *patientRepo) List(ctx context.Context) ([]patients.Patient, error) {
	r.ensureLoaded(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]patients.Patient, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *patientRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	r.ensureLoaded(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.items[i], nil
	}
	return patients.Patient{}, patients.ErrNotFound
}

func (r *patientRepo) Create(ctx context.Context, p patients.Patient) error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrIDRequired
	}
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(p.ID) >= 0 {
		return ErrAlreadyExists
	}
	r.items = append(r.items, p)
	r.persist(ctx)
	return nil
}

func (r *patientRepo) Update(ctx context.Context, p patients.Patient) error {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(p.ID)
	if i < 0 {
		return patients.ErrNotFound
	}
	r.items[i] = p
	r.persist(ctx)
	return nil
}

func (r *patientRepo) Delete(ctx context.Context, id string) error {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return patients.ErrNotFound
	}
	r.items = append(r.items[:i:i], r.items[i+1:]...)
	r.persist(ctx)
	return nil
}

func (r *patientRepo) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *patientRepo) ensureLoaded(ctx context.Context) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return
	}

	if r.store != nil {
		if items, ok := loadPatients(ctx, r.store, r.log); ok {
			r.items = items
			r.loaded = true
			return
		}
	}
	r.items = r.seed()
	r.loaded = true
	r.persist(ctx)
}

// persist se llama con el lock tomado, así el orden de los snapshots
// coincide con el de las mutaciones.
func (r *patientRepo) persist(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := SavePatients(ctx, r.store, r.items); err != nil {
		r.log.Error("snapshot write failed", map[string]any{"key": kv.KeyPatients, "error": err})
	}
}
