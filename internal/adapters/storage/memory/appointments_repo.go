package memory

import (
	"context"
	"strings"
	"sync"

	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/ports/kv"
)

// appointmentRepo guarda copias (Clone) para no compartir el slice de archivos.
type appointmentRepo struct {
	mu     sync.RWMutex
	items  []appointments.Appointment
	loaded bool

	seed  func() []appointments.Appointment
	store kv.Store
	log   logger.Logger
}

func NewAppointmentRepo(store kv.Store, log logger.Logger, seed func() []appointments.Appointment) appointments.Repository {
	if log == nil {
		log = logger.Nop()
	}
	if seed == nil {
		seed = func() []appointments.Appointment { return nil }
	}
	return &appointmentRepo{seed: seed, store: store, log: log}
}

func (r *appointmentRepo) List(ctx context.Context) ([]appointments.Appointment, error) {
	r.ensureLoaded(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]appointments.Appointment, 0, len(r.items))
	for _, a := range r.items {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (r *appointmentRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	r.ensureLoaded(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.items[i].Clone(), nil
	}
	return appointments.Appointment{}, appointments.ErrNotFound
}

func (r *appointmentRepo) Create(ctx context.Context, a appointments.Appointment) error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrIDRequired
	}
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(a.ID) >= 0 {
		return ErrAlreadyExists
	}
	r.items = append(r.items, a.Clone())
	r.persist(ctx)
	return nil
}

func (r *appointmentRepo) Update(ctx context.Context, a appointments.Appointment) error {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(a.ID)
	if i < 0 {
		return appointments.ErrNotFound
	}
	r.items[i] = a.Clone()
	r.persist(ctx)
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id string) error {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return appointments.ErrNotFound
	}
	r.items = append(r.items[:i:i], r.items[i+1:]...)
	r.persist(ctx)
	return nil
}

func (r *appointmentRepo) indexOf(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *appointmentRepo) ensureLoaded(ctx context.Context) {
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
		if items, ok := loadAppointments(ctx, r.store, r.log); ok {
			r.items = items
			r.loaded = true
			return
		}
	}
	r.items = r.seed()
	r.loaded = true
	r.persist(ctx)
}

func (r *appointmentRepo) persist(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := SaveAppointments(ctx, r.store, r.items); err != nil {
		r.log.Error("snapshot write failed", map[string]any{"key": kv.KeyAppointments, "error": err})
	}
}
