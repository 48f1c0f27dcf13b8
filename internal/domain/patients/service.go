package patients

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"dental-clinic-admin/internal/platform/ids"
	"dental-clinic-admin/internal/platform/pubsub"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Service es el store de pacientes: colección + notificación de cambios.
type Service struct {
	repo  Repository
	hub   *pubsub.Hub
	now   func() time.Time
	newID func() string

	loading atomic.Bool
}

func NewService(repo Repository, hub *pubsub.Hub) *Service {
	if hub == nil {
		hub = pubsub.NewHub()
	}
	return &Service{
		repo:  repo,
		hub:   hub,
		now:   time.Now,
		newID: ids.TimeBased,
	}
}

type CreateInput struct {
	Name             string
	Email            string
	Phone            string
	DateOfBirth      *time.Time
	Address          string
	EmergencyContact string
	HealthInfo       string
}

// OptionalDate distingue "no enviado" de "enviado como null".
type OptionalDate struct {
	Present bool
	Value   *time.Time
}

// UpdateInput: nil = no tocar.
type UpdateInput struct {
	Name             *string
	Email            *string
	Phone            *string
	DateOfBirth      OptionalDate
	Address          *string
	EmergencyContact *string
	HealthInfo       *string
}

func (s *Service) Add(ctx context.Context, in CreateInput) (Patient, error) {
	for _, required := range []string{in.Name, in.Email, in.Phone, in.Address, in.EmergencyContact} {
		if strings.TrimSpace(required) == "" {
			return Patient{}, ErrInvalidInput
		}
	}

	now := s.now()
	p := Patient{
		ID:               s.newID(),
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		DateOfBirth:      in.DateOfBirth,
		Address:          strings.TrimSpace(in.Address),
		EmergencyContact: strings.TrimSpace(in.EmergencyContact),
		HealthInfo:       strings.TrimSpace(in.HealthInfo),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Patient{}, err
	}
	s.publish(pubsub.OpCreated, p.ID)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrInvalidInput
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Patient{}, err
	}

	set := func(dst *string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if required && t == "" {
			return ErrInvalidInput
		}
		*dst = t
		return nil
	}

	if err := errors.Join(
		set(&p.Name, in.Name, true),
		set(&p.Email, in.Email, true),
		set(&p.Phone, in.Phone, true),
		set(&p.Address, in.Address, true),
		set(&p.EmergencyContact, in.EmergencyContact, true),
		set(&p.HealthInfo, in.HealthInfo, false),
	); err != nil {
		return Patient{}, ErrInvalidInput
	}
	if in.DateOfBirth.Present {
		p.DateOfBirth = in.DateOfBirth.Value
	}

	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Patient{}, err
	}
	s.publish(pubsub.OpUpdated, p.ID)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(pubsub.OpDeleted, id)
	return nil
}

// List devuelve la colección en orden de inserción.
// Mientras el store está cargando devuelve vacío, igual que la UI antes del seed.
func (s *Service) List(ctx context.Context) ([]Patient, error) {
	if s.loading.Load() {
		return []Patient{}, nil
	}
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Search filtra por nombre/email (case-insensitive) o teléfono (substring).
func Search(items []Patient, q string) []Patient {
	q = strings.TrimSpace(q)
	if q == "" {
		return items
	}
	lq := strings.ToLower(q)

	out := make([]Patient, 0, len(items))
	for _, p := range items {
		if strings.Contains(strings.ToLower(p.Name), lq) ||
			strings.Contains(strings.ToLower(p.Email), lq) ||
			strings.Contains(p.Phone, q) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) Loading() bool { return s.loading.Load() }

// Warmup simula la latencia inicial: marca loading, espera delay y fuerza
// la restauración del repo antes de exponer los datos.
func (s *Service) Warmup(ctx context.Context, delay time.Duration) error {
	s.loading.Store(true)

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			s.loading.Store(false)
			return ctx.Err()
		case <-t.C:
		}
	}

	_, err := s.repo.List(ctx)
	s.loading.Store(false)
	if err != nil {
		return err
	}
	s.publish(pubsub.OpLoaded, "")
	return nil
}

// StartWarmup marca loading de forma síncrona y corre Warmup en background.
func (s *Service) StartWarmup(ctx context.Context, delay time.Duration) <-chan error {
	s.loading.Store(true)
	done := make(chan error, 1)
	go func() {
		done <- s.Warmup(ctx, delay)
		close(done)
	}()
	return done
}

func (s *Service) Subscribe(fn func(pubsub.Change)) (unsubscribe func()) {
	return s.hub.Subscribe(func(c pubsub.Change) {
		if c.Topic == pubsub.TopicPatients {
			fn(c)
		}
	})
}

func (s *Service) publish(op pubsub.Op, id string) {
	s.hub.Publish(pubsub.Change{Topic: pubsub.TopicPatients, Op: op, ID: id, At: s.now()})
}
