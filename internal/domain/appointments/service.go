package appointments

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dental-clinic-admin/internal/platform/fileutil"
	"dental-clinic-admin/internal/platform/ids"
	"dental-clinic-admin/internal/platform/pubsub"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Service es el store de citas. No filtra: eso lo hace Filter del lado del consumidor.
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
	PatientID           string
	Title               string
	Description         string
	Comment             string
	AppointmentDateTime time.Time
	Cost                *float64
	Treatment           *string
	Status              Status // vacío = pending
	NextAppointmentDate *time.Time
}

// Optional distingue "no enviado" de "enviado como null".
type Optional[T any] struct {
	Present bool
	Value   *T
}

// UpdateInput: nil / !Present = no tocar.
type UpdateInput struct {
	PatientID           *string
	Title               *string
	Description         *string
	Comment             *string
	AppointmentDateTime *time.Time
	Cost                Optional[float64]
	Treatment           Optional[string]
	Status              *Status
	NextAppointmentDate Optional[time.Time]
}

func (s *Service) Add(ctx context.Context, in CreateInput) (Appointment, error) {
	if strings.TrimSpace(in.PatientID) == "" || strings.TrimSpace(in.Title) == "" || in.AppointmentDateTime.IsZero() {
		return Appointment{}, ErrInvalidInput
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() || !validCost(in.Cost) {
		return Appointment{}, ErrInvalidInput
	}

	now := s.now()
	a := Appointment{
		ID:                  s.newID(),
		PatientID:           strings.TrimSpace(in.PatientID),
		Title:               strings.TrimSpace(in.Title),
		Description:         strings.TrimSpace(in.Description),
		Comment:             strings.TrimSpace(in.Comment),
		AppointmentDateTime: in.AppointmentDateTime,
		Cost:                in.Cost,
		Treatment:           normalizeText(in.Treatment),
		Status:              in.Status,
		NextAppointmentDate: in.NextAppointmentDate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, a.Clone()); err != nil {
		return Appointment{}, err
	}
	s.publish(pubsub.OpCreated, a.ID)
	return a, nil
}

// Update hace merge parcial y refresca UpdatedAt.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Appointment, error) {
	return s.mutate(ctx, id, func(a *Appointment) error {
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
			set(&a.PatientID, in.PatientID, true),
			set(&a.Title, in.Title, true),
			set(&a.Description, in.Description, false),
			set(&a.Comment, in.Comment, false),
		); err != nil {
			return ErrInvalidInput
		}

		if in.AppointmentDateTime != nil {
			if in.AppointmentDateTime.IsZero() {
				return ErrInvalidInput
			}
			a.AppointmentDateTime = *in.AppointmentDateTime
		}
		if in.Cost.Present {
			if !validCost(in.Cost.Value) {
				return ErrInvalidInput
			}
			a.Cost = in.Cost.Value
		}
		if in.Treatment.Present {
			a.Treatment = normalizeText(in.Treatment.Value)
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return ErrInvalidInput
			}
			a.Status = *in.Status
		}
		if in.NextAppointmentDate.Present {
			a.NextAppointmentDate = in.NextAppointmentDate.Value
		}
		return nil
	})
}

// SetStatus es la acción rápida completar/cancelar; cualquier transición vale.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Appointment, error) {
	if !status.Valid() {
		return Appointment{}, ErrInvalidInput
	}
	return s.mutate(ctx, id, func(a *Appointment) error {
		a.Status = status
		return nil
	})
}

// AddFile embebe el contenido como data URI y lo agrega a la cita.
func (s *Service) AddFile(ctx context.Context, id, name, mimeType string, content []byte) (FileAttachment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FileAttachment{}, ErrInvalidInput
	}
	if !fileutil.Accepts(mimeType, name) {
		return FileAttachment{}, fileutil.ErrUnsupported
	}

	f := FileAttachment{
		ID:         uuid.NewString(),
		Name:       name,
		URL:        fileutil.EncodeDataURL(mimeType, content),
		Type:       mimeType,
		Size:       int64(len(content)),
		UploadedAt: s.now(),
	}

	_, err := s.mutate(ctx, id, func(a *Appointment) error {
		a.Files = append(a.Files, f)
		return nil
	})
	if err != nil {
		return FileAttachment{}, err
	}
	return f, nil
}

func (s *Service) GetFile(ctx context.Context, id, fileID string) (FileAttachment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return FileAttachment{}, err
	}
	for _, f := range a.Files {
		if f.ID == fileID {
			return f, nil
		}
	}
	return FileAttachment{}, ErrFileNotFound
}

func (s *Service) RemoveFile(ctx context.Context, id, fileID string) (Appointment, error) {
	return s.mutate(ctx, id, func(a *Appointment) error {
		for i, f := range a.Files {
			if f.ID == fileID {
				a.Files = append(a.Files[:i:i], a.Files[i+1:]...)
				return nil
			}
		}
		return ErrFileNotFound
	})
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

// List devuelve vacío mientras el store está cargando.
func (s *Service) List(ctx context.Context) ([]Appointment, error) {
	if s.loading.Load() {
		return []Appointment{}, nil
	}
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Appointment{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Loading() bool { return s.loading.Load() }

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
		if c.Topic == pubsub.TopicAppointments {
			fn(c)
		}
	})
}

func (s *Service) mutate(ctx context.Context, id string, apply func(*Appointment) error) (Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Appointment{}, ErrInvalidInput
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	a = a.Clone()
	if err := apply(&a); err != nil {
		return Appointment{}, err
	}
	a.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, a.Clone()); err != nil {
		return Appointment{}, err
	}
	s.publish(pubsub.OpUpdated, a.ID)
	return a, nil
}

func (s *Service) publish(op pubsub.Op, id string) {
	s.hub.Publish(pubsub.Change{Topic: pubsub.TopicAppointments, Op: op, ID: id, At: s.now()})
}

func validCost(c *float64) bool {
	return c == nil || *c >= 0
}

func normalizeText(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
