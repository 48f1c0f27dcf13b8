package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kvmemory "dental-clinic-admin/internal/adapters/kv/memory"
	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/ports/kv"
)

var seedTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func patientSeed() []patients.Patient { return patients.Seed(seedTime) }

func appointmentSeed() []appointments.Appointment { return appointments.Seed(seedTime) }

func TestPatientRepo_SeedsWhenEmptyAndPersists(t *testing.T) {
	ctx := context.Background()
	store := kvmemory.NewStore()
	repo := NewPatientRepo(store, logger.Nop(), patientSeed)

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID)

	_, ok, err := store.Get(ctx, kv.KeyPatients)
	require.NoError(t, err)
	assert.True(t, ok, "seed should be written back")
}

func TestPatientRepo_RestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	store := kvmemory.NewStore()

	first := NewPatientRepo(store, logger.Nop(), patientSeed)
	require.NoError(t, first.Create(ctx, patients.Patient{
		ID: "p9", Name: "Zoe", Email: "zoe@example.com", Phone: "1",
		Address: "x", EmergencyContact: "y",
		CreatedAt: seedTime, UpdatedAt: seedTime,
	}))
	require.NoError(t, first.Delete(ctx, "p1"))

	second := NewPatientRepo(store, logger.Nop(), patientSeed)
	items, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p2", items[0].ID)
	assert.Equal(t, "p9", items[1].ID)
	assert.Nil(t, items[1].DateOfBirth)
	require.NotNil(t, items[0].DateOfBirth)
	assert.Equal(t, 1985, items[0].DateOfBirth.Year())
	assert.True(t, items[1].CreatedAt.Equal(seedTime))
}

func TestPatientRepo_CorruptSnapshotFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	store := kvmemory.NewStore()
	require.NoError(t, store.Set(ctx, kv.KeyPatients, []byte("{not json")))

	repo := NewPatientRepo(store, logger.Nop(), patientSeed)
	items, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestPatientRepo_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewPatientRepo(nil, nil, nil)

	_, err := repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, patients.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, patients.Patient{ID: "nope"}), patients.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "nope"), patients.ErrNotFound)
	assert.ErrorIs(t, repo.Create(ctx, patients.Patient{}), ErrIDRequired)
}

func TestAppointmentRepo_RestoresFilesAndOptionalFields(t *testing.T) {
	ctx := context.Background()
	store := kvmemory.NewStore()
	first := NewAppointmentRepo(store, logger.Nop(), appointmentSeed)

	a, err := first.GetByID(ctx, "a4")
	require.NoError(t, err)
	next := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	a.NextAppointmentDate = &next
	a.Files = []appointments.FileAttachment{{
		ID: "f1", Name: "xray.png", URL: "data:image/png;base64,AA==", Type: "image/png", Size: 1, UploadedAt: seedTime,
	}}
	require.NoError(t, first.Update(ctx, a))

	second := NewAppointmentRepo(store, logger.Nop(), appointmentSeed)
	items, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 8)

	got := items[3]
	assert.Equal(t, "a4", got.ID)
	assert.Nil(t, got.Cost)
	assert.Nil(t, got.Treatment)
	require.NotNil(t, got.NextAppointmentDate)
	assert.True(t, got.NextAppointmentDate.Equal(next))
	require.Len(t, got.Files, 1)
	assert.Equal(t, "xray.png", got.Files[0].Name)

	require.NotNil(t, items[0].Cost)
	assert.Equal(t, 120.0, *items[0].Cost)
}

func TestAppointmentRepo_DoesNotShareFiles(t *testing.T) {
	ctx := context.Background()
	repo := NewAppointmentRepo(nil, nil, appointmentSeed)

	a, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	a.Files = append(a.Files, appointments.FileAttachment{ID: "f1"})
	require.NoError(t, repo.Update(ctx, a))

	a.Files[0].Name = "mutated"
	stored, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, stored.Files, 1)
	assert.Empty(t, stored.Files[0].Name)
}
