package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
)

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled
// when the test's cleanup runs.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// Requiere una base real: TEST_DB_DSN=postgres://... go test ./internal/adapters/storage/postgres
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, EnsureSchema(testContext(t), db))
	return db
}

func TestPatientsRepo_CRUD(t *testing.T) {
	db := openTestDB(t)
	repo := NewPatientsRepo(db)
	ctx := testContext(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	p := patients.Patient{
		ID:               "test-" + uuid.NewString(),
		Name:             "Test Patient",
		Email:            "test@example.com",
		Phone:            "+100",
		DateOfBirth:      &dob,
		Address:          "1 Test St",
		EmergencyContact: "Someone",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, p.ID) })

	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	require.NotNil(t, got.DateOfBirth)
	assert.Equal(t, "1990-01-01", got.DateOfBirth.UTC().Format("2006-01-02"))
	assert.WithinDuration(t, now, got.CreatedAt, time.Millisecond)

	p.Phone = "+200"
	p.DateOfBirth = nil
	require.NoError(t, repo.Update(ctx, p))

	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "+200", got.Phone)
	assert.Nil(t, got.DateOfBirth)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	found := 0
	for _, it := range list {
		if it.ID == p.ID {
			found++
		}
	}
	assert.Equal(t, 1, found)

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), patients.ErrNotFound)
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, patients.ErrNotFound)
}

func TestAppointmentsRepo_FilesAndOptionalFields(t *testing.T) {
	db := openTestDB(t)
	repo := NewAppointmentsRepo(db)
	ctx := testContext(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := appointments.Appointment{
		ID:                  "test-" + uuid.NewString(),
		PatientID:           "p1",
		Title:               "Checkup",
		AppointmentDateTime: now.Add(24 * time.Hour),
		Status:              appointments.StatusPending,
		Files: []appointments.FileAttachment{{
			ID: "f1", Name: "x.png", URL: "data:image/png;base64,AA==", Type: "image/png", Size: 1, UploadedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.Cleanup(func() { _ = repo.Delete(ctx, a.ID) })

	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Cost)
	assert.Nil(t, got.Treatment)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "data:image/png;base64,AA==", got.Files[0].URL)

	cost := 99.5
	treatment := "Cleaning"
	a.Cost = &cost
	a.Treatment = &treatment
	a.Status = appointments.StatusCompleted
	a.Files = nil
	require.NoError(t, repo.Update(ctx, a))

	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Cost)
	assert.InDelta(t, 99.5, *got.Cost, 0.0001)
	assert.Equal(t, appointments.StatusCompleted, got.Status)
	assert.Empty(t, got.Files)

	a.Cost = ptrTo(-1.0)
	assert.Error(t, repo.Update(ctx, a), "CHECK cost >= 0")

	missing := a
	missing.ID = "test-missing-" + uuid.NewString()
	missing.Cost = nil
	assert.ErrorIs(t, repo.Update(ctx, missing), appointments.ErrNotFound)
}

func TestKVStore(t *testing.T) {
	db := openTestDB(t)
	store := NewKVStore(db)
	ctx := testContext(t)

	key := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, []byte(`[1]`)))
	require.NoError(t, store.Set(ctx, key, []byte(`[2]`)))

	v, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[2]`, string(v))

	require.NoError(t, store.Delete(ctx, key))
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func ptrTo[T any](v T) *T { return &v }
