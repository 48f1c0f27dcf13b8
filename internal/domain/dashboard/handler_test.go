package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/ports/auth"
)

type patientList []patients.Patient

func (l patientList) List(context.Context) ([]patients.Patient, error) { return l, nil }

type appointmentList []appointments.Appointment

func (l appointmentList) List(context.Context) ([]appointments.Appointment, error) { return l, nil }

func newTestRouter() http.Handler {
	ps, as := fixtures()
	h := NewHandler(patientList(ps), appointmentList(as))
	h.now = func() time.Time { return now }

	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

func get(h http.Handler, claims auth.Claims, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCalendar_PatientSeesOnlyOwn(t *testing.T) {
	h := newTestRouter()
	owner := auth.Claims{UserID: "2", Role: auth.RolePatient, PatientID: "p1"}

	rec := get(h, owner, "/calendar?month=2025-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var days []CalendarDay
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))

	_, as := fixtures()
	own := map[string]bool{}
	for _, a := range as {
		if a.PatientID == "p1" {
			own[a.ID] = true
		}
	}
	for _, d := range days {
		for _, e := range d.Appointments {
			assert.True(t, own[e.ID], "calendar leaked %s", e.ID)
		}
	}
}

func TestPatientScopedViews_RejectPatientWithoutRecord(t *testing.T) {
	h := newTestRouter()
	orphan := auth.Claims{UserID: "9", Role: auth.RolePatient}

	assert.Equal(t, http.StatusForbidden, get(h, orphan, "/calendar?month=2025-01").Code)
	assert.Equal(t, http.StatusForbidden, get(h, orphan, "/dashboard/patient").Code)
	assert.Equal(t, http.StatusForbidden, get(h, orphan, "/appointments/stats").Code)
}

func TestAppointmentStats_Shape(t *testing.T) {
	h := newTestRouter()

	rec := get(h, auth.Claims{UserID: "1", Role: auth.RoleAdmin}, "/appointments/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":8,"pending":4,"completed":4,"cancelled":0,"revenue":2870}`, rec.Body.String())
}
