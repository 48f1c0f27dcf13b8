package appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/ports/auth"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, newTestService(t), nil, 1<<20)
	return r
}

func serveAs(h http.Handler, claims *auth.Claims, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if claims != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), *claims))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListHandler_ScopesByRole(t *testing.T) {
	h := newTestRouter(t)

	admin := auth.Claims{UserID: "1", Role: auth.RoleAdmin}
	owner := auth.Claims{UserID: "2", Role: auth.RolePatient, PatientID: "p1"}
	orphan := auth.Claims{UserID: "9", Role: auth.RolePatient}

	rec := serveAs(h, nil, http.MethodGet, "/appointments/")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serveAs(h, &admin, http.MethodGet, "/appointments/")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 8)

	// patient_id ajeno se ignora para un paciente
	rec = serveAs(h, &owner, http.MethodGet, "/appointments/?patient_id=p2")
	require.Equal(t, http.StatusOK, rec.Code)
	var own []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &own))
	require.Len(t, own, 3)
	for _, a := range own {
		assert.Equal(t, "p1", a.PatientID)
	}

	// Un paciente sin ficha no puede caer en el filtro vacío
	rec = serveAs(h, &orphan, http.MethodGet, "/appointments/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = serveAs(h, &orphan, http.MethodGet, "/appointments/?patient_id=p1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetHandler_HidesOtherPatients(t *testing.T) {
	h := newTestRouter(t)

	owner := auth.Claims{UserID: "2", Role: auth.RolePatient, PatientID: "p1"}
	orphan := auth.Claims{UserID: "9", Role: auth.RolePatient}

	assert.Equal(t, http.StatusOK, serveAs(h, &owner, http.MethodGet, "/appointments/a1").Code)
	assert.Equal(t, http.StatusNotFound, serveAs(h, &owner, http.MethodGet, "/appointments/a2").Code)
	assert.Equal(t, http.StatusNotFound, serveAs(h, &orphan, http.MethodGet, "/appointments/a1").Code)
	assert.Equal(t, http.StatusForbidden, serveAs(h, &owner, http.MethodDelete, "/appointments/a1").Code)
}
