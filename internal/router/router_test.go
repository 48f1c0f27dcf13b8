package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	kvmem "dental-clinic-admin/internal/adapters/kv/memory"
	"dental-clinic-admin/internal/platform/config"
	"dental-clinic-admin/internal/ports/kv"
	"dental-clinic-admin/internal/router"
)

// testContext mirrors testing.T.Context (Go 1.24+): a context canceled
// when the test's cleanup runs.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

const (
	adminID   = "1"
	patientID = "2" // John Doe -> p1
)

func newServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, kv.Store) {
	t.Helper()

	cfg := &config.Config{
		AppName:        "dental-clinic-test",
		KVBackend:      config.KVMemory,
		Persist:        true,
		CORSOrigins:    []string{"*"},
		MaxUploadBytes: 1 << 20,
	}
	if mutate != nil {
		mutate(cfg)
	}

	store := kvmem.NewStore()
	app, err := router.New(router.Options{Config: cfg, KV: store})
	require.NoError(t, err)

	ts := httptest.NewServer(app.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = app.Close()
	})
	return ts, store
}

func TestHTTP_Health(t *testing.T) {
	ts, _ := newServer(t, nil)

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, st)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, false, resp["patients_loading"])
}

func TestHTTP_PatientsLifecycle(t *testing.T) {
	ts, store := newServer(t, nil)

	// 1) Sin identidad no hay acceso
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients", "", nil)
		assert.Equal(t, http.StatusUnauthorized, st)
	}

	// 2) Admin registra un paciente
	id := createPatient(t, ts.URL, map[string]any{
		"name":              "Ana Ruiz",
		"email":             "ana@example.com",
		"phone":             "+1555000111",
		"date_of_birth":     "1992-03-04",
		"address":           "9 Elm St",
		"emergency_contact": "Luis Ruiz",
	})

	// 3) Aparece una sola vez, al final
	{
		st, body := doReq(t, ts.URL, "GET", "/patients", adminID, nil)
		require.Equal(t, http.StatusOK, st)
		var list []struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &list))
		require.Len(t, list, 3)
		assert.Equal(t, []string{"p1", "p2", id}, []string{list[0].ID, list[1].ID, list[2].ID})
	}

	// 4) Búsqueda
	{
		st, body := doReq(t, ts.URL, "GET", "/patients?q=ruiz", adminID, nil)
		require.Equal(t, http.StatusOK, st)
		var list []map[string]any
		require.NoError(t, json.Unmarshal(body, &list))
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0]["id"])
	}

	// 5) PATCH limpia date_of_birth con null
	{
		st, body := doReq(t, ts.URL, "PATCH", "/patients/"+id, adminID, map[string]any{
			"phone":         "+1555000222",
			"date_of_birth": nil,
		})
		require.Equal(t, http.StatusOK, st, string(body))
		var p map[string]any
		require.NoError(t, json.Unmarshal(body, &p))
		assert.Equal(t, "+1555000222", p["phone"])
		_, hasDOB := p["date_of_birth"]
		assert.False(t, hasDOB)
	}

	// 6) Campo requerido en blanco
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/patients/"+id, adminID, map[string]any{"name": "  "})
		assert.Equal(t, http.StatusBadRequest, st)
	}

	// 7) La colección quedó persistida en el KV
	{
		raw, ok, err := store.Get(testContext(t), kv.KeyPatients)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, string(raw), "+1555000222")
	}

	// 8) Borrar y volver a borrar
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/patients/"+id, adminID, nil)
		assert.Equal(t, http.StatusNoContent, st)
		st, _ = doReq(t, ts.URL, "DELETE", "/patients/"+id, adminID, nil)
		assert.Equal(t, http.StatusNotFound, st)
	}
}

func TestHTTP_PatientRoleIsReadOnlyAndScoped(t *testing.T) {
	ts, _ := newServer(t, nil)

	cases := []struct {
		method, path string
		body         any
		want         int
	}{
		{"GET", "/patients/p1", nil, http.StatusOK},
		{"GET", "/patients/p2", nil, http.StatusForbidden},
		{"GET", "/patients", nil, http.StatusForbidden},
		{"POST", "/patients", map[string]any{"name": "X"}, http.StatusForbidden},
		{"GET", "/appointments/a1", nil, http.StatusOK},
		{"GET", "/appointments/a2", nil, http.StatusNotFound},
		{"POST", "/appointments/a1/status", map[string]any{"status": "cancelled"}, http.StatusForbidden},
		{"DELETE", "/appointments/a1", nil, http.StatusForbidden},
		{"GET", "/dashboard/admin", nil, http.StatusForbidden},
		{"GET", "/patients/stats", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		st, body := doReq(t, ts.URL, tc.method, tc.path, patientID, tc.body)
		assert.Equal(t, tc.want, st, "%s %s body=%s", tc.method, tc.path, string(body))
	}

	// El listado de citas ignora patient_id para un paciente
	st, body := doReq(t, ts.URL, "GET", "/appointments?patient_id=p2", patientID, nil)
	require.Equal(t, http.StatusOK, st)
	var list []struct {
		ID        string `json:"id"`
		PatientID string `json:"patient_id"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 3)
	for _, a := range list {
		assert.Equal(t, "p1", a.PatientID)
	}
}

func TestHTTP_AppointmentStatusReflectedInStats(t *testing.T) {
	ts, _ := newServer(t, nil)

	before := appointmentStats(t, ts.URL)
	assert.Equal(t, 8, before.Total)
	assert.Equal(t, 4, before.Pending)
	assert.Equal(t, 0, before.Cancelled)
	assert.InDelta(t, 2870, before.Revenue, 0.001)

	st, body := doReq(t, ts.URL, "POST", "/appointments/a3/status", adminID, map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, st, string(body))

	after := appointmentStats(t, ts.URL)
	assert.Equal(t, 3, after.Pending)
	assert.Equal(t, 1, after.Cancelled)

	st, _ = doReq(t, ts.URL, "POST", "/appointments/a3/status", adminID, map[string]any{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, st)

	st, _ = doReq(t, ts.URL, "GET", "/appointments?status=cancelled", adminID, nil)
	assert.Equal(t, http.StatusOK, st)
}

func TestHTTP_CreateAppointmentAndSearchByPatientName(t *testing.T) {
	ts, _ := newServer(t, nil)

	st, body := doReq(t, ts.URL, "POST", "/appointments", adminID, map[string]any{
		"patient_id":            "p2",
		"title":                 "Whitening",
		"appointment_date_time": "2030-05-01T09:30",
		"cost":                  250,
	})
	require.Equal(t, http.StatusCreated, st, string(body))

	var created map[string]any
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "pending", created["status"])

	st, _ = doReq(t, ts.URL, "POST", "/appointments", adminID, map[string]any{
		"patient_id":            "p2",
		"title":                 "Bad cost",
		"appointment_date_time": "2030-05-01T09:30",
		"cost":                  -1,
	})
	assert.Equal(t, http.StatusBadRequest, st)

	// "alice" coincide con el nombre de p2, no con el texto de la cita
	st, body = doReq(t, ts.URL, "GET", "/appointments?q=alice", adminID, nil)
	require.Equal(t, http.StatusOK, st)
	var list []struct {
		PatientID string `json:"patient_id"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.NotEmpty(t, list)
	for _, a := range list {
		assert.Equal(t, "p2", a.PatientID)
	}
}

func TestHTTP_FileUploadDownloadRemove(t *testing.T) {
	ts, _ := newServer(t, nil)

	pdf := []byte("%PDF-1.4\n% x-ray report\n")

	st, body := upload(t, ts.URL, "/appointments/a1/files", adminID, "report.pdf", pdf)
	require.Equal(t, http.StatusCreated, st, string(body))

	var f struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Size      int64  `json:"size"`
		SizeLabel string `json:"size_label"`
	}
	require.NoError(t, json.Unmarshal(body, &f))
	assert.Equal(t, "application/pdf", f.Type)
	assert.Equal(t, int64(len(pdf)), f.Size)
	assert.NotEmpty(t, f.SizeLabel)

	// El paciente dueño puede bajarlo
	req, err := http.NewRequest("GET", ts.URL+"/appointments/a1/files/"+f.ID, nil)
	require.NoError(t, err)
	req.Header.Set("X-Debug-User-ID", patientID)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	got, _ := io.ReadAll(res.Body)
	_ = res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Equal(t, pdf, got)

	// Tipo no soportado
	st, _ = upload(t, ts.URL, "/appointments/a1/files", adminID, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusUnsupportedMediaType, st)

	// Quitar y verificar
	st, _ = doReq(t, ts.URL, "DELETE", "/appointments/a1/files/"+f.ID, adminID, nil)
	assert.Equal(t, http.StatusOK, st)
	st, _ = doReq(t, ts.URL, "GET", "/appointments/a1/files/"+f.ID, adminID, nil)
	assert.Equal(t, http.StatusNotFound, st)
}

func TestHTTP_DashboardsAndCalendar(t *testing.T) {
	ts, _ := newServer(t, nil)

	{
		st, body := doReq(t, ts.URL, "GET", "/patients/stats", adminID, nil)
		require.Equal(t, http.StatusOK, st, string(body))
		var s struct {
			Total     int `json:"total"`
			WithPhone int `json:"with_phone"`
		}
		require.NoError(t, json.Unmarshal(body, &s))
		assert.Equal(t, 2, s.Total)
		assert.Equal(t, 2, s.WithPhone)
	}

	{
		st, body := doReq(t, ts.URL, "GET", "/dashboard/admin", adminID, nil)
		require.Equal(t, http.StatusOK, st, string(body))
		var d struct {
			KPIs struct {
				TotalPatients     int     `json:"total_patients"`
				TotalAppointments int     `json:"total_appointments"`
				TotalRevenue      float64 `json:"total_revenue"`
			} `json:"kpis"`
			TopPatients []struct {
				PatientID string `json:"patient_id"`
			} `json:"top_patients"`
		}
		require.NoError(t, json.Unmarshal(body, &d))
		assert.Equal(t, 2, d.KPIs.TotalPatients)
		assert.Equal(t, 8, d.KPIs.TotalAppointments)
		assert.InDelta(t, 2870, d.KPIs.TotalRevenue, 0.001)
		require.NotEmpty(t, d.TopPatients)
		assert.Equal(t, "p1", d.TopPatients[0].PatientID)
	}

	{
		st, body := doReq(t, ts.URL, "GET", "/dashboard/patient", patientID, nil)
		require.Equal(t, http.StatusOK, st, string(body))
		var d struct {
			Appointments []any   `json:"appointments"`
			TotalSpent   float64 `json:"total_spent"`
		}
		require.NoError(t, json.Unmarshal(body, &d))
		assert.Len(t, d.Appointments, 3)
		assert.InDelta(t, 1620, d.TotalSpent, 0.001)
	}

	{
		st, _ := doReq(t, ts.URL, "GET", "/dashboard/patient", adminID, nil)
		assert.Equal(t, http.StatusBadRequest, st)
	}

	{
		st, body := doReq(t, ts.URL, "GET", "/calendar?month=2025-01", adminID, nil)
		require.Equal(t, http.StatusOK, st, string(body))
		var days []struct {
			Date         string `json:"date"`
			Appointments []any  `json:"appointments"`
		}
		require.NoError(t, json.Unmarshal(body, &days))
		require.Len(t, days, 31)
		assert.Equal(t, "2025-01-01", days[0].Date)

		st, _ = doReq(t, ts.URL, "GET", "/calendar?month=enero", adminID, nil)
		assert.Equal(t, http.StatusBadRequest, st)
	}
}

func TestHTTP_LoginSessionLogout(t *testing.T) {
	ts, store := newServer(t, nil)

	st, body := doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email": "nobody@dental.com", "password": "x",
	})
	assert.Equal(t, http.StatusUnauthorized, st)
	assert.Contains(t, string(body), "Invalid credentials")

	st, _ = doReq(t, ts.URL, "GET", "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)

	st, body = doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email": "patient@dental.com", "password": "anything",
	})
	require.Equal(t, http.StatusOK, st, string(body))

	_, ok, err := store.Get(testContext(t), kv.KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)

	// Sin header: se usa la sesión persistida
	st, body = doReq(t, ts.URL, "GET", "/auth/me", "", nil)
	require.Equal(t, http.StatusOK, st)
	assert.Contains(t, string(body), `"role":"patient"`)

	st, _ = doReq(t, ts.URL, "POST", "/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, st)

	st, _ = doReq(t, ts.URL, "GET", "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)
}

func TestHTTP_BearerTokenWhenSecretConfigured(t *testing.T) {
	ts, _ := newServer(t, func(c *config.Config) { c.JWTSecret = "test-secret" })

	// Con JWT el header de debug se ignora
	st, _ := doReq(t, ts.URL, "GET", "/patients", adminID, nil)
	assert.Equal(t, http.StatusUnauthorized, st)

	st, body := doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{
		"email": "admin@dental.com", "password": "x",
	})
	require.Equal(t, http.StatusOK, st, string(body))

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)

	req, err := http.NewRequest("GET", ts.URL+"/patients", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// El login de admin no habilita requests sin token
	st, _ = doReq(t, ts.URL, "GET", "/patients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)
	st, _ = doReq(t, ts.URL, "DELETE", "/patients/p2", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)
	st, _ = doReq(t, ts.URL, "GET", "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)

	req, err = http.NewRequest("GET", ts.URL+"/patients/p2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	st, _ = send(t, req)
	assert.Equal(t, http.StatusOK, st, "p2 sigue existiendo")
}

func TestHTTP_WebsocketRequiresIdentity(t *testing.T) {
	ts, _ := newServer(t, nil)

	st, _ := doReq(t, ts.URL, "GET", "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, st)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?topics=session,patients"
	_, res, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, http.Header{"X-Debug-User-ID": {patientID}})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		_, body := doReq(t, ts.URL, "GET", "/health", "", nil)
		var h struct {
			Clients int `json:"websocket_clients"`
		}
		return json.Unmarshal(body, &h) == nil && h.Clients == 1
	}, 2*time.Second, 20*time.Millisecond)

	// El paciente no recibe logins ajenos; el primer mensaje es el alta.
	st, _ = doReq(t, ts.URL, "POST", "/auth/login", "", map[string]any{"email": "admin@dental.com", "password": "x"})
	require.Equal(t, http.StatusOK, st)
	createPatient(t, ts.URL, map[string]any{
		"name":              "Ws Patient",
		"email":             "ws@example.com",
		"phone":             "+1555000222",
		"address":           "1 Main St",
		"emergency_contact": "Someone",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Topic string `json:"topic"`
	}
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "patients", got.Topic)
}

func TestSwaggerDocCoversEveryRoute(t *testing.T) {
	app, err := router.New(router.Options{Config: &config.Config{KVBackend: config.KVMemory}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	routes, ok := app.Handler.(chi.Routes)
	require.True(t, ok)

	seen := 0
	err = chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if strings.HasPrefix(route, "/swagger/") {
			return nil
		}
		if route != "/" {
			route = strings.TrimSuffix(route, "/")
		}
		seen++
		_, documented := doc.Paths[route][strings.ToLower(method)]
		assert.True(t, documented, "%s %s missing from swagger doc", method, route)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 24, seen)
}

type statsResponse struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Completed int     `json:"completed"`
	Cancelled int     `json:"cancelled"`
	Revenue   float64 `json:"revenue"`
}

func appointmentStats(t *testing.T, baseURL string) statsResponse {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/appointments/stats", adminID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 appointment stats, got %d body=%s", st, string(body))
	}
	var s statsResponse
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("stats: %v body=%s", err, string(body))
	}
	return s
}

func createPatient(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients", adminID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create patient, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create patient: missing id body=%s", string(body))
	}
	return resp.ID
}

func upload(t *testing.T, baseURL, path, debugUserID, name string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("multipart: %v", err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	req, err := http.NewRequest("POST", baseURL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Debug-User-ID", debugUserID)
	return send(t, req)
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, b
}
