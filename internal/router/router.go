package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwtauth "dental-clinic-admin/internal/adapters/auth/jwt"
	kvmem "dental-clinic-admin/internal/adapters/kv/memory"
	kvredis "dental-clinic-admin/internal/adapters/kv/redis"
	mem "dental-clinic-admin/internal/adapters/storage/memory"
	pg "dental-clinic-admin/internal/adapters/storage/postgres"
	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/dashboard"
	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/domain/users"
	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/platform/config"
	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/platform/pubsub"
	"dental-clinic-admin/internal/platform/websocket"
	"dental-clinic-admin/internal/ports/auth"
	"dental-clinic-admin/internal/ports/kv"

	_ "dental-clinic-admin/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	// Config nil => defaults de config.Load("").
	Config *config.Config
	Logger logger.Logger

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// KV opcional; si es nil se arma según Config.KVBackend.
	KV kv.Store

	// Now permite fijar el reloj en tests.
	Now func() time.Time
}

// App agrupa el handler HTTP y los servicios que lo componen.
type App struct {
	Handler      http.Handler
	Patients     *patients.Service
	Appointments *appointments.Service
	Users        *users.Service
	Changes      *pubsub.Hub
	Sockets      *websocket.Hub

	cfg     *config.Config
	log     logger.Logger
	closers []func() error
}

func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	app := &App{cfg: cfg, log: log}

	// Si no te pasan DB explícita, intenta por config (para dev/handoff)
	db := opts.DB
	if db == nil && cfg.DBDSN != "" {
		opened, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		db = opened
		app.closers = append(app.closers, opened.Close)
	}

	store, err := app.openKV(opts.KV, db)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	var (
		patientRepo     patients.Repository
		appointmentRepo appointments.Repository
	)
	if db != nil {
		patientRepo, appointmentRepo, err = postgresRepos(db, now())
		if err != nil {
			_ = app.Close()
			return nil, err
		}
	} else {
		patientRepo = mem.NewPatientRepo(store, log, func() []patients.Patient { return patients.Seed(now()) })
		appointmentRepo = mem.NewAppointmentRepo(store, log, func() []appointments.Appointment { return appointments.Seed(now()) })
	}

	var (
		verifier auth.AuthVerifier
		issuer   users.TokenIssuer
	)
	if cfg.JWTSecret != "" {
		tokens, err := jwtauth.New(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		verifier, issuer = tokens, tokens
	}

	// Un solo hub: todas las vistas ven los mismos cambios.
	app.Changes = pubsub.NewHub()
	app.Patients = patients.NewService(patientRepo, app.Changes)
	app.Appointments = appointments.NewService(appointmentRepo, app.Changes)
	app.Users = users.NewService(store, app.Changes, issuer, log.With(map[string]any{"module": "users"}))
	app.Sockets = websocket.NewHub(log.With(map[string]any{"module": "websocket"}))
	detach := app.Sockets.Attach(app.Changes)
	app.closers = append(app.closers, func() error { detach(); return nil })

	app.Handler = app.routes(verifier)
	return app, nil
}

func (a *App) routes(verifier auth.AuthVerifier) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(a.log))
	r.Use(middleware.Recover(a.log))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Debug-User-ID"},
		ExposedHeaders:   []string{"X-Loading", "X-Request-Id"},
		AllowCredentials: false,
	}).Handler)

	r.Use(middleware.AuthContext(verifier, a.Users))

	r.Get("/health", a.health)
	r.With(middleware.RequireRole(auth.RoleAdmin, auth.RolePatient)).Get("/ws", a.socket)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Rutas por módulo
	patients.RegisterRoutes(r, a.Patients)
	appointments.RegisterRoutes(r, a.Appointments, a.patientNames, a.cfg.MaxUploadBytes)
	users.RegisterRoutes(r, a.Users)
	// Después de los módulos: /patients/stats y /appointments/stats son
	// estáticas y chi las prioriza sobre los subrouters montados.
	dashboard.RegisterRoutes(r, dashboard.NewHandler(a.Patients, a.Appointments))

	return r
}

// socket godoc
// @Summary Cambios en tiempo real
// @Description Upgrade a WebSocket. Cada mensaje es un cambio {topic, op, id, at}. El topic session (logins y logouts) solo llega a admins.
// @Tags realtime
// @Param topics query string false "patients,appointments,session (default: todos los permitidos)"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /ws [get]
func (a *App) socket(w http.ResponseWriter, r *http.Request) {
	a.Sockets.Handler(sessionTopicForAdmins)(w, r)
}

// sessionTopicForAdmins deja el topic session (logins y logouts) solo a admins.
func sessionTopicForAdmins(r *http.Request, topic string) bool {
	if topic != pubsub.TopicSession {
		return true
	}
	claims, ok := middleware.GetClaims(r.Context())
	return ok && claims.IsAdmin()
}

// patientNames resuelve nombres para la búsqueda de citas. Si la lista falla
// la búsqueda sigue, solo que sin nombres.
func (a *App) patientNames(ctx context.Context) func(string) string {
	ps, err := a.Patients.List(ctx)
	if err != nil {
		a.log.Warn("patient lookup failed", map[string]any{"error": err})
	}
	return dashboard.PatientName(ps)
}

type healthResponse struct {
	Status              string `json:"status"`
	PatientsLoading     bool   `json:"patients_loading"`
	AppointmentsLoading bool   `json:"appointments_loading"`
	WebsocketClients    int    `json:"websocket_clients"`
}

// health godoc
// @Summary Estado del servicio
// @Description Indica si las colecciones siguen en carga inicial y cuántos clientes WebSocket hay conectados.
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:              "ok",
		PatientsLoading:     a.Patients.Loading(),
		AppointmentsLoading: a.Appointments.Loading(),
		WebsocketClients:    a.Sockets.ClientCount(),
	})
}

// Warmup arranca la carga inicial de ambas colecciones con SEED_DELAY.
// Las dos quedan en loading antes de que retorne.
func (a *App) Warmup(ctx context.Context) <-chan error {
	pc := a.Patients.StartWarmup(ctx, a.cfg.SeedDelay)
	ac := a.Appointments.StartWarmup(ctx, a.cfg.SeedDelay)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		var errs []error
		for _, ch := range []<-chan error{pc, ac} {
			if err := <-ch; err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			a.log.Error("warmup failed", map[string]any{"error": err})
			done <- err
			return
		}
		a.log.Info("warmup done", nil)
	}()
	return done
}

// Close libera conexiones en orden inverso a su apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openKV(explicit kv.Store, db *sql.DB) (kv.Store, error) {
	if explicit != nil {
		return explicit, nil
	}
	if !a.cfg.Persist {
		return nil, nil
	}

	switch a.cfg.KVBackend {
	case config.KVRedis:
		s, err := kvredis.Open(kvredis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.KVPostgres:
		if db == nil {
			return nil, fmt.Errorf("KV_BACKEND=postgres requires DB_DSN")
		}
		if err := pg.EnsureSchema(context.Background(), db); err != nil {
			return nil, err
		}
		return pg.NewKVStore(db), nil
	default:
		return kvmem.NewStore(), nil
	}
}

func postgresRepos(db *sql.DB, now time.Time) (patients.Repository, appointments.Repository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pg.EnsureSchema(ctx, db); err != nil {
		return nil, nil, err
	}

	pr := pg.NewPatientsRepo(db)
	ar := pg.NewAppointmentsRepo(db)

	// Solo sembramos tablas vacías; lo borrado no vuelve al reiniciar.
	if existing, err := pr.List(ctx); err != nil {
		return nil, nil, err
	} else if len(existing) == 0 {
		if err := pr.Seed(ctx, patients.Seed(now)); err != nil {
			return nil, nil, fmt.Errorf("seed patients: %w", err)
		}
	}
	if existing, err := ar.List(ctx); err != nil {
		return nil, nil, err
	} else if len(existing) == 0 {
		if err := ar.Seed(ctx, appointments.Seed(now)); err != nil {
			return nil, nil, fmt.Errorf("seed appointments: %w", err)
		}
	}
	return pr, ar, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
