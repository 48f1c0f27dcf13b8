package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	kvmem "dental-clinic-admin/internal/adapters/kv/memory"
	kvredis "dental-clinic-admin/internal/adapters/kv/redis"
	mem "dental-clinic-admin/internal/adapters/storage/memory"
	pg "dental-clinic-admin/internal/adapters/storage/postgres"
	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/platform/config"
	"dental-clinic-admin/internal/platform/httpclient"
	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/ports/kv"
	"dental-clinic-admin/internal/router"

	"github.com/spf13/cobra"
)

// @title Dental Clinic Admin API
// @version 1.0
// @description API de administración de la clínica: pacientes, citas, adjuntos y tableros.
// @BasePath /
func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "dental-clinic",
		Short:        "Administración de pacientes y citas de la clínica",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "archivo de configuración (opcional, además de env/.env)")

	root.AddCommand(serveCmd(&configFile), seedCmd(&configFile), healthcheckCmd())
	return root
}

func serveCmd(configFile *string) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			log := newLogger(cfg)

			app, err := router.New(router.Options{Config: cfg, Logger: log})
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Warn("close failed", map[string]any{"error": err})
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.Warmup(ctx)

			srv := &http.Server{
				Addr:         cfg.Addr(),
				Handler:      app.Handler,
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting server", map[string]any{"addr": srv.Addr, "kv_backend": cfg.KVBackend, "postgres": cfg.DBDSN != ""})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					log.Error("server error", map[string]any{"error": err})
				}
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down", nil)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "puerto HTTP (pisa PORT)")
	return cmd
}

// seedCmd carga los datos de demo. En Postgres inserta los que falten; en el
// KV reemplaza las colecciones completas.
func seedCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Carga los pacientes y citas de demo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			ctx := cmd.Context()
			now := time.Now()

			if cfg.DBDSN != "" {
				db, err := pg.Open(cfg.DBDSN)
				if err != nil {
					return err
				}
				defer db.Close()

				if err := pg.EnsureSchema(ctx, db); err != nil {
					return err
				}
				if err := pg.NewPatientsRepo(db).Seed(ctx, patients.Seed(now)); err != nil {
					return fmt.Errorf("seed patients: %w", err)
				}
				if err := pg.NewAppointmentsRepo(db).Seed(ctx, appointments.Seed(now)); err != nil {
					return fmt.Errorf("seed appointments: %w", err)
				}
				log.Info("seeded postgres", nil)
				return nil
			}

			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := mem.SavePatients(ctx, store, patients.Seed(now)); err != nil {
				return fmt.Errorf("seed patients: %w", err)
			}
			if err := mem.SaveAppointments(ctx, store, appointments.Seed(now)); err != nil {
				return fmt.Errorf("seed appointments: %w", err)
			}
			log.Info("seeded kv", map[string]any{"kv_backend": cfg.KVBackend})
			return nil
		},
	}
}

func healthcheckCmd() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Consulta /health de una instancia en marcha",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := httpclient.New(url, timeout)
			if err != nil {
				return err
			}

			var out struct {
				Status              string `json:"status"`
				PatientsLoading     bool   `json:"patients_loading"`
				AppointmentsLoading bool   `json:"appointments_loading"`
			}
			if err := client.GetJSON(cmd.Context(), "/health", &out); err != nil {
				return err
			}
			if out.Status != "ok" {
				return fmt.Errorf("unhealthy: status=%q", out.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok patients_loading=%t appointments_loading=%t\n",
				out.PatientsLoading, out.AppointmentsLoading)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "URL base de la API")
	cmd.Flags().DurationVar(&timeout, "timeout", httpclient.DefaultTimeout, "timeout de la consulta")
	return cmd
}

func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
}

// openStore abre el KV configurado. Con backend memory el seed no sobrevive
// al proceso, así que solo sirve como prueba en seco.
func openStore(cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.KVBackend {
	case config.KVRedis:
		s, err := kvredis.Open(kvredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return kvmem.NewStore(), func() {}, nil
	}
}
