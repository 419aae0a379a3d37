package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/jumpin/internal/auth"
	"github.com/geocoder89/jumpin/internal/cache"
	"github.com/geocoder89/jumpin/internal/clock"
	"github.com/geocoder89/jumpin/internal/config"
	"github.com/geocoder89/jumpin/internal/db"
	"github.com/geocoder89/jumpin/internal/domain/profile"
	httpx "github.com/geocoder89/jumpin/internal/http"
	"github.com/geocoder89/jumpin/internal/identity"
	"github.com/geocoder89/jumpin/internal/mirror"
	"github.com/geocoder89/jumpin/internal/observability"
	"github.com/geocoder89/jumpin/internal/session"
	"github.com/geocoder89/jumpin/internal/sheets"
	"github.com/geocoder89/jumpin/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "jumpin-api"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	st, err := openStores(ctx, cfg, prom)
	if err != nil {
		return err
	}
	defer st.close()

	clk := clock.System{}

	jwt := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	sessions := session.NewManager(jwt, st.sessions, clk)
	ids := identity.NewService(st.users, sessions, clk)

	var sheetMirror sheets.Mirror = sheets.Disabled{}
	if cfg.SheetsEnabled() {
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.SpreadsheetID,
			SheetName:       cfg.SheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			return err
		}
		sheetMirror = client
	} else {
		log.Warn("sheets.mirror_disabled", "reason", "GOOGLE_SERVICE_ACCOUNT_KEY or GOOGLE_SPREADSHEET_ID not set")
	}
	sheetMirror = sheets.NewProtectedMirror(sheetMirror, sheets.ProtectedConfig{Timeout: cfg.MirrorTimeout})

	dispatcher := mirror.NewDispatcher(mirror.Config{
		Timeout:  cfg.MirrorTimeout,
		Logger:   log,
		Recorder: prom,
		Clock:    clk,
	})

	schools := profile.NewCatalogue(cfg.Schools)

	registration := workflow.NewRegistration(workflow.RegistrationDeps{
		Identity: ids,
		Profiles: st.profiles,
		Schools:  schools,
		Mirror:   sheetMirror,
		Dispatch: dispatcher,
		Clock:    clk,
		Logger:   log,
	})
	checkin := workflow.NewCheckin(workflow.CheckinDeps{
		Guard:    st.guard,
		Profiles: st.profiles,
		Mirror:   sheetMirror,
		Dispatch: dispatcher,
		Clock:    clk,
		Logger:   log,
		Recorder: prom,
	})

	if err := db.EnsureDemoAccount(ctx, ids, st.profiles, db.DemoAccount{
		Email:     cfg.DemoEmail,
		Password:  cfg.DemoPassword,
		FirstName: "Demo",
		LastName:  "User",
		School:    profile.DefaultSchools[0].Value,
		DOB:       "2006-01-01",
	}, clk.Now()); err != nil {
		return err
	}

	router := httpx.NewRouter(httpx.Deps{
		Env:          cfg.Env,
		ServiceName:  serviceName,
		Logger:       log,
		Prom:         prom,
		CORSOrigins:  cfg.CORSOrigins,
		Sessions:     sessions,
		Registration: registration,
		Identity:     ids,
		Rotator:      sessions,
		Checkin:      checkin,
		Profiles:     st.profiles,
		Schools:      schools,
		Mirror:       sheetMirror,
		Dispatcher:   dispatcher,
		ProfileCache: cache.New(30 * time.Second),
		ReadyChecks:  st.ready,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	// pending spreadsheet writes get the rest of the budget
	if err := dispatcher.WaitContext(shutdownCtx); err != nil {
		log.Error("mirror tasks still running at shutdown", "err", err)
	}

	log.Info("shutdown complete")
	return nil
}
