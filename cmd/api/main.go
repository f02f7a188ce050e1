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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-staff-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/notify"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/otp"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/photo"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff"
	"github.com/ovaphlow/pitchfork/service-staff-go/internal/staff/repo"
	"github.com/ovaphlow/pitchfork/service-staff-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-staff-go/pkg/utilities"
)

// staffStore is everything the services need from a staff backend.
type staffStore interface {
	staff.Store
	auth.CredentialStore
	auth.IdentityFinder
	otp.CredentialStore
}

type backend struct {
	store staffStore
	ready func(context.Context) error
	close func() error
	seed  bool
}

func openBackend(ctx context.Context, logger *zap.SugaredLogger) (*backend, error) {
	switch kind := os.Getenv("STORE_BACKEND"); kind {
	case "memory":
		logger.Warn("using in-memory staff store; data is lost on restart")
		return &backend{store: repo.NewMemoryRepo(), close: func() error { return nil }, seed: true}, nil
	case "", "postgres":
		db, err := database.Open(ctx, database.ConfigFromEnv())
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db.DB); err != nil {
			db.Close()
			return nil, err
		}
		return &backend{store: repo.NewStaffRepo(db), ready: db.PingContext, close: db.Close}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", kind)
	}
}

func main() {
	// best-effort: a missing .env just means real env vars are used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-staff-go")

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, sugar)
	if err != nil {
		sugar.Fatalf("staff store: %v", err)
	}
	defer be.close()

	photos, err := photo.New(ctx, photo.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("photo store: %v", err)
	}
	var photoDir string
	if fs, ok := photos.(*photo.FilesystemStore); ok {
		photoDir = fs.Dir()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hasher := auth.BcryptHasher{Cost: 10}
	tokens := auth.NewTokenService(authCfg)

	staffSvc := staff.NewService(be.store, photos, hasher, sugar)
	if be.seed {
		if _, err := staffSvc.Seed(ctx); err != nil {
			sugar.Fatalf("seed memory store: %v", err)
		}
	}

	codes := otp.NewStore()
	gateway := notify.New(notify.ConfigFromEnv(), int(otp.CodeTTL/time.Minute), sugar)
	otpSvc := otp.NewService(be.store, codes, gateway, hasher, otp.NewMetrics(reg, codes), sugar)

	sweeper, err := otp.NewSweeper(codes, otp.SweepSpecFromEnv(), sugar)
	if err != nil {
		sugar.Fatalf("otp sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	handler := router.RegisterRoutes(router.Deps{
		Logger:   sugar,
		Gate:     auth.NewGate(tokens, be.store, sugar),
		Auth:     auth.NewHandler(auth.NewService(be.store, hasher, tokens), sugar),
		OTP:      otp.NewHandler(otpSvc, sugar),
		Staff:    staff.NewHandler(staffSvc, sugar),
		Registry: reg,
		PhotoDir: photoDir,
		Ready:    be.ready,
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
