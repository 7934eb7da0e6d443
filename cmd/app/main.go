package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"attendance-ledger/internal/archive"
	bulkop "attendance-ledger/internal/bulk"
	"attendance-ledger/internal/config"
	"attendance-ledger/internal/export"
	attendanceBulk "attendance-ledger/internal/http-server/handlers/attendance/bulk"
	attendanceCreate "attendance-ledger/internal/http-server/handlers/attendance/create"
	attendanceDelete "attendance-ledger/internal/http-server/handlers/attendance/delete"
	attendanceGet "attendance-ledger/internal/http-server/handlers/attendance/get"
	attendanceUpdate "attendance-ledger/internal/http-server/handlers/attendance/update"
	reportCalendar "attendance-ledger/internal/http-server/handlers/reports/calendar"
	reportExport "attendance-ledger/internal/http-server/handlers/reports/export"
	reportStats "attendance-ledger/internal/http-server/handlers/reports/stats"
	"attendance-ledger/internal/ledger"
	"attendance-ledger/internal/lock"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage/inmem"
	"attendance-ledger/internal/storage/postgres"
	"attendance-ledger/pkg/handlers/slogpretty"
	"attendance-ledger/pkg/middleware/mwlogger"
	"attendance-ledger/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type attendanceStorage interface {
	ledger.Store
	StudentProfiles(ctx context.Context, ids []string) (map[string]models.StudentProfile, error)
	Close() error
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting attendance API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	var storage attendanceStorage
	if cfg.StoragePath != "" {
		pg, err := postgres.New(cfg.StoragePath)
		if err != nil {
			log.Error("Failed to init storage", sl.Err(err))
			os.Exit(1)
		}
		storage = pg
	} else {
		log.Warn("storage_path is empty, records are kept in memory")
		storage = inmem.New()
	}

	opts := []ledger.Option{
		ledger.WithLogger(log),
		ledger.WithRetry(cfg.Ledger.CreateAttempts, cfg.Ledger.RetryBaseDelay),
	}

	var locker *lock.RedisLock
	if cfg.RedisAddr != "" {
		l, err := lock.NewRedisLock(cfg.RedisAddr)
		if err != nil {
			log.Error("Failed to init redis lock", sl.Err(err))
			os.Exit(1)
		}
		locker = l
		opts = append(opts, ledger.WithLocker(locker, cfg.Ledger.CreateLockTTL))
	}

	led := ledger.New(storage, opts...)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), cfg.HTTPServer.Timeout)
	if err := led.Load(loadCtx); err != nil {
		log.Error("Failed to load attendance", sl.Err(err))
		loadCancel()
		os.Exit(1)
	}
	loadCancel()

	log.Info("Attendance loaded", slog.Int("records", len(led.List())))

	coordinator := bulkop.New(led, log, cfg.Bulk.MaxConcurrency)

	exportDeps := reportExport.Deps{
		Provider: led,
		Exporter: export.New(storage),
		Dir:      storage,
	}
	if cfg.Archive.Bucket != "" {
		arch, err := archive.NewS3Archive(cfg.Archive)
		if err != nil {
			log.Error("Failed to init report archive", sl.Err(err))
			os.Exit(1)
		}
		exportDeps.Archiver = arch
		log.Info("Report archive enabled", slog.String("bucket", cfg.Archive.Bucket))
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwlogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Attendance
	router.Post("/attendance", attendanceCreate.New(log, led))
	router.Post("/attendance/bulk", attendanceBulk.New(log, coordinator, led))
	router.Get("/attendance", attendanceGet.New(log, led))
	router.Get("/attendance/{id}", attendanceGet.New(log, led))
	router.Put("/attendance/{id}", attendanceUpdate.New(log, led))
	router.Delete("/attendance/{id}", attendanceDelete.New(log, led))

	// Reports
	router.Get("/reports/stats", reportStats.New(log, led))
	router.Get("/reports/series", reportStats.NewSeries(log, led))
	router.Get("/reports/calendar", reportCalendar.New(log, led))
	router.Get("/reports/export", reportExport.New(log, exportDeps))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if locker != nil {
		if err := locker.Close(); err != nil {
			log.Error("Failed to close locker", sl.Err(err))
		} else {
			log.Info("Locker closed")
		}
	}

	log.Info("Shutdown finished, server stopped")

}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
