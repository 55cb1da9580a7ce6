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

	v1 "go_library/api/v1"
	"go_library/internal/auth"
	"go_library/internal/cache"
	"go_library/internal/catalog"
	"go_library/internal/circulation"
	"go_library/internal/db"
	"go_library/internal/events"
	"go_library/internal/ledger"
	"go_library/internal/overdue"
	"go_library/internal/report"
	"go_library/internal/session"
	"go_library/internal/users"
	"go_library/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, Socket.IO push and the overdue scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	// 1. Load configuration and connect to the database
	cfg, logger, gormDB, err := setup()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if cfg.Migrate {
		if err := db.Migrate(gormDB, logger.WithField("component", "db")); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Redis backs token revocation and the dashboard cache when enabled
	var revocations session.RevocationStore = session.NewMemoryRevocations()
	var reportCache report.Cache
	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revocations = cache.NewTokenBlacklist(rdb)
		reportCache = cache.NewJSONCache(rdb, "library:report:")
		logger.WithField("addr", cfg.Redis.Addr).Info("✓ Redis connected")
	} else {
		logger.Warn("Redis disabled, logged-out tokens are remembered in memory only")
	}

	// 3. Domain services
	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)
	if err != nil {
		return err
	}
	base := logger.WithField("app", "library")
	sessions := session.NewService(gormDB, tokens, revocations, base)
	eventLog := events.NewService(gormDB)

	// Committed events reach the dashboard cache and, when enabled, the push hub
	reports := report.NewService(gormDB, nil, reportCache, time.Duration(cfg.Report.CacheSec)*time.Second, base)
	bus := events.Fanout{reports}
	var hub *ws.Hub
	if cfg.WS.Enabled {
		hub = ws.NewHub(sessions, eventLog, base)
		bus = append(bus, hub)
	}

	svc := &v1.Services{
		Sessions:    sessions,
		Users:       users.NewService(gormDB, nil, base),
		Catalog:     catalog.NewService(gormDB, nil, bus, base),
		Circulation: circulation.NewService(gormDB, nil, bus, circulation.PolicyFromConfig(cfg.Library), base),
		Ledger:      ledger.NewService(gormDB, nil, bus, base),
		Reports:     reports,
		Events:      eventLog,
		Hub:         hub,
	}

	// 4. HTTP server
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	timeout := time.Duration(cfg.HTTP.RequestTimeoutSec) * time.Second
	if err := v1.SetupRouter(r, svc, timeout, logger.WithField("component", "http")); err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}

	// 5. Run everything until a signal arrives or one part fails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.HTTP.Addr).Info("✓ Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down HTTP server...")
		return srv.Shutdown(shutdownCtx)
	})
	if hub != nil {
		g.Go(func() error { return hub.Serve(gctx) })
	}
	if cfg.OverdueScanner.Enabled {
		worker := overdue.NewWorker(&overdue.Config{
			DB:          gormDB,
			Bus:         bus,
			Logger:      base,
			IntervalSec: cfg.OverdueScanner.IntervalSec,
		})
		g.Go(func() error { return worker.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("Server stopped")
	return err
}
