package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/nocsrf-go/internal/core/service"
	"github.com/yndnr/nocsrf-go/internal/infra/buildinfo"
	"github.com/yndnr/nocsrf-go/internal/infra/confloader"
	"github.com/yndnr/nocsrf-go/internal/infra/shutdown"
	"github.com/yndnr/nocsrf-go/internal/server/config"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver"
	"github.com/yndnr/nocsrf-go/internal/server/httpserver/handler"
	"github.com/yndnr/nocsrf-go/internal/storage"
	"github.com/yndnr/nocsrf-go/internal/storage/memory"
	"github.com/yndnr/nocsrf-go/internal/telemetry/logger"
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
	"github.com/yndnr/nocsrf-go/pkg/crypto/adaptive"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// Inputs to the at-rest key derivation. Changing either makes existing
// badger data unreadable.
const (
	sealSalt = "nocsrf-session-store"
	sealInfo = "nocsrf/v1/session-seal"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{
				Name:  "addr",
				Usage: "override server.http.addr",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override log.level",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	path := c.String(configFlag.Name)
	overrides := map[string]any{}
	if v := c.String("addr"); v != "" {
		overrides["server.http.addr"] = v
	}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}

	cfg, err := config.Load(path, overrides)
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 2)
	}
	if err := config.Verify(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting nocsrf-server",
		"version", buildinfo.String(),
		"config", path,
		"backend", cfg.Session.Backend)

	return run(c.Context, cfg, path, overrides, log)
}

func run(ctx context.Context, cfg *config.ServerConfig, path string, overrides map[string]any, log logger.Logger) error {
	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)
	shutdownHandler.SetLogger(logger.Slog())

	srv, err := newServer(cfg, log)
	if err != nil {
		return err
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return srv.Close()
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		srv.sessions.RunSweeper(sweepCtx, cfg.Session.SweepInterval)
	}()
	shutdownHandler.OnShutdown("sweeper", func(ctx context.Context) error {
		stopSweeper()
		select {
		case <-sweeperDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	if path != "" {
		watcher, err := watchLogLevel(path, overrides)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	httpSrv := httpserver.New(cfg.Server.HTTP, srv.handler, log)
	shutdownHandler.OnShutdown("http", httpSrv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening",
			"addr", httpSrv.Addr(),
			"tls", cfg.Server.HTTP.TLSEnabled())
		if err := httpSrv.ListenAndServe(); err != nil {
			serveErr <- err
			shutdownHandler.Trigger()
		}
		close(serveErr)
	}()

	waitErr := shutdownHandler.Wait(ctx)
	if err := <-serveErr; err != nil {
		log.Error("HTTP server failed", "error", err)
		return errors.Join(fmt.Errorf("http server: %w", err), waitErr)
	}
	if waitErr != nil {
		log.Error("shutdown error", "error", waitErr)
		return waitErr
	}
	log.Info("server stopped gracefully")
	return nil
}

// watchLogLevel re-reads the configuration whenever the file changes and
// applies its log level. Other settings need a restart.
func watchLogLevel(path string, overrides map[string]any) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(logger.Slog()))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(changed string) {
		cfg, err := config.Load(changed, overrides)
		if err != nil {
			logger.Warn("config reload failed", "path", changed, "error", err)
			return
		}
		prev := logger.GetLevel()
		if !logger.SetLevel(cfg.Log.Level) {
			logger.Warn("config reload: invalid log level", "level", cfg.Log.Level)
			return
		}
		if prev != logger.GetLevel() {
			logger.Info("log level changed", "from", prev, "to", logger.GetLevel())
		}
	})
	w.StartAsync()
	return w, nil
}

// server is everything behind the HTTP listener.
type server struct {
	sessions *service.SessionService
	metrics  *metric.Registry
	handler  http.Handler
	engine   *storage.BadgerEngine
}

func newServer(cfg *config.ServerConfig, log logger.Logger) (*server, error) {
	var reg *metric.Registry
	if cfg.Metrics.Enabled {
		reg = metric.NewRegistry()
	}

	repo, engine, err := openRepository(cfg.Session, reg)
	if err != nil {
		return nil, err
	}
	srv := &server{metrics: reg, engine: engine}

	srv.sessions = service.NewSessionService(repo, &service.SessionServiceConfig{
		TTL:             cfg.Session.TTL,
		MaxWriteRetries: cfg.Session.MaxWriteRetries,
		OnSweep:         reg.SessionsRemoved,
	})
	if reg != nil {
		reg.MustRegister(metric.NewSessionCollector(srv.sessions.Count))
	}

	guard, err := guardConfig(cfg.CSRF, reg, log)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}

	routerCfg := &httpserver.RouterConfig{
		Sessions:    srv.sessions,
		Guard:       guard,
		KeyVariable: cfg.CSRF.KeyVariable,
		Cookie: handler.Cookie{
			Name:     cfg.Session.CookieName,
			Secure:   cfg.Session.CookieSecure,
			SameSite: handler.ParseSameSite(cfg.Session.CookieSameSite),
			MaxAge:   cfg.Session.TTL,
		},
		Metrics:            reg,
		Logger:             log,
		ProtectMethods:     cfg.CSRF.ProtectMethods,
		RateLimit:          cfg.Security.RateLimit,
		RateBurst:          cfg.Security.RateBurst,
		CORSAllowedOrigins: cfg.Security.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.Security.TrustProxyHeaders,
	}
	if reg != nil {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	srv.handler = httpserver.NewRouter(routerCfg)
	return srv, nil
}

// Close releases the storage engine, if any.
func (s *server) Close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Close()
}

func openRepository(cfg config.SessionSection, reg *metric.Registry) (service.SessionRepository, *storage.BadgerEngine, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil, nil
	case config.BackendBadger:
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}

	engine, err := storage.OpenBadger(storage.DefaultBadgerConfig(cfg.DataDir), logger.Slog())
	if err != nil {
		return nil, nil, fmt.Errorf("open badger: %w", err)
	}
	if reg != nil {
		if err := engine.RegisterMetrics(reg.Prometheus()); err != nil {
			_ = engine.Close()
			return nil, nil, fmt.Errorf("register storage metrics: %w", err)
		}
	}

	var opts []storage.SessionStoreOption
	if cfg.EncryptionKey != "" {
		key, err := adaptive.DeriveKey([]byte(cfg.EncryptionKey), []byte(sealSalt), sealInfo)
		if err != nil {
			_ = engine.Close()
			return nil, nil, err
		}
		cipher, err := adaptive.New(key)
		if err != nil {
			_ = engine.Close()
			return nil, nil, err
		}
		opts = append(opts, storage.WithCipher(cipher))
	}
	return storage.NewSessionStore(engine, opts...), engine, nil
}

func guardConfig(cfg config.CSRFSection, reg *metric.Registry, log logger.Logger) (*service.Config, error) {
	alg, err := token.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	codec, err := service.NewHMACCodec(alg)
	if err != nil {
		return nil, err
	}
	gen, err := token.NewRandomGenerator(cfg.KeyBytes)
	if err != nil {
		return nil, err
	}
	return &service.Config{
		KeyGenerator: httpserver.InstrumentKeyGenerator(gen, reg),
		KeyStore:     service.NewSessionKeyStore(cfg.KeyVariable),
		TokenCodec:   codec,
		FormField:    cfg.FormField,
		HeaderName:   cfg.HeaderName,
		Logger:       log,
	}, nil
}
