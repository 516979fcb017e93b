// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/api"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/commands"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/ledger"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/mcpserver"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/sse"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/storage"
)

// Version is reported by the MCP server.
const Version = "1.0.0"

// services is the wired bot: storage, both engines, and the command router.
type services struct {
	engine *ledger.Engine
	reg    *relations.Registry
	router *commands.Router
	close  func() error
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func openProvider(cfg StorageConfig) (storage.Provider, func() error, error) {
	switch cfg.Driver {
	case StorageDriverSQLite:
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite storage: %w", err)
		}
		return db, db.Close, nil
	default:
		fs, err := storage.NewFS(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("init file storage: %w", err)
		}
		return fs, func() error { return nil }, nil
	}
}

func buildServices(cfg *Config, logger *slog.Logger) (*services, error) {
	store, closeFn, err := openProvider(cfg.Storage)
	if err != nil {
		return nil, err
	}

	engine := ledger.New(storage.NewDocument(store, cfg.Storage.LedgerFile), ledger.WithLogger(logger))
	reg := relations.New(storage.NewDocument(store, cfg.Storage.RelationsFile), relations.WithLogger(logger))

	return &services{
		engine: engine,
		reg:    reg,
		router: commands.NewBot(logger, engine, reg, cfg.Relations.PageSize),
		close:  closeFn,
	}, nil
}

func (a *application) prepare() (*Config, error) {
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := a.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return a.config, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts...)
	cfg, err := app.prepare()
	if err != nil {
		return err
	}

	logger := newLogger(app.logOut, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("data_dir", cfg.Storage.Dir),
		slog.Bool("watch", cfg.Storage.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	// SSE broker fed by successful state-changing commands.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	svc.router.Observe(func(cmd commands.Command, msg commands.Message) {
		if cmd.Mutates {
			broker.PublishChange(cmd.Name, msg.GroupID)
		}
	})

	handler := api.NewHandler(svc.router, svc.engine, svc.reg)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Unauthenticated endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Storage.Watch {
		g.Go(func() error {
			err := storage.Watch(gCtx, cfg.Storage.Dir,
				[]string{cfg.Storage.LedgerFile, cfg.Storage.RelationsFile}, logger,
				func(name string) {
					var reloaded bool
					switch name {
					case cfg.Storage.LedgerFile:
						reloaded = svc.engine.Reload()
					case cfg.Storage.RelationsFile:
						reloaded = svc.reg.Reload()
					}
					if reloaded {
						broker.Publish(sse.Event{Type: "document.reloaded", Data: map[string]string{"document": name}})
					}
				})
			if err != nil {
				logger.Warn("file watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the command surface as MCP tools over stdio. Logs go to
// stderr unless WithLogOutput says otherwise, keeping stdout for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	cfg, err := app.prepare()
	if err != nil {
		return err
	}

	logger := newLogger(app.logOut, cfg.App.LogLevel)
	slog.SetDefault(logger)

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	logger.Info("MCP server starting on stdio", slog.String("storage_driver", cfg.Storage.Driver))
	return mcpserver.New(svc.router, svc.reg, Version).ServeStdio()
}

// Exec runs one chat command against the configured storage and prints the
// reply. group selects the chat group; empty means a private chat.
func Exec(ctx context.Context, group string, args []string, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	cfg, err := app.prepare()
	if err != nil {
		return err
	}

	logger := newLogger(app.logOut, cfg.App.LogLevel)
	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	reply := svc.router.Dispatch(ctx, commands.Message{
		Text:     strings.Join(args, " "),
		GroupID:  group,
		SenderID: "cli",
	})
	fmt.Fprintln(app.out, reply.Text)
	if reply.Image != "" {
		fmt.Fprintln(app.out, "image:", reply.Image)
	}
	return reply.Err
}
