// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the nnsearch daemon (create, start,
// stop) and the prepare and evaluate pipelines behind the CLI.
package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	fsw "github.com/mommothazaz123/avrae-search-nn/internal/adapters/fsnotify"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/web"
	"github.com/mommothazaz123/avrae-search-nn/internal/config"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// App is the daemon: a Service behind the Unix socket and, optionally, the
// HTTP API, reloaded when the catalog file changes.
type App struct {
	Config    *config.Config
	Service   *Service
	Metrics   *Metrics
	Server    *socket.Server
	WebServer *web.Server   // nil when serve.http_addr is empty
	Watcher   ports.Watcher // nil when serve.watch is off
	Scorer    ports.Scorer  // nil without rank.model
	log       *log.Logger
	closers   []func() error
}

// Options overrides how New obtains its collaborators. Zero values use the
// configured defaults.
type Options struct {
	Logger *log.Logger
	// Scorer replaces opening rank.model.
	Scorer ports.Scorer
	// Catalog replaces reading data.catalog.
	Catalog ports.CatalogSource
}

// SocketPath is serve.socket, or a path derived from the catalog.
func SocketPath(cfg *config.Config) string {
	if cfg.Serve.Socket != "" {
		return cfg.Serve.Socket
	}
	return socket.SocketPath(cfg.Data.Catalog)
}

// New creates an App with all dependencies wired. Does not start services.
func New(cfg *config.Config, opts Options) (*App, error) {
	l := opts.Logger
	if l == nil {
		l = logger.New("daemon")
	}
	a := &App{Config: cfg, Metrics: NewMetrics(), log: l}

	a.Scorer = opts.Scorer
	if a.Scorer == nil && cfg.Rank.Model != "" {
		s, err := OpenScorer(cfg.Rank.Model, cfg.Rank.OnnxLibrary)
		if err != nil {
			return nil, fmt.Errorf("open scorer: %w", err)
		}
		a.Scorer = s
		a.closers = append(a.closers, s.Close)
		l.Info("scorer loaded", "name", s.Descriptor().Name, "subset", s.Descriptor().Subset)
	}

	src := opts.Catalog
	if src == nil {
		src = files.CatalogFile{Path: cfg.Data.Catalog}
	}
	svc, err := NewService(cfg, src, a.Scorer, a.Metrics, l)
	if err != nil {
		a.close()
		return nil, err
	}
	a.Service = svc

	a.Server = socket.NewServer(svc, SocketPath(cfg))
	if cfg.Serve.HTTPAddr != "" {
		a.WebServer = web.NewServer(svc, a.Metrics.Handler())
	}
	if cfg.Serve.Watch {
		w, err := fsw.NewWatcher()
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		a.Watcher = w
	}
	return a, nil
}

// Start begins the daemon (socket server, HTTP server, catalog watcher).
// Only the socket is fatal.
func (a *App) Start() error {
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	a.log.Info("listening", "socket", a.Server.Addr(), "entries", a.Service.Engine().Universe().Size())

	if a.WebServer != nil {
		if err := a.WebServer.Start(a.Config.Serve.HTTPAddr); err != nil {
			a.log.Warn("HTTP API unavailable", "err", err)
			a.WebServer = nil
		} else {
			a.log.Info("serving HTTP", "url", a.WebServer.URL())
		}
	}
	if a.Watcher != nil {
		if err := a.Watcher.Watch(a.Config.Data.Catalog, a.onCatalogChanged); err != nil {
			a.log.Warn("catalog watcher unavailable", "err", err)
		}
	}
	return nil
}

// Stop shuts down all services and releases the scorer.
func (a *App) Stop() error {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.WebServer != nil {
		a.WebServer.Stop()
	}
	a.Server.Stop()
	return a.close()
}

// ShutdownCh is closed when a client requests shutdown over the socket.
func (a *App) ShutdownCh() <-chan struct{} {
	return a.Server.ShutdownCh()
}

func (a *App) onCatalogChanged(path string) {
	a.log.Debug("catalog changed", "path", path)
	if _, err := a.Service.Reload(); err != nil {
		a.log.Error("reload failed, keeping previous catalog", "err", err)
	}
}

func (a *App) close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
