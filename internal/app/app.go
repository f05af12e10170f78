package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/listmodel"
	"github.com/vk/listmodel/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx    context.Context
	outW   io.Writer
	logger *slog.Logger
	config *Config

	schema   *schema.Schema
	items    *[]cty.Value
	model    *listmodel.Model
	revision atomic.Uint64

	httpServer *http.Server
	ready      chan struct{}
	readyOnce  sync.Once
	listenAddr atomic.Value
}

// NewApp is the constructor for the main application. Output (dumps and
// watched events) goes to outW; logs go to logW. For serve and dump the
// schema and seed are loaded here, so a returned App always holds a usable
// model.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:    ctx,
		outW:   outW,
		logger: logger,
		config: cfg,
		ready:  make(chan struct{}),
	}
	if cfg.Command == CommandWatch {
		return a, nil
	}
	if err := a.loadModel(); err != nil {
		return nil, err
	}
	return a, nil
}

// Model returns the application's model, nil for watch. This is primarily
// for testing.
func (a *App) Model() *listmodel.Model {
	return a.model
}

// Revision counts completed model updates.
func (a *App) Revision() uint64 {
	return a.revision.Load()
}

// Ready is closed once serve is accepting connections, or has given up
// because it could not listen. Addr tells the two apart.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

func (a *App) markReady() {
	a.readyOnce.Do(func() { close(a.ready) })
}

// Addr is the address serve listens on, valid after Ready. It is empty when
// serve failed to listen.
func (a *App) Addr() string {
	if v, ok := a.listenAddr.Load().(string); ok {
		return v
	}
	return ""
}

// Close releases the model.
func (a *App) Close() {
	if a.model != nil {
		a.model.Close()
	}
}
