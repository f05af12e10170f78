package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/feed"
	"github.com/vk/listmodel/internal/watch"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Run executes the configured command. serve and watch block until ctx is
// done.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)
	defer a.logger.Debug("App.Run method finished.")

	switch a.config.Command {
	case CommandServe:
		return a.serve(ctx)
	case CommandDump:
		return a.dump()
	case CommandWatch:
		return a.watch(ctx)
	}
	return fmt.Errorf("unknown command %q", a.config.Command)
}

// serve exposes the model over socket.io until ctx is done. The model is
// owned by the feed for the duration.
func (a *App) serve(ctx context.Context) error {
	f := feed.New(ctx, a.model)
	defer f.Close()

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", f.Handler())
	mux.HandleFunc("/health", a.healthHandler)
	srv := &http.Server{Handler: mux}

	ln, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		a.markReady()
		return fmt.Errorf("failed to listen on %s: %w", a.config.Addr, err)
	}
	a.listenAddr.Store(ln.Addr().String())
	a.logger.Info("🚀 Serving model.", "address", ln.Addr().String(), "model", f.ID(), "count", a.model.Count())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("model server failed: %w", err)
		}
		return nil
	})
	if health := a.healthCheckServer(); health != nil {
		g.Go(func() error { return a.runHealthCheckServer(health) })
	}
	g.Go(func() error {
		<-gctx.Done()
		f.Close()
		if err := srv.Shutdown(context.Background()); err != nil {
			a.logger.Error("Model server shutdown failed", "error", err)
		}
		return a.closeHealthCheckServer()
	})
	a.markReady()

	err = g.Wait()
	a.logger.Info("🏁 Server stopped.", "revision", a.revision.Load())
	return err
}

type dumpDoc struct {
	Count int              `json:"count" yaml:"count"`
	Roles []string         `json:"roles" yaml:"roles"`
	Rows  []map[string]any `json:"rows" yaml:"rows"`
}

// dump writes every row of the model to the output.
func (a *App) dump() error {
	doc := dumpDoc{
		Count: a.model.Count(),
		Roles: a.model.Roles(),
		Rows:  a.model.Rows(),
	}
	if doc.Rows == nil {
		doc.Rows = []map[string]any{}
	}

	switch a.config.DumpFormat {
	case "yaml":
		enc := yaml.NewEncoder(a.outW)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode rows: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode rows: %w", err)
		}
		return nil
	}
}

// watch follows a remote model and prints what it sees.
func (a *App) watch(ctx context.Context) error {
	c, err := watch.Dial(ctx, a.config.URL, watch.Options{Timeout: a.config.Timeout})
	if err != nil {
		return err
	}
	defer c.Close()
	return watch.Follow(ctx, c, a.outW)
}
