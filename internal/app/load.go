package app

import (
	"fmt"

	"github.com/vk/listmodel/internal/backing"
	"github.com/vk/listmodel/internal/ctxlog"
	"github.com/vk/listmodel/internal/host"
	"github.com/vk/listmodel/internal/listmodel"
	"github.com/vk/listmodel/internal/schema"
	"github.com/vk/listmodel/internal/seed"
	"github.com/zclconf/go-cty/cty"
)

// loadModel compiles the schema, builds the model over a fresh slice and
// appends the seed records.
func (app *App) loadModel() error {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Loading schema...", "schema_path", app.config.SchemaPath)

	s, err := schema.NewLoader().Load(app.ctx, app.config.SchemaPath)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	app.schema = s
	logger.Info("Schema loaded.", "roles", s.RoleNames(), "constructor", s.Constructor != nil)

	hook := host.NewHook("revision", func() error {
		rev := app.revision.Add(1)
		logger.Debug("Model updated.", "revision", rev)
		return nil
	})
	app.items = new([]cty.Value)
	app.model = listmodel.New(backing.New(app.items),
		listmodel.WithLogger(logger),
		listmodel.WithUpdateHook(hook),
	)
	if err := s.Apply(app.model); err != nil {
		app.model.Close()
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if app.config.SeedPath == "" {
		return nil
	}
	records, err := seed.Load(app.ctx, app.config.SeedPath)
	if err != nil {
		app.model.Close()
		return fmt.Errorf("failed to load seed: %w", err)
	}
	n, err := seed.Apply(app.model, records)
	if err != nil {
		app.model.Close()
		return fmt.Errorf("failed to apply seed: %w", err)
	}
	logger.Info("Seed records loaded.", "count", n)
	return nil
}
