package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/workcatalog/workcatalog/pkg/config"
	"github.com/workcatalog/workcatalog/pkg/stores"
	"github.com/workcatalog/workcatalog/pkg/telemetry"
)

// session is an open catalog store together with its telemetry.
type session struct {
	settings *config.Settings
	tel      *telemetry.Telemetry
	store    *stores.WorkTypeStore
}

// loadSettings resolves the settings file and applies the global flags.
func loadSettings() (*config.Settings, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultSettingsFile); err == nil {
			path = config.DefaultSettingsFile
		}
	}

	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		settings.Database.Path = dbPath
	}
	if verbose {
		settings.Logging.Level = "debug"
	}

	return settings, nil
}

// openSession loads settings and opens the catalog store.
func openSession(ctx context.Context) (*session, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return openSessionWith(ctx, settings)
}

func openSessionWith(ctx context.Context, settings *config.Settings) (*session, error) {
	tel, err := telemetry.NewTelemetry(settings.Telemetry())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if verbose {
		tel.Events.Subscribe(telemetry.LogSubscriber(tel.Logger), nil)
	}

	store, err := stores.NewWorkTypeStore(stores.Config{Path: settings.Database.Path},
		stores.WithLogger(tel.Logger),
		stores.WithMetrics(tel.Metrics),
		stores.WithTracer(tel.Tracer),
		stores.WithEvents(tel.Events),
	)
	if err != nil {
		_ = tel.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Open(ctx); err != nil {
		_ = tel.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	return &session{
		settings: settings,
		tel:      tel,
		store:    store,
	}, nil
}

// run executes fn as an instrumented operation.
func (s *session) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ic := telemetry.StartOperation(s.tel.WithContext(ctx), operation,
		telemetry.AttrCommand.String(operation),
	)
	err := fn(ic.Ctx)
	ic.End(err)
	return err
}

// Close releases the store and flushes telemetry.
func (s *session) Close(ctx context.Context) error {
	return errors.Join(
		s.store.Close(),
		s.tel.Shutdown(context.WithoutCancel(ctx)),
	)
}

// closeInto closes the session and joins any failure into *errp.
func (s *session) closeInto(ctx context.Context, errp *error) {
	if err := s.Close(ctx); err != nil {
		*errp = errors.Join(*errp, fmt.Errorf("failed to close catalog: %w", err))
	}
}
