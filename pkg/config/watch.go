package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultWatchDelay is how long a watcher waits after the last change
// before reparsing.
const DefaultWatchDelay = 500 * time.Millisecond

// ApplyFunc receives every parse of the watched catalog. Returning an
// error stops the watch.
type ApplyFunc func(ctx context.Context, catalog *Catalog) error

// CatalogWatcher reparses catalog sources whenever one of their files
// changes.
type CatalogWatcher struct {
	parser *CatalogParser
	logger zerolog.Logger
	delay  time.Duration
}

// NewCatalogWatcher creates a watcher that parses with parser. A delay of
// zero uses DefaultWatchDelay.
func NewCatalogWatcher(parser *CatalogParser, logger zerolog.Logger, delay time.Duration) *CatalogWatcher {
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	return &CatalogWatcher{
		parser: parser,
		logger: logger.With().Str("component", "catalog-watcher").Logger(),
		delay:  delay,
	}
}

// Watch parses sources, hands the result to apply and repeats after every
// burst of changes until ctx is done. apply always runs on the calling
// goroutine. Watch returns nil when ctx is cancelled.
func (w *CatalogWatcher) Watch(ctx context.Context, sources []string, apply ApplyFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Directories are watched instead of files so that editors which save
	// by renaming a temporary file are still seen.
	watched := make(map[string]bool)
	files := make(map[string]bool)
	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		dir := filepath.Clean(source)
		if !info.IsDir() {
			files[dir] = true
			dir = filepath.Dir(dir)
		} else {
			watched[dir] = true
		}

		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.logger.Info().
		Strs("sources", sources).
		Dur("delay", w.delay).
		Msg("Started watching catalog sources")

	if err := w.reload(ctx, sources, apply); err != nil {
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopped watching catalog sources")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, watched, files) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Catalog file changed")

			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.reload(ctx, sources, apply); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}
	}
}

// reload parses sources and applies the result. A source that cannot be
// read, for example a file caught halfway through a save, is reported to
// apply as a catalog error rather than ending the watch.
func (w *CatalogWatcher) reload(ctx context.Context, sources []string, apply ApplyFunc) error {
	catalog, err := w.parser.Parse(ctx, sources)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		catalog = newCatalog()
		catalog.Errors = append(catalog.Errors, ValidationError{
			Message:  err.Error(),
			Severity: SeverityError,
		})
	}

	if err := apply(ctx, catalog); err != nil {
		return fmt.Errorf("failed to apply catalog: %w", err)
	}
	return nil
}

// relevantEvent reports whether event touches a watched catalog file.
func relevantEvent(event fsnotify.Event, dirs, files map[string]bool) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}

	name := filepath.Clean(event.Name)
	if files[name] {
		return true
	}
	if !dirs[filepath.Dir(name)] {
		return false
	}
	_, err := DetectFormat(name)
	return err == nil
}
