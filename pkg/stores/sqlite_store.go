package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/workcatalog/workcatalog/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

const (
	schemaSQL = `
		CREATE TABLE IF NOT EXISTS WorkTypes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT    NOT NULL UNIQUE,
			basePay      REAL    NOT NULL,
			bonusPercent REAL    NOT NULL
		)
	`

	selectAllSQL = `SELECT name, basePay, bonusPercent FROM WorkTypes ORDER BY id`

	clearSQL = `DELETE FROM WorkTypes`

	// ON CONFLICT keeps the existing id, so a replaced row keeps its position.
	upsertSQL = `
		INSERT INTO WorkTypes (name, basePay, bonusPercent)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			basePay = excluded.basePay,
			bonusPercent = excluded.bonusPercent
	`

	busyTimeoutMillis = 5000
)

// Config holds work type store configuration
type Config struct {
	// Path is the database file. ":memory:" gives a private in-memory database.
	Path string
}

// Option customizes a WorkTypeStore.
type Option func(*WorkTypeStore)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *WorkTypeStore) {
		if logger != nil {
			s.logger = logger.NewComponentLogger("stores")
		}
	}
}

// WithMetrics sets the collector that records store operations.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *WorkTypeStore) {
		s.metrics = metrics
	}
}

// WithTracer sets the tracer used to span store operations.
func WithTracer(tracer *telemetry.Tracer) Option {
	return func(s *WorkTypeStore) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithEvents sets the publisher notified of catalog changes.
func WithEvents(events *telemetry.EventPublisher) Option {
	return func(s *WorkTypeStore) {
		s.events = events
	}
}

// WorkTypeStore implements the Store interface using SQLite.
//
// The store holds at most one connection. It is not safe for concurrent use;
// callers must serialize operations on a single instance.
type WorkTypeStore struct {
	path string

	// db is nil whenever the store is closed.
	db      *sql.DB
	cleanup runtime.Cleanup

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	events  *telemetry.EventPublisher
}

// NewWorkTypeStore creates a new, closed store bound to cfg.Path.
func NewWorkTypeStore(cfg Config, opts ...Option) (*WorkTypeStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	s := &WorkTypeStore{
		path:   cfg.Path,
		logger: telemetry.NewNopLogger(),
		tracer: telemetry.NewNopTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Path returns the database file the store is bound to.
func (s *WorkTypeStore) Path() string {
	return s.path
}

// IsOpen reports whether the store currently holds a connection.
func (s *WorkTypeStore) IsOpen() bool {
	return s.db != nil
}

// Open opens or creates the database file and ensures the WorkTypes table
// exists. Calling Open on an open store does nothing.
//
// On failure the connection is released and an *OpenError is returned;
// the store stays closed.
func (s *WorkTypeStore) Open(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return s.openFailed(StageConnect, err)
	}

	// One connection is the store's single handle. It also keeps ":memory:"
	// databases alive between statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return s.openFailed(StageConnect, err)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return s.openFailed(StageSchema, err)
	}

	s.db = db
	s.cleanup = runtime.AddCleanup(s, closeAbandoned, db)

	s.logger.WithField("path", s.path).Debug("work type store opened")
	s.publish(telemetry.EventTypeStoreOpened, "", nil)

	return nil
}

// closeAbandoned releases the connection of a store that became unreachable
// while still open. It must not reference the store itself.
func closeAbandoned(db *sql.DB) {
	_ = db.Close()
}

func (s *WorkTypeStore) openFailed(stage string, err error) error {
	s.logger.WithError(err).WithField("path", s.path).WithField("stage", stage).Error("failed to open work type store")
	return &OpenError{Path: s.path, Stage: stage, Err: err}
}

func (s *WorkTypeStore) dsn() string {
	sep := "?"
	if strings.Contains(s.path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_txlock=immediate", s.path, sep, busyTimeoutMillis)
}

// Close releases the connection. Closing a closed store does nothing.
func (s *WorkTypeStore) Close() error {
	if s.db == nil {
		return nil
	}

	s.cleanup.Stop()
	db := s.db
	s.db = nil

	if err := db.Close(); err != nil {
		s.logger.WithError(err).Warn("failed to close work type store cleanly")
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.logger.WithField("path", s.path).Debug("work type store closed")
	s.publish(telemetry.EventTypeStoreClosed, "", nil)

	return nil
}

// ReadAll returns every work type in insertion order.
// A closed store yields an empty slice.
func (s *WorkTypeStore) ReadAll(ctx context.Context) ([]WorkType, error) {
	workTypes := []WorkType{}
	if s.db == nil {
		return workTypes, nil
	}

	err := s.observe(ctx, OpReadAll, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, selectAllSQL)
		if err != nil {
			return &StorageError{Op: OpReadAll, Err: err}
		}
		defer rows.Close()

		for rows.Next() {
			var (
				name sql.NullString
				wt   WorkType
			)
			if err := rows.Scan(&name, &wt.BasePay, &wt.BonusPercent); err != nil {
				return &StorageError{Op: OpReadAll, Err: err}
			}
			wt.Name = name.String
			workTypes = append(workTypes, wt)
		}

		if err := rows.Err(); err != nil {
			return &StorageError{Op: OpReadAll, Err: err}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetCatalogSize(len(workTypes))
	return workTypes, nil
}

// ClearTable deletes every work type. The table itself remains.
func (s *WorkTypeStore) ClearTable(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	err := s.observe(ctx, OpClearTable, func(ctx context.Context) error {
		if _, err := s.db.ExecContext(ctx, clearSQL); err != nil {
			return &StorageError{Op: OpClearTable, Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.SetCatalogSize(0)
	s.publish(telemetry.EventTypeCatalogCleared, "", nil)
	return nil
}

// Insert adds a work type, or overwrites the pay values of the existing
// work type with the same name. A closed store ignores the call.
func (s *WorkTypeStore) Insert(ctx context.Context, name string, basePay, bonusPercent float64) error {
	if s.db == nil {
		return nil
	}

	err := s.observe(ctx, OpInsert, func(ctx context.Context) error {
		return upsert(ctx, s.db, OpInsert, WorkType{Name: name, BasePay: basePay, BonusPercent: bonusPercent})
	})
	if err != nil {
		return err
	}

	s.publish(telemetry.EventTypeWorkTypeUpserted, name, map[string]interface{}{
		"base_pay":      basePay,
		"bonus_percent": bonusPercent,
	})
	return nil
}

// InsertBatch upserts rows in order inside a single transaction. Later
// rows with a repeated name win. If any row or the commit fails, the
// transaction is rolled back before the error is returned, leaving the
// table exactly as it was. A closed store ignores the call.
func (s *WorkTypeStore) InsertBatch(ctx context.Context, rows []WorkType) error {
	return s.writeBatch(ctx, OpInsertBatch, rows, false)
}

// ReplaceAll atomically replaces the whole catalog with rows: the table is
// cleared and rows are upserted in one transaction. On failure the previous
// catalog is kept. A closed store ignores the call.
func (s *WorkTypeStore) ReplaceAll(ctx context.Context, rows []WorkType) error {
	return s.writeBatch(ctx, OpReplaceAll, rows, true)
}

func (s *WorkTypeStore) writeBatch(ctx context.Context, op string, rows []WorkType, replace bool) error {
	if s.db == nil {
		return nil
	}

	batchID := uuid.NewString()
	logger := s.logger.WithField("batch_id", batchID)

	err := s.observe(ctx, op, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return &StorageError{Op: OpBegin, Err: err}
		}

		if replace {
			if _, err := tx.ExecContext(ctx, clearSQL); err != nil {
				clearErr := &StorageError{Op: op, Err: err}
				s.rollback(ctx, tx, op, logger, clearErr)
				return clearErr
			}
		}

		for _, row := range rows {
			if err := upsert(ctx, tx, op, row); err != nil {
				s.rollback(ctx, tx, op, logger, err)
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			commitErr := &StorageError{Op: OpCommit, Err: err}
			s.rollback(ctx, tx, op, logger, commitErr)
			return commitErr
		}

		return nil
	})
	if err != nil {
		s.publish(telemetry.EventTypeBatchRolledBack, "", map[string]interface{}{
			"batch_id": batchID,
			"rows":     len(rows),
			"replace":  replace,
			"error":    err.Error(),
		})
		return err
	}

	s.metrics.RecordBatch(len(rows))
	logger.Debugf("committed batch of %d work types", len(rows))
	s.publish(telemetry.EventTypeBatchCommitted, "", map[string]interface{}{
		"batch_id": batchID,
		"rows":     len(rows),
		"replace":  replace,
	})
	return nil
}

// rollback aborts tx after cause. Rollback failures are logged, never returned.
func (s *WorkTypeStore) rollback(ctx context.Context, tx *sql.Tx, op string, logger *telemetry.Logger, cause error) {
	s.metrics.RecordRollback(op)

	err := tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		err = nil
		// A cancelled context makes database/sql roll back on its own. A
		// failed COMMIT may instead leave the engine transaction open even
		// though tx is already released.
		if ctx.Err() == nil {
			_, err = s.db.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
			if err != nil && strings.Contains(err.Error(), "no transaction is active") {
				err = nil
			}
		}
	}

	if err != nil {
		logger.WithError(err).Warn("rollback failed")
		return
	}
	logger.WithError(cause).Warn("batch rolled back")
}

// HealthCheck verifies the database connection is healthy
func (s *WorkTypeStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreClosed
	}

	return s.db.PingContext(ctx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, op string, wt WorkType) error {
	if _, err := db.ExecContext(ctx, upsertSQL, wt.Name, wt.BasePay, wt.BonusPercent); err != nil {
		return &StorageError{Op: op, Name: wt.Name, Err: err}
	}
	return nil
}

// observe runs fn inside a span and records its outcome.
func (s *WorkTypeStore) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.StartStoreSpan(ctx, op, attribute.String("db.path", s.path))
	defer span.End()

	timer := telemetry.NewTimer()
	err := fn(ctx)

	status := "ok"
	if err != nil {
		status = "error"
		telemetry.RecordError(span, err)
		s.logger.WithError(err).WithField("operation", op).Error("store operation failed")
	} else {
		telemetry.RecordSuccess(span)
		s.logger.WithField("operation", op).WithField("duration", timer.Duration().String()).Trace("store operation finished")
	}
	s.metrics.RecordStoreOperation(op, status, timer.Duration())

	return err
}

func (s *WorkTypeStore) publish(eventType, workType string, data map[string]interface{}) {
	if err := s.events.Publish(telemetry.Event{
		Type:     eventType,
		Source:   "stores",
		WorkType: workType,
		Path:     s.path,
		Data:     data,
	}); err != nil {
		s.logger.WithError(err).Warn("failed to publish catalog event")
	}
}
