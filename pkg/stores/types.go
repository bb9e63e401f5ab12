package stores

import (
	"context"
)

// WorkType is a single entry of the work type catalog.
// Name is the natural key; the surrogate id assigned by the database
// is only used for ordering and is never exposed.
type WorkType struct {
	Name         string  `json:"name" yaml:"name"`
	BasePay      float64 `json:"basePay" yaml:"basePay"`
	BonusPercent float64 `json:"bonusPercent" yaml:"bonusPercent"`
}

// Store defines the interface for the work type persistence layer
type Store interface {
	// Lifecycle
	Open(ctx context.Context) error
	Close() error
	IsOpen() bool

	// Catalog operations
	ReadAll(ctx context.Context) ([]WorkType, error)
	ClearTable(ctx context.Context) error
	Insert(ctx context.Context, name string, basePay, bonusPercent float64) error
	InsertBatch(ctx context.Context, rows []WorkType) error
	ReplaceAll(ctx context.Context, rows []WorkType) error

	// Utility
	HealthCheck(ctx context.Context) error
}

var _ Store = (*WorkTypeStore)(nil)
