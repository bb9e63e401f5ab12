package stores

import (
	"errors"
	"fmt"
)

// Operation labels carried by StorageError.
const (
	OpReadAll     = "ReadAll"
	OpClearTable  = "ClearTable"
	OpInsert      = "Insert"
	OpInsertBatch = "InsertBatch"
	OpReplaceAll  = "ReplaceAll"
	OpBegin       = "begin transaction"
	OpCommit      = "commit transaction"
)

// Stages at which Open can fail.
const (
	StageConnect = "connect"
	StageSchema  = "schema"
)

// ErrStoreClosed is returned by HealthCheck when the store is not open.
var ErrStoreClosed = errors.New("store is not open")

// StorageError reports an engine-level failure of a store operation.
type StorageError struct {
	// Op is the label of the operation that failed.
	Op string

	// Name is the work type being written, if the failure is row-specific.
	Name string

	// Err is the underlying engine error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s (name=%q): %s", e.Op, e.Name, e.unwrapMessage())
	}
	return fmt.Sprintf("%s: %s", e.Op, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown"
}

// OpenError reports that the database could not be opened or its schema
// could not be created. The store is left closed.
type OpenError struct {
	Path  string
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s (%s): %v", e.Path, e.Stage, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *OpenError) Unwrap() error {
	return e.Err
}
