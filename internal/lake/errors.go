package lake

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStorageUnavailable marks any failure of the backing medium:
	// filesystem errors, unreadable parquet files, a corrupt commit log.
	// Transient from the caller's point of view; a retry of the whole
	// partition write is safe.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrSchemaConflict marks incoming rows whose columns are incompatible
	// with the stored table schema. Never auto-healed.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrCommitConflict marks a concurrent writer detected at commit time:
	// the target log version already existed.
	ErrCommitConflict = errors.New("commit conflict")

	// ErrTableNotFound marks a strict operation against a table that has no
	// commit log yet.
	ErrTableNotFound = errors.New("table not found")

	// ErrVersionNotFound marks a time-travel read past the newest commit.
	ErrVersionNotFound = errors.New("version not found")
)

// StorageError wraps a failed storage operation with the table and the
// operation that hit it. errors.Is(err, ErrStorageUnavailable) holds for
// every StorageError.
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

func storageErr(op, table string, err error) error {
	return &StorageError{Op: op, Table: table, Err: err}
}

// SchemaError names the column-level differences between the stored schema
// and the schema of the rows being written.
type SchemaError struct {
	Table string
	Diffs []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema conflict on %s: %s", e.Table, strings.Join(e.Diffs, "; "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaConflict
}
