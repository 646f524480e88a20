// Package load implements the partition-grain load strategies the pipeline
// writes with. Each strategy composes commits of a lake table; reruns for the
// same partition converge on the same rows.
package load

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/lake"
)

// NoCommit marks a version slot of a Result whose operation produced no
// commit, such as the delete half of a delete-insert that matched nothing.
const NoCommit int64 = -1

// Result reports one load operation. A delete-insert carries two versions
// because it commits twice; an insert-overwrite carries the same version in
// both slots because the replacement is a single commit.
type Result struct {
	Table         string
	DeletedRows   int64
	WrittenRows   int64
	DeleteVersion int64
	WriteVersion  int64
}

// MergeResult reports an upsert: incoming rows that matched an existing key,
// the matched rows that actually changed, and the rows inserted. When Updated
// and Inserted are both zero the table version is unchanged.
type MergeResult struct {
	Table    string
	Version  int64
	Matched  int64
	Updated  int64
	Inserted int64
}

// DeleteInsert replaces the partition selected by filter: it deletes every
// matching row, then appends rows. The table is created when absent. The two
// halves are separate commits, so a crash between them leaves the partition
// empty until the next successful run; callers see both versions in the
// Result rather than an illusion of atomicity. With zero rows the stale
// partition is still cleared.
func DeleteInsert[T any](ctx context.Context, tbl *lake.Table[T], rows []T, filter lake.PartitionFilter) (*Result, error) {
	exists, err := tbl.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		created, err := tbl.Write(ctx, rows)
		if err != nil {
			return nil, err
		}
		return &Result{
			Table:         tbl.Name(),
			WrittenRows:   created.RowsWritten,
			DeleteVersion: NoCommit,
			WriteVersion:  created.Version,
		}, nil
	}

	res := &Result{Table: tbl.Name(), DeleteVersion: NoCommit, WriteVersion: NoCommit}

	deleted, err := tbl.Delete(ctx, filter)
	if err != nil {
		return nil, err
	}
	res.DeletedRows = deleted.RowsDeleted
	if deleted.FilesRemoved > 0 {
		res.DeleteVersion = deleted.Version
	}

	written, err := tbl.Append(ctx, rows)
	if err != nil {
		return nil, err
	}
	res.WrittenRows = written.RowsWritten
	if written.FilesAdded > 0 {
		res.WriteVersion = written.Version
	}
	return res, nil
}

// MergeUpsert updates rows whose key already exists and inserts the rest.
// The table is created when absent. Re-running with identical rows matches
// everything, changes nothing, and produces no new version.
func MergeUpsert[T any](ctx context.Context, tbl *lake.Table[T], rows []T, key func(T) string) (*MergeResult, error) {
	merged, err := tbl.Merge(ctx, rows, key)
	if err != nil {
		return nil, err
	}
	return &MergeResult{
		Table:    tbl.Name(),
		Version:  merged.Version,
		Matched:  merged.Matched,
		Updated:  merged.Updated,
		Inserted: merged.Inserted,
	}, nil
}

// InsertOverwrite atomically replaces one partition: all rows must share a
// single value of filterColumn, and that partition's files are removed and
// the replacements added in the same commit, so readers never observe the
// partition empty. The table is created when absent.
func InsertOverwrite[T any](ctx context.Context, tbl *lake.Table[T], rows []T, filterColumn string) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert overwrite of %s: no rows to derive the %s partition from", tbl.Name(), filterColumn)
	}

	value := ""
	for i := range rows {
		values, err := tbl.Partition(rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		v, ok := values[filterColumn]
		if !ok {
			return nil, fmt.Errorf("%q is not a partition column of %s", filterColumn, tbl.Name())
		}
		if i == 0 {
			value = v
		} else if v != value {
			return nil, fmt.Errorf("insert overwrite of %s: rows span %s values %q and %q",
				tbl.Name(), filterColumn, value, v)
		}
	}

	replaced, err := tbl.Overwrite(ctx, rows, lake.PartitionFilter{filterColumn: value})
	if err != nil {
		return nil, err
	}
	return &Result{
		Table:         tbl.Name(),
		DeletedRows:   replaced.RowsDeleted,
		WrittenRows:   replaced.RowsWritten,
		DeleteVersion: replaced.Version,
		WriteVersion:  replaced.Version,
	}, nil
}
