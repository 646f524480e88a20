package lake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/couchcryptid/weather-lakehouse-etl/internal/domain"
)

// PartitionFilter selects data files whose partition values match every
// entry. Keys must be partition columns of the table.
type PartitionFilter map[string]string

func (f PartitionFilter) matches(values map[string]string) bool {
	for col, want := range f {
		if values[col] != want {
			return false
		}
	}
	return true
}

// CommitResult reports a write-side table operation. Version is the table
// version after the call; an operation that had nothing to do produces no
// commit and returns the version unchanged.
type CommitResult struct {
	Version      int64
	RowsWritten  int64
	RowsDeleted  int64
	FilesAdded   int
	FilesRemoved int
}

// MergeResult reports a Merge outcome. Matched counts incoming rows whose
// key already existed; Updated the matched rows that actually changed.
// When Updated and Inserted are both zero no commit was made.
type MergeResult struct {
	Version  int64
	Matched  int64
	Updated  int64
	Inserted int64
}

// Table is a typed handle on one versioned table. Open validates the row
// type once; handles are cheap and safe to rebuild per operation.
type Table[T any] struct {
	store           *Store
	name            string // path relative to the lake root, e.g. "bronze/forecast"
	dir             string
	schema          Schema
	partitionBy     []string
	partitionFields map[string]int // partition column -> struct field index
}

// rowGroup is one partition's slice of a write: its values, its directory
// relative to the table, and its rows in input order.
type rowGroup[T any] struct {
	values map[string]string
	dir    string
	rows   []T
}

// Open builds a handle on the table at tablePath (relative to the lake
// root), partitioned by the given string columns of T. It validates T's
// parquet tags and does no I/O; the table itself may not exist yet.
func Open[T any](s *Store, tablePath string, partitionBy []string) (*Table[T], error) {
	schema, err := schemaOf[T]()
	if err != nil {
		return nil, err
	}

	rt := reflect.TypeOf((*T)(nil)).Elem()
	fieldByColumn := make(map[string]int, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		tag, ok := rt.Field(i).Tag.Lookup("parquet")
		if !ok {
			continue
		}
		col, err := parseColumnTag(tag)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", rt.Name(), rt.Field(i).Name, err)
		}
		fieldByColumn[col.Name] = i
	}

	partitionFields := make(map[string]int, len(partitionBy))
	for _, col := range partitionBy {
		idx, ok := fieldByColumn[col]
		if !ok {
			return nil, fmt.Errorf("partition column %q is not a column of %s", col, rt.Name())
		}
		if rt.Field(idx).Type.Kind() != reflect.String {
			return nil, fmt.Errorf("partition column %q of %s is not a string field", col, rt.Name())
		}
		partitionFields[col] = idx
	}

	return &Table[T]{
		store:           s,
		name:            tablePath,
		dir:             filepath.Join(s.root, filepath.FromSlash(tablePath)),
		schema:          schema,
		partitionBy:     slices.Clone(partitionBy),
		partitionFields: partitionFields,
	}, nil
}

// Name returns the table path relative to the lake root.
func (t *Table[T]) Name() string {
	return t.name
}

// PartitionColumns returns the partition column names in directory order.
func (t *Table[T]) PartitionColumns() []string {
	return slices.Clone(t.partitionBy)
}

// Exists reports whether the table has a commit log.
func (t *Table[T]) Exists() (bool, error) {
	_, err := os.Stat(filepath.Join(t.dir, logDirName))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, storageErr("stat", t.name, err)
}

// Version returns the latest committed version.
func (t *Table[T]) Version() (int64, error) {
	commits, err := readLog(t.dir, t.name)
	if err != nil {
		return 0, err
	}
	return commits[len(commits)-1].Version, nil
}

// History returns the commit history, oldest first.
func (t *Table[T]) History() ([]CommitInfo, error) {
	commits, err := readLog(t.dir, t.name)
	if err != nil {
		return nil, err
	}

	live := make(map[string]FileRef)
	infos := make([]CommitInfo, 0, len(commits))
	for _, c := range commits {
		info := CommitInfo{
			Version:      c.Version,
			Timestamp:    c.Timestamp,
			Operation:    c.Operation,
			FilesAdded:   len(c.Add),
			FilesRemoved: len(c.Remove),
		}
		for _, p := range c.Remove {
			if ref, ok := live[p]; ok {
				info.RowsRemoved += ref.Rows
				delete(live, p)
			}
		}
		for _, f := range c.Add {
			info.RowsAdded += f.Rows
			live[f.Path] = f
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Files returns the live data files of the latest snapshot, in add order.
func (t *Table[T]) Files() ([]FileRef, error) {
	snap, err := t.snapshotAt(-1)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.files), nil
}

// Read returns the rows of the latest snapshot: live files in add order,
// row order within files preserved.
func (t *Table[T]) Read(ctx context.Context) ([]T, error) {
	return t.ReadVersion(ctx, -1)
}

// ReadVersion returns the rows as of a historical version. Version -1 reads
// the latest; a version past the newest commit is ErrVersionNotFound.
func (t *Table[T]) ReadVersion(ctx context.Context, version int64) ([]T, error) {
	snap, err := t.snapshotAt(version)
	if err != nil {
		return nil, err
	}
	if err := t.checkSchema(snap); err != nil {
		return nil, err
	}
	return t.readSnapshot(ctx, snap)
}

// Write creates the table when absent, then appends rows. The create commit
// fixes the schema and partition columns and carries the first data files.
func (t *Table[T]) Write(ctx context.Context, rows []T) (*CommitResult, error) {
	exists, err := t.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return t.create(ctx, rows)
	}
	return t.Append(ctx, rows)
}

// Append adds rows to an existing table in a new commit. ErrTableNotFound
// when the table was never created; zero rows is a no-op without a commit.
func (t *Table[T]) Append(ctx context.Context, rows []T) (*CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := t.snapshotAt(-1)
	if err != nil {
		return nil, err
	}
	if err := t.checkSchema(snap); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &CommitResult{Version: snap.version}, nil
	}

	version := snap.version + 1
	refs, err := t.writePartitionFiles(rows, version)
	if err != nil {
		return nil, err
	}
	c := commit{Version: version, Timestamp: domain.Now(), Operation: opAppend, Add: refs}
	if err := t.commit(c); err != nil {
		return nil, err
	}

	res := &CommitResult{Version: version, RowsWritten: int64(len(rows)), FilesAdded: len(refs)}
	t.store.logger.Debug("rows appended", "table", t.name, "version", version,
		"rows", res.RowsWritten, "files", res.FilesAdded)
	return res, nil
}

// Delete removes every data file whose partition values match filter, in
// one commit. Data files stay on disk so prior versions remain readable. A
// filter matching nothing leaves the table unchanged without a commit.
func (t *Table[T]) Delete(ctx context.Context, filter PartitionFilter) (*CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.checkFilter(filter); err != nil {
		return nil, err
	}
	snap, err := t.snapshotAt(-1)
	if err != nil {
		return nil, err
	}
	if err := t.checkSchema(snap); err != nil {
		return nil, err
	}

	var removed []string
	var rowsDeleted int64
	for _, f := range snap.files {
		if filter.matches(f.Partition) {
			removed = append(removed, f.Path)
			rowsDeleted += f.Rows
		}
	}
	if len(removed) == 0 {
		return &CommitResult{Version: snap.version}, nil
	}

	version := snap.version + 1
	c := commit{Version: version, Timestamp: domain.Now(), Operation: opDelete, Remove: removed}
	if err := t.commit(c); err != nil {
		return nil, err
	}

	res := &CommitResult{Version: version, RowsDeleted: rowsDeleted, FilesRemoved: len(removed)}
	t.store.logger.Debug("partition deleted", "table", t.name, "version", version,
		"filter", fmt.Sprint(filter), "rows", rowsDeleted, "files", len(removed))
	return res, nil
}

// Merge updates matched rows and inserts unmatched ones, keyed by the
// natural-identity function. The table is created when absent. Matched rows
// that are byte-for-byte identical are left alone; when nothing changed and
// nothing was inserted, no commit is made. A successful merge rewrites the
// table's files with current rows in place and inserts appended.
func (t *Table[T]) Merge(ctx context.Context, rows []T, key func(T) string) (*MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	exists, err := t.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		res, err := t.create(ctx, rows)
		if err != nil {
			return nil, err
		}
		return &MergeResult{Version: res.Version, Inserted: int64(len(rows))}, nil
	}

	snap, err := t.snapshotAt(-1)
	if err != nil {
		return nil, err
	}
	if err := t.checkSchema(snap); err != nil {
		return nil, err
	}
	current, err := t.readSnapshot(ctx, snap)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(current))
	for i := range current {
		index[key(current[i])] = i
	}

	merged := slices.Clone(current)
	var res MergeResult
	for i := range rows {
		k := key(rows[i])
		if at, ok := index[k]; ok {
			res.Matched++
			if !reflect.DeepEqual(merged[at], rows[i]) {
				merged[at] = rows[i]
				res.Updated++
			}
			continue
		}
		index[k] = len(merged)
		merged = append(merged, rows[i])
		res.Inserted++
	}
	if res.Updated == 0 && res.Inserted == 0 {
		res.Version = snap.version
		return &res, nil
	}

	version := snap.version + 1
	refs, err := t.writePartitionFiles(merged, version)
	if err != nil {
		return nil, err
	}
	remove := make([]string, len(snap.files))
	for i, f := range snap.files {
		remove[i] = f.Path
	}
	c := commit{Version: version, Timestamp: domain.Now(), Operation: opMerge, Add: refs, Remove: remove}
	if err := t.commit(c); err != nil {
		return nil, err
	}

	res.Version = version
	t.store.logger.Debug("rows merged", "table", t.name, "version", version,
		"matched", res.Matched, "updated", res.Updated, "inserted", res.Inserted)
	return &res, nil
}

// Overwrite replaces the partition selected by filter in a single commit:
// matching files are removed and rows added with no intermediate version,
// so readers never observe an empty partition. Every row must belong to the
// filtered partition. The table is created when absent.
func (t *Table[T]) Overwrite(ctx context.Context, rows []T, filter PartitionFilter) (*CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.checkFilter(filter); err != nil {
		return nil, err
	}
	for i := range rows {
		values, err := t.Partition(rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !filter.matches(values) {
			return nil, fmt.Errorf("row %d is outside the overwrite partition %v", i, filter)
		}
	}

	exists, err := t.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return t.create(ctx, rows)
	}

	snap, err := t.snapshotAt(-1)
	if err != nil {
		return nil, err
	}
	if err := t.checkSchema(snap); err != nil {
		return nil, err
	}

	var removed []string
	var rowsDeleted int64
	for _, f := range snap.files {
		if filter.matches(f.Partition) {
			removed = append(removed, f.Path)
			rowsDeleted += f.Rows
		}
	}
	if len(removed) == 0 && len(rows) == 0 {
		return &CommitResult{Version: snap.version}, nil
	}

	version := snap.version + 1
	refs, err := t.writePartitionFiles(rows, version)
	if err != nil {
		return nil, err
	}
	c := commit{Version: version, Timestamp: domain.Now(), Operation: opOverwrite, Add: refs, Remove: removed}
	if err := t.commit(c); err != nil {
		return nil, err
	}

	res := &CommitResult{
		Version:      version,
		RowsWritten:  int64(len(rows)),
		RowsDeleted:  rowsDeleted,
		FilesAdded:   len(refs),
		FilesRemoved: len(removed),
	}
	t.store.logger.Debug("partition overwritten", "table", t.name, "version", version,
		"filter", fmt.Sprint(filter), "rows_in", res.RowsWritten, "rows_out", rowsDeleted)
	return res, nil
}

// Partition returns row's values for the table's partition columns,
// validating that each is non-empty and path-safe.
func (t *Table[T]) Partition(row T) (map[string]string, error) {
	v := reflect.ValueOf(row)
	values := make(map[string]string, len(t.partitionFields))
	for col, idx := range t.partitionFields {
		val := v.Field(idx).String()
		if val == "" {
			return nil, fmt.Errorf("empty value for partition column %q", col)
		}
		if strings.ContainsAny(val, `/\=`) || val == "." || val == ".." {
			return nil, fmt.Errorf("partition value %q for column %q is not path-safe", val, col)
		}
		values[col] = val
	}
	return values, nil
}

func (t *Table[T]) create(ctx context.Context, rows []T) (*CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := t.writePartitionFiles(rows, 0)
	if err != nil {
		return nil, err
	}
	c := commit{
		Version:          0,
		Timestamp:        domain.Now(),
		Operation:        opCreate,
		Schema:           t.schema,
		PartitionColumns: t.partitionBy,
		Add:              refs,
	}
	if err := t.commit(c); err != nil {
		return nil, err
	}

	res := &CommitResult{Version: 0, RowsWritten: int64(len(rows)), FilesAdded: len(refs)}
	t.store.logger.Debug("table created", "table", t.name,
		"rows", res.RowsWritten, "files", res.FilesAdded)
	return res, nil
}

// commit publishes c, removing the files it would have added when
// publication fails so conflicts do not leak half-written data.
func (t *Table[T]) commit(c commit) error {
	if err := publishCommit(t.dir, t.name, c); err != nil {
		for _, f := range c.Add {
			os.Remove(filepath.Join(t.dir, filepath.FromSlash(f.Path)))
		}
		return err
	}
	return nil
}

func (t *Table[T]) snapshotAt(version int64) (*snapshot, error) {
	commits, err := readLog(t.dir, t.name)
	if err != nil {
		return nil, err
	}
	return replay(commits, version, t.name)
}

func (t *Table[T]) readSnapshot(ctx context.Context, snap *snapshot) ([]T, error) {
	var rows []T
	for _, f := range snap.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileRows, err := readParquetFile[T](filepath.Join(t.dir, filepath.FromSlash(f.Path)))
		if err != nil {
			return nil, storageErr("read", t.name, fmt.Errorf("%s: %w", f.Path, err))
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

// checkSchema compares the stored schema and partition columns against the
// handle's. Any difference is a schema conflict: the log is the contract
// and is never auto-healed.
func (t *Table[T]) checkSchema(snap *snapshot) error {
	diffs := Schema(snap.schema).diff(t.schema)
	if !slices.Equal(snap.partitionColumns, t.partitionBy) {
		diffs = append(diffs, fmt.Sprintf("partition columns stored [%s], configured [%s]",
			strings.Join(snap.partitionColumns, " "), strings.Join(t.partitionBy, " ")))
	}
	if len(diffs) > 0 {
		return &SchemaError{Table: t.name, Diffs: diffs}
	}
	return nil
}

func (t *Table[T]) checkFilter(filter PartitionFilter) error {
	if len(filter) == 0 {
		return fmt.Errorf("empty partition filter on %s", t.name)
	}
	for col := range filter {
		if !slices.Contains(t.partitionBy, col) {
			return fmt.Errorf("%q is not a partition column of %s (partitioned by %s)",
				col, t.name, strings.Join(t.partitionBy, ", "))
		}
	}
	return nil
}

// writePartitionFiles splits rows into partition-homogeneous parquet files
// for one version. Partitions appear in first-row order and keep their rows
// in input order, so reads after a rewrite are deterministic.
func (t *Table[T]) writePartitionFiles(rows []T, version int64) ([]FileRef, error) {
	groups, err := t.splitPartitions(rows)
	if err != nil {
		return nil, err
	}

	refs := make([]FileRef, 0, len(groups))
	for _, g := range groups {
		if err := os.MkdirAll(filepath.Join(t.dir, filepath.FromSlash(g.dir)), 0o755); err != nil {
			return nil, storageErr("write", t.name, err)
		}
		relPath := path.Join(g.dir, fmt.Sprintf("part-%05d-%s.parquet", version, shortID()))
		size, err := writeParquetFile(filepath.Join(t.dir, filepath.FromSlash(relPath)), g.rows)
		if err != nil {
			return nil, storageErr("write", t.name, fmt.Errorf("%s: %w", relPath, err))
		}
		refs = append(refs, FileRef{
			Path:      relPath,
			Partition: g.values,
			Rows:      int64(len(g.rows)),
			Size:      size,
		})
	}
	return refs, nil
}

func (t *Table[T]) splitPartitions(rows []T) ([]rowGroup[T], error) {
	index := make(map[string]int)
	var groups []rowGroup[T]
	for i := range rows {
		values, err := t.Partition(rows[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		dir := partitionDir(t.partitionBy, values)
		if gi, ok := index[dir]; ok {
			groups[gi].rows = append(groups[gi].rows, rows[i])
			continue
		}
		index[dir] = len(groups)
		groups = append(groups, rowGroup[T]{values: values, dir: dir, rows: []T{rows[i]}})
	}
	return groups, nil
}

func partitionDir(columns []string, values map[string]string) string {
	segs := make([]string, len(columns))
	for i, col := range columns {
		segs[i] = col + "=" + values[col]
	}
	return path.Join(segs...)
}
