// Package lake is a filesystem table store with versioned snapshots: parquet
// data files plus a JSON commit log per table.
//
// # On-Disk Layout
//
// Each table lives under <root>/<layer>/<name>/:
//
//	_log/00000000000000000000.json                     commit 0 (create)
//	_log/00000000000000000001.json                     commit 1
//	city=<v>/date_retrieved=<v>/part-00001-3f8a2c1e.parquet
//
// A commit document records the version, a timestamp, the operation, the
// files it adds (with partition values and row counts) and the file paths it
// removes. Commit 0 additionally records the schema and partition columns.
// The state at version N is the replay of commits 0..N: live files in add
// order. Data files are immutable; every mutation is a new commit, so prior
// versions stay readable until their files are removed out of band.
//
// # Commit Publication
//
// A commit is written to a temp file and published with os.Link to its final
// zero-padded name. Link fails when the version already exists, which turns
// a concurrent writer into ErrCommitConflict instead of a corrupted log.
// Data files written before a failed or crashed commit are never referenced
// by the log and stay invisible to readers.
//
// # Partitioning
//
// Rows are split into one parquet file per distinct partition-value tuple,
// so every data file is partition-homogeneous and deletes never rewrite
// files. Partition columns must be string-typed and their values non-empty
// and path-safe.
package lake
