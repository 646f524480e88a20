package lake

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const logDirName = "_log"

// Commit operation names as recorded in the log.
const (
	opCreate    = "create"
	opAppend    = "append"
	opDelete    = "delete"
	opMerge     = "merge"
	opOverwrite = "overwrite"
)

// FileRef is one live data file of a snapshot: its path relative to the
// table directory, the partition values it belongs to, and its row count.
type FileRef struct {
	Path      string            `json:"path"`
	Partition map[string]string `json:"partition,omitempty"`
	Rows      int64             `json:"rows"`
	Size      int64             `json:"size"`
}

// commit is one version of a table: the files it adds and removes. Commit 0
// additionally fixes the schema and partition columns for the table's life.
type commit struct {
	Version          int64     `json:"version"`
	Timestamp        time.Time `json:"timestamp"`
	Operation        string    `json:"operation"`
	Schema           Schema    `json:"schema,omitempty"`
	PartitionColumns []string  `json:"partitionColumns,omitempty"`
	Add              []FileRef `json:"add,omitempty"`
	Remove           []string  `json:"remove,omitempty"`
}

// CommitInfo is one entry of a table's version history.
type CommitInfo struct {
	Version      int64     `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation"`
	FilesAdded   int       `json:"filesAdded"`
	FilesRemoved int       `json:"filesRemoved"`
	RowsAdded    int64     `json:"rowsAdded"`
	RowsRemoved  int64     `json:"rowsRemoved"`
}

// snapshot is the replayed state of a table at one version.
type snapshot struct {
	version          int64
	schema           Schema
	partitionColumns []string
	files            []FileRef // live files in add order
}

func commitFileName(version int64) string {
	return fmt.Sprintf("%020d.json", version)
}

// parseCommitFileName extracts the version from a log entry name. Temp
// files and anything else that is not twenty digits plus ".json" is not a
// commit.
func parseCommitFileName(name string) (int64, bool) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok || len(base) != 20 {
		return 0, false
	}
	v, err := strconv.ParseInt(base, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// readLog loads and orders every commit of a table. ErrTableNotFound when
// the log directory does not exist; a gap, duplicate, or unreadable commit
// surfaces as a storage error.
func readLog(tableDir, tableName string) ([]commit, error) {
	logDir := filepath.Join(tableDir, logDirName)
	entries, err := os.ReadDir(logDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableName)
	}
	if err != nil {
		return nil, storageErr("read log", tableName, err)
	}

	commits := make([]commit, 0, len(entries))
	for _, entry := range entries {
		version, ok := parseCommitFileName(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(logDir, entry.Name()))
		if err != nil {
			return nil, storageErr("read log", tableName, err)
		}
		var c commit
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, storageErr("read log", tableName,
				fmt.Errorf("corrupt commit %s: %w", entry.Name(), err))
		}
		if c.Version != version {
			return nil, storageErr("read log", tableName,
				fmt.Errorf("commit %s declares version %d", entry.Name(), c.Version))
		}
		commits = append(commits, c)
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableName)
	}

	sort.Slice(commits, func(i, j int) bool { return commits[i].Version < commits[j].Version })
	for i, c := range commits {
		if c.Version != int64(i) {
			return nil, storageErr("read log", tableName,
				fmt.Errorf("commit log gap: expected version %d, found %d", i, c.Version))
		}
	}
	return commits, nil
}

// replay folds commits 0..version into a snapshot. version -1 means latest.
func replay(commits []commit, version int64, tableName string) (*snapshot, error) {
	latest := commits[len(commits)-1].Version
	if version < 0 {
		version = latest
	}
	if version > latest {
		return nil, fmt.Errorf("%w: %s has no version %d (latest %d)",
			ErrVersionNotFound, tableName, version, latest)
	}

	snap := &snapshot{version: version}
	for _, c := range commits {
		if c.Version > version {
			break
		}
		if c.Operation == opCreate {
			snap.schema = c.Schema
			snap.partitionColumns = c.PartitionColumns
		}
		if len(c.Remove) > 0 {
			removed := make(map[string]bool, len(c.Remove))
			for _, path := range c.Remove {
				removed[path] = true
			}
			kept := snap.files[:0]
			for _, f := range snap.files {
				if !removed[f.Path] {
					kept = append(kept, f)
				}
			}
			snap.files = kept
		}
		snap.files = append(snap.files, c.Add...)
	}
	return snap, nil
}

// publishCommit writes the commit to a temp file and links it to its final
// name. The link is the atomic publication point: if the version exists the
// link fails and the commit is lost to a concurrent writer, never merged.
func publishCommit(tableDir, tableName string, c commit) error {
	logDir := filepath.Join(tableDir, logDirName)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return storageErr("commit", tableName, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return storageErr("commit", tableName, err)
	}

	tmp := filepath.Join(logDir, fmt.Sprintf(".%d-%s.tmp", c.Version, shortID()))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return storageErr("commit", tableName, err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, filepath.Join(logDir, commitFileName(c.Version))); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s version %d was committed by another writer",
				ErrCommitConflict, tableName, c.Version)
		}
		return storageErr("commit", tableName, err)
	}
	return nil
}
