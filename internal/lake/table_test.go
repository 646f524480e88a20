package lake

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sensorRow struct {
	Time  int64    `parquet:"name=time,type=INT64,convertedtype=TIMESTAMP_MILLIS" json:"time"`
	Value *float64 `parquet:"name=value,type=DOUBLE,repetitiontype=OPTIONAL" json:"value"`
	City  string   `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
	Date  string   `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8" json:"date"`
}

// sensorRowWide disagrees with sensorRow on the value column's optionality.
type sensorRowWide struct {
	Time  int64   `parquet:"name=time,type=INT64,convertedtype=TIMESTAMP_MILLIS" json:"time"`
	Value float64 `parquet:"name=value,type=DOUBLE" json:"value"`
	City  string  `parquet:"name=city,type=BYTE_ARRAY,convertedtype=UTF8" json:"city"`
	Date  string  `parquet:"name=date,type=BYTE_ARRAY,convertedtype=UTF8" json:"date"`
}

func fptr(v float64) *float64 { return &v }

func sensor(ts int64, value *float64, city, date string) sensorRow {
	return sensorRow{Time: ts, Value: value, City: city, Date: date}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openSensorTable(t *testing.T, s *Store) *Table[sensorRow] {
	t.Helper()
	tbl, err := Open[sensorRow](s, "bronze/sensors", []string{"city", "date"})
	require.NoError(t, err)
	return tbl
}

func TestOpen_Validation(t *testing.T) {
	s := newTestStore(t)

	t.Run("partition column must exist", func(t *testing.T) {
		_, err := Open[sensorRow](s, "bronze/sensors", []string{"country"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "country")
	})

	t.Run("partition column must be a string field", func(t *testing.T) {
		_, err := Open[sensorRow](s, "bronze/sensors", []string{"time"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a string field")
	})

	t.Run("row type must have parquet tags", func(t *testing.T) {
		type bare struct{ A int }
		_, err := Open[bare](s, "bronze/bare", nil)
		require.Error(t, err)
	})
}

func TestWrite_CreatesTableAndSplitsPartitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	rows := []sensorRow{
		sensor(1000, fptr(10), "rosario", "2025-12-01"),
		sensor(2000, fptr(15), "rosario", "2025-12-01"),
		sensor(1000, fptr(20), "cordoba", "2025-12-01"),
	}

	res, err := tbl.Write(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Version)
	assert.Equal(t, int64(3), res.RowsWritten)
	assert.Equal(t, 2, res.FilesAdded)

	files, err := tbl.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, map[string]string{"city": "rosario", "date": "2025-12-01"}, files[0].Partition)
	assert.Equal(t, int64(2), files[0].Rows)
	assert.Equal(t, map[string]string{"city": "cordoba", "date": "2025-12-01"}, files[1].Partition)

	// Partition directories are laid out column=value in configured order.
	assert.FileExists(t, filepath.Join(s.Root(), "bronze", "sensors", filepath.FromSlash(files[0].Path)))
	assert.Contains(t, files[0].Path, "city=rosario/date=2025-12-01/")

	got, err := tbl.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(rows, got))
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	t.Run("missing table", func(t *testing.T) {
		_, err := tbl.Append(ctx, []sensorRow{sensor(1, nil, "rosario", "2025-12-01")})
		require.ErrorIs(t, err, ErrTableNotFound)
	})

	first := []sensorRow{sensor(1000, fptr(1), "rosario", "2025-12-01")}
	second := []sensorRow{sensor(2000, fptr(2), "rosario", "2025-12-01")}

	_, err := tbl.Write(ctx, first)
	require.NoError(t, err)

	t.Run("appends in a new version preserving order", func(t *testing.T) {
		res, err := tbl.Append(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Version)

		got, err := tbl.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(append(append([]sensorRow{}, first...), second...), got))
	})

	t.Run("zero rows is a no-op without a commit", func(t *testing.T) {
		before, err := tbl.Version()
		require.NoError(t, err)

		res, err := tbl.Append(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, before, res.Version)

		after, err := tbl.Version()
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestReadVersion_TimeTravel(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	v0 := []sensorRow{
		sensor(1000, fptr(10), "rosario", "2025-12-01"),
		sensor(2000, fptr(20), "cordoba", "2025-12-01"),
	}
	v1 := []sensorRow{sensor(3000, fptr(30), "rosario", "2025-12-02")}

	_, err := tbl.Write(ctx, v0)
	require.NoError(t, err)
	_, err = tbl.Append(ctx, v1)
	require.NoError(t, err)
	_, err = tbl.Delete(ctx, PartitionFilter{"city": "rosario"})
	require.NoError(t, err)

	t.Run("latest excludes deleted partition", func(t *testing.T) {
		got, err := tbl.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]sensorRow{v0[1]}, got))
	})

	t.Run("historical versions stay readable", func(t *testing.T) {
		got, err := tbl.ReadVersion(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = tbl.ReadVersion(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("version past the newest commit", func(t *testing.T) {
		_, err := tbl.ReadVersion(ctx, 99)
		require.ErrorIs(t, err, ErrVersionNotFound)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	rows := []sensorRow{
		sensor(1000, fptr(10), "rosario", "2025-12-01"),
		sensor(2000, fptr(20), "rosario", "2025-12-02"),
		sensor(3000, fptr(30), "cordoba", "2025-12-01"),
	}
	_, err := tbl.Write(ctx, rows)
	require.NoError(t, err)

	t.Run("rejects non-partition columns", func(t *testing.T) {
		_, err := tbl.Delete(ctx, PartitionFilter{"value": "10"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a partition column")
	})

	t.Run("removes every file matching the filter", func(t *testing.T) {
		res, err := tbl.Delete(ctx, PartitionFilter{"city": "rosario"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.RowsDeleted)
		assert.Equal(t, 2, res.FilesRemoved)

		got, err := tbl.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]sensorRow{rows[2]}, got))
	})

	t.Run("second delete of the same partition is a no-op", func(t *testing.T) {
		before, err := tbl.Version()
		require.NoError(t, err)

		res, err := tbl.Delete(ctx, PartitionFilter{"city": "rosario"})
		require.NoError(t, err)
		assert.Equal(t, before, res.Version)
		assert.Zero(t, res.RowsDeleted)
	})
}

func TestMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)
	key := func(r sensorRow) string { return r.City + "|" + r.Date }

	rows := []sensorRow{
		sensor(1000, fptr(10), "rosario", "2025-12-01"),
		sensor(2000, fptr(20), "cordoba", "2025-12-01"),
	}

	t.Run("creates the table when absent", func(t *testing.T) {
		res, err := tbl.Merge(ctx, rows, key)
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Version)
		assert.Equal(t, int64(2), res.Inserted)
		assert.Zero(t, res.Matched)
	})

	t.Run("identical rows are an idempotent no-op", func(t *testing.T) {
		res, err := tbl.Merge(ctx, rows, key)
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Version)
		assert.Equal(t, int64(2), res.Matched)
		assert.Zero(t, res.Updated)
		assert.Zero(t, res.Inserted)
	})

	t.Run("updates changed rows in place and appends inserts", func(t *testing.T) {
		incoming := []sensorRow{
			sensor(1000, fptr(11), "rosario", "2025-12-01"), // changed value
			sensor(3000, fptr(30), "rosario", "2025-12-02"), // new key
		}
		res, err := tbl.Merge(ctx, incoming, key)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Version)
		assert.Equal(t, int64(1), res.Matched)
		assert.Equal(t, int64(1), res.Updated)
		assert.Equal(t, int64(1), res.Inserted)

		got, err := tbl.Read(ctx)
		require.NoError(t, err)
		want := []sensorRow{incoming[0], rows[1], incoming[1]}
		assert.Empty(t, cmp.Diff(want, got))
	})
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	seed := []sensorRow{
		sensor(1000, fptr(10), "rosario", "2025-12-01"),
		sensor(2000, fptr(20), "cordoba", "2025-12-01"),
	}
	_, err := tbl.Write(ctx, seed)
	require.NoError(t, err)

	t.Run("rejects rows outside the partition", func(t *testing.T) {
		_, err := tbl.Overwrite(ctx, seed, PartitionFilter{"city": "rosario"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside the overwrite partition")
	})

	t.Run("replaces the partition in a single commit", func(t *testing.T) {
		replacement := []sensorRow{
			sensor(5000, fptr(50), "rosario", "2025-12-01"),
			sensor(6000, fptr(60), "rosario", "2025-12-01"),
		}
		before, err := tbl.Version()
		require.NoError(t, err)

		res, err := tbl.Overwrite(ctx, replacement, PartitionFilter{"city": "rosario"})
		require.NoError(t, err)
		assert.Equal(t, before+1, res.Version)
		assert.Equal(t, int64(2), res.RowsWritten)
		assert.Equal(t, int64(1), res.RowsDeleted)

		got, err := tbl.Read(ctx)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff([]sensorRow{seed[1], replacement[0], replacement[1]}, got))

		// The pre-overwrite snapshot still reads the old rows.
		old, err := tbl.ReadVersion(ctx, before)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(seed, old))
	})
}

func TestCommitConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	_, err := tbl.Write(ctx, []sensorRow{sensor(1000, fptr(1), "rosario", "2025-12-01")})
	require.NoError(t, err)

	// Two writers that both replayed version 0 race to publish version 1.
	// The loser must surface the conflict, never merge silently.
	c := commit{Version: 1, Operation: opAppend}
	require.NoError(t, publishCommit(tbl.dir, tbl.name, c))

	err = publishCommit(tbl.dir, tbl.name, c)
	require.ErrorIs(t, err, ErrCommitConflict)
	assert.ErrorContains(t, err, "version 1")
}

func TestSchemaConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	_, err := tbl.Write(ctx, []sensorRow{sensor(1000, fptr(1), "rosario", "2025-12-01")})
	require.NoError(t, err)

	t.Run("write with changed optionality", func(t *testing.T) {
		wide, err := Open[sensorRowWide](s, "bronze/sensors", []string{"city", "date"})
		require.NoError(t, err)

		_, err = wide.Append(ctx, []sensorRowWide{{Time: 2000, Value: 2, City: "rosario", Date: "2025-12-01"}})
		require.ErrorIs(t, err, ErrSchemaConflict)

		var schemaErr *SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.NotEmpty(t, schemaErr.Diffs)
	})

	t.Run("read with changed partition columns", func(t *testing.T) {
		moved, err := Open[sensorRow](s, "bronze/sensors", []string{"city"})
		require.NoError(t, err)

		_, err = moved.Read(ctx)
		require.ErrorIs(t, err, ErrSchemaConflict)
	})
}

func TestCorruptLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	_, err := tbl.Write(ctx, []sensorRow{sensor(1000, fptr(1), "rosario", "2025-12-01")})
	require.NoError(t, err)

	logDir := filepath.Join(s.Root(), "bronze", "sensors", logDirName)
	require.NoError(t, os.WriteFile(filepath.Join(logDir, commitFileName(0)), []byte("{not json"), 0o644))

	_, err = tbl.Read(ctx)
	require.ErrorIs(t, err, ErrStorageUnavailable)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "bronze/sensors", storageErr.Table)
}

func TestPartitionValues(t *testing.T) {
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	t.Run("empty partition value", func(t *testing.T) {
		_, err := tbl.Partition(sensor(1000, nil, "", "2025-12-01"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"city"`)
	})

	t.Run("path-unsafe partition value", func(t *testing.T) {
		_, err := tbl.Partition(sensor(1000, nil, "ros/ario", "2025-12-01"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not path-safe")
	})

	t.Run("values keyed by column", func(t *testing.T) {
		values, err := tbl.Partition(sensor(1000, nil, "rosario", "2025-12-01"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"city": "rosario", "date": "2025-12-01"}, values)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tbl := openSensorTable(t, s)

	_, err := tbl.Write(ctx, []sensorRow{
		sensor(1000, fptr(1), "rosario", "2025-12-01"),
		sensor(2000, fptr(2), "cordoba", "2025-12-01"),
	})
	require.NoError(t, err)
	_, err = tbl.Delete(ctx, PartitionFilter{"city": "cordoba"})
	require.NoError(t, err)

	history, err := tbl.History()
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "create", history[0].Operation)
	assert.Equal(t, int64(2), history[0].RowsAdded)
	assert.Equal(t, "delete", history[1].Operation)
	assert.Equal(t, int64(1), history[1].RowsRemoved)
	assert.False(t, history[0].Timestamp.IsZero())
}
