package lake

import (
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetConcurrency is the go-routine count handed to the parquet codec.
const parquetConcurrency = 4

func writeParquetFile[T any](path string, rows []T) (int64, error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, err
	}

	pw, err := writer.NewParquetWriter(fw, new(T), parquetConcurrency)
	if err != nil {
		fw.Close()
		return 0, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			fw.Close()
			return 0, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return 0, err
	}
	if err := fw.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func readParquetFile[T any](path string) ([]T, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), parquetConcurrency)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	if num == 0 {
		return nil, nil
	}
	rows := make([]T, num)
	if err := pr.Read(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
