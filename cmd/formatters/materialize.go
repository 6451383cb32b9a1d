package formatters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// IOError reports a local filesystem failure while writing an artifact.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Materialize writes result to path as CSV and returns the file size. The
// file appears under its final name only once fully written; an earlier
// file at path is replaced.
func Materialize(result *warehouse.QueryResult, path string) (int64, error) {
	return writeAtomic(path, func(w io.Writer) error {
		buffered := bufio.NewWriter(w)
		if err := WriteCSV(buffered, result); err != nil {
			return err
		}
		return buffered.Flush()
	})
}

// WriteFile atomically writes data to path and returns the file size.
func WriteFile(path string, data []byte) (int64, error) {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, write func(io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, &IOError{Op: "create directory", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, &IOError{Op: "create", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(op string, err error) (int64, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, &IOError{Op: op, Path: path, Err: err}
	}

	if err := write(tmp); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		return fail("stat", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, &IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, &IOError{Op: "rename", Path: path, Err: err}
	}

	return info.Size(), nil
}
