package submission

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
)

// Write writes table to w as comma-separated records, header first.
func Write(w io.Writer, table *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for i, row := range table.Rows {
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush submission")
}

// WriteFile creates or truncates path and writes table to it. Missing parent
// directories are created.
func WriteFile(path string, table *Table) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Write(bw, table); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	log.GetLoggerWithName("submission").Debug("Submission written",
		log.PathKey, path,
		log.SamplesKey, len(table.Rows),
	)
	return nil
}

// Path returns <outputDir>/<modelName>.csv.
func Path(outputDir, modelName string) string {
	return filepath.Join(outputDir, modelName+".csv")
}
