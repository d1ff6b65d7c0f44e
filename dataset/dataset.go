// Package dataset loads delimited tabular files into typed frames.
//
// A Frame keeps the identifier column and the optional target column apart
// from the numeric feature matrix, so downstream code never indexes columns
// by position.
package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
)

const (
	// DefaultIDColumn is the identifier column of the Otto files.
	DefaultIDColumn = "id"
	// DefaultTargetColumn is the label column of the Otto training file.
	DefaultTargetColumn = "target"
)

// Frame is one loaded table.
type Frame struct {
	// Source is the path or name the frame was read from.
	Source string
	// IDs holds the identifier column, one entry per row.
	IDs []string
	// FeatureNames lists the feature columns in file order.
	FeatureNames []string
	// Features is rows x len(FeatureNames).
	Features *mat.Dense
	// Targets holds the label column, nil when the file has none.
	Targets []string
}

// Rows returns the number of samples.
func (f *Frame) Rows() int {
	return len(f.IDs)
}

// HasTargets reports whether the frame carries a label column.
func (f *Frame) HasTargets() bool {
	return f.Targets != nil
}

// Option configures the reader.
type Option func(*readConfig)

type readConfig struct {
	idColumn     string
	targetColumn string
	comma        rune
	source       string
}

// WithIDColumn sets the identifier column name.
func WithIDColumn(name string) Option {
	return func(c *readConfig) {
		c.idColumn = name
	}
}

// WithTargetColumn sets the label column name. An empty name disables
// target extraction.
func WithTargetColumn(name string) Option {
	return func(c *readConfig) {
		c.targetColumn = name
	}
}

// WithComma sets the field delimiter.
func WithComma(r rune) Option {
	return func(c *readConfig) {
		c.comma = r
	}
}

// WithSource names the input in errors and logs.
func WithSource(name string) Option {
	return func(c *readConfig) {
		c.source = name
	}
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, opts ...Option) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	opts = append([]Option{WithSource(path)}, opts...)
	return ReadCSV(bufio.NewReader(file), opts...)
}

// ReadCSV reads a header row followed by data rows. The identifier column is
// required; the target column is extracted when present. Every other column
// must parse as float64.
func ReadCSV(r io.Reader, opts ...Option) (*Frame, error) {
	cfg := readConfig{
		idColumn:     DefaultIDColumn,
		targetColumn: DefaultTargetColumn,
		comma:        ',',
		source:       "<reader>",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.comma
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no header row", cfg.source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s: read header", cfg.source)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	idIdx, targetIdx := -1, -1
	featureIdx := make([]int, 0, len(header))
	featureNames := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case name == cfg.idColumn && idIdx < 0:
			idIdx = i
		case cfg.targetColumn != "" && name == cfg.targetColumn && targetIdx < 0:
			targetIdx = i
		default:
			featureIdx = append(featureIdx, i)
			featureNames = append(featureNames, name)
		}
	}
	if idIdx < 0 {
		return nil, errors.NewSchemaError("ReadCSV",
			cfg.source+": missing id column \""+cfg.idColumn+"\"", []string{cfg.idColumn}, header)
	}

	frame := &Frame{Source: cfg.source, FeatureNames: featureNames}
	if targetIdx >= 0 {
		frame.Targets = make([]string, 0)
	}
	values := make([]float64, 0, 1024*len(featureIdx))

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "%s: read row", cfg.source)
		}

		frame.IDs = append(frame.IDs, record[idIdx])
		if targetIdx >= 0 {
			frame.Targets = append(frame.Targets, strings.TrimSpace(record[targetIdx]))
		}
		for k, col := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, errors.NewValueError("ReadCSV",
					cfg.source+": line "+strconv.Itoa(line)+", column \""+featureNames[k]+"\": cannot parse \""+record[col]+"\" as float")
			}
			values = append(values, v)
		}
	}

	if len(frame.IDs) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no data rows", cfg.source)
	}
	if len(featureIdx) > 0 {
		frame.Features = mat.NewDense(len(frame.IDs), len(featureIdx), values)
	}

	log.GetLoggerWithName("dataset").Debug("Loaded table",
		log.OperationKey, log.OperationLoad,
		log.PathKey, cfg.source,
		log.SamplesKey, frame.Rows(),
		log.FeaturesKey, len(featureNames),
		"has_targets", frame.HasTargets(),
	)
	return frame, nil
}
