package submission

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// IDHeader is the first header cell of a submission.
const IDHeader = "id"

// Table is a submission ready to be written: a header row followed by one
// row per test sample.
type Table struct {
	Header []string
	Rows   [][]string
}

// Records returns header and rows as one slice, header first.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Header)
	return append(records, t.Rows...)
}

// Build assembles the submission table. Row i is ids[i] followed by the
// probabilities of row i of proba. classes names the columns of proba (the
// fitted model's Classes()) and must equal the order of classMap, otherwise
// a SchemaError is returned so that probabilities are never written under
// the wrong header.
func Build(ids []string, proba mat.Matrix, classes []string, classMap ClassMap) (*Table, error) {
	if err := checkOrder(classes, classMap); err != nil {
		return nil, err
	}
	rows, cols := proba.Dims()
	if cols != len(classes) {
		return nil, errors.NewDimensionError("submission.Build", len(classes), cols, 1)
	}
	if len(ids) != rows {
		return nil, errors.NewDimensionError("submission.Build", rows, len(ids), 0)
	}

	header := make([]string, 0, cols+1)
	header = append(header, IDHeader)
	header = append(header, classes...)

	table := &Table{Header: header, Rows: make([][]string, rows)}
	for i := 0; i < rows; i++ {
		record := make([]string, cols+1)
		record[0] = ids[i]
		for k := 0; k < cols; k++ {
			record[k+1] = FormatProbability(proba.At(i, k))
		}
		table.Rows[i] = record
	}
	return table, nil
}

// FormatProbability renders v with the fewest digits that parse back to v.
func FormatProbability(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func checkOrder(classes []string, classMap ClassMap) error {
	expected := classMap.Labels()
	if len(classes) != len(expected) {
		return errors.NewSchemaError("submission.Build", "class columns do not match the class map", expected, classes)
	}
	for i := range classes {
		if classes[i] != expected[i] {
			return errors.NewSchemaError("submission.Build",
				"class column "+strconv.Itoa(i)+" is "+classes[i]+", want "+expected[i], expected, classes)
		}
	}
	return nil
}
