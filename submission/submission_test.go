package submission

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

func uniformProba(rows int) *mat.Dense {
	data := make([]float64, rows*NumOttoClasses)
	for i := range data {
		data[i] = 1.0 / NumOttoClasses
	}
	return mat.NewDense(rows, NumOttoClasses, data)
}

func TestDefaultClassMap(t *testing.T) {
	cm := DefaultClassMap()
	assert.Equal(t, NumOttoClasses, cm.Len())
	assert.Equal(t, "Class_1", cm.Labels()[0])
	assert.Equal(t, "Class_9", cm.Labels()[8])

	r, ok := cm.Rank("Class_4")
	assert.True(t, ok)
	assert.Equal(t, 3, r)
	assert.False(t, cm.Contains("Class_10"))
}

func TestNewClassMap_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
	}{
		{"empty", nil},
		{"duplicate", []string{"a", "b", "a"}},
		{"blank label", []string{"a", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassMap(tt.labels)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestBuild_HeaderAndShape(t *testing.T) {
	cm := DefaultClassMap()
	ids := []string{"1", "2", "3"}

	table, err := Build(ids, uniformProba(3), cm.Labels(), cm)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "Class_1", "Class_2", "Class_3", "Class_4",
		"Class_5", "Class_6", "Class_7", "Class_8", "Class_9"}, table.Header)

	records := table.Records()
	require.Len(t, records, 4)
	for i, rec := range records[1:] {
		assert.Len(t, rec, 10)
		assert.Equal(t, ids[i], rec[0])
	}
}

func TestBuild_ValuesRoundTrip(t *testing.T) {
	cm, err := NewClassMap([]string{"x", "y"})
	require.NoError(t, err)
	proba := mat.NewDense(1, 2, []float64{0.1, 0.9000000000000001})

	table, err := Build([]string{"42"}, proba, []string{"x", "y"}, cm)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "0.1", "0.9000000000000001"}, table.Rows[0])
}

func TestBuild_RejectsMismatchedClassOrder(t *testing.T) {
	cm := DefaultClassMap()
	swapped := cm.Labels()
	swapped[0], swapped[1] = swapped[1], swapped[0]

	_, err := Build([]string{"1"}, uniformProba(1), swapped, cm)
	var se *errors.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, cm.Labels(), se.Expected)
	assert.Equal(t, swapped, se.Got)

	_, err = Build([]string{"1"}, mat.NewDense(1, 2, []float64{0.5, 0.5}), []string{"Class_1", "Class_2"}, cm)
	assert.True(t, errors.As(err, &se))
}

func TestBuild_DimensionErrors(t *testing.T) {
	cm := DefaultClassMap()
	var de *errors.DimensionError

	_, err := Build([]string{"1", "2"}, uniformProba(3), cm.Labels(), cm)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Axis)

	small, _ := NewClassMap([]string{"a", "b"})
	_, err = Build([]string{"1"}, mat.NewDense(1, 3, []float64{0.2, 0.3, 0.5}), []string{"a", "b"}, small)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Axis)
}

func TestWrite(t *testing.T) {
	cm, _ := NewClassMap([]string{"Class_1", "Class_2"})
	table, err := Build([]string{"7", "8"}, mat.NewDense(2, 2, []float64{0.25, 0.75, 1, 0}), cm.Labels(), cm)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, table))
	assert.Equal(t, "id,Class_1,Class_2\n7,0.25,0.75\n8,1,0\n", buf.String())
}

func TestWriteFile_OverwritesAndIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := Path(filepath.Join(dir, "out"), "best_gradientboost")
	assert.Equal(t, filepath.Join(dir, "out", "best_gradientboost.csv"), path)

	cm := DefaultClassMap()
	table, err := Build([]string{"1", "2"}, uniformProba(2), cm.Labels(), cm)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than nothing\n"), 0o644))

	require.NoError(t, WriteFile(path, table))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, table))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	records, err := csv.NewReader(bytes.NewReader(first)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, table.Header, records[0])
	for _, rec := range records {
		assert.Len(t, rec, 10)
	}
}

func TestWriteFile_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	cm := DefaultClassMap()
	table, err := Build([]string{"1"}, uniformProba(1), cm.Labels(), cm)
	require.NoError(t, err)

	err = WriteFile(filepath.Join(blocker, "sub", "x.csv"), table)
	assert.Error(t, err)
}
