package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

const trainCSV = `id,feat_1,feat_2,target
1,0,3,Class_1
2,1,0,Class_2
3,4,1,Class_1
`

const testCSV = `id,feat_1,feat_2
10,2,2
11,0,5
`

func TestReadCSV_Train(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader(trainCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, frame.Rows())
	assert.Equal(t, []string{"1", "2", "3"}, frame.IDs)
	assert.Equal(t, []string{"feat_1", "feat_2"}, frame.FeatureNames)
	assert.Equal(t, []string{"Class_1", "Class_2", "Class_1"}, frame.Targets)
	assert.True(t, frame.HasTargets())

	r, c := frame.Features.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, frame.Features.At(2, 0))
	assert.Equal(t, 1.0, frame.Features.At(2, 1))
}

func TestReadCSV_TestWithoutTarget(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader(testCSV))
	require.NoError(t, err)

	assert.False(t, frame.HasTargets())
	assert.Nil(t, frame.Targets)
	assert.Equal(t, []string{"10", "11"}, frame.IDs)
	assert.Equal(t, 5.0, frame.Features.At(1, 1))
}

func TestReadCSV_ColumnOrderIndependentOfIDPosition(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("feat_1,id,feat_2\n1.5,a,2\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, frame.IDs)
	assert.Equal(t, []string{"feat_1", "feat_2"}, frame.FeatureNames)
	assert.Equal(t, 1.5, frame.Features.At(0, 0))
}

func TestReadCSV_Options(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader("sku;x;label\nA;1;Class_3\n"),
		WithComma(';'), WithIDColumn("sku"), WithTargetColumn("label"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, frame.IDs)
	assert.Equal(t, []string{"Class_3"}, frame.Targets)
	assert.Equal(t, []string{"x"}, frame.FeatureNames)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty input",
			input: "",
			check: func(t *testing.T, err error) { assert.True(t, errors.Is(err, errors.ErrEmptyData)) },
		},
		{
			name:  "header only",
			input: "id,feat_1\n",
			check: func(t *testing.T, err error) { assert.True(t, errors.Is(err, errors.ErrEmptyData)) },
		},
		{
			name:  "missing id column",
			input: "feat_1,feat_2\n1,2\n",
			check: func(t *testing.T, err error) {
				var schemaErr *errors.SchemaError
				assert.True(t, errors.As(err, &schemaErr))
			},
		},
		{
			name:  "non numeric feature",
			input: "id,feat_1\n1,abc\n",
			check: func(t *testing.T, err error) {
				var valErr *errors.ValueError
				require.True(t, errors.As(err, &valErr))
				assert.Contains(t, err.Error(), "line 2")
				assert.Contains(t, err.Error(), "feat_1")
			},
		},
		{
			name:  "ragged row",
			input: "id,feat_1\n1,2,3\n",
			check: func(t *testing.T, err error) { assert.Error(t, err) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(trainCSV), 0o600))

	frame, err := ReadCSVFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, frame.Source)
	assert.Equal(t, 3, frame.Rows())

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "missing.csv")
}
