package preprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ottoboost/dataset"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

func mustFrame(t *testing.T, csv string) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return f
}

func TestSplitFrames_Shapes(t *testing.T) {
	train := mustFrame(t, "id,feat_1,feat_2,feat_3,target\n1,1,2,3,Class_1\n2,4,5,6,Class_2\n3,7,8,9,Class_1\n4,0,0,1,Class_4\n")
	test := mustFrame(t, "id,feat_1,feat_2,feat_3\n7,1,1,1\n8,2,2,2\n")

	s, err := SplitFrames(train, test)
	require.NoError(t, err)

	// 5 original columns minus id and target
	r, c := s.X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 3, c)

	assert.Equal(t, []string{"Class_1", "Class_2", "Class_1", "Class_4"}, s.Y)
	assert.Len(t, s.Y, r)

	tr, tc := s.XTest.Dims()
	assert.Equal(t, 2, tr)
	assert.Equal(t, c, tc)
	assert.Equal(t, []string{"7", "8"}, s.TestIDs)

	// row order preserved
	assert.Equal(t, 7.0, s.X.At(2, 0))
	assert.Equal(t, 2.0, s.XTest.At(1, 2))
}

func TestSplitFrames_CopiesData(t *testing.T) {
	train := mustFrame(t, "id,a,target\n1,5,Class_1\n")
	test := mustFrame(t, "id,a\n2,6\n")

	s, err := SplitFrames(train, test)
	require.NoError(t, err)

	s.X.Set(0, 0, -1)
	assert.Equal(t, 5.0, train.Features.At(0, 0))
}

func TestSplitFrames_Errors(t *testing.T) {
	train := mustFrame(t, "id,a,b,target\n1,1,2,Class_1\n")

	t.Run("missing targets", func(t *testing.T) {
		noTarget := mustFrame(t, "id,a,b\n1,1,2\n")
		_, err := SplitFrames(noTarget, noTarget)
		assert.True(t, errors.Is(err, errors.ErrMissingTargets))
	})

	t.Run("column mismatch", func(t *testing.T) {
		test := mustFrame(t, "id,b,a\n1,1,2\n")
		_, err := SplitFrames(train, test)
		var schemaErr *errors.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"a", "b"}, schemaErr.Expected)
		assert.Equal(t, []string{"b", "a"}, schemaErr.Got)
	})

	t.Run("nil frame", func(t *testing.T) {
		_, err := SplitFrames(train, nil)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})
}
