package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

func TestLabelEncoder_Fit(t *testing.T) {
	enc := NewLabelEncoder()
	require.NoError(t, enc.Fit([]string{"Class_2", "Class_1", "Class_2", "Class_9"}))

	assert.Equal(t, []string{"Class_1", "Class_2", "Class_9"}, enc.Classes())
	assert.Equal(t, 3, enc.NClasses())

	codes, err := enc.Transform([]string{"Class_9", "Class_1"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, codes)

	labels, err := enc.InverseTransform(codes)
	require.NoError(t, err)
	assert.Equal(t, []string{"Class_9", "Class_1"}, labels)
}

func TestLabelEncoder_FitWithClassesKeepsOrder(t *testing.T) {
	known := []string{"Class_3", "Class_1", "Class_2"}
	enc := NewLabelEncoder()
	require.NoError(t, enc.FitWithClasses(known, []string{"Class_1", "Class_1"}))

	assert.Equal(t, known, enc.Classes())
	codes, err := enc.Transform([]string{"Class_3", "Class_2"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, codes)
}

func TestLabelEncoder_Errors(t *testing.T) {
	t.Run("not fitted", func(t *testing.T) {
		_, err := NewLabelEncoder().Transform([]string{"a"})
		var nfErr *errors.NotFittedError
		assert.True(t, errors.As(err, &nfErr))
	})

	t.Run("empty fit", func(t *testing.T) {
		err := NewLabelEncoder().Fit(nil)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("unknown label", func(t *testing.T) {
		enc := NewLabelEncoder()
		err := enc.FitWithClasses([]string{"Class_1", "Class_2"}, []string{"Class_1", "Class_10"})
		var valErr *errors.ValidationError
		require.True(t, errors.As(err, &valErr))
		assert.Equal(t, "Class_10", valErr.Value)
		assert.Contains(t, valErr.Reason, "row 1")
		assert.False(t, enc.IsFitted())
	})

	t.Run("duplicate class", func(t *testing.T) {
		err := NewLabelEncoder().FitWithClasses([]string{"Class_1", "Class_1"}, nil)
		assert.Error(t, err)
	})

	t.Run("inverse out of range", func(t *testing.T) {
		enc := NewLabelEncoder()
		require.NoError(t, enc.Fit([]string{"a"}))
		_, err := enc.InverseTransform([]int{1})
		assert.Error(t, err)
	})
}
