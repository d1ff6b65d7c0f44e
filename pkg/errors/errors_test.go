package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "ottoboost: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "PredictProba",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "ottoboost: PredictProba: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("PredictProba", 93, 92, 1)

	want := "ottoboost: PredictProba: dimension mismatch on axis 1 (features). Expected 93, got 92"
	assert.Equal(t, want, err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 93, dimErr.Expected)
	assert.Equal(t, 92, dimErr.Got)
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("GradientBoostingClassifier", "PredictProba")

	want := "ottoboost: GradientBoostingClassifier: this model is not fitted yet. Call Fit() before using PredictProba()"
	assert.Equal(t, want, err.Error())

	var nfErr *NotFittedError
	assert.True(t, As(err, &nfErr))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("learning_rate", "must be positive", -0.1)

	assert.Equal(t, "ottoboost: validation failed for parameter 'learning_rate': must be positive (got: -0.1)", err.Error())

	var valErr *ValidationError
	require.True(t, As(err, &valErr))
	assert.Equal(t, "learning_rate", valErr.ParamName)
}

func TestNewSchemaError(t *testing.T) {
	t.Run("with columns", func(t *testing.T) {
		err := NewSchemaError("Split", "feature columns differ", []string{"feat_1", "feat_2"}, []string{"feat_2", "feat_1"})
		assert.Equal(t,
			"ottoboost: Split: schema mismatch: feature columns differ (expected [feat_1,feat_2], got [feat_2,feat_1])",
			err.Error())

		var schemaErr *SchemaError
		require.True(t, As(err, &schemaErr))
		assert.Equal(t, []string{"feat_1", "feat_2"}, schemaErr.Expected)
	})

	t.Run("message only", func(t *testing.T) {
		err := NewSchemaError("ReadCSV", "missing id column \"id\"", nil, nil)
		assert.Equal(t, "ottoboost: ReadCSV: schema mismatch: missing id column \"id\"", err.Error())
	})
}

func TestNewValueError(t *testing.T) {
	err := NewValueError("ReadCSV", "row 3, column \"feat_2\": cannot parse \"abc\" as float")
	assert.True(t, strings.HasPrefix(err.Error(), "ottoboost: ReadCSV: row 3"))

	var valErr *ValueError
	assert.True(t, As(err, &valErr))
}

func TestCheckScalar(t *testing.T) {
	assert.NoError(t, CheckScalar("training_loss", 1.5, 3))

	err := CheckScalar("training_loss", mathNaN(), 7)
	require.Error(t, err)

	var numErr *NumericalInstabilityError
	require.True(t, As(err, &numErr))
	assert.Equal(t, 7, numErr.Iteration)
	assert.Contains(t, err.Error(), "training_loss at iteration 7")
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { SetWarningHandler(nil) })

	Warn(NewParameterWarning("max_features", 7, 2, "exceeds number of features"))

	require.Len(t, got, 1)
	assert.Equal(t, "parameter 'max_features' adjusted from 7 to 2: exceeds number of features", got[0].Error())

	var zl []error
	SetZerologWarnFunc(func(w error) { zl = append(zl, w) })
	t.Cleanup(func() { SetZerologWarnFunc(nil) })

	Warn(NewUndefinedMetricWarning("log_loss", "no samples", 0))
	assert.Len(t, got, 1, "zerolog hook takes precedence over the handler")
	assert.Len(t, zl, 1)
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "loading train.csv")

	assert.True(t, Is(wrapped, ErrEmptyData))
	assert.Equal(t, "loading train.csv: empty data", wrapped.Error())
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrMissingTargets, "frame %q", "train.csv")

	assert.True(t, Is(wrapped, ErrMissingTargets))
	assert.Equal(t, "frame \"train.csv\": training data has no target column", wrapped.Error())
}
