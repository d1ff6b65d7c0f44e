package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseEstimator_State(t *testing.T) {
	var e BaseEstimator

	assert.False(t, e.IsFitted())
	assert.Equal(t, "not_fitted", e.State().String())

	e.SetFitted()
	assert.True(t, e.IsFitted())
	assert.Equal(t, Fitted, e.State())

	e.Reset()
	assert.False(t, e.IsFitted())
}

func TestBaseEstimator_IDIsStable(t *testing.T) {
	var a, b BaseEstimator

	assert.NotEmpty(t, a.ID())
	assert.Equal(t, a.ID(), a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

type persisted struct {
	Classes []string
	Values  []float64
}

func TestSaveLoadModel(t *testing.T) {
	in := persisted{Classes: []string{"Class_1", "Class_2"}, Values: []float64{0.25, -1.5}}
	path := filepath.Join(t.TempDir(), "model.gob")

	require.NoError(t, SaveModel(&in, path))

	var out persisted
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in, out)
}

func TestLoadModel_Errors(t *testing.T) {
	var out persisted
	assert.Error(t, LoadModel(&out, filepath.Join(t.TempDir(), "missing.gob")))
	assert.Error(t, LoadModelFromReader(&out, bytes.NewBufferString("not gob")))
}
