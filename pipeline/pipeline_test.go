package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
	"github.com/YuminosukeSato/ottoboost/sklearn/ensemble"
)

const (
	tinyTrain = "id,feat_1,feat_2,target\n" +
		"1,0,1,Class_1\n" +
		"2,3,0,Class_2\n" +
		"3,1,2,Class_1\n"
	tinyTest = "id,feat_1,feat_2\n" +
		"10,0,0\n" +
		"11,2,5\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// tinyConfig は小さな入力で数ステージだけ学習する設定を返します。
func tinyConfig(t *testing.T, train, test string) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.TrainPath = writeFile(t, dir, "train.csv", train)
	cfg.TestPath = writeFile(t, dir, "test.csv", test)
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Model = ModelConfig{
		NEstimators:     5,
		LearningRate:    0.1,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Subsample:       1.0,
		RandomState:     42,
	}
	return cfg
}

func quietLogger() log.Logger {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	return logger
}

func TestRun_RoundTrip(t *testing.T) {
	cfg := tinyConfig(t, tinyTrain, tinyTest)

	res, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.OutputDir, "best_gradientboost.csv"), res.OutputPath)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 5, res.Stages)
	assert.Len(t, res.Classes, 9)
	assert.NotEmpty(t, res.RunID)
	assert.Greater(t, res.TrainLogLoss, 0.0)

	content, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,Class_1,Class_2,Class_3,Class_4,Class_5,Class_6,Class_7,Class_8,Class_9", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "10,"))
	assert.True(t, strings.HasPrefix(lines[2], "11,"))
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), 10)
	}
}

func TestRun_Idempotent(t *testing.T) {
	cfg := tinyConfig(t, tinyTrain, tinyTest)

	first, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	a, err := os.ReadFile(first.OutputPath)
	require.NoError(t, err)

	second, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
	require.NoError(t, err)
	b, err := os.ReadFile(second.OutputPath)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_WritesModelAndPlot(t *testing.T) {
	cfg := tinyConfig(t, tinyTrain, tinyTest)
	dir := t.TempDir()
	cfg.ModelPath = filepath.Join(dir, "model.gob")
	cfg.LossPlotPath = filepath.Join(dir, "loss.png")

	var history []float64
	res, err := Run(context.Background(), cfg,
		WithLogger(quietLogger()),
		WithCallbacks(ensemble.RecordTrainLoss(&history)),
	)
	require.NoError(t, err)
	assert.FileExists(t, cfg.ModelPath)
	assert.FileExists(t, cfg.LossPlotPath)
	assert.Len(t, history, res.Stages)

	loaded := ensemble.NewGradientBoostingClassifier()
	require.NoError(t, loaded.Load(cfg.ModelPath))
	assert.Equal(t, res.Classes, loaded.Classes())
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing training file", func(t *testing.T) {
		cfg := tinyConfig(t, tinyTrain, tinyTest)
		cfg.TrainPath = filepath.Join(t.TempDir(), "nope.csv")
		_, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
		require.Error(t, err)
		assert.NoFileExists(t, cfg.OutputPath())
	})

	t.Run("unknown label", func(t *testing.T) {
		train := "id,feat_1,feat_2,target\n1,0,1,Class_1\n2,3,0,Class_42\n"
		cfg := tinyConfig(t, train, tinyTest)
		_, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
		var ve *errors.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "Class_42", ve.Value)
		assert.NoFileExists(t, cfg.OutputPath())
	})

	t.Run("feature columns differ", func(t *testing.T) {
		test := "id,feat_1,feat_3\n10,0,0\n"
		cfg := tinyConfig(t, tinyTrain, test)
		_, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
		var se *errors.SchemaError
		require.True(t, errors.As(err, &se))
		assert.NoFileExists(t, cfg.OutputPath())
	})

	t.Run("training file without target", func(t *testing.T) {
		cfg := tinyConfig(t, tinyTest, tinyTest)
		_, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
		assert.True(t, errors.Is(err, errors.ErrMissingTargets))
	})

	t.Run("non numeric feature", func(t *testing.T) {
		train := "id,feat_1,feat_2,target\n1,x,1,Class_1\n"
		cfg := tinyConfig(t, train, tinyTest)
		_, err := Run(context.Background(), cfg, WithLogger(quietLogger()))
		var ve *errors.ValueError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := tinyConfig(t, tinyTrain, tinyTest)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, cfg, WithLogger(quietLogger()))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.NoFileExists(t, cfg.OutputPath())
	})
}

func TestRun_Logging(t *testing.T) {
	cfg := tinyConfig(t, tinyTrain, tinyTest)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	_, err := Run(context.Background(), cfg, WithLogger(logger))
	require.NoError(t, err)

	for _, msg := range []string{"Data loaded", "Model fitted", "Probabilities predicted", "Submission written"} {
		assert.True(t, logger.ContainsMessage(msg), msg)
	}
	assert.True(t, logger.ContainsField(log.ModelNameKey, "best_gradientboost"))
}
