// Package pipeline wires the Otto classification steps together: load the
// training and test tables, fit the gradient boosting classifier, predict
// class probabilities for the test rows and write the submission file.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/ottoboost/dataset"
	"github.com/YuminosukeSato/ottoboost/metrics"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
	"github.com/YuminosukeSato/ottoboost/preprocessing"
	"github.com/YuminosukeSato/ottoboost/sklearn/ensemble"
	"github.com/YuminosukeSato/ottoboost/submission"
)

// Result summarizes a finished run.
type Result struct {
	RunID        string
	OutputPath   string
	Rows         int // test rows written
	Classes      []string
	Stages       int
	TrainLoss    float64 // final training deviance
	TrainLogLoss float64 // clipped multi-class log loss on the training rows
	Duration     time.Duration
}

// RunOption configures Run.
type RunOption func(*runOptions)

type runOptions struct {
	logger    log.Logger
	progress  bool
	callbacks []ensemble.Callback
}

// WithLogger sets the logger used for the run.
func WithLogger(logger log.Logger) RunOption {
	return func(o *runOptions) {
		o.logger = logger
	}
}

// WithProgress shows a terminal progress bar while boosting.
func WithProgress(enabled bool) RunOption {
	return func(o *runOptions) {
		o.progress = enabled
	}
}

// WithCallbacks adds boosting callbacks.
func WithCallbacks(callbacks ...ensemble.Callback) RunOption {
	return func(o *runOptions) {
		o.callbacks = append(o.callbacks, callbacks...)
	}
}

// Run executes the pipeline once. The steps run strictly in sequence and ctx
// is checked between them; the first error aborts the run and nothing after
// it executes.
func Run(ctx context.Context, cfg *Config, opts ...RunOption) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := runOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	runID := uuid.NewString()
	logger := o.logger
	if logger == nil {
		logger = log.GetLoggerWithName("pipeline")
	}
	logger = logger.With(log.RunIDKey, runID, log.ModelNameKey, cfg.ModelName)
	start := time.Now()

	// 読み込み
	readOpts := []dataset.Option{
		dataset.WithIDColumn(cfg.IDColumn),
		dataset.WithTargetColumn(cfg.TargetColumn),
	}
	stageStart := time.Now()
	train, err := dataset.ReadCSVFile(cfg.TrainPath, readOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load training data")
	}
	test, err := dataset.ReadCSVFile(cfg.TestPath, readOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load test data")
	}
	logger.Info("Data loaded",
		log.PhaseKey, log.PhasePreprocessing,
		"train_rows", train.Rows(),
		"test_rows", test.Rows(),
		log.FeaturesKey, len(train.FeatureNames),
		log.DurationMsKey, time.Since(stageStart).Milliseconds(),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 前処理
	split, err := preprocessing.SplitFrames(train, test)
	if err != nil {
		return nil, errors.Wrap(err, "preprocess")
	}
	classMap, err := submission.NewClassMap(cfg.Classes)
	if err != nil {
		return nil, err
	}

	// 学習
	callbacks := append([]ensemble.Callback(nil), o.callbacks...)
	if o.progress {
		callbacks = append(callbacks, ensemble.ProgressBar("boosting"))
	}
	clf := ensemble.NewGradientBoostingClassifier(
		ensemble.WithNEstimators(cfg.Model.NEstimators),
		ensemble.WithLearningRate(cfg.Model.LearningRate),
		ensemble.WithMaxDepth(cfg.Model.MaxDepth),
		ensemble.WithMinSamplesSplit(cfg.Model.MinSamplesSplit),
		ensemble.WithMinSamplesLeaf(cfg.Model.MinSamplesLeaf),
		ensemble.WithMaxFeatures(cfg.Model.MaxFeatures),
		ensemble.WithSubsample(cfg.Model.Subsample),
		ensemble.WithRandomState(cfg.Model.RandomState),
		ensemble.WithClasses(classMap.Labels()),
		ensemble.WithCallbacks(callbacks...),
		ensemble.WithLogger(logger.With(log.ComponentKey, "ensemble")),
	)
	stageStart = time.Now()
	if err := clf.FitContext(ctx, split.X, split.Y); err != nil {
		return nil, errors.Wrap(err, "fit")
	}
	trainScore := clf.TrainScore()
	trainLogLoss, err := trainingLogLoss(clf, split, classMap)
	if err != nil {
		return nil, err
	}
	logger.Info("Model fitted",
		log.PhaseKey, log.PhaseTraining,
		"stages", clf.NEstimatorsFitted(),
		log.LossKey, trainScore[len(trainScore)-1],
		"train_log_loss", trainLogLoss,
		log.RandomSeedKey, cfg.Model.RandomState,
		log.DurationMsKey, time.Since(stageStart).Milliseconds(),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 推論
	stageStart = time.Now()
	proba, err := clf.PredictProba(split.XTest)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	logger.Info("Probabilities predicted",
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, len(split.TestIDs),
		log.DurationMsKey, time.Since(stageStart).Milliseconds(),
	)

	// 出力
	table, err := submission.Build(split.TestIDs, proba, clf.Classes(), classMap)
	if err != nil {
		return nil, errors.Wrap(err, "build submission")
	}
	outputPath := cfg.OutputPath()
	if err := submission.WriteFile(outputPath, table); err != nil {
		return nil, err
	}
	logger.Info("Submission written",
		log.PhaseKey, log.PhasePostprocessing,
		log.OperationKey, log.OperationWrite,
		log.PathKey, outputPath,
		log.SamplesKey, len(table.Rows),
	)

	if cfg.ModelPath != "" {
		if err := clf.Save(cfg.ModelPath); err != nil {
			return nil, errors.Wrap(err, "save model")
		}
		logger.Info("Model saved", log.PathKey, cfg.ModelPath)
	}
	if cfg.LossPlotPath != "" {
		if err := ensemble.PlotTrainingLoss(trainScore, cfg.LossPlotPath); err != nil {
			return nil, err
		}
		logger.Info("Loss plot saved", log.PathKey, cfg.LossPlotPath)
	}

	return &Result{
		RunID:        runID,
		OutputPath:   outputPath,
		Rows:         len(table.Rows),
		Classes:      clf.Classes(),
		Stages:       clf.NEstimatorsFitted(),
		TrainLoss:    trainScore[len(trainScore)-1],
		TrainLogLoss: trainLogLoss,
		Duration:     time.Since(start),
	}, nil
}

// trainingLogLoss scores the fitted model on its own training rows with the
// Kaggle metric.
func trainingLogLoss(clf *ensemble.GradientBoostingClassifier, split *preprocessing.Split, classMap submission.ClassMap) (float64, error) {
	proba, err := clf.PredictProba(split.X)
	if err != nil {
		return 0, errors.Wrap(err, "predict training rows")
	}
	codes := make([]int, len(split.Y))
	for i, label := range split.Y {
		k, ok := classMap.Rank(label)
		if !ok {
			return 0, errors.NewValidationError("target", "unknown class label", label)
		}
		codes[i] = k
	}
	return metrics.MultiLogLoss(codes, proba)
}
