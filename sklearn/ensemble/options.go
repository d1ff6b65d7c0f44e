package ensemble

import "github.com/YuminosukeSato/ottoboost/pkg/log"

// Option configures a GradientBoostingClassifier.
type Option func(*GradientBoostingClassifier)

// WithNEstimators sets the number of boosting stages.
func WithNEstimators(n int) Option {
	return func(g *GradientBoostingClassifier) {
		g.nEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to each tree.
func WithLearningRate(lr float64) Option {
	return func(g *GradientBoostingClassifier) {
		g.learningRate = lr
	}
}

// WithMaxDepth limits the depth of each tree. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(g *GradientBoostingClassifier) {
		g.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(g *GradientBoostingClassifier) {
		g.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(g *GradientBoostingClassifier) {
		g.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are examined per split. 0 means all.
func WithMaxFeatures(n int) Option {
	return func(g *GradientBoostingClassifier) {
		g.maxFeatures = n
	}
}

// WithSubsample sets the fraction of rows used to fit each stage.
func WithSubsample(fraction float64) Option {
	return func(g *GradientBoostingClassifier) {
		g.subsample = fraction
	}
}

// WithRandomState seeds row subsampling and per-tree feature sampling.
func WithRandomState(seed int64) Option {
	return func(g *GradientBoostingClassifier) {
		g.randomState = seed
	}
}

// WithClasses fixes the label set and the column order of PredictProba.
// Training labels outside the set are rejected; classes absent from the
// training data still get a column.
func WithClasses(classes []string) Option {
	return func(g *GradientBoostingClassifier) {
		g.fixedClasses = append([]string(nil), classes...)
	}
}

// WithCallbacks registers callbacks fired after every stage.
func WithCallbacks(callbacks ...Callback) Option {
	return func(g *GradientBoostingClassifier) {
		g.callbacks = append(g.callbacks, callbacks...)
	}
}

// WithLogger overrides the logger used during Fit.
func WithLogger(logger log.Logger) Option {
	return func(g *GradientBoostingClassifier) {
		g.logger = logger
	}
}
