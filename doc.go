// Package ottoboost trains a multi-class gradient boosting classifier on the
// Otto Group product classification data and writes per-class probabilities
// in the submission format (id,Class_1,...,Class_9).
//
// The command line entry point is cmd/ottoboost. Run without arguments it
// reads train.csv and test.csv from the working directory and writes
// best_gradientboost.csv:
//
//	go install github.com/YuminosukeSato/ottoboost/cmd/ottoboost@latest
//	ottoboost
//	ottoboost --train data/train.csv --test data/test.csv --output-dir out --progress
//
// # Library use
//
// The estimators follow a scikit-learn-like API over gonum matrices:
//
//	clf := ensemble.NewGradientBoostingClassifier(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithMaxDepth(60),
//	    ensemble.WithMinSamplesSplit(1200),
//	    ensemble.WithMinSamplesLeaf(60),
//	    ensemble.WithMaxFeatures(7),
//	    ensemble.WithClasses(submission.DefaultClassMap().Labels()),
//	)
//	if err := clf.Fit(X, y); err != nil {
//	    return err
//	}
//	proba, err := clf.PredictProba(XTest)
//
// # Packages
//
//   - dataset: CSV loading into frames (ids, feature matrix, targets)
//   - preprocessing: train/test splitting into matrices, LabelEncoder
//   - sklearn/tree: DecisionTreeRegressor, the boosting base learner
//   - sklearn/ensemble: GradientBoostingClassifier, callbacks, loss plot
//   - submission: class map, submission table, CSV writer
//   - pipeline: configuration (viper) and the end-to-end Run
//   - metrics: multi-class log loss and accuracy
//   - core/model: BaseEstimator, interfaces and gob persistence
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: typed errors and structured logging
//
// # Performance
//
// The per-class trees of a boosting stage are fitted concurrently and
// prediction is split over row ranges on all CPU cores. Results are
// deterministic for a fixed random state.
package ottoboost
