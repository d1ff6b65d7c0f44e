// Standard attribute keys for structured log fields.
//
// Keys are hierarchical ("model.name", "data.samples") so log pipelines can
// filter on prefixes.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model, e.g. "GradientBoostingClassifier".
	ModelNameKey = "model.name"

	// EstimatorIDKey is a unique id for one estimator instance.
	EstimatorIDKey = "estimator.id"

	// RunIDKey identifies one pipeline invocation.
	RunIDKey = "run.id"

	// OperationKey: "fit", "predict", "predict_proba", "write".
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "component"

	// PhaseKey: "preprocessing", "training", "inference", "postprocessing".
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ClassesKey  = "data.classes"
	PathKey     = "data.path"
)

// Performance Metrics
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	LossKey       = "metrics.loss"
	IterationKey  = "training.iteration"
)

// Prediction Context
const (
	PredsKey = "preds.count"
)

// Error Context
const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
	ErrorTypeKey      = "error.type"
)

// Hyperparameters and Configuration
const (
	HyperParamsKey  = "model.hyperparams"
	LearningRateKey = "hyperparams.learning_rate"
	RandomSeedKey   = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationLoad         = "load"
	OperationWrite        = "write"

	PhasePreprocessing  = "preprocessing"
	PhaseTraining       = "training"
	PhaseInference      = "inference"
	PhasePostprocessing = "postprocessing"
)
