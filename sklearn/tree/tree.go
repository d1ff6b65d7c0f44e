// Package tree implements CART decision trees over gonum matrices.
//
// DecisionTreeRegressor is the base learner of the gradient boosting
// ensemble: it fits a real-valued target (the per-class residuals) with the
// friedman_mse split criterion and exposes its leaves so the booster can
// replace leaf values with Newton steps.
package tree

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/core/model"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// LeafFeature marks a leaf in Node.Feature.
const LeafFeature = -1

// Node is one node of a fitted tree stored in a flat slice. Children are
// indices into the same slice.
type Node struct {
	Feature   int     // split feature, LeafFeature for leaves
	Threshold float64 // x[Feature] <= Threshold goes left
	Left      int
	Right     int
	Value     float64 // mean target of the node's training samples
	NSamples  int
	Impurity  float64 // variance of the node's training targets
	Depth     int
}

// IsLeaf reports whether n is a terminal node.
func (n *Node) IsLeaf() bool {
	return n.Feature == LeafFeature
}

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	maxDepth            int // 0 means unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int // 0 means all features
	minImpurityDecrease float64
	randomState         uint64

	// Fitted state
	nodes       []Node
	nFeatures   int
	importances []float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the depth of the tree. 0 grows until other criteria stop it.
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) {
		t.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many non-constant features are examined per split.
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.maxFeatures = n
	}
}

// WithMinImpurityDecrease sets the minimum weighted impurity decrease of a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) {
		t.minImpurityDecrease = v
	}
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) {
		t.randomState = seed
	}
}

// NewDecisionTreeRegressor returns a regressor with scikit-learn defaults.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewDecisionTreeRegressorFromNodes rebuilds a fitted tree from its nodes,
// as stored by a persisted ensemble.
func NewDecisionTreeRegressorFromNodes(nodes []Node, nFeatures int) (*DecisionTreeRegressor, error) {
	if len(nodes) == 0 {
		return nil, errors.NewValidationError("nodes", "must not be empty", len(nodes))
	}
	for i, n := range nodes {
		if n.IsLeaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures || n.Left <= i || n.Right <= i ||
			n.Left >= len(nodes) || n.Right >= len(nodes) {
			return nil, errors.NewValidationError("nodes", "corrupt node at index "+strconv.Itoa(i), n)
		}
	}

	t := NewDecisionTreeRegressor()
	t.nodes = append([]Node(nil), nodes...)
	t.nFeatures = nFeatures
	t.SetFitted()
	return t, nil
}

func (t *DecisionTreeRegressor) validateParams() error {
	switch {
	case t.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", t.maxDepth)
	case t.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.minSamplesSplit)
	case t.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.minSamplesLeaf)
	case t.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", t.maxFeatures)
	case t.minImpurityDecrease < 0:
		return errors.NewValidationError("min_impurity_decrease", "must be >= 0", t.minImpurityDecrease)
	}
	return nil
}

// Nodes returns a copy of the fitted nodes.
func (t *DecisionTreeRegressor) Nodes() []Node {
	return append([]Node(nil), t.nodes...)
}

// NFeatures returns the number of features seen during Fit.
func (t *DecisionTreeRegressor) NFeatures() int {
	return t.nFeatures
}

// Leaves returns the node indices of all leaves.
func (t *DecisionTreeRegressor) Leaves() []int {
	var leaves []int
	for i := range t.nodes {
		if t.nodes[i].IsLeaf() {
			leaves = append(leaves, i)
		}
	}
	return leaves
}

// Depth returns the depth of the deepest node.
func (t *DecisionTreeRegressor) Depth() int {
	depth := 0
	for i := range t.nodes {
		if t.nodes[i].Depth > depth {
			depth = t.nodes[i].Depth
		}
	}
	return depth
}

// SetLeafValue overwrites the value of leaf node id.
func (t *DecisionTreeRegressor) SetLeafValue(id int, value float64) error {
	if id < 0 || id >= len(t.nodes) || !t.nodes[id].IsLeaf() {
		return errors.NewValidationError("leaf", "not a leaf node", id)
	}
	t.nodes[id].Value = value
	return nil
}

// LeafValue returns the value of node id.
func (t *DecisionTreeRegressor) LeafValue(id int) float64 {
	return t.nodes[id].Value
}

// Apply returns the index of the leaf that row x falls into.
func (t *DecisionTreeRegressor) Apply(x []float64) int {
	id := 0
	for {
		n := &t.nodes[id]
		if n.IsLeaf() {
			return id
		}
		if x[n.Feature] <= n.Threshold {
			id = n.Left
		} else {
			id = n.Right
		}
	}
}

// PredictRow returns the leaf value for row x.
func (t *DecisionTreeRegressor) PredictRow(x []float64) float64 {
	return t.nodes[t.Apply(x)].Value
}

// Predict returns one prediction per row of X.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !t.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	rows, cols := X.Dims()
	if cols != t.nFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", t.nFeatures, cols, 1)
	}

	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out[i] = t.PredictRow(row)
	}
	return out, nil
}

// FeatureImportances returns the impurity decrease contributed by each
// feature, normalized to sum to 1 (all zeros for a single-leaf tree).
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// GetParams returns the hyperparameters.
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             "friedman_mse",
		"max_depth":             t.maxDepth,
		"min_samples_split":     t.minSamplesSplit,
		"min_samples_leaf":      t.minSamplesLeaf,
		"max_features":          t.maxFeatures,
		"min_impurity_decrease": t.minImpurityDecrease,
		"random_state":          t.randomState,
	}
}
