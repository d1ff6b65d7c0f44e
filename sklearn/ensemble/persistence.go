package ensemble

import (
	"github.com/YuminosukeSato/ottoboost/core/model"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/preprocessing"
	"github.com/YuminosukeSato/ottoboost/sklearn/tree"
)

// snapshotVersion is bumped whenever the snapshot layout changes.
const snapshotVersion = 1

// Snapshot is the gob-encodable state of a fitted GradientBoostingClassifier.
type Snapshot struct {
	Version         int
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Subsample       float64
	RandomState     int64

	Classes    []string
	Init       []float64
	NFeatures  int
	Trees      [][][]tree.Node // [stage][class] -> nodes
	TrainScore []float64
}

// Snapshot returns the fitted state for persistence.
func (g *GradientBoostingClassifier) Snapshot() (*Snapshot, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "Snapshot")
	}
	trees := make([][][]tree.Node, len(g.estimators))
	for s, stage := range g.estimators {
		trees[s] = make([][]tree.Node, len(stage))
		for k, t := range stage {
			trees[s][k] = t.Nodes()
		}
	}
	return &Snapshot{
		Version:         snapshotVersion,
		NEstimators:     g.nEstimators,
		LearningRate:    g.learningRate,
		MaxDepth:        g.maxDepth,
		MinSamplesSplit: g.minSamplesSplit,
		MinSamplesLeaf:  g.minSamplesLeaf,
		MaxFeatures:     g.maxFeatures,
		Subsample:       g.subsample,
		RandomState:     g.randomState,
		Classes:         g.encoder.Classes(),
		Init:            append([]float64(nil), g.init...),
		NFeatures:       g.nFeatures,
		Trees:           trees,
		TrainScore:      g.TrainScore(),
	}, nil
}

// Restore replaces the classifier's state with snap.
func (g *GradientBoostingClassifier) Restore(snap *Snapshot) error {
	if snap.Version != snapshotVersion {
		return errors.NewModelError("GradientBoostingClassifier.Restore", "unsupported snapshot version",
			errors.Newf("got %d, want %d", snap.Version, snapshotVersion))
	}
	if len(snap.Init) != len(snap.Classes) {
		return errors.NewDimensionError("GradientBoostingClassifier.Restore", len(snap.Classes), len(snap.Init), 1)
	}

	encoder := preprocessing.NewLabelEncoder()
	if err := encoder.FitWithClasses(snap.Classes, nil); err != nil {
		return err
	}

	estimators := make([][]*tree.DecisionTreeRegressor, len(snap.Trees))
	for s, stage := range snap.Trees {
		if len(stage) != len(snap.Classes) {
			return errors.NewDimensionError("GradientBoostingClassifier.Restore", len(snap.Classes), len(stage), 1)
		}
		estimators[s] = make([]*tree.DecisionTreeRegressor, len(stage))
		for k, nodes := range stage {
			t, err := tree.NewDecisionTreeRegressorFromNodes(nodes, snap.NFeatures)
			if err != nil {
				return errors.Wrapf(err, "stage %d class %d", s, k)
			}
			estimators[s][k] = t
		}
	}

	g.nEstimators = snap.NEstimators
	g.learningRate = snap.LearningRate
	g.maxDepth = snap.MaxDepth
	g.minSamplesSplit = snap.MinSamplesSplit
	g.minSamplesLeaf = snap.MinSamplesLeaf
	g.maxFeatures = snap.MaxFeatures
	g.subsample = snap.Subsample
	g.randomState = snap.RandomState
	g.encoder = encoder
	g.init = append([]float64(nil), snap.Init...)
	g.nFeatures = snap.NFeatures
	g.estimators = estimators
	g.trainScore = append([]float64(nil), snap.TrainScore...)
	g.SetFitted()
	return nil
}

// Save writes the fitted model to path in gob format.
func (g *GradientBoostingClassifier) Save(path string) error {
	snap, err := g.Snapshot()
	if err != nil {
		return err
	}
	return model.SaveModel(snap, path)
}

// Load reads a model written by Save.
func (g *GradientBoostingClassifier) Load(path string) error {
	var snap Snapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return err
	}
	return g.Restore(&snap)
}
