package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/dataset"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// Split は学習・推論に渡す行列一式
type Split struct {
	// X は訓練データの特徴量行列（id列とtarget列を除いたもの）
	X *mat.Dense
	// Y は X の各行に対応するラベル
	Y []string
	// XTest はテストデータの特徴量行列（id列を除いたもの）
	XTest *mat.Dense
	// TestIDs はテストデータの識別子列
	TestIDs []string
	// FeatureNames は X と XTest に共通の列名
	FeatureNames []string
}

// SplitFrames は訓練表とテスト表から特徴量行列・目的変数・テスト特徴量行列を作る
//
// パラメータ:
//   - train: target列を持つ訓練表
//   - test: 訓練表と同じ特徴量列を持つテスト表
//
// 戻り値:
//   - *Split: 行順を保った行列一式
//   - error: 訓練表にtarget列が無い、または特徴量列が一致しない場合
func SplitFrames(train, test *dataset.Frame) (*Split, error) {
	if train == nil || test == nil || train.Rows() == 0 || test.Rows() == 0 {
		return nil, errors.NewModelError("SplitFrames", "empty data", errors.ErrEmptyData)
	}
	if !train.HasTargets() {
		return nil, errors.Wrapf(errors.ErrMissingTargets, "frame %q", train.Source)
	}
	if len(train.FeatureNames) == 0 {
		return nil, errors.NewSchemaError("SplitFrames", "training data has no feature columns", nil, nil)
	}
	if !sameColumns(train.FeatureNames, test.FeatureNames) {
		return nil, errors.NewSchemaError("SplitFrames",
			"test feature columns differ from training feature columns",
			train.FeatureNames, test.FeatureNames)
	}

	return &Split{
		X:            mat.DenseCopyOf(train.Features),
		Y:            append([]string(nil), train.Targets...),
		XTest:        mat.DenseCopyOf(test.Features),
		TestIDs:      append([]string(nil), test.IDs...),
		FeatureNames: append([]string(nil), train.FeatureNames...),
	}, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
