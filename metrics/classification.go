package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// LogLossEpsilon はKaggleの評価と同じ確率のクリップ幅
const LogLossEpsilon = 1e-15

// MultiLogLoss は多クラス対数損失（Otto Groupコンペの評価指標）を計算する
//
// 各行の確率を [eps, 1-eps] にクリップして行和で正規化したのち、
// 正解クラスの確率の負の対数を平均する。
//
// パラメータ:
//   - yTrue: 正解クラスのインデックス（proba の列番号）
//   - proba: n_samples × n_classes の確率行列
func MultiLogLoss(yTrue []int, proba mat.Matrix) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("MultiLogLoss", "empty vector")
	}
	rows, cols := proba.Dims()
	if rows != n {
		return 0, errors.NewDimensionError("MultiLogLoss", n, rows, 0)
	}

	row := make([]float64, cols)
	var sum float64
	for i := 0; i < n; i++ {
		k := yTrue[i]
		if k < 0 || k >= cols {
			return 0, errors.NewValueError("MultiLogLoss", "class index out of range")
		}
		for j := 0; j < cols; j++ {
			row[j] = math.Min(math.Max(proba.At(i, j), LogLossEpsilon), 1-LogLossEpsilon)
		}
		sum -= math.Log(row[k] / floats.Sum(row))
	}

	return sum / float64(n), nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred []string) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError("Accuracy", n, len(yPred), 0)
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred []string) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}
