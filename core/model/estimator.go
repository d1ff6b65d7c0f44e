package model

import "gonum.org/v1/gonum/mat"

// Fitter はラベル付きデータで学習可能な分類モデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は X の各行に対応するクラスラベル
	Fit(X mat.Matrix, y []string) error
}

// ProbaPredictor はクラス確率を出力するモデルのインターフェース
type ProbaPredictor interface {
	// PredictProba は各行について Classes() の順に並んだ確率分布を返す
	PredictProba(X mat.Matrix) (*mat.Dense, error)

	// Classes は確率行列の列に対応するクラスラベルを返す
	Classes() []string
}

// Classifier は学習と確率予測を備えた分類器
type Classifier interface {
	Fitter
	ProbaPredictor

	// Predict は最も確率の高いクラスラベルを返す
	Predict(X mat.Matrix) ([]string, error)

	// Score は正解率を返す
	Score(X mat.Matrix, y []string) (float64, error)

	// IsFitted は学習済みかどうかを返す
	IsFitted() bool
}

// Persistable はファイルへ保存・復元できるモデルのインターフェース
type Persistable interface {
	Save(path string) error
	Load(path string) error
}
