package preprocessing

import (
	"sort"
	"strconv"

	"github.com/YuminosukeSato/ottoboost/core/model"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダー
// 文字列のクラスラベルを 0..K-1 の整数インデックスに変換する
type LabelEncoder struct {
	model.BaseEstimator

	// classes はインデックス順のクラスラベル
	classes []string

	// index はラベルからインデックスへの対応
	index map[string]int
}

// NewLabelEncoder は新しいLabelEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewLabelEncoder()
//	err := enc.Fit([]string{"Class_2", "Class_1", "Class_2"})
//	codes, err := enc.Transform([]string{"Class_1"}) // [0]
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit は観測されたラベルを辞書順に並べてクラス集合とする
//
// パラメータ:
//   - labels: 訓練データのラベル列
//
// 戻り値:
//   - error: ラベルが空の場合
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, 16)
	classes := make([]string, 0, 16)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)

	e.setClasses(classes)
	return nil
}

// FitWithClasses は既知のクラス集合をそのままの順序で採用し、
// labels が全てその集合に含まれることを検証する
//
// パラメータ:
//   - known: クラスラベル（この順序が列順になる）
//   - labels: 検証するラベル列（nil可）
//
// 戻り値:
//   - error: known が空・重複を含む、または未知のラベルがある場合
func (e *LabelEncoder) FitWithClasses(known []string, labels []string) error {
	if len(known) == 0 {
		return errors.NewValidationError("classes", "must not be empty", known)
	}
	seen := make(map[string]struct{}, len(known))
	for _, c := range known {
		if _, dup := seen[c]; dup {
			return errors.NewValidationError("classes", "duplicate class label", c)
		}
		seen[c] = struct{}{}
	}

	e.setClasses(append([]string(nil), known...))
	if _, err := e.Transform(labels); err != nil {
		e.Reset()
		return err
	}
	return nil
}

func (e *LabelEncoder) setClasses(classes []string) {
	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, c := range classes {
		e.index[c] = i
	}
	e.SetFitted()
}

// Transform はラベルをクラスインデックスに変換する
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}

	codes := make([]int, len(labels))
	for i, l := range labels {
		k, ok := e.index[l]
		if !ok {
			return nil, errors.NewValidationError("target", "unknown class label at row "+strconv.Itoa(i), l)
		}
		codes[i] = k
	}
	return codes, nil
}

// InverseTransform はクラスインデックスをラベルに戻す
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	labels := make([]string, len(codes))
	for i, k := range codes {
		if k < 0 || k >= len(e.classes) {
			return nil, errors.NewValidationError("code", "out of range", k)
		}
		labels[i] = e.classes[k]
	}
	return labels, nil
}

// Classes はインデックス順のクラスラベルのコピーを返す
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// NClasses はクラス数を返す
func (e *LabelEncoder) NClasses() int {
	return len(e.classes)
}

// GetParams はエンコーダーのパラメータを返す
func (e *LabelEncoder) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"classes": e.Classes(),
	}
}
