package ensemble

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/core/model"
	"github.com/YuminosukeSato/ottoboost/core/parallel"
	"github.com/YuminosukeSato/ottoboost/metrics"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
	"github.com/YuminosukeSato/ottoboost/preprocessing"
	"github.com/YuminosukeSato/ottoboost/sklearn/tree"
)

const (
	// initEpsilon は事前確率のクリップ幅です (float32 の機械イプシロン)。
	initEpsilon = 1.1920928955078125e-07

	// newtonDenominatorFloor 未満の分母を持つ葉は 0 になります。
	newtonDenominatorFloor = 1e-150

	// predictParallelThreshold 行以下の予測は逐次実行します。
	predictParallelThreshold = 256
)

// GradientBoostingClassifier は多項デビアンスを最小化する勾配ブースティング分類器です。
// 各ステージでクラスごとに1本の回帰木を残差に当てはめ、葉の値をニュートン
// ステップで置き換えます。多クラス (K >= 3) では scikit-learn の
// GradientBoostingClassifier と同じ更新式です。K = 2 でも2本の多項木を当てはめる
// ため、二値ロジスティック損失で1本の木を使う scikit-learn とは結果が異なります。
type GradientBoostingClassifier struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nEstimators     int
	learningRate    float64
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	subsample       float64
	randomState     int64
	fixedClasses    []string
	callbacks       []Callback

	// 学習済みパラメータ
	encoder    *preprocessing.LabelEncoder
	init       []float64
	estimators [][]*tree.DecisionTreeRegressor // [stage][class]
	trainScore []float64
	nFeatures  int

	logger log.Logger
}

// NewGradientBoostingClassifier は新しい分類器を作成します。
//
// 使用例:
//
//	clf := ensemble.NewGradientBoostingClassifier(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithMaxDepth(60),
//	    ensemble.WithMinSamplesSplit(1200),
//	    ensemble.WithMinSamplesLeaf(60),
//	    ensemble.WithMaxFeatures(7),
//	)
//	err := clf.Fit(X, y)
//	proba, err := clf.PredictProba(XTest)
func NewGradientBoostingClassifier(opts ...Option) *GradientBoostingClassifier {
	g := &GradientBoostingClassifier{
		nEstimators:     100,
		learningRate:    0.1,
		maxDepth:        3,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		subsample:       1.0,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GradientBoostingClassifier) validateParams() error {
	switch {
	case g.nEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", g.nEstimators)
	case !(g.learningRate > 0) || math.IsInf(g.learningRate, 0):
		return errors.NewValidationError("learning_rate", "must be a positive finite number", g.learningRate)
	case g.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", g.maxDepth)
	case g.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", g.minSamplesSplit)
	case g.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", g.minSamplesLeaf)
	case g.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", g.maxFeatures)
	case !(g.subsample > 0 && g.subsample <= 1):
		return errors.NewValidationError("subsample", "must be in (0, 1]", g.subsample)
	}
	return nil
}

// Fit はモデルを訓練データで学習させます。
func (g *GradientBoostingClassifier) Fit(X mat.Matrix, y []string) error {
	return g.FitContext(context.Background(), X, y)
}

// FitContext は Fit と同じですが、各ステージの間で ctx のキャンセルを確認します。
//
// パラメータ:
//   - ctx: キャンセル用コンテキスト
//   - X: 特徴量行列 (n_samples × n_features)
//   - y: 各行のクラスラベル
//
// 戻り値:
//   - error: 入力不正、パラメータ不正、数値不安定、キャンセル時
func (g *GradientBoostingClassifier) FitContext(ctx context.Context, X mat.Matrix, y []string) (err error) {
	defer errors.Recover(&err, "GradientBoostingClassifier.Fit")

	if err := g.validateParams(); err != nil {
		return err
	}
	nRows, nCols := X.Dims()
	if nRows == 0 || nCols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GradientBoostingClassifier.Fit")
	}
	if len(y) != nRows {
		return errors.NewDimensionError("GradientBoostingClassifier.Fit", nRows, len(y), 0)
	}

	encoder := preprocessing.NewLabelEncoder()
	if g.fixedClasses != nil {
		err = encoder.FitWithClasses(g.fixedClasses, y)
	} else {
		err = encoder.Fit(y)
	}
	if err != nil {
		return err
	}
	codes, err := encoder.Transform(y)
	if err != nil {
		return err
	}
	nClasses := encoder.NClasses()
	if nClasses < 2 {
		return errors.NewValidationError("classes", "at least 2 classes are required", encoder.Classes())
	}

	maxFeatures := g.maxFeatures
	if maxFeatures > nCols {
		errors.Warn(errors.NewParameterWarning("max_features", g.maxFeatures, nCols,
			"exceeds the number of features"))
		maxFeatures = nCols
	}

	// 学習済みの状態は成功時にのみ設定する
	g.Reset()
	g.encoder = nil
	g.init = nil
	g.nFeatures = 0
	g.estimators = nil
	g.trainScore = nil

	initRaw := priorRawScores(codes, nClasses)
	var (
		estimators [][]*tree.DecisionTreeRegressor
		trainScore []float64
	)

	xd := asDense(X)
	raw := make([]float64, nRows*nClasses)
	for i := 0; i < nRows; i++ {
		copy(raw[i*nClasses:(i+1)*nClasses], initRaw)
	}

	logger := g.getLogger().With(
		log.EstimatorIDKey, g.ID(),
		log.OperationKey, log.OperationFit,
	)
	logger.Info("Fitting started",
		log.SamplesKey, nRows,
		log.FeaturesKey, nCols,
		log.ClassesKey, nClasses,
		log.HyperParamsKey, g.GetParams(),
	)

	sampler := rand.New(rand.NewPCG(uint64(g.randomState), 0x5bd1e995))
	proba := make([]float64, nRows*nClasses)
	start := time.Now()

	for stage := 0; stage < g.nEstimators; stage++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "fit cancelled at stage %d", stage)
		}

		softmaxRows(raw, proba, nClasses)
		rows := g.sampleRows(sampler, nRows)

		trees := make([]*tree.DecisionTreeRegressor, nClasses)
		eg, _ := errgroup.WithContext(ctx)
		for k := 0; k < nClasses; k++ {
			eg.Go(func() error {
				t, err := g.fitClassTree(xd, codes, proba, raw, rows, stage, k, nClasses, maxFeatures)
				if err != nil {
					return errors.Wrapf(err, "stage %d class %s", stage, encoder.Classes()[k])
				}
				trees[k] = t
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		estimators = append(estimators, trees)

		loss := multinomialDeviance(raw, codes, rows, nClasses)
		if err := errors.CheckScalar("multinomial deviance", loss, stage); err != nil {
			return err
		}
		trainScore = append(trainScore, loss)

		if logger.Enabled(ctx, log.LevelDebug) {
			logger.Debug("Stage finished",
				log.IterationKey, stage,
				log.LossKey, loss,
			)
		}

		env := &CallbackEnv{
			Model:     g,
			Stage:     stage,
			NStages:   g.nEstimators,
			TrainLoss: loss,
			Elapsed:   time.Since(start),
		}
		if err := runCallbacks(g.callbacks, env); err != nil {
			return errors.Wrapf(err, "callback error at stage %d", stage)
		}
		if env.StopTraining {
			logger.Info("Training stopped by callback", log.IterationKey, stage)
			break
		}
	}

	g.encoder = encoder
	g.init = initRaw
	g.nFeatures = nCols
	g.estimators = estimators
	g.trainScore = trainScore
	g.SetFitted()
	logger.Info("Fitting finished",
		"n_stages", len(estimators),
		log.LossKey, trainScore[len(trainScore)-1],
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitClassTree はクラス k の残差に回帰木を当てはめ、葉をニュートンステップで
// 更新し、raw の k 列を進めます。raw と proba は他のゴルーチンと k 列以外を
// 共有しません。
func (g *GradientBoostingClassifier) fitClassTree(
	xd *mat.Dense,
	codes []int,
	proba, raw []float64,
	rows []int,
	stage, k, nClasses, maxFeatures int,
) (*tree.DecisionTreeRegressor, error) {
	nRows := len(codes)
	residual := make([]float64, nRows)
	for i := 0; i < nRows; i++ {
		residual[i] = indicator(codes[i] == k) - proba[i*nClasses+k]
	}

	t := tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(g.maxDepth),
		tree.WithMinSamplesSplit(g.minSamplesSplit),
		tree.WithMinSamplesLeaf(g.minSamplesLeaf),
		tree.WithMaxFeatures(maxFeatures),
		tree.WithRandomState(treeSeed(g.randomState, stage, k)),
	)
	if err := t.FitSubset(xd, residual, rows); err != nil {
		return nil, err
	}

	leafOf := make([]int, nRows)
	for i := 0; i < nRows; i++ {
		leafOf[i] = t.Apply(xd.RawRowView(i))
	}

	// 葉ごとのニュートンステップ (学習に使った行のみ)
	num := make(map[int]float64)
	den := make(map[int]float64)
	addRow := func(i int) {
		r := residual[i]
		p := math.Abs(indicator(codes[i] == k) - r)
		num[leafOf[i]] += r
		den[leafOf[i]] += p * (1 - p)
	}
	if rows == nil {
		for i := 0; i < nRows; i++ {
			addRow(i)
		}
	} else {
		for _, i := range rows {
			addRow(i)
		}
	}
	scale := float64(nClasses-1) / float64(nClasses)
	for _, leaf := range t.Leaves() {
		value := 0.0
		if d := den[leaf]; math.Abs(d) >= newtonDenominatorFloor {
			value = scale * num[leaf] / d
		}
		if err := t.SetLeafValue(leaf, value); err != nil {
			return nil, err
		}
	}

	for i := 0; i < nRows; i++ {
		raw[i*nClasses+k] += g.learningRate * t.LeafValue(leafOf[i])
	}
	return t, nil
}

// sampleRows は subsample < 1 のとき非復元抽出した行番号を昇順で返します。
// subsample == 1 では nil (全行) を返します。
func (g *GradientBoostingClassifier) sampleRows(rng *rand.Rand, nRows int) []int {
	if g.subsample >= 1 {
		return nil
	}
	nIn := int(g.subsample * float64(nRows))
	if nIn < 1 {
		nIn = 1
	}
	rows := rng.Perm(nRows)[:nIn]
	sort.Ints(rows)
	return rows
}

// PredictProba は各行のクラス確率を Classes() の列順で返します。
func (g *GradientBoostingClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	raw, err := g.rawScores(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	nRows, nClasses := raw.Dims()
	rawData := raw.RawMatrix().Data
	softmaxRows(rawData, rawData, nClasses)
	return mat.NewDense(nRows, nClasses, rawData), nil
}

// DecisionFunction は softmax 前の生スコア (n_samples × n_classes) を返します。
func (g *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	return g.rawScores(X, "DecisionFunction")
}

func (g *GradientBoostingClassifier) rawScores(X mat.Matrix, method string) (*mat.Dense, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", method)
	}
	nRows, nCols := X.Dims()
	if nCols != g.nFeatures {
		return nil, errors.NewDimensionError("GradientBoostingClassifier."+method, g.nFeatures, nCols, 1)
	}
	if nRows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "GradientBoostingClassifier."+method)
	}

	xd := asDense(X)
	nClasses := len(g.init)
	out := mat.NewDense(nRows, nClasses, nil)
	parallel.ParallelizeWithThreshold(nRows, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := xd.RawRowView(i)
			dst := out.RawRowView(i)
			copy(dst, g.init)
			for _, stage := range g.estimators {
				for k, t := range stage {
					dst[k] += g.learningRate * t.PredictRow(row)
				}
			}
		}
	})
	return out, nil
}

// Predict は各行で最も確率の高いクラスラベルを返します。
func (g *GradientBoostingClassifier) Predict(X mat.Matrix) ([]string, error) {
	raw, err := g.rawScores(X, "Predict")
	if err != nil {
		return nil, err
	}
	nRows, nClasses := raw.Dims()
	codes := make([]int, nRows)
	for i := 0; i < nRows; i++ {
		row := raw.RawRowView(i)
		best := 0
		for k := 1; k < nClasses; k++ {
			if row[k] > row[best] {
				best = k
			}
		}
		codes[i] = best
	}
	return g.encoder.InverseTransform(codes)
}

// Score は正解率を返します。
func (g *GradientBoostingClassifier) Score(X mat.Matrix, y []string) (float64, error) {
	pred, err := g.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// Classes は確率行列の列に対応するクラスラベルを返します。未学習の場合は
// WithClasses で指定したクラス (なければ nil) を返します。
func (g *GradientBoostingClassifier) Classes() []string {
	if g.encoder == nil {
		return append([]string(nil), g.fixedClasses...)
	}
	return g.encoder.Classes()
}

// TrainScore はステージごとの訓練デビアンスを返します。
func (g *GradientBoostingClassifier) TrainScore() []float64 {
	return append([]float64(nil), g.trainScore...)
}

// NEstimatorsFitted は実際に学習したステージ数を返します。
func (g *GradientBoostingClassifier) NEstimatorsFitted() int {
	return len(g.estimators)
}

// FeatureImportances は全ての木の不純度減少を平均し、合計1に正規化した値を返します。
func (g *GradientBoostingClassifier) FeatureImportances() ([]float64, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "FeatureImportances")
	}
	total := make([]float64, g.nFeatures)
	for _, stage := range g.estimators {
		for _, t := range stage {
			for f, v := range t.FeatureImportances() {
				total[f] += v
			}
		}
	}
	var sum float64
	for _, v := range total {
		sum += v
	}
	if sum > 0 {
		for f := range total {
			total[f] /= sum
		}
	}
	return total, nil
}

// GetParams はハイパーパラメータを返します。
func (g *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"loss":              "log_loss",
		"criterion":         "friedman_mse",
		"n_estimators":      g.nEstimators,
		"learning_rate":     g.learningRate,
		"max_depth":         g.maxDepth,
		"min_samples_split": g.minSamplesSplit,
		"min_samples_leaf":  g.minSamplesLeaf,
		"max_features":      g.maxFeatures,
		"subsample":         g.subsample,
		"random_state":      g.randomState,
	}
}

// priorRawScores は log(clip(事前確率)) を返します。学習データに現れない
// クラスは log(eps) になります。
func priorRawScores(codes []int, nClasses int) []float64 {
	counts := make([]float64, nClasses)
	for _, c := range codes {
		counts[c]++
	}
	init := make([]float64, nClasses)
	n := float64(len(codes))
	for k := range counts {
		p := counts[k] / n
		p = math.Max(initEpsilon, math.Min(1-initEpsilon, p))
		init[k] = math.Log(p)
	}
	return init
}

// softmaxRows は src の各行 (幅 k) の softmax を dst に書きます。src と dst は同じでもよい。
func softmaxRows(src, dst []float64, k int) {
	for off := 0; off < len(src); off += k {
		row := src[off : off+k]
		out := dst[off : off+k]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		for j, v := range row {
			e := math.Exp(v - maxV)
			out[j] = e
			sum += e
		}
		for j := range out {
			out[j] /= sum
		}
	}
}

// multinomialDeviance は平均の負の対数尤度 logsumexp(raw_i) - raw_i[y_i] です。
// rows が nil なら全行、そうでなければ指定行のみで計算します。
func multinomialDeviance(raw []float64, codes []int, rows []int, k int) float64 {
	lossAt := func(i int) float64 {
		row := raw[i*k : (i+1)*k]
		maxV := row[0]
		for _, v := range row[1:] {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(v - maxV)
		}
		return maxV + math.Log(sum) - row[codes[i]]
	}

	var total float64
	if rows == nil {
		for i := range codes {
			total += lossAt(i)
		}
		return total / float64(len(codes))
	}
	for _, i := range rows {
		total += lossAt(i)
	}
	return total / float64(len(rows))
}

// treeSeed はステージとクラスから木ごとの乱数シードを導出します (splitmix64)。
func treeSeed(randomState int64, stage, class int) uint64 {
	z := uint64(randomState) + uint64(stage)*0x9e3779b97f4a7c15 + uint64(class)*0xbf58476d1ce4e5b9
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (g *GradientBoostingClassifier) getLogger() log.Logger {
	if g.logger != nil {
		return g.logger
	}
	return log.GetLoggerWithName("ensemble.GradientBoostingClassifier")
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func asDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(X)
}
