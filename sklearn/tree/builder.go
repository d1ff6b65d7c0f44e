package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// featureThreshold は分割候補とみなす隣接値の最小差です。
const featureThreshold = 1e-7

// splitRecord は探索中の最良分割です。
type splitRecord struct {
	feature   int
	threshold float64
	pos       int // samples[start:pos] が左、samples[pos:end] が右
	proxy     float64
}

// builder は深さ優先で木を構築します。
type builder struct {
	t        *DecisionTreeRegressor
	x        []float64 // 行優先の特徴量
	stride   int
	y        []float64
	samples  []int
	features []int
	values   []float64 // 分割探索用の作業領域
	order    []int
	rng      *rand.Rand
	nTotal   float64
	maxFeat  int
}

// Fit fits the tree on all rows of X.
func (t *DecisionTreeRegressor) Fit(X mat.Matrix, y []float64) error {
	return t.FitSubset(X, y, nil)
}

// FitSubset fits the tree on the given rows of X. A nil rows slice uses
// every row. Rows may not repeat.
func (t *DecisionTreeRegressor) FitSubset(X mat.Matrix, y []float64, rows []int) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if err := t.validateParams(); err != nil {
		return err
	}
	nRows, nCols := X.Dims()
	if nRows == 0 || nCols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeRegressor.Fit")
	}
	if len(y) != nRows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", nRows, len(y), 0)
	}

	var samples []int
	if rows == nil {
		samples = make([]int, nRows)
		for i := range samples {
			samples[i] = i
		}
	} else {
		if len(rows) == 0 {
			return errors.Wrap(errors.ErrEmptyData, "DecisionTreeRegressor.Fit: no rows selected")
		}
		samples = append([]int(nil), rows...)
		for _, r := range samples {
			if r < 0 || r >= nRows {
				return errors.NewValidationError("rows", "row index out of range", r)
			}
		}
	}

	maxFeat := t.maxFeatures
	if maxFeat == 0 {
		maxFeat = nCols
	} else if maxFeat > nCols {
		errors.Warn(errors.NewParameterWarning("max_features", t.maxFeatures, nCols,
			"exceeds the number of features"))
		maxFeat = nCols
	}

	raw, stride := rawRowMajor(X)
	features := make([]int, nCols)
	for i := range features {
		features[i] = i
	}

	b := &builder{
		t:        t,
		x:        raw,
		stride:   stride,
		y:        y,
		samples:  samples,
		features: features,
		values:   make([]float64, len(samples)),
		order:    make([]int, len(samples)),
		rng:      rand.New(rand.NewPCG(t.randomState, 0x9e3779b97f4a7c15)),
		nTotal:   float64(len(samples)),
		maxFeat:  maxFeat,
	}

	t.Reset()
	t.nodes = t.nodes[:0]
	t.nFeatures = nCols
	t.importances = make([]float64, nCols)

	b.build()
	t.normalizeImportances()
	t.SetFitted()
	return nil
}

// rawRowMajor returns the row-major backing data of X, copying only when X
// is not a *mat.Dense.
func rawRowMajor(X mat.Matrix) ([]float64, int) {
	d, ok := X.(*mat.Dense)
	if !ok {
		d = mat.DenseCopyOf(X)
	}
	raw := d.RawMatrix()
	return raw.Data, raw.Stride
}

type stackEntry struct {
	start, end int
	depth      int
	parent     int
	isLeft     bool
}

func (b *builder) build() {
	stack := []stackEntry{{start: 0, end: len(b.samples), depth: 0, parent: -1}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := e.end - e.start
		mean, impurity := b.nodeStats(e.start, e.end)
		id := len(b.t.nodes)
		b.t.nodes = append(b.t.nodes, Node{
			Feature:  LeafFeature,
			Left:     -1,
			Right:    -1,
			Value:    mean,
			NSamples: n,
			Impurity: impurity,
			Depth:    e.depth,
		})
		if e.parent >= 0 {
			if e.isLeft {
				b.t.nodes[e.parent].Left = id
			} else {
				b.t.nodes[e.parent].Right = id
			}
		}

		isLeaf := (b.t.maxDepth > 0 && e.depth >= b.t.maxDepth) ||
			n < b.t.minSamplesSplit ||
			n < 2*b.t.minSamplesLeaf ||
			impurity <= epsilon
		if isLeaf {
			continue
		}

		split, ok := b.findSplit(e.start, e.end)
		if !ok {
			continue
		}
		_, impLeft := b.nodeStats(e.start, split.pos)
		_, impRight := b.nodeStats(split.pos, e.end)
		nl := float64(split.pos - e.start)
		nr := float64(e.end - split.pos)
		nn := float64(n)
		decrease := nn / b.nTotal * (impurity - nl/nn*impLeft - nr/nn*impRight)
		if decrease < b.t.minImpurityDecrease {
			continue
		}

		node := &b.t.nodes[id]
		node.Feature = split.feature
		node.Threshold = split.threshold
		b.t.importances[split.feature] += decrease

		// 右を先に積み、左から展開する
		stack = append(stack,
			stackEntry{start: split.pos, end: e.end, depth: e.depth + 1, parent: id, isLeft: false},
			stackEntry{start: e.start, end: split.pos, depth: e.depth + 1, parent: id, isLeft: true},
		)
	}
}

// epsilon は不純度がゼロとみなされる閾値です (float64 の機械イプシロン)。
const epsilon = 2.220446049250313e-16

func (b *builder) nodeStats(start, end int) (mean, variance float64) {
	n := float64(end - start)
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for _, s := range b.samples[start:end] {
		v := b.y[s]
		sum += v
		sumSq += v * v
	}
	mean = sum / n
	variance = sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// findSplit は samples[start:end] の最良分割を探し、見つかった場合は
// samples をその分割で並べ替えます。
//
// 特徴量はシャッフル順に引かれ、定数でない特徴量を maxFeat 個調べた時点で
// 打ち切ります。定数の特徴量は数に含めません。
func (b *builder) findSplit(start, end int) (splitRecord, bool) {
	best := splitRecord{feature: -1, proxy: math.Inf(-1)}
	n := end - start
	minLeaf := b.t.minSamplesLeaf

	var sumTotal float64
	for _, s := range b.samples[start:end] {
		sumTotal += b.y[s]
	}

	visited := 0
	nFeatures := len(b.features)
	for drawn := 0; drawn < nFeatures && visited < b.maxFeat; drawn++ {
		j := drawn + b.rng.IntN(nFeatures-drawn)
		b.features[drawn], b.features[j] = b.features[j], b.features[drawn]
		f := b.features[drawn]

		vals := b.values[:n]
		order := b.order[:n]
		for i, s := range b.samples[start:end] {
			order[i] = s
		}
		sort.Slice(order, func(a, c int) bool {
			return b.x[order[a]*b.stride+f] < b.x[order[c]*b.stride+f]
		})
		for i, s := range order {
			vals[i] = b.x[s*b.stride+f]
		}
		if vals[n-1] <= vals[0]+featureThreshold {
			continue
		}
		visited++

		var sumLeft float64
		for i := 0; i < n-minLeaf; i++ {
			sumLeft += b.y[order[i]]
			pos := i + 1
			if pos < minLeaf {
				continue
			}
			if vals[pos] <= vals[i]+featureThreshold {
				continue
			}
			nl := float64(pos)
			nr := float64(n - pos)
			sumRight := sumTotal - sumLeft
			diff := nr*sumLeft - nl*sumRight
			proxy := diff * diff / (nl * nr)
			if proxy > best.proxy {
				threshold := vals[i]/2 + vals[pos]/2
				if threshold == vals[pos] || math.IsInf(threshold, 0) || math.IsNaN(threshold) {
					threshold = vals[i]
				}
				best = splitRecord{feature: f, threshold: threshold, pos: start + pos, proxy: proxy}
			}
		}
	}

	if best.feature < 0 {
		return best, false
	}

	// 最良特徴量で samples を分割する
	seg := b.samples[start:end]
	left := b.order[:0]
	right := make([]int, 0, end-best.pos)
	for _, s := range seg {
		if b.x[s*b.stride+best.feature] <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	copy(seg, left)
	copy(seg[len(left):], right)
	return best, true
}

func (t *DecisionTreeRegressor) normalizeImportances() {
	var total float64
	for _, v := range t.importances {
		total += v
	}
	if total <= 0 {
		return
	}
	for i := range t.importances {
		t.importances[i] /= total
	}
}
