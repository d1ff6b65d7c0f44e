package ensemble

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
)

// PlotTrainingLoss は各ステージの訓練デビアンスを折れ線グラフとして path に保存します。
// 形式は拡張子 (.png, .svg, .pdf など) から決まります。
func PlotTrainingLoss(scores []float64, path string) error {
	if len(scores) == 0 {
		return errors.NewValidationError("scores", "must not be empty", len(scores))
	}

	p := plot.New()
	p.Title.Text = "Training deviance"
	p.X.Label.Text = "Boosting stage"
	p.Y.Label.Text = "Multinomial deviance"

	pts := make(plotter.XYs, len(scores))
	for i, s := range scores {
		pts[i].X = float64(i + 1)
		pts[i].Y = s
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "failed to build loss line")
	}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line, plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save loss plot to %s", path)
	}
	return nil
}
