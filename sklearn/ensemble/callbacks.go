package ensemble

import (
	"math"
	"time"

	"github.com/pterm/pterm"

	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
)

// CallbackEnv はステージ終了時にコールバックへ渡される環境です。
type CallbackEnv struct {
	Model        *GradientBoostingClassifier
	Stage        int // 0始まり
	NStages      int // 予定ステージ数
	TrainLoss    float64
	Elapsed      time.Duration // Fit開始からの経過時間
	StopTraining bool
}

// Callback is called after every boosting stage. Setting env.StopTraining
// ends Fit after the current stage; an error aborts Fit.
type Callback func(env *CallbackEnv) error

func runCallbacks(callbacks []Callback, env *CallbackEnv) error {
	for _, cb := range callbacks {
		if err := cb(env); err != nil {
			return err
		}
	}
	return nil
}

// RecordTrainLoss appends each stage's training loss to history.
func RecordTrainLoss(history *[]float64) Callback {
	return func(env *CallbackEnv) error {
		*history = append(*history, env.TrainLoss)
		return nil
	}
}

// LogEvaluation logs the training loss every period stages.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if (env.Stage+1)%period == 0 || env.Stage+1 == env.NStages {
			logger.Info("Boosting progress",
				log.IterationKey, env.Stage+1,
				log.LossKey, env.TrainLoss,
				log.DurationMsKey, env.Elapsed.Milliseconds(),
			)
		}
		return nil
	}
}

// EarlyStopping stops training when the training loss has not improved by
// more than minDelta for rounds consecutive stages.
func EarlyStopping(rounds int, minDelta float64) Callback {
	best := math.Inf(1)
	noImprove := 0
	return func(env *CallbackEnv) error {
		if env.TrainLoss < best-minDelta {
			best = env.TrainLoss
			noImprove = 0
			return nil
		}
		noImprove++
		if noImprove >= rounds {
			env.StopTraining = true
		}
		return nil
	}
}

// TimeLimit stops training once the elapsed fit time exceeds maxDuration.
func TimeLimit(maxDuration time.Duration) Callback {
	return func(env *CallbackEnv) error {
		if env.Elapsed > maxDuration {
			env.StopTraining = true
		}
		return nil
	}
}

// ProgressBar shows a terminal progress bar with one tick per stage.
func ProgressBar(title string) Callback {
	pb := &progressBar{title: title}
	return pb.update
}

type progressBar struct {
	title string
	bar   *pterm.ProgressbarPrinter
}

func (p *progressBar) update(env *CallbackEnv) error {
	// 中断された前回の Fit のバーが残っていれば閉じる
	if env.Stage == 0 && p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
	if p.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(env.NStages).
			WithTitle(p.title).
			Start()
		if err != nil {
			return errors.Wrap(err, "failed to start progress bar")
		}
		p.bar = bar
	}
	p.bar.Increment()
	if env.Stage+1 >= env.NStages || env.StopTraining {
		if _, err := p.bar.Stop(); err != nil {
			return errors.Wrap(err, "failed to stop progress bar")
		}
		p.bar = nil
	}
	return nil
}
