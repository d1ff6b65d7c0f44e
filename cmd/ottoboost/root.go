package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/ottoboost/pipeline"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/pkg/log"
)

// cli holds state shared by the root command and its subcommands.
type cli struct {
	v          *viper.Viper
	configPath string
	progress   bool
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	c := &cli{v: pipeline.NewViper()}
	d := pipeline.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "ottoboost",
		Short: "Train the Otto product classifier and write class probabilities",
		Long: `ottoboost fits a gradient boosting classifier on the Otto Group product
classification data and writes per-class probabilities for the test rows.

Configuration is read from defaults, an optional file (--config), OTTO_*
environment variables and flags, in increasing order of precedence.

Examples:
  ottoboost                                  # train.csv + test.csv -> best_gradientboost.csv
  ottoboost --train data/train.csv --test data/test.csv --output-dir out
  ottoboost --save-model model.gob --loss-plot loss.png --progress
  ottoboost config                           # print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.FromViper(c.v)
			if err != nil {
				return err
			}
			res, err := pipeline.Run(cmd.Context(), cfg, pipeline.WithProgress(c.progress))
			if err != nil {
				return err
			}
			log.GetLoggerWithName("main").Info("Run finished",
				log.RunIDKey, res.RunID,
				log.PathKey, res.OutputPath,
				log.SamplesKey, res.Rows,
				log.LossKey, res.TrainLoss,
				log.DurationMsKey, res.Duration.Milliseconds(),
			)
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "configuration file (YAML, TOML or JSON)")
	pf.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	pf.BoolVar(&c.logJSON, "log-json", false, "write logs as JSON lines instead of console output")
	pf.String("train", d.TrainPath, "training CSV with id and target columns")
	pf.String("test", d.TestPath, "test CSV with id column")
	pf.String("output-dir", d.OutputDir, "directory of the submission file")
	pf.String("model-name", d.ModelName, "submission file name without extension")
	pf.String("save-model", d.ModelPath, "write the fitted model (gob) to this path")
	pf.String("loss-plot", d.LossPlotPath, "write the training loss curve to this image path")
	cmd.Flags().BoolVar(&c.progress, "progress", false, "show a progress bar while boosting")

	for key, flag := range map[string]string{
		"log_level":      "log-level",
		"train_path":     "train",
		"test_path":      "test",
		"output_dir":     "output-dir",
		"model_name":     "model-name",
		"model_path":     "save-model",
		"loss_plot_path": "loss-plot",
	} {
		// フラグ名は固定のためエラーにならない
		_ = c.v.BindPFlag(key, pf.Lookup(flag))
	}

	cmd.AddCommand(newConfigCmd(c))
	return cmd
}

// setup reads the config file and installs the logger.
func (c *cli) setup() error {
	if c.configPath != "" {
		c.v.SetConfigFile(c.configPath)
		if err := c.v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %s", c.configPath)
		}
	}
	return log.SetupLogger(c.v.GetString("log_level"), os.Stderr, !c.logJSON)
}

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pipeline.FromViper(c.v)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return errors.Wrap(err, "failed to write config")
		},
	}
}
