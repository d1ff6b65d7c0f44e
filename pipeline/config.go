package pipeline

import (
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/ottoboost/dataset"
	"github.com/YuminosukeSato/ottoboost/pkg/errors"
	"github.com/YuminosukeSato/ottoboost/submission"
)

// EnvPrefix is the prefix of environment variables that override the
// configuration, e.g. OTTO_MODEL_N_ESTIMATORS.
const EnvPrefix = "OTTO"

// ModelConfig holds the classifier hyperparameters.
type ModelConfig struct {
	NEstimators     int     `mapstructure:"n_estimators" yaml:"n_estimators"`
	LearningRate    float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	MaxDepth        int     `mapstructure:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `mapstructure:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf" yaml:"min_samples_leaf"`
	MaxFeatures     int     `mapstructure:"max_features" yaml:"max_features"`
	Subsample       float64 `mapstructure:"subsample" yaml:"subsample"`
	RandomState     int64   `mapstructure:"random_state" yaml:"random_state"`
}

// Config is everything one pipeline run needs.
type Config struct {
	TrainPath    string      `mapstructure:"train_path" yaml:"train_path"`
	TestPath     string      `mapstructure:"test_path" yaml:"test_path"`
	OutputDir    string      `mapstructure:"output_dir" yaml:"output_dir"`
	ModelName    string      `mapstructure:"model_name" yaml:"model_name"`
	IDColumn     string      `mapstructure:"id_column" yaml:"id_column"`
	TargetColumn string      `mapstructure:"target_column" yaml:"target_column"`
	Classes      []string    `mapstructure:"classes" yaml:"classes"`
	Model        ModelConfig `mapstructure:"model" yaml:"model"`
	ModelPath    string      `mapstructure:"model_path" yaml:"model_path"`
	LossPlotPath string      `mapstructure:"loss_plot_path" yaml:"loss_plot_path"`
	LogLevel     string      `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the fixed configuration of the original
// best_gradientboost run: train.csv and test.csv from the working directory,
// output best_gradientboost.csv next to them.
func DefaultConfig() *Config {
	return &Config{
		TrainPath:    "train.csv",
		TestPath:     "test.csv",
		OutputDir:    ".",
		ModelName:    "best_gradientboost",
		IDColumn:     dataset.DefaultIDColumn,
		TargetColumn: dataset.DefaultTargetColumn,
		Classes:      submission.DefaultClassMap().Labels(),
		Model: ModelConfig{
			NEstimators:     100,
			LearningRate:    0.1,
			MaxDepth:        60,
			MinSamplesSplit: 1200,
			MinSamplesLeaf:  60,
			MaxFeatures:     7,
			Subsample:       1.0,
			RandomState:     42,
		},
		LogLevel: "info",
	}
}

// SetDefaults registers DefaultConfig with v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("train_path", d.TrainPath)
	v.SetDefault("test_path", d.TestPath)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("model_name", d.ModelName)
	v.SetDefault("id_column", d.IDColumn)
	v.SetDefault("target_column", d.TargetColumn)
	v.SetDefault("classes", d.Classes)
	v.SetDefault("model_path", d.ModelPath)
	v.SetDefault("loss_plot_path", d.LossPlotPath)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("model.n_estimators", d.Model.NEstimators)
	v.SetDefault("model.learning_rate", d.Model.LearningRate)
	v.SetDefault("model.max_depth", d.Model.MaxDepth)
	v.SetDefault("model.min_samples_split", d.Model.MinSamplesSplit)
	v.SetDefault("model.min_samples_leaf", d.Model.MinSamplesLeaf)
	v.SetDefault("model.max_features", d.Model.MaxFeatures)
	v.SetDefault("model.subsample", d.Model.Subsample)
	v.SetDefault("model.random_state", d.Model.RandomState)
}

// NewViper returns a viper instance with defaults and OTTO_* environment
// bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadConfig reads the configuration: defaults, then the file at path (YAML,
// TOML or JSON by extension, skipped when path is empty), then OTTO_*
// environment variables.
func LoadConfig(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields Run cannot default.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.TrainPath) == "":
		return errors.NewValidationError("train_path", "must not be empty", c.TrainPath)
	case strings.TrimSpace(c.TestPath) == "":
		return errors.NewValidationError("test_path", "must not be empty", c.TestPath)
	case strings.TrimSpace(c.ModelName) == "":
		return errors.NewValidationError("model_name", "must not be empty", c.ModelName)
	case c.IDColumn == "":
		return errors.NewValidationError("id_column", "must not be empty", c.IDColumn)
	case c.TargetColumn == "":
		return errors.NewValidationError("target_column", "must not be empty", c.TargetColumn)
	}
	if _, err := submission.NewClassMap(c.Classes); err != nil {
		return err
	}
	return nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return out, nil
}

// OutputPath returns <OutputDir>/<ModelName>.csv.
func (c *Config) OutputPath() string {
	return submission.Path(c.OutputDir, c.ModelName)
}
