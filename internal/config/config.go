// Package config holds the hyperparameters and run settings of a training run.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Hyperparameters is the read-only configuration shared by the network,
// the optimizer and the training loop for the lifetime of a run.
type Hyperparameters struct {
	InputDim         int     `yaml:"input_dim"`
	OutputDim        int     `yaml:"output_dim"`
	HiddenLayerSizes []int   `yaml:"hidden_layer_sizes"`
	LearningRate     float64 `yaml:"learning_rate"`
	DropoutRate      float64 `yaml:"dropout_rate"`
	MaxEpochs        int     `yaml:"max_epochs"`
	NTrainSamples    int     `yaml:"n_train_samples"`
	MiniBatchSize    int     `yaml:"mini_batch_size"`
	NValSamples      int     `yaml:"n_val_samples"`
	EarlyStopping    bool    `yaml:"early_stopping"`
	Patience         int     `yaml:"patience"`
}

// LayerSizes returns [input, hidden..., output].
func (h Hyperparameters) LayerSizes() []int {
	sizes := make([]int, 0, len(h.HiddenLayerSizes)+2)
	sizes = append(sizes, h.InputDim)
	sizes = append(sizes, h.HiddenLayerSizes...)
	return append(sizes, h.OutputDim)
}

// NumLayers returns the number of weight layers.
func (h Hyperparameters) NumLayers() int {
	return len(h.HiddenLayerSizes) + 1
}

// NumBatches returns the number of training mini-batches per epoch.
// Samples beyond the last full batch are dropped.
func (h Hyperparameters) NumBatches() int {
	if h.MiniBatchSize <= 0 {
		return 0
	}
	return h.NTrainSamples / h.MiniBatchSize
}

// Validate verifies the hyperparameters describe a trainable network.
func (h Hyperparameters) Validate() error {
	if h.InputDim <= 0 {
		return fmt.Errorf("input_dim must be > 0 (got %d)", h.InputDim)
	}
	if h.OutputDim <= 0 {
		return fmt.Errorf("output_dim must be > 0 (got %d)", h.OutputDim)
	}
	for i, n := range h.HiddenLayerSizes {
		if n <= 0 {
			return fmt.Errorf("hidden_layer_sizes[%d] must be > 0 (got %d)", i, n)
		}
	}
	if h.LearningRate < 0 {
		return fmt.Errorf("learning_rate must be >= 0 (got %g)", h.LearningRate)
	}
	if h.DropoutRate < 0 || h.DropoutRate >= 1 {
		return fmt.Errorf("dropout_rate must be in [0, 1) (got %g)", h.DropoutRate)
	}
	if h.MaxEpochs <= 0 {
		return fmt.Errorf("max_epochs must be > 0 (got %d)", h.MaxEpochs)
	}
	if h.MiniBatchSize <= 0 {
		return fmt.Errorf("mini_batch_size must be > 0 (got %d)", h.MiniBatchSize)
	}
	if h.NumBatches() == 0 {
		return fmt.Errorf("n_train_samples (%d) must hold at least one mini-batch of %d",
			h.NTrainSamples, h.MiniBatchSize)
	}
	if h.NValSamples <= 0 {
		return fmt.Errorf("n_val_samples must be > 0 (got %d)", h.NValSamples)
	}
	if h.Patience < 0 {
		return fmt.Errorf("patience must be >= 0 (got %d)", h.Patience)
	}
	return nil
}

// Config captures the runtime knobs for a training run.
type Config struct {
	Hyperparameters `yaml:",inline"`

	Optimizer    string `yaml:"optimizer"`
	Seed         uint64 `yaml:"seed"`
	DataDir      string `yaml:"data_dir"`
	DataFormat   string `yaml:"data_format"`
	WeightsPath  string `yaml:"weights_path"`
	MetricsPath  string `yaml:"metrics_path"`
	StoreMetrics bool   `yaml:"store_metrics"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Optimizer   string
	Seed        uint64
	DataDir     string
	DataFormat  string
	WeightsPath string
	MetricsPath string
	MaxEpochs   int
}

// Default returns the configuration of the reference MNIST run.
func Default() *Config {
	return &Config{
		Hyperparameters: Hyperparameters{
			InputDim:         28 * 28,
			OutputDim:        10,
			HiddenLayerSizes: []int{256, 128},
			LearningRate:     0.001,
			DropoutRate:      0.2,
			MaxEpochs:        50,
			NTrainSamples:    10000,
			MiniBatchSize:    32,
			NValSamples:      1000,
			EarlyStopping:    true,
			Patience:         10,
		},
		Optimizer:    "adam",
		Seed:         42,
		DataDir:      "executable/database/MNIST",
		DataFormat:   "idx",
		WeightsPath:  "executable/model_weights.txt",
		MetricsPath:  "training_data.csv",
		StoreMetrics: true,
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Optimizer != "" {
		c.Optimizer = o.Optimizer
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.DataFormat != "" {
		c.DataFormat = o.DataFormat
	}
	if o.WeightsPath != "" {
		c.WeightsPath = o.WeightsPath
	}
	if o.MetricsPath != "" {
		c.MetricsPath = o.MetricsPath
	}
	if o.MaxEpochs > 0 {
		c.MaxEpochs = o.MaxEpochs
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Hyperparameters.Validate(); err != nil {
		return err
	}
	switch c.Optimizer {
	case "adam", "sgd":
	default:
		return fmt.Errorf("optimizer must be adam or sgd (got %q)", c.Optimizer)
	}
	switch c.DataFormat {
	case "idx", "csv":
	default:
		return fmt.Errorf("data_format must be idx or csv (got %q)", c.DataFormat)
	}
	return nil
}
