// Package digitnet is the public entry point to the DigitNet classifier:
// configuration, data loading, network construction, optimizers and the
// training loop.
package digitnet

import (
	"fmt"
	"log"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/DigitNet/internal/config"
	"github.com/FlavioCFOliveira/DigitNet/internal/dataset"
	"github.com/FlavioCFOliveira/DigitNet/internal/loss"
	"github.com/FlavioCFOliveira/DigitNet/internal/matrix"
	"github.com/FlavioCFOliveira/DigitNet/internal/net"
	"github.com/FlavioCFOliveira/DigitNet/internal/opt"
	"github.com/FlavioCFOliveira/DigitNet/internal/parallel"
	"github.com/FlavioCFOliveira/DigitNet/internal/trainer"
)

// Re-export common types for easier access
type (
	Network         = net.Network
	Hyperparameters = config.Hyperparameters
	Config          = config.Config
	Overrides       = config.Overrides
	Matrix          = matrix.Matrix
	Batch           = dataset.Batch
	Optimizer       = opt.Optimizer
	Trainer         = trainer.Trainer
	TrainerOption   = trainer.Option
	Result          = trainer.Result
	History         = trainer.History
	Metrics         = trainer.Metrics
	Callback        = trainer.Callback
	ParallelConfig  = parallel.Config
)

// Configuration
func DefaultConfig() *Config {
	return config.Default()
}

func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewRand returns the seeded generator used for initialization and dropout.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// NewNetwork builds a network with Xavier-initialized weights drawn from seed.
func NewNetwork(hp Hyperparameters, seed uint64) *Network {
	return net.New(hp, NewRand(seed))
}

// LoadNetwork builds a network shaped by hp and reads its weights from path.
func LoadNetwork(hp Hyperparameters, seed uint64, path string) (*Network, error) {
	n := NewNetwork(hp, seed)
	if err := n.LoadWeights(path); err != nil {
		return nil, err
	}
	return n, nil
}

// GGUF tensor types accepted by Network.SaveGGUF.
const (
	GGUFFloat32 = net.GGMLTypeF32
	GGUFFloat16 = net.GGMLTypeF16
)

// Optimizers
func SGD(lr float64) Optimizer {
	return opt.SGD{LearningRate: lr}
}

func Adam(n *Network, lr float64) Optimizer {
	return opt.NewAdam(n, lr)
}

// NewOptimizer returns the optimizer named "adam" or "sgd" for n.
func NewOptimizer(name string, n *Network, lr float64) (Optimizer, error) {
	switch name {
	case "adam":
		return Adam(n, lr), nil
	case "sgd":
		return SGD(lr), nil
	}
	return nil, fmt.Errorf("unknown optimizer %q", name)
}

// Data
func LoadDataset(dir string, hp Hyperparameters, kind string) ([]Batch, error) {
	return LoadDatasetFormat(dir, "idx", hp, kind)
}

// LoadDatasetFormat loads the kind split ("train" or "validation") from
// dir stored as "idx" or "csv".
func LoadDatasetFormat(dir, format string, hp Hyperparameters, kind string) ([]Batch, error) {
	k, err := dataset.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	f, err := dataset.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return dataset.LoadFormat(dir, f, hp, k)
}

// Training
func NewTrainer(n *Network, o Optimizer, hp Hyperparameters, opts ...TrainerOption) *Trainer {
	return trainer.New(n, o, hp, opts...)
}

func WithLogger(l *log.Logger) TrainerOption {
	return trainer.WithLogger(l)
}

func WithMetricsPath(path string) TrainerOption {
	return trainer.WithMetricsPath(path)
}

func WithCallbacks(cbs ...Callback) TrainerOption {
	return trainer.WithCallbacks(cbs...)
}

func EarlyStopping(patience int) *trainer.EarlyStopping {
	return trainer.NewEarlyStopping(patience)
}

// Evaluate returns the percentage of batch rows n classifies correctly
// in inference mode.
func Evaluate(n *Network, batches []Batch) float64 {
	var correct, total int
	for _, b := range batches {
		correct += loss.Correct(n.Forward(b.X, false), b.Y)
		total += b.Size()
	}
	if total == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// Label returns the class index of a one-hot row.
func Label(oneHot []float64) int {
	return floats.MaxIdx(oneHot)
}

// SetParallelism configures the matrix multiply kernels for the process.
func SetParallelism(cfg ParallelConfig) {
	matrix.SetParallelism(cfg)
}

// DefaultParallelConfig returns the kernel configuration used when
// SetParallelism is never called.
func DefaultParallelConfig() ParallelConfig {
	return parallel.DefaultConfig()
}
