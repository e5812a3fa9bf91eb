// Command digitnet trains the MNIST digit classifier or loads saved
// weights, then reports validation accuracy or classifies one sample.
//
// Usage:
//
//	digitnet -train -config configs/mnist.yaml
//	digitnet -predict 7
//	digitnet -evaluate=false -export-gguf model.gguf -f16
package main

import (
	"flag"
	"log"
	"os"

	"github.com/FlavioCFOliveira/DigitNet/digitnet"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults when empty)")
	train := flag.Bool("train", false, "Train a new model instead of loading weights")
	dataDir := flag.String("data", "", "Override MNIST data directory")
	dataFormat := flag.String("format", "", "Override data format (idx or csv)")
	weights := flag.String("weights", "", "Override weights file")
	metrics := flag.String("metrics", "", "Override metrics CSV file")
	optimizer := flag.String("optimizer", "", "Override optimizer (adam or sgd)")
	seed := flag.Uint64("seed", 0, "PRNG seed")
	epochs := flag.Int("epochs", 0, "Override max epochs")
	workers := flag.Int("workers", 0, "Matrix kernel workers (0 = physical cores)")
	evaluate := flag.Bool("evaluate", true, "Report validation accuracy")
	predict := flag.Int("predict", -1, "Classify validation sample N")
	exportGGUF := flag.String("export-gguf", "", "Also export the weights to this GGUF file")
	halfPrecision := flag.Bool("f16", false, "Store GGUF tensors as float16")

	flag.Parse()

	cfg := digitnet.DefaultConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = digitnet.LoadConfig(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	cfg.ApplyOverrides(digitnet.Overrides{
		Optimizer:   *optimizer,
		Seed:        *seed,
		DataDir:     *dataDir,
		DataFormat:  *dataFormat,
		WeightsPath: *weights,
		MetricsPath: *metrics,
		MaxEpochs:   *epochs,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if *workers > 0 {
		pc := digitnet.DefaultParallelConfig()
		pc.NumWorkers = *workers
		digitnet.SetParallelism(pc)
	}

	hp := cfg.Hyperparameters
	var network *digitnet.Network

	if *train {
		network = trainModel(cfg)
		if err := network.SaveWeights(cfg.WeightsPath); err != nil {
			log.Fatalf("failed to save weights: %v", err)
		}
		log.Printf("weights saved to %s", cfg.WeightsPath)
	} else {
		var err error
		if network, err = digitnet.LoadNetwork(hp, cfg.Seed, cfg.WeightsPath); err != nil {
			log.Fatalf("failed to load weights: %v", err)
		}
		log.Printf("weights loaded from %s", cfg.WeightsPath)
	}

	if *exportGGUF != "" {
		t := digitnet.GGUFFloat32
		if *halfPrecision {
			t = digitnet.GGUFFloat16
		}
		if err := network.SaveGGUF(*exportGGUF, t); err != nil {
			log.Fatalf("failed to export gguf: %v", err)
		}
		log.Printf("gguf exported to %s", *exportGGUF)
	}

	if !*evaluate && *predict < 0 {
		return
	}

	validation, err := digitnet.LoadDatasetFormat(cfg.DataDir, cfg.DataFormat, hp, "validation")
	if err != nil {
		log.Fatalf("failed to load validation data: %v", err)
	}

	if *evaluate {
		log.Printf("validation accuracy: %.2f %% over %d samples", digitnet.Evaluate(network, validation), len(validation))
	}

	if *predict >= 0 {
		if *predict >= len(validation) {
			log.Fatalf("sample %d out of range [0, %d)", *predict, len(validation))
		}
		b := validation[*predict]
		log.Printf("sample %d: predicted %d, label %d", *predict, network.Predict(b.X), digitnet.Label(b.Y.Row(0)))
	}
}

func trainModel(cfg *digitnet.Config) *digitnet.Network {
	hp := cfg.Hyperparameters

	train, err := digitnet.LoadDatasetFormat(cfg.DataDir, cfg.DataFormat, hp, "train")
	if err != nil {
		log.Fatalf("failed to load training data: %v", err)
	}
	validation, err := digitnet.LoadDatasetFormat(cfg.DataDir, cfg.DataFormat, hp, "validation")
	if err != nil {
		log.Fatalf("failed to load validation data: %v", err)
	}
	log.Printf("data imported: %d training batches, %d validation samples", len(train), len(validation))

	network := digitnet.NewNetwork(hp, cfg.Seed)
	optimizer, err := digitnet.NewOptimizer(cfg.Optimizer, network, hp.LearningRate)
	if err != nil {
		log.Fatalf("invalid optimizer: %v", err)
	}

	opts := []digitnet.TrainerOption{digitnet.WithLogger(log.New(os.Stdout, "", log.LstdFlags))}
	if cfg.StoreMetrics && cfg.MetricsPath != "" {
		opts = append(opts, digitnet.WithMetricsPath(cfg.MetricsPath))
	}

	res, err := digitnet.NewTrainer(network, optimizer, hp, opts...).Run(train, validation, cfg.StoreMetrics)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	log.Printf("run %s finished after %d epochs", res.RunID, res.Epochs)
	return network
}
