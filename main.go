package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manningwu07/shigen/IO"
	"github.com/manningwu07/shigen/bucket"
	"github.com/manningwu07/shigen/params"
)

// Pairs train in the smallest bucket that fits them and are padded up to
// the bucket lengths. See bucket.Sampler for the padding layout.
var buckets = []bucket.Bucket{
	{In: 5, Out: 6},
	{In: 6, Out: 7},
	{In: 8, Out: 9},
	{In: 15, Out: 16},
}

var (
	learningRate       float64
	decayFactor        float64
	maxGradientNorm    float64
	batchSize          int
	layerSize          int
	numLayers          int
	fromVocabSize      int
	toVocabSize        int
	stepsPerCheckpoint int
	maxSteps           int
	maxTrainDataSize   int
	dataDir            string
	fromTrainData      string
	toTrainData        string
	fromDevData        string
	toDevData          string
	trainDir           string
	optimizer          string
	useFP16            bool
	decodeFlag         bool
	prepareFlag        bool
	selfTestFlag       bool
)

func init() {
	d := params.Defaults()
	flag.Float64Var(&learningRate, "learning_rate", d.LearningRate, "Learning rate.")
	flag.Float64Var(&decayFactor, "learning_rate_decay_factor", d.DecayFactor, "Learning rate decays by this much.")
	flag.Float64Var(&maxGradientNorm, "max_gradient_norm", d.MaxGradNorm, "Clip gradients to this norm.")
	flag.IntVar(&batchSize, "batch_size", d.BatchSize, "Batch size to use during training.")
	flag.IntVar(&layerSize, "size", d.Size, "Size of each model layer.")
	flag.IntVar(&numLayers, "num_layers", d.NumLayers, "Number of layers in the model.")
	flag.IntVar(&fromVocabSize, "from_vocab_size", d.FromVocabSize, "Source sentence vocabulary size.")
	flag.IntVar(&toVocabSize, "to_vocab_size", d.ToVocabSize, "Target sentence vocabulary size.")
	flag.IntVar(&stepsPerCheckpoint, "steps_per_checkpoint", d.StepsPerCheckpoint, "How many training steps to do per checkpoint.")
	flag.IntVar(&maxSteps, "max_steps", 0, "Stop training after this many steps (0: no limit).")
	flag.IntVar(&maxTrainDataSize, "max_train_data_size", 0, "Limit on the size of training data (0: no limit).")
	flag.StringVar(&dataDir, "data_dir", d.DataDir, "Data directory.")
	flag.StringVar(&fromTrainData, "from_train_data", "", "Source training data.")
	flag.StringVar(&toTrainData, "to_train_data", "", "Target training data.")
	flag.StringVar(&fromDevData, "from_dev_data", "", "Source development data.")
	flag.StringVar(&toDevData, "to_dev_data", "", "Target development data.")
	flag.StringVar(&trainDir, "train_dir", d.TrainDir, "Training directory.")
	flag.StringVar(&optimizer, "optimizer", d.Optimizer, "Parameter update rule: sgd or adam.")
	flag.BoolVar(&useFP16, "use_fp16", false, "Train using fp16 instead of fp32.")
	flag.BoolVar(&decodeFlag, "decode", false, "Run interactive decoding.")
	flag.BoolVar(&prepareFlag, "prepare", false, "Train the tokenizer and encode the raw corpus.")
	flag.BoolVar(&selfTestFlag, "self_test", false, "Run a short self-test.")
}

func buildConfig() params.Config {
	cfg := params.Defaults()
	cfg.LearningRate = learningRate
	cfg.DecayFactor = decayFactor
	cfg.MaxGradNorm = maxGradientNorm
	cfg.BatchSize = batchSize
	cfg.Size = layerSize
	cfg.NumLayers = numLayers
	cfg.FromVocabSize = fromVocabSize
	cfg.ToVocabSize = toVocabSize
	cfg.StepsPerCheckpoint = stepsPerCheckpoint
	cfg.MaxSteps = maxSteps
	cfg.MaxTrainDataSize = maxTrainDataSize
	cfg.DataDir = dataDir
	cfg.FromTrainData = fromTrainData
	cfg.ToTrainData = toTrainData
	cfg.FromDevData = fromDevData
	cfg.ToDevData = toDevData
	cfg.TrainDir = trainDir
	cfg.Optimizer = optimizer
	cfg.UseFP16 = useFP16
	return cfg
}

func main() {
	flag.Parse()
	cfg := buildConfig()
	rng := rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	var err error
	switch {
	case selfTestFlag:
		err = selfTest(rng)
	case prepareFlag:
		err = prepare(cfg)
	case decodeFlag:
		err = decode(cfg, rng, os.Stdin, os.Stdout)
	default:
		err = train(cfg, rng)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// prepare builds the tokenizer plus the ID corpora that train and decode
// read. Raw text lives beside the outputs in cfg.DataDir.
func prepare(cfg params.Config) error {
	fmt.Println("Building vocab & encoding corpora...")

	tokPath := filepath.Join(cfg.DataDir, "tokenizer.json")
	corpora := []string{
		filepath.Join(cfg.DataDir, "train.src.txt"),
		filepath.Join(cfg.DataDir, "train.tgt.txt"),
		filepath.Join(cfg.DataDir, "dev.src.txt"),
		filepath.Join(cfg.DataDir, "dev.tgt.txt"),
	}

	// One shared vocabulary feeds both embedding tables, so it has to fit
	// the smaller of the two.
	vocabSize := cfg.FromVocabSize
	if cfg.ToVocabSize < vocabSize {
		vocabSize = cfg.ToVocabSize
	}

	if fileExists(tokPath) {
		fmt.Println("⚡ Using cached tokenizer.json")
	}
	t, err := IO.TrainOrLoadBPE(tokPath, vocabSize, corpora)
	if err != nil {
		return err
	}

	vocab, err := IO.VocabFromTokenizer(t)
	if err != nil {
		return err
	}
	if err := IO.SaveVocab(filepath.Join(cfg.DataDir, "vocab.txt"), vocab); err != nil {
		return err
	}
	fmt.Println("✅ Exported vocab.txt")

	for _, c := range corpora {
		out := strings.TrimSuffix(c, ".txt") + ".ids"
		if err := IO.EncodeFile(t, c, out); err != nil {
			return err
		}
		fmt.Printf("✅ Encoded %s\n", out)
	}
	fmt.Println("✨ Prepare complete")
	return nil
}

// fileExists true if path exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
