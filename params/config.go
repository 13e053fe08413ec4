package params

// Vocabulary maps between surface tokens and integer IDs. IDToToken is
// ordered by ID; the four reserved tokens occupy the lowest slots.
type Vocabulary struct {
	TokenToID map[string]int
	IDToToken []string
}

// Config carries every knob one run reads. It is built once from flags and
// passed down; nothing mutates it after startup.
type Config struct {
	// Model dimensions
	Size          int // GRU layer width
	NumLayers     int // stacked GRU layers
	FromVocabSize int // source vocabulary size
	ToVocabSize   int // target vocabulary size

	// Optimization
	LearningRate  float64
	DecayFactor   float64 // multiplier applied on loss plateau
	MaxGradNorm   float64 // global-norm gradient clip
	BatchSize     int
	Optimizer     string // "sgd" or "adam"
	AdamBeta1     float64
	AdamBeta2     float64
	AdamEps       float64

	// Loop control
	StepsPerCheckpoint int
	MaxSteps           int // 0 = run until interrupted
	MaxTrainDataSize   int // 0 = read everything

	// Paths and passthrough
	DataDir       string
	FromTrainData string // empty = DataDir/train.src.ids
	ToTrainData   string // empty = DataDir/train.tgt.ids
	FromDevData   string // empty = DataDir/dev.src.ids
	ToDevData     string // empty = DataDir/dev.tgt.ids
	TrainDir      string
	UseFP16       bool // recorded in checkpoints; arithmetic stays float64
}

// Defaults returns the stock configuration for quatrain training.
func Defaults() Config {
	return Config{
		Size:          300,
		NumLayers:     2,
		FromVocabSize: 8000,
		ToVocabSize:   8000,

		LearningRate: 0.5,
		DecayFactor:  0.99,
		MaxGradNorm:  5.0,
		BatchSize:    64,
		Optimizer:    "sgd",
		AdamBeta1:    0.9,
		AdamBeta2:    0.999,
		AdamEps:      1e-8,

		StepsPerCheckpoint: 200,

		DataDir:  "./data",
		TrainDir: "./tmp256",
	}
}
