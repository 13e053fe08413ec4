package seq2seq

import (
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/shigen/params"
)

const (
	ckptPrefix  = "shi_rnn.ckp"
	pointerFile = "checkpoint"
)

// checkpointData is the gob image of a model: dimensions to validate
// against, the training state, and every parameter flattened in params()
// order. Adam moments ride along when the run uses them.
type checkpointData struct {
	SrcVocab, TgtVocab int
	Size, NumLayers    int
	LearningRate       float64
	GlobalStep         int
	Optimizer          string
	UseFP16            bool
	Weights            [][]float64
	AdamM, AdamV       [][]float64
	AdamStep           int
}

// Save writes a snapshot tagged with the current global step and repoints
// the latest-checkpoint file at it. Both writes go through a temp file and
// rename so a crash never leaves a torn checkpoint behind. Returns the
// snapshot path.
func (m *Model) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("checkpoint dir: %w", err)
	}
	data := checkpointData{
		SrcVocab:     m.SrcVocab,
		TgtVocab:     m.TgtVocab,
		Size:         m.Size,
		NumLayers:    m.NumLayers,
		LearningRate: m.LearningRate,
		GlobalStep:   m.GlobalStep,
		Optimizer:    m.Optimizer,
		UseFP16:      m.UseFP16,
		AdamStep:     m.adamStep,
	}
	for _, p := range m.params() {
		data.Weights = append(data.Weights, flatCopy(p.W))
	}
	if m.adamM != nil {
		for i := range m.adamM {
			data.AdamM = append(data.AdamM, flatCopy(m.adamM[i]))
			data.AdamV = append(data.AdamV, flatCopy(m.adamV[i]))
		}
	}

	name := fmt.Sprintf("%s-%d", ckptPrefix, m.GlobalStep)
	path := filepath.Join(dir, name)
	if err := writeGob(path, &data); err != nil {
		return "", err
	}
	if err := writeFileAtomic(filepath.Join(dir, pointerFile), []byte(name+"\n")); err != nil {
		return "", fmt.Errorf("write checkpoint pointer: %w", err)
	}
	return path, nil
}

// Latest resolves the newest snapshot path recorded under dir, or "" when
// no pointer file exists yet.
func Latest(dir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, pointerFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read checkpoint pointer: %w", err)
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return "", fmt.Errorf("checkpoint pointer in %s is empty", dir)
	}
	return filepath.Join(dir, name), nil
}

// Restore loads the newest snapshot under dir into a model built from cfg.
// When dir holds no checkpoint yet it returns a fresh model and an empty
// path. A pointer to a missing or mismatched snapshot is an error.
func Restore(cfg params.Config, rng *rand.Rand, dir string) (*Model, string, error) {
	path, err := Latest(dir)
	if err != nil {
		return nil, "", err
	}
	m := NewModel(cfg, rng)
	if path == "" {
		return m, "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()
	var data checkpointData
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, "", fmt.Errorf("decode checkpoint %s: %w", path, err)
	}

	if data.SrcVocab != m.SrcVocab || data.TgtVocab != m.TgtVocab ||
		data.Size != m.Size || data.NumLayers != m.NumLayers {
		return nil, "", fmt.Errorf(
			"checkpoint %s holds a %d-layer size-%d model over %d/%d vocab, config wants %d-layer size-%d over %d/%d",
			path, data.NumLayers, data.Size, data.SrcVocab, data.TgtVocab,
			m.NumLayers, m.Size, m.SrcVocab, m.TgtVocab)
	}
	ps := m.params()
	if len(data.Weights) != len(ps) {
		return nil, "", fmt.Errorf("checkpoint %s holds %d tensors, want %d", path, len(data.Weights), len(ps))
	}
	for i, p := range ps {
		raw := p.W.RawMatrix()
		if len(data.Weights[i]) != len(raw.Data) {
			return nil, "", fmt.Errorf("checkpoint %s tensor %d holds %d values, want %d",
				path, i, len(data.Weights[i]), len(raw.Data))
		}
		copy(raw.Data, data.Weights[i])
	}
	m.LearningRate = data.LearningRate
	m.GlobalStep = data.GlobalStep

	if m.Optimizer == "adam" && len(data.AdamM) == len(ps) {
		m.initAdamIfNeeded(ps)
		m.adamStep = data.AdamStep
		for i := range ps {
			copy(m.adamM[i].RawMatrix().Data, data.AdamM[i])
			copy(m.adamV[i].RawMatrix().Data, data.AdamV[i])
		}
	}
	return m, path, nil
}

func flatCopy(m *mat.Dense) []float64 {
	raw := m.RawMatrix().Data
	out := make([]float64, len(raw))
	copy(out, raw)
	return out
}

func writeGob(path string, data *checkpointData) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close checkpoint: %w", err)
	}
	return os.Rename(tmp, path)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
