package pkg

import (
	"fmt"
	"os"
	"strings"

	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rookery/pkg/io"
)

// Predict loads a saved model and classifies a single sample given as
// comma-separated feature values in header order (target column omitted).
func Predict(modelFileName, sample string) error {
	modelFile, err := os.Open(modelFileName)
	if err != nil {
		return fmt.Errorf("error opening model file %s: %w", modelFileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return fmt.Errorf("error loading model from file %s: %w", modelFileName, err)
	}

	features, err := io.EncodeSample(m.MetaData, strings.Split(sample, ","))
	if err != nil {
		return fmt.Errorf("error encoding sample: %w", err)
	}

	g := ag.NewGraph(ag.Rand(rand.NewLockedRand(42)))
	defer g.Clear()
	proc := m.Net.NewProc(nn.Context{Graph: g, Mode: nn.Inference})
	logits := proc.Forward(g.NewVariable(features, false))[0]
	probs := g.Softmax(logits).Value().Data()

	class, probability := argmax(probs)
	probabilities := zerolog.Dict()
	for i, name := range m.MetaData.ClassNames() {
		probabilities = probabilities.Float64(name, probs[i])
	}
	log.Info().
		Str("Class", m.MetaData.TargetMap.IndexToName[class]).
		Float64("Probability", probability).
		Dict("Probabilities", probabilities).
		Msg("Prediction")

	return nil
}
