package pkg

import (
	"fmt"
	"os"

	"github.com/nlpodyssey/spago/pkg/ml/nn/linear"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rookery/pkg/io"
)

// Inspect loads a saved model and logs the shape and weight statistics of
// each layer.
func Inspect(modelFileName string) error {
	modelFile, err := os.Open(modelFileName)
	if err != nil {
		return fmt.Errorf("error opening model file %s: %w", modelFileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return fmt.Errorf("error loading model from file %s: %w", modelFileName, err)
	}

	layers := []struct {
		name  string
		layer *linear.Model
	}{
		{"input", m.Net.InputLayer},
		{"hidden", m.Net.HiddenLayer},
		{"output", m.Net.OutputLayer},
	}

	for _, l := range layers {
		weights := l.layer.W.Value()
		data := weights.Data()
		mean, stdDev := stat.MeanStdDev(data, nil)
		log.Info().
			Str("Layer", l.name).
			Int("InputSize", weights.Columns()).
			Int("OutputSize", weights.Rows()).
			Int("Parameters", len(data)+len(l.layer.B.Value().Data())).
			Float64("Mean", mean).
			Float64("StdDev", stdDev).
			Float64("Min", floats.Min(data)).
			Float64("Max", floats.Max(data)).
			Msg("Weights")
	}

	return nil
}
