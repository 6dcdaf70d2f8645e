package pkg

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLossPlot(t *testing.T) {
	dir, err := ioutil.TempDir("", "rookery-plot")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	history := []EpochStats{
		{Epoch: 0, TrainingLoss: 1.0, ValidationLoss: 1.1},
		{Epoch: 1, TrainingLoss: 0.7, ValidationLoss: 0.8},
		{Epoch: 2, TrainingLoss: 0.5, ValidationLoss: 0.6},
	}

	fileName := filepath.Join(dir, "loss.svg")
	require.NoError(t, SaveLossPlot(history, true, fileName))

	info, err := os.Stat(fileName)
	require.NoError(t, err)
	require.True(t, info.Size() > 0)

	// without a validation split only the train curve is drawn
	fileName = filepath.Join(dir, "train-only.svg")
	require.NoError(t, SaveLossPlot(history, false, fileName))
	_, err = os.Stat(fileName)
	require.NoError(t, err)
}
