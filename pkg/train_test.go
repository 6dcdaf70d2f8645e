package pkg

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rookery/pkg/model"
)

func writeTrainFile(t *testing.T, dir, content string) string {
	fileName := filepath.Join(dir, "data.train")
	require.NoError(t, ioutil.WriteFile(fileName, []byte(content), 0644))
	return fileName
}

func TestTrainSplitLeavesNoTrainingData(t *testing.T) {
	dir, err := ioutil.TempDir("", "rookery-train")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	trainFile := writeTrainFile(t, dir, "species,bill_length_mm\nAdelie,39.2\n")

	err = Train(trainFile, "", filepath.Join(dir, "tiny.model"), "species",
		model.MLPConfig{HiddenSize: 4},
		TrainingParameters{
			BatchSize:       4,
			NumEpochs:       1,
			LearningRate:    0.01,
			ReportInterval:  10,
			RndSeed:         42,
			ValidationSplit: 0.2,
		})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no training data")
}

func TestTrainZeroReportInterval(t *testing.T) {
	dir, err := ioutil.TempDir("", "rookery-train")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	trainFile := writeTrainFile(t, dir,
		"species,bill_length_mm,bill_depth_mm\n"+
			"Adelie,39.2,18.1\n"+
			"Gentoo,46.5,14.5\n"+
			"Adelie,38.7,18.4\n"+
			"Gentoo,47.1,14.2\n"+
			"Adelie,40.0,17.9\n"+
			"Gentoo,45.9,14.8\n")
	modelFile := filepath.Join(dir, "tiny.model")

	err = Train(trainFile, "", modelFile, "species",
		model.MLPConfig{HiddenSize: 4},
		TrainingParameters{
			BatchSize:      2,
			NumEpochs:      2,
			LearningRate:   0.01,
			ReportInterval: 0,
			RndSeed:        42,
		})
	require.NoError(t, err)

	info, err := os.Stat(modelFile)
	require.NoError(t, err)
	require.True(t, info.Size() > 0)
}
