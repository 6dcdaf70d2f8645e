package io

import (
	"bytes"
	"testing"

	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"rookery/pkg/model"
)

func TestLoadData(t *testing.T) {
	params := DataParameters{
		DataFile:           "../../datasets/penguins/penguins.train",
		TargetColumn:       "species",
		CategoricalColumns: NewSet("island", "sex"),
	}

	metaData, records, dataErrors, err := LoadData(params, nil)
	require.NoError(t, err)
	require.NotNil(t, metaData)
	require.Equal(t, 80, len(records))
	require.Equal(t, 3, len(dataErrors)) // rows with NA values are skipped

	require.Equal(t, 3, metaData.TargetMap.Size())
	require.Equal(t, 6, metaData.FeatureCount())
	// 4 continuous features plus one-hot blocks for 3 islands and 2 sexes
	require.Equal(t, 9, metaData.FeatureVectorSize())
	require.Equal(t, 9, records[0].Features.Rows())
	require.Equal(t, 1, records[0].Features.Columns())

	// standardized continuous features are centered on the training data
	for index := 0; index < metaData.ContinuousFeaturesMap.Size(); index++ {
		values := make([]float64, len(records))
		for i, record := range records {
			values[i] = record.Features.At(index, 0)
		}
		require.InDelta(t, 0.0, stat.Mean(values, nil), 1e-9)
	}

	params.DataFile = "../../datasets/penguins/penguins.test"
	testMetaData, testRecords, testErrors, err := LoadData(params, metaData)
	require.NoError(t, err)
	require.Equal(t, metaData, testMetaData)
	require.Equal(t, 22, len(testRecords))
	require.Equal(t, 0, len(testErrors))
}

func TestLoadDataMissingTargetColumn(t *testing.T) {
	params := DataParameters{
		DataFile:     "../../datasets/penguins/penguins.train",
		TargetColumn: "speciez",
	}
	_, _, _, err := LoadData(params, nil)
	require.Error(t, err)
}

func TestEncodeSample(t *testing.T) {
	metaData, _, _, err := LoadData(DataParameters{
		DataFile:           "../../datasets/penguins/penguins.train",
		TargetColumn:       "species",
		CategoricalColumns: NewSet("island", "sex"),
	}, nil)
	require.NoError(t, err)

	// header order minus the target: island first, sex last
	features, err := EncodeSample(metaData, []string{"Torgersen", "39.2", "18.1", "190", "3750", "male"})
	require.NoError(t, err)
	require.Equal(t, 9, features.Rows())

	// Torgersen and male are the first values seen during training, so they
	// occupy the first entry of their one-hot blocks
	require.Equal(t, 1.0, features.At(4, 0))
	require.Equal(t, 0.0, features.At(5, 0))
	require.Equal(t, 0.0, features.At(6, 0))
	require.Equal(t, 1.0, features.At(7, 0))
	require.Equal(t, 0.0, features.At(8, 0))

	_, err = EncodeSample(metaData, []string{"Atlantis", "39.2", "18.1", "190", "3750", "male"})
	require.Error(t, err)

	_, err = EncodeSample(metaData, []string{"39.2", "18.1"})
	require.Error(t, err)
}

func TestSaveLoadModel(t *testing.T) {
	metaData, _, _, err := LoadData(DataParameters{
		DataFile:           "../../datasets/penguins/penguins.train",
		TargetColumn:       "species",
		CategoricalColumns: NewSet("island", "sex"),
	}, nil)
	require.NoError(t, err)

	net := model.NewMLP(model.MLPConfig{
		NumFeatures: metaData.FeatureVectorSize(),
		HiddenSize:  8,
		NumClasses:  metaData.TargetMap.Size(),
	})
	net.Init(rand.NewLockedRand(42))

	var buf bytes.Buffer
	require.NoError(t, SaveModel(&model.Model{MetaData: metaData, Net: net}, &buf))

	loaded, err := LoadModel(&buf)
	require.NoError(t, err)
	require.Equal(t, metaData.TargetMap, loaded.MetaData.TargetMap)
	require.Equal(t, metaData.FeatureMeans, loaded.MetaData.FeatureMeans)
	require.Equal(t, net.OutputLayer.W.Value().Data(), loaded.Net.OutputLayer.W.Value().Data())
	require.Equal(t, net.InputLayer.B.Value().Data(), loaded.Net.InputLayer.B.Value().Data())
}
