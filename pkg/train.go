package pkg

import (
	"fmt"
	mrand "math/rand"
	"os"

	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/losses"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd"
	"github.com/nlpodyssey/spago/pkg/ml/optimizers/gd/adam"
	"github.com/rs/zerolog/log"

	"rookery/pkg/io"
	"rookery/pkg/model"
)

type TrainingParameters struct {
	BatchSize          int
	NumEpochs          int
	LearningRate       float64
	ReportInterval     int
	RndSeed            uint64
	CategoricalColumns []string
	ValidationSplit    float64
	Oversample         bool
	LossPlotFile       string
}

// EpochStats records the loss curve point for one epoch.
type EpochStats struct {
	Epoch          int
	TrainingLoss   float64
	ValidationLoss float64
}

type Trainer struct {
	params    TrainingParameters
	optimizer *gd.GradientDescent
	model     *model.MLP
	history   []EpochStats
}

// Train fits an MLP classifier on the training file, saves the trained model
// together with its encoding metadata, optionally writes the loss-curve plot,
// and evaluates on the test file when one is given.
func Train(trainFile, testFile, outputFileName, targetColumn string, config model.MLPConfig, trainingParams TrainingParameters) error {
	t := &Trainer{params: trainingParams}

	rndGen := rand.NewLockedRand(trainingParams.RndSeed)

	metaData, records, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:           trainFile,
		TargetColumn:       targetColumn,
		CategoricalColumns: io.NewSet(trainingParams.CategoricalColumns...),
	}, nil)
	if err != nil {
		return fmt.Errorf("error reading training data: %w", err)
	}
	printDataErrors(dataErrors)
	if len(records) == 0 {
		return fmt.Errorf("no usable rows in %s", trainFile)
	}

	rnd := mrand.New(mrand.NewSource(int64(trainingParams.RndSeed)))
	dataSet := io.NewDataSet(records, trainingParams.BatchSize, rnd)

	trainSet := dataSet
	var validationSet *io.DataSet
	if trainingParams.ValidationSplit > 0 {
		trainSet, validationSet = dataSet.TrainTestSplit(trainingParams.ValidationSplit)
		if trainSet.Size() == 0 {
			return fmt.Errorf("validation split %.2f leaves no training data (%d usable rows in %s)",
				trainingParams.ValidationSplit, dataSet.Size(), trainFile)
		}
		log.Info().Int("Training", trainSet.Size()).Int("Validation", validationSet.Size()).Msg("Split training data")
	}
	if trainingParams.Oversample {
		before := trainSet.Size()
		trainSet = trainSet.Oversample()
		log.Info().Int("Before", before).Int("After", trainSet.Size()).Msg("Oversampled training classes")
	}

	//Overwrite values that are only known after parsing the dataset
	config.NumFeatures = metaData.FeatureVectorSize()
	config.NumClasses = metaData.TargetMap.Size()

	t.model = model.NewMLP(config)
	t.model.Init(rndGen)

	updaterConfig := adam.NewDefaultConfig()
	updaterConfig.StepSize = trainingParams.LearningRate
	updater := adam.New(updaterConfig)
	const GradientClipThreshold = 2000.0 // TODO: get from configuration
	t.optimizer = gd.NewOptimizer(updater, nn.NewDefaultParamsIterator(t.model),
		gd.ClipGradByValue(GradientClipThreshold))

	for epoch := 0; epoch < trainingParams.NumEpochs; epoch++ {
		t.optimizer.IncEpoch()
		trainSet.ResetOrder(io.RandomOrder)

		epochLoss := 0.0
		batchCount := 0
		for i := 0; ; i++ {
			batch := trainSet.Next()
			if len(batch) == 0 {
				break
			}
			batchLoss := t.trainBatch(batch)
			t.optimizer.Optimize()
			epochLoss += batchLoss
			batchCount++
			if t.params.ReportInterval > 0 && i%t.params.ReportInterval == 0 {
				log.Debug().Int("Epoch", epoch).Int("Batch", i).Float64("Loss", batchLoss).Msg("")
			}
		}

		stats := EpochStats{Epoch: epoch, TrainingLoss: epochLoss / float64(batchCount)}
		event := log.Info().Int("Epoch", epoch).Float64("TrainLoss", stats.TrainingLoss)
		if validationSet != nil {
			stats.ValidationLoss = meanLoss(t.model, validationSet)
			event = event.Float64("ValidationLoss", stats.ValidationLoss)
		}
		event.Msg("")
		t.history = append(t.history, stats)
	}

	m := model.Model{
		MetaData: metaData,
		Net:      t.model,
	}

	outputFile, err := os.Create(outputFileName)
	if err != nil {
		return fmt.Errorf("error creating output file %s: %w", outputFileName, err)
	}
	defer outputFile.Close()

	if err := io.SaveModel(&m, outputFile); err != nil {
		return fmt.Errorf("error saving model to %s: %w", outputFileName, err)
	}

	if trainingParams.LossPlotFile != "" {
		if err := SaveLossPlot(t.history, validationSet != nil, trainingParams.LossPlotFile); err != nil {
			return fmt.Errorf("error writing loss plot to %s: %w", trainingParams.LossPlotFile, err)
		}
		log.Info().Str("File", trainingParams.LossPlotFile).Msg("Wrote loss plot")
	}

	evalSet := trainSet
	if validationSet != nil {
		evalSet = validationSet
	}
	if testFile != "" {
		_, testRecords, testErrors, err := io.LoadData(io.DataParameters{
			DataFile:     testFile,
			TargetColumn: targetColumn,
		}, metaData)
		if err != nil {
			return fmt.Errorf("error loading data from %s: %w", testFile, err)
		}
		printDataErrors(testErrors)
		evalSet = io.NewDataSet(testRecords, 1, rnd)
	}

	return testInternal(&m, evalSet, "")
}

func (t *Trainer) trainBatch(batch io.DataBatch) float64 {
	t.optimizer.IncBatch()

	g := ag.NewGraph(ag.Rand(rand.NewLockedRand(t.params.RndSeed)))
	defer g.Clear()
	input := createInputNodes(batch, g)
	proc := t.model.NewProc(nn.Context{Graph: g, Mode: nn.Training})
	logits := proc.Forward(input...)

	var loss ag.Node
	for i := range batch {
		loss = g.Add(loss, losses.CrossEntropy(g, logits[i], int(batch[i].Target)))
	}
	loss = g.Div(loss, g.NewScalar(float64(len(batch))))

	g.Backward(loss)
	return loss.ScalarValue()
}

// meanLoss computes the average cross-entropy over a dataset without
// touching gradients.
func meanLoss(m *model.MLP, data *io.DataSet) float64 {
	data.ResetOrder(io.OriginalOrder)
	total := 0.0
	count := 0
	for {
		batch := data.Next()
		if len(batch) == 0 {
			break
		}
		g := ag.NewGraph(ag.Rand(rand.NewLockedRand(42)))
		proc := m.NewProc(nn.Context{Graph: g, Mode: nn.Inference})
		logits := proc.Forward(createInputNodes(batch, g)...)
		for i := range batch {
			total += losses.CrossEntropy(g, logits[i], int(batch[i].Target)).ScalarValue()
			count++
		}
		g.Clear()
	}
	return total / float64(count)
}

func createInputNodes(batch io.DataBatch, g *ag.Graph) []ag.Node {
	input := make([]ag.Node, len(batch))
	for i := range input {
		input[i] = g.NewVariable(batch[i].Features, false)
	}
	return input
}
