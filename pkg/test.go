package pkg

import (
	"fmt"
	gio "io"
	"os"
	"sort"

	"github.com/nlpodyssey/spago/pkg/mat"
	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/losses"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rookery/pkg/io"
	"rookery/pkg/model"
)

type NoopWriter struct{}

func (x NoopWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func printDataErrors(errors []io.DataError) {
	for _, err := range errors {
		log.Error().Msgf("Error parsing data at line %d: %s", err.Line, err.Error)
	}
}

// Test runs a saved model over a labeled data file and reports per-class
// metrics, macro/micro F1, the confusion matrix and the mean loss. When
// outputFileName is given, one prediction per row is also written as CSV.
func Test(modelFileName, inputFileName, outputFileName string) error {
	modelFile, err := os.Open(modelFileName)
	if err != nil {
		return fmt.Errorf("error opening model file %s: %w", modelFileName, err)
	}
	defer modelFile.Close()

	m, err := io.LoadModel(modelFile)
	if err != nil {
		return fmt.Errorf("error loading model from file %s: %w", modelFileName, err)
	}

	_, records, dataErrors, err := io.LoadData(io.DataParameters{
		DataFile:     inputFileName,
		TargetColumn: m.MetaData.Columns[m.MetaData.TargetColumn],
	}, m.MetaData)
	if err != nil {
		return fmt.Errorf("error loading data from %s: %w", inputFileName, err)
	}
	printDataErrors(dataErrors)
	if len(records) == 0 {
		return fmt.Errorf("no data to test in %s", inputFileName)
	}

	return testInternal(m, io.NewDataSet(records, 1, nil), outputFileName)
}

type classificationEvaluator struct {
	predictionCount int
	loss            float64
	metrics         map[string]*stats.ClassMetrics
	confusion       map[string]map[string]int
	model           *model.Model
	g               *ag.Graph
	outputWriter    gio.Writer
}

type classificationPrediction struct {
	predictedClass string
	label          string
	labelValue     float64
	logits         mat.Matrix
	maxLogit       float64
}

func newClassificationEvaluator(m *model.Model, g *ag.Graph, outputWriter gio.Writer) *classificationEvaluator {
	confusion := map[string]map[string]int{}
	for _, label := range m.MetaData.ClassNames() {
		confusion[label] = map[string]int{}
	}
	return &classificationEvaluator{
		metrics:      map[string]*stats.ClassMetrics{},
		confusion:    confusion,
		model:        m,
		g:            g,
		outputWriter: outputWriter,
	}
}

func (c *classificationEvaluator) EvaluatePrediction(node ag.Node, record *io.DataRecord) {
	prediction := c.decode(node, record)
	c.loss += losses.CrossEntropy(c.g, c.g.NewVariable(prediction.logits, false), int(prediction.labelValue)).ScalarValue()
	c.predictionCount++

	fmt.Fprintf(c.outputWriter, "%s,%s,%.5f\n", prediction.label, prediction.predictedClass, prediction.maxLogit)

	c.confusion[prediction.label][prediction.predictedClass]++

	labelClassMetrics, ok := c.metrics[prediction.label]
	if !ok {
		labelClassMetrics = stats.NewMetricCounter()
		c.metrics[prediction.label] = labelClassMetrics
	}
	predictedClassMetrics, ok := c.metrics[prediction.predictedClass]
	if !ok {
		predictedClassMetrics = stats.NewMetricCounter()
		c.metrics[prediction.predictedClass] = predictedClassMetrics
	}

	if prediction.label == prediction.predictedClass {
		labelClassMetrics.IncTruePos()
	} else {
		labelClassMetrics.IncFalseNeg()
		predictedClassMetrics.IncFalsePos()
	}
}

func (c *classificationEvaluator) LogMetrics() {
	// Sort class names for deterministic output
	sortedClasses := sortClasses(c.metrics)
	for _, class := range sortedClasses {
		result := c.metrics[class]
		log.Info().Str("Class", class).
			Int("TP", result.TruePos).
			Int("FP", result.FalsePos).
			Int("TN", result.TrueNeg).
			Int("FN", result.FalseNeg).
			Float64("Precision", result.Precision()).
			Float64("Recall", result.Recall()).
			Float64("F1", result.F1Score()).
			Msg("")
	}

	macroF1, microF1 := computeOverallF1(c.metrics)
	log.Info().Float64("MacroF1", macroF1).Float64("MicroF1", microF1).Msg("")

	classNames := c.model.MetaData.ClassNames()
	sort.Strings(classNames)
	for _, label := range classNames {
		row := zerolog.Dict()
		for _, predicted := range classNames {
			row = row.Int(predicted, c.confusion[label][predicted])
		}
		log.Info().Str("Label", label).Dict("Predicted", row).Msg("Confusion")
	}
}

func (c *classificationEvaluator) Loss() float64 {
	return c.loss / float64(c.predictionCount)
}

func (c *classificationEvaluator) decode(modelOutput ag.Node, record *io.DataRecord) classificationPrediction {
	class, logit := argmax(modelOutput.Value().Data())
	className := c.model.MetaData.TargetMap.IndexToName[class]
	label := c.model.MetaData.TargetMap.IndexToName[int(record.Target)]
	return classificationPrediction{
		predictedClass: className,
		label:          label,
		labelValue:     record.Target,
		logits:         modelOutput.Value().Clone(),
		maxLogit:       logit,
	}
}

func testInternal(m *model.Model, data *io.DataSet, outputFileName string) error {
	var outputWriter gio.Writer
	if outputFileName != "" {
		outputFile, err := os.Create(outputFileName)
		if err != nil {
			return fmt.Errorf("error opening output file %s: %w", outputFileName, err)
		}
		defer outputFile.Close()
		outputWriter = outputFile
	} else {
		outputWriter = NoopWriter{}
	}

	g := ag.NewGraph(ag.Rand(rand.NewLockedRand(42)))
	evaluator := newClassificationEvaluator(m, g, outputWriter)

	data.ResetOrder(io.OriginalOrder)
	for {
		batch := data.Next()
		if len(batch) == 0 {
			break
		}
		predictions := predict(g, m, batch)
		for i, prediction := range predictions {
			evaluator.EvaluatePrediction(prediction, batch[i])
		}
		g.Clear()
	}
	evaluator.LogMetrics()
	log.Info().Float64("Loss", evaluator.Loss()).Msg("")

	return nil
}

func computeOverallF1(metrics map[string]*stats.ClassMetrics) (float64, float64) {
	macroF1 := 0.0
	for _, metric := range metrics {
		macroF1 += metric.F1Score()
	}
	macroF1 /= float64(len(metrics))

	micro := stats.NewMetricCounter()
	for _, result := range metrics {
		micro.TruePos += result.TruePos
		micro.FalsePos += result.FalsePos
		micro.FalseNeg += result.FalseNeg
		micro.TrueNeg += result.TrueNeg
	}
	return macroF1, micro.F1Score()
}

func sortClasses(metrics map[string]*stats.ClassMetrics) []string {
	result := make([]string, 0, len(metrics))
	for class := range metrics {
		result = append(result, class)
	}
	sort.Strings(result)
	return result
}

func predict(g *ag.Graph, m *model.Model, data io.DataBatch) []ag.Node {
	input := createInputNodes(data, g)
	proc := m.Net.NewProc(nn.Context{Graph: g, Mode: nn.Inference})
	return proc.Forward(input...)
}

func argmax(data []float64) (int, float64) {
	maxInd := 0
	for i := range data {
		if data[i] > data[maxInd] {
			maxInd = i
		}
	}
	return maxInd, data[maxInd]
}
