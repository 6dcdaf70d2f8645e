package pkg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nlpodyssey/spago/pkg/mat"
	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/stats"
	"github.com/stretchr/testify/require"

	"rookery/pkg/io"
	"rookery/pkg/model"
)

func twoClassModel() *model.Model {
	metaData := model.NewMetadata()
	metaData.Columns = []string{"species", "f"}
	metaData.TargetColumn = 0
	metaData.ContinuousFeaturesMap.Set(1, 0)
	metaData.ParseOrAddCategoricalTarget("A")
	metaData.ParseOrAddCategoricalTarget("B")
	return &model.Model{MetaData: metaData}
}

func TestClassificationEvaluator(t *testing.T) {
	m := twoClassModel()

	g := ag.NewGraph(ag.Rand(rand.NewLockedRand(42)))
	defer g.Clear()
	var out bytes.Buffer
	evaluator := newClassificationEvaluator(m, g, &out)

	predictsA := g.NewVariable(mat.NewVecDense([]float64{2.0, 0.5}), false)
	predictsB := g.NewVariable(mat.NewVecDense([]float64{0.1, 1.5}), false)

	evaluator.EvaluatePrediction(predictsA, &io.DataRecord{Target: 0})
	evaluator.EvaluatePrediction(predictsB, &io.DataRecord{Target: 0})
	evaluator.EvaluatePrediction(predictsB, &io.DataRecord{Target: 1})

	require.Equal(t, 3, evaluator.predictionCount)
	require.Equal(t, 1, evaluator.metrics["A"].TruePos)
	require.Equal(t, 1, evaluator.metrics["A"].FalseNeg)
	require.Equal(t, 1, evaluator.metrics["B"].TruePos)
	require.Equal(t, 1, evaluator.metrics["B"].FalsePos)

	require.Equal(t, 1, evaluator.confusion["A"]["A"])
	require.Equal(t, 1, evaluator.confusion["A"]["B"])
	require.Equal(t, 1, evaluator.confusion["B"]["B"])
	require.Equal(t, 0, evaluator.confusion["B"]["A"])

	require.True(t, evaluator.Loss() > 0)

	// one CSV line per prediction
	require.Equal(t, 3, strings.Count(out.String(), "\n"))
	require.Contains(t, out.String(), "A,B,")

	macroF1, microF1 := computeOverallF1(evaluator.metrics)
	require.True(t, microF1 > 0)
	require.True(t, macroF1 > 0)
}

func TestComputeOverallF1(t *testing.T) {
	perfect := stats.NewMetricCounter()
	perfect.TruePos = 90
	weak := stats.NewMetricCounter()
	weak.TruePos = 5
	weak.FalsePos = 5
	weak.FalseNeg = 5
	metrics := map[string]*stats.ClassMetrics{"A": perfect, "B": weak}

	macroF1, microF1 := computeOverallF1(metrics)

	// macro is the unweighted mean of the per-class F1 scores, micro pools
	// the counts, so the large class dominates micro but not macro
	require.InDelta(t, (perfect.F1Score()+weak.F1Score())/2, macroF1, 1e-9)
	require.InDelta(t, 0.75, macroF1, 1e-9)
	require.InDelta(t, 0.95, microF1, 1e-9)
}

func TestArgmax(t *testing.T) {
	index, value := argmax([]float64{0.1, 2.5, -1.0, 2.4})
	require.Equal(t, 1, index)
	require.Equal(t, 2.5, value)
}
