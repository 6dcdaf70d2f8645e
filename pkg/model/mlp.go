package model

import (
	"github.com/nlpodyssey/spago/pkg/mat/rand"
	"github.com/nlpodyssey/spago/pkg/ml/ag"
	"github.com/nlpodyssey/spago/pkg/ml/initializers"
	"github.com/nlpodyssey/spago/pkg/ml/nn"
	"github.com/nlpodyssey/spago/pkg/ml/nn/linear"
)

var (
	_ nn.Model     = &MLP{}
	_ nn.Processor = &MLPProcessor{}
)

type MLPConfig struct {
	NumFeatures int
	HiddenSize  int
	NumClasses  int
}

// MLP is a 3-layer feed-forward classifier: two ReLU hidden layers followed
// by a linear output layer producing one logit per class.
type MLP struct {
	MLPConfig
	InputLayer  *linear.Model
	HiddenLayer *linear.Model
	OutputLayer *linear.Model
}

func NewMLP(config MLPConfig) *MLP {
	return &MLP{
		MLPConfig:   config,
		InputLayer:  linear.New(config.NumFeatures, config.HiddenSize),
		HiddenLayer: linear.New(config.HiddenSize, config.HiddenSize),
		OutputLayer: linear.New(config.HiddenSize, config.NumClasses),
	}
}

func (m *MLP) Init(generator *rand.LockedRand) {
	gain := initializers.Gain(ag.OpReLU)
	initializers.XavierUniform(m.InputLayer.W.Value(), gain, generator)
	initializers.XavierUniform(m.HiddenLayer.W.Value(), gain, generator)
	initializers.XavierUniform(m.OutputLayer.W.Value(), initializers.Gain(ag.OpIdentity), generator)
}

type MLPProcessor struct {
	nn.BaseProcessor
	inputProcessor  nn.Processor
	hiddenProcessor nn.Processor
	outputProcessor nn.Processor
}

func (m *MLP) NewProc(ctx nn.Context) nn.Processor {
	return &MLPProcessor{
		BaseProcessor: nn.BaseProcessor{
			Model:             m,
			Mode:              ctx.Mode,
			Graph:             ctx.Graph,
			FullSeqProcessing: true,
		},
		inputProcessor:  m.InputLayer.NewProc(ctx),
		hiddenProcessor: m.HiddenLayer.NewProc(ctx),
		outputProcessor: m.OutputLayer.NewProc(ctx),
	}
}

// Forward maps each feature vector to a vector of class logits.
func (p *MLPProcessor) Forward(xs ...ag.Node) []ag.Node {
	g := p.Graph
	ys := make([]ag.Node, len(xs))
	for i, x := range xs {
		h := g.ReLU(p.inputProcessor.Forward(x)[0])
		h = g.ReLU(p.hiddenProcessor.Forward(h)[0])
		ys[i] = p.outputProcessor.Forward(h)[0]
	}
	return ys
}
