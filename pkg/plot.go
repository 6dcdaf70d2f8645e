package pkg

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SaveLossPlot renders the per-epoch loss curves to an image file. The
// format is inferred from the file extension.
func SaveLossPlot(history []EpochStats, withValidation bool, fileName string) error {
	p, err := plot.New()
	if err != nil {
		return fmt.Errorf("error creating plot: %w", err)
	}
	p.Title.Text = "Training loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "cross entropy"
	p.Add(plotter.NewGrid())

	trainLoss := make(plotter.XYs, len(history))
	validationLoss := make(plotter.XYs, len(history))
	for i, stats := range history {
		trainLoss[i].X = float64(stats.Epoch)
		trainLoss[i].Y = stats.TrainingLoss
		validationLoss[i].X = float64(stats.Epoch)
		validationLoss[i].Y = stats.ValidationLoss
	}

	if withValidation {
		err = plotutil.AddLines(p, "train", trainLoss, "validation", validationLoss)
	} else {
		err = plotutil.AddLines(p, "train", trainLoss)
	}
	if err != nil {
		return fmt.Errorf("error adding loss lines: %w", err)
	}

	return p.Save(10*vg.Inch, 6*vg.Inch, fileName)
}
