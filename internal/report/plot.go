package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/evokedbci/evoked/schema"
)

// DefaultPlotFile names the summary plot saved for a dataset analysis.
func DefaultPlotFile(dataset string) string {
	return dataset + "_decoding_curve.png"
}

// SaveCurvePlot writes a PNG of one or more decoding curves: error
// probability against integration length (seconds when fs is known, samples
// otherwise). Individual curves are drawn faint with the average on top.
func SaveCurvePlot(curves []*schema.DecodingCurve, ave *schema.DecodingCurve, fs float64, path string) error {
	p := plot.New()
	p.Title.Text = "Decoding curve"
	p.Y.Label.Text = "error probability"
	p.Y.Min, p.Y.Max = 0, 1
	if fs > 0 {
		p.X.Label.Text = "integration length (s)"
	} else {
		p.X.Label.Text = "integration length (samples)"
	}

	// Per-recording curves: faint grey lines
	for _, c := range curves {
		xys := curveXYs(c, fs)
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 150, G: 150, B: 150, A: 120}
		line.Width = vg.Points(0.8)
		p.Add(line)
	}

	// Average curve: solid blue line on top
	if ave != nil && !ave.Empty() {
		xys := curveXYs(ave, fs)
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = color.RGBA{R: 20, G: 80, B: 200, A: 255}
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add("average", line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save decoding curve plot: %w", err)
	}
	return nil
}

func curveXYs(c *schema.DecodingCurve, fs float64) plotter.XYs {
	if c == nil {
		return nil
	}
	var xys plotter.XYs
	for i, l := range c.IntegrationLengths {
		if i >= len(c.ProbErr) || math.IsNaN(c.ProbErr[i]) {
			continue
		}
		x := float64(l)
		if fs > 0 {
			x /= fs
		}
		xys = append(xys, plotter.XY{X: x, Y: c.ProbErr[i]})
	}
	return xys
}
