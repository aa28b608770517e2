package core

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/evokedbci/evoked/core/fit"
	"github.com/evokedbci/evoked/schema"
)

// GridParam is one axis of a hyper-parameter grid.
type GridParam struct {
	Name   string
	Values []float64
}

// GridPoint records the cross-validated outcome of one parameter combination.
type GridPoint struct {
	Config map[string]float64
	Mean   float64
	Std    float64
	Err    error // Non-nil when this combination failed to fit
}

// RunGridSearch cross-validates the adapter at every combination of the grid
// and leaves it permanently configured with the best-scoring one, so the
// caller's following CVFit runs at the winning settings. Combinations that
// fail to fit are skipped but kept in the returned report. Ties keep the
// earlier combination.
func RunGridSearch(m fit.Model, x, y *schema.Tensor, folds int, grid []GridParam, logw io.Writer) ([]GridPoint, error) {
	if logw == nil {
		logw = io.Discard
	}
	configs := enumerateGrid(grid)
	points := make([]GridPoint, 0, len(configs))

	best := -1
	for _, cfg := range configs {
		pt := GridPoint{Config: cfg}
		if err := applyConfig(m, grid, cfg); err != nil {
			pt.Err = err
			points = append(points, pt)
			continue
		}
		res, err := m.CVFit(x, y, folds, false)
		if err != nil {
			fmt.Fprintf(logw, "skip   %v: %v\n", cfg, err)
			pt.Err = err
			points = append(points, pt)
			continue
		}
		pt.Mean, pt.Std = stat.MeanStdDev(res.FoldScores, nil)
		if len(res.FoldScores) < 2 {
			pt.Std = 0
		}
		fmt.Fprintf(logw, "%5.3f (+/-%5.3f) for %v\n", pt.Mean, pt.Std, cfg)
		points = append(points, pt)
		if best < 0 || pt.Mean > points[best].Mean {
			best = len(points) - 1
		}
	}
	if best < 0 {
		return points, fmt.Errorf("grid search: no parameter combination fitted successfully")
	}

	winner := points[best]
	fmt.Fprintf(logw, "---\nbest %5.3f for %v\n", winner.Mean, winner.Config)
	if err := applyConfig(m, grid, winner.Config); err != nil {
		return points, err
	}
	return points, nil
}

// enumerateGrid expands the cartesian product of the grid axes, first axis
// varying slowest. An empty grid yields the single empty configuration.
func enumerateGrid(grid []GridParam) []map[string]float64 {
	configs := []map[string]float64{{}}
	for _, p := range grid {
		next := make([]map[string]float64, 0, len(configs)*len(p.Values))
		for _, base := range configs {
			for _, v := range p.Values {
				cfg := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					cfg[k] = bv
				}
				cfg[p.Name] = v
				next = append(next, cfg)
			}
		}
		configs = next
	}
	return configs
}

// applyConfig sets the parameters in grid order so repeated applications are
// deterministic.
func applyConfig(m fit.Model, grid []GridParam, cfg map[string]float64) error {
	for _, p := range grid {
		v, ok := cfg[p.Name]
		if !ok {
			continue
		}
		if err := m.SetParam(p.Name, v); err != nil {
			return fmt.Errorf("set %s=%g: %w", p.Name, v, err)
		}
	}
	return nil
}
