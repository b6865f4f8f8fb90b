package imaging

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StatsResult summarises the samples of a plane.
type StatsResult struct {
	Count     int     `json:"count"`
	ZeroCount int     `json:"zero_count"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Median    float64 `json:"median"`
	P05       float64 `json:"p05"`
	P95       float64 `json:"p95"`
	// Set for 3D planes with a vertical resolution.
	MeanHeightMM *float64 `json:"mean_height_mm,omitempty"`
}

// PlaneStats computes sample statistics for a plane. With ignoreZero set,
// zero samples (3D dropouts) are counted but left out of every other
// figure.
func PlaneStats(p *Plane, ignoreZero bool) (*StatsResult, error) {
	all := p.Values()
	values := make([]float64, 0, len(all))
	zeros := 0
	for _, v := range all {
		if v == 0 {
			zeros++
			if ignoreZero {
				continue
			}
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("plane region %s has no samples to summarise", p.Region)
	}
	return summarize(p, values, zeros), nil
}

func summarize(p *Plane, values []float64, zeros int) *StatsResult {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	res := &StatsResult{
		Count:     len(values),
		ZeroCount: zeros,
		Min:       floats.Min(values),
		Max:       floats.Max(values),
		Mean:      round(stat.Mean(values, nil), 3),
		Median:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P05:       stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P95:       stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(values) > 1 {
		res.StdDev = round(stat.StdDev(values, nil), 3)
	}
	if h, ok := p.Height(1); ok {
		mean := round(stat.Mean(values, nil)*h, 3)
		res.MeanHeightMM = &mean
	}
	return res
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
