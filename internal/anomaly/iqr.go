package anomaly

import (
	"sort"

	"electionpulse/internal/stats"
)

// BoxPlot summarizes a distribution for box-plot display: quartiles,
// whiskers clamped to the observed range, and the points outside the
// whiskers.
type BoxPlot struct {
	Min         float64   `json:"min"`
	Q1          float64   `json:"q1"`
	Median      float64   `json:"median"`
	Q3          float64   `json:"q3"`
	Max         float64   `json:"max"`
	IQR         float64   `json:"iqr"`
	WhiskerLow  float64   `json:"whisker_low"`
	WhiskerHigh float64   `json:"whisker_high"`
	Outliers    []float64 `json:"outliers"`
}

// Whiskers computes the box-plot summary of values. Whiskers extend
// 1.5 IQR past the quartiles but never beyond the observed min/max,
// so a dataset with no extreme points has whiskers equal to its
// extrema and an empty outlier list. Zero value for empty input.
func Whiskers(values []float64) BoxPlot {
	if len(values) == 0 {
		return BoxPlot{Outliers: []float64{}}
	}

	box := BoxPlot{
		Min:      stats.Quantile(values, 0),
		Q1:       stats.Quantile(values, 0.25),
		Median:   stats.Median(values),
		Q3:       stats.Quantile(values, 0.75),
		Max:      stats.Quantile(values, 1),
		Outliers: []float64{},
	}
	box.IQR = box.Q3 - box.Q1

	box.WhiskerLow = box.Q1 - 1.5*box.IQR
	if box.WhiskerLow < box.Min {
		box.WhiskerLow = box.Min
	}
	box.WhiskerHigh = box.Q3 + 1.5*box.IQR
	if box.WhiskerHigh > box.Max {
		box.WhiskerHigh = box.Max
	}

	for _, v := range values {
		if v < box.WhiskerLow || v > box.WhiskerHigh {
			box.Outliers = append(box.Outliers, v)
		}
	}
	sort.Float64s(box.Outliers)

	return box
}
