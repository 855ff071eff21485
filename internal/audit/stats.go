package audit

import "math"

// AxisStats describes the spread of one coordinate axis.
type AxisStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// computeStats returns the population statistics of values. The zero value is returned for no values.
func computeStats(values []float64) AxisStats {
	if len(values) == 0 {
		return AxisStats{}
	}

	stats := AxisStats{Count: len(values), Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
		sum += v
	}
	stats.Range = stats.Max - stats.Min
	stats.Mean = sum / float64(len(values))

	var squares float64
	for _, v := range values {
		squares += (v - stats.Mean) * (v - stats.Mean)
	}
	stats.StdDev = math.Sqrt(squares / float64(len(values)))

	return stats
}
