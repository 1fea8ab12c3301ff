package metrics

import "math"

// WelfordState keeps a running mean and variance using Welford's online
// algorithm, so a frequency table can be summarised in one pass without
// copying its cells.
type WelfordState struct {
	count int
	mean  float64
	m2    float64 // sum of squared differences from the mean
}

// Update adds one observation.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
func (w *WelfordState) Update(value float64) {
	w.count++
	delta := value - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (value - w.mean)
}

// UpdateInts adds every value in order.
func (w *WelfordState) UpdateInts(values ...int) {
	for _, v := range values {
		w.Update(float64(v))
	}
}

// Mean returns the running mean, or 0 with no observations.
func (w *WelfordState) Mean() float64 {
	return w.mean
}

// StdDev returns the population standard deviation.
// Returns 0 if fewer than 2 observations.
func (w *WelfordState) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}

// Count returns the number of observations.
func (w *WelfordState) Count() int {
	return w.count
}
