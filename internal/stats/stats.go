// Package stats holds the numeric helpers the charts and the preprocessing
// stage share. Descriptive statistics delegate to montanaflynn/stats; the
// estimators it lacks (interpolated quantiles, binning, kernel density,
// least squares) live here.
package stats

import (
	"errors"
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// ErrEmpty is returned when a statistic needs at least one value.
var ErrEmpty = errors.New("no values")

// Mean returns the arithmetic mean.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}
	return mstats.Mean(xs)
}

// StdPop returns the population standard deviation (divides by n).
func StdPop(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}
	return mstats.StandardDeviationPopulation(xs)
}

// StdSample returns the sample standard deviation (divides by n-1).
// A single value yields NaN.
func StdSample(xs []float64) (float64, error) {
	switch len(xs) {
	case 0:
		return 0, ErrEmpty
	case 1:
		return math.NaN(), nil
	}
	return mstats.StandardDeviationSample(xs)
}

// MinMax returns the smallest and largest value.
func MinMax(xs []float64) (lo, hi float64, err error) {
	if len(xs) == 0 {
		return 0, 0, ErrEmpty
	}
	if lo, err = mstats.Min(xs); err != nil {
		return 0, 0, err
	}
	if hi, err = mstats.Max(xs); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// Median returns the middle value.
func Median(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmpty
	}
	return mstats.Median(xs)
}

// Sorted returns a sorted copy.
func Sorted(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}

// Quantile returns the q-th quantile (0..1) of already sorted values using
// linear interpolation between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Quartiles returns Q1, median and Q3 with linear interpolation.
func Quartiles(xs []float64) (q1, q2, q3 float64, err error) {
	if len(xs) == 0 {
		return 0, 0, 0, ErrEmpty
	}
	s := Sorted(xs)
	return Quantile(s, 0.25), Quantile(s, 0.5), Quantile(s, 0.75), nil
}

// Pearson returns the correlation coefficient of x and y over the positions
// where both are valid (not NaN). It is NaN when fewer than two pairs remain
// or either side is constant.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	sx, _ := mstats.StandardDeviationPopulation(xs)
	sy, _ := mstats.StandardDeviationPopulation(ys)
	if sx == 0 || sy == 0 {
		return math.NaN()
	}
	r, err := mstats.Correlation(xs, ys)
	if err != nil {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

// CorrelationMatrix returns the pairwise Pearson matrix of the given columns.
// Columns use NaN for missing values so pairs are dropped independently.
func CorrelationMatrix(cols [][]float64) [][]float64 {
	m := make([][]float64, len(cols))
	for i := range cols {
		m[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := Pearson(cols[i], cols[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m[i][j], m[j][i] = r, r
		}
	}
	return m
}

// Bin is one histogram bucket covering [Lo, Hi). The last bucket includes Hi.
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram splits [min, max] into n equal buckets and counts xs into them.
// A constant input gets a unit-wide range centred on the value.
func Histogram(xs []float64, n int) ([]Bin, error) {
	if len(xs) == 0 {
		return nil, ErrEmpty
	}
	if n <= 0 {
		n = 1
	}
	lo, hi, err := MinMax(xs)
	if err != nil {
		return nil, err
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lo = lo + float64(i)*width
		bins[i].Hi = lo + float64(i+1)*width
	}
	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i].Count++
	}
	return bins, nil
}

// Bandwidth returns Scott's rule bandwidth for a Gaussian kernel.
func Bandwidth(xs []float64) float64 {
	sd, err := StdSample(xs)
	if err != nil || math.IsNaN(sd) || sd == 0 {
		return 1
	}
	return sd * math.Pow(float64(len(xs)), -0.2)
}

// KDE evaluates a Gaussian kernel density estimate of xs at the given points.
func KDE(xs, points []float64) ([]float64, error) {
	if len(xs) == 0 {
		return nil, ErrEmpty
	}
	h := Bandwidth(xs)
	norm := 1 / (float64(len(xs)) * h * math.Sqrt(2*math.Pi))
	out := make([]float64, len(points))
	for i, p := range points {
		sum := 0.0
		for _, x := range xs {
			u := (p - x) / h
			sum += math.Exp(-0.5 * u * u)
		}
		out[i] = sum * norm
	}
	return out, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// LinearFit returns the least-squares slope and intercept of y on x.
// ok is false when x is constant or fewer than two points are given.
func LinearFit(x, y []float64) (slope, intercept float64, ok bool) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0, 0, false
	}
	mx, _ := mstats.Mean(x[:n])
	my, _ := mstats.Mean(y[:n])
	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		sxy += dx * (y[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, 0, false
	}
	slope = sxy / sxx
	return slope, my - slope*mx, true
}
