// Package stats provides the statistical tests the order search relies on:
// autocorrelation, unit-root and stationarity tests, and residual
// diagnostics.
package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/salescast/timeseries"
)

// ACF calculates the autocorrelation function for lags 0..maxLag.
func ACF(series *timeseries.Series, maxLag int) []float64 {
	n := series.Len()
	if maxLag >= n {
		maxLag = n - 1
	}
	if maxLag < 0 {
		return nil
	}

	mean := stat.Mean(series.Values, nil)
	denom := 0.0
	for _, v := range series.Values {
		d := v - mean
		denom += d * d
	}
	if denom == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		sum := 0.0
		for i := k; i < n; i++ {
			sum += (series.Values[i] - mean) * (series.Values[i-k] - mean)
		}
		acf[k] = sum / denom
	}
	return acf
}
