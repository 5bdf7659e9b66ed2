package stats

import (
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/salescast/timeseries"
)

// LjungBoxResult holds the outcome of a Ljung-Box residual test.
type LjungBoxResult struct {
	Statistic float64
	PValue    float64
	Lags      int
	DOF       int
}

// LjungBox tests model residuals for remaining autocorrelation up to the
// given lag. The null hypothesis is no autocorrelation; p < 0.05 indicates
// the model left structure in the residuals. fitdf is the number of
// estimated model parameters.
func LjungBox(series *timeseries.Series, lags, fitdf int) *LjungBoxResult {
	n := series.Len()
	if n < 10 || lags < 1 {
		return nil
	}
	if lags >= n {
		lags = n - 1
	}

	acf := ACF(series, lags)
	if acf == nil {
		return nil
	}

	q := 0.0
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n * (n + 2))

	dof := lags - fitdf
	if dof < 1 {
		dof = 1
	}

	chi2 := distuv.ChiSquared{K: float64(dof)}
	return &LjungBoxResult{
		Statistic: q,
		PValue:    1 - chi2.CDF(q),
		Lags:      lags,
		DOF:       dof,
	}
}
