package stats

import (
	"math"

	"github.com/sartorproj/salescast/timeseries"
)

// NDiffs determines the number of first differences required for
// stationarity, up to maxD. KPSS and ADF are combined: a level is accepted
// as stationary when both tests agree, or when KPSS keeps the null with a
// comfortable margin.
func NDiffs(series *timeseries.Series, maxD int) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := series
	for d := 0; d < maxD; d++ {
		kpss := KPSS(current, 0)
		adf := ADF(current, 0)

		kpssStationary := kpss != nil && kpss.IsStationary
		adfStationary := adf != nil && adf.IsStationary

		if kpssStationary && adfStationary {
			return d
		}
		if kpssStationary && kpss.PValue > 0.1 {
			return d
		}

		current = current.Diff()
		if current.Len() < 10 {
			return d
		}
	}
	return maxD
}

// NSDiffs determines the number of seasonal differences required, up to
// maxD, using the autocorrelation at the seasonal lag: a strong seasonal
// autocorrelation (|acf| > 0.5) suggests one seasonal difference.
func NSDiffs(series *timeseries.Series, period, maxD int) int {
	if maxD <= 0 {
		maxD = 1
	}
	if period <= 1 || series.Len() < 2*period {
		return 0
	}

	current := series
	for d := 0; d < maxD; d++ {
		acf := ACF(current, period)
		if acf == nil || len(acf) <= period || math.Abs(acf[period]) <= 0.5 {
			return d
		}

		current = current.SeasonalDiff(period)
		if current.Len() < 2*period {
			return d + 1
		}
	}
	return maxD
}
