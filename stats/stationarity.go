package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/salescast/timeseries"
)

// ADFResult holds the outcome of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	IsStationary bool
}

// ADF performs the Augmented Dickey-Fuller unit-root test with a constant
// term. The null hypothesis is a unit root; p < 0.05 rejects it in favour of
// stationarity. Returns nil when the series is too short or the regression
// is degenerate.
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	n := series.Len()
	if n < 10 {
		return nil
	}
	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum_i gamma_i*delta_y_{t-i} + e_t,
	// testing beta = 0 against beta < 0.
	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := make([]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y[i] = diff.Values[t]
		x.Set(i, 0, 1)
		x.Set(i, 1, series.Values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff.Values[t-j])
		}
	}

	coeffs, stdErrs, ok := ols(x, y)
	if !ok || stdErrs[1] == 0 {
		return nil
	}

	tStat := coeffs[1] / stdErrs[1]
	pValue := mackinnonPValue(tStat)

	return &ADFResult{
		Statistic:    tStat,
		PValue:       pValue,
		Lags:         maxLag,
		NObs:         nObs,
		IsStationary: pValue < 0.05,
	}
}

// KPSSResult holds the outcome of a KPSS level-stationarity test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	IsStationary bool
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test against a
// constant level. The null hypothesis is stationarity; p >= 0.05 keeps it.
func KPSS(series *timeseries.Series, nlags int) *KPSSResult {
	n := series.Len()
	if n < 10 {
		return nil
	}
	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}

	mean := stat.Mean(series.Values, nil)
	residuals := make([]float64, n)
	for i, v := range series.Values {
		residuals[i] = v - mean
	}

	cumSum := make([]float64, n)
	cumSum[0] = residuals[0]
	for i := 1; i < n; i++ {
		cumSum[i] = cumSum[i-1] + residuals[i]
	}

	// Newey-West long-run variance with Bartlett weights.
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags && l < n; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1 - float64(l)/float64(nlags+1)) * cov
	}
	if s2 <= 0 {
		s2 = 1e-10
	}

	etaSq := 0.0
	for _, cs := range cumSum {
		etaSq += cs * cs
	}
	kpssStat := etaSq / (float64(n) * float64(n) * s2)
	pValue := kpssPValue(kpssStat)

	return &KPSSResult{
		Statistic:    kpssStat,
		PValue:       pValue,
		Lags:         nlags,
		IsStationary: pValue >= 0.05,
	}
}

// ols solves y = X*b by least squares and returns coefficients with their
// standard errors. ok is false when X'X is singular.
func ols(x *mat.Dense, y []float64) (coeffs, stdErrs []float64, ok bool) {
	n, k := x.Dims()
	if n == 0 || n <= k {
		return nil, nil, false
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, mat.NewVecDense(n, y)); err != nil {
		return nil, nil, false
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	sse := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		sse += r * r
	}
	sigma2 := sse / float64(n-k)

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if !chol.Factorize(&xtx) {
		return nil, nil, false
	}
	var xtxInv mat.SymDense
	if err := chol.InverseTo(&xtxInv); err != nil {
		return nil, nil, false
	}

	coeffs = make([]float64, k)
	stdErrs = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrs[i] = math.Sqrt(sigma2 * xtxInv.At(i, i))
	}
	return coeffs, stdErrs, true
}

// mackinnonPValue approximates the ADF p-value for the constant-only
// regression, interpolated from MacKinnon's asymptotic critical values.
func mackinnonPValue(stat float64) float64 {
	switch {
	case stat < -3.96:
		return 0.001
	case stat < -3.43:
		return 0.01
	case stat < -2.86:
		return 0.05
	case stat < -2.57:
		return 0.10
	case stat < -1.94:
		return 0.25
	case stat < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(stat+1.62)*0.25, 0.99)
	}
}

// kpssPValue approximates the KPSS p-value for level stationarity.
func kpssPValue(stat float64) float64 {
	switch {
	case stat > 0.739:
		return 0.01
	case stat > 0.463:
		return 0.05
	case stat > 0.347:
		return 0.10
	default:
		return 0.10 + (0.347-stat)*0.5
	}
}
