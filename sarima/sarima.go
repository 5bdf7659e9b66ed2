// Package sarima implements seasonal ARIMA estimation and forecasting.
//
// A model with all seasonal orders zero degrades to a plain ARIMA(p,d,q),
// so this package covers both the seasonal and non-seasonal cases the order
// search explores. Estimation is conditional sum of squares with momentum
// gradient refinement; it is fully deterministic for a given input, which
// the pipeline relies on for reproducible output tables.
package sarima

import (
	"errors"
	"fmt"
	"math"

	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

// Order is the SARIMA model order (p,d,q)x(P,D,Q,m).
type Order struct {
	P int // non-seasonal AR order
	D int // non-seasonal differencing order
	Q int // non-seasonal MA order

	SP int // seasonal AR order
	SD int // seasonal differencing order
	SQ int // seasonal MA order
	M  int // seasonal period (12 for monthly data with yearly seasonality)
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// numParams counts estimated coefficients including the intercept.
func (o Order) numParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

// maxLag is the deepest lag any term of the model reaches back to.
func (o Order) maxLag() int {
	lag := o.P
	if o.Q > lag {
		lag = o.Q
	}
	if o.SP*o.M > lag {
		lag = o.SP * o.M
	}
	if o.SQ*o.M > lag {
		lag = o.SQ * o.M
	}
	return lag
}

// diffOffset is the number of leading observations consumed by differencing.
func (o Order) diffOffset() int {
	return o.D + o.SD*o.M
}

// minObs is the smallest series length the order can be estimated on. The
// intercept-only order needs a single observation, which keeps the shortest
// admissible train window (one point) fittable.
func (o Order) minObs() int {
	return o.diffOffset() + o.maxLag() + o.numParams()
}

func (o Order) validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SP < 0 || o.SD < 0 || o.SQ < 0 {
		return errors.New("sarima: order terms must be non-negative")
	}
	if (o.SP > 0 || o.SD > 0 || o.SQ > 0) && o.M < 2 {
		return errors.New("sarima: seasonal orders require a period of at least 2")
	}
	return nil
}

// Model is a seasonal ARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64

	fitted    bool
	data      *timeseries.Series
	diffData  *timeseries.Series
	residuals []float64 // on the differenced scale
}

// New creates an unfitted model with the given order.
func New(order Order) *Model {
	return &Model{
		Order:     order,
		ARCoeffs:  make([]float64, order.P),
		MACoeffs:  make([]float64, order.Q),
		SARCoeffs: make([]float64, order.SP),
		SMACoeffs: make([]float64, order.SQ),
	}
}

// Fit estimates the model on the given series.
func (m *Model) Fit(series *timeseries.Series) error {
	if err := m.Order.validate(); err != nil {
		return err
	}
	if series.Len() < m.Order.minObs() {
		return fmt.Errorf("sarima: %d observations insufficient for order %s", series.Len(), m.Order)
	}

	m.data = series

	diff := series
	for i := 0; i < m.Order.D; i++ {
		diff = diff.Diff()
	}
	for i := 0; i < m.Order.SD; i++ {
		diff = diff.SeasonalDiff(m.Order.M)
	}
	if diff.Len() < m.Order.numParams() {
		return errors.New("sarima: differencing left too few observations")
	}
	m.diffData = diff

	m.initCoeffs()
	m.optimizeCSS()
	m.calculateIC()

	m.fitted = true
	return nil
}

// initCoeffs seeds the optimizer deterministically: AR terms from damped
// autocorrelations, MA terms from a small constant.
func (m *Model) initCoeffs() {
	y := m.diffData.Values
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.Intercept = mean / float64(len(y))

	if m.Order.P > 0 {
		if acf := stats.ACF(m.diffData, m.Order.P); acf != nil {
			for i := 0; i < m.Order.P && i+1 < len(acf); i++ {
				m.ARCoeffs[i] = acf[i+1] * 0.5
			}
		}
	}
	if m.Order.SP > 0 {
		if acf := stats.ACF(m.diffData, m.Order.SP*m.Order.M); acf != nil {
			for i := 0; i < m.Order.SP; i++ {
				if idx := (i + 1) * m.Order.M; idx < len(acf) {
					m.SARCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}
}

// predictAt computes the one-step prediction at index t of the differenced
// series given the residual history.
func (m *Model) predictAt(y, residuals []float64, t int) float64 {
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.SP; i++ {
		if lag := (i + 1) * m.Order.M; t-lag >= 0 {
			pred += m.SARCoeffs[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Order.SQ; i++ {
		if lag := (i + 1) * m.Order.M; t-lag >= 0 {
			pred += m.SMACoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

// optimizeCSS refines coefficients by momentum gradient descent on the
// conditional sum of squares. The schedule is fixed, so repeated fits on
// identical data produce identical coefficients.
func (m *Model) optimizeCSS() {
	y := m.diffData.Values
	n := len(y)
	p, q := m.Order.P, m.Order.Q
	sp, sq := m.Order.SP, m.Order.SQ

	const (
		maxIter   = 200
		tolerance = 1e-8
		momentum  = 0.9
		decay     = 0.99
	)
	learningRate := 0.005

	arMom := make([]float64, p)
	maMom := make([]float64, q)
	sarMom := make([]float64, sp)
	smaMom := make([]float64, sq)

	startIdx := m.Order.maxLag()
	if startIdx >= n-m.Order.numParams() {
		startIdx = 0
	}

	bestSSE := math.Inf(1)
	bestAR := make([]float64, p)
	bestMA := make([]float64, q)
	bestSAR := make([]float64, sp)
	bestSMA := make([]float64, sq)
	noImprove := 0

	for iter := 0; iter < maxIter; iter++ {
		residuals := make([]float64, n)
		sse := 0.0
		for t := startIdx; t < n; t++ {
			residuals[t] = y[t] - m.predictAt(y, residuals, t)
			sse += residuals[t] * residuals[t]
		}

		if sse < bestSSE {
			if math.Abs(bestSSE-sse) < tolerance {
				bestSSE = sse
				copy(bestAR, m.ARCoeffs)
				copy(bestMA, m.MACoeffs)
				copy(bestSAR, m.SARCoeffs)
				copy(bestSMA, m.SMACoeffs)
				break
			}
			bestSSE = sse
			copy(bestAR, m.ARCoeffs)
			copy(bestMA, m.MACoeffs)
			copy(bestSAR, m.SARCoeffs)
			copy(bestSMA, m.SMACoeffs)
			noImprove = 0
		} else {
			noImprove++
			if noImprove > 20 {
				break
			}
		}

		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		sarGrad := make([]float64, sp)
		smaGrad := make([]float64, sq)
		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < sp; i++ {
				if lag := (i + 1) * m.Order.M; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < sq; i++ {
				if lag := (i + 1) * m.Order.M; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		nf := float64(n)
		for i := 0; i < p; i++ {
			arMom[i] = momentum*arMom[i] + learningRate*arGrad[i]/nf
			m.ARCoeffs[i] = clamp(m.ARCoeffs[i]-arMom[i], -0.99, 0.99)
		}
		for i := 0; i < sp; i++ {
			sarMom[i] = momentum*sarMom[i] + learningRate*sarGrad[i]/nf
			m.SARCoeffs[i] = clamp(m.SARCoeffs[i]-sarMom[i], -0.99, 0.99)
		}
		for i := 0; i < q; i++ {
			maMom[i] = momentum*maMom[i] + learningRate*maGrad[i]/nf
			m.MACoeffs[i] = clamp(m.MACoeffs[i]-maMom[i], -0.99, 0.99)
		}
		for i := 0; i < sq; i++ {
			smaMom[i] = momentum*smaMom[i] + learningRate*smaGrad[i]/nf
			m.SMACoeffs[i] = clamp(m.SMACoeffs[i]-smaMom[i], -0.99, 0.99)
		}

		learningRate *= decay
	}

	copy(m.ARCoeffs, bestAR)
	copy(m.MACoeffs, bestMA)
	copy(m.SARCoeffs, bestSAR)
	copy(m.SMACoeffs, bestSMA)

	// Final residual pass over the whole differenced series.
	m.residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		m.residuals[t] = y[t] - m.predictAt(y, m.residuals, t)
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	if count > m.Order.numParams() {
		m.Variance = sse / float64(count-m.Order.numParams())
	} else if count > 0 {
		m.Variance = sse / float64(count)
	}
}

// varianceFloor keeps the Gaussian log-likelihood finite on series the model
// reproduces exactly (constant inputs), so the order search can still rank
// candidates.
const varianceFloor = 1e-10

func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.numParams()

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	v := m.Variance
	if v < varianceFloor {
		v = varianceFloor
	}
	m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(v) - sse/(2*v)

	kf, nf := float64(k), float64(n)
	m.AIC = -2*m.LogLik + 2*kf
	if nf-kf-1 > 0 {
		m.AICc = m.AIC + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		m.AICc = math.Inf(1)
	}
	m.BIC = -2*m.LogLik + kf*math.Log(nf)
}

// Forecast generates multi-step-ahead forecasts on the original scale for
// the given number of periods immediately following the training window.
func (m *Model) Forecast(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, errors.New("sarima: model must be fitted before forecasting")
	}
	if steps < 1 {
		return nil, errors.New("sarima: steps must be at least 1")
	}

	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	// Future residuals stay at their expectation of zero.
	for h := 0; h < steps; h++ {
		t := n + h
		extY[t] = m.predictAt(extY, extResiduals, t)
	}

	forecasts := make([]float64, steps)
	copy(forecasts, extY[n:])
	return m.integrate(forecasts), nil
}

// InSampleFitted returns one fitted value per training observation on the
// original scale. Differencing is linear in the actual past values, so the
// one-step residual on the differenced scale equals the original-scale
// residual: fitted = actual - residual. Warm-up observations consumed by
// differencing carry the observation itself.
func (m *Model) InSampleFitted() []float64 {
	if !m.fitted {
		return nil
	}
	offset := m.Order.diffOffset()
	fitted := make([]float64, m.data.Len())
	for t := range fitted {
		if t < offset {
			fitted[t] = m.data.Values[t]
			continue
		}
		fitted[t] = m.data.Values[t] - m.residuals[t-offset]
	}
	return fitted
}

// Residuals returns a copy of the residuals on the differenced scale.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

// integrate undoes differencing. Fit applies non-seasonal differences first
// and seasonal differences second, so integration runs in reverse: undo
// seasonal, then non-seasonal.
func (m *Model) integrate(forecasts []float64) []float64 {
	d, sd, period := m.Order.D, m.Order.SD, m.Order.M
	original := m.data.Values

	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	// The seasonal integration needs the tail of the series after only the
	// non-seasonal differences were applied.
	nonSeasonal := original
	for i := 0; i < d && len(nonSeasonal) > 1; i++ {
		next := make([]float64, len(nonSeasonal)-1)
		for j := 1; j < len(nonSeasonal); j++ {
			next[j-1] = nonSeasonal[j] - nonSeasonal[j-1]
		}
		nonSeasonal = next
	}

	if sd > 0 && period > 0 {
		nDiff := len(nonSeasonal)
		for i := 0; i < sd; i++ {
			for j := range result {
				if j < period {
					if idx := nDiff - period + j; idx >= 0 && idx < nDiff {
						result[j] += nonSeasonal[idx]
					}
				} else {
					result[j] += result[j-period]
				}
			}
		}
	}

	for i := 0; i < d; i++ {
		lastVal := original[len(original)-1]
		for j := range result {
			if j == 0 {
				result[j] += lastVal
			} else {
				result[j] += result[j-1]
			}
		}
	}

	return result
}

// Summary holds the fitted model's diagnostics.
type Summary struct {
	Order     Order
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary reports the fitted model with a Ljung-Box residual diagnostic.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}
	lb := stats.LjungBox(timeseries.New(m.residuals), 10, m.Order.numParams()-1)
	return &Summary{
		Order:     m.Order,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.data.Len(),
		LjungBox:  lb,
	}
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
