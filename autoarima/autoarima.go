// Package autoarima implements automatic seasonal ARIMA order selection.
//
// The search is stepwise: differencing orders are fixed up front by
// stationarity tests, a handful of starting orders are fitted, and the best
// candidate's neighbours are explored until no neighbour improves the
// information criterion. Candidates that fail to fit (too little data for
// the order, degenerate estimation) are rejected and the search continues;
// a failed candidate never aborts the search.
package autoarima

import (
	"errors"
	"math"

	"github.com/sartorproj/salescast/sarima"
	"github.com/sartorproj/salescast/stats"
	"github.com/sartorproj/salescast/timeseries"
)

// Criterion selects the information criterion the search minimizes.
type Criterion string

const (
	AIC  Criterion = "aic"
	AICc Criterion = "aicc"
	BIC  Criterion = "bic"
)

// Config bounds the stepwise search.
type Config struct {
	MaxP int // maximum non-seasonal AR order
	MaxD int // maximum non-seasonal differencing order
	MaxQ int // maximum non-seasonal MA order

	MaxSP int // maximum seasonal AR order
	MaxSD int // maximum seasonal differencing order
	MaxSQ int // maximum seasonal MA order

	SeasonalM int // seasonal period; 0 disables seasonal terms

	Criterion Criterion
}

// DefaultConfig returns the search bounds for monthly sales data:
// non-seasonal orders up to 3, seasonal AR/MA orders up to 3 with seasonal
// differencing up to 2, yearly seasonality, AIC.
func DefaultConfig() Config {
	return Config{
		MaxP:      3,
		MaxD:      3,
		MaxQ:      3,
		MaxSP:     3,
		MaxSD:     2,
		MaxSQ:     3,
		SeasonalM: 12,
		Criterion: AIC,
	}
}

// Result is the outcome of an order search.
type Result struct {
	Model           *sarima.Model
	Order           sarima.Order
	Criterion       float64
	ModelsEvaluated int
}

// ErrNoViableModel is returned when every candidate in the bounded search
// space fails to fit.
var ErrNoViableModel = errors.New("autoarima: no candidate order could be fitted")

// Search selects the best-fitting order for the series within the config
// bounds, fitting candidates stepwise and minimizing the criterion.
func Search(series *timeseries.Series, cfg Config) (*Result, error) {
	if cfg.Criterion == "" {
		cfg.Criterion = AIC
	}

	d := stats.NDiffs(series, cfg.MaxD)
	sd := 0
	if cfg.SeasonalM > 1 {
		sd = stats.NSDiffs(series, cfg.SeasonalM, cfg.MaxSD)
	}

	search := &searcher{series: series, cfg: cfg, d: d, sd: sd}
	return search.run()
}

type orderSpec struct {
	p, q, sp, sq int
}

type searcher struct {
	series *timeseries.Series
	cfg    Config
	d, sd  int

	best      *sarima.Model
	bestSpec  orderSpec
	bestCrit  float64
	evaluated int
}

func (s *searcher) run() (*Result, error) {
	s.bestCrit = math.Inf(1)

	start := []orderSpec{
		{0, 0, 0, 0},
		{1, 0, 1, 0},
		{0, 1, 0, 1},
		{1, 1, 1, 1},
		{2, 2, 1, 1},
	}
	for _, spec := range start {
		s.try(spec)
	}

	for improved := true; improved; {
		improved = false
		b := s.bestSpec
		neighbours := []orderSpec{
			{b.p + 1, b.q, b.sp, b.sq},
			{b.p - 1, b.q, b.sp, b.sq},
			{b.p, b.q + 1, b.sp, b.sq},
			{b.p, b.q - 1, b.sp, b.sq},
			{b.p + 1, b.q + 1, b.sp, b.sq},
			{b.p - 1, b.q - 1, b.sp, b.sq},
			{b.p, b.q, b.sp + 1, b.sq},
			{b.p, b.q, b.sp - 1, b.sq},
			{b.p, b.q, b.sp, b.sq + 1},
			{b.p, b.q, b.sp, b.sq - 1},
		}
		for _, spec := range neighbours {
			if s.try(spec) {
				improved = true
			}
		}
	}

	if s.best == nil {
		return nil, ErrNoViableModel
	}
	return &Result{
		Model:           s.best,
		Order:           s.best.Order,
		Criterion:       s.bestCrit,
		ModelsEvaluated: s.evaluated,
	}, nil
}

// try fits one candidate and reports whether it became the new best.
func (s *searcher) try(spec orderSpec) bool {
	if spec.p < 0 || spec.p > s.cfg.MaxP || spec.q < 0 || spec.q > s.cfg.MaxQ {
		return false
	}
	if spec.sp < 0 || spec.sq < 0 {
		return false
	}
	if s.cfg.SeasonalM > 1 {
		if spec.sp > s.cfg.MaxSP || spec.sq > s.cfg.MaxSQ {
			return false
		}
	} else if spec.sp > 0 || spec.sq > 0 {
		return false
	}

	order := sarima.Order{
		P: spec.p, D: s.d, Q: spec.q,
		SP: spec.sp, SD: s.sd, SQ: spec.sq,
	}
	if s.cfg.SeasonalM > 1 {
		order.M = s.cfg.SeasonalM
	}

	model := sarima.New(order)
	if err := model.Fit(s.series); err != nil {
		return false
	}
	s.evaluated++

	crit := s.criterionOf(model)
	if s.best == nil || crit < s.bestCrit {
		s.best = model
		s.bestSpec = spec
		s.bestCrit = crit
		return true
	}
	return false
}

func (s *searcher) criterionOf(model *sarima.Model) float64 {
	switch s.cfg.Criterion {
	case BIC:
		return model.BIC
	case AICc:
		return model.AICc
	default:
		return model.AIC
	}
}
