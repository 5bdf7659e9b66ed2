// Package timeseries provides the series container and month-period helpers
// shared by the forecasting packages.
package timeseries

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Series represents an observed time series with one value per period.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// epoch anchors synthetic monthly timestamps for series constructed from
// bare values. Any fixed month works; January 2000 keeps tests readable.
var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// New creates a series from values with synthetic month-start timestamps.
func New(values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = epoch.AddDate(0, i, 0)
	}
	return &Series{Timestamps: timestamps, Values: values}
}

// NewWithTimestamps creates a series with explicit timestamps.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	return &Series{Timestamps: timestamps, Values: values}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean returns the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance returns the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Diff returns the first difference of the series.
func (s *Series) Diff() *Series {
	return s.lagDiff(1, "_diff")
}

// SeasonalDiff returns the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m, "_sdiff")
}

func (s *Series) lagDiff(k int, suffix string) *Series {
	if k <= 0 || len(s.Values) <= k {
		return &Series{Values: []float64{}}
	}
	values := make([]float64, len(s.Values)-k)
	for i := k; i < len(s.Values); i++ {
		values[i-k] = s.Values[i] - s.Values[i-k]
	}
	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) > k {
		copy(timestamps, s.Timestamps[k:])
	}
	return &Series{Timestamps: timestamps, Values: values, Name: s.Name + suffix}
}

// Slice returns a copy of the series restricted to [start, end).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}}
	}
	values := make([]float64, end-start)
	copy(values, s.Values[start:end])
	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) >= end {
		copy(timestamps, s.Timestamps[start:end])
	}
	return &Series{Timestamps: timestamps, Values: values, Name: s.Name}
}

// Copy returns a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)
	return &Series{Timestamps: timestamps, Values: values, Name: s.Name}
}

// MonthStart normalizes t to the first instant of its calendar month in UTC.
// Source columns may carry dates, datetimes, or offset timestamps; the
// pipeline keys every observation by this canonical month period.
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
