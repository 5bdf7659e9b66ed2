// Package forecast orchestrates per-category train/test forecasting over a
// monthly sales history and assembles the prediction table.
package forecast

import (
	"fmt"
	"time"
)

// Point is one observation of the input history.
type Point struct {
	Period   time.Time
	Category string
	Value    float64
}

// CategorySeries is the maximal run of points sharing one category, ordered
// by period ascending.
type CategorySeries struct {
	Category string
	Points   []Point
}

// Partition groups points by exact category equality. The returned slice is
// ordered by each category's first appearance in the input, which fixes the
// block order of the final table. The input must be sorted by
// (period, category) ascending; within a category that implies periods are
// ascending, and Partition rejects duplicate periods.
func Partition(points []Point) ([]CategorySeries, error) {
	index := make(map[string]int)
	var parts []CategorySeries

	for _, p := range points {
		i, ok := index[p.Category]
		if !ok {
			i = len(parts)
			index[p.Category] = i
			parts = append(parts, CategorySeries{Category: p.Category})
		}
		prev := parts[i].Points
		if len(prev) > 0 {
			last := prev[len(prev)-1].Period
			if !p.Period.After(last) {
				return nil, fmt.Errorf("forecast: category %q has duplicate or unsorted period %s",
					p.Category, p.Period.Format("2006-01"))
			}
		}
		parts[i].Points = append(parts[i].Points, p)
	}
	return parts, nil
}
