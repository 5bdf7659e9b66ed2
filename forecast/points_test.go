package forecast

import (
	"testing"
	"time"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// monthlyPoints builds months of constant-valued history for one category
// starting at the given month.
func monthlyPoints(category string, start time.Time, n int, value float64) []Point {
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{Period: start.AddDate(0, i, 0), Category: category, Value: value}
	}
	return points
}

// interleave merges per-category histories into (period, category)-sorted
// input, the shape the loader delivers.
func interleave(series ...[]Point) []Point {
	var all []Point
	idx := make([]int, len(series))
	for {
		best := -1
		for s := range series {
			if idx[s] >= len(series[s]) {
				continue
			}
			p := series[s][idx[s]]
			if best == -1 {
				best = s
				continue
			}
			b := series[best][idx[best]]
			if p.Period.Before(b.Period) || (p.Period.Equal(b.Period) && p.Category < b.Category) {
				best = s
			}
		}
		if best == -1 {
			return all
		}
		all = append(all, series[best][idx[best]])
		idx[best]++
	}
}

func TestPartitionFirstAppearanceOrder(t *testing.T) {
	start := month(2021, time.January)
	input := interleave(
		monthlyPoints("B", start, 3, 1),
		monthlyPoints("A", start.AddDate(0, 1, 0), 3, 2),
	)

	parts, err := Partition(input)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Expected 2 partitions, got %d", len(parts))
	}
	// B appears first in the sorted input (January) even though A sorts
	// first alphabetically.
	if parts[0].Category != "B" || parts[1].Category != "A" {
		t.Errorf("Expected order [B A], got [%s %s]", parts[0].Category, parts[1].Category)
	}
	if len(parts[0].Points) != 3 || len(parts[1].Points) != 3 {
		t.Errorf("Partition lengths wrong: %d, %d", len(parts[0].Points), len(parts[1].Points))
	}
}

func TestPartitionDuplicatePeriod(t *testing.T) {
	start := month(2021, time.January)
	input := []Point{
		{Period: start, Category: "A", Value: 1},
		{Period: start, Category: "A", Value: 2},
	}
	if _, err := Partition(input); err == nil {
		t.Error("Expected error for duplicate period within a category")
	}
}

func TestPartitionUnsortedPeriod(t *testing.T) {
	input := []Point{
		{Period: month(2021, time.March), Category: "A", Value: 1},
		{Period: month(2021, time.January), Category: "A", Value: 2},
	}
	if _, err := Partition(input); err == nil {
		t.Error("Expected error for descending periods within a category")
	}
}

func TestPartitionEmpty(t *testing.T) {
	parts, err := Partition(nil)
	if err != nil {
		t.Fatalf("Partition failed: %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("Expected no partitions, got %d", len(parts))
	}
}
