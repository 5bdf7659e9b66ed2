package forecast

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Accuracy summarizes forecast error over a held-out window.
type Accuracy struct {
	RMSE float64
	MAE  float64
	MAPE float64 // percent; NaN when every actual is zero
}

// evaluate compares forecasts against the held-out actuals.
func evaluate(actual, predicted []float64) Accuracy {
	n := len(actual)
	if n == 0 || n != len(predicted) {
		return Accuracy{RMSE: math.NaN(), MAE: math.NaN(), MAPE: math.NaN()}
	}

	nf := float64(n)
	acc := Accuracy{
		RMSE: floats.Distance(actual, predicted, 2) / math.Sqrt(nf),
		MAE:  floats.Distance(actual, predicted, 1) / nf,
	}

	sum := 0.0
	count := 0
	for i, a := range actual {
		if a == 0 {
			continue
		}
		sum += math.Abs((a - predicted[i]) / a)
		count++
	}
	if count == 0 {
		acc.MAPE = math.NaN()
	} else {
		acc.MAPE = 100 * sum / float64(count)
	}
	return acc
}
