package forecast

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sartorproj/salescast/autoarima"
	"github.com/sartorproj/salescast/timeseries"
)

// Row is one line of the prediction table. Exactly one of TrainPrediction
// and TestPrediction is set: train-window rows carry the in-sample fit,
// held-out rows carry the out-of-sample forecast. Actual always carries the
// original observation.
type Row struct {
	Period          time.Time
	Category        string
	Actual          float64
	TrainPrediction *float64
	TestPrediction  *float64
}

// Skip records a category dropped under the skip policy.
type Skip struct {
	Category string
	Reason   string
}

// Table is the assembled pipeline output: one row per input point of every
// forecasted category, category blocks in first-appearance order.
type Table struct {
	Rows    []Row
	Skipped []Skip
}

// Config controls a forecasting run.
type Config struct {
	// Horizon is the number of most-recent periods per category held out
	// as the test window.
	Horizon int

	// SkipFailed drops a category that is too short or fails to fit,
	// recording it in Table.Skipped, instead of failing the whole run.
	// Default false: partial output is worse than a loud failure.
	SkipFailed bool

	// Workers bounds concurrent per-category fits. Values below 1 mean
	// sequential; values above the CPU count are capped.
	Workers int

	// Search bounds the per-category order search.
	Search autoarima.Config
}

// DefaultConfig returns the standard two-year holdout configuration.
func DefaultConfig() Config {
	return Config{
		Horizon: 24,
		Workers: 1,
		Search:  autoarima.DefaultConfig(),
	}
}

// Runner executes forecasting runs.
type Runner struct {
	cfg Config
	log *zap.SugaredLogger
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(cfg Config, log *zap.SugaredLogger) *Runner {
	if cfg.Horizon <= 0 {
		cfg.Horizon = 24
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{cfg: cfg, log: log}
}

// categoryResult carries one category's outcome back from a worker.
type categoryResult struct {
	rows []Row
	skip *Skip
	err  error
}

// Run partitions the history by category, forecasts each partition
// independently, and assembles the prediction table. Categories are
// processed on a bounded worker pool when configured; the output order is
// always the canonical first-appearance order regardless of scheduling.
func (r *Runner) Run(ctx context.Context, points []Point) (*Table, error) {
	parts, err := Partition(points)
	if err != nil {
		return nil, err
	}

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > runtime.NumCPU() {
		workers = runtime.NumCPU()
	}

	results := make([]categoryResult, len(parts))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, part := range parts {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, part CategorySeries) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.forecastCategory(part)
		}(i, part)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := &Table{}
	var blocks [][]Row
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		if res.skip != nil {
			table.Skipped = append(table.Skipped, *res.skip)
			continue
		}
		blocks = append(blocks, res.rows)
	}

	rows, err := Assemble(blocks)
	if err != nil {
		return nil, err
	}
	table.Rows = rows
	return table, nil
}

// failCategory applies the configured policy to a category-local failure:
// abort the run, or record a skip and keep going.
func (r *Runner) failCategory(category string, err error) categoryResult {
	if r.cfg.SkipFailed {
		r.log.Warnw("skipping category", "category", category, "reason", err.Error())
		return categoryResult{skip: &Skip{Category: category, Reason: err.Error()}}
	}
	return categoryResult{err: err}
}

// forecastCategory fits one category and emits one row per point of its
// partition. Errors are returned or converted to a skip per configuration.
func (r *Runner) forecastCategory(part CategorySeries) categoryResult {
	n := len(part.Points)
	horizon := r.cfg.Horizon

	if n <= horizon {
		return r.failCategory(part.Category,
			&InsufficientDataError{Category: part.Category, Length: n, Horizon: horizon})
	}

	train := part.Points[:n-horizon]
	test := part.Points[n-horizon:]

	timestamps := make([]time.Time, len(train))
	values := make([]float64, len(train))
	for i, p := range train {
		timestamps[i] = p.Period
		values[i] = p.Value
	}
	series := &timeseries.Series{Timestamps: timestamps, Values: values, Name: part.Category}

	result, err := autoarima.Search(series, r.cfg.Search)
	if err != nil {
		return r.failCategory(part.Category, &ModelFitError{Category: part.Category, Err: err})
	}

	fitted := result.Model.InSampleFitted()
	forecasts, err := result.Model.Forecast(horizon)
	if err != nil {
		return r.failCategory(part.Category, &ModelFitError{Category: part.Category, Err: err})
	}

	rows := make([]Row, 0, n)
	for i, p := range train {
		v := fitted[i]
		rows = append(rows, Row{
			Period:          p.Period,
			Category:        p.Category,
			Actual:          p.Value,
			TrainPrediction: &v,
		})
	}
	actuals := make([]float64, horizon)
	for j, p := range test {
		v := forecasts[j]
		actuals[j] = p.Value
		rows = append(rows, Row{
			Period:         p.Period,
			Category:       p.Category,
			Actual:         p.Value,
			TestPrediction: &v,
		})
	}

	acc := evaluate(actuals, forecasts)
	r.log.Infow("category forecasted",
		"category", part.Category,
		"order", result.Order.String(),
		"train", len(train),
		"test", horizon,
		"models_evaluated", result.ModelsEvaluated,
		"rmse", acc.RMSE,
		"mae", acc.MAE,
		"mape", acc.MAPE,
	)

	return categoryResult{rows: rows}
}

// Assemble concatenates per-category row blocks in the order given. The
// order is already canonical by construction; no re-sorting or dedup
// happens here. The per-row shape is checked defensively.
func Assemble(blocks [][]Row) ([]Row, error) {
	total := 0
	for _, block := range blocks {
		total += len(block)
	}

	rows := make([]Row, 0, total)
	for _, block := range blocks {
		for _, row := range block {
			if (row.TrainPrediction == nil) == (row.TestPrediction == nil) {
				return nil, &AssemblyError{
					Reason: "row for category " + row.Category + " must carry exactly one prediction",
				}
			}
			if len(block) > 0 && row.Category != block[0].Category {
				return nil, &AssemblyError{
					Reason: "block mixes categories " + block[0].Category + " and " + row.Category,
				}
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}
