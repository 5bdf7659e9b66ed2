// Package warehouse adapts the forecasting pipeline to a SQL warehouse:
// it loads the monthly sales history from an origin table and writes the
// assembled prediction table to a destination table.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sartorproj/salescast/forecast"
	"github.com/sartorproj/salescast/timeseries"
)

// Config identifies the warehouse connection and the two tables the
// pipeline touches.
type Config struct {
	Driver      string // database/sql driver name, default "postgres"
	DSN         string
	Origin      string // table holding (sale_month, category, sales)
	Destination string // table the prediction rows are written to
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = "postgres"
	}
	return c
}

// identPattern accepts plain and schema-qualified table names. Table names
// come from configuration and are interpolated into DDL, so anything else
// is rejected up front.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validIdent(name string) bool { return identPattern.MatchString(name) }

// Store is a warehouse session bound to one origin and one destination
// table.
type Store struct {
	db  *sqlx.DB
	cfg Config
}

// Open connects to the warehouse and verifies the connection.
func Open(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if !validIdent(cfg.Origin) {
		return nil, fmt.Errorf("warehouse: invalid origin table name %q", cfg.Origin)
	}
	if !validIdent(cfg.Destination) {
		return nil, fmt.Errorf("warehouse: invalid destination table name %q", cfg.Destination)
	}

	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("warehouse: connect: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// LoadSales reads the full sales history from the origin table, sorted by
// (sale_month, category). Periods are normalized to month-start UTC
// whatever the column's concrete representation. Duplicate
// (period, category) pairs fail the load.
func (s *Store) LoadSales(ctx context.Context) ([]forecast.Point, error) {
	query := fmt.Sprintf(
		`SELECT sale_month, category, sales FROM %s ORDER BY sale_month, category`,
		s.cfg.Origin,
	)

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, &LoadError{Table: s.cfg.Origin, Err: err}
	}
	defer rows.Close()

	type key struct {
		period   time.Time
		category string
	}
	seen := make(map[key]struct{})

	var points []forecast.Point
	for rows.Next() {
		var (
			rawMonth any
			category sql.NullString
			sales    sql.NullFloat64
		)
		if err := rows.Scan(&rawMonth, &category, &sales); err != nil {
			return nil, &LoadError{Table: s.cfg.Origin, Err: err}
		}
		if !category.Valid || !sales.Valid {
			return nil, &LoadError{Table: s.cfg.Origin,
				Err: fmt.Errorf("row %d has NULL category or sales", len(points)+1)}
		}

		period, err := NormalizePeriod(rawMonth)
		if err != nil {
			return nil, &LoadError{Table: s.cfg.Origin, Err: err}
		}

		k := key{period: period, category: category.String}
		if _, dup := seen[k]; dup {
			return nil, &LoadError{Table: s.cfg.Origin,
				Err: fmt.Errorf("duplicate row for category %q period %s",
					category.String, period.Format("2006-01"))}
		}
		seen[k] = struct{}{}

		points = append(points, forecast.Point{
			Period:   period,
			Category: category.String,
			Value:    sales.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Table: s.cfg.Origin, Err: err}
	}
	return points, nil
}

// periodLayouts are the date string shapes warehouses hand back for a
// month column.
var periodLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01",
}

// NormalizePeriod converts whatever the driver scanned for the sale_month
// column into a month-start UTC time.
func NormalizePeriod(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return timeseries.MonthStart(t), nil
	case []byte:
		return parsePeriod(string(t))
	case string:
		return parsePeriod(t)
	case nil:
		return time.Time{}, fmt.Errorf("NULL sale_month")
	default:
		return time.Time{}, fmt.Errorf("unsupported sale_month type %T", v)
	}
}

func parsePeriod(s string) (time.Time, error) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return timeseries.MonthStart(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed sale_month %q", s)
}

const createResultsTemplate = `CREATE TABLE %s (
	sale_month DATE NOT NULL,
	category TEXT NOT NULL,
	sales DOUBLE PRECISION NOT NULL,
	train_prediction DOUBLE PRECISION,
	test_prediction DOUBLE PRECISION
)`

// WriteResults replaces the destination table with the given prediction
// rows. Drop, create, and insert happen inside one transaction so a failed
// run never leaves a half-written table behind.
func (s *Store) WriteResults(ctx context.Context, rows []forecast.Row) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &WriteError{Table: s.cfg.Destination, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DROP TABLE IF EXISTS %s", s.cfg.Destination)); err != nil {
		return &WriteError{Table: s.cfg.Destination, Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(createResultsTemplate, s.cfg.Destination)); err != nil {
		return &WriteError{Table: s.cfg.Destination, Err: err}
	}

	insert := fmt.Sprintf(
		`INSERT INTO %s (sale_month, category, sales, train_prediction, test_prediction)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.cfg.Destination,
	)
	stmt, err := tx.PreparexContext(ctx, insert)
	if err != nil {
		return &WriteError{Table: s.cfg.Destination, Err: err}
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Period, row.Category, row.Actual,
			row.TrainPrediction, row.TestPrediction,
		); err != nil {
			return &WriteError{Table: s.cfg.Destination, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &WriteError{Table: s.cfg.Destination, Err: err}
	}
	return nil
}

// ReadResults reads the destination table back, sorted by
// (sale_month, category). It exists for round-trip verification; the
// category-block order of the original table is not recoverable from the
// sink.
func (s *Store) ReadResults(ctx context.Context) ([]forecast.Row, error) {
	query := fmt.Sprintf(
		`SELECT sale_month, category, sales, train_prediction, test_prediction
		 FROM %s ORDER BY sale_month, category`,
		s.cfg.Destination,
	)

	qrows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, &LoadError{Table: s.cfg.Destination, Err: err}
	}
	defer qrows.Close()

	var out []forecast.Row
	for qrows.Next() {
		var (
			rawMonth    any
			category    string
			sales       float64
			train, test sql.NullFloat64
		)
		if err := qrows.Scan(&rawMonth, &category, &sales, &train, &test); err != nil {
			return nil, &LoadError{Table: s.cfg.Destination, Err: err}
		}
		period, err := NormalizePeriod(rawMonth)
		if err != nil {
			return nil, &LoadError{Table: s.cfg.Destination, Err: err}
		}

		row := forecast.Row{Period: period, Category: category, Actual: sales}
		if train.Valid {
			v := train.Float64
			row.TrainPrediction = &v
		}
		if test.Valid {
			v := test.Float64
			row.TestPrediction = &v
		}
		out = append(out, row)
	}
	if err := qrows.Err(); err != nil {
		return nil, &LoadError{Table: s.cfg.Destination, Err: err}
	}
	return out, nil
}
