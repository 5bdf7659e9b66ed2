package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/sartorproj/salescast/forecast"
)

// newMockStore builds a Store over a sqlmock connection so the SQL paths
// can be exercised without a live warehouse.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := &Store{
		db:  sqlx.NewDb(db, "sqlmock"),
		cfg: Config{Driver: "postgres", Origin: "sales", Destination: "sales_predictions"},
	}
	return store, mock
}

func fptr(v float64) *float64 { return &v }

func TestLoadSales(t *testing.T) {
	store, mock := newMockStore(t)

	jan := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"sale_month", "category", "sales"}).
		AddRow(jan, "A", 100.0).
		AddRow(jan, "B", 50.0).
		AddRow("2023-02-17", "A", 110.0). // date string, mid-month
		AddRow(feb, "B", 55.0)
	mock.ExpectQuery("SELECT sale_month, category, sales FROM sales ORDER BY sale_month, category").
		WillReturnRows(rows)

	points, err := store.LoadSales(context.Background())
	if err != nil {
		t.Fatalf("LoadSales failed: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("Expected 4 points, got %d", len(points))
	}

	want := []forecast.Point{
		{Period: jan, Category: "A", Value: 100},
		{Period: jan, Category: "B", Value: 50},
		{Period: feb, Category: "A", Value: 110},
		{Period: feb, Category: "B", Value: 55},
	}
	for i, p := range points {
		if !p.Period.Equal(want[i].Period) || p.Category != want[i].Category || p.Value != want[i].Value {
			t.Errorf("Point %d: got %+v, expected %+v", i, p, want[i])
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestLoadSalesNullField(t *testing.T) {
	store, mock := newMockStore(t)

	jan := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"sale_month", "category", "sales"}).
		AddRow(jan, nil, 100.0)
	mock.ExpectQuery("SELECT sale_month, category, sales FROM sales").
		WillReturnRows(rows)

	_, err := store.LoadSales(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError for NULL category, got %v", err)
	}
}

func TestLoadSalesDuplicateRow(t *testing.T) {
	store, mock := newMockStore(t)

	jan := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"sale_month", "category", "sales"}).
		AddRow(jan, "A", 100.0).
		AddRow(jan.Add(36*time.Hour), "A", 101.0) // same month after normalization
	mock.ExpectQuery("SELECT sale_month, category, sales FROM sales").
		WillReturnRows(rows)

	_, err := store.LoadSales(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError for duplicate (period, category), got %v", err)
	}
}

func TestLoadSalesUnreachableSource(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT sale_month, category, sales FROM sales").
		WillReturnError(errors.New("connection refused"))

	_, err := store.LoadSales(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected LoadError for unreachable source, got %v", err)
	}
}

func TestWriteResults(t *testing.T) {
	store, mock := newMockStore(t)

	jan := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC)
	rows := []forecast.Row{
		{Period: jan, Category: "A", Actual: 100, TrainPrediction: fptr(99.5)},
		{Period: feb, Category: "A", Actual: 110, TestPrediction: fptr(108.25)},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS sales_predictions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE sales_predictions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO sales_predictions")
	prep.ExpectExec().WithArgs(jan, "A", 100.0, 99.5, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(feb, "A", 110.0, nil, 108.25).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.WriteResults(context.Background(), rows); err != nil {
		t.Fatalf("WriteResults failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestWriteResultsRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS sales_predictions").
		WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := store.WriteResults(context.Background(), nil)
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected WriteError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)

	jan := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC)
	// Already in (sale_month, category) order, the order ReadResults
	// returns, so the round trip compares index by index.
	written := []forecast.Row{
		{Period: jan, Category: "A", Actual: 100, TrainPrediction: fptr(99.5)},
		{Period: jan, Category: "B", Actual: 50, TrainPrediction: fptr(50.0)},
		{Period: feb, Category: "A", Actual: 110, TestPrediction: fptr(108.25)},
		{Period: feb, Category: "B", Actual: 55, TestPrediction: fptr(54.5)},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS sales_predictions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE sales_predictions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO sales_predictions")
	for _, row := range written {
		var train, test any
		if row.TrainPrediction != nil {
			train = *row.TrainPrediction
		}
		if row.TestPrediction != nil {
			test = *row.TestPrediction
		}
		prep.ExpectExec().WithArgs(row.Period, row.Category, row.Actual, train, test).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	readRows := sqlmock.NewRows([]string{
		"sale_month", "category", "sales", "train_prediction", "test_prediction",
	})
	for _, row := range written {
		var train, test any
		if row.TrainPrediction != nil {
			train = *row.TrainPrediction
		}
		if row.TestPrediction != nil {
			test = *row.TestPrediction
		}
		readRows.AddRow(row.Period, row.Category, row.Actual, train, test)
	}
	mock.ExpectQuery("SELECT sale_month, category, sales, train_prediction, test_prediction").
		WillReturnRows(readRows)

	if err := store.WriteResults(context.Background(), written); err != nil {
		t.Fatalf("WriteResults failed: %v", err)
	}
	read, err := store.ReadResults(context.Background())
	if err != nil {
		t.Fatalf("ReadResults failed: %v", err)
	}

	if len(read) != len(written) {
		t.Fatalf("Round trip changed row count: wrote %d, read %d", len(written), len(read))
	}
	for i := range written {
		w, r := written[i], read[i]
		if !r.Period.Equal(w.Period) || r.Category != w.Category || r.Actual != w.Actual {
			t.Errorf("Row %d identity differs: wrote %+v, read %+v", i, w, r)
		}
		if !samePrediction(w.TrainPrediction, r.TrainPrediction) ||
			!samePrediction(w.TestPrediction, r.TestPrediction) {
			t.Errorf("Row %d predictions differ after round trip", i)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func samePrediction(a, b *float64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func TestNormalizePeriodTime(t *testing.T) {
	in := time.Date(2023, time.May, 17, 14, 30, 0, 0, time.FixedZone("X", 3*3600))
	got, err := NormalizePeriod(in)
	if err != nil {
		t.Fatalf("NormalizePeriod failed: %v", err)
	}
	want := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizePeriodStrings(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2023-05-01", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-05-17", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-05-01 00:00:00", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-05-01T00:00:00Z", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{"2023-05", time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := NormalizePeriod(c.in)
		if err != nil {
			t.Errorf("NormalizePeriod(%q) failed: %v", c.in, err)
			continue
		}
		if !got.Equal(c.want) {
			t.Errorf("NormalizePeriod(%q) = %v, expected %v", c.in, got, c.want)
		}
	}
}

func TestNormalizePeriodBytes(t *testing.T) {
	got, err := NormalizePeriod([]byte("2022-11-01"))
	if err != nil {
		t.Fatalf("NormalizePeriod failed: %v", err)
	}
	want := time.Date(2022, time.November, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestNormalizePeriodMalformed(t *testing.T) {
	if _, err := NormalizePeriod("May 2023"); err == nil {
		t.Error("Expected error for malformed date string")
	}
	if _, err := NormalizePeriod(nil); err == nil {
		t.Error("Expected error for NULL period")
	}
	if _, err := NormalizePeriod(42); err == nil {
		t.Error("Expected error for unsupported type")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{DSN: "x", Origin: "sales", Destination: "predictions"}.withDefaults()
	if cfg.Driver != "postgres" {
		t.Errorf("Expected default driver postgres, got %q", cfg.Driver)
	}
}

func TestValidIdent(t *testing.T) {
	good := []string{"sales", "sales_2023", "analytics.sales", "_tmp"}
	for _, name := range good {
		if !validIdent(name) {
			t.Errorf("Expected %q to be a valid table name", name)
		}
	}
	bad := []string{"", "sales; DROP TABLE x", "a.b.c", "2sales", "sales-old", "a b"}
	for _, name := range bad {
		if validIdent(name) {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}

func TestOpenRejectsBadTableNames(t *testing.T) {
	_, err := Open(Config{DSN: "x", Origin: "sales; --", Destination: "predictions"})
	if err == nil {
		t.Error("Expected error for invalid origin table name")
	}
	_, err = Open(Config{DSN: "x", Origin: "sales", Destination: "predictions; --"})
	if err == nil {
		t.Error("Expected error for invalid destination table name")
	}
}
