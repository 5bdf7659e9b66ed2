// Package salescast implements per-category seasonal sales forecasting.
//
// Salescast reads monthly sales history shaped as (SALE_MONTH, CATEGORY,
// SALES) from a warehouse table, fits an automatically order-selected
// seasonal ARIMA model independently for each category, and writes one
// prediction row per input row back to a destination table. Train-window
// rows carry the model's in-sample fitted value, held-out rows carry the
// out-of-sample forecast, and the original observation is preserved on
// every row as ground truth.
//
// # Pipeline
//
// Load, forecast, write:
//
//	store, _ := warehouse.Open(warehouse.Config{DSN: dsn, Origin: "sales", Destination: "sales_predictions"})
//	points, _ := store.LoadSales(ctx)
//	runner := forecast.NewRunner(forecast.DefaultConfig(), logger)
//	table, _ := runner.Run(ctx, points)
//	_ = store.WriteResults(ctx, table.Rows)
//
// # Packages
//
//   - timeseries: series container, differencing, month-period helpers
//   - stats: stationarity tests, autocorrelation, residual diagnostics
//   - sarima: seasonal ARIMA estimation, in-sample fit, forecasting
//   - autoarima: stepwise automatic order selection
//   - forecast: per-category train/test orchestration and assembly
//   - warehouse: SQL source/sink adapters
//   - logging: structured logging setup
package salescast
