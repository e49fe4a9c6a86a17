package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/report"
	"spendwise/internal/storage"
	"spendwise/internal/store"
)

func main() {
	month := flag.String("month", core.CurrentMonth(time.Now()), "month to report (YYYY-MM)")
	file := flag.String("file", "", "read transactions from a JSON export instead of the configured backend")
	chartsDir := flag.String("charts", "", "directory to write PNG charts into")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"))

	if _, err := core.ParseMonth(*month); err != nil {
		logger.Error("Invalid month", log.FieldError, err, log.FieldMonth, *month)
		os.Exit(2)
	}

	ctx := context.Background()
	kv, cleanup, err := openKV(ctx, *file, logger)
	if err != nil {
		logger.Error("Failed to open transactions", log.FieldError, err)
		os.Exit(1)
	}
	defer cleanup()

	st := store.New(storage.ReadOnly(kv), store.Options{Logger: logger})
	st.Load(ctx)
	all := st.Transactions()
	inMonth := core.FilterTransactions(all, core.Filter{Month: *month, Type: core.FilterAll})

	fmt.Printf("Transactions %s\n", *month)
	report.WriteTransactions(os.Stdout, inMonth)
	fmt.Println()
	report.WriteSummary(os.Stdout, core.ComputeTotals(inMonth), core.CategoryBreakdown(inMonth))
	fmt.Println()
	fmt.Println("Monthly trend")
	report.WriteMonthly(os.Stdout, core.MonthlyTrend(all))

	if *chartsDir == "" {
		return
	}
	if err := writeCharts(*chartsDir, *month, all, inMonth); err != nil {
		logger.Error("Failed to write charts", log.FieldError, err)
		os.Exit(1)
	}
}

// openKV returns a KV holding the file's transactions, or the configured
// data backend when file is empty.
func openKV(ctx context.Context, file string, logger *log.Logger) (storage.KV, func(), error) {
	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", file, err)
		}
		kv := storage.NewMemoryKV()
		if err := kv.Set(ctx, storage.TransactionsKey, string(raw)); err != nil {
			return nil, nil, err
		}
		return kv, func() {}, nil
	}

	cfg := config.Load()
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backend.Config{
		DataType:     backend.BackendType(cfg.DataBackend),
		CacheType:    backend.MemoryBackend,
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create backend: %w", err)
	}
	cleanup := func() {
		if result.Cleanup != nil {
			_ = result.Cleanup()
		}
	}
	return result.KV, cleanup, nil
}

func writeCharts(dir, month string, all, inMonth []core.Transaction) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	days, err := core.DailyTrend(inMonth, month)
	if err != nil {
		return err
	}

	charts := []struct {
		name   string
		render func(f *os.File) error
	}{
		{"categories-" + month + ".png", func(f *os.File) error {
			return report.CategoryChart(f, "Expenses "+month, core.CategoryBreakdown(inMonth))
		}},
		{"daily-" + month + ".png", func(f *os.File) error {
			return report.DailyChart(f, month, days)
		}},
		{"monthly.png", func(f *os.File) error {
			return report.MonthlyChart(f, core.MonthlyTrend(all))
		}},
	}

	for _, c := range charts {
		path := filepath.Join(dir, c.name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		err = c.render(f)
		f.Close()
		if errors.Is(err, report.ErrNoData) {
			os.Remove(path)
			fmt.Printf("Skipped %s: no data\n", c.name)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
