package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"delivery-shift-report/internal/config"
	"delivery-shift-report/internal/influx"
	"delivery-shift-report/internal/ingest"
	"delivery-shift-report/internal/kafka"
	"delivery-shift-report/internal/notify"
	"delivery-shift-report/internal/output"
	"delivery-shift-report/internal/report"
	"delivery-shift-report/internal/schedule"
	"delivery-shift-report/internal/store"
)

const dbTimeout = 12 * time.Second

type runOptions struct {
	InputPath string
	JSONOut   string
	CSVDir    string
	StoreDB   bool
	InitDB    bool
	DBTag     string
	// AsOf pins "today" for the rolling window; zero means the wall clock.
	AsOf time.Time
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default CONFIG_PATH or config.yaml)")
	inputPath := flag.String("input", "", "Path to delivery CSV")
	asOf := flag.String("as-of", "", "Report date for the rolling window (YYYY-MM-DD); default today")
	windowPolicy := flag.String("window", "", "Date window policy (fixed, rolling)")
	scheme := flag.String("scheme", "", "Duration bucket scheme (coarse, fine, custom)")
	customer := flag.String("customer", "", "Customer identifier to match")
	hub := flag.String("hub", "", "Pickup hub treated as the DC")
	includeEmpty := flag.Bool("include-empty-days", false, "Emit zero rows for window days without orders")
	jsonOut := flag.String("json", "", "Optional JSON output path")
	csvDir := flag.String("csv", "", "Optional directory for one CSV per table")
	dbEnabled := flag.Bool("db", false, "Store report in the database (pgx requires DELIVERY_REPORT_DB_URL or DATABASE_URL)")
	dbSchema := flag.String("db-schema", "", "Postgres schema for report tables")
	dbTag := flag.String("db-tag", "", "Optional label for this report run")
	initDB := flag.Bool("init-db", false, "Initialize database schema and seed data if empty")
	scheduleSpec := flag.String("schedule", "", "Cron expression to re-run the report, e.g. \"0 6 * * *\"")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		exitWithError(err)
	}
	overrideString(&cfg.WindowPolicy, *windowPolicy)
	overrideString(&cfg.Scheme, *scheme)
	overrideString(&cfg.Customer, *customer)
	overrideString(&cfg.Hub, *hub)
	overrideString(&cfg.DBSchema, *dbSchema)
	overrideString(&cfg.Schedule, *scheduleSpec)
	if *includeEmpty {
		cfg.IncludeEmptyDays = true
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(err)
	}

	if *inputPath == "" {
		exitWithError(errors.New("--input is required"))
	}

	opts := runOptions{
		InputPath: *inputPath,
		JSONOut:   *jsonOut,
		CSVDir:    *csvDir,
		StoreDB:   *dbEnabled,
		InitDB:    *initDB,
		DBTag:     *dbTag,
	}
	if *asOf != "" {
		parsed, err := parseDate(*asOf)
		if err != nil {
			exitWithError(fmt.Errorf("invalid --as-of date: %w", err))
		}
		opts.AsOf = parsed
	}

	if strings.TrimSpace(cfg.Schedule) == "" {
		if _, err := runReport(context.Background(), cfg, opts, os.Stdout); err != nil {
			exitWithError(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = schedule.Run(ctx, cfg.Schedule, cfg.Location, func(ctx context.Context) error {
		_, err := runReport(ctx, cfg, opts, os.Stdout)
		return err
	})
	if err != nil {
		exitWithError(err)
	}
}

// runReport reads the input, prints the report and feeds every configured
// sink. Sink failures are joined so one broken sink does not skip the rest.
func runReport(ctx context.Context, cfg config.Config, opts runOptions, w io.Writer) (report.Report, error) {
	table, err := ingest.ReadFile(opts.InputPath)
	if err != nil {
		return report.Report{}, err
	}

	today := opts.AsOf
	if today.IsZero() {
		today = time.Now().In(cfg.Location)
	}
	reportOpts, err := cfg.ReportOptions(dateOnly(today))
	if err != nil {
		return report.Report{}, err
	}

	rep := report.Build(table, reportOpts)
	output.PrintText(w, rep, opts.InputPath)

	if opts.JSONOut != "" {
		if err := output.WriteJSON(rep, opts.JSONOut); err != nil {
			return rep, err
		}
		fmt.Fprintf(w, "\nJSON report saved to %s\n", opts.JSONOut)
	}
	if opts.CSVDir != "" {
		paths, err := output.WriteCSV(rep, opts.CSVDir)
		if err != nil {
			return rep, err
		}
		fmt.Fprintf(w, "Table CSVs saved to %s (%d files)\n", opts.CSVDir, len(paths))
	}

	if opts.StoreDB || opts.InitDB {
		if err := persist(ctx, cfg, rep, opts, w); err != nil {
			return rep, err
		}
	}

	return rep, publish(ctx, cfg, rep, w)
}

func persist(ctx context.Context, cfg config.Config, rep report.Report, opts runOptions, w io.Writer) error {
	dsn := cfg.DSN()
	if dsn == "" {
		return errors.New("database URL missing; set DELIVERY_REPORT_DB_URL or DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	db, err := store.Open(ctx, cfg.DBDriver, dsn, cfg.DBSchema)
	if err != nil {
		return err
	}
	defer db.Close()

	seeded := false
	if opts.InitDB {
		runID, err := db.Seed(ctx, rep, opts.DBTag)
		if err != nil {
			return err
		}
		if runID != "" {
			seeded = true
			fmt.Fprintf(w, "\nSeeded %s with initial report run (run_id=%s)\n", cfg.DBDriver, runID)
		}
	}
	if opts.StoreDB {
		if seeded {
			fmt.Fprintln(w, "Skipped duplicate insert; current report already used for seed.")
			return nil
		}
		runID, err := db.SaveReport(ctx, rep, opts.DBTag)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nStored report run in %s (run_id=%s)\n", cfg.DBDriver, runID)
	}
	return nil
}

func publish(ctx context.Context, cfg config.Config, rep report.Report, w io.Writer) error {
	var errs []error

	if cfg.InfluxConfigured() {
		if err := writeInflux(ctx, cfg, rep, w); err != nil {
			errs = append(errs, fmt.Errorf("influx: %w", err))
		}
	}
	if cfg.KafkaConfigured() {
		if err := publishKafka(cfg, rep, w); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	if cfg.SlackConfigured() {
		notifier := notify.NewSlack(cfg.SlackBotToken, cfg.SlackChannelID)
		if err := notifier.PostSummary(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("slack: %w", err))
		} else {
			fmt.Fprintf(w, "Summary posted to Slack channel %s\n", cfg.SlackChannelID)
		}
	}
	return errors.Join(errs...)
}

func writeInflux(ctx context.Context, cfg config.Config, rep report.Report, w io.Writer) error {
	writer, err := influx.NewWriter(ctx, cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	if err != nil {
		return err
	}
	defer writer.Close()

	n, err := writer.WriteReport(ctx, rep)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %d daily points to InfluxDB bucket %s\n", n, cfg.InfluxBucket)
	return nil
}

func publishKafka(cfg config.Config, rep report.Report, w io.Writer) error {
	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return err
	}
	defer publisher.Close()

	n, err := publisher.PublishReport(rep)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Published %d rows to Kafka topic %s\n", n, cfg.KafkaTopic)
	return nil
}

func overrideString(field *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*field = value
	}
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"01-02-2006",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

func dateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
