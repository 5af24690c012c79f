package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/feeds"
	"reconciliation-engine/internal/fees"
	"reconciliation-engine/internal/models"
	"reconciliation-engine/internal/report"
	"reconciliation-engine/internal/store"
	"reconciliation-engine/pkg/errors"
)

var (
	bankFile      string
	bookFile      string
	outputFormat  string
	outputFile    string
	snapshotDB    string
	feeSchedule   string
	minConfidence float64
	dateTolerance int
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank feed against ledger records",
	Long: `Reconcile matches bank feed transactions against ledger records,
reporting matches, unmatched items, suspicious activity, and exceptions.

Examples:
  # Basic reconciliation to console
  reconengine reconcile --bank-file bank.csv --book-file ledger.csv

  # JSON report to a file, snapshot persisted to SQLite
  reconengine reconcile --bank-file bank.csv --book-file ledger.csv \
    --output-format json --output-file result.json --snapshot-db snapshots.db

  # Tighter matching
  reconengine reconcile --bank-file bank.csv --book-file ledger.csv \
    --min-confidence 0.9 --date-tolerance 1`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&bankFile, "bank-file", "b", "", "path to bank feed CSV file (required)")
	reconcileCmd.Flags().StringVarP(&bookFile, "book-file", "k", "", "path to ledger CSV file (required)")

	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().StringVar(&snapshotDB, "snapshot-db", "", "SQLite file for snapshot persistence (optional)")
	reconcileCmd.Flags().StringVar(&feeSchedule, "fee-schedule", "", "YAML fee schedule file (optional)")

	reconcileCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.8, "match acceptance threshold")
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 3, "candidate date tolerance in days")

	reconcileCmd.MarkFlagRequired("bank-file")
	reconcileCmd.MarkFlagRequired("book-file")

	viper.BindPFlag("bank-file", reconcileCmd.Flags().Lookup("bank-file"))
	viper.BindPFlag("book-file", reconcileCmd.Flags().Lookup("book-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("snapshot-db", reconcileCmd.Flags().Lookup("snapshot-db"))
	viper.BindPFlag("fee-schedule", reconcileCmd.Flags().Lookup("fee-schedule"))
	viper.BindPFlag("min-confidence", reconcileCmd.Flags().Lookup("min-confidence"))
	viper.BindPFlag("date-tolerance", reconcileCmd.Flags().Lookup("date-tolerance"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	bankFile = viper.GetString("bank-file")
	bookFile = viper.GetString("book-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	snapshotDB = viper.GetString("snapshot-db")
	feeSchedule = viper.GetString("fee-schedule")
	minConfidence = viper.GetFloat64("min-confidence")
	dateTolerance = viper.GetInt("date-tolerance")

	if bankFile == "" {
		return fmt.Errorf("--bank-file is required")
	}
	if bookFile == "" {
		return fmt.Errorf("--book-file is required")
	}
	if !report.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
	if minConfidence < 0 || minConfidence > 1 {
		return fmt.Errorf("--min-confidence must be between 0 and 1")
	}
	if dateTolerance < 0 {
		return fmt.Errorf("--date-tolerance cannot be negative")
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	eng, cleanup, err := buildEngine()
	if err != nil {
		return exitWithError(err)
	}
	defer cleanup()

	bankFeed, err := feeds.NewBankFeed(bankFile, nil)
	if err != nil {
		return exitWithError(err)
	}
	ledgerFeed, err := feeds.NewLedgerFeed(bookFile, nil)
	if err != nil {
		return exitWithError(err)
	}

	result, err := eng.ReconcileFrom(ctx, bankFeed, ledgerFeed)
	if err != nil {
		return exitWithError(err)
	}
	result.ItemErrors = parseItemErrors(bankFeed.Stats(), ledgerFeed.Stats())

	generator, err := report.NewGenerator(&report.Config{
		Format:            report.OutputFormat(outputFormat),
		IncludeMatches:    true,
		IncludeUnmatched:  true,
		IncludeSuspicious: true,
		IncludeExceptions: true,
		CSVDelimiter:      ',',
	})
	if err != nil {
		return exitWithError(err)
	}

	writer, closeWriter, err := openOutput(outputFile)
	if err != nil {
		return exitWithError(err)
	}
	defer closeWriter()

	return generator.Generate(result, writer)
}

// parseItemErrors converts skipped CSV rows into item errors so the report
// shows them alongside the reconciliation outcome
func parseItemErrors(stats ...*feeds.ParseStats) []*models.ItemError {
	var items []*models.ItemError
	for _, s := range stats {
		if s == nil {
			continue
		}
		for _, rowErr := range s.Errors {
			items = append(items, &models.ItemError{
				Stage:   "parse",
				Message: rowErr.Error(),
			})
		}
	}

	return items
}

// buildEngine assembles the engine from the shared flags
func buildEngine() (*engine.Engine, func(), error) {
	config := engine.DefaultConfig()
	config.Matching.MinConfidence = minConfidence
	config.Matching.DateToleranceDays = dateTolerance

	if feeSchedule != "" {
		schedule, err := fees.LoadSchedule(feeSchedule)
		if err != nil {
			return nil, nil, err
		}
		config.Fees = schedule
	}

	var opts []engine.Option
	cleanup := func() {}

	if snapshotDB != "" {
		snapshots, err := store.NewSQLiteStore(snapshotDB)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, engine.WithStore(snapshots))
		cleanup = func() { snapshots.Close() }
	}

	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return eng, cleanup, nil
}

// openOutput returns the report writer, defaulting to stdout
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output file: %w", err)
	}

	return file, func() { file.Close() }, nil
}

// exitWithError maps engine errors to process exit codes
func exitWithError(err error) error {
	if engineErr, ok := errors.AsEngineError(err); ok {
		fmt.Fprintf(os.Stderr, "Error: %s\n", engineErr.Error())
		os.Exit(engineErr.GetExitCode())
	}
	return err
}
