package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/feeds"
	"reconciliation-engine/internal/report"
)

var (
	manifestFile string
	batchFormat  string
	batchOutput  string
)

// batchManifest is the YAML description of a multi-account run
type batchManifest struct {
	Accounts []struct {
		AccountID string `yaml:"account_id"`
		BankFile  string `yaml:"bank_file"`
		BookFile  string `yaml:"book_file"`
	} `yaml:"accounts"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Reconcile multiple accounts from a manifest",
	Long: `Batch reconciles several accounts in one run. Accounts are processed
in parallel and isolated from each other: a failure in one account is
reported on that account without affecting the rest.

The manifest is a YAML file:

  accounts:
    - account_id: acct-001
      bank_file: acct1-bank.csv
      book_file: acct1-ledger.csv
    - account_id: acct-002
      bank_file: acct2-bank.csv
      book_file: acct2-ledger.csv

Example:
  reconengine batch --manifest accounts.yaml --output-format json`,

	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&manifestFile, "manifest", "m", "", "YAML manifest of accounts (required)")
	batchCmd.Flags().StringVarP(&batchFormat, "output-format", "f", "console", "output format: console, json")
	batchCmd.Flags().StringVarP(&batchOutput, "output-file", "o", "", "output file path (default: stdout)")

	batchCmd.MarkFlagRequired("manifest")

	viper.BindPFlag("manifest", batchCmd.Flags().Lookup("manifest"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manifest, err := loadManifest(manifestFile)
	if err != nil {
		return err
	}
	if len(manifest.Accounts) == 0 {
		return fmt.Errorf("manifest lists no accounts")
	}

	eng, err := engine.NewEngine(nil)
	if err != nil {
		return exitWithError(err)
	}

	batches := make([]*engine.AccountBatch, 0, len(manifest.Accounts))
	for _, account := range manifest.Accounts {
		batch := &engine.AccountBatch{AccountID: account.AccountID}

		bankFeed, err := feeds.NewBankFeed(account.BankFile, nil)
		if err != nil {
			return exitWithError(err)
		}
		if batch.Bank, err = bankFeed.BankTransactions(ctx); err != nil {
			return exitWithError(err)
		}

		ledgerFeed, err := feeds.NewLedgerFeed(account.BookFile, nil)
		if err != nil {
			return exitWithError(err)
		}
		if batch.Book, err = ledgerFeed.BookTransactions(ctx); err != nil {
			return exitWithError(err)
		}

		batches = append(batches, batch)
	}

	result, err := eng.ReconcileBatch(ctx, batches)
	if err != nil {
		return exitWithError(err)
	}

	generator, err := report.NewGenerator(&report.Config{
		Format:            report.OutputFormat(batchFormat),
		IncludeMatches:    true,
		IncludeUnmatched:  true,
		IncludeSuspicious: true,
		IncludeExceptions: true,
		CSVDelimiter:      ',',
	})
	if err != nil {
		return exitWithError(err)
	}

	writer, closeWriter, err := openOutput(batchOutput)
	if err != nil {
		return exitWithError(err)
	}
	defer closeWriter()

	return generator.GenerateBatch(result, writer)
}

func loadManifest(path string) (*batchManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}

	var manifest batchManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &manifest, nil
}
