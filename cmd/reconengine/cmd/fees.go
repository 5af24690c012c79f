package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"reconciliation-engine/internal/engine"
	"reconciliation-engine/internal/feeds"
	"reconciliation-engine/internal/fees"
	"reconciliation-engine/internal/models"
)

var (
	feesBankFile string
	feesSchedule string
	feesJSON     bool
)

// feesCmd represents the fees command
var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Break out payment processor fees from a bank feed",
	Long: `Fees identifies the payment processor behind each bank transaction
and decomposes the amount into net amount and fee line items.

Example:
  reconengine fees --bank-file bank.csv
  reconengine fees --bank-file bank.csv --fee-schedule rates.yaml --json`,

	RunE: runFees,
}

func init() {
	rootCmd.AddCommand(feesCmd)

	feesCmd.Flags().StringVarP(&feesBankFile, "bank-file", "b", "", "path to bank feed CSV file (required)")
	feesCmd.Flags().StringVar(&feesSchedule, "fee-schedule", "", "YAML fee schedule file (optional)")
	feesCmd.Flags().BoolVar(&feesJSON, "json", false, "emit JSON instead of a table")

	feesCmd.MarkFlagRequired("bank-file")
}

func runFees(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	config := engine.DefaultConfig()
	if feesSchedule != "" {
		schedule, err := fees.LoadSchedule(feesSchedule)
		if err != nil {
			return exitWithError(err)
		}
		config.Fees = schedule
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		return exitWithError(err)
	}

	bankFeed, err := feeds.NewBankFeed(feesBankFile, nil)
	if err != nil {
		return exitWithError(err)
	}
	bank, err := bankFeed.BankTransactions(ctx)
	if err != nil {
		return exitWithError(err)
	}

	breakouts, itemErrors, err := eng.BreakoutFees(ctx, bank)
	if err != nil {
		return exitWithError(err)
	}

	out := cmd.OutOrStdout()

	if feesJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(struct {
			Breakouts []*models.FeeBreakout `json:"breakouts"`
			Errors    []*models.ItemError   `json:"errors,omitempty"`
		}{breakouts, itemErrors})
	}

	fmt.Fprintf(out, "%-12s %-10s %10s %10s %10s\n", "ID", "PROCESSOR", "AMOUNT", "FEES", "NET")
	for _, breakout := range breakouts {
		fmt.Fprintf(out, "%-12s %-10s %10s %10s %10s\n",
			breakout.Transaction.ID,
			breakout.Processor,
			breakout.Transaction.Amount.StringFixed(2),
			breakout.TotalFees.StringFixed(2),
			breakout.NetAmount.StringFixed(2))
	}

	for _, itemErr := range itemErrors {
		fmt.Fprintf(out, "ERROR: %s\n", itemErr.Error())
	}

	return nil
}
