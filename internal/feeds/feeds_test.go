package feeds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBankFeed_Load(t *testing.T) {
	path := writeCSV(t, "bank.csv", `id,amount,date,description,external_id
BANK001,100.50,2024-03-10,Payment to Vendor A,EXT-1
BANK002,"$1,250.00",03/11/2024,Office supplies,
BANK003,-42.00,2024-03-12,STRIPE charge,EXT-3
`)

	feed, err := NewBankFeed(path, nil)
	require.NoError(t, err)

	transactions, err := feed.BankTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	assert.Equal(t, "BANK001", transactions[0].ID)
	assert.True(t, transactions[0].Amount.Equal(decimal.NewFromFloat(100.50)))
	assert.Equal(t, "EXT-1", transactions[0].ExternalID)

	// currency symbol and thousand separator stripped
	assert.True(t, transactions[1].Amount.Equal(decimal.NewFromInt(1250)))
	// US date format accepted
	assert.Equal(t, "2024-03-11", transactions[1].DateKey())

	stats := feed.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.RowsLoaded)
	assert.False(t, stats.HasErrors())
}

func TestBankFeed_ColumnAliases(t *testing.T) {
	path := writeCSV(t, "bank.csv", `Transaction_ID,Value,Posted_Date,Memo
BANK001,10.00,2024-03-10,coffee
`)

	feed, err := NewBankFeed(path, nil)
	require.NoError(t, err)

	transactions, err := feed.BankTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "coffee", transactions[0].Description)
}

func TestBankFeed_RowErrorsIsolated(t *testing.T) {
	path := writeCSV(t, "bank.csv", `id,amount,date
BANK001,10.00,2024-03-10
BANK002,not-a-number,2024-03-10
BANK003,30.00,not-a-date
BANK004,40.00,2024-03-11
`)

	feed, err := NewBankFeed(path, nil)
	require.NoError(t, err)

	transactions, err := feed.BankTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, transactions, 2)

	stats := feed.Stats()
	assert.Equal(t, 4, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsLoaded)
	assert.Len(t, stats.Errors, 2)
}

func TestBankFeed_MissingRequiredColumn(t *testing.T) {
	path := writeCSV(t, "bank.csv", `id,description
BANK001,no amounts here
`)

	feed, err := NewBankFeed(path, nil)
	require.NoError(t, err)

	_, err = feed.BankTransactions(context.Background())
	assert.Error(t, err)
}

func TestLedgerFeed_Load(t *testing.T) {
	path := writeCSV(t, "ledger.csv", `id,amount,date,description,category
BOOK001,100.50,2024-03-10,Payment to Vendor A,expenses
BOOK002,250.00,2024-03-11,Office supplies,expenses
`)

	feed, err := NewLedgerFeed(path, nil)
	require.NoError(t, err)

	transactions, err := feed.BookTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "expenses", transactions[0].Category)
}

func TestFeed_MissingFile(t *testing.T) {
	feed, err := NewBankFeed("/no/such/file.csv", nil)
	require.NoError(t, err)

	_, err = feed.BankTransactions(context.Background())
	assert.Error(t, err)
}
