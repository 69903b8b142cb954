package services

import (
	"strings"
	"testing"

	"valore/internal/models"
	"valore/internal/testutil"
)

func TestCreateBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	assets := NewAssetService(db)
	transactions := NewTransactionService(db)
	service := NewImportService(db, assets, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)

	t.Run("stages rows and keeps parse errors", func(t *testing.T) {
		csv := strings.Join([]string{
			"trade_at,symbol,side,quantity,price,fees,notes",
			"2025-01-10,AAPL,buy,10,150.50,1.95,first lot",
			"15/02/2025,AAPL,sell,4,\"160,25\",,",
			"2025-03-01,MSFT,buy,not-a-number,100,,",
			"2025-03-02,,buy,1,100,,",
		}, "\n")

		batch, err := service.CreateBatch(user.ID, portfolio.ID, "trades.csv", strings.NewReader(csv))
		testutil.AssertNoError(t, err)

		if batch.RowCount != 4 {
			t.Fatalf("expected 4 staged rows, got %d", batch.RowCount)
		}
		if batch.ErrorCount != 2 {
			t.Fatalf("expected 2 row errors, got %d", batch.ErrorCount)
		}
		if batch.Status != models.ImportPending {
			t.Errorf("expected pending status, got %q", batch.Status)
		}

		// The day-first date and comma decimal both parse.
		sell := batch.Rows[1]
		if sell.RowError != "" {
			t.Fatalf("expected clean sell row, got error %q", sell.RowError)
		}
		if sell.TradeAt.Month() != 2 || sell.TradeAt.Day() != 15 {
			t.Errorf("expected 15 February, got %v", sell.TradeAt)
		}
		testutil.AssertInDelta(t, 160.25, sell.Price, 1e-9, "price")

		if batch.Rows[2].RowError == "" || batch.Rows[3].RowError == "" {
			t.Error("expected errors on the malformed rows")
		}
	})

	t.Run("maps broker operation codes and grouped digits", func(t *testing.T) {
		csv := strings.Join([]string{
			"trade_at,symbol,side,quantity,price",
			"2025-04-01,ENI,A,100,\"1.234,56\"",
			"2025-04-02,ENI,V,50,\"1,250.00\"",
		}, "\n")

		batch, err := service.CreateBatch(user.ID, portfolio.ID, "broker.csv", strings.NewReader(csv))
		testutil.AssertNoError(t, err)
		if batch.ErrorCount != 0 {
			t.Fatalf("expected clean rows, got %d errors: %+v", batch.ErrorCount, batch.Rows)
		}

		if batch.Rows[0].Side != string(models.SideBuy) {
			t.Errorf("expected the A code mapped to buy, got %q", batch.Rows[0].Side)
		}
		testutil.AssertInDelta(t, 1234.56, batch.Rows[0].Price, 1e-9, "dot-grouped price")

		if batch.Rows[1].Side != string(models.SideSell) {
			t.Errorf("expected the V code mapped to sell, got %q", batch.Rows[1].Side)
		}
		testutil.AssertInDelta(t, 1250, batch.Rows[1].Price, 1e-9, "comma-grouped price")
	})

	t.Run("rejects missing required column", func(t *testing.T) {
		csv := "trade_at,symbol,quantity,price\n2025-01-10,AAPL,10,150\n"
		_, err := service.CreateBatch(user.ID, portfolio.ID, "bad.csv", strings.NewReader(csv))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects empty file", func(t *testing.T) {
		_, err := service.CreateBatch(user.ID, portfolio.ID, "empty.csv", strings.NewReader(""))
		testutil.AssertAppError(t, err, "EMPTY_IMPORT")
	})

	t.Run("rejects header-only file", func(t *testing.T) {
		csv := "trade_at,symbol,side,quantity,price\n"
		_, err := service.CreateBatch(user.ID, portfolio.ID, "header.csv", strings.NewReader(csv))
		testutil.AssertAppError(t, err, "EMPTY_IMPORT")
	})

	t.Run("hides other users' portfolios", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		csv := "trade_at,symbol,side,quantity,price\n2025-01-10,AAPL,buy,10,150\n"
		_, err := service.CreateBatch(other.ID, portfolio.ID, "x.csv", strings.NewReader(csv))
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}

func TestParseImportNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"150", 150},
		{"1234.56", 1234.56},
		{"10,5", 10.5},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"1.234.567,89", 1234567.89},
	}
	for _, tc := range cases {
		got, err := parseImportNumber(tc.in)
		if err != nil {
			t.Errorf("parseImportNumber(%q): unexpected error %v", tc.in, err)
			continue
		}
		testutil.AssertInDelta(t, tc.want, got, 1e-9, tc.in)
	}

	if _, err := parseImportNumber("not-a-number"); err == nil {
		t.Error("expected an error for a non-numeric value")
	}
}

func TestCommitBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	assets := NewAssetService(db)
	transactions := NewTransactionService(db)
	service := NewImportService(db, assets, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)

	csv := strings.Join([]string{
		"trade_at,symbol,side,quantity,price,trade_currency",
		"2025-01-10,NEWCO,buy,10,150,EUR",
		"2025-01-11,NEWCO,sell,3,155,EUR",
		"2025-01-12,bogus-line,oops,1,1,EUR",
		"2025-01-13,,deposit,1,500,EUR",
	}, "\n")

	batch, err := service.CreateBatch(user.ID, portfolio.ID, "trades.csv", strings.NewReader(csv))
	testutil.AssertNoError(t, err)

	t.Run("creates transactions and registers unknown symbols", func(t *testing.T) {
		result, err := service.CommitBatch(user.ID, batch.ID)
		testutil.AssertNoError(t, err)

		// The oops side and the missing deposit symbol were staged as row
		// errors, so only the two trades are committable.
		if result.Requested != 2 || result.Created != 2 || result.Failed != 0 {
			t.Fatalf("expected 2/2/0 requested/created/failed, got %d/%d/%d",
				result.Requested, result.Created, result.Failed)
		}

		asset, err := assets.GetAssetBySymbol("NEWCO")
		testutil.AssertNoError(t, err)
		if asset.QuoteCurrency != "EUR" {
			t.Errorf("expected auto-created asset quoted in EUR, got %q", asset.QuoteCurrency)
		}

		txns, err := transactions.LoadTransactions(portfolio.ID)
		testutil.AssertNoError(t, err)
		if len(txns) != 2 {
			t.Fatalf("expected 2 ledger entries, got %d", len(txns))
		}
		for _, txn := range txns {
			if txn.Source != models.SourceCSV {
				t.Errorf("expected source csv, got %q", txn.Source)
			}
		}
	})

	t.Run("rejects double commit", func(t *testing.T) {
		_, err := service.CommitBatch(user.ID, batch.ID)
		testutil.AssertAppError(t, err, "IMPORT_SETTLED")
	})
}

func TestDiscardBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	assets := NewAssetService(db)
	transactions := NewTransactionService(db)
	service := NewImportService(db, assets, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)

	csv := "trade_at,symbol,side,quantity,price\n2025-01-10,AAPL,buy,10,150\n"
	batch, err := service.CreateBatch(user.ID, portfolio.ID, "trades.csv", strings.NewReader(csv))
	testutil.AssertNoError(t, err)

	discarded, err := service.DiscardBatch(user.ID, batch.ID)
	testutil.AssertNoError(t, err)
	if discarded.Status != models.ImportDiscarded {
		t.Fatalf("expected discarded status, got %q", discarded.Status)
	}

	t.Run("discarded batches cannot be committed", func(t *testing.T) {
		_, err := service.CommitBatch(user.ID, batch.ID)
		testutil.AssertAppError(t, err, "IMPORT_SETTLED")
	})

	txns, err := transactions.LoadTransactions(portfolio.ID)
	testutil.AssertNoError(t, err)
	if len(txns) != 0 {
		t.Errorf("expected no ledger entries from a discarded batch, got %d", len(txns))
	}
}
