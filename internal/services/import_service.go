package services

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "valore/internal/errors"
	"valore/internal/models"
)

// importService stages CSV trade files for review and turns committed
// batches into ledger entries.
type importService struct {
	db           *gorm.DB
	assets       AssetServicer
	transactions TransactionServicer
}

// NewImportService creates a new ImportServicer.
func NewImportService(db *gorm.DB, assets AssetServicer, transactions TransactionServicer) ImportServicer {
	return &importService{db: db, assets: assets, transactions: transactions}
}

// Accepted timestamp layouts, tried in order. Day-first layouts cover
// broker exports from European locales.
var importDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// CreateBatch parses the CSV into staged rows. Rows that fail to parse are
// kept with their error so the preview can show exactly what will and will
// not import. Nothing touches the ledger until the batch is committed.
func (s *importService) CreateBatch(userID, portfolioID, filename string, file io.Reader) (*models.ImportBatch, error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.ErrEmptyImport
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	batch := &models.ImportBatch{
		PortfolioID: portfolioID,
		Filename:    filename,
		Status:      models.ImportPending,
	}

	rows := make([]models.ImportRow, 0)
	rowNumber := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNumber++
		if err != nil {
			rows = append(rows, models.ImportRow{
				RowNumber: rowNumber,
				RowError:  "malformed CSV line",
			})
			continue
		}
		rows = append(rows, parseRow(record, columns, rowNumber))
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrEmptyImport
	}

	batch.RowCount = len(rows)
	for _, row := range rows {
		if row.RowError != "" {
			batch.ErrorCount++
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].BatchID = batch.ID
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	batch.Rows = rows
	return batch, nil
}

// mapColumns resolves header names to field indexes. trade_at, symbol,
// side, quantity, and price are required; the rest are optional.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"trade_at", "symbol", "side", "quantity", "price"} {
		if _, ok := columns[required]; !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
				"Missing required column: "+required)
		}
	}
	return columns, nil
}

// parseRow converts one CSV record into a staged row, recording the first
// problem found instead of failing the batch.
func parseRow(record []string, columns map[string]int, rowNumber int) models.ImportRow {
	row := models.ImportRow{RowNumber: rowNumber}

	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	tradeAt, err := parseImportDate(field("trade_at"))
	if err != nil {
		row.RowError = "unparseable trade_at: " + field("trade_at")
		return row
	}
	row.TradeAt = &tradeAt

	row.Symbol = strings.ToUpper(field("symbol"))
	if row.Symbol == "" {
		row.RowError = "symbol is required"
		return row
	}

	row.Side = strings.ToLower(field("side"))
	// Broker exports use A (acquisto) and V (vendita) operation codes.
	switch row.Side {
	case "a":
		row.Side = string(models.SideBuy)
	case "v":
		row.Side = string(models.SideSell)
	}
	side := models.TxnSide(row.Side)
	if !side.IsTrade() && !side.IsCashMovement() {
		row.RowError = "unsupported side: " + row.Side
		return row
	}

	if row.Quantity, err = parseImportNumber(field("quantity")); err != nil || row.Quantity <= 0 {
		row.RowError = "quantity must be a positive number"
		return row
	}
	if row.Price, err = parseImportNumber(field("price")); err != nil || row.Price < 0 {
		row.RowError = "price must be a non-negative number"
		return row
	}
	if side.IsTrade() && row.Price == 0 {
		row.RowError = "trades require a positive price"
		return row
	}

	if v := field("fees"); v != "" {
		if row.Fees, err = parseImportNumber(v); err != nil || row.Fees < 0 {
			row.RowError = "fees must be a non-negative number"
			return row
		}
	}
	if v := field("taxes"); v != "" {
		if row.Taxes, err = parseImportNumber(v); err != nil || row.Taxes < 0 {
			row.RowError = "taxes must be a non-negative number"
			return row
		}
	}
	if v := field("trade_currency"); v != "" {
		if len(v) != 3 {
			row.RowError = "trade_currency must be a 3-letter code"
			return row
		}
		row.TradeCurrency = strings.ToUpper(v)
	}
	row.Notes = field("notes")
	return row
}

func parseImportDate(value string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// parseImportNumber accepts both dot and comma decimal separators. When
// both appear, the rightmost one is the decimal mark and the other is a
// thousands separator, so "1.234,56" and "1,234.56" both parse as 1234.56.
func parseImportNumber(value string) (float64, error) {
	comma := strings.LastIndex(value, ",")
	dot := strings.LastIndex(value, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			value = strings.ReplaceAll(value, ".", "")
			value = strings.Replace(value, ",", ".", 1)
		} else {
			value = strings.ReplaceAll(value, ",", "")
		}
	case comma >= 0:
		value = strings.Replace(value, ",", ".", 1)
	}
	return strconv.ParseFloat(value, 64)
}

// GetBatch returns a batch with its staged rows.
func (s *importService) GetBatch(userID, batchID string) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := s.db.Joins("JOIN portfolios ON portfolios.id = import_batches.portfolio_id").
		Where("import_batches.id = ? AND portfolios.user_id = ?", batchID, userID).
		Preload("Rows", func(db *gorm.DB) *gorm.DB {
			return db.Order("row_number ASC")
		}).
		First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrImportNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &batch, nil
}

// CommitBatch turns the batch's error-free rows into ledger entries.
// Unknown symbols are registered as assets on the fly. Row failures are
// reported per row and never roll back the rows already committed.
func (s *importService) CommitBatch(userID, batchID string) (*ImportCommitResult, error) {
	batch, err := s.GetBatch(userID, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.ImportPending {
		return nil, apperrors.ErrImportSettled
	}

	result := &ImportCommitResult{}
	for i := range batch.Rows {
		row := &batch.Rows[i]
		if row.RowError != "" {
			continue
		}
		result.Requested++

		if err := s.commitRow(userID, batch.PortfolioID, row); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportCommitError{
				RowNumber: row.RowNumber,
				Message:   err.Error(),
			})
			continue
		}
		result.Created++
	}

	if err := s.db.Model(batch).Update("status", models.ImportCommitted).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	batch.Status = models.ImportCommitted
	return result, nil
}

// commitRow creates one ledger entry from a staged row, registering the
// asset first when the symbol is unknown.
func (s *importService) commitRow(userID, portfolioID string, row *models.ImportRow) error {
	side := models.TxnSide(row.Side)

	var assetID *string
	if side.IsTrade() {
		asset, err := s.assets.GetAssetBySymbol(row.Symbol)
		if errors.Is(err, apperrors.ErrAssetNotFound) {
			quote := row.TradeCurrency
			asset, err = s.assets.CreateAsset(row.Symbol, row.Symbol, models.AssetTypeStock,
				"", "", quote, "", true)
		}
		if err != nil {
			return err
		}
		assetID = &asset.ID
	}

	_, err := s.transactions.CreateTransaction(userID, portfolioID, TransactionInput{
		AssetID:       assetID,
		Side:          side,
		TradeAt:       *row.TradeAt,
		Quantity:      row.Quantity,
		Price:         row.Price,
		Fees:          row.Fees,
		Taxes:         row.Taxes,
		TradeCurrency: row.TradeCurrency,
		Notes:         row.Notes,
		Source:        models.SourceCSV,
	})
	return err
}

// DiscardBatch abandons a pending batch without touching the ledger.
func (s *importService) DiscardBatch(userID, batchID string) (*models.ImportBatch, error) {
	batch, err := s.GetBatch(userID, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != models.ImportPending {
		return nil, apperrors.ErrImportSettled
	}
	if err := s.db.Model(batch).Update("status", models.ImportDiscarded).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	batch.Status = models.ImportDiscarded
	return batch, nil
}
