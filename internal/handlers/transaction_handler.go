package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "valore/internal/errors"
	"valore/internal/models"
	"valore/internal/pagination"
	"valore/internal/services"
	"valore/internal/uuid"
)

// TransactionHandler handles ledger-entry requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the request payload for creating a ledger entry
type CreateTransactionRequest struct {
	AssetID       *string        `json:"asset_id"`
	Side          models.TxnSide `json:"side" binding:"required,txn_side"`
	TradeAt       *string        `json:"trade_at"`
	Quantity      float64        `json:"quantity" binding:"required,gt=0"`
	Price         float64        `json:"price" binding:"gte=0"`
	Fees          float64        `json:"fees" binding:"gte=0"`
	Taxes         float64        `json:"taxes" binding:"gte=0"`
	TradeCurrency string         `json:"trade_currency" binding:"omitempty,iso4217"`
	Notes         string         `json:"notes" binding:"max=500"`
}

// UpdateTransactionRequest represents the request payload for updating a ledger entry.
// Side and asset are immutable.
type UpdateTransactionRequest struct {
	TradeAt  *string  `json:"trade_at"`
	Quantity *float64 `json:"quantity" binding:"omitempty,gt=0"`
	Price    *float64 `json:"price" binding:"omitempty,gte=0"`
	Fees     *float64 `json:"fees" binding:"omitempty,gte=0"`
	Taxes    *float64 `json:"taxes" binding:"omitempty,gte=0"`
	Notes    *string  `json:"notes" binding:"omitempty,max=500"`
}

// CreateTransaction records a new ledger entry
// @Summary     Create a transaction
// @Description Record a trade or cash movement in the portfolio's ledger
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Portfolio ID"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio or asset not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.AssetID != nil && !uuid.IsValid(*req.AssetID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid asset_id"))
		return
	}

	tradeAt := time.Now()
	if req.TradeAt != nil && *req.TradeAt != "" {
		parsed, parseErr := parseFlexibleTime(*req.TradeAt)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		tradeAt = parsed
	}

	txn, err := h.transactionService.CreateTransaction(userID, portfolioID, services.TransactionInput{
		AssetID:       req.AssetID,
		Side:          req.Side,
		TradeAt:       tradeAt,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Fees:          req.Fees,
		Taxes:         req.Taxes,
		TradeCurrency: req.TradeCurrency,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

// GetPortfolioTransactions lists a portfolio's ledger
// @Summary     List transactions
// @Description Get a paginated, filtered list of a portfolio's ledger entries, newest first
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       side      query string false "Filter by side (buy, sell, deposit, withdrawal, dividend, fee, interest)"
// @Param       asset_id  query string false "Filter by asset ID"
// @Param       from_date query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "Filter by end date (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/transactions [get]
func (h *TransactionHandler) GetPortfolioTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	portfolioID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetPortfolioTransactions(userID, portfolioID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTransactionFilter(c *gin.Context) (services.TransactionFilter, error) {
	var filter services.TransactionFilter

	if v := c.Query("side"); v != "" {
		side := models.TxnSide(v)
		if !side.IsTrade() && !side.IsCashMovement() {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput,
				"invalid side, must be buy, sell, deposit, withdrawal, dividend, fee, or interest")
		}
		filter.Side = &side
	}

	if v := c.Query("asset_id"); v != "" {
		if !uuid.IsValid(v) {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid asset_id")
		}
		assetID := v
		filter.AssetID = &assetID
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.ToDate = &t
	}

	return filter, nil
}

// GetTransactionByID returns one ledger entry
// @Summary     Get transaction by ID
// @Description Get a specific ledger entry by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactionService.GetTransactionByID(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// UpdateTransaction updates a ledger entry's editable fields
// @Summary     Update transaction
// @Description Update a ledger entry. Side and asset are immutable; delete and recreate to change them.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.TransactionUpdate{
		Quantity: req.Quantity,
		Price:    req.Price,
		Fees:     req.Fees,
		Taxes:    req.Taxes,
		Notes:    req.Notes,
	}
	if req.TradeAt != nil && *req.TradeAt != "" {
		parsed, parseErr := parseFlexibleTime(*req.TradeAt)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		update.TradeAt = &parsed
	}

	txn, err := h.transactionService.UpdateTransaction(userID, transactionID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// DeleteTransaction deletes a ledger entry
// @Summary     Delete transaction
// @Description Delete a ledger entry by ID
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, transactionID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}
