package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"valore/internal/analytics"
	apperrors "valore/internal/errors"
	"valore/internal/services"
)

// RebalanceHandler handles rebalance planning requests.
type RebalanceHandler struct {
	rebalanceService services.RebalanceServicer
}

// NewRebalanceHandler creates a new RebalanceHandler.
func NewRebalanceHandler(rebalanceService services.RebalanceServicer) *RebalanceHandler {
	return &RebalanceHandler{rebalanceService: rebalanceService}
}

// PreviewRebalanceRequest represents the constraints for a rebalance plan
type PreviewRebalanceRequest struct {
	Mode            string  `json:"mode" binding:"required,rebalance_mode"`
	CashToAllocate  float64 `json:"cash_to_allocate" binding:"gte=0"`
	MaxTransactions int     `json:"max_transactions" binding:"gte=0"`
	MinOrderValue   float64 `json:"min_order_value" binding:"gte=0"`
	Rounding        string  `json:"rounding" binding:"omitempty,rounding_mode"`
}

// CommitRebalanceRequest represents the selected plan items to execute
type CommitRebalanceRequest struct {
	TradeAt *string                        `json:"trade_at"`
	Items   []services.RebalanceCommitItem `json:"items" binding:"required,dive"`
}

// PreviewRebalance computes a rebalance plan
// @Summary     Preview rebalance
// @Description Compute a rebalance plan toward the portfolio's target weights. Nothing is persisted.
// @Tags        rebalance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Portfolio ID"
// @Param       request body PreviewRebalanceRequest true "Plan constraints"
// @Success     200 {object} analytics.Preview "Computed plan"
// @Failure     400 {object} ErrorResponse "Invalid constraints"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio or targets not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/rebalance/preview [post]
func (h *RebalanceHandler) PreviewRebalance(c *gin.Context) {
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

	var req PreviewRebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	preview, err := h.rebalanceService.Preview(c.Request.Context(), userID, portfolioID, analytics.Constraints{
		Mode:            analytics.RebalanceMode(req.Mode),
		CashToAllocate:  req.CashToAllocate,
		MaxTransactions: req.MaxTransactions,
		MinOrderValue:   req.MinOrderValue,
		Rounding:        analytics.RoundingMode(req.Rounding),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"preview": preview})
}

// CommitRebalance records selected plan items as transactions
// @Summary     Commit rebalance
// @Description Record the selected plan items as ledger entries. Items are created independently; a failure reports the item and continues.
// @Tags        rebalance
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Portfolio ID"
// @Param       request body CommitRebalanceRequest true "Selected items"
// @Success     200 {object} services.RebalanceCommitResult "Commit outcome"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/rebalance/commit [post]
func (h *RebalanceHandler) CommitRebalance(c *gin.Context) {
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

	var req CommitRebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
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

	result, err := h.rebalanceService.Commit(userID, portfolioID, tradeAt, req.Items)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
