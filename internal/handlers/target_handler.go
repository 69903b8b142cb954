package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "valore/internal/errors"
	"valore/internal/services"
)

// TargetHandler handles target-allocation requests.
type TargetHandler struct {
	targetService services.TargetServicer
}

// NewTargetHandler creates a new TargetHandler.
func NewTargetHandler(targetService services.TargetServicer) *TargetHandler {
	return &TargetHandler{targetService: targetService}
}

// SetTargetsRequest represents the request payload for replacing target weights
type SetTargetsRequest struct {
	Targets []services.TargetInput `json:"targets" binding:"required,dive"`
}

// SetTargets replaces the portfolio's target weights
// @Summary     Set target allocations
// @Description Replace the portfolio's target weights. Weights need not sum to 100; the residual is reported.
// @Tags        targets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Portfolio ID"
// @Param       request body SetTargetsRequest true "Target weights"
// @Success     200 {object} services.TargetsResponse "Stored targets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio or asset not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/targets [put]
func (h *TargetHandler) SetTargets(c *gin.Context) {
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

	var req SetTargetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.targetService.SetTargets(userID, portfolioID, req.Targets)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTargets lists the portfolio's target weights
// @Summary     Get target allocations
// @Description Get the portfolio's target weights and the residual to 100%
// @Tags        targets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.TargetsResponse "Targets"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/targets [get]
func (h *TargetHandler) GetTargets(c *gin.Context) {
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

	result, err := h.targetService.GetTargets(userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DeleteTarget removes one asset's target weight
// @Summary     Delete target allocation
// @Description Remove one asset's target weight from the portfolio
// @Tags        targets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string true "Portfolio ID"
// @Param       assetID path string true "Asset ID"
// @Success     200 {object} MessageResponse "Target deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio or target not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/targets/{assetID} [delete]
func (h *TargetHandler) DeleteTarget(c *gin.Context) {
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

	assetID, err := parsePathID(c, "assetID")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.targetService.DeleteTarget(userID, portfolioID, assetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Target allocation deleted successfully"})
}
