package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valore/internal/services"
)

// AnalyticsHandler serves derived portfolio views.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetPositions returns the portfolio's folded positions
// @Summary     Get positions
// @Description Get the portfolio's positions replayed from the ledger, valued where pricing allows
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} services.PositionsResponse "Positions with warnings"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/positions [get]
func (h *AnalyticsHandler) GetPositions(c *gin.Context) {
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

	result, err := h.analyticsService.GetPositions(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSummary returns the portfolio valuation snapshot
// @Summary     Get portfolio summary
// @Description Get the portfolio-level valuation snapshot in base currency
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {object} analytics.Summary "Valuation summary"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/summary [get]
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
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

	summary, err := h.analyticsService.GetSummary(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetAllocation returns current weights versus targets
// @Summary     Get allocation
// @Description Get each open position's weight of the position market value, joined with target weights
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Portfolio ID"
// @Success     200 {array} services.AllocationView "Allocation entries"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/allocation [get]
func (h *AnalyticsHandler) GetAllocation(c *gin.Context) {
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

	allocation, err := h.analyticsService.GetAllocation(c.Request.Context(), userID, portfolioID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": allocation})
}

// GetPerformance returns period returns
// @Summary     Get performance
// @Description Get time-weighted and money-weighted returns for the requested period
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id     path  string true  "Portfolio ID"
// @Param       period query string false "Period key (1m, 3m, 6m, ytd, 1y, 3y, all; default all)"
// @Success     200 {object} analytics.PerformanceResult "Performance figures"
// @Failure     400 {object} ErrorResponse "Invalid portfolio ID or period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/performance [get]
func (h *AnalyticsHandler) GetPerformance(c *gin.Context) {
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

	period := c.DefaultQuery("period", "all")

	result, err := h.analyticsService.GetPerformance(c.Request.Context(), userID, portfolioID, period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"performance": result})
}
