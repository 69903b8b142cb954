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

// PacHandler handles recurring-plan requests.
type PacHandler struct {
	pacService services.PacServicer
}

// NewPacHandler creates a new PacHandler.
func NewPacHandler(pacService services.PacServicer) *PacHandler {
	return &PacHandler{pacService: pacService}
}

// CreatePacRuleRequest represents the request payload for creating a recurring plan
type CreatePacRuleRequest struct {
	AssetID     string  `json:"asset_id" binding:"required"`
	Mode        string  `json:"mode" binding:"required,pac_mode"`
	Amount      float64 `json:"amount" binding:"gte=0"`
	Quantity    float64 `json:"quantity" binding:"gte=0"`
	Frequency   string  `json:"frequency" binding:"required,pac_frequency"`
	DayOfMonth  int     `json:"day_of_month" binding:"gte=0,lte=31"`
	DayOfWeek   int     `json:"day_of_week" binding:"gte=0,lte=6"`
	StartDate   string  `json:"start_date" binding:"required"`
	EndDate     *string `json:"end_date"`
	AutoExecute bool    `json:"auto_execute"`
}

// UpdatePacRuleRequest represents the request payload for updating a recurring plan.
// Mode, frequency, asset, and start date are immutable.
type UpdatePacRuleRequest struct {
	Amount      *float64 `json:"amount" binding:"omitempty,gt=0"`
	Quantity    *float64 `json:"quantity" binding:"omitempty,gt=0"`
	DayOfMonth  *int     `json:"day_of_month" binding:"omitempty,gte=1,lte=31"`
	DayOfWeek   *int     `json:"day_of_week" binding:"omitempty,gte=0,lte=6"`
	EndDate     *string  `json:"end_date"`
	AutoExecute *bool    `json:"auto_execute"`
	Active      *bool    `json:"active"`
}

// CreatePacRule creates a recurring plan
// @Summary     Create recurring plan
// @Description Create a recurring buy plan for one asset in the portfolio
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Portfolio ID"
// @Param       request body CreatePacRuleRequest true "Plan details"
// @Success     201 {object} models.PacRule "Plan created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio or asset not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/pac-rules [post]
func (h *PacHandler) CreatePacRule(c *gin.Context) {
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

	var req CreatePacRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if !uuid.IsValid(req.AssetID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid asset_id"))
		return
	}

	startDate, err := parseFlexibleTime(req.StartDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid start_date format, use RFC3339 or YYYY-MM-DD"))
		return
	}

	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, parseErr := parseFlexibleTime(*req.EndDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid end_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		endDate = &parsed
	}

	rule, err := h.pacService.CreateRule(userID, portfolioID, services.PacRuleInput{
		AssetID:     req.AssetID,
		Mode:        models.PacMode(req.Mode),
		Amount:      req.Amount,
		Quantity:    req.Quantity,
		Frequency:   models.PacFrequency(req.Frequency),
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
		StartDate:   startDate,
		EndDate:     endDate,
		AutoExecute: req.AutoExecute,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// GetPortfolioPacRules lists the portfolio's recurring plans
// @Summary     List recurring plans
// @Description Get a paginated list of the portfolio's recurring plans
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Portfolio ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PacRule] "Paginated plans"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/pac-rules [get]
func (h *PacHandler) GetPortfolioPacRules(c *gin.Context) {
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

	result, err := h.pacService.GetPortfolioRules(userID, portfolioID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdatePacRule updates a recurring plan's editable fields
// @Summary     Update recurring plan
// @Description Update a recurring plan. Mode, frequency, asset, and start date are immutable.
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Rule ID"
// @Param       request body UpdatePacRuleRequest true "Fields to update"
// @Success     200 {object} models.PacRule "Updated plan"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pac-rules/{id} [put]
func (h *PacHandler) UpdatePacRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePacRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	update := services.PacRuleUpdate{
		Amount:      req.Amount,
		Quantity:    req.Quantity,
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
		AutoExecute: req.AutoExecute,
		Active:      req.Active,
	}
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, parseErr := parseFlexibleTime(*req.EndDate)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid end_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		update.EndDate = &parsed
	}

	rule, err := h.pacService.UpdateRule(userID, ruleID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeletePacRule deletes a recurring plan
// @Summary     Delete recurring plan
// @Description Delete a recurring plan. Already-executed entries stay in the ledger.
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {object} MessageResponse "Plan deleted"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pac-rules/{id} [delete]
func (h *PacHandler) DeletePacRule(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.pacService.DeleteRule(userID, ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plan deleted successfully"})
}

// GeneratePacExecutions materializes the plan's due executions
// @Summary     Generate due executions
// @Description Materialize pending executions for every due date up to now. Safe to call repeatedly.
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Rule ID"
// @Success     200 {array} models.PacExecution "Newly generated executions"
// @Failure     400 {object} ErrorResponse "Invalid rule ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pac-rules/{id}/generate [post]
func (h *PacHandler) GeneratePacExecutions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	executions, err := h.pacService.GenerateDue(userID, ruleID, time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"executions": executions})
}

// GetPacExecutions lists a plan's executions
// @Summary     List plan executions
// @Description Get a paginated list of the plan's executions, newest due date first
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Rule ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PacExecution] "Paginated executions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Rule not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pac-rules/{id}/executions [get]
func (h *PacHandler) GetPacExecutions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.pacService.ListExecutions(userID, ruleID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ConfirmPacExecution executes a pending execution
// @Summary     Confirm execution
// @Description Execute a pending plan execution at the latest recorded price, recording a buy in the ledger
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Execution ID"
// @Success     200 {object} models.PacExecution "Executed entry"
// @Failure     400 {object} ErrorResponse "Invalid ID or no price available"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Execution not found"
// @Failure     409 {object} ErrorResponse "Execution already settled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pac-executions/{id}/confirm [post]
func (h *PacHandler) ConfirmPacExecution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	executionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	execution, err := h.pacService.ConfirmExecution(userID, executionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"execution": execution})
}

// SkipPacExecution skips a pending execution
// @Summary     Skip execution
// @Description Mark a pending plan execution as skipped without touching the ledger
// @Tags        pac
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Execution ID"
// @Success     200 {object} models.PacExecution "Skipped entry"
// @Failure     400 {object} ErrorResponse "Invalid execution ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Execution not found"
// @Failure     409 {object} ErrorResponse "Execution already settled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pac-executions/{id}/skip [post]
func (h *PacHandler) SkipPacExecution(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	executionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	execution, err := h.pacService.SkipExecution(userID, executionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"execution": execution})
}
