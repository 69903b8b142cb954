package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "valore/internal/errors"
	"valore/internal/services"
)

// PipelineHandler serves the data-pipeline endpoints used by the oracle.
// These routes are authenticated with the pipeline API key, not user JWTs.
type PipelineHandler struct {
	assetService services.AssetServicer
	priceService services.PriceServicer
	pacService   services.PacServicer
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(assetService services.AssetServicer, priceService services.PriceServicer, pacService services.PacServicer) *PipelineHandler {
	return &PipelineHandler{
		assetService: assetService,
		priceService: priceService,
		pacService:   pacService,
	}
}

// RecordPricesRequest represents a batch of daily closes to record
type RecordPricesRequest struct {
	Bars []services.PriceBarInput `json:"bars" binding:"required,dive"`
}

// RecordFxRatesRequest represents a batch of daily FX observations to record
type RecordFxRatesRequest struct {
	Rates []services.FxRateInput `json:"rates" binding:"required,dive"`
}

// RecordCountResponse reports how many observations were newly recorded
type RecordCountResponse struct {
	Recorded int `json:"recorded"`
}

// SchedulerRunResponse reports one scheduler pass
type SchedulerRunResponse struct {
	Generated int `json:"generated"`
	Executed  int `json:"executed"`
}

// ListPipelineAssets lists the assets the oracle should fetch prices for
// @Summary     List active assets
// @Description Get every active asset, so the pipeline knows which symbols to fetch
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {array} models.Asset "Active assets"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/assets [get]
func (h *PipelineHandler) ListPipelineAssets(c *gin.Context) {
	assets, err := h.assetService.ListActiveAssets()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// RecordPrices records a batch of daily closes
// @Summary     Record price bars
// @Description Record daily closes fetched by the pipeline. Observations already recorded are skipped.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RecordPricesRequest true "Price bars"
// @Success     200 {object} RecordCountResponse "Number of bars newly recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/prices [post]
func (h *PipelineHandler) RecordPrices(c *gin.Context) {
	var req RecordPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	recorded, err := h.priceService.RecordBars(req.Bars)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecordCountResponse{Recorded: recorded})
}

// RecordFxRates records a batch of daily FX observations
// @Summary     Record FX rates
// @Description Record daily FX rates fetched by the pipeline. Observations already recorded are skipped.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body RecordFxRatesRequest true "FX rates"
// @Success     200 {object} RecordCountResponse "Number of rates newly recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/fx-rates [post]
func (h *PipelineHandler) RecordFxRates(c *gin.Context) {
	var req RecordFxRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	recorded, err := h.priceService.RecordFxRates(req.Rates)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecordCountResponse{Recorded: recorded})
}

// RunPacScheduler runs one recurring-plan scheduler pass
// @Summary     Run plan scheduler
// @Description Generate due executions for every active plan and auto-execute the ones configured for it
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} SchedulerRunResponse "Scheduler pass outcome"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/pac/run [post]
func (h *PipelineHandler) RunPacScheduler(c *gin.Context) {
	generated, executed, err := h.pacService.RunScheduler(time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, SchedulerRunResponse{Generated: generated, Executed: executed})
}
