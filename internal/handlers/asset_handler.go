package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "valore/internal/errors"
	"valore/internal/models"
	"valore/internal/pagination"
	"valore/internal/services"
)

// AssetHandler handles asset catalog requests.
type AssetHandler struct {
	assetService services.AssetServicer
}

// NewAssetHandler creates a new AssetHandler.
func NewAssetHandler(assetService services.AssetServicer) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

// CreateAssetRequest represents the request payload for registering an asset
type CreateAssetRequest struct {
	Symbol            string           `json:"symbol" binding:"required,max=32"`
	Name              string           `json:"name" binding:"required,max=255"`
	AssetType         models.AssetType `json:"asset_type" binding:"required,asset_type"`
	ExchangeCode      string           `json:"exchange_code" binding:"max=16"`
	ExchangeName      string           `json:"exchange_name" binding:"max=100"`
	QuoteCurrency     string           `json:"quote_currency" binding:"omitempty,iso4217"`
	ISIN              string           `json:"isin" binding:"omitempty,len=12"`
	SupportsFractions *bool            `json:"supports_fractions"`
}

// UpdateAssetRequest represents the request payload for correcting asset metadata
type UpdateAssetRequest struct {
	Name              *string `json:"name" binding:"omitempty,max=255"`
	ExchangeCode      *string `json:"exchange_code" binding:"omitempty,max=16"`
	ExchangeName      *string `json:"exchange_name" binding:"omitempty,max=100"`
	ISIN              *string `json:"isin" binding:"omitempty,len=12"`
	Active            *bool   `json:"active"`
	SupportsFractions *bool   `json:"supports_fractions"`
}

// CreateAsset registers a new tradable instrument
// @Summary     Register an asset
// @Description Register a new tradable instrument in the shared catalog
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAssetRequest true "Asset details"
// @Success     201 {object} models.Asset "Asset created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} ErrorResponse "Symbol already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	supportsFractions := true
	if req.SupportsFractions != nil {
		supportsFractions = *req.SupportsFractions
	}

	asset, err := h.assetService.CreateAsset(req.Symbol, req.Name, req.AssetType,
		req.ExchangeCode, req.ExchangeName, req.QuoteCurrency, req.ISIN, supportsFractions)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"asset": asset})
}

// SearchAssets lists assets matching a query
// @Summary     Search assets
// @Description Get a paginated list of assets matching the query on symbol or name
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       q         query string false "Search query"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Asset] "Paginated assets"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets [get]
func (h *AssetHandler) SearchAssets(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.assetService.SearchAssets(c.Query("q"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAssetByID returns one asset
// @Summary     Get asset by ID
// @Description Get a specific asset by ID
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Asset ID"
// @Success     200 {object} models.Asset "Asset details"
// @Failure     400 {object} ErrorResponse "Invalid asset ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets/{id} [get]
func (h *AssetHandler) GetAssetByID(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	asset, err := h.assetService.GetAssetByID(assetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

// UpdateAsset corrects asset metadata
// @Summary     Update asset
// @Description Apply metadata corrections to an asset
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Asset ID"
// @Param       request body UpdateAssetRequest true "Fields to update"
// @Success     200 {object} models.Asset "Updated asset"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets/{id} [put]
func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	asset, err := h.assetService.UpdateAsset(assetID, services.AssetUpdate{
		Name:              req.Name,
		ExchangeCode:      req.ExchangeCode,
		ExchangeName:      req.ExchangeName,
		ISIN:              req.ISIN,
		Active:            req.Active,
		SupportsFractions: req.SupportsFractions,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

// DeactivateAsset retires an asset
// @Summary     Deactivate asset
// @Description Retire an asset. Assets referenced by transactions are deactivated in place; unreferenced assets are removed.
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Asset ID"
// @Success     200 {object} MessageResponse "Asset deactivated"
// @Failure     400 {object} ErrorResponse "Invalid asset ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Asset not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /assets/{id} [delete]
func (h *AssetHandler) DeactivateAsset(c *gin.Context) {
	assetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.assetService.DeactivateAsset(assetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Asset deactivated successfully"})
}
