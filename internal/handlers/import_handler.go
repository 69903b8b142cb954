package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "valore/internal/errors"
	"valore/internal/services"
)

// maxImportFileSize caps uploaded CSV files at 5 MiB.
const maxImportFileSize = 5 << 20

// ImportHandler handles CSV import requests.
type ImportHandler struct {
	importService services.ImportServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer) *ImportHandler {
	return &ImportHandler{importService: importService}
}

// CreateImportBatch stages a CSV file for review
// @Summary     Upload CSV import
// @Description Parse and stage a CSV file of transactions. Nothing reaches the ledger until the batch is committed.
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string true "Portfolio ID"
// @Param       file formData file   true "CSV file"
// @Success     201 {object} models.ImportBatch "Staged batch with per-row results"
// @Failure     400 {object} ErrorResponse "Invalid or empty file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Portfolio not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolios/{id}/imports [post]
func (h *ImportHandler) CreateImportBatch(c *gin.Context) {
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

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Missing file upload"))
		return
	}
	if fileHeader.Size > maxImportFileSize {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "File exceeds the 5 MiB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	batch, err := h.importService.CreateBatch(userID, portfolioID, fileHeader.Filename, file)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"batch": batch})
}

// GetImportBatch returns a staged batch with its rows
// @Summary     Get import batch
// @Description Get a staged batch and its parsed rows, including per-row errors
// @Tags        imports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Batch ID"
// @Success     200 {object} models.ImportBatch "Batch with rows"
// @Failure     400 {object} ErrorResponse "Invalid batch ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Batch not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports/{id} [get]
func (h *ImportHandler) GetImportBatch(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batchID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	batch, err := h.importService.GetBatch(userID, batchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

// CommitImportBatch writes the batch's valid rows to the ledger
// @Summary     Commit import batch
// @Description Write the batch's valid rows to the ledger. Rows that fail are reported; the rest still commit.
// @Tags        imports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Batch ID"
// @Success     200 {object} services.ImportCommitResult "Commit outcome"
// @Failure     400 {object} ErrorResponse "Invalid batch ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Batch not found"
// @Failure     409 {object} ErrorResponse "Batch already settled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports/{id}/commit [post]
func (h *ImportHandler) CommitImportBatch(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batchID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.importService.CommitBatch(userID, batchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// DiscardImportBatch discards a staged batch
// @Summary     Discard import batch
// @Description Discard a staged batch without writing anything to the ledger
// @Tags        imports
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Batch ID"
// @Success     200 {object} models.ImportBatch "Discarded batch"
// @Failure     400 {object} ErrorResponse "Invalid batch ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Batch not found"
// @Failure     409 {object} ErrorResponse "Batch already settled"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports/{id}/discard [post]
func (h *ImportHandler) DiscardImportBatch(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batchID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	batch, err := h.importService.DiscardBatch(userID, batchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch": batch})
}
