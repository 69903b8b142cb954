// Package errors provides custom error types for the Valore API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Asset errors.
var (
	ErrAssetNotFound   = &AppError{Code: "ASSET_NOT_FOUND", Message: "Asset not found", StatusCode: http.StatusNotFound}
	ErrDuplicateSymbol = &AppError{Code: "DUPLICATE_SYMBOL", Message: "An asset with this symbol already exists", StatusCode: http.StatusConflict}
	ErrAssetInUse      = &AppError{Code: "ASSET_IN_USE", Message: "Asset is referenced by existing transactions", StatusCode: http.StatusConflict}
)

// Portfolio errors.
var (
	ErrPortfolioNotFound = &AppError{Code: "PORTFOLIO_NOT_FOUND", Message: "Portfolio not found", StatusCode: http.StatusNotFound}
	ErrPortfolioNotEmpty = &AppError{Code: "PORTFOLIO_NOT_EMPTY", Message: "Portfolio still has transactions", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidSide         = &AppError{Code: "INVALID_SIDE", Message: "Unsupported transaction side", StatusCode: http.StatusBadRequest}
	ErrAssetRequired       = &AppError{Code: "ASSET_REQUIRED", Message: "Buy and sell transactions require an asset", StatusCode: http.StatusBadRequest}
)

// Allocation & rebalance errors.
var (
	ErrInvalidWeight      = &AppError{Code: "INVALID_WEIGHT", Message: "Target weight must be between 0 and 100", StatusCode: http.StatusBadRequest}
	ErrAllocationNotFound = &AppError{Code: "ALLOCATION_NOT_FOUND", Message: "Target allocation not found", StatusCode: http.StatusNotFound}
	ErrCashRequired       = &AppError{Code: "CASH_REQUIRED", Message: "Buy-only rebalancing requires a positive cash amount", StatusCode: http.StatusBadRequest}
)

// Performance errors.
var (
	ErrInvalidPeriod = &AppError{Code: "INVALID_PERIOD", Message: "Unsupported performance period", StatusCode: http.StatusBadRequest}
)

// PAC errors.
var (
	ErrPacRuleNotFound      = &AppError{Code: "PAC_RULE_NOT_FOUND", Message: "Recurring plan not found", StatusCode: http.StatusNotFound}
	ErrPacExecutionNotFound = &AppError{Code: "PAC_EXECUTION_NOT_FOUND", Message: "Plan execution not found", StatusCode: http.StatusNotFound}
	ErrPacExecutionSettled  = &AppError{Code: "PAC_EXECUTION_SETTLED", Message: "Plan execution has already been settled", StatusCode: http.StatusConflict}
)

// Pipeline errors.
var (
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Pipeline endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// Import errors.
var (
	ErrImportNotFound = &AppError{Code: "IMPORT_NOT_FOUND", Message: "Import batch not found", StatusCode: http.StatusNotFound}
	ErrImportSettled  = &AppError{Code: "IMPORT_SETTLED", Message: "Import batch has already been committed or discarded", StatusCode: http.StatusConflict}
	ErrEmptyImport    = &AppError{Code: "EMPTY_IMPORT", Message: "Import file contains no data rows", StatusCode: http.StatusBadRequest}
)
