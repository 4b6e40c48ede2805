package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a backing service is not configured
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Analytics error codes
const (
	// ErrCodeInvalidFilter is used when a filter set is malformed
	ErrCodeInvalidFilter = "ERR_INVALID_FILTER"
	// ErrCodeUnknownProfile is used when an RFM profile name is not registered
	ErrCodeUnknownProfile = "ERR_UNKNOWN_PROFILE"
	// ErrCodeUnknownSegment is used when a segment selection names no known segment
	ErrCodeUnknownSegment = "ERR_UNKNOWN_SEGMENT"
	// ErrCodeUnknownReport is used when an export names an unsupported report
	ErrCodeUnknownReport = "ERR_UNKNOWN_REPORT"
	// ErrCodeNothingToExport is used when the report produced no exportable rows
	ErrCodeNothingToExport = "ERR_NOTHING_TO_EXPORT"
	// ErrCodeExportDisabled is used when export storage is not configured
	ErrCodeExportDisabled = "ERR_EXPORT_DISABLED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeRequestTimeout is used when the request deadline expired
	ErrCodeRequestTimeout = "ERR_REQUEST_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	ErrCodeNotFound: http.StatusNotFound,

	// Analytics errors
	ErrCodeInvalidFilter:   http.StatusBadRequest,
	ErrCodeUnknownProfile:  http.StatusBadRequest,
	ErrCodeUnknownSegment:  http.StatusBadRequest,
	ErrCodeUnknownReport:   http.StatusBadRequest,
	ErrCodeNothingToExport: http.StatusUnprocessableEntity,
	ErrCodeExportDisabled:  http.StatusServiceUnavailable,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited:    http.StatusTooManyRequests,
	ErrCodeRequestTimeout: http.StatusGatewayTimeout,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain error codes to standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":         ErrCodeNotFound,
	"INVALID_INPUT":     ErrCodeInvalidInput,
	"VALIDATION_ERROR":  ErrCodeValidation,
	"BAD_REQUEST":       ErrCodeBadRequest,
	"INTERNAL_ERROR":    ErrCodeInternal,
	"INVALID_FILTER":    ErrCodeInvalidFilter,
	"UNKNOWN_PROFILE":   ErrCodeUnknownProfile,
	"UNKNOWN_SEGMENT":   ErrCodeUnknownSegment,
	"UNKNOWN_REPORT":    ErrCodeUnknownReport,
	"NOTHING_TO_EXPORT": ErrCodeNothingToExport,
	"EXPORT_DISABLED":   ErrCodeExportDisabled,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
