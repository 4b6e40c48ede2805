package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidFilter, http.StatusBadRequest},
		{ErrCodeUnknownProfile, http.StatusBadRequest},
		{ErrCodeUnknownSegment, http.StatusBadRequest},
		{ErrCodeUnknownReport, http.StatusBadRequest},
		{ErrCodeNothingToExport, http.StatusUnprocessableEntity},
		{ErrCodeExportDisabled, http.StatusServiceUnavailable},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeRequestTimeout, http.StatusGatewayTimeout},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"INVALID_FILTER", ErrCodeInvalidFilter},
		{"UNKNOWN_PROFILE", ErrCodeUnknownProfile},
		{"UNKNOWN_SEGMENT", ErrCodeUnknownSegment},
		{"UNKNOWN_REPORT", ErrCodeUnknownReport},
		{"NOTHING_TO_EXPORT", ErrCodeNothingToExport},
		{"EXPORT_DISABLED", ErrCodeExportDisabled},
		// New codes should pass through unchanged
		{ErrCodeNotFound, ErrCodeNotFound},
		{ErrCodeInvalidFilter, ErrCodeInvalidFilter},
		// Unknown codes should pass through unchanged
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestLegacyCodesAreMapped(t *testing.T) {
	for legacy, code := range LegacyErrorCodeMapping {
		t.Run(legacy, func(t *testing.T) {
			_, ok := ErrorCodeHTTPStatus[code]
			assert.True(t, ok, "Error code %s should be in ErrorCodeHTTPStatus map", code)
			assert.Contains(t, code, "ERR_")
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Resource not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code) // Should be normalized
	assert.Equal(t, "Resource not found", resp.Error.Message)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	requestID := "req-123-456"
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Resource not found", requestID)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, requestID, resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "start_date", Message: "This field is required"},
		{Field: "profile", Message: "Must be one of: summary legacy"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "start_date", resp.Error.Details[0].Field)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Report not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
	assert.NotContains(t, string(data), "details")
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"name": "test"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, Meta{Status: "no_data", Warnings: []string{"w"}})

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "no_data", resp.Meta.Status)
	assert.False(t, resp.Meta.Cached)
	assert.Equal(t, []string{"w"}, resp.Meta.Warnings)
}

func TestReportQuery_ToFilter(t *testing.T) {
	q := ReportQuery{
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		EmployeeCode: "E01",
		Channels:     []string{"Varejo", "Atacado", ""},
		Regions:      []string{"Sul"},
		Brands:       []string{" Acme ", "Cabelo, Pele & Cia"},
		Segments:     []string{"champions", " at_risk "},
	}

	f := q.ToFilter()

	assert.Equal(t, "E01", f.EmployeeCode)
	assert.Equal(t, []string{"Varejo", "Atacado"}, f.Channels)
	assert.Equal(t, []string{"Sul"}, f.Regions)
	assert.Equal(t, []string{"Acme", "Cabelo, Pele & Cia"}, f.Brands, "commas belong to the value")
	assert.Nil(t, f.EmployeeNames)
	assert.Equal(t, []string{"champions", "at_risk"}, q.SegmentValues())
	assert.NoError(t, f.Validate())
}

func TestExportRequest_ToFilter(t *testing.T) {
	r := ExportRequest{
		Report:    "revenue",
		StartDate: "2024-01-01",
		EndDate:   "2024-06-30",
		Brands:    []string{"Acme"},
	}

	f := r.ToFilter()

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), f.StartDate)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), f.EndDate)
	assert.Equal(t, []string{"Acme"}, f.Brands)
}
