package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesinsight/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors_ReportQuery(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.GET("/revenue", func(c *gin.Context) {
		var q dto.ReportQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("names query fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/revenue?end_date=2024-03-31&profile=gold", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Equal(t, w.Header().Get(RequestIDKey), resp.Error.RequestID)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["start_date"])
		assert.Equal(t, "Must be one of: summary legacy", fields["profile"])
	})

	t.Run("accepts a complete query", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/revenue?start_date=2024-01-01&end_date=2024-03-31", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFormatValidationErrors_ExportBody(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.POST("/exports", func(c *gin.Context) {
		var body dto.ExportRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(`{"report":"revenue","start_date":"01/2024","end_date":"2024-03-31"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "start_date", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be a date formatted as 2006-01-02", resp.Error.Details[0].Message)
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		Max      string `validate:"max=3"`
		Len      string `validate:"len=5"`
		OneOf    string `validate:"oneof=a b c"`
		GTE      int    `validate:"gte=10"`
		LTE      int    `validate:"lte=1"`
	}

	err := validator.New().Struct(input{Min: "ab", Max: "abcd", Len: "ab", OneOf: "d", GTE: 1, LTE: 5})
	require.Error(t, err)

	messages := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		messages[e.Field()] = getValidationMessage(e)
	}

	assert.Equal(t, "This field is required", messages["Required"])
	assert.Equal(t, "Must be at least 5 characters", messages["Min"])
	assert.Equal(t, "Must be at most 3 characters", messages["Max"])
	assert.Equal(t, "Must be exactly 5 characters", messages["Len"])
	assert.Equal(t, "Must be one of: a b c", messages["OneOf"])
	assert.Equal(t, "Must be greater than or equal to 10", messages["GTE"])
	assert.Equal(t, "Must be less than or equal to 1", messages["LTE"])
}

func TestHandleValidationError_NonValidationError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "req-1")

	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}
