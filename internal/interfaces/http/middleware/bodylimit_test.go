package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesinsight/backend/internal/interfaces/http/dto"
)

// exportRouter mounts BodyLimit in front of an export-like endpoint that
// decodes a JSON body.
func exportRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), BodyLimit(limit))
	router.POST("/analytics/exports", func(c *gin.Context) {
		var body struct {
			Report string `json:"report"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrCodeRequestTooLarge, err.Error()))
				return
			}
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, err.Error()))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(body.Report))
	})
	return router
}

func exportBody(padding int) string {
	return `{"report":"rfm","note":"` + strings.Repeat("x", padding) + `"}`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("export request within limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analytics/exports", strings.NewReader(exportBody(10)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		exportRouter(1024).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeEnvelope(t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, "rfm", resp.Data)
	})

	t.Run("declared length over limit is rejected with the error envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analytics/exports", strings.NewReader(exportBody(500)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDKey, "export-413")
		w := httptest.NewRecorder()
		exportRouter(100).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		resp := decodeEnvelope(t, w)
		assert.False(t, resp.Success)
		assert.Nil(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
		assert.Equal(t, "export-413", resp.Error.RequestID)
		assert.NotEmpty(t, resp.Error.Message)
		assert.Equal(t, http.StatusRequestEntityTooLarge, dto.GetHTTPStatus(resp.Error.Code))
	})

	t.Run("unknown length is cut off while decoding", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/analytics/exports", strings.NewReader(exportBody(500)))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		w := httptest.NewRecorder()
		exportRouter(100).ServeHTTP(w, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		resp := decodeEnvelope(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeRequestTooLarge, resp.Error.Code)
	})

	t.Run("requests without a body pass", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/analytics/revenue", func(c *gin.Context) {
			c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
		})

		w := serve(router, http.MethodGet, "/analytics/revenue", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
