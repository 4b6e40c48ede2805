package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	appanalytics "github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/domain/analytics"
	"github.com/salesinsight/backend/internal/interfaces/http/dto"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
)

// AnalyticsHandler serves the dashboard reports.
type AnalyticsHandler struct {
	BaseHandler
	service   *appanalytics.Service
	exporter  *appanalytics.Exporter
	formatter *appanalytics.Formatter
}

// NewAnalyticsHandler creates an AnalyticsHandler. A nil exporter disables
// the export endpoint.
func NewAnalyticsHandler(service *appanalytics.Service, exporter *appanalytics.Exporter, formatter *appanalytics.Formatter) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, exporter: exporter, formatter: formatter}
}

// RegisterRoutes mounts the analytics endpoints on rg.
func (h *AnalyticsHandler) RegisterRoutes(rg *gin.RouterGroup, exportLimit ...gin.HandlerFunc) {
	rg.GET("/revenue", h.Revenue)
	rg.GET("/brands", h.Brands)
	rg.GET("/rfm/summary", h.RFMSummary)
	rg.GET("/rfm/customers", h.RFMCustomers)
	rg.GET("/rfm/heatmap", h.RFMHeatmap)
	rg.GET("/lifecycle", h.Lifecycle)
	rg.GET("/options", h.Options)
	rg.GET("/overview", h.Overview)
	rg.POST("/exports", append(exportLimit, h.Export)...)
}

// bindReport parses the report query string. It writes the error response
// itself and returns false when the request is invalid.
func (h *AnalyticsHandler) bindReport(c *gin.Context) (appanalytics.ReportRequest, bool) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.bindError(c, err)
		return appanalytics.ReportRequest{}, false
	}
	segments, err := appanalytics.ParseSegments(q.SegmentValues())
	if err != nil {
		h.HandleError(c, err)
		return appanalytics.ReportRequest{}, false
	}
	return appanalytics.ReportRequest{
		Filter:   q.ToFilter(),
		Profile:  q.Profile,
		Segments: segments,
		Refresh:  q.Refresh || bypassCache(c),
	}, true
}

func (h *AnalyticsHandler) bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(verrs, getRequestID(c)))
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, err.Error())
}

// bypassCache honours "Cache-Control: no-cache" from the dashboard refresh button.
func bypassCache(c *gin.Context) bool {
	for _, directive := range strings.Split(c.GetHeader("Cache-Control"), ",") {
		switch strings.ToLower(strings.TrimSpace(directive)) {
		case "no-cache", "no-store":
			return true
		}
	}
	return false
}

// Revenue returns the monthly revenue report.
func (h *AnalyticsHandler) Revenue(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.Revenue(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondReport(&h.BaseHandler, c, res)
}

// Brands returns the brand breakdown with its formatted share table.
func (h *AnalyticsHandler) Brands(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.Brands(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, h.brandShares(res.Data), reportMeta(res))
}

func (h *AnalyticsHandler) brandShares(report appanalytics.BrandReport) dto.BrandShareResponse {
	resp := dto.BrandShareResponse{
		Rows:         report.Rows,
		TotalRevenue: h.formatter.Currency(report.TotalRevenue),
		Table:        make([]dto.BrandShareRow, 0, len(report.Rows)),
	}
	for _, r := range report.Rows {
		var share *float64
		if report.TotalRevenue.IsPositive() {
			v := r.Share * 100
			share = &v
		}
		resp.Table = append(resp.Table, dto.BrandShareRow{
			Brand:           r.Brand,
			Revenue:         h.formatter.Currency(r.Revenue),
			Share:           h.formatter.Percent(share, 1),
			AvgTicket:       h.formatter.Currency(r.AvgTicket),
			UniqueCustomers: h.formatter.Integer(r.UniqueCustomers),
			OrderCount:      h.formatter.Integer(r.OrderCount),
		})
	}
	return resp
}

// RFMSummary returns the segment summary for the requested profile.
func (h *AnalyticsHandler) RFMSummary(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.RFMSummary(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondReport(&h.BaseHandler, c, res)
}

// RFMHeatmap returns the recency by frequency heatmap of the summary.
func (h *AnalyticsHandler) RFMHeatmap(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.RFMSummary(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, appanalytics.NewHeatmapChart(res.Data.Heatmap), reportMeta(res))
}

// RFMCustomers returns the customers of the selected segments.
func (h *AnalyticsHandler) RFMCustomers(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.RFMCustomers(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondReport(&h.BaseHandler, c, res)
}

// Lifecycle returns the monthly client lifecycle matrix.
func (h *AnalyticsHandler) Lifecycle(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.Lifecycle(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondReport(&h.BaseHandler, c, res)
}

// Options returns the values available for the filter selectors.
func (h *AnalyticsHandler) Options(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.Options(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := dto.OptionsResponse{
		Channels:      nonNil(res.Data.Channels),
		Regions:       nonNil(res.Data.Regions),
		Collaborators: res.Data.Collaborators,
		Profiles:      analytics.ProfileNames(),
	}
	if resp.Collaborators == nil {
		resp.Collaborators = []analytics.Collaborator{}
	}
	if h.exporter.Enabled() {
		resp.Exports = appanalytics.ExportKinds()
	}
	h.SuccessWithMeta(c, resp, reportMeta(res))
}

// Overview returns revenue, brands and lifecycle computed in parallel.
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	req, ok := h.bindReport(c)
	if !ok {
		return
	}
	res, err := h.service.Overview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Export renders a report to CSV, stores it and returns a download link.
func (h *AnalyticsHandler) Export(c *gin.Context) {
	if !h.exporter.Enabled() {
		h.HandleError(c, appanalytics.ErrExportDisabled)
		return
	}
	var body dto.ExportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(verrs, getRequestID(c)))
			return
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid JSON body")
		return
	}
	segments, err := appanalytics.ParseSegments(body.Segments)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), appanalytics.ExportRequest{
		Kind: body.Report,
		ReportRequest: appanalytics.ReportRequest{
			Filter:   body.ToFilter(),
			Profile:  body.Profile,
			Segments: segments,
			Refresh:  bypassCache(c),
		},
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
