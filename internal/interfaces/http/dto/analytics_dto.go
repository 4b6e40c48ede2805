package dto

import (
	"strings"
	"time"

	"github.com/salesinsight/backend/internal/domain/analytics"
)

// ReportQuery is the query string shared by every analytics endpoint.
// Set dimensions take one value per repeated parameter
// (channel=Varejo&channel=Atacado). Values are never split, so a channel or
// brand name may contain commas.
type ReportQuery struct {
	StartDate    time.Time `form:"start_date" time_format:"2006-01-02" binding:"required"`
	EndDate      time.Time `form:"end_date" time_format:"2006-01-02" binding:"required"`
	EmployeeCode string    `form:"employee_code" binding:"omitempty,max=32"`
	Channels     []string  `form:"channel"`
	Regions      []string  `form:"region"`
	Brands       []string  `form:"brand"`
	Employees    []string  `form:"employee_name"`
	Profile      string    `form:"profile" binding:"omitempty,oneof=summary drilldown legacy"`
	Segments     []string  `form:"segment"`
	Refresh      bool      `form:"refresh"`
}

// ToFilter converts the query into a domain filter set.
func (q ReportQuery) ToFilter() analytics.FilterSet {
	return analytics.FilterSet{
		EmployeeCode:  q.EmployeeCode,
		StartDate:     q.StartDate,
		EndDate:       q.EndDate,
		Channels:      cleanValues(q.Channels),
		Regions:       cleanValues(q.Regions),
		Brands:        cleanValues(q.Brands),
		EmployeeNames: cleanValues(q.Employees),
	}
}

// SegmentValues returns the requested segment names or labels.
func (q ReportQuery) SegmentValues() []string {
	return cleanValues(q.Segments)
}

// ExportRequest is the body of an export request.
type ExportRequest struct {
	Report       string   `json:"report" binding:"required,oneof=revenue brands rfm_summary rfm_customers lifecycle"`
	StartDate    string   `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" binding:"required,datetime=2006-01-02"`
	EmployeeCode string   `json:"employee_code" binding:"omitempty,max=32"`
	Channels     []string `json:"channels"`
	Regions      []string `json:"regions"`
	Brands       []string `json:"brands"`
	Employees    []string `json:"employee_names"`
	Profile      string   `json:"profile" binding:"omitempty,oneof=summary drilldown legacy"`
	Segments     []string `json:"segments"`
}

// ToFilter converts the body into a domain filter set. Dates have already
// been validated by binding.
func (r ExportRequest) ToFilter() analytics.FilterSet {
	start, _ := time.Parse(analytics.DateLayout, r.StartDate)
	end, _ := time.Parse(analytics.DateLayout, r.EndDate)
	return analytics.FilterSet{
		EmployeeCode:  r.EmployeeCode,
		StartDate:     start,
		EndDate:       end,
		Channels:      r.Channels,
		Regions:       r.Regions,
		Brands:        r.Brands,
		EmployeeNames: r.Employees,
	}
}

// BrandShareRow is a brand breakdown row with display-ready values.
type BrandShareRow struct {
	Brand           string `json:"brand"`
	Revenue         string `json:"revenue"`
	Share           string `json:"share"`
	AvgTicket       string `json:"avg_ticket"`
	UniqueCustomers string `json:"unique_customers"`
	OrderCount      string `json:"order_count"`
}

// BrandShareResponse wraps the brand report with its formatted share table.
type BrandShareResponse struct {
	Rows         []analytics.BrandRow `json:"rows"`
	TotalRevenue string               `json:"total_revenue"`
	Table        []BrandShareRow      `json:"table"`
}

// OptionsResponse lists the values available for the filter selectors.
type OptionsResponse struct {
	Channels      []string                 `json:"channels"`
	Regions       []string                 `json:"regions"`
	Collaborators []analytics.Collaborator `json:"collaborators"`
	Profiles      []string                 `json:"profiles"`
	Exports       []string                 `json:"exports,omitempty"`
}

// cleanValues trims each value and drops empty ones.
func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
