package analytics

import (
	"context"
	"time"
)

// Collaborator is a salesperson selectable in the employee filters.
type Collaborator struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// FilterOptions are the distinct values available for the selector filters.
type FilterOptions struct {
	Channels      []string       `json:"channels"`
	Regions       []string       `json:"regions"`
	Collaborators []Collaborator `json:"collaborators"`
}

// SalesAnalyticsRepository reads the analytical facts behind every report.
// Implementations return QueryExecutionError or ShapeMismatchError on failure.
type SalesAnalyticsRepository interface {
	// MonthlyRevenue returns the raw monthly facts with the bonus adjustment joined.
	MonthlyRevenue(ctx context.Context, filter FilterSet) ([]MonthlyRevenueRow, error)

	// BrandBreakdown returns one raw row per brand.
	BrandBreakdown(ctx context.Context, filter FilterSet) ([]BrandRow, error)

	// CustomerProfiles returns the base rows RFM scoring runs over.
	CustomerProfiles(ctx context.Context, filter FilterSet) ([]CustomerProfile, error)

	// LifecycleCounts computes lifecycle counts inside the engine.
	LifecycleCounts(ctx context.Context, filter FilterSet, months []time.Time) ([]LifecycleMonthRow, error)

	// PurchaseHistory returns every qualifying purchase day of the filtered customers.
	PurchaseHistory(ctx context.Context, filter FilterSet) ([]Purchase, error)

	// FilterOptions lists selectable channels, regions and collaborators.
	FilterOptions(ctx context.Context, filter FilterSet) (FilterOptions, error)
}
