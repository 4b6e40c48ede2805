package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format for filter dates.
const DateLayout = "2006-01-02"

var filterValidator = validator.New(validator.WithRequiredStructEnabled())

// FilterSet is the typed set of optional filters every report is computed for.
// Empty sets mean "no restriction", never "exclude all".
type FilterSet struct {
	EmployeeCode  string    `json:"employee_code,omitempty"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	Channels      []string  `json:"channels,omitempty"`
	Regions       []string  `json:"regions,omitempty"`
	Brands        []string  `json:"brands,omitempty"`
	EmployeeNames []string  `json:"employee_names,omitempty"`
}

// Validate checks the date range invariant.
func (f FilterSet) Validate() error {
	if err := filterValidator.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "EndDate":
				if verrs[0].Tag() == "gtefield" {
					return fmt.Errorf("%w: end_date %s is before start_date %s", ErrInvalidFilter,
						f.EndDate.Format(DateLayout), f.StartDate.Format(DateLayout))
				}
				return fmt.Errorf("%w: end_date is required", ErrInvalidFilter)
			case "StartDate":
				return fmt.Errorf("%w: start_date is required", ErrInvalidFilter)
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return nil
}

// Normalize returns a canonical copy: trimmed, de-duplicated and sorted set
// dimensions, dates truncated to the day.
func (f FilterSet) Normalize() FilterSet {
	return FilterSet{
		EmployeeCode:  strings.TrimSpace(f.EmployeeCode),
		StartDate:     truncateDay(f.StartDate),
		EndDate:       truncateDay(f.EndDate),
		Channels:      normalizeSet(f.Channels),
		Regions:       normalizeSet(f.Regions),
		Brands:        normalizeSet(f.Brands),
		EmployeeNames: normalizeSet(f.EmployeeNames),
	}
}

// HasEmployeeBreakdown reports whether revenue is broken out per salesperson.
func (f FilterSet) HasEmployeeBreakdown() bool {
	return strings.TrimSpace(f.EmployeeCode) != ""
}

// IsRestricted reports whether any dimension other than the date range is set.
func (f FilterSet) IsRestricted() bool {
	return f.HasEmployeeBreakdown() || len(f.Channels) > 0 || len(f.Regions) > 0 ||
		len(f.Brands) > 0 || len(f.EmployeeNames) > 0
}

// Months returns the first day of every calendar month touched by the range.
func (f FilterSet) Months() []time.Time {
	return MonthRange(f.StartDate, f.EndDate)
}

// CacheKey derives a stable key for the normalized filter set scoped to a report kind.
// Extra discriminators (e.g. an RFM profile) are appended verbatim.
func (f FilterSet) CacheKey(kind string, extra ...string) string {
	n := f.Normalize()
	var b strings.Builder
	b.WriteString(n.EmployeeCode)
	b.WriteByte('|')
	b.WriteString(n.StartDate.Format(DateLayout))
	b.WriteByte('|')
	b.WriteString(n.EndDate.Format(DateLayout))
	for _, set := range [][]string{n.Channels, n.Regions, n.Brands, n.EmployeeNames} {
		b.WriteByte('|')
		b.WriteString(strings.Join(set, "\x1f"))
	}
	for _, e := range extra {
		b.WriteByte('|')
		b.WriteString(e)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return kind + ":" + hex.EncodeToString(sum[:16])
}

// MonthStart truncates t to the first day of its month (UTC).
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange lists month starts from start to end inclusive.
func MonthRange(start, end time.Time) []time.Time {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	first, last := MonthStart(start), MonthStart(end)
	var months []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
