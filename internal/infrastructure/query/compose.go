package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/salesinsight/backend/internal/domain/analytics"
)

// Predicate is one boolean SQL fragment with its bound arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Empty reports whether the predicate restricts nothing.
func (p Predicate) Empty() bool { return p.SQL == "" }

// ColumnMap names the column each filter dimension applies to in one query.
// An empty column means the dimension is not filterable there and is skipped.
type ColumnMap struct {
	EmployeeCode string
	Date         string
	Channel      string
	Region       string
	Brand        string
	EmployeeName string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdentifier reports whether s is a plain, optionally qualified, SQL identifier.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Validate rejects anything that is not a plain (optionally qualified) identifier.
// Column names are the only text interpolated into SQL; values always bind.
func (c ColumnMap) Validate() error {
	for _, col := range []string{c.EmployeeCode, c.Date, c.Channel, c.Region, c.Brand, c.EmployeeName} {
		if col != "" && !ValidIdentifier(col) {
			return fmt.Errorf("invalid column identifier %q", col)
		}
	}
	return nil
}

// NewColumnMap validates c and panics on an invalid identifier. Column maps
// are package-level literals, so a bad one is a programming error.
func NewColumnMap(c ColumnMap) ColumnMap {
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Compose renders fs against cols as predicates in a fixed order: employee
// code, date range, channels, regions, brands, employee names. Unset
// dimensions produce no predicate. Multi-valued dimensions become IN lists.
func Compose(fs analytics.FilterSet, cols ColumnMap) []Predicate {
	var ps []Predicate

	if code := strings.TrimSpace(fs.EmployeeCode); code != "" && cols.EmployeeCode != "" {
		ps = append(ps, Predicate{SQL: cols.EmployeeCode + " = ?", Args: []any{code}})
	}
	if cols.Date != "" && !fs.StartDate.IsZero() && !fs.EndDate.IsZero() {
		ps = append(ps, Predicate{
			SQL:  AsDate(cols.Date) + " BETWEEN CAST(? AS DATE) AND CAST(? AS DATE)",
			Args: []any{fs.StartDate.Format(analytics.DateLayout), fs.EndDate.Format(analytics.DateLayout)},
		})
	}
	ps = appendIn(ps, cols.Channel, fs.Channels)
	ps = appendIn(ps, cols.Region, fs.Regions)
	ps = appendIn(ps, cols.Brand, fs.Brands)
	ps = appendIn(ps, cols.EmployeeName, fs.EmployeeNames)
	return ps
}

// In renders `column IN (?, ...)` for values, or an empty predicate.
func In(column string, values []string) Predicate {
	if column == "" || len(values) == 0 {
		return Predicate{}
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return Predicate{SQL: column + " IN (" + Placeholders(len(values)) + ")", Args: args}
}

func appendIn(ps []Predicate, column string, values []string) []Predicate {
	if p := In(column, values); !p.Empty() {
		ps = append(ps, p)
	}
	return ps
}
