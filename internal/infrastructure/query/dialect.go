package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the few constructs the analytics queries need that differ
// between Athena (Trino) and Postgres.
type Dialect interface {
	Name() string
	// Rebind rewrites `?` placeholders into the driver's native form.
	Rebind(sql string) string
	// AddDays shifts a date expression by n days.
	AddDays(expr string, n int) string
	// AddMonths shifts a date expression by n months.
	AddMonths(expr string, n int) string
	// MonthSeries is a FROM-able relation with one `mes` DATE column holding
	// every month start between two `?` date parameters inclusive.
	MonthSeries() string
}

// TruncMonth renders the first day of the month of expr as a DATE.
func TruncMonth(expr string) string {
	return "CAST(DATE_TRUNC('month', " + expr + ") AS DATE)"
}

// AsDate casts expr to DATE.
func AsDate(expr string) string {
	return "CAST(" + expr + " AS DATE)"
}

// Trino is the Athena dialect.
type Trino struct{}

func (Trino) Name() string { return "trino" }

func (Trino) Rebind(sql string) string { return sql }

func (Trino) AddDays(expr string, n int) string {
	return fmt.Sprintf("date_add('day', %d, %s)", n, expr)
}

func (Trino) AddMonths(expr string, n int) string {
	return fmt.Sprintf("date_add('month', %d, %s)", n, expr)
}

func (Trino) MonthSeries() string {
	return "(SELECT mes FROM UNNEST(SEQUENCE(CAST(? AS DATE), CAST(? AS DATE), INTERVAL '1' MONTH)) AS t(mes))"
}

// Postgres is the dialect of the local warehouse.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

// Rebind numbers placeholders as $1, $2, ... skipping quoted literals.
func (Postgres) Rebind(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 16)
	n := 0
	inQuote := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (Postgres) AddDays(expr string, n int) string {
	return fmt.Sprintf("CAST(%s + INTERVAL '%d day' AS DATE)", expr, n)
}

func (Postgres) AddMonths(expr string, n int) string {
	return fmt.Sprintf("CAST(%s + INTERVAL '%d month' AS DATE)", expr, n)
}

func (Postgres) MonthSeries() string {
	return "(SELECT CAST(gs AS DATE) AS mes FROM generate_series(CAST(? AS DATE), CAST(? AS DATE), INTERVAL '1 month') AS gs)"
}

// DialectFor resolves a dialect by name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "athena", "trino", "":
		return Trino{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q", name)
	}
}
