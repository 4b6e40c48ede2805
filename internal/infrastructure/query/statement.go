package query

import (
	"strings"
)

// Statement is a parameterized SQL statement with `?` placeholders.
// Name identifies the report in logs and metrics.
type Statement struct {
	Name string
	SQL  string
	Args []any
}

// Builder accumulates SQL text and bound arguments in order.
type Builder struct {
	sb   strings.Builder
	args []any
}

// Write appends a fragment and its arguments.
func (b *Builder) Write(sql string, args ...any) *Builder {
	b.sb.WriteString(sql)
	b.args = append(b.args, args...)
	return b
}

// Line appends a fragment followed by a newline.
func (b *Builder) Line(sql string, args ...any) *Builder {
	return b.Write(sql+"\n", args...)
}

// Predicates appends every non-empty predicate as an AND clause on its own
// line. The preceding text must end in an open WHERE.
func (b *Builder) Predicates(ps []Predicate) *Builder {
	for _, p := range ps {
		if p.Empty() {
			continue
		}
		b.Line("  AND "+p.SQL, p.Args...)
	}
	return b
}

// Args returns the arguments bound so far.
func (b *Builder) Args() []any {
	return b.args
}

// Build finishes the statement.
func (b *Builder) Build(name string) Statement {
	return Statement{Name: name, SQL: b.sb.String(), Args: b.args}
}

// Placeholders returns n comma separated `?` markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
