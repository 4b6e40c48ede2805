package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_Rebind(t *testing.T) {
	sql := "SELECT '?' AS q FROM t WHERE a = ? AND b IN (?, ?) AND c = 'it''s ?'"

	got := Postgres{}.Rebind(sql)

	assert.Equal(t, "SELECT '?' AS q FROM t WHERE a = $1 AND b IN ($2, $3) AND c = 'it''s ?'", got)
}

func TestTrino_RebindIsIdentity(t *testing.T) {
	assert.Equal(t, "a = ?", Trino{}.Rebind("a = ?"))
}

func TestDialect_DateArithmetic(t *testing.T) {
	assert.Equal(t, "date_add('day', 180, p.dt)", Trino{}.AddDays("p.dt", 180))
	assert.Equal(t, "date_add('month', -1, m.mes)", Trino{}.AddMonths("m.mes", -1))
	assert.Equal(t, "CAST(p.dt + INTERVAL '180 day' AS DATE)", Postgres{}.AddDays("p.dt", 180))
	assert.Equal(t, "CAST(m.mes + INTERVAL '1 month' AS DATE)", Postgres{}.AddMonths("m.mes", 1))
}

func TestDialect_MonthSeriesTakesTwoParameters(t *testing.T) {
	for _, d := range []Dialect{Trino{}, Postgres{}} {
		assert.Equal(t, 2, countPlaceholders(d.MonthSeries()), d.Name())
		assert.Contains(t, d.MonthSeries(), "mes")
	}
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("athena")
	require.NoError(t, err)
	assert.Equal(t, "trino", d.Name())

	d, err = DialectFor("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestTruncMonth(t *testing.T) {
	assert.Equal(t, "CAST(DATE_TRUNC('month', p.dt) AS DATE)", TruncMonth("p.dt"))
}

func countPlaceholders(sql string) int {
	n := 0
	for _, c := range sql {
		if c == '?' {
			n++
		}
	}
	return n
}
