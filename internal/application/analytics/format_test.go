package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesinsight/backend/internal/domain/analytics"
)

func TestFormatter_BrazilianPortuguese(t *testing.T) {
	f, err := NewFormatter("pt-BR")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"currency", f.Currency(decimal.RequireFromString("1234.56")), "R$ 1.234,56"},
		{"currency pads cents", f.Currency(decimal.NewFromInt(10)), "R$ 10,00"},
		{"currency rounds", f.Currency(decimal.RequireFromString("0.005")), "R$ 0,01"},
		{"negative currency", f.Currency(decimal.RequireFromString("-1500")), "-R$ 1.500,00"},
		{"millions", f.Currency(decimal.RequireFromString("1234567.8")), "R$ 1.234.567,80"},
		{"integer", f.Integer(1234567), "1.234.567"},
		{"percent", f.Percent(ptr(12.5), 1), "12,5%"},
		{"undefined percent", f.Percent(nil, 1), "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Equal(t, "03/2024", f.Month(date(2024, 3, 1)))
}

func TestNewFormatter_InvalidLocale(t *testing.T) {
	_, err := NewFormatter("not a locale!")
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }

func TestFold(t *testing.T) {
	assert.Equal(t, "salao", Fold(" Salão "))
	assert.Equal(t, "campeoes", Fold("CAMPEÕES"))
	assert.Equal(t, Fold("Não pode perder"), Fold("nao pode PERDER"))
}

func TestParseSegments(t *testing.T) {
	segs, err := ParseSegments([]string{"Campeoes", "at_risk", "em risco", " ", "Clientes fiéis"})
	require.NoError(t, err)
	assert.Equal(t, []analytics.Segment{
		analytics.SegmentChampions,
		analytics.SegmentAtRisk,
		analytics.SegmentAtRisk,
		analytics.SegmentLoyal,
	}, segs)

	_, err = ParseSegments([]string{"vip"})
	assert.ErrorIs(t, err, ErrUnknownSegment)

	segs, err = ParseSegments(nil)
	require.NoError(t, err)
	assert.Empty(t, segs)
}
