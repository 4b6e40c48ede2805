package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFilterSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		filter  FilterSet
		wantErr bool
	}{
		{"valid range", FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 31)}, false},
		{"single day", FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 1)}, false},
		{"end before start", FilterSet{StartDate: date(2024, 3, 1), EndDate: date(2024, 1, 1)}, true},
		{"missing start", FilterSet{EndDate: date(2024, 1, 1)}, true},
		{"missing end", FilterSet{StartDate: date(2024, 1, 1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidFilter))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFilterSet_Normalize(t *testing.T) {
	f := FilterSet{
		EmployeeCode: "  042 ",
		StartDate:    time.Date(2024, 1, 1, 13, 45, 0, 0, time.UTC),
		EndDate:      date(2024, 2, 29),
		Channels:     []string{"Varejo", " ", "Distribuição", "Varejo"},
		Regions:      []string{""},
	}

	n := f.Normalize()

	assert.Equal(t, "042", n.EmployeeCode)
	assert.Equal(t, date(2024, 1, 1), n.StartDate)
	assert.Equal(t, []string{"Distribuição", "Varejo"}, n.Channels)
	assert.Nil(t, n.Regions, "blank-only sets collapse to no restriction")
	assert.Nil(t, n.Brands)
}

func TestFilterSet_CacheKey(t *testing.T) {
	a := FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 31), Channels: []string{"B", "A"}}
	b := FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 31), Channels: []string{"A", "B", "A"}}
	c := FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 31), Regions: []string{"A", "B"}}

	t.Run("equal after normalization", func(t *testing.T) {
		assert.Equal(t, a.CacheKey("revenue"), b.CacheKey("revenue"))
	})
	t.Run("dimension matters", func(t *testing.T) {
		assert.NotEqual(t, a.CacheKey("revenue"), c.CacheKey("revenue"))
	})
	t.Run("kind and extras matter", func(t *testing.T) {
		assert.NotEqual(t, a.CacheKey("revenue"), a.CacheKey("brands"))
		assert.NotEqual(t, a.CacheKey("rfm", "summary"), a.CacheKey("rfm", "legacy"))
	})
	t.Run("a value with a comma is not two values", func(t *testing.T) {
		one, two := a, a
		one.Brands = []string{"Cabelo, Pele"}
		two.Brands = []string{"Cabelo", "Pele"}
		assert.NotEqual(t, one.CacheKey("brands"), two.CacheKey("brands"))
	})
}

func TestMonthRange(t *testing.T) {
	months := MonthRange(date(2023, 11, 15), date(2024, 2, 3))
	assert.Equal(t, []time.Time{date(2023, 11, 1), date(2023, 12, 1), date(2024, 1, 1), date(2024, 2, 1)}, months)

	assert.Nil(t, MonthRange(time.Time{}, date(2024, 1, 1)))
	assert.Len(t, FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 3, 31)}.Months(), 3)
}

func TestFilterSet_IsRestricted(t *testing.T) {
	base := FilterSet{StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}
	assert.False(t, base.IsRestricted())

	withBrand := base
	withBrand.Brands = []string{"KAMI"}
	assert.True(t, withBrand.IsRestricted())

	withEmployee := base
	withEmployee.EmployeeCode = "7"
	assert.True(t, withEmployee.IsRestricted())
	assert.True(t, withEmployee.HasEmployeeBreakdown())
}
