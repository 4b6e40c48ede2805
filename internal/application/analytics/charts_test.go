package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesinsight/backend/internal/domain/analytics"
)

func TestNewHeatmapChart(t *testing.T) {
	var h analytics.RFMHeatmap
	h[4][0] = 7 // R5 F1
	h[0][4] = 2 // R1 F5

	c := NewHeatmapChart(h)
	assert.Equal(t, []string{"R5", "R4", "R3", "R2", "R1"}, c.RowLabels)
	assert.Equal(t, []string{"F1", "F2", "F3", "F4", "F5"}, c.ColumnLabels)
	assert.Equal(t, int64(7), c.Cells[0][0])
	assert.Equal(t, int64(2), c.Cells[4][4])
	assert.Equal(t, int64(7), c.Max)
}

func TestLifecycleTableAndSeries(t *testing.T) {
	months := []time.Time{date(2024, 1, 1), date(2024, 2, 1)}
	mx := analytics.PivotLifecycle([]analytics.LifecycleMonthRow{
		{Month: months[0], Status: analytics.StatusChurned, Count: 1},
		{Month: months[0], Status: analytics.StatusBase, Count: 4},
	}, months)

	table := LifecycleTable(mx)
	require.Len(t, table, len(analytics.EventStatuses)+1)

	base := table[len(table)-1]
	assert.Equal(t, analytics.StatusBase, base.Status)
	assert.Equal(t, "Base", base.Label)
	for _, c := range base.Cells {
		assert.Nil(t, c.Percent)
	}

	for _, row := range table {
		if row.Status != analytics.StatusChurned {
			continue
		}
		require.NotNil(t, row.Cells[0].Percent)
		assert.InDelta(t, 25.0, *row.Cells[0].Percent, 0.001)
		assert.Nil(t, row.Cells[1].Percent)
	}

	series := LifecycleSeries(mx)
	require.Len(t, series, len(analytics.EventStatuses)+1)
	assert.Equal(t, ChartLine, series[0].Kind)
	last := series[len(series)-1]
	assert.Equal(t, ChartBar, last.Kind)
	assert.Equal(t, "2024-01", last.Points[0].X)
	assert.Equal(t, 4.0, *last.Points[0].Y)
	assert.Equal(t, 0.0, *last.Points[1].Y)
}

func TestRevenueSeries_CollapsesEmployees(t *testing.T) {
	rows := []analytics.MonthlyRevenueRow{
		revenueRow(date(2024, 1, 1), 1000),
		revenueRow(date(2024, 1, 1), 500),
	}
	rows[0].Employee, rows[1].Employee = "Ana", "Bia"

	series := RevenueSeries(rows)
	require.Len(t, series, 4)
	require.Len(t, series[0].Points, 1)
	assert.Equal(t, 1500.0, *series[0].Points[0].Y)
}
