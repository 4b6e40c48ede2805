package analytics

import (
	"slices"
	"sort"
	"time"
)

// LifecycleStatus is a per-month customer lifecycle state.
type LifecycleStatus string

const (
	StatusNew         LifecycleStatus = "new"
	StatusChurned     LifecycleStatus = "churned"
	StatusRecovered   LifecycleStatus = "recovered"
	StatusReactivated LifecycleStatus = "reactivated"
	StatusActive      LifecycleStatus = "active_transacting"
	StatusBase        LifecycleStatus = "total_base"
)

// EventStatuses are the statuses shown as a share of the base, in display order.
var EventStatuses = []LifecycleStatus{StatusNew, StatusActive, StatusReactivated, StatusRecovered, StatusChurned}

var statusLabels = map[LifecycleStatus]string{
	StatusNew:         "Novas aberturas",
	StatusChurned:     "Churn",
	StatusRecovered:   "Recuperado",
	StatusReactivated: "Reativado",
	StatusActive:      "Positivado",
	StatusBase:        "Base",
}

// Label is the display name shown on the dashboard.
func (s LifecycleStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is a known status.
func (s LifecycleStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

const (
	// ChurnWindowDays is the trailing period without purchases that defines churn
	// and the width of the active base window.
	ChurnWindowDays = 180
	// ReactivationGapDays is the minimum gap (exclusive) between consecutive
	// purchases for a returning purchase to count as a reactivation.
	ReactivationGapDays = 90
)

// LifecycleMonthRow is the count of customers in one status for one month.
type LifecycleMonthRow struct {
	Month  time.Time       `json:"month"`
	Status LifecycleStatus `json:"status"`
	Count  int64           `json:"count"`
}

// Purchase is one qualifying purchase day of a customer.
type Purchase struct {
	CustomerCode string
	Date         time.Time
}

// ChurnMonth is the first month start strictly after lastPurchase + 180 days.
func ChurnMonth(lastPurchase time.Time) time.Time {
	return MonthStart(truncateDay(lastPurchase).AddDate(0, 0, ChurnWindowDays)).AddDate(0, 1, 0)
}

// ReturnStatus classifies a purchase against the previous one of the same
// customer. ok is false when the gap is 90 days or less.
func ReturnStatus(previous, current time.Time) (LifecycleStatus, bool) {
	previous, current = truncateDay(previous), truncateDay(current)
	switch {
	case current.After(previous.AddDate(0, 0, ChurnWindowDays)):
		return StatusRecovered, true
	case current.After(previous.AddDate(0, 0, ReactivationGapDays)):
		return StatusReactivated, true
	default:
		return "", false
	}
}

// ClassifyLifecycle derives the per-month lifecycle counts for months from the
// full purchase history of the filtered customers. Zero counts are omitted and
// rows are ordered by month then status.
func ClassifyLifecycle(purchases []Purchase, months []time.Time) []LifecycleMonthRow {
	inRange := make(map[time.Time]bool, len(months))
	for _, m := range months {
		inRange[MonthStart(m)] = true
	}

	byCustomer := make(map[string][]time.Time)
	for _, p := range purchases {
		if p.CustomerCode == "" || p.Date.IsZero() {
			continue
		}
		byCustomer[p.CustomerCode] = append(byCustomer[p.CustomerCode], truncateDay(p.Date))
	}

	counts := make(map[time.Time]map[LifecycleStatus]int64)
	add := func(m time.Time, s LifecycleStatus) {
		if !inRange[m] {
			return
		}
		if counts[m] == nil {
			counts[m] = make(map[LifecycleStatus]int64)
		}
		counts[m][s]++
	}

	for _, dates := range byCustomer {
		slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
		dates = slices.CompactFunc(dates, func(a, b time.Time) bool { return a.Equal(b) })

		first := MonthStart(dates[0])
		add(first, StatusNew)

		flagged := make(map[time.Time]bool)
		for i, d := range dates {
			if i > 0 {
				if s, ok := ReturnStatus(dates[i-1], d); ok {
					m := MonthStart(d)
					add(m, s)
					flagged[m] = true
				}
			}
			c := ChurnMonth(d)
			if i == len(dates)-1 || dates[i+1].After(c) {
				add(c, StatusChurned)
				flagged[c] = true
			}
		}

		active := make(map[time.Time]bool)
		for _, d := range dates {
			active[MonthStart(d)] = true
		}
		for m := range active {
			if m.Equal(first) || flagged[m] {
				continue
			}
			add(m, StatusActive)
		}

		for m := range inRange {
			if purchasedWithinBase(dates, m) {
				add(m, StatusBase)
			}
		}
	}

	var rows []LifecycleMonthRow
	for m, byStatus := range counts {
		for s, n := range byStatus {
			if n > 0 {
				rows = append(rows, LifecycleMonthRow{Month: m, Status: s, Count: n})
			}
		}
	}
	SortLifecycleRows(rows)
	return rows
}

// purchasedWithinBase reports a purchase in [end(m) - 180 days, end(m)).
func purchasedWithinBase(sorted []time.Time, m time.Time) bool {
	end := m.AddDate(0, 1, 0)
	start := end.AddDate(0, 0, -ChurnWindowDays)
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Before(start) })
	return i < len(sorted) && sorted[i].Before(end)
}

// SortLifecycleRows orders rows by month then status.
func SortLifecycleRows(rows []LifecycleMonthRow) {
	slices.SortFunc(rows, func(a, b LifecycleMonthRow) int {
		if c := a.Month.Compare(b.Month); c != 0 {
			return c
		}
		if a.Status < b.Status {
			return -1
		}
		if a.Status > b.Status {
			return 1
		}
		return 0
	})
}

// LifecycleMatrix is the month × status pivot of lifecycle rows with every
// missing cell read as zero.
type LifecycleMatrix struct {
	Months []time.Time
	cells  map[time.Time]map[LifecycleStatus]int64
}

// PivotLifecycle pivots rows over months. Months present in rows but not in
// months are included; the result is ordered ascending.
func PivotLifecycle(rows []LifecycleMonthRow, months []time.Time) LifecycleMatrix {
	mx := LifecycleMatrix{cells: make(map[time.Time]map[LifecycleStatus]int64)}
	seen := make(map[time.Time]bool)
	for _, m := range months {
		m = MonthStart(m)
		if !seen[m] {
			seen[m] = true
			mx.Months = append(mx.Months, m)
		}
	}
	for _, r := range rows {
		m := MonthStart(r.Month)
		if !seen[m] {
			seen[m] = true
			mx.Months = append(mx.Months, m)
		}
		if mx.cells[m] == nil {
			mx.cells[m] = make(map[LifecycleStatus]int64)
		}
		mx.cells[m][r.Status] += r.Count
	}
	slices.SortFunc(mx.Months, func(a, b time.Time) int { return a.Compare(b) })
	return mx
}

// Count returns the cell value, 0 when absent.
func (mx LifecycleMatrix) Count(month time.Time, s LifecycleStatus) int64 {
	return mx.cells[MonthStart(month)][s]
}

// Percent returns count/base*100 for the cell, or nil (undefined) when the
// month's base is zero or absent.
func (mx LifecycleMatrix) Percent(month time.Time, s LifecycleStatus) *float64 {
	base := mx.Count(month, StatusBase)
	if base <= 0 {
		return nil
	}
	p := float64(mx.Count(month, s)) / float64(base) * 100
	return &p
}

// HasBase reports whether any month carries a base count.
func (mx LifecycleMatrix) HasBase() bool {
	for _, m := range mx.Months {
		if mx.Count(m, StatusBase) > 0 {
			return true
		}
	}
	return false
}

// Rows flattens the matrix back into zero-filled rows for every month and status.
func (mx LifecycleMatrix) Rows() []LifecycleMonthRow {
	statuses := append(slices.Clone(EventStatuses), StatusBase)
	out := make([]LifecycleMonthRow, 0, len(mx.Months)*len(statuses))
	for _, m := range mx.Months {
		for _, s := range statuses {
			out = append(out, LifecycleMonthRow{Month: m, Status: s, Count: mx.Count(m, s)})
		}
	}
	return out
}
