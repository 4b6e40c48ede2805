package analytics

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// Segment is an RFM customer segment.
type Segment string

const (
	SegmentChampions          Segment = "champions"
	SegmentLoyal              Segment = "loyal"
	SegmentPotentialLoyalists Segment = "potential_loyalists"
	SegmentNewCustomers       Segment = "new_customers"
	SegmentPromising          Segment = "promising"
	SegmentNeedAttention      Segment = "need_attention"
	SegmentAboutToSleep       Segment = "about_to_sleep"
	SegmentAtRisk             Segment = "at_risk"
	SegmentCantLose           Segment = "cant_lose"
	SegmentHibernating        Segment = "hibernating"
	SegmentLost               Segment = "lost"
	SegmentAttention          Segment = "attention"
	SegmentOthers             Segment = "others"
)

var segmentLabels = map[Segment]string{
	SegmentChampions:          "Campeões",
	SegmentLoyal:              "Clientes fiéis",
	SegmentPotentialLoyalists: "Fiéis em potencial",
	SegmentNewCustomers:       "Novos clientes",
	SegmentPromising:          "Promessas",
	SegmentNeedAttention:      "Clientes precisando de atenção",
	SegmentAboutToSleep:       "Quase dormentes",
	SegmentAtRisk:             "Em risco",
	SegmentCantLose:           "Não pode perder",
	SegmentHibernating:        "Hibernando",
	SegmentLost:               "Perdidos",
	SegmentAttention:          "Atenção",
	SegmentOthers:             "Outros",
}

// Label is the display name shown on the dashboard.
func (s Segment) Label() string {
	if l, ok := segmentLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseSegment accepts either the identifier or the display label.
func ParseSegment(v string) (Segment, bool) {
	if _, ok := segmentLabels[Segment(v)]; ok {
		return Segment(v), true
	}
	for s, l := range segmentLabels {
		if l == v {
			return s, true
		}
	}
	return "", false
}

// CustomerProfile is one row of the precomputed customer profile view.
// Recency is in months since the last purchase; a negative value means unknown.
type CustomerProfile struct {
	CustomerCode    string          `json:"customer_code"`
	CustomerName    string          `json:"customer_name,omitempty"`
	Channel         string          `json:"channel"`
	Region          string          `json:"region"`
	Recency         int64           `json:"recency"`
	Frequency       int64           `json:"frequency"`
	Monetary        decimal.Decimal `json:"monetary"`
	AvgTicket       decimal.Decimal `json:"avg_ticket"`
	BestMonth       string          `json:"best_month,omitempty"`
	LifecycleMonths int64           `json:"lifecycle_months,omitempty"`
}

// RFMCustomerScore is a scored and segmented customer.
type RFMCustomerScore struct {
	CustomerProfile
	RScore  int     `json:"r_score"`
	FScore  int     `json:"f_score"`
	MScore  int     `json:"m_score"`
	Score   string  `json:"rfm_score"`
	Segment Segment `json:"segment"`
}

// RFMSegmentSummary aggregates scored customers per (segment, channel, region).
type RFMSegmentSummary struct {
	Segment       Segment         `json:"segment"`
	Channel       string          `json:"channel"`
	Region        string          `json:"region"`
	CustomerCount int64           `json:"customer_count"`
	TotalValue    decimal.Decimal `json:"total_value"`
	AvgValue      decimal.Decimal `json:"avg_value"`
	AvgRScore     float64         `json:"avg_r_score"`
	AvgFScore     float64         `json:"avg_f_score"`
	AvgMScore     float64         `json:"avg_m_score"`
}

// MonetaryQuintiles ranks values descending into 5 contiguous groups as NTILE(5)
// does: the first n%5 groups hold one extra element. Index i of the result is
// the score of values[i]; 1 holds the highest values. Ties keep input order.
func MonetaryQuintiles(values []decimal.Decimal) []int {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return values[b].Cmp(values[a])
	})

	scores := make([]int, n)
	base, extra := n/5, n%5
	pos := 0
	for group := 1; group <= 5 && pos < n; group++ {
		size := base
		if group <= extra {
			size++
		}
		for k := 0; k < size; k++ {
			scores[idx[pos]] = group
			pos++
		}
	}
	return scores
}

// ScoreCustomers scores and segments the given customers with profile p. The
// monetary quintile is relative to exactly this set of customers.
func ScoreCustomers(customers []CustomerProfile, p RFMProfile) []RFMCustomerScore {
	values := make([]decimal.Decimal, len(customers))
	for i, c := range customers {
		values[i] = monetaryValue(c, p.Scoring.Monetary)
	}
	mScores := MonetaryQuintiles(values)

	out := make([]RFMCustomerScore, len(customers))
	for i, c := range customers {
		s := Scores{
			R: p.Scoring.RecencyScore(c.Recency),
			F: p.Scoring.FrequencyScore(c.Frequency),
			M: mScores[i],
		}
		out[i] = RFMCustomerScore{
			CustomerProfile: c,
			RScore:          s.R,
			FScore:          s.F,
			MScore:          s.M,
			Score:           fmt.Sprintf("%d%d%d", s.R, s.F, s.M),
			Segment:         p.Segmentation.Classify(s),
		}
	}
	return out
}

func monetaryValue(c CustomerProfile, basis MonetaryBasis) decimal.Decimal {
	if basis == MonetaryAvgTicket {
		return c.AvgTicket
	}
	return c.Monetary
}

// SummarizeSegments groups scores by (segment, channel, region), ordered by
// total value descending then channel.
func SummarizeSegments(scores []RFMCustomerScore, basis MonetaryBasis) []RFMSegmentSummary {
	type key struct {
		segment         Segment
		channel, region string
	}
	type acc struct {
		count   int64
		total   decimal.Decimal
		r, f, m int64
	}

	groups := make(map[key]*acc)
	var order []key
	for _, s := range scores {
		k := key{s.Segment, s.Channel, s.Region}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
			order = append(order, k)
		}
		a.count++
		a.total = a.total.Add(monetaryValue(s.CustomerProfile, basis))
		a.r += int64(s.RScore)
		a.f += int64(s.FScore)
		a.m += int64(s.MScore)
	}

	out := make([]RFMSegmentSummary, 0, len(order))
	for _, k := range order {
		a := groups[k]
		n := float64(a.count)
		out = append(out, RFMSegmentSummary{
			Segment:       k.segment,
			Channel:       k.channel,
			Region:        k.region,
			CustomerCount: a.count,
			TotalValue:    a.total,
			AvgValue:      SafeAverage(a.total, a.count),
			AvgRScore:     float64(a.r) / n,
			AvgFScore:     float64(a.f) / n,
			AvgMScore:     float64(a.m) / n,
		})
	}
	slices.SortStableFunc(out, func(a, b RFMSegmentSummary) int {
		if c := b.TotalValue.Cmp(a.TotalValue); c != 0 {
			return c
		}
		return cmp.Compare(a.Channel, b.Channel)
	})
	return out
}

// FilterSegments keeps customers in any of the given segments (all when empty),
// ordered by monetary value descending then channel.
func FilterSegments(scores []RFMCustomerScore, basis MonetaryBasis, segments ...Segment) []RFMCustomerScore {
	out := make([]RFMCustomerScore, 0, len(scores))
	for _, s := range scores {
		if len(segments) == 0 || slices.Contains(segments, s.Segment) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b RFMCustomerScore) int {
		if c := monetaryValue(b.CustomerProfile, basis).Cmp(monetaryValue(a.CustomerProfile, basis)); c != 0 {
			return c
		}
		return cmp.Compare(a.Channel, b.Channel)
	})
	return out
}

// RFMHeatmap is a 5x5 customer count matrix indexed [recency-1][frequency-1].
type RFMHeatmap [5][5]int64

// BuildHeatmap places each summary row at its average R/F score rounded half
// to even, clamped to 1..5, and accumulates customer counts.
func BuildHeatmap(rows []RFMSegmentSummary) RFMHeatmap {
	var h RFMHeatmap
	for _, r := range rows {
		ri := clampScore(int(math.RoundToEven(r.AvgRScore)))
		fi := clampScore(int(math.RoundToEven(r.AvgFScore)))
		h[ri-1][fi-1] += r.CustomerCount
	}
	return h
}

// Max returns the largest cell value.
func (h RFMHeatmap) Max() int64 {
	var m int64
	for _, row := range h {
		for _, v := range row {
			m = max(m, v)
		}
	}
	return m
}

func clampScore(v int) int {
	return min(5, max(1, v))
}
