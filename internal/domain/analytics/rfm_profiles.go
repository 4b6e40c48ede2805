package analytics

import (
	"fmt"
	"slices"
)

// Threshold maps an inclusive [Min, Max] range to a score. Max < 0 means unbounded.
type Threshold struct {
	Min   int64
	Max   int64
	Score int
}

func (t Threshold) matches(v int64) bool {
	return v >= t.Min && (t.Max < 0 || v <= t.Max)
}

// MonetaryBasis selects which customer value drives the monetary quintile.
type MonetaryBasis string

const (
	MonetaryTotal     MonetaryBasis = "total"
	MonetaryAvgTicket MonetaryBasis = "avg_ticket"
)

// ScoringProfile holds fixed recency/frequency thresholds, evaluated in order
// with a default score of 1.
type ScoringProfile struct {
	Name      string
	Recency   []Threshold
	Frequency []Threshold
	Monetary  MonetaryBasis
}

// RecencyScore scores periods since the last purchase.
func (p ScoringProfile) RecencyScore(recency int64) int {
	return scoreFor(p.Recency, recency)
}

// FrequencyScore scores the purchase count.
func (p ScoringProfile) FrequencyScore(frequency int64) int {
	return scoreFor(p.Frequency, frequency)
}

func scoreFor(ts []Threshold, v int64) int {
	for _, t := range ts {
		if t.matches(v) {
			return t.Score
		}
	}
	return 1
}

// ScoringSummary is used by the per-channel/region summary and its drill-down.
var ScoringSummary = ScoringProfile{
	Name: "summary",
	Recency: []Threshold{
		{Min: 0, Max: 1, Score: 5},
		{Min: 2, Max: 2, Score: 4},
		{Min: 3, Max: 3, Score: 3},
		{Min: 4, Max: 6, Score: 2},
	},
	Frequency: []Threshold{
		{Min: 10, Max: -1, Score: 5},
		{Min: 7, Max: 9, Score: 4},
		{Min: 3, Max: 6, Score: 3},
		{Min: 2, Max: 2, Score: 2},
	},
	Monetary: MonetaryTotal,
}

// ScoringLegacy is the per-customer scoring of the older performance page.
var ScoringLegacy = ScoringProfile{
	Name: "legacy",
	Recency: []Threshold{
		{Min: 0, Max: 1, Score: 5},
		{Min: 2, Max: 3, Score: 4},
		{Min: 4, Max: 5, Score: 3},
		{Min: 6, Max: 6, Score: 2},
	},
	Frequency: []Threshold{
		{Min: 13, Max: -1, Score: 5},
		{Min: 10, Max: 12, Score: 4},
		{Min: 7, Max: 9, Score: 3},
		{Min: 4, Max: 6, Score: 2},
	},
	Monetary: MonetaryAvgTicket,
}

// Scores is the (R, F, M) triple a segment rule is evaluated against.
type Scores struct {
	R, F, M int
}

// SegmentRule is one predicate → segment entry of an ordered rule list.
type SegmentRule struct {
	Segment Segment
	Match   func(s Scores) bool
}

// SegmentationProfile is an ordered, first-match-wins rule list.
type SegmentationProfile struct {
	Name    string
	Rules   []SegmentRule
	Default Segment
}

// Classify returns the segment of the first matching rule, or the default.
func (p SegmentationProfile) Classify(s Scores) Segment {
	for _, r := range p.Rules {
		if r.Match(s) {
			return r.Segment
		}
	}
	return p.Default
}

// Segments lists every segment the profile can emit, in rule order.
func (p SegmentationProfile) Segments() []Segment {
	out := make([]Segment, 0, len(p.Rules)+1)
	for _, r := range p.Rules {
		if !slices.Contains(out, r.Segment) {
			out = append(out, r.Segment)
		}
	}
	if !slices.Contains(out, p.Default) {
		out = append(out, p.Default)
	}
	return out
}

// SegmentsSixRule is the simpler rule list. The "lost" rule is shadowed by
// "at_risk" and kept for parity with the dashboard's segment catalogue.
var SegmentsSixRule = SegmentationProfile{
	Name: "six_rule",
	Rules: []SegmentRule{
		{SegmentChampions, func(s Scores) bool { return s.R == 5 && s.F == 5 }},
		{SegmentLoyal, func(s Scores) bool { return s.R >= 4 && s.F >= 4 }},
		{SegmentNewCustomers, func(s Scores) bool { return s.R == 5 && s.F <= 2 }},
		{SegmentAtRisk, func(s Scores) bool { return s.R <= 2 && s.F <= 3 }},
		{SegmentLost, func(s Scores) bool { return s.R == 1 && s.F == 1 }},
		{SegmentAttention, func(s Scores) bool { return s.R == 3 && s.F == 1 }},
	},
	Default: SegmentOthers,
}

// SegmentsDrillDown is the six-rule list as the segment drill-down applies
// it: loyal starts at R>=3 and F>=3, so a drill-down can list customers the
// summary counts elsewhere.
var SegmentsDrillDown = SegmentationProfile{
	Name: "six_rule_drilldown",
	Rules: []SegmentRule{
		{SegmentChampions, func(s Scores) bool { return s.R == 5 && s.F == 5 }},
		{SegmentLoyal, func(s Scores) bool { return s.R >= 3 && s.F >= 3 }},
		{SegmentNewCustomers, func(s Scores) bool { return s.R == 5 && s.F <= 2 }},
		{SegmentAtRisk, func(s Scores) bool { return s.R <= 2 && s.F <= 3 }},
		{SegmentLost, func(s Scores) bool { return s.R == 1 && s.F == 1 }},
		{SegmentAttention, func(s Scores) bool { return s.R == 3 && s.F == 1 }},
	},
	Default: SegmentOthers,
}

// SegmentsTenRule is the richer rule list that also weighs the monetary score.
var SegmentsTenRule = SegmentationProfile{
	Name: "ten_rule",
	Rules: []SegmentRule{
		{SegmentChampions, func(s Scores) bool { return s.R == 5 && s.F == 5 && s.M == 5 }},
		{SegmentLoyal, func(s Scores) bool { return s.R == 5 && s.F >= 3 && s.M >= 3 }},
		{SegmentPotentialLoyalists, func(s Scores) bool { return s.R == 4 && s.F >= 3 && s.M >= 3 }},
		{SegmentNewCustomers, func(s Scores) bool { return s.R == 5 && s.F <= 2 }},
		{SegmentPromising, func(s Scores) bool { return s.R == 5 && s.M <= 2 }},
		{SegmentNeedAttention, func(s Scores) bool { return s.R == 3 && s.F >= 3 && s.M >= 3 }},
		{SegmentAboutToSleep, func(s Scores) bool { return s.R <= 2 && s.F <= 2 && s.M <= 2 }},
		{SegmentAtRisk, func(s Scores) bool { return s.R == 2 && s.F >= 3 && s.M >= 3 }},
		{SegmentCantLose, func(s Scores) bool { return s.R == 1 && s.F >= 4 && s.M >= 4 }},
		{SegmentHibernating, func(s Scores) bool { return s.R <= 2 && s.F <= 2 && s.M >= 3 }},
	},
	Default: SegmentLost,
}

// RFMProfile pairs a scoring profile with a segmentation profile.
type RFMProfile struct {
	Name         string
	Scoring      ScoringProfile
	Segmentation SegmentationProfile
	// DrillDown names the profile used to list a segment's customers.
	// Empty means the profile itself.
	DrillDown string
}

const (
	ProfileSummary   = "summary"
	ProfileDrillDown = "drilldown"
	ProfileLegacy    = "legacy"
)

var rfmProfiles = map[string]RFMProfile{
	ProfileSummary:   {Name: ProfileSummary, Scoring: ScoringSummary, Segmentation: SegmentsSixRule, DrillDown: ProfileDrillDown},
	ProfileDrillDown: {Name: ProfileDrillDown, Scoring: ScoringSummary, Segmentation: SegmentsDrillDown},
	ProfileLegacy:    {Name: ProfileLegacy, Scoring: ScoringLegacy, Segmentation: SegmentsTenRule},
}

// DrillDownProfile resolves the profile that lists the customers behind a
// summary computed with p.
func DrillDownProfile(p RFMProfile) RFMProfile {
	if p.DrillDown == "" {
		return p
	}
	if d, ok := rfmProfiles[p.DrillDown]; ok {
		return d
	}
	return p
}

// LookupProfile resolves a registered RFM profile by name.
func LookupProfile(name string) (RFMProfile, error) {
	p, ok := rfmProfiles[name]
	if !ok {
		return RFMProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// ProfileNames lists registered profile names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(rfmProfiles))
	for n := range rfmProfiles {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
