package analytics

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"wealth-go-api/internal/models"
)

// Dimension is a grouping axis of a portfolio
type Dimension string

const (
	DimensionAssetClass Dimension = "asset_class"
	DimensionSector     Dimension = "sector"
	DimensionGeography  Dimension = "geography"
	// DimensionHolding flags single portfolio lines.
	DimensionHolding Dimension = "holding"
)

// UnknownGroup collects holdings with no value for a dimension.
const UnknownGroup = "unknown"

// Thresholds are the concentration limits, as weight fractions. A group is
// flagged when its weight is strictly above the limit.
type Thresholds struct {
	AssetClass float64 `json:"asset_class"`
	Sector     float64 `json:"sector"`
	Geography  float64 `json:"geography"`
	Holding    float64 `json:"holding"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		AssetClass: 0.40,
		Sector:     0.30,
		Geography:  0.50,
		Holding:    0.20,
	}
}

// WithDefaults replaces unset (zero) limits by the defaults.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.AssetClass == 0 {
		t.AssetClass = d.AssetClass
	}
	if t.Sector == 0 {
		t.Sector = d.Sector
	}
	if t.Geography == 0 {
		t.Geography = d.Geography
	}
	if t.Holding == 0 {
		t.Holding = d.Holding
	}
	return t
}

func (t Thresholds) validate(op string) error {
	for dim, v := range map[Dimension]float64{
		DimensionAssetClass: t.AssetClass,
		DimensionSector:     t.Sector,
		DimensionGeography:  t.Geography,
		DimensionHolding:    t.Holding,
	} {
		if math.IsNaN(v) || v <= 0 || v > 1 {
			return NewError(KindInvalidInput, op, "%s threshold %v outside (0, 1]", dim, v)
		}
	}
	return nil
}

// ConcentrationFlag marks a group (or a single holding) above its threshold.
type ConcentrationFlag struct {
	Dimension Dimension `json:"dimension"`
	Group     string    `json:"group"`
	Weight    float64   `json:"weight"`
	Threshold float64   `json:"threshold"`
}

// ConcentrationLevel is a coarse label of single-position risk
type ConcentrationLevel string

const (
	ConcentrationLow      ConcentrationLevel = "low"
	ConcentrationModerate ConcentrationLevel = "moderate"
	ConcentrationHigh     ConcentrationLevel = "high"
)

// DiversificationReport is the output of ComputeDiversification
type DiversificationReport struct {
	TotalValue         float64               `json:"total_value"`
	ByAssetClass       map[string]float64    `json:"by_asset_class"`
	BySector           map[string]float64    `json:"by_sector"`
	ByGeography        map[string]float64    `json:"by_geography"`
	ConcentrationFlags []ConcentrationFlag   `json:"concentration_flags"`
	DimensionScores    map[Dimension]float64 `json:"dimension_scores"`
	HHI                map[Dimension]float64 `json:"hhi"`
	LargestHolding     Weight                `json:"largest_holding"`
	Concentration      ConcentrationLevel    `json:"concentration"`
	Thresholds         Thresholds            `json:"thresholds"`
	Score              float64               `json:"score"`
}

// ComputeDiversification groups holdings by asset class, sector and
// geography and scores how evenly value is spread.
//
// Per dimension with k groups the score is (1 - maxShare) / (1 - 1/k): 1 for
// an even split, 0 when one group holds everything (or k == 1), and falling
// as the dominant group grows. The overall score is the minimum over the
// three dimensions, so a single fully concentrated dimension yields 0.
//
// The normalizer depends on k, so the score is not continuous in the
// weights: adding a tiny group moves the score even when maxShare stays
// put. 90/10 over two groups scores 0.2 and 90/9/1 over three scores 0.15.
func ComputeDiversification(p models.Portfolio, thresholds Thresholds) (DiversificationReport, error) {
	const op = "compute_diversification"
	if err := thresholds.validate(op); err != nil {
		return DiversificationReport{}, err
	}
	total, err := totalValue(op, p)
	if err != nil {
		return DiversificationReport{}, err
	}
	weights, err := ComputeWeights(p)
	if err != nil {
		return DiversificationReport{}, err
	}

	report := DiversificationReport{
		TotalValue:      total,
		ByAssetClass:    map[string]float64{},
		BySector:        map[string]float64{},
		ByGeography:     map[string]float64{},
		DimensionScores: map[Dimension]float64{},
		HHI:             map[Dimension]float64{},
		Thresholds:      thresholds,
	}

	for i, h := range p.Holdings {
		w := weights[i].Weight
		report.ByAssetClass[groupKey(h.AssetClass)] += w
		report.BySector[groupKey(h.Sector)] += w
		report.ByGeography[groupKey(h.Geography)] += w
		if w > report.LargestHolding.Weight {
			report.LargestHolding = weights[i]
		}
	}

	dims := []struct {
		dim       Dimension
		groups    map[string]float64
		threshold float64
	}{
		{DimensionAssetClass, report.ByAssetClass, thresholds.AssetClass},
		{DimensionSector, report.BySector, thresholds.Sector},
		{DimensionGeography, report.ByGeography, thresholds.Geography},
	}

	report.Score = 1
	for _, d := range dims {
		score := dimensionScore(d.groups)
		report.DimensionScores[d.dim] = score
		report.HHI[d.dim] = herfindahl(d.groups)
		report.Score = math.Min(report.Score, score)
		report.ConcentrationFlags = append(report.ConcentrationFlags, flagGroups(d.dim, d.groups, d.threshold)...)
	}

	var holdingFlags []ConcentrationFlag
	for _, w := range weights {
		if w.Weight > thresholds.Holding {
			holdingFlags = append(holdingFlags, ConcentrationFlag{
				Dimension: DimensionHolding,
				Group:     w.Symbol,
				Weight:    w.Weight,
				Threshold: thresholds.Holding,
			})
		}
	}
	sortFlags(holdingFlags)
	report.ConcentrationFlags = append(report.ConcentrationFlags, holdingFlags...)

	report.Concentration = concentrationLevel(report.LargestHolding.Weight, maxShare(report.BySector))
	return report, nil
}

func groupKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownGroup
	}
	return s
}

// dimensionScore is 0 for fewer than two groups and changes in steps as
// groups appear or vanish.
func dimensionScore(groups map[string]float64) float64 {
	k := len(groups)
	if k < 2 {
		return 0
	}
	score := (1 - maxShare(groups)) / (1 - 1/float64(k))
	return math.Max(0, math.Min(1, score))
}

func shares(groups map[string]float64) []float64 {
	s := make([]float64, 0, len(groups))
	for _, w := range groups {
		s = append(s, w)
	}
	return s
}

// herfindahl is the sum of squared group shares.
func herfindahl(groups map[string]float64) float64 {
	s := shares(groups)
	return floats.Dot(s, s)
}

func maxShare(groups map[string]float64) float64 {
	if len(groups) == 0 {
		return 0
	}
	return floats.Max(shares(groups))
}

func flagGroups(dim Dimension, groups map[string]float64, threshold float64) []ConcentrationFlag {
	var flags []ConcentrationFlag
	for g, w := range groups {
		if w > threshold {
			flags = append(flags, ConcentrationFlag{Dimension: dim, Group: g, Weight: w, Threshold: threshold})
		}
	}
	sortFlags(flags)
	return flags
}

// sortFlags orders by weight descending, then name.
func sortFlags(flags []ConcentrationFlag) {
	sort.SliceStable(flags, func(i, j int) bool {
		if flags[i].Weight != flags[j].Weight {
			return flags[i].Weight > flags[j].Weight
		}
		return flags[i].Group < flags[j].Group
	})
}

func concentrationLevel(largestHolding, largestSector float64) ConcentrationLevel {
	switch {
	case largestHolding > 0.50 || largestSector > 0.60:
		return ConcentrationHigh
	case largestHolding > 0.25 || largestSector > 0.40:
		return ConcentrationModerate
	default:
		return ConcentrationLow
	}
}

// Recommendation is a rule that fired on a diversification report.
// Code is stable; rendering the advice is up to the caller.
type Recommendation struct {
	Code   string  `json:"code"`
	Group  string  `json:"group,omitempty"`
	Weight float64 `json:"weight,omitempty"`
}

const (
	RecAddAssetClasses      = "add_asset_classes"
	RecReduceEquity         = "reduce_equity"
	RecDeployCash           = "deploy_cash"
	RecAddInternational     = "add_international"
	RecTrimLargestPositions = "trim_largest_positions"
	RecReduceTechnology     = "reduce_technology"
	RecWellDiversified      = "well_diversified"
)

// Recommend applies the advisor's concentration rules to a report.
func Recommend(r DiversificationReport) []Recommendation {
	var recs []Recommendation

	if len(r.ByAssetClass) < 3 {
		recs = append(recs, Recommendation{Code: RecAddAssetClasses})
	}
	if w := lookup(r.ByAssetClass, "equity"); w > 0.80 {
		recs = append(recs, Recommendation{Code: RecReduceEquity, Group: "equity", Weight: w})
	}
	if w := lookup(r.ByAssetClass, "cash"); w > 0.30 {
		recs = append(recs, Recommendation{Code: RecDeployCash, Group: "cash", Weight: w})
	}
	if lookup(r.ByGeography, UnknownGroup) > 0.50 || len(r.ByGeography) < 2 {
		recs = append(recs, Recommendation{Code: RecAddInternational})
	}
	if r.LargestHolding.Weight > r.Thresholds.Holding {
		recs = append(recs, Recommendation{Code: RecTrimLargestPositions, Group: r.LargestHolding.Symbol, Weight: r.LargestHolding.Weight})
	}
	if w := lookup(r.BySector, "technology"); w > 0.40 {
		recs = append(recs, Recommendation{Code: RecReduceTechnology, Group: "technology", Weight: w})
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{Code: RecWellDiversified})
	}
	return recs
}

// lookup sums the weight of groups matching name case-insensitively.
func lookup(groups map[string]float64, name string) float64 {
	w := 0.0
	for g, v := range groups {
		if strings.EqualFold(g, name) {
			w += v
		}
	}
	return w
}
