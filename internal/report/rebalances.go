package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"ttindex/internal/domain"
	"ttindex/internal/util"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

type RebalanceEntry struct {
	Component    string   `json:"component"`
	ID           string   `json:"id"`
	WeightPre    float64  `json:"weight_pre"`
	WeightInit   *float64 `json:"weight_init,omitempty"`
	WeightTarget *float64 `json:"weight_target,omitempty"`
	WeightPost   float64  `json:"weight_post"`
	Rebalance    float64  `json:"rebalance"`
	Value        float64  `json:"value"`
}

type RebalanceSummary struct {
	Composition     []RebalanceEntry `json:"composition"`
	ValueTotal      float64          `json:"value_total"`
	WeightPostTotal float64          `json:"weight_post_total"`
	RebalanceAbsAvg float64          `json:"rebalance_abs_avg"`
}

var rebalanceStatuses = []domain.Status{
	domain.Status_PreRebalance,
	domain.Status_RebalanceInit,
	domain.Status_RebalanceTarget,
	domain.Status_Rebalanced,
}

// Rebalances summarizes how weights moved on each rebalance day over
// every component held before or after. Init and target weights are
// included when saveTarget is set.
func Rebalances(results ResultsByStatus, saveTarget bool) (map[string]RebalanceSummary, error) {
	out := map[string]RebalanceSummary{}
	for day, byStatus := range results {
		isRebalance := true
		for _, s := range rebalanceStatuses {
			if _, ok := byStatus[s]; !ok {
				isRebalance = false
			}
		}
		if !isRebalance {
			continue
		}

		summary, err := summarizeRebalance(byStatus, saveTarget)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize rebalance on %s: %w", day, err)
		}
		out[day] = *summary
	}
	return out, nil
}

func summarizeRebalance(byStatus map[domain.Status]PortfolioSummary, saveTarget bool) (*RebalanceSummary, error) {
	pre := byStatus[domain.Status_PreRebalance]
	post := byStatus[domain.Status_Rebalanced]

	ids := map[string]string{}
	for _, c := range post.Composition {
		ids[c.Component] = c.ID
	}
	for _, c := range pre.Composition {
		ids[c.Component] = c.ID
	}
	components := make([]string, 0, len(ids))
	for c := range ids {
		components = append(components, c)
	}
	sort.Strings(components)

	summary := &RebalanceSummary{
		Composition: make([]RebalanceEntry, 0, len(components)),
	}
	valueTotal := decimal.Zero
	weightPostTotal := decimal.Zero
	absRebalances := make([]float64, 0, len(components))

	for _, component := range components {
		weightPre := weightOf(pre, component)
		weightPost := weightOf(post, component)
		value := post.Value * weightPost

		entry := RebalanceEntry{
			Component:  component,
			ID:         ids[component],
			WeightPre:  weightPre,
			WeightPost: weightPost,
			Rebalance:  weightPost - weightPre,
			Value:      value,
		}
		if saveTarget {
			weightInit := weightOf(byStatus[domain.Status_RebalanceInit], component)
			weightTarget := weightOf(byStatus[domain.Status_RebalanceTarget], component)
			entry.WeightInit = &weightInit
			entry.WeightTarget = &weightTarget
		}
		summary.Composition = append(summary.Composition, entry)

		valueTotal = valueTotal.Add(decimal.NewFromFloat(value))
		weightPostTotal = weightPostTotal.Add(decimal.NewFromFloat(weightPost))
		absRebalances = append(absRebalances, math.Abs(entry.Rebalance))
	}

	avg, err := stats.Mean(absRebalances)
	if err != nil {
		return nil, err
	}
	summary.ValueTotal = valueTotal.InexactFloat64()
	summary.WeightPostTotal = weightPostTotal.InexactFloat64()
	summary.RebalanceAbsAvg = avg

	return summary, nil
}

func weightOf(p PortfolioSummary, component string) float64 {
	for _, c := range p.Composition {
		if c.Component == component {
			return c.Weight
		}
	}
	return 0
}

type rebalanceCsvRow struct {
	Day          string  `csv:"day"`
	Component    string  `csv:"component"`
	WeightPre    float64 `csv:"weight_pre"`
	WeightInit   float64 `csv:"weight_init"`
	WeightTarget float64 `csv:"weight_target"`
	WeightPost   float64 `csv:"weight_post"`
	Rebalance    float64 `csv:"rebalance"`
}

// RebalancesCSV writes one line per (day, component) in day order.
// Init and target weights are 0 when they were not saved.
func RebalancesCSV(rebalances map[string]RebalanceSummary, w io.Writer) error {
	days := make([]string, 0, len(rebalances))
	for day := range rebalances {
		days = append(days, day)
	}
	sort.Strings(days)

	rows := []*rebalanceCsvRow{}
	for _, day := range days {
		for _, c := range rebalances[day].Composition {
			rows = append(rows, &rebalanceCsvRow{
				Day:          day,
				Component:    c.Component,
				WeightPre:    c.WeightPre,
				WeightInit:   util.FloatOrZero(c.WeightInit),
				WeightTarget: util.FloatOrZero(c.WeightTarget),
				WeightPost:   c.WeightPost,
				Rebalance:    c.Rebalance,
			})
		}
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write rebalances csv: %w", err)
	}
	return nil
}
