package l3_service

import (
	"fmt"
	"math"

	"ttindex/internal/domain"

	"github.com/montanaflynn/stats"
)

// crypto markets trade every day of the year
const periodsPerYear = 365

type CalculateMetricsResult struct {
	StartValue       float64 `json:"startValue"`
	EndValue         float64 `json:"endValue"`
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	AnnualizedStdev  float64 `json:"annualizedStdev"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	NumRebalances    int     `json:"numRebalances"`
}

// CalculateMetrics summarizes the performance of a backtest from the
// value of the settled portfolio on each day.
func CalculateMetrics(result domain.BacktestResult) (*CalculateMetricsResult, error) {
	settled := result.Settled()
	if len(settled) < 2 {
		return nil, fmt.Errorf("cannot calculate metrics on < 2 days of results")
	}

	values := make([]float64, len(settled))
	for i, s := range settled {
		values[i] = s.Portfolio.Value()
	}
	returns, err := calculateReturns(values)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate returns: %w", err)
	}

	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return nil, err
	}
	annualizedStdev := stdev * math.Sqrt(periodsPerYear)

	startValue := values[0]
	endValue := values[len(values)-1]
	numHours := settled[len(settled)-1].Portfolio.Date.Sub(settled[0].Portfolio.Date).Hours()
	numYears := numHours / (periodsPerYear * 24)
	annualizedReturn := math.Pow(endValue/startValue, 1/numYears) - 1

	sharpeRatio := 0.0
	if annualizedStdev > 0 {
		sharpeRatio = annualizedReturn / annualizedStdev
	}

	numRebalances := 0
	for _, s := range result.Snapshots {
		if s.Status == domain.Status_Rebalanced {
			numRebalances++
		}
	}

	return &CalculateMetricsResult{
		StartValue:       startValue,
		EndValue:         endValue,
		TotalReturn:      endValue/startValue - 1,
		AnnualizedReturn: annualizedReturn,
		AnnualizedStdev:  annualizedStdev,
		SharpeRatio:      sharpeRatio,
		MaxDrawdown:      maxDrawdown(values),
		NumRebalances:    numRebalances,
	}, nil
}

func calculateReturns(values []float64) ([]float64, error) {
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			return nil, fmt.Errorf("portfolio value %f on day %d", values[i-1], i-1)
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns, nil
}

// maxDrawdown is the largest peak-to-trough fall as a fraction of the
// peak.
func maxDrawdown(values []float64) float64 {
	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			worst = math.Max(worst, (peak-v)/peak)
		}
	}
	return worst
}
