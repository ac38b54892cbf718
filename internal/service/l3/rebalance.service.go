package l3_service

import (
	"fmt"
	"sort"
	"time"

	"ttindex/internal/domain"
	l1_service "ttindex/internal/service/l1"
	l2_service "ttindex/internal/service/l2"
)

type RebalanceInput struct {
	Portfolio        domain.Portfolio
	Date             time.Time
	MinWeight        float64
	MaxWeight        float64
	MaxChange        float64
	MinMarketCap     float64
	Dataset          *domain.Dataset
	EligibleProjects []string
}

type RebalanceResult struct {
	Rebalanced    *domain.Portfolio
	InitialTarget *domain.Portfolio
	FinalTarget   *domain.Portfolio
}

type RebalanceService interface {
	Rebalance(in RebalanceInput) (*RebalanceResult, error)
}

type rebalanceServiceHandler struct {
	TargetPortfolioService l2_service.TargetPortfolioService
	WeightSolver           l1_service.WeightSolver
}

func NewRebalanceService(
	targetPortfolioService l2_service.TargetPortfolioService,
	weightSolver l1_service.WeightSolver,
) RebalanceService {
	return rebalanceServiceHandler{
		TargetPortfolioService: targetPortfolioService,
		WeightSolver:           weightSolver,
	}
}

// Rebalance moves the portfolio toward a freshly computed target.
//
// Holdings that fell out of the target and are small enough to be
// fully sold within MaxChange are swapped for the highest weighted
// target projects not yet held. The resulting set is weighted by
// signal to form the final target, and the live weights move toward
// it by at most MaxChange each. The input portfolio is never
// modified; on error nothing is returned.
func (h rebalanceServiceHandler) Rebalance(in RebalanceInput) (*RebalanceResult, error) {
	if in.Portfolio.Len() == 0 {
		return nil, domain.ValidationError{Field: "portfolio", Msg: "cannot rebalance empty portfolio"}
	}
	pf := in.Portfolio.DeepCopy()
	pf.Date = in.Date
	value := pf.Value()

	initialTarget, err := h.TargetPortfolioService.Build(l2_service.BuildTargetPortfolioInput{
		NumProjects:      pf.Len(),
		Date:             in.Date,
		Dataset:          in.Dataset,
		EligibleProjects: in.EligibleProjects,
		TotalValue:       value,
		MinWeight:        in.MinWeight,
		MaxWeight:        in.MaxWeight,
		MinMarketCap:     in.MinMarketCap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute initial target: %w", err)
	}

	if err := replaceDroppedHoldings(pf, *initialTarget, in.MaxChange); err != nil {
		return nil, err
	}

	finalTarget, err := h.reshapeTarget(*pf, value, in.MinWeight, in.MaxWeight)
	if err != nil {
		return nil, fmt.Errorf("failed to compute final target: %w", err)
	}

	newWeights, err := h.WeightSolver.Solve(l1_service.SolveWeightsInput{
		Origin:    pf.Weights(),
		Target:    finalTarget.Weights(),
		MaxChange: in.MaxChange,
		MinWeight: in.MinWeight,
		MaxWeight: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move portfolio toward target: %w", err)
	}
	if err := pf.SetWeights(newWeights, value); err != nil {
		return nil, fmt.Errorf("failed to apply rebalanced weights: %w", err)
	}

	return &RebalanceResult{
		Rebalanced:    pf,
		InitialTarget: initialTarget,
		FinalTarget:   finalTarget,
	}, nil
}

// replaceDroppedHoldings swaps holdings that are not part of target
// (or carry no weight in it) and weigh at most maxChange for unused
// target rows, highest weight first. New rows enter with zero weight
// and tokens.
func replaceDroppedHoldings(pf *domain.Portfolio, target domain.Portfolio, maxChange float64) error {
	candidates := []domain.PortfolioRow{}
	for _, row := range target.Rows {
		if !pf.Contains(row.Project) {
			candidates = append(candidates, row)
		}
	}
	sortRowsByWeightDesc(candidates)

	replaced := 0
	for i, row := range pf.Rows {
		targetWeight := 0.0
		if targetRow, ok := target.Row(row.Project); ok {
			targetWeight = targetRow.Weight
		}
		if targetWeight >= l1_service.WeightTolerance || row.Weight > maxChange {
			continue
		}
		if replaced >= len(candidates) {
			return fmt.Errorf("no replacement left for %s on %s", row.Project, pf.Date.Format(time.DateOnly))
		}
		newRow := candidates[replaced].DeepCopy()
		newRow.Weight = 0
		newRow.Tokens = 0
		pf.Rows[i] = newRow
		replaced++
	}

	return nil
}

// reshapeTarget weights the holdings of pf by signal, starting the
// fit from equal weights.
func (h rebalanceServiceHandler) reshapeTarget(pf domain.Portfolio, value, minWeight, maxWeight float64) (*domain.Portfolio, error) {
	signals := make([]float64, pf.Len())
	origin := make([]float64, pf.Len())
	for i, row := range pf.Rows {
		if row.Signal == nil {
			return nil, domain.InsufficientDataError{
				Date:      pf.Date,
				Required:  pf.Len(),
				Available: pf.Len() - countUndefinedSignals(pf),
				Reason:    "P/S data among holdings",
			}
		}
		signals[i] = *row.Signal
		origin[i] = 1 / float64(pf.Len())
	}

	weights, err := h.TargetPortfolioService.FitSignalWeights(l2_service.FitSignalWeightsInput{
		Signals:   signals,
		Origin:    origin,
		MinWeight: minWeight,
		MaxWeight: maxWeight,
	})
	if err != nil {
		return nil, err
	}

	target := pf.DeepCopy()
	if err := target.SetWeights(weights, value); err != nil {
		return nil, err
	}
	return target, nil
}

func countUndefinedSignals(pf domain.Portfolio) int {
	count := 0
	for _, row := range pf.Rows {
		if row.Signal == nil {
			count++
		}
	}
	return count
}

func sortRowsByWeightDesc(rows []domain.PortfolioRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Weight > rows[j].Weight
	})
}
