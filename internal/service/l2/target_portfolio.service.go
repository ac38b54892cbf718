package l2_service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ttindex/internal/domain"
	l1_service "ttindex/internal/service/l1"

	"gonum.org/v1/gonum/floats"
)

type BuildTargetPortfolioInput struct {
	NumProjects      int
	Date             time.Time
	Dataset          *domain.Dataset
	EligibleProjects []string
	TotalValue       float64
	MinWeight        float64
	MaxWeight        float64
	MinMarketCap     float64
}

// FitSignalWeightsInput describes a set of signals whose proportional
// weights should be fit into [MinWeight, MaxWeight].
type FitSignalWeightsInput struct {
	Signals   []float64
	Origin    []float64
	MinWeight float64
	MaxWeight float64
}

type TargetPortfolioService interface {
	Build(in BuildTargetPortfolioInput) (*domain.Portfolio, error)
	FitSignalWeights(in FitSignalWeightsInput) ([]float64, error)
}

type targetPortfolioServiceHandler struct {
	WeightSolver l1_service.WeightSolver
}

func NewTargetPortfolioService(weightSolver l1_service.WeightSolver) TargetPortfolioService {
	return targetPortfolioServiceHandler{
		WeightSolver: weightSolver,
	}
}

type candidate struct {
	row    domain.MetricRow
	signal float64
}

// Build selects the NumProjects eligible projects with the highest
// signal on Date and weights them in proportion to their signal,
// fitted into the weight bounds. Projects with equal signals keep
// their dataset order.
func (h targetPortfolioServiceHandler) Build(in BuildTargetPortfolioInput) (*domain.Portfolio, error) {
	if in.NumProjects <= 0 {
		return nil, domain.ValidationError{Field: "nProjects", Msg: fmt.Sprintf("must be positive, got %d", in.NumProjects)}
	}
	if in.TotalValue <= 0 {
		return nil, domain.ValidationError{Field: "value", Msg: fmt.Sprintf("cannot compute target portfolio with value %f", in.TotalValue)}
	}
	if in.Dataset == nil {
		return nil, fmt.Errorf("cannot compute target portfolio without a dataset")
	}

	eligible := map[string]bool{}
	for _, p := range in.EligibleProjects {
		eligible[p] = true
	}

	withData := []candidate{}
	for _, row := range in.Dataset.RowsOn(in.Date) {
		if !eligible[row.Project] {
			continue
		}
		if row.MarketCapCirculating == nil || row.Signal == nil {
			continue
		}
		withData = append(withData, candidate{row: row, signal: *row.Signal})
	}
	if len(withData) < in.NumProjects {
		return nil, domain.InsufficientDataError{
			Date:      in.Date,
			Required:  in.NumProjects,
			Available: len(withData),
			Reason:    "market cap and P/S data",
		}
	}

	qualifying := []candidate{}
	for _, c := range withData {
		if *c.row.MarketCapCirculating >= in.MinMarketCap {
			qualifying = append(qualifying, c)
		}
	}
	if len(qualifying) < in.NumProjects {
		return nil, domain.InsufficientDataError{
			Date:      in.Date,
			Required:  in.NumProjects,
			Available: len(qualifying),
			Reason:    "sufficient circulating market cap",
		}
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].signal > qualifying[j].signal
	})
	selected := qualifying[:in.NumProjects]

	signals := make([]float64, len(selected))
	for i, c := range selected {
		signals[i] = c.signal
	}
	weights, err := h.FitSignalWeights(FitSignalWeightsInput{
		Signals:   signals,
		MinWeight: in.MinWeight,
		MaxWeight: in.MaxWeight,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to calculate target weights on %s: %w", in.Date.Format(time.DateOnly), err)
	}

	targetPortfolio := &domain.Portfolio{
		Date: in.Date,
		Rows: make([]domain.PortfolioRow, 0, len(selected)),
	}
	for i, c := range selected {
		if c.row.Price <= 0 {
			return nil, fmt.Errorf("cannot hold %s on %s with price %f", c.row.Project, in.Date.Format(time.DateOnly), c.row.Price)
		}
		signal := c.signal
		targetPortfolio.Rows = append(targetPortfolio.Rows, domain.PortfolioRow{
			Project:   c.row.Project,
			ProjectID: c.row.ProjectID,
			Weight:    weights[i],
			Tokens:    weights[i] * in.TotalValue / c.row.Price,
			Price:     c.row.Price,
			Signal:    &signal,
		})
	}

	return targetPortfolio, nil
}

// FitSignalWeights turns signals into proportional weights and lets
// the solver pull them into the weight bounds with unrestricted
// movement. Without an explicit origin the proportional weights
// clipped to the bounds are used.
func (h targetPortfolioServiceHandler) FitSignalWeights(in FitSignalWeightsInput) ([]float64, error) {
	target, err := SignalWeights(in.Signals)
	if err != nil {
		return nil, err
	}

	origin := in.Origin
	if origin == nil {
		origin = make([]float64, len(target))
		for i, w := range target {
			origin[i] = math.Max(in.MinWeight, math.Min(in.MaxWeight, w))
		}
	}

	return h.WeightSolver.Solve(l1_service.SolveWeightsInput{
		Origin:    origin,
		Target:    target,
		MaxChange: 1.0,
		MinWeight: in.MinWeight,
		MaxWeight: in.MaxWeight,
	})
}

// SignalWeights normalizes signals so they sum to 1.
func SignalWeights(signals []float64) ([]float64, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("cannot weight 0 signals")
	}
	for _, s := range signals {
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return nil, fmt.Errorf("invalid signal %f", s)
		}
	}
	sum := floats.Sum(signals)
	out := make([]float64, len(signals))
	floats.ScaleTo(out, 1/sum, signals)
	return out, nil
}
