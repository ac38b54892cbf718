package app

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"ttindex/internal/domain"
	"ttindex/internal/logger"
	l1_service "ttindex/internal/service/l1"
	l2_service "ttindex/internal/service/l2"
	l3_service "ttindex/internal/service/l3"
	"ttindex/internal/util"

	"github.com/google/uuid"
)

// RebalanceFrequency is either monthly (first day of each month) or
// every Days days counted from the start date.
type RebalanceFrequency struct {
	Monthly bool
	Days    int
}

func NewRebalanceFrequency(s string) (*RebalanceFrequency, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "monthly" {
		return &RebalanceFrequency{Monthly: true}, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || days <= 0 {
		return nil, domain.ValidationError{
			Field: "rebalancingFrequency",
			Msg:   fmt.Sprintf("must be 'monthly' or a positive integer, got %q", s),
		}
	}
	return &RebalanceFrequency{Days: days}, nil
}

func (f RebalanceFrequency) String() string {
	if f.Monthly {
		return "monthly"
	}
	return strconv.Itoa(f.Days)
}

// Fires reports whether the portfolio is rebalanced on date, the
// dayIndex-th day of the simulation.
func (f RebalanceFrequency) Fires(date time.Time, dayIndex int) bool {
	if f.Monthly {
		return date.Day() == 1
	}
	return f.Days > 0 && dayIndex%f.Days == 0
}

func (f RebalanceFrequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *RebalanceFrequency) UnmarshalText(b []byte) error {
	parsed, err := NewRebalanceFrequency(string(b))
	if err != nil {
		return err
	}
	*f = *parsed
	return nil
}

type BacktestInput struct {
	NumProjects          int
	InitialInvestment    float64
	MinCircMarketCap     float64
	MinWeight            float64
	MaxWeight            float64
	MaxChange            float64
	StartDate            time.Time
	EndDate              *time.Time
	Dataset              *domain.Dataset
	ProjectsToInclude    []string
	RebalancingFrequency RebalanceFrequency
	Quiet                bool
}

type BacktestHandler struct {
	TargetPortfolioService l2_service.TargetPortfolioService
	RebalanceService       l3_service.RebalanceService
}

// NewBacktestHandler wires the target and rebalance services around
// one solver.
func NewBacktestHandler(weightSolver l1_service.WeightSolver) BacktestHandler {
	targetPortfolioService := l2_service.NewTargetPortfolioService(weightSolver)
	return BacktestHandler{
		TargetPortfolioService: targetPortfolioService,
		RebalanceService:       l3_service.NewRebalanceService(targetPortfolioService, weightSolver),
	}
}

func validateBacktestInput(in BacktestInput) error {
	invalid := func(field, format string, args ...interface{}) error {
		return domain.ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
	}

	if in.NumProjects <= 0 {
		return invalid("nProjects", "must be a positive integer")
	}
	if in.InitialInvestment <= 0 || math.IsNaN(in.InitialInvestment) {
		return invalid("initialInvestment", "must be positive")
	}
	if in.MinCircMarketCap < 0 || math.IsNaN(in.MinCircMarketCap) {
		return invalid("minCircMarketCap", "must not be negative")
	}
	equalWeight := 1 / float64(in.NumProjects)
	if in.MinWeight < 0 || in.MinWeight > equalWeight {
		return invalid("minWeight", "must be between 0 and 1/nProjects")
	}
	if in.MaxWeight <= 0 || in.MaxWeight > 1 {
		return invalid("maxWeight", "must be greater than 0 and at most 1")
	}
	if in.MaxWeight < equalWeight {
		return invalid("maxWeight", "must be at least 1/nProjects")
	}
	if in.MaxWeight <= in.MinWeight {
		return invalid("maxWeight", "must be greater than minWeight")
	}
	if in.MaxChange <= 0 || in.MaxChange > 1 {
		return invalid("maxChange", "must be greater than 0 and at most 1")
	}
	if in.StartDate.IsZero() {
		return invalid("startDate", "is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return invalid("endDate", "must not be before startDate")
	}
	if in.Dataset == nil || in.Dataset.Len() == 0 {
		return invalid("historicalData", "is empty")
	}

	unique := map[string]bool{}
	for _, p := range in.ProjectsToInclude {
		unique[p] = true
	}
	if len(unique) < in.NumProjects {
		return invalid("projectsToInclude", "must contain at least %d unique projects, got %d", in.NumProjects, len(unique))
	}
	for _, p := range in.ProjectsToInclude {
		if !in.Dataset.HasProject(p) {
			return invalid("projectsToInclude", "there is no data for %s", p)
		}
	}
	if !in.RebalancingFrequency.Monthly && in.RebalancingFrequency.Days <= 0 {
		return invalid("rebalancingFrequency", "must be 'monthly' or a positive integer")
	}

	return nil
}

// Backtest simulates the index day by day from StartDate to EndDate
// (or the last date in the dataset). Every portfolio the simulation
// produces is kept in the result along with its status.
func (h BacktestHandler) Backtest(ctx context.Context, in BacktestInput) (*domain.BacktestResult, error) {
	if err := validateBacktestInput(in); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	profile := domain.ProfileFromContext(ctx)

	endDate := in.EndDate
	if endDate == nil {
		lastDate, ok := in.Dataset.LastDate()
		if !ok {
			return nil, fmt.Errorf("cannot determine end date of empty dataset")
		}
		endDate = &lastDate
	}
	numDays := util.DaysBetween(in.StartDate, *endDate) + 1
	if numDays <= 0 {
		return nil, domain.ValidationError{Field: "startDate", Msg: "is after the last date in the dataset"}
	}

	result := &domain.BacktestResult{
		RunID:     uuid.New(),
		Snapshots: []domain.Snapshot{},
	}
	log = log.With("runID", result.RunID.String())

	_, endSpan := profile.StartNewSpan("initial portfolio")
	portfolio, err := h.TargetPortfolioService.Build(l2_service.BuildTargetPortfolioInput{
		NumProjects:      in.NumProjects,
		Date:             in.StartDate,
		Dataset:          in.Dataset,
		EligibleProjects: in.ProjectsToInclude,
		TotalValue:       in.InitialInvestment,
		MinWeight:        in.MinWeight,
		MaxWeight:        in.MaxWeight,
		MinMarketCap:     in.MinCircMarketCap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute initial portfolio: %w", err)
	}
	endSpan()
	result.Snapshots = append(result.Snapshots, domain.Snapshot{
		Portfolio: *portfolio,
		Status:    domain.Status_Start,
	})

	span, endSpan := profile.StartNewSpan("simulate")
	defer endSpan()
	rebalanceProfile, endRebalanceProfile := span.NewSubProfile()
	defer endRebalanceProfile()

	for i := 1; i < numDays; i++ {
		date := in.StartDate.AddDate(0, 0, i)

		current, err := reprice(*portfolio, in.Dataset, date)
		if err != nil {
			return nil, err
		}

		if !in.RebalancingFrequency.Fires(date, i) {
			result.Snapshots = append(result.Snapshots, domain.Snapshot{
				Portfolio: *current,
				Status:    domain.Status_NormalDay,
			})
			portfolio = current
			continue
		}

		if !in.Quiet {
			log.Infof("rebalancing on %s with value %.2f", date.Format(time.DateOnly), current.Value())
		}
		result.Snapshots = append(result.Snapshots, domain.Snapshot{
			Portfolio: *current,
			Status:    domain.Status_PreRebalance,
		})

		rebalanceProfile.StartNewSpan(date.Format(time.DateOnly))
		rebalance, err := h.RebalanceService.Rebalance(l3_service.RebalanceInput{
			Portfolio:        *current,
			Date:             date,
			MinWeight:        in.MinWeight,
			MaxWeight:        in.MaxWeight,
			MaxChange:        in.MaxChange,
			MinMarketCap:     in.MinCircMarketCap,
			Dataset:          in.Dataset,
			EligibleProjects: in.ProjectsToInclude,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to rebalance on %s: %w", date.Format(time.DateOnly), err)
		}

		result.Snapshots = append(
			result.Snapshots,
			domain.Snapshot{Portfolio: *rebalance.InitialTarget, Status: domain.Status_RebalanceInit},
			domain.Snapshot{Portfolio: *rebalance.FinalTarget, Status: domain.Status_RebalanceTarget},
			domain.Snapshot{Portfolio: *rebalance.Rebalanced, Status: domain.Status_Rebalanced},
		)
		portfolio = rebalance.Rebalanced
	}

	if !in.Quiet {
		log.Infof("finished backtest over %d days with value %.2f", numDays, portfolio.Value())
	}

	return result, nil
}

// reprice moves a copy of the portfolio to date, taking price and
// signal from the dataset and deriving weights from the new prices.
func reprice(portfolio domain.Portfolio, dataset *domain.Dataset, date time.Time) (*domain.Portfolio, error) {
	out := portfolio.DeepCopy()
	out.Date = date
	for i, row := range out.Rows {
		metrics, err := dataset.Row(row.Project, date)
		if err != nil {
			return nil, fmt.Errorf("failed to reprice %s: %w", row.Project, err)
		}
		out.Rows[i].Price = metrics.Price
		out.Rows[i].Signal = nil
		if metrics.Signal != nil {
			signal := *metrics.Signal
			out.Rows[i].Signal = &signal
		}
	}
	if out.Value() <= 0 {
		return nil, fmt.Errorf("portfolio has no value on %s", date.Format(time.DateOnly))
	}
	out.Reweigh()
	return out, nil
}
