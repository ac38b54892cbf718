package l3_service

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"ttindex/internal/domain"
	l1_service "ttindex/internal/service/l1"
	l2_service "ttindex/internal/service/l2"
	mock_l2_service "ttindex/internal/service/l2/mocks"
	"ttindex/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestSolver() l1_service.WeightSolver {
	return l1_service.NewWeightSolver(l1_service.SolverOptions{
		Seed:       l1_service.DefaultSeed,
		Iterations: 5,
	})
}

func newTestRebalanceService() RebalanceService {
	solver := newTestSolver()
	return NewRebalanceService(l2_service.NewTargetPortfolioService(solver), solver)
}

func metricRow(date string, project string, price, signal float64) domain.MetricRow {
	d, _ := util.ParseDate(date)
	return domain.MetricRow{
		Date:                 d,
		Project:              project,
		ProjectID:            project,
		Price:                price,
		Signal:               util.FloatPointer(signal),
		MarketCapCirculating: util.FloatPointer(1e9),
	}
}

func holding(project string, weight, value, price, signal float64) domain.PortfolioRow {
	return domain.PortfolioRow{
		Project:   project,
		ProjectID: project,
		Weight:    weight,
		Tokens:    weight * value / price,
		Price:     price,
		Signal:    util.FloatPointer(signal),
	}
}

func Test_rebalanceServiceHandler_Rebalance(t *testing.T) {
	t.Run("replaces small dropped holdings only", func(t *testing.T) {
		date := util.NewDate(2021, 2, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			metricRow("2021-02-01", "a", 1, 5),
			metricRow("2021-02-01", "b", 1, 1),
			metricRow("2021-02-01", "c", 1, 0.5),
			metricRow("2021-02-01", "x", 1, 3),
			metricRow("2021-02-01", "y", 1, 2),
		})
		portfolio := domain.Portfolio{
			Date: date,
			Rows: []domain.PortfolioRow{
				holding("a", 0.91, 100, 1, 5),
				holding("b", 0.06, 100, 1, 1),
				holding("c", 0.03, 100, 1, 0.5),
			},
		}
		original := portfolio.DeepCopy()

		result, err := newTestRebalanceService().Rebalance(RebalanceInput{
			Portfolio:        portfolio,
			Date:             date,
			MinWeight:        0.01,
			MaxWeight:        1,
			MaxChange:        0.05,
			MinMarketCap:     0,
			Dataset:          dataset,
			EligibleProjects: []string{"a", "b", "c", "x", "y"},
		})
		require.NoError(t, err)

		require.Equal(t, []string{"a", "x", "y"}, result.InitialTarget.Projects())
		// b weighs more than max change so it stays, c is swapped for x
		require.Equal(t, []string{"a", "b", "x"}, result.FinalTarget.Projects())
		require.Equal(t, []string{"a", "b", "x"}, result.Rebalanced.Projects())

		require.InDelta(t, 5.0/9, result.FinalTarget.Rows[0].Weight, 1e-6)
		require.InDelta(t, 1.0/9, result.FinalTarget.Rows[1].Weight, 1e-6)
		require.InDelta(t, 3.0/9, result.FinalTarget.Rows[2].Weight, 1e-6)

		require.InDelta(t, 0.86, result.Rebalanced.Rows[0].Weight, 1e-6)
		require.InDelta(t, 0.09, result.Rebalanced.Rows[1].Weight, 1e-6)
		require.InDelta(t, 0.05, result.Rebalanced.Rows[2].Weight, 1e-6)
		require.InDelta(t, 100, result.Rebalanced.Value(), 1e-6)
		require.InDelta(t, 100, result.FinalTarget.Value(), 1e-6)

		require.Equal(t, "", cmp.Diff(*original, portfolio))
	})

	t.Run("rebalancing twice with unbounded change gives the same final target", func(t *testing.T) {
		date := util.NewDate(2021, 2, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			metricRow("2021-02-01", "a", 1, 5),
			metricRow("2021-02-01", "b", 1, 1),
			metricRow("2021-02-01", "c", 1, 0.5),
			metricRow("2021-02-01", "x", 1, 3),
			metricRow("2021-02-01", "y", 1, 2),
		})
		portfolio := domain.Portfolio{
			Date: date,
			Rows: []domain.PortfolioRow{
				holding("a", 0.91, 100, 1, 5),
				holding("b", 0.06, 100, 1, 1),
				holding("c", 0.03, 100, 1, 0.5),
			},
		}
		in := RebalanceInput{
			Portfolio:        portfolio,
			Date:             date,
			MinWeight:        0.01,
			MaxWeight:        1,
			MaxChange:        1,
			Dataset:          dataset,
			EligibleProjects: []string{"a", "b", "c", "x", "y"},
		}

		first, err := newTestRebalanceService().Rebalance(in)
		require.NoError(t, err)
		second, err := newTestRebalanceService().Rebalance(in)
		require.NoError(t, err)

		require.Equal(t, "", cmp.Diff(first.FinalTarget, second.FinalTarget))
		require.Equal(t, "", cmp.Diff(first.Rebalanced, second.Rebalanced))

		// both small holdings are swapped out and the move is unbounded
		require.Equal(t, []string{"a", "x", "y"}, first.FinalTarget.Projects())
		require.InDeltaSlice(t, first.FinalTarget.Weights(), first.Rebalanced.Weights(), 1e-6)
		require.InDeltaSlice(t, []float64{0.5, 0.3, 0.2}, first.Rebalanced.Weights(), 1e-6)
	})

	t.Run("builds the initial target from the current holdings", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		targetPortfolioService := mock_l2_service.NewMockTargetPortfolioService(ctrl)
		handler := rebalanceServiceHandler{
			TargetPortfolioService: targetPortfolioService,
			WeightSolver:           newTestSolver(),
		}

		date := util.NewDate(2021, 3, 1)
		portfolio := domain.Portfolio{
			Date: util.NewDate(2021, 2, 28),
			Rows: []domain.PortfolioRow{
				holding("a", 0.5, 50, 2, 1),
				holding("b", 0.5, 50, 5, 1),
			},
		}
		initialTarget := &domain.Portfolio{
			Date: date,
			Rows: []domain.PortfolioRow{
				holding("a", 0.5, 50, 2, 1),
				holding("b", 0.5, 50, 5, 1),
			},
		}

		targetPortfolioService.EXPECT().
			Build(gomock.Any()).
			DoAndReturn(func(in l2_service.BuildTargetPortfolioInput) (*domain.Portfolio, error) {
				require.Equal(t, 2, in.NumProjects)
				require.InDelta(t, 50, in.TotalValue, 1e-9)
				require.Equal(t, date, in.Date)
				return initialTarget, nil
			})
		targetPortfolioService.EXPECT().
			FitSignalWeights(l2_service.FitSignalWeightsInput{
				Signals:   []float64{1, 1},
				Origin:    []float64{0.5, 0.5},
				MinWeight: 0.1,
				MaxWeight: 0.9,
			}).
			Return([]float64{0.5, 0.5}, nil)

		result, err := handler.Rebalance(RebalanceInput{
			Portfolio: portfolio,
			Date:      date,
			MinWeight: 0.1,
			MaxWeight: 0.9,
			MaxChange: 0.05,
		})
		require.NoError(t, err)
		require.Equal(t, date, result.Rebalanced.Date)
		require.InDeltaSlice(t, []float64{0.5, 0.5}, result.Rebalanced.Weights(), 1e-9)
	})

	t.Run("insufficient data fails without touching the portfolio", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		targetPortfolioService := mock_l2_service.NewMockTargetPortfolioService(ctrl)
		handler := rebalanceServiceHandler{
			TargetPortfolioService: targetPortfolioService,
			WeightSolver:           newTestSolver(),
		}
		date := util.NewDate(2021, 3, 1)
		portfolio := domain.Portfolio{
			Date: date,
			Rows: []domain.PortfolioRow{holding("a", 1, 10, 1, 1)},
		}
		targetPortfolioService.EXPECT().
			Build(gomock.Any()).
			Return(nil, domain.InsufficientDataError{Date: date, Required: 1, Available: 0, Reason: "market cap and P/S data"})

		result, err := handler.Rebalance(RebalanceInput{
			Portfolio: portfolio,
			Date:      date,
			MinWeight: 0.1,
			MaxWeight: 1,
			MaxChange: 0.05,
		})
		require.Nil(t, result)
		var insufficientErr domain.InsufficientDataError
		require.True(t, errors.As(err, &insufficientErr))
		require.Equal(t, 1.0, portfolio.Rows[0].Weight)
	})

	t.Run("holding without signal cannot be reweighted", func(t *testing.T) {
		date := util.NewDate(2021, 2, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			metricRow("2021-02-01", "a", 1, 5),
			metricRow("2021-02-01", "b", 1, 4),
		})
		noSignal := holding("b", 0.5, 10, 1, 1)
		noSignal.Signal = nil
		_, err := newTestRebalanceService().Rebalance(RebalanceInput{
			Portfolio: domain.Portfolio{
				Date: date,
				Rows: []domain.PortfolioRow{holding("a", 0.5, 10, 1, 5), noSignal},
			},
			Date:             date,
			MinWeight:        0.01,
			MaxWeight:        1,
			MaxChange:        0.05,
			Dataset:          dataset,
			EligibleProjects: []string{"a", "b"},
		})
		var insufficientErr domain.InsufficientDataError
		require.True(t, errors.As(err, &insufficientErr))
		require.Equal(t, 1, insufficientErr.Available)
	})

	t.Run("random data conserves value", func(t *testing.T) {
		rng := rand.New(rand.NewSource(l1_service.DefaultSeed))
		projects := []string{}
		rows := []domain.MetricRow{}
		for i := 0; i < 30; i++ {
			projects = append(projects, fmt.Sprintf("project-%02d", i))
		}
		for _, date := range []string{"2021-01-31", "2021-02-01"} {
			for _, p := range projects {
				rows = append(rows, metricRow(date, p, rng.Float64()*2+1, rng.Float64()+0.01))
			}
		}
		dataset := domain.NewDataset(rows)
		solver := newTestSolver()
		builder := l2_service.NewTargetPortfolioService(solver)
		service := NewRebalanceService(builder, solver)

		start, err := builder.Build(l2_service.BuildTargetPortfolioInput{
			NumProjects:      10,
			Date:             util.NewDate(2021, 1, 31),
			Dataset:          dataset,
			EligibleProjects: projects,
			TotalValue:       115.24,
			MinWeight:        0.01,
			MaxWeight:        0.2,
		})
		require.NoError(t, err)

		date := util.NewDate(2021, 2, 1)
		current := start.DeepCopy()
		current.Date = date
		for i, row := range current.Rows {
			today, err := dataset.Row(row.Project, date)
			require.NoError(t, err)
			current.Rows[i].Price = today.Price
			current.Rows[i].Signal = today.Signal
		}
		current.Reweigh()
		value := current.Value()

		for _, maxChange := range []float64{0.05, 1.0} {
			in := RebalanceInput{
				Portfolio:        *current,
				Date:             date,
				MinWeight:        0.01,
				MaxWeight:        0.2,
				MaxChange:        maxChange,
				Dataset:          dataset,
				EligibleProjects: projects,
			}
			result, err := service.Rebalance(in)
			require.NoError(t, err)
			require.Equal(t, 10, result.Rebalanced.Len())
			require.InDelta(t, value, result.Rebalanced.Value(), 1e-6)
			require.InDelta(t, 1, result.Rebalanced.WeightSum(), l1_service.WeightTolerance)
			require.InDelta(t, 1, result.FinalTarget.WeightSum(), l1_service.WeightTolerance)

			for i, row := range result.Rebalanced.Rows {
				before := 0.0
				if current.Rows[i].Project == row.Project {
					before = current.Rows[i].Weight
				}
				require.LessOrEqual(t, math.Abs(row.Weight-before), maxChange+l1_service.WeightTolerance)
			}

			again, err := service.Rebalance(in)
			require.NoError(t, err)
			require.Equal(t, result.FinalTarget.Weights(), again.FinalTarget.Weights())
			require.Equal(t, result.Rebalanced.Weights(), again.Rebalanced.Weights())
		}
	})
}
