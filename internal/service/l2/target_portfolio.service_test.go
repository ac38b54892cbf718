package l2_service

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"ttindex/internal/domain"
	l1_service "ttindex/internal/service/l1"
	"ttindex/internal/util"

	"github.com/stretchr/testify/require"
)

func newTestService() TargetPortfolioService {
	return NewTargetPortfolioService(l1_service.NewWeightSolver(l1_service.SolverOptions{
		Seed:       l1_service.DefaultSeed,
		Iterations: 5,
	}))
}

func randomDataset(rng *rand.Rand, numProjects int, start time.Time, numDays int) (*domain.Dataset, []string) {
	projects := []string{}
	for i := 0; i < numProjects; i++ {
		projects = append(projects, fmt.Sprintf("project-%02d", i))
	}
	rows := []domain.MetricRow{}
	for d := 0; d < numDays; d++ {
		for _, p := range projects {
			rows = append(rows, domain.MetricRow{
				Date:                 start.AddDate(0, 0, d),
				Project:              p,
				ProjectID:            p,
				Price:                rng.Float64()*100 + 0.01,
				Signal:               util.FloatPointer(rng.Float64() + 0.001),
				MarketCapCirculating: util.FloatPointer(rng.Float64() * 1e9),
			})
		}
	}
	return domain.NewDataset(rows), projects
}

func Test_targetPortfolioServiceHandler_Build(t *testing.T) {
	t.Run("picks the highest signals and clamps to bounds", func(t *testing.T) {
		date := util.NewDate(2021, 1, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			{Date: date, Project: "a", ProjectID: "a", Price: 10, Signal: util.FloatPointer(3), MarketCapCirculating: util.FloatPointer(1)},
			{Date: date, Project: "b", ProjectID: "b", Price: 10, Signal: util.FloatPointer(2), MarketCapCirculating: util.FloatPointer(1)},
			{Date: date, Project: "c", ProjectID: "c", Price: 10, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1)},
		})

		pf, err := newTestService().Build(BuildTargetPortfolioInput{
			NumProjects:      2,
			Date:             date,
			Dataset:          dataset,
			EligibleProjects: []string{"a", "b", "c"},
			TotalValue:       100,
			MinWeight:        0.01,
			MaxWeight:        0.5,
			MinMarketCap:     0,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, pf.Projects())
		require.InDelta(t, 0.5, pf.Rows[0].Weight, 1e-6)
		require.InDelta(t, 0.5, pf.Rows[1].Weight, 1e-6)
		require.InDelta(t, 5, pf.Rows[0].Tokens, 1e-4)
		require.InDelta(t, 100, pf.Value(), 1e-6)
		require.Equal(t, date, pf.Date)
	})

	t.Run("weights follow signals when bounds are loose", func(t *testing.T) {
		date := util.NewDate(2021, 1, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			{Date: date, Project: "a", Price: 1, Signal: util.FloatPointer(3), MarketCapCirculating: util.FloatPointer(1)},
			{Date: date, Project: "b", Price: 2, Signal: util.FloatPointer(2), MarketCapCirculating: util.FloatPointer(1)},
			{Date: date, Project: "c", Price: 4, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1)},
		})
		pf, err := newTestService().Build(BuildTargetPortfolioInput{
			NumProjects:      2,
			Date:             date,
			Dataset:          dataset,
			EligibleProjects: []string{"a", "b", "c"},
			TotalValue:       10,
			MinWeight:        0.01,
			MaxWeight:        1,
		})
		require.NoError(t, err)
		require.InDelta(t, 0.6, pf.Rows[0].Weight, 1e-6)
		require.InDelta(t, 0.4, pf.Rows[1].Weight, 1e-6)
		require.InDelta(t, 2, pf.Rows[1].Tokens, 1e-5)
	})

	t.Run("ties keep dataset order", func(t *testing.T) {
		date := util.NewDate(2021, 1, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			{Date: date, Project: "z", Price: 1, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1)},
			{Date: date, Project: "y", Price: 1, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1)},
			{Date: date, Project: "x", Price: 1, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1)},
		})
		pf, err := newTestService().Build(BuildTargetPortfolioInput{
			NumProjects:      2,
			Date:             date,
			Dataset:          dataset,
			EligibleProjects: []string{"x", "y", "z"},
			TotalValue:       10,
			MinWeight:        0,
			MaxWeight:        1,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"z", "y"}, pf.Projects())
	})

	t.Run("missing data is insufficient", func(t *testing.T) {
		date := util.NewDate(2021, 1, 1)
		dataset := domain.NewDataset([]domain.MetricRow{
			{Date: date, Project: "a", Price: 1, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1e9)},
			{Date: date, Project: "b", Price: 1, Signal: nil, MarketCapCirculating: util.FloatPointer(1e9)},
			{Date: date, Project: "c", Price: 1, Signal: util.FloatPointer(1), MarketCapCirculating: util.FloatPointer(1)},
		})
		in := BuildTargetPortfolioInput{
			NumProjects:      2,
			Date:             date,
			Dataset:          dataset,
			EligibleProjects: []string{"a", "b", "c"},
			TotalValue:       10,
			MinWeight:        0,
			MaxWeight:        1,
			MinMarketCap:     1e8,
		}

		_, err := newTestService().Build(in)
		var insufficientErr domain.InsufficientDataError
		require.True(t, errors.As(err, &insufficientErr))
		require.Equal(t, "sufficient circulating market cap", insufficientErr.Reason)
		require.Equal(t, 1, insufficientErr.Available)

		in.NumProjects = 3
		_, err = newTestService().Build(in)
		require.True(t, errors.As(err, &insufficientErr))
		require.Equal(t, "market cap and P/S data", insufficientErr.Reason)
	})

	t.Run("random data", func(t *testing.T) {
		rng := rand.New(rand.NewSource(l1_service.DefaultSeed))
		start := util.NewDate(2021, 1, 1)
		numDays := 3
		dataset, projects := randomDataset(rng, 50, start, numDays)
		minWeight, maxWeight := 0.01, 0.2
		service := newTestService()

		for d := 0; d < numDays; d++ {
			date := start.AddDate(0, 0, d)
			for _, n := range []int{10, 20} {
				for _, eligible := range [][]string{projects, projects[10:]} {
					for _, minMarketCap := range []float64{0, 1e8} {
						pf, err := service.Build(BuildTargetPortfolioInput{
							NumProjects:      n,
							Date:             date,
							Dataset:          dataset,
							EligibleProjects: eligible,
							TotalValue:       100,
							MinWeight:        minWeight,
							MaxWeight:        maxWeight,
							MinMarketCap:     minMarketCap,
						})
						require.NoError(t, err)
						require.Equal(t, n, pf.Len())
						require.InDelta(t, 100, pf.Value(), 1e-6)
						require.InDelta(t, 1, pf.WeightSum(), l1_service.WeightTolerance)

						for i, row := range pf.Rows {
							require.Contains(t, eligible, row.Project)
							mcap, err := dataset.FloatMetric(row.Project, domain.MetricField_MarketCapCirculating, date)
							require.NoError(t, err)
							require.GreaterOrEqual(t, mcap, minMarketCap)
							price, err := dataset.FloatMetric(row.Project, domain.MetricField_Price, date)
							require.NoError(t, err)
							require.Equal(t, price, row.Price)

							require.GreaterOrEqual(t, row.Weight, minWeight-l1_service.WeightTolerance)
							require.LessOrEqual(t, row.Weight, maxWeight+l1_service.WeightTolerance)
							if i > 0 {
								require.GreaterOrEqual(t, *pf.Rows[i-1].Signal, *row.Signal)
								require.GreaterOrEqual(t, pf.Rows[i-1].Weight, row.Weight-l1_service.WeightTolerance)
							}
						}
					}
				}
			}
		}
	})
}

func TestSignalWeights(t *testing.T) {
	weights, err := SignalWeights([]float64{3, 1})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.75, 0.25}, weights, 1e-12)

	_, err = SignalWeights([]float64{1, 0})
	require.Error(t, err)
}
