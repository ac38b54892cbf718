package cmd

import (
	"database/sql"
	"fmt"
	"log"

	"ttindex/api"
	"ttindex/internal/config"
	"ttindex/internal/logger"
	"ttindex/internal/repository"
	l1_service "ttindex/internal/service/l1"
	l2_service "ttindex/internal/service/l2"
	l3_service "ttindex/internal/service/l3"

	_ "github.com/lib/pq"
)

func CloseDependencies(handler *api.ApiHandler) {
	if handler.Close == nil {
		return
	}
	if err := handler.Close(); err != nil {
		log.Fatalf("failed to close db: %v", err)
	}
}

func InitializeDependencies() (*api.ApiHandler, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return NewApiHandler(env, l1_service.DefaultSolverOptions())
}

// NewHistoricalMetricRepository reads from postgres when DATABASE_URL
// is set and from the flat file at TTI_DATA_PATH otherwise. The
// returned close func is nil for the file repository.
func NewHistoricalMetricRepository(env *config.Env) (repository.HistoricalMetricRepository, func() error, error) {
	if env.DatabaseURL == "" {
		logger.Info("using historical metrics from %s", env.DataPath)
		return repository.NewHistoricalMetricCsvRepository(env.DataPath), nil, nil
	}

	dbConn, err := sql.Open("postgres", env.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return repository.NewHistoricalMetricPostgresRepository(dbConn), dbConn.Close, nil
}

func NewApiHandler(env *config.Env, solverOptions l1_service.SolverOptions) (*api.ApiHandler, error) {
	historicalMetricRepository, closeRepository, err := NewHistoricalMetricRepository(env)
	if err != nil {
		return nil, err
	}

	weightSolver := l1_service.NewWeightSolver(solverOptions)
	targetPortfolioService := l2_service.NewTargetPortfolioService(weightSolver)
	rebalanceService := l3_service.NewRebalanceService(targetPortfolioService, weightSolver)

	apiHandler := &api.ApiHandler{
		HistoricalMetricRepository: historicalMetricRepository,
		TargetPortfolioService:     targetPortfolioService,
		RebalanceService:           rebalanceService,
		SolverOptions:              solverOptions,
		NewWeightSolver:            l1_service.NewWeightSolver,
		Close:                      closeRepository,
	}

	return apiHandler, nil
}
