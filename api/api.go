package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ttindex/internal/app"
	"ttindex/internal/domain"
	"ttindex/internal/logger"
	"ttindex/internal/repository"
	l1_service "ttindex/internal/service/l1"
	l2_service "ttindex/internal/service/l2"
	l3_service "ttindex/internal/service/l3"
	"ttindex/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ApiHandler struct {
	HistoricalMetricRepository repository.HistoricalMetricRepository
	TargetPortfolioService     l2_service.TargetPortfolioService
	RebalanceService           l3_service.RebalanceService
	// SolverOptions are the server defaults for per-request solvers
	SolverOptions l1_service.SolverOptions
	// NewWeightSolver builds the per-request solver of /backtest;
	// l1_service.NewWeightSolver when nil
	NewWeightSolver func(l1_service.SolverOptions) l1_service.WeightSolver
	Close           func() error
}

func (m ApiHandler) InitializeRouterEngine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(m.requestContextMiddleware)

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to the token terminal index backtester"})
	})
	router.POST("/backtest", m.backtest)
	router.POST("/targetPortfolio", m.targetPortfolio)
	router.POST("/rebalance", m.rebalance)

	return router
}

func (m ApiHandler) StartApi(port int) error {
	return m.InitializeRouterEngine().Run(fmt.Sprintf(":%d", port))
}

const requestContextKey = "requestContext"

// requestContextMiddleware tags every request with an id and attaches
// a logger and a timing profile to its context.
func (m ApiHandler) requestContextMiddleware(c *gin.Context) {
	requestID := uuid.New()
	lg := logger.FromContext(context.Background()).With(
		"requestID", requestID.String(),
		"route", c.Request.URL.Path,
	)
	profile, endProfile := domain.NewProfile()

	ctx := logger.WithContext(c.Request.Context(), lg)
	ctx = domain.ContextWithProfile(ctx, profile)
	c.Set(requestContextKey, ctx)
	c.Header("X-Request-ID", requestID.String())

	start := time.Now()
	c.Next()
	endProfile()

	lg.Infow("handled request",
		"method", c.Request.Method,
		"status", c.Writer.Status(),
		"durationMs", time.Since(start).Milliseconds(),
	)
}

func requestContext(c *gin.Context) context.Context {
	if v, ok := c.Get(requestContextKey); ok {
		if ctx, ok := v.(context.Context); ok {
			return ctx
		}
	}
	return c.Request.Context()
}

// statusCode maps the domain error taxonomy onto HTTP statuses.
func statusCode(err error) int {
	var (
		validationErr   domain.ValidationError
		insufficientErr domain.InsufficientDataError
		lookupErr       domain.LookupError
		optimizationErr domain.OptimizationError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &insufficientErr):
		return http.StatusBadRequest
	case errors.As(err, &lookupErr):
		return http.StatusNotFound
	case errors.As(err, &optimizationErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func returnErrorJson(err error, c *gin.Context) {
	returnErrorJsonCode(err, c, statusCode(err))
}

func returnErrorJsonCode(err error, c *gin.Context, code int) {
	logger.FromContext(requestContext(c)).Errorw("request failed", "error", err.Error(), "status", code)
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
	})
}

// loadDataset reads the stored metrics and, for a non-empty
// expression, recomputes every signal with it.
func (m ApiHandler) loadDataset(projects []string, start, end *time.Time, signalExpression string) (*domain.Dataset, error) {
	rows, err := m.HistoricalMetricRepository.List(repository.HistoricalMetricListFilter{
		Projects:  projects,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load historical metrics: %w", err)
	}
	rows, err = l1_service.ApplySignalExpression(rows, signalExpression)
	if err != nil {
		return nil, err
	}
	return domain.NewDataset(rows), nil
}

func (m ApiHandler) backtestHandler(solverOptions l1_service.SolverOptions) app.BacktestHandler {
	newWeightSolver := m.NewWeightSolver
	if newWeightSolver == nil {
		newWeightSolver = l1_service.NewWeightSolver
	}
	return app.NewBacktestHandler(newWeightSolver(solverOptions))
}

func parseDate(field, s string) (time.Time, error) {
	t, err := util.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Msg: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return t, nil
}

type portfolioRowJson struct {
	Project   string   `json:"project"`
	ProjectID string   `json:"projectID"`
	Weight    float64  `json:"weight"`
	Tokens    float64  `json:"tokens"`
	Price     float64  `json:"price"`
	Signal    *float64 `json:"sp"`
}

type portfolioJson struct {
	Date  string             `json:"date"`
	Value float64            `json:"value"`
	Rows  []portfolioRowJson `json:"rows"`
}

func portfolioToJson(p domain.Portfolio) portfolioJson {
	out := portfolioJson{
		Date:  p.Date.Format(time.DateOnly),
		Value: p.Value(),
		Rows:  make([]portfolioRowJson, 0, p.Len()),
	}
	for _, r := range p.Rows {
		out.Rows = append(out.Rows, portfolioRowJson{
			Project:   r.Project,
			ProjectID: r.ProjectID,
			Weight:    r.Weight,
			Tokens:    r.Tokens,
			Price:     r.Price,
			Signal:    r.Signal,
		})
	}
	return out
}

func portfolioFromJson(date time.Time, rows []portfolioRowJson) domain.Portfolio {
	out := domain.Portfolio{
		Date: date,
		Rows: make([]domain.PortfolioRow, 0, len(rows)),
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, domain.PortfolioRow{
			Project:   r.Project,
			ProjectID: r.ProjectID,
			Weight:    r.Weight,
			Tokens:    r.Tokens,
			Price:     r.Price,
			Signal:    r.Signal,
		})
	}
	return out
}
