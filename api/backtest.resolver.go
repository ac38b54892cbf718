package api

import (
	"encoding/json"
	"fmt"

	"ttindex/internal/app"
	"ttindex/internal/config"
	"ttindex/internal/domain"
	"ttindex/internal/report"
	l3_service "ttindex/internal/service/l3"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BacktestRequest struct {
	config.BacktestConfig
	SaveStatus bool `json:"saveStatus"`
	SaveTarget bool `json:"saveTarget"`
}

type BacktestResponse struct {
	RunID      uuid.UUID                          `json:"runID"`
	Results    json.RawMessage                    `json:"results"`
	Rebalances map[string]report.RebalanceSummary `json:"rebalances"`
	Metrics    *l3_service.CalculateMetricsResult `json:"metrics"`
	Profile    *domain.Profile                    `json:"profile"`
}

// backtest runs a full simulation. The body's solver options and
// signal expression apply to this request only.
func (h ApiHandler) backtest(c *gin.Context) {
	ctx := requestContext(c)
	profile := domain.ProfileFromContext(ctx)

	requestBody := BacktestRequest{BacktestConfig: config.DefaultBacktestConfig()}
	requestBody.Solver = h.SolverOptions
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJson(domain.ValidationError{Field: "body", Msg: err.Error()}, c)
		return
	}

	start, end, err := requestBody.Dates()
	if err != nil {
		returnErrorJson(domain.ValidationError{Field: "dates", Msg: err.Error()}, c)
		return
	}
	frequency, err := app.NewRebalanceFrequency(requestBody.RebalancingFrequency)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	_, endSpan := profile.StartNewSpan("load dataset")
	dataset, err := h.loadDataset(requestBody.ProjectsToInclude, &start, end, requestBody.SignalExpression)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	endSpan()

	result, err := h.backtestHandler(requestBody.Solver).Backtest(ctx, app.BacktestInput{
		NumProjects:          requestBody.NumProjects,
		InitialInvestment:    requestBody.InitialInvestment,
		MinCircMarketCap:     requestBody.MinCircMarketCap,
		MinWeight:            requestBody.MinWeight,
		MaxWeight:            requestBody.MaxWeight,
		MaxChange:            requestBody.MaxChange,
		StartDate:            start,
		EndDate:              end,
		Dataset:              dataset,
		ProjectsToInclude:    requestBody.ProjectsToInclude,
		RebalancingFrequency: *frequency,
		Quiet:                true,
	})
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to run backtest: %w", err), c)
		return
	}

	_, endSpan = profile.StartNewSpan("report")
	results, err := report.ResultsJSON(result.Snapshots, requestBody.SaveStatus)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	rebalances, err := report.Rebalances(report.NewResultsByStatus(result.Snapshots), requestBody.SaveTarget)
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	// a single day run has no returns to measure
	var metrics *l3_service.CalculateMetricsResult
	if len(result.Settled()) > 1 {
		metrics, err = l3_service.CalculateMetrics(*result)
		if err != nil {
			returnErrorJson(fmt.Errorf("failed to calculate metrics: %w", err), c)
			return
		}
	}
	endSpan()
	profile.End()

	c.JSON(200, BacktestResponse{
		RunID:      result.RunID,
		Results:    results,
		Rebalances: rebalances,
		Metrics:    metrics,
		Profile:    profile,
	})
}
