package api

import (
	"fmt"

	"ttindex/internal/config"
	"ttindex/internal/domain"
	l3_service "ttindex/internal/service/l3"

	"github.com/gin-gonic/gin"
)

type RebalanceRequest struct {
	Date              string             `json:"date"`
	Holdings          []portfolioRowJson `json:"holdings"`
	MinWeight         float64            `json:"minWeight"`
	MaxWeight         float64            `json:"maxWeight"`
	MaxChange         float64            `json:"maxChange"`
	MinCircMarketCap  float64            `json:"minCircMarketCap"`
	ProjectsToInclude []string           `json:"projectsToInclude"`
}

type RebalanceResponse struct {
	InitialTarget portfolioJson `json:"initialTarget"`
	FinalTarget   portfolioJson `json:"finalTarget"`
	Rebalanced    portfolioJson `json:"rebalanced"`
}

// rebalance runs a single rebalance of the posted holdings against
// the stored metrics of the given date. Holding prices and signals
// are refreshed from the dataset before rebalancing.
func (h ApiHandler) rebalance(c *gin.Context) {
	defaults := config.DefaultBacktestConfig()
	requestBody := RebalanceRequest{
		MinWeight:         defaults.MinWeight,
		MaxWeight:         defaults.MaxWeight,
		MaxChange:         defaults.MaxChange,
		MinCircMarketCap:  defaults.MinCircMarketCap,
		ProjectsToInclude: defaults.ProjectsToInclude,
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJson(domain.ValidationError{Field: "body", Msg: err.Error()}, c)
		return
	}

	date, err := parseDate("date", requestBody.Date)
	if err != nil {
		returnErrorJson(err, c)
		return
	}
	if len(requestBody.Holdings) == 0 {
		returnErrorJson(domain.ValidationError{Field: "holdings", Msg: "cannot be empty"}, c)
		return
	}

	projects := append([]string{}, requestBody.ProjectsToInclude...)
	for _, holding := range requestBody.Holdings {
		projects = append(projects, holding.Project)
	}
	dataset, err := h.loadDataset(projects, &date, &date, "")
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	portfolio := portfolioFromJson(date, requestBody.Holdings)
	for i, row := range portfolio.Rows {
		metrics, err := dataset.Row(row.Project, date)
		if err != nil {
			returnErrorJson(fmt.Errorf("failed to price holding %s: %w", row.Project, err), c)
			return
		}
		portfolio.Rows[i].Price = metrics.Price
		portfolio.Rows[i].Signal = metrics.Signal
		if portfolio.Rows[i].ProjectID == "" {
			portfolio.Rows[i].ProjectID = metrics.ProjectID
		}
	}
	portfolio.Reweigh()

	result, err := h.RebalanceService.Rebalance(l3_service.RebalanceInput{
		Portfolio:        portfolio,
		Date:             date,
		MinWeight:        requestBody.MinWeight,
		MaxWeight:        requestBody.MaxWeight,
		MaxChange:        requestBody.MaxChange,
		MinMarketCap:     requestBody.MinCircMarketCap,
		Dataset:          dataset,
		EligibleProjects: requestBody.ProjectsToInclude,
	})
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to rebalance: %w", err), c)
		return
	}

	c.JSON(200, RebalanceResponse{
		InitialTarget: portfolioToJson(*result.InitialTarget),
		FinalTarget:   portfolioToJson(*result.FinalTarget),
		Rebalanced:    portfolioToJson(*result.Rebalanced),
	})
}
