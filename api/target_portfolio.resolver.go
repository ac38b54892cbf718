package api

import (
	"fmt"
	"time"

	"ttindex/internal/config"
	"ttindex/internal/domain"
	l2_service "ttindex/internal/service/l2"

	"github.com/gin-gonic/gin"
)

type TargetPortfolioRequest struct {
	Date              string   `json:"date"`
	NumProjects       int      `json:"nProjects"`
	Value             float64  `json:"value"`
	MinWeight         float64  `json:"minWeight"`
	MaxWeight         float64  `json:"maxWeight"`
	MinCircMarketCap  float64  `json:"minCircMarketCap"`
	ProjectsToInclude []string `json:"projectsToInclude"`
}

func (h ApiHandler) targetPortfolio(c *gin.Context) {
	defaults := config.DefaultBacktestConfig()
	requestBody := TargetPortfolioRequest{
		NumProjects:       defaults.NumProjects,
		Value:             defaults.InitialInvestment,
		MinWeight:         defaults.MinWeight,
		MaxWeight:         defaults.MaxWeight,
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

	dataset, err := h.loadDataset(requestBody.ProjectsToInclude, &date, &date, "")
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	target, err := h.TargetPortfolioService.Build(l2_service.BuildTargetPortfolioInput{
		NumProjects:      requestBody.NumProjects,
		Date:             date,
		Dataset:          dataset,
		EligibleProjects: requestBody.ProjectsToInclude,
		TotalValue:       requestBody.Value,
		MinWeight:        requestBody.MinWeight,
		MaxWeight:        requestBody.MaxWeight,
		MinMarketCap:     requestBody.MinCircMarketCap,
	})
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to build target portfolio for %s: %w", date.Format(time.DateOnly), err), c)
		return
	}

	c.JSON(200, portfolioToJson(*target))
}
