package internal

import (
	"fmt"
	"math"
	"time"

	"ttindex/internal/domain"
	"ttindex/internal/logger"
	"ttindex/internal/repository"
	l1_service "ttindex/internal/service/l1"
	"ttindex/pkg/tokenterminal"
)

type MetricsSource interface {
	ListProjects() ([]tokenterminal.Project, error)
	GetProjectMetrics(projectID string) ([]tokenterminal.DailyMetrics, error)
}

type IngestHistoricalMetricsInput struct {
	Source           MetricsSource
	Repository       repository.HistoricalMetricRepository
	SignalExpression string
	// ProjectIDs limits the extraction; all listed projects when empty
	ProjectIDs []string
}

// IngestHistoricalMetrics pulls the daily metrics of every project
// from the source, derives the signal and writes everything in a
// single Save. Non-positive ratios are stored as undefined.
func IngestHistoricalMetrics(in IngestHistoricalMetricsInput) (int, error) {
	expression := in.SignalExpression
	if expression == "" {
		expression = l1_service.DefaultSignalExpression
	}

	projectIDs := in.ProjectIDs
	if len(projectIDs) == 0 {
		projects, err := in.Source.ListProjects()
		if err != nil {
			return 0, err
		}
		for _, p := range projects {
			projectIDs = append(projectIDs, p.ProjectID)
		}
	}
	if len(projectIDs) == 0 {
		return 0, fmt.Errorf("no projects to ingest")
	}

	rows := []domain.MetricRow{}
	errors := []error{}
	for i, projectID := range projectIDs {
		logger.Info("%d/%d (%s)", i+1, len(projectIDs), projectID)
		metrics, err := in.Source.GetProjectMetrics(projectID)
		if err != nil {
			errors = append(errors, err)
			continue
		}
		projectRows, err := metricRowsFromResponse(projectID, metrics, expression)
		if err != nil {
			errors = append(errors, fmt.Errorf("failed to convert metrics for %s: %w", projectID, err))
			continue
		}
		rows = append(rows, projectRows...)
	}

	if len(errors) > 0 {
		return 0, fmt.Errorf("failed to ingest %d/%d projects. first err: %w", len(errors), len(projectIDs), errors[0])
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no metrics returned for %d projects", len(projectIDs))
	}

	if err := in.Repository.Save(rows); err != nil {
		return 0, err
	}

	return len(rows), nil
}

func metricRowsFromResponse(projectID string, metrics []tokenterminal.DailyMetrics, expression string) ([]domain.MetricRow, error) {
	out := make([]domain.MetricRow, 0, len(metrics))
	for _, m := range metrics {
		if len(m.Datetime) < 10 {
			return nil, fmt.Errorf("unexpected datetime %q", m.Datetime)
		}
		date, err := time.Parse(time.DateOnly, m.Datetime[:10])
		if err != nil {
			return nil, fmt.Errorf("failed to parse datetime %q: %w", m.Datetime, err)
		}
		if m.Price == nil || math.IsNaN(*m.Price) {
			continue
		}

		signal, err := l1_service.EvaluateSignal(expression, m.Ratios())
		if err != nil {
			return nil, fmt.Errorf("failed to compute signal on %s: %w", m.Datetime[:10], err)
		}

		out = append(out, domain.MetricRow{
			Date:                 date,
			Project:              m.Project,
			ProjectID:            projectID,
			Price:                *m.Price,
			PriceToSales:         positiveOrNil(m.Ps),
			Signal:               signal,
			MarketCapCirculating: m.MarketCapCirculating,
		})
	}
	return out, nil
}

func positiveOrNil(f *float64) *float64 {
	if f == nil || *f <= 0 || math.IsNaN(*f) {
		return nil
	}
	return f
}
