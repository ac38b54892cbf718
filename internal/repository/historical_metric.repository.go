package repository

import (
	"database/sql"
	"fmt"
	"time"

	"ttindex/internal/db/models/postgres/public/model"
	. "ttindex/internal/db/models/postgres/public/table"
	"ttindex/internal/domain"

	. "github.com/go-jet/jet/v2/postgres"
)

type HistoricalMetricListFilter struct {
	Projects  []string
	StartDate *time.Time
	EndDate   *time.Time
}

// HistoricalMetricRepository stores the daily project metrics that
// back a simulation.
type HistoricalMetricRepository interface {
	List(filter HistoricalMetricListFilter) ([]domain.MetricRow, error)
	Save(rows []domain.MetricRow) error
}

type historicalMetricPostgresHandler struct {
	Db *sql.DB
}

func NewHistoricalMetricPostgresRepository(db *sql.DB) HistoricalMetricRepository {
	return historicalMetricPostgresHandler{Db: db}
}

// rows per INSERT, keeps the statement under the postgres parameter limit
const upsertBatchSize = 5000

func (h historicalMetricPostgresHandler) Save(rows []domain.MetricRow) error {
	if len(rows) == 0 {
		return fmt.Errorf("no models were provided to insert into historical_metric")
	}

	tx, err := h.Db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for start := 0; start < len(rows); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(rows))
		models := make([]model.HistoricalMetric, 0, end-start)
		for _, r := range rows[start:end] {
			models = append(models, historicalMetricModel(r, now))
		}

		query := HistoricalMetric.
			INSERT(HistoricalMetric.AllColumns).
			MODELS(models).
			ON_CONFLICT(HistoricalMetric.Date, HistoricalMetric.Project).
			DO_UPDATE(
				SET(
					HistoricalMetric.MutableColumns.SET(HistoricalMetric.EXCLUDED.MutableColumns),
				),
			)

		if _, err := query.Exec(tx); err != nil {
			return fmt.Errorf("failed to upsert historical metrics: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit historical metrics: %w", err)
	}
	return nil
}

func (h historicalMetricPostgresHandler) List(filter HistoricalMetricListFilter) ([]domain.MetricRow, error) {
	conditions := []BoolExpression{Bool(true)}
	if len(filter.Projects) > 0 {
		projects := make([]Expression, 0, len(filter.Projects))
		for _, p := range filter.Projects {
			projects = append(projects, String(p))
		}
		conditions = append(conditions, HistoricalMetric.Project.IN(projects...))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, HistoricalMetric.Date.GT_EQ(DateT(*filter.StartDate)))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, HistoricalMetric.Date.LT_EQ(DateT(*filter.EndDate)))
	}

	query := HistoricalMetric.
		SELECT(HistoricalMetric.AllColumns).
		WHERE(AND(conditions...)).
		ORDER_BY(
			HistoricalMetric.Date.ASC(),
			HistoricalMetric.Project.ASC(),
		)

	results := []model.HistoricalMetric{}
	if err := query.Query(h.Db, &results); err != nil {
		return nil, fmt.Errorf("failed to list historical metrics: %w", err)
	}

	out := make([]domain.MetricRow, 0, len(results))
	for _, m := range results {
		out = append(out, metricRowFromModel(m))
	}
	return out, nil
}

func historicalMetricModel(r domain.MetricRow, createdAt time.Time) model.HistoricalMetric {
	return model.HistoricalMetric{
		Date:                 r.Date,
		Project:              r.Project,
		ProjectID:            r.ProjectID,
		Price:                r.Price,
		Ps:                   r.PriceToSales,
		Sp:                   r.Signal,
		MarketCapCirculating: r.MarketCapCirculating,
		CreatedAt:            createdAt,
	}
}

func metricRowFromModel(m model.HistoricalMetric) domain.MetricRow {
	return domain.MetricRow{
		Date:                 time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(), 0, 0, 0, 0, time.UTC),
		Project:              m.Project,
		ProjectID:            m.ProjectID,
		Price:                m.Price,
		PriceToSales:         m.Ps,
		Signal:               m.Sp,
		MarketCapCirculating: m.MarketCapCirculating,
	}
}
