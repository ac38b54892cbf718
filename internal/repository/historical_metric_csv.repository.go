package repository

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"ttindex/internal/domain"

	"github.com/gocarina/gocsv"
)

type historicalMetricCsvRow struct {
	Datetime             string `csv:"datetime"`
	Project              string `csv:"project"`
	ProjectID            string `csv:"project_id"`
	Price                string `csv:"price"`
	PS                   string `csv:"ps"`
	SP                   string `csv:"sp"`
	MarketCapCirculating string `csv:"market_cap_circulating"`
}

type historicalMetricCsvHandler struct {
	Path string
}

// NewHistoricalMetricCsvRepository reads and writes the flat file
// layout produced by the extract command. Empty cells are undefined.
func NewHistoricalMetricCsvRepository(path string) HistoricalMetricRepository {
	return historicalMetricCsvHandler{Path: path}
}

func (h historicalMetricCsvHandler) List(filter HistoricalMetricListFilter) ([]domain.MetricRow, error) {
	f, err := os.Open(h.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", h.Path, err)
	}
	defer f.Close()

	csvRows := []historicalMetricCsvRow{}
	if err := gocsv.UnmarshalFile(f, &csvRows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", h.Path, err)
	}

	projects := map[string]bool{}
	for _, p := range filter.Projects {
		projects[p] = true
	}

	out := make([]domain.MetricRow, 0, len(csvRows))
	for i, r := range csvRows {
		row, err := r.toMetricRow()
		if err != nil {
			return nil, fmt.Errorf("invalid row %d in %s: %w", i+2, h.Path, err)
		}
		if len(projects) > 0 && !projects[row.Project] {
			continue
		}
		if filter.StartDate != nil && row.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && row.Date.After(*filter.EndDate) {
			continue
		}
		out = append(out, *row)
	}

	return out, nil
}

// Save replaces the file contents with rows.
func (h historicalMetricCsvHandler) Save(rows []domain.MetricRow) error {
	csvRows := make([]*historicalMetricCsvRow, 0, len(rows))
	for _, r := range rows {
		csvRows = append(csvRows, &historicalMetricCsvRow{
			Datetime:             r.Date.Format(time.DateOnly),
			Project:              r.Project,
			ProjectID:            r.ProjectID,
			Price:                formatFloat(&r.Price),
			PS:                   formatFloat(r.PriceToSales),
			SP:                   formatFloat(r.Signal),
			MarketCapCirculating: formatFloat(r.MarketCapCirculating),
		})
	}

	f, err := os.Create(h.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", h.Path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&csvRows, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", h.Path, err)
	}
	return nil
}

func (r historicalMetricCsvRow) toMetricRow() (*domain.MetricRow, error) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(r.Datetime))
	if err != nil {
		return nil, fmt.Errorf("failed to parse datetime %q: %w", r.Datetime, err)
	}
	price, err := parseOptionalFloat(r.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	if price == nil {
		return nil, fmt.Errorf("missing price for %s on %s", r.Project, r.Datetime)
	}
	ps, err := parseOptionalFloat(r.PS)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ps: %w", err)
	}
	sp, err := parseOptionalFloat(r.SP)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sp: %w", err)
	}
	marketCap, err := parseOptionalFloat(r.MarketCapCirculating)
	if err != nil {
		return nil, fmt.Errorf("failed to parse market_cap_circulating: %w", err)
	}

	return &domain.MetricRow{
		Date:                 date,
		Project:              r.Project,
		ProjectID:            r.ProjectID,
		Price:                *price,
		PriceToSales:         ps,
		Signal:               sp,
		MarketCapCirculating: marketCap,
	}, nil
}

// parseOptionalFloat treats empty cells and NaN as undefined.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	return &f, nil
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
