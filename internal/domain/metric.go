package domain

import (
	"fmt"
	"sort"
	"time"
)

// MetricRow is one project's metrics on one date, as extracted
// from the historical data source. Signal and market cap may be
// undefined, in which case they are nil.
type MetricRow struct {
	Date                 time.Time
	Project              string
	ProjectID            string
	Price                float64
	PriceToSales         *float64
	Signal               *float64
	MarketCapCirculating *float64
}

type MetricField string

const (
	MetricField_Price                MetricField = "price"
	MetricField_PriceToSales         MetricField = "ps"
	MetricField_Signal               MetricField = "sp"
	MetricField_MarketCapCirculating MetricField = "market_cap_circulating"
	MetricField_ProjectID            MetricField = "project_id"
)

type datasetKey struct {
	date    string
	project string
}

// Dataset is the read-only historical cross section used by the
// simulation. Rows keep their input order so ties between equal
// signals resolve the same way on every run.
type Dataset struct {
	rows     []MetricRow
	byKey    map[datasetKey][]int
	byDate   map[string][]int
	projects map[string]bool
}

func NewDataset(rows []MetricRow) *Dataset {
	d := &Dataset{
		rows:     make([]MetricRow, len(rows)),
		byKey:    map[datasetKey][]int{},
		byDate:   map[string][]int{},
		projects: map[string]bool{},
	}
	copy(d.rows, rows)
	for i, r := range d.rows {
		dateStr := r.Date.Format(time.DateOnly)
		k := datasetKey{date: dateStr, project: r.Project}
		d.byKey[k] = append(d.byKey[k], i)
		d.byDate[dateStr] = append(d.byDate[dateStr], i)
		d.projects[r.Project] = true
	}
	return d
}

func (d *Dataset) Len() int {
	return len(d.rows)
}

// RowsOn returns the rows for the given date in input order.
func (d *Dataset) RowsOn(date time.Time) []MetricRow {
	indexes := d.byDate[date.Format(time.DateOnly)]
	out := make([]MetricRow, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, d.rows[i])
	}
	return out
}

// Row returns the single row for (date, project). Zero or multiple
// matches are reported as a LookupError.
func (d *Dataset) Row(project string, date time.Time) (*MetricRow, error) {
	indexes := d.byKey[datasetKey{date: date.Format(time.DateOnly), project: project}]
	if len(indexes) != 1 {
		return nil, LookupError{
			Project: project,
			Date:    date,
			Matches: len(indexes),
		}
	}
	row := d.rows[indexes[0]]
	return &row, nil
}

// Metric looks up a single field of a project on a date. Undefined
// optional fields are returned as nil.
func (d *Dataset) Metric(project string, field MetricField, date time.Time) (any, error) {
	row, err := d.Row(project, date)
	if err != nil {
		return nil, err
	}
	switch field {
	case MetricField_Price:
		return row.Price, nil
	case MetricField_PriceToSales:
		return row.PriceToSales, nil
	case MetricField_Signal:
		return row.Signal, nil
	case MetricField_MarketCapCirculating:
		return row.MarketCapCirculating, nil
	case MetricField_ProjectID:
		return row.ProjectID, nil
	}
	return nil, fmt.Errorf("unknown metric %s", field)
}

// FloatMetric is Metric for numeric fields, failing when the value
// is undefined.
func (d *Dataset) FloatMetric(project string, field MetricField, date time.Time) (float64, error) {
	v, err := d.Metric(project, field, date)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case *float64:
		if x == nil {
			return 0, fmt.Errorf("%s is undefined for %s on %s", field, project, date.Format(time.DateOnly))
		}
		return *x, nil
	}
	return 0, fmt.Errorf("%s is not numeric", field)
}

func (d *Dataset) HasProject(project string) bool {
	return d.projects[project]
}

// LastDate is the most recent date with any data.
func (d *Dataset) LastDate() (time.Time, bool) {
	dates := d.Dates()
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

func (d *Dataset) Dates() []time.Time {
	out := make([]time.Time, 0, len(d.byDate))
	for dateStr := range d.byDate {
		t, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}
