package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func floatPointer(f float64) *float64 {
	return &f
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestDataset_Row(t *testing.T) {
	t.Run("returns the single matching row", func(t *testing.T) {
		dataset := NewDataset([]MetricRow{
			{Date: date(2021, 1, 1), Project: "a", Price: 1},
			{Date: date(2021, 1, 1), Project: "b", Price: 2},
			{Date: date(2021, 1, 2), Project: "a", Price: 3},
		})
		row, err := dataset.Row("a", date(2021, 1, 2))
		require.NoError(t, err)
		require.Equal(t, 3.0, row.Price)
	})

	t.Run("duplicate rows are a lookup error", func(t *testing.T) {
		dataset := NewDataset([]MetricRow{
			{Date: date(2021, 1, 1), Project: "a", Price: 1},
			{Date: date(2021, 1, 1), Project: "a", Price: 1.5},
		})
		_, err := dataset.Row("a", date(2021, 1, 1))
		lookupErr := LookupError{}
		require.True(t, errors.As(err, &lookupErr))
		require.Equal(t, 2, lookupErr.Matches)
		require.Equal(t, "a", lookupErr.Project)
		require.Equal(t, "expected 1 row for a on 2021-01-01, found 2", err.Error())
	})

	t.Run("missing row is a lookup error", func(t *testing.T) {
		dataset := NewDataset([]MetricRow{
			{Date: date(2021, 1, 1), Project: "a", Price: 1},
		})
		_, err := dataset.Row("b", date(2021, 1, 1))
		lookupErr := LookupError{}
		require.True(t, errors.As(err, &lookupErr))
		require.Equal(t, 0, lookupErr.Matches)
		require.Equal(t, "no data for b on 2021-01-01", err.Error())
	})

	t.Run("returned row is a copy", func(t *testing.T) {
		dataset := NewDataset([]MetricRow{
			{Date: date(2021, 1, 1), Project: "a", Price: 1},
		})
		row, err := dataset.Row("a", date(2021, 1, 1))
		require.NoError(t, err)
		row.Price = 100

		price, err := dataset.FloatMetric("a", MetricField_Price, date(2021, 1, 1))
		require.NoError(t, err)
		require.Equal(t, 1.0, price)
	})
}

func TestDataset_Metric(t *testing.T) {
	day := date(2021, 1, 1)
	dataset := NewDataset([]MetricRow{
		{
			Date:                 day,
			Project:              "a",
			ProjectID:            "aave",
			Price:                10,
			PriceToSales:         floatPointer(4),
			Signal:               floatPointer(0.25),
			MarketCapCirculating: floatPointer(1e9),
		},
		{Date: day, Project: "b", ProjectID: "b", Price: 20},
	})

	t.Run("every field", func(t *testing.T) {
		for _, tc := range []struct {
			field    MetricField
			expected any
		}{
			{MetricField_Price, 10.0},
			{MetricField_PriceToSales, floatPointer(4)},
			{MetricField_Signal, floatPointer(0.25)},
			{MetricField_MarketCapCirculating, floatPointer(1e9)},
			{MetricField_ProjectID, "aave"},
		} {
			v, err := dataset.Metric("a", tc.field, day)
			require.NoError(t, err)
			require.Equal(t, "", cmp.Diff(tc.expected, v), tc.field)
		}
	})

	t.Run("undefined fields are nil", func(t *testing.T) {
		v, err := dataset.Metric("b", MetricField_Signal, day)
		require.NoError(t, err)
		require.Nil(t, v.(*float64))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := dataset.Metric("a", MetricField("pe"), day)
		require.Error(t, err)
		require.Equal(t, "unknown metric pe", err.Error())
	})

	t.Run("float metric of a defined field", func(t *testing.T) {
		v, err := dataset.FloatMetric("a", MetricField_MarketCapCirculating, day)
		require.NoError(t, err)
		require.Equal(t, 1e9, v)
	})

	t.Run("float metric of an undefined field", func(t *testing.T) {
		_, err := dataset.FloatMetric("b", MetricField_PriceToSales, day)
		require.Error(t, err)
		require.Equal(t, "ps is undefined for b on 2021-01-01", err.Error())
	})

	t.Run("float metric of a text field", func(t *testing.T) {
		_, err := dataset.FloatMetric("a", MetricField_ProjectID, day)
		require.Error(t, err)
		require.Equal(t, "project_id is not numeric", err.Error())
	})

	t.Run("float metric of a missing row", func(t *testing.T) {
		_, err := dataset.FloatMetric("c", MetricField_Price, day)
		require.True(t, errors.As(err, &LookupError{}))
	})
}

func TestDataset_Dates(t *testing.T) {
	dataset := NewDataset([]MetricRow{
		{Date: date(2021, 1, 3), Project: "a"},
		{Date: date(2021, 1, 1), Project: "a"},
		{Date: date(2021, 1, 2), Project: "b"},
		{Date: date(2021, 1, 1), Project: "b"},
	})
	require.Equal(t, []time.Time{date(2021, 1, 1), date(2021, 1, 2), date(2021, 1, 3)}, dataset.Dates())

	last, ok := dataset.LastDate()
	require.True(t, ok)
	require.Equal(t, date(2021, 1, 3), last)

	require.Equal(t, []string{"a", "b"}, []string{dataset.RowsOn(date(2021, 1, 1))[0].Project, dataset.RowsOn(date(2021, 1, 1))[1].Project})
	require.True(t, dataset.HasProject("b"))
	require.False(t, dataset.HasProject("c"))

	_, ok = NewDataset(nil).LastDate()
	require.False(t, ok)
}
