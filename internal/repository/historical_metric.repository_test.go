package repository

import (
	"testing"
	"time"

	"ttindex/internal/domain"
	"ttindex/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func Test_historicalMetricModel(t *testing.T) {
	row := domain.MetricRow{
		Date:                 util.NewDate(2022, 5, 9),
		Project:              "Lido Finance",
		ProjectID:            "lido-finance",
		Price:                1.2,
		PriceToSales:         util.FloatPointer(40),
		Signal:               util.FloatPointer(0.025),
		MarketCapCirculating: nil,
	}
	m := historicalMetricModel(row, time.Now())
	require.Nil(t, m.MarketCapCirculating)
	require.Equal(t, 0.025, *m.Sp)

	// postgres hands dates back in the session time zone
	m.Date = time.Date(2022, 5, 9, 0, 0, 0, 0, time.FixedZone("EDT", -4*3600))
	require.Equal(t, "", cmp.Diff(row, metricRowFromModel(m)))
}
