package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortfolio_SetWeights(t *testing.T) {
	newPortfolio := func() Portfolio {
		return Portfolio{
			Date: date(2021, 1, 1),
			Rows: []PortfolioRow{
				{Project: "a", Price: 10, Tokens: 5, Weight: 0.5},
				{Project: "b", Price: 25, Tokens: 2, Weight: 0.5},
			},
		}
	}

	t.Run("tokens follow the weights", func(t *testing.T) {
		p := newPortfolio()
		require.NoError(t, p.SetWeights([]float64{0.2, 0.8}, 100))
		require.InDelta(t, 2, p.Rows[0].Tokens, 1e-12)
		require.InDelta(t, 3.2, p.Rows[1].Tokens, 1e-12)
		require.InDelta(t, 100, p.Value(), 1e-9)
		require.InDelta(t, 1, p.WeightSum(), 1e-12)
	})

	t.Run("non-positive price is an error", func(t *testing.T) {
		p := newPortfolio()
		p.Rows[1].Price = 0
		err := p.SetWeights([]float64{0.2, 0.8}, 100)
		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot hold b on 2021-01-01")

		// nothing is written
		require.Equal(t, 0.5, p.Rows[0].Weight)
		require.Equal(t, 5.0, p.Rows[0].Tokens)
	})

	t.Run("weight count must match", func(t *testing.T) {
		p := newPortfolio()
		require.Error(t, p.SetWeights([]float64{1}, 100))
	})
}

func TestPortfolio_DeepCopy(t *testing.T) {
	signal := 0.3
	p := Portfolio{
		Date: date(2021, 1, 1),
		Rows: []PortfolioRow{{Project: "a", Price: 1, Tokens: 1, Weight: 1, Signal: &signal}},
	}
	c := p.DeepCopy()
	*c.Rows[0].Signal = 0.9
	c.Rows[0].Tokens = 4

	require.Equal(t, 0.3, *p.Rows[0].Signal)
	require.Equal(t, 1.0, p.Rows[0].Tokens)
}

func TestPortfolio_Reweigh(t *testing.T) {
	p := Portfolio{
		Rows: []PortfolioRow{
			{Project: "a", Price: 10, Tokens: 3},
			{Project: "b", Price: 5, Tokens: 2},
		},
	}
	p.Reweigh()
	require.InDelta(t, 0.75, p.Rows[0].Weight, 1e-12)
	require.InDelta(t, 0.25, p.Rows[1].Weight, 1e-12)
	require.True(t, p.Contains("b"))
	require.False(t, p.Contains("c"))
	require.Equal(t, []string{"a", "b"}, p.Projects())
}
