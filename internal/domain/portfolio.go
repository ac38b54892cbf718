package domain

import (
	"fmt"
	"math"
	"time"
)

// Portfolio is an ordered list of holdings sharing one date. Weights
// sum to 1 whenever the portfolio is settled. Every simulation step
// works on a DeepCopy so earlier snapshots are never touched.
type Portfolio struct {
	Date time.Time
	Rows []PortfolioRow
}

type PortfolioRow struct {
	Project   string
	ProjectID string
	Weight    float64
	Tokens    float64
	Price     float64
	Signal    *float64
}

func (p PortfolioRow) DeepCopy() PortfolioRow {
	out := p
	if p.Signal != nil {
		s := *p.Signal
		out.Signal = &s
	}
	return out
}

func (p Portfolio) DeepCopy() *Portfolio {
	newPortfolio := &Portfolio{
		Date: p.Date,
		Rows: make([]PortfolioRow, 0, len(p.Rows)),
	}
	for _, row := range p.Rows {
		newPortfolio.Rows = append(newPortfolio.Rows, row.DeepCopy())
	}
	return newPortfolio
}

func (p Portfolio) Len() int {
	return len(p.Rows)
}

// Value is the sum of price * tokens over holdings.
func (p Portfolio) Value() float64 {
	value := 0.0
	for _, row := range p.Rows {
		value += row.Price * row.Tokens
	}
	return value
}

func (p Portfolio) Weights() []float64 {
	out := make([]float64, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = row.Weight
	}
	return out
}

func (p Portfolio) Projects() []string {
	out := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = row.Project
	}
	return out
}

func (p Portfolio) Row(project string) (*PortfolioRow, bool) {
	for i := range p.Rows {
		if p.Rows[i].Project == project {
			return &p.Rows[i], true
		}
	}
	return nil, false
}

func (p Portfolio) Contains(project string) bool {
	_, ok := p.Row(project)
	return ok
}

// WeightSum is used to check the settled invariant.
func (p Portfolio) WeightSum() float64 {
	sum := 0.0
	for _, row := range p.Rows {
		sum += row.Weight
	}
	return sum
}

// SetWeights overwrites weights in row order and recomputes token
// counts so that each holding is worth weight * value. The portfolio
// is left untouched when any holding has no positive price.
func (p *Portfolio) SetWeights(weights []float64, value float64) error {
	if len(weights) != len(p.Rows) {
		return fmt.Errorf("got %d weights for %d holdings", len(weights), len(p.Rows))
	}
	for _, row := range p.Rows {
		if row.Price <= 0 {
			return fmt.Errorf("cannot hold %s on %s with price %f", row.Project, p.Date.Format(time.DateOnly), row.Price)
		}
	}
	for i := range p.Rows {
		p.Rows[i].Weight = weights[i]
		p.Rows[i].Tokens = weights[i] * value / p.Rows[i].Price
	}
	return nil
}

// Reweigh derives weights from current prices and token counts.
func (p *Portfolio) Reweigh() {
	value := p.Value()
	for i := range p.Rows {
		if value == 0 {
			p.Rows[i].Weight = math.NaN()
			continue
		}
		p.Rows[i].Weight = p.Rows[i].Price * p.Rows[i].Tokens / value
	}
}
