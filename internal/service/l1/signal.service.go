package l1_service

import (
	"fmt"
	"math"
	"regexp"

	"ttindex/internal/domain"

	"github.com/maja42/goval"
)

// DefaultSignalExpression ranks projects by sales-to-price, the
// inverse of price-to-sales.
const DefaultSignalExpression = "1 / ps"

var identifierRegex = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// metricNames returns the identifiers an expression references. Letters
// that continue a number literal, like the exponent of 1e-3, are not
// identifiers.
func metricNames(expression string) []string {
	names := []string{}
	for _, loc := range identifierRegex.FindAllStringIndex(expression, -1) {
		if loc[0] > 0 {
			prev := expression[loc[0]-1]
			if (prev >= '0' && prev <= '9') || prev == '.' {
				continue
			}
		}
		names = append(names, expression[loc[0]:loc[1]])
	}
	return names
}

// EvaluateSignal computes the ranking signal for one project-day from
// its raw metrics. Metrics that are missing or not positive count as
// undefined, and any expression that references an undefined metric
// yields a nil signal rather than an error.
func EvaluateSignal(expression string, metrics map[string]*float64) (*float64, error) {
	variables := map[string]interface{}{}
	for name, value := range metrics {
		if value != nil && *value > 0 {
			variables[name] = *value
		}
	}

	for _, ident := range metricNames(expression) {
		if _, known := metrics[ident]; !known {
			return nil, fmt.Errorf("unknown metric %s in signal expression", ident)
		}
		if _, defined := variables[ident]; !defined {
			return nil, nil
		}
	}

	eval := goval.NewEvaluator()
	result, err := eval.Evaluate(expression, variables, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate signal expression: %w", err)
	}

	var r float64
	switch v := result.(type) {
	case float64:
		r = v
	case int:
		r = float64(v)
	default:
		return nil, fmt.Errorf("signal expression returned %T, expected a number", result)
	}
	if math.IsNaN(r) {
		return nil, fmt.Errorf("calculated NaN as signal")
	} else if math.IsInf(r, 0) {
		return nil, fmt.Errorf("calculated infinity as signal")
	}
	if r <= 0 {
		return nil, nil
	}

	return &r, nil
}

// ApplySignalExpression recomputes the signal of every row from its
// stored metrics. An empty expression keeps the stored signals.
func ApplySignalExpression(rows []domain.MetricRow, expression string) ([]domain.MetricRow, error) {
	if expression == "" {
		return rows, nil
	}
	out := make([]domain.MetricRow, len(rows))
	for i, row := range rows {
		price := row.Price
		sp, err := EvaluateSignal(expression, map[string]*float64{
			string(domain.MetricField_Price):                &price,
			string(domain.MetricField_PriceToSales):         row.PriceToSales,
			string(domain.MetricField_MarketCapCirculating): row.MarketCapCirculating,
		})
		if err != nil {
			return nil, domain.ValidationError{Field: "signalExpression", Msg: err.Error()}
		}
		row.Signal = sp
		out[i] = row
	}
	return out, nil
}
