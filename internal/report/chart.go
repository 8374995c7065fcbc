package report

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/expense-approvals/internal/spend"
)

// ErrNoSpend indicates a department without approved spend to chart.
var ErrNoSpend = errors.New("no spend to chart")

// SpendChart renders a department's spend per category as a PNG pie chart.
func SpendChart(ds *spend.DepartmentSpend) ([]byte, error) {
	slices := spend.Breakdown(ds)
	if len(slices) == 0 {
		return nil, ErrNoSpend
	}

	values := make([]float64, 0, len(slices))
	names := make([]string, 0, len(slices))
	for _, s := range slices {
		values = append(values, s.Amount.InexactFloat64())
		names = append(names, s.Label)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("%s - %s%% of %s %s", ds.Name, ds.Utilization.StringFixed(1), ds.Budget.StringFixed(0), ds.Currency),
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// ChartFilename names the chart of a department.
func ChartFilename(departmentID int64) string {
	return fmt.Sprintf("department_%d_spend.png", departmentID)
}
