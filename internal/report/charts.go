package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"spendwise/internal/core"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

var (
	incomeColor  = drawing.Color{R: 15, G: 118, B: 110, A: 255}
	expenseColor = drawing.Color{R: 220, G: 38, B: 38, A: 255}
)

func background() chart.Style {
	return chart.Style{
		Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
	}
}

func currencyFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}

// CategoryChart renders the expense breakdown as a bar chart.
func CategoryChart(w io.Writer, title string, breakdown []core.CategoryStat) error {
	var bars []chart.Value
	var max float64
	for _, s := range breakdown {
		v := s.Amount.InexactFloat64()
		if v > max {
			max = v
		}
		bars = append(bars, chart.Value{
			Label: string(s.Category),
			Value: v,
			Style: chart.Style{FillColor: expenseColor, StrokeColor: expenseColor},
		})
	}
	if max <= 0 {
		return ErrNoData
	}

	barChart := chart.BarChart{
		Title:      title,
		Background: background(),
		Width:      800,
		Height:     400,
		BarWidth:   50,
		Bars:       bars,
	}
	barChart.YAxis.Range = &chart.ContinuousRange{Min: 0, Max: max * 1.1}
	barChart.YAxis.ValueFormatter = currencyFormatter

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render category chart: %w", err)
	}
	return nil
}

// DailyChart renders the expenses of each day of a month as a line.
func DailyChart(w io.Writer, month string, days []core.DayAmount) error {
	xs := make([]float64, len(days))
	ys := make([]float64, len(days))
	var max float64
	for i, d := range days {
		xs[i] = float64(d.Day)
		ys[i] = d.Amount.InexactFloat64()
		if ys[i] > max {
			max = ys[i]
		}
	}
	if len(days) < 2 || max <= 0 {
		return ErrNoData
	}

	graph := chart.Chart{
		Title:      "Daily expenses " + month,
		Background: background(),
		Width:      1000,
		Height:     400,
		XAxis: chart.XAxis{
			Name:  "Day",
			Range: &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: max * 1.1},
			ValueFormatter: currencyFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Expense",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: expenseColor, StrokeWidth: 2},
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render daily chart: %w", err)
	}
	return nil
}

// MonthlyChart renders income and expense per month as two lines. At least
// two months are needed to draw a line.
func MonthlyChart(w io.Writer, trend []core.MonthTrend) error {
	if len(trend) < 2 {
		return ErrNoData
	}

	xs := make([]float64, len(trend))
	income := make([]float64, len(trend))
	expense := make([]float64, len(trend))
	ticks := make([]chart.Tick, len(trend))
	var max float64
	for i, m := range trend {
		xs[i] = float64(i)
		income[i] = m.Income.InexactFloat64()
		expense[i] = m.Expense.InexactFloat64()
		ticks[i] = chart.Tick{Value: float64(i), Label: m.Label}
		if income[i] > max {
			max = income[i]
		}
		if expense[i] > max {
			max = expense[i]
		}
	}
	if max <= 0 {
		return ErrNoData
	}

	graph := chart.Chart{
		Title:      "Monthly trend",
		Background: background(),
		Width:      800,
		Height:     400,
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(trend) - 1)},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: max * 1.1},
			ValueFormatter: currencyFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Income",
				XValues: xs,
				YValues: income,
				Style:   chart.Style{StrokeColor: incomeColor, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Expense",
				XValues: xs,
				YValues: expense,
				Style:   chart.Style{StrokeColor: expenseColor, StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render monthly chart: %w", err)
	}
	return nil
}
