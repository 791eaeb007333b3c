package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	moneyfmt "github.com/fpachecos/dashboard-faturas/internal/money"
)

// ErrNoData is returned when there is nothing to chart.
var ErrNoData = errors.New("no category spend to chart")

// RenderCategoryChart writes a PNG bar chart of spend per category to w.
func RenderCategoryChart(s Summary, title string, w io.Writer) error {
	if len(s.ByCategory) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(s.ByCategory))
	top := 0.0
	for _, c := range s.ByCategory {
		top = math.Max(top, c.Total)
		v := chart.Value{Label: c.Name, Value: c.Total}
		if c.Color != "" {
			color := drawing.ColorFromHex(strings.TrimPrefix(c.Color, "#"))
			v.Style = chart.Style{FillColor: color, StrokeColor: color}
		}
		bars = append(bars, v)
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    1200,
		Height:   600,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
			FillColor: chart.ColorWhite,
		},
		UseBaseValue: true,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return moneyfmt.FormatBRL(f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering category chart: %w", err)
	}
	return nil
}
