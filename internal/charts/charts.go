// Package charts renders report figures as PNG images.
package charts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/stats"
)

// ErrNoData is returned when every bar would be zero.
var ErrNoData = errors.New("no data to chart")

type Renderer struct {
	logger *log.Logger
}

func NewRenderer(logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Renderer{logger: logger.WithComponent(log.ComponentCharts)}
}

// MonthlyBars draws an income bar and an expense bar for each month of the
// report. Values are converted to float only here.
func (r *Renderer) MonthlyBars(ctx context.Context, title string, rep stats.Report) ([]byte, error) {
	bars := make([]chart.Value, 0, 24)
	empty := true
	for m := 1; m <= 12; m++ {
		b := rep.MonthlyData[strconv.Itoa(m)]
		label := time.Month(m).String()[:3]
		income := b.Income.InexactFloat64()
		expense := b.Expense.InexactFloat64()
		if income != 0 || expense != 0 {
			empty = false
		}
		bars = append(bars,
			chart.Value{
				Label: label + " in",
				Value: income,
				Style: chart.Style{
					StrokeColor: chart.ColorGreen,
					FillColor:   chart.ColorGreen,
				},
			},
			chart.Value{
				Label: label + " out",
				Value: expense,
				Style: chart.Style{
					StrokeColor: chart.ColorRed,
					FillColor:   chart.ColorRed,
				},
			},
		)
	}
	if empty {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title: title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    1600,
		Height:   600,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f %s", v.(float64), core.BaseCurrency)
			},
			Style: chart.Style{
				FontSize:  10,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render monthly chart: %w", err)
	}
	r.logger.DebugContext(ctx, "Chart rendered", log.FieldOperation, log.OpRender, "bytes", buffer.Len())
	return buffer.Bytes(), nil
}
