// Package chart renders execution reports as PNG bar charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"budgetflow/internal/core"
)

// ErrNoData is returned for reports without buckets.
var ErrNoData = errors.New("report has no buckets to chart")

const (
	defaultWidth  = 1200
	defaultHeight = 600
	barWidth      = 40
)

// Renderer draws one bar per report bucket.
type Renderer struct {
	Width  int
	Height int
}

func NewRenderer() *Renderer {
	return &Renderer{Width: defaultWidth, Height: defaultHeight}
}

// ExecutionPNG renders the report buckets in order, highlighting the peak.
func (r *Renderer) ExecutionPNG(report *core.ExecutionReport) ([]byte, error) {
	if report == nil || len(report.Data) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(report.Data))
	peak := 0.0
	for _, b := range report.Data {
		amount := b.Amount.Float64()
		if amount > peak {
			peak = amount
		}

		fill := chart.ColorBlue.WithAlpha(140)
		if b.Key == report.Summary.PeakKey {
			fill = chart.ColorRed
		}
		bars = append(bars, chart.Value{
			Label: bucketLabel(b, report.ViewMode),
			Value: amount,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   fill,
				FontSize:    10,
				FontColor:   chart.ColorBlack,
			},
		})
	}
	if peak <= 0 {
		peak = 1
	}

	graph := chart.BarChart{
		Title: fmt.Sprintf("%s (%s)", report.PeriodName, report.ViewMode),
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: barWidth,
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
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render execution chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func bucketLabel(b core.Bucket, mode core.ViewMode) string {
	if mode == core.ViewWeekly {
		return fmt.Sprintf("W%02d", b.Week)
	}
	if len(b.Date) == len("2006-01-02") {
		return b.Date[5:]
	}
	return b.Key
}
