// Package chart draws the household projection as a line chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/etnz/retirement"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format of the rendered image.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat returns the Format named s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case PNG, SVG:
		return f, nil
	}
	return "", fmt.Errorf("unknown chart format %q, want %q or %q", s, PNG, SVG)
}

// ErrNoData is returned when no fund reports a projection.
var ErrNoData = errors.New("no fund reports a projection")

// Default image size, in pixels.
const (
	Width  = 1024
	Height = 512
)

// Render draws h to w: one line per fund over the years it reports, plus the household total.
func Render(w io.Writer, h retirement.HouseholdProjection, currency string, format Format) error {
	if h.IsEmpty() {
		return ErrNoData
	}
	ch := New(h, currency)
	provider := chart.PNG
	if format == SVG {
		provider = chart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("render %s chart: %w", format, err)
	}
	return nil
}

// New returns the chart of h.
func New(h retirement.HouseholdProjection, currency string) chart.Chart {
	var series []chart.Series
	for i, k := range h.Keys {
		s := chart.ContinuousSeries{Name: h.Legend[k], Style: lineStyle(chart.GetDefaultColor(i), 2)}
		for _, r := range h.Rows {
			if v, ok := r.Value(k); ok {
				s.XValues = append(s.XValues, float64(r.Year))
				s.YValues = append(s.YValues, v)
			}
		}
		series = append(series, s)
	}
	total := chart.ContinuousSeries{Name: "Total", Style: lineStyle(chart.ColorBlack, 3)}
	for _, r := range h.Rows {
		total.XValues = append(total.XValues, float64(r.Year))
		total.YValues = append(total.YValues, r.Total)
	}
	series = append(series, total)

	ch := chart.Chart{
		Title:      "Household Projection",
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           "Year",
			Range:          yearRange(h),
			ValueFormatter: yearFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Balance",
			Range:          balanceRange(h),
			ValueFormatter: func(v any) string { return moneyFormatter(v, currency) },
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: width,
	}
}

// yearRange spans the aggregate years, widened by one year on each side for a single year.
func yearRange(h retirement.HouseholdProjection) *chart.ContinuousRange {
	first, last := float64(h.Rows[0].Year), float64(h.Rows[len(h.Rows)-1].Year)
	if first == last {
		first, last = first-1, last+1
	}
	return &chart.ContinuousRange{Min: first, Max: last}
}

// balanceRange spans zero to the highest balance drawn.
func balanceRange(h retirement.HouseholdProjection) *chart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, r := range h.Rows {
		lo, hi = min(lo, r.Total), max(hi, r.Total)
		for _, v := range r.Funds {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi * 1.05}
}

func yearFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(f))
	}
	return ""
}

func moneyFormatter(v any, currency string) string {
	if f, ok := v.(float64); ok {
		return retirement.M(f, currency).String()
	}
	return ""
}
