package dashboard

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// ChartOpts customises the overview bar chart.
type ChartOpts struct {
	Title       string
	Description string
	BarColor    string
	AxisColor   string
	GridColor   string
	Width       int
	RowHeight   int
	LabelWidth  int
	TickCount   int
}

const (
	defaultChartWidth = 720
	defaultRowHeight  = 28
	defaultLabelWidth = 120
	defaultTicks      = 4
	chartPadding      = 16.0
)

// Bars renders one horizontal bar per label.
func Bars(values []float64, labels []string, opts ChartOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("chart: at least one value required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("chart: values length must match labels")
	}
	width := opts.Width
	if width <= 0 {
		width = defaultChartWidth
	}
	rowHeight := opts.RowHeight
	if rowHeight <= 0 {
		rowHeight = defaultRowHeight
	}
	labelWidth := float64(opts.LabelWidth)
	if labelWidth <= 0 {
		labelWidth = defaultLabelWidth
	}
	ticks := opts.TickCount
	if ticks <= 0 {
		ticks = defaultTicks
	}
	barColor := fallback(opts.BarColor, "#2563eb")
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	height := int(2*chartPadding) + rowHeight*len(values) + 16
	plotLeft := chartPadding + labelWidth
	plotWidth := float64(width) - plotLeft - chartPadding
	if plotWidth <= 0 {
		return "", fmt.Errorf("chart: viewport too small")
	}

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	scale := plotWidth / maxVal

	titleID := makeID(opts.Title, "title")
	descID := makeID(opts.Title, "desc")

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(&b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Records per entity")))
	fmt.Fprintf(&b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(opts.Description, "Horizontal bar chart")))

	plotBottom := chartPadding + float64(rowHeight*len(values))
	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / float64(ticks)
		x := plotLeft + ratio*plotWidth
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, x, chartPadding, x, plotBottom, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x, plotBottom+12, axisColor, template.HTMLEscapeString(formatTick(maxVal*ratio)))
	}

	for i, v := range values {
		y := chartPadding + float64(i*rowHeight)
		barWidth := math.Max(0, v*scale)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11" text-anchor="end">%s</text>`, plotLeft-8, y+float64(rowHeight)/2+4, axisColor, template.HTMLEscapeString(labels[i]))
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" rx="2"><title>%s: %s</title></rect>`, plotLeft, y+4, barWidth, float64(rowHeight)-8, barColor, template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(formatTick(v)))
	}
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"></line>`, plotLeft, chartPadding, plotLeft, plotBottom, axisColor)
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
