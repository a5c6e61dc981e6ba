// Package chart rasterizes aggregation results into PNG images. Every
// render call builds a fresh figure, so concurrent report requests never
// share canvas state.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"

	"salesight/internal/analysis"
	"salesight/internal/config"
)

// overflowLabel absorbs the long tail of a categorical distribution when
// there are too many slices to keep the legend readable. Lowercase to match
// normalized category labels.
const overflowLabel = "others"

// Renderer turns grouped series into chart images. It is safe for
// concurrent use: all per-chart state is scoped to a single call.
type Renderer struct {
	logger    *slog.Logger
	width     int
	height    int
	maxSlices int
}

func NewRenderer(logger *slog.Logger, cfg config.ReportConfig) *Renderer {
	return &Renderer{
		logger:    logger,
		width:     cfg.ChartWidth,
		height:    cfg.ChartHeight,
		maxSlices: cfg.MaxChartSlices,
	}
}

// CategoryDistribution renders a pie chart of counts per category. When the
// distribution has more than maxSlices categories, every category that
// individually contributes less than 1% of the total is merged into a single
// "others" slice. Slice labels carry the percentage of the post-collapse
// total.
func (r *Renderer) CategoryDistribution(ctx context.Context, entries []analysis.DistributionEntry, title string) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("render %q: no categories to chart", title)
	}

	collapsed := r.collapse(entries)

	var total float64
	for _, e := range collapsed {
		total += float64(e.Count)
	}

	values := make([]gochart.Value, 0, len(collapsed))
	for _, e := range collapsed {
		pct := float64(e.Count) / total * 100
		values = append(values, gochart.Value{
			Value: float64(e.Count),
			Label: fmt.Sprintf("%s (%.1f%%)", e.Label, pct),
		})
	}

	pie := gochart.PieChart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}

	r.logger.DebugContext(ctx, "rendered category distribution chart",
		"title", title,
		"slices", len(values),
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

// TimeSeries renders a monthly revenue line chart in chronological order,
// annotating each point with its transaction count.
func (r *Renderer) TimeSeries(ctx context.Context, points []analysis.TrendPoint, title string) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("render %q: no points to chart", title)
	}

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	annotations := make([]gochart.Value2, 0, len(points))
	for _, p := range points {
		x := gochart.TimeToFloat64(p.Month)
		xs = append(xs, x)
		ys = append(ys, p.Revenue)
		annotations = append(annotations, gochart.Value2{
			XValue: x,
			YValue: p.Revenue,
			Label:  fmt.Sprintf("%d txns", p.Transactions),
		})
	}

	xaxis := gochart.XAxis{
		ValueFormatter: gochart.TimeValueFormatterWithFormat("Jan 2006"),
	}
	if len(points) == 1 {
		// A single bucket collapses the x range to a point; pad it a
		// month either side so the axis can still scale.
		m := points[0].Month
		xaxis.Range = &gochart.ContinuousRange{
			Min: gochart.TimeToFloat64(m.AddDate(0, -1, 0)),
			Max: gochart.TimeToFloat64(m.AddDate(0, 1, 0)),
		}
	}

	graph := gochart.Chart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		XAxis:  xaxis,
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Revenue",
				XValues: xs,
				YValues: ys,
			},
			gochart.AnnotationSeries{
				Annotations: annotations,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}

	r.logger.DebugContext(ctx, "rendered time series chart",
		"title", title,
		"points", len(points),
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

// collapse merges sub-1% categories into a single overflow slice when the
// distribution is too wide to chart, then re-sorts descending keeping
// first-encountered order on ties.
func (r *Renderer) collapse(entries []analysis.DistributionEntry) []analysis.DistributionEntry {
	if len(entries) <= r.maxSlices {
		return sortedByCount(entries)
	}

	var total float64
	for _, e := range entries {
		total += float64(e.Count)
	}

	kept := make([]analysis.DistributionEntry, 0, r.maxSlices+1)
	var overflow int
	for _, e := range entries {
		if total > 0 && float64(e.Count)/total*100 < 1 {
			overflow += e.Count
			continue
		}
		kept = append(kept, e)
	}

	kept = sortedByCount(kept)
	if overflow > 0 {
		kept = append(kept, analysis.DistributionEntry{Label: overflowLabel, Count: overflow})
	}
	return kept
}

func sortedByCount(entries []analysis.DistributionEntry) []analysis.DistributionEntry {
	out := make([]analysis.DistributionEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
