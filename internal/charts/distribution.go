package charts

import (
	"bytes"
	"fmt"
	"io"

	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
	"github.com/KaramelBytes/autolysis-cli/internal/utils"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	histColor = drawing.ColorFromHex("4c72b0")
	kdeColor  = drawing.ColorFromHex("1f3a66")
)

const kdePoints = 200

// distributionChart draws a step histogram of values with a KDE line scaled
// to counts.
func distributionChart(column string, values []float64, path string, opt Options) error {
	edges := autoBins(values)
	counts := histogram(values, edges)

	xs := []float64{edges[0]}
	ys := []float64{0}
	top := 0.0
	for i, c := range counts {
		xs = append(xs, edges[i], edges[i+1])
		ys = append(ys, c, c)
		top = max(top, c)
	}
	xs = append(xs, edges[len(edges)-1])
	ys = append(ys, 0)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "count",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: histColor,
				StrokeWidth: 1,
				FillColor:   histColor.WithAlpha(110),
			},
		},
	}
	kx, ky := kde(values, edges[0], edges[len(edges)-1], kdePoints)
	if kx != nil {
		scale := float64(len(values)) * (edges[1] - edges[0])
		scaled := make([]float64, len(ky))
		for i, v := range ky {
			scaled[i] = v * scale
			top = max(top, scaled[i])
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "kde",
			XValues: kx,
			YValues: scaled,
			Style:   chart.Style{StrokeColor: kdeColor, StrokeWidth: 2},
		})
	}

	w, h := opt.size()
	ch := chart.Chart{
		Title:      fmt.Sprintf("Distribution of %s", column),
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  column,
			Range: &chart.ContinuousRange{Min: edges[0], Max: edges[len(edges)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "Count",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.05},
		},
		Series: series,
	}
	return renderPNG(&ch, path)
}

// clusterSizesChart draws one bar per k-means cluster.
func clusterSizesChart(c *analysis.ClusterResult, path string, opt Options) error {
	bars := make([]chart.Value, len(c.Counts))
	top := 0
	for i, n := range c.Counts {
		bars[i] = chart.Value{
			Label: fmt.Sprintf("cluster %d", i),
			Value: float64(n),
			Style: chart.Style{FillColor: histColor, StrokeColor: kdeColor, StrokeWidth: 1},
		}
		top = max(top, n)
	}
	w, h := opt.size()
	bc := chart.BarChart{
		Title:      fmt.Sprintf("Cluster sizes (k=%d)", c.K),
		Width:      w,
		Height:     h,
		BarWidth:   max(20, w/(2*len(bars)+2)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  "Rows",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(top) * 1.1},
		},
		Bars: bars,
	}
	return renderPNG(&bc, path)
}

type pngRenderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func renderPNG(r pngRenderer, path string) error {
	var buf bytes.Buffer
	if err := r.Render(chart.PNG, &buf); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
