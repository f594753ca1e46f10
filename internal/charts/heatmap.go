package charts

import (
	"fmt"
	"image/color"
	"math"

	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const paletteSize = 256

var nanColor = color.Gray{Y: 200}

// grid adapts a row-major matrix to plotter.GridXYZ with row 0 drawn on top.
type grid struct {
	z    [][]float64
	cols int
}

func (g grid) Dims() (c, r int)    { return g.cols, len(g.z) }
func (g grid) Z(c, r int) float64  { return g.z[len(g.z)-1-r][c] }
func (g grid) X(c int) float64     { return float64(c) }
func (g grid) Y(r int) float64     { return float64(r) }
func (g grid) top(row int) float64 { return float64(len(g.z) - 1 - row) }

// correlationHeatmap draws an annotated heatmap of m on a blue-red scale
// fixed to [-1, 1].
func correlationHeatmap(m *analysis.CorrMatrix, path string, opt Options) error {
	n := len(m.Columns)
	g := grid{z: m.Values, cols: n}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(g, cm.Palette(paletteSize))
	hm.Min, hm.Max = -1, 1
	hm.NaN = nanColor

	p := plot.New()
	p.Title.Text = "Correlation Matrix"
	p.Add(hm)

	var labels plotter.XYLabels
	for i := range m.Values {
		for j, v := range m.Values[i] {
			text := ""
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(j), Y: g.top(i)})
			labels.Labels = append(labels.Labels, text)
		}
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	k := 0
	for i := range m.Values {
		for _, v := range m.Values[i] {
			l.TextStyle[k].XAlign = draw.XCenter
			l.TextStyle[k].YAlign = draw.YCenter
			if math.Abs(v) > 0.6 {
				l.TextStyle[k].Color = color.White
			}
			k++
		}
	}
	p.Add(l)

	xt := make([]plot.Tick, n)
	yt := make([]plot.Tick, n)
	for i, name := range m.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: name}
		yt[i] = plot.Tick{Value: g.top(i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.Font.Size = vg.Points(9)
	p.Y.Tick.Label.Font.Size = vg.Points(9)
	p.X.Tick.Length, p.Y.Tick.Length = 0, 0
	return savePlot(p, path, opt)
}

// missingHeatmap draws which cells of f are missing. Frames longer than
// opt.MaxMissingRows are binned by row, each cell then showing the share
// of missing values in the bin.
func missingHeatmap(f *dataset.Frame, path string, opt Options) error {
	z, binSize := missingGrid(f, opt.MaxMissingRows)
	g := grid{z: z, cols: len(f.Columns)}

	cm := moreland.Kindlmann()
	cm.SetMin(0)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(g, cm.Palette(paletteSize))
	hm.Min, hm.Max = 0, 1

	p := plot.New()
	p.Title.Text = "Missing Values Heatmap"
	p.Add(hm)

	xt := make([]plot.Tick, len(f.Columns))
	for i, c := range f.Columns {
		xt[i] = plot.Tick{Value: float64(i), Label: c.Name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xt)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	var yt []plot.Tick
	step := max(1, len(z)/10)
	for r := 0; r < len(z); r += step {
		yt = append(yt, plot.Tick{Value: g.top(r), Label: fmt.Sprint(r * binSize)})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yt)
	p.Y.Label.Text = "Row"
	if binSize > 1 {
		p.Y.Label.Text = fmt.Sprintf("Row (bins of %d)", binSize)
	}
	return savePlot(p, path, opt)
}

// missingGrid returns the missingness matrix of f, binned by row when f has
// more than maxRows rows. Each cell is the missing share of its bin.
func missingGrid(f *dataset.Frame, maxRows int) ([][]float64, int) {
	binSize := 1
	if maxRows > 0 && f.Rows > maxRows {
		binSize = int(math.Ceil(float64(f.Rows) / float64(maxRows)))
	}
	bins := (f.Rows + binSize - 1) / binSize
	z := make([][]float64, bins)
	for b := range z {
		z[b] = make([]float64, len(f.Columns))
		lo, hi := b*binSize, min((b+1)*binSize, f.Rows)
		for j, c := range f.Columns {
			miss := 0
			for i := lo; i < hi; i++ {
				if c.Missing[i] {
					miss++
				}
			}
			z[b][j] = float64(miss) / float64(hi-lo)
		}
	}
	return z, binSize
}

func savePlot(p *plot.Plot, path string, opt Options) error {
	w, h := opt.size()
	// vgimg renders at 96 dpi
	return p.Save(vg.Length(w)*vg.Inch/96, vg.Length(h)*vg.Inch/96, path)
}
