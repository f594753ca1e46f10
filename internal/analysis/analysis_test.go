package analysis

import (
	"bytes"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

func frame(header []string, rows ...[]string) *dataset.Frame {
	return dataset.FromRecords("test.csv", header, rows)
}

func col(t *testing.T, f *dataset.Frame, name string) *dataset.Column {
	t.Helper()
	c, ok := f.Column(name)
	require.True(t, ok, "column %s", name)
	return c
}

func TestImputeMeanAndMode(t *testing.T) {
	f := frame([]string{"x", "c", "tie"},
		[]string{"1", "a", "q"},
		[]string{"", "b", "p"},
		[]string{"3", "b", ""},
		[]string{"NA", "", "NA"},
	)
	out, notes := Impute(f)
	require.Empty(t, notes)

	x := col(t, out, "x")
	assert.Equal(t, []float64{1, 2, 3, 2}, x.Num)
	assert.Equal(t, 0, x.MissingCount())
	assert.Equal(t, []string{"a", "b", "b", "b"}, col(t, out, "c").Str)
	// p and q tie; the smaller value wins
	assert.Equal(t, []string{"q", "p", "p", "p"}, col(t, out, "tie").Str)

	// the input frame is untouched
	assert.Equal(t, 2, col(t, f, "x").MissingCount())
}

func TestImputeDropsAllMissingColumn(t *testing.T) {
	f := frame([]string{"x", "empty"},
		[]string{"1", ""},
		[]string{"2", "NA"},
	)
	out, notes := Impute(f)
	require.Len(t, out.Columns, 1)
	assert.Equal(t, "x", out.Columns[0].Name)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], `"empty"`)
}

func TestDescribe(t *testing.T) {
	f := frame([]string{"n", "s"},
		[]string{"1", "red"},
		[]string{"2", "blue"},
		[]string{"3", "red"},
		[]string{"4", ""},
	)
	sum := Describe(f, 0)
	require.Len(t, sum, 2)

	n := sum[0]
	assert.Equal(t, dataset.KindNumeric, n.Kind)
	assert.Equal(t, 4, n.Count)
	assert.InDelta(t, 2.5, n.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), n.Std, 1e-12)
	assert.Equal(t, 1.0, n.Min)
	assert.InDelta(t, 1.75, n.Q25, 1e-12)
	assert.InDelta(t, 2.5, n.Q50, 1e-12)
	assert.InDelta(t, 3.25, n.Q75, 1e-12)
	assert.Equal(t, 4.0, n.Max)

	s := sum[1]
	assert.Equal(t, dataset.KindCategorical, s.Kind)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Unique)
	assert.Equal(t, "red", s.Top)
	assert.Equal(t, 2, s.Freq)
	assert.True(t, math.IsNaN(s.Mean))
}

func TestDescribeSingleValueStdIsNaN(t *testing.T) {
	sum := Describe(frame([]string{"n"}, []string{"7"}), 0)
	assert.Equal(t, 7.0, sum[0].Mean)
	assert.True(t, math.IsNaN(sum[0].Std))
}

func TestDescribeMADOutliers(t *testing.T) {
	rows := [][]string{}
	for _, v := range []string{"10", "11", "9", "10", "12", "8", "10", "11", "9", "500"} {
		rows = append(rows, []string{v})
	}
	sum := Describe(frame([]string{"v"}, rows...), 3.5)
	assert.Equal(t, 1, sum[0].OutliersCount)
	assert.Equal(t, 3.5, sum[0].OutlierThreshold)
	assert.Greater(t, sum[0].OutliersMaxAbsZ, 3.5)
}

func TestCorrelate(t *testing.T) {
	f := frame([]string{"x", "y", "z", "w", "label"},
		[]string{"1", "2", "-1", "5", "a"},
		[]string{"2", "4", "-2", "5", "b"},
		[]string{"3", "", "-3", "5", "c"},
		[]string{"4", "8", "-4", "5", "d"},
		[]string{"5", "10", "-5", "5", "e"},
	)
	m := Correlate(f)
	require.NotNil(t, m)
	assert.Equal(t, []string{"x", "y", "z", "w"}, m.Columns)
	assert.InDelta(t, 1, m.Values[0][1], 1e-12)
	assert.InDelta(t, -1, m.Values[0][2], 1e-12)
	assert.Equal(t, m.Values[0][2], m.Values[2][0])
	assert.Equal(t, 1.0, m.Values[0][0])
	// a constant column has no defined correlation, not even with itself
	assert.True(t, math.IsNaN(m.Values[0][3]))
	assert.True(t, math.IsNaN(m.Values[3][3]))

	pairs := m.TopPairs(0)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.InDelta(t, 1, math.Abs(p.R), 1e-12)
	}

	assert.Nil(t, Correlate(frame([]string{"label"}, []string{"a"})))
}

func gridWithOutlier() *dataset.Frame {
	var rows [][]string
	for i := 0; i < 100; i++ {
		rows = append(rows, []string{strconv.Itoa(i % 10), strconv.Itoa(i / 10), "g"})
	}
	rows = append(rows, []string{"100", "100", "g"})
	return frame([]string{"a", "b", "group"}, rows...)
}

func TestDetectOutliersFlagsIsolatedRow(t *testing.T) {
	f := gridWithOutlier()
	res, err := DetectOutliers(f, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, f.Rows, res.Inliers+res.Outliers)
	assert.GreaterOrEqual(t, res.Outliers, 1)
	assert.LessOrEqual(t, res.Outliers, 6)
	assert.Equal(t, -1, res.Labels[100])
	require.NotEmpty(t, res.Top)
	assert.Equal(t, 100, res.Top[0].Row)
	assert.Len(t, res.Top, 5)
	for _, s := range res.Scores {
		assert.Greater(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.Equal(t, map[int]int{1: res.Inliers, -1: res.Outliers}, res.Counts())

	again, err := DetectOutliers(f, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, res.Labels, again.Labels, "same seed must give the same labels")
}

func TestDetectOutliersErrors(t *testing.T) {
	_, err := DetectOutliers(frame([]string{"s"}, []string{"a"}, []string{"b"}), DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	opt := DefaultOptions()
	opt.Contamination = 0.7
	_, err = DetectOutliers(gridWithOutlier(), opt)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientData)
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	// c(256) from the isolation forest paper
	assert.InDelta(t, 10.24, averagePathLength(256), 0.01)
}

func blobs() *dataset.Frame {
	centers := [][2]float64{{0, 0}, {10, 10}, {20, 0}}
	offsets := [][2]float64{{0, 0}, {0.3, 0.1}, {-0.2, 0.4}, {0.1, -0.3}, {-0.4, -0.1}, {0.2, 0.2}, {-0.1, 0.3}, {0.4, -0.2}, {-0.3, -0.4}, {0.1, 0.1}}
	var rows [][]string
	for _, c := range centers {
		for _, o := range offsets {
			rows = append(rows, []string{fmt.Sprint(c[0] + o[0]), fmt.Sprint(c[1] + o[1])})
		}
	}
	return frame([]string{"x", "y"}, rows...)
}

func TestClusterRowsSeparatesBlobs(t *testing.T) {
	f := blobs()
	res, err := ClusterRows(f, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, res.K)
	counts := append([]int(nil), res.Counts...)
	sort.Ints(counts)
	assert.Equal(t, []int{10, 10, 10}, counts)
	for b := 0; b < 3; b++ {
		for i := 1; i < 10; i++ {
			assert.Equal(t, res.Labels[b*10], res.Labels[b*10+i], "blob %d row %d", b, i)
		}
	}
	assert.NotEqual(t, res.Labels[0], res.Labels[10])
	assert.NotEqual(t, res.Labels[10], res.Labels[20])

	// centroids in original units land on the blob centers
	found := 0
	for _, c := range res.CentroidsOriginal {
		for _, want := range [][2]float64{{0, 0}, {10, 10}, {20, 0}} {
			if math.Abs(c[0]-want[0]) < 0.5 && math.Abs(c[1]-want[1]) < 0.5 {
				found++
			}
		}
	}
	assert.Equal(t, 3, found)
	assert.Greater(t, res.Inertia, 0.0)
	assert.GreaterOrEqual(t, res.Iterations, 1)
}

func TestClusterRowsInsufficientData(t *testing.T) {
	opt := DefaultOptions()
	_, err := ClusterRows(frame([]string{"x"}, []string{"1"}, []string{"2"}, []string{"3"}), opt)
	assert.ErrorIs(t, err, ErrInsufficientData, "one numeric column")

	_, err = ClusterRows(frame([]string{"x", "y"}, []string{"1", "2"}, []string{"3", "4"}), opt)
	assert.ErrorIs(t, err, ErrInsufficientData, "fewer rows than clusters")

	_, err = ClusterRows(frame([]string{"s", "t"}, []string{"a", "b"}), opt)
	assert.ErrorIs(t, err, ErrInsufficientData, "no numeric columns")
}

func TestStandardizeConstantColumn(t *testing.T) {
	f := frame([]string{"x", "k"}, []string{"1", "5"}, []string{"3", "5"})
	x, _ := numericMatrix(f)
	means, scales := standardize(x)
	assert.Equal(t, []float64{2, 5}, means)
	assert.Equal(t, []float64{1, 1}, scales)
	assert.Equal(t, -1.0, x.At(0, 0))
	assert.Equal(t, 0.0, x.At(1, 1))
}

func TestAnalyzeCategoricalOnly(t *testing.T) {
	f := frame([]string{"city", "team"},
		[]string{"Paris", "red"},
		[]string{"", "blue"},
		[]string{"Rome", "red"},
	)
	res, err := Analyze(f, DefaultOptions())
	require.NoError(t, err)
	assert.Nil(t, res.Outliers)
	assert.Nil(t, res.Clusters)
	assert.Nil(t, res.Correlation)
	assert.Equal(t, "No numeric data for outlier detection.", res.OutlierNote)
	assert.Equal(t, "Insufficient data for clustering.", res.ClusterNote)
	assert.Equal(t, []MissingCount{{"city", 1}, {"team", 0}}, res.Missing)
}

func TestAnalyzeCountsMissingBeforeImputation(t *testing.T) {
	f := blobs()
	c := col(t, f, "x")
	c.Missing[3], c.Num[3] = true, math.NaN()

	res, err := Analyze(f, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalMissing())
	assert.Equal(t, 30, res.Summary[0].Count, "summary runs on imputed data")
	require.NotNil(t, res.Outliers)
	require.NotNil(t, res.Clusters)
	assert.Equal(t, 30, res.Outliers.Inliers+res.Outliers.Outliers)
}

func TestAnalyzeEmptyFrame(t *testing.T) {
	_, err := Analyze(&dataset.Frame{}, DefaultOptions())
	assert.ErrorIs(t, err, dataset.ErrNoColumns)
}

func TestMarkdownSections(t *testing.T) {
	res, err := Analyze(blobs(), DefaultOptions())
	require.NoError(t, err)
	md := res.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]", "Rows: 30", "[MISSING VALUES]", "No missing values.",
		"[CORRELATION MATRIX]", "[OUTLIER DETECTION]", "contamination 0.05",
		"[CLUSTERING ANALYSIS]", "Centroids (original units):", "| x",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "[NOTES]")

	cat, err := Analyze(frame([]string{"s"}, []string{"a"}, []string{""}), DefaultOptions())
	require.NoError(t, err)
	md = cat.Markdown()
	assert.Contains(t, md, "- s: 1 (50.0%)")
	assert.Contains(t, md, "No numeric data for outlier detection.")
	assert.Contains(t, md, "Fewer than two numeric columns.")
}

func TestMissingColumnsOrder(t *testing.T) {
	r := &Result{Missing: []MissingCount{{"a", 1}, {"b", 0}, {"c", 4}}}
	assert.Equal(t, []MissingCount{{"c", 4}, {"a", 1}}, r.MissingColumns())
}

func TestWriteYAML(t *testing.T) {
	res, err := Analyze(blobs(), DefaultOptions())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, res.WriteYAML(path))

	data, err := res.YAML()
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, 30, back["rows"])
	assert.Contains(t, back, "clusters")
	assert.True(t, strings.Contains(string(data), "contamination: 0.05"))
	assert.NotContains(t, string(data), "labels")
}

func infFrame() *dataset.Frame {
	return frame([]string{"x", "y"},
		[]string{"1", "2"},
		[]string{"2", "inf"},
		[]string{"3", "5"},
		[]string{"4", "1"},
		[]string{"5", ""},
	)
}

func TestImputeTreatsNonFiniteAsMissing(t *testing.T) {
	out, notes := Impute(infFrame())
	y := col(t, out, "y")
	assert.InDeltaSlice(t, []float64{2, 8.0 / 3, 5, 1, 8.0 / 3}, y.Num, 1e-12)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], `"y": 1 non-finite value(s) treated as missing`)

	onlyInf := frame([]string{"x", "z"}, []string{"1", "inf"}, []string{"2", "-inf"})
	out, notes = Impute(onlyInf)
	require.Len(t, out.Columns, 1)
	assert.Len(t, notes, 2)
	assert.Contains(t, notes[1], "excluded after imputation")
}

func TestAnalyzeWithInfiniteCell(t *testing.T) {
	res, err := Analyze(infFrame(), DefaultOptions())
	require.NoError(t, err)

	var ySummary *ColumnSummary
	for i := range res.Summary {
		if res.Summary[i].Name == "y" {
			ySummary = &res.Summary[i]
		}
	}
	require.NotNil(t, ySummary)
	assert.InDelta(t, 8.0/3, ySummary.Mean, 1e-12)

	require.NotNil(t, res.Clusters)
	assert.False(t, math.IsNaN(res.Clusters.Inertia) || math.IsInf(res.Clusters.Inertia, 0))
	for _, c := range res.Clusters.CentroidsOriginal {
		for _, v := range c {
			assert.True(t, dataset.IsFinite(v), "centroid %v", c)
		}
	}
	r := res.Correlation.Values[0][1]
	assert.True(t, dataset.IsFinite(r), "correlation %v", r)
	assert.Contains(t, strings.Join(res.Notes, "\n"), "non-finite")
}

func TestRecenterFillsEmptyCluster(t *testing.T) {
	x := mat.NewDense(5, 2, []float64{0, 0, 1, 0, 5, 0, 20, 0, 21, 0})
	labels := []int{0, 0, 0, 1, 1}
	centers := recenter(x, labels, 3)

	require.Len(t, centers, 3)
	assert.Equal(t, 2, labels[2], "farthest row of the largest spread moves")
	assert.Equal(t, []float64{5, 0}, centers[2])
	assert.Equal(t, []float64{20.5, 0}, centers[1])

	counts := make([]int, 3)
	for _, l := range labels {
		counts[l]++
	}
	assert.Equal(t, []int{2, 2, 1}, counts)
}

func TestClipKeepsRunesIntact(t *testing.T) {
	s := strings.Repeat("é", 50)
	got := clip(s, 40)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 40, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "short", clip("short", 40))
}

func TestTablesEscapeColumnNames(t *testing.T) {
	cols := []string{"a|b", "c\nd"}
	var buf bytes.Buffer
	writeCorrTable(&buf, &CorrMatrix{Columns: cols, Values: [][]float64{{1, 0.5}, {0.5, 1}}})
	writeCentroidTable(&buf, cols, [][]float64{{1, 2}})
	out := buf.String()
	assert.Contains(t, out, "a/b")
	assert.Contains(t, out, "c d")
	assert.NotContains(t, out, "a|b")
	assert.NotContains(t, out, "c\nd")
}
