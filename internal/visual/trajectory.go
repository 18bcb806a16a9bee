package visual

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/larva.report/internal/kinematics"
)

// zoneSegments is the number of points on the drawn zone boundary.
const zoneSegments = 90

// TrajectoryChart builds a scatter of the centroid track in millimetres,
// split into inside and outside frames, with the repellent zone boundary
// of the given radius around the origin.
func TrajectoryChart(res *kinematics.Result, radius float64) *charts.Scatter {
	var inside, outside []opts.ScatterData
	extent := radius
	for f, fr := range res.Frames {
		c := fr.Points.Centroid()
		pt := opts.ScatterData{Name: fmt.Sprintf("frame %d", f), Value: []interface{}{c.X, c.Y}}
		if fr.Outside {
			outside = append(outside, pt)
		} else {
			inside = append(inside, pt)
		}
		extent = math.Max(extent, math.Max(math.Abs(c.X), math.Abs(c.Y)))
	}

	zone := make([]opts.ScatterData, 0, zoneSegments)
	for i := 0; i < zoneSegments; i++ {
		a := 2 * math.Pi * float64(i) / zoneSegments
		zone = append(zone, opts.ScatterData{Value: []interface{}{radius * math.Cos(a), radius * math.Sin(a)}})
	}

	pad := math.Ceil(extent * 1.1)
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: res.Name + " trajectory", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: res.Name, Subtitle: fmt.Sprintf("frames=%d inside=%d outside=%d strides=%d", len(res.Frames), res.InsideFrames, res.OutsideFrames, len(res.Strides))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("inside", inside, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("outside", outside, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("repellent zone", zone, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	return scatter
}

// WriteTrajectoryHTML renders TrajectoryChart as an HTML page into w.
func WriteTrajectoryHTML(w io.Writer, res *kinematics.Result, radius float64) error {
	if err := TrajectoryChart(res, radius).Render(w); err != nil {
		return fmt.Errorf("render trajectory chart: %w", err)
	}
	return nil
}
