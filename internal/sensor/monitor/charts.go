package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleStrengthChart renders the sensor's signals as a bar chart, strongest
// first.
func (ws *WebServer) handleStrengthChart(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.sensor(w, r)
	if !ok {
		return
	}

	ws.locker.Lock()
	world := s.World()
	sigs := s.GetSignalsBySignalStrength(nil, nil)
	labels := make([]string, 0, len(sigs))
	data := make([]opts.BarData, 0, len(sigs))
	for _, sig := range sigs {
		label := sig.Object.String()
		if tag := world.Tag(sig.Object); tag != "" {
			label = tag + " " + label
		}
		labels = append(labels, label)
		data = append(data, opts.BarData{Value: sig.Strength})
	}
	cycle := s.Cycle()
	ws.locker.Unlock()

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sensor strengths", Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Signal strength", Subtitle: fmt.Sprintf("sensor=%s cycle=%d detections=%d", s.ID(), cycle, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "strength"}),
	)
	bar.SetXAxis(labels).
		AddSeries("strength", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePositionChart renders detection world positions (XY) as a scatter,
// coloured by strength, with the sensor origin at the centre.
func (ws *WebServer) handlePositionChart(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.sensor(w, r)
	if !ok {
		return
	}

	ws.locker.Lock()
	world := s.World()
	origin := s.Origin()
	sigs := s.GetSignals(nil, nil)
	data := make([]opts.ScatterData, 0, len(sigs))
	maxAbs := 0.0
	for _, sig := range sigs {
		c := sig.WorldBounds(world).Center
		x, y := c.X-origin.X, c.Y-origin.Y
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(x), math.Abs(y)))
		data = append(data, opts.ScatterData{Value: []interface{}{c.X, c.Y, sig.Strength}, Name: sig.Object.String()})
	}
	ws.locker.Unlock()

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sensor detections", Width: "800px", Height: "800px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Detections", Subtitle: fmt.Sprintf("sensor=%s points=%d", s.ID(), len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: origin.X - pad, Max: origin.X + pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: origin.Y - pad, Max: origin.Y + pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("detections", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
	scatter.AddSeries("sensor", []opts.ScatterData{{Value: []interface{}{origin.X, origin.Y, 0.0}, Name: "origin"}},
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
