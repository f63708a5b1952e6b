package monitor

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// handlePositionPlot renders detection world positions (XY) as a PNG.
func (ws *WebServer) handlePositionPlot(w http.ResponseWriter, r *http.Request) {
	s, ok := ws.sensor(w, r)
	if !ok {
		return
	}

	ws.locker.Lock()
	world := s.World()
	origin := s.Origin()
	sigs := s.GetSignals(nil, nil)
	pts := make(plotter.XYs, 0, len(sigs))
	maxAbs := 0.0
	for _, sig := range sigs {
		c := sig.WorldBounds(world).Center
		pts = append(pts, plotter.XY{X: c.X, Y: c.Y})
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(c.X-origin.X), math.Abs(c.Y-origin.Y)))
	}
	ws.locker.Unlock()

	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sensor %s detections (%d)", s.ID(), len(pts))
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.X.Min, p.X.Max = origin.X-pad, origin.X+pad
	p.Y.Min, p.Y.Max = origin.Y-pad, origin.Y+pad
	p.Add(plotter.NewGrid())

	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build scatter: %v", err))
			return
		}
		sc.GlyphStyle.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
	}

	o, err := plotter.NewScatter(plotter.XYs{{X: origin.X, Y: origin.Y}})
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build scatter: %v", err))
		return
	}
	o.GlyphStyle.Shape = draw.TriangleGlyph{}
	o.GlyphStyle.Color = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	o.GlyphStyle.Radius = vg.Points(5)
	p.Add(o)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
