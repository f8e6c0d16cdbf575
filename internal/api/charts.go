package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/racecar/internal/db"
	"github.com/banshee-data/racecar/internal/httputil"
	"github.com/banshee-data/racecar/internal/lidar"
)

// showRunChart renders a session as HTML: commanded speed and steering over
// time, and the odometry path seen from above.
func (s *Server) showRunChart(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	ticks, err := s.db.Ticks(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read ticks: %v", err))
		return
	}
	transitions, err := s.db.Transitions(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read transitions: %v", err))
		return
	}

	page := components.NewPage()
	page.PageTitle = "Run " + id
	page.AddCharts(commandChart(id, ticks, transitions), pathChart(ticks))
	writePage(w, page)
}

// showScanChart plots the latest LIDAR revolution from above, forward up.
func (s *Server) showScanChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	src, ok := s.bridge.(ScanSource)
	if !ok {
		httputil.ServiceUnavailable(w, "no lidar")
		return
	}
	page := components.NewPage()
	page.PageTitle = "LIDAR"
	page.AddCharts(scanChart(src.LidarSamples()))
	writePage(w, page)
}

func writePage(w http.ResponseWriter, page *components.Page) {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func commandChart(id string, ticks []db.Tick, transitions []db.Transition) *charts.Line {
	x := make([]string, len(ticks))
	speed := make([]opts.LineData, len(ticks))
	angle := make([]opts.LineData, len(ticks))
	requested := make([]opts.LineData, len(ticks))
	for i, t := range ticks {
		x[i] = fmt.Sprintf("%.2f", t.Time.Sub(ticks[0].Time).Seconds())
		speed[i] = opts.LineData{Value: t.Speed}
		angle[i] = opts.LineData{Value: t.Angle}
		requested[i] = opts.LineData{Value: t.RequestedSpeed}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Commands",
			Subtitle: fmt.Sprintf("session=%s ticks=%d transitions=%d", id, len(ticks), len(transitions)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries("speed", speed).
		AddSeries("angle", angle).
		AddSeries("requested speed", requested)
	return line
}

func pathChart(ticks []db.Tick) *charts.Scatter {
	data := make([]opts.ScatterData, len(ticks))
	for i, t := range ticks {
		data[i] = opts.ScatterData{Value: []interface{}{t.PosX, t.PosZ}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Odometry path", Subtitle: "x / z (m)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (m)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "z (m)", Type: "value"}),
	)
	scatter.AddSeries("path", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	return scatter
}

func scanChart(scan lidar.Scan) *charts.Scatter {
	points := scan.Points()
	data := make([]opts.ScatterData, len(points))
	for i, p := range points {
		x, y := lidar.PolarToCartesian(p.Distance, p.Azimuth)
		data[i] = opts.ScatterData{Value: []interface{}{x, y}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "720px", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "LIDAR scan", Subtitle: fmt.Sprintf("returns=%d", len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "right (cm)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "forward (cm)", Type: "value"}),
	)
	scatter.AddSeries("returns", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	return scatter
}
