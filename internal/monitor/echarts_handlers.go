package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleFrameChart renders an HTML line chart of one frame's translation
// over time. Query params:
//   - frame (required)
func (ws *WebServer) handleFrameChart(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("frame")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "frame is required")
		return
	}
	snap := ws.snapshot(w)
	if snap == nil {
		return
	}
	f := snap.Frame(name)
	if f == nil || f.Len() == 0 {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no samples for frame %q", name))
		return
	}

	series := trajectory(f)
	labels := make([]string, len(series[0]))
	for i, pt := range series[0] {
		labels[i] = strconv.FormatFloat(pt.X, 'f', 3, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Frame Translation", Width: "1000px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: f.ID(), Subtitle: fmt.Sprintf("samples=%d generation=%d", f.Len(), snap.Generation())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m"}),
	)
	line.SetXAxis(labels)
	for i, axis := range []string{"x", "y", "z"} {
		data := make([]opts.LineData, len(series[i]))
		for j, pt := range series[i] {
			data[j] = opts.LineData{Value: pt.Y}
		}
		line.AddSeries(axis, data)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleFramePlot serves the same series as a static PNG.
func (ws *WebServer) handleFramePlot(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("frame")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "frame is required")
		return
	}
	snap := ws.snapshot(w)
	if snap == nil {
		return
	}
	f := snap.Frame(name)
	if f == nil || f.Len() == 0 {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no samples for frame %q", name))
		return
	}

	var buf bytes.Buffer
	if err := NewTrajectoryPlotter().WritePNG(&buf, f); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}
