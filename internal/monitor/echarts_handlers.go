package monitor

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/scanline-data/profile.scan/internal/profile/process"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

var viridisColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// handleProfileChart renders a quick XZ scatter (HTML) of the latest single
// profile using go-echarts. This is a debugging-only endpoint (no auth) to
// inspect the calibrated point stream without a display client.
// Query params:
//   - show_invalid (optional; default false) include masked-out points
func (ws *WebServer) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	if ws.single == nil {
		ws.writeJSONError(w, http.StatusNotFound, "single-profile processor not configured")
		return
	}

	v := ws.single.View()
	if v.Frame == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no profile captured yet")
		return
	}
	showInvalid := r.URL.Query().Get("show_invalid") == "true"

	valid := make([]opts.ScatterData, 0, len(v.X))
	invalid := make([]opts.ScatterData, 0)
	for i := range v.X {
		if v.Valid[i] {
			valid = append(valid, opts.ScatterData{Value: []interface{}{v.X[i], v.Z[i]}})
		} else if showInvalid {
			invalid = append(invalid, opts.ScatterData{Value: []interface{}{v.X[i], v.Z[i]}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Profile Scatter", Theme: "dark", Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Calibrated Profile", Subtitle: fmt.Sprintf("range=%s frame=%d valid=%d/%d", ws.rangeSpec.Name, v.Frame, len(valid), len(v.X))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: v.Volume.MinX, Max: v.Volume.MaxX, Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: v.Volume.MinZ, Max: v.Volume.MaxZ, Name: "Z (mm)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("valid", valid, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))
	if showInvalid {
		scatter.AddSeries("invalid", invalid, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleDepthMapChart renders the extracted depth map as a colored scatter
// (one point per filled cell, colored by decoded world Z). Empty cells are
// omitted.
// Query params:
//   - max_points (optional; default 8000) to reduce payload size
func (ws *WebServer) handleDepthMapChart(w http.ResponseWriter, r *http.Request) {
	if ws.depth == nil {
		ws.writeJSONError(w, http.StatusNotFound, "depth-map processor not configured")
		return
	}

	dm := ws.depth.DepthMap()
	pix := dm.Snapshot()

	maxPoints := 8000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}

	filled := 0
	for _, g := range pix {
		if g != process.InvalidDepthGray {
			filled++
		}
	}
	if filled == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "depth map is empty")
		return
	}

	// Downsample by stride to stay within maxPoints
	stride := 1
	if filled > maxPoints {
		stride = int(math.Ceil(float64(filled) / float64(maxPoints)))
	}

	data := make([]opts.ScatterData, 0, filled/stride+1)
	minZ, maxZ := math.MaxFloat64, -math.MaxFloat64
	n := 0
	for row := 0; row < dm.Height; row++ {
		for col := 0; col < dm.Width; col++ {
			g := pix[row*dm.Width+col]
			if g == process.InvalidDepthGray {
				continue
			}
			if n++; (n-1)%stride != 0 {
				continue
			}
			x := dm.OriginX + float64(col)*dm.PixelSizeX
			y := dm.OriginY + float64(row)*dm.PixelSizeY
			z := dm.WorldPosZ + float64(g)*dm.GraySizeZ
			if z < minZ {
				minZ = z
			}
			if z > maxZ {
				maxZ = z
			}
			data = append(data, opts.ScatterData{Value: []interface{}{x, y, z}})
		}
	}
	if maxZ <= minZ {
		maxZ = minZ + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Depth Map", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Corrected Depth Map", Subtitle: fmt.Sprintf("range=%s points=%d stride=%d frames=%d", ws.rangeSpec.Name, len(data), stride, ws.depth.FramesProcessed())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (mm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (mm)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minZ),
			Max:        float32(maxZ),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("depth", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render depth chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleTrafficChart renders a simple bar chart of datagram/frame throughput.
func (ws *WebServer) handleTrafficChart(w http.ResponseWriter, r *http.Request) {
	if ws.stats == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no packet stats available")
		return
	}

	snap := ws.stats.GetLatestSnapshot()
	if snap == nil {
		snap = &StatsSnapshot{Timestamp: time.Now()}
	}

	x := []string{"Packets/s", "MB/s", "Frames/s", "Dropped (total)"}
	y := []opts.BarData{
		{Value: snap.PacketsPerSec},
		{Value: snap.MBPerSec},
		{Value: snap.FramesPerSec},
		{Value: snap.DroppedCount},
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Acquisition Traffic", Subtitle: snap.Timestamp.Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("traffic", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(bar)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
