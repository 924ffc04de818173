package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/process"
)

// WebServer handles the HTTP interface for monitoring the conversion
// pipeline. It provides endpoints for health checks, pipeline state, and
// debugging charts of the current profile and depth map.
type WebServer struct {
	address   string
	stats     *PacketStats
	single    *process.SingleProfile
	depth     *process.DepthMapProcessor
	rangeSpec profile.RangeSpec
	source    string
	runID     string
	server    *http.Server
	startTime time.Time
}

// WebServerConfig contains configuration options for the web server.
// Single and Depth are optional; endpoints for an absent processor return
// 404.
type WebServerConfig struct {
	Address   string
	Stats     *PacketStats
	Single    *process.SingleProfile
	Depth     *process.DepthMapProcessor
	RangeSpec profile.RangeSpec
	Source    string
	RunID     string
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		stats:     config.Stats,
		single:    config.Single,
		depth:     config.Depth,
		rangeSpec: config.RangeSpec,
		source:    config.Source,
		runID:     config.RunID,
		startTime: time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
// when the context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		profile.Opsf("[web] starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			profile.Opsf("[web] server error: %v", err)
		}
	}()

	<-ctx.Done()
	profile.Opsf("[web] shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		profile.Opsf("[web] shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			profile.Opsf("[web] force close error: %v", err)
		}
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/profile", ws.handleProfileState)
	mux.HandleFunc("/api/depthmap", ws.handleDepthMapState)
	mux.HandleFunc("/debug/charts/profile", ws.handleProfileChart)
	mux.HandleFunc("/debug/charts/depthmap", ws.handleDepthMapChart)
	mux.HandleFunc("/debug/charts/traffic", ws.handleTrafficChart)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStatus reports pipeline configuration and current throughput.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ws.writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	status := map[string]interface{}{
		"range":  ws.rangeSpec.Name,
		"source": ws.source,
		"run_id": ws.runID,
		"uptime": time.Since(ws.startTime).Round(time.Second).String(),
	}
	if ws.depth != nil {
		status["mode"] = "depthmap"
		status["frames_processed"] = ws.depth.FramesProcessed()
		status["points_accumulated"] = ws.depth.Cloud().Len()
	} else if ws.single != nil {
		status["mode"] = "single"
		status["frame"] = ws.single.View().Frame
	}
	if ws.stats != nil {
		if snap := ws.stats.GetLatestSnapshot(); snap != nil {
			status["packets_per_sec"] = snap.PacketsPerSec
			status["mb_per_sec"] = snap.MBPerSec
			status["frames_per_sec"] = snap.FramesPerSec
			status["dropped"] = snap.DroppedCount
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleProfileState returns the current single-profile view as JSON.
// Query params:
//   - include_points (optional; default true) set to "false" for metadata only
func (ws *WebServer) handleProfileState(w http.ResponseWriter, r *http.Request) {
	if ws.single == nil {
		ws.writeJSONError(w, http.StatusNotFound, "single-profile processor not configured")
		return
	}

	v := ws.single.View()
	resp := map[string]interface{}{
		"frame":        v.Frame,
		"pixel_size":   v.PixelSize,
		"display_w":    v.DisplayW,
		"display_h":    v.DisplayH,
		"world_size_x": v.Volume.WorldSizeX(),
		"world_size_z": v.Volume.WorldSizeZ(),
	}
	if r.URL.Query().Get("include_points") != "false" {
		resp["x"] = v.X
		resp["z"] = v.Z
		resp["valid"] = v.Valid
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleDepthMapState returns depth-map calibration and fill statistics.
func (ws *WebServer) handleDepthMapState(w http.ResponseWriter, r *http.Request) {
	if ws.depth == nil {
		ws.writeJSONError(w, http.StatusNotFound, "depth-map processor not configured")
		return
	}

	dm := ws.depth.DepthMap()
	pix := dm.Snapshot()
	zs := make([]float64, 0, len(pix))
	for _, g := range pix {
		if g != process.InvalidDepthGray {
			zs = append(zs, dm.WorldPosZ+float64(g)*dm.GraySizeZ)
		}
	}

	resp := map[string]interface{}{
		"width":            dm.Width,
		"height":           dm.Height,
		"origin_x":         dm.OriginX,
		"origin_y":         dm.OriginY,
		"pixel_size_x":     dm.PixelSizeX,
		"pixel_size_y":     dm.PixelSizeY,
		"world_pos_z":      dm.WorldPosZ,
		"gray_size_z":      dm.GraySizeZ,
		"filled_cells":     len(zs),
		"total_cells":      len(pix),
		"fill_percent":     fmt.Sprintf("%.1f", 100*float64(len(zs))/float64(len(pix))),
		"frames_processed": ws.depth.FramesProcessed(),
	}
	if len(zs) > 0 {
		resp["mean_z"] = stat.Mean(zs, nil)
		resp["stddev_z"] = stat.StdDev(zs, nil)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
