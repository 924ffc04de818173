package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/scanline-data/profile.scan/internal/profile/process"
)

// SnapshotPlotter writes PNG snapshots of the pipeline outputs for offline
// inspection: the latest calibrated profile as a scatter plot and the
// extracted depth map as a heat map.
type SnapshotPlotter struct {
	mu        sync.Mutex
	outputDir string
	seq       int
}

// NewSnapshotPlotter creates a plotter writing into outputDir, creating it
// if needed.
func NewSnapshotPlotter(outputDir string) (*SnapshotPlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &SnapshotPlotter{outputDir: outputDir}, nil
}

// OutputDir returns the directory snapshots are written to.
func (sp *SnapshotPlotter) OutputDir() string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.outputDir
}

// SaveProfilePNG plots the valid points of a profile view and returns the
// written file path.
func (sp *SnapshotPlotter) SaveProfilePNG(v process.ScatterView) (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Profile Frame %d", v.Frame)
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Z (mm)"
	p.X.Min, p.X.Max = v.Volume.MinX, v.Volume.MaxX
	p.Y.Min, p.Y.Max = v.Volume.MinZ, v.Volume.MaxZ

	pts := make(plotter.XYs, 0, len(v.X))
	for i := range v.X {
		if !v.Valid[i] {
			continue
		}
		pts = append(pts, plotter.XY{X: v.X[i], Y: v.Z[i]})
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", err
	}
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Color = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	p.Add(scatter)

	sp.seq++
	file := filepath.Join(sp.outputDir, fmt.Sprintf("profile_%04d.png", sp.seq))
	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save profile plot: %w", err)
	}
	return file, nil
}

// SaveDepthPNG plots the depth map as a heat map in world coordinates and
// returns the written file path. Empty cells are left blank.
func (sp *SnapshotPlotter) SaveDepthPNG(dm *process.DepthMap) (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	p := plot.New()
	p.Title.Text = "Corrected Depth Map"
	p.X.Label.Text = "X (mm)"
	p.Y.Label.Text = "Y (mm)"

	grid := &depthGrid{dm: dm, pix: dm.Snapshot()}
	hm := plotter.NewHeatMap(grid, palette.Heat(16, 1))
	p.Add(hm)

	sp.seq++
	file := filepath.Join(sp.outputDir, fmt.Sprintf("depthmap_%04d.png", sp.seq))
	if err := p.Save(10*vg.Inch, 10*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save depth plot: %w", err)
	}
	return file, nil
}

// depthGrid adapts a depth-map snapshot to the plotter grid interface.
// Empty cells decode to NaN so the heat map leaves them unpainted.
type depthGrid struct {
	dm  *process.DepthMap
	pix []uint16
}

func (g *depthGrid) Dims() (c, r int) { return g.dm.Width, g.dm.Height }

func (g *depthGrid) X(c int) float64 { return g.dm.OriginX + float64(c)*g.dm.PixelSizeX }

func (g *depthGrid) Y(r int) float64 { return g.dm.OriginY + float64(r)*g.dm.PixelSizeY }

func (g *depthGrid) Z(c, r int) float64 {
	gray := g.pix[r*g.dm.Width+c]
	if gray == process.InvalidDepthGray {
		return math.NaN()
	}
	return g.dm.WorldPosZ + float64(gray)*g.dm.GraySizeZ
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir builds a timestamped output directory for snapshots.
// For PCAP replays: <base>/<pcap_basename>/<timestamp>
// For live or emulated data: <base>/live_<timestamp>
func MakePlotOutputDir(baseDir, pcapFile string) string {
	ts := FormatTimestamp(time.Now())
	if pcapFile != "" {
		base := filepath.Base(pcapFile)
		ext := filepath.Ext(base)
		name := base[:len(base)-len(ext)]
		return filepath.Join(baseDir, name, ts)
	}
	return filepath.Join(baseDir, "live_"+ts)
}
