package process

import (
	"fmt"
	"sync"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// Depth-map gray-level encoding. The raster is 16-bit; the top gray level is
// reserved to mark cells with no accumulated sample, so valid depths occupy
// [0, maxValidGray].
const (
	// InvalidDepthGray marks a raster cell no point fell into.
	InvalidDepthGray uint16 = 65535
	maxValidGray            = 65534
)

// DepthMap is a calibrated 2-D raster whose gray levels encode world Z.
// X-axis pixel size is worldSizeX/width, Y-axis pixel size is the conveyor
// advance per profile (one row per physical profile), and the gray scale is
// worldSizeZ divided by the full 16-bit range, with the gray origin at the
// range's minimum Z.
//
// The depth-map processor is the sole writer; display consumers read
// snapshots through the mutex.
type DepthMap struct {
	Width  int
	Height int

	OriginX    float64 // world X of column 0
	OriginY    float64 // world Y of row 0
	PixelSizeX float64 // mm per column
	PixelSizeY float64 // mm per row (conveyor speed)
	WorldPosZ  float64 // world Z at gray level 0
	GraySizeZ  float64 // mm per gray level

	mu  sync.RWMutex
	pix []uint16
}

// NewDepthMap builds a cleared raster calibrated against the sensor range,
// with one column per profile sample and one row per profile.
func NewDepthMap(volume profile.Range, worldPosY, conveyorSpeed float64, profileSize, nbProfiles int) (*DepthMap, error) {
	if profileSize <= 0 || nbProfiles <= 0 {
		return nil, fmt.Errorf("process: invalid depth map size %dx%d", profileSize, nbProfiles)
	}
	if conveyorSpeed <= 0 {
		return nil, fmt.Errorf("process: conveyor speed must be positive, got %g", conveyorSpeed)
	}
	dm := &DepthMap{
		Width:      profileSize,
		Height:     nbProfiles,
		OriginX:    volume.MinX,
		OriginY:    worldPosY,
		PixelSizeX: volume.WorldSizeX() / float64(profileSize),
		PixelSizeY: conveyorSpeed,
		WorldPosZ:  volume.MinZ,
		GraySizeZ:  volume.WorldSizeZ() / float64(InvalidDepthGray),
		pix:        make([]uint16, profileSize*nbProfiles),
	}
	dm.clearLocked()
	return dm, nil
}

func (dm *DepthMap) clearLocked() {
	for i := range dm.pix {
		dm.pix[i] = InvalidDepthGray
	}
}

// cellOf maps a world X/Y position into the fixed extraction box. ok is
// false for points outside the raster.
func (dm *DepthMap) cellOf(x, y float64) (col, row int, ok bool) {
	col = int((x - dm.OriginX) / dm.PixelSizeX)
	row = int((y - dm.OriginY) / dm.PixelSizeY)
	if col < 0 || col >= dm.Width || row < 0 || row >= dm.Height {
		return 0, 0, false
	}
	return col, row, true
}

// grayOf encodes a world Z as a gray level, clamped into the valid band so
// an extreme sample cannot masquerade as the invalid marker.
func (dm *DepthMap) grayOf(z float64) uint16 {
	g := (z - dm.WorldPosZ) / dm.GraySizeZ
	if g < 0 {
		return 0
	}
	if g > maxValidGray {
		return maxValidGray
	}
	return uint16(g)
}

// Extract rebuilds the corrected depth map from the full accumulated cloud.
// Where several samples fall into one cell the one nearest the sensor wins
// (maximum Z), resolving occlusion from the viewing direction. Samples
// outside the extraction box, including invalid-sentinel coordinates, are
// ignored.
func (dm *DepthMap) Extract(cloud *Cloud) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.clearLocked()
	cloud.Walk(func(x, y, z float64) {
		col, row, ok := dm.cellOf(x, y)
		if !ok {
			return
		}
		g := dm.grayOf(z)
		idx := row*dm.Width + col
		if dm.pix[idx] == InvalidDepthGray || g > dm.pix[idx] {
			dm.pix[idx] = g
		}
	})
}

// Snapshot returns a copy of the raster contents.
func (dm *DepthMap) Snapshot() []uint16 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return append([]uint16(nil), dm.pix...)
}

// At returns the gray level of one cell.
func (dm *DepthMap) At(col, row int) uint16 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.pix[row*dm.Width+col]
}

// WorldZAt decodes the world Z encoded at one cell. ok is false when the
// cell holds the invalid marker.
func (dm *DepthMap) WorldZAt(col, row int) (float64, bool) {
	g := dm.At(col, row)
	if g == InvalidDepthGray {
		return 0, false
	}
	return dm.WorldPosZ + float64(g)*dm.GraySizeZ, true
}
