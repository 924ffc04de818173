// Package process consumes converted profile data. A Processor owns a
// conversion chain and a processing mode: the single-profile processor
// refreshes an instantaneous 3D point view per frame, the depth-map
// processor folds every frame into an accumulating point cloud and
// re-extracts a calibrated depth raster.
//
// Processors follow the same calling discipline as the conversion stages:
// Process is invoked once per acquired frame, in acquisition order, to
// completion, with no overlap. Frame order matters to the depth-map
// processor because each profile's world Y is derived from its acquisition
// index.
package process

import (
	"fmt"

	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/convert"
)

// Processor is the sole per-frame entry point of the consumption side.
type Processor interface {
	// Process converts the frame through the owned chain and performs the
	// mode-specific work. The input's planes may reference acquisition-owned
	// memory valid only for the duration of the call.
	Process(d profile.Data)
}

// NewPointsChain builds the conversion tail shared by both processors:
// calibration to world coordinates, flattening to contiguous 1-D arrays,
// and invalid-sentinel write-back. profileSize is the samples per profile
// and nbProfiles the profiles per frame.
func NewPointsChain(cal profile.Calibration, profileSize, nbProfiles int) (*convert.Chain, error) {
	shape := profile.Shape{Width: profileSize, Height: nbProfiles, Stride: profileSize}
	toWorld, err := convert.NewToWorld(cal, shape)
	if err != nil {
		return nil, fmt.Errorf("process: build world stage: %w", err)
	}
	flatten, err := convert.NewFlatten(shape, profile.KindF64)
	if err != nil {
		return nil, fmt.Errorf("process: build flatten stage: %w", err)
	}
	return convert.NewChain(toWorld, flatten, convert.NewApplyInvalid()), nil
}
