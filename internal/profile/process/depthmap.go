package process

import (
	"sync/atomic"

	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/convert"
)

// DepthMapProcessor folds multi-profile frames into an accumulating point
// cloud and re-extracts a calibrated depth map from the full accumulated
// set every frame. Accumulation is monotonic: points are appended as one
// labeled batch per frame and never removed or replaced.
//
// Each sample's world Y is precomputed from its profile index within a
// frame: worldY = basePosY + profileIndex*conveyorSpeed, one scalar per
// profile row broadcast across the row's columns. That ties acquisition
// order to transport position, which is why frames must arrive in order.
type DepthMapProcessor struct {
	nbPoints int
	chain    *convert.Chain
	worldY   []float64

	cloud  *Cloud
	depth  *DepthMap
	frames atomic.Int64
}

// NewDepthMapProcessor builds the processor for one operating range.
// worldPosY is the transport position of the first profile of the first
// frame; conveyorSpeed is the advance per profile in mm.
func NewDepthMapProcessor(cal profile.Calibration, volume profile.Range, worldPosY, conveyorSpeed float64, profileSize, nbProfiles int) (*DepthMapProcessor, error) {
	chain, err := NewPointsChain(cal, profileSize, nbProfiles)
	if err != nil {
		return nil, err
	}
	depth, err := NewDepthMap(volume, worldPosY, conveyorSpeed, profileSize, nbProfiles)
	if err != nil {
		return nil, err
	}

	worldY := make([]float64, profileSize*nbProfiles)
	for y := 0; y < nbProfiles; y++ {
		curY := worldPosY + float64(y)*conveyorSpeed
		row := worldY[y*profileSize : (y+1)*profileSize]
		for x := range row {
			row[x] = curY
		}
	}

	return &DepthMapProcessor{
		nbPoints: profileSize * nbProfiles,
		chain:    chain,
		worldY:   worldY,
		cloud:    NewCloud(),
		depth:    depth,
	}, nil
}

// Process converts the frame, appends its samples to the cloud as one
// batch, and re-extracts the depth map over everything accumulated so far.
func (p *DepthMapProcessor) Process(d profile.Data) {
	conv := p.chain.Convert(d)

	label := p.cloud.Append(conv.X.F64, p.worldY, conv.Z.F64)
	p.depth.Extract(p.cloud)
	n := p.frames.Add(1)

	profile.Tracef("[depthmap] frame %d: batch %s, %d points accumulated", n, label, p.cloud.Len())
}

// FramesProcessed returns how many frames have been folded in.
func (p *DepthMapProcessor) FramesProcessed() int64 { return p.frames.Load() }

// Cloud exposes the accumulation container for read-only display use.
func (p *DepthMapProcessor) Cloud() *Cloud { return p.cloud }

// DepthMap exposes the extracted raster for read-only display use.
func (p *DepthMapProcessor) DepthMap() *DepthMap { return p.depth }
