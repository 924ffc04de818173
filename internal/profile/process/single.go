package process

import (
	"sync"

	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/convert"
)

// ScatterView is the read-only display handoff of the single-profile
// processor: the current frame's calibrated points against the calibrated
// background extent. The processor is the sole writer; a display subsystem
// renders it and never mutates it.
type ScatterView struct {
	X     []float64
	Z     []float64
	Valid []bool

	Volume    profile.Range
	PixelSize float64 // mm per display pixel, both axes
	DisplayW  int
	DisplayH  int
	Frame     uint64 // sequence number of the frame on display
}

// SingleProfile renders one profile per frame as instantaneous 3D points in
// world coordinates. It holds no accumulation state: every Process call
// clears and redraws the full point set, a visualization refresh.
//
// Masked-out points are still part of the view, carrying the invalid
// sentinel as their coordinates; the mask travels alongside so a renderer
// may choose to suppress them.
type SingleProfile struct {
	nbPoints int
	chain    *convert.Chain

	mu   sync.RWMutex
	view ScatterView
}

// NewSingleProfile builds the processor for one operating range. The
// display raster is sized from the measurement volume with a per-axis
// world-to-pixel scale of worldSizeX/profileSize.
func NewSingleProfile(cal profile.Calibration, volume profile.Range, profileSize int) (*SingleProfile, error) {
	chain, err := NewPointsChain(cal, profileSize, 1)
	if err != nil {
		return nil, err
	}
	pixelSize := volume.WorldSizeX() / float64(profileSize)
	return &SingleProfile{
		nbPoints: profileSize,
		chain:    chain,
		view: ScatterView{
			X:         make([]float64, profileSize),
			Z:         make([]float64, profileSize),
			Valid:     make([]bool, profileSize),
			Volume:    volume,
			PixelSize: pixelSize,
			DisplayW:  int(volume.WorldSizeX() / pixelSize),
			DisplayH:  int(volume.WorldSizeZ() / pixelSize),
		},
	}, nil
}

// Process converts the frame to flat calibrated arrays and replaces the
// displayed point set.
func (p *SingleProfile) Process(d profile.Data) {
	conv := p.chain.Convert(d)

	p.mu.Lock()
	copy(p.view.X, conv.X.F64)
	copy(p.view.Z, conv.Z.F64)
	for i := range p.view.Valid {
		p.view.Valid[i] = conv.Valid != nil && conv.Valid.Bits[i] != 0
	}
	p.view.Frame++
	frame := p.view.Frame
	p.mu.Unlock()

	profile.Tracef("[single] frame %d: redrew %d points", frame, p.nbPoints)
}

// View returns a copy of the current display state.
func (p *SingleProfile) View() ScatterView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := p.view
	v.X = append([]float64(nil), p.view.X...)
	v.Z = append([]float64(nil), p.view.Z...)
	v.Valid = append([]bool(nil), p.view.Valid...)
	return v
}
