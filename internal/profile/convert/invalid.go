package convert

import (
	"math"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// ApplyInvalid overwrites every masked-out element of the X and Z planes
// with that plane's maximum representable value, in place. Valid elements
// are untouched. After this stage a consumer that ignores the mask still
// sees an explicit, channel-appropriate invalid marker instead of garbage.
//
// With no mask attached the stage is a no-op.
type ApplyInvalid struct{}

// NewApplyInvalid creates the stage.
func NewApplyInvalid() ApplyInvalid { return ApplyInvalid{} }

// Convert clears masked-out elements to the invalid sentinel.
func (ApplyInvalid) Convert(d profile.Data) profile.Data {
	if d.Valid == nil {
		return d
	}
	applyInvalid(d.X, d.Valid)
	applyInvalid(d.Z, d.Valid)
	return d
}

// InvalidSentinel returns the write-back value used for masked-out elements
// of a plane of the given kind: the maximum representable value.
func InvalidSentinel(k profile.Kind) float64 {
	if k == profile.KindU16 {
		return rawFullScale
	}
	return math.MaxFloat64
}

func applyInvalid(p *profile.Plane, m *profile.Mask) {
	for y := 0; y < p.Shape.Height; y++ {
		bits := m.Row(y)
		switch p.Kind {
		case profile.KindU16:
			row := p.RowU16(y)
			for x := range row {
				if bits[x] == 0 {
					row[x] = rawFullScale
				}
			}
		case profile.KindF64:
			row := p.RowF64(y)
			for x := range row {
				if bits[x] == 0 {
					row[x] = math.MaxFloat64
				}
			}
		}
	}
}
