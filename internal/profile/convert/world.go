package convert

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// ToWorld converts raw gray-level X/Z planes into calibrated world
// coordinates: world = raw*scale + offset, multiply first, applied
// independently per axis. Results are never clamped; out-of-range values
// pass through. The upstream validity mask is aliased onto the output,
// not copied.
//
// The float output planes are allocated once at construction and rewritten
// every call.
type ToWorld struct {
	cal  profile.Calibration
	x, z *profile.Plane
}

// NewToWorld creates the stage for the given calibration and buffer shape.
func NewToWorld(cal profile.Calibration, shape profile.Shape) (*ToWorld, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if cal == (profile.Calibration{}) {
		return nil, fmt.Errorf("convert: zero calibration")
	}
	return &ToWorld{
		cal: cal,
		x:   profile.NewPlaneF64(shape.Width, shape.Height),
		z:   profile.NewPlaneF64(shape.Width, shape.Height),
	}, nil
}

// Convert writes calibrated values into the stage's float planes and
// returns them, passing the mask through by reference.
func (s *ToWorld) Convert(d profile.Data) profile.Data {
	calibratePlane(d.X, s.x, s.cal.ScaleX, s.cal.OffsetX)
	calibratePlane(d.Z, s.z, s.cal.ScaleZ, s.cal.OffsetZ)
	return profile.Data{X: s.x, Z: s.z, Valid: d.Valid}
}

func calibratePlane(src, dst *profile.Plane, scale, offset float64) {
	for y := 0; y < src.Shape.Height; y++ {
		in := src.RowU16(y)
		out := dst.RowF64(y)
		for x, v := range in {
			out[x] = float64(v)
		}
		floats.Scale(scale, out)
		floats.AddConst(offset, out)
	}
}
