package convert

import (
	"fmt"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// Flatten copies the upstream planes, which may be strided band views of a
// wider container frame, into contiguous 1-D buffers of the same element
// count, including the validity mask when one is attached. This is the
// boundary between the sensor-native 2-D layout, which upstream stages
// mutate in place for efficiency, and the flat X/Y/Z arrays point-cloud
// consumers require; flattening is deferred to the last necessary step.
//
// The flat output buffers are allocated once at construction and rewritten
// every call.
type Flatten struct {
	n    int
	kind profile.Kind
	x, z *profile.Plane
	mask *profile.Mask
}

// NewFlatten creates the stage for the given upstream shape and numeric
// kind. kind must match the plane kind arriving at this stage.
func NewFlatten(shape profile.Shape, kind profile.Kind) (*Flatten, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	n := shape.NumElems()
	s := &Flatten{n: n, kind: kind, mask: profile.NewMask(n, 1)}
	switch kind {
	case profile.KindU16:
		s.x = profile.NewPlaneU16(n, 1)
		s.z = profile.NewPlaneU16(n, 1)
	case profile.KindF64:
		s.x = profile.NewPlaneF64(n, 1)
		s.z = profile.NewPlaneF64(n, 1)
	default:
		return nil, fmt.Errorf("convert: unsupported flatten kind %s", kind)
	}
	return s, nil
}

// Convert copies the upstream buffers into the stage's flat storage.
func (s *Flatten) Convert(d profile.Data) profile.Data {
	flattenPlane(d.X, s.x)
	flattenPlane(d.Z, s.z)
	out := profile.Data{X: s.x, Z: s.z}
	if d.Valid != nil {
		off := 0
		for y := 0; y < d.Valid.Shape.Height; y++ {
			off += copy(s.mask.Bits[off:], d.Valid.Row(y))
		}
		out.Valid = s.mask
	}
	return out
}

func flattenPlane(src, dst *profile.Plane) {
	off := 0
	for y := 0; y < src.Shape.Height; y++ {
		switch src.Kind {
		case profile.KindU16:
			off += copy(dst.U16[off:], src.RowU16(y))
		case profile.KindF64:
			off += copy(dst.F64[off:], src.RowF64(y))
		}
	}
}
