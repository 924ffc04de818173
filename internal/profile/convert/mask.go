package convert

import "github.com/scanline-data/profile.scan/internal/profile"

// DeriveMask computes a per-sample validity mask by comparing the Z plane
// against the sensor's invalid sentinel: a sample is valid exactly where
// Z differs from the sentinel. The X and Z planes pass through untouched;
// only the mask is attached to the returned buffer.
//
// The mask buffer is allocated once at construction and rewritten every
// call, so results from consecutive frames alias the same storage.
type DeriveMask struct {
	invalid uint16
	mask    *profile.Mask
}

// NewDeriveMask creates the stage for the given buffer shape and invalid
// sentinel value.
func NewDeriveMask(shape profile.Shape, invalid uint16) (*DeriveMask, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &DeriveMask{
		invalid: invalid,
		mask:    profile.NewMask(shape.Width, shape.Height),
	}, nil
}

// Convert derives the mask from Z and attaches it.
func (s *DeriveMask) Convert(d profile.Data) profile.Data {
	h := d.Z.Shape.Height
	for y := 0; y < h; y++ {
		src := d.Z.RowU16(y)
		dst := s.mask.Row(y)
		for x, v := range src {
			if v != s.invalid {
				dst[x] = 1
			} else {
				dst[x] = 0
			}
		}
	}
	d.Valid = s.mask
	return d
}
