package convert

import "github.com/scanline-data/profile.scan/internal/profile"

// rawFullScale is the full-scale value of the sensor's 16-bit encoding.
// Flipping maps v to rawFullScale−v, inverting the measurement axis.
const rawFullScale = 65535

// FlipX inverts every raw X value in place. Inserted at chain construction
// when the device reports a mirrored lateral axis (FlipPos feature).
type FlipX struct{}

// NewFlipX creates the stage.
func NewFlipX() FlipX { return FlipX{} }

// Convert mutates the X plane in place and returns the buffer unchanged
// otherwise.
func (FlipX) Convert(d profile.Data) profile.Data {
	flipPlane(d.X)
	return d
}

// FlipZ inverts every raw Z value in place. Inserted at chain construction
// when the device reports an inverted distance axis (FlipDist feature).
type FlipZ struct{}

// NewFlipZ creates the stage.
func NewFlipZ() FlipZ { return FlipZ{} }

// Convert mutates the Z plane in place and returns the buffer unchanged
// otherwise.
func (FlipZ) Convert(d profile.Data) profile.Data {
	flipPlane(d.Z)
	return d
}

func flipPlane(p *profile.Plane) {
	for y := 0; y < p.Shape.Height; y++ {
		row := p.RowU16(y)
		for x, v := range row {
			row[x] = rawFullScale - v
		}
	}
}
