// Package profile defines the core data model for laser profile sensor data:
// shaped numeric planes, the three-plane profile buffer threaded through the
// conversion chain, calibration parameters, and the per-range sensor tables.
package profile

import "fmt"

// Kind identifies the numeric element type carried by a Plane.
type Kind int

const (
	// KindU16 is the raw 16-bit sensor encoding (gray levels).
	KindU16 Kind = iota
	// KindF64 is calibrated world units (millimetres).
	KindF64
)

func (k Kind) String() string {
	switch k {
	case KindU16:
		return "u16"
	case KindF64:
		return "f64"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Shape describes the 2-D layout of a plane. Stride is the element distance
// between the starts of consecutive rows; it may exceed Width when the plane
// is a band view into a wider container frame.
type Shape struct {
	Width  int
	Height int
	Stride int
}

// Contiguous reports whether rows are packed back to back.
func (s Shape) Contiguous() bool { return s.Stride == s.Width }

// NumElems returns the logical element count (Width × Height).
func (s Shape) NumElems() int { return s.Width * s.Height }

// SameSize reports whether two shapes cover the same logical area.
// Strides may differ: a band view and its flattened copy are the same size.
func (s Shape) SameSize(o Shape) bool {
	return s.Width == o.Width && s.Height == o.Height
}

// Validate returns an error for degenerate shapes. Shape problems are
// configuration defects and must be caught at construction time; the
// per-frame Convert path assumes shapes were validated.
func (s Shape) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("profile: invalid plane shape %dx%d", s.Width, s.Height)
	}
	if s.Stride < s.Width {
		return fmt.Errorf("profile: stride %d smaller than width %d", s.Stride, s.Width)
	}
	return nil
}

// Plane is a single numeric buffer with an explicit 2-D shape. Exactly one
// of U16/F64 is non-nil, selected by Kind.
//
// Owned marks whether the backing slice belongs to the stage that produced
// the plane. Borrowed planes alias either acquisition-owned memory (valid
// only until the acquisition hook returns) or a predecessor stage's scratch
// buffer (valid only until that stage's next Convert call). Callers must
// never retain a borrowed plane across frames.
type Plane struct {
	Shape Shape
	Kind  Kind
	Owned bool

	U16 []uint16
	F64 []float64
}

// NewPlaneU16 allocates an owned, zeroed uint16 plane with packed rows.
func NewPlaneU16(w, h int) *Plane {
	return &Plane{
		Shape: Shape{Width: w, Height: h, Stride: w},
		Kind:  KindU16,
		Owned: true,
		U16:   make([]uint16, w*h),
	}
}

// NewPlaneF64 allocates an owned, zeroed float64 plane with packed rows.
func NewPlaneF64(w, h int) *Plane {
	return &Plane{
		Shape: Shape{Width: w, Height: h, Stride: w},
		Kind:  KindF64,
		Owned: true,
		F64:   make([]float64, w*h),
	}
}

// RowU16 returns row y of a uint16 plane, honouring the stride.
func (p *Plane) RowU16(y int) []uint16 {
	off := y * p.Shape.Stride
	return p.U16[off : off+p.Shape.Width]
}

// RowF64 returns row y of a float64 plane, honouring the stride.
func (p *Plane) RowF64(y int) []float64 {
	off := y * p.Shape.Stride
	return p.F64[off : off+p.Shape.Width]
}

// Mask is a per-sample validity plane: one byte per element, non-zero for a
// usable sensor reading. Invalid samples are data, not errors; they travel
// in-band through the chain.
type Mask struct {
	Shape Shape
	Owned bool
	Bits  []uint8
}

// NewMask allocates an owned mask with packed rows, all samples invalid.
func NewMask(w, h int) *Mask {
	return &Mask{
		Shape: Shape{Width: w, Height: h, Stride: w},
		Owned: true,
		Bits:  make([]uint8, w*h),
	}
}

// Row returns row y of the mask, honouring the stride.
func (m *Mask) Row(y int) []uint8 {
	off := y * m.Shape.Stride
	return m.Bits[off : off+m.Shape.Width]
}

// Valid reports whether element (x, y) holds a usable reading.
func (m *Mask) Valid(x, y int) bool {
	return m.Bits[y*m.Shape.Stride+x] != 0
}

// Data is the profile buffer passed through the conversion chain: paired X
// and Z planes of identical logical size plus an optional validity mask.
// It is a view; the planes and mask are independently owned (see Plane).
type Data struct {
	X     *Plane
	Z     *Plane
	Valid *Mask
}

// NumPoints returns the number of samples in the buffer.
func (d Data) NumPoints() int {
	if d.X == nil {
		return 0
	}
	return d.X.Shape.NumElems()
}

// Validate checks the cross-plane invariants: X and Z always have identical
// logical shape, and the mask (when present) covers the same element count.
func (d Data) Validate() error {
	if d.X == nil || d.Z == nil {
		return fmt.Errorf("profile: data requires both X and Z planes")
	}
	if err := d.X.Shape.Validate(); err != nil {
		return err
	}
	if err := d.Z.Shape.Validate(); err != nil {
		return err
	}
	if !d.X.Shape.SameSize(d.Z.Shape) {
		return fmt.Errorf("profile: X shape %dx%d does not match Z shape %dx%d",
			d.X.Shape.Width, d.X.Shape.Height, d.Z.Shape.Width, d.Z.Shape.Height)
	}
	if d.X.Kind != d.Z.Kind {
		return fmt.Errorf("profile: X kind %s does not match Z kind %s", d.X.Kind, d.Z.Kind)
	}
	if d.Valid != nil && d.Valid.Shape.NumElems() != d.X.Shape.NumElems() {
		return fmt.Errorf("profile: mask has %d elements, planes have %d",
			d.Valid.Shape.NumElems(), d.X.Shape.NumElems())
	}
	return nil
}

// Calibration maps raw gray-level units to world units with an affine
// transform per axis: world = raw*Scale + Offset, multiply first.
// One instance per sensor operating range; immutable once constructed.
type Calibration struct {
	OffsetX float64 // world-space X offset (mm)
	OffsetZ float64 // world-space Z offset (mm)
	ScaleX  float64 // world mm per gray level, X axis
	ScaleZ  float64 // world mm per gray level, Z axis
}

// Range bounds the sensor's valid measurement volume in world units.
// Used to size and calibrate display and extraction targets; immutable.
type Range struct {
	MinX float64
	MinZ float64
	MaxX float64
	MaxZ float64
}

// WorldSizeX returns the lateral extent of the measurement volume.
func (r Range) WorldSizeX() float64 { return r.MaxX - r.MinX }

// WorldSizeZ returns the height extent of the measurement volume.
func (r Range) WorldSizeZ() float64 { return r.MaxZ - r.MinZ }
