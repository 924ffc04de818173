package profile

// Per-range conversion and measurement-volume tables for the supported
// scanCONTROL operating ranges. The raw 16-bit encoding is signed-centred:
// gray level 32768 is the middle of the measuring field, so the world X
// offset places zero at the field centre and the Z offset adds the stand-off
// distance of the range.

// RangeSpec couples the calibration and measurement volume of one sensor
// operating range.
type RangeSpec struct {
	Name        string // range token as it appears in the device model name, e.g. "50"
	Calibration Calibration
	Volume      Range
}

// grayScales holds mm-per-gray-level for each supported range, largest first.
var grayScales = []float64{0.005, 0.002, 0.001, 0.0005}

// standOffs holds the world Z stand-off distance (mm) for each range.
var standOffs = []float64{250.0, 95.0, 65.0, 55.0}

// RangeTable lists the supported operating ranges in decreasing size order.
// Range tokens are matched in this order against device model names so the
// longest token ("100") cannot be shadowed by a shorter one ("10").
var RangeTable = []RangeSpec{
	{Name: "100", Calibration: rangeCal(0), Volume: Range{MinX: -143.5 / 2, MinZ: 125.0, MaxX: 143.5 / 2, MaxZ: 390.0}},
	{Name: "50", Calibration: rangeCal(1), Volume: Range{MinX: -60.0 / 2, MinZ: 65.0, MaxX: 60.0 / 2, MaxZ: 125.0}},
	{Name: "25", Calibration: rangeCal(2), Volume: Range{MinX: -29.3 / 2, MinZ: 53.0, MaxX: 29.3 / 2, MaxZ: 79.0}},
	{Name: "10", Calibration: rangeCal(3), Volume: Range{MinX: -10.7 / 2, MinZ: 52.5, MaxX: 10.7 / 2, MaxZ: 60.5}},
}

func rangeCal(i int) Calibration {
	s := grayScales[i]
	return Calibration{
		OffsetX: -32768 * s,
		OffsetZ: -32768*s + standOffs[i],
		ScaleX:  s,
		ScaleZ:  s,
	}
}

// LookupRange returns the RangeSpec whose token matches name, or false when
// the range is not supported.
func LookupRange(name string) (RangeSpec, bool) {
	for _, spec := range RangeTable {
		if spec.Name == name {
			return spec, true
		}
	}
	return RangeSpec{}, false
}
