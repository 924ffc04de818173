package sensor

import (
	"fmt"
	"strings"

	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/convert"
)

// ExpectedVendor is the device vendor string a compatible scanner reports.
const ExpectedVendor = "MICRO-EPSILON Optronic GmbH"

// ExpectedModels lists the supported scanner families. The operating range
// token follows the family name in the reported model string.
var ExpectedModels = []string{
	"scanCONTROL 26",
	"scanCONTROL 29",
}

// InvalidValue is the raw Z gray level the sensor emits for an out-of-range
// or missing reading. It is data, not an error: the mask-derivation stage
// turns it into the validity mask.
const InvalidValue uint16 = 0

// DeviceInfo is the identity a discovered device reports. Discovery itself
// happens outside this module; verification of what was discovered happens
// here.
type DeviceInfo struct {
	Vendor string
	Model  string
}

// Features is the sensor configuration relevant to chain construction,
// read from the device at setup time.
type Features struct {
	FlipPos     bool // lateral axis mirrored (FlipPos feature)
	FlipDist    bool // distance axis inverted (FlipDist feature)
	ProfileSize int  // samples per profile (container resolution)
	NbProfiles  int  // profiles per transmitted frame
}

// VerifyDevice checks a reported device identity against the supported
// vendor, model families and operating ranges, and resolves the matching
// range spec. Range tokens are tried in decreasing size order so "100" is
// never shadowed by "10".
func VerifyDevice(info DeviceInfo) (profile.RangeSpec, error) {
	if info.Vendor != ExpectedVendor {
		return profile.RangeSpec{}, fmt.Errorf("sensor: unexpected vendor %q", info.Vendor)
	}
	for _, model := range ExpectedModels {
		idx := strings.Index(info.Model, model)
		if idx < 0 {
			continue
		}
		rest := info.Model[idx+len(model):]
		for _, spec := range profile.RangeTable {
			if strings.Contains(rest, spec.Name) {
				return spec, nil
			}
		}
		return profile.RangeSpec{}, fmt.Errorf("sensor: model %q has no supported range token", info.Model)
	}
	return profile.RangeSpec{}, fmt.Errorf("sensor: unsupported model %q", info.Model)
}

// BuildConversion constructs the acquisition-side conversion chain decided
// by the device configuration: mask derivation always, value flips only
// when the corresponding orientation feature is set.
func BuildConversion(f Features) (*convert.Chain, error) {
	shape := profile.Shape{Width: f.ProfileSize, Height: f.NbProfiles, Stride: f.ProfileSize}
	mask, err := convert.NewDeriveMask(shape, InvalidValue)
	if err != nil {
		return nil, fmt.Errorf("sensor: build mask stage: %w", err)
	}
	stages := []convert.Stage{mask}
	if f.FlipPos {
		stages = append(stages, convert.NewFlipX())
	}
	if f.FlipDist {
		stages = append(stages, convert.NewFlipZ())
	}
	return convert.NewChain(stages...), nil
}
