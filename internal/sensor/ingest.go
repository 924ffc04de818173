package sensor

import (
	"fmt"

	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/convert"
	"github.com/scanline-data/profile.scan/internal/profile/process"
)

// Ingest bridges assembled container frames to a profile processor: it
// splits the dual-band buffer, runs the acquisition-side conversion chain
// (mask derivation and orientation flips), and hands the result to the
// processor. One Ingest serves one processor; calls are sequential, one per
// captured frame.
type Ingest struct {
	profileSize int
	nbProfiles  int
	conv        *convert.Chain
	proc        process.Processor
}

// NewIngest wires a conversion chain and processor to the container
// geometry. conv may be nil for a pass-through (identity) conversion.
func NewIngest(f Features, conv *convert.Chain, proc process.Processor) (*Ingest, error) {
	if f.ProfileSize <= 0 || f.NbProfiles <= 0 {
		return nil, fmt.Errorf("sensor: invalid container geometry %dx%d", f.ProfileSize, f.NbProfiles)
	}
	if proc == nil {
		return nil, fmt.Errorf("sensor: ingest requires a processor")
	}
	return &Ingest{
		profileSize: f.ProfileSize,
		nbProfiles:  f.NbProfiles,
		conv:        conv,
		proc:        proc,
	}, nil
}

// HandleFrame is the acquisition hook: called once per assembled frame
// with the dual-band buffer, which remains acquisition-owned and is reused
// after the call returns.
func (in *Ingest) HandleFrame(buf []uint16) {
	data := SplitBands(buf, in.profileSize, in.nbProfiles)
	converted := in.conv.Convert(data)
	in.proc.Process(converted)
	profile.Tracef("[ingest] processed frame of %d points", data.NumPoints())
}

// Hook returns HandleFrame as a FrameHandler for the assembler.
func (in *Ingest) Hook() FrameHandler { return in.HandleFrame }
