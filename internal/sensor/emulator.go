package sensor

import (
	"context"
	"math"
	"time"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// EmulatorConfig shapes the synthetic scanner.
type EmulatorConfig struct {
	ProfileSize int
	NbProfiles  int
	Interval    time.Duration // time between frames

	// AmplitudeGray is the peak deviation of the synthetic surface around
	// the encoding midpoint, in gray levels.
	AmplitudeGray float64
	// DropoutPeriod invalidates every Nth sample (Z = invalid sentinel) to
	// exercise the mask path. Zero disables dropouts.
	DropoutPeriod int
}

// Emulator is a development acquisition source: it synthesises container
// frames of a sinusoidal surface advancing under the scanner, including
// periodic invalid readings, and invokes the frame hook at a fixed rate.
type Emulator struct {
	cfg   EmulatorConfig
	buf   []uint16
	frame uint32
}

// NewEmulator creates an emulator with the given configuration.
func NewEmulator(cfg EmulatorConfig) *Emulator {
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	if cfg.AmplitudeGray == 0 {
		cfg.AmplitudeGray = 12000
	}
	return &Emulator{
		cfg: cfg,
		buf: make([]uint16, 2*cfg.ProfileSize*cfg.NbProfiles),
	}
}

// Run emits frames until the context is cancelled. The frame buffer is
// reused between emissions, matching live acquisition ownership.
func (e *Emulator) Run(ctx context.Context, handler FrameHandler) error {
	profile.Opsf("[emulator] started: %dx%d profiles every %v", e.cfg.ProfileSize, e.cfg.NbProfiles, e.cfg.Interval)
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			profile.Opsf("[emulator] stopping after %d frames", e.frame)
			return ctx.Err()
		case <-ticker.C:
			e.FillFrame(e.buf, e.frame)
			handler(e.buf)
			e.frame++
		}
	}
}

// FillFrame writes one synthetic container frame for the given frame
// sequence into buf (dual-band layout, Z band then X band per row).
func (e *Emulator) FillFrame(buf []uint16, frameSeq uint32) {
	n := e.cfg.ProfileSize
	for row := 0; row < e.cfg.NbProfiles; row++ {
		// Phase advances with transport position so the depth map shows a
		// travelling wave rather than a static ridge.
		phase := float64(frameSeq)*float64(e.cfg.NbProfiles)*0.01 + float64(row)*0.01
		base := row * 2 * n
		for x := 0; x < n; x++ {
			z := 32768 + e.cfg.AmplitudeGray*math.Sin(2*math.Pi*(float64(x)/float64(n)+phase))
			if e.cfg.DropoutPeriod > 0 && (row*n+x)%e.cfg.DropoutPeriod == 0 {
				z = float64(InvalidValue)
			}
			buf[base+x] = uint16(z)
			// Lateral positions sweep the full encoding range.
			buf[base+n+x] = uint16(float64(x) / float64(n-1) * 65535)
		}
	}
}
