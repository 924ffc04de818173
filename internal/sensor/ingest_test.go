package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// captureProcessor records each frame handed to it.
type captureProcessor struct {
	frames []profile.Data
	points []int
}

func (p *captureProcessor) Process(d profile.Data) {
	p.frames = append(p.frames, d)
	p.points = append(p.points, d.NumPoints())
}

func TestIngestHandleFrame(t *testing.T) {
	t.Parallel()

	const n, h = 4, 2
	f := Features{ProfileSize: n, NbProfiles: h}
	conv, err := BuildConversion(f)
	require.NoError(t, err)

	proc := &captureProcessor{}
	in, err := NewIngest(f, conv, proc)
	require.NoError(t, err)

	buf := make([]uint16, 2*n*h)
	for i := range buf {
		buf[i] = uint16(i + 1)
	}
	in.Hook()(buf)

	require.Len(t, proc.frames, 1)
	assert.Equal(t, n*h, proc.points[0])

	// The processed frame carries the derived mask; every Z sample here is
	// non-zero so everything is valid.
	got := proc.frames[0]
	require.NotNil(t, got.Valid)
	for i := 0; i < n*h; i++ {
		assert.Equal(t, uint8(1), got.Valid.Bits[i])
	}
}

func TestIngestNilChainPassesThrough(t *testing.T) {
	t.Parallel()

	f := Features{ProfileSize: 2, NbProfiles: 1}
	proc := &captureProcessor{}
	in, err := NewIngest(f, nil, proc)
	require.NoError(t, err)

	in.HandleFrame([]uint16{5, 6, 7, 8})
	require.Len(t, proc.frames, 1)
	assert.Nil(t, proc.frames[0].Valid)
	assert.Equal(t, []uint16{5, 6}, proc.frames[0].Z.RowU16(0))
	assert.Equal(t, []uint16{7, 8}, proc.frames[0].X.RowU16(0))
}

func TestIngestValidation(t *testing.T) {
	t.Parallel()

	_, err := NewIngest(Features{ProfileSize: 0, NbProfiles: 1}, nil, &captureProcessor{})
	assert.Error(t, err)
	_, err = NewIngest(Features{ProfileSize: 2, NbProfiles: 1}, nil, nil)
	assert.Error(t, err)
}

func TestEmulatorFillFrame(t *testing.T) {
	t.Parallel()

	const n, h = 16, 4
	e := NewEmulator(EmulatorConfig{ProfileSize: n, NbProfiles: h, DropoutPeriod: 5})

	buf := make([]uint16, 2*n*h)
	e.FillFrame(buf, 0)

	for row := 0; row < h; row++ {
		base := row * 2 * n
		// X band sweeps the full encoding range monotonically.
		assert.Equal(t, uint16(0), buf[base+n])
		assert.Equal(t, uint16(65535), buf[base+2*n-1])
		for i := 1; i < n; i++ {
			assert.Greater(t, buf[base+n+i], buf[base+n+i-1])
		}
	}

	// Every 5th sample is a dropout carrying the invalid sentinel.
	dropouts := 0
	for row := 0; row < h; row++ {
		for x := 0; x < n; x++ {
			if buf[row*2*n+x] == InvalidValue {
				dropouts++
			}
		}
	}
	assert.GreaterOrEqual(t, dropouts, n*h/5)
}

func TestEmulatorRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	e := NewEmulator(EmulatorConfig{ProfileSize: 8, NbProfiles: 2, Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	frames := 0
	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx, func(buf []uint16) {
			frames++
			if frames >= 3 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.GreaterOrEqual(t, frames, 3)
	case <-time.After(5 * time.Second):
		t.Fatal("emulator did not stop after cancellation")
	}
}
