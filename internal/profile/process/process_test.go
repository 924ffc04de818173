package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// identityCal maps gray levels straight to world mm, which keeps expected
// values readable in the assertions below.
var identityCal = profile.Calibration{ScaleX: 1, ScaleZ: 1}

func rawFrame(t *testing.T, w, h int, xVals, zVals []uint16) profile.Data {
	t.Helper()
	x := profile.NewPlaneU16(w, h)
	z := profile.NewPlaneU16(w, h)
	copy(x.U16, xVals)
	copy(z.U16, zVals)
	d := profile.Data{X: x, Z: z}
	require.NoError(t, d.Validate())
	return d
}

func TestNewPointsChainShape(t *testing.T) {
	t.Parallel()

	chain, err := NewPointsChain(identityCal, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, chain.Len())

	out := chain.Convert(rawFrame(t, 4, 2,
		[]uint16{0, 1, 2, 3, 4, 5, 6, 7},
		[]uint16{10, 11, 12, 13, 14, 15, 16, 17}))

	// Flat contiguous f64 output covering every sample.
	assert.Equal(t, profile.KindF64, out.X.Kind)
	assert.True(t, out.X.Shape.Contiguous())
	assert.Equal(t, 8, out.X.Shape.NumElems())
	assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, out.X.F64)
}

func TestCloudAccumulationIsMonotonic(t *testing.T) {
	t.Parallel()

	c := NewCloud()
	assert.Equal(t, 0, c.Len())

	l1 := c.Append([]float64{1, 2}, []float64{0, 0}, []float64{5, 6})
	l2 := c.Append([]float64{3}, []float64{1}, []float64{7})
	assert.NotEqual(t, l1, l2, "batch labels must be unique")
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 2, c.NumBatches())

	// Walk visits every sample in append order.
	var xs []float64
	c.Walk(func(x, y, z float64) { xs = append(xs, x) })
	assert.Equal(t, []float64{1, 2, 3}, xs)
}

func TestCloudCopiesInput(t *testing.T) {
	t.Parallel()

	src := []float64{1, 2, 3}
	c := NewCloud()
	c.Append(src, src, src)

	// Mutating the caller's slice after Append must not affect the cloud.
	src[0] = 99
	var first float64
	done := false
	c.Walk(func(x, y, z float64) {
		if !done {
			first, done = x, true
		}
	})
	assert.Equal(t, 1.0, first)
}

func TestDepthMapCalibration(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: -30, MaxX: 30, MinZ: 65, MaxZ: 125}
	dm, err := NewDepthMap(volume, 2.5, 0.05, 600, 100)
	require.NoError(t, err)

	assert.Equal(t, 600, dm.Width)
	assert.Equal(t, 100, dm.Height)
	assert.Equal(t, -30.0, dm.OriginX)
	assert.Equal(t, 2.5, dm.OriginY)
	assert.InDelta(t, 0.1, dm.PixelSizeX, 1e-12) // 60mm / 600 columns
	assert.Equal(t, 0.05, dm.PixelSizeY)
	assert.Equal(t, 65.0, dm.WorldPosZ)
	assert.InDelta(t, 60.0/65535, dm.GraySizeZ, 1e-12)

	// Fresh raster is all empty.
	assert.Equal(t, InvalidDepthGray, dm.At(0, 0))
	_, ok := dm.WorldZAt(0, 0)
	assert.False(t, ok)
}

func TestDepthMapRejectsBadGeometry(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 1, MinZ: 0, MaxZ: 1}
	_, err := NewDepthMap(volume, 0, 0.05, 0, 10)
	assert.Error(t, err)
	_, err = NewDepthMap(volume, 0, 0, 10, 10)
	assert.Error(t, err, "conveyor speed must be positive")
}

func TestDepthMapExtractNearestWins(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 10, MinZ: 0, MaxZ: 10}
	dm, err := NewDepthMap(volume, 0, 1.0, 10, 10)
	require.NoError(t, err)

	cloud := NewCloud()
	// Two samples in the same cell: the larger Z (nearer the sensor) must
	// win regardless of append order.
	cloud.Append([]float64{2.5, 2.5}, []float64{3.5, 3.5}, []float64{4.0, 8.0})
	// One sample outside the extraction box: ignored.
	cloud.Append([]float64{-5}, []float64{3}, []float64{9})

	dm.Extract(cloud)

	z, ok := dm.WorldZAt(2, 3)
	require.True(t, ok)
	assert.InDelta(t, 8.0, z, dm.GraySizeZ)

	// All other cells stay empty.
	filled := 0
	for _, g := range dm.Snapshot() {
		if g != InvalidDepthGray {
			filled++
		}
	}
	assert.Equal(t, 1, filled)
}

func TestDepthMapExtractIsFullRebuild(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 10, MinZ: 0, MaxZ: 10}
	dm, err := NewDepthMap(volume, 0, 1.0, 10, 10)
	require.NoError(t, err)

	first := NewCloud()
	first.Append([]float64{1.5}, []float64{1.5}, []float64{5})
	dm.Extract(first)
	_, ok := dm.WorldZAt(1, 1)
	require.True(t, ok)

	// Extracting from a different cloud must clear cells the new cloud does
	// not cover.
	second := NewCloud()
	second.Append([]float64{7.5}, []float64{7.5}, []float64{5})
	dm.Extract(second)

	_, ok = dm.WorldZAt(1, 1)
	assert.False(t, ok)
	_, ok = dm.WorldZAt(7, 7)
	assert.True(t, ok)
}

func TestDepthMapGrayClamping(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 10, MinZ: 0, MaxZ: 10}
	dm, err := NewDepthMap(volume, 0, 1.0, 10, 10)
	require.NoError(t, err)

	cloud := NewCloud()
	// World Z far above the volume: the gray must clamp below the invalid
	// marker, never masquerade as an empty cell.
	cloud.Append([]float64{0.5}, []float64{0.5}, []float64{1e6})
	// World Z below the volume: clamps to gray 0.
	cloud.Append([]float64{1.5}, []float64{0.5}, []float64{-1e6})

	dm.Extract(cloud)
	assert.Equal(t, uint16(maxValidGray), dm.At(0, 0))
	assert.Equal(t, uint16(0), dm.At(1, 0))
}

func TestSingleProfileRedraw(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: -30, MaxX: 30, MinZ: 65, MaxZ: 125}
	p, err := NewSingleProfile(identityCal, volume, 4)
	require.NoError(t, err)

	v := p.View()
	assert.Equal(t, uint64(0), v.Frame)
	assert.InDelta(t, 15.0, v.PixelSize, 1e-12) // 60mm / 4 points

	frame := rawFrame(t, 4, 1, []uint16{0, 10, 20, 30}, []uint16{0, 100, 200, 300})
	mask := profile.NewMask(4, 1)
	mask.Bits = []uint8{0, 1, 1, 1}
	frame.Valid = mask

	p.Process(frame)
	v = p.View()
	assert.Equal(t, uint64(1), v.Frame)
	assert.Equal(t, []bool{false, true, true, true}, v.Valid)
	assert.Equal(t, []float64{10, 20, 30}, v.X[1:])

	// A second frame fully replaces the view, no accumulation.
	frame2 := rawFrame(t, 4, 1, []uint16{1, 2, 3, 4}, []uint16{5, 6, 7, 8})
	p.Process(frame2)
	v2 := p.View()
	assert.Equal(t, uint64(2), v2.Frame)
	assert.Equal(t, []float64{1, 2, 3, 4}, v2.X)
	assert.Equal(t, []bool{false, false, false, false}, v2.Valid,
		"frame without mask clears validity")
}

func TestSingleProfileViewIsACopy(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 4, MinZ: 0, MaxZ: 4}
	p, err := NewSingleProfile(identityCal, volume, 2)
	require.NoError(t, err)

	v := p.View()
	v.X[0] = 123

	assert.Equal(t, 0.0, p.View().X[0], "mutating a view must not reach the processor")
}

func TestDepthMapProcessorWorldY(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 4, MinZ: 0, MaxZ: 4}
	const basePosY, speed = 1.0, 0.5
	p, err := NewDepthMapProcessor(identityCal, volume, basePosY, speed, 2, 3)
	require.NoError(t, err)

	// worldY is one scalar per profile row, broadcast across its columns.
	assert.Equal(t, []float64{1.0, 1.0, 1.5, 1.5, 2.0, 2.0}, p.worldY)
}

func TestDepthMapProcessorAccumulates(t *testing.T) {
	t.Parallel()

	volume := profile.Range{MinX: 0, MaxX: 10, MinZ: 0, MaxZ: 10}
	p, err := NewDepthMapProcessor(identityCal, volume, 0, 1.0, 2, 2)
	require.NoError(t, err)

	frame := rawFrame(t, 2, 2, []uint16{1, 2, 3, 4}, []uint16{5, 5, 5, 5})
	p.Process(frame)
	assert.Equal(t, int64(1), p.FramesProcessed())
	assert.Equal(t, 4, p.Cloud().Len())

	p.Process(frame)
	assert.Equal(t, int64(2), p.FramesProcessed())
	assert.Equal(t, 8, p.Cloud().Len(), "points accumulate, never replace")
	assert.Equal(t, 2, p.Cloud().NumBatches())

	// World X 1..2 lands in column 0 (5mm columns); profile 0 fills raster
	// row 0 at worldY 0 and profile 1 fills row 1 at worldY 1.
	dm := p.DepthMap()
	for _, row := range []int{0, 1} {
		z, ok := dm.WorldZAt(0, row)
		require.True(t, ok, "row %d", row)
		assert.InDelta(t, 5.0, z, dm.GraySizeZ)
	}
}
