// Package sensor is the acquisition boundary for scanCONTROL profile
// sensors in container transmission mode: the dual-band frame codec, the
// datagram reassembler, device verification against the supported
// model/range table, and the acquisition sources (UDP, PCAP replay,
// emulator) that drive the conversion pipeline once per captured frame.
package sensor

import (
	"encoding/binary"
	"fmt"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// Container frame layout. In container mode the sensor bundles the Z and X
// bands side by side into one Mono16 image per frame: each row holds
// profileSize Z samples followed by profileSize X samples, so the frame is
// 2×profileSize elements wide and nbProfiles rows tall.
//
// Transport chunks a frame into one datagram per row:
//
//	offset 0:  preamble   uint16  0xA55C
//	offset 2:  version    uint8   currently 1
//	offset 3:  reserved   uint8
//	offset 4:  frame seq  uint32  increments per frame
//	offset 8:  row index  uint16  0-based row within the frame
//	offset 10: row count  uint16  rows per frame
//	offset 12: samples    uint16  profile size N
//	offset 14: payload    2N × uint16, Z band then X band
//
// All fields little-endian, matching the sensor's Mono16 byte order.
const (
	DatagramPreamble   = 0xA55C
	DatagramVersion    = 1
	DatagramHeaderSize = 14

	// MaxProfileSize bounds the container resolution; used to size receive
	// buffers.
	MaxProfileSize = 2048
)

// RowDatagram is one decoded transport datagram.
type RowDatagram struct {
	FrameSeq    uint32
	RowIndex    int
	RowCount    int
	ProfileSize int
	Samples     []uint16 // 2N elements, Z band then X band; aliases the scratch of the parse call
}

// ParseRowDatagram decodes and validates one datagram. samples is a scratch
// slice reused across calls; the returned RowDatagram aliases it.
func ParseRowDatagram(pkt []byte, samples []uint16) (RowDatagram, error) {
	if len(pkt) < DatagramHeaderSize {
		return RowDatagram{}, fmt.Errorf("sensor: datagram too short: %d bytes", len(pkt))
	}
	if binary.LittleEndian.Uint16(pkt[0:2]) != DatagramPreamble {
		return RowDatagram{}, fmt.Errorf("sensor: bad datagram preamble %#04x", binary.LittleEndian.Uint16(pkt[0:2]))
	}
	if pkt[2] != DatagramVersion {
		return RowDatagram{}, fmt.Errorf("sensor: unsupported datagram version %d", pkt[2])
	}
	d := RowDatagram{
		FrameSeq:    binary.LittleEndian.Uint32(pkt[4:8]),
		RowIndex:    int(binary.LittleEndian.Uint16(pkt[8:10])),
		RowCount:    int(binary.LittleEndian.Uint16(pkt[10:12])),
		ProfileSize: int(binary.LittleEndian.Uint16(pkt[12:14])),
	}
	if d.ProfileSize <= 0 || d.ProfileSize > MaxProfileSize {
		return RowDatagram{}, fmt.Errorf("sensor: profile size %d out of range", d.ProfileSize)
	}
	if d.RowIndex >= d.RowCount {
		return RowDatagram{}, fmt.Errorf("sensor: row index %d outside frame of %d rows", d.RowIndex, d.RowCount)
	}
	want := DatagramHeaderSize + 4*d.ProfileSize
	if len(pkt) != want {
		return RowDatagram{}, fmt.Errorf("sensor: datagram length %d, want %d for %d samples", len(pkt), want, d.ProfileSize)
	}
	n := 2 * d.ProfileSize
	if cap(samples) < n {
		samples = make([]uint16, n)
	}
	samples = samples[:n]
	for i := 0; i < n; i++ {
		samples[i] = binary.LittleEndian.Uint16(pkt[DatagramHeaderSize+2*i:])
	}
	d.Samples = samples
	return d, nil
}

// EncodeRowDatagram builds the wire form of one frame row. Used by the
// emulator's datagram mode and by tests.
func EncodeRowDatagram(frameSeq uint32, rowIndex, rowCount int, row []uint16) []byte {
	n := len(row) / 2
	pkt := make([]byte, DatagramHeaderSize+4*n)
	binary.LittleEndian.PutUint16(pkt[0:2], DatagramPreamble)
	pkt[2] = DatagramVersion
	binary.LittleEndian.PutUint32(pkt[4:8], frameSeq)
	binary.LittleEndian.PutUint16(pkt[8:10], uint16(rowIndex))
	binary.LittleEndian.PutUint16(pkt[10:12], uint16(rowCount))
	binary.LittleEndian.PutUint16(pkt[12:14], uint16(n))
	for i, v := range row {
		binary.LittleEndian.PutUint16(pkt[DatagramHeaderSize+2*i:], v)
	}
	return pkt
}

// SplitBands carves a container frame buffer into the Z and X band views.
// The returned planes are borrowed: they alias buf, which belongs to the
// acquisition side and is reused for the next frame once the hook returns.
func SplitBands(buf []uint16, profileSize, nbProfiles int) profile.Data {
	shape := profile.Shape{Width: profileSize, Height: nbProfiles, Stride: 2 * profileSize}
	return profile.Data{
		Z: &profile.Plane{Shape: shape, Kind: profile.KindU16, U16: buf},
		X: &profile.Plane{Shape: shape, Kind: profile.KindU16, U16: buf[profileSize:]},
	}
}

// FrameHandler receives one assembled container frame. buf holds the full
// dual-band image and is reused by the caller after the handler returns.
type FrameHandler func(buf []uint16)

// FrameAssembler rebuilds container frames from row datagrams. Rows may
// arrive out of order within a frame; a datagram for a newer frame abandons
// the incomplete one (the remedy for a lost frame is a re-grab upstream,
// never a retry here).
type FrameAssembler struct {
	profileSize int
	nbProfiles  int
	onFrame     FrameHandler

	buf      []uint16
	rowSeen  []bool
	rows     int
	frameSeq uint32
	active   bool

	framesAssembled int64
	framesDropped   int64
}

// NewFrameAssembler creates an assembler for the configured container
// geometry. onFrame is invoked synchronously on the datagram-feeding
// goroutine for every completed frame.
func NewFrameAssembler(profileSize, nbProfiles int, onFrame FrameHandler) (*FrameAssembler, error) {
	if profileSize <= 0 || profileSize > MaxProfileSize {
		return nil, fmt.Errorf("sensor: profile size %d out of range", profileSize)
	}
	if nbProfiles <= 0 {
		return nil, fmt.Errorf("sensor: profiles per frame must be positive, got %d", nbProfiles)
	}
	return &FrameAssembler{
		profileSize: profileSize,
		nbProfiles:  nbProfiles,
		onFrame:     onFrame,
		buf:         make([]uint16, 2*profileSize*nbProfiles),
		rowSeen:     make([]bool, nbProfiles),
	}, nil
}

// HandleDatagram folds one row datagram into the frame under assembly.
func (a *FrameAssembler) HandleDatagram(d RowDatagram) error {
	if d.ProfileSize != a.profileSize || d.RowCount != a.nbProfiles {
		return fmt.Errorf("sensor: datagram geometry %dx%d does not match configured %dx%d",
			d.ProfileSize, d.RowCount, a.profileSize, a.nbProfiles)
	}

	if a.active && d.FrameSeq != a.frameSeq {
		a.framesDropped++
		profile.Diagf("[assembler] abandoning incomplete frame %d (%d/%d rows) for frame %d",
			a.frameSeq, a.rows, a.nbProfiles, d.FrameSeq)
		a.reset()
	}
	if !a.active {
		a.active = true
		a.frameSeq = d.FrameSeq
	}

	if a.rowSeen[d.RowIndex] {
		return nil // duplicate row, first copy wins
	}
	a.rowSeen[d.RowIndex] = true
	a.rows++
	copy(a.buf[d.RowIndex*2*a.profileSize:], d.Samples)

	if a.rows == a.nbProfiles {
		a.framesAssembled++
		profile.Tracef("[assembler] frame %d complete: %d rows x %d samples", a.frameSeq, a.nbProfiles, a.profileSize)
		if a.onFrame != nil {
			a.onFrame(a.buf)
		}
		a.reset()
	}
	return nil
}

func (a *FrameAssembler) reset() {
	a.active = false
	a.rows = 0
	for i := range a.rowSeen {
		a.rowSeen[i] = false
	}
}

// Stats returns the assembled and dropped frame counts.
func (a *FrameAssembler) Stats() (assembled, dropped int64) {
	return a.framesAssembled, a.framesDropped
}
