package sensor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// PacketStatsInterface provides packet statistics management.
type PacketStatsInterface interface {
	AddPacket(bytes int)
	AddDropped()
	AddFrames(count int)
	LogStats()
}

// noopStats is a PacketStatsInterface implementation that does nothing.
// It is used as a safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket(bytes int) {}
func (noopStats) AddDropped()         {}
func (noopStats) AddFrames(count int) {}
func (noopStats) LogStats()           {}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	// GrabTimeout warns when no datagram has arrived for this long, the
	// sign of a stalled or misconfigured sensor. Zero disables the check.
	GrabTimeout time.Duration
	Stats       PacketStatsInterface
	Assembler   *FrameAssembler
}

// UDPListener receives row datagrams from the sensor's streaming interface
// and feeds them to the frame assembler.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	grabTimeout time.Duration
	conn        *net.UDPConn
	stats       PacketStatsInterface
	assembler   *FrameAssembler
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	var stats PacketStatsInterface = noopStats{}
	if config.Stats != nil {
		stats = config.Stats
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		grabTimeout: config.GrabTimeout,
		stats:       stats,
		assembler:   config.Assembler,
	}
}

// Start begins listening for datagrams and processing them. It returns when
// the context is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		profile.Opsf("[udp] failed to set receive buffer to %d: %v", l.rcvBuf, err)
	}
	profile.Opsf("[udp] listener started on %s with receive buffer %d bytes", l.address, l.rcvBuf)

	go l.startStatsLogging(ctx)

	// Row datagrams are header + 4 bytes per sample.
	buffer := make([]byte, DatagramHeaderSize+4*MaxProfileSize)
	samples := make([]uint16, 2*MaxProfileSize)
	lastData := time.Now()

	for {
		select {
		case <-ctx.Done():
			profile.Opsf("[udp] listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Read deadline lets us notice cancellation between packets.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, addr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					if l.grabTimeout > 0 && time.Since(lastData) > l.grabTimeout {
						profile.Opsf("[udp] no datagrams for %v, sensor stalled or misconfigured?", l.grabTimeout)
						lastData = time.Now()
					}
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				profile.Opsf("[udp] read error: %v", err)
				continue
			}

			lastData = time.Now()
			l.stats.AddPacket(n)
			d, err := ParseRowDatagram(buffer[:n], samples)
			if err != nil {
				l.stats.AddDropped()
				profile.Diagf("[udp] bad datagram from %v: %v", addr, err)
				continue
			}
			if l.assembler != nil {
				if err := l.assembler.HandleDatagram(d); err != nil {
					l.stats.AddDropped()
					profile.Opsf("[udp] datagram rejected: %v", err)
				}
			}
		}
	}
}

// startStatsLogging periodically logs packet statistics.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	// Report once shortly after startup to avoid a long first-run silence,
	// then continue on the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.stats.LogStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}

// Close closes the UDP listener and releases resources.
func (l *UDPListener) Close() error {
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
