package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// StatsSnapshot represents a snapshot of current acquisition statistics.
type StatsSnapshot struct {
	PacketsPerSec float64
	MBPerSec      float64
	FramesPerSec  float64
	DroppedCount  int64
	Timestamp     time.Time
}

// PacketStats tracks acquisition statistics with thread-safe operations.
// It satisfies the sensor package's stats interface so the UDP listener and
// PCAP reader can report through it.
type PacketStats struct {
	mu             sync.Mutex
	packetCount    int64
	byteCount      int64
	droppedCount   int64
	frameCount     int64
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewPacketStats creates a new PacketStats instance.
func NewPacketStats() *PacketStats {
	now := time.Now()
	return &PacketStats{
		lastReset: now,
		startTime: now,
	}
}

// AddPacket increments packet count and byte count.
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

// AddDropped increments the dropped datagram count.
func (ps *PacketStats) AddDropped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.droppedCount++
}

// AddFrames increments the assembled frame count.
func (ps *PacketStats) AddFrames(count int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.frameCount += int64(count)
}

// LogStats emits a rate summary for the interval since the last call and
// resets the interval counters. Cumulative dropped count is retained.
func (ps *PacketStats) LogStats() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(ps.lastReset).Seconds()
	if elapsed <= 0 {
		return
	}

	snap := &StatsSnapshot{
		PacketsPerSec: float64(ps.packetCount) / elapsed,
		MBPerSec:      float64(ps.byteCount) / elapsed / 1e6,
		FramesPerSec:  float64(ps.frameCount) / elapsed,
		DroppedCount:  ps.droppedCount,
		Timestamp:     now,
	}
	ps.latestSnapshot = snap

	profile.Opsf("[stats] %.1f pkt/s, %.3f MB/s, %.2f frames/s, %d dropped total",
		snap.PacketsPerSec, snap.MBPerSec, snap.FramesPerSec, snap.DroppedCount)

	ps.packetCount = 0
	ps.byteCount = 0
	ps.frameCount = 0
	ps.lastReset = now
}

// GetLatestSnapshot returns the most recent snapshot, or nil before the
// first LogStats call.
func (ps *PacketStats) GetLatestSnapshot() *StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.latestSnapshot
}

// Summary returns a human-readable one-line lifetime summary.
func (ps *PacketStats) Summary() string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	uptime := time.Since(ps.startTime).Round(time.Second)
	return fmt.Sprintf("uptime=%s dropped=%d", uptime, ps.droppedCount)
}
