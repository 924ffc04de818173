//go:build pcap
// +build pcap

package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/scanline-data/profile.scan/internal/profile"
)

// ReadPCAPFile replays recorded sensor datagrams from a PCAP capture into
// the frame assembler. Only available when building with the 'pcap' tag.
func ReadPCAPFile(ctx context.Context, pcapFile string, udpPort int, assembler *FrameAssembler, stats PacketStatsInterface) error {
	if stats == nil {
		stats = noopStats{}
	}

	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	// Only the sensor's streaming port is of interest.
	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("failed to set BPF filter %q: %w", filterStr, err)
	}
	profile.Opsf("[pcap] BPF filter set: %s", filterStr)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	startTime := time.Now()
	samples := make([]uint16, 2*MaxProfileSize)

	for {
		select {
		case <-ctx.Done():
			profile.Opsf("[pcap] reader stopping due to context cancellation (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				elapsed := time.Since(startTime)
				profile.Opsf("[pcap] replay complete: %d packets in %v", packetCount, elapsed)
				return nil
			}
			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}
			payload := udp.Payload
			if len(payload) == 0 {
				continue
			}

			stats.AddPacket(len(payload))
			d, err := ParseRowDatagram(payload, samples)
			if err != nil {
				stats.AddDropped()
				profile.Diagf("[pcap] bad datagram in packet %d: %v", packetCount, err)
				continue
			}
			if assembler != nil {
				if err := assembler.HandleDatagram(d); err != nil {
					stats.AddDropped()
					profile.Opsf("[pcap] datagram rejected: %v", err)
				}
			}

			if packetCount%10000 == 0 {
				elapsed := time.Since(startTime)
				profile.Diagf("[pcap] progress: %d packets in %v (%.0f pkt/s)",
					packetCount, elapsed, float64(packetCount)/elapsed.Seconds())
			}
		}
	}
}
