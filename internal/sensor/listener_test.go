package sensor

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPListenerRejectsBadAddress(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(UDPListenerConfig{Address: "not-an-address:xyz"})
	err := l.Start(context.Background())
	assert.Error(t, err)
}

func TestUDPListenerStopsOnCancel(t *testing.T) {
	t.Parallel()

	l := NewUDPListener(UDPListenerConfig{Address: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	// Give the listener a moment to bind, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}

func TestUDPListenerAssemblesDatagrams(t *testing.T) {
	t.Parallel()

	const n, h = 4, 2

	// Bind a throwaway socket first to learn a free port, then hand the
	// address to the listener.
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := probe.LocalAddr().String()
	require.NoError(t, probe.Close())

	frames := make(chan []uint16, 16)
	assembler, err := NewFrameAssembler(n, h, func(buf []uint16) {
		frames <- append([]uint16(nil), buf...)
	})
	require.NoError(t, err)

	l := NewUDPListener(UDPListenerConfig{Address: addr, Assembler: assembler})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)

	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// Resend until the frame lands; UDP on loopback can still race the
	// listener's startup.
	deadline := time.After(5 * time.Second)
	var got []uint16
sendLoop:
	for {
		for row := 0; row < h; row++ {
			_, err := conn.Write(EncodeRowDatagram(1, row, h, frameRow(n, row)))
			require.NoError(t, err)
		}
		select {
		case got = <-frames:
			break sendLoop
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no frame assembled from UDP datagrams")
		}
	}

	want := append(append([]uint16(nil), frameRow(n, 0)...), frameRow(n, 1)...)
	assert.Equal(t, want, got)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestNoopStatsIsSafe(t *testing.T) {
	t.Parallel()

	// The default stats sink must accept calls without side effects.
	var s PacketStatsInterface = noopStats{}
	s.AddPacket(100)
	s.AddDropped()
	s.AddFrames(1)
	s.LogStats()
}

func TestPCAPStubWithoutTag(t *testing.T) {
	t.Parallel()

	// Without the pcap build tag the reader reports it is unavailable.
	err := ReadPCAPFile(context.Background(), "capture.pcap", 2371, nil, nil)
	if err == nil {
		t.Skip("built with -tags=pcap; stub not in effect")
	}
	assert.Contains(t, fmt.Sprint(err), "pcap")
}
