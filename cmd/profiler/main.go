// Command profiler runs the scanCONTROL profile conversion pipeline: it
// acquires container frames from a sensor (UDP), a PCAP capture, or the
// built-in emulator, converts them to calibrated world points, and serves
// the single-profile or depth-map result over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/scanline-data/profile.scan/internal/config"
	"github.com/scanline-data/profile.scan/internal/monitor"
	"github.com/scanline-data/profile.scan/internal/profile"
	"github.com/scanline-data/profile.scan/internal/profile/process"
	"github.com/scanline-data/profile.scan/internal/sensor"
)

var (
	listen     = flag.String("listen", ":8081", "HTTP listen address")
	mode       = flag.String("mode", "depthmap", "Processing mode: single or depthmap")
	source     = flag.String("source", "sim", "Acquisition source: sim, udp, or pcap")
	udpPort    = flag.Int("udp-port", 2371, "UDP port to listen for sensor datagrams")
	udpAddress = flag.String("udp-addr", "", "UDP bind address (default: listen on all interfaces)")
	pcapFile   = flag.String("pcap-file", "", "PCAP capture to replay (source=pcap; requires -tags=pcap build)")
	vendor     = flag.String("vendor", sensor.ExpectedVendor, "Reported device vendor string")
	model      = flag.String("model", "scanCONTROL 2950-50", "Reported device model string (family + range token)")
	flipX      = flag.Bool("flip-x", false, "Sensor reports mirrored lateral positions (FlipPos)")
	flipZ      = flag.Bool("flip-z", false, "Sensor reports inverted distances (FlipDist)")
	configPath = flag.String("config", "", "Optional JSON tuning file")
	snapshots  = flag.Bool("snapshots", false, "Write PNG snapshots of the result on shutdown")
	verbose    = flag.Bool("v", false, "Enable diagnostic logging")
	trace      = flag.Bool("vv", false, "Enable per-frame trace logging (implies -v)")
)

func main() {
	flag.Parse()

	writers := profile.LogWriters{Ops: os.Stderr}
	if *verbose || *trace {
		writers.Diag = os.Stderr
	}
	if *trace {
		writers.Trace = os.Stderr
	}
	profile.SetLogWriters(writers)

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	runID := uuid.New().String()[:8]
	profile.Opsf("[profiler] run %s starting: mode=%s source=%s", runID, *mode, *source)

	// Verify the reported device identity and resolve its operating range.
	spec, err := sensor.VerifyDevice(sensor.DeviceInfo{Vendor: *vendor, Model: *model})
	if err != nil {
		log.Fatalf("Device verification failed: %v", err)
	}
	profile.Opsf("[profiler] device verified: model %q, range %s (%.4g mm/gray)",
		*model, spec.Name, spec.Calibration.ScaleZ)

	features := sensor.Features{
		FlipPos:     *flipX,
		FlipDist:    *flipZ,
		ProfileSize: cfg.GetProfileSize(),
		NbProfiles:  cfg.GetNbProfiles(),
	}
	if *mode == "single" {
		features.NbProfiles = 1
	}

	conv, err := sensor.BuildConversion(features)
	if err != nil {
		log.Fatalf("Failed to build conversion chain: %v", err)
	}

	// Pick the processor for the selected mode.
	var (
		proc   process.Processor
		single *process.SingleProfile
		depth  *process.DepthMapProcessor
	)
	switch *mode {
	case "single":
		single, err = process.NewSingleProfile(spec.Calibration, spec.Volume, features.ProfileSize)
		proc = single
	case "depthmap":
		depth, err = process.NewDepthMapProcessor(spec.Calibration, spec.Volume,
			cfg.GetBasePosY(), cfg.GetConveyorSpeed(), features.ProfileSize, features.NbProfiles)
		proc = depth
	default:
		log.Fatalf("Unknown mode %q (want single or depthmap)", *mode)
	}
	if err != nil {
		log.Fatalf("Failed to build %s processor: %v", *mode, err)
	}

	ingest, err := sensor.NewIngest(features, conv, proc)
	if err != nil {
		log.Fatalf("Failed to wire ingest: %v", err)
	}

	stats := monitor.NewPacketStats()
	onFrame := func(buf []uint16) {
		ingest.HandleFrame(buf)
		stats.AddFrames(1)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Acquisition source goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runSource(ctx, cfg, features, onFrame, stats); err != nil && err != context.Canceled {
			profile.Opsf("[profiler] acquisition error: %v", err)
			stop()
		}
		profile.Opsf("[profiler] acquisition routine terminated")
	}()

	// Monitor HTTP server goroutine.
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   *listen,
		Stats:     stats,
		Single:    single,
		Depth:     depth,
		RangeSpec: spec,
		Source:    *source,
		RunID:     runID,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(ctx); err != nil {
			profile.Opsf("[profiler] web server error: %v", err)
		}
	}()

	wg.Wait()

	if *snapshots {
		writeSnapshots(cfg, single, depth)
	}
	profile.Opsf("[profiler] shutdown complete: %s", stats.Summary())
}

// runSource drives the selected acquisition source until ctx is cancelled
// (or the PCAP capture runs out).
func runSource(ctx context.Context, cfg *config.TuningConfig, f sensor.Features, onFrame sensor.FrameHandler, stats *monitor.PacketStats) error {
	switch *source {
	case "sim":
		em := sensor.NewEmulator(sensor.EmulatorConfig{
			ProfileSize:   f.ProfileSize,
			NbProfiles:    f.NbProfiles,
			Interval:      cfg.GetEmulatorInterval(),
			DropoutPeriod: cfg.GetEmulatorDropout(),
		})
		return em.Run(ctx, onFrame)

	case "udp":
		assembler, err := sensor.NewFrameAssembler(f.ProfileSize, f.NbProfiles, onFrame)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("%s:%d", *udpAddress, *udpPort)
		listener := sensor.NewUDPListener(sensor.UDPListenerConfig{
			Address:     addr,
			RcvBuf:      cfg.GetUDPRcvBuf(),
			LogInterval: cfg.GetStatsInterval(),
			GrabTimeout: cfg.GetGrabTimeout(),
			Stats:       stats,
			Assembler:   assembler,
		})
		defer listener.Close()
		return listener.Start(ctx)

	case "pcap":
		if *pcapFile == "" {
			return fmt.Errorf("source=pcap requires -pcap-file")
		}
		assembler, err := sensor.NewFrameAssembler(f.ProfileSize, f.NbProfiles, onFrame)
		if err != nil {
			return err
		}
		return sensor.ReadPCAPFile(ctx, *pcapFile, *udpPort, assembler, stats)

	default:
		return fmt.Errorf("unknown source %q (want sim, udp, or pcap)", *source)
	}
}

// writeSnapshots renders the final pipeline state to PNG files.
func writeSnapshots(cfg *config.TuningConfig, single *process.SingleProfile, depth *process.DepthMapProcessor) {
	dir := monitor.MakePlotOutputDir(cfg.GetPlotDir(), *pcapFile)
	sp, err := monitor.NewSnapshotPlotter(dir)
	if err != nil {
		profile.Opsf("[profiler] snapshot plotter: %v", err)
		return
	}
	if single != nil {
		if file, err := sp.SaveProfilePNG(single.View()); err != nil {
			profile.Opsf("[profiler] profile snapshot: %v", err)
		} else {
			profile.Opsf("[profiler] wrote %s", file)
		}
	}
	if depth != nil {
		if file, err := sp.SaveDepthPNG(depth.DepthMap()); err != nil {
			profile.Opsf("[profiler] depth snapshot: %v", err)
		} else {
			profile.Opsf("[profiler] wrote %s", file)
		}
	}
}
