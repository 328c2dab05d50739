package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"capturekit"
	"capturekit/internal/monitor"
	"capturekit/internal/sim"
	"capturekit/pulsesink"
)

var (
	flagAddr     = flag.String("addr", "127.0.0.1:8080", "HTTP listen address")
	flagToken    = flag.String("token", "", "Bearer token for authentication (required)")
	flagWidth    = flag.Int("width", 1280, "Synthetic frame width")
	flagHeight   = flag.Int("height", 720, "Synthetic frame height")
	flagFPS      = flag.Int("fps", 30, "Synthetic frame rate")
	flagFormat   = flag.String("format", "420v", "Pixel format four-character code (BGRA, l10r, 420v, 420f)")
	flagRate     = flag.Int("rate", 48000, "Synthetic audio sample rate (0 disables audio)")
	flagInterval = flag.Duration("interval", time.Second, "Telemetry report interval")
	flagPulse    = flag.Bool("pulse", false, "Play the system-audio channel through PulseAudio")
	flagTextures = flag.Bool("textures", false, "Bind frames to textures and log the sets on change")
	flagTLS      = flag.Bool("tls", false, "Enable TLS with auto-generated self-signed certificate")
	flagTLSCert  = flag.String("tls-cert", "", "Path to TLS certificate file (PEM)")
	flagTLSKey   = flag.String("tls-key", "", "Path to TLS private key file (PEM)")
)

func main() {
	flag.Parse()

	if *flagToken == "" {
		log.Fatal("--token is required")
	}
	if *flagFPS <= 0 {
		log.Fatal("--fps must be > 0")
	}
	format := capturekit.FourCC(*flagFormat)
	if format == 0 {
		log.Fatalf("--format must be a four-character code, got %q", *flagFormat)
	}
	if (*flagTLSCert != "") != (*flagTLSKey != "") {
		log.Fatal("--tls-cert and --tls-key must both be set")
	}

	rt := sim.NewRuntime()
	stream := capturekit.NewStream(rt)

	gen := sim.NewGenerator(rt, stream, sim.GeneratorConfig{
		Width:     *flagWidth,
		Height:    *flagHeight,
		Format:    format,
		FPS:       *flagFPS,
		AudioRate: *flagRate,
	})

	srv := monitor.New(monitor.Config{
		Addr:     *flagAddr,
		Token:    *flagToken,
		Interval: *flagInterval,
		TLS:      *flagTLS,
		CertFile: *flagTLSCert,
		KeyFile:  *flagTLSKey,
	}, stream, rt)
	srv.Attach()

	if *flagPulse {
		sink, err := pulsesink.New(pulsesink.Config{SampleRate: *flagRate})
		if err != nil {
			log.Printf("pulse init failed (continuing without playback): %v", err)
		} else {
			defer sink.Close()
			stream.Register(capturekit.ChannelSystemAudio, sink)
		}
	}

	if *flagTextures {
		binder := capturekit.NewTextureBinder(sim.NewDevice(rt))
		stream.Register(capturekit.ChannelVideo, capturekit.HandlerFunc(textureLogger(binder)))
	}

	stop := make(chan struct{})
	go gen.Run(stop)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %s, shutting down...", sig)
		close(stop)
		srv.Teardown()
		stream.Close()
		os.Exit(0)
	}()

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

// textureLogger binds each frame's surface and logs the resulting texture set
// whenever it differs from the previous frame's.
func textureLogger(binder *capturekit.TextureBinder) func(h *capturekit.SampleHandle, ch capturekit.Channel) {
	var last string
	return func(h *capturekit.SampleHandle, ch capturekit.Channel) {
		pb, ok := h.PixelBuffer()
		if !ok {
			return
		}
		defer pb.Release()
		surf, ok := pb.Surface()
		if !ok {
			return
		}
		defer surf.Release()

		set, err := binder.Bind(surf)
		if err != nil {
			log.Printf("texture bind error: %v", err)
			return
		}

		desc := describeTextures(set)
		if desc != last {
			log.Printf("textures: %s", desc)
			last = desc
		}
	}
}

func describeTextures(set *capturekit.TextureSet) string {
	if !set.IsBiplanar() {
		return formatTexture(set.Plane0)
	}
	return formatTexture(set.Plane0) + " + " + formatTexture(set.Plane1)
}

func formatTexture(t capturekit.Texture) string {
	return fmt.Sprintf("%s %dx%d", t.Format(), t.Width(), t.Height())
}
