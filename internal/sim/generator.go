package sim

import (
	"encoding/binary"
	"log"
	"math"
	"sync/atomic"
	"time"

	"capturekit"
)

const videoTimescale = 600

// GeneratorConfig describes the synthetic capture feed.
type GeneratorConfig struct {
	Width  int
	Height int
	Format capturekit.PixelFormat
	FPS    int

	// AudioRate enables a system-audio channel at this sample rate.
	AudioRate     int
	AudioChannels int
}

// Generator feeds a stream the way a capture runtime would: each tick it
// creates a sample, hands it to Deliver (whose implicit reference is only
// valid during the call), and gives back its own creation reference.
type Generator struct {
	rt     *Runtime
	stream *capturekit.Stream
	cfg    GeneratorConfig

	frames  int64
	dropped int64
}

func NewGenerator(rt *Runtime, stream *capturekit.Stream, cfg GeneratorConfig) *Generator {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.Format == 0 {
		cfg.Format = capturekit.PixelFormat420V
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.AudioChannels <= 0 {
		cfg.AudioChannels = 2
	}
	return &Generator{rt: rt, stream: stream, cfg: cfg}
}

func (g *Generator) Frames() int64  { return atomic.LoadInt64(&g.frames) }
func (g *Generator) Dropped() int64 { return atomic.LoadInt64(&g.dropped) }

// Run produces frames until stop closes.
func (g *Generator) Run(stop <-chan struct{}) {
	if g == nil || g.rt == nil || g.stream == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		var lastFrames int64
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f := atomic.LoadInt64(&g.frames)
				d := atomic.LoadInt64(&g.dropped)
				log.Printf("sim: generator fps=%d dropped=%d total_frames=%d live_objects=%d",
					(f-lastFrames)/5, d, f, g.rt.Live())
				lastFrames = f
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(g.cfg.FPS))
	defer ticker.Stop()
	var frame int64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.emitVideo(frame)
			if g.cfg.AudioRate > 0 {
				g.emitAudio(frame)
			}
			frame++
		}
	}
}

func (g *Generator) emitVideo(frame int64) {
	dur := int64(videoTimescale / g.cfg.FPS)
	res := g.rt.NewVideoSample(VideoSampleConfig{
		Width:    g.cfg.Width,
		Height:   g.cfg.Height,
		Format:   g.cfg.Format,
		PTS:      capturekit.NewMediaTime(frame*dur, videoTimescale),
		Duration: capturekit.NewMediaTime(dur, videoTimescale),
		Info: &capturekit.FrameInfo{
			Status:      capturekit.FrameStatusComplete,
			DisplayTime: uint64(time.Now().UnixNano()),
		},
	})
	g.paint(res, frame)
	err := g.stream.Deliver(res, capturekit.ChannelVideo)
	g.rt.Release(res)
	if err != nil {
		atomic.AddInt64(&g.dropped, 1)
		return
	}
	atomic.AddInt64(&g.frames, 1)
}

// paint writes a moving gradient straight into the sample's image memory,
// standing in for the hardware scanout.
func (g *Generator) paint(sample capturekit.Resource, frame int64) {
	g.rt.mu.Lock()
	defer g.rt.mu.Unlock()
	obj, ok := g.rt.objects[sample]
	if !ok || obj.image == 0 {
		return
	}
	img, ok := g.rt.objects[obj.image]
	if !ok {
		return
	}
	f := byte(frame)
	if img.format.IsYCbCr() && len(img.planes) == 2 {
		luma := img.planes[0]
		for y := 0; y < luma.Height; y++ {
			row := img.data[luma.Offset+y*luma.BytesPerRow:]
			for x := 0; x < luma.Width; x++ {
				row[x] = byte(x) + byte(y) + f
			}
		}
		chroma := img.planes[1]
		for y := 0; y < chroma.Height; y++ {
			row := img.data[chroma.Offset+y*chroma.BytesPerRow:]
			for x := 0; x < chroma.Width; x++ {
				row[2*x] = 0x80
				row[2*x+1] = byte(x) - byte(y) + f
			}
		}
		return
	}
	for y := 0; y < img.height; y++ {
		row := img.data[y*img.rowBytes:]
		for x := 0; x < img.width; x++ {
			row[4*x] = byte(x) + f
			row[4*x+1] = byte(y) + f
			row[4*x+2] = byte(x) + byte(y)
			row[4*x+3] = 0xFF
		}
	}
}

func (g *Generator) emitAudio(frame int64) {
	n := g.cfg.AudioRate / g.cfg.FPS
	if n <= 0 {
		n = 1
	}
	base := float64(frame) * float64(n)
	buffers := make([]capturekit.AudioBuffer, g.cfg.AudioChannels)
	for c := range buffers {
		data := make([]byte, 4*n)
		for i := 0; i < n; i++ {
			v := float32(0.2 * math.Sin(2*math.Pi*440*(base+float64(i))/float64(g.cfg.AudioRate)))
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
		}
		buffers[c] = capturekit.AudioBuffer{Channels: 1, Data: data}
	}
	res := g.rt.NewAudioSample(
		capturekit.AudioBufferList{Buffers: buffers},
		n,
		capturekit.NewMediaTime(frame*int64(n), int32(g.cfg.AudioRate)),
	)
	err := g.stream.Deliver(res, capturekit.ChannelSystemAudio)
	g.rt.Release(res)
	if err != nil {
		atomic.AddInt64(&g.dropped, 1)
	}
}
