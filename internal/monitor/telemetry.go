package monitor

import (
	"encoding/binary"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"capturekit"
)

// RuntimeCounters is implemented by runtimes that expose reference-count
// totals. The report includes them when the runtime does.
type RuntimeCounters interface {
	Retains() int64
	Releases() int64
	Live() int
}

// Report is one telemetry snapshot. It is JSON-encoded both for the status
// endpoint and for the data-channel push.
type Report struct {
	Time           time.Time              `json:"time"`
	StreamID       string                 `json:"streamId"`
	Stream         capturekit.StreamStats `json:"stream"`
	Video          VideoReport            `json:"video"`
	Audio          []AudioReport          `json:"audio,omitempty"`
	Refs           *RefReport             `json:"refs,omitempty"`
	TLSFingerprint string                 `json:"tlsFingerprint,omitempty"`
}

// RefReport mirrors the runtime's reference-count totals. Retains should
// track releases; a growing gap means a leaked handle somewhere.
type RefReport struct {
	Retains  int64 `json:"retains"`
	Releases int64 `json:"releases"`
	Live     int   `json:"live"`
}

// VideoReport summarizes the most recent video frame seen by the probe.
type VideoReport struct {
	Frames   int64   `json:"frames"`
	Skipped  int64   `json:"skipped"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Status   string  `json:"status"`
	MeanLuma float64 `json:"meanLuma"`
	PTS      float64 `json:"pts"`
}

// AudioReport summarizes one audio channel.
type AudioReport struct {
	Channel string  `json:"channel"`
	Samples int64   `json:"samples"`
	Buffers int     `json:"buffers"`
	RMS     float64 `json:"rms"`
	PTS     float64 `json:"pts"`
}

// VideoProbe consumes video samples and keeps a rolling summary plus a small
// thumbnail of the latest frame. All pixel access happens inside the callback
// under a read-only lock; the probe never clones, so it adds no retention to
// the stream. A frame whose lock fails is counted and skipped.
type VideoProbe struct {
	mu      sync.Mutex
	frames  int64
	skipped int64
	width   int
	height  int
	format  capturekit.PixelFormat
	status  capturekit.FrameStatus
	hasStat bool
	luma    float64
	pts     float64
	thumb   *image.NRGBA
}

func (p *VideoProbe) HandleBuffer(h *capturekit.SampleHandle, ch capturekit.Channel) {
	status, hasStat := h.Status()
	pts := h.Timestamp().Seconds()

	p.mu.Lock()
	p.status = status
	p.hasStat = hasStat
	p.pts = pts
	p.mu.Unlock()

	pb, ok := h.PixelBuffer()
	if !ok {
		return
	}
	defer pb.Release()

	g, err := pb.Lock(capturekit.LockReadOnly)
	if err != nil {
		p.mu.Lock()
		p.skipped++
		p.mu.Unlock()
		return
	}
	defer g.Unlock()

	luma := meanLuma(g)
	thumb := renderThumbnail(g, thumbWidth)

	p.mu.Lock()
	p.frames++
	p.width = g.Width()
	p.height = g.Height()
	p.format = g.PixelFormat()
	p.luma = luma
	if thumb != nil {
		p.thumb = thumb
	}
	p.mu.Unlock()
}

func (p *VideoProbe) Report() VideoReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	rep := VideoReport{
		Frames:   p.frames,
		Skipped:  p.skipped,
		Width:    p.width,
		Height:   p.height,
		MeanLuma: p.luma,
		PTS:      p.pts,
	}
	if p.frames > 0 {
		rep.Format = p.format.String()
	}
	if p.hasStat {
		rep.Status = p.status.String()
	}
	return rep
}

// Thumbnail returns the latest rendered frame, or nil before the first one.
func (p *VideoProbe) Thumbnail() *image.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thumb
}

// lumaGrid is the sampling resolution for the mean-luma estimate. A full
// scan of every frame would touch far too many bytes for a probe.
const lumaGrid = 64

// meanLuma estimates frame brightness from a sampled grid. Biplanar formats
// read the luma plane directly; BGRA applies the usual weights.
func meanLuma(g *capturekit.LockGuard) float64 {
	w, h := g.Width(), g.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	gw, gh := lumaGrid, lumaGrid
	if gw > w {
		gw = w
	}
	if gh > h {
		gh = h
	}

	var sum float64
	var n int
	planar := g.PlaneCount() > 0
	bgra := g.PixelFormat() == capturekit.PixelFormatBGRA

	for ty := 0; ty < gh; ty++ {
		y := ty * h / gh
		var row []byte
		var ok bool
		if planar {
			row, ok = g.PlaneRow(0, y)
		} else {
			row, ok = g.Row(y)
		}
		if !ok {
			continue
		}
		for tx := 0; tx < gw; tx++ {
			x := tx * w / gw
			switch {
			case planar:
				if x < len(row) {
					sum += float64(row[x])
					n++
				}
			case bgra:
				if 4*x+2 < len(row) {
					b := float64(row[4*x])
					gr := float64(row[4*x+1])
					r := float64(row[4*x+2])
					sum += 0.114*b + 0.587*gr + 0.299*r
					n++
				}
			default:
				if 4*x+3 < len(row) {
					sum += (float64(row[4*x]) + float64(row[4*x+1]) +
						float64(row[4*x+2]) + float64(row[4*x+3])) / 4
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// AudioProbe consumes one audio channel and keeps level statistics. The PCM
// is read inside the callback; nothing is retained.
type AudioProbe struct {
	channel capturekit.Channel
	samples int64

	mu      sync.Mutex
	buffers int
	rms     float64
	pts     float64
}

func NewAudioProbe(ch capturekit.Channel) *AudioProbe {
	return &AudioProbe{channel: ch}
}

func (p *AudioProbe) HandleBuffer(h *capturekit.SampleHandle, ch capturekit.Channel) {
	list, ok := h.AudioBuffers()
	if !ok {
		return
	}

	var sum float64
	var n int
	for i := 0; i < list.Len(); i++ {
		buf, ok := list.Buffer(i)
		if !ok {
			continue
		}
		for off := 0; off+4 <= len(buf.Data); off += 4 {
			v := float64(math.Float32frombits(binary.LittleEndian.Uint32(buf.Data[off:])))
			sum += v * v
			n++
		}
	}
	if n == 0 {
		return
	}
	rms := math.Sqrt(sum / float64(n))
	atomic.AddInt64(&p.samples, int64(n))

	p.mu.Lock()
	p.buffers = list.Len()
	p.rms = rms
	p.pts = h.Timestamp().Seconds()
	p.mu.Unlock()
}

func (p *AudioProbe) Report() AudioReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return AudioReport{
		Channel: p.channel.String(),
		Samples: atomic.LoadInt64(&p.samples),
		Buffers: p.buffers,
		RMS:     p.rms,
		PTS:     p.pts,
	}
}
