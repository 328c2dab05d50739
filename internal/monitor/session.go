package monitor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

// maxBuffered is the data-channel backlog past which report ticks are
// skipped. A slow client gets fewer reports, never a growing queue.
const maxBuffered = 1 << 20

// Session is one connected monitor client: a peer connection whose only
// payload is the client-created "telemetry" data channel. There is no media
// track; pixels never leave the host through the monitor.
type Session struct {
	ID   string
	PC   *webrtc.PeerConnection
	Stop chan struct{}

	report   func() []byte
	interval time.Duration

	mu     sync.Mutex
	closed bool
}

func NewSession(id string, interval time.Duration, report func() []byte) (*Session, error) {
	config := webrtc.Configuration{
		// LAN only, no STUN/TURN servers
	}

	pc, err := webrtc.NewPeerConnection(config)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	sess := &Session{
		ID:       id,
		PC:       pc,
		Stop:     make(chan struct{}),
		report:   report,
		interval: interval,
	}

	// Data channels are created by the client; we handle them via OnDataChannel
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != "telemetry" {
			return
		}
		dc.OnOpen(func() {
			log.Printf("monitor: session %s telemetry channel open", id)
			go sess.pump(dc)
		})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("monitor: peer connection state: %s", state.String())
		if state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateDisconnected ||
			state == webrtc.PeerConnectionStateClosed {
			sess.Close()
		}
	})

	return sess, nil
}

// pump pushes one report per interval until the session stops. Each tick
// sends the snapshot current at that moment; ticks are dropped while the
// channel is not open or the client has a backlog.
func (s *Session) pump(dc *webrtc.DataChannel) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.Stop:
			return
		case <-ticker.C:
			if dc.ReadyState() != webrtc.DataChannelStateOpen {
				continue
			}
			if dc.BufferedAmount() > maxBuffered {
				continue
			}
			data := s.report()
			if data == nil {
				continue
			}
			if err := dc.Send(data); err != nil {
				return
			}
		}
	}
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Stop)
	s.PC.Close()
	log.Printf("monitor: session %s closed", s.ID)
}

func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
