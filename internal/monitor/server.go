package monitor

import (
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"capturekit"
	selftls "capturekit/internal/tls"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Config holds all monitor configuration.
type Config struct {
	Addr     string
	Token    string
	Interval time.Duration // report cadence, default 1s

	TLS      bool   // serve HTTPS with an ephemeral self-signed certificate
	CertFile string // or with this pair
	KeyFile  string
}

// Server exposes stream health over HTTP: a JSON report, a PNG of the latest
// frame, and WHEP-style signaling for a data channel that pushes the same
// report once per interval.
type Server struct {
	cfg    Config
	stream *capturekit.Stream
	rt     capturekit.Runtime

	video *VideoProbe
	audio []*AudioProbe

	mu          sync.Mutex
	sess        *Session
	handlers    []registration
	fingerprint string
}

type registration struct {
	ch capturekit.Channel
	id capturekit.HandlerID
}

func New(cfg Config, stream *capturekit.Stream, rt capturekit.Runtime) *Server {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Server{
		cfg:    cfg,
		stream: stream,
		rt:     rt,
		video:  &VideoProbe{},
		audio: []*AudioProbe{
			NewAudioProbe(capturekit.ChannelSystemAudio),
			NewAudioProbe(capturekit.ChannelMicrophone),
		},
	}
}

// Attach registers the probes on their channels. Call before serving.
func (s *Server) Attach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, registration{
		capturekit.ChannelVideo,
		s.stream.Register(capturekit.ChannelVideo, s.video),
	})
	for _, p := range s.audio {
		s.handlers = append(s.handlers, registration{
			p.channel,
			s.stream.Register(p.channel, p),
		})
	}
}

// Detach removes the probes from the stream.
func (s *Server) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.handlers {
		s.stream.Unregister(reg.id, reg.ch)
	}
	s.handlers = nil
}

func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleStatus)
	mux.HandleFunc("GET /frame.png", s.handleFrame)
	mux.HandleFunc("POST /session", s.handleOffer)
	mux.HandleFunc("PATCH /session/{id}", s.handlePatch)
	mux.HandleFunc("DELETE /session/{id}", s.handleDelete)
	mux.HandleFunc("OPTIONS /session", s.handleOptions)
	mux.HandleFunc("OPTIONS /session/{id}", s.handleOptions)

	srv := &http.Server{Addr: s.cfg.Addr, Handler: mux}

	switch {
	case s.cfg.CertFile != "" && s.cfg.KeyFile != "":
		log.Printf("monitor: listening on https://%s", s.cfg.Addr)
		return srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	case s.cfg.TLS:
		conf, fp, err := selftls.SelfSigned()
		if err != nil {
			return fmt.Errorf("self-signed tls: %w", err)
		}
		s.mu.Lock()
		s.fingerprint = fp
		s.mu.Unlock()
		srv.TLSConfig = conf
		log.Printf("monitor: listening on https://%s (cert %s)", s.cfg.Addr, fp)
		return srv.ListenAndServeTLS("", "")
	default:
		log.Printf("monitor: listening on http://%s", s.cfg.Addr)
		return srv.ListenAndServe()
	}
}

// Teardown shuts down the active session. It acquires the lock internally.
func (s *Server) Teardown() {
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
}

func (s *Server) report() Report {
	rep := Report{
		Time:     time.Now(),
		StreamID: s.stream.ID(),
		Stream:   s.stream.Stats(),
		Video:    s.video.Report(),
	}
	for _, p := range s.audio {
		if r := p.Report(); r.Samples > 0 {
			rep.Audio = append(rep.Audio, r)
		}
	}
	if rc, ok := s.rt.(RuntimeCounters); ok {
		rep.Refs = &RefReport{
			Retains:  rc.Retains(),
			Releases: rc.Releases(),
			Live:     rc.Live(),
		}
	}
	s.mu.Lock()
	rep.TLSFingerprint = s.fingerprint
	s.mu.Unlock()
	return rep
}

func (s *Server) reportJSON() []byte {
	data, err := json.Marshal(s.report())
	if err != nil {
		log.Printf("report encode error: %v", err)
		return nil
	}
	return data
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "not found", 404)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.report())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", 401)
		return
	}

	thumb := s.video.Thumbnail()
	if thumb == nil {
		http.Error(w, "no frame yet", 404)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	png.Encode(w, thumb)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Expose-Headers", "Location")
	w.WriteHeader(204)
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Location")

	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", 401)
		return
	}

	// Single session: tear down existing
	s.mu.Lock()
	if s.sess != nil {
		s.teardownLocked()
	}
	s.mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", 400)
		return
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  string(body),
	}

	sessionID := uuid.New().String()
	sess, err := NewSession(sessionID, s.cfg.Interval, s.reportJSON)
	if err != nil {
		log.Printf("session create error: %v", err)
		http.Error(w, "internal error", 500)
		return
	}

	if err := sess.PC.SetRemoteDescription(offer); err != nil {
		sess.Close()
		log.Printf("set remote desc error: %v", err)
		http.Error(w, "bad SDP offer", 400)
		return
	}

	answer, err := sess.PC.CreateAnswer(nil)
	if err != nil {
		sess.Close()
		log.Printf("create answer error: %v", err)
		http.Error(w, "internal error", 500)
		return
	}

	if err := sess.PC.SetLocalDescription(answer); err != nil {
		sess.Close()
		log.Printf("set local desc error: %v", err)
		http.Error(w, "internal error", 500)
		return
	}

	// Wait for ICE gathering to complete
	gatherComplete := webrtc.GatheringCompletePromise(sess.PC)
	<-gatherComplete

	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/sdp")
	w.Header().Set("Location", fmt.Sprintf("/session/%s", sessionID))
	w.WriteHeader(201)
	w.Write([]byte(sess.PC.LocalDescription().SDP))
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", 401)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess == nil || sess.ID != id {
		http.Error(w, "not found", 404)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", 400)
		return
	}

	candidate := string(body)
	if strings.TrimSpace(candidate) == "" {
		w.WriteHeader(204)
		return
	}

	lines := strings.Split(candidate, "\r\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "a=candidate:") {
			c := strings.TrimPrefix(line, "a=")
			if err := sess.PC.AddICECandidate(webrtc.ICECandidateInit{
				Candidate: c,
			}); err != nil {
				log.Printf("add ice candidate error: %v", err)
			}
		}
	}

	w.WriteHeader(204)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if !s.checkAuth(r) {
		http.Error(w, "unauthorized", 401)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess == nil || s.sess.ID != id {
		http.Error(w, "not found", 404)
		return
	}

	s.teardownLocked()
	w.WriteHeader(200)
}

func (s *Server) checkAuth(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return auth == "Bearer "+s.cfg.Token
}

func (s *Server) teardownLocked() {
	if s.sess != nil {
		s.sess.Close()
		s.sess = nil
	}
}
