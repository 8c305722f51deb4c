package stream

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dh1tw/gosamplerate"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"
)

const (
	OpusSampleRate    = 48000
	OpusFrameDuration = 20 * time.Millisecond
	OpusFrameSize     = 960 // samples per 20ms mono frame at 48kHz
)

// WebRTCHandler serves WebRTC SDP negotiation for low-latency Opus
// monitoring of the processed microphone.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	sampleRate  int
	mu          sync.Mutex
	peers       []*webrtc.PeerConnection
}

// NewWebRTCHandler creates a WebRTC handler for blocks at sampleRate.
func NewWebRTCHandler(b *Broadcaster, sampleRate int) *WebRTCHandler {
	return &WebRTCHandler{
		broadcaster: b,
		sampleRate:  sampleRate,
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"funny-mic",
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}

	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	<-webrtc.GatheringCompletePromise(pc)

	h.mu.Lock()
	h.peers = append(h.peers, pc)
	h.mu.Unlock()

	log.Printf("WebRTC peer connected (total: %d)", h.PeerCount())

	listener := h.broadcaster.Subscribe()
	go h.streamToPeer(listener, track)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			h.broadcaster.Unsubscribe(listener)
			if h.removePeer(pc) {
				pc.Close()
				log.Printf("WebRTC peer disconnected (remaining: %d)", h.PeerCount())
			}
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

// opusEncoder resamples blocks to 48kHz and encodes them as 20ms Opus frames.
type opusEncoder struct {
	enc    *opus.Encoder
	src    gosamplerate.Src
	ratio  float64
	frames reframer
	out    []byte
}

func newOpusEncoder(sampleRate int) (*opusEncoder, error) {
	enc, err := opus.NewEncoder(OpusSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(64000); err != nil {
		return nil, fmt.Errorf("opus bitrate: %w", err)
	}
	src, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST, 1, 16384)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	return &opusEncoder{
		enc:    enc,
		src:    src,
		ratio:  float64(OpusSampleRate) / float64(sampleRate),
		frames: reframer{size: OpusFrameSize},
		out:    make([]byte, 4000),
	}, nil
}

// encode feeds one block and calls emit for every complete Opus packet.
func (e *opusEncoder) encode(block []float32, emit func(packet []byte) error) error {
	pcm := block
	if e.ratio != 1 {
		var err error
		if pcm, err = e.src.Process(block, e.ratio, false); err != nil {
			return fmt.Errorf("resample: %w", err)
		}
	}
	return e.frames.push(pcm, func(frame []float32) error {
		n, err := e.enc.EncodeFloat32(frame, e.out)
		if err != nil {
			return fmt.Errorf("opus encode: %w", err)
		}
		return emit(e.out[:n])
	})
}

func (e *opusEncoder) close() {
	gosamplerate.Delete(e.src)
}

func (h *WebRTCHandler) streamToPeer(listener *Listener, track *webrtc.TrackLocalStaticSample) {
	defer h.broadcaster.Unsubscribe(listener)

	enc, err := newOpusEncoder(h.sampleRate)
	if err != nil {
		log.Printf("WebRTC: %v", err)
		return
	}
	defer enc.close()

	write := func(packet []byte) error {
		return track.WriteSample(media.Sample{Data: packet, Duration: OpusFrameDuration})
	}
	for {
		select {
		case <-listener.Done():
			return
		case block := <-listener.C:
			if err := enc.encode(block, write); err != nil {
				log.Printf("WebRTC: %v", err)
				return
			}
		}
	}
}

func (h *WebRTCHandler) removePeer(pc *webrtc.PeerConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.peers {
		if p == pc {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			return true
		}
	}
	return false
}

// reframer cuts a continuous sample stream into frames of a fixed size.
type reframer struct {
	size int
	buf  []float32
}

// push appends samples and calls emit for every complete frame. The frame
// slice is only valid during the call.
func (r *reframer) push(samples []float32, emit func(frame []float32) error) error {
	r.buf = append(r.buf, samples...)
	start := 0
	for len(r.buf)-start >= r.size {
		if err := emit(r.buf[start : start+r.size]); err != nil {
			return err
		}
		start += r.size
	}
	n := copy(r.buf, r.buf[start:])
	r.buf = r.buf[:n]
	return nil
}
