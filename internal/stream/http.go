package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"

	"github.com/satindergrewal/funnymic/internal/audio"
)

// HTTPHandler serves the processed microphone as a chunked MP3 stream.
// Every request gets its own FFmpeg encoder fed from a broadcaster listener.
type HTTPHandler struct {
	broadcaster *Broadcaster
	sampleRate  int
}

// NewHTTPHandler creates an HTTP stream handler for blocks at sampleRate.
func NewHTTPHandler(b *Broadcaster, sampleRate int) *HTTPHandler {
	return &HTTPHandler{broadcaster: b, sampleRate: sampleRate}
}

// encoderArgs returns the FFmpeg arguments for mono f32le stdin -> MP3 stdout.
func (h *HTTPHandler) encoderArgs() []string {
	return []string{
		"-f", "f32le",
		"-ar", fmt.Sprint(h.sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", "128k",
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

type mp3Encoder struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out io.ReadCloser
}

func (h *HTTPHandler) startEncoder(ctx context.Context) (*mp3Encoder, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", h.encoderArgs()...)
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return &mp3Encoder{cmd: cmd, in: in, out: out}, nil
}

// feed writes listener blocks to the encoder as little-endian float32 until
// the request ends or the listener is dropped.
func (e *mp3Encoder) feed(ctx context.Context, l *Listener) {
	defer e.in.Close()
	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Done():
			return
		case block := <-l.C:
			if need := len(block) * 4; cap(pcm) < need {
				pcm = make([]byte, need)
			}
			n := audio.Float32ToBytes(pcm[:len(block)*4], block)
			if _, err := e.in.Write(pcm[:n]); err != nil {
				return
			}
		}
	}
}

// flushWriter pushes every encoded chunk to the client immediately.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.f.Flush()
	return n, err
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	enc, err := h.startEncoder(ctx)
	if err != nil {
		log.Printf("MP3 monitor: %v", err)
		http.Error(w, "encoder unavailable", http.StatusServiceUnavailable)
		return
	}
	defer enc.cmd.Wait()
	defer cancel()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", "funny mic")

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)
	log.Printf("MP3 monitor connected from %s (listeners: %d)", r.RemoteAddr, h.broadcaster.ListenerCount())

	go enc.feed(ctx, listener)

	n, err := io.Copy(flushWriter{w: w, f: flusher}, enc.out)
	if err != nil && ctx.Err() == nil {
		log.Printf("MP3 monitor: %v", err)
	}
	log.Printf("MP3 monitor %s disconnected after %d bytes", r.RemoteAddr, n)
}
