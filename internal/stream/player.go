package stream

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/satindergrewal/funnymic/internal/audio"
)

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// otoContext returns the process-wide oto context. oto allows only one, so
// the first sample rate wins.
func otoContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   50 * time.Millisecond,
		})
		if otoErr == nil {
			<-ready
		}
	})
	return otoCtx, otoErr
}

// Player plays the processed signal on the default output device through
// oto, as an alternative to PortAudio duplex playback.
type Player struct {
	broadcaster *Broadcaster
	listener    *Listener
	player      *oto.Player
}

// NewPlayer subscribes to b and starts playback.
func NewPlayer(b *Broadcaster, sampleRate int) (*Player, error) {
	ctx, err := otoContext(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	l := b.Subscribe()
	p := &Player{
		broadcaster: b,
		listener:    l,
		player:      ctx.NewPlayer(&blockReader{listener: l}),
	}
	p.player.Play()
	return p, nil
}

// Close stops playback and unsubscribes.
func (p *Player) Close() error {
	p.broadcaster.Unsubscribe(p.listener)
	return p.player.Close()
}

// blockReader exposes a listener as a float32 little-endian byte stream. It
// blocks until a block arrives and reports io.EOF once unsubscribed.
type blockReader struct {
	listener *Listener
	buf      []byte
	cur      []byte
}

func (r *blockReader) Read(p []byte) (int, error) {
	for len(r.cur) == 0 {
		select {
		case <-r.listener.Done():
			return 0, io.EOF
		case block := <-r.listener.C:
			if need := len(block) * 4; cap(r.buf) < need {
				r.buf = make([]byte, need)
			}
			n := audio.Float32ToBytes(r.buf[:len(block)*4], block)
			r.cur = r.buf[:n]
		}
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}
