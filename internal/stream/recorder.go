package stream

import (
	"errors"
	"fmt"
	"log"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/satindergrewal/funnymic/internal/audio"
)

// Recorder writes the processed signal to a 16-bit mono WAV file.
type Recorder struct {
	broadcaster *Broadcaster
	listener    *Listener
	path        string
	f           *os.File
	enc         *wav.Encoder
	done        chan struct{}
	err         error
	blocks      int
}

// NewRecorder creates path and records every block published on b until
// Close.
func NewRecorder(b *Broadcaster, path string, sampleRate int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	r := &Recorder{
		broadcaster: b,
		listener:    b.Subscribe(),
		path:        path,
		f:           f,
		enc:         wav.NewEncoder(f, sampleRate, 16, 1, 1),
		done:        make(chan struct{}),
	}
	go r.run(sampleRate)
	log.Printf("Recording to %s", path)
	return r, nil
}

func (r *Recorder) run(sampleRate int) {
	defer close(r.done)
	var pcm []int16
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	write := func(block []float32) bool {
		pcm = audio.ToPCM16(pcm, block)
		buf.Data = buf.Data[:0]
		for _, s := range pcm {
			buf.Data = append(buf.Data, int(s))
		}
		if err := r.enc.Write(buf); err != nil {
			r.err = fmt.Errorf("write recording: %w", err)
			return false
		}
		r.blocks++
		return true
	}
	for {
		select {
		case block := <-r.listener.C:
			if !write(block) {
				return
			}
		case <-r.listener.Done():
			// Flush what is already buffered.
			for {
				select {
				case block := <-r.listener.C:
					if !write(block) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// Close stops recording and finalizes the WAV header.
func (r *Recorder) Close() error {
	r.broadcaster.Unsubscribe(r.listener)
	<-r.done
	err := errors.Join(r.err, r.enc.Close(), r.f.Close())
	if dropped := r.listener.Dropped(); dropped > 0 {
		log.Printf("Recording %s closed (%d blocks, %d dropped)", r.path, r.blocks, dropped)
	} else {
		log.Printf("Recording %s closed (%d blocks)", r.path, r.blocks)
	}
	return err
}
