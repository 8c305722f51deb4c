package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satindergrewal/funnymic/internal/glitch"
	"github.com/satindergrewal/funnymic/internal/sched"
)

// SoundLoader is a sound source that decodes its sounds ahead of playback.
type SoundLoader interface {
	sched.SoundSource
	LoadAll()
}

// PipelineConfig holds the session parameters of a Pipeline.
type PipelineConfig struct {
	Device     DeviceConfig
	Distortion float64 // 0-10
	Glitch     sched.GlitchConfig
	Overlay    sched.OverlayConfig
}

// Status is a snapshot of the pipeline for the control API.
type Status struct {
	Running        bool          `json:"running"`
	Message        string        `json:"status"`
	Glitch         string        `json:"glitch,omitempty"`
	Overlay        string        `json:"overlay,omitempty"`
	Distortion     float64       `json:"distortion"`
	GlitchInterval time.Duration `json:"glitch_interval_ns"`
	SoundInterval  time.Duration `json:"sound_interval_ns"`
	SampleRate     int           `json:"sample_rate"`
	BlockSize      int           `json:"block_size"`
}

// Pipeline runs the microphone chain: capture, distortion, glitch dispatch
// with overlay mixing, and output. It owns both schedulers and restarts them
// with every session.
type Pipeline struct {
	cfg    PipelineConfig
	open   DeviceOpener
	sounds SoundLoader
	status sched.StatusFunc

	state    *glitch.State
	shaper   *Shaper
	glitches *sched.GlitchScheduler
	overlays *sched.OverlayScheduler

	frameCh chan []float32
	monitor atomic.Bool
	message atomic.Pointer[string]
	current atomic.Int32

	mu         sync.Mutex
	distortion float64
	dev        Device
	cancel     context.CancelFunc

	// Owned by the device callback while a session runs.
	disp    *glitch.Dispatcher
	shaped  []float32
	scratch []float32
	ring    [][]float32
	ringPos int
}

// FrameRing is the number of monitor frames the callback cycles through. A
// frame is overwritten once FrameRing newer frames have been published.
const FrameRing = 512

// NewPipeline creates a stopped pipeline. effects holds the enabled glitch
// variant names and soundSet the enabled sound file names.
func NewPipeline(cfg PipelineConfig, open DeviceOpener, sounds SoundLoader, effects, soundSet *sched.Set, status sched.StatusFunc) *Pipeline {
	if cfg.Device.SampleRate <= 0 {
		cfg.Device.SampleRate = DefaultSampleRate
	}
	if cfg.Device.BlockSize <= 0 {
		cfg.Device.BlockSize = DefaultBlockSize
	}
	p := &Pipeline{
		cfg:        cfg,
		open:       open,
		sounds:     sounds,
		state:      glitch.NewState(),
		shaper:     NewShaper(cfg.Distortion, Oversample),
		frameCh:    make(chan []float32, 64),
		distortion: cfg.Distortion,
	}
	p.status = func(msg string) {
		p.message.Store(&msg)
		if status != nil {
			status(msg)
		}
	}
	p.glitches = sched.NewGlitchScheduler(p.state, effects, cfg.Glitch, p.status)
	p.overlays = sched.NewOverlayScheduler(p.state, soundSet, sounds, cfg.Overlay, p.status)
	msg := sched.StatusStopped
	p.message.Store(&msg)
	return p
}

// Frames returns processed blocks for monitoring sinks. Blocks are copies
// taken from a ring of FrameRing reusable frames, so readers must be done
// with a block before that many newer ones arrive. Blocks are dropped when
// the reader falls behind. Nothing is published until Frames has been called
// once.
func (p *Pipeline) Frames() <-chan []float32 {
	p.monitor.Store(true)
	return p.frameCh
}

// SampleRate returns the session sample rate.
func (p *Pipeline) SampleRate() int { return p.cfg.Device.SampleRate }

// State returns the state shared with the schedulers.
func (p *Pipeline) State() *glitch.State { return p.state }

// Start opens the device and begins glitching. A running session is stopped
// first. On failure every resource is released and an error status reported.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(false)

	p.status(sched.StatusStarting)
	if p.sounds != nil {
		p.sounds.LoadAll()
	}

	block := p.cfg.Device.BlockSize
	p.state.Reset()
	p.shaper.Reset()
	p.disp = glitch.NewDispatcher(p.state, p.cfg.Device.SampleRate, block)
	p.shaped = make([]float32, block)
	p.scratch = make([]float32, block)
	p.current.Store(int32(glitch.None))

	dev, err := p.open(p.cfg.Device, p.process)
	if err != nil {
		return p.fail(fmt.Errorf("open audio device: %w", err))
	}
	if err := dev.Start(); err != nil {
		if cerr := dev.Close(); cerr != nil {
			log.Printf("Close device after failed start: %v", cerr)
		}
		return p.fail(fmt.Errorf("start audio device: %w", err))
	}
	p.dev = dev

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.glitches.Start(runCtx)
	p.overlays.Start(runCtx)

	log.Printf("Pipeline started (%d Hz, %d-sample blocks, playback=%v)",
		p.cfg.Device.SampleRate, block, p.cfg.Device.Playback)
	p.status(sched.StatusListening)
	return nil
}

func (p *Pipeline) fail(err error) error {
	p.disp = nil
	p.status("error: " + err.Error())
	return err
}

// Stop ends the session and releases the device.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(true)
}

func (p *Pipeline) stopLocked(report bool) {
	if p.dev == nil {
		return
	}
	p.glitches.Stop()
	p.overlays.Stop()
	p.cancel()
	p.cancel = nil

	var errs []error
	if err := p.dev.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop: %w", err))
	}
	if err := p.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("Audio device shutdown: %v", err)
	}
	p.dev = nil
	p.state.Reset()
	p.current.Store(int32(glitch.None))

	log.Println("Pipeline stopped")
	if report {
		p.status(sched.StatusStopped)
	}
}

// Running reports whether a session is active.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev != nil
}

// SetDistortion changes the 0-10 distortion setting while running.
func (p *Pipeline) SetDistortion(v float64) {
	v = min(max(v, 0), 10)
	p.mu.Lock()
	p.distortion = v
	p.mu.Unlock()
	p.shaper.SetAmount(v)
	log.Printf("Distortion set to %.1f", v)
}

// Report publishes msg as the current status, as the schedulers and the
// session lifecycle do.
func (p *Pipeline) Report(msg string) { p.status(msg) }

// SetGlitchInterval changes the base glitch interval.
func (p *Pipeline) SetGlitchInterval(d time.Duration) { p.glitches.SetInterval(d) }

// SetSoundInterval changes the base sound overlay interval.
func (p *Pipeline) SetSoundInterval(d time.Duration) { p.overlays.SetInterval(d) }

// Status returns a snapshot for the control API.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	running := p.dev != nil
	dist := p.distortion
	p.mu.Unlock()

	s := Status{
		Running:        running,
		Glitch:         glitch.Variant(p.current.Load()).String(),
		Distortion:     dist,
		GlitchInterval: p.glitches.Interval(),
		SoundInterval:  p.overlays.Interval(),
		SampleRate:     p.cfg.Device.SampleRate,
		BlockSize:      p.cfg.Device.BlockSize,
	}
	if m := p.message.Load(); m != nil {
		s.Message = *m
	}
	if o := p.state.Overlay(); o != nil {
		s.Overlay = o.Name
	}
	return s
}

// process is the device callback. It must not block, and allocates only
// while its buffers and the monitor ring warm up.
func (p *Pipeline) process(in, out []float32) {
	n := len(in)
	if cap(p.shaped) < n {
		p.shaped = make([]float32, n)
		p.scratch = make([]float32, n)
	}
	shaped := p.shaped[:n]
	dst := out
	if dst == nil {
		dst = p.scratch[:n]
	}

	p.shaper.Process(in, shaped)
	p.disp.ProcessBlock(shaped, dst)
	p.current.Store(int32(p.disp.Current()))

	if p.monitor.Load() {
		p.publish(dst)
	}
}

// publish copies block into the next ring frame and offers it to the
// monitor channel. The ring only advances when the frame was taken.
func (p *Pipeline) publish(block []float32) {
	if p.ring == nil {
		p.ring = make([][]float32, FrameRing)
	}
	frame := p.ring[p.ringPos]
	if cap(frame) < len(block) {
		frame = make([]float32, len(block))
		p.ring[p.ringPos] = frame
	}
	frame = frame[:len(block)]
	copy(frame, block)
	select {
	case p.frameCh <- frame:
		p.ringPos = (p.ringPos + 1) % len(p.ring)
	default:
	}
}
