package sched

import (
	"context"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/satindergrewal/funnymic/internal/glitch"
)

// DefaultLoudSound is the overlay that replaces the output instead of mixing.
const DefaultLoudSound = "loud.mp3"

// SoundSource returns decoded samples for a sound, or false if the sound
// could not be loaded.
type SoundSource interface {
	Samples(name string) ([]float32, bool)
}

// OverlayConfig holds overlay scheduling parameters.
type OverlayConfig struct {
	Interval  time.Duration
	Spread    time.Duration
	LoudSound string
}

// DefaultOverlayConfig returns the standard timing: a sound every 8-9s.
func DefaultOverlayConfig() OverlayConfig {
	return OverlayConfig{
		Interval:  8 * time.Second,
		Spread:    DefaultSpread,
		LoudSound: DefaultLoudSound,
	}
}

// OverlayScheduler periodically selects a random enabled sound for the
// overlay mixer.
type OverlayScheduler struct {
	state   *glitch.State
	enabled *Set
	sounds  SoundSource
	status  StatusFunc

	mu  sync.Mutex
	cfg OverlayConfig

	loop loop
}

// NewOverlayScheduler creates a scheduler publishing overlays to state.
func NewOverlayScheduler(state *glitch.State, enabled *Set, sounds SoundSource, cfg OverlayConfig, status StatusFunc) *OverlayScheduler {
	if status == nil {
		status = func(string) {}
	}
	if cfg.LoudSound == "" {
		cfg.LoudSound = DefaultLoudSound
	}
	return &OverlayScheduler{
		state:   state,
		enabled: enabled,
		sounds:  sounds,
		status:  status,
		cfg:     cfg,
	}
}

// Start begins the overlay loop, replacing any loop already running.
func (s *OverlayScheduler) Start(ctx context.Context) {
	s.loop.start(ctx, s.run)
}

// Stop cancels the loop and silences any overlay in progress.
func (s *OverlayScheduler) Stop() {
	s.loop.stop()
	s.state.SetOverlay(nil)
}

// Running reports whether the loop is still scheduling. It turns false on its
// own once no sound is enabled.
func (s *OverlayScheduler) Running() bool { return s.loop.running() }

// SetInterval changes the base interval and restarts the loop if it was
// started, including a loop that stopped for lack of sounds.
func (s *OverlayScheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	s.cfg.Interval = d
	s.mu.Unlock()
	if s.loop.restart(s.run) {
		log.Printf("Sound interval set to %v", d)
	}
}

// Interval returns the base interval.
func (s *OverlayScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Interval
}

// Pick chooses a random enabled sound that decoded successfully.
func (s *OverlayScheduler) Pick() (string, []float32, bool) {
	type candidate struct {
		name    string
		samples []float32
	}
	var candidates []candidate
	for _, name := range s.enabled.Enabled() {
		if samples, ok := s.sounds.Samples(name); ok {
			candidates = append(candidates, candidate{name, samples})
		}
	}
	if len(candidates) == 0 {
		return "", nil, false
	}
	c := candidates[rand.IntN(len(candidates))]
	return c.name, c.samples, true
}

// Trigger publishes one randomly chosen sound. With nothing to play it clears
// the overlay and reports false.
func (s *OverlayScheduler) Trigger() bool {
	name, samples, ok := s.Pick()
	if !ok {
		s.state.SetOverlay(nil)
		return false
	}

	s.mu.Lock()
	loud := strings.EqualFold(name, s.cfg.LoudSound)
	s.mu.Unlock()

	s.state.SetOverlay(&glitch.Overlay{Name: name, Samples: samples, Loud: loud})
	log.Printf("Sound glitch: %s (%d samples)", name, len(samples))
	s.status("sound glitch: " + name)
	return true
}

func (s *OverlayScheduler) run(ctx context.Context) {
	for {
		s.mu.Lock()
		wait := between(s.cfg.Interval, s.cfg.Spread)
		s.mu.Unlock()

		if !sleep(ctx, wait) {
			return
		}
		if !s.Trigger() {
			log.Println("No sounds enabled, sound glitches paused")
			return
		}
	}
}
