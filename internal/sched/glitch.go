package sched

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/satindergrewal/funnymic/internal/glitch"
)

// GlitchConfig holds glitch scheduling parameters.
type GlitchConfig struct {
	Interval time.Duration // base wait between glitches
	Spread   time.Duration // random extra wait, [0, Spread)
	HoldMin  time.Duration // shortest glitch
	HoldMax  time.Duration // longest glitch (exclusive)
}

// DefaultGlitchConfig returns the standard timing: a glitch every 2.5-3.5s
// lasting 200-600ms.
func DefaultGlitchConfig() GlitchConfig {
	return GlitchConfig{
		Interval: 2500 * time.Millisecond,
		Spread:   DefaultSpread,
		HoldMin:  200 * time.Millisecond,
		HoldMax:  600 * time.Millisecond,
	}
}

// GlitchScheduler periodically switches a random enabled glitch variant on
// for a short time.
type GlitchScheduler struct {
	state   *glitch.State
	enabled *Set
	status  StatusFunc

	mu   sync.Mutex
	cfg  GlitchConfig
	last glitch.Variant

	loop loop
}

// NewGlitchScheduler creates a scheduler driving state. enabled holds
// variant names.
func NewGlitchScheduler(state *glitch.State, enabled *Set, cfg GlitchConfig, status StatusFunc) *GlitchScheduler {
	if status == nil {
		status = func(string) {}
	}
	return &GlitchScheduler{
		state:   state,
		enabled: enabled,
		status:  status,
		cfg:     cfg,
	}
}

// Start begins the glitch loop, replacing any loop already running.
func (s *GlitchScheduler) Start(ctx context.Context) {
	s.loop.start(ctx, s.run)
}

// Stop cancels the loop and switches any glitch off.
func (s *GlitchScheduler) Stop() {
	s.loop.stop()
	s.state.Deactivate()
}

// Running reports whether the loop is active.
func (s *GlitchScheduler) Running() bool { return s.loop.running() }

// SetInterval changes the base interval and restarts a running loop so the
// new value applies immediately.
func (s *GlitchScheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	s.cfg.Interval = d
	s.mu.Unlock()
	if s.loop.restart(s.run) {
		log.Printf("Glitch interval set to %v", d)
	}
}

// Interval returns the base interval.
func (s *GlitchScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Interval
}

// Pick chooses a random enabled variant, never the previous pick when more
// than one variant is enabled. It reports false when none is enabled.
func (s *GlitchScheduler) Pick() (glitch.Variant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []glitch.Variant
	for _, name := range s.enabled.Enabled() {
		if v, ok := glitch.ParseVariant(name); ok {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return glitch.None, false
	}
	if len(candidates) > 1 {
		filtered := candidates[:0]
		for _, v := range candidates {
			if v != s.last {
				filtered = append(filtered, v)
			}
		}
		candidates = filtered
	}
	pick := candidates[rand.IntN(len(candidates))]
	s.last = pick
	return pick, true
}

// Trigger runs one glitch: pick, activate, hold, deactivate. It blocks for
// the hold time, and for as long as a catchup sequence keeps the output.
func (s *GlitchScheduler) Trigger(ctx context.Context) {
	v, ok := s.Pick()
	if !ok {
		return
	}

	s.mu.Lock()
	hold := between(s.cfg.HoldMin, s.cfg.HoldMax-s.cfg.HoldMin)
	s.mu.Unlock()

	s.state.Activate(v)
	log.Printf("Glitch: %s (%v)", v, hold.Round(time.Millisecond))
	if v == glitch.Catchup {
		s.status("glitch: catchup (muting, then fast-forward)")
	} else {
		s.status("glitch: " + v.String())
	}

	if !sleep(ctx, hold) {
		s.state.Deactivate()
		return
	}
	if err := s.state.WaitReleased(ctx); err != nil {
		s.state.Deactivate()
		return
	}
	s.state.Deactivate()
	s.status(StatusListening)
}

func (s *GlitchScheduler) run(ctx context.Context) {
	for {
		s.mu.Lock()
		wait := between(s.cfg.Interval, s.cfg.Spread)
		s.mu.Unlock()

		if !sleep(ctx, wait) {
			return
		}
		s.Trigger(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}
