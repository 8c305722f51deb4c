package glitch

import (
	"context"
	"sync/atomic"
	"time"
)

// Overlay is a sound chosen for mixing into the output. Samples are shared
// with the sound bank and must not be modified once published.
type Overlay struct {
	Name    string
	Samples []float32
	Loud    bool
}

// State links the schedulers with the audio callback.
//
// Schedulers write the activation flag, the selected variant and the overlay
// selection. The callback writes only the catchup hold flag, and clears the
// overlay selection once the sound has played out.
type State struct {
	active  atomic.Bool
	variant atomic.Int32
	held    atomic.Bool
	overlay atomic.Pointer[Overlay]

	released chan struct{}
}

// NewState returns an inactive state.
func NewState() *State {
	return &State{released: make(chan struct{}, 1)}
}

// Activate selects v and turns glitching on.
func (s *State) Activate(v Variant) {
	s.variant.Store(int32(v))
	s.active.Store(true)
}

// Deactivate turns glitching off.
func (s *State) Deactivate() {
	s.active.Store(false)
	s.variant.Store(int32(None))
}

// Active reports whether the scheduler has a glitch switched on.
func (s *State) Active() bool { return s.active.Load() }

// Variant returns the variant selected by the scheduler.
func (s *State) Variant() Variant { return Variant(s.variant.Load()) }

// Held reports whether a catchup sequence is running and owns the output.
func (s *State) Held() bool { return s.held.Load() }

// WaitReleased blocks until no catchup sequence holds activation.
func (s *State) WaitReleased(ctx context.Context) error {
	for s.held.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.released:
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}

func (s *State) hold() { s.held.Store(true) }

func (s *State) release() {
	s.held.Store(false)
	select {
	case s.released <- struct{}{}:
	default:
	}
}

// SetOverlay publishes o for mixing; nil stops any overlay in progress.
func (s *State) SetOverlay(o *Overlay) { s.overlay.Store(o) }

// Overlay returns the overlay currently selected, or nil.
func (s *State) Overlay() *Overlay { return s.overlay.Load() }

// finishOverlay clears o unless a scheduler has already replaced it.
func (s *State) finishOverlay(o *Overlay) { s.overlay.CompareAndSwap(o, nil) }

// Reset returns s to the inactive state with no overlay. Call it only while
// no callback is processing blocks.
func (s *State) Reset() {
	s.Deactivate()
	s.SetOverlay(nil)
	s.release()
}
