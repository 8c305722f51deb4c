package glitch

import "math/rand/v2"

// Overlay volumes and jitter.
const (
	LoudVolume    = 4.0
	OverlayVolume = 0.5
	OverlayJitter = 0.05
)

// Mixer renders the selected overlay sound one block at a time. It is owned
// by the audio callback.
type Mixer struct {
	state     *State
	rng       *rand.Rand
	cur       *Overlay
	pos       int
	remaining int
}

// NewMixer creates a mixer reading its selection from state.
func NewMixer(state *State, rng *rand.Rand) *Mixer {
	return &Mixer{state: state, rng: rng}
}

// Mix writes the overlay signal for one block into dst and reports whether
// the selection is the loud sound, which replaces the whole block output.
// dst is silent where nothing plays.
func (m *Mixer) Mix(dst []float32) (loud bool) {
	clear(dst)

	o := m.state.Overlay()
	if o == nil {
		m.cur = nil
		return false
	}
	if o != m.cur {
		m.cur = o
		m.pos = 0
		m.remaining = len(o.Samples)
	}
	if len(o.Samples) == 0 {
		m.finish(o)
		return false
	}

	vol := float32(OverlayVolume)
	if o.Loud {
		vol = LoudVolume
	}
	for i := range dst {
		var s float32
		if m.pos < len(o.Samples) {
			s = o.Samples[m.pos]
		}
		s *= vol
		s += float32((m.rng.Float64()*2 - 1) * OverlayJitter)
		if i > 0 {
			s = (s + dst[i-1]) / 2
		}
		dst[i] = s

		m.pos++
		m.remaining--
		if m.pos >= len(o.Samples) {
			m.finish(o)
			break
		}
	}
	return o.Loud
}

// Remaining returns the number of overlay samples left to play.
func (m *Mixer) Remaining() int { return m.remaining }

func (m *Mixer) finish(o *Overlay) {
	m.state.finishOverlay(o)
	m.cur = nil
	m.pos = 0
	m.remaining = 0
}
