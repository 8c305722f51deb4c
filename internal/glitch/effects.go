package glitch

import (
	"math"
	"math/rand/v2"
)

// effect transforms one block. in and out have equal length and never alias.
// reset drops any state retained between blocks.
type effect interface {
	process(in, out []float32)
	reset()
}

type stateless struct{}

func (stateless) reset() {}

type bitcrush struct{ stateless }

// Quantizes to the 15 levels k/7, k in [-7, 7], rounding halves upward.
func (bitcrush) process(in, out []float32) {
	for i, x := range in {
		out[i] = float32(math.Floor(float64(x)*7+0.5) / 7)
	}
}

type mute struct{ stateless }

func (mute) process(_, out []float32) { clear(out) }

type pitch struct{ stateless }

func (pitch) process(in, out []float32) {
	n := len(in)
	for i := range out {
		out[i] = in[int(float64(i)*1.2)%n]
	}
}

// clipper scales then hard-clips: extra-distortion and mic-peak.
type clipper struct {
	stateless
	gain, limit float32
}

func (c clipper) process(in, out []float32) {
	for i, x := range in {
		out[i] = clamp(x*c.gain, -c.limit, c.limit)
	}
}

type staticNoise struct {
	stateless
	rng *rand.Rand
}

func (n staticNoise) process(_, out []float32) {
	for i := range out {
		out[i] = float32((n.rng.Float64()*2 - 1) * 0.2)
	}
}

// stutter loops the block captured at activation.
type stutter struct {
	buf   []float32
	pos   int
	armed bool
}

func (s *stutter) process(in, out []float32) {
	if !s.armed {
		s.buf = append(s.buf[:0], in...)
		s.pos = 0
		s.armed = true
	}
	if len(s.buf) == 0 {
		clear(out)
		return
	}
	for i := range out {
		out[i] = s.buf[s.pos]
		s.pos = (s.pos + 1) % len(s.buf)
	}
}

func (s *stutter) reset() {
	s.buf = s.buf[:0]
	s.pos = 0
	s.armed = false
}

// repeatLast tiles the last window samples of the block captured at
// activation across every block.
type repeatLast struct {
	window int
	buf    []float32
	armed  bool
}

func (r *repeatLast) process(in, out []float32) {
	if !r.armed {
		start := max(len(in)-r.window, 0)
		r.buf = append(r.buf[:0], in[start:]...)
		r.armed = true
	}
	for i := range out {
		var s float32
		if j := i % r.window; j < len(r.buf) {
			s = r.buf[j]
		}
		out[i] = s
	}
}

func (r *repeatLast) reset() {
	r.buf = r.buf[:0]
	r.armed = false
}

// reverse plays the block captured at activation backwards, repeatedly.
type reverse struct {
	buf   []float32
	armed bool
}

func (r *reverse) process(in, out []float32) {
	if !r.armed {
		r.buf = r.buf[:0]
		for i := len(in) - 1; i >= 0; i-- {
			r.buf = append(r.buf, in[i])
		}
		r.armed = true
	}
	for i := range out {
		var s float32
		if i < len(r.buf) {
			s = r.buf[i]
		}
		out[i] = s
	}
}

func (r *reverse) reset() {
	r.buf = r.buf[:0]
	r.armed = false
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
