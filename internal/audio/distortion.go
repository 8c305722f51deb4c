package audio

import (
	"math"
	"sync/atomic"
)

// CurveSize is the number of entries in a distortion curve.
const CurveSize = 44100

// DistortionScale converts the 0-10 "funny" setting to a curve amount.
const DistortionScale = 10

// Curve returns the waveshaping transfer curve for amount k >= 0. Entry i
// maps x = 2i/CurveSize - 1 to (3+k)·x·20° / (π + k·|x|).
func Curve(k float64) []float32 {
	curve := make([]float32, CurveSize)
	deg := math.Pi / 180
	for i := range curve {
		x := float64(i)*2/CurveSize - 1
		curve[i] = float32((3 + k) * x * 20 * deg / (math.Pi + k*math.Abs(x)))
	}
	return curve
}

// Shape looks x up in curve with linear interpolation, clamping outside
// [-1, 1].
func Shape(curve []float32, x float32) float32 {
	n := len(curve)
	if n == 0 {
		return x
	}
	v := float64(n-1) * (float64(x) + 1) / 2
	if v <= 0 {
		return curve[0]
	}
	if v >= float64(n-1) {
		return curve[n-1]
	}
	k := int(v)
	f := float32(v - float64(k))
	return curve[k]*(1-f) + curve[k+1]*f
}

// Shaper applies a distortion curve with oversampling. The curve can be
// swapped from another goroutine while Process runs.
type Shaper struct {
	curve      atomic.Pointer[[]float32]
	oversample int
	prev       float32
}

// NewShaper returns a shaper for the 0-10 setting amount.
func NewShaper(amount float64, oversample int) *Shaper {
	s := &Shaper{oversample: max(oversample, 1)}
	s.SetAmount(amount)
	return s
}

// SetAmount recomputes the curve for the 0-10 setting amount.
func (s *Shaper) SetAmount(amount float64) {
	c := Curve(max(amount, 0) * DistortionScale)
	s.curve.Store(&c)
}

// Process shapes in into out. Each input sample is linearly upsampled from
// the previous one, every sub-sample is shaped, and the results are averaged
// back down to one sample.
func (s *Shaper) Process(in, out []float32) {
	curve := *s.curve.Load()
	n := s.oversample
	inv := 1 / float32(n)
	for i, x := range in {
		var acc float32
		for j := 1; j <= n; j++ {
			t := float32(j) * inv
			acc += Shape(curve, s.prev+(x-s.prev)*t)
		}
		out[i] = acc * inv
		s.prev = x
	}
}

// Reset clears the interpolation history.
func (s *Shaper) Reset() { s.prev = 0 }
