package audio

import (
	"encoding/binary"
	"math"
)

// ToPCM16 converts float samples to int16, clipping to the int16 range.
func ToPCM16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		v := float64(s) * 32767
		// Clip to int16 range
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		dst[i] = int16(v)
	}
	return dst
}

// Float32ToBytes writes samples as little-endian IEEE floats into dst,
// which must hold 4 bytes per sample. It returns the bytes written.
func Float32ToBytes(dst []byte, samples []float32) int {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
	return len(samples) * 4
}
