package sound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dh1tw/gosamplerate"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeFile decodes an audio file to mono float samples at sampleRate.
// MP3 and WAV are decoded natively; anything else, or a file the native
// decoders reject, goes through FFmpeg.
func DecodeFile(path string, sampleRate int) ([]float32, error) {
	samples, rate, err := decodeNative(path)
	if err != nil {
		native := err
		samples, err = DecodeFFmpeg(path, sampleRate)
		if err != nil {
			return nil, errors.Join(native, err)
		}
		return samples, nil
	}
	return Resample(samples, rate, sampleRate)
}

func decodeNative(path string) ([]float32, int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".wav" {
		return nil, 0, fmt.Errorf("no native decoder for %q", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	if ext == ".mp3" {
		return DecodeMP3(f)
	}
	return DecodeWAV(f)
}

// DecodeMP3 decodes an MP3 stream and mixes it down to mono. It returns the
// samples and their sample rate.
func DecodeMP3(r io.Reader) ([]float32, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decoder: %w", err)
	}
	// go-mp3 always produces interleaved stereo int16.
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("mp3 decode: %w", err)
	}
	frames := len(pcm) / 4
	out := make([]float32, frames)
	for i := range out {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		out[i] = (float32(l) + float32(r)) / 2 / 32768
	}
	return out, dec.SampleRate(), nil
}

// DecodeWAV decodes a PCM WAV stream and mixes it down to mono.
func DecodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav decode: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, errors.New("invalid wav buffer")
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth == 0 {
		return nil, 0, errors.New("unknown wav bit depth")
	}

	ch := buf.Format.NumChannels
	factor := math.Pow(2, float64(bitDepth-1)) * float64(ch)
	frames := len(buf.Data) / ch
	out := make([]float32, frames)
	for i := range out {
		var sum int
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = float32(float64(sum) / factor)
	}
	return out, buf.Format.SampleRate, nil
}

// DecodeFFmpeg runs FFmpeg to decode any audio file to mono float samples at
// sampleRate.
func DecodeFFmpeg(path string, sampleRate int) ([]float32, error) {
	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprint(sampleRate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	samples := make([]float32, len(out)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
	}
	return samples, nil
}

// Resample converts mono samples from rate from to rate to.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from == to || from <= 0 || len(samples) == 0 {
		return samples, nil
	}
	out, err := gosamplerate.Simple(samples, float64(to)/float64(from), 1, gosamplerate.SRC_SINC_BEST_QUALITY)
	if err != nil {
		return nil, fmt.Errorf("resample %d -> %d Hz: %w", from, to, err)
	}
	return out, nil
}
