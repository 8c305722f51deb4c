package sound

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, path string, sampleRate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("wav write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("wav close: %v", err)
	}
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-4 }

// --- Decoding ---

func TestDecodeWAVMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, 44100, 1, []int{0, 16384, -16384, 32767})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, rate, err := DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	// Two frames: (0.5, 0) and (-0.5, -0.5)
	writeWAV(t, path, 22050, 2, []int{16384, 0, -16384, -16384})

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, rate, err := DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 22050 || len(got) != 2 {
		t.Fatalf("rate %d, %d samples; want 22050, 2", rate, len(got))
	}
	if !near(got[0], 0.25) || !near(got[1], -0.5) {
		t.Errorf("downmix = %v, want [0.25 -0.5]", got)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV(bytes.NewReader([]byte("not a wav file at all"))); err == nil {
		t.Error("DecodeWAV accepted garbage")
	}
}

func TestDecodeMP3RejectsGarbage(t *testing.T) {
	if _, _, err := DecodeMP3(bytes.NewReader(make([]byte, 64))); err == nil {
		t.Error("DecodeMP3 accepted silence bytes")
	}
}

func TestDecodeFileSameRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	writeWAV(t, path, 8000, 1, []int{8192, 8192, 8192})
	got, err := DecodeFile(path, 8000)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if len(got) != 3 || !near(got[0], 0.25) {
		t.Errorf("DecodeFile = %v, want three samples of 0.25", got)
	}
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{1, 2, 3}
	out, err := Resample(in, 44100, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if &out[0] != &in[0] {
		t.Error("Resample copied samples at equal rates")
	}
}

// --- Manifest ---

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`["boing.mp3", "loud.mp3"]`), 0o644)
	names, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(names) != 2 || names[0] != "boing.mp3" || names[1] != "loud.mp3" {
		t.Errorf("names = %v", names)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); err == nil {
		t.Error("LoadManifest succeeded without a manifest")
	}
}

func TestLoadManifestMalformed(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`{"not": "a list"}`), 0o644)
	if _, err := LoadManifest(dir); err == nil {
		t.Error("LoadManifest accepted an object")
	}
}

// --- Bank ---

func fakeBank(names ...string) (*Bank, *atomic.Int32) {
	var calls atomic.Int32
	b := NewBank("sounds", 44100, names)
	b.decode = func(path string, rate int) ([]float32, error) {
		calls.Add(1)
		if filepath.Base(path) == "broken.mp3" {
			return nil, errors.New("corrupt")
		}
		return []float32{0.1, 0.2, 0.3}, nil
	}
	return b, &calls
}

func TestBankLoadAllCachesFailures(t *testing.T) {
	b, calls := fakeBank("a.mp3", "broken.mp3", "b.wav")
	b.LoadAll()
	if got := calls.Load(); got != 3 {
		t.Fatalf("decode called %d times, want 3", got)
	}

	if s, ok := b.Samples("a.mp3"); !ok || len(s) != 3 {
		t.Errorf("Samples(a.mp3) = %v, %v", s, ok)
	}
	if _, ok := b.Samples("broken.mp3"); ok {
		t.Error("Samples(broken.mp3) available after decode failure")
	}

	b.LoadAll()
	b.Samples("broken.mp3")
	if got := calls.Load(); got != 3 {
		t.Errorf("decode called %d times after reload, want 3", got)
	}

	avail := b.Available()
	if !avail["a.mp3"] || avail["broken.mp3"] || !avail["b.wav"] {
		t.Errorf("Available() = %v", avail)
	}
}

func TestBankSamplesLazyAndUnknown(t *testing.T) {
	b, calls := fakeBank("a.mp3")
	if _, ok := b.Samples("nope.mp3"); ok {
		t.Error("Samples returned an unknown sound")
	}
	if _, ok := b.Samples("a.mp3"); !ok {
		t.Error("Samples(a.mp3) not decoded on first use")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("decode called %d times, want 1", got)
	}
}
