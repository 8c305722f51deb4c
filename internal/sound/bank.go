package sound

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ManifestFile lists the sound file names inside the sounds directory.
const ManifestFile = "sounds.json"

// LoadManifest reads the JSON array of sound file names from dir.
func LoadManifest(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return names, nil
}

// Bank decodes sound files once and keeps the samples for overlay playback.
// A file that fails to decode is remembered as unavailable and never tried
// again.
type Bank struct {
	dir    string
	rate   int
	decode func(path string, sampleRate int) ([]float32, error)

	mu      sync.RWMutex
	names   []string
	samples map[string][]float32 // nil entry: decode failed
}

// NewBank creates a bank for the named files in dir, decoded at sampleRate.
func NewBank(dir string, sampleRate int, names []string) *Bank {
	return &Bank{
		dir:     dir,
		rate:    sampleRate,
		decode:  DecodeFile,
		names:   append([]string(nil), names...),
		samples: make(map[string][]float32),
	}
}

// Names returns the sound file names in manifest order.
func (b *Bank) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.names...)
}

func (b *Bank) known(name string) bool {
	for _, n := range b.names {
		if n == name {
			return true
		}
	}
	return false
}

// LoadAll decodes every sound not yet attempted, in parallel.
func (b *Bank) LoadAll() {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, name := range b.Names() {
		b.mu.RLock()
		_, done := b.samples[name]
		b.mu.RUnlock()
		if done {
			continue
		}
		g.Go(func() error {
			b.load(name)
			return nil
		})
	}
	g.Wait()
}

func (b *Bank) load(name string) []float32 {
	samples, err := b.decode(filepath.Join(b.dir, name), b.rate)
	if err != nil {
		log.Printf("Failed to load sound %s: %v", name, err)
		samples = nil
	} else if len(samples) == 0 {
		log.Printf("Sound %s decoded to no samples", name)
		samples = nil
	} else {
		log.Printf("Loaded sound %s (%d samples)", name, len(samples))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples[name] = samples
	return samples
}

// Samples returns the decoded samples for name, decoding on first use. It
// reports false for unknown names and files that failed to decode.
func (b *Bank) Samples(name string) ([]float32, bool) {
	b.mu.RLock()
	samples, done := b.samples[name]
	known := b.known(name)
	b.mu.RUnlock()
	if !known {
		return nil, false
	}
	if !done {
		samples = b.load(name)
	}
	return samples, samples != nil
}

// Available reports which known sounds decoded successfully. Sounds not yet
// attempted are omitted.
func (b *Bank) Available() map[string]bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]bool, len(b.samples))
	for name, s := range b.samples {
		out[name] = s != nil
	}
	return out
}
