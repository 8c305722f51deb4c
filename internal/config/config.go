package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Defaults.
const (
	DefaultPort            = 8080
	DefaultSampleRate      = 44100
	DefaultBlockSize       = 1024
	DefaultDistortion      = 5.0
	MaxDistortion          = 10.0
	DefaultGlitchInterval  = 2.5 // seconds
	DefaultSoundInterval   = 8.0 // seconds
	DefaultSoundsDir       = "sounds"
	DefaultLoudSound       = "loud.mp3"
	BackendPortAudio       = "portaudio"
	BackendOto             = "oto"
	DefaultPlaybackBackend = BackendPortAudio
)

// Config holds all runtime configuration, loaded from environment variables
// and an optional YAML file.
type Config struct {
	// Server
	Port int `yaml:"port"`

	// Audio session
	SampleRate      int     `yaml:"sample_rate"`
	BlockSize       int     `yaml:"block_size"`
	Distortion      float64 `yaml:"distortion"`      // 0-10
	GlitchInterval  float64 `yaml:"glitch_interval"` // seconds
	SoundInterval   float64 `yaml:"sound_interval"`  // seconds
	InputDevice     string  `yaml:"input_device"`    // name substring, "" = default
	OutputDevice    string  `yaml:"output_device"`
	Playback        bool    `yaml:"playback"`         // route processed audio to the speakers
	PlaybackBackend string  `yaml:"playback_backend"` // portaudio (duplex) or oto
	RecordPath      string  `yaml:"record_path"`      // WAV capture, "" = off

	// Sounds
	SoundsDir string `yaml:"sounds_dir"`
	LoudSound string `yaml:"loud_sound"`

	// Initial enabled flags; names not listed stay enabled.
	Effects map[string]bool `yaml:"effects"`
	Sounds  map[string]bool `yaml:"sounds"`

	File string `yaml:"-"` // YAML file the values were overlaid from
}

// Load reads configuration from environment variables with sane defaults,
// then overlays the YAML file named by FUNNY_CONFIG, if any. Invalid values
// fall back to their defaults.
func Load() (Config, error) {
	cfg := Config{
		Port: envInt("FUNNY_PORT", DefaultPort),

		SampleRate:      envInt("FUNNY_SAMPLE_RATE", DefaultSampleRate),
		BlockSize:       envInt("FUNNY_BLOCK_SIZE", DefaultBlockSize),
		Distortion:      envFloat("FUNNY_DISTORTION", DefaultDistortion),
		GlitchInterval:  envFloat("FUNNY_GLITCH_INTERVAL", DefaultGlitchInterval),
		SoundInterval:   envFloat("FUNNY_SOUND_INTERVAL", DefaultSoundInterval),
		InputDevice:     envStr("FUNNY_INPUT_DEVICE", ""),
		OutputDevice:    envStr("FUNNY_OUTPUT_DEVICE", ""),
		Playback:        envBool("FUNNY_PLAYBACK", true),
		PlaybackBackend: envStr("FUNNY_PLAYBACK_BACKEND", DefaultPlaybackBackend),
		RecordPath:      envStr("FUNNY_RECORD_PATH", ""),

		SoundsDir: envStr("FUNNY_SOUNDS_DIR", DefaultSoundsDir),
		LoudSound: envStr("FUNNY_LOUD_SOUND", DefaultLoudSound),
	}

	var err error
	if path := envStr("FUNNY_CONFIG", ""); path != "" {
		err = cfg.LoadFile(path)
	}
	cfg.normalize()
	return cfg, err
}

// LoadFile overlays the values present in the YAML file at path.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.File = path
	return nil
}

// normalize replaces out-of-range values with their defaults.
func (c *Config) normalize() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	if !finite(c.Distortion) || c.Distortion < 0 {
		c.Distortion = DefaultDistortion
	} else if c.Distortion > MaxDistortion {
		c.Distortion = MaxDistortion
	}
	if !finite(c.GlitchInterval) || c.GlitchInterval <= 0 {
		c.GlitchInterval = DefaultGlitchInterval
	}
	if !finite(c.SoundInterval) || c.SoundInterval <= 0 {
		c.SoundInterval = DefaultSoundInterval
	}
	if c.SoundsDir == "" {
		c.SoundsDir = DefaultSoundsDir
	}
	if c.LoudSound == "" {
		c.LoudSound = DefaultLoudSound
	}
	c.PlaybackBackend = strings.ToLower(c.PlaybackBackend)
	if c.PlaybackBackend != BackendPortAudio && c.PlaybackBackend != BackendOto {
		log.Printf("Unknown playback backend %q, using %s", c.PlaybackBackend, DefaultPlaybackBackend)
		c.PlaybackBackend = DefaultPlaybackBackend
	}
}

// Seconds converts a seconds setting to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && finite(f) {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
