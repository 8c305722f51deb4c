package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"FUNNY_PORT", "FUNNY_SAMPLE_RATE", "FUNNY_BLOCK_SIZE", "FUNNY_DISTORTION",
	"FUNNY_GLITCH_INTERVAL", "FUNNY_SOUND_INTERVAL", "FUNNY_SOUNDS_DIR",
	"FUNNY_LOUD_SOUND", "FUNNY_INPUT_DEVICE", "FUNNY_OUTPUT_DEVICE",
	"FUNNY_PLAYBACK", "FUNNY_PLAYBACK_BACKEND", "FUNNY_RECORD_PATH",
	"FUNNY_CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	// t.Setenv restores the previous value after the test.
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.BlockSize != 1024 {
		t.Errorf("BlockSize = %d, want 1024", cfg.BlockSize)
	}
	if cfg.Distortion != 5 {
		t.Errorf("Distortion = %v, want 5", cfg.Distortion)
	}
	if cfg.GlitchInterval != 2.5 {
		t.Errorf("GlitchInterval = %v, want 2.5", cfg.GlitchInterval)
	}
	if cfg.SoundInterval != 8 {
		t.Errorf("SoundInterval = %v, want 8", cfg.SoundInterval)
	}
	if cfg.SoundsDir != "sounds" || cfg.LoudSound != "loud.mp3" {
		t.Errorf("SoundsDir, LoudSound = %q, %q", cfg.SoundsDir, cfg.LoudSound)
	}
	if !cfg.Playback || cfg.PlaybackBackend != BackendPortAudio {
		t.Errorf("Playback = %v via %q, want true via portaudio", cfg.Playback, cfg.PlaybackBackend)
	}
	if cfg.InputDevice != "" || cfg.RecordPath != "" || cfg.File != "" {
		t.Errorf("unexpected non-empty defaults: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUNNY_PORT", "3000")
	t.Setenv("FUNNY_SAMPLE_RATE", "48000")
	t.Setenv("FUNNY_BLOCK_SIZE", "512")
	t.Setenv("FUNNY_DISTORTION", "0")
	t.Setenv("FUNNY_GLITCH_INTERVAL", "1.5")
	t.Setenv("FUNNY_SOUND_INTERVAL", "20")
	t.Setenv("FUNNY_SOUNDS_DIR", "/srv/sounds")
	t.Setenv("FUNNY_INPUT_DEVICE", "usb")
	t.Setenv("FUNNY_PLAYBACK", "false")
	t.Setenv("FUNNY_PLAYBACK_BACKEND", "OTO")
	t.Setenv("FUNNY_RECORD_PATH", "/tmp/take.wav")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 || cfg.SampleRate != 48000 || cfg.BlockSize != 512 {
		t.Errorf("Port, SampleRate, BlockSize = %d, %d, %d", cfg.Port, cfg.SampleRate, cfg.BlockSize)
	}
	if cfg.Distortion != 0 {
		t.Errorf("Distortion = %v, want 0 (allowed)", cfg.Distortion)
	}
	if got := Seconds(cfg.GlitchInterval); got != 1500*time.Millisecond {
		t.Errorf("glitch interval = %v, want 1.5s", got)
	}
	if cfg.SoundInterval != 20 {
		t.Errorf("SoundInterval = %v, want 20", cfg.SoundInterval)
	}
	if cfg.SoundsDir != "/srv/sounds" || cfg.InputDevice != "usb" || cfg.RecordPath != "/tmp/take.wav" {
		t.Errorf("strings not loaded: %+v", cfg)
	}
	if cfg.Playback || cfg.PlaybackBackend != BackendOto {
		t.Errorf("Playback = %v via %q, want false via oto", cfg.Playback, cfg.PlaybackBackend)
	}
}

func TestLoadInvalidFallsBack(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(Config) bool
	}{
		{"FUNNY_PORT", "abc", func(c Config) bool { return c.Port == DefaultPort }},
		{"FUNNY_PORT", "-1", func(c Config) bool { return c.Port == DefaultPort }},
		{"FUNNY_BLOCK_SIZE", "0", func(c Config) bool { return c.BlockSize == DefaultBlockSize }},
		{"FUNNY_DISTORTION", "-2", func(c Config) bool { return c.Distortion == DefaultDistortion }},
		{"FUNNY_DISTORTION", "25", func(c Config) bool { return c.Distortion == MaxDistortion }},
		{"FUNNY_GLITCH_INTERVAL", "0", func(c Config) bool { return c.GlitchInterval == DefaultGlitchInterval }},
		{"FUNNY_SOUND_INTERVAL", "-8", func(c Config) bool { return c.SoundInterval == DefaultSoundInterval }},
		{"FUNNY_DISTORTION", "NaN", func(c Config) bool { return c.Distortion == DefaultDistortion }},
		{"FUNNY_DISTORTION", "+Inf", func(c Config) bool { return c.Distortion == DefaultDistortion }},
		{"FUNNY_GLITCH_INTERVAL", "NaN", func(c Config) bool { return c.GlitchInterval == DefaultGlitchInterval }},
		{"FUNNY_SOUND_INTERVAL", "+Inf", func(c Config) bool { return c.SoundInterval == DefaultSoundInterval }},
		{"FUNNY_SOUND_INTERVAL", "-Inf", func(c Config) bool { return c.SoundInterval == DefaultSoundInterval }},
		{"FUNNY_PLAYBACK", "maybe", func(c Config) bool { return c.Playback }},
		{"FUNNY_PLAYBACK_BACKEND", "alsa", func(c Config) bool { return c.PlaybackBackend == BackendPortAudio }},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			cfg, _ := Load()
			if !tt.check(cfg) {
				t.Errorf("%s=%q did not fall back: %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "funny.yaml")
	doc := `
distortion: 8
glitch_interval: 4
loud_sound: airhorn.mp3
effects:
  catchup: false
  mute: false
sounds:
  fart.mp3: false
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FUNNY_CONFIG", path)
	t.Setenv("FUNNY_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if cfg.Distortion != 8 || cfg.GlitchInterval != 4 || cfg.LoudSound != "airhorn.mp3" {
		t.Errorf("YAML values not applied: %+v", cfg)
	}
	if cfg.Port != 9090 || cfg.SoundInterval != DefaultSoundInterval {
		t.Errorf("values absent from YAML changed: port %d, sound interval %v", cfg.Port, cfg.SoundInterval)
	}
	if cfg.Effects["catchup"] || cfg.Effects["mute"] || len(cfg.Effects) != 2 {
		t.Errorf("Effects = %v", cfg.Effects)
	}
	if enabled, ok := cfg.Sounds["fart.mp3"]; !ok || enabled {
		t.Errorf("Sounds = %v", cfg.Sounds)
	}
}

func TestLoadYAMLNonFinite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "funny.yaml")
	doc := "distortion: .nan\nglitch_interval: .inf\nsound_interval: -.inf\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FUNNY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Distortion != DefaultDistortion {
		t.Errorf("Distortion = %v, want %v", cfg.Distortion, DefaultDistortion)
	}
	if cfg.GlitchInterval != DefaultGlitchInterval || cfg.SoundInterval != DefaultSoundInterval {
		t.Errorf("intervals = %v, %v, want defaults", cfg.GlitchInterval, cfg.SoundInterval)
	}
	if d := Seconds(cfg.GlitchInterval); d <= 0 {
		t.Errorf("Seconds(GlitchInterval) = %v, want positive", d)
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("FUNNY_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load()
	if err == nil {
		t.Error("Load succeeded with a missing config file")
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want defaults after a file error", cfg.Port)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("distortion: [not, a, number"), 0o644)
	t.Setenv("FUNNY_CONFIG", bad)
	if _, err := Load(); err == nil {
		t.Error("Load succeeded with malformed YAML")
	}
}
