package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/satindergrewal/funnymic/internal/audio"
	"github.com/satindergrewal/funnymic/internal/config"
	"github.com/satindergrewal/funnymic/internal/device"
	"github.com/satindergrewal/funnymic/internal/glitch"
	"github.com/satindergrewal/funnymic/internal/sched"
	"github.com/satindergrewal/funnymic/internal/sound"
	"github.com/satindergrewal/funnymic/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Config file ignored: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("funny mic starting up...")
	if devices, err := device.List(); err != nil {
		log.Printf("Device listing failed: %v", err)
	} else {
		for _, d := range devices {
			log.Printf("Device: %s (in %d, out %d)", d.Name, d.Inputs, d.Outputs)
		}
	}

	// Sounds: manifest names, decoded at the session rate
	names, manifestErr := sound.LoadManifest(cfg.SoundsDir)
	if manifestErr != nil {
		log.Printf("Sound manifest: %v", manifestErr)
	}
	bank := sound.NewBank(cfg.SoundsDir, cfg.SampleRate, names)

	effects := sched.NewSet(glitch.VariantNames()...)
	applyEnabled(effects, cfg.Effects, "effect")
	sounds := sched.NewSet(names...)
	applyEnabled(sounds, cfg.Sounds, "sound")

	// Duplex playback through PortAudio unless another sink plays it
	duplex := cfg.Playback && cfg.PlaybackBackend == config.BackendPortAudio

	glitchCfg := sched.DefaultGlitchConfig()
	glitchCfg.Interval = config.Seconds(cfg.GlitchInterval)
	overlayCfg := sched.DefaultOverlayConfig()
	overlayCfg.Interval = config.Seconds(cfg.SoundInterval)
	overlayCfg.LoudSound = cfg.LoudSound

	pipeline := audio.NewPipeline(audio.PipelineConfig{
		Device: audio.DeviceConfig{
			SampleRate:   cfg.SampleRate,
			BlockSize:    cfg.BlockSize,
			InputDevice:  cfg.InputDevice,
			OutputDevice: cfg.OutputDevice,
			Playback:     duplex,
		},
		Distortion: cfg.Distortion,
		Glitch:     glitchCfg,
		Overlay:    overlayCfg,
	}, device.Open, bank, effects, sounds, func(msg string) {
		log.Printf("Status: %s", msg)
	})
	if manifestErr != nil {
		pipeline.Report("error: could not load sounds.json")
	}

	// Broadcaster: fan-out processed blocks to monitors and sinks
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, pipeline.Frames())

	if cfg.Playback && cfg.PlaybackBackend == config.BackendOto {
		player, err := stream.NewPlayer(broadcaster, cfg.SampleRate)
		if err != nil {
			log.Printf("Oto playback unavailable: %v", err)
		} else {
			defer player.Close()
			log.Println("Playback via oto")
		}
	}
	if cfg.RecordPath != "" {
		rec, err := stream.NewRecorder(broadcaster, cfg.RecordPath, cfg.SampleRate)
		if err != nil {
			log.Printf("Recording disabled: %v", err)
		} else {
			defer func() {
				if err := rec.Close(); err != nil {
					log.Printf("Recording: %v", err)
				}
			}()
		}
	}

	webrtcHandler := stream.NewWebRTCHandler(broadcaster, cfg.SampleRate)

	// HTTP routes
	mux := http.NewServeMux()
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster, cfg.SampleRate))
	mux.Handle("/offer", webrtcHandler)

	a := &api{
		ctx:       ctx,
		pipeline:  pipeline,
		effects:   effects,
		sounds:    sounds,
		available: bank.Available,
		listeners: func() (int, int) {
			return broadcaster.ListenerCount(), webrtcHandler.PeerCount()
		},
	}
	a.routes(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		pipeline.Stop()
		server.Close()
	}()

	log.Printf("funny mic control on %s (%d Hz, %d-sample blocks)", addr, cfg.SampleRate, cfg.BlockSize)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// applyEnabled sets the initial enabled flags from the config file.
func applyEnabled(set *sched.Set, flags map[string]bool, kind string) {
	for name, on := range flags {
		if !set.Enable(name, on) {
			log.Printf("Unknown %s %q in config", kind, name)
		}
	}
}
