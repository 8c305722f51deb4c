// Package device opens microphone streams through PortAudio.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/satindergrewal/funnymic/internal/audio"
)

// Stream is a PortAudio stream feeding an audio.Processor.
type Stream struct {
	*portaudio.Stream
}

// Open is an audio.DeviceOpener. It opens a mono input stream, or a duplex
// mono stream when playback is enabled, using low-latency parameters.
func Open(cfg audio.DeviceConfig, process audio.Processor) (audio.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	s, err := open(cfg, process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return s, nil
}

func open(cfg audio.DeviceConfig, process audio.Processor) (*Stream, error) {
	in, err := find(cfg.InputDevice, true)
	if err != nil {
		return nil, err
	}
	var out *portaudio.DeviceInfo
	if cfg.Playback {
		if out, err = find(cfg.OutputDevice, false); err != nil {
			return nil, err
		}
	}

	p := portaudio.LowLatencyParameters(in, out)
	p.Input.Channels = 1
	if out != nil {
		p.Output.Channels = 1
	}
	p.SampleRate = float64(cfg.SampleRate)
	p.FramesPerBuffer = cfg.BlockSize

	s := &Stream{}
	if out != nil {
		s.Stream, err = portaudio.OpenStream(p, func(in, out []float32) { process(in, out) })
	} else {
		s.Stream, err = portaudio.OpenStream(p, func(in []float32) { process(in, nil) })
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open stream on %q: %w", in.Name, err)
	}
	return s, nil
}

// Close closes the stream and releases PortAudio.
func (s *Stream) Close() error {
	return errors.Join(s.Stream.Close(), portaudio.Terminate())
}

// find returns the first device whose name contains name, or the system
// default when name is empty.
func find(name string, input bool) (*portaudio.DeviceInfo, error) {
	kind := "output"
	if input {
		kind = "input"
	}
	if name == "" {
		var d *portaudio.DeviceInfo
		var err error
		if input {
			d, err = portaudio.DefaultInputDevice()
		} else {
			d, err = portaudio.DefaultOutputDevice()
		}
		if err != nil {
			return nil, fmt.Errorf("no default %s device: %w", kind, err)
		}
		return d, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if d := match(devices, name, input); d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("no %s device matching %q", kind, name)
}

func match(devices []*portaudio.DeviceInfo, name string, input bool) *portaudio.DeviceInfo {
	want := strings.ToLower(name)
	for _, d := range devices {
		if input && d.MaxInputChannels < 1 || !input && d.MaxOutputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(d.Name), want) {
			return d
		}
	}
	return nil
}

// Info describes an audio device for listing.
type Info struct {
	Name    string `json:"name"`
	Inputs  int    `json:"inputs"`
	Outputs int    `json:"outputs"`
}

// List returns the devices PortAudio can see.
func List() ([]Info, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	out := make([]Info, 0, len(devices))
	for _, d := range devices {
		out = append(out, Info{Name: d.Name, Inputs: d.MaxInputChannels, Outputs: d.MaxOutputChannels})
	}
	return out, nil
}
