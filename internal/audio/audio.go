package audio

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 1024 // samples per callback block, mono
	Oversample        = 4    // waveshaper oversampling factor
)

// Processor transforms one block of mono samples. out is nil when the
// device has no output channel.
type Processor func(in, out []float32)

// Device is an open audio stream that calls its Processor once per block.
type Device interface {
	Start() error
	Stop() error
	Close() error
}

// DeviceConfig selects the devices and block format of a session.
type DeviceConfig struct {
	SampleRate   int
	BlockSize    int
	InputDevice  string // name substring, "" = system default
	OutputDevice string
	Playback     bool // open an output channel as well as the input
}

// DeviceOpener opens a device that drives process.
type DeviceOpener func(cfg DeviceConfig, process Processor) (Device, error)
