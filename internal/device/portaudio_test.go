package device

import (
	"testing"

	"github.com/gordonklaus/portaudio"
)

func TestMatch(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "Built-in Output", MaxOutputChannels: 2},
		{Name: "USB Microphone", MaxInputChannels: 1},
		{Name: "USB Headset", MaxInputChannels: 1, MaxOutputChannels: 2},
	}
	tests := []struct {
		name  string
		input bool
		want  string
	}{
		{"usb", true, "USB Microphone"},
		{"usb", false, "USB Headset"},
		{"built-in", false, "Built-in Output"},
		{"built-in", true, ""},
		{"headset", true, "USB Headset"},
		{"nothing", true, ""},
	}
	for _, tt := range tests {
		got := match(devices, tt.name, tt.input)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("match(%q, input=%v) = %q, want none", tt.name, tt.input, got.Name)
		case tt.want != "" && (got == nil || got.Name != tt.want):
			t.Errorf("match(%q, input=%v) = %v, want %q", tt.name, tt.input, got, tt.want)
		}
	}
}
