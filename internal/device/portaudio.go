package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioHost implements Host on top of PortAudio. Device IDs are the
// indexes PortAudio assigns during enumeration.
type PortAudioHost struct{}

// NewPortAudioHost initializes PortAudio. Callers must Close the host to
// release it.
func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudioHost{}, nil
}

func (h *PortAudioHost) Close() error {
	return portaudio.Terminate()
}

func (h *PortAudioHost) Devices() ([]Descriptor, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	result := make([]Descriptor, 0, len(devices))
	for i, d := range devices {
		result = append(result, Descriptor{
			ID:               i,
			Name:             d.Name,
			MaxInputChannels: d.MaxInputChannels,
		})
	}
	return result, nil
}

func (h *PortAudioHost) SupportsRate(deviceID, sampleRate int) error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return fmt.Errorf("device %d not found", deviceID)
	}
	dev := devices[deviceID]

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: 512,
	}
	return portaudio.IsFormatSupported(params, make([]float32, 512))
}
