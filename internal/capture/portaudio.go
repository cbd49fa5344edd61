package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 512

// PortAudioBackend implements Backend with PortAudio callback streams.
// Device IDs are PortAudio enumeration indexes; a negative ID selects the
// default input device.
type PortAudioBackend struct{}

// NewPortAudioBackend initializes PortAudio. Callers must Close the
// backend to release it.
func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudioBackend{}, nil
}

func (b *PortAudioBackend) Close() error {
	return portaudio.Terminate()
}

func (b *PortAudioBackend) OpenInputStream(deviceID, sampleRate int, onFrames func([]float32), onError func(error)) (Stream, error) {
	var dev *portaudio.DeviceInfo
	if deviceID < 0 {
		var err error
		dev, err = portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
	} else {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("enumerate devices: %w", err)
		}
		if deviceID >= len(devices) {
			return nil, fmt.Errorf("device %d not found", deviceID)
		}
		dev = devices[deviceID]
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}

	// PortAudio invokes the callback on its own audio thread; the session
	// copies the slice before the next invocation reuses it.
	stream, err := portaudio.OpenStream(params, func(in []float32) {
		onFrames(in)
	})
	if err != nil {
		return nil, err
	}
	return &paStream{stream: stream}, nil
}

type paStream struct {
	stream *portaudio.Stream
}

func (s *paStream) Start() error {
	return s.stream.Start()
}

func (s *paStream) Stop() error {
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	return s.stream.Close()
}
