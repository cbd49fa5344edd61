// Package device enumerates audio input devices and probes which sample
// rates each device accepts.
package device

import "fmt"

// CandidateRates is the fixed set of sample rates offered to the user,
// ascending. Devices are probed against each before it is offered.
var CandidateRates = []int{8000, 16000, 22050, 44100, 48000}

// Descriptor identifies one audio device as reported by the host.
type Descriptor struct {
	ID               int
	Name             string
	MaxInputChannels int
}

// Host abstracts the underlying audio subsystem's device queries.
type Host interface {
	// Devices returns every device the host knows about, input or not.
	Devices() ([]Descriptor, error)
	// SupportsRate reports whether the device accepts a mono input stream
	// at the given sample rate. A non-nil error means it does not.
	SupportsRate(deviceID, sampleRate int) error
}

// Catalog answers device and sample-rate queries for the capture pipeline.
type Catalog struct {
	host Host
}

func NewCatalog(host Host) *Catalog {
	return &Catalog{host: host}
}

// ListInputDevices returns the devices capable of capture, in host order.
// An enumeration failure is propagated to the caller.
func (c *Catalog) ListInputDevices() ([]Descriptor, error) {
	devices, err := c.host.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate input devices: %w", err)
	}

	inputs := make([]Descriptor, 0, len(devices))
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// SupportedSampleRates filters CandidateRates down to the rates the device
// actually accepts. A failed probe drops the rate silently; the result
// stays in ascending order.
func (c *Catalog) SupportedSampleRates(deviceID int) []int {
	rates := make([]int, 0, len(CandidateRates))
	for _, rate := range CandidateRates {
		if err := c.host.SupportsRate(deviceID, rate); err != nil {
			continue
		}
		rates = append(rates, rate)
	}
	return rates
}
