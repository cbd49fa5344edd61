package device

import (
	"errors"
	"testing"
)

type fakeHost struct {
	devices []Descriptor
	listErr error
	// rates maps device ID to the set of rates the device accepts
	rates map[int]map[int]bool
}

func (h *fakeHost) Devices() ([]Descriptor, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.devices, nil
}

func (h *fakeHost) SupportsRate(deviceID, sampleRate int) error {
	if h.rates[deviceID][sampleRate] {
		return nil
	}
	return errors.New("format not supported")
}

func TestListInputDevicesFiltersOutputOnly(t *testing.T) {
	catalog := NewCatalog(&fakeHost{
		devices: []Descriptor{
			{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 1},
			{ID: 1, Name: "Speakers", MaxInputChannels: 0},
			{ID: 2, Name: "USB Interface", MaxInputChannels: 2},
		},
	})

	devices, err := catalog.ListInputDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 input devices, got %d", len(devices))
	}
	if devices[0].ID != 0 || devices[1].ID != 2 {
		t.Errorf("expected devices [0 2], got [%d %d]", devices[0].ID, devices[1].ID)
	}
}

func TestListInputDevicesPropagatesError(t *testing.T) {
	hostErr := errors.New("no audio subsystem")
	catalog := NewCatalog(&fakeHost{listErr: hostErr})

	if _, err := catalog.ListInputDevices(); !errors.Is(err, hostErr) {
		t.Fatalf("expected enumeration error to propagate, got %v", err)
	}
}

func TestSupportedSampleRatesFiltersFailedProbes(t *testing.T) {
	catalog := NewCatalog(&fakeHost{
		rates: map[int]map[int]bool{
			3: {16000: true, 22050: true, 44100: true},
		},
	})

	got := catalog.SupportedSampleRates(3)
	want := []int{16000, 22050, 44100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSupportedSampleRatesAscendingSubset(t *testing.T) {
	catalog := NewCatalog(&fakeHost{
		rates: map[int]map[int]bool{
			0: {48000: true, 8000: true, 96000: true},
		},
	})

	got := catalog.SupportedSampleRates(0)
	if len(got) != 2 || got[0] != 8000 || got[1] != 48000 {
		t.Fatalf("expected [8000 48000], got %v", got)
	}

	candidates := map[int]bool{}
	for _, r := range CandidateRates {
		candidates[r] = true
	}
	for _, r := range got {
		if !candidates[r] {
			t.Errorf("rate %d is outside the candidate set", r)
		}
	}
}

func TestSupportedSampleRatesUnknownDevice(t *testing.T) {
	catalog := NewCatalog(&fakeHost{rates: map[int]map[int]bool{}})

	if got := catalog.SupportedSampleRates(42); len(got) != 0 {
		t.Fatalf("expected no rates for unknown device, got %v", got)
	}
}
