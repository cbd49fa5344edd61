// Package app sequences audio capture into transcription and reports the
// outcomes to the presentation layer as events.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/capture"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/device"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/transcribe"
)

// EventType discriminates the events the app reports upward.
type EventType int

const (
	// EventRecordingFinished carries the finalized capture buffer.
	EventRecordingFinished EventType = iota
	// EventLanguageDetected carries the detected language of a job.
	EventLanguageDetected
	// EventTranscriptionFinished carries the transcript text.
	EventTranscriptionFinished
	// EventError reports a failed capture session or transcription job.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventRecordingFinished:
		return "recording_finished"
	case EventLanguageDetected:
		return "language_detected"
	case EventTranscriptionFinished:
		return "transcription_finished"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is one asynchronous outcome. Only the fields matching Type are set.
type Event struct {
	Type       EventType
	Samples    []float32
	SampleRate int
	Language   string
	Text       string
	Err        error
}

// Config wires an App together.
type Config struct {
	Recorder *capture.Recorder
	Catalog  *device.Catalog
	Engine   transcribe.Engine
	// Model is the initially selected model identifier.
	Model  string
	Logger zerolog.Logger
}

// App owns at most one capture session and one transcription worker. It
// accepts Start/Stop/SelectModel commands and emits events on a channel
// the caller must drain.
type App struct {
	recorder *capture.Recorder
	catalog  *device.Catalog
	log      zerolog.Logger

	worker *transcribe.Worker
	events chan Event

	mu    sync.Mutex
	model string
	wg    sync.WaitGroup
}

func New(cfg Config) *App {
	model := cfg.Model
	if model == "" {
		model = "base"
	}

	a := &App{
		recorder: cfg.Recorder,
		catalog:  cfg.Catalog,
		log:      cfg.Logger,
		events:   make(chan Event, 16),
		model:    model,
	}
	a.worker = transcribe.NewWorker(cfg.Engine, transcribe.Callbacks{
		LanguageDetected: func(lang string) {
			a.emit(Event{Type: EventLanguageDetected, Language: lang})
		},
		Finished: func(res transcribe.Result) {
			a.emit(Event{Type: EventTranscriptionFinished, Text: res.Text})
		},
		Error: func(err error) {
			a.emit(Event{Type: EventError, Err: err})
		},
	}, cfg.Logger)
	return a
}

// Events returns the app's outcome channel. It is closed by Close.
func (a *App) Events() <-chan Event {
	return a.events
}

// Start begins a capture session on the device at the given rate. It is
// rejected while a previous session is still active; a rejected start has
// no side effects and emits nothing.
func (a *App) Start(deviceID, sampleRate int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	session, err := a.recorder.Start(deviceID, sampleRate)
	if err != nil {
		return err
	}

	a.wg.Add(1)
	go a.watch(session)
	return nil
}

// Stop requests the end of the active recording. A no-op when nothing is
// recording.
func (a *App) Stop() {
	a.recorder.Stop()
}

// Recording reports whether a capture session is currently active.
func (a *App) Recording() bool {
	return a.recorder.Active()
}

// SelectModel changes the model used for the next transcription hand-off.
// It may be called at any time; the value is read once at hand-off.
func (a *App) SelectModel(id string) error {
	if !transcribe.ValidModel(id) {
		return fmt.Errorf("unknown model %q", id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.model != id {
		a.log.Info().Str("model", id).Msg("Model selected")
		a.model = id
	}
	return nil
}

// Model returns the currently selected model identifier.
func (a *App) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Devices lists the capture-capable devices.
func (a *App) Devices() ([]device.Descriptor, error) {
	return a.catalog.ListInputDevices()
}

// SupportedRates lists the probed sample rates for a device.
func (a *App) SupportedRates(deviceID int) []int {
	return a.catalog.SupportedSampleRates(deviceID)
}

// watch waits for the session to finalize and hands a completed buffer to
// the transcription worker.
func (a *App) watch(session *capture.Session) {
	defer a.wg.Done()
	<-session.Done()

	if err := session.Err(); err != nil {
		a.emit(Event{Type: EventError, Err: err})
		return
	}

	buffer := session.Buffer()
	a.emit(Event{
		Type:       EventRecordingFinished,
		Samples:    buffer,
		SampleRate: session.SampleRate,
	})

	// The model identifier is resolved now, at hand-off, not at capture
	// start.
	a.mu.Lock()
	model := a.model
	a.mu.Unlock()

	err := a.worker.Submit(transcribe.Request{
		Samples:    buffer,
		SampleRate: session.SampleRate,
		ModelID:    model,
	})
	if err != nil && !errors.Is(err, transcribe.ErrWorkerClosed) {
		a.emit(Event{Type: EventError, Err: err})
	}
}

func (a *App) emit(ev Event) {
	a.events <- ev
}

// Close stops any active recording, waits for hand-offs and the in-flight
// transcription to drain, then closes the event channel.
func (a *App) Close() {
	a.recorder.Stop()
	a.wg.Wait()
	a.worker.Close()
	close(a.events)
}
