// Package capture records microphone audio through a real-time callback
// and finalizes it into a single contiguous buffer on stop.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a capture session.
type State int

const (
	Idle State = iota
	Recording
	Stopping
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrNotIdle is returned by Start while a session is still active.
	ErrNotIdle = errors.New("capture already in progress")
	// ErrEmptyRecording is the session error when stop arrives before any
	// audio was delivered.
	ErrEmptyRecording = errors.New("no audio data recorded")
)

// stopPollInterval bounds the delay between Stop and stream teardown.
const stopPollInterval = 100 * time.Millisecond

// Backend opens input streams on the underlying audio subsystem.
type Backend interface {
	// OpenInputStream opens a mono input stream at the given device and
	// sample rate. onFrames is invoked on the audio subsystem's own
	// execution context with one frame batch per call and must not be
	// retained; onError aborts the session.
	OpenInputStream(deviceID, sampleRate int, onFrames func([]float32), onError func(error)) (Stream, error)
}

// Stream is one open input stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Recorder owns at most one active capture session at a time.
type Recorder struct {
	backend Backend
	log     zerolog.Logger

	mu      sync.Mutex
	current *Session
}

func New(backend Backend, log zerolog.Logger) *Recorder {
	return &Recorder{backend: backend, log: log}
}

// Start opens a mono stream on the device and begins recording. It is
// rejected with ErrNotIdle, without side effects, while a previous session
// is still in a non-terminal state.
func (r *Recorder) Start(deviceID, sampleRate int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && !r.current.terminal() {
		return nil, ErrNotIdle
	}

	s := &Session{
		ID:         uuid.New(),
		DeviceID:   deviceID,
		SampleRate: sampleRate,
		state:      Idle,
		stopCh:     make(chan struct{}),
		errCh:      make(chan error, 1),
		done:       make(chan struct{}),
	}

	stream, err := r.backend.OpenInputStream(deviceID, sampleRate, s.onFrames, s.onStreamError)
	if err != nil {
		return nil, fmt.Errorf("open input stream (device %d, %d Hz): %w", deviceID, sampleRate, err)
	}

	s.mu.Lock()
	s.state = Recording
	s.mu.Unlock()

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream (device %d, %d Hz): %w", deviceID, sampleRate, err)
	}

	r.log.Info().
		Str("session", s.ID.String()).
		Int("device", deviceID).
		Int("sample_rate", sampleRate).
		Msg("Recording started")

	r.current = s
	go s.run(stream, r.log)
	return s, nil
}

// Stop requests the end of the active session, if any. A no-op otherwise.
func (r *Recorder) Stop() {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}

// Active reports whether a session is currently in a non-terminal state.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && !r.current.terminal()
}

// Session is one record-to-finalize lifecycle for a device/rate pair.
// Device and sample rate are fixed for the session's lifetime.
type Session struct {
	ID         uuid.UUID
	DeviceID   int
	SampleRate int

	// mu guards state and chunks. The capture callback holds it only for
	// the append; finalization reads chunks after the sequence is frozen.
	mu     sync.Mutex
	state  State
	chunks [][]float32

	stopCh chan struct{}
	errCh  chan error
	done   chan struct{}

	buffer []float32
	err    error
}

// onFrames is the real-time capture callback. It copies the batch and
// appends under a short critical section, nothing else.
func (s *Session) onFrames(in []float32) {
	batch := make([]float32, len(in))
	copy(batch, in)

	s.mu.Lock()
	if s.state == Recording {
		s.chunks = append(s.chunks, batch)
	}
	s.mu.Unlock()
}

// onStreamError delivers an asynchronous stream error to the worker.
func (s *Session) onStreamError(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// Stop transitions Recording -> Stopping and signals the capture worker.
// Calls in any other state are no-ops, so duplicate stops never produce
// duplicate results.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	s.mu.Unlock()

	// The Recording -> Stopping guard above makes this close happen once.
	close(s.stopCh)
}

// run is the capture worker: it waits for a stop signal or stream error,
// tears the stream down, and finalizes the session.
func (s *Session) run(stream Stream, log zerolog.Logger) {
	defer close(s.done)

	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	var streamErr error
poll:
	for {
		select {
		case <-s.stopCh:
			break poll
		case err := <-s.errCh:
			streamErr = err
			break poll
		case <-ticker.C:
		}
	}

	// Freeze the chunk sequence before teardown; the callback stops
	// appending once the state leaves Recording.
	s.mu.Lock()
	if s.state == Recording {
		s.state = Stopping
	}
	chunks := s.chunks
	s.mu.Unlock()

	if err := stream.Stop(); err != nil && streamErr == nil {
		streamErr = err
	}
	stream.Close()

	if streamErr != nil {
		s.finish(nil, fmt.Errorf("input stream: %w", streamErr))
		log.Error().Str("session", s.ID.String()).Err(streamErr).Msg("Recording failed")
		return
	}

	if len(chunks) == 0 {
		s.finish(nil, ErrEmptyRecording)
		log.Warn().Str("session", s.ID.String()).Msg("Recording stopped with no audio")
		return
	}

	// Concatenate outside the append lock; the sequence is frozen now.
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	buffer := make([]float32, 0, total)
	for _, c := range chunks {
		buffer = append(buffer, c...)
	}

	s.finish(buffer, nil)
	log.Info().
		Str("session", s.ID.String()).
		Int("chunks", len(chunks)).
		Int("samples", total).
		Msg("Recording finished")
}

func (s *Session) finish(buffer []float32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Failed
		s.err = err
		return
	}
	s.state = Completed
	s.buffer = buffer
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Buffer returns the finalized audio. Valid only after Done, on Completed.
func (s *Session) Buffer() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Err returns the terminal error, if the session Failed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) terminal() bool {
	st := s.State()
	return st == Completed || st == Failed
}
