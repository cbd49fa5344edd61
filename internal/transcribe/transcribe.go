// Package transcribe turns finalized audio buffers into text through a
// speech-to-text engine, one job at a time on a dedicated worker.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/wavio"
)

// Models lists the supported model identifiers.
var Models = []string{"tiny", "base", "small", "medium", "large"}

// ValidModel reports whether id names a supported model.
func ValidModel(id string) bool {
	for _, m := range Models {
		if m == id {
			return true
		}
	}
	return false
}

// Result is the outcome of one successful transcription.
type Result struct {
	Text     string
	Language string
	// ModelID is the model that produced the result.
	ModelID string
}

// Model is a loaded speech-to-text model.
type Model interface {
	// Transcribe runs inference over the staged WAV file.
	Transcribe(ctx context.Context, wavPath string) (Result, error)
	Close() error
}

// Engine acquires models by identifier. Loading may take seconds on a
// cold start.
type Engine interface {
	Load(ctx context.Context, modelID string) (Model, error)
}

// Request carries one finalized recording into the worker.
type Request struct {
	Samples    []float32
	SampleRate int
	ModelID    string
}

// Callbacks receive the worker's events. They are invoked on the worker
// goroutine; a successful job emits LanguageDetected then Finished, a
// failed job emits Error exactly once and nothing else.
type Callbacks struct {
	LanguageDetected func(language string)
	Finished         func(result Result)
	Error            func(err error)
}

// ErrWorkerClosed is returned by Submit after Close.
var ErrWorkerClosed = errors.New("transcription worker closed")

// Worker is the single dedicated transcription goroutine. Jobs run to
// completion once started; they are never cancelled.
type Worker struct {
	engine Engine
	cb     Callbacks
	log    zerolog.Logger

	queue chan Request
	quit  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewWorker(engine Engine, cb Callbacks, log zerolog.Logger) *Worker {
	w := &Worker{
		engine: engine,
		cb:     cb,
		log:    log,
		queue:  make(chan Request),
		quit:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit hands a request to the worker, blocking until the worker is free
// to take it. Requests are processed strictly one at a time.
func (w *Worker) Submit(req Request) error {
	select {
	case w.queue <- req:
		return nil
	case <-w.quit:
		return ErrWorkerClosed
	}
}

// Close stops accepting work and waits for an in-flight job to finish.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.quit:
			return
		case req := <-w.queue:
			w.process(req)
		}
	}
}

func (w *Worker) process(req Request) {
	log := w.log.With().
		Str("model", req.ModelID).
		Int("sample_rate", req.SampleRate).
		Int("samples", len(req.Samples)).
		Logger()
	log.Info().Msg("Transcription started")

	result, err := w.runJob(req)
	if err != nil {
		log.Error().Err(err).Msg("Transcription failed")
		if w.cb.Error != nil {
			w.cb.Error(err)
		}
		return
	}

	log.Info().Str("language", result.Language).Msg("Transcription finished")
	if w.cb.LanguageDetected != nil {
		w.cb.LanguageDetected(result.Language)
	}
	if w.cb.Finished != nil {
		w.cb.Finished(result)
	}
}

func (w *Worker) runJob(req Request) (Result, error) {
	ctx := context.Background()

	if !ValidModel(req.ModelID) {
		return Result{}, fmt.Errorf("unknown model %q", req.ModelID)
	}

	model, err := w.engine.Load(ctx, req.ModelID)
	if err != nil {
		return Result{}, fmt.Errorf("load model %s: %w", req.ModelID, err)
	}
	defer model.Close()

	path, err := stageWAV(normalize(req.Samples), req.SampleRate)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(path)

	result, err := model.Transcribe(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: %w", err)
	}
	result.ModelID = req.ModelID
	return result, nil
}

// stageWAV writes the samples into a temp WAV file for the engine. The
// caller removes the file on every exit path.
func stageWAV(samples []float32, sampleRate int) (string, error) {
	f, err := os.CreateTemp("", "whisper_audiorecord_*.wav")
	if err != nil {
		return "", fmt.Errorf("stage recording: %w", err)
	}
	if err := wavio.Encode(f, samples, sampleRate); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage recording: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage recording: %w", err)
	}
	return f.Name(), nil
}

// normalize scales the buffer so its peak reaches full scale. Silence is
// returned as-is.
func normalize(samples []float32) []float32 {
	var peak float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		return samples
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s / peak
	}
	return out
}
