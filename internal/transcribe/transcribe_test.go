package transcribe

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/wavio"
)

type fakeModel struct {
	result Result
	err    error

	mu         sync.Mutex
	paths      []string
	samples    []float32
	sampleRate int
	closed     bool
}

func (m *fakeModel) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return Result{}, err
	}
	samples, rate, err := wavio.Decode(f)
	f.Close()
	if err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	m.paths = append(m.paths, wavPath)
	m.samples = samples
	m.sampleRate = rate
	m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}
	return m.result, nil
}

func (m *fakeModel) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

type fakeEngine struct {
	model   *fakeModel
	loadErr error

	mu     sync.Mutex
	loaded []string
	// gate, when set, blocks Load until released
	gate chan struct{}
}

func (e *fakeEngine) Load(ctx context.Context, modelID string) (Model, error) {
	if e.gate != nil {
		<-e.gate
	}
	e.mu.Lock()
	e.loaded = append(e.loaded, modelID)
	e.mu.Unlock()

	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return e.model, nil
}

type event struct {
	kind     string
	language string
	result   Result
	err      error
}

func newSink() (Callbacks, <-chan event) {
	ch := make(chan event, 8)
	return Callbacks{
		LanguageDetected: func(lang string) { ch <- event{kind: "language", language: lang} },
		Finished:         func(res Result) { ch <- event{kind: "finished", result: res} },
		Error:            func(err error) { ch <- event{kind: "error", err: err} },
	}, ch
}

func nextEvent(t *testing.T, ch <-chan event) event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker event")
		return event{}
	}
}

func noEvent(t *testing.T, ch <-chan event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q", ev.kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWorkerEmitsLanguageThenText(t *testing.T) {
	model := &fakeModel{result: Result{Text: "hello world", Language: "en"}}
	engine := &fakeEngine{model: model}
	cb, events := newSink()
	worker := NewWorker(engine, cb, zerolog.Nop())
	defer worker.Close()

	req := Request{Samples: make([]float32, 480), SampleRate: 16000, ModelID: "base"}
	req.Samples[0] = 0.5
	if err := worker.Submit(req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ev := nextEvent(t, events)
	if ev.kind != "language" || ev.language != "en" {
		t.Fatalf("expected language event first, got %+v", ev)
	}
	ev = nextEvent(t, events)
	if ev.kind != "finished" || ev.result.Text != "hello world" {
		t.Fatalf("expected finished event, got %+v", ev)
	}
	if ev.result.ModelID != "base" {
		t.Errorf("expected result to carry model id base, got %q", ev.result.ModelID)
	}
	noEvent(t, events)

	model.mu.Lock()
	defer model.mu.Unlock()
	if len(model.samples) != 480 {
		t.Errorf("expected 480 staged samples, got %d", len(model.samples))
	}
	if model.sampleRate != 16000 {
		t.Errorf("expected staged rate 16000, got %d", model.sampleRate)
	}
	if !model.closed {
		t.Error("expected model closed after the job")
	}
}

func TestModelLoadFailureEmitsSingleError(t *testing.T) {
	loadErr := errors.New("model file corrupt")
	engine := &fakeEngine{loadErr: loadErr}
	cb, events := newSink()
	worker := NewWorker(engine, cb, zerolog.Nop())
	defer worker.Close()

	if err := worker.Submit(Request{Samples: []float32{0.1}, SampleRate: 16000, ModelID: "base"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ev := nextEvent(t, events)
	if ev.kind != "error" || !errors.Is(ev.err, loadErr) {
		t.Fatalf("expected error event wrapping load failure, got %+v", ev)
	}
	noEvent(t, events)
}

func TestUnknownModelRejected(t *testing.T) {
	engine := &fakeEngine{model: &fakeModel{}}
	cb, events := newSink()
	worker := NewWorker(engine, cb, zerolog.Nop())
	defer worker.Close()

	if err := worker.Submit(Request{Samples: []float32{0.1}, SampleRate: 16000, ModelID: "huge"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ev := nextEvent(t, events)
	if ev.kind != "error" {
		t.Fatalf("expected error event, got %+v", ev)
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.loaded) != 0 {
		t.Error("unknown model must not reach the engine")
	}
}

func TestStagedFileRemoved(t *testing.T) {
	model := &fakeModel{result: Result{Text: "ok", Language: "en"}}
	engine := &fakeEngine{model: model}
	cb, events := newSink()
	worker := NewWorker(engine, cb, zerolog.Nop())
	defer worker.Close()

	if err := worker.Submit(Request{Samples: []float32{0.1, 0.2}, SampleRate: 16000, ModelID: "tiny"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	nextEvent(t, events) // language
	nextEvent(t, events) // finished

	// Failure path releases the staged file too.
	model.err = errors.New("inference blew up")
	if err := worker.Submit(Request{Samples: []float32{0.1}, SampleRate: 16000, ModelID: "tiny"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	nextEvent(t, events) // error

	model.mu.Lock()
	paths := append([]string(nil), model.paths...)
	model.mu.Unlock()
	if len(paths) != 2 {
		t.Fatalf("expected 2 staged files, got %d", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("staged file %s was not removed", p)
		}
	}
}

func TestWorkerSerializesJobs(t *testing.T) {
	gate := make(chan struct{})
	model := &fakeModel{result: Result{Text: "ok", Language: "en"}}
	engine := &fakeEngine{model: model, gate: gate}
	cb, events := newSink()
	worker := NewWorker(engine, cb, zerolog.Nop())
	defer worker.Close()

	req := Request{Samples: []float32{0.1}, SampleRate: 16000, ModelID: "base"}
	if err := worker.Submit(req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	submitted := make(chan error, 1)
	go func() { submitted <- worker.Submit(req) }()

	// The second submit must not be accepted while the first job holds
	// the worker.
	select {
	case err := <-submitted:
		t.Fatalf("second submit accepted while first job in flight (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(gate)
	if err := <-submitted; err != nil {
		t.Fatalf("second submit: %v", err)
	}
	for i := 0; i < 4; i++ {
		nextEvent(t, events)
	}
}

func TestSubmitAfterCloseRejected(t *testing.T) {
	engine := &fakeEngine{model: &fakeModel{}}
	cb, _ := newSink()
	worker := NewWorker(engine, cb, zerolog.Nop())
	worker.Close()

	err := worker.Submit(Request{Samples: []float32{0.1}, SampleRate: 16000, ModelID: "base"})
	if !errors.Is(err, ErrWorkerClosed) {
		t.Fatalf("expected ErrWorkerClosed, got %v", err)
	}
}

func TestNormalizeScalesPeakToFullScale(t *testing.T) {
	got := normalize([]float32{0.1, -0.5, 0.25})
	if got[1] != -1.0 {
		t.Errorf("expected peak scaled to -1.0, got %f", got[1])
	}
	if diff := got[0] - 0.2; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected 0.2, got %f", got[0])
	}
}

func TestNormalizeLeavesSilenceUntouched(t *testing.T) {
	in := []float32{0, 0, 0}
	got := normalize(in)
	for i, s := range got {
		if s != 0 {
			t.Fatalf("sample %d: expected 0, got %f", i, s)
		}
	}
}

func TestValidModel(t *testing.T) {
	for _, id := range Models {
		if !ValidModel(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	if ValidModel("base.en") {
		t.Error("base.en is not in the supported set")
	}
	if ValidModel("") {
		t.Error("empty id must be invalid")
	}
}
