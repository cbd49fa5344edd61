package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/wavio"
)

// EngineOptions tune the whisper.cpp engine.
type EngineOptions struct {
	// Language forces a transcription language; "" or "auto" lets the
	// model detect it.
	Language string
	// Threads caps inference threads; 0 lets whisper.cpp decide.
	Threads int
}

// WhisperEngine loads ggml models from disk, downloading them into
// modelsDir on first use.
type WhisperEngine struct {
	modelsDir string
	opts      EngineOptions
	log       zerolog.Logger
}

func NewWhisperEngine(modelsDir string, opts EngineOptions, log zerolog.Logger) *WhisperEngine {
	return &WhisperEngine{modelsDir: modelsDir, opts: opts, log: log}
}

// ModelPath returns where the ggml file for a model id lives on disk.
func (e *WhisperEngine) ModelPath(modelID string) string {
	return filepath.Join(e.modelsDir, "ggml-"+modelID+".bin")
}

func (e *WhisperEngine) Load(ctx context.Context, modelID string) (Model, error) {
	if !ValidModel(modelID) {
		return nil, fmt.Errorf("unknown model %q", modelID)
	}

	path := e.ModelPath(modelID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := downloadModel(ctx, modelID, path, e.log); err != nil {
			return nil, fmt.Errorf("download model %s: %w", modelID, err)
		}
	}

	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelID, err)
	}
	return &whisperModel{model: model, opts: e.opts}, nil
}

type whisperModel struct {
	model whisper.Model
	opts  EngineOptions
}

func (m *whisperModel) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return Result{}, fmt.Errorf("open staged audio: %w", err)
	}
	defer f.Close()

	samples, _, err := wavio.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("read staged audio: %w", err)
	}

	wctx, err := m.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("create whisper context: %w", err)
	}
	if m.opts.Threads > 0 {
		wctx.SetThreads(uint(m.opts.Threads))
	}
	if m.opts.Language != "" && m.opts.Language != "auto" {
		if err := wctx.SetLanguage(m.opts.Language); err != nil {
			return Result{}, fmt.Errorf("set language %q: %w", m.opts.Language, err)
		}
	}
	wctx.SetTranslate(false)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return Result{
		Text:     strings.Join(parts, " "),
		Language: wctx.DetectedLanguage(),
	}, nil
}

func (m *whisperModel) Close() error {
	return m.model.Close()
}
