package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Model download URLs (Hugging Face)
var modelURLs = map[string]string{
	"tiny":   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	"base":   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	"small":  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
	"medium": "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
	"large":  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
}

// ModelDownloaded reports whether the ggml file for a model id already
// exists under modelsDir.
func ModelDownloaded(modelsDir, modelID string) bool {
	_, err := os.Stat(filepath.Join(modelsDir, "ggml-"+modelID+".bin"))
	return err == nil
}

// progressWriter tracks download progress for logging
type progressWriter struct {
	total      int64
	downloaded int64
	lastLog    time.Time
	model      string
	log        zerolog.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	now := time.Now()
	if now.Sub(pw.lastLog) >= 2*time.Second || pw.downloaded >= pw.total {
		pw.lastLog = now
		percent := float64(pw.downloaded) / float64(pw.total) * 100
		pw.log.Info().
			Str("model", pw.model).
			Float64("percent", percent).
			Float64("downloaded_mb", float64(pw.downloaded)/1024/1024).
			Float64("total_mb", float64(pw.total)/1024/1024).
			Msg("Downloading model")
	}

	return n, nil
}

// downloadModel fetches a ggml model into destPath.
func downloadModel(ctx context.Context, model string, destPath string, log zerolog.Logger) error {
	url, ok := modelURLs[model]
	if !ok {
		return fmt.Errorf("unknown model: %s", model)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	// Download to temp file first
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	log.Info().Str("model", model).Str("url", url).Msg("Starting model download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		log.Warn().Str("model", model).Msg("Content-Length not provided, progress tracking unavailable")
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer out.Close()

	var writer io.Writer = out
	if totalSize > 0 {
		writer = io.MultiWriter(out, &progressWriter{
			total:   totalSize,
			model:   model,
			lastLog: time.Now(),
			log:     log,
		})
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move model file: %w", err)
	}

	log.Info().
		Str("model", model).
		Str("path", destPath).
		Float64("size_mb", float64(totalSize)/1024/1024).
		Msg("Model downloaded successfully")

	return nil
}

// TODO: Add SHA256 verification
