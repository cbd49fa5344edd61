package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/app"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/capture"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/config"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/device"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/transcribe"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/wavio"
)

var (
	recordDevice int
	recordRate   int
	recordModel  string
	recordOutput string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone and transcribe on stop",
	Long: `Record captures mono audio from the selected input device until Enter
is pressed (or SIGINT/SIGTERM arrives), then transcribes the recording and
prints the detected language and transcript.

Editing the config file while recording is honored: the model selected at
the moment the recording finishes is the one used.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().IntVar(&recordDevice, "device", -1, "input device ID (see 'devices'); -1 uses the configured or default device")
	recordCmd.Flags().IntVar(&recordRate, "rate", 0, "sample rate in Hz; 0 uses the configured rate")
	recordCmd.Flags().StringVar(&recordModel, "model", "", "whisper model to transcribe with; empty uses the configured model")
	recordCmd.Flags().StringVar(&recordOutput, "output", "", "also save the finished recording to this WAV file")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	deviceID := cfg.Audio.DeviceID
	if cmd.Flags().Changed("device") {
		deviceID = recordDevice
	}
	sampleRate := cfg.Audio.SampleRate
	if recordRate != 0 {
		sampleRate = recordRate
	}
	model := cfg.Whisper.Model
	if recordModel != "" {
		model = recordModel
	}
	if !transcribe.ValidModel(model) {
		return fmt.Errorf("unknown model %q (supported: %v)", model, transcribe.Models)
	}

	backend, err := capture.NewPortAudioBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	host, err := device.NewPortAudioHost()
	if err != nil {
		return err
	}
	defer host.Close()

	engine := transcribe.NewWhisperEngine(config.ModelsPath(), transcribe.EngineOptions{
		Language: cfg.Whisper.Language,
		Threads:  cfg.Whisper.Threads,
	}, log)

	application := app.New(app.Config{
		Recorder: capture.New(backend, log),
		Catalog:  device.NewCatalog(host),
		Engine:   engine,
		Model:    model,
		Logger:   log,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Config edits made while recording apply to the next hand-off.
	err = config.Watch(ctx, log, func(c *config.Config) {
		if err := application.SelectModel(c.Whisper.Model); err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid model selection")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Config watching disabled")
	}

	if err := application.Start(deviceID, sampleRate); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Recording... press Enter to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		application.Stop()
	}()
	go func() {
		<-sigCh
		application.Stop()
	}()

	for event := range application.Events() {
		switch event.Type {
		case app.EventRecordingFinished:
			seconds := float64(len(event.Samples)) / float64(event.SampleRate)
			fmt.Fprintf(os.Stderr, "Recorded %.1fs of audio, transcribing...\n", seconds)
			if recordOutput != "" {
				if err := saveWAV(recordOutput, event.Samples, event.SampleRate); err != nil {
					log.Error().Err(err).Str("path", recordOutput).Msg("Failed to save recording")
				} else {
					fmt.Fprintf(os.Stderr, "Saved recording to %s\n", recordOutput)
				}
			}
		case app.EventLanguageDetected:
			fmt.Fprintf(os.Stderr, "Detected language: %s\n", event.Language)
		case app.EventTranscriptionFinished:
			fmt.Println(event.Text)
			application.Close()
			return nil
		case app.EventError:
			application.Close()
			return event.Err
		}
	}
	return nil
}

func saveWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wavio.Encode(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
