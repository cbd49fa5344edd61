package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/config"
	"github.com/jasonbrianhall/whisper-audiorecord/internal/transcribe"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List supported Whisper models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		modelsDir := config.ModelsPath()
		for _, id := range transcribe.Models {
			marker := " "
			if id == cfg.Whisper.Model {
				marker = "*"
			}
			state := ""
			if transcribe.ModelDownloaded(modelsDir, id) {
				state = "(downloaded)"
			}
			fmt.Printf("%s %-8s %s\n", marker, id, state)
		}
		return nil
	},
}
