package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasonbrianhall/whisper-audiorecord/internal/device"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices and their supported sample rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, err := device.NewPortAudioHost()
		if err != nil {
			return err
		}
		defer host.Close()

		catalog := device.NewCatalog(host)
		devices, err := catalog.ListInputDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found")
			return nil
		}

		fmt.Printf("%-4s %-40s %-4s %s\n", "ID", "NAME", "CH", "SAMPLE RATES")
		for _, d := range devices {
			rates := catalog.SupportedSampleRates(d.ID)
			fmt.Printf("%-4d %-40s %-4d %s\n", d.ID, d.Name, d.MaxInputChannels, formatRates(rates))
		}
		return nil
	},
}

func formatRates(rates []int) string {
	if len(rates) == 0 {
		return "-"
	}
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ", ")
}
