package main

import "github.com/jasonbrianhall/whisper-audiorecord/cmd/whisper-audiorecord/cmd"

func main() {
	cmd.Execute()
}
