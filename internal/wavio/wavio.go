// Package wavio converts between float32 PCM buffers and 16-bit mono WAV.
package wavio

import (
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// Encode writes mono float32 samples as a 16-bit PCM WAV file. Samples
// outside [-1, 1] are clipped.
func Encode(w io.WriteSeeker, samples []float32, sampleRate int) error {
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: bitDepth,
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf.Data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// Decode reads a WAV file back into float32 samples in [-1, 1] plus its
// sample rate.
func Decode(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil {
		return nil, 0, fmt.Errorf("wav has no format chunk")
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth == 0 {
		depth = bitDepth
	}
	scale := float32(int(1)<<(depth-1)) - 1

	samples := make([]float32, len(buf.Data))
	for i, d := range buf.Data {
		samples[i] = float32(d) / scale
	}
	return samples, buf.Format.SampleRate, nil
}
