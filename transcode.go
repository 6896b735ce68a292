package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// transcodeAudio re-encodes src into dst at the given audio bitrate, e.g. "96k".
// The output container follows the extension of dst. Requires ffmpeg on PATH.
func transcodeAudio(src, dst, bitrate string) error {
	err := ffmpeg.Input(src).
		Output(dst, ffmpeg.KwArgs{"b:a": bitrate}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// probeMP3Duration decodes the mp3 frame headers of path to compute its play time
func probeMP3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("decoding mp3: %w", err)
	}

	// Decoded stream is 16-bit stereo: 4 bytes per sample frame
	length := decoder.Length()
	rate := decoder.SampleRate()
	if length < 0 || rate <= 0 {
		return 0, errors.New("mp3 length unknown")
	}

	frames := length / 4
	return time.Duration(frames) * time.Second / time.Duration(rate), nil
}
