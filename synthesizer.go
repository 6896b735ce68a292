package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Episodes longer than this miss the target length of the host prompt
const targetEpisodeLength = 5 * time.Minute

// SpeechRequest is a single text to speech call
type SpeechRequest struct {
	Model          string
	Voice          string
	Input          string
	Instructions   string
	ResponseFormat string
}

// SpeechBackend converts text to an encoded audio stream. Callers must close it.
type SpeechBackend interface {
	Speak(ctx context.Context, req SpeechRequest) (io.ReadCloser, error)
}

// AudioSynthesizer writes the spoken script into the output directory
type AudioSynthesizer struct {
	backend      SpeechBackend
	outputDir    string
	model        string
	voice        string
	instructions string
	format       string
	bitrate      string
	transcode    func(src, dst, bitrate string) error
	probe        func(path string) (time.Duration, error)
}

// NewAudioSynthesizer creates a synthesizer with the configured voice
func NewAudioSynthesizer(backend SpeechBackend, config *Config) *AudioSynthesizer {
	tts := config.Settings.TTS
	s := &AudioSynthesizer{
		backend:      backend,
		outputDir:    config.Settings.OutputDirectory,
		model:        tts.Model,
		voice:        tts.Voice,
		instructions: config.TTSInstructions,
		format:       tts.ResponseFormat,
		bitrate:      tts.Bitrate,
		transcode:    transcodeAudio,
	}
	if s.format == "mp3" {
		s.probe = probeMP3Duration
	}
	return s
}

// Synthesize speaks script into outputDir/outputFilename in a single backend
// call. On failure no file is left at the target path and the returned
// AudioResult has Success false.
func (s *AudioSynthesizer) Synthesize(ctx context.Context, script, outputFilename string) (AudioResult, error) {
	if strings.TrimSpace(script) == "" {
		logger.Warn("no input text provided for audio generation")
		return AudioResult{}, &SynthesisError{Err: ErrEmptyInput}
	}

	path := filepath.Join(s.outputDir, outputFilename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return AudioResult{}, &SynthesisError{Path: path, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	logger.Info("→ Synthesizing audio...",
		zap.String("model", s.model),
		zap.String("voice", s.voice),
		zap.String("format", s.format),
		zap.Int("characters", len([]rune(script))),
		zap.String("path", path),
	)
	start := time.Now()

	if err := s.writeAudio(ctx, script, path); err != nil {
		removePartial(path)
		return AudioResult{}, &SynthesisError{Path: path, Err: err}
	}

	result := AudioResult{Filepath: path, Success: true}
	if s.probe != nil {
		if d, err := s.probe(path); err != nil {
			logger.Debug("could not determine episode duration", zap.String("path", path), zap.Error(err))
		} else {
			result.Duration = d
			if d > targetEpisodeLength {
				logger.Warn("episode is longer than the target length", zap.Duration("duration", d), zap.Duration("target", targetEpisodeLength))
			}
		}
	}

	logger.Info("✓ Audio saved", zap.String("path", path), zap.Duration("duration", result.Duration), zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// writeAudio streams the backend response to path, re-encoding through a
// sibling temp file when a bitrate is configured
func (s *AudioSynthesizer) writeAudio(ctx context.Context, script, path string) error {
	body, err := s.backend.Speak(ctx, SpeechRequest{
		Model:          s.model,
		Voice:          s.voice,
		Input:          script,
		Instructions:   s.instructions,
		ResponseFormat: s.format,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	if s.bitrate == "" {
		return writeStream(path, body)
	}

	ext := filepath.Ext(path)
	src := strings.TrimSuffix(path, ext) + ".src" + ext
	defer removeQuietly(src)

	if err := writeStream(src, body); err != nil {
		return err
	}
	if err := s.transcode(src, path, s.bitrate); err != nil {
		return fmt.Errorf("re-encoding at %s: %w", s.bitrate, err)
	}
	return nil
}

// writeStream copies r into a new file at path
func writeStream(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("writing audio: %w", err)
	}
	return f.Close()
}

// removePartial deletes whatever is at path. Failures are logged only.
func removePartial(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Error("failed to clean up audio file", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("cleaned up partially written file", zap.String("path", path))
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove temporary file", zap.String("path", path), zap.Error(err))
	}
}
