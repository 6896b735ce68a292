package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
	"go.uber.org/zap"
)

const providerEdge = "edge"

// How long to keep discarding messages after a failed stream so the
// library's sender goroutines can finish
const edgeDrainTimeout = 30 * time.Second

// EdgeSpeechBackend uses the Microsoft Edge read aloud voices. It always
// produces mp3 and has no equivalent of delivery instructions.
type EdgeSpeechBackend struct{}

// NewEdgeSpeechBackend creates an Edge TTS backend
func NewEdgeSpeechBackend() *EdgeSpeechBackend {
	return &EdgeSpeechBackend{}
}

// Speak synthesizes the whole input and returns the mp3 once every text
// chunk has finished. Long inputs are spoken by the service in parallel
// chunks, so audio is only complete at the end.
func (b *EdgeSpeechBackend) Speak(ctx context.Context, req SpeechRequest) (io.ReadCloser, error) {
	if req.Instructions != "" {
		logger.Debug("edge voices ignore delivery instructions")
	}

	comm, err := edge.NewCommunicate(req.Input, edge.WithVoice(req.Voice))
	if err != nil {
		return nil, fmt.Errorf("edge-tts: creating session: %w", err)
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, fmt.Errorf("edge-tts: starting stream: %w", err)
	}

	audio, err := collectEdgeAudio(ctx, ch, comm.AudioDataIndex)
	if err != nil {
		go drainFor(ch, edgeDrainTimeout)
		return nil, err
	}
	// Every chunk sent its end marker, nothing writes to the channel any more
	comm.CloseOutput()

	logger.Debug("edge-tts stream finished", zap.Int("chunks", comm.AudioDataIndex), zap.Int("bytes", len(audio)))
	return io.NopCloser(bytes.NewReader(audio)), nil
}

// collectEdgeAudio reads stream messages until all chunks have ended and
// returns their audio joined in chunk order. The channel is never closed by
// the sender, so completion is counted from the "end" markers. Any "error"
// entry fails the whole stream.
func collectEdgeAudio(ctx context.Context, ch <-chan map[string]interface{}, chunks int) ([]byte, error) {
	if chunks <= 0 {
		return nil, errors.New("edge-tts: no text to speak")
	}

	parts := make([][]byte, chunks)
	ended := 0
	for ended < chunks {
		var msg map[string]interface{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil, fmt.Errorf("edge-tts: stream closed after %d of %d chunks", ended, chunks)
			}
			msg = m
		}

		if e, ok := msg["error"]; ok {
			return nil, fmt.Errorf("edge-tts: %s", edgeErrorMessage(e))
		}
		if _, ok := msg["end"]; ok {
			ended++
			continue
		}
		if t, _ := msg["type"].(string); t != "audio" {
			continue
		}

		data, ok := msg["data"].(edge.AudioData)
		if !ok {
			return nil, fmt.Errorf("edge-tts: unexpected audio payload %T", msg["data"])
		}
		if data.Index < 0 || data.Index >= chunks {
			return nil, fmt.Errorf("edge-tts: audio for chunk %d of %d", data.Index, chunks)
		}
		parts[data.Index] = append(parts[data.Index], data.Data...)
	}

	audio := bytes.Join(parts, nil)
	if len(audio) == 0 {
		return nil, errors.New("edge-tts: no audio received")
	}
	return audio, nil
}

func edgeErrorMessage(e interface{}) string {
	switch v := e.(type) {
	case edge.WebSocketError:
		return "websocket: " + v.Message
	case edge.NoAudioReceived:
		return v.Message
	case edge.UnknownResponse:
		return v.Message
	case edge.UnexpectedResponse:
		return v.Message
	case error:
		return v.Error()
	}
	return fmt.Sprint(e)
}

// drainFor discards messages so blocked senders can exit, giving up after d
func drainFor(ch <-chan map[string]interface{}, d time.Duration) {
	timeout := time.After(d)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			return
		}
	}
}
