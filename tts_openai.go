package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAISpeechBackend implements SpeechBackend with the OpenAI /audio/speech endpoint
type OpenAISpeechBackend struct {
	apiURL string
	apiKey string
	client *http.Client
}

// NewOpenAISpeechBackend creates a speech backend for apiURL (without /audio/speech)
func NewOpenAISpeechBackend(apiURL, apiKey string, timeout time.Duration) *OpenAISpeechBackend {
	return &OpenAISpeechBackend{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	Instructions   string `json:"instructions,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Speak posts the script and returns the audio body as it streams in
func (b *OpenAISpeechBackend) Speak(ctx context.Context, req SpeechRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(speechRequest{
		Model:          req.Model,
		Input:          req.Input,
		Voice:          req.Voice,
		Instructions:   req.Instructions,
		ResponseFormat: req.ResponseFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := b.apiURL + "/audio/speech"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("posting to %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: endpoint, Body: truncateBody(b)}
	}
	return resp.Body, nil
}
