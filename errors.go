package main

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the query resolved to no retrievable article
	ErrNotFound = errors.New("article not found")
	// ErrAmbiguous means the resolved article is a disambiguation page
	ErrAmbiguous = errors.New("article is a disambiguation page")
	// ErrEmptyScript means generation succeeded but produced no text
	ErrEmptyScript = errors.New("generated script is empty")
	// ErrEmptyInput means synthesis was asked to speak an empty script
	ErrEmptyInput = errors.New("no input text for synthesis")
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// AmbiguousError is returned when the first search result is a disambiguation page.
// Candidates holds the other search results for the query, in search order,
// not the links listed on the disambiguation page itself.
type AmbiguousError struct {
	Title      string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("%q is a disambiguation page", e.Title)
	}
	return fmt.Sprintf("%q is a disambiguation page (other results: %s)", e.Title, strings.Join(e.Candidates, "; "))
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// RetrievalError wraps transport and backend faults of the retrieval stage
type RetrievalError struct {
	Query string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieving %q: %v", e.Query, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps any failure of the script generation stage
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating script with %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SynthesisError wraps any failure of the audio synthesis stage
type SynthesisError struct {
	Path string
	Err  error
}

func (e *SynthesisError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("synthesizing audio: %v", e.Err)
	}
	return fmt.Sprintf("synthesizing audio to %s: %v", e.Path, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// truncateBody keeps error payloads readable in logs
func truncateBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
