package main

import "time"

// ArticleContent is the retrieved encyclopedia article
type ArticleContent struct {
	Title    string // Canonical page title
	URL      string // Canonical page URL
	Markdown string // Body with a top-level title heading
}

// ScriptResult holds the generated podcast script and its accounting
type ScriptResult struct {
	Text             string
	Model            string
	InputTokens      int
	OutputTokens     int
	TotalTokens      int
	EstimatedCostUSD float64
}

// AudioResult represents the outcome of a synthesis attempt.
// Filepath is set only when Success is true.
type AudioResult struct {
	Filepath string
	Success  bool
	Duration time.Duration
}

// RunRequest is a single podcast generation request from the CLI
type RunRequest struct {
	Query          string
	OutputFilename string
	MarkdownOutput string
}

// RunResult tracks the outcome of a successful pipeline run
type RunResult struct {
	RunID         string
	Query         string
	ArticleURL    string
	MarkdownPath  string
	MarkdownSaved bool
	AudioPath     string
	Script        ScriptResult
}

