package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PodcastPipeline runs retrieval, script generation and synthesis in order
type PodcastPipeline struct {
	retriever   *Retriever
	generator   *ScriptGenerator
	synthesizer *AudioSynthesizer
	publisher   Publisher
	outputDir   string
}

// NewPodcastPipeline assembles a pipeline. publisher may be nil.
func NewPodcastPipeline(config *Config, retriever *Retriever, generator *ScriptGenerator, synthesizer *AudioSynthesizer, publisher Publisher) *PodcastPipeline {
	return &PodcastPipeline{
		retriever:   retriever,
		generator:   generator,
		synthesizer: synthesizer,
		publisher:   publisher,
		outputDir:   config.Settings.OutputDirectory,
	}
}

// BuildPipeline creates the backends selected in config and wires them together
func BuildPipeline(ctx context.Context, config *Config) (*PodcastPipeline, error) {
	settings := config.Settings

	wiki := NewMediaWikiClient(settings.Retriever)

	var completion CompletionBackend
	switch settings.Generation.Provider {
	case providerAnthropic:
		backend, err := NewAnthropicBackend(config.Credentials.LLMAPIKey)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic backend: %w", err)
		}
		completion = backend
	default:
		completion = NewOpenAIChatBackend(settings.Generation.APIURL, config.Credentials.LLMAPIKey,
			secondsOr(settings.Generation.TimeoutSeconds, defaultBackendTimeout))
	}

	var speech SpeechBackend
	switch settings.TTS.Provider {
	case providerEdge:
		speech = NewEdgeSpeechBackend()
	default:
		speech = NewOpenAISpeechBackend(settings.TTS.APIURL, config.Credentials.TTSAPIKey,
			secondsOr(settings.TTS.TimeoutSeconds, defaultBackendTimeout))
	}

	var publisher Publisher
	if settings.Publish.S3.Bucket != "" {
		p, err := NewS3Publisher(ctx, settings.Publish.S3)
		if err != nil {
			return nil, fmt.Errorf("creating s3 publisher: %w", err)
		}
		publisher = p
	}

	return NewPodcastPipeline(config,
		NewRetriever(wiki, wiki),
		NewScriptGenerator(completion, config),
		NewAudioSynthesizer(speech, config),
		publisher,
	), nil
}

// Run produces one episode. Any stage failure aborts the run before later
// stages are called; only the markdown script write is allowed to fail.
func (p *PodcastPipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	runID := uuid.NewString()
	log := logger.With(zap.String("run_id", runID), zap.String("query", req.Query), zap.String("output_filename", req.OutputFilename))
	fail := func(msg string, err error) (*RunResult, error) {
		log.Error(msg, zap.Error(err))
		return nil, err
	}

	log.Info("Starting podcast generation")

	// 1. Retrieve article
	log.Info("→ Fetching article...")
	article, err := p.retriever.Retrieve(ctx, req.Query)
	if err != nil {
		return fail("failed to retrieve article", err)
	}
	log.Info("✓ Fetched article", zap.String("title", article.Title), zap.String("url", article.URL))

	// 2. Generate script
	script, err := p.generator.Generate(ctx, article.Markdown)
	if err != nil {
		return fail("failed to generate script", err)
	}
	if strings.TrimSpace(script.Text) == "" {
		return fail("script generation returned no text", ErrEmptyScript)
	}

	result := &RunResult{
		RunID:      runID,
		Query:      req.Query,
		ArticleURL: article.URL,
		Script:     *script,
	}

	// 3. Save script, continuing without it on failure
	result.MarkdownPath = p.markdownPath(req)
	if err := saveScript(result.MarkdownPath, script.Text); err != nil {
		log.Warn("could not save markdown script", zap.String("path", result.MarkdownPath), zap.Error(err))
	} else {
		result.MarkdownSaved = true
		log.Info("✓ Script saved", zap.String("path", result.MarkdownPath))
	}

	// 4. Synthesize audio
	audio, err := p.synthesizer.Synthesize(ctx, script.Text, req.OutputFilename)
	if err != nil || !audio.Success {
		if err == nil {
			err = &SynthesisError{Err: errors.New("synthesis reported no audio")}
		}
		return fail("failed to generate audio", err)
	}
	result.AudioPath = audio.Filepath

	// 5. Publish, best effort
	if p.publisher != nil {
		files := []string{result.AudioPath}
		if result.MarkdownSaved {
			files = append(files, result.MarkdownPath)
		}
		if err := p.publisher.Publish(ctx, files...); err != nil {
			log.Warn("could not publish episode", zap.Error(err))
		}
	}

	absPath, _ := filepath.Abs(result.AudioPath)
	log.Info("Podcast generation completed",
		zap.String("audio", absPath),
		zap.Int("total_tokens", script.TotalTokens),
		zap.String("estimated_cost_usd", fmt.Sprintf("%.4f", script.EstimatedCostUSD)),
	)
	return result, nil
}

// markdownPath returns where the script is saved. Relative paths, including
// the default <audio base name>.md, live in the output directory.
func (p *PodcastPipeline) markdownPath(req RunRequest) string {
	out := req.MarkdownOutput
	if out == "" {
		out = strings.TrimSuffix(req.OutputFilename, filepath.Ext(req.OutputFilename)) + ".md"
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(p.outputDir, out)
}

// saveScript writes the script text byte for byte
func saveScript(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0644)
}
