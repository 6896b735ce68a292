package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir      = ".podcast-writer"
	defaultBackendTimeout = 10 * time.Minute
)

// Embedded configuration files
//
//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/podcast-host-prompt.md
var defaultSystemPrompt string

//go:embed config/delivery-instructions.md
var defaultTTSInstructions string

// Reasoning effort levels accepted by the generation backends
var reasoningEfforts = map[string]bool{"low": true, "medium": true, "high": true}

// Settings represents the YAML configuration structure
type Settings struct {
	OutputDirectory string             `yaml:"output_directory"`
	Retriever       RetrieverSettings  `yaml:"retriever"`
	Generation      GenerationSettings `yaml:"generation"`
	TTS             TTSSettings        `yaml:"tts"`
	Publish         PublishSettings    `yaml:"publish"`
	Log             LogSettings        `yaml:"log"`
}

// RetrieverSettings configures the encyclopedia backend
type RetrieverSettings struct {
	Language       string `yaml:"language"`
	APIURL         string `yaml:"api_url"`
	Format         string `yaml:"format"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// GenerationSettings configures the language model backend
type GenerationSettings struct {
	Provider         string  `yaml:"provider"`
	APIURL           string  `yaml:"api_url"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	Model            string  `yaml:"model"`
	ReasoningEffort  string  `yaml:"reasoning_effort"`
	MaxTokens        int     `yaml:"max_tokens"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	SystemPromptPath string  `yaml:"system_prompt_path"`
	Pricing          Pricing `yaml:"pricing"`
}

// Pricing is the per million token price used for cost estimates
type Pricing struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// TTSSettings configures the speech synthesis backend
type TTSSettings struct {
	Provider         string `yaml:"provider"`
	APIURL           string `yaml:"api_url"`
	APIKeyEnv        string `yaml:"api_key_env"`
	Model            string `yaml:"model"`
	Voice            string `yaml:"voice"`
	InstructionsPath string `yaml:"instructions_path"`
	ResponseFormat   string `yaml:"response_format"`
	Bitrate          string `yaml:"bitrate"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// PublishSettings configures optional episode uploads
type PublishSettings struct {
	S3 S3Settings `yaml:"s3"`
}

// S3Settings selects the bucket and AWS profile for uploads
type S3Settings struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Credentials are read from the environment only and must never be logged
type Credentials struct {
	LLMAPIKey string
	TTSAPIKey string
}

// Config is the immutable run configuration built once at startup
type Config struct {
	Settings        Settings
	SystemPrompt    string
	TTSInstructions string
	Credentials     Credentials
}

// Environment variables overriding individual settings
var envOverrides = []struct {
	key   string
	apply func(s *Settings, v string)
}{
	{"PODCAST_OUTPUT_DIR", func(s *Settings, v string) { s.OutputDirectory = v }},
	{"PODCAST_WIKI_LANGUAGE", func(s *Settings, v string) { s.Retriever.Language = v }},
	{"PODCAST_LLM_PROVIDER", func(s *Settings, v string) { s.Generation.Provider = v }},
	{"PODCAST_LLM_MODEL", func(s *Settings, v string) { s.Generation.Model = v }},
	{"PODCAST_REASONING_EFFORT", func(s *Settings, v string) { s.Generation.ReasoningEffort = v }},
	{"PODCAST_SYSTEM_PROMPT_FILE", func(s *Settings, v string) { s.Generation.SystemPromptPath = v }},
	{"PODCAST_TTS_PROVIDER", func(s *Settings, v string) { s.TTS.Provider = v }},
	{"PODCAST_TTS_MODEL", func(s *Settings, v string) { s.TTS.Model = v }},
	{"PODCAST_TTS_VOICE", func(s *Settings, v string) { s.TTS.Voice = v }},
	{"PODCAST_TTS_INSTRUCTIONS_FILE", func(s *Settings, v string) { s.TTS.InstructionsPath = v }},
	{"PODCAST_AUDIO_FORMAT", func(s *Settings, v string) { s.TTS.ResponseFormat = v }},
	{"PODCAST_AUDIO_BITRATE", func(s *Settings, v string) { s.TTS.Bitrate = v }},
}

// LoadConfig reads settings from path on top of the embedded defaults,
// applies environment overrides, resolves prompts and credentials and
// validates the result. A missing file is only tolerated for the default path.
func LoadConfig(path string) (*Config, error) {
	settings, err := loadSettings(path)
	if err != nil {
		return nil, err
	}

	for _, o := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			o.apply(settings, v)
		}
	}
	setDefaults(settings)

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	systemPrompt, err := loadPrompt(settings.Generation.SystemPromptPath, defaultSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("loading system prompt: %w", err)
	}
	instructions, err := loadPrompt(settings.TTS.InstructionsPath, defaultTTSInstructions)
	if err != nil {
		return nil, fmt.Errorf("loading tts instructions: %w", err)
	}

	creds, err := loadCredentials(settings)
	if err != nil {
		return nil, err
	}

	return &Config{
		Settings:        *settings,
		SystemPrompt:    systemPrompt,
		TTSInstructions: instructions,
		Credentials:     creds,
	}, nil
}

// DefaultConfigPath returns the settings file looked up when --config is not given
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir, "settings.yaml")
}

// loadSettings parses the embedded defaults and then the settings file over them
func loadSettings(path string) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath() {
			return &settings, nil
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	// Expand ${VAR} references from the environment
	expanded := os.Expand(string(data), os.Getenv)

	if err := yaml.Unmarshal([]byte(expanded), &settings); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return &settings, nil
}

// setDefaults fills values a settings file may have blanked out
func setDefaults(s *Settings) {
	if s.OutputDirectory == "" {
		s.OutputDirectory = filepath.Join("output", "audio")
	}
	if s.Retriever.Language == "" {
		s.Retriever.Language = "en"
	}
	if s.Retriever.APIURL == "" {
		s.Retriever.APIURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", s.Retriever.Language)
	}
	if s.Retriever.Format == "" {
		s.Retriever.Format = formatPlaintext
	}
	if s.Generation.APIKeyEnv == "" {
		switch s.Generation.Provider {
		case providerAnthropic:
			s.Generation.APIKeyEnv = "ANTHROPIC_API_KEY"
		default:
			s.Generation.APIKeyEnv = "GEMINI_API_KEY"
		}
	}
	if s.TTS.APIKeyEnv == "" {
		s.TTS.APIKeyEnv = "OPENAI_API_KEY"
	}
	if s.TTS.ResponseFormat == "" {
		s.TTS.ResponseFormat = "mp3"
	}
	s.Generation.ReasoningEffort = strings.ToLower(strings.TrimSpace(s.Generation.ReasoningEffort))
}

func validateSettings(s *Settings) error {
	switch s.Retriever.Format {
	case formatPlaintext, formatHTML:
	default:
		return fmt.Errorf("retriever.format must be %q or %q, got %q", formatPlaintext, formatHTML, s.Retriever.Format)
	}

	switch s.Generation.Provider {
	case providerOpenAI, providerAnthropic:
	default:
		return fmt.Errorf("unknown generation.provider %q", s.Generation.Provider)
	}
	if s.Generation.Model == "" {
		return errors.New("generation.model is required")
	}
	if s.Generation.Provider == providerAnthropic && strings.HasPrefix(strings.ToLower(s.Generation.Model), "gemini") {
		return fmt.Errorf("generation.model %q is not served by the anthropic provider; set generation.model or PODCAST_LLM_MODEL", s.Generation.Model)
	}
	if s.Generation.ReasoningEffort != "" && !reasoningEfforts[s.Generation.ReasoningEffort] {
		return fmt.Errorf("generation.reasoning_effort must be low, medium or high, got %q", s.Generation.ReasoningEffort)
	}

	switch s.TTS.Provider {
	case providerOpenAI:
		if s.TTS.Model == "" {
			return errors.New("tts.model is required")
		}
	case providerEdge:
		if s.TTS.ResponseFormat != "mp3" {
			return fmt.Errorf("tts.response_format %q is not supported by the edge provider", s.TTS.ResponseFormat)
		}
	default:
		return fmt.Errorf("unknown tts.provider %q", s.TTS.Provider)
	}
	if s.TTS.Voice == "" {
		return errors.New("tts.voice is required")
	}
	return nil
}

// loadPrompt returns the override file content or the embedded default
func loadPrompt(path, embedded string) (string, error) {
	if path == "" {
		return strings.TrimSpace(embedded), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func loadCredentials(s *Settings) (Credentials, error) {
	var creds Credentials

	creds.LLMAPIKey = strings.TrimSpace(os.Getenv(s.Generation.APIKeyEnv))
	if creds.LLMAPIKey == "" {
		return creds, fmt.Errorf("API key required: set %s for the %s generation provider", s.Generation.APIKeyEnv, s.Generation.Provider)
	}

	if s.TTS.Provider == providerOpenAI {
		creds.TTSAPIKey = strings.TrimSpace(os.Getenv(s.TTS.APIKeyEnv))
		if creds.TTSAPIKey == "" {
			return creds, fmt.Errorf("API key required: set %s for the %s tts provider", s.TTS.APIKeyEnv, s.TTS.Provider)
		}
	}
	return creds, nil
}

func secondsOr(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	return time.Duration(seconds) * time.Second
}
