package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateConfigEnv runs the test in an empty directory with known credentials
// and no override variables
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, o := range envOverrides {
		t.Setenv(o.key, "")
	}
	t.Setenv("GEMINI_API_KEY", "gemini-test-key")
	t.Setenv("OPENAI_API_KEY", "openai-test-key")
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateConfigEnv(t)

	config, err := LoadConfig(DefaultConfigPath())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	s := config.Settings
	if s.OutputDirectory != filepath.Join("output", "audio") {
		t.Errorf("OutputDirectory = %q", s.OutputDirectory)
	}
	if s.Retriever.APIURL != "https://en.wikipedia.org/w/api.php" {
		t.Errorf("Retriever.APIURL = %q", s.Retriever.APIURL)
	}
	if s.Retriever.Format != formatPlaintext {
		t.Errorf("Retriever.Format = %q", s.Retriever.Format)
	}
	if s.Generation.Model != "gemini-2.5-flash" || s.Generation.ReasoningEffort != "high" {
		t.Errorf("Generation = %+v", s.Generation)
	}
	if s.Generation.APIKeyEnv != "GEMINI_API_KEY" {
		t.Errorf("Generation.APIKeyEnv = %q", s.Generation.APIKeyEnv)
	}
	if s.TTS.Model != "gpt-4o-mini-tts" || s.TTS.Voice != "ash" || s.TTS.ResponseFormat != "mp3" {
		t.Errorf("TTS = %+v", s.TTS)
	}
	if config.Credentials.LLMAPIKey != "gemini-test-key" || config.Credentials.TTSAPIKey != "openai-test-key" {
		t.Error("credentials not loaded from the environment")
	}
	if config.SystemPrompt == "" || config.TTSInstructions == "" {
		t.Error("embedded prompts should be loaded")
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("EPISODE_DIR", "/srv/episodes")

	path := writeSettings(t, `
output_directory: ${EPISODE_DIR}/audio
retriever:
  language: de
generation:
  model: gemini-2.5-pro
  reasoning_effort: Medium
tts:
  voice: nova
  bitrate: 96k
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	s := config.Settings
	if s.OutputDirectory != "/srv/episodes/audio" {
		t.Errorf("OutputDirectory = %q, want expanded variable", s.OutputDirectory)
	}
	if s.Retriever.APIURL != "https://de.wikipedia.org/w/api.php" {
		t.Errorf("Retriever.APIURL = %q, want language specific endpoint", s.Retriever.APIURL)
	}
	if s.Generation.Model != "gemini-2.5-pro" || s.Generation.ReasoningEffort != "medium" {
		t.Errorf("Generation = %+v", s.Generation)
	}
	// Unset keys keep the embedded defaults
	if s.TTS.Model != "gpt-4o-mini-tts" || s.TTS.Voice != "nova" || s.TTS.Bitrate != "96k" {
		t.Errorf("TTS = %+v", s.TTS)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("PODCAST_OUTPUT_DIR", "episodes")
	t.Setenv("PODCAST_LLM_PROVIDER", "anthropic")
	t.Setenv("PODCAST_LLM_MODEL", "claude-sonnet-4-5")
	t.Setenv("PODCAST_TTS_VOICE", "onyx")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-test-key")

	config, err := LoadConfig(DefaultConfigPath())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	s := config.Settings
	if s.OutputDirectory != "episodes" || s.TTS.Voice != "onyx" {
		t.Errorf("overrides not applied: %+v", s)
	}
	if s.Generation.Provider != providerAnthropic || s.Generation.APIKeyEnv != "ANTHROPIC_API_KEY" {
		t.Errorf("Generation = %+v", s.Generation)
	}
	if config.Credentials.LLMAPIKey != "anthropic-test-key" {
		t.Error("anthropic key should be used for the anthropic provider")
	}
}

func TestLoadConfigPromptFiles(t *testing.T) {
	isolateConfigEnv(t)

	dir := t.TempDir()
	promptPath := filepath.Join(dir, "host.md")
	os.WriteFile(promptPath, []byte("You host a history show.\n"), 0644)
	t.Setenv("PODCAST_SYSTEM_PROMPT_FILE", promptPath)

	config, err := LoadConfig(DefaultConfigPath())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.SystemPrompt != "You host a history show." {
		t.Errorf("SystemPrompt = %q", config.SystemPrompt)
	}

	t.Setenv("PODCAST_TTS_INSTRUCTIONS_FILE", filepath.Join(dir, "missing.md"))
	if _, err := LoadConfig(DefaultConfigPath()); err == nil {
		t.Error("LoadConfig() should fail for a missing instructions file")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		env      map[string]string
		wantErr  string
	}{
		{
			name:     "invalid reasoning effort",
			settings: "generation:\n  reasoning_effort: extreme\n",
			wantErr:  "reasoning_effort",
		},
		{
			name:     "unknown generation provider",
			settings: "generation:\n  provider: llama\n",
			wantErr:  "generation.provider",
		},
		{
			name:     "unknown retriever format",
			settings: "retriever:\n  format: wikitext\n",
			wantErr:  "retriever.format",
		},
		{
			name:     "edge voices only produce mp3",
			settings: "tts:\n  provider: edge\n  voice: en-US-GuyNeural\n  response_format: wav\n",
			wantErr:  "edge",
		},
		{
			name:     "missing voice",
			settings: "tts:\n  voice: \"\"\n",
			wantErr:  "tts.voice",
		},
		{
			name:     "malformed yaml",
			settings: "generation: [unclosed\n",
			wantErr:  "parsing settings file",
		},
		{
			name:    "anthropic provider with gemini model",
			env:     map[string]string{"PODCAST_LLM_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "anthropic-test-key"},
			wantErr: "PODCAST_LLM_MODEL",
		},
		{
			name:    "missing llm key",
			env:     map[string]string{"GEMINI_API_KEY": ""},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "missing tts key",
			env:     map[string]string{"OPENAI_API_KEY": ""},
			wantErr: "OPENAI_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := DefaultConfigPath()
			if tt.settings != "" {
				path = writeSettings(t, tt.settings)
			}

			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("LoadConfig() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigEdgeNeedsNoTTSKey(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "")

	path := writeSettings(t, "tts:\n  provider: edge\n  voice: en-US-GuyNeural\n")
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Credentials.TTSAPIKey != "" {
		t.Error("edge provider should not load a tts key")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	isolateConfigEnv(t)

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() should fail for an explicit missing file")
	}
}

func TestSecondsOr(t *testing.T) {
	if got := secondsOr(0, defaultBackendTimeout); got != defaultBackendTimeout {
		t.Errorf("secondsOr(0) = %v", got)
	}
	if got := secondsOr(30, defaultBackendTimeout); got.Seconds() != 30 {
		t.Errorf("secondsOr(30) = %v", got)
	}
}
