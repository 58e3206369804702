package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/innovaplus/innova/internal/memory"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider != "gemini" {
		t.Errorf("provider: got %q, want %q", cfg.Provider, "gemini")
	}
	if cfg.Language != "es" {
		t.Errorf("language: got %q, want %q", cfg.Language, "es")
	}
	if cfg.Image.AspectRatio != "16:9" {
		t.Errorf("aspect ratio: got %q", cfg.Image.AspectRatio)
	}
	if cfg.Limits.BatchSize != 2 {
		t.Errorf("batch size: got %d, want 2", cfg.Limits.BatchSize)
	}
	if cfg.Prompt.MaxTokens != 6000 || cfg.Prompt.HistoryMessages != 6 {
		t.Errorf("prompt: got %+v", cfg.Prompt)
	}
	if cfg.Memory.SimilarityThreshold != 0.3 {
		t.Errorf("similarity threshold: got %f, want 0.3", cfg.Memory.SimilarityThreshold)
	}
	for _, c := range memory.Capabilities {
		if !cfg.Capabilities.Enabled(c) {
			t.Errorf("%s should default to enabled", c)
		}
	}
	if cfg.Capabilities.Enabled(memory.CapGeneral) {
		t.Error("general_query is not a switchable capability")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "gemini" || !cfg.Output.Markdown {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `provider = "claude"
language = "en"

[keys]
anthropic = "sk-file"

[capabilities]
image = false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "claude" || cfg.Language != "en" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.APIKey() != "sk-file" {
		t.Errorf("api key: got %q", cfg.APIKey())
	}
	if cfg.Capabilities.Enabled(memory.CapImage) {
		t.Error("image should be disabled by the file")
	}
	if !cfg.Capabilities.Enabled(memory.CapChart) {
		t.Error("chart should keep its default")
	}
	if cfg.Limits.BatchSize != 2 {
		t.Errorf("batch size default lost: %d", cfg.Limits.BatchSize)
	}
}

func TestLoad_EnvOverridesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[keys]\ngemini = \"from-file\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Keys.Gemini != "from-env" {
		t.Errorf("env should win, got %q", cfg.Keys.Gemini)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad toml":       "provider = ",
		"bad provider":   `provider = "hal9000"`,
		"bad language":   `language = "fr"`,
		"bad batch size": "[limits]\nbatch_size = 0\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Provider = "openai"
	cfg.Keys.OpenAI = "sk-test"
	if err := cfg.Capabilities.Set(memory.CapVR, false); err != nil {
		t.Fatal(err)
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config holds keys and should be private, got %v", info.Mode().Perm())
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Provider != "openai" || got.APIKey() != "sk-test" || got.Capabilities.VR {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCapabilitiesSet_Unknown(t *testing.T) {
	var c CapabilitiesConfig
	if err := c.Set("teleport", true); err == nil {
		t.Error("expected an error for an unknown capability")
	}
}

func TestDBPath(t *testing.T) {
	cfg := Default()
	cfg.Memory.Path = "/tmp/innova-test.db"
	if got, _ := cfg.DBPath(); got != "/tmp/innova-test.db" {
		t.Errorf("explicit path: got %q", got)
	}
	cfg.Memory.Path = ""
	got, err := cfg.DBPath()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if !strings.HasSuffix(got, filepath.Join(".config", "innova", "innova.db")) {
		t.Errorf("default path: got %q", got)
	}
}

func TestCompletionModel(t *testing.T) {
	cfg := Default()
	cfg.Provider = "ollama"
	if got := cfg.CompletionModel(); got != "llama3.2" {
		t.Errorf("ollama fallback: got %q", got)
	}
	cfg.Model = "mistral"
	if got := cfg.CompletionModel(); got != "mistral" {
		t.Errorf("explicit model: got %q", got)
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[capabilities]\nchart = true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	initial, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHolder(initial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, h, nil) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	// Give the watcher time to register before the write.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[capabilities]\nchart = false\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for h.Get().Capabilities.Chart {
		if time.Now().After(deadline) {
			t.Fatal("config was not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatch_KeepsConfigOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`language = "en"`), 0o600); err != nil {
		t.Fatal(err)
	}
	initial, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHolder(initial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, h, nil) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`language = "fr"`), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(WatchDebounce + 300*time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if got := h.Get().Language; got != "en" {
		t.Errorf("invalid reload replaced config: language %q", got)
	}
}
