// Package config manages the user configuration (~/.config/innova/config.toml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/innovaplus/innova/internal/memory"
)

// Config holds user-wide settings.
type Config struct {
	Provider     string             `toml:"provider"`
	Model        string             `toml:"model"`
	Embedder     string             `toml:"embedder"`
	Language     string             `toml:"language"`
	Keys         KeysConfig         `toml:"keys"`
	Ollama       OllamaConfig       `toml:"ollama"`
	Image        ImageConfig        `toml:"image"`
	Capabilities CapabilitiesConfig `toml:"capabilities"`
	Limits       LimitsConfig       `toml:"limits"`
	Memory       MemoryConfig       `toml:"memory"`
	Prompt       PromptConfig       `toml:"prompt"`
	Server       ServerConfig       `toml:"server"`
	Output       OutputConfig       `toml:"output"`
}

type KeysConfig struct {
	Anthropic string `toml:"anthropic"`
	OpenAI    string `toml:"openai"`
	Gemini    string `toml:"gemini"`
}

type OllamaConfig struct {
	Host            string `toml:"host"`
	EmbedModel      string `toml:"embed_model"`
	CompletionModel string `toml:"completion_model"`
}

type ImageConfig struct {
	Provider    string `toml:"provider"`
	AspectRatio string `toml:"aspect_ratio"`
}

// CapabilitiesConfig switches each capability on or off.
type CapabilitiesConfig struct {
	Research bool `toml:"research"`
	Analysis bool `toml:"analysis"`
	Image    bool `toml:"image"`
	Chart    bool `toml:"chart"`
	Code     bool `toml:"code"`
	VR       bool `toml:"vr"`
	Document bool `toml:"document"`
}

// Enabled reports whether c is switched on.
func (c CapabilitiesConfig) Enabled(capability memory.Capability) bool {
	switch capability {
	case memory.CapResearch:
		return c.Research
	case memory.CapAnalysis:
		return c.Analysis
	case memory.CapImage:
		return c.Image
	case memory.CapChart:
		return c.Chart
	case memory.CapCode:
		return c.Code
	case memory.CapVR:
		return c.VR
	case memory.CapDocument:
		return c.Document
	default:
		return false
	}
}

// Set switches capability on or off.
func (c *CapabilitiesConfig) Set(capability memory.Capability, on bool) error {
	switch capability {
	case memory.CapResearch:
		c.Research = on
	case memory.CapAnalysis:
		c.Analysis = on
	case memory.CapImage:
		c.Image = on
	case memory.CapChart:
		c.Chart = on
	case memory.CapCode:
		c.Code = on
	case memory.CapVR:
		c.VR = on
	case memory.CapDocument:
		c.Document = on
	default:
		return fmt.Errorf("config: unknown capability %q", capability)
	}
	return nil
}

type LimitsConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	BatchSize         int     `toml:"batch_size"`
}

type MemoryConfig struct {
	// Path is the SQLite database; DefaultDBPath when empty.
	Path                string  `toml:"path"`
	RecallTopK          int     `toml:"recall_top_k"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

type PromptConfig struct {
	MaxTokens       int `toml:"max_tokens"`
	HistoryMessages int `toml:"history_messages"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type OutputConfig struct {
	Color    bool `toml:"color"`
	Markdown bool `toml:"markdown"`
	Verbose  bool `toml:"verbose"`
}

// Providers lists the valid completion providers.
var Providers = []string{"claude", "openai", "gemini", "ollama"}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Provider: "gemini",
		Embedder: "ollama",
		Language: "es",
		Ollama: OllamaConfig{
			Host:            "http://localhost:11434",
			EmbedModel:      "nomic-embed-text",
			CompletionModel: "llama3.2",
		},
		Image: ImageConfig{
			Provider:    "pollinations",
			AspectRatio: "16:9",
		},
		Capabilities: CapabilitiesConfig{
			Research: true, Analysis: true, Image: true, Chart: true,
			Code: true, VR: true, Document: true,
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 2,
			Burst:             4,
			BatchSize:         2,
		},
		Memory: MemoryConfig{
			RecallTopK:          5,
			SimilarityThreshold: 0.3,
		},
		Prompt: PromptConfig{
			MaxTokens:       6000,
			HistoryMessages: 6,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Output: OutputConfig{
			Color:    true,
			Markdown: true,
		},
	}
}

// Dir returns ~/.config/innova.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "innova"), nil
}

// DefaultPath returns the path to the config file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DBPath returns the configured database path, or innova.db next to the config file.
func (c Config) DBPath() (string, error) {
	if c.Memory.Path != "" {
		return c.Memory.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "innova.db"), nil
}

// APIKey returns the key of the configured provider.
func (c Config) APIKey() string {
	switch c.Provider {
	case "claude":
		return c.Keys.Anthropic
	case "openai":
		return c.Keys.OpenAI
	case "gemini":
		return c.Keys.Gemini
	default:
		return ""
	}
}

// CompletionModel returns the configured model, falling back to the Ollama
// completion model for the ollama provider.
func (c Config) CompletionModel() string {
	if c.Model == "" && c.Provider == "ollama" {
		return c.Ollama.CompletionModel
	}
	return c.Model
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if !validProvider(c.Provider) {
		errs = append(errs, fmt.Errorf("provider %q; valid providers: %s", c.Provider, strings.Join(Providers, ", ")))
	}
	switch c.Language {
	case "es", "en":
	default:
		errs = append(errs, fmt.Errorf("language %q; valid languages: es, en", c.Language))
	}
	switch c.Image.Provider {
	case "pollinations", "openai":
	default:
		errs = append(errs, fmt.Errorf("image provider %q; valid providers: pollinations, openai", c.Image.Provider))
	}
	if c.Limits.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("limits.batch_size must be at least 1, got %d", c.Limits.BatchSize))
	}
	if c.Limits.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("limits.requests_per_second must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func validProvider(p string) bool {
	for _, v := range Providers {
		if v == p {
			return true
		}
	}
	return false
}

// Load reads the config at path (DefaultPath when empty), applying defaults
// for missing values. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			applyEnv(&cfg)
			return cfg, nil
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Default(), fmt.Errorf("config: load %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("config: stat %s: %w", path, err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv lets environment variables override API keys.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Keys.Anthropic = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Keys.OpenAI = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Keys.Gemini = v
	}
}

// Save writes cfg to path (DefaultPath when empty).
func Save(path string, cfg Config) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}
