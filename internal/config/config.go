// Package config loads botsh settings.
//
// Layering, lowest to highest: Default, the TOML file, environment
// variables, then command-line flags applied by the caller. Nothing is
// validated here; a bad key or address only shows up on the first request.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the full set of settings for one invocation.
type Config struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// MaxTokens caps a reply; only the anthropic provider sends it.
	MaxTokens int64 `toml:"max_tokens"`

	SystemPrompt         string `toml:"system_prompt"`
	TranslateInstruction string `toml:"translate_instruction"`

	ShellPrefix string   `toml:"shell_prefix"`
	Shell       []string `toml:"shell"`

	HistoryFile    string `toml:"history_file"`
	LogFile        string `toml:"log_file"`
	SaveTranscript string `toml:"save_transcript"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Provider:             ProviderOpenAI,
		MaxTokens:            4096,
		SystemPrompt:         "You are a capable assistant.",
		TranslateInstruction: "\nPlease translate the text above into Chinese.\n",
		ShellPrefix:          "!",
		Shell:                defaultShell(),
	}
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"/bin/sh", "-c"}
}

// Dir returns the botsh configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, "botsh"), nil
}

// Path returns the config file location: $BOTSH_CONFIG or <Dir>/config.toml.
func Path() (string, error) {
	if p := os.Getenv("BOTSH_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// it does not exist) and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadTOML(cfg, path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.fillDefaults()
	return cfg, nil
}

// LoadTOML decodes the file at path over cfg.
func LoadTOML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Provider, "BOTSH_PROVIDER")
	set(&c.Model, "BOTSH_MODEL")
	set(&c.APIKey, "BOTSH_API_KEY", "ARK_API_KEY")
	set(&c.BaseURL, "BOTSH_BASE_URL")
	set(&c.SystemPrompt, "BOTSH_SYSTEM_PROMPT")
	set(&c.LogFile, "BOTSH_LOG_FILE")
}

// fillDefaults restores required values a config file blanked out.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.ShellPrefix == "" {
		c.ShellPrefix = d.ShellPrefix
	}
	if len(c.Shell) == 0 {
		c.Shell = d.Shell
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.HistoryFile == "" {
		if dir, err := Dir(); err == nil {
			c.HistoryFile = filepath.Join(dir, "history")
		}
	}
}

// EnsureDir creates the directory holding path, if any.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
