// Package config handles loading and persisting user settings for wordpeek.
// Settings are stored in ~/.wordpeek/config.json and can be overridden by a
// .env file or by environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	dirName  = ".wordpeek"
	fileName = "config.json"

	DefaultAPIURL        = "https://api.openai.com/v1/chat/completions"
	DefaultModel         = "gpt-3.5-turbo"
	DefaultPrompt        = "%context%，根据上面的上下文先给出单词%word%的释义，然后再给出句中的释义"
	DefaultContextRange  = RangeParagraph
	DefaultContextLength = 500

	envAPIURL        = "WORDPEEK_API_URL"
	envAPIKey        = "WORDPEEK_API_KEY"
	envModel         = "WORDPEEK_MODEL"
	envPrompt        = "WORDPEEK_PROMPT"
	envContextRange  = "WORDPEEK_CONTEXT_RANGE"
	envContextLength = "WORDPEEK_CONTEXT_LENGTH"
	envLogLevel      = "WORDPEEK_LOG_LEVEL"
)

// Context ranges understood by the selection extractor.
const (
	RangeParagraph = "paragraph"
	RangeSentence  = "sentence"
	RangeFixed     = "fixed"
)

// Settings holds everything a lookup needs. A fresh copy is loaded for
// every request; nothing is cached between lookups.
type Settings struct {
	APIURL        string `json:"api_url"`
	APIKey        string `json:"api_key,omitempty"`
	Model         string `json:"model"`
	SystemPrompt  string `json:"system_prompt"`
	ContextRange  string `json:"context_range"`
	ContextLength int    `json:"context_length"`
	LogLevel      string `json:"log_level,omitempty"`
}

// Defaults returns the settings used when nothing has been configured.
func Defaults() Settings {
	return Settings{
		APIURL:        DefaultAPIURL,
		Model:         DefaultModel,
		SystemPrompt:  DefaultPrompt,
		ContextRange:  DefaultContextRange,
		ContextLength: DefaultContextLength,
	}
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

func configPath() string {
	return filepath.Join(Dir(), fileName)
}

// Exists reports whether a config file has been written.
func Exists() bool {
	_, err := os.Stat(configPath())
	return err == nil
}

// Store is the settings provider used by lookups. Each Get re-reads the
// config file, the nearest .env file and the environment.
type Store struct {
	// EnvDir is where the .env search starts. Empty means the working directory.
	EnvDir string
}

// Get returns a fresh settings snapshot.
func (s Store) Get() (Settings, error) {
	cfg, err := readFile()
	if err != nil {
		return Settings{}, err
	}

	if path := findEnvFile(s.EnvDir); path != "" {
		vars, err := godotenv.Read(path)
		if err != nil {
			return Settings{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		applyEnv(&cfg, func(k string) string { return vars[k] })
	}
	applyEnv(&cfg, os.Getenv)

	fillDefaults(&cfg)
	return cfg, nil
}

// Load returns a fresh settings snapshot rooted at the working directory.
func Load() (Settings, error) {
	return Store{}.Get()
}

func readFile() (Settings, error) {
	cfg := Defaults()
	data, err := os.ReadFile(configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", configPath(), err)
	}
	return cfg, nil
}

func applyEnv(cfg *Settings, get func(string) string) {
	if v := get(envAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := get(envAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := get(envModel); v != "" {
		cfg.Model = v
	}
	if v := get(envPrompt); v != "" {
		cfg.SystemPrompt = v
	}
	if v := get(envContextRange); v != "" {
		cfg.ContextRange = v
	}
	if v := get(envContextLength); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContextLength = n
		}
	}
	if v := get(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

func fillDefaults(cfg *Settings) {
	d := Defaults()
	if cfg.APIURL == "" {
		cfg.APIURL = d.APIURL
	}
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = d.SystemPrompt
	}
	if !validRange(cfg.ContextRange) {
		cfg.ContextRange = d.ContextRange
	}
	if cfg.ContextLength <= 0 {
		cfg.ContextLength = d.ContextLength
	}
}

// findEnvFile walks up from dir looking for a .env file.
func findEnvFile(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}
	for {
		path := filepath.Join(dir, ".env")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// save persists the config to disk.
func save(cfg Settings) error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}

// Init writes the default settings unless a config file already exists.
// It reports whether a file was created.
func Init() (bool, error) {
	if Exists() {
		return false, nil
	}
	return true, save(Defaults())
}

// Keys accepted by Set.
var Keys = []string{"api-url", "api-key", "model", "prompt", "context-range", "context-length"}

// Set validates and persists a single setting. Only the config file is
// touched; .env and environment overrides still apply on the next Get.
func Set(key, value string) error {
	cfg, err := readFile()
	if err != nil {
		return err
	}

	switch key {
	case "api-url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("api url must start with http:// or https://")
		}
		cfg.APIURL = value
	case "api-key":
		cfg.APIKey = strings.TrimSpace(value)
	case "model":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("model name cannot be empty")
		}
		cfg.Model = value
	case "prompt":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("prompt template cannot be empty")
		}
		cfg.SystemPrompt = value
	case "context-range":
		if !validRange(value) {
			return fmt.Errorf("context range must be one of %s, %s, %s", RangeParagraph, RangeSentence, RangeFixed)
		}
		cfg.ContextRange = value
	case "context-length":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("context length must be a positive integer")
		}
		cfg.ContextLength = n
	default:
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys, ", "))
	}

	return save(cfg)
}

func validRange(r string) bool {
	switch r {
	case RangeParagraph, RangeSentence, RangeFixed:
		return true
	}
	return false
}

// MaskKey hides all but the edges of an API key for display.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
