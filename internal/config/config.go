package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Daemon contains background execution settings.
type Daemon struct {
	Workers      int `toml:"workers"`
	DrainTimeout int `toml:"drain_timeout"`
}

// Providers contains switches shared by all generation providers.
type Providers struct {
	// TestMode makes every capability produce a deterministic local
	// artifact instead of calling its external provider.
	TestMode bool `toml:"test_mode"`
}

// LLM contains connection settings for the text-generation provider.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains connection settings for the narration provider.
type TTS struct {
	APIKey         string            `toml:"api_key"`
	BaseURL        string            `toml:"base_url"`
	ModelID        string            `toml:"model_id"`
	Voice          string            `toml:"voice"`
	Voices         map[string]string `toml:"voices"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
}

// Images contains connection settings for the still-image provider.
type Images struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	MaxScenes      int    `toml:"max_scenes"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Media contains video assembly settings.
type Media struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	FrameRate     int    `toml:"frame_rate"`
	VideoWidth    int    `toml:"video_width"`
	VideoHeight   int    `toml:"video_height"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Skald.
//
// Configuration sections by subsystem:
//   - Paths: output/data/log directories and API bind address
//   - Daemon: worker pool size and shutdown drain timeout
//   - Providers: shared provider switches (test mode)
//   - LLM: text-generation provider connection settings
//   - TTS: narration provider connection settings and voice presets
//   - Images: still-image provider settings
//   - Media: ffmpeg/ffprobe binaries and video assembly parameters
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Daemon    Daemon    `toml:"daemon"`
	Providers Providers `toml:"providers"`
	LLM       LLM       `toml:"llm"`
	TTS       TTS       `toml:"tts"`
	Images    Images    `toml:"images"`
	Media     Media     `toml:"media"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/skald/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/skald/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("skald.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "skald.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "skald.lock")
}

// JobDir returns the working directory for one job.
func (c *Config) JobDir(jobID string) string {
	return filepath.Join(c.Paths.OutputDir, jobID)
}

// FFmpegBinary returns the ffmpeg executable used for video assembly.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Media.FFmpegBinary) == "" {
		return "ffmpeg"
	}
	return c.Media.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for duration probing.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Media.FFprobeBinary) == "" {
		return "ffprobe"
	}
	return c.Media.FFprobeBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains common LLM settings used across content types.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// VoiceID resolves a voice preset name to the provider voice identifier.
// Unknown presets fall back to the configured default voice.
func (c *Config) VoiceID(preset string) string {
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		preset = c.TTS.Voice
	}
	if id, ok := c.TTS.Voices[preset]; ok && strings.TrimSpace(id) != "" {
		return id
	}
	if id, ok := c.TTS.Voices[c.TTS.Voice]; ok {
		return id
	}
	return ""
}
