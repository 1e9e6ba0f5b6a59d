package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"skald/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
	t.Setenv("ELEVENLABS_API_KEY", "tts-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "skald", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7519" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.TTS.APIKey != "tts-key" {
		t.Fatalf("expected TTS key from env, got %q", cfg.TTS.APIKey)
	}
	if cfg.Daemon.Workers != config.Default().Daemon.Workers {
		t.Fatalf("unexpected worker count: %d", cfg.Daemon.Workers)
	}
	if cfg.Media.FrameRate != 1 {
		t.Fatalf("unexpected frame rate: %d", cfg.Media.FrameRate)
	}
	if cfg.TTS.Voices["default"] == "" {
		t.Fatal("expected built-in default voice preset")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "skald.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
	t.Setenv("ELEVENLABS_API_KEY", "tts-key")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "skald.toml")

	type payload struct {
		Daemon struct {
			Workers int `toml:"workers"`
		} `toml:"daemon"`
		LLM struct {
			Model string `toml:"model"`
		} `toml:"llm"`
		Media struct {
			FrameRate int `toml:"frame_rate"`
		} `toml:"media"`
	}
	custom := payload{}
	custom.Daemon.Workers = 2
	custom.LLM.Model = "anthropic/claude-3.5-haiku"
	custom.Media.FrameRate = 2
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Daemon.Workers != 2 {
		t.Fatalf("expected worker override, got %d", cfg.Daemon.Workers)
	}
	if cfg.LLM.Model != "anthropic/claude-3.5-haiku" {
		t.Fatalf("expected model override, got %q", cfg.LLM.Model)
	}
	if cfg.Media.FrameRate != 2 {
		t.Fatalf("expected frame rate override, got %d", cfg.Media.FrameRate)
	}
}

func TestTestModeSkipsAPIKeyValidation(t *testing.T) {
	// Validate never consults the environment; Default() carries no keys.
	cfg := config.Default()
	cfg.Providers.TestMode = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected test mode to skip key validation, got %v", err)
	}

	cfg = config.Default()
	cfg.Providers.TestMode = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when llm.api_key missing outside test mode")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_openrouter_api_key_here") {
		t.Fatalf("sample config missing placeholder LLM key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "skald") {
		t.Fatalf("expected output dir to contain skald, got %q", cfg.Paths.OutputDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.LLM.APIKey = "key"
		cfg.TTS.APIKey = "key"
		return cfg
	}

	cfg := base()
	cfg.Daemon.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive workers")
	}

	cfg = base()
	cfg.Images.Width = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative image width")
	}

	cfg = base()
	cfg.TTS.Voice = "missing"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown voice preset")
	}

	cfg = base()
	cfg.Media.FrameRate = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero frame rate")
	}
}

func TestVoiceIDResolution(t *testing.T) {
	cfg := config.Default()
	if id := cfg.VoiceID("narrative"); id == "" {
		t.Fatal("expected narrative preset to resolve")
	}
	if cfg.VoiceID("unknown") != cfg.VoiceID("default") {
		t.Fatal("expected unknown preset to fall back to default voice")
	}
	if cfg.VoiceID("") != cfg.VoiceID(cfg.TTS.Voice) {
		t.Fatal("expected empty preset to use configured voice")
	}
}
