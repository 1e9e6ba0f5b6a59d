package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	return ensurePositiveMap(map[string]int{
		"daemon.workers":       c.Daemon.Workers,
		"daemon.drain_timeout": c.Daemon.DrainTimeout,
	})
}

func (c *Config) validateLLM() error {
	if c.Providers.TestMode {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/skald/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'skald config init')", defaultPath)
	}
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.Providers.TestMode {
		return nil
	}
	if c.TTS.APIKey == "" {
		return errors.New("tts.api_key is required. Set ELEVENLABS_API_KEY env var or add it to the config file")
	}
	if _, ok := c.TTS.Voices[c.TTS.Voice]; !ok {
		return fmt.Errorf("tts.voice %q has no entry in tts.voices", c.TTS.Voice)
	}
	return nil
}

func (c *Config) validateImages() error {
	return ensurePositiveMap(map[string]int{
		"images.width":           c.Images.Width,
		"images.height":          c.Images.Height,
		"images.max_scenes":      c.Images.MaxScenes,
		"images.timeout_seconds": c.Images.TimeoutSeconds,
	})
}

func (c *Config) validateMedia() error {
	return ensurePositiveMap(map[string]int{
		"media.frame_rate":   c.Media.FrameRate,
		"media.video_width":  c.Media.VideoWidth,
		"media.video_height": c.Media.VideoHeight,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
