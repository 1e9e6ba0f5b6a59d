package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDaemon()
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeImages()
	c.normalizeMedia()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.Workers <= 0 {
		c.Daemon.Workers = defaultDaemonWorkers
	}
	if c.Daemon.DrainTimeout <= 0 {
		c.Daemon.DrainTimeout = defaultDrainTimeout
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("SKALD_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.ModelID = strings.TrimSpace(c.TTS.ModelID)
	if c.TTS.ModelID == "" {
		c.TTS.ModelID = defaultTTSModelID
	}
	c.TTS.Voice = strings.ToLower(strings.TrimSpace(c.TTS.Voice))
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	// User-supplied presets extend the defaults rather than replacing them.
	voices := defaultVoices()
	for name, id := range c.TTS.Voices {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" || strings.TrimSpace(id) == "" {
			continue
		}
		voices[normalized] = strings.TrimSpace(id)
	}
	c.TTS.Voices = voices
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeImages() {
	c.Images.BaseURL = strings.TrimRight(strings.TrimSpace(c.Images.BaseURL), "/")
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = defaultImagesBaseURL
	}
	c.Images.Model = strings.TrimSpace(c.Images.Model)
	if c.Images.Model == "" {
		c.Images.Model = defaultImagesModel
	}
	if c.Images.Width <= 0 {
		c.Images.Width = defaultImageWidth
	}
	if c.Images.Height <= 0 {
		c.Images.Height = defaultImageHeight
	}
	if c.Images.MaxScenes <= 0 {
		c.Images.MaxScenes = defaultMaxScenes
	}
	if c.Images.TimeoutSeconds <= 0 {
		c.Images.TimeoutSeconds = defaultImagesTimeout
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = "ffmpeg"
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = "ffprobe"
	}
	if c.Media.FrameRate <= 0 {
		c.Media.FrameRate = defaultFrameRate
	}
	if c.Media.VideoWidth <= 0 {
		c.Media.VideoWidth = defaultVideoWidth
	}
	if c.Media.VideoHeight <= 0 {
		c.Media.VideoHeight = defaultVideoHeight
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
