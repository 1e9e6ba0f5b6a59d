package config

const (
	defaultOutputDir         = "~/.local/share/skald/output"
	defaultDataDir           = "~/.local/share/skald"
	defaultLogDir            = "~/.local/share/skald/logs"
	defaultAPIBind           = "127.0.0.1:7519"
	defaultDaemonWorkers     = 4
	defaultDrainTimeout      = 60
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "openai/gpt-4o-mini"
	defaultLLMReferer        = "https://github.com/skald-media/skald"
	defaultLLMTitle          = "Skald Content Generator"
	defaultLLMTimeoutSeconds = 120
	defaultTTSBaseURL        = "https://api.elevenlabs.io"
	defaultTTSModelID        = "eleven_multilingual_v2"
	defaultTTSVoice          = "default"
	defaultTTSTimeoutSeconds = 120
	defaultImagesBaseURL     = "https://image.pollinations.ai"
	defaultImagesModel       = "flux"
	defaultImageWidth        = 1024
	defaultImageHeight       = 1024
	defaultMaxScenes         = 4
	defaultImagesTimeout     = 120
	defaultFrameRate         = 1
	defaultVideoWidth        = 1280
	defaultVideoHeight       = 720
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

func defaultVoices() map[string]string {
	return map[string]string{
		"default":     "21m00Tcm4TlvDq8ikWAM",
		"narrative":   "pNInz6obpgDQGcFmaJgB",
		"educational": "EXAVITQu4vr4xnSDxMaL",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Daemon: Daemon{
			Workers:      defaultDaemonWorkers,
			DrainTimeout: defaultDrainTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			ModelID:        defaultTTSModelID,
			Voice:          defaultTTSVoice,
			Voices:         defaultVoices(),
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Images: Images{
			BaseURL:        defaultImagesBaseURL,
			Model:          defaultImagesModel,
			Width:          defaultImageWidth,
			Height:         defaultImageHeight,
			MaxScenes:      defaultMaxScenes,
			TimeoutSeconds: defaultImagesTimeout,
		},
		Media: Media{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			FrameRate:     defaultFrameRate,
			VideoWidth:    defaultVideoWidth,
			VideoHeight:   defaultVideoHeight,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
