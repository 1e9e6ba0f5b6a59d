package generate

import (
	"skald/internal/config"
	"skald/internal/services/imagegen"
	"skald/internal/services/llm"
	"skald/internal/services/tts"
	"skald/internal/stage"
)

// capability carries the name and observability bookkeeping shared by every
// stage handler in this package.
type capability struct {
	stage.Tracker
	name string
}

func (c *capability) Name() string { return c.name }

// runTracked mirrors the stage outcome into the tracker so Status and
// Output report the handler's last run.
func runTracked(c *capability, fn func() (stage.Result, error)) (stage.Result, error) {
	c.SetProcessing()
	res, err := fn()
	if err != nil {
		c.SetFailed(err)
		return stage.Result{}, err
	}
	c.SetCompleted(res.Output)
	return res, nil
}

func newLLMClient(cfg *config.Config) *llm.Client {
	if cfg.Providers.TestMode {
		return nil
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}

func newTTSClient(cfg *config.Config) *tts.Client {
	if cfg.Providers.TestMode {
		return nil
	}
	return tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		ModelID:        cfg.TTS.ModelID,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
}

func newImageClient(cfg *config.Config) *imagegen.Client {
	if cfg.Providers.TestMode {
		return nil
	}
	return imagegen.NewClient(imagegen.Config{
		BaseURL:        cfg.Images.BaseURL,
		Model:          cfg.Images.Model,
		Width:          cfg.Images.Width,
		Height:         cfg.Images.Height,
		TimeoutSeconds: cfg.Images.TimeoutSeconds,
	})
}
