package generate

import (
	"context"
	"log/slog"
	"os"

	"skald/internal/config"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/services/llm"
	"skald/internal/stage"
)

// ScriptStage produces the podcast script. Custom-text podcasts pass the
// provided text through untouched; the other sources prompt the language
// model.
type ScriptStage struct {
	capability
	cfg    *config.Config
	client *llm.Client
	logger *slog.Logger
}

func NewScriptStage(cfg *config.Config, logger *slog.Logger) *ScriptStage {
	return NewScriptStageWithClient(cfg, logger, newLLMClient(cfg))
}

func NewScriptStageWithClient(cfg *config.Config, logger *slog.Logger, client *llm.Client) *ScriptStage {
	return &ScriptStage{
		capability: capability{name: "script"},
		cfg:        cfg,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "script-stage"),
	}
}

func (s *ScriptStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *ScriptStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	var opts PodcastOptions
	if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
		return stage.Result{}, err
	}

	var script string
	switch opts.scriptSource() {
	case PodcastCustomText:
		script = opts.CustomText
	case PodcastTopicBased:
		if s.cfg.Providers.TestMode {
			script = cannedScript(job.Topic)
			break
		}
		generated, err := s.client.Complete(ctx, podcastSystemPrompt, podcastTopicPrompt(job.Topic))
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "generate script", "", err)
		}
		script = generated
	default:
		if s.cfg.Providers.TestMode {
			script = cannedScript(job.Topic)
			break
		}
		generated, err := s.client.Complete(ctx, podcastSystemPrompt, podcastFreePrompt)
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "generate script", "", err)
		}
		script = generated
	}

	path := scriptPath(job)
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "write script", "", err)
	}

	s.logger.Info("script generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", path),
		logging.String("source", opts.scriptSource()),
	)
	return stage.Result{Output: path, Artifacts: []string{path}}, nil
}
