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

// TextStage produces the narrative or educational prose that seeds the
// video pipeline: images, narration, and captions all derive from it.
type TextStage struct {
	capability
	cfg    *config.Config
	client *llm.Client
	logger *slog.Logger
	kind   jobs.ContentType
}

func NewTextStage(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType) *TextStage {
	return NewTextStageWithClient(cfg, logger, kind, newLLMClient(cfg))
}

func NewTextStageWithClient(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType, client *llm.Client) *TextStage {
	return &TextStage{
		capability: capability{name: "text"},
		cfg:        cfg,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "text-stage"),
		kind:       kind,
	}
}

func (s *TextStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *TextStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	var opts VideoOptions
	if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
		return stage.Result{}, err
	}

	var content string
	switch {
	case s.cfg.Providers.TestMode:
		if s.kind == jobs.TypeEducational {
			content = cannedEducational(job.Topic)
		} else {
			content = cannedStory(job.Topic)
		}
	case s.kind == jobs.TypeEducational:
		generated, err := s.client.Complete(ctx, educationalSystemPrompt, educationalPrompt(job.Topic, opts.Style))
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "generate content", "", err)
		}
		content = generated
	default:
		generated, err := s.client.Complete(ctx, storySystemPrompt, storyPrompt(job.Topic))
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "generate content", "", err)
		}
		content = generated
	}

	path := contentTextPath(job)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "write content", "", err)
	}

	s.logger.Info("content generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", path),
		logging.Int("bytes", len(content)),
	)
	return stage.Result{Output: path, Artifacts: []string{path}}, nil
}

func (s *TextStage) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg.Providers.TestMode {
		return stage.Healthy(s.name)
	}
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(s.name, err.Error())
	}
	return stage.Healthy(s.name)
}
