package generate

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"skald/internal/config"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/services/llm"
	"skald/internal/stage"
)

type postPayload struct {
	Post     string   `json:"post"`
	Hashtags []string `json:"hashtags"`
}

// PostStage writes a short social post. The model is asked for JSON so the
// hashtags come back structured instead of scraped out of prose.
type PostStage struct {
	capability
	cfg    *config.Config
	client *llm.Client
	logger *slog.Logger
}

func NewPostStage(cfg *config.Config, logger *slog.Logger) *PostStage {
	return NewPostStageWithClient(cfg, logger, newLLMClient(cfg))
}

func NewPostStageWithClient(cfg *config.Config, logger *slog.Logger, client *llm.Client) *PostStage {
	return &PostStage{
		capability: capability{name: "post"},
		cfg:        cfg,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "post-stage"),
	}
}

func (s *PostStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *PostStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	var opts PostOptions
	if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
		return stage.Result{}, err
	}

	var content string
	if s.cfg.Providers.TestMode {
		content = cannedPost(job.Topic, opts)
	} else {
		raw, err := s.client.CompleteJSON(ctx, postSystemPrompt, postPrompt(job.Topic, opts))
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "generate post", "", err)
		}
		var payload postPayload
		if err := llm.DecodeJSON(raw, &payload); err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "decode post response", "", err)
		}
		if strings.TrimSpace(payload.Post) == "" {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "decode post response",
				"response contained no post text", nil)
		}
		content = formatPost(payload)
	}

	path := postPath(job)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "write post", "", err)
	}

	s.logger.Info("post generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", path),
	)
	return stage.Result{Output: path, Artifacts: []string{path}}, nil
}

func formatPost(payload postPayload) string {
	post := strings.TrimSpace(payload.Post)
	tags := make([]string, 0, len(payload.Hashtags))
	for _, tag := range payload.Hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return post
	}
	return post + "\n\n" + strings.Join(tags, " ")
}
