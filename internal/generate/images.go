package generate

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"

	"skald/internal/config"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/services/imagegen"
	"skald/internal/stage"
	"skald/internal/textutil"
)

// sceneExcerptLimit caps how much of a paragraph feeds an image prompt.
const sceneExcerptLimit = 200

// ImagesStage renders one main image for the topic plus a scene image per
// content paragraph, capped by configuration. Fewer paragraphs than the cap
// is fine; the assembler accepts any non-empty frame list.
type ImagesStage struct {
	capability
	cfg    *config.Config
	client *imagegen.Client
	logger *slog.Logger
	kind   jobs.ContentType
}

func NewImagesStage(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType) *ImagesStage {
	return NewImagesStageWithClient(cfg, logger, kind, newImageClient(cfg))
}

func NewImagesStageWithClient(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType, client *imagegen.Client) *ImagesStage {
	return &ImagesStage{
		capability: capability{name: "images"},
		cfg:        cfg,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "images-stage"),
		kind:       kind,
	}
}

func (s *ImagesStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *ImagesStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	var opts VideoOptions
	if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
		return stage.Result{}, err
	}

	raw, err := os.ReadFile(contentTextPath(job))
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read content", "", err)
	}
	paragraphs := textutil.Paragraphs(string(raw))

	maxScenes := s.cfg.Images.MaxScenes
	if opts.MaxScenes > 0 && opts.MaxScenes < maxScenes {
		maxScenes = opts.MaxScenes
	}
	scenes := len(paragraphs)
	if scenes > maxScenes {
		scenes = maxScenes
	}

	dir := imagesDir(job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "create images directory", "", err)
	}

	mainPath := filepath.Join(dir, "main.jpg")
	if err := s.render(ctx, mainImagePrompt(s.kind, job.Topic), imageSeed(job.ID, 0), mainPath, 0); err != nil {
		return stage.Result{}, err
	}
	artifacts := []string{mainPath}

	for i := 0; i < scenes; i++ {
		excerpt := textutil.Excerpt(paragraphs[i], sceneExcerptLimit)
		path := filepath.Join(dir, fmt.Sprintf("scene_%d.jpg", i+1))
		if err := s.render(ctx, sceneImagePrompt(s.kind, excerpt), imageSeed(job.ID, i+1), path, i+1); err != nil {
			return stage.Result{}, err
		}
		artifacts = append(artifacts, path)
	}

	s.logger.Info("images generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("count", len(artifacts)),
		logging.Int("paragraphs", len(paragraphs)),
	)
	return stage.Result{Output: mainPath, Artifacts: artifacts}, nil
}

func (s *ImagesStage) render(ctx context.Context, prompt string, seed int64, path string, index int) error {
	if s.cfg.Providers.TestMode {
		if err := writeStubImage(path, index); err != nil {
			return services.Wrap(services.ErrStage, s.name, "write stub image", "", err)
		}
		return nil
	}
	if err := s.client.Generate(ctx, prompt, seed, path); err != nil {
		return services.Wrap(services.ErrStage, s.name, fmt.Sprintf("generate %s", filepath.Base(path)), "", err)
	}
	return nil
}

func (s *ImagesStage) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg.Providers.TestMode {
		return stage.Healthy(s.name)
	}
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(s.name, err.Error())
	}
	return stage.Healthy(s.name)
}

// imageSeed derives a stable provider seed from the job id and image index
// so re-running a job reproduces the same frames.
func imageSeed(jobID string, index int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s#%d", jobID, index)
	return int64(h.Sum64() & (1<<63 - 1))
}
