package workflow

import (
	"fmt"
	"log/slog"

	"skald/internal/config"
	"skald/internal/generate"
	"skald/internal/jobs"
	"skald/internal/stage"
)

// PipelineFunc builds the ordered stage handlers for one job run. Handlers
// are constructed fresh per run and must not be shared across jobs.
type PipelineFunc func(kind jobs.ContentType) ([]stage.Handler, error)

// Pipeline returns the fixed stage sequence for a content type.
func Pipeline(cfg *config.Config, store *jobs.Store, logger *slog.Logger, kind jobs.ContentType) ([]stage.Handler, error) {
	switch kind {
	case jobs.TypeStory, jobs.TypeEducational:
		return []stage.Handler{
			generate.NewTextStage(cfg, logger, kind),
			generate.NewImagesStage(cfg, logger, kind),
			generate.NewNarrationStage(cfg, logger, kind),
			generate.NewMusicStage(cfg, logger, kind),
			generate.NewAssemblyStage(cfg, logger, kind),
		}, nil
	case jobs.TypePodcast:
		return []stage.Handler{
			generate.NewScriptStage(cfg, logger),
			generate.NewNarrationStage(cfg, logger, kind),
		}, nil
	case jobs.TypeBook:
		return []stage.Handler{
			generate.NewOutlineStage(cfg, logger),
			generate.NewChapterStage(cfg, store, logger),
			generate.NewBookStage(logger),
		}, nil
	case jobs.TypeMusic:
		return []stage.Handler{
			generate.NewMusicStage(cfg, logger, kind),
		}, nil
	case jobs.TypePost:
		return []stage.Handler{
			generate.NewPostStage(cfg, logger),
		}, nil
	default:
		return nil, fmt.Errorf("no pipeline for content type %q", kind)
	}
}

// healthProbes builds one handler per external dependency so Status can
// report provider readiness without running a job: text covers the LLM,
// images the render endpoint, narration the TTS service, and assembly the
// ffmpeg/ffprobe binaries.
func healthProbes(cfg *config.Config, logger *slog.Logger) []stage.HealthChecker {
	return []stage.HealthChecker{
		generate.NewTextStage(cfg, logger, jobs.TypeStory),
		generate.NewImagesStage(cfg, logger, jobs.TypeStory),
		generate.NewNarrationStage(cfg, logger, jobs.TypeStory),
		generate.NewAssemblyStage(cfg, logger, jobs.TypeStory),
	}
}
