package generate

import (
	"context"
	"log/slog"
	"os"

	"skald/internal/config"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/media"
	"skald/internal/stage"
	"skald/internal/textutil"
)

// captionExcerptLimit keeps caption overlays to one readable line.
const captionExcerptLimit = 80

// AssemblyStage hands the generated frames, narration, and music to the
// media assembler. Educational videos get per-scene captions; story videos
// stay clean.
type AssemblyStage struct {
	capability
	cfg    *config.Config
	asm    *media.Assembler
	logger *slog.Logger
	kind   jobs.ContentType
}

func NewAssemblyStage(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType) *AssemblyStage {
	return NewAssemblyStageWithAssembler(cfg, logger, kind, media.NewAssembler(cfg, logger))
}

func NewAssemblyStageWithAssembler(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType, asm *media.Assembler) *AssemblyStage {
	return &AssemblyStage{
		capability: capability{name: "assembly"},
		cfg:        cfg,
		asm:        asm,
		logger:     logging.NewComponentLogger(logger, "assembly-stage"),
		kind:       kind,
	}
}

func (s *AssemblyStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *AssemblyStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	images, err := listImages(job)
	if err != nil {
		images = nil
	}

	bundle := media.Bundle{
		Images:    images,
		Narration: narrationPath(job),
		Music:     backgroundMusicPath(job),
		Captions:  s.captions(job, len(images)),
		FrameRate: s.cfg.Media.FrameRate,
		MusicGain: media.DefaultMusicGain(string(s.kind)),
	}

	output := videoPath(job)
	if err := s.asm.AssembleVideo(ctx, bundle, output); err != nil {
		return stage.Result{}, err
	}

	s.logger.Info("video assembled",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", output),
		logging.Int("frames", len(images)),
	)
	return stage.Result{Output: output, Artifacts: []string{output}}, nil
}

// captions returns one excerpt per scene image for educational content.
// The count is capped at the scene images so each caption lines up with
// the frame it describes.
func (s *AssemblyStage) captions(job *jobs.Job, imageCount int) []string {
	if s.kind != jobs.TypeEducational || imageCount <= 1 {
		return nil
	}
	raw, err := os.ReadFile(contentTextPath(job))
	if err != nil {
		return nil
	}
	paragraphs := textutil.Paragraphs(string(raw))
	limit := imageCount - 1
	if len(paragraphs) < limit {
		limit = len(paragraphs)
	}
	captions := make([]string, 0, limit)
	for _, paragraph := range paragraphs[:limit] {
		captions = append(captions, textutil.Excerpt(paragraph, captionExcerptLimit))
	}
	return captions
}

func (s *AssemblyStage) HealthCheck(ctx context.Context) stage.Health {
	if err := s.asm.CheckTools(ctx); err != nil {
		return stage.Unhealthy(s.name, err.Error())
	}
	return stage.Healthy(s.name)
}
