package generate

import (
	"context"
	"log/slog"

	"skald/internal/config"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/media"
	"skald/internal/services"
	"skald/internal/stage"
)

const (
	backgroundMusicSeconds = 30.0
	testMusicSeconds       = 2.0
)

// MusicStage synthesizes audio procedurally; no provider is involved. For
// music jobs it produces the deliverable track from the job options; for
// video types it produces the background bed the assembler loops under the
// narration.
type MusicStage struct {
	capability
	cfg    *config.Config
	logger *slog.Logger
	kind   jobs.ContentType
}

func NewMusicStage(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType) *MusicStage {
	name := "music"
	if kind == jobs.TypeMusic {
		name = "synthesis"
	}
	return &MusicStage{
		capability: capability{name: name},
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "music-stage"),
		kind:       kind,
	}
}

func (s *MusicStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *MusicStage) generate(_ context.Context, job *jobs.Job) (stage.Result, error) {
	var synthOpts media.SynthesisOptions
	var path string

	if s.kind == jobs.TypeMusic {
		var opts MusicOptions
		if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
			return stage.Result{}, err
		}
		path = musicTrackPath(job)
		synthOpts = media.SynthesisOptions{
			Duration: opts.duration(),
			Tempo:    opts.Tempo,
			Genre:    opts.Genre,
		}
	} else {
		path = backgroundMusicPath(job)
		genre := "electronic"
		if s.kind == jobs.TypeEducational {
			genre = "ambient"
		}
		synthOpts = media.SynthesisOptions{
			Duration: backgroundMusicSeconds,
			Genre:    genre,
		}
	}

	if s.cfg.Providers.TestMode {
		synthOpts.Duration = testMusicSeconds
	}

	if err := media.SynthesizeMusic(path, synthOpts); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "synthesize music", "", err)
	}

	s.logger.Info("music synthesized",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", path),
		logging.Float64("seconds", synthOpts.Duration),
		logging.String("genre", synthOpts.Genre),
	)
	return stage.Result{Output: path, Artifacts: []string{path}}, nil
}
