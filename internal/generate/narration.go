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
	"skald/internal/services/tts"
	"skald/internal/stage"
)

// testNarrationSeconds keeps test-mode audio short while still long enough
// for the assembler's duration math to be meaningful.
const testNarrationSeconds = 2.0

// NarrationStage speaks the job's prose: the content file for video types,
// the script for podcasts.
type NarrationStage struct {
	capability
	cfg    *config.Config
	client *tts.Client
	logger *slog.Logger
	kind   jobs.ContentType
}

func NewNarrationStage(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType) *NarrationStage {
	return NewNarrationStageWithClient(cfg, logger, kind, newTTSClient(cfg))
}

func NewNarrationStageWithClient(cfg *config.Config, logger *slog.Logger, kind jobs.ContentType, client *tts.Client) *NarrationStage {
	return &NarrationStage{
		capability: capability{name: "narration"},
		cfg:        cfg,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "narration-stage"),
		kind:       kind,
	}
}

func (s *NarrationStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *NarrationStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	sourcePath := contentTextPath(job)
	if s.kind == jobs.TypePodcast {
		sourcePath = scriptPath(job)
	}
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read narration text", "", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read narration text", "narration source is empty", nil)
	}

	outputPath := narrationPath(job)
	if s.cfg.Providers.TestMode {
		if err := writeStubAudio(outputPath, testNarrationSeconds); err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "write stub narration", "", err)
		}
	} else {
		if err := s.client.Synthesize(ctx, text, s.voiceID(job), outputPath); err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "synthesize narration", "", err)
		}
	}

	s.logger.Info("narration generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", outputPath),
		logging.Int("text_chars", len(text)),
	)
	return stage.Result{Output: outputPath, Artifacts: []string{outputPath}}, nil
}

// voiceID resolves the narration voice: an explicit option wins, then the
// per-type preset, then the configured default. Preset names map through
// the configured voices table; anything unmapped is passed to the provider
// as a raw voice id.
func (s *NarrationStage) voiceID(job *jobs.Job) string {
	var opts struct {
		Voice string `json:"voice"`
	}
	_ = stage.DecodeOptions(job.OptionsJSON, &opts)

	preset := strings.TrimSpace(opts.Voice)
	if preset == "" {
		switch s.kind {
		case jobs.TypeStory:
			preset = "narrative"
		case jobs.TypeEducational:
			preset = "educational"
		default:
			preset = s.cfg.TTS.Voice
		}
	}
	if id, ok := s.cfg.TTS.Voices[preset]; ok && strings.TrimSpace(id) != "" {
		return id
	}
	return preset
}

func (s *NarrationStage) HealthCheck(ctx context.Context) stage.Health {
	if s.cfg.Providers.TestMode {
		return stage.Healthy(s.name)
	}
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(s.name, err.Error())
	}
	return stage.Healthy(s.name)
}
