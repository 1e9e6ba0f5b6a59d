package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"skald/internal/config"
	"skald/internal/logging"
	"skald/internal/services"
)

// Assembler turns a Bundle into a single mp4 with one ffmpeg invocation.
type Assembler struct {
	cfg    *config.Config
	runner Runner
	logger *slog.Logger
}

// AssemblerOption adjusts assembler construction.
type AssemblerOption func(*Assembler)

// WithRunner substitutes the process runner, primarily for tests.
func WithRunner(runner Runner) AssemblerOption {
	return func(a *Assembler) {
		a.runner = runner
	}
}

// NewAssembler builds an assembler bound to the configured ffmpeg tools.
func NewAssembler(cfg *config.Config, logger *slog.Logger, opts ...AssemblerOption) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Assembler{
		cfg:    cfg,
		runner: NewRunner(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssembleVideo renders the bundle to outputPath. Narration is authoritative:
// the output runs exactly as long as the narration, with music looped or
// trimmed to match. All inputs are checked up front so a missing file fails
// before any rendering starts, and a failed render never leaves a partial
// output behind.
func (a *Assembler) AssembleVideo(ctx context.Context, bundle Bundle, outputPath string) error {
	if err := a.validateBundle(bundle, outputPath); err != nil {
		return err
	}

	narrationDur, err := ProbeDuration(ctx, a.runner, a.cfg.FFprobeBinary(), bundle.Narration)
	if err != nil {
		return services.Wrap(services.ErrAssembly, "", "probe narration", "", err)
	}
	musicDur, err := ProbeDuration(ctx, a.runner, a.cfg.FFprobeBinary(), bundle.Music)
	if err != nil {
		return services.Wrap(services.ErrAssembly, "", "probe music", "", err)
	}

	loops := MusicLoops(narrationDur, musicDur)
	gain := bundle.MusicGain
	if gain <= 0 {
		gain = 0.5
	}
	frameRate := bundle.FrameRate
	if frameRate <= 0 {
		frameRate = a.cfg.Media.FrameRate
	}

	framesPath := filepath.Join(filepath.Dir(outputPath), "frames_concat.txt")
	if err := os.WriteFile(framesPath, []byte(ConcatList(bundle.Images, frameRate)), 0o644); err != nil {
		return services.Wrap(services.ErrAssembly, "", "write frame list", "", err)
	}
	defer os.Remove(framesPath)

	renderBundle := bundle
	renderBundle.FrameRate = frameRate
	args := assembleArgs(renderBundle, a.cfg.Media.VideoWidth, a.cfg.Media.VideoHeight, framesPath, narrationDur, loops, gain, outputPath)

	a.logger.Info("assembling video",
		logging.String("output", outputPath),
		logging.Int("frames", len(bundle.Images)),
		logging.Int("captions", len(bundle.Captions)),
		logging.Float64("narration_seconds", narrationDur),
		logging.Float64("music_seconds", musicDur),
		logging.Int("music_loops", loops),
		logging.Float64("music_gain", gain),
	)

	if err := a.runner.Run(ctx, a.cfg.FFmpegBinary(), args...); err != nil {
		os.Remove(outputPath)
		return services.Wrap(services.ErrAssembly, "", "render video", "", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return services.Wrap(services.ErrAssembly, "", "render video", "output file missing", err)
	}
	if info.Size() == 0 {
		os.Remove(outputPath)
		return services.Wrap(services.ErrAssembly, "", "render video", "output file is empty", nil)
	}

	a.logger.Info("video assembled",
		logging.String("output", outputPath),
		logging.Int64("size_bytes", info.Size()),
	)
	return nil
}

// CheckTools verifies that ffmpeg and ffprobe respond to -version.
func (a *Assembler) CheckTools(ctx context.Context) error {
	if _, err := a.runner.Output(ctx, a.cfg.FFmpegBinary(), "-version"); err != nil {
		return fmt.Errorf("ffmpeg unavailable: %w", err)
	}
	if _, err := a.runner.Output(ctx, a.cfg.FFprobeBinary(), "-version"); err != nil {
		return fmt.Errorf("ffprobe unavailable: %w", err)
	}
	return nil
}

func (a *Assembler) validateBundle(bundle Bundle, outputPath string) error {
	if len(bundle.Images) == 0 {
		return services.Wrap(services.ErrAssembly, "", "validate inputs", "no images provided", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrAssembly, "", "validate inputs", "output path is empty", nil)
	}

	required := make([]string, 0, len(bundle.Images)+2)
	required = append(required, bundle.Images...)
	required = append(required, bundle.Narration, bundle.Music)

	var missing []string
	for _, path := range required {
		if strings.TrimSpace(path) == "" {
			missing = append(missing, "(empty path)")
			continue
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrAssembly, "", "validate inputs",
			fmt.Sprintf("required files not found: %s", strings.Join(missing, ", ")), nil)
	}
	return nil
}
