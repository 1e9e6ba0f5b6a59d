package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ProbeDuration returns the duration of an audio or video file in seconds.
func ProbeDuration(ctx context.Context, runner Runner, ffprobe, path string) (float64, error) {
	out, err := runner.Output(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	value := strings.TrimSpace(out)
	if value == "" {
		return 0, fmt.Errorf("probe %s: empty duration response", path)
	}
	duration, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: invalid duration %q: %w", path, value, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("probe %s: non-positive duration %f", path, duration)
	}
	return duration, nil
}
