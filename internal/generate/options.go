package generate

import (
	"fmt"
	"strings"

	"skald/internal/jobs"
	"skald/internal/services"
	"skald/internal/stage"
)

// Podcast script sources.
const (
	PodcastTopicBased = "topic_based"
	PodcastCustomText = "custom_text"
	PodcastFree       = "free_generation"
)

// VideoOptions applies to story and educational jobs.
type VideoOptions struct {
	// Style flavors the text prompt (e.g. "lecture", "documentary").
	Style string `json:"style,omitempty"`
	// Voice selects a narration preset or a provider voice id.
	Voice string `json:"voice,omitempty"`
	// MaxScenes caps scene images below the configured maximum.
	MaxScenes int `json:"max_scenes,omitempty"`
}

// PodcastOptions applies to podcast jobs.
type PodcastOptions struct {
	PodcastType string `json:"podcast_type,omitempty"`
	CustomText  string `json:"custom_text,omitempty"`
	Voice       string `json:"voice,omitempty"`
}

func (o PodcastOptions) scriptSource() string {
	if o.PodcastType == "" {
		return PodcastFree
	}
	return o.PodcastType
}

// BookOptions applies to book jobs.
type BookOptions struct {
	NumChapters  int    `json:"num_chapters,omitempty"`
	WritingStyle string `json:"writing_style,omitempty"`
	Genre        string `json:"genre,omitempty"`
}

func (o BookOptions) chapters() int {
	if o.NumChapters <= 0 {
		return 5
	}
	return o.NumChapters
}

func (o BookOptions) style() string {
	if strings.TrimSpace(o.WritingStyle) == "" {
		return "narrative"
	}
	return o.WritingStyle
}

func (o BookOptions) genre() string {
	if strings.TrimSpace(o.Genre) == "" {
		return "fiction"
	}
	return o.Genre
}

// MusicOptions applies to music jobs. Duration is a pointer so an explicit
// zero is rejected while an absent value falls back to the default.
type MusicOptions struct {
	Duration *float64 `json:"duration,omitempty"`
	Tempo    float64  `json:"tempo,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	// Mood is recorded with the job but does not change synthesis.
	Mood string `json:"mood,omitempty"`
}

func (o MusicOptions) duration() float64 {
	if o.Duration == nil {
		return 60
	}
	return *o.Duration
}

// PostOptions applies to post jobs.
type PostOptions struct {
	Style          string `json:"style,omitempty"`
	Length         string `json:"length,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
}

func (o PostOptions) style() string {
	if strings.TrimSpace(o.Style) == "" {
		return "informative"
	}
	return o.Style
}

func (o PostOptions) length() string {
	if strings.TrimSpace(o.Length) == "" {
		return "medium"
	}
	return strings.ToLower(strings.TrimSpace(o.Length))
}

// ValidateOptions checks the job options JSON against the rules for the
// content type. It runs before a job record is created, so failures never
// reach a stage.
func ValidateOptions(kind jobs.ContentType, raw string) error {
	switch kind {
	case jobs.TypeStory, jobs.TypeEducational:
		var opts VideoOptions
		if err := stage.DecodeOptions(raw, &opts); err != nil {
			return err
		}
		if opts.MaxScenes < 0 {
			return validationError("max_scenes must not be negative")
		}
	case jobs.TypePodcast:
		var opts PodcastOptions
		if err := stage.DecodeOptions(raw, &opts); err != nil {
			return err
		}
		switch opts.scriptSource() {
		case PodcastTopicBased, PodcastFree:
		case PodcastCustomText:
			if strings.TrimSpace(opts.CustomText) == "" {
				return validationError("custom_text podcasts require the custom_text option")
			}
		default:
			return validationError(fmt.Sprintf("unknown podcast_type %q (expected %s, %s, or %s)",
				opts.PodcastType, PodcastTopicBased, PodcastCustomText, PodcastFree))
		}
	case jobs.TypeBook:
		var opts BookOptions
		if err := stage.DecodeOptions(raw, &opts); err != nil {
			return err
		}
		if opts.NumChapters < 0 {
			return validationError("num_chapters must not be negative")
		}
	case jobs.TypeMusic:
		var opts MusicOptions
		if err := stage.DecodeOptions(raw, &opts); err != nil {
			return err
		}
		if opts.Duration != nil && *opts.Duration <= 0 {
			return validationError("duration must be positive")
		}
		if opts.Tempo < 0 {
			return validationError("tempo must not be negative")
		}
	case jobs.TypePost:
		var opts PostOptions
		if err := stage.DecodeOptions(raw, &opts); err != nil {
			return err
		}
		switch opts.length() {
		case "short", "medium", "long":
		default:
			return validationError(fmt.Sprintf("unknown length %q (expected short, medium, or long)", opts.Length))
		}
	default:
		return validationError(fmt.Sprintf("unknown content type %q", kind))
	}
	return nil
}

func validationError(message string) error {
	return services.Wrap(services.ErrValidation, "", "validate options", message, nil)
}
