package generate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"skald/internal/media"
)

// Deterministic artifacts for test mode. Each mirrors the shape a real
// provider would produce so downstream stages run unchanged.

func cannedStory(topic string) string {
	return fmt.Sprintf(`Once upon a time there was %s, and an unlikely journey was about to begin.

The first trial arrived at dawn, when the road forked and every choice carried a cost. What %s found there would change everything.

By nightfall the journey was over, and %s returned home carrying a story worth telling.`, topic, topic, topic)
}

func cannedEducational(topic string) string {
	return fmt.Sprintf(`Introduction to %s

%s is a fascinating subject with a small set of key concepts worth learning first.

Let's break down the key ideas of %s with concrete examples, then close with a short summary.`, topic, topic, topic)
}

func cannedScript(topic string) string {
	return fmt.Sprintf("Welcome to today's episode. We're talking about %s, "+
		"why it matters, and what most people get wrong about it. "+
		"Stay with me for the next few minutes and you'll come away with a clear picture. "+
		"Thanks for listening.", topic)
}

func cannedOutline(topic string, chapters int) string {
	var b strings.Builder
	for i := 1; i <= chapters; i++ {
		fmt.Fprintf(&b, "<chapter%d>Part %d of the %s story</chapter%d>\n", i, i, topic, i)
	}
	return b.String()
}

func cannedChapter(topic, title string, number int) string {
	return fmt.Sprintf("Chapter %d, %q.\n\nThe tale of %s continued, "+
		"one step closer to its ending with every page.", number, title, topic)
}

func cannedPost(topic string, opts PostOptions) string {
	post := fmt.Sprintf("This is a test post about %s, written in an %s style, of %s length.",
		topic, opts.style(), opts.length())
	if strings.TrimSpace(opts.TargetAudience) != "" {
		post += fmt.Sprintf(" It is targeted at %s.", opts.TargetAudience)
	}
	return post + "\n\n#" + strings.ReplaceAll(strings.ToLower(topic), " ", "")
}

// writeStubImage writes a solid-color JPEG whose color varies with the
// image index, so frames are distinguishable in an assembled test video.
func writeStubImage(path string, index int) error {
	img := image.NewRGBA(image.Rect(0, 0, 512, 512))
	fill := color.RGBA{
		R: uint8((100 + 40*index) % 256),
		G: uint8((100 + 20*index) % 256),
		B: uint8((200 + 10*index) % 256),
		A: 255,
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// writeStubAudio writes a short synthesized tone in place of provider
// audio. The container is WAV regardless of the file extension; ffmpeg
// probes by content, not name.
func writeStubAudio(path string, seconds float64) error {
	return media.SynthesizeMusic(path, media.SynthesisOptions{Duration: seconds})
}
