package media

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bundle describes the assets feeding one video assembly.
type Bundle struct {
	// Images become the frame sequence, in order.
	Images []string
	// Narration is the authoritative audio track.
	Narration string
	// Music is looped or trimmed to match the narration exactly.
	Music string
	// Captions, when present, are rendered bottom-center with the
	// narration duration divided evenly across them.
	Captions []string
	// FrameRate in frames per second; <= 0 means 1 (one second per image).
	FrameRate int
	// MusicGain scales the music under full-gain narration; <= 0 means 0.5.
	MusicGain float64
}

// DefaultMusicGain returns the mix gain policy for a content kind:
// educational content keeps music quieter under speech.
func DefaultMusicGain(contentKind string) float64 {
	if contentKind == "educational" {
		return 0.3
	}
	return 0.5
}

// MusicLoops returns how many times the music track must play so that it
// covers the narration before trimming.
func MusicLoops(narrationDur, musicDur float64) int {
	if musicDur <= 0 || musicDur >= narrationDur {
		return 1
	}
	return int(math.Ceil(narrationDur / musicDur))
}

// CaptionWindow is one caption's display interval.
type CaptionWindow struct {
	Start float64
	End   float64
}

// CaptionWindows divides total duration evenly across count captions.
func CaptionWindows(count int, total float64) []CaptionWindow {
	if count <= 0 || total <= 0 {
		return nil
	}
	segment := total / float64(count)
	windows := make([]CaptionWindow, count)
	for i := range windows {
		windows[i] = CaptionWindow{
			Start: float64(i) * segment,
			End:   float64(i+1) * segment,
		}
	}
	windows[count-1].End = total
	return windows
}

// ConcatList renders a concat demuxer list for the image sequence. The last
// frame is repeated so it holds until the output duration cap.
func ConcatList(images []string, frameRate int) string {
	if frameRate <= 0 {
		frameRate = 1
	}
	frameDur := formatSeconds(1 / float64(frameRate))
	var b strings.Builder
	for _, image := range images {
		fmt.Fprintf(&b, "file '%s'\n", escapeSingleQuotes(image))
		fmt.Fprintf(&b, "duration %s\n", frameDur)
	}
	if len(images) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", escapeSingleQuotes(images[len(images)-1]))
	}
	return b.String()
}

func assembleArgs(b Bundle, width, height int, framesPath string, narrationDur float64, loops int, gain float64, output string) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", framesPath,
		"-i", b.Narration,
	}
	if loops > 1 {
		args = append(args, "-stream_loop", strconv.Itoa(loops-1))
	}
	args = append(args,
		"-i", b.Music,
		"-filter_complex", buildFilterGraph(b, width, height, narrationDur, gain),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-t", formatSeconds(narrationDur),
		"-movflags", "+faststart",
		output,
	)
	return args
}

func buildFilterGraph(b Bundle, width, height int, narrationDur float64, gain float64) string {
	var graph strings.Builder

	fmt.Fprintf(&graph,
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		width, height, width, height,
	)
	if len(b.Captions) == 0 {
		graph.WriteString("[vout];")
	} else {
		graph.WriteString("[v0];[v0]")
		windows := CaptionWindows(len(b.Captions), narrationDur)
		for i, caption := range b.Captions {
			if i > 0 {
				graph.WriteString(",")
			}
			fmt.Fprintf(&graph,
				"drawtext=text='%s':fontcolor=white:fontsize=24:box=1:boxcolor=black@0.6:boxborderw=8:x=(w-text_w)/2:y=h-text_h-28:enable='between(t,%s,%s)'",
				escapeDrawText(caption),
				formatSeconds(windows[i].Start),
				formatSeconds(windows[i].End),
			)
		}
		graph.WriteString("[vout];")
	}

	fmt.Fprintf(&graph,
		"[2:a]atrim=0:%s,asetpts=PTS-STARTPTS,volume=%s[music];[1:a][music]amix=inputs=2:duration=first:normalize=0[aout]",
		formatSeconds(narrationDur),
		strconv.FormatFloat(gain, 'f', -1, 64),
	)
	return graph.String()
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', 3, 64)
}

// escapeDrawText collapses whitespace and escapes quoting so caption text
// survives the filtergraph's single-quoted text parameter.
func escapeDrawText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return escapeSingleQuotes(text)
}

func escapeSingleQuotes(value string) string {
	return strings.ReplaceAll(value, "'", `'\''`)
}
