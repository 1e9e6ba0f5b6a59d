package media

import (
	"strings"
	"testing"
)

func TestDefaultMusicGain(t *testing.T) {
	tests := []struct {
		kind string
		want float64
	}{
		{"educational", 0.3},
		{"story", 0.5},
		{"podcast", 0.5},
		{"", 0.5},
	}
	for _, tc := range tests {
		if got := DefaultMusicGain(tc.kind); got != tc.want {
			t.Errorf("DefaultMusicGain(%q) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestMusicLoops(t *testing.T) {
	tests := []struct {
		name      string
		narration float64
		music     float64
		want      int
	}{
		{"music shorter", 30, 10, 3},
		{"uneven remainder rounds up", 30, 9.9, 4},
		{"equal lengths", 30, 30, 1},
		{"music longer", 10, 30, 1},
		{"zero music duration", 30, 0, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MusicLoops(tc.narration, tc.music); got != tc.want {
				t.Fatalf("MusicLoops(%v, %v) = %d, want %d", tc.narration, tc.music, got, tc.want)
			}
		})
	}
}

func TestCaptionWindows(t *testing.T) {
	windows := CaptionWindows(4, 20)
	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	for i, w := range windows {
		wantStart := float64(i) * 5
		if w.Start != wantStart {
			t.Errorf("window %d start = %v, want %v", i, w.Start, wantStart)
		}
	}
	if windows[3].End != 20 {
		t.Errorf("final window should end at total duration, got %v", windows[3].End)
	}

	if got := CaptionWindows(0, 20); got != nil {
		t.Errorf("expected nil windows for zero captions, got %v", got)
	}
	if got := CaptionWindows(3, 0); got != nil {
		t.Errorf("expected nil windows for zero duration, got %v", got)
	}
}

func TestConcatListRepeatsFinalFrame(t *testing.T) {
	list := ConcatList([]string{"/tmp/main.png", "/tmp/scene_1.png"}, 1)
	want := "file '/tmp/main.png'\nduration 1.000\nfile '/tmp/scene_1.png'\nduration 1.000\nfile '/tmp/scene_1.png'\n"
	if list != want {
		t.Fatalf("unexpected concat list:\n%s\nwant:\n%s", list, want)
	}
}

func TestConcatListEscapesQuotes(t *testing.T) {
	list := ConcatList([]string{"/tmp/it's.png"}, 2)
	if !strings.Contains(list, `file '/tmp/it'\''s.png'`) {
		t.Fatalf("quote not escaped:\n%s", list)
	}
	if !strings.Contains(list, "duration 0.500") {
		t.Fatalf("expected half-second frames at 2 fps:\n%s", list)
	}
}

func TestAssembleArgsLoopsMusic(t *testing.T) {
	bundle := Bundle{
		Images:    []string{"a.png"},
		Narration: "voice.mp3",
		Music:     "music.wav",
	}
	args := assembleArgs(bundle, 1280, 720, "frames.txt", 12, 3, 0.5, "out.mp4")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-stream_loop 2 -i music.wav") {
		t.Errorf("expected music looped twice more, args: %s", joined)
	}
	if !strings.Contains(joined, "-f concat -safe 0 -i frames.txt") {
		t.Errorf("expected concat frame input, args: %s", joined)
	}
	if !strings.Contains(joined, "-t 12.000") {
		t.Errorf("expected duration capped to narration, args: %s", joined)
	}
	if !strings.Contains(joined, "-pix_fmt yuv420p") || !strings.Contains(joined, "-movflags +faststart") {
		t.Errorf("missing playback flags, args: %s", joined)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output must be the final argument, got %q", args[len(args)-1])
	}
}

func TestAssembleArgsSinglePlaythrough(t *testing.T) {
	bundle := Bundle{
		Images:    []string{"a.png"},
		Narration: "voice.mp3",
		Music:     "music.wav",
	}
	args := assembleArgs(bundle, 1280, 720, "frames.txt", 10, 1, 0.3, "out.mp4")
	if strings.Contains(strings.Join(args, " "), "-stream_loop") {
		t.Fatalf("single playthrough must not loop: %v", args)
	}
}

func TestBuildFilterGraphMixesMusicUnderNarration(t *testing.T) {
	bundle := Bundle{
		Images:    []string{"a.png"},
		Narration: "voice.mp3",
		Music:     "music.wav",
	}
	graph := buildFilterGraph(bundle, 1280, 720, 42.5, 0.3)

	if !strings.Contains(graph, "[2:a]atrim=0:42.500,asetpts=PTS-STARTPTS,volume=0.3[music]") {
		t.Errorf("music not trimmed and attenuated: %s", graph)
	}
	if !strings.Contains(graph, "[1:a][music]amix=inputs=2:duration=first:normalize=0[aout]") {
		t.Errorf("narration must mix at full gain: %s", graph)
	}
	if !strings.Contains(graph, "scale=1280:720:force_original_aspect_ratio=decrease") {
		t.Errorf("missing scale stage: %s", graph)
	}
	if strings.Contains(graph, "drawtext") {
		t.Errorf("no captions requested but drawtext present: %s", graph)
	}
}

func TestBuildFilterGraphCaptions(t *testing.T) {
	bundle := Bundle{
		Images:    []string{"a.png"},
		Narration: "voice.mp3",
		Music:     "music.wav",
		Captions:  []string{"First line", "Second line"},
	}
	graph := buildFilterGraph(bundle, 1080, 1920, 10, 0.5)

	if got := strings.Count(graph, "drawtext="); got != 2 {
		t.Fatalf("expected 2 drawtext filters, got %d: %s", got, graph)
	}
	if !strings.Contains(graph, "enable='between(t,0.000,5.000)'") {
		t.Errorf("first caption window wrong: %s", graph)
	}
	if !strings.Contains(graph, "enable='between(t,5.000,10.000)'") {
		t.Errorf("second caption window wrong: %s", graph)
	}
	if !strings.Contains(graph, "x=(w-text_w)/2:y=h-text_h-28") {
		t.Errorf("captions must sit bottom-center: %s", graph)
	}
}

func TestEscapeDrawText(t *testing.T) {
	got := escapeDrawText("It's a\n  test")
	want := `It'\''s a test`
	if got != want {
		t.Fatalf("escapeDrawText = %q, want %q", got, want)
	}
}
