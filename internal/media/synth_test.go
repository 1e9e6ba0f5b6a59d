package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func decodeWav(t *testing.T, path string) ([]int, int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	return buf.Data, buf.Format.SampleRate, buf.Format.NumChannels
}

func TestSynthesizeMusicWritesWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "background_music.wav")
	err := SynthesizeMusic(path, SynthesisOptions{
		Duration:   2,
		SampleRate: 8000,
		Genre:      "electronic",
	})
	if err != nil {
		t.Fatalf("SynthesizeMusic: %v", err)
	}

	data, rate, channels := decodeWav(t, path)
	if rate != 8000 {
		t.Errorf("sample rate = %d, want 8000", rate)
	}
	if channels != 1 {
		t.Errorf("channels = %d, want mono", channels)
	}
	if len(data) != 16000 {
		t.Errorf("sample count = %d, want 16000 for 2s at 8kHz", len(data))
	}

	peak := 0
	for _, s := range data {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak < 30000 {
		t.Errorf("signal should be normalized near full scale, peak = %d", peak)
	}
}

func TestSynthesizeMusicGenreVoices(t *testing.T) {
	for _, genre := range []string{"electronic", "ambient", "jazz"} {
		t.Run(genre, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), genre+".wav")
			err := SynthesizeMusic(path, SynthesisOptions{
				Duration:   1,
				SampleRate: 8000,
				Genre:      genre,
			})
			if err != nil {
				t.Fatalf("SynthesizeMusic: %v", err)
			}
			data, _, _ := decodeWav(t, path)
			silent := true
			for _, s := range data {
				if s != 0 {
					silent = false
					break
				}
			}
			if silent {
				t.Fatal("generated track is silent")
			}
		})
	}
}

func TestSynthesisOptionsDefaults(t *testing.T) {
	opts := SynthesisOptions{Genre: "  Ambient "}.normalized()
	if opts.Duration != 30 {
		t.Errorf("default duration = %v, want 30", opts.Duration)
	}
	if opts.SampleRate != 44100 {
		t.Errorf("default sample rate = %d, want 44100", opts.SampleRate)
	}
	if opts.Tempo != 120 {
		t.Errorf("default tempo = %v, want 120", opts.Tempo)
	}
	if opts.Genre != "ambient" {
		t.Errorf("genre not normalized: %q", opts.Genre)
	}
}

func TestNormalizeToPCMSilentSignal(t *testing.T) {
	data := normalizeToPCM(make([]float64, 64))
	for i, s := range data {
		if s != 0 {
			t.Fatalf("silent input produced sample %d at index %d", s, i)
		}
	}
}
