package media

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	defaultSampleRate    = 44100
	defaultTempo         = 120.0
	defaultMusicDuration = 30.0
)

// SynthesisOptions controls procedural music generation.
type SynthesisOptions struct {
	// Duration in seconds; <= 0 means 30.
	Duration float64
	// SampleRate in Hz; <= 0 means 44100.
	SampleRate int
	// Tempo in beats per minute; <= 0 means 120.
	Tempo float64
	// Genre selects the synthesis voice: "electronic" plays a sixteenth-note
	// arpeggio over a kick, "ambient" layers slow detuned sines, anything
	// else is a plain 440 Hz tone.
	Genre string
}

func (o SynthesisOptions) normalized() SynthesisOptions {
	if o.Duration <= 0 {
		o.Duration = defaultMusicDuration
	}
	if o.SampleRate <= 0 {
		o.SampleRate = defaultSampleRate
	}
	if o.Tempo <= 0 {
		o.Tempo = defaultTempo
	}
	o.Genre = strings.ToLower(strings.TrimSpace(o.Genre))
	return o
}

// SynthesizeMusic renders a mono 16-bit WAV to path.
func SynthesizeMusic(path string, opts SynthesisOptions) error {
	opts = opts.normalized()
	samples := renderSamples(opts)
	data := normalizeToPCM(samples)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create music directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create music file: %w", err)
	}

	enc := wav.NewEncoder(out, opts.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: opts.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("write music samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("finalize music file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close music file: %w", err)
	}
	return nil
}

func renderSamples(opts SynthesisOptions) []float64 {
	count := int(opts.Duration * float64(opts.SampleRate))
	samples := make([]float64, count)
	rate := float64(opts.SampleRate)

	switch opts.Genre {
	case "electronic":
		bps := opts.Tempo / 60.0
		sixteenth := 1.0 / (bps * 4)
		noteDur := sixteenth / 2
		notes := int(opts.Duration * bps * 4)
		for i := 0; i < notes; i++ {
			freq := 440 * math.Pow(2, float64((i%12)+3)/12.0)
			addTone(samples, rate, float64(i)*sixteenth, noteDur, freq, 1.0)
		}
		beats := int(opts.Duration * bps)
		for b := 0; b < beats; b++ {
			addTone(samples, rate, float64(b)/bps, 0.05, 60, 0.5)
		}
	case "ambient":
		for i := range samples {
			t := float64(i) / rate
			samples[i] = (math.Sin(2*math.Pi*110*t) + math.Sin(2*math.Pi*220*1.05*t)) * 0.5
		}
	default:
		for i := range samples {
			t := float64(i) / rate
			samples[i] = math.Sin(2 * math.Pi * 440 * t)
		}
	}
	return samples
}

// addTone mixes a sine burst into samples using absolute time so note
// boundaries stay phase-continuous.
func addTone(samples []float64, rate, start, duration, freq, amplitude float64) {
	begin := int(start * rate)
	end := int((start + duration) * rate)
	if begin < 0 {
		begin = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	for i := begin; i < end; i++ {
		t := float64(i) / rate
		samples[i] += amplitude * math.Sin(2*math.Pi*freq*t)
	}
}

// normalizeToPCM scales the float signal to the int16 range. A silent
// signal stays silent instead of dividing by zero.
func normalizeToPCM(samples []float64) []int {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	data := make([]int, len(samples))
	if peak == 0 {
		return data
	}
	scale := 32767.0 / peak
	for i, s := range samples {
		data[i] = int(s * scale)
	}
	return data
}
