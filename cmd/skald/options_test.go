package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildOptionsJSONFromSets(t *testing.T) {
	raw, err := buildOptionsJSON("", []string{"genre=ambient", "duration=90", "tempo=108.5", "loop=true"})
	if err != nil {
		t.Fatalf("buildOptionsJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal options: %v", err)
	}
	if decoded["genre"] != "ambient" {
		t.Fatalf("expected genre string, got %v", decoded["genre"])
	}
	if decoded["duration"] != float64(90) {
		t.Fatalf("expected duration 90, got %v", decoded["duration"])
	}
	if decoded["tempo"] != 108.5 {
		t.Fatalf("expected tempo 108.5, got %v", decoded["tempo"])
	}
	if decoded["loop"] != true {
		t.Fatalf("expected loop true, got %v", decoded["loop"])
	}
}

func TestBuildOptionsJSONFileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	content := "num_chapters: 5\nwriting_style: noir\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write options file: %v", err)
	}

	raw, err := buildOptionsJSON(path, []string{"num_chapters=7"})
	if err != nil {
		t.Fatalf("buildOptionsJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal options: %v", err)
	}
	if decoded["num_chapters"] != float64(7) {
		t.Fatalf("expected --set to override the file value, got %v", decoded["num_chapters"])
	}
	if decoded["writing_style"] != "noir" {
		t.Fatalf("expected file value to survive, got %v", decoded["writing_style"])
	}
}

func TestBuildOptionsJSONEmpty(t *testing.T) {
	raw, err := buildOptionsJSON("", nil)
	if err != nil {
		t.Fatalf("buildOptionsJSON: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil options, got %s", raw)
	}
}

func TestBuildOptionsJSONRejectsMalformedSet(t *testing.T) {
	if _, err := buildOptionsJSON("", []string{"no-equals-sign"}); err == nil {
		t.Fatal("expected malformed --set to fail")
	}
}
