package config

import (
	"path/filepath"
	"testing"
)

func TestDetectDataDir_ExplicitWins(t *testing.T) {
	t.Setenv("GEMCHAT_DATA_DIR", "/tmp/from-env")

	got, err := DetectDataDir("/tmp/explicit")
	if err != nil {
		t.Fatalf("detect data dir: %v", err)
	}
	if got != "/tmp/explicit" {
		t.Fatalf("expected explicit dir to win, got %q", got)
	}
}

func TestDetectDataDir_EnvFallback(t *testing.T) {
	t.Setenv("GEMCHAT_DATA_DIR", "/tmp/from-env")

	got, err := DetectDataDir("")
	if err != nil {
		t.Fatalf("detect data dir: %v", err)
	}
	if got != "/tmp/from-env" {
		t.Fatalf("expected env dir, got %q", got)
	}
}

func TestDetectDataDir_HomeDefault(t *testing.T) {
	t.Setenv("GEMCHAT_DATA_DIR", "")

	got, err := DetectDataDir("")
	if err != nil {
		t.Fatalf("detect data dir: %v", err)
	}
	if filepath.Base(got) != "gemchat" {
		t.Fatalf("expected default dir ending in gemchat, got %q", got)
	}
}
