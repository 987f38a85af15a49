package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultModel = "gemini-2.0-flash"

type AppConfig struct {
	DataDir     string
	DBPath      string
	Model       string
	APIKey      string
	ExportState string
	ImportState string
	Reset       bool
}

func Parse() (AppConfig, error) {
	var cfg AppConfig

	flag.StringVar(&cfg.DataDir, "data-dir", "", "path to the gemchat data directory")
	flag.StringVar(&cfg.Model, "model", DefaultModel, "model to chat with")
	flag.StringVar(&cfg.ExportState, "export-state", "", "write all persisted state to a JSON file and exit")
	flag.StringVar(&cfg.ImportState, "import-state", "", "load persisted state from a JSON file and exit")
	flag.BoolVar(&cfg.Reset, "reset", false, "delete all persisted state before starting")
	flag.Parse()

	dataDir, err := DetectDataDir(cfg.DataDir)
	if err != nil {
		return cfg, err
	}
	cfg.DataDir = dataDir
	cfg.DBPath = filepath.Join(dataDir, "state.sqlite")
	cfg.APIKey = os.Getenv("GEMINI_API_KEY")

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create data dir: %w", err)
	}

	return cfg, nil
}

func DetectDataDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("GEMCHAT_DATA_DIR"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "gemchat"), nil
}

// ImagesDir is where decoded generated images land.
func ImagesDir(dataDir string) string {
	return filepath.Join(dataDir, "images")
}
