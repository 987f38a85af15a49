package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"gemchat/internal/chat"
	"gemchat/internal/config"
	"gemchat/internal/gemini"
	"gemchat/internal/memory"
	"gemchat/internal/store"
	"gemchat/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gemchat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	if cfg.Model != config.DefaultModel && !gemini.IsKnownModel(cfg.Model) {
		return fmt.Errorf("unknown model %q", cfg.Model)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	// One-shot maintenance modes run against the store and exit.
	switch {
	case cfg.Reset:
		if err := st.Reset(); err != nil {
			return err
		}
		fmt.Println("All persisted state removed.")
		return nil
	case cfg.ExportState != "":
		if err := st.ExportStateToFile(cfg.ExportState); err != nil {
			return err
		}
		fmt.Printf("State exported to %s\n", cfg.ExportState)
		return nil
	case cfg.ImportState != "":
		if err := st.ImportStateFromFile(cfg.ImportState); err != nil {
			return err
		}
		fmt.Printf("State imported from %s\n", cfg.ImportState)
		return nil
	}

	apiKey, err := st.LoadAPIKey()
	if err != nil {
		return err
	}
	if cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}
	theme, err := st.LoadTheme()
	if err != nil {
		return err
	}

	sessions := chat.NewSessionStore(st)
	memories := memory.NewTracker(st)
	images := chat.NewImageRegistry(config.ImagesDir(cfg.DataDir))

	var gen chat.Generator
	if apiKey != "" {
		gen = gemini.NewClient(apiKey)
	}
	orch := chat.NewOrchestrator(sessions, memories, images, gen, cfg.Model)
	if err := orch.Restore(); err != nil {
		return err
	}
	if err := memories.Load(); err != nil {
		return err
	}

	model := ui.NewModel(cfg, st, orch, theme, apiKey != "")
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
