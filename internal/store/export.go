package store

import (
	"encoding/json"
	"fmt"
	"os"

	"gemchat/internal/chat"
	"gemchat/internal/memory"
)

// StateDocument is the bulk import/export shape. Every field is optional on
// import and applied independently when present and well-typed.
type StateDocument struct {
	Sessions []chat.ChatSession `json:"sessions"`
	APIKey   string             `json:"apiKey"`
	Theme    string             `json:"theme"`
	Memories []memory.Item      `json:"memories"`
}

// ExportState collects all persisted keys into a single JSON document.
func (s *Store) ExportState() ([]byte, error) {
	sessions, err := s.LoadSessions()
	if err != nil {
		return nil, err
	}
	apiKey, err := s.LoadAPIKey()
	if err != nil {
		return nil, err
	}
	theme, err := s.LoadTheme()
	if err != nil {
		return nil, err
	}
	memories, err := s.LoadMemories()
	if err != nil {
		return nil, err
	}

	doc := StateDocument{
		Sessions: sessions,
		APIKey:   apiKey,
		Theme:    theme,
		Memories: memories,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state document: %w", err)
	}
	return out, nil
}

// ImportState applies a state document. The payload must be a JSON object;
// each known field is applied only if it decodes to the expected type, and
// fields are applied independently (best effort, not transactional).
func (s *Store) ImportState(doc []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return fmt.Errorf("import state: payload is not a JSON object: %w", err)
	}

	if raw, ok := fields["sessions"]; ok {
		var sessions []chat.ChatSession
		if err := json.Unmarshal(raw, &sessions); err == nil {
			if err := s.SaveSessions(sessions); err != nil {
				return err
			}
		}
	}
	if raw, ok := fields["apiKey"]; ok {
		var apiKey string
		if err := json.Unmarshal(raw, &apiKey); err == nil && apiKey != "" {
			if err := s.SaveAPIKey(apiKey); err != nil {
				return err
			}
		}
	}
	if raw, ok := fields["theme"]; ok {
		var theme string
		if err := json.Unmarshal(raw, &theme); err == nil {
			switch theme {
			case ThemeLight, ThemeDark, ThemeSystem:
				if err := s.SaveTheme(theme); err != nil {
					return err
				}
			}
		}
	}
	if raw, ok := fields["memories"]; ok {
		var items []memory.Item
		if err := json.Unmarshal(raw, &items); err == nil {
			if err := s.SaveMemories(items); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) ExportStateToFile(path string) error {
	doc, err := s.ExportState()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

func (s *Store) ImportStateFromFile(path string) error {
	doc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read state file: %w", err)
	}
	return s.ImportState(doc)
}
