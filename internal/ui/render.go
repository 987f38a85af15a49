package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"gemchat/internal/chat"
	"gemchat/internal/store"
)

const streamingCursor = "▌"

// BuildTranscriptMarkdown lays out a session's messages as a markdown
// document for the transcript pane.
func BuildTranscriptMarkdown(messages []chat.ChatMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString("## You\n\n")
		case chat.RoleAssistant:
			b.WriteString("## Gemini\n\n")
		default:
			continue
		}

		content := strings.TrimSpace(msg.Content)
		if msg.IsStreaming {
			content = msg.Content + streamingCursor
		}
		if content != "" {
			b.WriteString(content + "\n\n")
		}

		for _, file := range msg.Files {
			b.WriteString(fmt.Sprintf("_attached: %s (%s, %s)_\n\n", file.Name, file.MimeType, formatSize(file.Size)))
		}
		if msg.ImagePath != "" {
			b.WriteString("_image saved to: " + msg.ImagePath + "_\n\n")
		}
	}
	if b.Len() == 0 {
		return emptyTranscript
	}
	return strings.TrimSpace(b.String()) + "\n"
}

const emptyTranscript = "_No messages yet. Type below to start the conversation; `/attach <path>` adds a file._\n"

// renderMarkdown runs glamour over the transcript. Failures fall back to
// the raw markdown so the transcript is never blank.
func renderMarkdown(md, theme string, wrap int) string {
	if wrap < 20 {
		wrap = 20
	}

	style := glamourStyleOption(theme)
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func glamourStyleOption(theme string) glamour.TermRendererOption {
	switch theme {
	case store.ThemeLight:
		return glamour.WithStandardStyle("light")
	case store.ThemeDark:
		return glamour.WithStandardStyle("dark")
	default:
		return glamour.WithAutoStyle()
	}
}

func formatSize(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
