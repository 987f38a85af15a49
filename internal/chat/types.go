package chat

import (
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation. While an assistant reply is
// still streaming, Content holds the accumulated prefix and IsStreaming is
// set; a persisted message never has IsStreaming set.
type ChatMessage struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	Role        string      `json:"role"`
	Timestamp   time.Time   `json:"timestamp"`
	Files       []ChatFile  `json:"files,omitempty"`
	IsStreaming bool        `json:"isStreaming,omitempty"`
	ImagePath   string      `json:"imagePath,omitempty"`
}

// ChatFile is an attachment captured at selection time. Data carries the
// base64 payload, optionally with a data-URI prefix.
type ChatFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type ChatSession struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

const (
	ErrorAPI        = "api"
	ErrorNetwork    = "network"
	ErrorValidation = "validation"
	ErrorFile       = "file"
)

// ChatError is a transient, user-visible failure. It is cleared on the next
// successful action.
type ChatError struct {
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *ChatError) Error() string {
	return e.Message
}

func NewChatError(kind, message string) *ChatError {
	return &ChatError{Message: message, Type: kind, Timestamp: time.Now()}
}

const (
	defaultTitle  = "New Chat"
	titleMaxRunes = 30
)

// DeriveTitle computes a session title from its first message.
func DeriveTitle(messages []ChatMessage) string {
	if len(messages) == 0 {
		return defaultTitle
	}
	first := strings.TrimSpace(messages[0].Content)
	if first == "" {
		return defaultTitle
	}
	runes := []rune(first)
	if len(runes) <= titleMaxRunes {
		return first
	}
	return string(runes[:titleMaxRunes]) + "..."
}
