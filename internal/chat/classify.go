package chat

import "strings"

// ImageIntentClassifier decides whether a user turn should route to the
// image-capable model. The default is a fixed keyword list; it is a field on
// the orchestrator so it can be swapped or tested in isolation.
type ImageIntentClassifier func(message string) bool

var imageKeywords = []string{
	"generate image", "create image", "draw", "make a picture",
	"create a picture", "generate a photo", "create artwork",
	"paint", "sketch", "illustrate", "visualize", "show me",
	"can you draw", "make an image", "create visual", "generate an image",
}

func DefaultImageIntent(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range imageKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MemoryCandidate is a memory the extractor proposes from a finished turn.
type MemoryCandidate struct {
	Content    string
	Type       string
	Importance int
	Tags       []string
}

// MemoryExtractor proposes memories from a completed user/assistant
// exchange. Best effort; it runs after the reply is finalized.
type MemoryExtractor func(userText, assistantText string) []MemoryCandidate

var preferencePhrases = []string{
	"my name is", "i am", "i like", "i prefer", "remember", "important",
}

const (
	contextLengthThreshold = 200
	contextTruncateAt      = 150
)

func DefaultMemoryExtractor(userText, assistantText string) []MemoryCandidate {
	if assistantText == "" {
		return nil
	}
	var out []MemoryCandidate

	userLower := strings.ToLower(userText)
	for _, phrase := range preferencePhrases {
		if strings.Contains(userLower, phrase) {
			out = append(out, MemoryCandidate{
				Content:    "User mentioned: " + userText,
				Type:       "preference",
				Importance: 7,
				Tags:       []string{"user-info", "preference"},
			})
			break
		}
	}

	assistantLower := strings.ToLower(assistantText)
	if strings.Contains(assistantLower, "remember") ||
		strings.Contains(assistantLower, "important") ||
		len(assistantText) > contextLengthThreshold {
		out = append(out, MemoryCandidate{
			Content:    "Context: " + truncateRunes(assistantText, contextTruncateAt) + "...",
			Type:       "context",
			Importance: 5,
			Tags:       []string{"conversation", "context"},
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
