package chat

import (
	"strings"
	"testing"
)

func TestDefaultImageIntent(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Generate image of a cat", true},
		{"can you DRAW me a map", true},
		{"please illustrate the water cycle", true},
		{"show me the difference between slices and arrays", true},
		{"what is the capital of France", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := DefaultImageIntent(tc.in); got != tc.want {
			t.Errorf("DefaultImageIntent(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDefaultMemoryExtractorPreference(t *testing.T) {
	got := DefaultMemoryExtractor("my name is Ada", "Nice to meet you, Ada!")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.Content != "User mentioned: my name is Ada" {
		t.Fatalf("unexpected content: %q", c.Content)
	}
	if c.Type != "preference" || c.Importance != 7 {
		t.Fatalf("unexpected classification: %s/%d", c.Type, c.Importance)
	}
}

func TestDefaultMemoryExtractorContextFromLongReply(t *testing.T) {
	long := strings.Repeat("a", 250)
	got := DefaultMemoryExtractor("tell me everything", long)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	c := got[0]
	if c.Type != "context" || c.Importance != 5 {
		t.Fatalf("unexpected classification: %s/%d", c.Type, c.Importance)
	}
	want := "Context: " + strings.Repeat("a", 150) + "..."
	if c.Content != want {
		t.Fatalf("content = %q, want %q", c.Content, want)
	}
}

func TestDefaultMemoryExtractorContextKeywords(t *testing.T) {
	got := DefaultMemoryExtractor("ok", "Remember to water the plants.")
	if len(got) != 1 || got[0].Type != "context" {
		t.Fatalf("expected a context candidate, got %#v", got)
	}
	// Short replies keep their full text.
	if got[0].Content != "Context: Remember to water the plants...." {
		t.Fatalf("unexpected content: %q", got[0].Content)
	}
}

func TestDefaultMemoryExtractorBothAtOnce(t *testing.T) {
	got := DefaultMemoryExtractor("remember that I like tea", "Noted, that is important.")
	if len(got) != 2 {
		t.Fatalf("expected preference and context, got %d", len(got))
	}
	if got[0].Type != "preference" || got[1].Type != "context" {
		t.Fatalf("unexpected order: %s, %s", got[0].Type, got[1].Type)
	}
}

func TestDefaultMemoryExtractorEmptyReply(t *testing.T) {
	if got := DefaultMemoryExtractor("my name is Ada", ""); got != nil {
		t.Fatalf("expected nothing from an empty reply, got %#v", got)
	}
}
