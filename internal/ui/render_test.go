package ui

import (
	"strings"
	"testing"

	"gemchat/internal/chat"
)

func TestBuildTranscriptMarkdown(t *testing.T) {
	msgs := []chat.ChatMessage{
		{Role: chat.RoleUser, Content: "hello", Files: []chat.ChatFile{
			{Name: "pic.png", MimeType: "image/png", Size: 2048},
		}},
		{Role: chat.RoleAssistant, Content: "hi there", ImagePath: "/tmp/img.png"},
	}

	md := BuildTranscriptMarkdown(msgs)
	if !strings.Contains(md, "## You") || !strings.Contains(md, "## Gemini") {
		t.Fatalf("missing speaker headers: %q", md)
	}
	if !strings.Contains(md, "_attached: pic.png (image/png, 2.0KB)_") {
		t.Fatalf("missing attachment line: %q", md)
	}
	if !strings.Contains(md, "_image saved to: /tmp/img.png_") {
		t.Fatalf("missing image line: %q", md)
	}
}

func TestBuildTranscriptMarkdownStreamingCursor(t *testing.T) {
	msgs := []chat.ChatMessage{
		{Role: chat.RoleAssistant, Content: "partial rep", IsStreaming: true},
	}
	md := BuildTranscriptMarkdown(msgs)
	if !strings.Contains(md, "partial rep"+streamingCursor) {
		t.Fatalf("missing streaming cursor: %q", md)
	}
}

func TestBuildTranscriptMarkdownEmpty(t *testing.T) {
	if got := BuildTranscriptMarkdown(nil); got != emptyTranscript {
		t.Fatalf("unexpected empty transcript: %q", got)
	}
}

func TestRenderMarkdownFallsBackOnNarrowWrap(t *testing.T) {
	out := renderMarkdown("# Title\n\nsome text\n", "dark", 0)
	if out == "" {
		t.Fatal("expected non-empty render")
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512B"},
		{2048, "2.0KB"},
		{3 * 1024 * 1024, "3.0MB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.in); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
