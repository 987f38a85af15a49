package chat

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte("hello attachment"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	file, err := LoadAttachment(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Name != "note.txt" {
		t.Fatalf("name = %q", file.Name)
	}
	if file.Size != int64(len("hello attachment")) {
		t.Fatalf("size = %d", file.Size)
	}
	if !strings.HasPrefix(file.MimeType, "text/plain") {
		t.Fatalf("mime = %q", file.MimeType)
	}
	want := "base64," + base64.StdEncoding.EncodeToString([]byte("hello attachment"))
	if !strings.HasSuffix(file.Data, want) || !strings.HasPrefix(file.Data, "data:") {
		t.Fatalf("data uri malformed: %q", file.Data)
	}
}

func TestLoadAttachmentTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0}, maxAttachmentBytes+1), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadAttachment(path)
	var chatErr *ChatError
	if !errors.As(err, &chatErr) || chatErr.Type != ErrorFile {
		t.Fatalf("expected file error, got %v", err)
	}
	if !strings.Contains(chatErr.Message, "larger than 10MB") {
		t.Fatalf("unexpected message: %q", chatErr.Message)
	}
}

func TestLoadAttachmentMissingFile(t *testing.T) {
	_, err := LoadAttachment(filepath.Join(t.TempDir(), "nope.txt"))
	var chatErr *ChatError
	if !errors.As(err, &chatErr) || chatErr.Type != ErrorFile {
		t.Fatalf("expected file error, got %v", err)
	}
}
