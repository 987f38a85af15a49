package chat

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ImageRegistry tracks generated-image files by owning message, so the
// bytes on disk can be released when the message or its session goes away.
type ImageRegistry struct {
	mu        sync.Mutex
	dir       string
	byMessage map[string]string
}

func NewImageRegistry(dir string) *ImageRegistry {
	return &ImageRegistry{dir: dir, byMessage: make(map[string]string)}
}

// Save writes decoded image bytes for the given message and returns the
// file path. A second image for the same message replaces the first.
func (r *ImageRegistry) Save(messageID, mimeType string, data []byte) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}
	path := filepath.Join(r.dir, messageID+extensionFor(mimeType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byMessage[messageID]; ok && prev != path {
		_ = os.Remove(prev)
	}
	r.byMessage[messageID] = path
	return path, nil
}

// Release deletes the image owned by the given message, if any.
func (r *ImageRegistry) Release(messageID string) {
	r.mu.Lock()
	path, ok := r.byMessage[messageID]
	delete(r.byMessage, messageID)
	r.mu.Unlock()

	if ok {
		_ = os.Remove(path)
	}
}

// ReleaseSession releases every image owned by the session's messages.
func (r *ImageRegistry) ReleaseSession(session ChatSession) {
	for _, msg := range session.Messages {
		r.Release(msg.ID)
	}
}

// ReleaseAll drops every tracked image.
func (r *ImageRegistry) ReleaseAll() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.byMessage))
	for _, path := range r.byMessage {
		paths = append(paths, path)
	}
	r.byMessage = make(map[string]string)
	r.mu.Unlock()

	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// Track registers an already-written image file, used when restoring
// persisted sessions so their images remain releasable.
func (r *ImageRegistry) Track(messageID, path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	r.byMessage[messageID] = path
	r.mu.Unlock()
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".img"
	}
}
