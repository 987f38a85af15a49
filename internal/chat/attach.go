package chat

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const maxAttachmentBytes = 10 * 1024 * 1024

// LoadAttachment captures a file for sending: size check, MIME sniff, and
// inline base64 payload with a data-URI prefix. Oversized files produce a
// per-file ChatError and do not abort the rest of a batch.
func LoadAttachment(path string) (ChatFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ChatFile{}, NewChatError(ErrorFile, fmt.Sprintf("cannot read %s: %v", filepath.Base(path), err))
	}
	if info.Size() > maxAttachmentBytes {
		return ChatFile{}, NewChatError(ErrorFile, fmt.Sprintf("%s is larger than 10MB", filepath.Base(path)))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return ChatFile{}, NewChatError(ErrorFile, fmt.Sprintf("cannot read %s: %v", filepath.Base(path), err))
	}

	mimeType := detectMimeType(path, raw)
	encoded := base64.StdEncoding.EncodeToString(raw)

	return ChatFile{
		ID:       uuid.NewString(),
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MimeType: mimeType,
		Data:     "data:" + mimeType + ";base64," + encoded,
	}, nil
}

func detectMimeType(path string, raw []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(raw)
}
