package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rentnest/nestchat/internal/types"
)

// MaxAttachmentSize bounds files embedded in a create-message request.
const MaxAttachmentSize = 25 << 20

// ErrAttachmentTooLarge is returned for files above MaxAttachmentSize.
var ErrAttachmentTooLarge = errors.New("attachment too large")

// Attachment is a file prepared for sending.
type Attachment struct {
	Type     types.MessageType
	Data     string // base64
	Metadata types.FileMetadata
}

// NewAttachment reads path and prepares it for a create-message request.
// An empty kind infers the message type from the sniffed MIME type.
func NewAttachment(path string, kind types.MessageType) (*Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment: %s is a directory", path)
	}
	if info.Size() > MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrAttachmentTooLarge, filepath.Base(path), info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}

	mime := mimetype.Detect(data).String()
	if kind == "" || kind == types.MessageTypeText {
		kind = TypeForMIME(mime)
	}
	return &Attachment{
		Type: kind,
		Data: base64.StdEncoding.EncodeToString(data),
		Metadata: types.FileMetadata{
			Name:     filepath.Base(path),
			Size:     int64(len(data)),
			MimeType: mime,
		},
	}, nil
}

// TypeForMIME maps a MIME type to the message type that renders it.
func TypeForMIME(mime string) types.MessageType {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch {
	case strings.HasPrefix(base, "image/"):
		return types.MessageTypeImage
	case strings.HasPrefix(base, "video/"):
		return types.MessageTypeVideo
	case strings.HasPrefix(base, "audio/"):
		return types.MessageTypeAudio
	}
	return types.MessageTypeFile
}

// Apply copies the attachment into a send request.
func (a *Attachment) Apply(req *SendRequest) {
	req.Type = a.Type
	req.FileData = a.Data
	meta := a.Metadata
	req.FileMetadata = &meta
	if req.Content == "" {
		req.Content = a.Metadata.Name
	}
}
