package domain

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MediaKind string

const (
	Photo    MediaKind = "photo"
	Video    MediaKind = "video"
	Document MediaKind = "document"
)

// Media is an immutable attachment. Handle is opaque to the router, it usually
// points to a blob held by an external store.
type Media struct {
	Kind   MediaKind `validate:"required,oneof=photo video document"`
	Sender UserID    `validate:"required"`
	Handle string    `validate:"required"`
}

func NewMedia(kind MediaKind, sender UserID, handle string) Media {
	return Media{Kind: kind, Sender: sender, Handle: handle}
}

// NewMediaFromContent builds a media whose kind is sniffed from its payload.
// Only the handle travels with the media, the payload is not kept.
func NewMediaFromContent(sender UserID, handle string, content []byte) Media {
	return NewMedia(ClassifyMedia(content), sender, handle)
}

// ClassifyMedia derives the kind of payload from its content.
// Images are photos, videos are videos, everything else is a document.
func ClassifyMedia(content []byte) MediaKind {
	mt := mimetype.Detect(content)
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return Photo
		case strings.HasPrefix(m.String(), "video/"):
			return Video
		}
	}
	return Document
}

func (m Media) String() string {
	return fmt.Sprintf("Media{kind=%s, sentBy=%s, handle=%s}", m.Kind, m.Sender, m.Handle)
}
