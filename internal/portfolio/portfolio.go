package portfolio

import (
	"errors"
	"fmt"
)

type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

var (
	ErrNotFound      = errors.New("portfolio not found")
	ErrVideoNotFirst = errors.New("video descriptor must be the first media entry")
)

// MediaDescriptor is one resolved asset of a portfolio item. Descriptors are
// immutable once loaded; their order is the catalog's insertion order and
// determines both lightbox traversal and archive entry order.
type MediaDescriptor struct {
	Kind              MediaKind `json:"kind"`
	SourceURL         string    `json:"sourceUrl"`
	SuggestedFilename string    `json:"suggestedFilename"`
}

// Item is a titled, shareable collection of media, optionally PIN-locked.
// The PIN hash never leaves the server.
type Item struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Slug      string            `json:"slug"`
	PinHash   string            `json:"-"`
	Media     []MediaDescriptor `json:"media"`
	CreatedAt int64             `json:"createdAt"`
}

func (i *Item) PinRequired() bool {
	return i.PinHash != ""
}

// Validate checks the catalog invariants: every descriptor is complete, and a
// video entry, when present, is the hero asset at index 0.
func (i *Item) Validate() error {
	if i.Title == "" {
		return fmt.Errorf("title is required")
	}
	if i.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	for idx, d := range i.Media {
		if d.SourceURL == "" {
			return fmt.Errorf("media %d: source URL is required", idx)
		}
		if d.SuggestedFilename == "" {
			return fmt.Errorf("media %d: suggested filename is required", idx)
		}
		switch d.Kind {
		case KindImage:
		case KindVideo:
			if idx != 0 {
				return ErrVideoNotFirst
			}
		default:
			return fmt.Errorf("media %d: unknown kind %q", idx, d.Kind)
		}
	}
	return nil
}
