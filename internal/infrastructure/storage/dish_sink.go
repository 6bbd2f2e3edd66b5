package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"menulens-server/internal/domain/dish"
)

// DishImageSink persists inline generation payloads through a Backend and
// swaps them for a URL. Provider responses that already carry a URL pass
// through unchanged.
type DishImageSink struct {
	backend Backend
	log     zerolog.Logger
}

// NewDishImageSink creates the sink.
func NewDishImageSink(backend Backend, log zerolog.Logger) *DishImageSink {
	return &DishImageSink{
		backend: backend,
		log:     log.With().Str("component", "dish-image-sink").Logger(),
	}
}

// Persist implements dish.ImageSink.
func (s *DishImageSink) Persist(ctx context.Context, dishID string, ref dish.ImageRef) (dish.ImageRef, error) {
	if ref.B64JSON == "" {
		return ref, nil
	}

	data, err := base64.StdEncoding.DecodeString(ref.B64JSON)
	if err != nil {
		return ref, fmt.Errorf("decode image payload: %w", err)
	}

	mime := ref.MimeType
	if mime == "" {
		mime = "image/png"
	}
	key := fmt.Sprintf("dishes/%s%s", dishID, extForMIME(mime))

	if err := s.backend.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mime); err != nil {
		return ref, fmt.Errorf("upload generated image: %w", err)
	}

	url, err := s.backend.URL(ctx, key)
	if err != nil {
		// Stored but not addressable; serve through the image proxy route.
		s.log.Debug().Err(err).Str("key", key).Msg("no direct URL for stored image")
		return dish.ImageRef{URL: "", B64JSON: ref.B64JSON, MimeType: mime}, nil
	}

	return dish.ImageRef{URL: url, MimeType: mime}, nil
}

func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
