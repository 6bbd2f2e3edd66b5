package requests

import (
	"encoding/base64"
	"errors"
	"strings"

	"menulens-server/internal/domain/visibility"
)

// AnalyzeRequest carries the captured menu photo as a data URL. File
// uploads use the multipart form path instead.
type AnalyzeRequest struct {
	Image Source `json:"image" binding:"required"`
}

// Source describes the menu image source
type Source struct {
	Type    string `json:"type" binding:"required"`
	DataURL string `json:"data_url"`
}

// Bytes decodes the image payload.
func (s *Source) Bytes() ([]byte, error) {
	switch strings.ToLower(s.Type) {
	case "data_url", "dataurl":
		return decodeDataURL(s.DataURL)
	default:
		return nil, errors.New("unknown source type " + s.Type)
	}
}

func decodeDataURL(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("data_url is required")
	}
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid data url")
	}
	if !strings.Contains(parts[0], ";base64") {
		return nil, errors.New("data url must be base64 encoded")
	}
	return base64.StdEncoding.DecodeString(parts[1])
}

// ViewportReport is one geometry report from the browser: where the
// viewport is and where each dish card sits.
type ViewportReport struct {
	Viewport visibility.Rect            `json:"viewport"`
	Cards    []visibility.CardPlacement `json:"cards" binding:"required"`
}
