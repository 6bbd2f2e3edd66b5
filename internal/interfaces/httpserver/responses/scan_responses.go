package responses

import (
	"menulens-server/internal/domain/dish"
)

// DishResponse represents one dish card.
type DishResponse struct {
	ID                 string `json:"id"`
	OriginalName       string `json:"original_name"`
	EnglishTranslation string `json:"english_translation"`
	Description        string `json:"description"`
	Price              string `json:"price,omitempty"`
	Category           string `json:"category,omitempty"`
	GenerationState    string `json:"generation_state"`
	ImageURL           string `json:"image_url,omitempty"`
}

// BuildDishResponse creates a response from the domain object. Inline image
// payloads are exposed through the image proxy route rather than embedded in
// every collection response.
func BuildDishResponse(d dish.Dish) DishResponse {
	resp := DishResponse{
		ID:                 d.ID,
		OriginalName:       d.OriginalName,
		EnglishTranslation: d.EnglishTranslation,
		Description:        d.Description,
		Price:              d.Price,
		Category:           d.Category,
		GenerationState:    string(d.GenerationState),
	}
	if d.ImageRef != nil {
		if d.ImageRef.URL != "" {
			resp.ImageURL = d.ImageRef.URL
		} else if d.ImageRef.B64JSON != "" {
			resp.ImageURL = "/v1/dishes/" + d.ID + "/image"
		}
	}
	return resp
}

// BuildDishResponses maps a collection preserving order.
func BuildDishResponses(dishes []dish.Dish) []DishResponse {
	out := make([]DishResponse, 0, len(dishes))
	for _, d := range dishes {
		out = append(out, BuildDishResponse(d))
	}
	return out
}

// ScanResponse represents the current scan session.
type ScanResponse struct {
	ScanID    string         `json:"scan_id"`
	Analyzing bool           `json:"analyzing"`
	Dishes    []DishResponse `json:"dishes"`
}

// BuildScanResponse creates the scan session response.
func BuildScanResponse(scanID string, analyzing bool, dishes []dish.Dish) *ScanResponse {
	return &ScanResponse{
		ScanID:    scanID,
		Analyzing: analyzing,
		Dishes:    BuildDishResponses(dishes),
	}
}
