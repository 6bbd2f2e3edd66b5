package dish

import "errors"

// GenerationState tracks the image-generation lifecycle of a dish.
type GenerationState string

const (
	StateNotRequested GenerationState = "not_requested"
	StatePending      GenerationState = "pending"
	StateSucceeded    GenerationState = "succeeded"
	StateFailed       GenerationState = "failed"
)

var (
	// ErrDishNotFound is returned for ids not present in the current collection,
	// including late results for dishes dropped by a newer scan.
	ErrDishNotFound = errors.New("dish not found")

	// ErrInvalidTransition is returned when an event is not legal from the
	// dish's current state. Callers treat it as a no-op, never as fatal.
	ErrInvalidTransition = errors.New("invalid generation state transition")
)

// ImageRef is an opaque locator for a generated dish photo, either a URL or
// an inline base64 payload.
type ImageRef struct {
	URL      string `json:"url,omitempty"`
	B64JSON  string `json:"b64_json,omitempty"`
	MimeType string `json:"mime,omitempty"`
}

// IsZero reports whether the reference carries no usable image.
func (r ImageRef) IsZero() bool {
	return r.URL == "" && r.B64JSON == ""
}

// Dish is one parsed menu item together with its generation lifecycle.
type Dish struct {
	ID                 string          `json:"id"`
	OriginalName       string          `json:"original_name"`
	EnglishTranslation string          `json:"english_translation"`
	Description        string          `json:"description"`
	Price              string          `json:"price,omitempty"`
	Category           string          `json:"category,omitempty"`
	ImageRef           *ImageRef       `json:"image_ref,omitempty"`
	GenerationState    GenerationState `json:"generation_state"`
}

// RawDishRecord is one record as returned by menu analysis, before ids and
// lifecycle state are attached.
type RawDishRecord struct {
	OriginalName             string `json:"original_name"`
	EnglishTranslation       string `json:"english_translation"`
	IngredientsOrDescription string `json:"ingredients_or_description"`
	Price                    string `json:"price,omitempty"`
	Category                 string `json:"category,omitempty"`
}

// EventKind identifies a generation-state transition.
type EventKind string

const (
	EventVisible   EventKind = "visible"
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventRetry     EventKind = "retry"
)

// Event is a single state-machine input. Ref is required for EventSucceeded
// and ignored otherwise.
type Event struct {
	Kind EventKind
	Ref  *ImageRef
}

// Visible builds the became-visible event.
func Visible() Event { return Event{Kind: EventVisible} }

// Succeeded builds the generation-success event carrying the image reference.
func Succeeded(ref ImageRef) Event { return Event{Kind: EventSucceeded, Ref: &ref} }

// Failed builds the generation-failure event.
func Failed() Event { return Event{Kind: EventFailed} }

// Retry builds the explicit user-retry event.
func Retry() Event { return Event{Kind: EventRetry} }
