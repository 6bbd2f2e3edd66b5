// Package visibility implements the viewport-driven event source for lazy
// image generation. A trigger watches dish cards and fires a one-shot
// became-visible notification the first time a card enters (or nears, via a
// configurable margin) the reported viewport, then stops observing the card.
package visibility

import (
	"sync"

	"github.com/rs/zerolog"
)

// Rect is an axis-aligned rectangle in viewport pixel coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) right() float64  { return r.Left + r.Width }
func (r Rect) bottom() float64 { return r.Top + r.Height }

func (r Rect) area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// expand grows the rectangle by margin on every side.
func (r Rect) expand(margin float64) Rect {
	return Rect{
		Left:   r.Left - margin,
		Top:    r.Top - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

func intersection(a, b Rect) Rect {
	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.right(), b.right())
	bottom := min(a.bottom(), b.bottom())
	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// CardPlacement is the reported on-screen position of one dish card.
type CardPlacement struct {
	ID     string `json:"id" binding:"required"`
	Bounds Rect   `json:"bounds"`
}

// Config tunes when a card counts as visible.
type Config struct {
	// ProximityMargin extends the viewport by this many pixels on every
	// side, so generation starts shortly before the card scrolls in.
	ProximityMargin float64
	// VisibleFraction is the minimum visible-area ratio of the card, in
	// (0, 1], required to fire.
	VisibleFraction float64
}

// Callback receives the id of a card that became visible.
type Callback func(id string)

// Trigger fires exactly one notification per watched card and stops
// observing the card afterwards. Cards are re-registered by the scan service
// only when a fresh collection is installed; fired, pending, succeeded and
// failed cards are never re-watched.
type Trigger struct {
	mu      sync.Mutex
	cfg     Config
	watched map[string]Callback
	log     zerolog.Logger
}

// New creates a trigger with the given thresholds.
func New(cfg Config, log zerolog.Logger) *Trigger {
	return &Trigger{
		cfg:     cfg,
		watched: make(map[string]Callback),
		log:     log.With().Str("component", "visibility-trigger").Logger(),
	}
}

// Watch registers a card for one-shot observation. Watching an id that is
// already observed replaces its callback without re-arming a fired card.
func (t *Trigger) Watch(id string, fn Callback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watched[id] = fn
}

// Unwatch stops observing a card without firing.
func (t *Trigger) Unwatch(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.watched, id)
}

// Reset drops all watched cards, used when the dish collection is replaced.
func (t *Trigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.watched = make(map[string]Callback)
}

// WatchedCount returns the number of cards still under observation.
func (t *Trigger) WatchedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.watched)
}

// Observe evaluates one viewport report. Every watched card whose visible
// fraction within the margin-expanded viewport reaches the threshold fires
// its callback once and is removed from observation before the callback
// runs, so a concurrent report cannot fire it twice.
func (t *Trigger) Observe(viewport Rect, cards []CardPlacement) {
	window := viewport.expand(t.cfg.ProximityMargin)

	type firing struct {
		id string
		fn Callback
	}
	var fired []firing

	t.mu.Lock()
	for _, card := range cards {
		fn, ok := t.watched[card.ID]
		if !ok {
			continue
		}
		if !t.inView(window, card.Bounds) {
			continue
		}
		delete(t.watched, card.ID)
		fired = append(fired, firing{id: card.ID, fn: fn})
	}
	t.mu.Unlock()

	for _, f := range fired {
		t.log.Debug().Str("dish_id", f.id).Msg("card became visible")
		f.fn(f.id)
	}
}

func (t *Trigger) inView(window, card Rect) bool {
	cardArea := card.area()
	if cardArea == 0 {
		return false
	}
	visible := intersection(window, card).area()
	return visible/cardArea >= t.cfg.VisibleFraction
}
