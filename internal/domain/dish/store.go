package dish

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Store holds the ordered dish collection of the current scan. All mutation
// goes through ReplaceAll and Transition; both are atomic with respect to a
// single dish, so readers never observe torn state.
type Store struct {
	mu     sync.RWMutex
	scanID string
	order  []string
	dishes map[string]*Dish
	log    zerolog.Logger
}

// NewStore creates an empty store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		dishes: make(map[string]*Dish),
		log:    log.With().Str("component", "dish-store").Logger(),
	}
}

// ReplaceAll installs a brand-new collection from a successful parse,
// discarding prior state entirely. Every installed dish starts NotRequested
// with no image reference regardless of the input's fields.
func (s *Store) ReplaceAll(scanID string, dishes []*Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, 0, len(dishes))
	byID := make(map[string]*Dish, len(dishes))
	for _, d := range dishes {
		if _, exists := byID[d.ID]; exists {
			return fmt.Errorf("duplicate dish id %s", d.ID)
		}
		installed := *d
		installed.GenerationState = StateNotRequested
		installed.ImageRef = nil
		byID[d.ID] = &installed
		order = append(order, d.ID)
	}

	s.scanID = scanID
	s.order = order
	s.dishes = byID

	s.log.Info().Str("scan_id", scanID).Int("dishes", len(dishes)).Msg("dish collection replaced")
	return nil
}

// Clear drops the current collection.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanID = ""
	s.order = nil
	s.dishes = make(map[string]*Dish)
}

// ScanID returns the id of the scan that produced the current collection.
func (s *Store) ScanID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanID
}

// Get returns a copy of the dish with the given id.
func (s *Store) Get(id string) (Dish, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dishes[id]
	if !ok {
		return Dish{}, false
	}
	return copyDish(d), true
}

// List returns copies of all dishes in scan order.
func (s *Store) List() []Dish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Dish, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyDish(s.dishes[id]))
	}
	return out
}

// Len returns the number of dishes in the current collection.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Transition applies one generation-state event to the dish with the given
// id and returns the updated dish. ErrDishNotFound is returned when the id
// is absent (e.g. a late result for a superseded collection) and
// ErrInvalidTransition when the event is not legal from the current state;
// neither mutates anything.
func (s *Store) Transition(id string, ev Event) (Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dishes[id]
	if !ok {
		return Dish{}, ErrDishNotFound
	}

	next, ok := nextState(d.GenerationState, ev.Kind)
	if !ok {
		s.log.Debug().
			Str("dish_id", id).
			Str("state", string(d.GenerationState)).
			Str("event", string(ev.Kind)).
			Msg("transition ignored")
		return copyDish(d), ErrInvalidTransition
	}

	d.GenerationState = next
	switch ev.Kind {
	case EventSucceeded:
		if ev.Ref == nil || ev.Ref.IsZero() {
			// Succeeded without a usable reference would break the
			// imageRef-iff-succeeded invariant; refuse the event.
			d.GenerationState = StatePending
			return copyDish(d), ErrInvalidTransition
		}
		ref := *ev.Ref
		d.ImageRef = &ref
	case EventVisible, EventRetry, EventFailed:
		d.ImageRef = nil
	}

	return copyDish(d), nil
}

// nextState encodes the per-dish state machine:
//
//	NotRequested --visible--> Pending
//	Pending      --succeeded-> Succeeded
//	Pending      --failed----> Failed
//	Failed       --retry-----> Pending
func nextState(current GenerationState, kind EventKind) (GenerationState, bool) {
	switch kind {
	case EventVisible:
		if current == StateNotRequested {
			return StatePending, true
		}
	case EventSucceeded:
		if current == StatePending {
			return StateSucceeded, true
		}
	case EventFailed:
		if current == StatePending {
			return StateFailed, true
		}
	case EventRetry:
		if current == StateFailed {
			return StatePending, true
		}
	}
	return current, false
}

func copyDish(d *Dish) Dish {
	out := *d
	if d.ImageRef != nil {
		ref := *d.ImageRef
		out.ImageRef = &ref
	}
	return out
}
