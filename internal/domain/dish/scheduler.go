package dish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"menulens-server/internal/infrastructure/metrics"
)

// Generator issues one image-generation call for a dish.
type Generator interface {
	Generate(ctx context.Context, subjectName, description string) (ImageRef, error)
}

// ImageSink persists an inline image payload and returns a reference that is
// cheaper to hand to clients, typically a URL. Implementations must return
// the input unchanged when there is nothing to persist.
type ImageSink interface {
	Persist(ctx context.Context, dishID string, ref ImageRef) (ImageRef, error)
}

// Scheduler turns visibility notifications into generation calls. The
// Pending state in the store is the per-dish mutual exclusion guard: a
// second visibility event or retry observes Pending and is dropped, so at
// most one generation call is ever in flight per dish. Across dishes, calls
// are fully independent.
type Scheduler struct {
	store     *Store
	generator Generator
	sink      ImageSink // optional
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler writing outcomes back into store. sink
// may be nil, in which case inline payloads are kept as-is.
func NewScheduler(store *Store, generator Generator, sink ImageSink, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		generator: generator,
		sink:      sink,
		log:       log.With().Str("component", "generation-scheduler").Logger(),
	}
}

// OnDishVisible handles a became-visible notification for the dish. If the
// dish is not in NotRequested the event is an idempotent no-op; this guards
// against duplicate and late-firing visibility events.
func (s *Scheduler) OnDishVisible(ctx context.Context, id string) {
	claimed, err := s.store.Transition(id, Visible())
	if err != nil {
		metrics.VisibilityEventsTotal.WithLabelValues("ignored").Inc()
		if errors.Is(err, ErrDishNotFound) {
			s.log.Debug().Str("dish_id", id).Msg("visibility event for unknown dish dropped")
		}
		return
	}
	metrics.VisibilityEventsTotal.WithLabelValues("fired").Inc()
	s.launch(ctx, claimed, "visibility")
}

// Retry re-runs generation for a dish in Failed state. Calling retry in any
// other state is a no-op; in particular a retry racing an in-flight call
// observes Pending and is dropped.
func (s *Scheduler) Retry(ctx context.Context, id string) {
	claimed, err := s.store.Transition(id, Retry())
	if err != nil {
		if errors.Is(err, ErrDishNotFound) {
			s.log.Debug().Str("dish_id", id).Msg("retry for unknown dish dropped")
		}
		return
	}
	s.launch(ctx, claimed, "retry")
}

// Wait blocks until all in-flight generation calls have resolved. Used on
// shutdown so outcomes are not lost mid-write.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) launch(ctx context.Context, d Dish, trigger string) {
	// The generation call must outlive the HTTP request that reported
	// visibility; only the provider timeout bounds it.
	callCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()

		ref, err := s.generator.Generate(callCtx, d.EnglishTranslation, d.Description)
		if err != nil {
			metrics.RecordGeneration("failure", trigger, time.Since(start).Seconds())
			s.log.Warn().Err(err).Str("dish_id", d.ID).Msg("image generation failed")
			s.applyOutcome(d.ID, Failed())
			return
		}

		if s.sink != nil {
			persisted, perr := s.sink.Persist(callCtx, d.ID, ref)
			if perr != nil {
				// Keep the inline payload; persistence is an optimization.
				s.log.Warn().Err(perr).Str("dish_id", d.ID).Msg("persisting generated image failed")
			} else {
				ref = persisted
			}
		}

		metrics.RecordGeneration("success", trigger, time.Since(start).Seconds())
		s.applyOutcome(d.ID, Succeeded(ref))
	}()
}

// applyOutcome writes a completion back. A missing id means the collection
// was replaced while the call was in flight; the result is discarded.
func (s *Scheduler) applyOutcome(id string, ev Event) {
	if _, err := s.store.Transition(id, ev); err != nil {
		if errors.Is(err, ErrDishNotFound) {
			s.log.Debug().Str("dish_id", id).Msg("generation result for superseded dish discarded")
			return
		}
		s.log.Error().Err(err).Str("dish_id", id).Str("event", string(ev.Kind)).Msg("generation outcome rejected")
	}
}
