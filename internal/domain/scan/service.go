// Package scan owns one menu-scan session at a time: it runs the menu
// analysis, seeds the dish store, and arms the visibility trigger that
// drives lazy image generation.
package scan

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"menulens-server/internal/config"
	"menulens-server/internal/domain/dish"
	"menulens-server/internal/domain/visibility"
	"menulens-server/internal/infrastructure/metrics"
	"menulens-server/internal/utils/idgen"
	"menulens-server/internal/utils/platformerrors"
)

var allowedImageMIMEs = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// MenuParser sends a captured menu image to the analysis provider and
// returns the extracted dish records in menu order.
type MenuParser interface {
	Parse(ctx context.Context, image []byte) ([]dish.RawDishRecord, error)
}

// State is the explicit application-state struct for the scan session: one
// field per concern instead of a shared bag of flags.
type State struct {
	mu        sync.Mutex
	analyzing bool
	scanID    string
	scannedAt time.Time
}

func (s *State) beginAnalyze() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzing {
		return false
	}
	s.analyzing = true
	return true
}

func (s *State) endAnalyze(scanID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	if scanID != "" {
		s.scanID = scanID
		s.scannedAt = time.Now().UTC()
	}
}

// IsAnalyzing reports whether a menu analysis is currently running.
func (s *State) IsAnalyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing
}

// Service orchestrates scans and exposes the per-dish operations the HTTP
// layer forwards to the scheduler.
type Service struct {
	cfg       *config.Config
	parser    MenuParser
	store     *dish.Store
	trigger   *visibility.Trigger
	scheduler *dish.Scheduler
	log       zerolog.Logger
	state     State
}

// NewService wires the scan pipeline together.
func NewService(cfg *config.Config, parser MenuParser, store *dish.Store, trigger *visibility.Trigger, scheduler *dish.Scheduler, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		parser:    parser,
		store:     store,
		trigger:   trigger,
		scheduler: scheduler,
		log:       log.With().Str("component", "scan-service").Logger(),
	}
}

// Analyze runs one full scan: parse the menu image, validate the records,
// and replace the dish collection. Only one analysis runs at a time; a
// concurrent call fails with CONFLICT. Any analysis failure leaves the
// previous collection untouched.
func (s *Service) Analyze(ctx context.Context, image []byte) (string, []dish.Dish, error) {
	if !s.state.beginAnalyze() {
		return "", nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeConflict, "a menu scan is already in progress", nil)
	}
	installed := ""
	defer func() { s.state.endAnalyze(installed) }()

	start := time.Now()
	if err := s.checkImage(ctx, image); err != nil {
		metrics.RecordScan("rejected", time.Since(start).Seconds())
		return "", nil, err
	}

	records, err := s.parser.Parse(ctx, image)
	if err != nil {
		metrics.RecordScan("failure", time.Since(start).Seconds())
		return "", nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "menu analysis failed")
	}
	if len(records) == 0 {
		metrics.RecordScan("empty", time.Since(start).Seconds())
		return "", nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeAnalysis, "no dishes found on the menu", nil)
	}

	scanID := idgen.NewScanID()
	dishes := make([]*dish.Dish, 0, len(records))
	for _, rec := range records {
		dishes = append(dishes, &dish.Dish{
			ID:                 idgen.NewDishID(),
			OriginalName:       rec.OriginalName,
			EnglishTranslation: rec.EnglishTranslation,
			Description:        rec.IngredientsOrDescription,
			Price:              rec.Price,
			Category:           rec.Category,
		})
	}

	if err := s.store.ReplaceAll(scanID, dishes); err != nil {
		metrics.RecordScan("failure", time.Since(start).Seconds())
		return "", nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "installing dish collection")
	}
	s.armTrigger(dishes)
	installed = scanID

	metrics.RecordScan("success", time.Since(start).Seconds())
	metrics.DishesParsedTotal.Add(float64(len(dishes)))
	s.log.Info().Str("scan_id", scanID).Int("dishes", len(dishes)).
		Dur("took", time.Since(start)).Msg("menu analyzed")

	return scanID, s.store.List(), nil
}

// armTrigger registers every NotRequested dish of the fresh collection for
// one-shot visibility observation. Stale watches from the previous scan are
// dropped first, so in-flight viewport reports cannot resurrect old ids.
func (s *Service) armTrigger(dishes []*dish.Dish) {
	s.trigger.Reset()
	for _, d := range dishes {
		s.trigger.Watch(d.ID, func(id string) {
			s.scheduler.OnDishVisible(context.Background(), id)
		})
	}
}

// ReportViewport feeds one viewport geometry report into the trigger.
func (s *Service) ReportViewport(viewport visibility.Rect, cards []visibility.CardPlacement) {
	s.trigger.Observe(viewport, cards)
}

// DishVisible handles a direct became-visible event for one dish, the
// client-side observer path. The trigger's watch for the dish is dropped so
// a later viewport report cannot fire it again.
func (s *Service) DishVisible(ctx context.Context, id string) {
	s.trigger.Unwatch(id)
	s.scheduler.OnDishVisible(ctx, id)
}

// RetryDish re-runs generation for a Failed dish; a no-op otherwise.
func (s *Service) RetryDish(ctx context.Context, id string) {
	s.scheduler.Retry(ctx, id)
}

// Current returns the current scan id and dish collection.
func (s *Service) Current() (string, []dish.Dish) {
	return s.store.ScanID(), s.store.List()
}

// Dish returns one dish by id.
func (s *Service) Dish(id string) (dish.Dish, bool) {
	return s.store.Get(id)
}

// IsAnalyzing reports whether a scan is currently running.
func (s *Service) IsAnalyzing() bool {
	return s.state.IsAnalyzing()
}

// Reset clears the current collection and all pending watches. Results of
// in-flight generation calls are discarded on arrival because their ids are
// gone from the store.
func (s *Service) Reset() {
	s.trigger.Reset()
	s.store.Clear()
	s.log.Info().Msg("scan session reset")
}

func (s *Service) checkImage(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "menu image is empty", nil)
	}
	if int64(len(image)) > s.cfg.MenuMaxImageBytes {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation,
			fmt.Sprintf("menu image exceeds max size of %d bytes", s.cfg.MenuMaxImageBytes), nil)
	}
	mime := mimetype.Detect(image).String()
	if !allowedImageMIMEs[strings.ToLower(mime)] {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, fmt.Sprintf("unsupported image type %s", mime), nil)
	}
	return nil
}
