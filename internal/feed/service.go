package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/creatorfeed/internal/block"
	"github.com/onnwee/creatorfeed/internal/booking"
	"github.com/onnwee/creatorfeed/internal/cache"
	"github.com/onnwee/creatorfeed/internal/creator"
	"github.com/onnwee/creatorfeed/internal/ranking"
	"github.com/onnwee/creatorfeed/internal/tracing"
)

// DefaultCacheTTL is how long an assembled page stays cached.
const DefaultCacheTTL = 5 * time.Minute

// Configuration errors returned by NewService.
var (
	ErrMissingProfiles = errors.New("feed: profile repository is required")
	ErrMissingMedia    = errors.New("feed: media repository is required")
	ErrMissingBookings = errors.New("feed: booking history provider is required")
)

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Profiles creator.ProfileRepository
	Media    creator.MediaRepository
	Bookings booking.HistoryProvider

	// Blocks defaults to block.NoopProvider.
	Blocks block.Provider

	// Cache is optional; nil disables page caching.
	Cache    cache.Cache[Page]
	CacheTTL time.Duration

	// Weights defaults to ranking.DefaultWeights.
	Weights *ranking.Weights

	Metrics *Metrics
	Logger  *slog.Logger

	// Now is overridable for tests.
	Now func() time.Time
}

// Service builds ranked, paginated creator feeds.
type Service struct {
	profiles creator.ProfileRepository
	media    creator.MediaRepository
	bookings booking.HistoryProvider
	blocks   block.Provider
	cache    cache.Cache[Page]
	cacheTTL time.Duration
	weights  *ranking.Weights
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a feed service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Profiles == nil {
		return nil, ErrMissingProfiles
	}
	if cfg.Media == nil {
		return nil, ErrMissingMedia
	}
	if cfg.Bookings == nil {
		return nil, ErrMissingBookings
	}

	if cfg.Blocks == nil {
		cfg.Blocks = block.NoopProvider{}
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Weights == nil {
		cfg.Weights = ranking.DefaultWeights()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		profiles: cfg.Profiles,
		media:    cfg.Media,
		bookings: cfg.Bookings,
		blocks:   cfg.Blocks,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		weights:  cfg.Weights,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// GetFeed returns the ranked feed page for viewerID. An empty viewerID is an
// anonymous viewer with no block list and no booking history.
//
// GetFeed never fails: any error or panic from a collaborator is logged and
// yields an empty page.
func (s *Service) GetFeed(ctx context.Context, viewerID string, raw map[string]string) (page Page) {
	filters := Sanitize(raw)

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while building creator feed",
				slog.String("viewer_id", viewerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			s.metrics.IncRequest(OutcomeError)
			page = EmptyPage(filters)
		}
	}()

	page, err := s.cachedPage(ctx, viewerID, filters)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build creator feed",
			slog.String("viewer_id", viewerID),
			slog.String("error", err.Error()))
		s.metrics.IncRequest(OutcomeError)
		return EmptyPage(filters)
	}

	s.metrics.IncRequest(OutcomeSuccess)
	return page
}

// cachedPage serves the page through the cache. Cache failures fall back to
// a direct computation; computation failures are returned.
func (s *Service) cachedPage(ctx context.Context, viewerID string, filters Filters) (Page, error) {
	if s.cache == nil {
		return s.compute(ctx, viewerID, filters)
	}

	var (
		computed   bool
		computeErr error
	)
	page, err := s.cache.GetOrCompute(ctx, filters.CacheKey(viewerID), s.cacheTTL, func(ctx context.Context) (Page, error) {
		computed = true
		p, err := s.compute(ctx, viewerID, filters)
		computeErr = err
		return p, err
	})
	if err == nil {
		return page, nil
	}
	if computed && computeErr != nil {
		return Page{}, computeErr
	}

	s.logger.WarnContext(ctx, "feed cache unavailable, computing directly",
		slog.String("viewer_id", viewerID),
		slog.String("error", err.Error()))
	s.metrics.IncRequest(OutcomeCacheFallback)
	return s.compute(ctx, viewerID, filters)
}

// compute runs the full ranking pipeline without caching.
func (s *Service) compute(ctx context.Context, viewerID string, filters Filters) (page Page, err error) {
	ctx, endSpan := tracing.StartStage(ctx, "compute",
		attribute.Bool("feed.anonymous", viewerID == ""),
		attribute.Int("feed.page", filters.Page))
	defer func() { endSpan(err) }()
	start := time.Now()

	criteria := filters.Criteria()

	media, err := s.media.QueryFeedMedia(ctx, creator.MediaQuery{
		Criteria: criteria,
		Purpose:  creator.PurposeCreatorFeed,
		Limit:    creator.MaxFeedMediaScan,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch feed media: %w", err)
	}

	profiles, err := s.profiles.ListAllCreatorProfiles(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch creator profiles: %w", err)
	}

	blocked, err := s.blocks.BlockedCreatorIDs(ctx, viewerID)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch block list: %w", err)
	}

	booked, err := s.bookings.CompletedCreatorIDs(ctx, viewerID)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch booking history: %w", err)
	}

	grouped := groupMedia(media, filters.MaxMediaPerCreator)
	now := s.now()

	cards := make([]Card, 0, len(profiles))
	for _, p := range profiles {
		if !criteria.Matches(p) {
			continue
		}
		if _, ok := blocked[p.UserID]; ok {
			continue
		}

		var rating *float64
		if p.AvgRating != nil {
			rating = ranking.ParseRating(*p.AvgRating)
		}
		_, loyal := booked[p.UserID]
		items := grouped[p.UserID]

		score := ranking.CompositeScoreCreator(ranking.CreatorParams{
			LastActiveAt:        p.LastActiveAt,
			AvgRating:           rating,
			MediaCount:          len(items),
			Interests:           filters.Interests,
			Specialties:         p.Specialties,
			HasCompletedBooking: loyal,
		}, now, s.weights)

		cards = append(cards, newCard(p, rating, items, score))
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Score > cards[j].Score
	})

	tracing.Annotate(ctx,
		attribute.Int("feed.media_scanned", len(media)),
		attribute.Int("feed.profiles", len(profiles)),
		attribute.Int("feed.candidates", len(cards)))
	s.metrics.ObserveCompute(time.Since(start).Seconds(), len(cards))

	return paginate(cards, filters), nil
}
