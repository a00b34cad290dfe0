package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/cache"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/catalog"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/engine"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/events"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/features"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/validation"
)

// ErrCardNotFound is returned when a requested card id is not in the
// catalog.
var ErrCardNotFound = catalog.ErrNotFound

const (
	defaultRankLimit = 10
	maxRankLimit     = 50
)

// Service provides business logic for the rebate comparison API.
type Service struct {
	store    *catalog.Store
	cache    cache.Cache
	events   *events.Manager
	features *features.Manager
	engine   *engine.Engine
	cacheTTL time.Duration
}

// Options holds the collaborators of a Service. Cache, Events and
// Features may be nil; the corresponding behavior is then skipped.
type Options struct {
	Store    *catalog.Store
	Cache    cache.Cache
	Events   *events.Manager
	Features *features.Manager
	Engine   *engine.Engine
	CacheTTL time.Duration
}

// NewService creates a new service instance.
func NewService(opts Options) *Service {
	if opts.Engine == nil {
		opts.Engine = engine.New(engine.DefaultConfig())
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	s := &Service{
		store:    opts.Store,
		cache:    opts.Cache,
		events:   opts.Events,
		features: opts.Features,
		engine:   opts.Engine,
		cacheTTL: opts.CacheTTL,
	}

	// Catalog mutations invalidate every cached comparison; results
	// depend on the whole catalog snapshot, not one card.
	if s.events != nil && s.cache != nil {
		s.events.Subscribe(events.EventCatalogUpdated, func(ctx context.Context, _ events.Event) error {
			return s.cache.Clear(context.WithoutCancel(ctx))
		})
	}

	return s
}

// CalculateRebate validates the request, resolves the card catalog and
// runs the ranking engine. Results for identical requests are served
// from cache when the cache feature is on.
func (s *Service) CalculateRebate(ctx context.Context, req models.CalculationRequest) (models.CalculationResponse, error) {
	if err := validation.ValidateCalculationRequest(req); err != nil {
		return models.CalculationResponse{}, err
	}

	if req.RewardPreference == models.PreferMiles && !s.milesRankingEnabled() {
		req.RewardPreference = models.PreferCash
	}

	useCache := s.cacheEnabled()
	key := ""
	if useCache {
		key = cache.CalculationKey(req)
		var cached models.CalculationResponse
		if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
			s.publishCalculated(ctx, req, len(cached.Results), true)
			return cached, nil
		}
	}

	cards := req.Cards
	if len(cards) == 0 && s.store != nil {
		stored, err := s.store.ListCards()
		if err != nil {
			return models.CalculationResponse{}, fmt.Errorf("failed to load catalog: %w", err)
		}
		cards = stored
	}

	resp := models.CalculationResponse{
		Results: s.engine.CalculateRebate(cards, req.Context()),
	}

	if useCache {
		if err := cache.SetJSON(ctx, s.cache, key, resp, s.cacheTTL); err != nil {
			log.Printf("Warning: failed to cache calculation: %v", err)
		}
	}

	s.publishCalculated(ctx, req, len(resp.Results), false)
	return resp, nil
}

// GetSceneRatings loads one card and rates it against the fixed
// spending scenes.
func (s *Service) GetSceneRatings(ctx context.Context, cardID string) (models.SceneRatingsResponse, error) {
	if cardID == "" {
		return models.SceneRatingsResponse{}, &validation.ValidationError{
			Field: "card_id", Message: "is required",
		}
	}

	card, err := s.store.GetCard(cardID)
	if err != nil {
		return models.SceneRatingsResponse{}, err
	}

	return models.SceneRatingsResponse{
		CardID:  cardID,
		Ratings: s.engine.SceneRatings(card),
	}, nil
}

// RankCategory builds the leaderboard for one category group across
// the whole catalog.
func (s *Service) RankCategory(ctx context.Context, group string, limit int) (models.RankingResponse, error) {
	if limit <= 0 {
		limit = defaultRankLimit
	}
	if limit > maxRankLimit {
		limit = maxRankLimit
	}

	cards, err := s.store.ListCards()
	if err != nil {
		return models.RankingResponse{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	results, err := s.engine.Rank(cards, group, limit)
	if err != nil {
		return models.RankingResponse{}, err
	}

	return models.RankingResponse{Group: group, Results: results}, nil
}

// SaveCard validates and stores a card, assigning an id when missing.
func (s *Service) SaveCard(ctx context.Context, card models.Card) (models.Card, error) {
	validation.SanitizeCard(&card)

	if card.ID == "" {
		card.ID = uuid.New().String()
	}

	if err := validation.ValidateCard(card); err != nil {
		return models.Card{}, err
	}

	if err := s.store.UpsertCard(card); err != nil {
		return models.Card{}, err
	}

	if s.events != nil && s.eventsEnabled() {
		s.events.PublishCatalogUpdated(ctx, card.ID, false)
	}
	return card, nil
}

// GetCard returns one card from the catalog.
func (s *Service) GetCard(ctx context.Context, cardID string) (models.Card, error) {
	return s.store.GetCard(cardID)
}

// ListCards returns the full catalog.
func (s *Service) ListCards(ctx context.Context) ([]models.Card, error) {
	return s.store.ListCards()
}

// DeleteCard removes a card from the catalog.
func (s *Service) DeleteCard(ctx context.Context, cardID string) error {
	if err := s.store.DeleteCard(cardID); err != nil {
		return err
	}

	if s.events != nil && s.eventsEnabled() {
		s.events.PublishCatalogUpdated(ctx, cardID, true)
	}
	return nil
}

func (s *Service) publishCalculated(ctx context.Context, req models.CalculationRequest, results int, cached bool) {
	if s.events != nil && s.eventsEnabled() {
		s.events.PublishRebateCalculated(ctx, req, results, cached)
	}
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && (s.features == nil || s.features.IsEnabled(features.FeatureCacheEnabled))
}

func (s *Service) eventsEnabled() bool {
	return s.features == nil || s.features.IsEnabled(features.FeatureEventHooksEnabled)
}

func (s *Service) milesRankingEnabled() bool {
	return s.features == nil || s.features.IsEnabled(features.FeatureMilesRanking)
}
