package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/model"
	"content-entitlement/internal/domain/ports/adapter"
	"content-entitlement/internal/infra/metrics"
	red "content-entitlement/internal/infra/redis"
)

var _ adapter.Catalog = (*cacheDecorator)(nil)

// cacheDecorator is a read-through Redis cache in front of another catalog.
// Cache failures fall through to the inner catalog.
type cacheDecorator struct {
	inner adapter.Catalog
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewCacheDecorator(inner adapter.Catalog, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) adapter.Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	l := logger.With().Str("component", "CatalogCache").Logger()
	return &cacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func cacheKey(kind model.ItemKind, slug string) string {
	return fmt.Sprintf("catalog:%s:%s", kind, slug)
}

func (d *cacheDecorator) Item(ctx context.Context, kind model.ItemKind, slug string) (model.ContentItem, error) {
	switch kind {
	case model.ItemKindQuiz:
		return d.Quiz(ctx, slug)
	case model.ItemKindArticle:
		var a model.Article
		if d.load(ctx, kind, slug, &a) {
			return &a, nil
		}
		item, err := d.inner.Item(ctx, kind, slug)
		if err != nil {
			return nil, err
		}
		d.store(ctx, kind, slug, item)
		return item, nil
	default:
		return nil, domain.ErrInvalidArgument
	}
}

func (d *cacheDecorator) Quiz(ctx context.Context, slug string) (*model.Quiz, error) {
	var q model.Quiz
	if d.load(ctx, model.ItemKindQuiz, slug, &q) {
		return &q, nil
	}
	quiz, err := d.inner.Quiz(ctx, slug)
	if err != nil {
		return nil, err
	}
	d.store(ctx, model.ItemKindQuiz, slug, quiz)
	return quiz, nil
}

func (d *cacheDecorator) load(ctx context.Context, kind model.ItemKind, slug string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, cacheKey(kind, slug))
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.IncCatalogLookup(kind, metrics.LookupHit)
		return true
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		d.log.Warn().Err(err).Str("slug", slug).Msg("catalog cache read failed")
		metrics.IncCatalogLookup(kind, metrics.LookupError)
		return false
	}
	metrics.IncCatalogLookup(kind, metrics.LookupMiss)
	return false
}

func (d *cacheDecorator) store(ctx context.Context, kind model.ItemKind, slug string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKey(kind, slug), string(b), d.ttl); err != nil {
		d.log.Warn().Err(err).Str("slug", slug).Msg("catalog cache write failed")
	}
}
