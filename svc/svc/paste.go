package svc

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"pastebox/cfg"
	"pastebox/metrics"
	"pastebox/pkg/domain"
	"pastebox/svc/cache"
	"pastebox/svc/db"
	"pastebox/svc/util"
)

const (
	// identifiers are 32 bits of digest, so a busy instant can collide;
	// each retry re-derives with a fresh clock reading
	maxIDAttempts = 5

	defaultListLimit = 10
	maxListLimit     = 100
)

type Paste struct {
	db    *db.SQLite
	lru   *cache.LRU
	rdb   *db.Redis
	idgen *util.IDGenerator
	cfg   *cfg.Cfg
	fill  singleflight.Group
}

func NewPaste(sqlDB *db.SQLite, lru *cache.LRU, rdb *db.Redis, idgen *util.IDGenerator, c *cfg.Cfg) *Paste {
	if sqlDB == nil || lru == nil || idgen == nil || c == nil {
		panic("paste service: nil dependency (sqlDB, lru, idgen, or cfg)")
	}
	return &Paste{
		db:    sqlDB,
		lru:   lru,
		rdb:   rdb,
		idgen: idgen,
		cfg:   c,
	}
}

// Create validates and stores a new paste. Whitespace-only content is
// rejected; blank titles and languages fall back to their defaults. The
// paste id is derived from (content, instant), so on a primary key
// conflict the insert is retried with a fresh instant.
func (p *Paste) Create(ctx context.Context, params domain.CreateParams) (*domain.Paste, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, domain.ErrContentRequired
	}
	if int64(len(content)) > p.cfg.MaxPasteSize {
		return nil, domain.ErrPasteTooLarge
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = domain.DefaultTitle
	}
	language := strings.TrimSpace(params.Language)
	if language == "" {
		language = domain.DefaultLanguage
	}

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, instant := p.idgen.Next(content)
		paste := &domain.Paste{
			ID:        id,
			Title:     title,
			Content:   content,
			Language:  language,
			CreatedAt: instant.UTC(),
		}
		err := p.db.Create(ctx, paste)
		if err == nil {
			p.lru.Set(paste)
			if p.rdb != nil {
				if err := p.rdb.CachePaste(ctx, paste); err != nil {
					util.Warn().Err(err).Str("id", id).Msg("failed to cache in Redis")
				}
			}
			metrics.PasteCreated.Inc()
			return paste, nil
		}
		if !errors.Is(err, domain.ErrIDConflict) {
			return nil, errors.Wrap(err, "create paste")
		}
		metrics.IDCollisions.Inc()
		util.Warn().Str("id", id).Int("attempt", attempt).Msg("paste id collision, retrying")
	}
	return nil, domain.ErrIDConflict
}

// Get serves a paste from the LRU, then Redis, then SQLite. Concurrent
// misses for the same id are collapsed into a single backing lookup.
func (p *Paste) Get(ctx context.Context, id string) (*domain.Paste, error) {
	if paste := p.lru.Get(id); paste != nil {
		metrics.CacheHits.Inc()
		metrics.PasteRetrieved.Inc()
		return paste, nil
	}
	metrics.CacheMisses.Inc()

	v, err, _ := p.fill.Do(id, func() (interface{}, error) {
		return p.lookup(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			return nil, domain.ErrPasteNotFound
		}
		return nil, errors.Wrap(err, "get paste")
	}
	metrics.PasteRetrieved.Inc()
	return v.(*domain.Paste), nil
}
func (p *Paste) lookup(ctx context.Context, id string) (*domain.Paste, error) {
	if p.rdb != nil {
		paste, err := p.rdb.GetPaste(ctx, id)
		if err != nil {
			util.Warn().Err(err).Str("id", id).Msg("redis lookup failed, falling back to sqlite")
		} else if paste != nil {
			p.lru.Set(paste)
			return paste, nil
		}
	}
	paste, err := p.db.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.lru.Set(paste)
	if p.rdb != nil {
		if err := p.rdb.CachePaste(ctx, paste); err != nil {
			util.Warn().Err(err).Str("id", id).Msg("failed to cache in Redis")
		}
	}
	return paste, nil
}

// GetContent returns just the paste body for raw serving. Cache hits are
// reused; misses read the content column only and skip the cache fill.
func (p *Paste) GetContent(ctx context.Context, id string) (string, error) {
	if paste := p.lru.Get(id); paste != nil {
		metrics.CacheHits.Inc()
		metrics.PasteRetrieved.Inc()
		return paste.Content, nil
	}
	metrics.CacheMisses.Inc()
	if p.rdb != nil {
		if paste, err := p.rdb.GetPaste(ctx, id); err == nil && paste != nil {
			p.lru.Set(paste)
			metrics.PasteRetrieved.Inc()
			return paste.Content, nil
		}
	}
	content, err := p.db.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			return "", domain.ErrPasteNotFound
		}
		return "", errors.Wrap(err, "get paste content")
	}
	metrics.PasteRetrieved.Inc()
	return content, nil
}

// ListRecent returns the newest pastes. The limit is clamped to
// [1, maxListLimit]; zero or negative asks for the default page size.
func (p *Paste) ListRecent(ctx context.Context, limit int) ([]domain.ListEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	entries, err := p.db.ListRecent(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent pastes")
	}
	metrics.PasteListed.Inc()
	return entries, nil
}
func (p *Paste) Count(ctx context.Context) (int, error) {
	n, err := p.db.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "count pastes")
	}
	return n, nil
}
