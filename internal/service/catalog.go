package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
	"github.com/bebokaka99/truyenviethay-backend/internal/repository"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCatalogSize = 128
	defaultCatalogTTL  = time.Minute
)

type catalogEntry struct {
	value    interface{}
	loadedAt time.Time
}

// Catalog caches quest definitions by action type and by key. Entries expire
// after ttl and concurrent misses on the same key share one load. A load
// that overlaps Invalidate is returned to its callers but never cached.
type Catalog struct {
	repo  CatalogRepository
	cache *lru.Cache
	ttl   time.Duration
	group singleflight.Group
	gen   atomic.Uint64
	now   func() time.Time
}

func NewCatalog(repo CatalogRepository, size int, ttl time.Duration) (*Catalog, error) {
	if size <= 0 {
		size = defaultCatalogSize
	}
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}

	return &Catalog{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

func (c *Catalog) ByAction(ctx context.Context, action model.ActionType) ([]*model.Quest, error) {
	v, err := c.load(ctx, "action:"+string(action), func(ctx context.Context) (interface{}, error) {
		return c.repo.GetQuestsByAction(ctx, action)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Quest), nil
}

func (c *Catalog) ByKey(ctx context.Context, key string) (*model.Quest, error) {
	v, err := c.load(ctx, "key:"+key, func(ctx context.Context) (interface{}, error) {
		quest, err := c.repo.GetQuestByKey(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrQuestNotFound
			}
			return nil, err
		}
		return quest, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Quest), nil
}

func (c *Catalog) Invalidate() {
	c.gen.Add(1)
	c.cache.Purge()
}

func (c *Catalog) load(ctx context.Context, key string, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if cached, ok := c.cache.Get(key); ok {
		entry := cached.(catalogEntry)
		if c.now().Sub(entry.loadedAt) < c.ttl {
			return entry.value, nil
		}
		c.cache.Remove(key)
	}

	gen := c.gen.Load()
	v, err, _ := c.group.Do(fmt.Sprintf("%s@%d", key, gen), func() (interface{}, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if c.gen.Load() == gen {
			c.cache.Add(key, catalogEntry{value: value, loadedAt: c.now()})
		}
		return value, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load quests %s: %w", key, err)
	}
	return v, nil
}
