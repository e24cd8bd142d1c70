// Package modelcache keeps an in-memory replica of the generative model
// catalog so per-span cost lookups never touch the database.
package modelcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

const DefaultPollInterval = 10 * time.Second

// Cache polls the model table and folds every observed change into its
// snapshot. The watermark only moves forward, and each poll reads rows
// whose updated_at or deleted_at is at or after it, so a change is never
// skipped; it may be observed twice, which the merge absorbs.
type Cache struct {
	repo     repos.ModelRepo
	log      *logger.Logger
	interval time.Duration

	mu        sync.RWMutex
	models    map[int64]*types.GenerativeModel
	watermark time.Time

	stop chan struct{}
	done chan struct{}
}

func New(repo repos.ModelRepo, baseLog *logger.Logger, interval time.Duration) *Cache {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Cache{
		repo:     repo,
		log:      baseLog.With("service", "ModelCache"),
		interval: interval,
		models:   make(map[int64]*types.GenerativeModel),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start performs one synchronous poll so the cache is warm before the
// caller proceeds, then polls on the configured interval until Stop.
func (c *Cache) Start(ctx context.Context) error {
	if err := c.Poll(ctx); err != nil {
		return err
	}
	go c.run(ctx)
	return nil
}

func (c *Cache) Stop() {
	close(c.stop)
	<-c.done
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Poll(ctx); err != nil {
				c.log.Error("model cache poll failed", "error", err)
			}
		}
	}
}

// Poll reads every change at or after the watermark and merges it in.
// The watermark advances to the poll's start time, captured before the
// query, even when nothing changed; a write that lands mid-query is
// re-read next poll rather than lost.
func (c *Cache) Poll(ctx context.Context) error {
	pollStart := time.Now().UTC()

	c.mu.RLock()
	watermark := c.watermark
	c.mu.RUnlock()

	changed, err := c.repo.ChangedSince(ctx, nil, watermark)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, model := range changed {
		if model.DeletedAt != nil {
			delete(c.models, model.ID)
			continue
		}
		c.models[model.ID] = model
	}
	if pollStart.After(c.watermark) {
		c.watermark = pollStart
	}
	if len(changed) > 0 {
		c.log.Debug("merged model changes", "count", len(changed))
	}
	return nil
}

// Get returns the cached model by id, or nil if absent or deleted.
func (c *Cache) Get(id int64) *types.GenerativeModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models[id]
}

// List returns the active models ordered by id.
func (c *Cache) List() []*types.GenerativeModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.GenerativeModel, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Watermark reports the poll cursor, for observability.
func (c *Cache) Watermark() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watermark
}
