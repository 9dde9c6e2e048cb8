package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"borrow_analytics/models"

	"github.com/redis/go-redis/v9"
)

// ResultStore caches analysis results in redis. Entries live under a
// namespace naming the exact snapshot they were computed from (the engine
// mixes a per-process epoch with the snapshot version); Invalidate drops a
// whole namespace at once.
type ResultStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewResultStore(rdb *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{rdb: rdb, ttl: ttl}
}

func resultKey(ns, key string) string  { return fmt.Sprintf("borrow:result:%s:%s", ns, key) }
func namespaceSetKey(ns string) string { return "borrow:results:" + ns }

func (s *ResultStore) Get(ctx context.Context, ns, key string) (models.AnalysisResult, bool, error) {
	var res models.AnalysisResult
	b, err := s.rdb.Get(ctx, resultKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}
	if err := json.Unmarshal(b, &res); err != nil {
		return res, false, err
	}
	return res, true, nil
}

func (s *ResultStore) Put(ctx context.Context, ns, key string, res models.AnalysisResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, resultKey(ns, key), b, s.ttl)
	pipe.SAdd(ctx, namespaceSetKey(ns), key)
	pipe.Expire(ctx, namespaceSetKey(ns), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate removes every result cached under ns.
func (s *ResultStore) Invalidate(ctx context.Context, ns string) error {
	keys, err := s.rdb.SMembers(ctx, namespaceSetKey(ns)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, resultKey(ns, k))
	}
	pipe.Del(ctx, namespaceSetKey(ns))
	_, err = pipe.Exec(ctx)
	return err
}

// Noop never stores anything. Used when no redis is configured.
type Noop struct{}

func (Noop) Get(context.Context, string, string) (models.AnalysisResult, bool, error) {
	return models.AnalysisResult{}, false, nil
}
func (Noop) Put(context.Context, string, string, models.AnalysisResult) error { return nil }
func (Noop) Invalidate(context.Context, string) error                         { return nil }
