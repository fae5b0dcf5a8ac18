package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/soumk/pdfchat-api/internal/config"
	"github.com/soumk/pdfchat-api/internal/data/redisStore"
	"github.com/soumk/pdfchat-api/pkg/logger_i"
)

// RedisCache is an exact-match answer cache keyed by (document, question).
type RedisCache struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisCache(ctx context.Context) *RedisCache {
	s := redisStore.GetRedisStore(ctx, config.RedisAnswerCache)
	if s == nil {
		return nil
	}
	return &RedisCache{
		store:  s,
		logger: logger_i.NewLogger("AnswerCache"),
	}
}

func cacheKey(docID, question string) string {
	sum := sha256.Sum256([]byte(question))
	return fmt.Sprintf("ans:%s:%s", docID, hex.EncodeToString(sum[:16]))
}

func (c *RedisCache) Get(ctx context.Context, docID string, question string, _ []float32) (string, bool) {
	answer, err := c.store.Get(ctx, cacheKey(docID, question))
	if c.store.IsNil(err) {
		return "", false
	}
	if err != nil {
		c.logger.Error("Cache lookup failed", "error", err)
		return "", false
	}
	c.logger.Debug("Answer cache hit", "docId", docID)
	return answer, true
}

func (c *RedisCache) Save(ctx context.Context, docID string, question string, answer string, _ []float32) error {
	return c.store.Set(ctx, cacheKey(docID, question), answer, config.RedisAnswerTTL)
}
