package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strconv"
	"time"

	"sahay/pkg/cache"
)

// CachedClient запоминает ответы модели в Store. Ошибки кэша не мешают запросу
type CachedClient struct {
	next  Client
	store cache.Store
	ttl   time.Duration
}

// NewCachedClient оборачивает next. При nil store кэш не используется
func NewCachedClient(next Client, store cache.Store, ttl time.Duration) Client {
	if store == nil {
		return next
	}
	return &CachedClient{next: next, store: store, ttl: ttl}
}

func (c *CachedClient) Ask(ctx context.Context, request Request) (string, error) {
	key := cacheKey(request)

	if answer, ok, err := c.store.Get(ctx, key); err != nil {
		log.Printf("ai cache get error: %v", err)
	} else if ok {
		return answer, nil
	}

	answer, err := c.next.Ask(ctx, request)
	if err != nil {
		return "", err
	}

	if err := c.store.Set(ctx, key, answer, c.ttl); err != nil {
		log.Printf("ai cache set error: %v", err)
	}
	return answer, nil
}

func cacheKey(request Request) string {
	sum := sha256.Sum256([]byte(request.Grade + "\x00" + strconv.Itoa(request.MaxTokens) + "\x00" + request.Prompt))
	return "ai:" + hex.EncodeToString(sum[:])
}
