package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"wealth-go-api/internal/models"
)

// Generic in-memory cache with type safety
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*cacheItem[V]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.cleanup(5 * time.Minute)

	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Clear drops every entry and returns how many there were.
func (c *Cache[K, V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	c.items = make(map[K]*cacheItem[V])
	return n
}

func (c *Cache[K, V]) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
		}
	}
}

const priceCollection = "price_history"

// CacheService keeps price histories in memory and, when a Firestore client
// is given, in the price_history collection so restarts stay warm.
type CacheService struct {
	firestoreClient *firestore.Client
	ttl             time.Duration
	prices          *Cache[string, *models.PriceHistory]
	log             zerolog.Logger
}

// NewCacheService accepts a nil client for memory-only caching.
func NewCacheService(client *firestore.Client, ttl time.Duration, log zerolog.Logger) *CacheService {
	return &CacheService{
		firestoreClient: client,
		ttl:             ttl,
		prices:          NewCache[string, *models.PriceHistory](ttl),
		log:             log.With().Str("component", "cache").Logger(),
	}
}

// Store names the backing store for health reporting.
func (s *CacheService) Store() string {
	if s.firestoreClient != nil {
		return "firestore"
	}
	return "memory"
}

func priceKey(symbol string, days int) string {
	return fmt.Sprintf("%s_%d", strings.ReplaceAll(strings.ToUpper(symbol), "/", "-"), days)
}

// GetPriceHistory retrieves a price history from cache
func (s *CacheService) GetPriceHistory(ctx context.Context, symbol string, days int) (*models.PriceHistory, bool) {
	key := priceKey(symbol, days)

	// Try in-memory cache first
	if h, found := s.prices.Get(key); found {
		return h, true
	}

	if s.firestoreClient == nil {
		return nil, false
	}

	doc, err := s.firestoreClient.Collection(priceCollection).Doc(key).Get(ctx)
	if err != nil {
		return nil, false
	}
	var h models.PriceHistory
	if err := doc.DataTo(&h); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached price history")
		return nil, false
	}
	// entries written without dates cannot be joined with other symbols
	if time.Since(h.LastUpdated) >= s.ttl || !h.Aligned() {
		return nil, false
	}
	s.prices.Set(key, &h)
	return &h, true
}

// SetPriceHistory stores a price history in cache
func (s *CacheService) SetPriceHistory(ctx context.Context, days int, h *models.PriceHistory) error {
	key := priceKey(h.Symbol, days)
	s.prices.Set(key, h)

	if s.firestoreClient != nil {
		if _, err := s.firestoreClient.Collection(priceCollection).Doc(key).Set(ctx, h); err != nil {
			return fmt.Errorf("failed to persist price history %s: %w", key, err)
		}
	}
	return nil
}

// Clear empties the memory cache and the Firestore collection. It returns
// the number of in-memory entries dropped.
func (s *CacheService) Clear(ctx context.Context) (int, error) {
	n := s.prices.Clear()
	if s.firestoreClient == nil {
		return n, nil
	}

	iter := s.firestoreClient.Collection(priceCollection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return n, fmt.Errorf("failed to list cached prices: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return n, fmt.Errorf("failed to delete cached price %s: %w", doc.Ref.ID, err)
		}
	}
	return n, nil
}

// Close stops background cleanup. The Firestore client is owned by the caller.
func (s *CacheService) Close() {
	s.prices.Close()
}
