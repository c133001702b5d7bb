package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// item is a cached value. A zero deadline means the key never expires.
type item struct {
	val      string
	deadline time.Time
}

func (it item) live(now time.Time) bool {
	return it.deadline.IsZero() || now.Before(it.deadline)
}

// LocalCache is an in-process KV store used when no Redis address is
// configured. Expired keys are dropped lazily on access and swept by a
// background ticker so untouched keys do not pile up.
type LocalCache struct {
	mu   sync.RWMutex
	data map[string]item
	done chan struct{}
	once sync.Once
}

// NewCache creates a LocalCache and starts its sweep goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		data: make(map[string]item),
		done: make(chan struct{}),
	}
	go c.sweep(interval)
	return c, nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *LocalCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *LocalCache) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			c.mu.Lock()
			for k, it := range c.data {
				if !it.live(now) {
					delete(c.data, k)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

func deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || !it.live(time.Now()) {
		return "", ErrNotFound
	}
	return it.val, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.data[key] = item{val: value, deadline: deadline(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	it, ok := c.data[key]
	c.mu.RUnlock()
	return ok && it.live(time.Now()), nil
}

func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.data[key]; ok && it.live(time.Now()) {
		return false, nil
	}
	c.data[key] = item{val: value, deadline: deadline(ttl)}
	return true, nil
}

func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.data[key]
	if !ok || !it.live(time.Now()) {
		delete(c.data, key)
		return ErrNotFound
	}
	it.deadline = deadline(ttl)
	c.data[key] = it
	return nil
}
