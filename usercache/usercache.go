// Package usercache is a bounded-TTL read cache for user records. It is an
// explicit component owned by its caller; nothing here is module-level state.
package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pulsefit/pulsefit-server/apperr"
	"github.com/pulsefit/pulsefit-server/cache"
	"github.com/pulsefit/pulsefit-server/model"
	"gorm.io/gorm"
)

// Cache loads users through the KV cache with a bounded TTL.
type Cache struct {
	db  *gorm.DB
	kv  cache.Cache
	ttl time.Duration
}

// New creates a user cache. A non-positive ttl falls back to one minute.
func New(db *gorm.DB, kv cache.Cache, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{db: db, kv: kv, ttl: ttl}
}

func key(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

// Get returns the user by id, from cache when fresh.
func (c *Cache) Get(ctx context.Context, id int64) (*model.User, error) {
	if raw, err := c.kv.Get(ctx, key(id)); err == nil {
		var u model.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			return &u, nil
		}
	}

	var u model.User
	err := c.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "load user", err)
	}

	if raw, err := json.Marshal(&u); err == nil {
		_ = c.kv.Set(ctx, key(id), string(raw), c.ttl)
	}
	return &u, nil
}

// Invalidate drops the cached entry, e.g. after a privacy settings update.
func (c *Cache) Invalidate(ctx context.Context, id int64) {
	_ = c.kv.Del(ctx, key(id))
}
