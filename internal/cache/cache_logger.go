package cache

import (
	"context"
	"log/slog"
)

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeSet stores a value with logging
func SafeSet(ctx context.Context, helper *CacheHelper, key string, value interface{}, config CacheConfig) {
	if err := helper.Set(ctx, key, value, config.TTL); err != nil {
		slog.ErrorContext(ctx, "Failed to write cache entry",
			"error", err,
			"key", helper.GetCacheKey(key))
	}
}

// SafeUnlock releases a lock, logging instead of failing when the lock was already lost
func SafeUnlock(ctx context.Context, unlock Unlock, key string) {
	if unlock == nil {
		return
	}
	if err := unlock(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to release lock",
			"error", err,
			"key", key)
	}
}
