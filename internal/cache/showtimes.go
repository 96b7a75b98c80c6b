package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cinematime/internal/models"
)

const DefaultShowtimeTTL = 5 * time.Minute

// ShowtimeSource is the authoritative catalog behind the cache
type ShowtimeSource interface {
	GetShowtime(ctx context.Context, showtimeID int64) (*models.Showtime, error)
}

// ShowtimeCache serves showtime lookups for seat-map rendering from Valkey.
// The booking engine never reads through it.
type ShowtimeCache struct {
	client *redis.Client
	source ShowtimeSource
	ttl    time.Duration
}

// NewShowtimeCache wraps source. A nil client disables caching.
func NewShowtimeCache(client *redis.Client, source ShowtimeSource, ttl time.Duration) *ShowtimeCache {
	if ttl <= 0 {
		ttl = DefaultShowtimeTTL
	}
	return &ShowtimeCache{client: client, source: source, ttl: ttl}
}

func showtimeKey(showtimeID int64) string {
	return fmt.Sprintf("showtime:%d", showtimeID)
}

func (c *ShowtimeCache) GetShowtime(ctx context.Context, showtimeID int64) (*models.Showtime, error) {
	if c.client == nil {
		return c.source.GetShowtime(ctx, showtimeID)
	}

	key := showtimeKey(showtimeID)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s models.Showtime
		if jsonErr := json.Unmarshal(data, &s); jsonErr == nil {
			return &s, nil
		}
		slog.Warn("Discarding corrupt cached showtime", "showtime_id", showtimeID)
	case err != redis.Nil:
		slog.Warn("Showtime cache lookup failed", "showtime_id", showtimeID, "error", err)
	}

	s, err := c.source.GetShowtime(ctx, showtimeID)
	if err != nil || s == nil {
		return s, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("Failed to cache showtime", "showtime_id", showtimeID, "error", err)
		}
	}
	return s, nil
}
