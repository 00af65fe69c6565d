package rdx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient builds a client for addr. It does not dial.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Ping checks the connection.
func Ping(ctx context.Context, conn *redis.Client) error {
	if err := conn.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

const revokedPrefix = "auth:revoked:"

// TokenDenylist remembers logged-out token ids until they would have expired.
type TokenDenylist struct {
	conn *redis.Client
}

func NewTokenDenylist(conn *redis.Client) *TokenDenylist {
	return &TokenDenylist{conn: conn}
}

func (d *TokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.conn.Set(ctx, revokedPrefix+jti, 1, ttl).Err()
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.conn.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const (
	activityPrefix = "activity:"
	activityLimit  = 100
)

// ActivityFeed keeps the most recent activity entries per user in a capped list.
type ActivityFeed struct {
	conn *redis.Client
}

func NewActivityFeed(conn *redis.Client) *ActivityFeed {
	return &ActivityFeed{conn: conn}
}

// Push prepends v to userID's feed and trims it.
func (f *ActivityFeed) Push(ctx context.Context, userID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	key := activityPrefix + userID
	pipe := f.conn.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, activityLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n raw entries, newest first.
func (f *ActivityFeed) Recent(ctx context.Context, userID string, n int64) ([]json.RawMessage, error) {
	if n <= 0 || n > activityLimit {
		n = activityLimit
	}
	items, err := f.conn.LRange(ctx, activityPrefix+userID, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, len(items))
	for i, it := range items {
		out[i] = json.RawMessage(it)
	}
	return out, nil
}
