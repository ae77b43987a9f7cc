package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DHX/model"

	"github.com/go-redis/redis/v8"
)

const (
	SessionKey     = "dhx:session"
	SessionChannel = "dhx:session:events"
	sessionTTL     = 24 * time.Hour
)

// SessionCache 保存最新的会话快照并广播给其他进程
type SessionCache struct {
	client *redis.Client
}

// NewSessionCache 创建会话缓存
func NewSessionCache() *SessionCache {
	return &SessionCache{client: RedisClient}
}

// Publish 写入快照并在频道上发布
func (c *SessionCache) Publish(ctx context.Context, snap model.Snapshot) error {
	if c == nil || c.client == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, SessionKey, data, sessionTTL)
	pipe.Publish(ctx, SessionChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish session: %w", err)
	}
	return nil
}

// Latest 读取最近一次发布的快照
func (c *SessionCache) Latest(ctx context.Context) (*model.Snapshot, error) {
	if c == nil || c.client == nil {
		return nil, ErrNotConnected
	}
	data, err := c.client.Get(ctx, SessionKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Subscribe 订阅会话频道，直到ctx结束
func (c *SessionCache) Subscribe(ctx context.Context, fn func(model.Snapshot)) error {
	if c == nil || c.client == nil {
		return ErrNotConnected
	}
	sub := c.client.Subscribe(ctx, SessionChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var snap model.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				continue
			}
			fn(snap)
		}
	}
}
