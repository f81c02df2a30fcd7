package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures RedisSink. With PerPostType set every event is also
// published on <channel>:<post_type>, so a front end cache for one content
// type can subscribe to its own changes only.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Channel     string `yaml:"channel"`
	PerPostType bool   `yaml:"per_post_type"`
	Filter      `yaml:",inline"`
}

const defaultRedisChannel = "guide-cms:events"

// RedisSink publishes events via Redis Pub/Sub.
type RedisSink struct {
	Client      *redis.Client
	Channel     string
	PerPostType bool
}

// NewRedisSink returns a RedisSink based on config.
func NewRedisSink(c RedisConfig) (*RedisSink, error) {
	if !c.Enabled || c.DSN == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("redis dsn: %w", err)
	}
	ch := c.Channel
	if ch == "" {
		ch = defaultRedisChannel
	}
	return &RedisSink{Client: redis.NewClient(opt), Channel: ch, PerPostType: c.PerPostType}, nil
}

// Channels returns the channels e is published on.
func (s *RedisSink) Channels(e Event) []string {
	out := []string{s.Channel}
	if s.PerPostType && e.PostType != "" {
		out = append(out, s.Channel+":"+e.PostType)
	}
	return out
}

func (s *RedisSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.Client == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.Client.Pipeline()
	for _, ch := range s.Channels(e) {
		pipe.Publish(ctx, ch, data)
	}
	_, err = pipe.Exec(ctx)
	return err
}
