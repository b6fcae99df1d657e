package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gHajnal/OppaTalent/internal/model"
)

// QuizCache memoizes generated quizzes so re-generating from the same
// content and configuration does not burn tokens twice.
type QuizCache interface {
	Get(ctx context.Context, content string, cfg model.GenerateConfig) (*model.Quiz, error)
	Set(ctx context.Context, content string, cfg model.GenerateConfig, quiz *model.Quiz) error
}

type quizCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQuizCache creates a Redis-backed quiz cache with a 2 hour TTL.
func NewQuizCache(client *redis.Client) QuizCache {
	return &quizCache{
		client: client,
		ttl:    2 * time.Hour,
	}
}

func (c *quizCache) key(content string, cfg model.GenerateConfig) string {
	cfgJSON, _ := json.Marshal(cfg)
	sum := md5.Sum(append([]byte(content), cfgJSON...))
	return "quiz:" + hex.EncodeToString(sum[:])
}

func (c *quizCache) Get(ctx context.Context, content string, cfg model.GenerateConfig) (*model.Quiz, error) {
	data, err := c.client.Get(ctx, c.key(content, cfg)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quiz cache get: %w", err)
	}
	var quiz model.Quiz
	if err := json.Unmarshal([]byte(data), &quiz); err != nil {
		return nil, fmt.Errorf("quiz cache decode: %w", err)
	}
	return &quiz, nil
}

func (c *quizCache) Set(ctx context.Context, content string, cfg model.GenerateConfig, quiz *model.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(content, cfg), data, c.ttl).Err()
}
