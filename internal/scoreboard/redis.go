package scoreboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"castle-wars/internal/config"
)

// Redis keys.
const (
	ScoresKey  = "castlewars:scores"  // Sorted set of player name by last score
	PlayersKey = "castlewars:players" // Hash of player name to last row
	MatchesKey = "castlewars:matches" // List of match results, newest first
)

// RedisStore mirrors the scoreboard into Redis.
type RedisStore struct {
	client  *redis.Client
	history int64
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisStore wraps client, keeping at most history match results.
func NewRedisStore(client *redis.Client, history int) *RedisStore {
	if history <= 0 {
		history = DefaultHistory
	}
	return &RedisStore{client: client, history: int64(history)}
}

// SaveEntry records the row and the player's score.
func (s *RedisStore) SaveEntry(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, ScoresKey, &redis.Z{Score: float64(e.Score), Member: e.Name})
	pipe.HSet(ctx, PlayersKey, e.Name, data)
	_, err = pipe.Exec(ctx)
	return err
}

// SaveMatch pushes a match result and trims the history.
func (s *RedisStore) SaveMatch(ctx context.Context, m MatchResult) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, MatchesKey, data)
	pipe.LTrim(ctx, MatchesKey, 0, s.history-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Matches returns up to n stored match results, newest first.
func (s *RedisStore) Matches(ctx context.Context, n int) ([]MatchResult, error) {
	raw, err := s.client.LRange(ctx, MatchesKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]MatchResult, 0, len(raw))
	for _, r := range raw {
		var m MatchResult
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
