package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxResetAttempts bounds guesses against a single issued code.
const maxResetAttempts = 5

// ResetCodeStore keeps password reset codes in Redis.
// Key format: reset:<email>:code and reset:<email>:attempts
type ResetCodeStore struct {
	client *redis.Client
}

// NewResetCodeStore creates a ResetCodeStore wrapping the given Redis client.
func NewResetCodeStore(client *redis.Client) *ResetCodeStore {
	return &ResetCodeStore{client: client}
}

// Save stores code for email, replacing any earlier code and resetting the attempt budget.
func (s *ResetCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.codeKey(email), code, ttl)
		p.Set(ctx, s.attemptsKey(email), 0, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset code save: %w", err)
	}
	return nil
}

// Consume checks code against the stored one. A match deletes the code; the
// code is also dropped once the attempt budget is spent.
func (s *ResetCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	attempts, err := s.client.Incr(ctx, s.attemptsKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("reset code attempts: %w", err)
	}

	stored, err := s.client.Get(ctx, s.codeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		s.forget(ctx, email)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reset code lookup: %w", err)
	}

	if attempts > maxResetAttempts {
		s.forget(ctx, email)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}

	s.forget(ctx, email)
	return true, nil
}

func (s *ResetCodeStore) forget(ctx context.Context, email string) {
	_ = s.client.Del(ctx, s.codeKey(email), s.attemptsKey(email)).Err()
}

func (s *ResetCodeStore) codeKey(email string) string {
	return fmt.Sprintf("reset:%s:code", email)
}

func (s *ResetCodeStore) attemptsKey(email string) string {
	return fmt.Sprintf("reset:%s:attempts", email)
}
