package googleauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyrobo/backend/internal/apperror"
)

const stateTTL = 10 * time.Minute

// StateStore keeps OAuth states in Redis so the callback can land on any
// process. States are single-use and expire after ten minutes.
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// Issue creates a random state bound to the requesting user.
func (s *StateStore) Issue(ctx context.Context, googleID string) (string, error) {
	if s.rdb == nil {
		return "", apperror.Configuration("REDIS_ADDR is required for the Google OAuth flow")
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	state := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, stateKey(state), googleID, stateTTL).Err(); err != nil {
		return "", fmt.Errorf("storing oauth state: %w", err)
	}
	return state, nil
}

// Consume validates and deletes a state, returning the user it was issued
// for. A state can only be consumed once.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	if s.rdb == nil {
		return "", apperror.Configuration("REDIS_ADDR is required for the Google OAuth flow")
	}

	googleID, err := s.rdb.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperror.Auth("invalid or expired oauth state")
	}
	if err != nil {
		return "", fmt.Errorf("consuming oauth state: %w", err)
	}
	return googleID, nil
}

func stateKey(state string) string {
	return "oauth:state:" + state
}
