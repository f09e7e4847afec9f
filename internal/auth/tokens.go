package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/campushr/campushr/internal/shared"
)

// TokenStore keeps opaque bearer tokens in Redis with a sliding TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

type tokenPayload struct {
	AccountID int64  `json:"account_id"`
	TeacherID int64  `json:"teacher_id,omitempty"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
}

// Issue stores the identity under a fresh token.
func (s *TokenStore) Issue(ctx context.Context, id shared.Identity) (string, error) {
	token := generateToken()
	data, err := json.Marshal(tokenPayload{
		AccountID: id.AccountID,
		TeacherID: id.TeacherID,
		Email:     id.Email,
		Admin:     id.Admin,
	})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisKey(token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the identity behind a token and refreshes its TTL.
func (s *TokenStore) Resolve(ctx context.Context, token string) (shared.Identity, error) {
	data, err := s.client.Get(ctx, redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Identity{}, shared.ErrUnauthorized
		}
		return shared.Identity{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Corrupt entry: drop it and treat the token as invalid.
		_ = s.client.Del(ctx, redisKey(token)).Err()
		return shared.Identity{}, shared.ErrUnauthorized
	}
	_ = s.client.Expire(ctx, redisKey(token), s.ttl).Err()
	return shared.Identity{
		AccountID: payload.AccountID,
		TeacherID: payload.TeacherID,
		Email:     payload.Email,
		Admin:     payload.Admin,
	}, nil
}

// Revoke deletes a token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

func redisKey(token string) string {
	return "auth:token:" + token
}

func generateToken() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
