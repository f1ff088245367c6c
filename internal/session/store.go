// Package session implements the storefront's native customer session: an opaque
// cookie value that maps to a Redis record describing the signed-in customer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when the session id is unknown or expired.
var ErrNotFound = errors.New("session: not found")

// Data is the payload stored for a native session.
type Data struct {
	ID          string    `json:"-"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists native sessions in Redis.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewStore constructs a Store.
func NewStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// TTL exposes the configured session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session and returns it with a fresh id.
func (s *Store) Create(ctx context.Context, data Data) (*Data, error) {
	data.ID = uuid.NewString()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.key(data.ID), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}
	return &data, nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	data.ID = id
	return &data, nil
}

// Destroy deletes a session. Unknown ids are not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: destroy: %w", err)
	}
	return nil
}

func (s *Store) key(id string) string {
	return s.keyPrefix + "session:" + id
}
