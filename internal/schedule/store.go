package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists availability profiles in redis, one JSON value per provider.
type Store struct {
	redis *redis.Client
}

// NewStore creates a profile store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(providerID string) string {
	return fmt.Sprintf("availability:profile:%s", providerID)
}

// Get retrieves a provider's profile. An absent profile is not an error: the
// default (inactive) profile is returned instead.
func (s *Store) Get(ctx context.Context, providerID string) (*AvailabilityProfile, error) {
	data, err := s.redis.Get(ctx, s.key(providerID)).Bytes()
	if err == redis.Nil {
		return DefaultProfile(providerID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get profile: %w", err)
	}

	var profile AvailabilityProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("schedule: unmarshal profile: %w", err)
	}
	return &profile, nil
}

// Set validates and saves a profile with full-replace semantics.
func (s *Store) Set(ctx context.Context, profile *AvailabilityProfile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("schedule: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(profile.ProviderID), data, 0).Err(); err != nil {
		return fmt.Errorf("schedule: set profile: %w", err)
	}
	return nil
}
