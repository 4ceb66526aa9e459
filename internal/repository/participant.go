package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

var ErrParticipantNotFound = errors.New("participant not found")

// ParticipantRepository - session records of accepted clients, keyed by join token.
type ParticipantRepository interface {
	CreateOrUpdate(ctx context.Context, participant *entity.Participant) error
	GetByID(ctx context.Context, token string) (*entity.Participant, error)
	DeleteByID(ctx context.Context, token string) error
	// Refresh - restarts the expiry of a stored record, ErrParticipantNotFound when it is gone.
	Refresh(ctx context.Context, token string) error
}

type dbParticipant struct {
	client *redis.Client
	ttl    time.Duration
}

// NewParticipantRepository - redis backed repository, records expire after ttl (0 keeps them).
func NewParticipantRepository(client *redis.Client, ttl time.Duration) ParticipantRepository {
	return &dbParticipant{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbParticipant) CreateOrUpdate(ctx context.Context, participant *entity.Participant) error {
	participantJSON, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("failed to marshal participant: %w", err)
	}

	err = that.client.Set(ctx, participantKey(participant.Token), participantJSON, that.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set participant: %w", err)
	}

	return nil
}

func (that *dbParticipant) GetByID(ctx context.Context, token string) (*entity.Participant, error) {
	response, err := that.client.Get(ctx, participantKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrParticipantNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get participant by ID: %w", err)
	}

	var participant entity.Participant
	if err = json.Unmarshal([]byte(response), &participant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal participant: %w", err)
	}

	return &participant, nil
}

func (that *dbParticipant) DeleteByID(ctx context.Context, token string) error {
	if err := that.client.Del(ctx, participantKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}

	return nil
}

func (that *dbParticipant) Refresh(ctx context.Context, token string) error {
	key := participantKey(token)

	var (
		found bool
		err   error
	)

	if that.ttl > 0 {
		found, err = that.client.Expire(ctx, key, that.ttl).Result()
	} else {
		var count int64
		count, err = that.client.Exists(ctx, key).Result()
		found = count > 0
	}

	if err != nil {
		return fmt.Errorf("failed to refresh participant: %w", err)
	}

	if !found {
		return ErrParticipantNotFound
	}

	return nil
}

func participantKey(token string) string {
	return "participant:" + token
}
