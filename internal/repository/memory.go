package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

type memoryParticipant struct {
	mu           sync.RWMutex
	participants map[string]entity.Participant
}

// NewMemoryParticipantRepository - process local repository used when redis is disabled.
func NewMemoryParticipantRepository() ParticipantRepository {
	return &memoryParticipant{
		participants: make(map[string]entity.Participant),
	}
}

func (that *memoryParticipant) CreateOrUpdate(_ context.Context, participant *entity.Participant) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.participants[participant.Token] = *participant

	return nil
}

func (that *memoryParticipant) GetByID(_ context.Context, token string) (*entity.Participant, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	participant, ok := that.participants[token]
	if !ok {
		return nil, ErrParticipantNotFound
	}

	return &participant, nil
}

func (that *memoryParticipant) DeleteByID(_ context.Context, token string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.participants, token)

	return nil
}

func (that *memoryParticipant) Refresh(_ context.Context, token string) error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if _, ok := that.participants[token]; !ok {
		return ErrParticipantNotFound
	}

	return nil
}
