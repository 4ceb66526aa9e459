package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rocketscienceinc/inarow-server/internal/entity"
	"github.com/rocketscienceinc/inarow-server/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParticipant() *entity.Participant {
	return &entity.Participant{
		Token:    "5f0c7a3e",
		Identity: "conn-1",
		Name:     "alice",
		Kind:     entity.KindPlayer,
		JoinedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// repositories - every implementation runs the same contract tests.
func repositories(t *testing.T) map[string]func(t *testing.T) (context.Context, ParticipantRepository) {
	t.Helper()

	return map[string]func(t *testing.T) (context.Context, ParticipantRepository){
		"redis": func(t *testing.T) (context.Context, ParticipantRepository) {
			ctx, st := suite.New(t)
			return ctx, NewParticipantRepository(st.Storage, time.Minute)
		},
		"memory": func(_ *testing.T) (context.Context, ParticipantRepository) {
			return context.Background(), NewMemoryParticipantRepository()
		},
	}
}

func TestParticipantRepository_GetByID(t *testing.T) {
	for name, setup := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("GetByID_Success", func(t *testing.T) {
				ctx, repo := setup(t)

				// Given: a stored participant
				participant := newTestParticipant()
				require.NoError(t, repo.CreateOrUpdate(ctx, participant))

				// When: GetByID is called with its token
				retrieved, err := repo.GetByID(ctx, participant.Token)

				// Then: the stored record comes back
				require.NoError(t, err)
				assert.Equal(t, participant.Identity, retrieved.Identity)
				assert.Equal(t, participant.Name, retrieved.Name)
				assert.True(t, retrieved.IsPlayer())
				assert.True(t, participant.JoinedAt.Equal(retrieved.JoinedAt))
			})

			t.Run("GetByID_NotFound", func(t *testing.T) {
				ctx, repo := setup(t)

				// When: GetByID is called with an unknown token
				retrieved, err := repo.GetByID(ctx, "missing")

				// Then: ErrParticipantNotFound is returned
				require.ErrorIs(t, err, ErrParticipantNotFound)
				assert.Nil(t, retrieved)
			})
		})
	}
}

func TestParticipantRepository_DeleteByID(t *testing.T) {
	for name, setup := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx, repo := setup(t)

			// Given: a stored participant
			participant := newTestParticipant()
			require.NoError(t, repo.CreateOrUpdate(ctx, participant))

			// When: it is deleted
			require.NoError(t, repo.DeleteByID(ctx, participant.Token))

			// Then: it can no longer be found, and deleting again is fine
			_, err := repo.GetByID(ctx, participant.Token)
			require.ErrorIs(t, err, ErrParticipantNotFound)
			require.NoError(t, repo.DeleteByID(ctx, participant.Token))
		})
	}
}

func TestParticipantRepository_Refresh(t *testing.T) {
	for name, setup := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx, repo := setup(t)

			// Given: a stored participant
			participant := newTestParticipant()
			require.NoError(t, repo.CreateOrUpdate(ctx, participant))

			// When: it is refreshed, deleted and refreshed again
			refreshed := repo.Refresh(ctx, participant.Token)
			require.NoError(t, repo.DeleteByID(ctx, participant.Token))
			missing := repo.Refresh(ctx, participant.Token)

			// Then: only the stored record can be refreshed
			require.NoError(t, refreshed)
			require.ErrorIs(t, missing, ErrParticipantNotFound)
		})
	}
}

func TestParticipantRepository_TTL(t *testing.T) {
	ctx, st := suite.New(t)
	repo := NewParticipantRepository(st.Storage, time.Minute)

	// Given: a stored participant
	participant := newTestParticipant()

	// When: CreateOrUpdate is called
	require.NoError(t, repo.CreateOrUpdate(ctx, participant))

	// Then: the key carries the configured expiry
	ttl, err := st.Storage.TTL(ctx, participantKey(participant.Token)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestParticipantRepository_RefreshRestartsTTL(t *testing.T) {
	ctx, st := suite.New(t)
	repo := NewParticipantRepository(st.Storage, time.Minute)

	// Given: a stored participant whose key is about to expire
	participant := newTestParticipant()
	require.NoError(t, repo.CreateOrUpdate(ctx, participant))
	require.NoError(t, st.Storage.Expire(ctx, participantKey(participant.Token), time.Second).Err())

	// When: Refresh is called
	require.NoError(t, repo.Refresh(ctx, participant.Token))

	// Then: the full expiry is restored
	ttl, err := st.Storage.TTL(ctx, participantKey(participant.Token)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Second)
}
