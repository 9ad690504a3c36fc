package job

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
	"collab-service/internal/repository"
	"collab-service/internal/service"
)

func newSweeperFixture(grace time.Duration) (*PresenceSweeper, *service.PresenceService) {
	svc := service.NewPresenceService(repository.NewPresenceRepository(nil), zap.NewNop(), grace)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	return NewPresenceSweeper(svc, m, zap.NewNop()), svc
}

func TestPresenceSweeper_PurgesExpiredEntries(t *testing.T) {
	sweeper, svc := newSweeperFixture(10 * time.Second)
	userID := uuid.New()

	_, _, err := svc.Join(context.Background(), "file:42", service.JoinInput{
		UserID:   userID,
		Username: "alice",
		Role:     domain.RoleEditor,
	})
	require.NoError(t, err)

	_, transitioned := svc.Leave(context.Background(), "file:42", userID)
	require.True(t, transitioned)

	// Within the grace window nothing is purged.
	sweeper.Run()
	rooms, _ := svc.Stats()
	assert.Equal(t, 1, rooms)

	// Past the window the entry and the now-empty room go away.
	assert.Equal(t, 1, svc.Sweep(time.Now().Add(time.Minute)))
	rooms, online := svc.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, online)
}

func TestPresenceSweeper_LeavesOnlineUsersAlone(t *testing.T) {
	sweeper, svc := newSweeperFixture(time.Nanosecond)

	_, _, err := svc.Join(context.Background(), "file:42", service.JoinInput{
		UserID:   uuid.New(),
		Username: "alice",
		Role:     domain.RoleEditor,
	})
	require.NoError(t, err)

	sweeper.Run()

	rooms, online := svc.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, online)
}

func TestPresenceSweeper_Schedule(t *testing.T) {
	sweeper, _ := newSweeperFixture(10 * time.Second)
	c := cron.New()

	assert.NoError(t, sweeper.Schedule(c, "@every 30s"))
	assert.Error(t, sweeper.Schedule(c, "not a cron spec"))
}
