package job

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"collab-service/internal/metrics"
	"collab-service/internal/service"
)

// PresenceSweeper purges offline presence entries whose reconnect grace
// window has elapsed and refreshes the room/member gauges.
type PresenceSweeper struct {
	presenceService *service.PresenceService
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewPresenceSweeper(
	presenceService *service.PresenceService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PresenceSweeper {
	return &PresenceSweeper{
		presenceService: presenceService,
		metrics:         m,
		logger:          logger,
	}
}

// Run executes one sweep.
func (j *PresenceSweeper) Run() {
	purged := j.presenceService.Sweep(time.Now())
	if purged > 0 {
		j.metrics.PresencePurgedTotal.Add(float64(purged))
		j.logger.Info("purged expired presence entries", zap.Int("count", purged))
	}

	rooms, online := j.presenceService.Stats()
	j.metrics.RoomsActive.Set(float64(rooms))
	j.metrics.MembersOnline.Set(float64(online))
}

// Schedule registers the sweeper on a cron runner. spec is a cron spec such
// as "@every 30s".
func (j *PresenceSweeper) Schedule(c *cron.Cron, spec string) error {
	_, err := c.AddJob(spec, j)
	return err
}
