package learning

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultRebuildSchedule rebuilds the index every 15 minutes
const DefaultRebuildSchedule = "*/15 * * * *"

// Maintenance periodically rebuilds the performance index so the
// incremental cache cannot drift from the usage log over long uptimes
type Maintenance struct {
	index    *PerformanceIndex
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
}

// NewMaintenance creates a maintenance scheduler. An empty schedule
// uses DefaultRebuildSchedule.
func NewMaintenance(index *PerformanceIndex, schedule string) *Maintenance {
	if schedule == "" {
		schedule = DefaultRebuildSchedule
	}
	return &Maintenance{
		index:    index,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the rebuild job and starts the scheduler
func (mt *Maintenance) Start() error {
	entryID, err := mt.cron.AddFunc(mt.schedule, func() {
		if err := mt.index.Rebuild(context.Background()); err != nil {
			log.Error().Err(err).Msg("Scheduled index rebuild failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid rebuild schedule %q: %w", mt.schedule, err)
	}
	mt.entryID = entryID

	mt.cron.Start()

	log.Info().Str("schedule", mt.schedule).Msg("Index maintenance started")

	return nil
}

// Stop stops the scheduler and waits for a running rebuild to finish
func (mt *Maintenance) Stop() {
	ctx := mt.cron.Stop()
	<-ctx.Done()

	log.Info().Msg("Index maintenance stopped")
}
