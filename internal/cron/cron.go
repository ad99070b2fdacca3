package cron

import (
	"context"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
	"github.com/mkasajim/realtime-gmail-monitor/internal/tracing"
)

const (
	// GroupWatch is the group for watch-renewal jobs
	GroupWatch = "watch"

	renewTimeout = 2 * time.Minute
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupWatch: new(sync.Mutex),
	},
}

// CronManager keeps Gmail watch registrations alive. Watches expire after
// about a week; the renewal job re-registers every account well before that.
type CronManager struct {
	cfg      *config.Config
	log      logger.Logger
	cron     *cronv3.Cron
	stopCh   chan struct{}
	jobIDs   map[string]cronv3.EntryID
	registry *registry.Registry
}

func NewCronManager(cfg *config.Config, log logger.Logger, accountRegistry *registry.Registry) *CronManager {
	return &CronManager{
		cfg:      cfg,
		log:      log,
		stopCh:   make(chan struct{}),
		jobIDs:   make(map[string]cronv3.EntryID),
		registry: accountRegistry,
	}
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")
	// Create a new cron with seconds field enabled and panic recovery
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		// Wait for jobs to finish
		<-ctx.Done()
	}
	close(cm.stopCh)
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	schedule := cm.cfg.AppConfig.WatchRenewalSchedule
	if schedule == "" {
		cm.log.Warn("Watch renewal schedule is empty, watches will expire silently")
		return
	}

	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		jobLocks.locks[GroupWatch].Lock()
		defer jobLocks.locks[GroupWatch].Unlock()
		cm.renewWatches()
	})
	if err != nil {
		cm.log.Fatalf("Could not add watch renewal cron job: %v", err)
	}
	cm.jobIDs["watch_renewal"] = id
	cm.log.Infof("Registered watch renewal job with schedule: %s", schedule)
}

func (cm *CronManager) renewWatches() {
	cm.log.Info("Running watch renewal")

	ctx, cancel := context.WithTimeout(context.Background(), renewTimeout)
	defer cancel()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.renewWatches")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	topicName := cm.cfg.AppConfig.TopicName()
	for _, account := range cm.registry.All() {
		expiration, err := account.Provider.Watch(ctx, topicName)
		if err != nil {
			// other accounts still get renewed
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to renew watch for %s: %v", account.Account.Name, err)
			continue
		}
		account.SetWatchExpiration(expiration)
		cm.log.Infof("Renewed watch for %s, expires %s", account.Account.Name, expiration.Format(time.RFC3339))
	}
}
