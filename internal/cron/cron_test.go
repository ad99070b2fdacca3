package cron

import (
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testConfig(schedule string) *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{
			GCPProjectID:         "test-project",
			PubSubTopicID:        "test-topic",
			WatchRenewalSchedule: schedule,
		},
		Logger: &logger.Config{
			LogLevel: "info",
		},
	}
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := testConfig("0 0 */12 * * *")
	log := getLogger()
	r := registry.NewRegistry()

	// Act
	cm := NewCronManager(cfg, log, r)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, r, cm.registry)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	// Arrange
	cm := NewCronManager(testConfig("0 0 */12 * * *"), getLogger(), registry.NewRegistry())
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	cm.registerJobs(c)

	// Assert
	assert.Len(t, cm.jobIDs, 1)
	assert.Contains(t, cm.jobIDs, "watch_renewal")
}

func TestCronManager_RegisterJobsWithoutSchedule(t *testing.T) {
	// Arrange
	cm := NewCronManager(testConfig(""), getLogger(), registry.NewRegistry())
	c := cronv3.New(cronv3.WithSeconds())

	// Act
	cm.registerJobs(c)

	// Assert
	assert.Empty(t, cm.jobIDs)
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cm := NewCronManager(testConfig("0 0 */12 * * *"), getLogger(), registry.NewRegistry())

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}
