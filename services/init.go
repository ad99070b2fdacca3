package services

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	"github.com/mkasajim/realtime-gmail-monitor/interfaces"
	"github.com/mkasajim/realtime-gmail-monitor/internal/dedup"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
	"github.com/mkasajim/realtime-gmail-monitor/internal/repository"
	"github.com/mkasajim/realtime-gmail-monitor/services/bus"
	"github.com/mkasajim/realtime-gmail-monitor/services/display"
	"github.com/mkasajim/realtime-gmail-monitor/services/reconciler"
)

type Services struct {
	DisplayService    interfaces.DisplayGate
	ReconcilerService interfaces.Reconciler
	Bus               interfaces.NotificationBus
}

func InitServices(
	ctx context.Context,
	cfg *config.Config,
	log logger.Logger,
	repos *repository.Repositories,
	accountRegistry *registry.Registry,
) (*Services, error) {
	cache := dedup.NewCache(cfg.Display.CacheCeiling, cfg.Display.CacheFloor)
	displayService := display.NewService(cache, display.NewPanelRenderer(os.Stdout), log)

	reconcilerService := reconciler.NewService(
		accountRegistry,
		repos.CursorRepository,
		displayService,
		cfg.Reconciler,
		log,
	)

	notificationBus, err := initBus(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		DisplayService:    displayService,
		ReconcilerService: reconcilerService,
		Bus:               notificationBus,
	}, nil
}

func initBus(ctx context.Context, cfg *config.Config, log logger.Logger) (interfaces.NotificationBus, error) {
	switch cfg.AppConfig.BusProvider {
	case "pubsub":
		return bus.NewPubSubBus(ctx, cfg.AppConfig.GCPProjectID, cfg.AppConfig.PubSubSubscriptionID, log)
	case "rabbitmq":
		return bus.NewRabbitMQBus(cfg.AppConfig.RabbitMQURL, cfg.AppConfig.RabbitMQQueue, log)
	default:
		return nil, errors.Errorf("unknown bus provider: %s", cfg.AppConfig.BusProvider)
	}
}
