package internal

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mkasajim/realtime-gmail-monitor/config"
	monitor_errors "github.com/mkasajim/realtime-gmail-monitor/errors"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/registry"
	"github.com/mkasajim/realtime-gmail-monitor/internal/repository"
	"github.com/mkasajim/realtime-gmail-monitor/services/gmail"
)

// InitAccounts loads the configured account list, authenticates each account,
// loads its cursor and registers its watch. Setup failures are isolated per
// account: the failing account is skipped, the rest proceed. Having zero
// usable accounts at the end is fatal.
func InitAccounts(
	ctx context.Context,
	cfg *config.Config,
	log logger.Logger,
	repos *repository.Repositories,
	accountRegistry *registry.Registry,
) error {
	accounts, err := config.LoadAccounts(cfg.AppConfig.AccountsFile)
	if err != nil {
		return err
	}

	topicName := cfg.AppConfig.TopicName()

	for i := range accounts {
		account := &accounts[i]
		log.Infof("Setting up account: %s (%s)", account.Name, account.Email)

		provider, err := gmail.NewService(ctx, account, cfg.AppConfig.CredentialsFile, log)
		if err != nil {
			if errors.Is(err, monitor_errors.ErrCredentialsMissing) {
				// shared client secret; no account can work without it
				return err
			}
			log.Errorf("Failed to set up %s: %v", account.Name, err)
			continue
		}

		if err := provider.CheckConnection(ctx); err != nil {
			log.Errorf("Connection check failed for %s, verify credentials: %v", account.Name, err)
			continue
		}

		cursor, err := repos.CursorRepository.Load(ctx, account)
		if err != nil {
			log.Errorf("Failed to load cursor for %s: %v", account.Name, err)
		}
		if cursor.Empty() {
			log.Infof("No stored cursor for %s (first run)", account.Name)
		} else {
			log.Debugf("Loaded cursor for %s: history id %s, last seen %s",
				account.Name, cursor.LastHistoryId, cursor.LastSeenMessageId)
		}

		monitored := registry.NewMonitoredAccount(account, provider, cursor)

		expiration, err := provider.Watch(ctx, topicName)
		if err != nil {
			log.Errorf("Failed to start watching %s: %v", account.Name, err)
			continue
		}
		monitored.SetWatchExpiration(expiration)

		accountRegistry.Add(monitored)
		log.Infof("Watching %s (%s), watch expires %s", account.Name, account.Email, expiration)
	}

	if accountRegistry.Len() == 0 {
		return monitor_errors.ErrNoAccountsConfigured
	}
	return nil
}
