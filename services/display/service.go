// Package display is the sole gate between reconciliation and the operator:
// it deduplicates item ids process-wide and renders accepted items.
package display

import (
	"github.com/mkasajim/realtime-gmail-monitor/internal/dedup"
	"github.com/mkasajim/realtime-gmail-monitor/internal/logger"
	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

// Renderer draws one accepted message for the operator.
type Renderer interface {
	Render(email *models.Email, accountLabel string)
}

type Service struct {
	cache    *dedup.Cache
	renderer Renderer
	log      logger.Logger
}

func NewService(cache *dedup.Cache, renderer Renderer, log logger.Logger) *Service {
	return &Service{
		cache:    cache,
		renderer: renderer,
		log:      log,
	}
}

// TryDisplay renders the message unless its id has already been displayed
// within this process lifetime. The dedup check and insert are one atomic
// step, so concurrent passes can never double-display an id.
func (s *Service) TryDisplay(email *models.Email, accountLabel string) bool {
	if email == nil {
		return false
	}

	if !s.cache.Observe(email.ID) {
		s.log.Debugf("Skipping duplicate display for message id %s", email.ID)
		return false
	}

	s.renderer.Render(email, accountLabel)
	return true
}

func (s *Service) CachedIds() int {
	return s.cache.Len()
}
