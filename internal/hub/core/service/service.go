package service

import (
	"time"

	"github.com/go-playground/validator/v10"

	"buswatch.io/buswatch/internal/hub/core"
	"buswatch.io/buswatch/pkg/log"
)

// Service implements the tracking core use cases: gating location updates,
// the dual write, triggering fan-out, and the read-side queries. It holds
// no state of its own; everything lives behind the injected ports.
type Service struct {
	catalog   core.VehicleCatalog
	store     core.PositionStore
	stops     core.StopIndex
	notifiers []core.UpdateNotifier

	validate *validator.Validate
	now      func() time.Time
	log      log.Logger
}

// New creates the tracking service. Notifiers receive every accepted update
// after persistence succeeded; persistence gates broadcast.
func New(catalog core.VehicleCatalog, store core.PositionStore, stops core.StopIndex, notifiers ...core.UpdateNotifier) *Service {
	return &Service{
		catalog:   catalog,
		store:     store,
		stops:     stops,
		notifiers: notifiers,
		validate:  validator.New(),
		now:       time.Now,
		log:       log.WithName("tracker"),
	}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
