package services

import (
	"context"
	"time"

	"tujane/internal/matching-service/core/ports"
	"tujane/internal/mylogger"
)

// Sweeper evicts abandoned conversations. Rides are never touched; their
// claim window is checked when a driver claims.
type Sweeper struct {
	mylog    mylogger.Logger
	store    ports.IRequestStore
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func NewSweeper(mylog mylogger.Logger, store ports.IRequestStore, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		mylog:    mylog,
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	log := s.mylog.Action("request_sweeper")
	log.Info("sweeper started", "interval", s.interval.String(), "max_age", s.maxAge.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

func (s *Sweeper) SweepOnce() int {
	removed := s.store.Sweep(s.now(), s.maxAge)
	if removed > 0 {
		s.mylog.Action("request_sweeper").Info("expired requests removed", "count", removed)
	}
	return removed
}
