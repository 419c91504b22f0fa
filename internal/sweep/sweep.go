// Package sweep periodically escalates stale open tickets so they do
// not sit unnoticed in the queue.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// TicketEscalator is the slice of the store the sweep needs.
type TicketEscalator interface {
	OpenTicketsBefore(cutoff time.Time) ([]protocol.Ticket, error)
	SetTicketPriority(ticketID int64, priority protocol.TicketPriority) error
}

// Sweeper bumps open tickets older than MaxAge to high priority on a
// cron schedule.
type Sweeper struct {
	store    TicketEscalator
	schedule string
	maxAge   time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

// New creates a sweeper. schedule is a cron expression or a predefined
// schedule like "@hourly".
func New(store TicketEscalator, schedule string, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and runs the scheduler. Blocks until
// context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Sweep(); err != nil {
			s.logger.Error("ticket sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("sweep: invalid schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("ticket sweep started", "schedule", s.schedule, "max_age", s.maxAge)

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("ticket sweep stopped")
	return ctx.Err()
}

// Sweep runs one escalation pass. Already-high tickets are left alone.
func (s *Sweeper) Sweep() error {
	cutoff := time.Now().Add(-s.maxAge)
	stale, err := s.store.OpenTicketsBefore(cutoff)
	if err != nil {
		return fmt.Errorf("sweep: list stale tickets: %w", err)
	}

	escalated := 0
	for _, t := range stale {
		if t.Priority == protocol.PriorityHigh {
			continue
		}
		if err := s.store.SetTicketPriority(t.ID, protocol.PriorityHigh); err != nil {
			s.logger.Error("escalation failed", "ticket", t.ID, "error", err)
			continue
		}
		escalated++
		s.logger.Info("ticket escalated",
			"ticket", t.ID,
			"customer", t.CustomerID,
			"age", time.Since(t.CreatedAt).Round(time.Hour),
		)
	}

	if escalated > 0 {
		s.logger.Info("sweep complete", "stale", len(stale), "escalated", escalated)
	}
	return nil
}
