// Package reminder implements the daily sweep that notifies interested
// members of trips starting the next day.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tripdesk/backend/internal/domain"
)

// runHour is the local hour of day the sweep fires at.
const runHour = 1

// TripLister is the slice of the trip repo the sweep reads.
type TripLister interface {
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Trip, error)
}

// InterestLister is the slice of the membership repo the sweep reads.
type InterestLister interface {
	ListInterested(ctx context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error)
}

// Notifier delivers one trip reminder to one member.
type Notifier interface {
	Notify(ctx context.Context, member domain.MemberProfile, trip domain.Trip) error
}

// LogNotifier is the default Notifier: it writes the reminder to the log.
// Deployments with a mail gateway substitute their own implementation.
type LogNotifier struct {
	Log *slog.Logger
}

// Notify logs one reminder.
func (n LogNotifier) Notify(ctx context.Context, member domain.MemberProfile, trip domain.Trip) error {
	n.Log.InfoContext(ctx, "trip reminder",
		"email", member.Email,
		"trip_title", trip.Title,
		"start_date", trip.StartDate,
	)
	return nil
}

// Sweeper finds trips starting tomorrow and reminds their interested members.
type Sweeper struct {
	trips    TripLister
	members  InterestLister
	notifier Notifier
	log      *slog.Logger
}

// New constructs a Sweeper.
func New(trips TripLister, members InterestLister, notifier Notifier, log *slog.Logger) *Sweeper {
	return &Sweeper{
		trips:    trips,
		members:  members,
		notifier: notifier,
		log:      log,
	}
}

// Run sweeps once a day at runHour local time until ctx is cancelled.
// Run never returns a sweep failure; it logs and waits for the next day.
func (s *Sweeper) Run(ctx context.Context) {
	timer := time.NewTimer(time.Until(nextRunAfter(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.Sweep(ctx); err != nil {
			s.log.ErrorContext(ctx, "reminder sweep failed", "error", err)
		}
		timer.Reset(time.Until(nextRunAfter(time.Now())))
	}
}

// Sweep runs one pass: every non-deleted trip starting tomorrow has its
// interested members notified. Member lookups and deliveries are best-effort;
// their failures are logged and the pass moves on. Only the trip listing
// itself can fail the pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	from, to := reminderWindow(time.Now())
	trips, err := s.trips.ListStartingBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("reminder.Sweeper.Sweep: %w", err)
	}

	for _, trip := range trips {
		members, err := s.members.ListInterested(ctx, trip.ID)
		if err != nil {
			s.log.ErrorContext(ctx, "reminder: list interested members", "trip_id", trip.ID, "error", err)
			continue
		}
		for _, member := range members {
			if err := s.notifier.Notify(ctx, member, trip); err != nil {
				s.log.ErrorContext(ctx, "reminder: notify member", "trip_id", trip.ID, "email", member.Email, "error", err)
			}
		}
	}
	return nil
}

// reminderWindow returns the [from, to) interval covering the calendar day
// after now, in now's location.
func reminderWindow(now time.Time) (time.Time, time.Time) {
	year, month, day := now.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return from, from.AddDate(0, 0, 1)
}

// nextRunAfter returns the next occurrence of runHour strictly after now.
func nextRunAfter(now time.Time) time.Time {
	year, month, day := now.Date()
	next := time.Date(year, month, day, runHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
