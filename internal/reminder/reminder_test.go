package reminder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/reminder"
)

// ---- mocks ---------------------------------------------------------------------

type mockTripLister struct {
	list func(ctx context.Context, from, to time.Time) ([]domain.Trip, error)
}

func (m *mockTripLister) ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Trip, error) {
	return m.list(ctx, from, to)
}

type mockInterestLister struct {
	list func(ctx context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error)
}

func (m *mockInterestLister) ListInterested(ctx context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error) {
	return m.list(ctx, tripID)
}

// recordingNotifier collects delivered reminder emails, failing delivery for
// at most one of them.
type recordingNotifier struct {
	failFor string
	sent    []string
}

func (n *recordingNotifier) Notify(_ context.Context, member domain.MemberProfile, _ domain.Trip) error {
	if n.failFor != "" && member.Email == n.failFor {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, member.Email)
	return nil
}

var (
	_ reminder.TripLister     = (*mockTripLister)(nil)
	_ reminder.InterestLister = (*mockInterestLister)(nil)
	_ reminder.Notifier       = (*recordingNotifier)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tomorrowWindow mirrors the sweep's query interval: the calendar day after
// now, half-open.
func tomorrowWindow() (time.Time, time.Time) {
	now := time.Now()
	year, month, day := now.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return from, from.AddDate(0, 0, 1)
}

// ---- tests ---------------------------------------------------------------------

func TestSweep_notifiesInterestedMembersOfTomorrowsTrips(t *testing.T) {
	wantFrom, wantTo := tomorrowWindow()
	trip := domain.Trip{ID: uuid.New(), Title: "Ruka ski weekend", StartDate: wantFrom.Add(9 * time.Hour)}

	trips := &mockTripLister{list: func(_ context.Context, from, to time.Time) ([]domain.Trip, error) {
		assert.True(t, from.Equal(wantFrom), "window start: got %v want %v", from, wantFrom)
		assert.True(t, to.Equal(wantTo), "window end: got %v want %v", to, wantTo)
		return []domain.Trip{trip}, nil
	}}
	members := &mockInterestLister{list: func(_ context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error) {
		assert.Equal(t, trip.ID, tripID)
		return []domain.MemberProfile{
			{FirstName: "Minna", Email: "minna@example.com"},
			{FirstName: "Olli", Email: "olli@example.com"},
		}, nil
	}}
	notifier := &recordingNotifier{}

	err := reminder.New(trips, members, notifier, discardLogger()).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"minna@example.com", "olli@example.com"}, notifier.sent)
}

func TestSweep_tripListFailureAbortsThePass(t *testing.T) {
	trips := &mockTripLister{list: func(_ context.Context, _, _ time.Time) ([]domain.Trip, error) {
		return nil, errors.New("connection refused")
	}}
	notifier := &recordingNotifier{}

	err := reminder.New(trips, nil, notifier, discardLogger()).Sweep(context.Background())

	require.Error(t, err)
	assert.Empty(t, notifier.sent)
}

func TestSweep_memberLookupFailureSkipsOnlyThatTrip(t *testing.T) {
	broken := domain.Trip{ID: uuid.New(), Title: "Broken"}
	healthy := domain.Trip{ID: uuid.New(), Title: "Healthy"}

	trips := &mockTripLister{list: func(_ context.Context, _, _ time.Time) ([]domain.Trip, error) {
		return []domain.Trip{broken, healthy}, nil
	}}
	members := &mockInterestLister{list: func(_ context.Context, tripID uuid.UUID) ([]domain.MemberProfile, error) {
		if tripID == broken.ID {
			return nil, errors.New("connection refused")
		}
		return []domain.MemberProfile{{Email: "minna@example.com"}}, nil
	}}
	notifier := &recordingNotifier{}

	err := reminder.New(trips, members, notifier, discardLogger()).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"minna@example.com"}, notifier.sent)
}

func TestSweep_deliveryFailureContinuesWithRemainingMembers(t *testing.T) {
	trip := domain.Trip{ID: uuid.New(), Title: "Ruka ski weekend"}

	trips := &mockTripLister{list: func(_ context.Context, _, _ time.Time) ([]domain.Trip, error) {
		return []domain.Trip{trip}, nil
	}}
	members := &mockInterestLister{list: func(_ context.Context, _ uuid.UUID) ([]domain.MemberProfile, error) {
		return []domain.MemberProfile{
			{Email: "bounce@example.com"},
			{Email: "minna@example.com"},
		}, nil
	}}
	notifier := &recordingNotifier{failFor: "bounce@example.com"}

	err := reminder.New(trips, members, notifier, discardLogger()).Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"minna@example.com"}, notifier.sent)
}

func TestLogNotifier_writesOneRecordPerReminder(t *testing.T) {
	var buf bytes.Buffer
	n := reminder.LogNotifier{Log: slog.New(slog.NewJSONHandler(&buf, nil))}

	trip := domain.Trip{ID: uuid.New(), Title: "Ruka ski weekend", StartDate: time.Now().AddDate(0, 0, 1)}
	err := n.Notify(context.Background(), domain.MemberProfile{Email: "minna@example.com"}, trip)

	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "trip reminder", record["msg"])
	assert.Equal(t, "minna@example.com", record["email"])
	assert.Equal(t, "Ruka ski weekend", record["trip_title"])
}
