package rollover

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campushr/campushr/internal/periods"
)

type fakeStore struct {
	expired []periods.Period
	closed  map[int64]Closed
	calls   map[int64]int
	failOn  int64
}

func newFakeStore(expired ...periods.Period) *fakeStore {
	return &fakeStore{
		expired: expired,
		closed:  make(map[int64]Closed),
		calls:   make(map[int64]int),
	}
}

func (f *fakeStore) FindExpired(context.Context, time.Time) ([]periods.Period, error) {
	return f.expired, nil
}

func (f *fakeStore) CloseOut(_ context.Context, p periods.Period, note string) (Closed, error) {
	if f.failOn == p.ID {
		return Closed{}, errors.New("boom")
	}
	f.calls[p.ID]++
	if f.calls[p.ID] > 1 {
		// Compare-and-swap already flipped the flag.
		return Closed{}, nil
	}
	c, ok := f.closed[p.ID]
	if !ok {
		c = Closed{Swept: true}
	}
	return c, nil
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newService(store Store) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, store)
	svc.WithClock(func() time.Time { return day("2026-09-01") })
	return svc
}

func TestSweepClosesExpiredPeriods(t *testing.T) {
	store := newFakeStore(
		periods.Period{ID: 1, EndDate: day("2026-08-31"), Active: true},
		periods.Period{ID: 2, EndDate: day("2026-07-31"), Active: true},
	)
	store.closed[1] = Closed{Swept: true, RejectedLeave: 3, RejectedBirthday: 1, ResetBalances: 5}
	store.closed[2] = Closed{Swept: true, RejectedLeave: 2, ResetBalances: 1}

	report, err := newService(store).Sweep(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2}, report.SweptPeriods)
	require.EqualValues(t, 5, report.RejectedLeave)
	require.EqualValues(t, 1, report.RejectedBirthday)
	require.EqualValues(t, 6, report.ResetBalances)
	require.NotEmpty(t, report.FinishedAt)
}

func TestSweepWithNothingExpired(t *testing.T) {
	report, err := newService(newFakeStore()).Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.SweptPeriods)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newFakeStore(periods.Period{ID: 1, EndDate: day("2026-08-31"), Active: true})
	store.closed[1] = Closed{Swept: true, RejectedLeave: 4}
	svc := newService(store)

	first, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1}, first.SweptPeriods)

	second, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, second.SweptPeriods)
	require.Zero(t, second.RejectedLeave)
}

func TestSweepStopsOnStoreError(t *testing.T) {
	store := newFakeStore(
		periods.Period{ID: 1, EndDate: day("2026-08-31"), Active: true},
		periods.Period{ID: 2, EndDate: day("2026-07-31"), Active: true},
	)
	store.failOn = 1

	_, err := newService(store).Sweep(context.Background())
	require.Error(t, err)
}
