package leave

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/campushr/campushr/internal/directory"
	"github.com/campushr/campushr/internal/entitlement"
	"github.com/campushr/campushr/internal/periods"
	"github.com/campushr/campushr/internal/shared"
)

type balanceKey struct {
	teacherID int64
	periodID  int64
}

type fakeRepo struct {
	requests map[int64]Request
	balances map[balanceKey]int
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests: make(map[int64]Request),
		balances: make(map[balanceKey]int),
		nextID:   1,
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	reqSnap := make(map[int64]Request, len(f.requests))
	for k, v := range f.requests {
		reqSnap[k] = v
	}
	balSnap := make(map[balanceKey]int, len(f.balances))
	for k, v := range f.balances {
		balSnap[k] = v
	}
	if err := fn(ctx, f); err != nil {
		f.requests = reqSnap
		f.balances = balSnap
		return err
	}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return Request{}, shared.ErrNotFound
	}
	return req, nil
}

func (f *fakeRepo) ListByTeacher(_ context.Context, teacherID, periodID int64) ([]Request, error) {
	var list []Request
	for _, r := range f.requests {
		if r.TeacherID == teacherID && r.PeriodID == periodID {
			list = append(list, r)
		}
	}
	return list, nil
}

func (f *fakeRepo) ListByStatus(_ context.Context, periodID int64, status Status) ([]Request, error) {
	var list []Request
	for _, r := range f.requests {
		if r.PeriodID == periodID && r.Status == status {
			list = append(list, r)
		}
	}
	return list, nil
}

func (f *fakeRepo) HasPending(_ context.Context, teacherID, periodID int64) (bool, error) {
	for _, r := range f.requests {
		if r.TeacherID == teacherID && r.PeriodID == periodID && r.Status == StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) HasOpenOnDate(_ context.Context, teacherID int64, date time.Time) (bool, error) {
	for _, r := range f.requests {
		if r.TeacherID == teacherID && r.Date.Equal(date) && r.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Create(_ context.Context, req Request) (Request, error) {
	for _, r := range f.requests {
		if r.TeacherID == req.TeacherID && r.Date.Equal(req.Date) && r.Open() {
			return Request{}, shared.ErrDuplicateDate
		}
	}
	req.ID = f.nextID
	f.nextID++
	req.Status = StatusPending
	req.CreatedAt = time.Now().UTC()
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeRepo) DeletePending(_ context.Context, id int64) error {
	r, ok := f.requests[id]
	if !ok || r.Status != StatusPending {
		return shared.ErrInvalidTransition
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeRepo) GetUsed(_ context.Context, teacherID, periodID int64) (int, error) {
	return f.balances[balanceKey{teacherID, periodID}], nil
}

func (f *fakeRepo) CountApprovedInMonth(_ context.Context, teacherID, periodID int64, ref time.Time) (int, error) {
	count := 0
	for _, r := range f.requests {
		if r.TeacherID == teacherID && r.PeriodID == periodID && r.Status == StatusApproved &&
			r.Date.Year() == ref.Year() && r.Date.Month() == ref.Month() {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) PeriodSummary(_ context.Context, periodID int64) ([]TeacherTotals, error) {
	byTeacher := make(map[int64]*TeacherTotals)
	for _, r := range f.requests {
		if r.PeriodID != periodID {
			continue
		}
		tt, ok := byTeacher[r.TeacherID]
		if !ok {
			tt = &TeacherTotals{TeacherID: r.TeacherID}
			byTeacher[r.TeacherID] = tt
		}
		switch r.Status {
		case StatusPending:
			tt.Pending++
		case StatusApproved:
			tt.Approved++
		case StatusRejected:
			tt.Rejected++
		case StatusCancelled:
			tt.Cancelled++
		}
	}
	var totals []TeacherTotals
	for _, tt := range byTeacher {
		totals = append(totals, *tt)
	}
	return totals, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id int64, from, to Status, note string) (Request, error) {
	r, ok := f.requests[id]
	if !ok || r.Status != from {
		return Request{}, shared.ErrInvalidTransition
	}
	r.Status = to
	if note != "" {
		r.DecisionNote = note
	}
	now := time.Now().UTC()
	switch to {
	case StatusApproved, StatusRejected:
		r.DecidedAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
	}
	f.requests[id] = r
	return r, nil
}

func (f *fakeRepo) LockBalance(_ context.Context, teacherID, periodID int64) (int, error) {
	key := balanceKey{teacherID, periodID}
	if _, ok := f.balances[key]; !ok {
		f.balances[key] = 0
	}
	return f.balances[key], nil
}

func (f *fakeRepo) IncrementUsed(_ context.Context, teacherID, periodID int64, limit int) error {
	key := balanceKey{teacherID, periodID}
	if limit >= 0 && f.balances[key] >= limit {
		return shared.ErrInsufficientBalance
	}
	f.balances[key]++
	return nil
}

func (f *fakeRepo) DecrementUsed(_ context.Context, teacherID, periodID int64) error {
	key := balanceKey{teacherID, periodID}
	if f.balances[key] > 0 {
		f.balances[key]--
	}
	return nil
}

type fakeTeacherRepo struct {
	teachers map[int64]directory.Teacher
}

func (f *fakeTeacherRepo) Get(_ context.Context, id int64) (directory.Teacher, error) {
	t, ok := f.teachers[id]
	if !ok {
		return directory.Teacher{}, shared.ErrNotFound
	}
	return t, nil
}

func (f *fakeTeacherRepo) FindByEmail(_ context.Context, email string) (directory.Teacher, error) {
	for _, t := range f.teachers {
		if t.Email == email {
			return t, nil
		}
	}
	return directory.Teacher{}, shared.ErrNotFound
}

type fakePeriodRepo struct {
	active *periods.Period
}

func (f *fakePeriodRepo) GetActive(context.Context) (periods.Period, error) {
	if f.active == nil {
		return periods.Period{}, shared.ErrNoActivePeriod
	}
	return *f.active, nil
}

func (f *fakePeriodRepo) Get(_ context.Context, id int64) (periods.Period, error) {
	if f.active != nil && f.active.ID == id {
		return *f.active, nil
	}
	return periods.Period{}, shared.ErrNotFound
}

func (f *fakePeriodRepo) List(context.Context) ([]periods.Period, error) {
	if f.active == nil {
		return nil, nil
	}
	return []periods.Period{*f.active}, nil
}

func (f *fakePeriodRepo) Create(_ context.Context, p periods.Period) (periods.Period, error) {
	return p, nil
}

func (f *fakePeriodRepo) Overlaps(context.Context, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (f *fakePeriodRepo) Activate(_ context.Context, id int64) (periods.Period, error) {
	return periods.Period{}, shared.ErrNotFound
}

func (f *fakePeriodRepo) Deactivate(_ context.Context, id int64) (periods.Period, error) {
	return periods.Period{}, shared.ErrNotFound
}

func (f *fakePeriodRepo) FindExpired(context.Context, time.Time) ([]periods.Period, error) {
	return nil, nil
}

func (f *fakePeriodRepo) DeactivateIfActive(context.Context, pgx.Tx, int64) (bool, error) {
	return false, nil
}

type fakeConfigSource struct {
	configs []entitlement.Config
}

func (f *fakeConfigSource) ListActive(context.Context) ([]entitlement.Config, error) {
	return f.configs, nil
}

type fixture struct {
	repo    *fakeRepo
	service *Service
	ledger  *Ledger
	period  periods.Period
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newFixture(t *testing.T, configs []entitlement.Config) *fixture {
	t.Helper()

	birth := day("1990-04-12")
	teachers := &fakeTeacherRepo{teachers: map[int64]directory.Teacher{
		1: {ID: 1, FirstName: "Lucía", LastName: "Marín", Email: "lucia@campus.test",
			Category: directory.CategoryTeacher, Contract: directory.ContractAnnual, BirthDate: &birth, Active: true},
		2: {ID: 2, FirstName: "Marco", LastName: "Ríos", Email: "marco@campus.test",
			Category: directory.CategoryTeacher, Contract: directory.ContractTerm, Active: true},
		3: {ID: 3, FirstName: "Nadia", LastName: "Vega", Email: "nadia@campus.test",
			Category: directory.CategoryCollaborator, Contract: directory.ContractAnnual, Active: false},
	}}

	active := periods.Period{ID: 10, Name: "2026", StartDate: day("2026-01-01"), EndDate: day("2026-12-31"), Active: true}
	periodSvc := periods.NewService(&fakePeriodRepo{active: &active})

	repo := newFakeRepo()
	dirSvc := directory.NewService(teachers)
	resolver := entitlement.NewResolver(&fakeConfigSource{configs: configs}, entitlement.Defaults{AnnualAllowance: 5, TermAllowance: 3})
	ledger := NewLedger(repo, dirSvc, resolver)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, repo, ledger, dirSvc, resolver, periodSvc, nil)
	svc.WithClock(func() time.Time { return day("2026-02-01") })
	ledger.WithClock(func() time.Time { return day("2026-02-01") })

	return &fixture{repo: repo, service: svc, ledger: ledger, period: active}
}

func TestSubmitCreatesPendingRequest(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "medical appointment")
	require.NoError(t, err)
	require.Equal(t, StatusPending, req.Status)
	require.Equal(t, fx.period.ID, req.PeriodID)
	require.Equal(t, "medical appointment", req.Reason)
}

func TestSubmitRejectsInactiveTeacher(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.Submit(context.Background(), 3, day("2026-03-02"), "")
	require.ErrorIs(t, err, shared.ErrInactiveTeacher)
}

func TestSubmitRejectsDateOutsidePeriod(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.Submit(context.Background(), 1, day("2027-01-05"), "")
	require.ErrorIs(t, err, shared.ErrInvalidDate)
}

func TestSubmitRejectsPastDate(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.Submit(context.Background(), 1, day("2026-01-15"), "")
	require.ErrorIs(t, err, shared.ErrInvalidDate)
}

func TestSubmitRejectsSecondPending(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	_, err = fx.service.Submit(context.Background(), 1, day("2026-03-03"), "")
	require.ErrorIs(t, err, shared.ErrPendingExists)
}

func TestSubmitRejectsDuplicateDate(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.NoError(t, err)

	_, err = fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.ErrorIs(t, err, shared.ErrDuplicateDate)
}

func TestSubmitRejectsExhaustedBalance(t *testing.T) {
	fx := newFixture(t, nil)
	fx.repo.balances[balanceKey{1, fx.period.ID}] = 5

	_, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.ErrorIs(t, err, shared.ErrInsufficientBalance)
}

func TestApproveConsumesOneDay(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	approved, err := fx.service.Approve(context.Background(), req.ID, 99, "enjoy")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, "enjoy", approved.DecisionNote)
	require.NotNil(t, approved.DecidedAt)

	balance, err := fx.ledger.BalanceFor(context.Background(), 1, fx.period.ID)
	require.NoError(t, err)
	require.Equal(t, 5, balance.Allowance)
	require.Equal(t, 1, balance.Used)
	require.Equal(t, 4, balance.Available)
}

func TestApproveFailsWhenAllowanceExhausted(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	fx.repo.balances[balanceKey{1, fx.period.ID}] = 5

	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.ErrorIs(t, err, shared.ErrInsufficientBalance)

	// The failed approval must not leave the request approved.
	current, err := fx.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, current.Status)
}

func TestApproveFailsWhenAllowanceIsZero(t *testing.T) {
	fx := newFixture(t, []entitlement.Config{{
		Category:  directory.CategoryTeacher,
		Contract:  directory.ContractAnnual,
		Allowance: 0,
		Renewal:   entitlement.CadencePeriod,
		Active:    true,
	}})

	// The rule can drop to zero after submission, so the request is
	// planted directly and approval must be the gate.
	req, err := fx.repo.Create(context.Background(), Request{TeacherID: 1, PeriodID: fx.period.ID, Date: day("2026-03-02")})
	require.NoError(t, err)

	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.ErrorIs(t, err, shared.ErrInsufficientBalance)

	current, err := fx.repo.Get(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, current.Status)

	used, err := fx.repo.GetUsed(context.Background(), 1, fx.period.ID)
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestApproveTwiceFails(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.NoError(t, err)

	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	balance, err := fx.ledger.BalanceFor(context.Background(), 1, fx.period.ID)
	require.NoError(t, err)
	require.Equal(t, 1, balance.Used)
}

func TestRejectPendingLeavesLedgerUntouched(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	rejected, err := fx.service.Reject(context.Background(), req.ID, 99, "coverage gap")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.Equal(t, "coverage gap", rejected.DecisionNote)

	used, err := fx.repo.GetUsed(context.Background(), 1, fx.period.ID)
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestRejectApprovedRefundsDay(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.NoError(t, err)

	rejected, err := fx.service.Reject(context.Background(), req.ID, 99, "schedule clash")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)

	used, err := fx.repo.GetUsed(context.Background(), 1, fx.period.ID)
	require.NoError(t, err)
	require.Zero(t, used)
}

func TestRejectTerminalRequestFails(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Reject(context.Background(), req.ID, 99, "")
	require.NoError(t, err)

	_, err = fx.service.Reject(context.Background(), req.ID, 99, "")
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelOwnPendingRequest(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	cancelled, err := fx.service.Cancel(context.Background(), req.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestCancelRequiresOwnership(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	_, err = fx.service.Cancel(context.Background(), req.ID, 2)
	require.ErrorIs(t, err, shared.ErrNotOwner)
}

func TestCancelApprovedRequestFails(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.NoError(t, err)

	_, err = fx.service.Cancel(context.Background(), req.ID, 1)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelPastDatedRequestFails(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	fx.service.WithClock(func() time.Time { return day("2026-03-10") })
	_, err = fx.service.Cancel(context.Background(), req.ID, 1)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelThenResubmitSameDate(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Cancel(context.Background(), req.ID, 1)
	require.NoError(t, err)

	again, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "second try")
	require.NoError(t, err)
	require.Equal(t, StatusPending, again.Status)
}

func TestDeleteOwnPendingRequest(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)

	require.NoError(t, fx.service.Delete(context.Background(), req.ID, 1))

	_, err = fx.repo.Get(context.Background(), req.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMonthlyAllowanceRenewsPerCalendarMonth(t *testing.T) {
	fx := newFixture(t, nil)

	// Teacher 2 is on a term contract: 3 days, renewing monthly.
	approve := func(date string) error {
		req, err := fx.service.Submit(context.Background(), 2, day(date), "")
		if err != nil {
			return err
		}
		_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
		return err
	}

	require.NoError(t, approve("2026-03-02"))
	require.NoError(t, approve("2026-03-09"))
	require.NoError(t, approve("2026-03-16"))

	// March is exhausted.
	req, err := fx.service.Submit(context.Background(), 2, day("2026-03-23"), "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.ErrorIs(t, err, shared.ErrInsufficientBalance)

	// April renews the pool even though the period counter kept growing.
	_, err = fx.service.Cancel(context.Background(), req.ID, 2)
	require.NoError(t, err)
	require.NoError(t, approve("2026-04-06"))

	fx.ledger.WithClock(func() time.Time { return day("2026-04-15") })
	balance, err := fx.ledger.BalanceFor(context.Background(), 2, fx.period.ID)
	require.NoError(t, err)
	require.Equal(t, 3, balance.Allowance)
	require.Equal(t, 1, balance.Used)
	require.Equal(t, 2, balance.Available)
	require.Equal(t, entitlement.CadenceMonthly, balance.Renewal)
}

func TestExplicitConfigOverridesDefaults(t *testing.T) {
	fx := newFixture(t, []entitlement.Config{{
		Category:  directory.CategoryTeacher,
		Contract:  directory.ContractAnnual,
		Allowance: 8,
		Renewal:   entitlement.CadencePeriod,
		Active:    true,
	}})

	balance, err := fx.ledger.BalanceFor(context.Background(), 1, fx.period.ID)
	require.NoError(t, err)
	require.Equal(t, 8, balance.Allowance)
	require.Equal(t, entitlement.CadencePeriod, balance.Renewal)
}

func TestPeriodSummaryAggregatesByTeacher(t *testing.T) {
	fx := newFixture(t, nil)

	req, err := fx.service.Submit(context.Background(), 1, day("2026-03-02"), "")
	require.NoError(t, err)
	_, err = fx.service.Approve(context.Background(), req.ID, 99, "")
	require.NoError(t, err)

	_, err = fx.service.Submit(context.Background(), 2, day("2026-03-02"), "")
	require.NoError(t, err)

	totals, err := fx.service.PeriodSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
}
