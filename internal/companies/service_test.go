package companies

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakturio/fakturio/internal/i18n"
	"github.com/fakturio/fakturio/internal/shared"
	_ "github.com/fakturio/fakturio/testing"
)

type fakeRepo struct {
	rows      []DirectoryRow
	listErr   error
	listCalls int

	companies map[uuid.UUID]Company
	getErr    error

	setCalls []uuid.UUID
	setErr   error
}

func (f *fakeRepo) ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]DirectoryRow, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]DirectoryRow(nil), f.rows...), nil
}

func (f *fakeRepo) GetCompany(ctx context.Context, id uuid.UUID) (Company, error) {
	if f.getErr != nil {
		return Company{}, f.getErr
	}
	c, ok := f.companies[id]
	if !ok {
		return Company{}, shared.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) SetActiveCompany(ctx context.Context, userID, companyID uuid.UUID) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setCalls = append(f.setCalls, companyID)
	return nil
}

func directoryRow(name string, active bool) DirectoryRow {
	return DirectoryRow{
		Company:          Company{ID: uuid.New(), Name: name},
		MembershipActive: active,
	}
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestService(repo Repository, cfg ServiceConfig) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger, nil, cfg)
}

func TestStateSelectsSavedPreference(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", true)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	pref := b.ID
	st := svc.State(context.Background(), userID, &pref)

	require.NotNil(t, st.Selected)
	// The saved preference wins even though another membership is flagged active.
	assert.Equal(t, b.ID, st.Selected.ID)
	require.Len(t, repo.setCalls, 1)
	assert.Equal(t, b.ID, repo.setCalls[0])
}

func TestStateSelectsSingleActiveFlag(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", true)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})

	st := svc.State(context.Background(), uuid.New(), nil)

	require.NotNil(t, st.Selected)
	assert.Equal(t, b.ID, st.Selected.ID)
}

func TestStateIgnoresPreferenceMissingFromDirectory(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}}
	svc := newTestService(repo, ServiceConfig{})

	missing := uuid.New()
	st := svc.State(context.Background(), uuid.New(), &missing)

	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestStateFallsBackToFirstCompany(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", false)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})

	st := svc.State(context.Background(), uuid.New(), nil)

	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestStateMultipleActiveFlagsFallBack(t *testing.T) {
	a := directoryRow("Alpha GmbH", true)
	b := directoryRow("Beta AG", true)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})

	st := svc.State(context.Background(), uuid.New(), nil)

	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestEmptyDirectoryMakesNoPersistenceCall(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, ServiceConfig{})

	st := svc.State(context.Background(), uuid.New(), nil)

	assert.Nil(t, st.Selected)
	assert.Empty(t, st.Companies)
	assert.Equal(t, i18n.KeyNoCompanies, st.ErrKey)
	assert.Empty(t, repo.setCalls)
}

func TestLoadFailureClearsDirectoryKeepsSelection(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	st := svc.State(context.Background(), userID, nil)
	require.NotNil(t, st.Selected)

	repo.listErr = errors.New("connection refused")
	st = svc.Refresh(context.Background(), userID, nil)

	assert.Empty(t, st.Companies)
	assert.Equal(t, i18n.KeyLoadFailed, st.ErrKey)
	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestSelectionRunsOncePerLoadCycle(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		svc.State(context.Background(), userID, nil)
	}

	assert.Equal(t, 1, repo.listCalls)
	assert.Len(t, repo.setCalls, 1)
}

func TestRefreshAllowsReselection(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	b := directoryRow("Beta AG", false)
	repo.rows = []DirectoryRow{b, a}
	pref := b.ID
	st := svc.Refresh(context.Background(), userID, &pref)

	assert.Equal(t, 2, repo.listCalls)
	require.NotNil(t, st.Selected)
	assert.Equal(t, b.ID, st.Selected.ID)
}

func TestAutomaticPersistFailureStillCommits(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}, setErr: errors.New("boom")}
	svc := newTestService(repo, ServiceConfig{})

	st := svc.State(context.Background(), uuid.New(), nil)

	// Local state wins over remote session consistency.
	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
	assert.Empty(t, st.ErrKey)
}

func TestSwitchToCompanyInDirectory(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", false)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	st, err := svc.Switch(context.Background(), userID, b.ID)

	require.NoError(t, err)
	require.NotNil(t, st.Selected)
	assert.Equal(t, b.ID, st.Selected.ID)
	assert.Equal(t, b.ID, repo.setCalls[len(repo.setCalls)-1])
}

func TestSwitchFetchesUnknownCompanyAndAppends(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	c := Company{ID: uuid.New(), Name: "Gamma SA"}
	repo := &fakeRepo{
		rows:      []DirectoryRow{a},
		companies: map[uuid.UUID]Company{c.ID: c},
	}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	st, err := svc.Switch(context.Background(), userID, c.ID)

	require.NoError(t, err)
	require.NotNil(t, st.Selected)
	assert.Equal(t, c.ID, st.Selected.ID)
	require.Len(t, st.Companies, 2)
	assert.Equal(t, c.ID, st.Companies[1].ID)
}

func TestSwitchFetchFailureMutatesNothing(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	st, err := svc.Switch(context.Background(), userID, uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, i18n.KeyCompanyNotFound, st.ErrKey)
	assert.Len(t, st.Companies, 1)
	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestSwitchPersistFailureKeepsPreviousSelection(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", false)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	repo.setErr = errors.New("boom")
	st, err := svc.Switch(context.Background(), userID, b.ID)

	require.Error(t, err)
	assert.Equal(t, i18n.KeySwitchFailed, st.ErrKey)
	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestGraceWindowSuppressesReselection(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", false)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	svc := newTestService(repo, ServiceConfig{SwitchGrace: time.Second, Now: clk.Now})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	_, err := svc.Switch(context.Background(), userID, b.ID)
	require.NoError(t, err)

	// A refresh inside the grace window must not override the manual choice.
	st := svc.Refresh(context.Background(), userID, nil)
	require.NotNil(t, st.Selected)
	assert.Equal(t, b.ID, st.Selected.ID)

	// Past the window the selector is free to run again.
	clk.now = clk.now.Add(2 * time.Second)
	st = svc.Refresh(context.Background(), userID, nil)
	require.NotNil(t, st.Selected)
	assert.Equal(t, a.ID, st.Selected.ID)
}

func TestSwitchOnFreshSessionLoadsDirectory(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	b := directoryRow("Beta AG", false)
	repo := &fakeRepo{rows: []DirectoryRow{a, b}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	// A switch can be the very first interaction of a session. The full
	// directory must load, not just the switch target.
	st, err := svc.Switch(context.Background(), userID, b.ID)
	require.NoError(t, err)
	assert.Len(t, st.Companies, 2)
	require.NotNil(t, st.Selected)
	assert.Equal(t, b.ID, st.Selected.ID)
	assert.Equal(t, []uuid.UUID{b.ID}, repo.setCalls)

	st = svc.State(context.Background(), userID, nil)
	assert.Len(t, st.Companies, 2)
	assert.Equal(t, 1, repo.listCalls)
}

func TestSwitchOnFreshSessionLoadFailure(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("directory unavailable")}
	svc := newTestService(repo, ServiceConfig{})

	st, err := svc.Switch(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Empty(t, st.Companies)
	assert.Nil(t, st.Selected)
	assert.Equal(t, i18n.KeySwitchFailed, st.ErrKey)
	assert.Empty(t, repo.setCalls)
}

func TestDropDiscardsState(t *testing.T) {
	a := directoryRow("Alpha GmbH", false)
	repo := &fakeRepo{rows: []DirectoryRow{a}}
	svc := newTestService(repo, ServiceConfig{})
	userID := uuid.New()

	svc.State(context.Background(), userID, nil)
	svc.Drop(userID)
	svc.State(context.Background(), userID, nil)

	assert.Equal(t, 2, repo.listCalls)
}
