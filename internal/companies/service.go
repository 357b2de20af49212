package companies

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fakturio/fakturio/internal/i18n"
	"github.com/fakturio/fakturio/internal/observability"
)

// Phase is the lifecycle of a user's company-selection state. It
// replaces the two ambient re-entrancy booleans of the old frontend
// implementation with explicit transitions:
//
//	idle -> loading        directory fetch started
//	loading -> ready       fetch finished (success or failure)
//	ready -> switching     manual switch started
//	switching -> ready     manual switch finished
//	ready -> idle          never; a refresh goes through loading again
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseReady     Phase = "ready"
	PhaseSwitching Phase = "switching"
)

// Selection reasons, logged and counted per automatic selection.
const (
	SelectReasonPreference = "preference"
	SelectReasonActiveFlag = "active-flag"
	SelectReasonFallback   = "fallback"
)

// sessionState holds one user's directory and selection. Rebuilt on
// session change, discarded on sign-out.
type sessionState struct {
	mu          sync.Mutex
	phase       Phase
	initialized bool      // selection committed for the current load cycle; lowered only by Refresh
	holdUntil   time.Time // trailing grace window after a manual switch
	companies   []Company
	activeFlags []uuid.UUID // company ids whose membership row is flagged active
	selected    *Company
	errKey      i18n.Key
}

// State is an immutable snapshot of a user's selection state.
type State struct {
	Companies []Company
	Selected  *Company
	Loading   bool
	ErrKey    i18n.Key
}

// ServiceConfig carries tunables, zero values mean defaults.
type ServiceConfig struct {
	// SwitchGrace is how long automatic selection stays suppressed
	// after a manual switch completes.
	SwitchGrace time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

const defaultSwitchGrace = 500 * time.Millisecond

// Service owns per-user company selection state: loading the directory,
// choosing the active company, and manual switches.
type Service struct {
	repo    Repository
	logger  *slog.Logger
	metrics *observability.Metrics
	grace   time.Duration
	now     func() time.Time

	loads singleflight.Group

	mu     sync.Mutex
	states map[uuid.UUID]*sessionState
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger, metrics *observability.Metrics, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	grace := cfg.SwitchGrace
	if grace <= 0 {
		grace = defaultSwitchGrace
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		grace:   grace,
		now:     now,
		states:  make(map[uuid.UUID]*sessionState),
	}
}

// State returns the current snapshot for the user, loading the
// directory first if this session has not loaded it yet. preference is
// the profile's saved company id, nil when none.
func (s *Service) State(ctx context.Context, userID uuid.UUID, preference *uuid.UUID) State {
	st := s.stateFor(userID)
	st.mu.Lock()
	idle := st.phase == PhaseIdle
	st.mu.Unlock()
	if idle {
		s.load(ctx, userID, preference)
	}
	return s.snapshot(userID)
}

// Refresh lowers the initialized guard and reloads the directory, so
// automatic selection runs again against the fresh result. Used after
// a company has been created elsewhere.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, preference *uuid.UUID) State {
	st := s.stateFor(userID)
	st.mu.Lock()
	st.initialized = false
	st.mu.Unlock()
	s.load(ctx, userID, preference)
	return s.snapshot(userID)
}

// Switch changes the active company on explicit user request. The
// switching phase is raised before any remote call so automatic
// selection cannot overwrite the user's choice, and stays effective
// through a short grace window after completion.
func (s *Service) Switch(ctx context.Context, userID, companyID uuid.UUID) (State, error) {
	st := s.stateFor(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	wasIdle := st.phase == PhaseIdle
	st.phase = PhaseSwitching
	defer func() {
		st.holdUntil = s.now().Add(s.grace)
		st.phase = PhaseReady
	}()
	st.errKey = ""

	if wasIdle {
		// The first interaction of a session can be a switch. The
		// directory still has to load here, otherwise it would end up
		// holding only the point-fetched target.
		rows, err := s.repo.ListUserCompanies(ctx, userID)
		if err != nil {
			st.errKey = i18n.KeySwitchFailed
			s.metrics.ObserveDirectoryLoad("error")
			s.metrics.ObserveSwitch("failed")
			s.logger.Error("load company directory",
				slog.String("user_id", userID.String()),
				slog.Any("error", err))
			return snapshotLocked(st), fmt.Errorf("companies: load directory for switch: %w", err)
		}
		applyDirectory(st, rows)
		s.metrics.ObserveDirectoryLoad("ok")
	}

	target, ok := findByID(st.companies, companyID)
	if !ok {
		fetched, err := s.repo.GetCompany(ctx, companyID)
		if err != nil {
			st.errKey = i18n.KeyCompanyNotFound
			s.metrics.ObserveSwitch("failed")
			s.logger.Warn("resolve switch target",
				slog.String("user_id", userID.String()),
				slog.String("company_id", companyID.String()),
				slog.Any("error", err))
			return snapshotLocked(st), fmt.Errorf("companies: resolve switch target %s: %w", companyID, err)
		}
		target = fetched
		// Append instead of refetching the whole directory; a full
		// reload would run the selector again for this cycle.
		st.companies = append(st.companies, target)
	}

	if err := s.repo.SetActiveCompany(ctx, userID, companyID); err != nil {
		// The previous selection stays in place: the switch did not happen.
		st.errKey = i18n.KeySwitchFailed
		s.metrics.ObserveSwitch("failed")
		s.logger.Error("persist company switch",
			slog.String("user_id", userID.String()),
			slog.String("company_id", companyID.String()),
			slog.Any("error", err))
		return snapshotLocked(st), fmt.Errorf("companies: persist switch to %s: %w", companyID, err)
	}

	chosen := target
	st.selected = &chosen
	st.initialized = true
	s.metrics.ObserveSwitch("ok")
	s.logger.Info("company switched",
		slog.String("user_id", userID.String()),
		slog.String("company_id", companyID.String()))
	return snapshotLocked(st), nil
}

// Drop discards the user's state, on sign-out or session change.
func (s *Service) Drop(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// load fetches the directory and runs the selector once. Concurrent
// loads for the same user collapse into one flight.
func (s *Service) load(ctx context.Context, userID uuid.UUID, preference *uuid.UUID) {
	_, _, _ = s.loads.Do(userID.String(), func() (any, error) {
		st := s.stateFor(userID)
		st.mu.Lock()
		st.phase = PhaseLoading
		st.errKey = ""
		st.mu.Unlock()

		rows, err := s.repo.ListUserCompanies(ctx, userID)

		st.mu.Lock()
		defer st.mu.Unlock()
		switch {
		case err != nil:
			// Directory cleared, selection untouched.
			st.companies, st.activeFlags = nil, nil
			st.errKey = i18n.KeyLoadFailed
			s.metrics.ObserveDirectoryLoad("error")
			s.logger.Error("load company directory",
				slog.String("user_id", userID.String()),
				slog.Any("error", err))
		case len(rows) == 0:
			st.companies, st.activeFlags = nil, nil
			st.errKey = i18n.KeyNoCompanies
			s.metrics.ObserveDirectoryLoad("empty")
			s.logger.Warn("company directory empty", slog.String("user_id", userID.String()))
		default:
			applyDirectory(st, rows)
			s.metrics.ObserveDirectoryLoad("ok")
			s.selectActive(ctx, st, userID, preference)
		}
		st.phase = PhaseReady
		return nil, nil
	})
}

// selectActive picks the active company from the freshly loaded
// directory, first match wins: saved preference, then a single
// server-side active flag, then the first entry. Runs at most once per
// load cycle and never while a manual switch is in flight or inside
// its grace window. Caller holds st.mu.
func (s *Service) selectActive(ctx context.Context, st *sessionState, userID uuid.UUID, preference *uuid.UUID) {
	if st.initialized || st.phase == PhaseSwitching || s.now().Before(st.holdUntil) {
		s.logger.Debug("automatic selection skipped",
			slog.String("user_id", userID.String()),
			slog.Bool("initialized", st.initialized),
			slog.String("phase", string(st.phase)))
		return
	}
	if len(st.companies) == 0 {
		st.selected = nil
		return
	}

	var pick Company
	reason := ""
	if preference != nil {
		if c, ok := findByID(st.companies, *preference); ok {
			pick, reason = c, SelectReasonPreference
		}
	}
	if reason == "" && len(st.activeFlags) == 1 {
		if c, ok := findByID(st.companies, st.activeFlags[0]); ok {
			pick, reason = c, SelectReasonActiveFlag
		}
	}
	if reason == "" {
		pick, reason = st.companies[0], SelectReasonFallback
	}

	if err := s.repo.SetActiveCompany(ctx, userID, pick.ID); err != nil {
		// Local state still commits. Documented policy: a diverged
		// remote session is preferred over blocking the user here.
		s.logger.Warn("persist automatic selection",
			slog.String("user_id", userID.String()),
			slog.String("company_id", pick.ID.String()),
			slog.Any("error", err))
	}

	st.selected = &pick
	st.initialized = true
	s.metrics.ObserveSelection(reason)
	s.logger.Info("company selected",
		slog.String("user_id", userID.String()),
		slog.String("company_id", pick.ID.String()),
		slog.String("reason", reason))
}

func (s *Service) stateFor(userID uuid.UUID) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		st = &sessionState{phase: PhaseIdle}
		s.states[userID] = st
	}
	return st
}

func (s *Service) snapshot(userID uuid.UUID) State {
	st := s.stateFor(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshotLocked(st)
}

func snapshotLocked(st *sessionState) State {
	out := State{
		Companies: append([]Company(nil), st.companies...),
		Loading:   st.phase == PhaseLoading,
		ErrKey:    st.errKey,
	}
	if st.selected != nil {
		selected := *st.selected
		out.Selected = &selected
	}
	return out
}

// applyDirectory replaces the state's directory with freshly loaded
// rows. Caller holds st.mu.
func applyDirectory(st *sessionState, rows []DirectoryRow) {
	st.companies = make([]Company, 0, len(rows))
	st.activeFlags = nil
	for _, row := range rows {
		st.companies = append(st.companies, row.Company)
		if row.MembershipActive {
			st.activeFlags = append(st.activeFlags, row.ID)
		}
	}
}

func findByID(companies []Company, id uuid.UUID) (Company, bool) {
	for _, c := range companies {
		if c.ID == id {
			return c, true
		}
	}
	return Company{}, false
}
