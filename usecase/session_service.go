package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/cache"
	"github.com/parleylabs/parley/client/repository"
)

// SessionPhase represents the lifecycle phase of one practice session.
// Transitions never skip a phase; Ending is entered exactly once.
type SessionPhase string

const (
	PhaseConfiguring SessionPhase = "configuring"
	PhaseActive      SessionPhase = "active"
	PhaseEnding      SessionPhase = "ending"
	PhaseCompleted   SessionPhase = "completed"
)

// System markers appended to turn history at end of session
const (
	markerSessionEnded    = "session ended"
	markerSessionEndError = "session could not be ended cleanly"
)

type sessionState struct {
	session *entities.Session
	phase   SessionPhase
	// endLatch is the one-shot guard around the end-session call. It is
	// set with a compare-and-swap before the call is issued, so a second
	// trigger racing with turn submission cannot double-fire.
	endLatch     atomic.Bool
	endRequested bool
}

// SessionService drives practice sessions from creation through completion
type SessionService struct {
	backend repository.Backend
	cache   *cache.Store
	auth    *AuthService
	logger  *zap.Logger

	mu     sync.Mutex
	active map[string]*sessionState
}

// NewSessionService creates a new session lifecycle controller
func NewSessionService(
	backend repository.Backend,
	store *cache.Store,
	authService *AuthService,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		backend: backend,
		cache:   store,
		auth:    authService,
		logger:  logger,
		active:  make(map[string]*sessionState),
	}
}

// CreateSession creates a session for the chosen scenario configuration
func (s *SessionService) CreateSession(
	ctx context.Context,
	scenarioID, roleID string,
	level entities.RelationshipLevel,
	language string,
) (*entities.Session, error) {
	if !s.auth.IsInitialized() {
		return nil, domain.NewValidationError("auth is not initialized yet")
	}
	identity := s.auth.Identity()
	if identity == nil {
		return nil, domain.NewValidationError("sign in before starting a session")
	}
	if identity.Local {
		return nil, domain.NewValidationError("sessions are unavailable in offline guest mode")
	}
	if scenarioID == "" {
		return nil, domain.NewValidationError("no scenario selected")
	}
	if roleID == "" {
		return nil, domain.NewValidationError("no role selected")
	}
	if level == "" {
		level = entities.RelationshipNormal
	}

	session, err := s.backend.CreateSession(ctx, repository.NewSessionParams{
		ScenarioID:        scenarioID,
		RoleID:            roleID,
		RelationshipLevel: level,
		Language:          language,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.active[session.ID] = &sessionState{session: session, phase: PhaseActive}
	s.mu.Unlock()

	s.cache.Invalidate(sessionListKey())
	s.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("scenario_id", scenarioID))
	return session, nil
}

// Session returns the locally tracked session with the given id
func (s *SessionService) Session(id string) (*entities.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.active[id]
	if !ok {
		return nil, false
	}
	return st.session, true
}

// Phase returns the lifecycle phase of the given session
func (s *SessionService) Phase(id string) SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.active[id]
	if !ok {
		return PhaseConfiguring
	}
	return st.phase
}

// SubmitTurn submits a user message. The turn appears in history
// optimistically before the network call resolves; on success the
// server-assigned turn replaces it, on failure it is removed and the error
// surfaced. After a successful turn the auto-complete trigger is evaluated.
func (s *SessionService) SubmitTurn(ctx context.Context, sessionID, userMessage string) (*entities.Turn, error) {
	message := strings.TrimSpace(userMessage)
	if message == "" {
		return nil, domain.NewValidationError("message cannot be empty")
	}

	s.mu.Lock()
	st, ok := s.active[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.NewValidationError("unknown session")
	}
	if st.phase == PhaseCompleted || st.session.Completed {
		s.mu.Unlock()
		return nil, &domain.StaleSessionError{SessionID: sessionID, Reason: "session already completed"}
	}

	localID := "local-" + uuid.NewString()
	st.session.AddOptimisticTurn(localID, message)
	s.mu.Unlock()

	turn, remote, err := s.backend.SubmitTurn(ctx, sessionID, message)
	if err != nil {
		s.mu.Lock()
		st.session.RemoveTurn(localID)
		s.mu.Unlock()
		s.logger.Warn("Turn submission failed, optimistic entry rolled back",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	st.session.ConfirmTurn(localID, *turn)
	st.session.ApplyRemote(remote)

	if remote != nil && remote.Completed {
		// The backend completed the session out of band (e.g. objective
		// reached). Respect it without calling end-session again.
		st.endLatch.Store(true)
		s.completeLocked(st, markerSessionEnded)
		s.mu.Unlock()
		return turn, nil
	}

	shouldEnd := st.session.AtTurnLimit() && !st.session.Completed &&
		st.endLatch.CompareAndSwap(false, true)
	if shouldEnd {
		st.phase = PhaseEnding
	}
	s.mu.Unlock()

	if shouldEnd {
		s.endSession(ctx, st)
	}
	return turn, nil
}

// RequestEndSession arms the two-step confirmation for a manual early end
func (s *SessionService) RequestEndSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.active[sessionID]
	if !ok {
		return domain.NewValidationError("unknown session")
	}
	if st.phase == PhaseCompleted {
		return &domain.StaleSessionError{SessionID: sessionID, Reason: "session already completed"}
	}
	st.endRequested = true
	return nil
}

// ConfirmEndSession completes a manual early end. It requires a prior
// RequestEndSession and no-ops when the end latch is already set.
func (s *SessionService) ConfirmEndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	st, ok := s.active[sessionID]
	if !ok {
		s.mu.Unlock()
		return domain.NewValidationError("unknown session")
	}
	if !st.endRequested {
		s.mu.Unlock()
		return domain.NewValidationError("end of session was not requested")
	}
	st.endRequested = false

	if !st.endLatch.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}
	st.phase = PhaseEnding
	s.mu.Unlock()

	s.endSession(ctx, st)
	return nil
}

// endSession performs the shared one-shot end-session call. A failure still
// advances the local state to Completed: the authoritative completion record
// lives server-side and the UI must not be left stuck in Ending.
func (s *SessionService) endSession(ctx context.Context, st *sessionState) {
	remote, err := s.backend.EndSession(ctx, st.session.ID)

	s.mu.Lock()
	if err != nil {
		s.logger.Warn("End-session call failed, completing locally anyway",
			zap.String("session_id", st.session.ID),
			zap.Error(err))
		s.completeLocked(st, markerSessionEndError)
	} else {
		st.session.ApplyRemote(remote)
		s.completeLocked(st, markerSessionEnded)
	}
	s.mu.Unlock()
}

// completeLocked transitions a session to Completed exactly once and appends
// the given system marker. Callers hold s.mu.
func (s *SessionService) completeLocked(st *sessionState, marker string) {
	if st.phase == PhaseCompleted {
		return
	}
	st.phase = PhaseCompleted
	st.session.Completed = true
	if st.session.CompletionReason == "" {
		if st.session.AtTurnLimit() {
			st.session.CompletionReason = entities.CompletionMaxTurns
		} else {
			st.session.CompletionReason = entities.CompletionEndedEarly
		}
	}
	st.session.AppendSystemMarker(marker)

	s.cache.Invalidate(sessionListKey())
	s.cache.Invalidate(sessionKey(st.session.ID))
	s.auth.RecordSessionCompleted()

	s.logger.Info("Session completed",
		zap.String("session_id", st.session.ID),
		zap.String("reason", string(st.session.CompletionReason)))
}

// RateSession submits a 1-5 rating with optional feedback and invalidates
// the caches that render session data.
func (s *SessionService) RateSession(ctx context.Context, sessionID string, rating int, feedback string) error {
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("rating must be between 1 and 5")
	}

	remote, err := s.backend.RateSession(ctx, sessionID, rating, feedback)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if st, ok := s.active[sessionID]; ok {
		st.session.ApplyRemote(remote)
	}
	s.mu.Unlock()

	s.cache.Invalidate(sessionListKey())
	s.cache.Invalidate(sessionKey(sessionID))
	return nil
}
