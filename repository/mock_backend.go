package repository

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
)

// MockBackend is an in-memory implementation of Backend for testing and
// development. It is pre-seeded with scenarios and answers turns with
// scripted replies and a repeating score-delta pattern, so conversations
// are deterministic.
type MockBackend struct {
	mu sync.Mutex

	scenarios []*entities.Scenario
	roles     map[string][]*entities.ScenarioRole
	tips      map[string][]string
	tags      []*entities.Tag

	users    map[string]*entities.Identity // token -> identity
	emails   map[string]string             // email -> user id
	sessions map[string]*entities.Session
	deltas   map[string][]float64 // session id -> applied score deltas
	replies  []string
	pattern  []float64

	token      string   // credential set via SetAuthToken
	TokensSeen []string // credential observed at the start of each request

	// EndCalls counts EndSession invocations per session id
	EndCalls map[string]int

	// Failure injection. When set, the corresponding operation fails once
	// and the hook is cleared.
	FailNextCreateGuest error
	FailNextSubmitTurn  error
	FailNextEndSession  error

	// CompleteSessionOnNextTurn simulates out-of-band, objective-based
	// completion reported by the server on the next submitted turn.
	CompleteSessionOnNextTurn bool
}

var _ Backend = (*MockBackend)(nil)

// NewMockBackend creates a mock backend with pre-registered scenarios
func NewMockBackend() *MockBackend {
	m := &MockBackend{
		roles:    make(map[string][]*entities.ScenarioRole),
		tips:     make(map[string][]string),
		users:    make(map[string]*entities.Identity),
		emails:   make(map[string]string),
		sessions: make(map[string]*entities.Session),
		deltas:   make(map[string][]float64),
		EndCalls: make(map[string]int),
		replies: []string{
			"That's an interesting way to put it. Tell me more.",
			"I see what you mean. How does that make you feel?",
			"Hm, I hadn't thought about it that way before.",
			"Really? That changes things a little for me.",
		},
		pattern: []float64{0.5, -0.5, 1.0},
	}

	m.SeedScenario("sc-coffee", "Coffee with a colleague", "work", "easy", 10,
		"barista", "colleague")
	m.SeedScenario("sc-interview", "Job interview", "work", "hard", 8,
		"interviewer", "recruiter")
	m.SeedScenario("sc-neighbor", "Meeting a new neighbor", "social", "medium", 12,
		"neighbor")

	m.tags = []*entities.Tag{
		{ID: "tag-work", Name: "work"},
		{ID: "tag-social", Name: "social"},
	}

	return m
}

// SeedScenario registers an additional scenario with one role per name.
// Tests use it to shape turn limits.
func (m *MockBackend) SeedScenario(id, title, category, difficulty string, maxTurns int, roleNames ...string) {
	scenario := &entities.Scenario{
		ID:         id,
		Title:      title,
		Context:    "You are practicing a conversation: " + title + ".",
		Objective:  "Build a genuine connection.",
		Category:   category,
		Difficulty: difficulty,
		MaxTurns:   maxTurns,
	}
	m.scenarios = append(m.scenarios, scenario)

	for _, name := range roleNames {
		m.roles[id] = append(m.roles[id], &entities.ScenarioRole{
			ID:             id + "-role-" + name,
			ScenarioID:     id,
			Name:           name,
			InitialMessage: "Hi! Nice to meet you.",
		})
	}

	m.tips[id] = []string{
		"Ask open questions.",
		"Listen before you answer.",
	}
}

// SetAuthToken records the credential used by all subsequent calls
func (m *MockBackend) SetAuthToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// Token returns the credential currently set
func (m *MockBackend) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *MockBackend) observeToken() {
	m.TokensSeen = append(m.TokensSeen, m.token)
}

func (m *MockBackend) currentUser() (*entities.Identity, error) {
	user, ok := m.users[m.token]
	if !ok {
		return nil, &domain.HTTPError{Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	return user, nil
}

func (m *MockBackend) issue(identity *entities.Identity) *AuthResult {
	token := "mock-token-" + uuid.NewString()
	m.users[token] = identity
	return &AuthResult{Identity: identity, Token: token}
}

// CreateGuest creates a guest identity and token
func (m *MockBackend) CreateGuest(ctx context.Context, displayName string) (*AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	if err := m.FailNextCreateGuest; err != nil {
		m.FailNextCreateGuest = nil
		return nil, err
	}

	identity := &entities.Identity{
		ID:          "user-" + uuid.NewString(),
		DisplayName: displayName,
		Kind:        entities.AccountKindGuest,
		CreatedAt:   time.Now(),
	}
	return m.issue(identity), nil
}

// Register creates a registered identity and token
func (m *MockBackend) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	if _, exists := m.emails[email]; exists {
		return nil, &domain.HTTPError{Status: http.StatusConflict, Message: "EMAIL_EXISTS"}
	}

	identity := &entities.Identity{
		ID:          "user-" + uuid.NewString(),
		DisplayName: displayName,
		Email:       email,
		Kind:        entities.AccountKindRegistered,
		CreatedAt:   time.Now(),
	}
	m.emails[email] = identity.ID
	return m.issue(identity), nil
}

// Login authenticates a registered identity
func (m *MockBackend) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	id, exists := m.emails[email]
	if !exists {
		return nil, &domain.HTTPError{Status: http.StatusUnauthorized, Message: "invalid credentials"}
	}
	for _, user := range m.users {
		if user.ID == id {
			return m.issue(user), nil
		}
	}
	return nil, &domain.HTTPError{Status: http.StatusUnauthorized, Message: "invalid credentials"}
}

// LoginGoogle authenticates via a Google credential. The mock treats the
// credential as the account email.
func (m *MockBackend) LoginGoogle(ctx context.Context, credential string) (*AuthResult, error) {
	return m.Login(ctx, credential, "")
}

// ConvertGuest converts the authenticated guest to a registered identity
func (m *MockBackend) ConvertGuest(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	user, err := m.currentUser()
	if err != nil {
		return nil, err
	}
	if !user.IsGuest() {
		return nil, &domain.HTTPError{Status: http.StatusBadRequest, Message: "not a guest account"}
	}
	if _, exists := m.emails[email]; exists {
		return nil, &domain.HTTPError{Status: http.StatusConflict, Message: "EMAIL_EXISTS"}
	}

	converted := &entities.Identity{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       email,
		Kind:        entities.AccountKindRegistered,
		CreatedAt:   user.CreatedAt,
	}
	if displayName != "" {
		converted.DisplayName = displayName
	}
	m.emails[email] = converted.ID
	return m.issue(converted), nil
}

// ConvertGuestGoogle converts the authenticated guest via a Google
// credential, treated as the account email.
func (m *MockBackend) ConvertGuestGoogle(ctx context.Context, credential string) (*AuthResult, error) {
	return m.ConvertGuest(ctx, credential, "", "")
}

// CurrentUser returns the identity behind the current token
func (m *MockBackend) CurrentUser(ctx context.Context) (*entities.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()
	return m.currentUser()
}

// DeleteAccount removes the identity behind the current token
func (m *MockBackend) DeleteAccount(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	user, err := m.currentUser()
	if err != nil {
		return err
	}
	delete(m.emails, user.Email)
	delete(m.users, m.token)
	return nil
}

// ListScenarios returns the seeded scenarios matching the filter
func (m *MockBackend) ListScenarios(ctx context.Context, filter entities.ScenarioFilter) ([]*entities.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	var out []*entities.Scenario
	for _, s := range m.scenarios {
		if filter.Category != "" && s.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && s.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// GetScenario returns a seeded scenario by id
func (m *MockBackend) GetScenario(ctx context.Context, id, language string) (*entities.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	for _, s := range m.scenarios {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "scenario not found"}
}

// ListRoles returns the roles of a scenario
func (m *MockBackend) ListRoles(ctx context.Context, scenarioID string) ([]*entities.ScenarioRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	roles, ok := m.roles[scenarioID]
	if !ok {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "scenario not found"}
	}
	return roles, nil
}

// ListTips returns the tips of a scenario
func (m *MockBackend) ListTips(ctx context.Context, scenarioID, language string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()
	return m.tips[scenarioID], nil
}

// ListTags returns the seeded tags
func (m *MockBackend) ListTags(ctx context.Context, language string) ([]*entities.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()
	return m.tags, nil
}

// CreateSession creates a session for the authenticated user
func (m *MockBackend) CreateSession(ctx context.Context, params NewSessionParams) (*entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	user, err := m.currentUser()
	if err != nil {
		return nil, err
	}

	var scenario *entities.Scenario
	for _, s := range m.scenarios {
		if s.ID == params.ScenarioID {
			scenario = s
		}
	}
	if scenario == nil {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "scenario not found"}
	}

	session := &entities.Session{
		ID:                "sess-" + uuid.NewString(),
		UserID:            user.ID,
		ScenarioID:        params.ScenarioID,
		RoleID:            params.RoleID,
		RelationshipLevel: params.RelationshipLevel,
		Language:          params.Language,
		MaxTurns:          scenario.MaxTurns,
		CreatedAt:         time.Now(),
	}
	m.sessions[session.ID] = session
	return cloneSession(session), nil
}

// ListSessions returns the authenticated user's sessions
func (m *MockBackend) ListSessions(ctx context.Context) ([]*entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	user, err := m.currentUser()
	if err != nil {
		return nil, err
	}
	var out []*entities.Session
	for _, s := range m.sessions {
		if s.UserID == user.ID {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

// GetSession returns a session by id
func (m *MockBackend) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	session, ok := m.sessions[id]
	if !ok {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "session not found"}
	}
	return cloneSession(session), nil
}

// SubmitTurn records a user turn, answers with a scripted reply and applies
// the next score delta from the repeating pattern.
func (m *MockBackend) SubmitTurn(ctx context.Context, sessionID, userMessage string) (*entities.Turn, *entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	if err := m.FailNextSubmitTurn; err != nil {
		m.FailNextSubmitTurn = nil
		return nil, nil, err
	}

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "session not found"}
	}
	if session.Completed {
		return nil, nil, &domain.HTTPError{Status: http.StatusBadRequest, Message: "session already completed"}
	}

	session.CurrentTurn++
	delta := m.pattern[(session.CurrentTurn-1)%len(m.pattern)]
	session.ConnectionScore = entities.ClampScore(session.ConnectionScore + delta)
	m.deltas[sessionID] = append(m.deltas[sessionID], delta)

	turn := &entities.Turn{
		ID:          "turn-" + uuid.NewString(),
		SessionID:   sessionID,
		Number:      session.CurrentTurn,
		UserMessage: userMessage,
		AIResponse:  m.replies[(session.CurrentTurn-1)%len(m.replies)],
		Emotion:     "neutral",
		ScoreDelta:  delta,
		CreatedAt:   time.Now(),
	}

	if m.CompleteSessionOnNextTurn {
		m.CompleteSessionOnNextTurn = false
		session.Completed = true
		session.CompletionReason = entities.CompletionObjective
	}

	return turn, cloneSession(session), nil
}

// EndSession marks a session completed
func (m *MockBackend) EndSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()
	m.EndCalls[sessionID]++

	if err := m.FailNextEndSession; err != nil {
		m.FailNextEndSession = nil
		return nil, err
	}

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "session not found"}
	}
	if !session.Completed {
		session.Completed = true
		if session.CurrentTurn >= session.MaxTurns {
			session.CompletionReason = entities.CompletionMaxTurns
		} else {
			session.CompletionReason = entities.CompletionEndedEarly
		}
	}
	return cloneSession(session), nil
}

// RateSession records a user rating for a session
func (m *MockBackend) RateSession(ctx context.Context, sessionID string, rating int, feedback string) (*entities.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "session not found"}
	}
	session.Rating = rating
	session.Feedback = feedback
	return cloneSession(session), nil
}

// SessionAnalytics derives an analytics payload from the recorded deltas
func (m *MockBackend) SessionAnalytics(ctx context.Context, sessionID string) (*entities.SessionAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "session not found"}
	}

	analytics := &entities.SessionAnalytics{
		SessionID:  sessionID,
		FinalScore: session.ConnectionScore,
		TotalTurns: session.CurrentTurn,
	}
	for i, delta := range m.deltas[sessionID] {
		moment := entities.Moment{Turn: i + 1, Delta: delta}
		if delta > 0 {
			analytics.Breakthroughs = append(analytics.Breakthroughs, moment)
		} else if delta < 0 {
			analytics.Setbacks = append(analytics.Setbacks, moment)
		}
	}
	for score := -4.5; score <= 4.5; score++ {
		s := score
		analytics.Distribution = append(analytics.Distribution, entities.DistributionBucket{
			Score: &s,
			Count: 10,
		})
	}
	return analytics, nil
}

// SessionInsights returns canned qualitative feedback
func (m *MockBackend) SessionInsights(ctx context.Context, sessionID string) (*entities.SessionInsights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observeToken()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, &domain.HTTPError{Status: http.StatusNotFound, Message: "session not found"}
	}
	return &entities.SessionInsights{
		SessionID:    sessionID,
		Strengths:    []string{"You asked open questions."},
		Improvements: []string{"Leave more room for silence."},
		Summary:      "A solid conversation with room to deepen.",
	}, nil
}

func cloneSession(s *entities.Session) *entities.Session {
	clone := *s
	clone.Turns = append([]entities.Turn(nil), s.Turns...)
	return &clone
}
