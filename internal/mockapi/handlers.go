package mockapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain/entities"
)

type guestRequest struct {
	DisplayName string `json:"display_name"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Credential string `json:"credential"`
}

type createSessionRequest struct {
	ScenarioID        string `json:"scenario_id"`
	RoleID            string `json:"role_id"`
	RelationshipLevel string `json:"relationship_level"`
	Language          string `json:"language"`
}

type submitTurnRequest struct {
	Message string `json:"message"`
}

type rateSessionRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (s *Server) createGuest(c echo.Context) error {
	var req guestRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}

	s.mu.Lock()
	identity := &entities.Identity{
		ID:          "user-" + uuid.NewString(),
		DisplayName: req.DisplayName,
		Kind:        entities.AccountKindGuest,
		CreatedAt:   time.Now(),
	}
	s.accounts[identity.ID] = &account{identity: identity}
	s.mu.Unlock()

	s.logger.Info("Guest created", zap.String("user_id", identity.ID))
	return s.issue(c, identity)
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	s.mu.Lock()
	if _, exists := s.emails[req.Email]; exists {
		s.mu.Unlock()
		return fail(c, http.StatusConflict, "EMAIL_EXISTS")
	}
	identity := &entities.Identity{
		ID:          "user-" + uuid.NewString(),
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Kind:        entities.AccountKindRegistered,
		CreatedAt:   time.Now(),
	}
	s.accounts[identity.ID] = &account{identity: identity, password: req.Password}
	s.emails[req.Email] = identity.ID
	s.mu.Unlock()

	return s.issue(c, identity)
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}

	s.mu.Lock()
	id, exists := s.emails[req.Email]
	if !exists {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	acct := s.accounts[id]
	if acct.password != req.Password {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	identity := acct.identity
	s.mu.Unlock()

	return s.issue(c, identity)
}

// loginGoogle treats the credential as the account email; good enough for a
// scripted backend.
func (s *Server) loginGoogle(c echo.Context) error {
	var req googleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}

	s.mu.Lock()
	id, exists := s.emails[req.Credential]
	if !exists {
		identity := &entities.Identity{
			ID:          "user-" + uuid.NewString(),
			DisplayName: strings.Split(req.Credential, "@")[0],
			Email:       req.Credential,
			Kind:        entities.AccountKindRegistered,
			Verified:    true,
			CreatedAt:   time.Now(),
		}
		s.accounts[identity.ID] = &account{identity: identity}
		s.emails[req.Credential] = identity.ID
		s.mu.Unlock()
		return s.issue(c, identity)
	}
	identity := s.accounts[id].identity
	s.mu.Unlock()

	return s.issue(c, identity)
}

func (s *Server) convertGuest(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}

	s.mu.Lock()
	user, authed := s.authedUser(c)
	if !authed {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	if !user.IsGuest() {
		s.mu.Unlock()
		return fail(c, http.StatusBadRequest, "not a guest account")
	}
	if _, exists := s.emails[req.Email]; exists {
		s.mu.Unlock()
		return fail(c, http.StatusConflict, "EMAIL_EXISTS")
	}

	user.Email = req.Email
	user.Kind = entities.AccountKindRegistered
	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	s.accounts[user.ID].password = req.Password
	s.emails[req.Email] = user.ID
	s.mu.Unlock()

	s.logger.Info("Guest converted", zap.String("user_id", user.ID))
	return s.issue(c, user)
}

func (s *Server) convertGuestGoogle(c echo.Context) error {
	var req googleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}

	s.mu.Lock()
	user, authed := s.authedUser(c)
	if !authed {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	if !user.IsGuest() {
		s.mu.Unlock()
		return fail(c, http.StatusBadRequest, "not a guest account")
	}
	if _, exists := s.emails[req.Credential]; exists {
		s.mu.Unlock()
		return fail(c, http.StatusConflict, "EMAIL_EXISTS")
	}

	user.Email = req.Credential
	user.Kind = entities.AccountKindRegistered
	user.Verified = true
	s.emails[req.Credential] = user.ID
	s.mu.Unlock()

	return s.issue(c, user)
}

func (s *Server) currentUser(c echo.Context) error {
	s.mu.Lock()
	user, authed := s.authedUser(c)
	s.mu.Unlock()
	if !authed {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	return ok(c, map[string]interface{}{"user": user})
}

func (s *Server) deleteAccount(c echo.Context) error {
	s.mu.Lock()
	user, authed := s.authedUser(c)
	if !authed {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	delete(s.emails, user.Email)
	delete(s.accounts, user.ID)
	s.mu.Unlock()

	return ok(c, nil)
}

func (s *Server) listScenarios(c echo.Context) error {
	category := c.QueryParam("category")
	difficulty := c.QueryParam("difficulty")
	search := strings.ToLower(c.QueryParam("search"))

	s.mu.Lock()
	var out []*entities.Scenario
	for _, scenario := range s.scenarios {
		if category != "" && scenario.Category != category {
			continue
		}
		if difficulty != "" && scenario.Difficulty != difficulty {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(scenario.Title), search) {
			continue
		}
		out = append(out, scenario)
	}
	s.mu.Unlock()

	return ok(c, out)
}

func (s *Server) getScenario(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, scenario := range s.scenarios {
		if scenario.ID == id {
			return ok(c, scenario)
		}
	}
	return fail(c, http.StatusNotFound, "scenario not found")
}

func (s *Server) listRoles(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	roles, exists := s.roles[id]
	s.mu.Unlock()
	if !exists {
		return fail(c, http.StatusNotFound, "scenario not found")
	}
	return ok(c, roles)
}

func (s *Server) listTips(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	tips := s.tips[id]
	s.mu.Unlock()
	return ok(c, tips)
}

func (s *Server) listTags(c echo.Context) error {
	s.mu.Lock()
	tags := s.tags
	s.mu.Unlock()
	return ok(c, tags)
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}

	s.mu.Lock()
	user, authed := s.authedUser(c)
	if !authed {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	if req.RoleID == "" {
		s.mu.Unlock()
		return fail(c, http.StatusBadRequest, "role is required")
	}

	var scenario *entities.Scenario
	for _, candidate := range s.scenarios {
		if candidate.ID == req.ScenarioID {
			scenario = candidate
		}
	}
	if scenario == nil {
		s.mu.Unlock()
		return fail(c, http.StatusNotFound, "scenario not found")
	}

	session := &entities.Session{
		ID:                "sess-" + uuid.NewString(),
		UserID:            user.ID,
		ScenarioID:        req.ScenarioID,
		RoleID:            req.RoleID,
		RelationshipLevel: entities.RelationshipLevel(req.RelationshipLevel),
		Language:          req.Language,
		MaxTurns:          scenario.MaxTurns,
		CreatedAt:         time.Now(),
	}
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.Info("Session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", user.ID))
	return ok(c, session)
}

func (s *Server) listSessions(c echo.Context) error {
	s.mu.Lock()
	user, authed := s.authedUser(c)
	if !authed {
		s.mu.Unlock()
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	var out []*entities.Session
	for _, session := range s.sessions {
		if session.UserID == user.ID {
			out = append(out, session)
		}
	}
	s.mu.Unlock()

	return ok(c, out)
}

func (s *Server) getSession(c echo.Context) error {
	s.mu.Lock()
	session, exists := s.sessions[c.Param("id")]
	s.mu.Unlock()
	if !exists {
		return fail(c, http.StatusNotFound, "session not found")
	}
	return ok(c, session)
}

func (s *Server) submitTurn(c echo.Context) error {
	var req submitTurnRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}
	if strings.TrimSpace(req.Message) == "" {
		return fail(c, http.StatusBadRequest, "message is required")
	}

	s.mu.Lock()
	session, exists := s.sessions[c.Param("id")]
	if !exists {
		s.mu.Unlock()
		return fail(c, http.StatusNotFound, "session not found")
	}
	if session.Completed {
		s.mu.Unlock()
		return fail(c, http.StatusBadRequest, "session already completed")
	}

	session.CurrentTurn++
	delta := s.pattern[(session.CurrentTurn-1)%len(s.pattern)]
	session.ConnectionScore = entities.ClampScore(session.ConnectionScore + delta)
	s.deltas[session.ID] = append(s.deltas[session.ID], delta)

	turn := &entities.Turn{
		ID:          "turn-" + uuid.NewString(),
		SessionID:   session.ID,
		Number:      session.CurrentTurn,
		UserMessage: req.Message,
		AIResponse:  s.replies[(session.CurrentTurn-1)%len(s.replies)],
		Emotion:     "neutral",
		ScoreDelta:  delta,
		CreatedAt:   time.Now(),
	}
	s.mu.Unlock()

	return ok(c, map[string]interface{}{
		"turn":    turn,
		"session": session,
	})
}

func (s *Server) endSession(c echo.Context) error {
	s.mu.Lock()
	session, exists := s.sessions[c.Param("id")]
	if !exists {
		s.mu.Unlock()
		return fail(c, http.StatusNotFound, "session not found")
	}
	if !session.Completed {
		session.Completed = true
		if session.CurrentTurn >= session.MaxTurns {
			session.CompletionReason = entities.CompletionMaxTurns
		} else {
			session.CompletionReason = entities.CompletionEndedEarly
		}
	}
	s.mu.Unlock()

	return ok(c, session)
}

func (s *Server) rateSession(c echo.Context) error {
	var req rateSessionRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request format")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fail(c, http.StatusBadRequest, "rating must be between 1 and 5")
	}

	s.mu.Lock()
	session, exists := s.sessions[c.Param("id")]
	if !exists {
		s.mu.Unlock()
		return fail(c, http.StatusNotFound, "session not found")
	}
	session.Rating = req.Rating
	session.Feedback = req.Feedback
	s.mu.Unlock()

	return ok(c, session)
}

func (s *Server) sessionAnalytics(c echo.Context) error {
	s.mu.Lock()
	session, exists := s.sessions[c.Param("id")]
	if !exists {
		s.mu.Unlock()
		return fail(c, http.StatusNotFound, "session not found")
	}

	analytics := &entities.SessionAnalytics{
		SessionID:  session.ID,
		FinalScore: session.ConnectionScore,
		TotalTurns: session.CurrentTurn,
	}
	for i, delta := range s.deltas[session.ID] {
		moment := entities.Moment{Turn: i + 1, Delta: delta}
		if delta > 0 {
			analytics.Breakthroughs = append(analytics.Breakthroughs, moment)
		} else if delta < 0 {
			analytics.Setbacks = append(analytics.Setbacks, moment)
		}
	}
	for score := -4.5; score <= 4.5; score++ {
		value := score
		analytics.Distribution = append(analytics.Distribution, entities.DistributionBucket{
			Score: &value,
			Count: 10,
		})
	}
	s.mu.Unlock()

	return ok(c, analytics)
}

func (s *Server) sessionInsights(c echo.Context) error {
	s.mu.Lock()
	session, exists := s.sessions[c.Param("id")]
	s.mu.Unlock()
	if !exists {
		return fail(c, http.StatusNotFound, "session not found")
	}

	return ok(c, &entities.SessionInsights{
		SessionID:    session.ID,
		Strengths:    []string{"You asked open questions."},
		Improvements: []string{"Leave more room for silence."},
		Summary:      "A solid conversation with room to deepen.",
	})
}
