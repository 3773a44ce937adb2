// Package mockapi hosts an in-process practice API implementing the same
// HTTP/JSON surface the REST client consumes. It backs the client tests and
// the offline demo mode; conversations are scripted and deterministic.
package mockapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain/entities"
)

var signingSecret = []byte("mockapi-signing-secret")

type account struct {
	identity *entities.Identity
	password string
}

// Server is the in-process practice API
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger

	mu        sync.Mutex
	accounts  map[string]*account // user id -> account
	emails    map[string]string   // email -> user id
	scenarios []*entities.Scenario
	roles     map[string][]*entities.ScenarioRole
	tips      map[string][]string
	tags      []*entities.Tag
	sessions  map[string]*entities.Session
	deltas    map[string][]float64

	replies []string
	pattern []float64
}

// New creates a mock API server pre-seeded with scenarios
func New(logger *zap.Logger) *Server {
	s := &Server{
		logger:   logger,
		accounts: make(map[string]*account),
		emails:   make(map[string]string),
		roles:    make(map[string][]*entities.ScenarioRole),
		tips:     make(map[string][]string),
		sessions: make(map[string]*entities.Session),
		deltas:   make(map[string][]float64),
		replies: []string{
			"That's an interesting way to put it. Tell me more.",
			"I see what you mean. How does that make you feel?",
			"Hm, I hadn't thought about it that way before.",
			"Really? That changes things a little for me.",
		},
		pattern: []float64{0.5, -0.5, 1.0},
	}
	s.seed()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.POST("/auth/guest", s.createGuest)
	e.POST("/auth/register", s.register)
	e.POST("/auth/login", s.login)
	e.POST("/auth/google", s.loginGoogle)
	e.POST("/auth/convert-guest", s.convertGuest)
	e.POST("/auth/convert-guest-google", s.convertGuestGoogle)
	e.GET("/auth/me", s.currentUser)
	e.DELETE("/auth/me", s.deleteAccount)

	e.GET("/scenarios", s.listScenarios)
	e.GET("/scenarios/:id", s.getScenario)
	e.GET("/scenarios/:id/roles", s.listRoles)
	e.GET("/scenarios/:id/tips", s.listTips)
	e.GET("/tags", s.listTags)

	e.POST("/sessions", s.createSession)
	e.GET("/sessions", s.listSessions)
	e.GET("/sessions/:id", s.getSession)
	e.POST("/sessions/:id/turns", s.submitTurn)
	e.POST("/sessions/:id/end", s.endSession)
	e.PUT("/sessions/:id/rating", s.rateSession)
	e.GET("/sessions/:id/analytics", s.sessionAnalytics)
	e.GET("/sessions/:id/insights", s.sessionInsights)

	s.echo = e
	return s
}

// Handler returns the server's HTTP handler, for use with httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves the mock API on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) seed() {
	s.addScenario("sc-coffee", "Coffee with a colleague", "work", "easy", 10,
		"barista", "colleague")
	s.addScenario("sc-interview", "Job interview", "work", "hard", 8,
		"interviewer", "recruiter")
	s.addScenario("sc-neighbor", "Meeting a new neighbor", "social", "medium", 12,
		"neighbor")

	s.tags = []*entities.Tag{
		{ID: "tag-work", Name: "work"},
		{ID: "tag-social", Name: "social"},
	}
}

func (s *Server) addScenario(id, title, category, difficulty string, maxTurns int, roleNames ...string) {
	s.scenarios = append(s.scenarios, &entities.Scenario{
		ID:         id,
		Title:      title,
		Context:    "You are practicing a conversation: " + title + ".",
		Objective:  "Build a genuine connection.",
		Category:   category,
		Difficulty: difficulty,
		MaxTurns:   maxTurns,
	})
	for _, name := range roleNames {
		s.roles[id] = append(s.roles[id], &entities.ScenarioRole{
			ID:             id + "-role-" + name,
			ScenarioID:     id,
			Name:           name,
			InitialMessage: "Hi! Nice to meet you.",
		})
	}
	s.tips[id] = []string{
		"Ask open questions.",
		"Listen before you answer.",
	}
}

// Envelope helpers

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// Auth helpers

func mintToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingSecret)
}

// authedUser resolves the bearer token of the request. Callers hold s.mu.
func (s *Server) authedUser(c echo.Context) (*entities.Identity, bool) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return signingSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	acct, exists := s.accounts[claims.Subject]
	if !exists {
		return nil, false
	}
	return acct.identity, true
}

func (s *Server) issue(c echo.Context, identity *entities.Identity) error {
	token, err := mintToken(identity.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "token generation failed")
	}
	return ok(c, map[string]interface{}{
		"user":  identity,
		"token": token,
	})
}
