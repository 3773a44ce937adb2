package repository

import (
	"context"

	"github.com/parleylabs/parley/client/domain/entities"
)

// AuthResult pairs an identity with the bearer token issued for it
type AuthResult struct {
	Identity *entities.Identity
	Token    string
}

// NewSessionParams describes a session to be created
type NewSessionParams struct {
	ScenarioID        string
	RoleID            string
	RelationshipLevel entities.RelationshipLevel
	Language          string
}

// Backend defines every remote operation the client core performs. The REST
// adapter implements it against the practice API; MockBackend implements it
// in memory for tests and offline demos.
type Backend interface {
	// SetAuthToken replaces the credential attached to all subsequent
	// requests. An empty token clears the credential.
	SetAuthToken(token string)

	// Auth
	CreateGuest(ctx context.Context, displayName string) (*AuthResult, error)
	Register(ctx context.Context, email, password, displayName string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	LoginGoogle(ctx context.Context, credential string) (*AuthResult, error)
	ConvertGuest(ctx context.Context, email, password, displayName string) (*AuthResult, error)
	ConvertGuestGoogle(ctx context.Context, credential string) (*AuthResult, error)
	CurrentUser(ctx context.Context) (*entities.Identity, error)
	DeleteAccount(ctx context.Context) error

	// Catalog
	ListScenarios(ctx context.Context, filter entities.ScenarioFilter) ([]*entities.Scenario, error)
	GetScenario(ctx context.Context, id, language string) (*entities.Scenario, error)
	ListRoles(ctx context.Context, scenarioID string) ([]*entities.ScenarioRole, error)
	ListTips(ctx context.Context, scenarioID, language string) ([]string, error)
	ListTags(ctx context.Context, language string) ([]*entities.Tag, error)

	// Sessions
	CreateSession(ctx context.Context, params NewSessionParams) (*entities.Session, error)
	ListSessions(ctx context.Context) ([]*entities.Session, error)
	GetSession(ctx context.Context, id string) (*entities.Session, error)
	SubmitTurn(ctx context.Context, sessionID, userMessage string) (*entities.Turn, *entities.Session, error)
	EndSession(ctx context.Context, sessionID string) (*entities.Session, error)
	RateSession(ctx context.Context, sessionID string, rating int, feedback string) (*entities.Session, error)

	// Analytics
	SessionAnalytics(ctx context.Context, sessionID string) (*entities.SessionAnalytics, error)
	SessionInsights(ctx context.Context, sessionID string) (*entities.SessionInsights, error)
}
