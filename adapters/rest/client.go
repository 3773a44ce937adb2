package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/repository"
)

const defaultTimeout = 30 * time.Second

// Config holds configuration for the REST client
// Required fields:
// - BaseURL: the base URL of the practice API
// Optional fields with defaults:
// - Timeout: per-request timeout (default: 30s)
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements repository.Backend over the practice API's HTTP/JSON
// surface. It is the single chokepoint for network calls: it attaches the
// bearer token, unwraps the response envelope and maps failures to the
// domain taxonomy. It does not cache, retry, or interpret responses.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

// Ensure Client implements the Backend interface
var _ repository.Backend = (*Client)(nil)

// NewClient creates a new REST client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// SetAuthToken replaces the credential attached to all subsequent requests.
// It takes effect for any request issued after it returns.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// envelope is the uniform response shape of the practice API
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// do executes one API request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Request transport failure",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.NetworkError{Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(responseBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := env.Error
		c.logger.Warn("Request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return &domain.HTTPError{Status: resp.StatusCode, Message: message}
	}

	if decodeErr != nil {
		return &domain.DecodeError{Err: decodeErr}
	}
	if !env.Success {
		return &domain.HTTPError{Status: resp.StatusCode, Message: env.Error}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &domain.DecodeError{Err: err}
		}
	}
	return nil
}

func (c *Client) auth(ctx context.Context, path string, body interface{}) (*repository.AuthResult, error) {
	var payload authPayload
	if err := c.do(ctx, http.MethodPost, path, nil, body, &payload); err != nil {
		return nil, err
	}
	return &repository.AuthResult{Identity: payload.User, Token: payload.Token}, nil
}

// CreateGuest obtains a guest identity and token
func (c *Client) CreateGuest(ctx context.Context, displayName string) (*repository.AuthResult, error) {
	return c.auth(ctx, "/auth/guest", guestRequest{DisplayName: displayName})
}

// Register creates a registered account
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*repository.AuthResult, error) {
	return c.auth(ctx, "/auth/register", registerRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*repository.AuthResult, error) {
	return c.auth(ctx, "/auth/login", loginRequest{Email: email, Password: password})
}

// LoginGoogle authenticates with a Google credential
func (c *Client) LoginGoogle(ctx context.Context, credential string) (*repository.AuthResult, error) {
	return c.auth(ctx, "/auth/google", googleRequest{Credential: credential})
}

// ConvertGuest converts the authenticated guest to an email account
func (c *Client) ConvertGuest(ctx context.Context, email, password, displayName string) (*repository.AuthResult, error) {
	return c.auth(ctx, "/auth/convert-guest", registerRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
}

// ConvertGuestGoogle converts the authenticated guest via a Google credential
func (c *Client) ConvertGuestGoogle(ctx context.Context, credential string) (*repository.AuthResult, error) {
	return c.auth(ctx, "/auth/convert-guest-google", googleRequest{Credential: credential})
}

// CurrentUser validates the current token and returns its identity
func (c *Client) CurrentUser(ctx context.Context) (*entities.Identity, error) {
	var payload userPayload
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// DeleteAccount deletes the authenticated account
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/auth/me", nil, nil, nil)
}

// ListScenarios fetches scenarios matching the filter
func (c *Client) ListScenarios(ctx context.Context, filter entities.ScenarioFilter) ([]*entities.Scenario, error) {
	query := url.Values{}
	if filter.Category != "" {
		query.Set("category", filter.Category)
	}
	if filter.Difficulty != "" {
		query.Set("difficulty", filter.Difficulty)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if len(filter.Tags) > 0 {
		query.Set("tags", strings.Join(filter.Tags, ","))
	}
	if filter.Language != "" {
		query.Set("language", filter.Language)
	}
	if filter.SortBy != "" {
		query.Set("sort_by", filter.SortBy)
	}
	if filter.SortOrder != "" {
		query.Set("sort_order", filter.SortOrder)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(filter.PageSize))
	}

	var scenarios []*entities.Scenario
	if err := c.do(ctx, http.MethodGet, "/scenarios", query, nil, &scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

// GetScenario fetches a single scenario
func (c *Client) GetScenario(ctx context.Context, id, language string) (*entities.Scenario, error) {
	query := url.Values{}
	if language != "" {
		query.Set("language", language)
	}
	var scenario entities.Scenario
	if err := c.do(ctx, http.MethodGet, "/scenarios/"+id, query, nil, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// ListRoles fetches the roles of a scenario
func (c *Client) ListRoles(ctx context.Context, scenarioID string) ([]*entities.ScenarioRole, error) {
	var roles []*entities.ScenarioRole
	if err := c.do(ctx, http.MethodGet, "/scenarios/"+scenarioID+"/roles", nil, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListTips fetches the tips of a scenario
func (c *Client) ListTips(ctx context.Context, scenarioID, language string) ([]string, error) {
	query := url.Values{}
	if language != "" {
		query.Set("language", language)
	}
	var tips []string
	if err := c.do(ctx, http.MethodGet, "/scenarios/"+scenarioID+"/tips", query, nil, &tips); err != nil {
		return nil, err
	}
	return tips, nil
}

// ListTags fetches the available scenario tags
func (c *Client) ListTags(ctx context.Context, language string) ([]*entities.Tag, error) {
	query := url.Values{}
	if language != "" {
		query.Set("language", language)
	}
	var tags []*entities.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", query, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateSession creates a new practice session
func (c *Client) CreateSession(ctx context.Context, params repository.NewSessionParams) (*entities.Session, error) {
	var session entities.Session
	body := createSessionRequest{
		ScenarioID:        params.ScenarioID,
		RoleID:            params.RoleID,
		RelationshipLevel: string(params.RelationshipLevel),
		Language:          params.Language,
	}
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSessions fetches the authenticated user's sessions
func (c *Client) ListSessions(ctx context.Context) ([]*entities.Session, error) {
	var sessions []*entities.Session
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession fetches a single session
func (c *Client) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	var session entities.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SubmitTurn submits a user message and returns the recorded turn together
// with the updated session state.
func (c *Client) SubmitTurn(ctx context.Context, sessionID, userMessage string) (*entities.Turn, *entities.Session, error) {
	var payload turnPayload
	body := submitTurnRequest{Message: userMessage}
	if err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/turns", nil, body, &payload); err != nil {
		return nil, nil, err
	}
	return payload.Turn, payload.Session, nil
}

// EndSession asks the backend to complete a session
func (c *Client) EndSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	var session entities.Session
	if err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/end", nil, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RateSession submits a 1-5 rating with optional feedback text
func (c *Client) RateSession(ctx context.Context, sessionID string, rating int, feedback string) (*entities.Session, error) {
	var session entities.Session
	body := rateSessionRequest{Rating: rating, Feedback: feedback}
	if err := c.do(ctx, http.MethodPut, "/sessions/"+sessionID+"/rating", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SessionAnalytics fetches the derived-analytics payload of a session
func (c *Client) SessionAnalytics(ctx context.Context, sessionID string) (*entities.SessionAnalytics, error) {
	var analytics entities.SessionAnalytics
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/analytics", nil, nil, &analytics); err != nil {
		return nil, err
	}
	return &analytics, nil
}

// SessionInsights fetches the qualitative insight payload of a session
func (c *Client) SessionInsights(ctx context.Context, sessionID string) (*entities.SessionInsights, error) {
	var insights entities.SessionInsights
	if err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/insights", nil, nil, &insights); err != nil {
		return nil, err
	}
	return &insights, nil
}
