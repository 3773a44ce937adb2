package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/cache"
	"github.com/parleylabs/parley/client/repository"
)

// HistoryService serves past-session reads through the resource cache.
// Completed-session analytics are immutable and cached accordingly.
type HistoryService struct {
	backend repository.Backend
	cache   *cache.Store
	auth    *AuthService
	logger  *zap.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(
	backend repository.Backend,
	store *cache.Store,
	authService *AuthService,
	logger *zap.Logger,
) *HistoryService {
	return &HistoryService{
		backend: backend,
		cache:   store,
		auth:    authService,
		logger:  logger,
	}
}

func (h *HistoryService) gate() error {
	if !h.auth.IsInitialized() {
		return domain.NewValidationError("auth is not initialized yet")
	}
	return nil
}

// ListSessions returns the user's sessions, newest state the server knows
func (h *HistoryService) ListSessions(ctx context.Context) ([]*entities.Session, error) {
	if err := h.gate(); err != nil {
		return nil, err
	}
	value, err := h.cache.Get(ctx, sessionListKey(), cache.PolicyMedium, func(ctx context.Context) (interface{}, error) {
		return h.backend.ListSessions(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*entities.Session), nil
}

// GetSession returns one session by id
func (h *HistoryService) GetSession(ctx context.Context, id string) (*entities.Session, error) {
	if err := h.gate(); err != nil {
		return nil, err
	}
	value, err := h.cache.Get(ctx, sessionKey(id), cache.PolicyMedium, func(ctx context.Context) (interface{}, error) {
		return h.backend.GetSession(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*entities.Session), nil
}

// SessionAnalytics returns the derived-analytics payload of a completed
// session
func (h *HistoryService) SessionAnalytics(ctx context.Context, id string) (*entities.SessionAnalytics, error) {
	if err := h.gate(); err != nil {
		return nil, err
	}
	value, err := h.cache.Get(ctx, sessionAnalyticsKey(id), cache.PolicyNever, func(ctx context.Context) (interface{}, error) {
		return h.backend.SessionAnalytics(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*entities.SessionAnalytics), nil
}

// SessionInsights returns the qualitative insight payload of a completed
// session
func (h *HistoryService) SessionInsights(ctx context.Context, id string) (*entities.SessionInsights, error) {
	if err := h.gate(); err != nil {
		return nil, err
	}
	value, err := h.cache.Get(ctx, sessionInsightsKey(id), cache.PolicyNever, func(ctx context.Context) (interface{}, error) {
		return h.backend.SessionInsights(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return value.(*entities.SessionInsights), nil
}
