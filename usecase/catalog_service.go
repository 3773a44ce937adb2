package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/parleylabs/parley/client/domain"
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/cache"
	"github.com/parleylabs/parley/client/repository"
)

// CatalogService serves scenario, role, tip and tag reads through the
// resource cache so independently rendered views see consistent data.
type CatalogService struct {
	backend repository.Backend
	cache   *cache.Store
	auth    *AuthService
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	backend repository.Backend,
	store *cache.Store,
	authService *AuthService,
	logger *zap.Logger,
) *CatalogService {
	return &CatalogService{
		backend: backend,
		cache:   store,
		auth:    authService,
		logger:  logger,
	}
}

// ListScenarios returns scenarios matching the filter
func (c *CatalogService) ListScenarios(ctx context.Context, filter entities.ScenarioFilter) ([]*entities.Scenario, error) {
	value, err := c.cache.Get(ctx, scenarioListKey(filter), cache.PolicyMedium, func(ctx context.Context) (interface{}, error) {
		return c.backend.ListScenarios(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*entities.Scenario), nil
}

// GetScenario returns one scenario. A failed detail fetch falls back to a
// list search before giving up: individual reads are non-critical and the
// list endpoint often still has the data.
func (c *CatalogService) GetScenario(ctx context.Context, id, language string) (*entities.Scenario, error) {
	value, err := c.cache.Get(ctx, scenarioKey(id, language), cache.PolicyMedium, func(ctx context.Context) (interface{}, error) {
		scenario, err := c.backend.GetScenario(ctx, id, language)
		if err == nil {
			return scenario, nil
		}

		var httpErr *domain.HTTPError
		if !errors.As(err, &httpErr) {
			return nil, err
		}
		c.logger.Info("Scenario detail fetch failed, falling back to list search",
			zap.String("scenario_id", id),
			zap.Error(err))

		scenarios, listErr := c.backend.ListScenarios(ctx, entities.ScenarioFilter{Language: language})
		if listErr != nil {
			return nil, err
		}
		for _, s := range scenarios {
			if s.ID == id {
				return s, nil
			}
		}
		return nil, err
	})
	if err != nil {
		return nil, err
	}

	c.auth.RecordScenarioView()
	return value.(*entities.Scenario), nil
}

// ListRoles returns the roles of a scenario
func (c *CatalogService) ListRoles(ctx context.Context, scenarioID string) ([]*entities.ScenarioRole, error) {
	value, err := c.cache.Get(ctx, rolesKey(scenarioID), cache.PolicyMedium, func(ctx context.Context) (interface{}, error) {
		return c.backend.ListRoles(ctx, scenarioID)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*entities.ScenarioRole), nil
}

// ListTips returns the tips of a scenario
func (c *CatalogService) ListTips(ctx context.Context, scenarioID, language string) ([]string, error) {
	value, err := c.cache.Get(ctx, tipsKey(scenarioID, language), cache.PolicyLong, func(ctx context.Context) (interface{}, error) {
		return c.backend.ListTips(ctx, scenarioID, language)
	})
	if err != nil {
		return nil, err
	}
	return value.([]string), nil
}

// ListTags returns the available scenario tags
func (c *CatalogService) ListTags(ctx context.Context, language string) ([]*entities.Tag, error) {
	value, err := c.cache.Get(ctx, tagsKey(language), cache.PolicyLong, func(ctx context.Context) (interface{}, error) {
		return c.backend.ListTags(ctx, language)
	})
	if err != nil {
		return nil, err
	}
	return value.([]*entities.Tag), nil
}
