package usecase

import (
	"github.com/parleylabs/parley/client/domain/entities"
	"github.com/parleylabs/parley/client/internal/cache"
)

// Cache keys are hierarchical: resource kind first, then discriminating
// parameters in a fixed order, so prefix invalidation is well-defined.

func scenarioListKey(filter entities.ScenarioFilter) cache.Key {
	return append(cache.Key{"scenarios", "list"}, filter.KeyParts()...)
}

func scenarioKey(id, language string) cache.Key {
	return cache.Key{"scenarios", id, language}
}

func rolesKey(scenarioID string) cache.Key {
	return cache.Key{"scenarios", scenarioID, "roles"}
}

func tipsKey(scenarioID, language string) cache.Key {
	return cache.Key{"scenarios", scenarioID, "tips", language}
}

func tagsKey(language string) cache.Key {
	return cache.Key{"tags", language}
}

func sessionListKey() cache.Key {
	return cache.Key{"sessions", "list"}
}

func sessionKey(id string) cache.Key {
	return cache.Key{"sessions", id}
}

func sessionAnalyticsKey(id string) cache.Key {
	return cache.Key{"sessions", id, "analytics"}
}

func sessionInsightsKey(id string) cache.Key {
	return cache.Key{"sessions", id, "insights"}
}
