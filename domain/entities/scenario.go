package entities

import (
	"strconv"
	"strings"
)

// DefaultLanguage is the fallback language for localized content
const DefaultLanguage = "en"

// LocalizedText holds translations of a single piece of content keyed by
// language code
type LocalizedText map[string]string

// Get returns the text for the given language, falling back to the default
// language and then to any available translation.
func (t LocalizedText) Get(language string) string {
	if v, ok := t[language]; ok && v != "" {
		return v
	}
	if v, ok := t[DefaultLanguage]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// Scenario represents a practice scenario. Scenarios are immutable once
// fetched; the remote API is the source of truth.
type Scenario struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Context    string        `json:"context"`
	Objective  string        `json:"objective"`
	Category   string        `json:"category"`
	Difficulty string        `json:"difficulty"`
	MaxTurns   int           `json:"max_turns"`
	Titles     LocalizedText `json:"titles,omitempty"`
	Contexts   LocalizedText `json:"contexts,omitempty"`
	Objectives LocalizedText `json:"objectives,omitempty"`
	ImageURL   string        `json:"image_url,omitempty"`
}

// LocalizedTitle returns the scenario title for the given language
func (s *Scenario) LocalizedTitle(language string) string {
	if v := s.Titles.Get(language); v != "" {
		return v
	}
	return s.Title
}

// LocalizedContext returns the scenario context text for the given language
func (s *Scenario) LocalizedContext(language string) string {
	if v := s.Contexts.Get(language); v != "" {
		return v
	}
	return s.Context
}

// LocalizedObjective returns the scenario objective for the given language
func (s *Scenario) LocalizedObjective(language string) string {
	if v := s.Objectives.Get(language); v != "" {
		return v
	}
	return s.Objective
}

// ScenarioRole represents a character in a scenario. Exactly one role is the
// user's own role per session; the rest are candidate counterparts.
type ScenarioRole struct {
	ID             string        `json:"id"`
	ScenarioID     string        `json:"scenario_id"`
	Name           string        `json:"name"`
	InitialMessage string        `json:"initial_message"`
	Names          LocalizedText `json:"names,omitempty"`
	Messages       LocalizedText `json:"messages,omitempty"`
	AvatarURL      string        `json:"avatar_url,omitempty"`
}

// LocalizedName returns the role name for the given language
func (r *ScenarioRole) LocalizedName(language string) string {
	if v := r.Names.Get(language); v != "" {
		return v
	}
	return r.Name
}

// Tag represents a scenario tag usable for filtering
type Tag struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Names LocalizedText `json:"names,omitempty"`
}

// ScenarioFilter describes the query parameters of a scenario-list fetch
type ScenarioFilter struct {
	Category   string
	Difficulty string
	Search     string
	Tags       []string
	Language   string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// KeyParts returns the filter's discriminating parameters in a fixed order,
// suitable as cache key components.
func (f ScenarioFilter) KeyParts() []string {
	return []string{
		f.Category,
		f.Difficulty,
		f.Search,
		strings.Join(f.Tags, ","),
		f.Language,
		f.SortBy,
		f.SortOrder,
		strconv.Itoa(f.Page),
		strconv.Itoa(f.PageSize),
	}
}
