package entities

import (
	"errors"
	"time"
)

// RelationshipLevel represents the configured closeness between the user and
// the AI character
type RelationshipLevel string

const (
	RelationshipLow    RelationshipLevel = "low"
	RelationshipNormal RelationshipLevel = "normal"
	RelationshipHigh   RelationshipLevel = "high"
)

// CompletionReason explains why a session ended
type CompletionReason string

const (
	CompletionMaxTurns   CompletionReason = "max_turns"
	CompletionEndedEarly CompletionReason = "ended_early"
	CompletionObjective  CompletionReason = "objective_met"
)

// TurnStatus tracks the reconciliation state of a turn that was appended
// optimistically before the network call resolved
type TurnStatus string

const (
	TurnStatusOptimistic TurnStatus = "optimistic"
	TurnStatusConfirmed  TurnStatus = "confirmed"
	TurnStatusSystem     TurnStatus = "system"
)

// Connection score bounds. The display scale is derived, never stored.
const (
	MinConnectionScore = -5.0
	MaxConnectionScore = 5.0
)

// Turn represents one user-message/AI-response exchange within a session
type Turn struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	Number      int        `json:"number"`
	UserMessage string     `json:"user_message"`
	AIResponse  string     `json:"ai_response"`
	Emotion     string     `json:"emotion,omitempty"`
	ScoreDelta  float64    `json:"score_delta,omitempty"`
	Status      TurnStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session represents one practice conversation between the user and an
// AI-played character
type Session struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	ScenarioID        string            `json:"scenario_id"`
	RoleID            string            `json:"role_id"`
	RelationshipLevel RelationshipLevel `json:"relationship_level"`
	Language          string            `json:"language,omitempty"`
	Turns             []Turn            `json:"turns"`
	ConnectionScore   float64           `json:"connection_score"`
	CurrentTurn       int               `json:"current_turn"`
	MaxTurns          int               `json:"max_turns"`
	Completed         bool              `json:"completed"`
	CompletionReason  CompletionReason  `json:"completion_reason,omitempty"`
	Rating            int               `json:"rating,omitempty"`
	Feedback          string            `json:"feedback,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// ClampScore clamps a connection score into [-5, +5]
func ClampScore(score float64) float64 {
	if score < MinConnectionScore {
		return MinConnectionScore
	}
	if score > MaxConnectionScore {
		return MaxConnectionScore
	}
	return score
}

// ScoreToPercent converts a connection score to the 0-100% display scale
func ScoreToPercent(score float64) float64 {
	return (ClampScore(score) + 5) / 10 * 100
}

// DisplayScore returns the session's connection score on the display scale
func (s *Session) DisplayScore() float64 {
	return ScoreToPercent(s.ConnectionScore)
}

// UserTurnCount returns the number of user turns recorded so far, optimistic
// entries included, system markers excluded.
func (s *Session) UserTurnCount() int {
	count := 0
	for i := range s.Turns {
		if s.Turns[i].Status != TurnStatusSystem {
			count++
		}
	}
	return count
}

// AtTurnLimit reports whether the session has reached its turn limit
func (s *Session) AtTurnLimit() bool {
	return s.MaxTurns > 0 && s.UserTurnCount() >= s.MaxTurns
}

// AddOptimisticTurn appends a turn for a user message whose network call has
// not yet resolved. The turn carries a locally generated id until it is
// confirmed or removed.
func (s *Session) AddOptimisticTurn(localID, userMessage string) *Turn {
	turn := Turn{
		ID:          localID,
		SessionID:   s.ID,
		Number:      s.UserTurnCount() + 1,
		UserMessage: userMessage,
		Status:      TurnStatusOptimistic,
		CreatedAt:   time.Now(),
	}
	s.Turns = append(s.Turns, turn)
	return &s.Turns[len(s.Turns)-1]
}

// ConfirmTurn replaces the optimistic turn identified by localID with the
// server-assigned turn, preserving its position in history. It reports
// whether a matching optimistic turn was found.
func (s *Session) ConfirmTurn(localID string, confirmed Turn) bool {
	for i := range s.Turns {
		if s.Turns[i].ID == localID && s.Turns[i].Status == TurnStatusOptimistic {
			confirmed.Status = TurnStatusConfirmed
			if confirmed.Number == 0 {
				confirmed.Number = s.Turns[i].Number
			}
			s.Turns[i] = confirmed
			return true
		}
	}
	return false
}

// RemoveTurn removes the turn with the given id from history. Used to roll
// back an optimistic turn whose network call failed.
func (s *Session) RemoveTurn(id string) bool {
	for i := range s.Turns {
		if s.Turns[i].ID == id {
			s.Turns = append(s.Turns[:i], s.Turns[i+1:]...)
			return true
		}
	}
	return false
}

// AppendSystemMarker appends a system-level marker (e.g. "session ended") to
// the turn history. Markers do not count toward the turn limit.
func (s *Session) AppendSystemMarker(text string) {
	s.Turns = append(s.Turns, Turn{
		SessionID:  s.ID,
		AIResponse: text,
		Status:     TurnStatusSystem,
		CreatedAt:  time.Now(),
	})
}

// HasSystemMarker reports whether a system marker with the given text exists
func (s *Session) HasSystemMarker(text string) bool {
	for i := range s.Turns {
		if s.Turns[i].Status == TurnStatusSystem && s.Turns[i].AIResponse == text {
			return true
		}
	}
	return false
}

// ApplyRemote folds server-reported session state into the local record.
// Turn history is owned locally; score, counters and completion come from
// the server.
func (s *Session) ApplyRemote(remote *Session) {
	if remote == nil {
		return
	}
	s.ConnectionScore = ClampScore(remote.ConnectionScore)
	if remote.CurrentTurn > s.CurrentTurn {
		s.CurrentTurn = remote.CurrentTurn
	}
	if remote.MaxTurns > 0 {
		s.MaxTurns = remote.MaxTurns
	}
	if remote.Completed {
		s.Completed = true
		if remote.CompletionReason != "" {
			s.CompletionReason = remote.CompletionReason
		}
	}
	if remote.Rating != 0 {
		s.Rating = remote.Rating
		s.Feedback = remote.Feedback
	}
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ScenarioID == "" {
		return errors.New("scenario id is required")
	}
	if s.RoleID == "" {
		return errors.New("role id is required")
	}

	switch s.RelationshipLevel {
	case RelationshipLow, RelationshipNormal, RelationshipHigh:
	default:
		return errors.New("invalid relationship level")
	}

	if s.ConnectionScore < MinConnectionScore || s.ConnectionScore > MaxConnectionScore {
		return errors.New("connection score out of range")
	}

	if s.Rating != 0 && (s.Rating < 1 || s.Rating > 5) {
		return errors.New("rating must be between 1 and 5")
	}

	return nil
}
