package entities

// Moment represents a turn the backend flagged as producing a notable score
// delta (a breakthrough when positive, a setback when negative)
type Moment struct {
	Turn    int     `json:"turn"`
	Delta   float64 `json:"delta"`
	Summary string  `json:"summary,omitempty"`
}

// DistributionBucket represents one bucket of the population score
// distribution. A bucket is either a single score value or a min-max range.
type DistributionBucket struct {
	Score    *float64 `json:"score,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
	MaxScore *float64 `json:"max_score,omitempty"`
	Count    int      `json:"count"`
}

// Below reports whether the entire bucket lies strictly below the score
func (b DistributionBucket) Below(score float64) bool {
	if b.Score != nil {
		return *b.Score < score
	}
	if b.MaxScore != nil {
		return *b.MaxScore < score
	}
	return false
}

// Contains reports whether the score falls inside the bucket
func (b DistributionBucket) Contains(score float64) bool {
	if b.Score != nil {
		return *b.Score == score
	}
	if b.MinScore != nil && b.MaxScore != nil {
		return *b.MinScore <= score && score <= *b.MaxScore
	}
	return false
}

// Representative returns a single score standing in for the bucket: the
// value itself for single-value buckets, the midpoint for range buckets.
func (b DistributionBucket) Representative() float64 {
	if b.Score != nil {
		return *b.Score
	}
	if b.MinScore != nil && b.MaxScore != nil {
		return (*b.MinScore + *b.MaxScore) / 2
	}
	return 0
}

// SessionAnalytics is the derived-analytics payload for a completed session.
// The backend reports only the final score and sparse moment lists, not a
// full per-turn score log.
type SessionAnalytics struct {
	SessionID     string               `json:"session_id"`
	FinalScore    float64              `json:"final_score"`
	TotalTurns    int                  `json:"total_turns"`
	Breakthroughs []Moment             `json:"breakthroughs"`
	Setbacks      []Moment             `json:"setbacks"`
	Distribution  []DistributionBucket `json:"distribution"`
}

// SessionInsights carries qualitative feedback text for a completed session
type SessionInsights struct {
	SessionID    string   `json:"session_id"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}
