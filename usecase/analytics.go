package usecase

import (
	"github.com/parleylabs/parley/client/domain/entities"
)

// TimelinePoint is one point of the reconstructed per-turn score series
type TimelinePoint struct {
	Turn  int
	Score float64
	Delta float64
}

// BuildScoreTimeline reconstructs the full per-turn running score from the
// final score and the sparse breakthrough/setback moment lists. The backend
// reports no per-turn score log, so the series is rebuilt by walking
// backwards: startingScore = finalScore - sum of all deltas, then
// forward-accumulating turn by turn. Turns absent from both moment lists
// get a delta of 0; the reconstruction is exact.
func BuildScoreTimeline(finalScore float64, totalTurns int, breakthroughs, setbacks []entities.Moment) []TimelinePoint {
	if totalTurns <= 0 {
		return nil
	}

	deltas := make([]float64, totalTurns+1)
	for _, m := range breakthroughs {
		if m.Turn >= 1 && m.Turn <= totalTurns {
			deltas[m.Turn] += m.Delta
		}
	}
	for _, m := range setbacks {
		if m.Turn >= 1 && m.Turn <= totalTurns {
			deltas[m.Turn] += m.Delta
		}
	}

	sum := 0.0
	for _, d := range deltas {
		sum += d
	}
	startingScore := finalScore - sum

	timeline := make([]TimelinePoint, 0, totalTurns)
	score := startingScore
	for turn := 1; turn <= totalTurns; turn++ {
		score += deltas[turn]
		timeline = append(timeline, TimelinePoint{
			Turn:  turn,
			Score: score,
			Delta: deltas[turn],
		})
	}
	return timeline
}

// PercentileResult carries the user's standing within the score
// distribution. BetterThanPercentage currently equals Percentile.
type PercentileResult struct {
	Percentile           float64
	BetterThanPercentage float64
}

// BuildPercentile computes what fraction of the population scored at or
// below the user's score. Ties contribute half their population to "below"
// so the result is biased toward neither extreme, and the percentile is
// clamped to [1, 99] to avoid degenerate claims from small samples.
func BuildPercentile(userScore float64, distribution []entities.DistributionBucket) PercentileResult {
	total := 0
	below := 0.0
	for _, bucket := range distribution {
		total += bucket.Count
		if bucket.Below(userScore) {
			below += float64(bucket.Count)
		} else if bucket.Contains(userScore) {
			below += float64(bucket.Count) / 2
		}
	}

	percentile := 50.0
	if total > 0 {
		percentile = below / float64(total) * 100
	}
	if percentile < 1 {
		percentile = 1
	}
	if percentile > 99 {
		percentile = 99
	}

	return PercentileResult{
		Percentile:           percentile,
		BetterThanPercentage: percentile,
	}
}

// ChartBucket is one of the ten fixed chart buckets over the display scale
type ChartBucket struct {
	RangeStart float64 // inclusive, percent
	RangeEnd   float64 // exclusive except for the last bucket, percent
	Percentage float64 // share of the population in this bucket
	IsUser     bool    // contains the user's score
}

// Bucketize maps the score distribution onto 10 equal-width percentage
// buckets (0-10%, ..., 90-100%) for chart rendering and flags the bucket
// containing the user's score. The percentile computation uses the raw
// distribution, not this rebucketed view.
func Bucketize(distribution []entities.DistributionBucket, userScore float64) []ChartBucket {
	buckets := make([]ChartBucket, 10)
	for i := range buckets {
		buckets[i].RangeStart = float64(i * 10)
		buckets[i].RangeEnd = float64((i + 1) * 10)
	}

	total := 0
	counts := make([]int, 10)
	for _, bucket := range distribution {
		idx := bucketIndex(bucket.Representative())
		counts[idx] += bucket.Count
		total += bucket.Count
	}

	for i := range buckets {
		if total > 0 {
			buckets[i].Percentage = float64(counts[i]) / float64(total) * 100
		}
	}
	buckets[bucketIndex(userScore)].IsUser = true

	return buckets
}

func bucketIndex(score float64) int {
	idx := int(entities.ScoreToPercent(score) / 10)
	if idx > 9 {
		idx = 9
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}
