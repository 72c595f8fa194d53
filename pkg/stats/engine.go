package stats

import (
	"fmt"
	"math"

	"github.com/affectlab/moodtrace/pkg/models"
)

// Sample is one classified observation fed to the engine.
type Sample struct {
	Emotion    models.EmotionLabel
	Confidence float64
}

// Distribution counts occurrences per emotion. Labels that never occur are
// absent from the map; the map is never nil.
func Distribution(samples []Sample) map[models.EmotionLabel]int {
	dist := make(map[models.EmotionLabel]int)
	for _, s := range samples {
		dist[s.Emotion]++
	}
	return dist
}

// AverageConfidence is the arithmetic mean of sample confidences, rounded to
// two decimals. Returns 0 for an empty sample set.
func AverageConfidence(samples []Sample) float64 {
	return round2(meanConfidence(samples))
}

// meanConfidence is the unrounded mean. The observation sentence formats the
// raw value at one decimal; rounding to two decimals first would shift it.
func meanConfidence(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Confidence
	}
	return sum / float64(len(samples))
}

// DominantEmotion returns the most frequent emotion in the sample set.
// Ties break toward the emotion whose first occurrence came earliest in
// sample order. Empty input returns "".
func DominantEmotion(samples []Sample) models.EmotionLabel {
	return pickByCount(samples, func(candidate, best int) bool {
		return candidate > best
	})
}

// RarestEmotion returns the least frequent emotion among those present,
// with the same first-occurrence tie-break as DominantEmotion.
func RarestEmotion(samples []Sample) models.EmotionLabel {
	return pickByCount(samples, func(candidate, best int) bool {
		return candidate < best
	})
}

// pickByCount scans distinct emotions in first-occurrence order and keeps
// the one whose count wins under better. The strict comparison means an
// emotion seen earlier always survives a tie.
func pickByCount(samples []Sample, better func(candidate, best int) bool) models.EmotionLabel {
	if len(samples) == 0 {
		return ""
	}

	counts := make(map[models.EmotionLabel]int)
	var firstSeen []models.EmotionLabel
	for _, s := range samples {
		if counts[s.Emotion] == 0 {
			firstSeen = append(firstSeen, s.Emotion)
		}
		counts[s.Emotion]++
	}

	best := firstSeen[0]
	for _, e := range firstSeen[1:] {
		if better(counts[e], counts[best]) {
			best = e
		}
	}
	return best
}

// VariabilityFor classifies a distinct-emotion count against the policy's
// thresholds.
func VariabilityFor(distinct int, p Policy) models.Variability {
	switch {
	case distinct <= p.StableMax:
		return models.VariabilityStable
	case distinct <= p.MildMax:
		return models.VariabilityMild
	case distinct <= p.ModerateMax:
		return models.VariabilityModerate
	default:
		return models.VariabilityHigh
	}
}

// TrendFor classifies a dominant emotion into an overall trend. An empty
// dominant emotion (no samples) yields TrendNoData; emotions in neither
// policy set classify as neutral.
func TrendFor(dominant models.EmotionLabel, p Policy) models.Trend {
	if dominant == "" {
		return models.TrendNoData
	}
	for _, e := range p.Positive {
		if e == dominant {
			return models.TrendPositive
		}
	}
	for _, e := range p.Negative {
		if e == dominant {
			return models.TrendNegative
		}
	}
	return models.TrendNeutral
}

// Observations builds the fixed observation sentences: dominant emotion,
// distinct-emotion count, average confidence percentage, in that order.
// Empty input yields an empty list.
func Observations(samples []Sample) []string {
	if len(samples) == 0 {
		return []string{}
	}
	return []string{
		fmt.Sprintf("%s was the dominant emotion.", DominantEmotion(samples)),
		fmt.Sprintf("Detected %d different emotions.", len(Distribution(samples))),
		confidenceSentence(samples),
	}
}

// SessionObservations is the cross-question variant of Observations, worded
// the way session summaries are presented.
func SessionObservations(samples []Sample, questionCount int) []string {
	if len(samples) == 0 {
		return []string{}
	}
	return []string{
		fmt.Sprintf("%s was the dominant emotion across all questions.", DominantEmotion(samples)),
		fmt.Sprintf("Detected %d different emotions across %d questions.", len(Distribution(samples)), questionCount),
		confidenceSentence(samples),
	}
}

func confidenceSentence(samples []Sample) string {
	return fmt.Sprintf("Average confidence level: %.1f%%", meanConfidence(samples)*100)
}

// Summarize aggregates samples into a Results block using the policy's
// thresholds and trend sets. The result is self-contained and safe to
// retain after the input slice is reused.
func Summarize(samples []Sample, p Policy) models.Results {
	dist := Distribution(samples)
	dominant := DominantEmotion(samples)
	return models.Results{
		TotalFrames:       len(samples),
		Distribution:      dist,
		AverageConfidence: AverageConfidence(samples),
		DominantEmotion:   dominant,
		RarestEmotion:     RarestEmotion(samples),
		Variability:       VariabilityFor(len(dist), p),
		Trend:             TrendFor(dominant, p),
		Observations:      Observations(samples),
	}
}

// SummarizeSession is Summarize with session-level observation wording.
func SummarizeSession(samples []Sample, p Policy, questionCount int) models.Results {
	r := Summarize(samples, p)
	r.Observations = SessionObservations(samples, questionCount)
	return r
}

// round2 rounds to two decimal places, half away from zero.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
