package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/affectlab/moodtrace/pkg/models"
)

// EngineSuite is a test suite for the aggregation functions.
type EngineSuite struct {
	suite.Suite
	policy Policy
}

func (s *EngineSuite) SetupTest() {
	s.policy = DefaultPolicy()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// repeat builds n samples with the same emotion and confidence.
func repeat(e models.EmotionLabel, confidence float64, n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Emotion: e, Confidence: confidence}
	}
	return out
}

// TestDistribution tests per-emotion counting.
func (s *EngineSuite) TestDistribution() {
	samples := []Sample{
		{Emotion: models.EmotionHappy, Confidence: 0.9},
		{Emotion: models.EmotionSad, Confidence: 0.5},
		{Emotion: models.EmotionHappy, Confidence: 0.8},
	}

	dist := Distribution(samples)

	s.Equal(map[models.EmotionLabel]int{
		models.EmotionHappy: 2,
		models.EmotionSad:   1,
	}, dist)

	// Counts always sum to the sample count.
	total := 0
	for _, n := range dist {
		total += n
	}
	s.Equal(len(samples), total)
}

// TestDistribution_Empty tests that an empty input yields an empty, non-nil map.
func (s *EngineSuite) TestDistribution_Empty() {
	dist := Distribution(nil)
	s.NotNil(dist)
	s.Empty(dist)
}

// TestAverageConfidence tests mean calculation and rounding.
func (s *EngineSuite) TestAverageConfidence() {
	tests := []struct {
		name     string
		samples  []Sample
		expected float64
	}{
		{name: "empty", samples: nil, expected: 0},
		{name: "single", samples: repeat(models.EmotionHappy, 0.75, 1), expected: 0.75},
		{
			name:     "mixed confidences",
			samples:  append(repeat(models.EmotionHappy, 0.9, 7), repeat(models.EmotionNeutral, 0.6, 3)...),
			expected: 0.81,
		},
		{name: "rounds to two decimals", samples: repeat(models.EmotionSad, 1.0/3.0, 3), expected: 0.33},
		{name: "rounds half up", samples: repeat(models.EmotionSad, 0.335, 1), expected: 0.34},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			assert.InDelta(s.T(), tt.expected, AverageConfidence(tt.samples), 1e-9)
		})
	}
}

// TestDominantEmotion tests most-frequent selection and its tie-break.
func (s *EngineSuite) TestDominantEmotion() {
	tests := []struct {
		name     string
		samples  []Sample
		expected models.EmotionLabel
	}{
		{name: "empty", samples: nil, expected: ""},
		{
			name:     "clear winner",
			samples:  append(repeat(models.EmotionHappy, 0.9, 7), repeat(models.EmotionNeutral, 0.6, 3)...),
			expected: models.EmotionHappy,
		},
		{
			name: "tie keeps earlier first occurrence",
			samples: []Sample{
				{Emotion: models.EmotionSad},
				{Emotion: models.EmotionHappy},
				{Emotion: models.EmotionHappy},
				{Emotion: models.EmotionSad},
			},
			expected: models.EmotionSad,
		},
		{
			name: "tie order reversed",
			samples: []Sample{
				{Emotion: models.EmotionHappy},
				{Emotion: models.EmotionSad},
				{Emotion: models.EmotionSad},
				{Emotion: models.EmotionHappy},
			},
			expected: models.EmotionHappy,
		},
		{
			name:     "equal blocks keep the first block's emotion",
			samples:  append(repeat(models.EmotionSad, 0.8, 5), repeat(models.EmotionHappy, 0.8, 5)...),
			expected: models.EmotionSad,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			assert.Equal(s.T(), tt.expected, DominantEmotion(tt.samples))
		})
	}
}

// TestRarestEmotion tests least-frequent selection among present emotions.
func (s *EngineSuite) TestRarestEmotion() {
	tests := []struct {
		name     string
		samples  []Sample
		expected models.EmotionLabel
	}{
		{name: "empty", samples: nil, expected: ""},
		{
			name:     "clear minimum",
			samples:  append(repeat(models.EmotionHappy, 0.9, 7), repeat(models.EmotionNeutral, 0.6, 3)...),
			expected: models.EmotionNeutral,
		},
		{
			name: "tie keeps earlier first occurrence",
			samples: []Sample{
				{Emotion: models.EmotionSad},
				{Emotion: models.EmotionSad},
				{Emotion: models.EmotionHappy},
				{Emotion: models.EmotionNeutral},
			},
			expected: models.EmotionHappy,
		},
		{
			name:     "single emotion is both dominant and rarest",
			samples:  repeat(models.EmotionFear, 0.4, 3),
			expected: models.EmotionFear,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			assert.Equal(s.T(), tt.expected, RarestEmotion(tt.samples))
		})
	}
}

// TestVariabilityFor tests the distinct-count buckets of the default policy.
func (s *EngineSuite) TestVariabilityFor() {
	tests := []struct {
		distinct int
		expected models.Variability
	}{
		{distinct: 0, expected: models.VariabilityStable},
		{distinct: 1, expected: models.VariabilityStable},
		{distinct: 2, expected: models.VariabilityMild},
		{distinct: 3, expected: models.VariabilityModerate},
		{distinct: 4, expected: models.VariabilityHigh},
		{distinct: 7, expected: models.VariabilityHigh},
	}

	for _, tt := range tests {
		assert.Equal(s.T(), tt.expected, VariabilityFor(tt.distinct, s.policy),
			"distinct=%d", tt.distinct)
	}
}

// TestVariabilityFor_CustomPolicy tests that thresholds follow the policy,
// not built-in constants.
func (s *EngineSuite) TestVariabilityFor_CustomPolicy() {
	p := Policy{StableMax: 2, MildMax: 4, ModerateMax: 6}

	assert.Equal(s.T(), models.VariabilityStable, VariabilityFor(2, p))
	assert.Equal(s.T(), models.VariabilityMild, VariabilityFor(3, p))
	assert.Equal(s.T(), models.VariabilityModerate, VariabilityFor(6, p))
	assert.Equal(s.T(), models.VariabilityHigh, VariabilityFor(7, p))
}

// TestTrendFor tests dominant-emotion classification with the default sets.
func (s *EngineSuite) TestTrendFor() {
	tests := []struct {
		dominant models.EmotionLabel
		expected models.Trend
	}{
		{dominant: models.EmotionHappy, expected: models.TrendPositive},
		{dominant: models.EmotionSurprise, expected: models.TrendPositive},
		{dominant: models.EmotionNeutral, expected: models.TrendNeutral},
		{dominant: models.EmotionSad, expected: models.TrendNegative},
		{dominant: models.EmotionAngry, expected: models.TrendNegative},
		{dominant: models.EmotionDisgust, expected: models.TrendNegative},
		{dominant: models.EmotionFear, expected: models.TrendNegative},
		{dominant: "", expected: models.TrendNoData},
	}

	for _, tt := range tests {
		assert.Equal(s.T(), tt.expected, TrendFor(tt.dominant, s.policy),
			"dominant=%q", tt.dominant)
	}
}

// TestTrendFor_UnlistedEmotionIsNeutral tests the neutral fallback for
// emotions outside both policy sets.
func (s *EngineSuite) TestTrendFor_UnlistedEmotionIsNeutral() {
	p := Policy{Positive: []models.EmotionLabel{models.EmotionHappy}}

	assert.Equal(s.T(), models.TrendNeutral, TrendFor(models.EmotionSad, p))
	assert.Equal(s.T(), models.TrendPositive, TrendFor(models.EmotionHappy, p))
}

// TestObservations tests sentence content and fixed ordering.
func (s *EngineSuite) TestObservations() {
	samples := append(repeat(models.EmotionHappy, 0.9, 7), repeat(models.EmotionNeutral, 0.6, 3)...)

	obs := Observations(samples)

	s.Equal([]string{
		"Happy was the dominant emotion.",
		"Detected 2 different emotions.",
		"Average confidence level: 81.0%",
	}, obs)
}

// TestObservations_Empty tests that no sentences are produced without samples.
func (s *EngineSuite) TestObservations_Empty() {
	obs := Observations(nil)
	s.NotNil(obs)
	s.Empty(obs)
}

// TestSessionObservations tests the cross-question wording.
func (s *EngineSuite) TestSessionObservations() {
	samples := append(repeat(models.EmotionSad, 0.5, 4), repeat(models.EmotionHappy, 0.7, 2)...)

	obs := SessionObservations(samples, 3)

	s.Equal([]string{
		"Sad was the dominant emotion across all questions.",
		"Detected 2 different emotions across 3 questions.",
		"Average confidence level: 56.7%",
	}, obs)
}

// TestObservations_ConfidenceNotDoubleRounded tests that the confidence
// sentence formats the raw mean at one decimal rather than re-rounding the
// two-decimal AverageConfidence value.
func (s *EngineSuite) TestObservations_ConfidenceNotDoubleRounded() {
	// Mean is 0.813: AverageConfidence reports 0.81, the sentence 81.3%.
	samples := append(repeat(models.EmotionHappy, 0.87, 7), repeat(models.EmotionNeutral, 0.68, 3)...)

	s.InDelta(0.81, AverageConfidence(samples), 1e-9)

	obs := Observations(samples)
	s.Require().Len(obs, 3)
	s.Equal("Average confidence level: 81.3%", obs[2])
}

// TestSummarize tests the full Results block for a two-emotion sample.
func (s *EngineSuite) TestSummarize() {
	samples := append(repeat(models.EmotionHappy, 0.9, 7), repeat(models.EmotionNeutral, 0.6, 3)...)

	r := Summarize(samples, s.policy)

	s.Equal(10, r.TotalFrames)
	s.Equal(map[models.EmotionLabel]int{
		models.EmotionHappy:   7,
		models.EmotionNeutral: 3,
	}, r.Distribution)
	s.InDelta(0.81, r.AverageConfidence, 1e-9)
	s.Equal(models.EmotionHappy, r.DominantEmotion)
	s.Equal(models.EmotionNeutral, r.RarestEmotion)
	s.Equal(models.VariabilityMild, r.Variability)
	s.Equal(models.TrendPositive, r.Trend)
	s.Len(r.Observations, 3)
}

// TestSummarize_Empty tests the zero-value Results for no samples.
func (s *EngineSuite) TestSummarize_Empty() {
	r := Summarize(nil, s.policy)

	s.Equal(0, r.TotalFrames)
	s.NotNil(r.Distribution)
	s.Empty(r.Distribution)
	s.Zero(r.AverageConfidence)
	s.Empty(r.DominantEmotion)
	s.Empty(r.RarestEmotion)
	s.Equal(models.VariabilityStable, r.Variability)
	s.Equal(models.TrendNoData, r.Trend)
	s.Empty(r.Observations)
}

// TestSummarizeSession tests that only the observation wording differs from
// Summarize.
func (s *EngineSuite) TestSummarizeSession() {
	samples := append(repeat(models.EmotionSad, 0.8, 5), repeat(models.EmotionHappy, 0.8, 5)...)

	r := SummarizeSession(samples, s.policy, 2)

	// First block wins the 5-5 tie.
	s.Equal(models.EmotionSad, r.DominantEmotion)
	s.Equal(models.TrendNegative, r.Trend)
	s.Equal("Sad was the dominant emotion across all questions.", r.Observations[0])
	s.Equal("Detected 2 different emotions across 2 questions.", r.Observations[1])
}
