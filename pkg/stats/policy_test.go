package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/affectlab/moodtrace/pkg/models"
)

// PolicySuite is a test suite for policy loading and validation.
type PolicySuite struct {
	suite.Suite
	tempDir string
}

func (s *PolicySuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "policy-test-*")
	s.Require().NoError(err)
}

func (s *PolicySuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

// writePolicy writes a policy file into the temp dir and returns its path.
func (s *PolicySuite) writePolicy(content string) string {
	path := filepath.Join(s.tempDir, "policy.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefaultPolicy tests the built-in constants.
func (s *PolicySuite) TestDefaultPolicy() {
	p := DefaultPolicy()

	s.Equal(1, p.StableMax)
	s.Equal(2, p.MildMax)
	s.Equal(3, p.ModerateMax)
	s.Equal([]models.EmotionLabel{models.EmotionHappy, models.EmotionSurprise}, p.Positive)
	s.Equal([]models.EmotionLabel{
		models.EmotionSad, models.EmotionAngry, models.EmotionDisgust, models.EmotionFear,
	}, p.Negative)
	s.NoError(p.Validate())
}

// TestValidate tests threshold ordering and label checks.
func (s *PolicySuite) TestValidate() {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Policy) {}},
		{name: "negative stable max", mutate: func(p *Policy) { p.StableMax = -1 }, wantErr: true},
		{name: "mild below stable", mutate: func(p *Policy) { p.MildMax = 0 }, wantErr: true},
		{name: "moderate below mild", mutate: func(p *Policy) { p.ModerateMax = 1 }, wantErr: true},
		{name: "equal thresholds allowed", mutate: func(p *Policy) { p.StableMax, p.MildMax, p.ModerateMax = 2, 2, 2 }},
		{
			name:    "unknown positive label",
			mutate:  func(p *Policy) { p.Positive = append(p.Positive, "Ecstatic") },
			wantErr: true,
		},
		{
			name:    "unknown negative label",
			mutate:  func(p *Policy) { p.Negative = []models.EmotionLabel{"Gloomy"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				s.Error(err)
			} else {
				s.NoError(err)
			}
		})
	}
}

// TestLoadPolicy_MissingFile tests that an absent file yields the defaults.
func (s *PolicySuite) TestLoadPolicy_MissingFile() {
	p, err := LoadPolicy(filepath.Join(s.tempDir, "does-not-exist.yaml"))
	s.NoError(err)
	s.Equal(DefaultPolicy(), p)
}

// TestLoadPolicy_PartialOverride tests that absent keys keep their defaults.
func (s *PolicySuite) TestLoadPolicy_PartialOverride() {
	path := s.writePolicy("moderate_max: 5\n")

	p, err := LoadPolicy(path)
	s.NoError(err)

	s.Equal(1, p.StableMax)
	s.Equal(2, p.MildMax)
	s.Equal(5, p.ModerateMax)
	s.Equal(DefaultPolicy().Positive, p.Positive)
}

// TestLoadPolicy_FullOverride tests a complete policy file with
// case-insensitive labels.
func (s *PolicySuite) TestLoadPolicy_FullOverride() {
	path := s.writePolicy(`stable_max: 0
mild_max: 2
moderate_max: 4
positive:
  - happy
negative:
  - SAD
  - fear
`)

	p, err := LoadPolicy(path)
	s.NoError(err)

	s.Equal(0, p.StableMax)
	s.Equal(4, p.ModerateMax)
	s.Equal([]models.EmotionLabel{models.EmotionHappy}, p.Positive)
	s.Equal([]models.EmotionLabel{models.EmotionSad, models.EmotionFear}, p.Negative)
}

// TestLoadPolicy_Invalid tests rejection of malformed files.
func (s *PolicySuite) TestLoadPolicy_Invalid() {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "stable_max: [unclosed\n"},
		{name: "unknown label", content: "positive:\n  - Cheerful\n"},
		{name: "inverted thresholds", content: "stable_max: 3\nmild_max: 1\n"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			path := s.writePolicy(tt.content)
			_, err := LoadPolicy(path)
			s.Error(err)
		})
	}
}
