// Package stats implements the pure aggregation engine for emotion samples.
package stats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/affectlab/moodtrace/pkg/models"
)

// Policy holds the tunable classification constants used by the engine.
//
// Variability buckets a sample's distinct-emotion count:
// <=StableMax Stable, <=MildMax Mild, <=ModerateMax Moderate, above High.
// Trend classifies the dominant emotion: member of Positive -> positive,
// member of Negative -> negative, anything else -> neutral.
type Policy struct {
	StableMax   int `yaml:"stable_max"`
	MildMax     int `yaml:"mild_max"`
	ModerateMax int `yaml:"moderate_max"`

	Positive []models.EmotionLabel `yaml:"positive"`
	Negative []models.EmotionLabel `yaml:"negative"`
}

// DefaultPolicy returns the built-in classification constants: variability
// buckets 0-1/2/3/4+ and the standard positive/negative emotion sets.
func DefaultPolicy() Policy {
	return Policy{
		StableMax:   1,
		MildMax:     2,
		ModerateMax: 3,
		Positive: []models.EmotionLabel{
			models.EmotionHappy,
			models.EmotionSurprise,
		},
		Negative: []models.EmotionLabel{
			models.EmotionSad,
			models.EmotionAngry,
			models.EmotionDisgust,
			models.EmotionFear,
		},
	}
}

// Validate checks threshold ordering and trend set membership.
func (p Policy) Validate() error {
	if p.StableMax < 0 || p.MildMax < p.StableMax || p.ModerateMax < p.MildMax {
		return fmt.Errorf("variability thresholds must satisfy 0 <= stable_max <= mild_max <= moderate_max, got %d/%d/%d",
			p.StableMax, p.MildMax, p.ModerateMax)
	}
	for _, e := range p.Positive {
		if !e.Valid() {
			return fmt.Errorf("positive trend set: unknown emotion label %q", e)
		}
	}
	for _, e := range p.Negative {
		if !e.Valid() {
			return fmt.Errorf("negative trend set: unknown emotion label %q", e)
		}
	}
	return nil
}

// LoadPolicy reads the YAML policy file at path, overlaying it on the
// defaults so absent keys keep their built-in values. A missing file yields
// DefaultPolicy (not an error). Labels are matched case-insensitively.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return Policy{}, err
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}

	for i, e := range p.Positive {
		canon, err := models.ParseEmotion(string(e))
		if err != nil {
			return Policy{}, fmt.Errorf("policy positive set: %w", err)
		}
		p.Positive[i] = canon
	}
	for i, e := range p.Negative {
		canon, err := models.ParseEmotion(string(e))
		if err != nil {
			return Policy{}, fmt.Errorf("policy negative set: %w", err)
		}
		p.Negative[i] = canon
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}
