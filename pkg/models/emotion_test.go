package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseEmotion tests label parsing with canonical, mixed-case and
// unknown inputs.
func TestParseEmotion(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    EmotionLabel
		wantErr bool
	}{
		{name: "canonical", raw: "Happy", want: EmotionHappy},
		{name: "lowercase", raw: "sad", want: EmotionSad},
		{name: "uppercase", raw: "SURPRISE", want: EmotionSurprise},
		{name: "mixed case", raw: "nEuTrAl", want: EmotionNeutral},
		{name: "unknown label", raw: "confused", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace padded", raw: " Happy ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEmotion(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestEmotionValid tests label validation against the canonical set.
func TestEmotionValid(t *testing.T) {
	for _, e := range AllEmotions {
		assert.True(t, e.Valid(), "expected %q to be valid", e)
	}

	assert.False(t, EmotionLabel("").Valid())
	assert.False(t, EmotionLabel("happy").Valid(), "Valid is case-sensitive; ParseEmotion canonicalizes")
	assert.False(t, EmotionLabel("Bored").Valid())
}

// TestAllEmotionsCount guards the canonical label set against accidental edits.
func TestAllEmotionsCount(t *testing.T) {
	assert.Len(t, AllEmotions, 7)

	seen := make(map[EmotionLabel]bool, len(AllEmotions))
	for _, e := range AllEmotions {
		assert.False(t, seen[e], "duplicate label %q", e)
		seen[e] = true
	}
}
