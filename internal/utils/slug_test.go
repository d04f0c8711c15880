package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  string
	}{
		{"How do I apply?", "how-do-i-apply"},
		{"  Café   déjà vu  ", "cafe-deja-vu"},
		{"C++ & Go -- tips", "c-go-tips"},
		{"snake_case_title", "snake-case-title"},
		{"e-visa rules", "e-visa-rules"},
		{"Ünïcödé Title", "unicode-title"},
		{"2026 Fall Intake", "2026-fall-intake"},
		{"???", SlugFallback},
		{"", SlugFallback},
		{"日本語", SlugFallback},
		{strings.Repeat("a", 120), strings.Repeat("a", SlugMaxLen)},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugifyTruncationNeverEndsWithHyphen(t *testing.T) {
	t.Parallel()

	for n := 30; n < 60; n++ {
		s := Slugify(strings.Repeat("ab c ", n))
		assert.LessOrEqual(t, len(s), SlugMaxLen)
		assert.False(t, strings.HasSuffix(s, "-"), s)
		assert.False(t, strings.Contains(s, "--"), s)
	}
}
