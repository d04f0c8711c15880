package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	t.Parallel()

	got := Excerpt("# Deadlines\n\nApply **before** [March](https://example.com).\n\n<script>alert(1)</script>")
	assert.Equal(t, "Deadlines Apply before March.", got)
}

func TestExcerptTruncates(t *testing.T) {
	t.Parallel()

	got := Excerpt(strings.Repeat("word ", 100))
	assert.Equal(t, ExcerptLen, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSanitizeContent(t *testing.T) {
	t.Parallel()

	got := SanitizeContent(`hello <script>alert(1)</script><b onclick="x()">bold</b>`)
	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "onclick")
	assert.Contains(t, got, "<b>bold</b>")
}
