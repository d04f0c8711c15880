package utils

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const ExcerptLen = 140

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	ugcPolicy = bluemonday.UGCPolicy()
)

func init() {
	ugcPolicy.RequireNoReferrerOnLinks(true)
}

// SanitizeContent strips unsafe HTML from user-submitted markdown before storage.
func SanitizeContent(source string) string {
	return ugcPolicy.Sanitize(source)
}

// Excerpt renders markdown and returns at most ExcerptLen runes of plain text.
func Excerpt(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return truncateRunes(strings.Join(strings.Fields(source), " "), ExcerptLen)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(ugcPolicy.SanitizeBytes(buf.Bytes())))
	if err != nil {
		return truncateRunes(strings.Join(strings.Fields(source), " "), ExcerptLen)
	}

	return truncateRunes(strings.Join(strings.Fields(doc.Text()), " "), ExcerptLen)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
