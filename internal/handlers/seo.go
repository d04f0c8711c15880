package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"knowledgehub/internal/services"
)

// sitemapLimit 避免 sitemap 过大
const sitemapLimit = 500

type SEOHandler struct {
	posts   *services.PostService
	siteURL string
}

func NewSEOHandler(posts *services.PostService, siteURL string) *SEOHandler {
	return &SEOHandler{posts: posts, siteURL: strings.TrimRight(siteURL, "/")}
}

// RobotsTxt keeps crawlers on public pages.
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /
Disallow: /api/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML lists approved posts by slug.
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	posts, err := h.posts.Published(c.Request.Context(), sitemapLimit)
	if err != nil {
		RenderError(c, err)
		return
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	fmt.Fprintf(&b, "  <url>\n    <loc>%s/</loc>\n    <changefreq>hourly</changefreq>\n    <priority>1.0</priority>\n  </url>\n", h.siteURL)

	for _, post := range posts {
		// 根据发布时间调整优先级
		priority, changefreq := 0.6, "weekly"
		if post.PublishedAt != nil && time.Since(*post.PublishedAt) < 7*24*time.Hour {
			priority, changefreq = 0.8, "daily"
		}
		fmt.Fprintf(&b, "  <url>\n    <loc>%s/questions/%s</loc>\n    <lastmod>%s</lastmod>\n    <changefreq>%s</changefreq>\n    <priority>%.1f</priority>\n  </url>\n",
			h.siteURL, html.EscapeString(post.Slug), post.UpdatedAt.Format("2006-01-02"), changefreq, priority)
	}
	b.WriteString(`</urlset>`)

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, b.String())
}
