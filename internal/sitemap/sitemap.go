// Package sitemap renders the localized sitemap.xml.
package sitemap

import (
	"encoding/xml"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"portal/pkg/requestcontext"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

var localizedRoutes = []string{"/signin", "/signup", "/profile"}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

// Handler serves GET /sitemap.xml.
type Handler struct {
	baseURL string
	locales []string
	logger  *slog.Logger
}

func New(baseURL string, locales []string, logger *slog.Logger) *Handler {
	return &Handler{
		baseURL: strings.TrimRight(baseURL, "/"),
		locales: locales,
		logger:  logger,
	}
}

// Register registers the sitemap route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/sitemap.xml", h.handleSitemap)
}

// Build returns the entries: the site root, each locale's home, and each
// locale's auth and profile pages.
func (h *Handler) Build(now time.Time) []entry {
	lastMod := now.UTC().Format(time.RFC3339)
	out := []entry{{Loc: h.baseURL, LastMod: lastMod, ChangeFreq: "yearly", Priority: 1}}
	for _, locale := range h.locales {
		out = append(out, entry{
			Loc: h.baseURL + "/" + locale, LastMod: lastMod, ChangeFreq: "monthly", Priority: 0.8,
		})
		for _, route := range localizedRoutes {
			out = append(out, entry{
				Loc: h.baseURL + "/" + locale + route, LastMod: lastMod, ChangeFreq: "weekly", Priority: 0.7,
			})
		}
	}
	return out
}

func (h *Handler) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := xml.MarshalIndent(urlSet{Xmlns: xmlns, URLs: h.Build(requestcontext.Now(ctx))}, "", "  ")
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render sitemap",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		http.Error(w, "sitemap unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}
