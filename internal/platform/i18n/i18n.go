// Package i18n resolves the request locale and prints localized messages from the
// x/text catalogs registered by messages_*.go.
package i18n

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "NEXT_LOCALE"
)

// Resolver matches requests against the configured locale list.
type Resolver struct {
	tags    []language.Tag
	names   []string
	ordered []language.Tag
	def     language.Tag
	matcher language.Matcher
}

// NewResolver builds a resolver for the given locale names. The default locale must
// be one of them.
func NewResolver(locales []string, defaultLocale string) (*Resolver, error) {
	if len(locales) == 0 {
		return nil, fmt.Errorf("no locales configured")
	}
	r := &Resolver{}
	defIdx := -1
	for i, name := range locales {
		tag, err := language.Parse(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", name, err)
		}
		r.tags = append(r.tags, tag)
		r.names = append(r.names, tag.String())
		if strings.EqualFold(strings.TrimSpace(name), defaultLocale) {
			defIdx = i
		}
	}
	if defIdx < 0 {
		return nil, fmt.Errorf("default locale %q is not in the locale list", defaultLocale)
	}
	// the matcher falls back to its first tag, so the default goes first
	r.def = r.tags[defIdx]
	r.ordered = append(r.ordered, r.def)
	for i, tag := range r.tags {
		if i != defIdx {
			r.ordered = append(r.ordered, tag)
		}
	}
	r.matcher = language.NewMatcher(r.ordered)
	return r, nil
}

// Locales returns the configured locale names in configuration order.
func (r *Resolver) Locales() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Default returns the default language tag.
func (r *Resolver) Default() language.Tag {
	return r.def
}

// Parse maps a raw locale value onto a supported tag.
func (r *Resolver) Parse(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Und, false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, false
	}
	return r.match(tag)
}

func (r *Resolver) match(tags ...language.Tag) (language.Tag, bool) {
	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No {
		return r.def, false
	}
	return r.ordered[idx], true
}

// ResolveTag determines the best language tag for the request. Precedence is the
// lang query parameter, a /{locale} path prefix, the locale cookie, then
// Accept-Language. The bool reports whether the choice should be persisted as a cookie.
func (r *Resolver) ResolveTag(req *http.Request) (language.Tag, bool) {
	if req == nil {
		return r.def, false
	}
	if tag, ok := r.Parse(req.URL.Query().Get(LangParam)); ok {
		return tag, true
	}
	if tag, ok := r.fromPath(req.URL.Path); ok {
		return tag, true
	}
	if c, err := req.Cookie(LangCookieName); err == nil {
		if tag, ok := r.Parse(c.Value); ok {
			return tag, false
		}
	}
	if accept := strings.TrimSpace(req.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			tag, _ := r.match(tags...)
			return tag, false
		}
	}
	return r.def, false
}

func (r *Resolver) fromPath(path string) (language.Tag, bool) {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	for i, name := range r.names {
		if strings.EqualFold(seg, name) {
			return r.tags[i], true
		}
	}
	return language.Und, false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Printer returns a message printer for the supplied tag. language.Und prints English.
func Printer(tag language.Tag) *message.Printer {
	if tag == language.Und {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// T translates key for tag.
func T(tag language.Tag, key string) string {
	return Printer(tag).Sprintf(key)
}
