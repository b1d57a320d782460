package session

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
)

// ErrTokenUnavailable means every fallback layer failed to produce an
// anti-forgery token. Nothing state-changing can be attempted without one.
var ErrTokenUnavailable = errors.New("anti-forgery token unavailable: not in page markup, header cache, or token page")

// Credentials is what authenticated marketplace calls need beyond the
// ambient session cookies. AnonID is optional; when empty the header is
// simply omitted.
type Credentials struct {
	CSRFToken string
	AnonID    string
}

// Headers returns the credential headers to attach to an API request.
func (c Credentials) Headers() map[string]string {
	h := map[string]string{
		"x-csrf-token": c.CSRFToken,
	}
	if c.AnonID != "" {
		h["x-anon-id"] = c.AnonID
	}
	return h
}

// Site is the slice of the marketplace client the resolver needs: a way to
// fetch the token-bearing page and read session cookies.
type Site interface {
	FetchTokenPage(ctx context.Context) ([]byte, error)
	Cookie(name string) string
}

// The token is embedded in page markup as a JSON-style key, usually inside
// an escaped JSON blob. Both the escaped and plain forms occur.
var csrfPattern = regexp.MustCompile(`(?i)\\?"CSRF_TOKEN\\?":\\?"([0-9a-f-]{36})\\?"`)

// Resolver produces Credentials through a layered fallback: page markup
// that the caller already holds, then the observed-header cache, then a
// fresh fetch of the token-bearing page. First success wins.
type Resolver struct {
	site  Site
	cache HeaderCache
}

func NewResolver(site Site, cache HeaderCache) *Resolver {
	return &Resolver{
		site:  site,
		cache: cache,
	}
}

// Resolve returns credentials for one republish run, or ErrTokenUnavailable.
// pageMarkup is the currently loaded page if the caller has one; pass nil
// to skip that layer.
func (r *Resolver) Resolve(ctx context.Context, pageMarkup []byte) (Credentials, error) {
	token, err := r.resolveToken(ctx, pageMarkup)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		CSRFToken: token,
		AnonID:    r.resolveAnonID(),
	}, nil
}

func (r *Resolver) resolveToken(ctx context.Context, pageMarkup []byte) (string, error) {
	if token := ExtractToken(pageMarkup); token != "" {
		slog.Debug("Resolved anti-forgery token from page markup")
		return token, nil
	}

	if r.cache != nil {
		if token, ok := r.cache.Get("x-csrf-token"); ok && token != "" {
			slog.Debug("Resolved anti-forgery token from observed headers")
			return token, nil
		}
	}

	if r.site != nil {
		body, err := r.site.FetchTokenPage(ctx)
		if err != nil {
			slog.Warn("Token page fetch failed", "error", err)
		} else if token := ExtractToken(body); token != "" {
			slog.Debug("Resolved anti-forgery token from token page")
			return token, nil
		}
	}

	return "", ErrTokenUnavailable
}

// resolveAnonID looks the anonymous-session id up independently of the
// token; absence is tolerated.
func (r *Resolver) resolveAnonID() string {
	if r.site != nil {
		if anon := strings.TrimSpace(r.site.Cookie("anon_id")); anon != "" {
			return anon
		}
	}
	if r.cache != nil {
		if anon, ok := r.cache.Get("x-anon-id"); ok {
			return strings.TrimSpace(anon)
		}
	}
	return ""
}

// ExtractToken pulls the anti-forgery token out of page markup.
// Returns "" when the pattern does not match.
func ExtractToken(markup []byte) string {
	if len(markup) == 0 {
		return ""
	}
	m := csrfPattern.FindSubmatch(markup)
	if m == nil {
		return ""
	}
	return string(m[1])
}
