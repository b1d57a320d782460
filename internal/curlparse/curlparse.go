// Package curlparse turns a cURL command copied from the browser's network
// tab into the URL, headers, and cookies a marketplace client needs.
package curlparse

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// Request is the usable part of a captured browser request.
type Request struct {
	URL       string
	Headers   map[string]string
	Cookies   map[string]string
	UserAgent string
}

var (
	urlPattern    = regexp.MustCompile(`curl\s+'([^']+)'|curl\s+"([^"]+)"|curl\s+(\S+)`)
	headerPattern = regexp.MustCompile(`-H\s+'([^:']+):\s*([^']*)'|-H\s+"([^:"]+):\s*([^"]*)"`)
	cookiePattern = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	continuation  = regexp.MustCompile(`\\\s*\n\s*`)
)

// Parse extracts the request from cURL text. Header names are lowercased;
// cookies merge the -b flag with any cookie header, the flag winning on
// conflicts.
func Parse(curlText string) (*Request, error) {
	text := continuation.ReplaceAllString(strings.TrimSpace(curlText), " ")

	m := urlPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, errors.New("could not find a URL in the cURL text")
	}
	rawURL := firstGroup(m[1:])
	if _, err := url.Parse(rawURL); err != nil {
		return nil, errors.New("cURL text contains an invalid URL")
	}

	headers := make(map[string]string)
	for _, hm := range headerPattern.FindAllStringSubmatch(text, -1) {
		name := hm[1]
		value := hm[2]
		if name == "" {
			name = hm[3]
			value = hm[4]
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	cookies := make(map[string]string)
	if cm := cookiePattern.FindStringSubmatch(text); cm != nil {
		mergeCookieString(cookies, firstGroup(cm[1:]), true)
	}
	if header, ok := headers["cookie"]; ok {
		mergeCookieString(cookies, header, false)
	}

	return &Request{
		URL:       rawURL,
		Headers:   headers,
		Cookies:   cookies,
		UserAgent: headers["user-agent"],
	}, nil
}

func firstGroup(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return ""
}

func mergeCookieString(cookies map[string]string, raw string, overwrite bool) {
	for _, part := range strings.Split(raw, ";") {
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		if _, exists := cookies[name]; exists && !overwrite {
			continue
		}
		cookies[name] = value
	}
}
