// Package vinted is the marketplace API client: listing reads, photo
// uploads, listing create/delete, and wardrobe pagination. It authenticates
// with the session cookies it was constructed with plus the per-run
// anti-forgery credentials callers pass in.
package vinted

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/lo-bi/vintedreposter/internal/session"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// Headers that must never be forwarded from a captured request.
var skippedHeaders = map[string]struct{}{
	"content-length":  {},
	"host":            {},
	"authority":       {},
	"cookie":          {},
	"cookies":         {},
	"accept-encoding": {},
}

// Options configures a Client. Headers and Cookies typically come from a
// request the user copied out of the browser's network tab.
type Options struct {
	BaseURL           string
	UserAgent         string
	Headers           map[string]string
	Cookies           map[string]string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to the marketplace API. All request pacing goes through a
// shared rate limiter so bursts of photo uploads do not trip the
// bot protection.
type Client struct {
	baseURL   string
	base      *url.URL
	http      *http.Client
	bare      *http.Client
	headers   map[string]string
	userAgent string
	limiter   *rate.Limiter
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(opts.Cookies))
	for name, value := range opts.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	jar.SetCookies(u, cookies)

	headers := make(map[string]string, len(opts.Headers))
	for name, value := range opts.Headers {
		if _, skip := skippedHeaders[strings.ToLower(name)]; skip {
			continue
		}
		headers[strings.ToLower(name)] = value
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		if ua, ok := headers["user-agent"]; ok {
			userAgent = ua
		} else {
			userAgent = defaultUserAgent
		}
	}

	return &Client{
		baseURL: base,
		base:    u,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		bare: &http.Client{
			Timeout: timeout,
		},
		headers:   headers,
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 5),
	}, nil
}

// Cookie returns the current value of a session cookie, or "" when unset.
// When duplicates exist the last one wins.
func (c *Client) Cookie(name string) string {
	var value string
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == name {
			value = ck.Value
		}
	}
	return value
}

// UserID resolves the authenticated user's id from the session cookies:
// the numeric uid cookie when present, else the unverified subject claim of
// the web access token.
func (c *Client) UserID() (int64, error) {
	if raw := c.Cookie("v_uid"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id, nil
		}
	}
	raw := c.Cookie("access_token_web")
	if raw == "" {
		return 0, errors.New("cannot determine user id: no v_uid or access_token_web cookie")
	}
	// The token is only read, never trusted: the marketplace is the one
	// verifying it, we just need the subject.
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return 0, fmt.Errorf("failed to parse access token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("access token has no subject: %w", err)
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("access token subject %q is not a user id: %w", sub, err)
	}
	return id, nil
}

// do performs one paced API request and returns the body and status code.
// Non-2xx responses are not errors here; callers interpret the status.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, extra map[string]string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", c.userAgent)
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}
	for name, value := range extra {
		req.Header.Set(name, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// FetchTokenPage fetches the token-bearing page markup. Used by the session
// resolver as its last fallback layer.
func (c *Client) FetchTokenPage(ctx context.Context) ([]byte, error) {
	body, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/items/new", nil, map[string]string{
		"accept":  "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"referer": c.baseURL + "/",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token page: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("token page returned status %d", status)
	}
	return body, nil
}

// FetchListing returns the canonical record for a listing. The richer
// editor endpoint is tried first; any non-success there falls back to the
// public read endpoint. A bot-challenge response surfaces as
// ChallengeBlockedError so the caller can tell the user to refresh their
// session instead of reporting a generic failure.
func (c *Client) FetchListing(ctx context.Context, id int64, creds session.Credentials) (*Listing, error) {
	editorHeaders := creds.Headers()
	editorHeaders["x-enable-multiple-size-groups"] = "true"
	editorHeaders["referer"] = fmt.Sprintf("%s/items/%d/edit", c.baseURL, id)

	body, status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/api/v2/item_upload/items/%d", c.baseURL, id), nil, editorHeaders)
	if err == nil && status >= 200 && status < 300 {
		listing, decodeErr := DecodeListing(body)
		if decodeErr == nil {
			return listing, nil
		}
		slog.Warn("Editor listing payload did not decode, falling back to public endpoint", "id", id, "error", decodeErr)
	} else if err == nil && isChallenge(status, body) {
		return nil, &ChallengeBlockedError{StatusCode: status}
	} else {
		slog.Debug("Editor endpoint unavailable, falling back to public endpoint", "id", id, "status", status, "error", err)
	}

	body, status, err = c.do(ctx, http.MethodGet, fmt.Sprintf("%s/api/v2/items/%d", c.baseURL, id), nil, creds.Headers())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %d: %w", id, err)
	}
	if status < 200 || status >= 300 {
		if isChallenge(status, body) {
			return nil, &ChallengeBlockedError{StatusCode: status}
		}
		return nil, &ListingUnavailableError{StatusCode: status, Body: snippet(body)}
	}
	listing, err := DecodeListing(body)
	if err != nil {
		return nil, &ListingUnavailableError{StatusCode: status, Body: err.Error()}
	}
	return listing, nil
}

// DownloadPhoto fetches a photo binary. The cheap credential-less fetch is
// tried first; when the host refuses it the session client retries with the
// full captured headers and cookies. Content type defaults to JPEG when the
// server does not report one.
func (c *Client) DownloadPhoto(ctx context.Context, photoURL string) ([]byte, string, error) {
	data, contentType, err := c.fetchBinary(ctx, c.bare, photoURL, false)
	if err == nil {
		return data, contentType, nil
	}
	slog.Debug("Direct photo download failed, retrying through session", "url", photoURL, "error", err)

	data, contentType, err = c.fetchBinary(ctx, c.http, photoURL, true)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download photo: %w", err)
	}
	return data, contentType, nil
}

func (c *Client) fetchBinary(ctx context.Context, client *http.Client, rawURL string, withHeaders bool) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if withHeaders {
		for name, value := range c.headers {
			req.Header.Set(name, value)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("photo URL returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// UploadPhoto submits one photo binary under the given upload session and
// returns the server-issued handle.
func (c *Client) UploadPhoto(ctx context.Context, creds session.Credentials, uploadSessionID, filename string, data []byte, contentType string) (PhotoHandle, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo[file]"; filename=%q`, filename))
	partHeader.Set("Content-Type", contentType)
	part, err := form.CreatePart(partHeader)
	if err != nil {
		return PhotoHandle{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return PhotoHandle{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.WriteField("photo[type]", "item"); err != nil {
		return PhotoHandle{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.WriteField("photo[temp_uuid]", uploadSessionID); err != nil {
		return PhotoHandle{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return PhotoHandle{}, fmt.Errorf("failed to build upload form: %w", err)
	}

	headers := creds.Headers()
	headers["content-type"] = form.FormDataContentType()
	headers["origin"] = c.baseURL
	headers["referer"] = c.baseURL + "/items/new"

	body, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v2/photos", &buf, headers)
	if err != nil {
		return PhotoHandle{}, fmt.Errorf("photo upload request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return PhotoHandle{}, &UploadFailedError{StatusCode: status, Body: snippet(body)}
	}

	var handle PhotoHandle
	if err := json.Unmarshal(body, &handle); err != nil {
		return PhotoHandle{}, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if handle.ID == 0 {
		return PhotoHandle{}, errors.New("upload response missing photo id")
	}
	return handle, nil
}

// DeleteItem removes a listing. There is no undo on the remote side.
func (c *Client) DeleteItem(ctx context.Context, id int64, creds session.Credentials) error {
	headers := creds.Headers()
	headers["origin"] = c.baseURL
	headers["referer"] = fmt.Sprintf("%s/items/%d", c.baseURL, id)

	body, status, err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/api/v2/items/%d/delete", c.baseURL, id), nil, headers)
	if err != nil {
		return fmt.Errorf("failed to delete listing %d: %w", id, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("delete of listing %d returned status %d: %s", id, status, snippet(body))
	}
	return nil
}

// CreateItem submits a clone payload and returns the new listing's id.
func (c *Client) CreateItem(ctx context.Context, payload *ItemPayload, creds session.Credentials) (int64, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode item payload: %w", err)
	}

	headers := creds.Headers()
	headers["content-type"] = "application/json"
	headers["x-enable-multiple-size-groups"] = "true"
	headers["x-upload-form"] = "true"
	headers["origin"] = c.baseURL
	headers["referer"] = c.baseURL + "/items/new"

	body, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v2/item_upload/items", bytes.NewReader(encoded), headers)
	if err != nil {
		return 0, fmt.Errorf("item create request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("item create returned status %d: %s", status, snippet(body))
	}

	created, err := DecodeListing(body)
	if err != nil {
		return 0, fmt.Errorf("item created but response did not decode: %w", err)
	}
	return created.ID, nil
}

// Pagination is the paging envelope wardrobe responses carry.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// WardrobeItems fetches one page of the user's wardrobe.
func (c *Client) WardrobeItems(ctx context.Context, userID int64, page, perPage int) ([]Listing, Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	u := fmt.Sprintf("%s/api/v2/wardrobe/%d/items?page=%d&per_page=%d&order=relevance", c.baseURL, userID, page, perPage)
	body, status, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to fetch wardrobe page %d: %w", page, err)
	}
	if status < 200 || status >= 300 {
		if isChallenge(status, body) {
			return nil, Pagination{}, &ChallengeBlockedError{StatusCode: status}
		}
		return nil, Pagination{}, fmt.Errorf("wardrobe page %d returned status %d: %s", page, status, snippet(body))
	}

	// Older responses use catalog_items instead of items.
	var envelope struct {
		Items        []Listing  `json:"items"`
		CatalogItems []Listing  `json:"catalog_items"`
		Pagination   Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to decode wardrobe response: %w", err)
	}
	items := envelope.Items
	if len(items) == 0 {
		items = envelope.CatalogItems
	}
	for i := range items {
		normalizeListing(&items[i])
	}
	return items, envelope.Pagination, nil
}

// WardrobeAll walks every wardrobe page and returns the full item list.
// maxPages caps the walk; 0 means no cap.
func (c *Client) WardrobeAll(ctx context.Context, userID int64, perPage, maxPages int) ([]Listing, error) {
	if perPage <= 0 {
		perPage = 20
	}
	var all []Listing
	page := 1
	for {
		items, pagination, err := c.WardrobeItems(ctx, userID, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		if maxPages > 0 && page >= maxPages {
			break
		}
		if pagination.TotalPages == 0 {
			// No paging info: stop once a short page comes back.
			if len(items) == 0 || len(items) < perPage {
				break
			}
		} else {
			current := pagination.CurrentPage
			if current == 0 {
				current = page
			}
			if current >= pagination.TotalPages {
				break
			}
		}
		page++
	}
	return all, nil
}
