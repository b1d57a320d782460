package vinted

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMoneyUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Money
	}{
		{
			name:     "amount object",
			raw:      `{"amount":"10.00","currency_code":"EUR"}`,
			expected: Money{Amount: 10, Currency: "EUR"},
		},
		{
			name:     "bare number",
			raw:      `12.5`,
			expected: Money{Amount: 12.5},
		},
		{
			name:     "decimal string",
			raw:      `"7.99"`,
			expected: Money{Amount: 7.99},
		},
		{
			name:     "comma decimal separator",
			raw:      `"7,50"`,
			expected: Money{Amount: 7.5},
		},
		{
			name:     "numeric amount inside object",
			raw:      `{"amount":15,"currency_code":"PLN"}`,
			expected: Money{Amount: 15, Currency: "PLN"},
		},
		{
			name:     "unparsable amount keeps zero",
			raw:      `{"amount":"n/a","currency_code":"EUR"}`,
			expected: Money{Amount: 0, Currency: "EUR"},
		},
		{
			name:     "null is zero value",
			raw:      `null`,
			expected: Money{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Money
			if err := json.Unmarshal([]byte(tt.raw), &m); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if m != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, m)
			}
		})
	}
}

func TestPhotoBestURL(t *testing.T) {
	tests := []struct {
		name     string
		photo    Photo
		expected string
	}{
		{
			name:     "full size preferred",
			photo:    Photo{FullSizeURL: "https://x/full.jpg", URL: "https://x/mid.jpg", ThumbnailURL: "https://x/thumb.jpg"},
			expected: "https://x/full.jpg",
		},
		{
			name:     "generic url second",
			photo:    Photo{URL: "https://x/mid.jpg", ThumbnailURL: "https://x/thumb.jpg"},
			expected: "https://x/mid.jpg",
		},
		{
			name:     "thumbnail last",
			photo:    Photo{ThumbnailURL: "https://x/thumb.jpg"},
			expected: "https://x/thumb.jpg",
		},
		{
			name:     "nothing usable",
			photo:    Photo{ID: 5},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.photo.BestURL(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDecodeListing(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantID  int64
		wantErr bool
	}{
		{
			name:   "wrapped envelope",
			raw:    `{"item":{"id":42,"title":" Jacket "}}`,
			wantID: 42,
		},
		{
			name:   "bare object",
			raw:    `{"id":42,"title":"Jacket"}`,
			wantID: 42,
		},
		{
			name:    "missing id",
			raw:     `{"title":"Jacket"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `<html>challenge</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := DecodeListing([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if l.ID != tt.wantID {
				t.Errorf("Expected id %d, got %d", tt.wantID, l.ID)
			}
			if l.Title != "Jacket" {
				t.Errorf("Expected trimmed title Jacket, got %q", l.Title)
			}
		})
	}
}

func TestCreatedTime(t *testing.T) {
	epoch := float64(1700000000)
	epochMillis := float64(1700000000000)

	tests := []struct {
		name     string
		listing  Listing
		expected time.Time
		ok       bool
	}{
		{
			name:     "epoch seconds",
			listing:  Listing{CreatedAtTS: &epoch},
			expected: time.Unix(1700000000, 0).UTC(),
			ok:       true,
		},
		{
			name:     "epoch milliseconds",
			listing:  Listing{CreatedAtTS: &epochMillis},
			expected: time.Unix(1700000000, 0).UTC(),
			ok:       true,
		},
		{
			name:     "rfc3339 string",
			listing:  Listing{CreatedAt: "2025-09-15T14:33:00+02:00"},
			expected: time.Date(2025, 9, 15, 12, 33, 0, 0, time.UTC),
			ok:       true,
		},
		{
			name: "earliest photo timestamp",
			listing: Listing{Photos: []Photo{
				{HighResolution: &HighResolution{Timestamp: 1700000500}},
				{HighResolution: &HighResolution{Timestamp: 1700000100}},
			}},
			expected: time.Unix(1700000100, 0).UTC(),
			ok:       true,
		},
		{
			name:    "nothing parses",
			listing: Listing{CreatedAt: "yesterday"},
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.listing.CreatedTime()
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIsChallenge(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected bool
	}{
		{
			name:     "datadome interstitial",
			status:   403,
			body:     `<html><script src="https://ct.datadome.co/c.js"></script></html>`,
			expected: true,
		},
		{
			name:     "captcha page",
			status:   403,
			body:     `<html>Please solve this CAPTCHA to continue</html>`,
			expected: true,
		},
		{
			name:     "plain 403 is not a challenge",
			status:   403,
			body:     `{"error":"forbidden"}`,
			expected: false,
		},
		{
			name:     "challenge marker on other statuses ignored",
			status:   500,
			body:     `captcha`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isChallenge(tt.status, []byte(tt.body)); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMergeFrom(t *testing.T) {
	five := 5
	nine := 9
	ts := float64(1_700_000_000)

	t.Run("fills gaps and keeps existing values", func(t *testing.T) {
		l := &Listing{ID: 42, FavouriteCount: &five}
		l.MergeFrom(&Listing{
			ID:             42,
			FavouriteCount: &nine,
			ViewCount:      &nine,
			CreatedAtTS:    &ts,
			Photos:         []Photo{{ID: 1, URL: "https://img/1.jpg"}},
		})

		if l.Favourites() != 5 {
			t.Errorf("Expected existing favourite count kept, got %d", l.Favourites())
		}
		if l.ViewsCount() != 9 {
			t.Errorf("Expected view count filled in, got %d", l.ViewsCount())
		}
		if _, ok := l.CreatedTime(); !ok {
			t.Error("Expected creation time filled in")
		}
		if len(l.Photos) != 1 {
			t.Errorf("Expected photos filled in, got %d", len(l.Photos))
		}
	})

	t.Run("ignores a record for a different listing", func(t *testing.T) {
		l := &Listing{ID: 42}
		l.MergeFrom(&Listing{ID: 99, ViewCount: &nine})
		if l.HasStats() {
			t.Error("Expected nothing merged from a mismatched id")
		}
	})

	t.Run("ignores nil", func(t *testing.T) {
		l := &Listing{ID: 42}
		l.MergeFrom(nil)
		if l.HasStats() {
			t.Error("Expected nothing merged from nil")
		}
	})
}
