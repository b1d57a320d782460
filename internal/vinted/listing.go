package vinted

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Money is a price value as the marketplace returns it. The API is not
// consistent about the shape: depending on the endpoint a price can be a
// bare number, a decimal string, or an {amount, currency_code} object.
// UnmarshalJSON accepts all three.
type Money struct {
	Amount   float64
	Currency string
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			Amount       json.RawMessage `json:"amount"`
			CurrencyCode string          `json:"currency_code"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("failed to parse price object: %w", err)
		}
		m.Currency = obj.CurrencyCode
		if len(obj.Amount) > 0 {
			var inner Money
			if err := inner.UnmarshalJSON(obj.Amount); err == nil {
				m.Amount = inner.Amount
			}
		}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse price string: %w", err)
		}
		if v, err := parseAmount(s); err == nil {
			m.Amount = v
		}
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("failed to parse price number: %w", err)
		}
		m.Amount = f
		return nil
	}
}

// parseAmount parses a decimal string, tolerating a comma decimal separator.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, errors.New("empty amount")
	}
	return strconv.ParseFloat(s, 64)
}

// HighResolution carries the capture timestamp some photo variants expose.
type HighResolution struct {
	Timestamp int64 `json:"timestamp"`
}

// Photo is a photo descriptor on a source listing. Endpoints differ in which
// URL variants they populate; BestURL picks the preferred one.
type Photo struct {
	ID             int64           `json:"id,omitempty"`
	FullSizeURL    string          `json:"full_size_url,omitempty"`
	URL            string          `json:"url,omitempty"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	HighResolution *HighResolution `json:"high_resolution,omitempty"`
}

// BestURL returns the highest-quality URL present on the photo, preferring
// full size over the generic URL over the thumbnail. Returns "" when the
// descriptor carries no usable URL at all.
func (p Photo) BestURL() string {
	if p.FullSizeURL != "" {
		return p.FullSizeURL
	}
	if p.URL != "" {
		return p.URL
	}
	return p.ThumbnailURL
}

// PhotoHandle is the server-assigned reference to an uploaded photo.
type PhotoHandle struct {
	ID          int64 `json:"id"`
	Orientation int   `json:"orientation"`
}

// ItemAttribute is a generic catalog attribute (material, pattern, ...).
type ItemAttribute struct {
	Code string  `json:"code"`
	IDs  []int64 `json:"ids"`
}

// Listing is the canonical marketplace record for one item. Fields the API
// may omit are pointers so absence survives the round trip into the clone
// payload. A Listing is read-only once fetched.
type Listing struct {
	ID                    int64           `json:"id"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	PriceNumeric          *Money          `json:"price_numeric,omitempty"`
	Price                 *Money          `json:"price,omitempty"`
	Currency              string          `json:"currency,omitempty"`
	PriceCurrency         string          `json:"price_currency,omitempty"`
	BrandTitle            string          `json:"brand_title,omitempty"`
	Brand                 string          `json:"brand,omitempty"`
	BrandID               *int64          `json:"brand_id,omitempty"`
	SizeID                *int64          `json:"size_id,omitempty"`
	CatalogID             *int64          `json:"catalog_id,omitempty"`
	StatusID              *int64          `json:"status_id,omitempty"`
	PackageSizeID         *int64          `json:"package_size_id,omitempty"`
	IsUnisex              bool            `json:"is_unisex,omitempty"`
	ColorIDs              []int64         `json:"color_ids,omitempty"`
	Color1ID              *int64          `json:"color1_id,omitempty"`
	Color2ID              *int64          `json:"color2_id,omitempty"`
	ISBN                  *string         `json:"isbn,omitempty"`
	Author                *string         `json:"author,omitempty"`
	BookTitle             *string         `json:"book_title,omitempty"`
	Model                 *string         `json:"model,omitempty"`
	VideoGameRatingID     *int64          `json:"video_game_rating_id,omitempty"`
	MeasurementLength     *int64          `json:"measurement_length,omitempty"`
	MeasurementWidth      *int64          `json:"measurement_width,omitempty"`
	ItemAttributes        []ItemAttribute `json:"item_attributes,omitempty"`
	Manufacturer          *string         `json:"manufacturer,omitempty"`
	ManufacturerLabelling *string         `json:"manufacturer_labelling,omitempty"`
	CreatedAt             string          `json:"created_at,omitempty"`
	CreatedAtTS           *float64        `json:"created_at_ts,omitempty"`
	FavouriteCount        *int            `json:"favourite_count,omitempty"`
	FavoriteCount         *int            `json:"favorite_count,omitempty"`
	ViewCount             *int            `json:"view_count,omitempty"`
	Views                 *int            `json:"views,omitempty"`
	Photos                []Photo         `json:"photos,omitempty"`
}

// Favourites returns the favourite count regardless of which spelling the
// endpoint used.
func (l *Listing) Favourites() int {
	if l.FavouriteCount != nil {
		return *l.FavouriteCount
	}
	if l.FavoriteCount != nil {
		return *l.FavoriteCount
	}
	return 0
}

// ViewsCount returns the view count regardless of field naming.
func (l *Listing) ViewsCount() int {
	if l.ViewCount != nil {
		return *l.ViewCount
	}
	if l.Views != nil {
		return *l.Views
	}
	return 0
}

// HasStats reports whether the record carries any engagement counter at
// all. Wardrobe pages often omit them entirely, which is different from a
// listing nobody has favourited yet.
func (l *Listing) HasStats() bool {
	return l.FavouriteCount != nil || l.FavoriteCount != nil || l.ViewCount != nil || l.Views != nil
}

// MergeFrom copies engagement counters, creation data, and photos from a
// richer record of the same listing into l. Values already present on l
// are kept.
func (l *Listing) MergeFrom(full *Listing) {
	if full == nil || full.ID != l.ID {
		return
	}
	if l.FavouriteCount == nil {
		l.FavouriteCount = full.FavouriteCount
	}
	if l.FavoriteCount == nil {
		l.FavoriteCount = full.FavoriteCount
	}
	if l.ViewCount == nil {
		l.ViewCount = full.ViewCount
	}
	if l.Views == nil {
		l.Views = full.Views
	}
	if l.CreatedAt == "" {
		l.CreatedAt = full.CreatedAt
	}
	if l.CreatedAtTS == nil {
		l.CreatedAtTS = full.CreatedAtTS
	}
	if len(l.Photos) == 0 {
		l.Photos = full.Photos
	}
}

// CreatedTime derives a creation timestamp for the listing. It prefers the
// epoch field, then the RFC 3339 created_at string, then the earliest photo
// capture timestamp. The second return is false when nothing parses.
func (l *Listing) CreatedTime() (time.Time, bool) {
	if l.CreatedAtTS != nil {
		ts := *l.CreatedAtTS
		// Heuristic: milliseconds vs seconds.
		if ts > 10_000_000_000 {
			ts /= 1000
		}
		return time.Unix(int64(ts), 0).UTC(), true
	}
	if s := strings.TrimSpace(l.CreatedAt); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), true
		}
	}
	var earliest int64
	for _, p := range l.Photos {
		if p.HighResolution == nil || p.HighResolution.Timestamp <= 0 {
			continue
		}
		if earliest == 0 || p.HighResolution.Timestamp < earliest {
			earliest = p.HighResolution.Timestamp
		}
	}
	if earliest > 0 {
		return time.Unix(earliest, 0).UTC(), true
	}
	return time.Time{}, false
}

// DecodeListing parses a listing payload, accepting both the
// {"item": {...}} envelope and a bare listing object.
func DecodeListing(raw []byte) (*Listing, error) {
	var wrapped struct {
		Item *Listing `json:"item"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Item != nil && wrapped.Item.ID != 0 {
		return normalizeListing(wrapped.Item), nil
	}
	var l Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("failed to decode listing payload: %w", err)
	}
	if l.ID == 0 {
		return nil, errors.New("listing payload missing id")
	}
	return normalizeListing(&l), nil
}

func normalizeListing(l *Listing) *Listing {
	l.Title = strings.TrimSpace(l.Title)
	l.Description = strings.TrimSpace(l.Description)
	l.BrandTitle = strings.TrimSpace(l.BrandTitle)
	l.Brand = strings.TrimSpace(l.Brand)
	l.CreatedAt = strings.TrimSpace(l.CreatedAt)
	return l
}
