package repost

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lo-bi/vintedreposter/internal/vinted"
)

// Summary is a defensive snapshot of the original listing, captured before
// the delete is attempted. If the create fails afterwards this is the only
// record left of the listing, so it must be enough for the user to recreate
// it by hand.
type Summary struct {
	ID          int64    `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Price       float64  `yaml:"price"`
	Currency    string   `yaml:"currency"`
	Brand       string   `yaml:"brand,omitempty"`
	BrandID     *int64   `yaml:"brand_id,omitempty"`
	SizeID      *int64   `yaml:"size_id,omitempty"`
	CatalogID   *int64   `yaml:"catalog_id,omitempty"`
	StatusID    *int64   `yaml:"status_id,omitempty"`
	ColorIDs    []int64  `yaml:"color_ids,omitempty"`
	PhotoURLs   []string `yaml:"photo_urls"`
}

// NewSummary snapshots the salient fields and photo URLs of a listing.
func NewSummary(src *vinted.Listing) *Summary {
	urls := make([]string, 0, len(src.Photos))
	for _, p := range src.Photos {
		if u := p.BestURL(); u != "" {
			urls = append(urls, u)
		}
	}

	var amount float64
	var currency string
	if src.PriceNumeric != nil {
		amount = src.PriceNumeric.Amount
	} else if src.Price != nil {
		amount = src.Price.Amount
	}
	if src.PriceCurrency != "" {
		currency = src.PriceCurrency
	} else if src.Currency != "" {
		currency = src.Currency
	} else if src.Price != nil {
		currency = src.Price.Currency
	}

	brand := src.BrandTitle
	if brand == "" {
		brand = src.Brand
	}

	return &Summary{
		ID:          src.ID,
		Title:       src.Title,
		Description: src.Description,
		Price:       amount,
		Currency:    currency,
		Brand:       brand,
		BrandID:     src.BrandID,
		SizeID:      src.SizeID,
		CatalogID:   src.CatalogID,
		StatusID:    src.StatusID,
		ColorIDs:    src.ColorIDs,
		PhotoURLs:   urls,
	}
}

// WriteFile saves the summary as YAML under dir so the data survives the
// process. Returns the path written.
func (s *Summary) WriteFile(dir string) (string, error) {
	if dir == "" {
		dir = "recovery"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recovery directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(dir, fmt.Sprintf("listing-%d-%s.yaml", s.ID, timestamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}
