// Package payload maps a source listing into the write-shape the create
// endpoint expects.
package payload

import (
	"strings"

	"github.com/lo-bi/vintedreposter/internal/vinted"
)

const (
	defaultCurrency      = "EUR"
	defaultStatusID      = int64(1)
	defaultPackageSizeID = int64(1)
)

// Build derives a creation payload from a source listing, the run's upload
// session id, and the freshly issued photo handles. It is a pure function:
// identical inputs always produce structurally identical payloads. The
// payload's id stays nil so the call creates a listing instead of updating
// one.
func Build(src *vinted.Listing, uploadSessionID string, handles []vinted.PhotoHandle) *vinted.ItemPayload {
	if handles == nil {
		handles = []vinted.PhotoHandle{}
	}
	return &vinted.ItemPayload{
		Item: vinted.ItemFields{
			ID:                    nil,
			Currency:              currency(src),
			TempUUID:              uploadSessionID,
			Title:                 src.Title,
			Description:           src.Description,
			BrandID:               src.BrandID,
			Brand:                 brandLabel(src),
			SizeID:                src.SizeID,
			CatalogID:             src.CatalogID,
			ISBN:                  src.ISBN,
			Author:                src.Author,
			BookTitle:             src.BookTitle,
			Model:                 src.Model,
			IsUnisex:              src.IsUnisex,
			StatusID:              orDefault(src.StatusID, defaultStatusID),
			VideoGameRatingID:     src.VideoGameRatingID,
			Price:                 price(src),
			PackageSizeID:         orDefault(src.PackageSizeID, defaultPackageSizeID),
			ShipmentPrices:        vinted.ShipmentPrices{},
			ColorIDs:              colorIDs(src),
			AssignedPhotos:        handles,
			MeasurementLength:     src.MeasurementLength,
			MeasurementWidth:      src.MeasurementWidth,
			ItemAttributes:        itemAttributes(src),
			Manufacturer:          src.Manufacturer,
			ManufacturerLabelling: src.ManufacturerLabelling,
		},
		FeedbackID:      nil,
		PushUp:          false,
		Parcel:          nil,
		UploadSessionID: uploadSessionID,
	}
}

// price prefers the numeric price field, then the currency-amount object.
func price(src *vinted.Listing) float64 {
	if src.PriceNumeric != nil {
		return src.PriceNumeric.Amount
	}
	if src.Price != nil {
		return src.Price.Amount
	}
	return 0
}

// currency prefers an explicit code over the amount object's code.
func currency(src *vinted.Listing) string {
	if src.PriceCurrency != "" {
		return src.PriceCurrency
	}
	if src.Currency != "" {
		return src.Currency
	}
	if src.Price != nil && src.Price.Currency != "" {
		return src.Price.Currency
	}
	return defaultCurrency
}

// brandLabel is the free-text brand only when it is non-blank after
// trimming; brand_id is carried independently.
func brandLabel(src *vinted.Listing) *string {
	label := strings.TrimSpace(src.BrandTitle)
	if label == "" {
		label = strings.TrimSpace(src.Brand)
	}
	if label == "" {
		return nil
	}
	return &label
}

// colorIDs prefers the explicit list, falling back to the two singular
// color fields.
func colorIDs(src *vinted.Listing) []int64 {
	if len(src.ColorIDs) > 0 {
		ids := make([]int64, len(src.ColorIDs))
		copy(ids, src.ColorIDs)
		return ids
	}
	ids := []int64{}
	if src.Color1ID != nil {
		ids = append(ids, *src.Color1ID)
	}
	if src.Color2ID != nil {
		ids = append(ids, *src.Color2ID)
	}
	return ids
}

func itemAttributes(src *vinted.Listing) []vinted.ItemAttribute {
	if src.ItemAttributes == nil {
		return []vinted.ItemAttribute{}
	}
	return src.ItemAttributes
}

func orDefault(v *int64, fallback int64) int64 {
	if v != nil {
		return *v
	}
	return fallback
}
