package vinted

// ItemFields is the write-shape of a listing as the create endpoint expects
// it. ID stays nil: the payload always creates, never updates.
type ItemFields struct {
	ID                    *int64          `json:"id"`
	Currency              string          `json:"currency"`
	TempUUID              string          `json:"temp_uuid"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	BrandID               *int64          `json:"brand_id"`
	Brand                 *string         `json:"brand"`
	SizeID                *int64          `json:"size_id"`
	CatalogID             *int64          `json:"catalog_id"`
	ISBN                  *string         `json:"isbn"`
	Author                *string         `json:"author"`
	BookTitle             *string         `json:"book_title"`
	Model                 *string         `json:"model"`
	IsUnisex              bool            `json:"is_unisex"`
	StatusID              int64           `json:"status_id"`
	VideoGameRatingID     *int64          `json:"video_game_rating_id"`
	Price                 float64         `json:"price"`
	PackageSizeID         int64           `json:"package_size_id"`
	ShipmentPrices        ShipmentPrices  `json:"shipment_prices"`
	ColorIDs              []int64         `json:"color_ids"`
	AssignedPhotos        []PhotoHandle   `json:"assigned_photos"`
	MeasurementLength     *int64          `json:"measurement_length"`
	MeasurementWidth      *int64          `json:"measurement_width"`
	ItemAttributes        []ItemAttribute `json:"item_attributes"`
	Manufacturer          *string         `json:"manufacturer"`
	ManufacturerLabelling *string         `json:"manufacturer_labelling"`
}

// ShipmentPrices is sent with both fields null; the marketplace fills in
// its own shipping options.
type ShipmentPrices struct {
	Domestic      *float64 `json:"domestic"`
	International *float64 `json:"international"`
}

// ItemPayload is the envelope the create endpoint consumes. UploadSessionID
// must match the temp_uuid the photos were uploaded under.
type ItemPayload struct {
	Item            ItemFields `json:"item"`
	FeedbackID      *int64     `json:"feedback_id"`
	PushUp          bool       `json:"push_up"`
	Parcel          any        `json:"parcel"`
	UploadSessionID string     `json:"upload_session_id"`
}
