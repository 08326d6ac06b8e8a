package domain

// Location is a WGS84 coordinate pair produced by the geocoder.
// Immutable once set on a Place.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place represents a shared place of interest.
//
// A Place always belongs to exactly one User (CreatorID), and that User's
// PlaceIDs list contains this Place's ID exactly once. The two documents are
// stored independently; place create/delete runs through a store transaction
// so the pair never diverges.
type Place struct {
	Timestamps
	Title       string   `json:"title"`
	Slug        string   `json:"slug,omitempty"` // URL slug derived from the title
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Location    Location `json:"location"`
	Image       string   `json:"image,omitempty"`
	ImageHash   string   `json:"image_hash,omitempty"` // blurhash placeholder for the image
	CreatorID   string   `json:"creator"`
}
