package types

// PropertyAttributes represents a property record normalized from the external
// CRM schema.
type PropertyAttributes struct {
	ID      string `json:"id"`
	Address string `json:"address,omitempty"`

	// ZipCode, when present, takes priority over any ZIP embedded in Address.
	ZipCode string `json:"zip_code,omitempty"`

	Price *float64 `json:"price,omitempty"`
	Beds  *float64 `json:"beds,omitempty"`
	Baths *float64 `json:"baths,omitempty"`

	Coords *Coords `json:"coords,omitempty"`
}
