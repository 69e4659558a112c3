// Package types provides type definitions for structured data used throughout the homematch system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Coords represents a pre-geocoded latitude/longitude pair in signed decimal degrees.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BuyerPreferences represents a buyer record normalized from the external CRM schema.
// Identity fields are carried for display and persistence linking; only the
// preference fields participate in scoring.
type BuyerPreferences struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	// PreferredZipCodes holds normalized 5-digit ZIP strings, deduped,
	// in first-seen order.
	PreferredZipCodes []string `json:"preferred_zip_codes,omitempty"`

	DesiredBeds  *float64 `json:"desired_beds,omitempty"`
	DesiredBaths *float64 `json:"desired_baths,omitempty"`
	DownPayment  *float64 `json:"down_payment,omitempty"`

	// Display-only location labels; never used as geocoding input by the scorer.
	Location          string `json:"location,omitempty"`
	City              string `json:"city,omitempty"`
	PreferredLocation string `json:"preferred_location,omitempty"`

	Coords *Coords `json:"coords,omitempty"`
}

// HasZipPreference reports whether the buyer supplied at least one preferred ZIP.
func (b *BuyerPreferences) HasZipPreference() bool {
	return len(b.PreferredZipCodes) > 0
}

// DisplayLocation returns the first non-empty location label for UI use.
func (b *BuyerPreferences) DisplayLocation() string {
	for _, s := range []string{b.PreferredLocation, b.Location, b.City} {
		if s != "" {
			return s
		}
	}
	return ""
}
