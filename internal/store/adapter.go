// Package store provides the backing-store abstraction for the match engine:
// a typed interface over buyer, property, and match tables, plus the boundary
// adapter that normalizes loosely-typed external field maps into the domain
// structs.
package store

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/homematch/internal/geo"
	"github.com/jonathan/homematch/internal/types"
	"github.com/jonathan/homematch/internal/zip"
)

// External field names, with the fallback spellings the CRM schema has
// accumulated. Schema drift is absorbed here so the scorer never sees it.
var (
	buyerNameFields     = []string{"Name", "Full Name", "Buyer Name"}
	buyerZipFields      = []string{"Preferred Zip Codes", "Preferred ZIP Codes"}
	buyerBedsFields     = []string{"No. of Bedrooms", "Bedrooms"}
	buyerBathsFields    = []string{"No. of Bath", "Bathrooms"}
	buyerPaymentFields  = []string{"Downpayment", "Down Payment"}
	buyerLocationFields = []string{"Location"}
	buyerCityFields     = []string{"City"}
	buyerPrefLocFields  = []string{"Preferred Location"}

	propertyAddressFields = []string{"Address", "Property Address"}
	propertyZipFields     = []string{"Zip Code", "ZIP Code"}
	propertyPriceFields   = []string{"Price", "Property Total Price"}
	propertyBedsFields    = []string{"Beds", "Bedrooms"}
	propertyBathsFields   = []string{"Baths", "Bathrooms"}

	latitudeFields  = []string{"Latitude", "Lat"}
	longitudeFields = []string{"Longitude", "Lng", "Long"}
)

// Match table field names.
const (
	fieldMatchBuyer    = "Buyer"
	fieldMatchProperty = "Property"
	fieldMatchScore    = "Match Score"
	fieldMatchPriority = "Priority"
	fieldMatchStage    = "Stage"
	fieldMatchNotes    = "Notes"
	fieldMatchDistance = "Distance (miles)"
	fieldMatchedAt     = "Matched At"
)

// BuyerFromFields normalizes an external buyer record into BuyerPreferences.
// Missing or malformed fields come back as absent, never as an error.
func BuyerFromFields(id string, fields map[string]any) types.BuyerPreferences {
	return types.BuyerPreferences{
		ID:                id,
		Name:              stringField(fields, buyerNameFields),
		PreferredZipCodes: zipListField(fields, buyerZipFields),
		DesiredBeds:       numberField(fields, buyerBedsFields),
		DesiredBaths:      numberField(fields, buyerBathsFields),
		DownPayment:       nonNegative(numberField(fields, buyerPaymentFields)),
		Location:          stringField(fields, buyerLocationFields),
		City:              stringField(fields, buyerCityFields),
		PreferredLocation: stringField(fields, buyerPrefLocFields),
		Coords:            coordsField(fields),
	}
}

// PropertyFromFields normalizes an external property record into
// PropertyAttributes.
func PropertyFromFields(id string, fields map[string]any) types.PropertyAttributes {
	zipCode := ""
	if z, ok := zip.Normalize(stringField(fields, propertyZipFields)); ok {
		zipCode = z
	}
	return types.PropertyAttributes{
		ID:      id,
		Address: stringField(fields, propertyAddressFields),
		ZipCode: zipCode,
		Price:   nonNegative(numberField(fields, propertyPriceFields)),
		Beds:    numberField(fields, propertyBedsFields),
		Baths:   numberField(fields, propertyBathsFields),
		Coords:  coordsField(fields),
	}
}

// MatchFromFields normalizes an external match record.
func MatchFromFields(id string, fields map[string]any) types.MatchRecord {
	rec := types.MatchRecord{
		ID:         id,
		BuyerID:    linkField(fields, fieldMatchBuyer),
		PropertyID: linkField(fields, fieldMatchProperty),
		IsPriority: boolField(fields, fieldMatchPriority),
		Stage:      types.Stage(stringField(fields, []string{fieldMatchStage})),
		Notes:      stringField(fields, []string{fieldMatchNotes}),
	}
	if score := numberField(fields, []string{fieldMatchScore}); score != nil {
		rec.Score = int(*score)
	}
	rec.DistanceMiles = numberField(fields, []string{fieldMatchDistance})
	if raw := stringField(fields, []string{fieldMatchedAt}); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.MatchedAt = t
		}
	}
	if rec.Stage == "" {
		rec.Stage = types.StageNewMatch
	}
	return rec
}

// MatchToFields renders a MatchRecord into the external field map, with
// linked-record ids in single-element arrays as the API expects.
func MatchToFields(rec types.MatchRecord) map[string]any {
	fields := map[string]any{
		fieldMatchBuyer:    []string{rec.BuyerID},
		fieldMatchProperty: []string{rec.PropertyID},
		fieldMatchScore:    rec.Score,
		fieldMatchPriority: rec.IsPriority,
		fieldMatchStage:    string(rec.Stage),
		fieldMatchNotes:    rec.Notes,
	}
	if rec.DistanceMiles != nil {
		fields[fieldMatchDistance] = *rec.DistanceMiles
	}
	if !rec.MatchedAt.IsZero() {
		fields[fieldMatchedAt] = rec.MatchedAt.UTC().Format(time.RFC3339)
	}
	return fields
}

// matchUpdateFields renders only the refreshable fields for an existing
// record; stage is deliberately left out so a refresh never regresses a deal.
func matchUpdateFields(rec types.MatchRecord) map[string]any {
	fields := map[string]any{
		fieldMatchScore:    rec.Score,
		fieldMatchPriority: rec.IsPriority,
		fieldMatchNotes:    rec.Notes,
	}
	if rec.DistanceMiles != nil {
		fields[fieldMatchDistance] = *rec.DistanceMiles
	}
	if !rec.MatchedAt.IsZero() {
		fields[fieldMatchedAt] = rec.MatchedAt.UTC().Format(time.RFC3339)
	}
	return fields
}

func stringField(fields map[string]any, names []string) string {
	for _, name := range names {
		if raw, ok := fields[name]; ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// numberField coerces the first present field to a float64 pointer. Accepts
// numeric JSON values and numeric strings; anything else is absent.
func numberField(fields map[string]any, names []string) *float64 {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if v, ok := coerceNumber(raw); ok {
			return &v
		}
	}
	return nil
}

func coerceNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(v, "$"), ",", ""))
		if cleaned == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func nonNegative(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

func boolField(fields map[string]any, name string) bool {
	switch v := fields[name].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	default:
		return false
	}
}

// zipListField accepts either a comma-delimited string or a value sequence and
// returns the normalized, deduped ZIP list.
func zipListField(fields map[string]any, names []string) []string {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			return zip.ParseList(v)
		case []string:
			return zip.NormalizeList(v)
		case []any:
			items := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					items = append(items, s)
				}
			}
			return zip.NormalizeList(items)
		}
	}
	return nil
}

func coordsField(fields map[string]any) *types.Coords {
	lat := numberField(fields, latitudeFields)
	lng := numberField(fields, longitudeFields)
	if lat == nil || lng == nil || !geo.ValidCoords(*lat, *lng) {
		return nil
	}
	return &types.Coords{Latitude: *lat, Longitude: *lng}
}

// linkField extracts the first id from a linked-record array field.
func linkField(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	case string:
		return v
	}
	return ""
}
