package model

// GeocodeResult is one candidate returned by the gazetteer lookup.
// PlaceRank expresses granularity: low values are country-level hits,
// values >= 30 are address-level hits.
type GeocodeResult struct {
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Importance   float64 `json:"importance"`
	CountryCode  string  `json:"countryCode"`
	PlaceRank    int     `json:"placeRank"`
	LocationType string  `json:"locationType"`
}
