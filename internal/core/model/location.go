package model

// Unresolved is the name assigned to candidates that could not be
// resolved to any meaningful location. A ValidatedLocation with this
// name always carries confidence 0 and country "None".
const Unresolved = "N/A"

// NoCountry marks validated locations with no national affiliation
// (oceans, seas, continents) and unresolved candidates.
const NoCountry = "None"

// ValidatedLocation is the confidence engine's verdict for one candidate.
// Confidence is always finite and within [0,100].
type ValidatedLocation struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat,omitempty"`
	Lon        float64 `json:"lon,omitempty"`
	PlaceRank  int     `json:"placeRank,omitempty"`
}

// LocationGroup collects every validated entry that resolved to the same
// location (keyed case-insensitively by name). Entries hold the original
// per-item payloads with the group-level location/country fields removed.
type LocationGroup struct {
	Location string                   `json:"location"`
	Country  string                   `json:"country"`
	Lat      float64                  `json:"lat,omitempty"`
	Lon      float64                  `json:"lon,omitempty"`
	Rank     int                      `json:"rank,omitempty"`
	Entries  []map[string]interface{} `json:"entries"`
}

// GeometryTypePoint is the only geometry type the pipeline produces.
// The spatial store rejects whole batches containing anything else.
const GeometryTypePoint = "Point"

// Geometry is a GeoJSON-style geometry. Coordinates are [lon, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// LocationFeature is the shape handed to the spatial store: a location
// group plus its point geometry and the jsonb properties document the
// merge engine reconciles across ingestion runs.
type LocationFeature struct {
	ID         string                 `json:"id"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}
