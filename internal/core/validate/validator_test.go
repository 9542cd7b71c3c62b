package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertatlas/atlas/internal/core/geo"
	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/core/normalize"
)

func newTestValidator(t *testing.T, geocoder *MockGeocoder, llm *MockLLM) *Validator {
	t.Helper()
	countries, err := normalize.LoadCountryTable()
	require.NoError(t, err)
	return NewValidator(geocoder, NewCountryCoder(llm, ""), countries)
}

func TestValidateEmptyAndSentinelInput(t *testing.T) {
	v := newTestValidator(t, &MockGeocoder{}, &MockLLM{})

	for _, text := range []string{"", "   ", "N/A"} {
		verdict := v.Validate(context.Background(), text, 90)
		assert.Equal(t, model.Unresolved, verdict.Name)
		assert.Equal(t, 0.0, verdict.Confidence)
		assert.Equal(t, model.NoCountry, verdict.Country)
	}
}

func TestValidateAgreementCrossConfidence(t *testing.T) {
	city := model.GeocodeResult{
		Name: "New York, United States", Lat: 40.7128, Lon: -74.0060,
		Importance: 0.9, CountryCode: "us", PlaceRank: 16, LocationType: "city",
	}
	country := model.GeocodeResult{
		Name: "United States", Lat: 39.7837, Lon: -100.4459,
		Importance: 0.8, CountryCode: "us", PlaceRank: 4, LocationType: "country",
	}
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"New York":      {city},
		"United States": {country},
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "US"})

	verdict := v.Validate(context.Background(), "New York", 85)

	assert.Equal(t, "New York, United States", verdict.Name)
	assert.Equal(t, "United States", verdict.Country)
	assert.Equal(t, 40.7128, verdict.Lat)
	assert.Equal(t, 16, verdict.PlaceRank)

	distance := geo.Distance(city.Lat, city.Lon, country.Lat, country.Lon)
	expected := (100 - distance/geo.MaxDistanceMiles*100) * 85 / 100
	assert.InDelta(t, expected, verdict.Confidence, 1e-9)
	assert.Greater(t, verdict.Confidence, 0.0)
	assert.LessOrEqual(t, verdict.Confidence, 85.0)
}

func TestValidateModelOnlyWhenGazetteerEmpty(t *testing.T) {
	v := newTestValidator(t, &MockGeocoder{}, &MockLLM{Response: "FR"})

	verdict := v.Validate(context.Background(), "somewhere obscure", 80)

	assert.Equal(t, "France", verdict.Name)
	assert.Equal(t, "France", verdict.Country)
	assert.InDelta(t, 72, verdict.Confidence, 1e-9)
}

func TestValidateUnresolvableWhenBothSignalsFail(t *testing.T) {
	v := newTestValidator(t, &MockGeocoder{Err: errUnavailable}, &MockLLM{Response: "None"})

	verdict := v.Validate(context.Background(), "gibberish", 95)

	assert.Equal(t, model.Unresolved, verdict.Name)
	assert.Equal(t, 0.0, verdict.Confidence)
	assert.Equal(t, model.NoCountry, verdict.Country)
}

func TestValidateOceanHasNoCountry(t *testing.T) {
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"Pacific Ocean": {{
			Name: "Pacific Ocean", Lat: -8.52, Lon: -124.55,
			Importance: 0.9, LocationType: "ocean",
		}},
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "None"})

	verdict := v.Validate(context.Background(), "Pacific Ocean", 88)

	assert.Equal(t, "Pacific Ocean", verdict.Name)
	assert.Equal(t, model.NoCountry, verdict.Country)
	assert.Equal(t, 88.0, verdict.Confidence)
}

func TestValidateVerboseModelAnswerFallsBack(t *testing.T) {
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"Springfield": {{
			Name: "Springfield, Illinois", Lat: 39.8, Lon: -89.6,
			Importance: 0.7, CountryCode: "us", PlaceRank: 16, LocationType: "city",
		}},
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "It could be the United States"})

	verdict := v.Validate(context.Background(), "Springfield", 90)

	assert.Equal(t, "Springfield", verdict.Name)
	assert.Equal(t, 0.0, verdict.Confidence)
	assert.Equal(t, "United States", verdict.Country)
}

func TestValidateDisagreementPrefersModelCountry(t *testing.T) {
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"Vancouver": {{
			Name: "Vancouver, Washington", Lat: 45.6, Lon: -122.7,
			Importance: 0.7, CountryCode: "us", PlaceRank: 16, LocationType: "city",
		}},
		"Canada": {{
			Name: "Canada", Lat: 61.1, Lon: -107.99,
			Importance: 0.9, CountryCode: "ca", PlaceRank: 4, LocationType: "country",
		}},
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "CA"})

	verdict := v.Validate(context.Background(), "Vancouver", 75)

	assert.Equal(t, "Canada", verdict.Country)
	assert.Greater(t, verdict.Confidence, 0.0)
	assert.LessOrEqual(t, verdict.Confidence, 75.0)
}

func TestValidateWidensAddressLevelHits(t *testing.T) {
	address := model.GeocodeResult{
		Name: "10 Downing Street, London", Lat: 51.5034, Lon: -0.1276,
		Importance: 0.6, CountryCode: "gb", PlaceRank: 30, LocationType: "house",
	}
	cityWide := model.GeocodeResult{
		Name: "Downing Street, London", Lat: 51.5035, Lon: -0.127,
		Importance: 0.7, CountryCode: "gb", PlaceRank: 26, LocationType: "road",
	}
	country := model.GeocodeResult{
		Name: "United Kingdom", Lat: 54.7, Lon: -3.28,
		Importance: 0.9, CountryCode: "gb", PlaceRank: 4, LocationType: "country",
	}
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"10 Downing Street, London": {address},
		"10 Downing Street":         {cityWide},
		"United Kingdom":            {country},
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "GB"})

	verdict := v.Validate(context.Background(), "10 Downing Street, London", 90)

	assert.Equal(t, cityWide.Name, verdict.Name)
	assert.Equal(t, cityWide.PlaceRank, verdict.PlaceRank)
	assert.Contains(t, geocoder.Queries, "10 Downing Street")
}

func TestValidateCountryRegeocodeFailureDegradesGracefully(t *testing.T) {
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"Oslo": {{
			Name: "Oslo, Norway", Lat: 59.91, Lon: 10.75,
			Importance: 0.8, CountryCode: "no", PlaceRank: 15, LocationType: "city",
		}},
		// No entry for "Norway": the country re-geocode finds nothing.
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "NO"})

	verdict := v.Validate(context.Background(), "Oslo", 80)

	assert.Equal(t, "Norway", verdict.Country)
	assert.InDelta(t, 72, verdict.Confidence, 1e-9)
}

func TestValidatePicksHighestImportanceCandidate(t *testing.T) {
	geocoder := &MockGeocoder{Results: map[string][]model.GeocodeResult{
		"Paris": {
			{Name: "Paris, Texas", Lat: 33.66, Lon: -95.55, Importance: 0.5, CountryCode: "us", PlaceRank: 16, LocationType: "city"},
			{Name: "Paris, France", Lat: 48.85, Lon: 2.35, Importance: 0.95, CountryCode: "fr", PlaceRank: 12, LocationType: "city"},
		},
		"France": {
			{Name: "France", Lat: 46.6, Lon: 1.88, Importance: 0.9, CountryCode: "fr", PlaceRank: 4, LocationType: "country"},
		},
	}}
	v := newTestValidator(t, geocoder, &MockLLM{Response: "FR"})

	verdict := v.Validate(context.Background(), "Paris", 90)

	assert.Equal(t, "Paris, France", verdict.Name)
	assert.Equal(t, "France", verdict.Country)
}

func TestExtractCodeCleansResponses(t *testing.T) {
	coder := NewCountryCoder(&MockLLM{Response: `"us".`}, "")
	outcome := coder.ExtractCode(context.Background(), "anywhere")
	assert.True(t, outcome.Resolved)
	assert.Equal(t, "US", outcome.Code)

	coder = NewCountryCoder(&MockLLM{Response: "none"}, "")
	outcome = coder.ExtractCode(context.Background(), "anywhere")
	assert.False(t, outcome.Resolved)
	assert.Equal(t, "None", outcome.Code)

	coder = NewCountryCoder(&MockLLM{Err: errUnavailable}, "")
	outcome = coder.ExtractCode(context.Background(), "anywhere")
	assert.False(t, outcome.Resolved)
}

func TestExtractCodeToleratesJSONObjectReplies(t *testing.T) {
	coder := NewCountryCoder(&MockLLM{Response: `{"code": "no"}`}, "")
	outcome := coder.ExtractCode(context.Background(), "Oslo")
	assert.True(t, outcome.Resolved)
	assert.Equal(t, "NO", outcome.Code)

	coder = NewCountryCoder(&MockLLM{Response: "```json\n{\"countryCode\": \"FR\"}\n```"}, "")
	outcome = coder.ExtractCode(context.Background(), "Paris")
	assert.True(t, outcome.Resolved)
	assert.Equal(t, "FR", outcome.Code)

	coder = NewCountryCoder(&MockLLM{Response: `{"code": "None"}`}, "")
	outcome = coder.ExtractCode(context.Background(), "Pacific Ocean")
	assert.False(t, outcome.Resolved)
	assert.Equal(t, "None", outcome.Code)
}
