// Package validate reconciles two independently noisy signals about a
// location mention, a generative-model country guess and a gazetteer
// lookup, into a single confidence-scored verdict.
package validate

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/core/geo"
	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/core/normalize"
	"github.com/expertatlas/atlas/internal/geocode"
	"github.com/expertatlas/atlas/internal/logger"
)

// addressPlaceRank is the gazetteer rank at which a hit is address-level,
// i.e. too precise for the country-level granularity downstream expects.
const addressPlaceRank = 30

// modelOnlyDiscount is applied when the verdict rests solely on the
// language model, with no gazetteer point to cross-check against.
const modelOnlyDiscount = 0.9

// GeocodeOutcome is the tagged result of a gazetteer lookup: the highest
// importance candidate, or nothing.
type GeocodeOutcome struct {
	Found  bool
	Result model.GeocodeResult
}

// Validator decides the canonical name, country, and combined confidence
// for a location candidate. Validate is total: every internal failure
// degrades to the unresolved verdict, never an error.
type Validator struct {
	Geocoder  geocode.Geocoder
	Coder     *CountryCoder
	Countries *normalize.CountryTable
	log       *zap.Logger
}

func NewValidator(geocoder geocode.Geocoder, coder *CountryCoder, countries *normalize.CountryTable) *Validator {
	return &Validator{
		Geocoder:  geocoder,
		Coder:     coder,
		Countries: countries,
		log:       logger.Get(),
	}
}

func unresolvedLocation() model.ValidatedLocation {
	return model.ValidatedLocation{
		Name:       model.Unresolved,
		Confidence: 0,
		Country:    model.NoCountry,
	}
}

// Validate resolves one candidate. llmConfidence is the extractor's
// self-reported confidence in [0,100].
func (v *Validator) Validate(ctx context.Context, text string, llmConfidence float64) model.ValidatedLocation {
	text = strings.TrimSpace(text)
	if text == "" || text == model.Unresolved {
		return unresolvedLocation()
	}

	query := normalize.PreprocessText(normalize.ApplyAlias(text))
	if query == "" {
		return unresolvedLocation()
	}

	geoOutcome := v.lookup(ctx, query)
	codeOutcome := v.Coder.ExtractCode(ctx, query)

	// De-specification: when both signals agree on the country but the
	// gazetteer answered at address level, re-query wider so the rest of
	// the system sees the granularity it expects.
	if geoOutcome.Found && codeOutcome.Resolved &&
		strings.EqualFold(geoOutcome.Result.CountryCode, codeOutcome.Code) &&
		geoOutcome.Result.PlaceRank >= addressPlaceRank {
		if wide := v.lookup(ctx, widenQuery(query)); wide.Found {
			geoOutcome = wide
		}
	}

	return v.decide(ctx, text, llmConfidence, geoOutcome, codeOutcome)
}

// decide walks the decision table in order. Branches that cannot anchor
// the verdict on any known country return confidence 0.
func (v *Validator) decide(ctx context.Context, text string, llmConfidence float64, geoOutcome GeocodeOutcome, codeOutcome CodeOutcome) model.ValidatedLocation {
	// Gazetteer found nothing: the model is all we have.
	if !geoOutcome.Found {
		name, ok := v.Countries.NameForCode(codeOutcome.Code)
		if !ok {
			return unresolvedLocation()
		}
		return model.ValidatedLocation{
			Name:       name,
			Confidence: clampConfidence(llmConfidence * modelOnlyDiscount),
			Country:    name,
		}
	}

	result := geoOutcome.Result

	// Both signals agree on the country.
	if codeOutcome.Resolved && strings.EqualFold(result.CountryCode, codeOutcome.Code) {
		if name, ok := v.Countries.NameForCode(codeOutcome.Code); ok {
			return v.resolved(result, name, v.crossConfidence(ctx, result, name, llmConfidence))
		}
		// Agreed code missing from the reference table; fall through to
		// the low-trust fallback below.
		return v.fallback(text, result)
	}

	// Oceans, seas, and continents are valid locations with no country.
	switch strings.ToLower(result.LocationType) {
	case "ocean", "sea", "continent":
		return v.resolved(result, model.NoCountry, clampConfidence(llmConfidence))
	}

	// Anything longer than two characters is not an ISO code; the model
	// failed to answer usefully.
	if len(codeOutcome.Code) > 2 {
		return v.fallback(text, result)
	}

	// Codes disagree and both look real: prefer the model's.
	if name, ok := v.Countries.NameForCode(codeOutcome.Code); ok {
		return v.resolved(result, name, v.crossConfidence(ctx, result, name, llmConfidence))
	}
	return v.fallback(text, result)
}

func (v *Validator) resolved(result model.GeocodeResult, country string, confidence float64) model.ValidatedLocation {
	name := result.Name
	if country != model.NoCountry && name == "" {
		name = country
	}
	return model.ValidatedLocation{
		Name:       name,
		Confidence: confidence,
		Country:    country,
		Lat:        result.Lat,
		Lon:        result.Lon,
		PlaceRank:  result.PlaceRank,
	}
}

// fallback keeps the original text with zero confidence, attributing the
// gazetteer's country when the reference table knows it.
func (v *Validator) fallback(text string, result model.GeocodeResult) model.ValidatedLocation {
	country := model.NoCountry
	if name, ok := v.Countries.NameForCode(result.CountryCode); ok {
		country = name
	}
	return model.ValidatedLocation{
		Name:       text,
		Confidence: 0,
		Country:    country,
		Lat:        result.Lat,
		Lon:        result.Lon,
		PlaceRank:  result.PlaceRank,
	}
}

// crossConfidence measures how far the gazetteer's point sits from the
// point implied by the model's country, converts that distance to a
// percentage of the maximum possible great-circle distance, and scales it
// by the model's own stated confidence.
func (v *Validator) crossConfidence(ctx context.Context, base model.GeocodeResult, countryName string, llmConfidence float64) float64 {
	ref := v.lookup(ctx, countryName)
	if !ref.Found {
		// The country itself would not geocode; trust the model alone.
		return clampConfidence(llmConfidence * modelOnlyDiscount)
	}

	distance := geo.Distance(base.Lat, base.Lon, ref.Result.Lat, ref.Result.Lon)
	percent := 100 - distance/geo.MaxDistanceMiles*100
	if percent < 0 {
		percent = 0
	}
	return clampConfidence(percent * llmConfidence / 100)
}

// lookup runs one gazetteer query and keeps the highest-importance
// candidate. Failures and empty result sets are both NotFound.
func (v *Validator) lookup(ctx context.Context, query string) GeocodeOutcome {
	results, err := v.Geocoder.Search(ctx, query)
	if err != nil {
		v.log.Debug("geocode lookup failed", zap.String("query", query), zap.Error(err))
		return GeocodeOutcome{}
	}
	if len(results) == 0 {
		return GeocodeOutcome{}
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.Importance > best.Importance {
			best = r
		}
	}
	return GeocodeOutcome{Found: true, Result: best}
}

// widenQuery broadens an address-level query to something the gazetteer
// resolves at regional granularity.
func widenQuery(query string) string {
	if strings.Contains(query, "America") {
		return "America"
	}
	if idx := strings.Index(query, ","); idx > 0 {
		return strings.TrimSpace(query[:idx])
	}
	return query
}

// clampConfidence forces the verdict into [0,100] and maps NaN to 0 so
// the confidence invariant holds for every input.
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
