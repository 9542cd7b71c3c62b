package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/expertatlas/atlas/internal/core/model"
)

// NominatimClient queries a Nominatim-compatible search endpoint.
// Callers are expected to keep request rates polite; the pipeline bounds
// concurrency for that reason.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// nominatimResult mirrors the jsonv2 response shape. Coordinates arrive
// as strings.
type nominatimResult struct {
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Importance  float64 `json:"importance"`
	PlaceRank   int     `json:"place_rank"`
	Type        string  `json:"type"`
	Address     struct {
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (c *NominatimClient) Search(ctx context.Context, query string) ([]model.GeocodeResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=jsonv2&addressdetails=1&limit=5",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var raw []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	results := make([]model.GeocodeResult, 0, len(raw))
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		name := r.DisplayName
		if name == "" {
			name = r.Name
		}
		results = append(results, model.GeocodeResult{
			Name:         name,
			Lat:          lat,
			Lon:          lon,
			Importance:   r.Importance,
			CountryCode:  r.Address.CountryCode,
			PlaceRank:    r.PlaceRank,
			LocationType: r.Type,
		})
	}

	return results, nil
}
