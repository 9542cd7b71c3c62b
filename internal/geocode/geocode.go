package geocode

import (
	"context"

	"github.com/expertatlas/atlas/internal/core/model"
)

// Geocoder resolves free-text queries against a gazetteer. Implementations
// return zero or more candidates; ranking by importance is the caller's job.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]model.GeocodeResult, error)
}
