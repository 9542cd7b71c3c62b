package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/core/merge"
	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/logger"
)

// ErrInvalidGeometry aborts a whole sync batch: the spatial index only
// accepts well-typed geometry, so a partial apply would leave the store
// inconsistent with the graph.
var ErrInvalidGeometry = errors.New("invalid geometry type")

// SpatialStore syncs location features into a PostGIS table. Expected
// schema:
//
//	CREATE TABLE locations (
//	    id         text PRIMARY KEY,
//	    geom       geometry(Point, 4326) NOT NULL,
//	    properties jsonb NOT NULL,
//	    merged_at  timestamptz NOT NULL DEFAULT now()
//	);
type SpatialStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewSpatialStore(ctx context.Context, dsn string) (*SpatialStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &SpatialStore{
		pool: pool,
		log:  logger.Get().With(zap.String("service", "SpatialStore")),
	}, nil
}

// FeatureFromGroup turns a validated location group into the feature the
// spatial store upserts. Coordinates follow GeoJSON order, [lon, lat].
func FeatureFromGroup(group model.LocationGroup) model.LocationFeature {
	entries := make([]interface{}, len(group.Entries))
	for i, e := range group.Entries {
		entries[i] = e
	}
	return model.LocationFeature{
		ID: strings.ToLower(group.Location),
		Geometry: model.Geometry{
			Type:        model.GeometryTypePoint,
			Coordinates: [2]float64{group.Lon, group.Lat},
		},
		Properties: map[string]interface{}{
			"location": group.Location,
			"country":  group.Country,
			"rank":     group.Rank,
			"entries":  entries,
		},
	}
}

// SyncLocations upserts a batch of features inside one transaction.
// Existing rows are reconciled through the merge engine and rewritten
// only when something actually changed; any invalid geometry rolls the
// whole batch back. Returns how many rows were written.
func (s *SpatialStore) SyncLocations(ctx context.Context, features []model.LocationFeature) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, feature := range features {
		if err := validateGeometry(feature.Geometry); err != nil {
			return 0, fmt.Errorf("feature %q: %w", feature.ID, err)
		}

		wrote, err := s.syncOne(ctx, tx, feature)
		if err != nil {
			return 0, err
		}
		if wrote {
			written++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit sync batch: %w", err)
	}

	s.log.Info("spatial sync complete",
		zap.Int("features", len(features)),
		zap.Int("written", written))

	return written, nil
}

func (s *SpatialStore) syncOne(ctx context.Context, tx pgx.Tx, feature model.LocationFeature) (bool, error) {
	var existingRaw []byte
	err := tx.QueryRow(ctx,
		`SELECT properties FROM locations WHERE id = $1 FOR UPDATE`,
		feature.ID).Scan(&existingRaw)

	lon := feature.Geometry.Coordinates[0]
	lat := feature.Geometry.Coordinates[1]

	if errors.Is(err, pgx.ErrNoRows) {
		props, marshalErr := json.Marshal(feature.Properties)
		if marshalErr != nil {
			return false, fmt.Errorf("failed to encode properties for %q: %w", feature.ID, marshalErr)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO locations (id, geom, properties)
			 VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326), $4)`,
			feature.ID, lon, lat, props)
		if err != nil {
			return false, fmt.Errorf("failed to insert %q: %w", feature.ID, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %q: %w", feature.ID, err)
	}

	var existing map[string]interface{}
	if err := json.Unmarshal(existingRaw, &existing); err != nil {
		return false, fmt.Errorf("stored properties for %q are not valid JSON: %w", feature.ID, err)
	}

	result := merge.MergeProperties(existing, feature.Properties)
	if !result.HasChanges {
		return false, nil
	}

	props, err := json.Marshal(result.Merged)
	if err != nil {
		return false, fmt.Errorf("failed to encode merged properties for %q: %w", feature.ID, err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE locations
		 SET geom = ST_SetSRID(ST_MakePoint($2, $3), 4326),
		     properties = $4,
		     merged_at = now()
		 WHERE id = $1`,
		feature.ID, lon, lat, props)
	if err != nil {
		return false, fmt.Errorf("failed to update %q: %w", feature.ID, err)
	}
	return true, nil
}

func (s *SpatialStore) Close() {
	s.pool.Close()
}

func validateGeometry(g model.Geometry) error {
	if g.Type != model.GeometryTypePoint {
		return fmt.Errorf("%w: %q", ErrInvalidGeometry, g.Type)
	}
	lon, lat := g.Coordinates[0], g.Coordinates[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidGeometry)
	}
	return nil
}
