package store

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/driver"
	"github.com/expertatlas/atlas/internal/logger"
)

// GraphSink mirrors the built graph into Memgraph. Nodes go first so
// every edge MERGE finds both endpoints.
type GraphSink struct {
	Driver driver.GraphDriver
	log    *zap.Logger
}

func NewGraphSink(d driver.GraphDriver) *GraphSink {
	return &GraphSink{
		Driver: d,
		log:    logger.Get().With(zap.String("service", "GraphSink")),
	}
}

func (s *GraphSink) SaveGraph(ctx context.Context, g *model.Graph) error {
	if g == nil {
		return fmt.Errorf("graph is required")
	}

	if err := s.Driver.BuildIndices(ctx); err != nil {
		return fmt.Errorf("failed to build indices: %w", err)
	}

	if err := s.saveNodes(ctx, g); err != nil {
		return err
	}
	if err := s.saveEdges(ctx, g); err != nil {
		return err
	}

	s.log.Info("graph mirrored to Memgraph",
		zap.String("session", g.SessionID),
		zap.Int("locations", len(g.Locations)),
		zap.Int("works", len(g.Works)),
		zap.Int("grants", len(g.Grants)),
		zap.Int("experts", len(g.Experts)))

	return nil
}

func (s *GraphSink) saveNodes(ctx context.Context, g *model.Graph) error {
	for _, id := range sortedKeys(g.Locations) {
		loc := g.Locations[id]
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveLocationNodeQuery, map[string]interface{}{
			"id":         loc.ID,
			"name":       loc.Name,
			"country":    loc.Country,
			"lat":        loc.Lat,
			"lon":        loc.Lon,
			"rank":       loc.Rank,
			"session_id": g.SessionID,
		})
		if err != nil {
			return fmt.Errorf("failed to save location %s: %w", loc.ID, err)
		}
	}

	for _, id := range sortedKeys(g.Works) {
		work := g.Works[id]
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveWorkNodeQuery, map[string]interface{}{
			"id":         work.ID,
			"title":      work.Title,
			"abstract":   work.Abstract,
			"issued":     work.Issued,
			"confidence": work.Confidence,
			"session_id": g.SessionID,
		})
		if err != nil {
			return fmt.Errorf("failed to save work %s: %w", work.ID, err)
		}
	}

	for _, id := range sortedKeys(g.Grants) {
		grant := g.Grants[id]
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveGrantNodeQuery, map[string]interface{}{
			"id":         grant.ID,
			"title":      grant.Title,
			"funder":     grant.Funder,
			"start_date": grant.StartDate,
			"end_date":   grant.EndDate,
			"confidence": grant.Confidence,
			"session_id": g.SessionID,
		})
		if err != nil {
			return fmt.Errorf("failed to save grant %s: %w", grant.ID, err)
		}
	}

	for _, id := range sortedKeys(g.Experts) {
		expert := g.Experts[id]
		_, err := s.Driver.ExecuteQuery(ctx, driver.SaveExpertNodeQuery, map[string]interface{}{
			"id":         expert.ID,
			"name":       expert.Name,
			"session_id": g.SessionID,
		})
		if err != nil {
			return fmt.Errorf("failed to save expert %s: %w", expert.ID, err)
		}
	}

	return nil
}

func (s *GraphSink) saveEdges(ctx context.Context, g *model.Graph) error {
	for _, id := range sortedKeys(g.Works) {
		work := g.Works[id]
		for _, locationID := range work.Locations {
			_, err := s.Driver.ExecuteQuery(ctx, driver.SaveWorkLocationEdgeQuery, map[string]interface{}{
				"work_id":     work.ID,
				"location_id": locationID,
			})
			if err != nil {
				return fmt.Errorf("failed to link work %s to location %s: %w", work.ID, locationID, err)
			}
		}
		for _, expertID := range work.RelatedExperts {
			_, err := s.Driver.ExecuteQuery(ctx, driver.SaveAuthorshipEdgeQuery, map[string]interface{}{
				"expert_id": expertID,
				"work_id":   work.ID,
			})
			if err != nil {
				return fmt.Errorf("failed to link expert %s to work %s: %w", expertID, work.ID, err)
			}
		}
	}

	for _, id := range sortedKeys(g.Grants) {
		grant := g.Grants[id]
		for _, locationID := range grant.Locations {
			_, err := s.Driver.ExecuteQuery(ctx, driver.SaveGrantLocationEdgeQuery, map[string]interface{}{
				"grant_id":    grant.ID,
				"location_id": locationID,
			})
			if err != nil {
				return fmt.Errorf("failed to link grant %s to location %s: %w", grant.ID, locationID, err)
			}
		}
		for _, expertID := range grant.RelatedExperts {
			_, err := s.Driver.ExecuteQuery(ctx, driver.SaveAwardEdgeQuery, map[string]interface{}{
				"expert_id": expertID,
				"grant_id":  grant.ID,
			})
			if err != nil {
				return fmt.Errorf("failed to link expert %s to grant %s: %w", expertID, grant.ID, err)
			}
		}
	}

	for _, id := range sortedKeys(g.Experts) {
		expert := g.Experts[id]
		for _, locationID := range expert.Locations {
			_, err := s.Driver.ExecuteQuery(ctx, driver.SaveResidencyEdgeQuery, map[string]interface{}{
				"expert_id":   expert.ID,
				"location_id": locationID,
			})
			if err != nil {
				return fmt.Errorf("failed to link expert %s to location %s: %w", expert.ID, locationID, err)
			}
		}
	}

	return nil
}

func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
