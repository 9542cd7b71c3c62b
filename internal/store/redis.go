// Package store persists the built entity graph: a key/value snapshot in
// Redis, an idempotent spatial sync into PostGIS, and a property-graph
// mirror in Memgraph.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/logger"
)

// GraphStore writes graph nodes to Redis under "type:id" keys with
// relationship arrays JSON-encoded, the contract the map layer reads.
type GraphStore struct {
	rdb *goredis.Client
	log *zap.Logger
}

func NewGraphStore(addr, password string, db int) (*GraphStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &GraphStore{
		rdb: rdb,
		log: logger.Get().With(zap.String("service", "GraphStore")),
	}, nil
}

// SaveGraph writes every node in one pipelined round trip and records
// the session under its own key for auditability.
func (s *GraphStore) SaveGraph(ctx context.Context, g *model.Graph) error {
	if g == nil {
		return fmt.Errorf("graph is required")
	}

	pipe := s.rdb.Pipeline()

	for id, loc := range g.Locations {
		pipe.HSet(ctx, "location:"+id, map[string]interface{}{
			"name":    loc.Name,
			"country": loc.Country,
			"lat":     loc.Lat,
			"lon":     loc.Lon,
			"rank":    loc.Rank,
			"works":   encodeIDs(loc.Works),
			"grants":  encodeIDs(loc.Grants),
			"experts": encodeIDs(loc.Experts),
		})
	}
	for id, work := range g.Works {
		pipe.HSet(ctx, "work:"+id, map[string]interface{}{
			"title":          work.Title,
			"abstract":       work.Abstract,
			"issued":         work.Issued,
			"confidence":     work.Confidence,
			"location":       encodeIDs(work.Locations),
			"relatedExperts": encodeIDs(work.RelatedExperts),
		})
	}
	for id, grant := range g.Grants {
		pipe.HSet(ctx, "grant:"+id, map[string]interface{}{
			"title":          grant.Title,
			"funder":         grant.Funder,
			"startDate":      grant.StartDate,
			"endDate":        grant.EndDate,
			"confidence":     grant.Confidence,
			"location":       encodeIDs(grant.Locations),
			"relatedExperts": encodeIDs(grant.RelatedExperts),
		})
	}
	for id, expert := range g.Experts {
		pipe.HSet(ctx, "expert:"+id, map[string]interface{}{
			"name":     expert.Name,
			"works":    encodeIDs(expert.Works),
			"grants":   encodeIDs(expert.Grants),
			"location": encodeIDs(expert.Locations),
		})
	}

	pipe.HSet(ctx, "session:"+g.SessionID, map[string]interface{}{
		"locations": len(g.Locations),
		"works":     len(g.Works),
		"grants":    len(g.Grants),
		"experts":   len(g.Experts),
		"savedAt":   time.Now().UTC().Format(time.RFC3339),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	s.log.Info("graph saved",
		zap.String("session", g.SessionID),
		zap.Int("locations", len(g.Locations)),
		zap.Int("works", len(g.Works)),
		zap.Int("grants", len(g.Grants)),
		zap.Int("experts", len(g.Experts)))

	return nil
}

func (s *GraphStore) Close() error {
	return s.rdb.Close()
}

func encodeIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	return string(raw)
}
