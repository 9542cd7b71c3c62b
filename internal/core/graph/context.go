package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/expertatlas/atlas/internal/core/model"
)

// BuildStats accumulates operator-visible counters for one build.
type BuildStats struct {
	AdmittedWorks         int
	AdmittedGrants        int
	SkippedEntries        int
	SkippedLocations      int
	ConsistencyViolations int
}

// BuildContext owns all mutable state for one graph build: the graph
// under construction, per-type id counters, natural-key dedup maps, and
// the relationship membership index. One context belongs to one build
// call; concurrent builds each get their own.
type BuildContext struct {
	Graph *model.Graph
	Stats BuildStats

	counters    map[string]int
	locationIDs map[string]string
	workIDs     map[string]string
	grantIDs    map[string]string
	expertIDs   map[string]string
	links       linkSet
}

func NewBuildContext() *BuildContext {
	return &BuildContext{
		Graph: &model.Graph{
			SessionID: uuid.New().String(),
			Locations: make(map[string]*model.LocationNode),
			Works:     make(map[string]*model.WorkNode),
			Grants:    make(map[string]*model.GrantNode),
			Experts:   make(map[string]*model.ExpertNode),
		},
		counters:    make(map[string]int),
		locationIDs: make(map[string]string),
		workIDs:     make(map[string]string),
		grantIDs:    make(map[string]string),
		expertIDs:   make(map[string]string),
		links:       make(linkSet),
	}
}

// nextID hands out zero-padded monotonic ids per node type.
func (c *BuildContext) nextID(kind string) string {
	c.counters[kind]++
	return fmt.Sprintf("%04d", c.counters[kind])
}

// linkSet indexes which relationship edges already exist so relationship
// arrays behave as sets. Arrays stay ordered for serialization; this map
// answers the membership question. Owners are typed keys ("expert:0001"),
// because plain ids are only unique within one node type.
type linkSet map[string]struct{}

// add records owner-[field]->target and reports whether it was new.
// owner must be a typed key from nodeKey.
func (s linkSet) add(owner, field, target string) bool {
	key := owner + "|" + field + "|" + target
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// nodeKey qualifies a per-type id with its node type for use as a linkSet
// owner.
func nodeKey(kind, id string) string {
	return kind + ":" + id
}
