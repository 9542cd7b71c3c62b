// Package graph folds validated location groups and their raw work/grant
// payloads into a deduplicated entity graph with stable ids.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/core/common"
	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/core/normalize"
	"github.com/expertatlas/atlas/internal/logger"
)

// MinConfidence is the admission threshold: entries below it never create
// nodes or edges. Fixed policy, not configurable per call.
const MinConfidence = 60.0

type Builder struct {
	log *zap.Logger
}

func NewBuilder() *Builder {
	return &Builder{log: logger.Get()}
}

// locationBatch pairs the work-derived and grant-derived groups that
// resolved to the same location.
type locationBatch struct {
	key   string
	works *model.LocationGroup
	grant *model.LocationGroup
}

// Build folds the given groups into the context's graph. It is append-only
// within a run and idempotent across runs given identical input. The only
// errors are programmer errors; data-quality problems are counted, logged,
// and skipped.
func (b *Builder) Build(bc *BuildContext, workGroups, grantGroups []model.LocationGroup) error {
	if bc == nil {
		return fmt.Errorf("build context is required")
	}

	for _, batch := range pairGroups(workGroups, grantGroups) {
		fromWorks := groupExperts(batch.works, "authors")
		fromGrants := groupExperts(batch.grant, "relatedExperts")

		if len(fromWorks) == 0 && len(fromGrants) == 0 {
			bc.Stats.SkippedLocations++
			b.log.Debug("skipping location with no reachable experts", zap.String("location", batch.key))
			continue
		}

		if !consistentGroup(batch.works, "authors") || !consistentGroup(batch.grant, "relatedExperts") {
			bc.Stats.ConsistencyViolations++
			bc.Stats.SkippedLocations++
			b.log.Warn("skipping location with inconsistent expert attribution",
				zap.String("location", batch.key))
			continue
		}

		if batch.works != nil {
			b.foldWorkGroup(bc, *batch.works)
		}
		if batch.grant != nil {
			b.foldGrantGroup(bc, *batch.grant)
		}
	}

	b.log.Info("graph build complete",
		zap.String("session", bc.Graph.SessionID),
		zap.Int("locations", len(bc.Graph.Locations)),
		zap.Int("works", len(bc.Graph.Works)),
		zap.Int("grants", len(bc.Graph.Grants)),
		zap.Int("experts", len(bc.Graph.Experts)),
		zap.Int("skippedEntries", bc.Stats.SkippedEntries),
		zap.Int("skippedLocations", bc.Stats.SkippedLocations),
		zap.Int("consistencyViolations", bc.Stats.ConsistencyViolations))

	return nil
}

func (b *Builder) foldWorkGroup(bc *BuildContext, group model.LocationGroup) {
	locID := b.ensureLocation(bc, group)
	loc := bc.Graph.Locations[locID]

	for _, entry := range group.Entries {
		conf, ok := admissible(entry)
		if !ok {
			bc.Stats.SkippedEntries++
			continue
		}
		title := sanitizeTitle(common.ToString(entry["title"]))
		if title == "" {
			bc.Stats.SkippedEntries++
			continue
		}

		titleKey := strings.ToLower(title)
		workID, exists := bc.workIDs[titleKey]
		if !exists {
			workID = bc.nextID("work")
			bc.workIDs[titleKey] = workID
			bc.Graph.Works[workID] = &model.WorkNode{
				ID:         workID,
				Title:      title,
				Abstract:   common.ToString(entry["abstract"]),
				Issued:     common.ToString(entry["issued"]),
				Confidence: conf,
			}
			bc.Stats.AdmittedWorks++
		}
		work := bc.Graph.Works[workID]

		// The same title may legitimately surface at several locations
		// in noisy source data; only the back-reference grows.
		if bc.links.add(nodeKey("work", workID), "location", locID) {
			work.Locations = append(work.Locations, locID)
		}
		if bc.links.add(nodeKey("location", locID), "works", workID) {
			loc.Works = append(loc.Works, workID)
		}

		for _, name := range expertNames(entry, "authors") {
			expertID := b.ensureExpert(bc, name)
			expert := bc.Graph.Experts[expertID]

			if bc.links.add(nodeKey("expert", expertID), "works", workID) {
				expert.Works = append(expert.Works, workID)
			}
			if bc.links.add(nodeKey("expert", expertID), "location", locID) {
				expert.Locations = append(expert.Locations, locID)
			}
			if bc.links.add(nodeKey("work", workID), "relatedExperts", expertID) {
				work.RelatedExperts = append(work.RelatedExperts, expertID)
			}
			if bc.links.add(nodeKey("location", locID), "experts", expertID) {
				loc.Experts = append(loc.Experts, expertID)
			}
		}
	}
}

func (b *Builder) foldGrantGroup(bc *BuildContext, group model.LocationGroup) {
	locID := b.ensureLocation(bc, group)
	loc := bc.Graph.Locations[locID]

	for _, entry := range group.Entries {
		conf, ok := admissible(entry)
		if !ok {
			bc.Stats.SkippedEntries++
			continue
		}
		title := sanitizeTitle(common.ToString(entry["title"]))
		if title == "" {
			bc.Stats.SkippedEntries++
			continue
		}

		titleKey := strings.ToLower(title)
		grantID, exists := bc.grantIDs[titleKey]
		if !exists {
			grantID = bc.nextID("grant")
			bc.grantIDs[titleKey] = grantID
			bc.Graph.Grants[grantID] = &model.GrantNode{
				ID:         grantID,
				Title:      title,
				Funder:     common.ToString(entry["funder"]),
				StartDate:  common.ToString(entry["startDate"]),
				EndDate:    common.ToString(entry["endDate"]),
				Confidence: conf,
			}
			bc.Stats.AdmittedGrants++
		}
		grant := bc.Graph.Grants[grantID]

		if bc.links.add(nodeKey("grant", grantID), "location", locID) {
			grant.Locations = append(grant.Locations, locID)
		}
		if bc.links.add(nodeKey("location", locID), "grants", grantID) {
			loc.Grants = append(loc.Grants, grantID)
		}

		for _, name := range expertNames(entry, "relatedExperts") {
			expertID := b.ensureExpert(bc, name)
			expert := bc.Graph.Experts[expertID]

			if bc.links.add(nodeKey("expert", expertID), "grants", grantID) {
				expert.Grants = append(expert.Grants, grantID)
			}
			if bc.links.add(nodeKey("expert", expertID), "location", locID) {
				expert.Locations = append(expert.Locations, locID)
			}
			if bc.links.add(nodeKey("grant", grantID), "relatedExperts", expertID) {
				grant.RelatedExperts = append(grant.RelatedExperts, expertID)
			}
			if bc.links.add(nodeKey("location", locID), "experts", expertID) {
				loc.Experts = append(loc.Experts, expertID)
			}
		}
	}
}

// ensureLocation returns the id for a location group, creating the node
// on first sighting. Scalar fields are fixed at creation and never
// overwritten by later sightings.
func (b *Builder) ensureLocation(bc *BuildContext, group model.LocationGroup) string {
	key := strings.ToLower(group.Location)
	if id, ok := bc.locationIDs[key]; ok {
		return id
	}

	id := bc.nextID("location")
	bc.locationIDs[key] = id
	bc.Graph.Locations[id] = &model.LocationNode{
		ID:      id,
		Name:    group.Location,
		Country: group.Country,
		Lat:     group.Lat,
		Lon:     group.Lon,
		Rank:    group.Rank,
	}
	return id
}

// ensureExpert dedupes experts by full name, case-sensitive as supplied.
func (b *Builder) ensureExpert(bc *BuildContext, name string) string {
	if id, ok := bc.expertIDs[name]; ok {
		return id
	}

	id := bc.nextID("expert")
	bc.expertIDs[name] = id
	bc.Graph.Experts[id] = &model.ExpertNode{
		ID:   id,
		Name: name,
	}
	return id
}

// admissible applies the admission filter: an entry needs an id and a
// numeric confidence of at least MinConfidence.
func admissible(entry map[string]interface{}) (float64, bool) {
	if common.ToString(entry["id"]) == "" {
		return 0, false
	}
	conf, ok := common.ToFloat(entry["confidence"])
	if !ok || conf < MinConfidence {
		return 0, false
	}
	return conf, true
}

// expertNames extracts the distinct expert names from an entry, trying
// the preferred field first and the alternate spelling second. Items may
// be strings or objects with a "name" field.
func expertNames(entry map[string]interface{}, field string) []string {
	raw := entry[field]
	if raw == nil {
		if field == "authors" {
			raw = entry["relatedExperts"]
		} else {
			raw = entry["authors"]
		}
	}

	var names []string
	seen := make(map[string]struct{})
	for _, item := range common.CoerceList(raw) {
		var name string
		switch v := item.(type) {
		case string:
			name = strings.TrimSpace(v)
		case map[string]interface{}:
			name = strings.TrimSpace(common.ToString(v["name"]))
		default:
			name = strings.TrimSpace(common.ToString(item))
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// groupExperts derives the distinct experts reachable from a group's
// admissible entries.
func groupExperts(group *model.LocationGroup, field string) map[string]struct{} {
	experts := make(map[string]struct{})
	if group == nil {
		return experts
	}
	for _, entry := range group.Entries {
		if _, ok := admissible(entry); !ok {
			continue
		}
		for _, name := range expertNames(entry, field) {
			experts[name] = struct{}{}
		}
	}
	return experts
}

// consistentGroup verifies that a repeated title inside one location group
// always reports the same expert attribution. Differing attributions for
// the same title cannot be folded without guessing, so the whole location
// is skipped upstream.
func consistentGroup(group *model.LocationGroup, field string) bool {
	if group == nil {
		return true
	}
	attribution := make(map[string]string)
	for _, entry := range group.Entries {
		if _, ok := admissible(entry); !ok {
			continue
		}
		title := strings.ToLower(sanitizeTitle(common.ToString(entry["title"])))
		if title == "" {
			continue
		}
		names := expertNames(entry, field)
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		signature := strings.Join(sorted, "\x1f")

		if prev, seen := attribution[title]; seen {
			if prev != signature {
				return false
			}
			continue
		}
		attribution[title] = signature
	}
	return true
}

// pairGroups aligns work and grant groups by lowercase location name,
// keeping a deterministic order.
func pairGroups(workGroups, grantGroups []model.LocationGroup) []locationBatch {
	byKey := make(map[string]*locationBatch)
	var order []string

	ensure := func(key string) *locationBatch {
		if batch, ok := byKey[key]; ok {
			return batch
		}
		batch := &locationBatch{key: key}
		byKey[key] = batch
		order = append(order, key)
		return batch
	}

	for i := range workGroups {
		key := strings.ToLower(workGroups[i].Location)
		ensure(key).works = &workGroups[i]
	}
	for i := range grantGroups {
		key := strings.ToLower(grantGroups[i].Location)
		ensure(key).grant = &grantGroups[i]
	}

	sort.Strings(order)
	batches := make([]locationBatch, 0, len(order))
	for _, key := range order {
		batches = append(batches, *byKey[key])
	}
	return batches
}

// sanitizeTitle collapses whitespace so cosmetic differences do not split
// a title into two nodes.
func sanitizeTitle(title string) string {
	return normalize.PreprocessText(title)
}
