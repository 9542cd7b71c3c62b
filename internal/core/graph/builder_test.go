package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expertatlas/atlas/internal/core/model"
)

func workEntry(id, title string, confidence interface{}, authors ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"title":      title,
		"confidence": confidence,
		"authors":    authors,
	}
}

func TestBuildRequiresContext(t *testing.T) {
	err := NewBuilder().Build(nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildDedupesWorkAcrossLocations(t *testing.T) {
	workGroups := []model.LocationGroup{
		{
			Location: "Oslo", Country: "Norway", Lat: 59.91, Lon: 10.75, Rank: 15,
			Entries: []map[string]interface{}{
				workEntry("w-1", "Fjord ecology", 85.0, "Ada Lovelace"),
			},
		},
		{
			Location: "Bergen", Country: "Norway", Lat: 60.39, Lon: 5.32, Rank: 15,
			Entries: []map[string]interface{}{
				workEntry("w-2", "Fjord ecology", 85.0, "Ada Lovelace"),
			},
		},
	}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	require.Len(t, bc.Graph.Works, 1)
	require.Len(t, bc.Graph.Locations, 2)
	require.Len(t, bc.Graph.Experts, 1)

	var work *model.WorkNode
	for _, w := range bc.Graph.Works {
		work = w
	}
	assert.Len(t, work.Locations, 2)
	assert.Len(t, work.RelatedExperts, 1)

	var expert *model.ExpertNode
	for _, x := range bc.Graph.Experts {
		expert = x
	}
	assert.Equal(t, "Ada Lovelace", expert.Name)
	assert.Len(t, expert.Works, 1)
	assert.Len(t, expert.Locations, 2)
}

func TestBuildConfidenceThreshold(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Below threshold", "59", "Ada Lovelace"),
			workEntry("w-2", "At threshold", 60.0, "Ada Lovelace"),
			workEntry("w-3", "Stringly admitted", "61", "Ada Lovelace"),
		},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	assert.Len(t, bc.Graph.Works, 2)
	assert.Equal(t, 2, bc.Stats.AdmittedWorks)
	assert.Equal(t, 1, bc.Stats.SkippedEntries)
}

func TestBuildRejectsEntriesWithoutID(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			{"title": "No id", "confidence": 90.0, "authors": []interface{}{"Ada Lovelace"}},
			workEntry("w-1", "Has id", 90.0, "Ada Lovelace"),
		},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	assert.Len(t, bc.Graph.Works, 1)
	assert.Equal(t, 1, bc.Stats.SkippedEntries)
}

func TestBuildSkipsLocationWithNoExperts(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Authorless", 90.0),
		},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	assert.Empty(t, bc.Graph.Locations)
	assert.Empty(t, bc.Graph.Works)
	assert.Equal(t, 1, bc.Stats.SkippedLocations)
}

func TestBuildSkipsInconsistentAttribution(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Glacier retreat", 90.0, "Ada Lovelace"),
			workEntry("w-2", "Glacier retreat", 90.0, "Grace Hopper"),
		},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	assert.Empty(t, bc.Graph.Works)
	assert.Equal(t, 1, bc.Stats.ConsistencyViolations)
	assert.Equal(t, 1, bc.Stats.SkippedLocations)
}

func TestBuildAcceptsRepeatedConsistentAttribution(t *testing.T) {
	// Same title twice with the same authors in a different order is fine.
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Glacier retreat", 90.0, "Ada Lovelace", "Grace Hopper"),
			workEntry("w-2", "Glacier retreat", 90.0, "Grace Hopper", "Ada Lovelace"),
		},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	assert.Len(t, bc.Graph.Works, 1)
	assert.Len(t, bc.Graph.Experts, 2)
	assert.Zero(t, bc.Stats.ConsistencyViolations)
}

func TestBuildPairsWorkAndGrantGroups(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Fjord ecology", 85.0, "Ada Lovelace"),
		},
	}}
	grantGroups := []model.LocationGroup{{
		Location: "oslo", Country: "Norway",
		Entries: []map[string]interface{}{{
			"id": "g-1", "title": "Coastal monitoring", "confidence": 80.0,
			"funder": "Research Council", "relatedExperts": []interface{}{"Ada Lovelace"},
		}},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, grantGroups))

	// Differently-cased names fold into one location.
	require.Len(t, bc.Graph.Locations, 1)
	require.Len(t, bc.Graph.Grants, 1)
	require.Len(t, bc.Graph.Experts, 1)

	var loc *model.LocationNode
	for _, l := range bc.Graph.Locations {
		loc = l
	}
	assert.Len(t, loc.Works, 1)
	assert.Len(t, loc.Grants, 1)
	assert.Len(t, loc.Experts, 1)

	var expert *model.ExpertNode
	for _, x := range bc.Graph.Experts {
		expert = x
	}
	assert.Len(t, expert.Works, 1)
	assert.Len(t, expert.Grants, 1)
	assert.Len(t, expert.Locations, 1)
}

func TestBuildIsIdempotentAcrossRuns(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Fjord ecology", 85.0, "Ada Lovelace"),
		},
	}}

	bc := NewBuildContext()
	builder := NewBuilder()
	require.NoError(t, builder.Build(bc, workGroups, nil))
	require.NoError(t, builder.Build(bc, workGroups, nil))

	assert.Len(t, bc.Graph.Works, 1)
	assert.Len(t, bc.Graph.Locations, 1)
	assert.Len(t, bc.Graph.Experts, 1)

	var work *model.WorkNode
	for _, w := range bc.Graph.Works {
		work = w
	}
	assert.Len(t, work.Locations, 1)
	assert.Len(t, work.RelatedExperts, 1)
}

func TestBuildAuthorsFromJSONStringAndObjects(t *testing.T) {
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			{
				"id": "w-1", "title": "Stringly authors", "confidence": 90.0,
				"authors": `["Ada Lovelace", "Grace Hopper"]`,
			},
			{
				"id": "w-2", "title": "Object authors", "confidence": 90.0,
				"authors": []interface{}{map[string]interface{}{"name": "Ada Lovelace"}},
			},
		},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, nil))

	assert.Len(t, bc.Graph.Experts, 2)
}

func TestBuildLinksSurviveCrossTypeIDCollision(t *testing.T) {
	// Ids are zero-padded per type, so the first location, work, grant,
	// and expert all carry id "0001". Their relationship memberships must
	// stay independent of one another.
	workGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{
			workEntry("w-1", "Fjord ecology", 85.0, "Ada Lovelace"),
		},
	}}
	grantGroups := []model.LocationGroup{{
		Location: "Oslo", Country: "Norway",
		Entries: []map[string]interface{}{{
			"id": "g-1", "title": "Coastal monitoring", "confidence": 80.0,
			"relatedExperts": []interface{}{"Ada Lovelace"},
		}},
	}}

	bc := NewBuildContext()
	require.NoError(t, NewBuilder().Build(bc, workGroups, grantGroups))

	loc := bc.Graph.Locations["0001"]
	work := bc.Graph.Works["0001"]
	grant := bc.Graph.Grants["0001"]
	expert := bc.Graph.Experts["0001"]
	require.NotNil(t, loc)
	require.NotNil(t, work)
	require.NotNil(t, grant)
	require.NotNil(t, expert)

	assert.Equal(t, []string{"0001"}, work.Locations)
	assert.Equal(t, []string{"0001"}, work.RelatedExperts)
	assert.Equal(t, []string{"0001"}, grant.Locations)
	assert.Equal(t, []string{"0001"}, grant.RelatedExperts)
	assert.Equal(t, []string{"0001"}, loc.Works)
	assert.Equal(t, []string{"0001"}, loc.Grants)
	assert.Equal(t, []string{"0001"}, loc.Experts)
	assert.Equal(t, []string{"0001"}, expert.Works)
	assert.Equal(t, []string{"0001"}, expert.Grants)
	assert.Equal(t, []string{"0001"}, expert.Locations)
}

func TestNextIDIsZeroPaddedPerType(t *testing.T) {
	bc := NewBuildContext()
	assert.Equal(t, "0001", bc.nextID("work"))
	assert.Equal(t, "0002", bc.nextID("work"))
	assert.Equal(t, "0001", bc.nextID("grant"))
}
