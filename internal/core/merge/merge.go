// Package merge is the generic upsert primitive shared by the graph
// persistence path and the spatial-store sync: it reconciles records by
// entry id, detects real changes via structural equality, and reports a
// change flag for downstream cache invalidation.
package merge

import (
	"sort"

	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/core/common"
	"github.com/expertatlas/atlas/internal/logger"
)

// EntriesResult is the outcome of merging two entry arrays by id.
type EntriesResult struct {
	Merged  []map[string]interface{}
	Changed bool
}

// PropertiesResult is the outcome of merging two whole-record property maps.
type PropertiesResult struct {
	Merged     map[string]interface{}
	HasChanges bool
}

// MergeEntriesByID reconciles two arrays of entries by their "id" field.
// Incoming entries overwrite stored ones field by field; an entry whose
// contents actually changed gets its mergeCount bumped as an audit signal.
// Entries without an id are warned about and excluded, never silently
// dropped. Output is sorted by id (as strings) for determinism.
func MergeEntriesByID(oldEntries, newEntries []map[string]interface{}) EntriesResult {
	log := logger.Get()

	merged := make(map[string]map[string]interface{})
	changed := false

	for _, entry := range oldEntries {
		id, ok := entryID(entry)
		if !ok {
			log.Warn("skipping stored entry without id", zap.Any("entry", entry))
			continue
		}
		merged[id] = common.CloneMap(entry)
	}

	for _, entry := range newEntries {
		id, ok := entryID(entry)
		if !ok {
			log.Warn("skipping incoming entry without id", zap.Any("entry", entry))
			continue
		}

		existing, found := merged[id]
		if !found {
			merged[id] = common.CloneMap(entry)
			changed = true
			continue
		}

		entryChanged := false
		for field, value := range entry {
			if !IsDeepEqual(existing[field], value) {
				existing[field] = value
				entryChanged = true
			}
		}
		if entryChanged {
			bumpMergeCount(existing)
			changed = true
		}
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, merged[id])
	}

	return EntriesResult{Merged: out, Changed: changed}
}

// MergeProperties reconciles a whole record: scalar fields are copied
// from incoming only when their value differs, and the "entries" field is
// merged via MergeEntriesByID.
func MergeProperties(existing, incoming map[string]interface{}) PropertiesResult {
	merged := common.CloneMap(existing)
	hasChanges := false

	for field, value := range incoming {
		if field == "entries" {
			continue
		}
		if !IsDeepEqual(merged[field], value) {
			merged[field] = value
			hasChanges = true
		}
	}

	entriesResult := MergeEntriesByID(entriesOf(existing), entriesOf(incoming))
	merged["entries"] = entriesAny(entriesResult.Merged)
	if entriesResult.Changed {
		hasChanges = true
	}

	return PropertiesResult{Merged: merged, HasChanges: hasChanges}
}

// IsDeepEqual compares arbitrary JSON-like values structurally. Arrays of
// objects carrying an "id" field are compared order-independently by id;
// all other arrays element-wise in order. Cross-type comparisons are false.
func IsDeepEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, present := bm[k]
			if !present || !IsDeepEqual(av, bv) {
				return false
			}
		}
		return true
	}
	if _, ok := asMap(b); ok {
		return false
	}

	if as, ok := asSlice(a); ok {
		bs, ok := asSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		if allHaveIDs(as) && allHaveIDs(bs) {
			return equalByID(as, bs)
		}
		for i := range as {
			if !IsDeepEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	if _, ok := asSlice(b); ok {
		return false
	}

	// Primitives. Numbers may arrive as float64, int, or json.Number
	// depending on the decoding path.
	if af, aNum := numeric(a); aNum {
		bf, bNum := numeric(b)
		return bNum && af == bf
	}

	return a == b
}

func numeric(v interface{}) (float64, bool) {
	switch v.(type) {
	case string, bool:
		return 0, false
	}
	return common.ToFloat(v)
}

func entryID(entry map[string]interface{}) (string, bool) {
	v, present := entry["id"]
	if !present {
		return "", false
	}
	id := common.ToString(v)
	if id == "" {
		return "", false
	}
	return id, true
}

func bumpMergeCount(entry map[string]interface{}) {
	count := 0.0
	if v, ok := common.ToFloat(entry["mergeCount"]); ok {
		count = v
	}
	entry["mergeCount"] = count + 1
}

func entriesOf(props map[string]interface{}) []map[string]interface{} {
	raw := common.CoerceList(props["entries"])
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func entriesAny(entries []map[string]interface{}) []interface{} {
	out := make([]interface{}, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

func allHaveIDs(items []interface{}) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		m, ok := asMap(item)
		if !ok {
			return false
		}
		if _, ok := entryID(m); !ok {
			return false
		}
	}
	return true
}

func equalByID(as, bs []interface{}) bool {
	index := make(map[string]map[string]interface{}, len(bs))
	for _, item := range bs {
		m, _ := asMap(item)
		id, _ := entryID(m)
		if _, dup := index[id]; dup {
			return false
		}
		index[id] = m
	}
	for _, item := range as {
		m, _ := asMap(item)
		id, _ := entryID(m)
		other, present := index[id]
		if !present || !IsDeepEqual(m, interface{}(other)) {
			return false
		}
	}
	return len(as) == len(bs)
}
