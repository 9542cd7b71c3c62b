package validate

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/expertatlas/atlas/internal/core/common"
	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/core/normalize"
	"github.com/expertatlas/atlas/internal/logger"
)

// Pipeline validates a batch of candidates and groups the results by
// normalized location name. Validation fans out across a small bounded
// worker pool; the grouping fold is a commutative reduction applied after
// all workers finish, so completion order never affects the output.
type Pipeline struct {
	Validator *Validator
	Workers   int
	BatchSize int
	log       *zap.Logger
}

func NewPipeline(validator *Validator, workers, batchSize int) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Pipeline{
		Validator: validator,
		Workers:   workers,
		BatchSize: batchSize,
		log:       logger.Get(),
	}
}

type validatedItem struct {
	candidate model.Candidate
	verdict   model.ValidatedLocation
}

// Run validates every candidate and returns the grouped results, sorted
// by location name for deterministic output. A single candidate's
// external-service failure never aborts its siblings; the validator is
// total. The only error Run returns is context cancellation.
func (p *Pipeline) Run(ctx context.Context, candidates []model.Candidate) ([]model.LocationGroup, error) {
	items := make([]validatedItem, len(candidates))
	start := time.Now()

	for batchStart := 0; batchStart < len(candidates); batchStart += p.BatchSize {
		batchEnd := batchStart + p.BatchSize
		if batchEnd > len(candidates) {
			batchEnd = len(candidates)
		}

		batchStartTime := time.Now()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.Workers)
		for i := batchStart; i < batchEnd; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := candidates[i]
				items[i] = validatedItem{
					candidate: c,
					verdict:   p.Validator.Validate(gctx, c.Text, c.LLMConfidence),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		resolvedCount := 0
		for i := batchStart; i < batchEnd; i++ {
			if items[i].verdict.Name != model.Unresolved {
				resolvedCount++
			}
		}
		p.log.Info("validated batch",
			zap.Int("from", batchStart),
			zap.Int("to", batchEnd),
			zap.Int("resolved", resolvedCount),
			zap.Duration("elapsed", time.Since(batchStartTime)))
	}

	groups := p.group(items)
	p.log.Info("validation complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("groups", len(groups)),
		zap.Duration("elapsed", time.Since(start)))

	return groups, nil
}

// group folds validated items into one group per lowercase location name.
// The first occurrence fixes the group-level fields; every occurrence
// contributes an entry with the now-redundant location/country removed.
// Groups keyed "n/a" or "none" are dropped entirely.
func (p *Pipeline) group(items []validatedItem) []model.LocationGroup {
	byKey := make(map[string]*model.LocationGroup)

	for _, item := range items {
		name := normalize.DisplayName(item.verdict.Name)
		key := strings.ToLower(name)
		if key == "n/a" || key == "none" || key == "" {
			continue
		}

		group, ok := byKey[key]
		if !ok {
			group = &model.LocationGroup{
				Location: name,
				Country:  item.verdict.Country,
				Lat:      item.verdict.Lat,
				Lon:      item.verdict.Lon,
				Rank:     item.verdict.PlaceRank,
			}
			byKey[key] = group
		}

		entry := common.CloneMap(item.candidate.Payload)
		entry["confidence"] = item.verdict.Confidence
		delete(entry, "location")
		delete(entry, "country")
		group.Entries = append(group.Entries, entry)
	}

	groups := make([]model.LocationGroup, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return strings.ToLower(groups[i].Location) < strings.ToLower(groups[j].Location)
	})

	return groups
}
