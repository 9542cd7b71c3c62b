package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/expertatlas/atlas/internal/config"
	"github.com/expertatlas/atlas/internal/core/common"
	"github.com/expertatlas/atlas/internal/core/graph"
	"github.com/expertatlas/atlas/internal/core/model"
	"github.com/expertatlas/atlas/internal/core/normalize"
	"github.com/expertatlas/atlas/internal/core/validate"
	"github.com/expertatlas/atlas/internal/driver"
	"github.com/expertatlas/atlas/internal/geocode"
	"github.com/expertatlas/atlas/internal/llm"
	"github.com/expertatlas/atlas/internal/logger"
	"github.com/expertatlas/atlas/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using defaults")
	}

	configPath := flag.String("config", "config/config.toml", "path to the TOML config file")
	worksPath := flag.String("works", "", "path to the extracted works JSON file")
	grantsPath := flag.String("grants", "", "path to the extracted grants JSON file")
	outDir := flag.String("out", "output", "directory for validated output files")
	flag.Parse()

	if *worksPath == "" && *grantsPath == "" {
		fmt.Fprintln(os.Stderr, "at least one of -works or -grants is required")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()

	if err := run(ctx, cfg, *worksPath, *grantsPath, *outDir, log); err != nil {
		log.Fatal("pipeline failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, worksPath, grantsPath, outDir string, log *zap.Logger) error {
	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	countries, err := normalize.LoadCountryTable()
	if err != nil {
		return fmt.Errorf("failed to load country table: %w", err)
	}

	geocoder := geocode.NewNominatimClient(
		cfg.Geocoder.BaseURL,
		cfg.Geocoder.UserAgent,
		time.Duration(cfg.Geocoder.TimeoutSeconds)*time.Second)

	validator := validate.NewValidator(geocoder,
		validate.NewCountryCoder(llmClient, cfg.Validation.CountryCode),
		countries)
	pipeline := validate.NewPipeline(validator, cfg.Pipeline.Workers, cfg.Pipeline.BatchSize)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var workGroups, grantGroups []model.LocationGroup

	if worksPath != "" {
		workGroups, err = validateFile(ctx, pipeline, worksPath, filepath.Join(outDir, "validated_works.json"), log)
		if err != nil {
			return err
		}
	}
	if grantsPath != "" {
		grantGroups, err = validateFile(ctx, pipeline, grantsPath, filepath.Join(outDir, "validated_grants.json"), log)
		if err != nil {
			return err
		}
	}

	bc := graph.NewBuildContext()
	builder := graph.NewBuilder()
	if err := builder.Build(bc, workGroups, grantGroups); err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	if err := persist(ctx, cfg, bc.Graph, append(workGroups, grantGroups...), log); err != nil {
		return err
	}

	log.Info("pipeline complete",
		zap.String("session", bc.Graph.SessionID),
		zap.Int("admittedWorks", bc.Stats.AdmittedWorks),
		zap.Int("admittedGrants", bc.Stats.AdmittedGrants),
		zap.Int("skippedEntries", bc.Stats.SkippedEntries),
		zap.Int("skippedLocations", bc.Stats.SkippedLocations))

	return nil
}

// validateFile runs the validation pipeline over one extracted input file
// and writes the grouped result next to the others in outPath.
func validateFile(ctx context.Context, pipeline *validate.Pipeline, inPath, outPath string, log *zap.Logger) ([]model.LocationGroup, error) {
	candidates, err := loadCandidates(inPath)
	if err != nil {
		return nil, err
	}
	log.Info("loaded candidates", zap.String("file", inPath), zap.Int("count", len(candidates)))

	groups, err := pipeline.Run(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("validation of %s: %w", inPath, err)
	}

	raw, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", outPath, err)
	}
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Info("wrote validated groups", zap.String("file", outPath), zap.Int("groups", len(groups)))

	return groups, nil
}

// loadCandidates reads an extracted JSON array. Each element keeps its full
// payload; the location text and extractor confidence are pulled from the
// usual fields with their alternate spellings tolerated.
func loadCandidates(path string) ([]model.Candidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array of objects: %w", path, err)
	}

	candidates := make([]model.Candidate, 0, len(entries))
	for _, entry := range entries {
		text := common.ToString(entry["location"])
		if text == "" {
			text = common.ToString(entry["text"])
		}

		conf, ok := common.ToFloat(entry["llmConfidence"])
		if !ok {
			conf, _ = common.ToFloat(entry["confidence"])
		}

		candidates = append(candidates, model.Candidate{
			Text:          text,
			LLMConfidence: conf,
			Payload:       entry,
		})
	}

	return candidates, nil
}

// persist mirrors the graph into whichever stores are configured. An
// unconfigured store is simply skipped; a configured one that fails aborts
// the run so operators never mistake a partial sync for a complete one.
func persist(ctx context.Context, cfg *config.Config, g *model.Graph, groups []model.LocationGroup, log *zap.Logger) error {
	if cfg.Redis.Addr != "" {
		kv, err := store.NewGraphStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer kv.Close()
		if err := kv.SaveGraph(ctx, g); err != nil {
			return err
		}
	} else {
		log.Info("redis not configured, skipping key/value snapshot")
	}

	if cfg.Postgres.DSN != "" {
		spatial, err := store.NewSpatialStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer spatial.Close()

		features := make([]model.LocationFeature, 0, len(groups))
		for _, group := range groups {
			features = append(features, store.FeatureFromGroup(group))
		}
		if _, err := spatial.SyncLocations(ctx, features); err != nil {
			return err
		}
	} else {
		log.Info("postgres not configured, skipping spatial sync")
	}

	if cfg.Memgraph.URI != "" {
		mg, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
		if err != nil {
			return fmt.Errorf("failed to connect to memgraph: %w", err)
		}
		defer mg.Close(ctx)

		if err := store.NewGraphSink(mg).SaveGraph(ctx, g); err != nil {
			return err
		}
	} else {
		log.Info("memgraph not configured, skipping graph mirror")
	}

	return nil
}
