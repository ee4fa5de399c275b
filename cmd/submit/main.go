package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"genforge/internal/adapter/repo"
	"genforge/internal/domain"
	"genforge/internal/generators/static"
	"genforge/internal/infra"
	"genforge/internal/loader"
	"genforge/internal/queue"
	"genforge/internal/registry"
)

func main() {
	var (
		generatorFlag string
		tenantFlag    string
		boardFlag     string
		paramsFlag    string
		inputsFlag    string
		manifestFlag  string
		estimateOnly  bool
	)

	flag.StringVar(&generatorFlag, "generator", "", "generator name to dispatch")
	flag.StringVar(&tenantFlag, "tenant", "", "tenant ID owning the job")
	flag.StringVar(&boardFlag, "board", "", "optional board ID")
	flag.StringVar(&paramsFlag, "params", "{}", "generation parameters as a JSON object")
	flag.StringVar(&inputsFlag, "inputs", "", "optional input artifact refs as a JSON array")
	flag.StringVar(&manifestFlag, "manifest", "", "generator manifest path (defaults to MANIFEST_PATH)")
	flag.BoolVar(&estimateOnly, "estimate-only", false, "print the cost preview and exit without enqueueing")
	flag.Parse()

	_ = godotenv.Load()

	name := strings.TrimSpace(generatorFlag)
	if name == "" {
		exitWithError(errors.New("-generator is required"))
	}
	tenant := strings.TrimSpace(tenantFlag)
	if tenant == "" && !estimateOnly {
		exitWithError(errors.New("-tenant is required"))
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(paramsFlag), &params); err != nil {
		exitWithError(fmt.Errorf("failed to decode -params: %w", err))
	}
	var inputs []domain.InputArtifactRef
	if strings.TrimSpace(inputsFlag) != "" {
		if err := json.Unmarshal([]byte(inputsFlag), &inputs); err != nil {
			exitWithError(fmt.Errorf("failed to decode -inputs: %w", err))
		}
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "submit").Logger()

	manifestPath := manifestFlag
	if manifestPath == "" {
		manifestPath = os.Getenv("MANIFEST_PATH")
	}
	if manifestPath == "" {
		manifestPath = "generators.yaml"
	}
	manifest, err := loader.ReadManifest(manifestPath)
	if err != nil {
		exitWithError(fmt.Errorf("failed to read manifest %s: %w", manifestPath, err))
	}

	reg := registry.New()
	ld := loader.New(loader.Config{Factories: static.Factories(), Logger: logger})
	if _, err := ld.Load(manifest, reg); err != nil {
		exitWithError(fmt.Errorf("failed to load generators: %w", err))
	}

	gen, ok := reg.Get(name)
	if !ok {
		exitWithError(fmt.Errorf("unknown generator %q (loaded: %s)", name, strings.Join(names(reg), ", ")))
	}
	if err := gen.InputSchema().Validate(params); err != nil {
		exitWithError(fmt.Errorf("invalid parameters: %w", err))
	}

	cost := gen.EstimateCost(params)
	fmt.Printf("generator=%s artifact_type=%s estimated_cost=%.4f\n", gen.Name(), gen.ArtifactType(), cost)
	if estimateOnly {
		return
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	job := &domain.Job{
		ID:             uuid.NewString(),
		TenantID:       tenant,
		BoardID:        strings.TrimSpace(boardFlag),
		GeneratorName:  gen.Name(),
		ArtifactType:   gen.ArtifactType(),
		InputParams:    params,
		InputArtifacts: inputs,
		Status:         domain.JobStatusQueued,
	}
	store := repo.NewGenerationRepo(pool)
	if err := store.CreateGeneration(ctx, job); err != nil {
		exitWithError(fmt.Errorf("failed to create generation: %w", err))
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://127.0.0.1:4222"
	}
	bus, err := queue.New(natsURL, logger)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect queue: %w", err))
	}
	defer bus.Close()

	if err := bus.PublishJob(ctx, job.ID); err != nil {
		exitWithError(fmt.Errorf("failed to enqueue job: %w", err))
	}

	fmt.Printf("job %s queued\n", job.ID)
}

func names(reg *registry.Registry) []string {
	var out []string
	for _, g := range reg.ListAll() {
		out = append(out, g.Name())
	}
	return out
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
