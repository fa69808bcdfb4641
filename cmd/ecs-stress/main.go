package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/plus3/ecsys/ecs"
	"github.com/rs/zerolog"
)

// stressSystem touches every member and randomly toggles a tag on some of them
// through the command buffer, which keeps membership churning across systems.
type stressSystem struct {
	ecs.IteratingSystem
	rng       *rand.Rand
	tags      []ecs.ComponentID
	churn     float64
	processed int64
}

func (s *stressSystem) Process(entity ecs.Entity, elapsed float64) {
	s.processed++
	if len(s.tags) == 0 || s.rng.Float64() >= s.churn {
		return
	}

	w := s.World()
	tag := s.tags[s.rng.Intn(len(s.tags))]
	mask, _ := w.ComponentMask(entity)
	if mask.Has(tag) {
		w.Commands().RemoveComponent(entity, tag)
	} else {
		w.Commands().AddComponent(entity, tag)
	}
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	componentCount := flag.Int("components", 24, "The number of tag components to register.")
	systemCount := flag.Int("systems", 50, "The number of iterating systems to attach.")
	churn := flag.Float64("churn", 0.01, "Probability that a processed entity toggles a tag.")
	seed := flag.Int64("seed", 1, "Random seed.")
	configPath := flag.String("config", "", "Optional YAML world configuration.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg := ecs.DefaultConfig()
	if *configPath != "" {
		loaded, err := ecs.LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := ecs.NewLogger(cfg, os.Stderr)
	if err := run(logger, cfg, options{
		duration:       *duration,
		entities:       *entityCount,
		components:     *componentCount,
		systems:        *systemCount,
		churn:          *churn,
		seed:           *seed,
		gcPauseMetrics: *gcPauseMetrics,
	}); err != nil {
		logger.Fatal().Err(err).Msg("stress test failed")
	}
}

type options struct {
	duration       time.Duration
	entities       int
	components     int
	systems        int
	churn          float64
	seed           int64
	gcPauseMetrics bool
}

func run(logger zerolog.Logger, cfg ecs.Config, opts options) error {
	logger.Info().Msg("Starting ECS stress test...")

	// 1. Setup world, components and systems
	world, err := ecs.NewWorld(cfg, ecs.WithLogger(logger))
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(opts.seed))

	tags := make([]ecs.ComponentID, opts.components)
	for i := range tags {
		if tags[i], err = world.RegisterTag(fmt.Sprintf("Tag%03d", i)); err != nil {
			return err
		}
	}

	systems := make([]*stressSystem, opts.systems)
	for i := range systems {
		systems[i] = &stressSystem{rng: rng, tags: tags, churn: opts.churn}
		if err := world.AddSystem(systems[i], randomTags(rng, tags, rng.Intn(3)+1)...); err != nil {
			return err
		}
	}

	// 2. Populate the world with initial entities
	logger.Info().Int("entities", opts.entities).Msg("Populating world...")
	for i := 0; i < opts.entities; i++ {
		e := world.CreateEntity()
		for _, tag := range randomTags(rng, tags, rng.Intn(5)+1) {
			if err := world.AddComponent(e, tag); err != nil {
				return err
			}
		}
	}
	logger.Info().Msg("Population complete.")

	// 3. Run the simulation loop
	report := &Report{
		Duration:       opts.duration,
		Entities:       opts.entities,
		Components:     opts.components,
		Systems:        opts.systems,
		Churn:          opts.churn,
		GCPauseMetrics: opts.gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info().Dur("duration", opts.duration).Msg("Running simulation...")
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			world.Update(deltaTime.Seconds())
			updateDuration := time.Since(updateStart)

			report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
			totalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.SystemStats = world.Stats().Systems
	for _, s := range systems {
		report.Processed += s.processed
	}

	logger.Info().Int64("updates", totalUpdates).Msg("Simulation finished.")

	// 4. Generate Report to Console
	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return err
	}
	fmt.Println("--- End of Report ---")

	logger.Info().Msg("Stress test complete.")
	return nil
}

// randomTags picks n distinct tags.
func randomTags(rng *rand.Rand, tags []ecs.ComponentID, n int) []ecs.ComponentID {
	n = min(n, len(tags))
	picked := make([]ecs.ComponentID, 0, n)
	for _, i := range rng.Perm(len(tags))[:n] {
		picked = append(picked, tags[i])
	}
	return picked
}
