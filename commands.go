package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/groundsight-data/groundsight/internal/config"
	"github.com/groundsight-data/groundsight/internal/db"
	"github.com/groundsight-data/groundsight/internal/monitor"
	"github.com/groundsight-data/groundsight/internal/monitoring"
	"github.com/groundsight-data/groundsight/internal/report"
	"github.com/groundsight-data/groundsight/internal/security"
	"github.com/groundsight-data/groundsight/internal/simulate"
	"github.com/groundsight-data/groundsight/internal/terrain"
	"github.com/groundsight-data/groundsight/internal/version"
)

// runServe opens the store, brings the schema up to date and serves
// the monitor until SIGINT/SIGTERM.
func runServe(dbPath, listen, scenarioPath string) {
	log.Printf("groundsight %s (%s)", version.Version, version.GitSHA)

	database, err := db.OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("database %s ready", dbPath)

	runner := simulate.NewRunner(database)
	server := monitor.NewServer(monitor.Config{
		Addr:   listen,
		DB:     database,
		Runner: runner,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if scenarioPath != "" {
		sc, err := config.Load(scenarioPath)
		if err != nil {
			log.Fatalf("Failed to load scenario %s: %v", scenarioPath, err)
		}
		runID, err := runner.Start(ctx, sc)
		if err != nil {
			log.Fatalf("Failed to start scenario: %v", err)
		}
		log.Printf("started run %s from %s", runID, scenarioPath)
	}

	if err := server.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// runSimulate executes one scenario synchronously, prints the summary
// statistics, exports the artifacts and persists the run.
func runSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Scenario JSON file (required)")
	outDir := fs.String("out", "out", "Output directory for exports")
	dbPath := fs.String("db", "groundsight.db", "Database to persist the run into (empty to skip)")
	debug := fs.Bool("debug", false, "Log per-pose progress")
	fs.Parse(args)

	if *cfgPath == "" {
		log.Fatal("Usage: groundsight simulate -config <scenario.json> [-out dir] [-db path]")
	}
	monitoring.SetDebug(*debug)

	sc, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load scenario: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scene, err := simulate.BuildScene(sc)
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}
	log.Printf("scene ready: %d poses over %dx%d terrain", len(scene.Poses), scene.Grid.Width(), scene.Grid.Height())

	res, err := simulate.Run(ctx, scene, func(done, total int) {
		monitoring.Debugf("simulate: pose %d/%d", done, total)
	})
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	st := report.ComputeStats(res.ErrorColumn())
	printStats(res, st)

	if err := exportArtifacts(res, st, scene.Grid, *outDir); err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	if *dbPath != "" {
		database, err := db.OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		runID := uuid.New().String()
		if err := database.SaveRun(ctx, runID, sc, res); err != nil {
			log.Fatalf("Failed to persist run: %v", err)
		}
		fmt.Printf("✓ Run %s saved to %s\n", runID, *dbPath)
	}
}

// runGenDEM writes a synthetic elevation grid to an ESRI ASCII file.
// Zero-valued flags take the per-source defaults.
func runGenDEM(args []string) {
	fs := flag.NewFlagSet("gen-dem", flag.ExitOnError)
	source := fs.String("source", config.TerrainHills, "Terrain source: slope or hills")
	sizeKm := fs.Float64("size-km", 0, "Square side length in km (default per source)")
	resolution := fs.Float64("resolution", 0, "Cell size in meters (default per source)")
	slopeDeg := fs.Float64("slope-deg", 0, "Uphill gradient in degrees (slope source)")
	relief := fs.Float64("relief", 0, "Peak-to-base amplitude in meters (hills source)")
	seed := fs.Int64("seed", 0, "Noise seed (hills source)")
	base := fs.Float64("base", 0, "Base elevation in meters")
	outPath := fs.String("out", "dem.asc", "Output .asc path")
	fs.Parse(args)

	var (
		grid *terrain.Grid
		err  error
	)
	switch *source {
	case config.TerrainSlope:
		width := 0
		if *sizeKm > 0 {
			res := *resolution
			if res <= 0 {
				res = 1.0
			}
			width = int(*sizeKm * 1000 / res)
		}
		grid, err = terrain.GenerateSlope(terrain.SlopeOptions{
			Width:         width,
			Height:        width,
			Resolution:    *resolution,
			SlopeDeg:      *slopeDeg,
			BaseElevation: *base,
		})
	case config.TerrainHills:
		grid, err = terrain.GenerateHills(terrain.HillsOptions{
			SizeKm:        *sizeKm,
			Resolution:    *resolution,
			BaseElevation: *base,
			Relief:        *relief,
			Seed:          *seed,
		})
	default:
		log.Fatalf("Unknown terrain source %q (want slope or hills)", *source)
	}
	if err != nil {
		log.Fatalf("Failed to generate terrain: %v", err)
	}

	if err := terrain.SaveASCIIGrid(*outPath, grid); err != nil {
		log.Fatalf("Failed to write grid: %v", err)
	}
	fmt.Printf("✓ Wrote %s: %dx%d cells at %.1f m, elevation %.1f-%.1f m\n",
		*outPath, grid.Width(), grid.Height(), grid.Resolution(),
		grid.MinElevation(), grid.MaxElevation())
}

// runReport re-exports the artifacts of a stored run. Terrain for the
// heatmap is rebuilt from the scenario snapshot when possible.
func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "groundsight.db", "SQLite database path")
	outDir := fs.String("out", "out", "Output directory for exports")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("Usage: groundsight report [-db path] [-out dir] <run-id>")
	}
	runID := fs.Arg(0)

	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	rec, err := database.GetRun(ctx, runID)
	if err != nil {
		log.Fatalf("Failed to load run: %v", err)
	}
	points, err := database.RunPoints(ctx, runID)
	if err != nil {
		log.Fatalf("Failed to load points: %v", err)
	}

	res := &simulate.Result{
		Mode:          rec.Mode,
		PoseCount:     rec.PoseCount,
		SkippedPixels: rec.SkippedPixels,
		Points:        points,
		Duration:      time.Duration(rec.DurationMS) * time.Millisecond,
	}

	var grid *terrain.Grid
	var sc config.Scenario
	if err := json.Unmarshal(rec.Scenario, &sc); err == nil {
		res.ScenarioName = sc.GetName()
		grid, err = simulate.BuildTerrain(&sc)
		if err != nil {
			log.Printf("⚠️  terrain unavailable for heatmap: %v", err)
			grid = nil
		}
	}

	printStats(res, rec.Stats)
	if err := exportArtifacts(res, rec.Stats, grid, *outDir); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
}

func printStats(res *simulate.Result, st report.Stats) {
	fmt.Printf("=== %s (%s) ===\n", res.ScenarioName, res.Mode)
	fmt.Printf("Poses:     %d\n", res.PoseCount)
	fmt.Printf("Points:    %d (%d pixels skipped)\n", len(res.Points), res.SkippedPixels)
	fmt.Printf("RMSE:      %.2f m\n", st.RMSE)
	fmt.Printf("Mean:      %.2f m\n", st.Mean)
	fmt.Printf("Max:       %.2f m\n", st.Max)
	fmt.Printf("Min:       %.2f m\n", st.Min)
	fmt.Printf("StdDev:    %.2f m\n", st.StdDev)
	if res.Duration > 0 {
		fmt.Printf("Duration:  %s\n", res.Duration.Round(time.Millisecond))
	}
}

// exportArtifacts writes results.csv, the interactive chart page and
// the static plots into dir. Output is confined to the working
// directory or the system temp directory.
func exportArtifacts(res *simulate.Result, st report.Stats, grid *terrain.Grid, dir string) error {
	if err := security.ValidateExportPath(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, "results.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", csvPath, err)
	}
	if err := report.WriteCSV(f, res.Points); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", csvPath, err)
	}
	fmt.Printf("✓ %s\n", csvPath)

	page, err := report.ChartPage(res, st)
	if err != nil {
		return err
	}
	htmlPath := filepath.Join(dir, "errors.html")
	if err := os.WriteFile(htmlPath, page, 0644); err != nil {
		return fmt.Errorf("write %s: %w", htmlPath, err)
	}
	fmt.Printf("✓ %s\n", htmlPath)

	plots, err := report.SavePlots(res, grid, dir)
	if err != nil {
		return err
	}
	for _, p := range plots {
		fmt.Printf("✓ %s\n", p)
	}
	return nil
}
