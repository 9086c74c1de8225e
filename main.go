// Command vigil runs the behaviour tracking and scoring server: it
// ingests per-tick detection batches over HTTP, maintains identity
// state, scores behaviour, persists alerts, and streams results to
// websocket subscribers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vigil-data/vigil.watch/internal/config"
	"github.com/vigil-data/vigil.watch/internal/db"
	"github.com/vigil-data/vigil.watch/internal/engine"
	"github.com/vigil-data/vigil.watch/internal/geometry"
	"github.com/vigil-data/vigil.watch/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "vigil.db", "Path to the sqlite database")
	tuningPath = flag.String("config", "", "Path to a tuning JSON file (defaults to built-in defaults)")
	zoneSpec   = flag.String("zone", "", "Restricted zone as x1,y1,x2,y2 in frame pixels (empty disables)")
	crowd      = flag.Int("crowd", -1, "Crowd threshold override (-1 keeps the configured value)")
	migrations = flag.String("migrations", "", "Migrations directory to apply on startup (empty skips)")
	devMode    = flag.Bool("dev", false, "Run in dev mode (mounts /debug SQL and backup routes)")
)

func main() {
	flag.Parse()
	log.Printf("vigil %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		loaded, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		tuning = loaded
	}

	cfg := engine.ConfigFromTuning(tuning)
	if *crowd >= 0 {
		cfg.CrowdThreshold = *crowd
	}

	zone, err := parseZone(*zoneSpec)
	if err != nil {
		log.Fatalf("invalid -zone: %v", err)
	}
	cfg.RestrictedZone = zone

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", *dbPath, err)
	}
	defer database.Close()

	if *migrations != "" {
		if err := database.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	pipeline := engine.NewPipeline(cfg)
	log.Printf("started session %s (crowd_threshold=%d, zone=%v)", pipeline.SessionID, cfg.CrowdThreshold, *zoneSpec != "")

	mux := buildMux(pipeline, database, *devMode)
	srv := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", *listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// parseZone parses "x1,y1,x2,y2" into a rect, or nil for the empty string.
func parseZone(spec string) (*geometry.Rect, error) {
	if spec == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("want 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = v
	}
	zone := geometry.Rect{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
	if !zone.Valid() {
		return nil, fmt.Errorf("zone must satisfy x1<x2 and y1<y2")
	}
	return &zone, nil
}
