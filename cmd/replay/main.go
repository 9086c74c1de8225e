// Command replay feeds a JSONL detection log through the behaviour
// pipeline offline and writes a session report. Each input line is one
// tick's TickInput JSON. Useful for re-scoring recorded footage and for
// threshold calibration without a live detector.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/vigil-data/vigil.watch/internal/config"
	"github.com/vigil-data/vigil.watch/internal/db"
	"github.com/vigil-data/vigil.watch/internal/engine"
	"github.com/vigil-data/vigil.watch/internal/report"
	"github.com/vigil-data/vigil.watch/internal/security"
)

var (
	input      = flag.String("input", "", "Path to the JSONL detection log (required)")
	output     = flag.String("output", "report.html", "Path to write the HTML report")
	dbPath     = flag.String("db", "", "Optional sqlite path to persist samples (defaults to in-memory)")
	tuningPath = flag.String("config", "", "Path to a tuning JSON file")
)

func main() {
	flag.Parse()
	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := security.ValidateExportPath(*output); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}

	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		loaded, err := config.LoadTuningConfig(*tuningPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		tuning = loaded
	}
	cfg := engine.ConfigFromTuning(tuning)

	path := *dbPath
	if path == "" {
		path = ":memory:"
	}
	database, err := db.NewDB(path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	pipeline := engine.NewPipeline(cfg)

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open input: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var in engine.TickInput
		if err := json.Unmarshal(line, &in); err != nil {
			log.Printf("line %d: skipping malformed tick: %v", lineNo, err)
			continue
		}

		result := pipeline.ProcessTick(in)
		for id, rec := range result.Scores {
			sample := db.ScoreSample{
				SessionID:   pipeline.SessionID,
				Tick:        result.Tick,
				TrackID:     id,
				Score:       rec.Score,
				Level:       string(rec.Level),
				StaySeconds: rec.StayDuration,
			}
			if err := database.RecordScoreSample(sample); err != nil {
				log.Fatalf("failed to record sample: %v", err)
			}
		}
		for _, id := range result.Captures {
			log.Printf("tick %d: THREAT capture for track %d", result.Tick, id)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	samples, err := database.ScoreSeries(pipeline.SessionID)
	if err != nil {
		log.Fatalf("failed to load score series: %v", err)
	}

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer out.Close()

	if err := report.WriteSessionReport(out, pipeline.SessionID, samples); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}

	stats := pipeline.Stats()
	fmt.Printf("processed %d ticks (peak persons %d, peak weapons %d, peak threats %d, captures %d)\n",
		stats.TicksProcessed, stats.PeakPersons, stats.PeakWeapons, stats.PeakThreats, stats.CapturesTotal)
	for _, s := range report.Summarize(samples) {
		fmt.Printf("track %d: %d samples, mean score %.2f, p95 %.1f, peak %d, threat ticks %d\n",
			s.TrackID, s.Samples, s.MeanScore, s.P95Score, s.PeakScore, s.ThreatTicks)
	}
}
