package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/vigil-data/vigil.watch/internal/api"
	"github.com/vigil-data/vigil.watch/internal/db"
	"github.com/vigil-data/vigil.watch/internal/engine"
	"github.com/vigil-data/vigil.watch/internal/report"
	"github.com/vigil-data/vigil.watch/internal/security"
)

// buildMux assembles the full HTTP surface: the API endpoints, the
// session report page, and (in dev mode) the database debug routes.
func buildMux(pipeline *engine.Pipeline, database *db.DB, dev bool) *http.ServeMux {
	server := api.NewServer(pipeline, database)
	mux := server.ServeMux()

	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		samples, err := database.ScoreSeries(pipeline.SessionID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to load score series: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("inline; filename=session-%s.html", security.SanitizeFilename(pipeline.SessionID)))
		if err := report.WriteSessionReport(w, pipeline.SessionID, samples); err != nil {
			http.Error(w, fmt.Sprintf("Failed to render report: %v", err), http.StatusInternalServerError)
		}
	})

	if dev {
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}
	}

	return mux
}
