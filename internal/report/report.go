// Package report renders a per-session behaviour report from persisted
// score samples: score timelines per identity, the alert-level
// distribution, and summary statistics.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/vigil-data/vigil.watch/internal/db"
)

// TrackSummary aggregates one identity's scoring history.
type TrackSummary struct {
	TrackID     int     `json:"track_id"`
	Samples     int     `json:"samples"`
	MeanScore   float64 `json:"mean_score"`
	P95Score    float64 `json:"p95_score"`
	PeakScore   int     `json:"peak_score"`
	ThreatTicks int     `json:"threat_ticks"`
	MaxStaySecs float64 `json:"max_stay_secs"`
}

// Summarize computes per-identity summaries from a session's score
// samples, ordered by track ID.
func Summarize(samples []db.ScoreSample) []TrackSummary {
	byTrack := make(map[int][]db.ScoreSample)
	for _, s := range samples {
		byTrack[s.TrackID] = append(byTrack[s.TrackID], s)
	}

	ids := make([]int, 0, len(byTrack))
	for id := range byTrack {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	summaries := make([]TrackSummary, 0, len(ids))
	for _, id := range ids {
		rows := byTrack[id]
		scores := make([]float64, len(rows))
		summary := TrackSummary{TrackID: id, Samples: len(rows)}
		for i, row := range rows {
			scores[i] = float64(row.Score)
			if row.Score > summary.PeakScore {
				summary.PeakScore = row.Score
			}
			if row.Level == "THREAT" {
				summary.ThreatTicks++
			}
			if row.StaySeconds > summary.MaxStaySecs {
				summary.MaxStaySecs = row.StaySeconds
			}
		}
		sort.Float64s(scores)
		summary.MeanScore = stat.Mean(scores, nil)
		summary.P95Score = stat.Quantile(0.95, stat.Empirical, scores, nil)
		summaries = append(summaries, summary)
	}
	return summaries
}

// WriteSessionReport renders the HTML report for one session to w.
func WriteSessionReport(w io.Writer, sessionID string, samples []db.ScoreSample) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Vigil session report %s", sessionID)

	page.AddCharts(
		scoreTimelineChart(samples),
		levelDistributionChart(samples),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// scoreTimelineChart plots each identity's score over ticks.
func scoreTimelineChart(samples []db.ScoreSample) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Behaviour score by tick"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	byTrack := make(map[int][]db.ScoreSample)
	tickSet := make(map[int]bool)
	for _, s := range samples {
		byTrack[s.TrackID] = append(byTrack[s.TrackID], s)
		tickSet[s.Tick] = true
	}

	ticks := make([]int, 0, len(tickSet))
	for t := range tickSet {
		ticks = append(ticks, t)
	}
	sort.Ints(ticks)

	xAxis := make([]string, len(ticks))
	tickIndex := make(map[int]int, len(ticks))
	for i, t := range ticks {
		xAxis[i] = fmt.Sprintf("%d", t)
		tickIndex[t] = i
	}
	line.SetXAxis(xAxis)

	ids := make([]int, 0, len(byTrack))
	for id := range byTrack {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		// Sparse series: identities absent at a tick get a nil point so
		// lines break instead of interpolating across gaps.
		data := make([]opts.LineData, len(ticks))
		for i := range data {
			data[i] = opts.LineData{Value: nil}
		}
		for _, s := range byTrack[id] {
			data[tickIndex[s.Tick]] = opts.LineData{Value: s.Score}
		}
		line.AddSeries(fmt.Sprintf("track %d", id), data)
	}

	return line
}

// levelDistributionChart shows how many samples landed in each alert band.
func levelDistributionChart(samples []db.ScoreSample) *charts.Bar {
	counts := map[string]int{}
	for _, s := range samples {
		counts[s.Level]++
	}

	levels := []string{"NORMAL", "SUSPICIOUS", "THREAT"}
	data := make([]opts.BarData, len(levels))
	for i, level := range levels {
		data[i] = opts.BarData{Value: counts[level]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Alert level distribution"}),
	)
	bar.SetXAxis(levels)
	bar.AddSeries("samples", data)
	return bar
}
