package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-data/vigil.watch/internal/db"
)

func sample(track, tick, score int, level string, stay float64) db.ScoreSample {
	return db.ScoreSample{
		SessionID: "s-1", Tick: tick, TrackID: track,
		Score: score, Level: level, StaySeconds: stay,
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	samples := []db.ScoreSample{
		sample(1, 1, 0, "NORMAL", 0.0),
		sample(1, 2, 3, "SUSPICIOUS", 0.1),
		sample(1, 3, 6, "THREAT", 0.2),
		sample(2, 1, 2, "NORMAL", 0.0),
	}

	summaries := Summarize(samples)
	require.Len(t, summaries, 2)

	// Ordered by track ID.
	assert.Equal(t, 1, summaries[0].TrackID)
	assert.Equal(t, 2, summaries[1].TrackID)

	first := summaries[0]
	assert.Equal(t, 3, first.Samples)
	assert.Equal(t, 3.0, first.MeanScore)
	assert.Equal(t, 6, first.PeakScore)
	assert.Equal(t, 1, first.ThreatTicks)
	assert.Equal(t, 0.2, first.MaxStaySecs)

	second := summaries[1]
	assert.Equal(t, 1, second.Samples)
	assert.Equal(t, 2.0, second.MeanScore)
	assert.Equal(t, 2.0, second.P95Score)
	assert.Equal(t, 0, second.ThreatTicks)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Summarize(nil))
}

func TestWriteSessionReport(t *testing.T) {
	t.Parallel()

	samples := []db.ScoreSample{
		sample(1, 1, 0, "NORMAL", 0.0),
		sample(1, 2, 5, "THREAT", 0.1),
		sample(2, 2, 3, "SUSPICIOUS", 0.0),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSessionReport(&buf, "session-abc", samples))

	html := buf.String()
	assert.Contains(t, html, "session-abc")
	assert.Contains(t, html, "Behaviour score by tick")
	assert.Contains(t, html, "Alert level distribution")
	assert.Contains(t, html, "track 1")
	assert.Contains(t, html, "track 2")
}

func TestWriteSessionReportNoSamples(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteSessionReport(&buf, "empty-session", nil))
	assert.NotZero(t, buf.Len())
}
