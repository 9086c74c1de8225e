package db

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestRecordAndQueryAlerts(t *testing.T) {
	t.Parallel()

	database := testDB(t)
	session := uuid.NewString()

	alerts := []Alert{
		{ID: uuid.NewString(), SessionID: session, TrackID: 1, Tick: 100, Level: "SUSPICIOUS", Score: 3, Factors: []string{"Loitering (31.2s)", "Restricted zone"}},
		{ID: uuid.NewString(), SessionID: session, TrackID: 2, Tick: 250, Level: "THREAT", Score: 6, Factors: []string{"Weapon: gun", "At frame edge"}},
		{ID: uuid.NewString(), SessionID: session, TrackID: 1, Tick: 175, Level: "SUSPICIOUS", Score: 4, Factors: []string{"Loitering (33.7s)"}},
	}
	for _, a := range alerts {
		require.NoError(t, database.RecordAlert(a))
	}

	got, err := database.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest tick first.
	assert.Equal(t, 250, got[0].Tick)
	assert.Equal(t, 175, got[1].Tick)
	assert.Equal(t, 100, got[2].Tick)

	// Factors survive the JSON column round trip.
	assert.Equal(t, []string{"Weapon: gun", "At frame edge"}, got[0].Factors)
	assert.Equal(t, "THREAT", got[0].Level)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestRecentAlertsLimit(t *testing.T) {
	t.Parallel()

	database := testDB(t)
	session := uuid.NewString()

	for tick := 1; tick <= 5; tick++ {
		require.NoError(t, database.RecordAlert(Alert{
			ID: uuid.NewString(), SessionID: session, TrackID: 1,
			Tick: tick, Level: "SUSPICIOUS", Score: 3, Factors: []string{"Loitering (31.0s)"},
		}))
	}

	got, err := database.RecentAlerts(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Tick)
	assert.Equal(t, 4, got[1].Tick)
}

func TestDuplicateAlertIDRejected(t *testing.T) {
	t.Parallel()

	database := testDB(t)
	a := Alert{ID: "fixed-id", SessionID: uuid.NewString(), TrackID: 1, Tick: 1, Level: "THREAT", Score: 5, Factors: []string{"Weapon: knife"}}

	require.NoError(t, database.RecordAlert(a))
	assert.Error(t, database.RecordAlert(a))
}

func TestScoreSamples(t *testing.T) {
	t.Parallel()

	database := testDB(t)
	session := uuid.NewString()

	samples := []ScoreSample{
		{SessionID: session, Tick: 2, TrackID: 1, Score: 0, Level: "NORMAL", StaySeconds: 0.1},
		{SessionID: session, Tick: 1, TrackID: 2, Score: 3, Level: "SUSPICIOUS", StaySeconds: 31.0},
		{SessionID: session, Tick: 1, TrackID: 1, Score: 0, Level: "NORMAL", StaySeconds: 0.0},
	}
	for _, s := range samples {
		require.NoError(t, database.RecordScoreSample(s))
	}
	// Other sessions stay out of the series.
	require.NoError(t, database.RecordScoreSample(ScoreSample{
		SessionID: uuid.NewString(), Tick: 1, TrackID: 9, Score: 5, Level: "THREAT",
	}))

	got, err := database.ScoreSeries(session)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by (track, tick).
	assert.Equal(t, 1, got[0].TrackID)
	assert.Equal(t, 1, got[0].Tick)
	assert.Equal(t, 1, got[1].TrackID)
	assert.Equal(t, 2, got[1].Tick)
	assert.Equal(t, 2, got[2].TrackID)
	assert.Equal(t, 31.0, got[2].StaySeconds)
}

func TestScoreSampleReplace(t *testing.T) {
	t.Parallel()

	database := testDB(t)
	session := uuid.NewString()

	require.NoError(t, database.RecordScoreSample(ScoreSample{SessionID: session, Tick: 1, TrackID: 1, Score: 0, Level: "NORMAL"}))
	require.NoError(t, database.RecordScoreSample(ScoreSample{SessionID: session, Tick: 1, TrackID: 1, Score: 4, Level: "SUSPICIOUS"}))

	got, err := database.ScoreSeries(session)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Score)
	assert.Equal(t, "SUSPICIOUS", got[0].Level)
}

func TestAlertString(t *testing.T) {
	t.Parallel()

	a := Alert{SessionID: "s-1", TrackID: 3, Tick: 42, Level: "THREAT", Score: 7}
	assert.Equal(t, "Session: s-1, Track: 3, Tick: 42, Level: THREAT, Score: 7", a.String())
}
