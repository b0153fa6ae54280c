package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtek-shutdowns-monitor/internal/models"
)

func actualHour(date string, hour int) models.OutageInterval {
	return models.OutageInterval{
		ScheduleKind: models.ScheduleActual,
		Date:         date,
		StartHour:    hour,
		EndHour:      hour + 1,
		OutageKind:   models.OutageDefinite,
	}
}

func cacheWith(actual ...models.OutageInterval) *models.ScheduleCache {
	return &models.ScheduleCache{ActualSchedules: actual}
}

func enabled(leadMinutes int) models.MonitoringConfig {
	return models.MonitoringConfig{
		CheckIntervalMinutes:    60,
		NotificationLeadMinutes: leadMinutes,
		Enabled:                 true,
	}
}

func TestEvaluateWarnsOnceInsideLeadWindow(t *testing.T) {
	tr := New(time.UTC)
	cache := cacheWith(actualHour("14.11.25", 18), actualHour("14.11.25", 19))
	now := time.Date(2025, 11, 14, 17, 10, 0, 0, time.UTC)

	events := tr.Evaluate(cache, nil, enabled(60), now)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, models.EventOutageWarning, ev.Kind)
	assert.Equal(t, "14.11.25", ev.Date)
	assert.Equal(t, 18, ev.StartHour)
	assert.Equal(t, 20, ev.EndHour)
	assert.Equal(t, 50, ev.LeadMinutes)

	// Next poll inside the same window stays silent.
	assert.Empty(t, tr.Evaluate(cache, nil, enabled(60), now.Add(20*time.Minute)))
}

func TestEvaluateOutsideLeadWindow(t *testing.T) {
	tr := New(time.UTC)
	cache := cacheWith(actualHour("14.11.25", 18))

	// Too early: the episode is 3 hours away with a 60-minute lead.
	now := time.Date(2025, 11, 14, 15, 0, 0, 0, time.UTC)
	assert.Empty(t, tr.Evaluate(cache, nil, enabled(60), now))

	// The same episode still warns later, once the window opens.
	events := tr.Evaluate(cache, nil, enabled(60), now.Add(2*time.Hour+30*time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOutageWarning, events[0].Kind)
}

func TestEvaluateNeverWarnsAboutOngoingOutage(t *testing.T) {
	tr := New(time.UTC)
	cache := cacheWith(actualHour("14.11.25", 18), actualHour("14.11.25", 19))
	now := time.Date(2025, 11, 14, 18, 30, 0, 0, time.UTC)

	assert.Empty(t, tr.Evaluate(cache, nil, enabled(60), now))
}

func TestEvaluateDisabledLeavesStateUntouched(t *testing.T) {
	tr := New(time.UTC)
	cache := cacheWith(actualHour("14.11.25", 18))
	now := time.Date(2025, 11, 14, 17, 30, 0, 0, time.UTC)

	cfg := enabled(60)
	cfg.Enabled = false
	assert.Empty(t, tr.Evaluate(cache, nil, cfg, now))

	// Enabling afterwards warns exactly once: the disabled pass must not
	// have marked the episode as seen.
	events := tr.Evaluate(cache, nil, enabled(60), now.Add(5*time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventOutageWarning, events[0].Kind)

	assert.Empty(t, tr.Evaluate(cache, nil, enabled(60), now.Add(10*time.Minute)))
}

func TestEvaluateNilCache(t *testing.T) {
	tr := New(time.UTC)
	now := time.Date(2025, 11, 14, 17, 0, 0, 0, time.UTC)
	assert.Empty(t, tr.Evaluate(nil, nil, enabled(60), now))
}

func TestEvaluateReportsExtensionOnce(t *testing.T) {
	tr := New(time.UTC)
	previous := cacheWith(actualHour("14.11.25", 18), actualHour("14.11.25", 19))
	current := cacheWith(actualHour("14.11.25", 18), actualHour("14.11.25", 19), actualHour("14.11.25", 20))
	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

	events := tr.Evaluate(current, previous, enabled(60), now)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, models.EventScheduleChange, ev.Kind)
	assert.Equal(t, models.ChangeExtended, ev.Change)
	require.NotNil(t, ev.OldEnd)
	require.NotNil(t, ev.NewEnd)
	assert.Equal(t, 20, *ev.OldEnd)
	assert.Equal(t, 21, *ev.NewEnd)

	// The upstream data is unchanged on the next poll: same diff, no event.
	assert.Empty(t, tr.Evaluate(current, previous, enabled(60), now.Add(time.Hour)))
}

func TestEvaluateReportsCancellation(t *testing.T) {
	tr := New(time.UTC)
	previous := cacheWith(actualHour("14.11.25", 18))
	current := cacheWith()
	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

	events := tr.Evaluate(current, previous, enabled(60), now)
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeCancelled, events[0].Change)
	assert.Equal(t, 18, events[0].StartHour)
}

func TestEvaluateIgnoresChangesForFinishedEpisodes(t *testing.T) {
	tr := New(time.UTC)
	previous := cacheWith(actualHour("13.11.25", 8))
	current := cacheWith()
	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)

	// Cancelling an episode that ended yesterday is not worth a notification.
	assert.Empty(t, tr.Evaluate(current, previous, enabled(60), now))
}

func TestEvaluateWarningThenChangeForSameEpisode(t *testing.T) {
	tr := New(time.UTC)
	previous := cacheWith(actualHour("14.11.25", 18), actualHour("14.11.25", 19))
	now := time.Date(2025, 11, 14, 17, 30, 0, 0, time.UTC)

	events := tr.Evaluate(previous, nil, enabled(60), now)
	require.Len(t, events, 1)
	require.Equal(t, models.EventOutageWarning, events[0].Kind)

	// The warned episode then gets extended: both facts reach the user.
	current := cacheWith(actualHour("14.11.25", 18), actualHour("14.11.25", 19), actualHour("14.11.25", 20))
	events = tr.Evaluate(current, previous, enabled(60), now.Add(10*time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventScheduleChange, events[0].Kind)
	assert.Equal(t, models.ChangeExtended, events[0].Change)
}

func TestEvaluatePrunesOldState(t *testing.T) {
	tr := New(time.UTC)
	cache := cacheWith(actualHour("14.11.25", 18))
	now := time.Date(2025, 11, 14, 17, 30, 0, 0, time.UTC)

	events := tr.Evaluate(cache, nil, enabled(60), now)
	require.Len(t, events, 1)

	// Three days later the dedup entry is gone.
	tr.Evaluate(&models.ScheduleCache{}, nil, enabled(60), now.AddDate(0, 0, 3))

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.warned)
}
