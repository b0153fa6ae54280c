package app

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtek-shutdowns-monitor/internal/config"
	"dtek-shutdowns-monitor/internal/models"
	"dtek-shutdowns-monitor/internal/scraper"
	"dtek-shutdowns-monitor/internal/storage"
)

// fakeRenderer serves canned markup instead of driving a browser.
type fakeRenderer struct {
	markup string
	err    error
	calls  int
}

func (f *fakeRenderer) Render(_ context.Context, _ models.Address) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.markup, nil
}

type recordingSink struct {
	events []models.NotificationEvent
}

func (r *recordingSink) Send(_ context.Context, event models.NotificationEvent) error {
	r.events = append(r.events, event)
	return nil
}

// pageWith renders a minimal shutdowns page: an actual table with the given
// outage hours on one date, plus an empty weekly table.
func pageWith(date string, outageHours ...int) string {
	return buildPage(date, "cell-non-scheduled", outageHours...)
}

// pageWithBrokenWeekly renders a page whose actual table is valid but whose
// weekly table carries a marker outside the closed set.
func pageWithBrokenWeekly(date string, outageHours ...int) string {
	return buildPage(date, "cell-unknown-marker", outageHours...)
}

func buildPage(date, weeklyCellClass string, outageHours ...int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="discon-fact-table"><table><thead><tr><th colspan="2">Дата</th>`)
	for h := 0; h < 24; h++ {
		b.WriteString(fmt.Sprintf("<th>%02d-%02d</th>", h, h+1))
	}
	b.WriteString(`</tr></thead><tbody><tr><td colspan="2">` + date + `</td>`)
	for h := 0; h < 24; h++ {
		class := "cell-non-scheduled"
		for _, oh := range outageHours {
			if oh == h {
				class = "cell-scheduled"
			}
		}
		b.WriteString(`<td class="` + class + `"></td>`)
	}
	b.WriteString(`</tr></tbody></table></div>`)

	b.WriteString(`<div class="discon-schedule-table"><table><thead><tr><th colspan="2">День</th>`)
	for h := 0; h < 24; h++ {
		b.WriteString(fmt.Sprintf("<th>%02d-%02d</th>", h, h+1))
	}
	b.WriteString(`</tr></thead><tbody><tr><td colspan="2">Понеділок</td>`)
	for h := 0; h < 24; h++ {
		b.WriteString(`<td class="` + weeklyCellClass + `"></td>`)
	}
	b.WriteString(`</tr></tbody></table></div></body></html>`)
	return b.String()
}

func newTestApp(t *testing.T, renderer scraper.Renderer, sink *recordingSink) (*App, *storage.SettingsStore) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		City:          "Київ",
		Street:        "вул. Хрещатик",
		House:         "1",
		DataDir:       dir,
		RenderTimeout: 5 * time.Second,
	}
	store, err := storage.NewStore(dir)
	require.NoError(t, err)
	settings, err := storage.NewSettingsStore(dir)
	require.NoError(t, err)
	return New(cfg, renderer, store, settings, sink, time.UTC, zerolog.Nop()), settings
}

func TestTickWarnsBeforeUpcomingOutage(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18, 19)}
	sink := &recordingSink{}
	a, settings := newTestApp(t, renderer, sink)
	require.NoError(t, settings.Save(models.MonitoringConfig{
		CheckIntervalMinutes: 60, NotificationLeadMinutes: 60, Enabled: true,
	}))

	now := time.Date(2025, 11, 14, 17, 10, 0, 0, time.UTC)
	require.NoError(t, a.Tick(context.Background(), now))

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, models.EventOutageWarning, ev.Kind)
	assert.Equal(t, "14.11.25", ev.Date)
	assert.Equal(t, 18, ev.StartHour)
	assert.Equal(t, 20, ev.EndHour)
	assert.Equal(t, 50, ev.LeadMinutes)
}

func TestTickReportsExtensionAfterWarning(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18, 19)}
	sink := &recordingSink{}
	a, settings := newTestApp(t, renderer, sink)
	require.NoError(t, settings.Save(models.MonitoringConfig{
		CheckIntervalMinutes: 60, NotificationLeadMinutes: 60, Enabled: true,
	}))

	now := time.Date(2025, 11, 14, 17, 10, 0, 0, time.UTC)
	require.NoError(t, a.Tick(context.Background(), now))
	require.Len(t, sink.events, 1)

	// Upstream extends the episode by an hour before the next poll.
	renderer.markup = pageWith("14.11.25", 18, 19, 20)
	require.NoError(t, a.Tick(context.Background(), now.Add(30*time.Minute)))

	require.Len(t, sink.events, 2)
	ev := sink.events[1]
	assert.Equal(t, models.EventScheduleChange, ev.Kind)
	assert.Equal(t, models.ChangeExtended, ev.Change)
	require.NotNil(t, ev.OldEnd)
	require.NotNil(t, ev.NewEnd)
	assert.Equal(t, 20, *ev.OldEnd)
	assert.Equal(t, 21, *ev.NewEnd)
}

func TestTickStaysSilentWhenMonitoringDisabled(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	sink := &recordingSink{}
	a, _ := newTestApp(t, renderer, sink)

	// Defaults leave monitoring disabled.
	now := time.Date(2025, 11, 14, 17, 10, 0, 0, time.UTC)
	require.NoError(t, a.Tick(context.Background(), now))
	assert.Empty(t, sink.events)
	assert.Equal(t, 1, renderer.calls, "the cache is still refreshed")
}

func TestTickKeepsCachedSnapshotOnRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	sink := &recordingSink{}
	a, _ := newTestApp(t, renderer, sink)

	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.Tick(context.Background(), now))

	renderer.err = scraper.ErrRenderUnavailable
	err := a.Tick(context.Background(), now.Add(2*time.Hour))
	assert.Error(t, err, "the failure is reported")

	outage, ok := a.NextOutage(now)
	require.True(t, ok, "the earlier snapshot still answers queries")
	assert.Equal(t, 18, outage.StartHour)
}

func TestTickKeepsWholeCacheWhenWeeklyTableMalformed(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("13.11.25", 9)}
	sink := &recordingSink{}
	a, _ := newTestApp(t, renderer, sink)

	now := time.Date(2025, 11, 13, 8, 0, 0, 0, time.UTC)
	require.NoError(t, a.Tick(context.Background(), now))

	// The next poll serves a valid actual table next to a broken weekly one.
	// The extraction must be rejected as a whole: committing the actual half
	// would desync disk from the served snapshot and lose the next diff.
	renderer.markup = pageWithBrokenWeekly("14.11.25", 18)
	err := a.Tick(context.Background(), now.Add(2*time.Hour))
	require.Error(t, err)

	cache, loadErr := a.store.Load(a.cfg.Address())
	require.NoError(t, loadErr)
	require.NotNil(t, cache)
	require.Len(t, cache.ActualSchedules, 1)
	assert.Equal(t, "13.11.25", cache.ActualSchedules[0].Date)
	assert.True(t, now.Equal(cache.LastUpdated), "a failed extraction must not bump last_updated")

	outage, ok := a.NextOutage(now)
	require.True(t, ok)
	assert.Equal(t, "13.11.25", outage.Date)
}

func TestCheckScheduleServesFreshCacheWithoutRender(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	a, _ := newTestApp(t, renderer, &recordingSink{})

	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	res := a.CheckSchedule(context.Background(), now, false)
	require.Equal(t, StatusFresh, res.Status)
	require.Equal(t, 1, renderer.calls)

	res = a.CheckSchedule(context.Background(), now.Add(10*time.Minute), false)
	assert.Equal(t, StatusCached, res.Status)
	assert.Equal(t, 1, renderer.calls, "a fresh cache answers without rendering")
}

func TestCheckScheduleForceRefreshes(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	a, _ := newTestApp(t, renderer, &recordingSink{})

	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	res := a.CheckSchedule(context.Background(), now, false)
	require.Equal(t, StatusFresh, res.Status)

	res = a.CheckSchedule(context.Background(), now.Add(10*time.Minute), true)
	assert.Equal(t, StatusFresh, res.Status)
	assert.Equal(t, 2, renderer.calls)
}

func TestCheckScheduleForceRendersRightAfterRefresh(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	a, _ := newTestApp(t, renderer, &recordingSink{})

	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	require.Equal(t, StatusFresh, a.CheckSchedule(context.Background(), now, false).Status)

	// A sequential force seconds after a successful refresh is an explicit
	// request for upstream data, not a concurrent extraction to collapse.
	res := a.CheckSchedule(context.Background(), now.Add(10*time.Second), true)
	assert.Equal(t, StatusFresh, res.Status)
	assert.Equal(t, 2, renderer.calls)
}

func TestCheckScheduleDegradesToStaleCache(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	a, _ := newTestApp(t, renderer, &recordingSink{})

	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	require.Equal(t, StatusFresh, a.CheckSchedule(context.Background(), now, false).Status)

	renderer.err = scraper.ErrRenderUnavailable
	res := a.CheckSchedule(context.Background(), now.Add(3*time.Hour), false)
	assert.Equal(t, StatusStale, res.Status)
	require.NotNil(t, res.Cache)
	assert.NotEmpty(t, res.Warning)
	assert.Len(t, res.Cache.ActualSchedules, 1)
}

func TestCheckScheduleEmptyWhenNothingAvailable(t *testing.T) {
	renderer := &fakeRenderer{err: scraper.ErrAddressNotFound}
	a, _ := newTestApp(t, renderer, &recordingSink{})

	res := a.CheckSchedule(context.Background(), time.Now(), false)
	assert.Equal(t, StatusEmpty, res.Status)
	assert.Nil(t, res.Cache)
	assert.NotEmpty(t, res.Warning)
}

func TestOutagesOnUsesSnapshot(t *testing.T) {
	renderer := &fakeRenderer{markup: pageWith("14.11.25", 18)}
	a, _ := newTestApp(t, renderer, &recordingSink{})

	now := time.Date(2025, 11, 14, 12, 0, 0, 0, time.UTC)
	require.Equal(t, StatusFresh, a.CheckSchedule(context.Background(), now, false).Status)

	friday := a.OutagesOn("П'ятниця", models.ScheduleActual)
	require.Len(t, friday, 1)
	assert.Equal(t, 18, friday[0].StartHour)
}
