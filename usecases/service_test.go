package usecases

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vaflel/bell-ticker/domain"
)

type memoryPrefs struct {
	data map[string]domain.ScheduleKind
	err  error
}

func newMemoryPrefs() *memoryPrefs {
	return &memoryPrefs{data: map[string]domain.ScheduleKind{}}
}

func (m *memoryPrefs) LoadPreferences() (map[string]domain.ScheduleKind, error) {
	return m.data, m.err
}

func (m *memoryPrefs) GetPreference(clientID string) (domain.ScheduleKind, error) {
	if m.err != nil {
		return "", m.err
	}
	kind, ok := m.data[clientID]
	if !ok {
		return "", ErrPreferenceNotFound
	}
	return kind, nil
}

func (m *memoryPrefs) SetPreference(clientID string, kind domain.ScheduleKind) error {
	if m.err != nil {
		return m.err
	}
	m.data[clientID] = kind
	return nil
}

func (m *memoryPrefs) DeletePreference(clientID string) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.data[clientID]; !ok {
		return ErrPreferenceNotFound
	}
	delete(m.data, clientID)
	return nil
}

func newService(prefs PreferenceRepository) *TickerService {
	return NewTickerService(domain.DefaultRegistry(), prefs, domain.ALunch, time.UTC, zerolog.Nop())
}

// 2024-09-09 понедельник
func monday(hour, minute int) time.Time {
	return time.Date(2024, time.September, 9, hour, minute, 0, 0, time.UTC)
}

func TestSnapshotStates(t *testing.T) {
	svc := newService(nil)

	tests := []struct {
		name string
		now  time.Time
		want DayState
	}{
		{"weekend", time.Date(2024, time.September, 14, 10, 0, 0, 0, time.UTC), StateWeekend},
		{"before school", monday(6, 45), StateBefore},
		{"in session", monday(8, 0), StateSession},
		{"passing period", monday(8, 55), StateSession},
		{"closing bell", monday(14, 20), StateSession},
		{"after school", monday(15, 0), StateOver},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := svc.Snapshot(domain.ALunch, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.State)
		})
	}
}

func TestSnapshotSession(t *testing.T) {
	d, err := newService(nil).Snapshot(domain.ALunch, monday(8, 0))
	require.NoError(t, err)

	assert.Equal(t, "A-Lunch Schedule", d.ScheduleTitle)
	assert.Equal(t, "08:00:00", d.Clock)
	assert.Equal(t, "Monday, Sep 9", d.Date)
	assert.Equal(t, "1st Period", d.CurrentName)
	assert.Equal(t, "7:25 - 8:52", d.CurrentRange)
	assert.Equal(t, "2nd Period", d.NextName)
	assert.Equal(t, "52:00", d.Remaining)
	assert.Equal(t, "58:00", d.UntilNext)
	assert.Empty(t, d.UntilSchool)
	require.NotNil(t, d.RemainingMs)
	assert.Equal(t, int64(52*60*1000), *d.RemainingMs)
	assert.Nil(t, d.UntilSchoolMs)

	require.Len(t, d.Periods, 5)
	assert.True(t, d.Periods[0].Active)
	assert.InDelta(t, d.Progress, d.Periods[0].Progress, 0.0001)
	for _, row := range d.Periods[1:] {
		assert.False(t, row.Active)
		assert.Zero(t, row.Progress)
	}
}

func TestSnapshotGapShowsBreak(t *testing.T) {
	d, err := newService(nil).Snapshot(domain.BLunch, monday(12, 10))
	require.NoError(t, err)

	assert.Equal(t, StateSession, d.State)
	assert.Equal(t, "No Class", d.CurrentName)
	assert.Equal(t, "Break", d.Remaining)
	assert.Equal(t, "Lunch", d.NextName)
	assert.Equal(t, "02:00", d.UntilNext)
}

func TestSnapshotBeforeSchoolCountdown(t *testing.T) {
	d, err := newService(nil).Snapshot(domain.BLunch, monday(6, 25))
	require.NoError(t, err)
	assert.Equal(t, "01:00:00", d.UntilSchool)
	assert.Equal(t, "1st Period", d.NextName)
}

func TestSnapshotConvertsToSchoolLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	svc := NewTickerService(domain.DefaultRegistry(), nil, domain.ALunch, est, zerolog.Nop())

	d, err := svc.Snapshot(domain.ALunch, time.Date(2024, time.September, 9, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "08:00:00", d.Clock)
	assert.Equal(t, "1st Period", d.CurrentName)
}

func TestSnapshotUnknownKind(t *testing.T) {
	_, err := newService(nil).Snapshot("cLunch", monday(8, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidScheduleKind)
}

func TestCurrentUsesClock(t *testing.T) {
	svc := newService(nil).WithClock(func() time.Time { return monday(12, 10) })
	d, err := svc.Current(domain.BLunch)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", d.NextName)
}

func TestResolveKind(t *testing.T) {
	prefs := newMemoryPrefs()
	prefs.data["client-b"] = domain.BLunch
	prefs.data["client-broken"] = "zLunch"
	svc := newService(prefs)

	assert.Equal(t, domain.BLunch, svc.ResolveKind("", "", "bLunch"))
	assert.Equal(t, domain.ALunch, svc.ResolveKind("client-b", "", "aLunch"))
	assert.Equal(t, domain.BLunch, svc.ResolveKind("", "bLunch", ""))
	assert.Equal(t, domain.BLunch, svc.ResolveKind("client-b", "junk", "junk"))
	assert.Equal(t, domain.ALunch, svc.ResolveKind("client-broken", "", ""))
	assert.Equal(t, domain.ALunch, svc.ResolveKind("unknown", "", ""))

	prefs.err = errors.New("disk gone")
	assert.Equal(t, domain.ALunch, svc.ResolveKind("client-b", "", ""))
}

func TestSavePreference(t *testing.T) {
	prefs := newMemoryPrefs()
	svc := newService(prefs)

	kind, err := svc.SavePreference("c1", "bLunch")
	require.NoError(t, err)
	assert.Equal(t, domain.BLunch, kind)
	assert.Equal(t, domain.BLunch, prefs.data["c1"])

	_, err = svc.SavePreference("c1", "lunch")
	assert.ErrorIs(t, err, domain.ErrInvalidScheduleKind)

	kind, err = svc.SavePreference("", "aLunch")
	require.NoError(t, err)
	assert.Equal(t, domain.ALunch, kind)

	prefs.err = errors.New("read-only")
	_, err = svc.SavePreference("c2", "aLunch")
	assert.Error(t, err)
}

func TestSchedules(t *testing.T) {
	views := newService(nil).Schedules()
	require.Len(t, views, 2)
	assert.Equal(t, domain.ALunch, views[0].Kind)
	assert.Equal(t, "B-Lunch", views[1].Name)
}

func TestResetPreference(t *testing.T) {
	prefs := newMemoryPrefs()
	prefs.data["c1"] = domain.BLunch
	svc := newService(prefs)

	kind, err := svc.ResetPreference("c1")
	require.NoError(t, err)
	assert.Equal(t, domain.ALunch, kind)
	assert.NotContains(t, prefs.data, "c1")
	assert.Equal(t, domain.ALunch, svc.ResolveKind("c1", "", ""))

	// повторный сброс не ошибка
	_, err = svc.ResetPreference("c1")
	require.NoError(t, err)

	prefs.err = errors.New("read-only")
	_, err = svc.ResetPreference("c1")
	assert.Error(t, err)
}

func TestCheckPreferences(t *testing.T) {
	prefs := newMemoryPrefs()
	prefs.data["c1"] = domain.BLunch
	prefs.data["c2"] = "zLunch"

	count, err := newService(prefs).CheckPreferences()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = newService(nil).CheckPreferences()
	require.NoError(t, err)
	assert.Zero(t, count)

	prefs.err = errors.New("broken yaml")
	_, err = newService(prefs).CheckPreferences()
	assert.ErrorContains(t, err, "broken yaml")
}
