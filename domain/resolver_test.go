package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-09-09 понедельник
func at(day, hour, minute, second int) time.Time {
	return time.Date(2024, time.September, day, hour, minute, second, 0, time.UTC)
}

const (
	monday   = 9
	friday   = 13
	saturday = 14
	sunday   = 15
)

func mustSchedule(t *testing.T, kind ScheduleKind) Schedule {
	t.Helper()
	s, err := DefaultRegistry().GetSchedule(kind)
	require.NoError(t, err)
	return s
}

func TestResolveScenarioA(t *testing.T) {
	info := Resolve(mustSchedule(t, ALunch), at(monday, 8, 0, 0))

	require.True(t, info.IsSchoolDay)
	require.NotNil(t, info.CurrentPeriod)
	require.NotNil(t, info.NextPeriod)
	assert.Equal(t, "1st Period", info.CurrentPeriod.Name)
	assert.Equal(t, "2nd Period", info.NextPeriod.Name)
	require.NotNil(t, info.TimeRemainingInPeriod)
	assert.Equal(t, 52*time.Minute, *info.TimeRemainingInPeriod)
	require.NotNil(t, info.TimeUntilNextPeriod)
	assert.Equal(t, 58*time.Minute, *info.TimeUntilNextPeriod)
	// 35 из 87 минут
	assert.InDelta(t, 35.0/87.0*100, info.Progress, 0.001)
}

func TestResolveScenarioBGapBeforeLunch(t *testing.T) {
	info := Resolve(mustSchedule(t, BLunch), at(monday, 12, 10, 0))

	assert.True(t, info.IsSchoolDay)
	assert.Nil(t, info.CurrentPeriod)
	assert.Nil(t, info.TimeRemainingInPeriod)
	assert.Zero(t, info.Progress)
	require.NotNil(t, info.NextPeriod)
	assert.Equal(t, "Lunch", info.NextPeriod.Name)
	require.NotNil(t, info.TimeUntilNextPeriod)
	assert.Equal(t, 2*time.Minute, *info.TimeUntilNextPeriod)
}

func TestResolveBeforeFirstPeriod(t *testing.T) {
	for _, kind := range []ScheduleKind{ALunch, BLunch} {
		schedule := mustSchedule(t, kind)
		for _, now := range []time.Time{at(monday, 0, 0, 0), at(monday, 6, 30, 0), at(monday, 7, 24, 59)} {
			info := Resolve(schedule, now)
			assert.Nil(t, info.CurrentPeriod, now)
			require.NotNil(t, info.NextPeriod, now)
			assert.Equal(t, schedule.Periods[0], *info.NextPeriod)
		}
	}
}

func TestResolveAfterLastPeriod(t *testing.T) {
	schedule := mustSchedule(t, ALunch)
	for _, now := range []time.Time{at(monday, 14, 20, 1), at(monday, 15, 0, 0), at(monday, 23, 59, 59)} {
		info := Resolve(schedule, now)
		assert.True(t, info.IsSchoolDay)
		assert.Nil(t, info.CurrentPeriod, now)
		assert.Nil(t, info.NextPeriod, now)
		assert.Nil(t, info.TimeUntilNextPeriod, now)
		assert.Nil(t, info.TimeRemainingInPeriod, now)
		assert.True(t, IsSchoolOver(schedule, now), now)
	}
}

func TestResolveWeekend(t *testing.T) {
	schedule := mustSchedule(t, ALunch)
	for _, day := range []int{saturday, sunday} {
		for hour := 0; hour < 24; hour += 3 {
			info := Resolve(schedule, at(day, hour, 0, 0))
			assert.Equal(t, TimeInfo{IsSchoolDay: false}, info)
		}
	}
}

func TestResolveBoundariesInclusive(t *testing.T) {
	schedule := mustSchedule(t, ALunch)

	t.Run("start", func(t *testing.T) {
		info := Resolve(schedule, at(monday, 7, 25, 0))
		require.NotNil(t, info.CurrentPeriod)
		assert.Equal(t, "1st Period", info.CurrentPeriod.Name)
		assert.Zero(t, info.Progress)
	})

	t.Run("end", func(t *testing.T) {
		info := Resolve(schedule, at(monday, 8, 52, 0))
		require.NotNil(t, info.CurrentPeriod)
		assert.Equal(t, "1st Period", info.CurrentPeriod.Name)
		assert.Equal(t, 100.0, info.Progress)
		assert.Equal(t, time.Duration(0), *info.TimeRemainingInPeriod)
	})

	t.Run("last period end is not over yet", func(t *testing.T) {
		now := at(monday, 14, 20, 0)
		info := Resolve(schedule, now)
		require.NotNil(t, info.CurrentPeriod)
		assert.Equal(t, "4th Period", info.CurrentPeriod.Name)
		assert.Nil(t, info.NextPeriod)
		assert.False(t, IsSchoolOver(schedule, now))
	})

	t.Run("one millisecond after close", func(t *testing.T) {
		now := at(monday, 14, 20, 0).Add(time.Millisecond)
		assert.True(t, IsSchoolOver(schedule, now))
		assert.Nil(t, Resolve(schedule, now).CurrentPeriod)
	})
}

func TestResolveProgressMonotonic(t *testing.T) {
	schedule := mustSchedule(t, BLunch)
	for _, period := range schedule.Periods {
		prev := -1.0
		for off := time.Duration(0); off <= period.Length(); off += 30 * time.Second {
			now := at(monday, 0, 0, 0).Add(period.StartTime.Duration() + off)
			info := Resolve(schedule, now)
			require.NotNil(t, info.CurrentPeriod, now)
			assert.Equal(t, period.Name, info.CurrentPeriod.Name)
			assert.GreaterOrEqual(t, info.Progress, prev)
			assert.GreaterOrEqual(t, info.Progress, 0.0)
			assert.LessOrEqual(t, info.Progress, 100.0)
			if off < period.Length() {
				assert.Less(t, info.Progress, 100.0)
			}
			prev = info.Progress
		}
		assert.Equal(t, 100.0, prev)
	}
}

func TestResolveUsesLocalWallClock(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	// 13:00 UTC понедельника это 8:00 по EST
	now := time.Date(2024, time.September, 9, 13, 0, 0, 0, time.UTC).In(loc)

	info := Resolve(mustSchedule(t, ALunch), now)
	require.NotNil(t, info.CurrentPeriod)
	assert.Equal(t, "1st Period", info.CurrentPeriod.Name)
}

func TestLocate(t *testing.T) {
	periods := []Period{
		{Name: "a", StartTime: Clock(8, 0), EndTime: Clock(9, 0)},
		{Name: "b", StartTime: Clock(9, 0), EndTime: Clock(10, 0)},
		{Name: "c", StartTime: Clock(10, 30), EndTime: Clock(11, 0)},
	}

	tests := []struct {
		name          string
		t             ClockTime
		current, next int
	}{
		{"before all", Clock(7, 0), -1, 0},
		{"first start", Clock(8, 0), 0, 1},
		{"touching boundary first match wins", Clock(9, 0), 0, 1},
		{"inside second", Clock(9, 30), 1, 2},
		{"gap", Clock(10, 15), -1, 2},
		{"last end", Clock(11, 0), 2, -1},
		{"after all", Clock(11, 1), -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, next := locate(periods, tt.t)
			assert.Equal(t, tt.current, current)
			assert.Equal(t, tt.next, next)
		})
	}

	current, next := locate(nil, Clock(9, 0))
	assert.Equal(t, -1, current)
	assert.Equal(t, -1, next)
}
