package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []ScheduleKind{ALunch, BLunch}, r.Kinds())

	for _, kind := range r.Kinds() {
		s, err := r.GetSchedule(kind)
		require.NoError(t, err)
		assert.Empty(t, NewValidator(s).ValidateSchedule(), kind)

		first, _ := s.First()
		last, _ := s.Last()
		assert.Equal(t, SchoolStart, first.StartTime)
		assert.Equal(t, SchoolEnd, last.EndTime)
		assert.Len(t, s.Periods, 5)
	}

	a, _ := r.GetSchedule(ALunch)
	b, _ := r.GetSchedule(BLunch)
	assert.Equal(t, "A-Lunch", a.Name)
	assert.Equal(t, "B-Lunch", b.Name)
	assert.Equal(t, "Lunch", a.Periods[2].Name)
	assert.Equal(t, "Lunch", b.Periods[3].Name)
}

func TestRegistryUnknownKind(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.GetSchedule("cLunch")
	assert.ErrorIs(t, err, ErrInvalidScheduleKind)

	_, err = r.Resolve("", at(monday, 8, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidScheduleKind)

	_, err = r.IsSchoolOver("x", at(monday, 8, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidScheduleKind)
}

func TestRegistryIsImmutable(t *testing.T) {
	r := DefaultRegistry()
	s, err := r.GetSchedule(ALunch)
	require.NoError(t, err)
	s.Periods[0].Name = "changed"

	again, err := r.GetSchedule(ALunch)
	require.NoError(t, err)
	assert.Equal(t, "1st Period", again.Periods[0].Name)
}

func TestRegistryResolveByKind(t *testing.T) {
	r := DefaultRegistry()
	info, err := r.Resolve(BLunch, at(monday, 12, 10, 0))
	require.NoError(t, err)
	require.NotNil(t, info.NextPeriod)
	assert.Equal(t, "Lunch", info.NextPeriod.Name)

	over, err := r.IsSchoolOver(BLunch, at(friday, 15, 0, 0))
	require.NoError(t, err)
	assert.True(t, over)
}

func TestNewRegistryRejectsMalformed(t *testing.T) {
	tests := map[string][]Period{
		"empty": nil,
		"start after end": {
			{Name: "a", StartTime: Clock(9, 0), EndTime: Clock(8, 0)},
		},
		"zero length": {
			{Name: "a", StartTime: Clock(9, 0), EndTime: Clock(9, 0)},
		},
		"overlap": {
			{Name: "a", StartTime: Clock(8, 0), EndTime: Clock(9, 0)},
			{Name: "b", StartTime: Clock(8, 30), EndTime: Clock(10, 0)},
		},
		"unsorted": {
			{Name: "a", StartTime: Clock(10, 0), EndTime: Clock(11, 0)},
			{Name: "b", StartTime: Clock(8, 0), EndTime: Clock(9, 0)},
		},
	}
	for name, periods := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(map[ScheduleKind]Schedule{"custom": {Name: "Custom", Periods: periods}})
			assert.ErrorIs(t, err, ErrMalformedSchedule)
		})
	}

	t.Run("touching boundaries allowed", func(t *testing.T) {
		_, err := NewRegistry(map[ScheduleKind]Schedule{"custom": {Name: "Custom", Periods: []Period{
			{Name: "a", StartTime: Clock(8, 0), EndTime: Clock(9, 0)},
			{Name: "b", StartTime: Clock(9, 0), EndTime: Clock(10, 0)},
		}}})
		assert.NoError(t, err)
	})
}

func TestParseClockAndKind(t *testing.T) {
	c, err := ParseClock("7:25")
	require.NoError(t, err)
	assert.Equal(t, Clock(7, 25), c)
	assert.Equal(t, "7:25", c.String())

	c, err = ParseClock("14:05")
	require.NoError(t, err)
	assert.Equal(t, "14:05", c.String())

	for _, bad := range []string{"", "7", "7:5", "24:00", "ab:cd", "7:60"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}

	k, err := ParseScheduleKind(" bLunch ")
	require.NoError(t, err)
	assert.Equal(t, BLunch, k)
	_, err = ParseScheduleKind("ALUNCH")
	assert.ErrorIs(t, err, ErrInvalidScheduleKind)
}

func TestPeriodJSON(t *testing.T) {
	p, err := NewPeriod("Lunch", "12:12", "12:47")
	require.NoError(t, err)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Lunch","startTime":"12:12","endTime":"12:47"}`, string(data))

	var back Period
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}
