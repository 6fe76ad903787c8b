package domain

import (
	"fmt"
	"sort"
	"time"
)

// Registry неизменяемый набор расписаний по идентификатору.
// Создаётся один раз при старте процесса и передаётся явно.
type Registry struct {
	schedules map[ScheduleKind]Schedule
}

// NewRegistry проверяет расписания и копирует их в реестр
func NewRegistry(schedules map[ScheduleKind]Schedule) (*Registry, error) {
	r := &Registry{schedules: make(map[ScheduleKind]Schedule, len(schedules))}
	for kind, schedule := range schedules {
		if err := NewValidator(schedule).Validate(); err != nil {
			return nil, fmt.Errorf("расписание %s: %w", kind, err)
		}
		periods := make([]Period, len(schedule.Periods))
		copy(periods, schedule.Periods)
		r.schedules[kind] = Schedule{Name: schedule.Name, Periods: periods}
	}
	return r, nil
}

// DefaultRegistry возвращает реестр с расписаниями A-Lunch и B-Lunch
func DefaultRegistry() *Registry {
	r, err := NewRegistry(map[ScheduleKind]Schedule{
		ALunch: {
			Name: "A-Lunch",
			Periods: []Period{
				{Name: "1st Period", StartTime: Clock(7, 25), EndTime: Clock(8, 52)},
				{Name: "2nd Period", StartTime: Clock(8, 58), EndTime: Clock(10, 35)},
				{Name: "Lunch", StartTime: Clock(10, 41), EndTime: Clock(11, 16)},
				{Name: "3rd Period", StartTime: Clock(11, 20), EndTime: Clock(12, 47)},
				{Name: "4th Period", StartTime: Clock(12, 53), EndTime: Clock(14, 20)},
			},
		},
		BLunch: {
			Name: "B-Lunch",
			Periods: []Period{
				{Name: "1st Period", StartTime: Clock(7, 25), EndTime: Clock(8, 52)},
				{Name: "2nd Period", StartTime: Clock(8, 58), EndTime: Clock(10, 35)},
				{Name: "3rd Period", StartTime: Clock(10, 41), EndTime: Clock(12, 8)},
				{Name: "Lunch", StartTime: Clock(12, 12), EndTime: Clock(12, 47)},
				{Name: "4th Period", StartTime: Clock(12, 53), EndTime: Clock(14, 20)},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return r
}

// GetSchedule возвращает копию расписания по идентификатору
func (r *Registry) GetSchedule(kind ScheduleKind) (Schedule, error) {
	schedule, ok := r.schedules[kind]
	if !ok {
		return Schedule{}, fmt.Errorf("%w: %q", ErrInvalidScheduleKind, kind)
	}
	periods := make([]Period, len(schedule.Periods))
	copy(periods, schedule.Periods)
	return Schedule{Name: schedule.Name, Periods: periods}, nil
}

// Kinds возвращает зарегистрированные идентификаторы в алфавитном порядке
func (r *Registry) Kinds() []ScheduleKind {
	kinds := make([]ScheduleKind, 0, len(r.schedules))
	for kind := range r.schedules {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Resolve вычисляет TimeInfo для расписания kind
func (r *Registry) Resolve(kind ScheduleKind, now time.Time) (TimeInfo, error) {
	schedule, ok := r.schedules[kind]
	if !ok {
		return TimeInfo{}, fmt.Errorf("%w: %q", ErrInvalidScheduleKind, kind)
	}
	return Resolve(schedule, now), nil
}

// IsSchoolOver проверяет окончание учебного дня для расписания kind
func (r *Registry) IsSchoolOver(kind ScheduleKind, now time.Time) (bool, error) {
	schedule, ok := r.schedules[kind]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrInvalidScheduleKind, kind)
	}
	return IsSchoolOver(schedule, now), nil
}
