package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidScheduleKind запрошено незарегистрированное расписание
	ErrInvalidScheduleKind = errors.New("invalid schedule kind")
	// ErrMalformedSchedule нарушены инварианты периодов расписания
	ErrMalformedSchedule = errors.New("malformed schedule")
)

// Violation описывает нарушение инварианта в расписании
type Violation struct {
	Schedule string
	Period   string
	Reason   string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s / %s: %s", v.Schedule, v.Period, v.Reason)
}

// Validator проверяет статические данные расписания
type Validator struct {
	schedule Schedule
}

// NewValidator создаёт новый Validator
func NewValidator(schedule Schedule) *Validator {
	return &Validator{schedule: schedule}
}

// ValidateSchedule возвращает все найденные нарушения
func (v *Validator) ValidateSchedule() []Violation {
	violations := []Violation{}

	if len(v.schedule.Periods) == 0 {
		return append(violations, v.violation("-", "в расписании нет периодов"))
	}

	for i, period := range v.schedule.Periods {
		if period.Name == "" {
			violations = append(violations, v.violation(fmt.Sprintf("#%d", i+1), "пустое название"))
		}
		if period.StartTime >= period.EndTime {
			violations = append(violations, v.violation(period.Name,
				fmt.Sprintf("начало %s не раньше конца %s", period.StartTime, period.EndTime)))
		}
		if i == 0 {
			continue
		}

		// Периоды хранятся по возрастанию и не пересекаются.
		// Касание границ допустимо: побеждает первый период.
		prev := v.schedule.Periods[i-1]
		if period.StartTime < prev.StartTime {
			violations = append(violations, v.violation(period.Name,
				fmt.Sprintf("начинается раньше предыдущего периода %s", prev.Name)))
		} else if period.StartTime < prev.EndTime {
			violations = append(violations, v.violation(period.Name,
				fmt.Sprintf("пересекается с периодом %s", prev.Name)))
		}
	}

	return violations
}

// Validate возвращает ErrMalformedSchedule с первым нарушением
func (v *Validator) Validate() error {
	violations := v.ValidateSchedule()
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s (всего нарушений: %d)", ErrMalformedSchedule, violations[0], len(violations))
}

func (v *Validator) violation(period, reason string) Violation {
	return Violation{
		Schedule: v.schedule.Name,
		Period:   period,
		Reason:   reason,
	}
}
