package domain

import "time"

var (
	// SchoolStart начало первого урока в обоих вариантах расписания
	SchoolStart = Clock(7, 25)
	// SchoolEnd конец последнего урока в обоих вариантах расписания
	SchoolEnd = Clock(14, 20)
)

// IsSchoolOver true в выходной или строго после конца последнего периода.
// Ровно в момент звонка день ещё не закончен, а Resolve считает этот момент
// частью последнего периода.
func IsSchoolOver(schedule Schedule, now time.Time) bool {
	if !IsSchoolDay(now) {
		return true
	}
	last, ok := schedule.Last()
	if !ok {
		return true
	}
	return TimeOfDay(now) > last.EndTime
}

// TimeUntilNextSchoolStart время до ближайших 7:25 учебного дня.
// Во время уроков (7:25..14:20 включительно) возвращает nil.
func TimeUntilNextSchoolStart(now time.Time) *time.Duration {
	t := TimeOfDay(now)

	var days int
	switch wd := now.Weekday(); {
	case wd == time.Saturday:
		days = 2
	case wd == time.Sunday:
		days = 1
	case t < SchoolStart:
		days = 0
	case t <= SchoolEnd:
		return nil
	case wd == time.Friday:
		days = 3
	default:
		days = 1
	}

	y, m, d := now.Date()
	start := time.Date(y, m, d+days, SchoolStart.Hours(), SchoolStart.Minutes(), 0, 0, now.Location())
	until := start.Sub(now)
	return &until
}
