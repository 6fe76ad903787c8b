package domain

import (
	"sort"
	"time"
)

// IsSchoolDay учебные дни с понедельника по пятницу
func IsSchoolDay(t time.Time) bool {
	wd := t.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// locate ищет текущий и следующий период для времени суток t.
//
// Периоды отсортированы и не пересекаются, поэтому их концы тоже возрастают.
// Бинарный поиск находит первый период с EndTime >= t:
//   - если он уже начался (StartTime <= t), он текущий, следующий за ним в списке следующий;
//   - иначе он первый период, начинающийся строго позже t (перемена или окно до обеда).
//
// Границы включены, при касании периодов побеждает первый. -1 означает отсутствие.
func locate(periods []Period, t ClockTime) (current, next int) {
	i := sort.Search(len(periods), func(i int) bool {
		return periods[i].EndTime >= t
	})
	if i == len(periods) {
		return -1, -1
	}
	if periods[i].StartTime <= t {
		if i+1 < len(periods) {
			return i, i + 1
		}
		return i, -1
	}
	return -1, i
}

// Resolve вычисляет состояние учебного дня для момента now.
// Сравнивается только время суток в локации now, дата игнорируется.
func Resolve(schedule Schedule, now time.Time) TimeInfo {
	if !IsSchoolDay(now) {
		return TimeInfo{IsSchoolDay: false}
	}

	t := TimeOfDay(now)
	info := TimeInfo{IsSchoolDay: true}

	current, next := locate(schedule.Periods, t)

	if current >= 0 {
		period := schedule.Periods[current]
		info.CurrentPeriod = &period

		remaining := time.Duration(period.EndTime - t)
		info.TimeRemainingInPeriod = &remaining

		elapsed := float64(t - period.StartTime)
		info.Progress = clamp(elapsed/float64(period.Length())*100, 0, 100)
	}

	if next >= 0 {
		period := schedule.Periods[next]
		info.NextPeriod = &period

		until := time.Duration(period.StartTime - t)
		info.TimeUntilNextPeriod = &until
	}

	return info
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
