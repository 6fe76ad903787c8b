package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleKind идентификатор варианта расписания звонков
type ScheduleKind string

const (
	ALunch ScheduleKind = "aLunch"
	BLunch ScheduleKind = "bLunch"
)

// ParseScheduleKind проверяет строковый идентификатор расписания
func ParseScheduleKind(s string) (ScheduleKind, error) {
	switch k := ScheduleKind(strings.TrimSpace(s)); k {
	case ALunch, BLunch:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScheduleKind, s)
	}
}

// ClockTime время суток как смещение от полуночи
type ClockTime time.Duration

// Clock собирает ClockTime из часов и минут
func Clock(hours, minutes int) ClockTime {
	return ClockTime(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
}

// ParseClock разбирает время в формате "H:MM" или "HH:MM"
func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("неверный формат времени %q", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("неверный час в %q", s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("неверные минуты в %q", s)
	}
	return Clock(hours, minutes), nil
}

// TimeOfDay возвращает смещение момента от полуночи по настенным часам его локации.
// Дата отбрасывается, точность до миллисекунды.
func TimeOfDay(t time.Time) ClockTime {
	h, m, s := t.Clock()
	d := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()).Truncate(time.Millisecond)
	return ClockTime(d)
}

// Duration возвращает смещение от полуночи
func (c ClockTime) Duration() time.Duration {
	return time.Duration(c)
}

// Hours возвращает час
func (c ClockTime) Hours() int {
	return int(time.Duration(c) / time.Hour)
}

// Minutes возвращает минуты внутри часа
func (c ClockTime) Minutes() int {
	return int(time.Duration(c)%time.Hour) / int(time.Minute)
}

// String возвращает время в неформальном виде "7:25"
func (c ClockTime) String() string {
	return fmt.Sprintf("%d:%02d", c.Hours(), c.Minutes())
}

// On возвращает момент с этим временем суток в дату и локацию day
func (c ClockTime) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, c.Hours(), c.Minutes(), 0, 0, day.Location())
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Period именованный интервал учебного дня
type Period struct {
	Name      string    `json:"name"`
	StartTime ClockTime `json:"startTime"`
	EndTime   ClockTime `json:"endTime"`
}

// NewPeriod создает период из строк вида "7:25" и "8:52"
func NewPeriod(name, start, end string) (Period, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Period{}, fmt.Errorf("период %s: %w", name, err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Period{}, fmt.Errorf("период %s: %w", name, err)
	}
	return Period{Name: name, StartTime: s, EndTime: e}, nil
}

// Length длительность периода
func (p Period) Length() time.Duration {
	return time.Duration(p.EndTime - p.StartTime)
}

// Contains проверяет попадание времени суток в [StartTime, EndTime], границы включены
func (p Period) Contains(t ClockTime) bool {
	return t >= p.StartTime && t <= p.EndTime
}

// Schedule расписание звонков для одного варианта обеда
type Schedule struct {
	Name    string   `json:"name"`
	Periods []Period `json:"periods"`
}

// First возвращает первый период дня
func (s Schedule) First() (Period, bool) {
	if len(s.Periods) == 0 {
		return Period{}, false
	}
	return s.Periods[0], true
}

// Last возвращает последний период дня
func (s Schedule) Last() (Period, bool) {
	if len(s.Periods) == 0 {
		return Period{}, false
	}
	return s.Periods[len(s.Periods)-1], true
}

// TimeInfo снимок состояния учебного дня на момент времени.
// Отсутствующие значения представлены nil.
type TimeInfo struct {
	CurrentPeriod         *Period
	NextPeriod            *Period
	TimeUntilNextPeriod   *time.Duration
	TimeRemainingInPeriod *time.Duration
	IsSchoolDay           bool
	Progress              float64 // 0-100
}
