package usecases

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/rs/zerolog"
)

// PreferenceKey имя cookie, под которым браузер хранит выбор расписания
const PreferenceKey = "enloeScheduleType"

// DayState что показывать на странице
type DayState string

const (
	StateWeekend DayState = "weekend"
	StateOver    DayState = "over"
	StateBefore  DayState = "before"
	StateSession DayState = "session"
)

// PeriodRow строка обзора расписания
type PeriodRow struct {
	Name     string  `json:"name"`
	Range    string  `json:"range"`
	Active   bool    `json:"active"`
	Progress float64 `json:"progress"`
}

// Dashboard всё, что нужно странице на одну секунду
type Dashboard struct {
	State         DayState            `json:"state"`
	Schedule      domain.ScheduleKind `json:"schedule"`
	ScheduleTitle string              `json:"scheduleTitle"`
	Now           time.Time           `json:"now"`
	Clock         string              `json:"clock"`
	Date          string              `json:"date"`

	IsSchoolDay bool `json:"isSchoolDay"`
	SchoolOver  bool `json:"schoolOver"`

	CurrentPeriod *domain.Period `json:"currentPeriod"`
	NextPeriod    *domain.Period `json:"nextPeriod"`
	CurrentName   string         `json:"currentName"`
	CurrentRange  string         `json:"currentRange"`
	NextName      string         `json:"nextName"`
	NextRange     string         `json:"nextRange"`

	Remaining   string  `json:"remaining"`
	UntilNext   string  `json:"untilNext"`
	UntilSchool string  `json:"untilSchool"`
	Progress    float64 `json:"progress"`

	RemainingMs   *int64 `json:"remainingMs"`
	UntilNextMs   *int64 `json:"untilNextMs"`
	UntilSchoolMs *int64 `json:"untilSchoolMs"`

	Periods []PeriodRow `json:"periods"`
}

// TickerService собирает состояние страницы из реестра расписаний и текущего времени
type TickerService struct {
	registry    *domain.Registry
	prefs       PreferenceRepository
	defaultKind domain.ScheduleKind
	loc         *time.Location
	now         func() time.Time
	log         zerolog.Logger
}

// NewTickerService создает новый экземпляр сервиса
func NewTickerService(registry *domain.Registry, prefs PreferenceRepository, defaultKind domain.ScheduleKind, loc *time.Location, log zerolog.Logger) *TickerService {
	if loc == nil {
		loc = time.Local
	}
	return &TickerService{
		registry:    registry,
		prefs:       prefs,
		defaultKind: defaultKind,
		loc:         loc,
		now:         time.Now,
		log:         log,
	}
}

// WithClock подменяет источник времени
func (s *TickerService) WithClock(now func() time.Time) *TickerService {
	s.now = now
	return s
}

// Now текущее время в локации школы
func (s *TickerService) Now() time.Time {
	return s.now().In(s.loc)
}

// DefaultKind расписание по умолчанию
func (s *TickerService) DefaultKind() domain.ScheduleKind {
	return s.defaultKind
}

// Current снимок для текущего момента
func (s *TickerService) Current(kind domain.ScheduleKind) (Dashboard, error) {
	return s.Snapshot(kind, s.Now())
}

// Snapshot вычисляет состояние страницы для момента now
func (s *TickerService) Snapshot(kind domain.ScheduleKind, now time.Time) (Dashboard, error) {
	now = now.In(s.loc)

	schedule, err := s.registry.GetSchedule(kind)
	if err != nil {
		return Dashboard{}, err
	}

	info := domain.Resolve(schedule, now)
	over := domain.IsSchoolOver(schedule, now)
	untilSchool := domain.TimeUntilNextSchoolStart(now)

	d := Dashboard{
		Schedule:      kind,
		ScheduleTitle: schedule.Name + " Schedule",
		Now:           now,
		Clock:         now.Format("15:04:05"),
		Date:          now.Format("Monday, Jan 2"),
		IsSchoolDay:   info.IsSchoolDay,
		SchoolOver:    over,
		CurrentPeriod: info.CurrentPeriod,
		NextPeriod:    info.NextPeriod,
		CurrentName:   domain.FormatPeriodName(info.CurrentPeriod),
		CurrentRange:  domain.FormatPeriodTimeRange(info.CurrentPeriod),
		NextName:      domain.FormatPeriodName(info.NextPeriod),
		NextRange:     domain.FormatPeriodTimeRange(info.NextPeriod),
		Remaining:     "Break",
		UntilNext:     "N/A",
		Progress:      info.Progress,
		RemainingMs:   millis(info.TimeRemainingInPeriod),
		UntilNextMs:   millis(info.TimeUntilNextPeriod),
		UntilSchoolMs: millis(untilSchool),
	}

	if info.TimeRemainingInPeriod != nil {
		d.Remaining = domain.FormatShort(info.TimeRemainingInPeriod)
	}
	if info.TimeUntilNextPeriod != nil {
		d.UntilNext = domain.FormatShort(info.TimeUntilNextPeriod)
	}
	if untilSchool != nil {
		d.UntilSchool = domain.FormatLong(untilSchool)
	}

	switch {
	case !info.IsSchoolDay:
		d.State = StateWeekend
	case over:
		d.State = StateOver
	case untilSchool != nil:
		d.State = StateBefore
	default:
		d.State = StateSession
	}

	d.Periods = make([]PeriodRow, 0, len(schedule.Periods))
	for _, p := range schedule.Periods {
		row := PeriodRow{Name: p.Name, Range: domain.FormatPeriodTimeRange(&p)}
		if info.CurrentPeriod != nil && info.CurrentPeriod.Name == p.Name {
			row.Active = true
			row.Progress = info.Progress
		}
		d.Periods = append(d.Periods, row)
	}

	return d, nil
}

func millis(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}

// ScheduleView расписание для списка /api/schedules и CLI
type ScheduleView struct {
	Kind domain.ScheduleKind `json:"kind"`
	domain.Schedule
}

// Schedules возвращает все зарегистрированные расписания
func (s *TickerService) Schedules() []ScheduleView {
	kinds := s.registry.Kinds()
	views := make([]ScheduleView, 0, len(kinds))
	for _, kind := range kinds {
		schedule, err := s.registry.GetSchedule(kind)
		if err != nil {
			continue
		}
		views = append(views, ScheduleView{Kind: kind, Schedule: schedule})
	}
	return views
}

// ResolveKind выбирает расписание: явный запрос, затем cookie, затем сохранённый выбор клиента.
// Некорректные значения пропускаются, в конце используется расписание по умолчанию.
func (s *TickerService) ResolveKind(clientID, cookie, requested string) domain.ScheduleKind {
	for _, candidate := range []string{requested, cookie} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if kind, err := domain.ParseScheduleKind(candidate); err == nil {
			return kind
		}
	}

	if clientID != "" && s.prefs != nil {
		kind, err := s.prefs.GetPreference(clientID)
		switch {
		case err == nil:
			if _, err := s.registry.GetSchedule(kind); err == nil {
				return kind
			}
		case !errors.Is(err, ErrPreferenceNotFound):
			s.log.Warn().Err(err).Str("client_id", clientID).Msg("не удалось прочитать выбор расписания")
		}
	}

	return s.defaultKind
}

// SavePreference сохраняет выбор расписания клиента
func (s *TickerService) SavePreference(clientID string, raw string) (domain.ScheduleKind, error) {
	kind, err := domain.ParseScheduleKind(raw)
	if err != nil {
		return "", err
	}
	if _, err := s.registry.GetSchedule(kind); err != nil {
		return "", err
	}
	if clientID == "" || s.prefs == nil {
		return kind, nil
	}
	if err := s.prefs.SetPreference(clientID, kind); err != nil {
		return "", fmt.Errorf("не удалось сохранить выбор расписания: %w", err)
	}
	return kind, nil
}

// ResetPreference удаляет сохранённый выбор клиента и возвращает расписание по умолчанию
func (s *TickerService) ResetPreference(clientID string) (domain.ScheduleKind, error) {
	if clientID == "" || s.prefs == nil {
		return s.defaultKind, nil
	}
	if err := s.prefs.DeletePreference(clientID); err != nil && !errors.Is(err, ErrPreferenceNotFound) {
		return "", fmt.Errorf("не удалось сбросить выбор расписания: %w", err)
	}
	return s.defaultKind, nil
}

// CheckPreferences читает хранилище целиком: повреждённый файл обнаруживается при старте,
// а не на первом запросе. Возвращает число сохранённых выборов.
func (s *TickerService) CheckPreferences() (int, error) {
	if s.prefs == nil {
		return 0, nil
	}
	prefs, err := s.prefs.LoadPreferences()
	if err != nil {
		return 0, fmt.Errorf("хранилище выбора расписания: %w", err)
	}
	for client, kind := range prefs {
		if _, err := domain.ParseScheduleKind(string(kind)); err != nil {
			s.log.Warn().Str("client_id", client).Str("schedule", string(kind)).Msg("сохранён неизвестный вариант расписания, будет использован вариант по умолчанию")
		}
	}
	return len(prefs), nil
}
