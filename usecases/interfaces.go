package usecases

import (
	"context"
	"errors"

	"github.com/Vaflel/bell-ticker/domain"
)

// ErrPreferenceNotFound для клиента нет сохранённого выбора расписания
var ErrPreferenceNotFound = errors.New("preference not found")

// PreferenceRepository определяет интерфейс для хранилища выбора расписания по клиентам
type PreferenceRepository interface {
	LoadPreferences() (map[string]domain.ScheduleKind, error)
	GetPreference(clientID string) (domain.ScheduleKind, error)
	SetPreference(clientID string, kind domain.ScheduleKind) error
	DeletePreference(clientID string) error
}

// WeatherProvider источник текущей погоды по координатам
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (domain.Weather, error)
}

// ChatProvider языковая модель за прокси чата
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, messages []domain.ChatMessage) (domain.ChatMessage, error)
}
