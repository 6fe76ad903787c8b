package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/Vaflel/bell-ticker/usecases"
	"gopkg.in/yaml.v3"
)

// Preference выбор расписания одного клиента
type Preference struct {
	Client   string              `yaml:"client"`
	Schedule domain.ScheduleKind `yaml:"schedule"`
	Updated  time.Time           `yaml:"updated"`
}

// PreferencesConfig структура для загрузки из YAML
type PreferencesConfig struct {
	Preferences []Preference `yaml:"preferences"`
}

// YAMLPreferenceRepository реализует PreferenceRepository для работы с YAML-файлом
type YAMLPreferenceRepository struct {
	filename string
	mutex    sync.RWMutex
	now      func() time.Time
}

// NewYAMLPreferenceRepository создает новый экземпляр репозитория
func NewYAMLPreferenceRepository(filename string) *YAMLPreferenceRepository {
	return &YAMLPreferenceRepository{
		filename: filename,
		now:      time.Now,
	}
}

// LoadPreferences загружает все сохранённые выборы
func (r *YAMLPreferenceRepository) LoadPreferences() (map[string]domain.ScheduleKind, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	prefs, err := r.loadPreferencesUnsafe()
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.ScheduleKind, len(prefs))
	for _, p := range prefs {
		result[p.Client] = p.Schedule
	}
	return result, nil
}

// GetPreference возвращает выбор клиента
func (r *YAMLPreferenceRepository) GetPreference(clientID string) (domain.ScheduleKind, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	prefs, err := r.loadPreferencesUnsafe()
	if err != nil {
		return "", err
	}

	for _, p := range prefs {
		if p.Client == clientID {
			return p.Schedule, nil
		}
	}

	return "", fmt.Errorf("клиент %s: %w", clientID, usecases.ErrPreferenceNotFound)
}

// SetPreference добавляет или обновляет выбор клиента
func (r *YAMLPreferenceRepository) SetPreference(clientID string, kind domain.ScheduleKind) error {
	if clientID == "" {
		return errors.New("пустой идентификатор клиента")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	prefs, err := r.loadPreferencesUnsafe()
	if err != nil {
		return err
	}

	entry := Preference{Client: clientID, Schedule: kind, Updated: r.now().UTC()}
	for i, p := range prefs {
		if p.Client == clientID {
			prefs[i] = entry
			return r.savePreferencesUnsafe(prefs)
		}
	}

	prefs = append(prefs, entry)
	return r.savePreferencesUnsafe(prefs)
}

// DeletePreference удаляет выбор клиента
func (r *YAMLPreferenceRepository) DeletePreference(clientID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	prefs, err := r.loadPreferencesUnsafe()
	if err != nil {
		return err
	}

	for i, p := range prefs {
		if p.Client == clientID {
			prefs = append(prefs[:i], prefs[i+1:]...)
			return r.savePreferencesUnsafe(prefs)
		}
	}

	return fmt.Errorf("клиент %s: %w", clientID, usecases.ErrPreferenceNotFound)
}

// loadPreferencesUnsafe загружает выборы без блокировки; отсутствующий файл это пустой список
func (r *YAMLPreferenceRepository) loadPreferencesUnsafe() ([]Preference, error) {
	data, err := os.ReadFile(r.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл: %w", err)
	}

	var config PreferencesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("не удалось распарсить YAML: %w", err)
	}

	return config.Preferences, nil
}

// savePreferencesUnsafe сохраняет выборы через временный файл без блокировки
func (r *YAMLPreferenceRepository) savePreferencesUnsafe(prefs []Preference) error {
	sort.Slice(prefs, func(i, j int) bool { return prefs[i].Client < prefs[j].Client })

	data, err := yaml.Marshal(PreferencesConfig{Preferences: prefs})
	if err != nil {
		return fmt.Errorf("не удалось сериализовать YAML: %w", err)
	}

	if dir := filepath.Dir(r.filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("не удалось создать каталог: %w", err)
		}
	}

	tmp := r.filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("не удалось записать файл: %w", err)
	}
	if err := os.Rename(tmp, r.filename); err != nil {
		return fmt.Errorf("не удалось записать файл: %w", err)
	}

	return nil
}
