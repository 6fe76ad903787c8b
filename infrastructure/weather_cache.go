package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/Vaflel/bell-ticker/metrics"
	"github.com/Vaflel/bell-ticker/usecases"
	"github.com/rs/zerolog"
)

// WeatherCache представляет объект кэша для хранения погоды в оперативной памяти.
// Кэш хранит погоду по ключу координат с временем истечения.
// Доступ к кэшу синхронизирован с помощью мьютекса.
type WeatherCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]struct {
		weather domain.Weather
		expiry  time.Time // Время истечения кэша для записи
	}
}

// NewWeatherCache создаёт новый экземпляр кэша погоды
func NewWeatherCache(ttl time.Duration) *WeatherCache {
	return &WeatherCache{
		ttl: ttl,
		now: time.Now,
		data: make(map[string]struct {
			weather domain.Weather
			expiry  time.Time
		}),
	}
}

// Get возвращает погоду, если запись существует и не истекла.
// Истёкшая запись удаляется.
func (c *WeatherCache) Get(key string) (domain.Weather, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists {
		return domain.Weather{}, false
	}

	if c.now().After(entry.expiry) {
		delete(c.data, key)
		return domain.Weather{}, false
	}

	return entry.weather, true
}

// Set сохраняет погоду в кэш на ttl
func (c *WeatherCache) Set(key string, weather domain.Weather) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = struct {
		weather domain.Weather
		expiry  time.Time
	}{
		weather: weather,
		expiry:  c.now().Add(c.ttl),
	}
}

// CachedWeatherProvider оборачивает провайдера погоды кэшем.
// Координаты округляются до сотых, чтобы соседние запросы попадали в одну запись.
type CachedWeatherProvider struct {
	next  usecases.WeatherProvider
	cache *WeatherCache
	log   zerolog.Logger
}

// NewCachedWeatherProvider создаёт провайдера с кэшем на ttl
func NewCachedWeatherProvider(next usecases.WeatherProvider, ttl time.Duration, log zerolog.Logger) *CachedWeatherProvider {
	return &CachedWeatherProvider{
		next:  next,
		cache: NewWeatherCache(ttl),
		log:   log,
	}
}

// Current возвращает погоду из кэша или запрашивает её у провайдера
func (p *CachedWeatherProvider) Current(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	if weather, ok := p.cache.Get(key); ok {
		return weather, nil
	}

	p.log.Info().Float64("lat", lat).Float64("lon", lon).Msg("запрос погоды")

	weather, err := p.next.Current(ctx, lat, lon)
	if err != nil {
		return domain.Weather{}, err
	}

	p.cache.Set(key, weather)
	return weather, nil
}

// MeteredWeatherProvider считает обращения к внешнему API погоды.
// Ставится под кэш, поэтому попадания в кэш не учитываются.
type MeteredWeatherProvider struct {
	next    usecases.WeatherProvider
	metrics *metrics.Metrics
}

func NewMeteredWeatherProvider(next usecases.WeatherProvider, m *metrics.Metrics) *MeteredWeatherProvider {
	return &MeteredWeatherProvider{next: next, metrics: m}
}

func (p *MeteredWeatherProvider) Current(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	weather, err := p.next.Current(ctx, lat, lon)
	p.metrics.Upstream("openweathermap", err)
	return weather, err
}
