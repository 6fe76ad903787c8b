package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Vaflel/bell-ticker/domain"
)

// ErrWeatherNotConfigured не задан ключ OpenWeatherMap
var ErrWeatherNotConfigured = errors.New("weather api key is not configured")

// openWeatherResponse нужная часть ответа OpenWeatherMap
type openWeatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
		Icon string `json:"icon"`
	} `json:"weather"`
}

// OpenWeatherClient получает текущую погоду из OpenWeatherMap
type OpenWeatherClient struct {
	apiKey  string
	baseURL string
	units   string
	client  *http.Client
}

// NewOpenWeatherClient создаёт клиента; units "imperial" или "metric"
func NewOpenWeatherClient(apiKey, baseURL, units string, timeout time.Duration) *OpenWeatherClient {
	if units == "" {
		units = "imperial"
	}
	return &OpenWeatherClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		units:   units,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *OpenWeatherClient) createRequest(ctx context.Context, lat, lon float64) (*http.Request, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("неверный адрес погоды: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", c.units)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Current возвращает погоду с округлённой температурой
func (c *OpenWeatherClient) Current(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	if c.apiKey == "" {
		return domain.Weather{}, ErrWeatherNotConfigured
	}

	req, err := c.createRequest(ctx, lat, lon)
	if err != nil {
		return domain.Weather{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Weather{}, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Weather{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Weather{}, fmt.Errorf("Weather API error: %d - %s", resp.StatusCode, truncate(string(bodyBytes), 200))
	}

	var data openWeatherResponse
	if err := json.Unmarshal(bodyBytes, &data); err != nil {
		return domain.Weather{}, fmt.Errorf("JSON parsing error: %w (first 200 chars: %s)", err, truncate(string(bodyBytes), 200))
	}
	if len(data.Weather) == 0 {
		return domain.Weather{}, errors.New("в ответе погоды нет условий")
	}

	return domain.Weather{
		Temp:      int(math.Round(data.Main.Temp)),
		Condition: data.Weather[0].Main,
		Icon:      data.Weather[0].Icon,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
