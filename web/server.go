package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/Vaflel/bell-ticker/metrics"
	"github.com/Vaflel/bell-ticker/usecases"
)

// Options настройки HTTP-сервера
type Options struct {
	Addr           string
	AllowedOrigins []string
	TickInterval   time.Duration
	DefaultLat     float64
	DefaultLon     float64
}

// Deps зависимости сервера
type Deps struct {
	Ticker  *usecases.TickerService
	Chat    *usecases.ChatService
	Weather usecases.WeatherProvider
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

type Server struct {
	ticker  *usecases.TickerService
	chat    *usecases.ChatService
	weather usecases.WeatherProvider
	metrics *metrics.Metrics
	log     zerolog.Logger
	opts    Options
	router  chi.Router
	server  *http.Server
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type PreferenceRequest struct {
	Schedule string `json:"schedule"`
}

type WeatherRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type ChatRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

func NewServer(deps Deps, opts Options) *Server {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	s := &Server{
		ticker:  deps.Ticker,
		chat:    deps.Chat,
		weather: deps.Weather,
		metrics: deps.Metrics,
		log:     deps.Log,
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.clientIdentity)

	static, _ := fs.Sub(assets, "static")

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/ws", s.handleTicks)

	r.Route("/api", func(r chi.Router) {
		r.Get("/time", s.handleTime)
		r.Get("/schedules", s.handleSchedules)
		r.Post("/preference", s.handlePreference)
		r.Delete("/preference", s.handleResetPreference)

		// погода и чат доступны и с других страниц, как у исходных функций
		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: s.opts.AllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
				MaxAge:         300,
			}))
			r.Get("/weather", s.handleWeather)
			r.Post("/weather", s.handleWeather)
			r.Options("/weather", func(w http.ResponseWriter, r *http.Request) {})
			r.Post("/chat", s.handleChat)
			r.Options("/chat", func(w http.ResponseWriter, r *http.Request) {})
		})
	})

	return r
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", s.opts.Addr).Msg("🚀 Сервер запущен")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info().Msg("Завершение работы сервера...")
	return s.server.Shutdown(ctx)
}

// scheduleFor выбирает расписание по запросу, cookie и сохранённому выбору клиента
func (s *Server) scheduleFor(r *http.Request) domain.ScheduleKind {
	cookie := ""
	if c, err := r.Cookie(usecases.PreferenceKey); err == nil {
		cookie = c.Value
	}
	return s.ticker.ResolveKind(clientID(r.Context()), cookie, "")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFS(assets, "templates/index.html")
	if err != nil {
		s.log.Error().Err(err).Msg("Ошибка загрузки шаблона")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	kind := s.scheduleFor(r)
	if q := r.URL.Query().Get("schedule"); q != "" {
		if parsed, err := domain.ParseScheduleKind(q); err == nil {
			kind = parsed
		}
	}

	dashboard, err := s.ticker.Current(kind)
	if err != nil {
		s.log.Error().Err(err).Msg("Ошибка расчёта расписания")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	view, err := RenderDashboard(dashboard)
	if err != nil {
		s.log.Error().Err(err).Msg("Ошибка рендеринга панели")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	data := struct {
		Schedule     domain.ScheduleKind
		Clock        string
		Date         string
		Dashboard    template.HTML
		TickInterval int64
	}{
		Schedule:     kind,
		Clock:        dashboard.Clock,
		Date:         dashboard.Date,
		Dashboard:    template.HTML(view),
		TickInterval: s.opts.TickInterval.Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("Ошибка рендеринга шаблона")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	kind := s.scheduleFor(r)
	if q := r.URL.Query().Get("schedule"); q != "" {
		parsed, err := domain.ParseScheduleKind(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Unknown schedule", Details: err.Error()})
			return
		}
		kind = parsed
	}

	dashboard, err := s.ticker.Current(kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Unknown schedule", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ticker.Schedules())
}

func (s *Server) handlePreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	kind, err := s.ticker.SavePreference(clientID(r.Context()), req.Schedule)
	switch {
	case errors.Is(err, domain.ErrInvalidScheduleKind):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Unknown schedule", Details: err.Error()})
		return
	case err != nil:
		s.log.Error().Err(err).Msg("Ошибка сохранения выбора расписания")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to save preference"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     usecases.PreferenceKey,
		Value:    string(kind),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, PreferenceRequest{Schedule: string(kind)})
}

// handleResetPreference забывает выбор клиента и возвращает расписание по умолчанию
func (s *Server) handleResetPreference(w http.ResponseWriter, r *http.Request) {
	kind, err := s.ticker.ResetPreference(clientID(r.Context()))
	if err != nil {
		s.log.Error().Err(err).Msg("Ошибка сброса выбора расписания")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to reset preference"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     usecases.PreferenceKey,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, PreferenceRequest{Schedule: string(kind)})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, lon := s.opts.DefaultLat, s.opts.DefaultLon

	if r.Method == http.MethodPost {
		var req WeatherRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lat == nil || req.Lon == nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Latitude and longitude are required"})
			return
		}
		lat, lon = *req.Lat, *req.Lon
	} else if q := r.URL.Query(); q.Get("lat") != "" || q.Get("lon") != "" {
		var errLat, errLon error
		lat, errLat = strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon = strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Latitude and longitude are required"})
			return
		}
	}

	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Latitude and longitude are out of range"})
		return
	}
	if s.weather == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch weather data", Details: "weather is not configured"})
		return
	}

	weather, err := s.weather.Current(r.Context(), lat, lon)
	if err != nil {
		s.log.Error().Err(err).Msg("Ошибка получения погоды")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch weather data", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, weather)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Valid messages array is required"})
		return
	}
	if s.chat == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to get response from AI", Details: usecases.ErrChatUnavailable.Error()})
		return
	}

	// лимит по адресу: без cookie клиент получил бы новую корзину на каждый запрос
	reply, err := s.chat.Reply(r.Context(), clientIP(r), req.Messages)
	switch {
	case err == nil:
		s.metrics.Upstream("chat", nil)
		writeJSON(w, http.StatusOK, ChatResponse{Message: reply.Content, Role: reply.Role})
	case errors.Is(err, usecases.ErrInvalidMessages):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Valid messages array is required"})
	case errors.Is(err, usecases.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, slow down"})
	default:
		if !errors.Is(err, usecases.ErrChatUnavailable) {
			s.metrics.Upstream("chat", err)
		}
		s.log.Error().Err(err).Msg("Ошибка чата")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to get response from AI", Details: err.Error()})
	}
}

// handleTicks раз в TickInterval отправляет снимок панели, пока клиент подключён
func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	kind := s.scheduleFor(r)
	if q := r.URL.Query().Get("schedule"); q != "" {
		parsed, err := domain.ParseScheduleKind(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Unknown schedule", Details: err.Error()})
			return
		}
		kind = parsed
	}

	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.log.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.metrics.TickSubscribers.Inc()
	defer s.metrics.TickSubscribers.Dec()

	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		dashboard, err := s.ticker.Current(kind)
		if err != nil {
			conn.Close(websocket.StatusInternalError, err.Error())
			return
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = wsjson.Write(writeCtx, conn, dashboard)
		cancel()
		if err != nil {
			s.log.Debug().Err(err).Msg("tick write error")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	for _, origin := range s.opts.AllowedOrigins {
		if origin == "*" {
			return &websocket.AcceptOptions{OriginPatterns: []string{"*"}}
		}
	}
	patterns := make([]string, 0, len(s.opts.AllowedOrigins))
	for _, origin := range s.opts.AllowedOrigins {
		origin = strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		patterns = append(patterns, origin)
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
