package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Vaflel/bell-ticker/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidMessages пустой или некорректный список сообщений
	ErrInvalidMessages = errors.New("valid messages array is required")
	// ErrRateLimited клиент превысил лимит запросов к чату
	ErrRateLimited = errors.New("too many chat requests")
	// ErrChatUnavailable провайдер чата не настроен
	ErrChatUnavailable = errors.New("chat provider is not configured")
)

const maxHistory = 20

// limiterIdleTTL после стольких минут без запросов корзина клиента удаляется
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter ограничивает частоту запросов по ключу клиента (адрес или идентификатор)
type ClientLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	every     time.Duration
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewClientLimiter perMinute запросов в минуту на клиента, 0 отключает ограничение
func NewClientLimiter(perMinute int) *ClientLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ClientLimiter{
		limiters: make(map[string]*limiterEntry),
		every:    time.Minute / time.Duration(perMinute),
		burst:    perMinute,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
	}
}

// Allow расходует один токен клиента
func (l *ClientLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Len число отслеживаемых клиентов
func (l *ClientLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// sweep удаляет корзины, простаивающие дольше idleTTL. Вызывается под mu.
func (l *ClientLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// ChatService проверяет историю, добавляет системную подсказку и вызывает провайдера
type ChatService struct {
	provider     ChatProvider
	systemPrompt string
	limiter      *ClientLimiter
	log          zerolog.Logger
}

// NewChatService provider может быть nil, тогда чат недоступен
func NewChatService(provider ChatProvider, systemPrompt string, limiter *ClientLimiter, log zerolog.Logger) *ChatService {
	return &ChatService{
		provider:     provider,
		systemPrompt: systemPrompt,
		limiter:      limiter,
		log:          log,
	}
}

// Reply возвращает ответ ассистента на историю сообщений.
// clientKey ключ лимита запросов, обычно адрес клиента.
func (s *ChatService) Reply(ctx context.Context, clientKey string, messages []domain.ChatMessage) (domain.ChatMessage, error) {
	history, err := sanitizeMessages(messages)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if s.provider == nil {
		return domain.ChatMessage{}, ErrChatUnavailable
	}
	if !s.limiter.Allow(clientKey) {
		return domain.ChatMessage{}, ErrRateLimited
	}

	prompt := make([]domain.ChatMessage, 0, len(history)+1)
	if s.systemPrompt != "" {
		prompt = append(prompt, domain.ChatMessage{Role: domain.RoleSystem, Content: s.systemPrompt})
	}
	prompt = append(prompt, history...)

	s.log.Info().
		Str("provider", s.provider.Name()).
		Int("messages", len(history)).
		Msg("запрос к чату")

	reply, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%s: %w", s.provider.Name(), err)
	}
	if reply.Role == "" {
		reply.Role = domain.RoleAssistant
	}
	return reply, nil
}

// sanitizeMessages отбрасывает системные сообщения клиента и оставляет последние maxHistory
func sanitizeMessages(messages []domain.ChatMessage) ([]domain.ChatMessage, error) {
	if len(messages) == 0 {
		return nil, ErrInvalidMessages
	}

	out := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		switch role {
		case domain.RoleUser, domain.RoleAssistant:
			out = append(out, domain.ChatMessage{Role: role, Content: content})
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidMessages
	}
	if len(out) > maxHistory {
		out = out[len(out)-maxHistory:]
	}
	return out, nil
}
