package assistant

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spektr-org/tablero/metrics"
	"github.com/spektr-org/tablero/render"
	"github.com/spektr-org/tablero/store"
)

// ============================================================================
// SERVICE - mode → prompt → (cache | limiter → provider) → reply
// ============================================================================

var (
	// ErrEmptyInput is returned for blank input.
	ErrEmptyInput = errors.New("input is empty")

	// ErrRateLimited is returned when the call budget is exhausted.
	ErrRateLimited = errors.New("too many requests, try again shortly")

	// ErrProvider wraps every failure of the model call.
	ErrProvider = errors.New("language model request failed")
)

const (
	// HintEmptyInput is shown before anything has been asked.
	HintEmptyInput = "✍️ Escribe lo que necesites y elige el modo de asistencia."

	// WarningNoEvents is attached to schedule replies nothing could be parsed from.
	WarningNoEvents = "No se pudieron extraer eventos estructurados. Intenta ingresar más detalles."
)

// Reply is the outcome of one generation.
type Reply struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Markdown  string    `json:"markdown"`
	HTML      string    `json:"html"`
	Events    []Event   `json:"events,omitempty"`
	Notice    string    `json:"notice,omitempty"`
	Cached    bool      `json:"cached"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service runs generations. Safe for concurrent use.
type Service struct {
	provider Provider
	model    string

	store      store.Store
	cacheTTL   time.Duration
	historyMax int
	limiter    *rate.Limiter
	timeout    time.Duration
	maxTokens  int

	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore enables the reply cache and session history.
func WithStore(s store.Store, cacheTTL time.Duration, historyMax int) ServiceOption {
	return func(svc *Service) {
		svc.store = s
		svc.cacheTTL = cacheTTL
		svc.historyMax = historyMax
	}
}

// WithRateLimit allows perSecond calls with the given burst. 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) ServiceOption {
	return func(svc *Service) {
		if perSecond <= 0 {
			svc.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		svc.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) ServiceOption {
	return func(svc *Service) { svc.timeout = d }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) ServiceOption {
	return func(svc *Service) { svc.maxTokens = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(svc *Service) { svc.logger = logger }
}

// WithMetrics records generation counters and durations.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(svc *Service) { svc.metrics = m }
}

// NewService creates a Service for a provider and model name.
func NewService(provider Provider, model string, opts ...ServiceOption) *Service {
	svc := &Service{
		provider: provider,
		model:    model,
		timeout:  30 * time.Second,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// GenerateOption adjusts a single generation.
type GenerateOption func(*generateConfig)

type generateConfig struct {
	session string
	plan    StudyPlan
}

// ForSession records the generation in the session's history.
func ForSession(session string) GenerateOption {
	return func(c *generateConfig) { c.session = session }
}

// WithStudyPlan sets the study-plan constraints.
func WithStudyPlan(plan StudyPlan) GenerateOption {
	return func(c *generateConfig) { c.plan = plan }
}

// Generate runs one generation: exactly one model call unless the reply
// is cached.
func (s *Service) Generate(ctx context.Context, mode Mode, input string, opts ...GenerateOption) (*Reply, error) {
	var cfg generateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	prompt, err := BuildPrompt(mode, input, cfg.plan)
	if err != nil {
		return nil, err
	}

	key := CacheKey(mode, s.model, prompt)
	markdown, cached := s.lookup(ctx, key)
	model := s.model

	if cached {
		s.count(mode, "cached")
	} else {
		if s.limiter != nil && !s.limiter.Allow() {
			s.count(mode, "rate_limited")
			return nil, ErrRateLimited
		}

		resp, err := s.complete(ctx, mode, prompt)
		if err != nil {
			s.count(mode, "error")
			s.logger.Error("❌ generation failed", zap.String("mode", string(mode)), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		markdown = resp.Content
		if resp.Model != "" {
			model = resp.Model
		}

		if s.store != nil {
			if err := s.store.PutReply(ctx, key, markdown, s.cacheTTL); err != nil {
				s.logger.Warn("⚠️ reply not cached", zap.Error(err))
			}
		}
		s.count(mode, "ok")
	}

	reply := &Reply{
		ID:        uuid.NewString(),
		Mode:      mode,
		Markdown:  markdown,
		Cached:    cached,
		Model:     model,
		CreatedAt: s.now(),
	}

	html, err := render.Markdown(markdown)
	if err != nil {
		s.logger.Warn("⚠️ markdown render failed", zap.Error(err))
	}
	reply.HTML = html

	if mode.Structured() {
		reply.Events = ParseSchedule(markdown)
		if len(reply.Events) == 0 {
			reply.Notice = WarningNoEvents
		}
	}

	s.remember(ctx, cfg.session, input, reply)

	s.logger.Info("✅ generation complete",
		zap.String("id", reply.ID),
		zap.String("mode", string(mode)),
		zap.Bool("cached", cached),
		zap.Int("events", len(reply.Events)))

	return reply, nil
}

// History returns a session's past generations, newest first.
func (s *Service) History(ctx context.Context, session string, limit int) ([]store.HistoryEntry, error) {
	if s.store == nil || session == "" {
		return []store.HistoryEntry{}, nil
	}
	return s.store.History(ctx, session, limit)
}

// CacheKey identifies a reply by mode, model and full prompt.
func CacheKey(mode Mode, model, prompt string) string {
	sum := sha256.Sum256([]byte(string(mode) + "\x00" + model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

func (s *Service) lookup(ctx context.Context, key string) (string, bool) {
	if s.store == nil || s.cacheTTL <= 0 {
		return "", false
	}
	reply, ok, err := s.store.GetReply(ctx, key)
	if err != nil {
		s.logger.Warn("⚠️ cache lookup failed", zap.Error(err))
		return "", false
	}
	if ok && s.metrics != nil {
		s.metrics.CacheHits.Inc()
	}
	return reply, ok
}

func (s *Service) complete(ctx context.Context, mode Mode, prompt string) (*Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Debug("🔄 calling model",
		zap.String("mode", string(mode)),
		zap.String("model", s.model),
		zap.Int("prompt_bytes", len(prompt)))

	start := time.Now()
	resp, err := s.provider.Complete(ctx, Request{Prompt: prompt, Model: s.model, MaxTokens: s.maxTokens})
	if s.metrics != nil {
		s.metrics.GenerationDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}
	return resp, err
}

func (s *Service) remember(ctx context.Context, session, input string, reply *Reply) {
	if s.store == nil || session == "" {
		return
	}
	entry := store.HistoryEntry{
		ID:        reply.ID,
		Mode:      string(reply.Mode),
		Input:     input,
		Markdown:  reply.Markdown,
		Events:    len(reply.Events),
		Cached:    reply.Cached,
		CreatedAt: reply.CreatedAt,
	}
	if err := s.store.AppendHistory(ctx, session, entry, s.historyMax); err != nil {
		s.logger.Warn("⚠️ history not saved", zap.String("session", session), zap.Error(err))
	}
}

func (s *Service) count(mode Mode, outcome string) {
	if s.metrics != nil {
		s.metrics.Generations.WithLabelValues(string(mode), outcome).Inc()
	}
}
