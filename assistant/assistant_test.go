package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	lcschema "github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/tablero/config"
	"github.com/spektr-org/tablero/metrics"
	"github.com/spektr-org/tablero/schema"
	"github.com/spektr-org/tablero/store"
)

const agendaReply = `Aquí tienes tu agenda:
**Lunes:**
- 9:00am: Revisar correos
- 10:00am: Estudiar inglés

MIÉRCOLES:
- 7:00am: Ejercicio`

// ============================================================================
// SCHEDULE PARSING
// ============================================================================

func TestParseSchedule(t *testing.T) {
	events := ParseSchedule(agendaReply)
	require.Len(t, events, 4)

	assert.Equal(t, Event{Day: "", Activity: "Aquí tienes tu agenda:"}, events[0])
	assert.Equal(t, Event{Day: "Lunes", Activity: "- 9:00am: Revisar correos"}, events[1])
	assert.Equal(t, "- 10:00am: Estudiar inglés", events[2].Activity)
	assert.Equal(t, Event{Day: "Miércoles", Activity: "- 7:00am: Ejercicio"}, events[3])
}

func TestParseScheduleNoDays(t *testing.T) {
	assert.Empty(t, ParseSchedule(""))
	assert.Empty(t, ParseSchedule("\n   \n"))

	events := ParseSchedule("Hola, ¿en qué te ayudo?")
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Day)
}

func TestEventsTable(t *testing.T) {
	table := EventsTable("📋 Calendario Interactivo:", []Event{{Day: "Lunes", Activity: "- Correo"}})
	assert.Equal(t, []string{"Día", "Actividad"}, table.Headers())
	assert.Equal(t, [][]string{{"Lunes", "- Correo"}}, table.Rows)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Sábado", capitalize("SÁBADO"))
	assert.Equal(t, "", capitalize(""))
}

// ============================================================================
// MODES + PROMPTS
// ============================================================================

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"chat", ModeChat},
		{"AGENDA", ModeAgenda},
		{"Organizar mi semana", ModeAgenda},
		{" Plan de estudio ", ModeStudyPlan},
		{"study_plan", ModeStudyPlan},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseMode("poesía")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestModeProperties(t *testing.T) {
	assert.Equal(t, "Chat General", ModeChat.Label())
	assert.False(t, ModeChat.Structured())
	assert.True(t, ModeAgenda.Structured())
	assert.True(t, ModeStudyPlan.Structured())
	assert.Len(t, Modes(), 3)
}

func TestBuildPrompt(t *testing.T) {
	p, err := BuildPrompt(ModeChat, "¿Qué es un DataFrame?", StudyPlan{})
	require.NoError(t, err)
	assert.Equal(t, "¿Qué es un DataFrame?", p)

	p, err = BuildPrompt(ModeAgenda, "gimnasio y clases", StudyPlan{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "Tengo estas actividades, compromisos o ideas para esta semana: gimnasio y clases\n\n"))
	assert.Contains(t, p, "de lunes a domingo")
	assert.Contains(t, p, "Lunes:\n- 9:00am: Revisar correos")

	p, err = BuildPrompt(ModeStudyPlan, "cálculo", StudyPlan{HoursPerDay: 2.5, RestDay: "Sábado"})
	require.NoError(t, err)
	assert.Contains(t, p, "Tengo 2.5 horas disponibles por día, prefiero sesiones de máximo 1 hora(s) y mi día de descanso es el sábado.")

	_, err = BuildPrompt(Mode("x"), "a", StudyPlan{})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

// ============================================================================
// SERVICE
// ============================================================================

func newTestService(t *testing.T, provider Provider, opts ...ServiceOption) (*Service, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	opts = append([]ServiceOption{WithStore(mem, time.Hour, 10)}, opts...)
	return NewService(provider, "mock-model", opts...), mem
}

func TestServiceGenerateAgenda(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: agendaReply})
	svc, _ := newTestService(t, mock, WithMaxTokens(512))

	reply, err := svc.Generate(context.Background(), ModeAgenda, "gimnasio", ForSession("s1"))
	require.NoError(t, err)

	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, ModeAgenda, reply.Mode)
	assert.False(t, reply.Cached)
	assert.Equal(t, "mock", reply.Model)
	assert.Len(t, reply.Events, 4)
	assert.Empty(t, reply.Notice)
	assert.Contains(t, reply.HTML, "<li>9:00am: Revisar correos</li>")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "mock-model", calls[0].Model)
	assert.Equal(t, 512, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "gimnasio")
}

func TestServiceCachesReplies(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "Hola"})
	m := metrics.New()
	svc, _ := newTestService(t, mock, WithMetrics(m))

	before := testutil.ToFloat64(m.CacheHits)

	first, err := svc.Generate(context.Background(), ModeChat, "hola")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), ModeChat, "hola")
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Markdown, second.Markdown)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, mock.Calls(), 1, "second call served from cache")
	assert.Equal(t, before+1, testutil.ToFloat64(m.CacheHits))

	_, err = svc.Generate(context.Background(), ModeAgenda, "hola")
	require.NoError(t, err)
	assert.Len(t, mock.Calls(), 2, "different mode, different key")
}

func TestServiceEmptyInput(t *testing.T) {
	mock := NewMockProvider()
	svc, _ := newTestService(t, mock)

	_, err := svc.Generate(context.Background(), ModeChat, "   \n")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, mock.Calls())
}

func TestServiceUnknownMode(t *testing.T) {
	svc, _ := newTestService(t, NewMockProvider())
	_, err := svc.Generate(context.Background(), Mode("haiku"), "hola")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestServiceRateLimited(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: "ok"})
	svc := NewService(mock, "mock-model", WithRateLimit(0.001, 1))

	_, err := svc.Generate(context.Background(), ModeChat, "uno")
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), ModeChat, "dos")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, mock.Calls(), 1)
}

func TestServiceProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	core, logs := observer.New(zap.ErrorLevel)
	svc := NewService(NewMockProvider(MockResponse{Err: boom}), "mock-model", WithLogger(zap.New(core)))

	_, err := svc.Generate(context.Background(), ModeChat, "hola")
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, logs.FilterMessage("❌ generation failed").Len())
}

func TestServiceTimeout(t *testing.T) {
	svc := NewService(slowProvider{}, "mock-model", WithTimeout(10*time.Millisecond))
	_, err := svc.Generate(context.Background(), ModeChat, "hola")
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServiceNoEventsNotice(t *testing.T) {
	svc := NewService(NewMockProvider(MockResponse{Content: "   "}), "mock-model")
	reply, err := svc.Generate(context.Background(), ModeStudyPlan, "física")
	require.NoError(t, err)
	assert.Empty(t, reply.Events)
	assert.Equal(t, WarningNoEvents, reply.Notice)

	chat, err := svc.Generate(context.Background(), ModeChat, "física")
	require.NoError(t, err)
	assert.Empty(t, chat.Notice, "chat replies are never parsed")
}

func TestServiceHistory(t *testing.T) {
	svc, _ := newTestService(t, NewMockProvider(MockResponse{Content: agendaReply}))
	ctx := context.Background()

	_, err := svc.Generate(ctx, ModeChat, "primero", ForSession("s1"))
	require.NoError(t, err)
	_, err = svc.Generate(ctx, ModeAgenda, "segundo", ForSession("s1"))
	require.NoError(t, err)
	_, err = svc.Generate(ctx, ModeChat, "otra sesión", ForSession("s2"))
	require.NoError(t, err)
	_, err = svc.Generate(ctx, ModeChat, "sin sesión")
	require.NoError(t, err)

	history, err := svc.History(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "segundo", history[0].Input)
	assert.Equal(t, 4, history[0].Events)
	assert.Equal(t, "primero", history[1].Input)

	bare := NewService(NewMockProvider(), "m")
	empty, err := bare.History(ctx, "s1", 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(ModeChat, "gemini-1.5-flash", "hola")
	assert.Len(t, a, 64)
	assert.Equal(t, a, CacheKey(ModeChat, "gemini-1.5-flash", "hola"))
	assert.NotEqual(t, a, CacheKey(ModeChat, "claude", "hola"))
	assert.NotEqual(t, a, CacheKey(ModeAgenda, "gemini-1.5-flash", "hola"))
}

type slowProvider struct{}

func (slowProvider) Complete(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// ============================================================================
// PROVIDERS
// ============================================================================

type fakeLLM struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	reply    *llms.ContentResponse
	err      error
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.reply, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGeminiProviderComplete(t *testing.T) {
	llm := &fakeLLM{reply: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "Lunes:\n- Descanso"}}}}
	p := NewGeminiProviderWithModel(llm, "")
	assert.Equal(t, "gemini-1.5-flash", p.Model())

	resp, err := p.Complete(context.Background(), Request{
		Prompt:       "organiza",
		SystemPrompt: "Eres un asistente.",
		Model:        "gemini-1.5-pro",
		MaxTokens:    100,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lunes:\n- Descanso", resp.Content)
	assert.Equal(t, "gemini-1.5-pro", resp.Model)

	require.Len(t, llm.messages, 1)
	assert.Equal(t, lcschema.ChatMessageTypeHuman, llm.messages[0].Role)
	require.Len(t, llm.messages[0].Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "Eres un asistente.\n\norganiza"}, llm.messages[0].Parts[0])
	assert.Equal(t, "gemini-1.5-pro", llm.opts.Model)
	assert.Equal(t, 100, llm.opts.MaxTokens)
}

func TestGeminiProviderErrors(t *testing.T) {
	p := NewGeminiProviderWithModel(&fakeLLM{reply: &llms.ContentResponse{}}, "gemini-1.5-flash")
	_, err := p.Complete(context.Background(), Request{Prompt: "x"})
	assert.EqualError(t, err, "gemini: empty response")

	boom := errors.New("401")
	p = NewGeminiProviderWithModel(&fakeLLM{err: boom}, "gemini-1.5-flash")
	_, err = p.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, config.AssistantConfig{Provider: "mock"})
	require.NoError(t, err)
	resp, err := p.Complete(ctx, Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Len(t, ParseSchedule(resp.Content), 4)

	_, err = NewProvider(ctx, config.AssistantConfig{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(ctx, config.AssistantConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider(ctx, config.AssistantConfig{Provider: "openai"})
	assert.Error(t, err)
}

func TestMockProviderSequence(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockProvider(MockResponse{Content: "a"}, MockResponse{Err: boom}, MockResponse{Content: "c"})
	ctx := context.Background()

	r, err := m.Complete(ctx, Request{})
	require.NoError(t, err)
	assert.Equal(t, "a", r.Content)
	_, err = m.Complete(ctx, Request{})
	assert.ErrorIs(t, err, boom)
	r, _ = m.Complete(ctx, Request{})
	assert.Equal(t, "c", r.Content)
	r, _ = m.Complete(ctx, Request{})
	assert.Equal(t, "c", r.Content, "last response repeats")
	assert.Len(t, m.Calls(), 4)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Complete(cancelled, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// SCHEMA REFINEMENT THROUGH A PROVIDER
// ============================================================================

func TestTextGeneratorRefinesSchema(t *testing.T) {
	draft := &schema.Config{
		Name: "procesos",
		Dimensions: []schema.DimensionMeta{
			{Key: "etapa", Column: "ETAPA", DisplayName: "Etapa", SampleValues: []string{"JUICIO"}},
		},
	}
	reply := "```json\n{\"enrichments\":[{\"key\":\"etapa\",\"displayName\":\"Etapa procesal\"}]}\n```"
	mock := NewMockProvider(MockResponse{Content: reply})
	gen := TextGenerator{Provider: mock, Model: "mock-model", MaxTokens: 256}

	refined, err := schema.Refine(context.Background(), draft, gen, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Etapa procesal", refined.Dimensions[0].DisplayName)
	assert.Equal(t, "Etapa", draft.Dimensions[0].DisplayName, "draft untouched")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 256, calls[0].MaxTokens)
	assert.Equal(t, "mock-model", calls[0].Model)
}
