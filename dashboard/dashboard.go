package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/dataset"
	"github.com/spektr-org/tablero/engine"
	"github.com/spektr-org/tablero/metrics"
)

// Dataset names the pages read from the registry.
const (
	StudentsDataset = "students"
	CasesDataset    = "cases"
)

// ErrAssistantDisabled is returned when no assistant service is configured.
var ErrAssistantDisabled = errors.New("assistant is not configured")

// Dashboard binds the pages to the dataset registry and the assistant.
// Pages only read registry frames.
type Dashboard struct {
	registry  *dataset.Registry
	assistant *assistant.Service
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithAssistant enables the assistant page.
func WithAssistant(svc *assistant.Service) Option {
	return func(d *Dashboard) { d.assistant = svc }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

// WithMetrics counts page renders.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// New creates a Dashboard over a registry.
func New(registry *dataset.Registry, opts ...Option) *Dashboard {
	d := &Dashboard{registry: registry, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Students renders the students explorer.
func (d *Dashboard) Students(q url.Values) (*Page, error) {
	entry, err := d.registry.Get(StudentsDataset)
	if err != nil {
		return nil, err
	}
	st, err := ParseState(StudentsWidgets(), q)
	if err != nil {
		return nil, err
	}
	page, err := StudentsPage(entry.Frame, st)
	if err != nil {
		return nil, fmt.Errorf("students page: %w", err)
	}
	d.rendered(page)
	return page, nil
}

// Cases renders the criminal-cases analysis.
func (d *Dashboard) Cases(q url.Values) (*Page, error) {
	frame, widgets, st, err := d.casesState(q)
	if err != nil {
		return nil, err
	}
	page, err := CasesPage(frame, widgets, st, d.logger)
	if err != nil {
		return nil, fmt.Errorf("cases page: %w", err)
	}
	d.rendered(page)
	return page, nil
}

// CasesChart computes one named chart of the cases page.
func (d *Dashboard) CasesChart(name string, q url.Values) (*engine.ChartConfig, error) {
	frame, widgets, st, err := d.casesState(q)
	if err != nil {
		return nil, err
	}
	return CasesChart(frame, widgets, st, name, d.logger)
}

// CasesData returns the cases records left after the widget filters.
func (d *Dashboard) CasesData(q url.Values) (*engine.TableData, error) {
	frame, widgets, st, err := d.casesState(q)
	if err != nil {
		return nil, err
	}
	return CasesData(frame, widgets, st), nil
}

// Assistant runs the assistant page.
func (d *Dashboard) Assistant(ctx context.Context, q url.Values, session string) (*Page, *assistant.Reply, error) {
	if d.assistant == nil {
		return nil, nil, fmt.Errorf("assistant page: %w", ErrAssistantDisabled)
	}
	st, err := ParseState(AssistantWidgets(), withModeLabel(q))
	if err != nil {
		return nil, nil, err
	}
	page, reply, err := AssistantPage(ctx, d.assistant, st, session)
	if err != nil {
		return nil, nil, err
	}
	d.rendered(page)
	return page, reply, nil
}

// withModeLabel lets callers pass a mode name ("agenda") where the selector
// expects its label.
func withModeLabel(q url.Values) url.Values {
	m, err := assistant.ParseMode(q.Get(AssistantModeKey))
	if err != nil {
		return q
	}
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = v
	}
	out.Set(AssistantModeKey, m.Label())
	return out
}

func (d *Dashboard) casesState(q url.Values) (*engine.Frame, []Widget, State, error) {
	entry, err := d.registry.Get(CasesDataset)
	if err != nil {
		return nil, nil, State{}, err
	}
	widgets := CasesWidgets(entry.Frame)
	st, err := ParseState(widgets, q)
	if err != nil {
		return nil, nil, State{}, err
	}
	return entry.Frame, widgets, st, nil
}

func (d *Dashboard) rendered(page *Page) {
	if d.metrics != nil {
		d.metrics.PageRenders.WithLabelValues(page.Name).Inc()
	}
	d.logger.Debug("📄 page rendered", zap.String("page", page.Name), zap.Int("sections", len(page.Sections)))
}
